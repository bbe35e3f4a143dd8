package vector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/viant/songvec/internal/logging"
)

// DefaultDedupThreshold is the L2 distance below which two embeddings are
// reported as near-duplicates by EmbeddingExists.
const DefaultDedupThreshold = 0.0005

// Options configures a SQLiteStore.
type Options struct {
	// Table names the embeddings table (DefaultTable when empty).
	Table string

	// Dimension is the fixed embedding length; required.
	Dimension int

	// DedupThreshold is the EmbeddingExists distance bound
	// (DefaultDedupThreshold when zero).
	DedupThreshold float64

	Logger *logging.Logger
}

// SQLiteStore implements Store over a SQLite database opened with
// engine.Open, which provides the vec_l2 function used for every distance
// computation. Each Insert is its own autocommit statement.
type SQLiteStore struct {
	db        *sql.DB
	table     string
	dim       int
	threshold float64
	logger    *logging.Logger
}

// NewSQLiteStore creates a SQLite-backed Store. It verifies that the database
// is reachable and that vec_l2 is registered; failures wrap
// ErrStoreUnavailable.
func NewSQLiteStore(ctx context.Context, db *sql.DB, opts Options) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("vector: db is nil")
	}
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("vector: invalid dimension %d", opts.Dimension)
	}
	if opts.Table == "" {
		opts.Table = DefaultTable
	}
	if err := validateTable(opts.Table); err != nil {
		return nil, err
	}
	if opts.DedupThreshold == 0 {
		opts.DedupThreshold = DefaultDedupThreshold
	}
	if opts.DedupThreshold < 0 {
		return nil, fmt.Errorf("vector: negative dedup threshold %v", opts.DedupThreshold)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	var probe sql.NullFloat64
	if err := db.QueryRowContext(ctx, `SELECT vec_l2(NULL, NULL)`).Scan(&probe); err != nil {
		return nil, fmt.Errorf("%w: vec_l2 not registered: %w", ErrStoreUnavailable, err)
	}
	return &SQLiteStore{
		db:        db,
		table:     opts.Table,
		dim:       opts.Dimension,
		threshold: opts.DedupThreshold,
		logger:    logging.OrNoop(opts.Logger),
	}, nil
}

// Dimension returns the fixed embedding length.
func (s *SQLiteStore) Dimension() int { return s.dim }

// Table returns the embeddings table name.
func (s *SQLiteStore) Table() string { return s.table }

// DedupThreshold returns the EmbeddingExists distance bound.
func (s *SQLiteStore) DedupThreshold() float64 { return s.threshold }

// Insert stores a chunk embedding. A bit-identical embedding already present
// makes the insert a no-op reported as 0 affected rows, not an error.
func (s *SQLiteStore) Insert(ctx context.Context, songName, genre string, embedding []float32) (int64, error) {
	if songName == "" {
		return 0, fmt.Errorf("vector: Insert called with empty song name")
	}
	blob, err := encodeDim(embedding, s.dim)
	if err != nil {
		return 0, err
	}
	stmt := fmt.Sprintf(`INSERT INTO %s(song_name, genre, embedding)
VALUES (?, ?, ?)
ON CONFLICT(embedding) DO NOTHING`, s.table)
	res, err := s.db.ExecContext(ctx, stmt, songName, nullable(genre), blob)
	if err != nil {
		return 0, fmt.Errorf("vector: insert %s: %w", songName, err)
	}
	return res.RowsAffected()
}

// EmbeddingExists returns the stored row nearest to embedding when its
// distance is below the dedup threshold. It never mutates the store.
func (s *SQLiteStore) EmbeddingExists(ctx context.Context, embedding []float32) (*Match, bool, error) {
	blob, err := encodeDim(embedding, s.dim)
	if err != nil {
		return nil, false, err
	}
	q := fmt.Sprintf(`SELECT id, song_name, genre, embedding, distance FROM (
    SELECT id, song_name, genre, embedding, vec_l2(embedding, ?) AS distance FROM %s
) WHERE distance < ? ORDER BY distance, id LIMIT 1`, s.table)
	rows, err := s.db.QueryContext(ctx, q, blob, s.threshold)
	if err != nil {
		return nil, false, fmt.Errorf("vector: embedding exists: %w", err)
	}
	matches, err := scanMatches(rows)
	if err != nil {
		return nil, false, fmt.Errorf("vector: embedding exists: %w", err)
	}
	if len(matches) == 0 {
		return nil, false, nil
	}
	m := matches[0]
	s.logger.DebugContext(ctx, "embedding exists", "id", m.ID, "song", m.SongName, "genre", m.Genre, "distance", m.Distance)
	return &m, true, nil
}

// KNearest returns up to k rows ordered by ascending L2 distance to
// embedding; equal distances keep insertion order.
func (s *SQLiteStore) KNearest(ctx context.Context, embedding []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	blob, err := encodeDim(embedding, s.dim)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT id, song_name, genre, embedding, vec_l2(embedding, ?) AS distance
FROM %s ORDER BY distance, id LIMIT ?`, s.table)
	rows, err := s.db.QueryContext(ctx, q, blob, k)
	if err != nil {
		s.logger.LogSearch(ctx, k, 0, err)
		return nil, fmt.Errorf("vector: k nearest: %w", err)
	}
	out, err := scanMatches(rows)
	s.logger.LogSearch(ctx, k, len(out), err)
	if err != nil {
		return nil, fmt.Errorf("vector: k nearest: %w", err)
	}
	return out, nil
}

// Count returns the number of stored rows.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("vector: count: %w", err)
	}
	return n, nil
}

// GenreTrackCounts returns, per genre, the number of distinct tracks with at
// least one stored chunk. Rows with a NULL genre are ignored.
func (s *SQLiteStore) GenreTrackCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT DISTINCT genre, song_name FROM %s WHERE genre IS NOT NULL`, s.table))
	if err != nil {
		return nil, fmt.Errorf("vector: genre track counts: %w", err)
	}
	defer rows.Close()

	tracks := map[string]map[string]struct{}{}
	for rows.Next() {
		var genre, song string
		if err := rows.Scan(&genre, &song); err != nil {
			return nil, err
		}
		if tracks[genre] == nil {
			tracks[genre] = map[string]struct{}{}
		}
		tracks[genre][TrackOf(song)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(tracks))
	for genre, ids := range tracks {
		out[genre] = len(ids)
	}
	return out, nil
}

// SongName composes the stored name of a chunk.
func SongName(trackID string, chunk int) string {
	return fmt.Sprintf("%s_c%d", trackID, chunk)
}

// TrackOf returns the track id part of a song name produced by SongName.
func TrackOf(songName string) string {
	if i := strings.LastIndex(songName, "_c"); i >= 0 {
		return songName[:i]
	}
	return songName
}

func scanMatches(rows *sql.Rows) ([]Match, error) {
	defer rows.Close()
	var out []Match
	for rows.Next() {
		var m Match
		var genre sql.NullString
		var blob []byte
		if err := rows.Scan(&m.ID, &m.SongName, &genre, &blob, &m.Distance); err != nil {
			return nil, err
		}
		m.Genre = genre.String
		emb, err := DecodeEmbedding(blob)
		if err != nil {
			return nil, err
		}
		m.Embedding = emb
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Ensure SQLiteStore satisfies the Store interface.
var _ Store = (*SQLiteStore)(nil)
