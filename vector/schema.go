package vector

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
)

// DefaultTable is the embeddings table used when Options.Table is empty.
const DefaultTable = "song_embeddings"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TableDDL returns the CREATE TABLE statement for the embeddings table. The
// embedding column holds dim float32 values; equal BLOBs are rejected by the
// unique_embedding constraint. The statement deliberately omits IF NOT EXISTS.
func TableDDL(table string, dim int) string {
	return fmt.Sprintf(`CREATE TABLE %[1]s (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    song_name TEXT NOT NULL,
    genre     TEXT,
    embedding BLOB NOT NULL CHECK (length(embedding) = %[2]d),
    CONSTRAINT unique_embedding UNIQUE (embedding)
);`, table, dim*4)
}

func validateTable(table string) error {
	if !identifierPattern.MatchString(table) {
		return fmt.Errorf("vector: invalid table name %q", table)
	}
	return nil
}

func tableExists(ctx context.Context, q queryer, table string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateSchema creates the embeddings table. It returns a *SchemaError when
// the table already exists.
func (s *SQLiteStore) CreateSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	exists, err := tableExists(ctx, tx, s.table)
	if err != nil {
		return err
	}
	if exists {
		return &SchemaError{Op: "create", Table: s.table, cause: fmt.Errorf("already exists")}
	}
	if _, err := tx.ExecContext(ctx, TableDDL(s.table, s.dim)); err != nil {
		return &SchemaError{Op: "create", Table: s.table, cause: err}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Info("schema created", "table", s.table, "dimension", s.dim)
	return nil
}

// DropSchema irreversibly deletes the embeddings table and all of its rows.
// It returns a *SchemaError when the table does not exist.
func (s *SQLiteStore) DropSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	exists, err := tableExists(ctx, tx, s.table)
	if err != nil {
		return err
	}
	if !exists {
		return &SchemaError{Op: "drop", Table: s.table, cause: fmt.Errorf("does not exist")}
	}
	if _, err := tx.ExecContext(ctx, "DROP TABLE "+s.table); err != nil {
		return &SchemaError{Op: "drop", Table: s.table, cause: err}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Warn("schema dropped", "table", s.table)
	return nil
}

// SchemaExists reports whether the embeddings table exists.
func (s *SQLiteStore) SchemaExists(ctx context.Context) (bool, error) {
	return tableExists(ctx, s.db, s.table)
}
