package vector

import (
	"context"
)

// Row is a persisted chunk embedding.
type Row struct {
	// ID is the auto-incremented primary key.
	ID int64

	// SongName identifies the chunk as "{track_id}_c{chunk_index}". It is not
	// unique in the store.
	SongName string

	// Genre is the catalog genre of the parent track; empty when NULL.
	Genre string

	// Embedding is the vector representation of the chunk.
	Embedding []float32
}

// Match is a stored row annotated with its L2 distance to a query vector.
type Match struct {
	Row
	Distance float64
}

// Store defines the application-level embedding store API.
type Store interface {
	// Insert adds a row and returns the number of affected rows: 1 when the
	// row was stored, 0 when a bit-identical embedding already exists.
	Insert(ctx context.Context, songName, genre string, embedding []float32) (int64, error)

	// EmbeddingExists returns the nearest stored row when its distance to
	// embedding is below the dedup threshold.
	EmbeddingExists(ctx context.Context, embedding []float32) (*Match, bool, error)

	// KNearest returns up to k rows ordered by ascending distance.
	KNearest(ctx context.Context, embedding []float32, k int) ([]Match, error)
}
