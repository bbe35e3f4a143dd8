// Package vector implements the song embedding store on top of SQLite. It
// includes:
//   - Row/Match model and the Store interface used by ingestion and queries
//   - SQLiteStore: durable rows with a uniqueness constraint on the embedding
//   - Schema helpers to create and drop the embeddings table
//   - Embedding encoding (BLOB) and the L2 distance shared with vec_l2
package vector
