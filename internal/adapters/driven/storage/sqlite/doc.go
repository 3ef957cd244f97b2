// Package sqlite provides a SQLite-backed implementation of driven.VectorIndex.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Vectors are stored as little-endian
// float32 blobs next to their chunk text and JSON metadata, and similarity is
// computed in Go by scanning a namespace in insertion order.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory and embedded in the binary. Each migration is a pair of
// .up.sql and .down.sql files; applied versions are recorded in schema_migrations.
// The index_settings table pins the vector dimension across runs.
//
// # Data Location
//
// By default, the database is stored at ~/.docqa/data/vectors.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
