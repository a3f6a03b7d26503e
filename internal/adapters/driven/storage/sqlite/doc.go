// Package sqlite provides the SQLite-based implementation of the
// persistence ports: the resolved-call cache, the resume checkpoints,
// and the audit run history.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation
// that requires no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations embedded
// from the migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.procaudit/data/procaudit.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode. Cache writes are single-statement
// upserts, so an interrupted run never leaves a torn entry behind.
package sqlite
