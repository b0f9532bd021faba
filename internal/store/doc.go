// Package store provides the SQLite execution adapter for compiled queries.
//
// The store only reads: compiled SQL is run through QueryContext and rows
// are handed back to the caller unchanged. Tables are expected to exist
// already. ExecScript exists for loading fixtures and is never called by
// the engine.
//
// # Database Configuration
//
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - optional WAL mode (WithWAL) and read-only mode (WithQueryOnly)
package store
