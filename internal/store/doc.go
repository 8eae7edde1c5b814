// Package store provides the SQLite-backed embedded store for scribe.
//
// The store owns one database handle and exposes:
//   - RunTransaction: the single commit/rollback decision point for writes
//   - Query / QueryRow: reads outside a transaction; both fail with
//     ErrCodeClosed after Close
//   - Observe: table-keyed invalidation signals published after commit
//   - ClearAllTables: atomic reset followed by WAL checkpoint and VACUUM
//
// # Schema Lifecycle
//
// Open creates every table on a fresh file and records an identity
// fingerprint in schema_master. On an existing file it runs registered
// migrations (none in the baseline) and validates each table's columns
// (name, type, nullability, primary-key position) against ExpectedTables.
// Any difference fails Open with a *SchemaMismatchError; nothing is repaired.
//
// Check runs the same validation over a read-only connection and never
// creates tables, switches journal mode or records a fingerprint.
//
// # Concurrency
//
//   - One connection (SetMaxOpenConns(1)); write transactions are serialized
//   - Notification happens after commit and before RunTransaction returns
//   - Rolled-back work is never published
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds (configurable)
//
// Both github.com/mattn/go-sqlite3 ("sqlite3") and modernc.org/sqlite
// ("sqlite") are registered; WithDriver selects one.
package store
