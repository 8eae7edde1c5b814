package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	// DriverCGO is github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"
	// DriverPureGo is modernc.org/sqlite.
	DriverPureGo = "sqlite"
)

// DefaultBusyTimeoutMS is the lock wait applied when no option overrides it.
const DefaultBusyTimeoutMS = 5000

// Store owns the single embedded database handle.
//
// All access goes through RunTransaction (writes) and Query/QueryRow (reads).
// Writers are serialized; readers observe either pre- or post-commit state.
type Store struct {
	db      *sql.DB
	path    string
	driver  string
	busyMS  int
	tracker *Tracker

	migrations []Migration
	hooks      txHooks

	// writeMu serializes write transactions.
	writeMu sync.Mutex
	closed  atomic.Bool
}

// txHooks lets tests inject failures at the commit decision point.
type txHooks struct {
	commit func(tx *sql.Tx) error
}

// Option configures Open.
type Option func(*Store)

// WithDriver selects the database/sql driver (DriverCGO or DriverPureGo).
func WithDriver(driver string) Option {
	return func(s *Store) {
		s.driver = driver
	}
}

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds.
func WithBusyTimeout(ms int) Option {
	return func(s *Store) {
		s.busyMS = ms
	}
}

// WithMigrations registers schema migrations. The baseline set is empty.
func WithMigrations(m ...Migration) Option {
	return func(s *Store) {
		s.migrations = append(s.migrations, m...)
	}
}

// Open creates or opens a database at path and runs the schema lifecycle.
//
// A fresh file gets every table created and its fingerprint recorded. An
// existing file is validated against the expected layout; any difference is
// returned as a *SchemaMismatchError and the store is not opened.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - busy timeout (default 5 seconds) for lock contention
func Open(path string, opts ...Option) (*Store, error) {
	return OpenContext(context.Background(), path, opts...)
}

// OpenContext is Open bounded by ctx.
func OpenContext(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:    path,
		driver:  DriverCGO,
		busyMS:  DefaultBusyTimeoutMS,
		tracker: newTracker(KnownTables()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.driver != DriverCGO && s.driver != DriverPureGo {
		return nil, fmt.Errorf("unsupported driver %q", s.driver)
	}

	db, err := sql.Open(s.driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection also keeps
	// ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	s.db = db

	if err := s.applyPragmas(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := s.applySchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("database ready", "path", path, "driver", s.driver)
	return s, nil
}

// Close closes the database connection. Subsequent calls are no-ops.
func (s *Store) Close() error {
	if s.db == nil || !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// Path returns the path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string {
	return s.driver
}

// Tracker returns the store's invalidation tracker.
func (s *Store) Tracker() *Tracker {
	return s.tracker
}

// Observe registers an observer for commits touching any of tables.
func (s *Store) Observe(tables ...string) (*Observer, error) {
	return s.tracker.Observe(tables...)
}

// Query runs a read statement outside any transaction. Callers must close
// the returned rows. Cancelling ctx interrupts the scan.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if s.closed.Load() {
		return nil, errClosed()
	}
	return s.db.QueryContext(ctx, query, args...)
}

// QueryRow runs a single-row read statement outside any transaction.
// After Close the returned row's Scan reports ErrCodeClosed.
func (s *Store) QueryRow(ctx context.Context, query string, args ...any) *Row {
	if s.closed.Load() {
		return &Row{err: errClosed()}
	}
	return &Row{row: s.db.QueryRowContext(ctx, query, args...)}
}

// Row is the result of QueryRow.
type Row struct {
	row *sql.Row
	err error
}

// Scan copies the row's columns into dest. It returns sql.ErrNoRows when
// the query matched nothing.
func (r *Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return r.row.Scan(dest...)
}

func errClosed() *Error {
	return &Error{Code: ErrCodeClosed, Message: "store is closed"}
}

// applyPragmas sets required SQLite configuration.
func (s *Store) applyPragmas(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyMS),
	}

	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

// Generation returns the number of commits that touched at least one table.
func (s *Store) Generation() int64 {
	return s.tracker.Generation()
}
