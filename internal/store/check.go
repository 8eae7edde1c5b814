package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Check validates the database file at path against the expected layout
// without modifying it. The file is opened read-only: no table is created,
// no journal mode is set and no fingerprint is recorded.
//
// Returns nil for a valid database, a *SchemaMismatchError for a table that
// differs, and an *Error with ErrCodeSchemaMismatch (no known tables, or a
// different fingerprint) or ErrCodeMigrationRequired (version gap).
func Check(ctx context.Context, path string, opts ...Option) error {
	s := &Store{driver: DriverCGO, busyMS: DefaultBusyTimeoutMS}
	for _, opt := range opts {
		opt(s)
	}
	if s.driver != DriverCGO && s.driver != DriverPureGo {
		return fmt.Errorf("unsupported driver %q", s.driver)
	}

	db, err := sql.Open(s.driver, readOnlyDSN(path))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	// Connection-local; nothing is written to the file.
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyMS)); err != nil {
		return fmt.Errorf("failed to set busy_timeout: %w", err)
	}

	existing, err := hasKnownTable(ctx, db)
	if err != nil {
		return err
	}
	if !existing {
		return &Error{Code: ErrCodeSchemaMismatch, Message: "no known tables"}
	}

	version, err := schemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if version > currentSchemaVersion {
		return &Error{
			Code:    ErrCodeMigrationRequired,
			Message: fmt.Sprintf("database version %d is newer than supported version %d", version, currentSchemaVersion),
		}
	}
	if version != 0 && version < currentSchemaVersion {
		return &Error{
			Code:    ErrCodeMigrationRequired,
			Message: fmt.Sprintf("database version %d needs migration to %d", version, currentSchemaVersion),
		}
	}

	if err := validateTables(ctx, db); err != nil {
		return err
	}

	// A missing fingerprint is recorded by the next Open.
	stored, ok, err := readFingerprint(ctx, db)
	if err != nil || !ok {
		return err
	}
	return compareFingerprint(stored)
}

// readOnlyDSN turns a file path into a SQLite URI opened with mode=ro.
// Both drivers accept file: URIs.
func readOnlyDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		if strings.Contains(path, "?") {
			return path + "&mode=ro"
		}
		return path + "?mode=ro"
	}
	escaped := strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(path)
	return "file:" + escaped + "?mode=ro"
}
