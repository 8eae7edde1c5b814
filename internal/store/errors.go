package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes store failures.
type ErrorCode string

const (
	// ErrCodeConstraint indicates a write violated a table constraint, or an
	// update targeted a row that does not exist.
	ErrCodeConstraint ErrorCode = "CONSTRAINT_VIOLATION"

	// ErrCodeSchemaMismatch indicates the on-disk schema differs from the
	// expected shape. Fatal at open time.
	ErrCodeSchemaMismatch ErrorCode = "SCHEMA_MISMATCH"

	// ErrCodeMigrationRequired indicates the on-disk schema version differs
	// from the current version and no migration path exists.
	ErrCodeMigrationRequired ErrorCode = "MIGRATION_REQUIRED"

	// ErrCodeTxFailed indicates a transaction could not begin or commit.
	// The transaction was rolled back in full.
	ErrCodeTxFailed ErrorCode = "TX_FAILED"

	// ErrCodeClosed indicates the store was used after Close.
	ErrCodeClosed ErrorCode = "CLOSED"
)

// Error is a categorized store failure.
type Error struct {
	Code    ErrorCode
	Message string
	Table   string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Table != "" {
		fmt.Fprintf(&b, " (table=%s)", e.Table)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewConstraintError reports a constraint violation on table.
func NewConstraintError(table, message string) *Error {
	return &Error{Code: ErrCodeConstraint, Message: message, Table: table}
}

func newTxError(message string, err error) *Error {
	return &Error{Code: ErrCodeTxFailed, Message: message, Err: err}
}

// IsConstraintError reports whether err is a constraint violation.
// Uses errors.As to handle wrapped errors.
func IsConstraintError(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == ErrCodeConstraint
	}
	return false
}

// IsTxError reports whether err is a begin/commit failure.
func IsTxError(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == ErrCodeTxFailed
	}
	return false
}

// IsMigrationRequired reports whether err is a schema version gap with no
// registered migration.
func IsMigrationRequired(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == ErrCodeMigrationRequired
	}
	return false
}

// IsSchemaMismatch reports whether err is a schema validation failure.
func IsSchemaMismatch(err error) bool {
	var sm *SchemaMismatchError
	if errors.As(err, &sm) {
		return true
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code == ErrCodeSchemaMismatch
	}
	return false
}

// SchemaMismatchError carries the expected and found shapes of a table that
// failed validation, plus a line per difference.
type SchemaMismatchError struct {
	Table    string
	Expected TableInfo
	Found    TableInfo
	Diff     []string
}

// Error implements the error interface.
func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s: %s: %s\n Expected: %s\n Found: %s",
		ErrCodeSchemaMismatch, e.Table, strings.Join(e.Diff, "; "), e.Expected, e.Found)
}
