package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/scribe/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess        = 0 // Successful execution
	ExitFailure        = 1 // Operation failed (record not found, constraint violated, etc.)
	ExitCommandError   = 2 // Command error (bad flags, database cannot be opened, etc.)
	ExitSchemaMismatch = 3 // Database file does not match the expected schema
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure, ExitCommandError or ExitSchemaMismatch)
	Message string // Error message
	Err     error  // Underlying error (optional)
	Details any    // Extra context for the JSON error envelope (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // store error code or "E_CLI"
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Render writes data as a JSON envelope, or calls text for text output.
func (f *OutputFormatter) Render(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}
	text(f.Writer)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// ErrCodeCLI is the envelope code for failures that carry no store code.
const ErrCodeCLI = "E_CLI"

// errorCode picks the envelope code and details for err. Store failures keep
// their store code; a table mismatch lists its differences.
func errorCode(err error) (string, any) {
	var details any
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		details = exitErr.Details
	}

	var mismatch *store.SchemaMismatchError
	if errors.As(err, &mismatch) {
		if details == nil {
			details = mismatch.Diff
		}
		return string(store.ErrCodeSchemaMismatch), details
	}
	var se *store.Error
	if errors.As(err, &se) {
		if details == nil && se.Table != "" {
			details = map[string]string{"table": se.Table}
		}
		return string(se.Code), details
	}
	return ErrCodeCLI, details
}

// ReportError writes a failed command's error. JSON output gets an error
// envelope on the command's stdout; text output goes to its stderr.
func (f *OutputFormatter) ReportError(err error) {
	code, details := errorCode(err)
	out := *f
	if out.Format != "json" && out.ErrWriter != nil {
		out.Writer = out.ErrWriter
	}
	_ = out.Error(code, err.Error(), details)
}
