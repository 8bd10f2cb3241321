package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/bookcat/internal/auth"
	"github.com/roach88/bookcat/internal/book"
	"github.com/roach88/bookcat/internal/config"
	"github.com/roach88/bookcat/internal/fixture"
	"github.com/roach88/bookcat/internal/link"
	"github.com/roach88/bookcat/internal/storage"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The operation ran and said no (invalid ISBN, permission denied, etc.)
	ExitCommandError = 2 // Command error (bad arguments, database unavailable, etc.)
)

// Error codes shared by every command's error output.
const (
	ErrCodeGeneric        = "E001" // Generic/unknown error
	ErrCodeInvalidInput   = "E002" // Bad argument or flag value
	ErrCodeConfig         = "E003" // Configuration file rejected
	ErrCodeNotFound       = "E005" // Record not found
	ErrCodeStorage        = "E008" // Storage unavailable or failed
	ErrCodeConflict       = "E009" // Uniqueness violation
	ErrCodePermission     = "E010" // Missing permission or bad token
	ErrCodeTransition     = "E011" // Domain status change not allowed
	ErrCodeInvalidISBN    = "E012" // ISBN failed validation or conversion
	ErrCodeFixture        = "E013" // Fixture file rejected
	ErrCodePageOutOfRange = "E014" // Collection page past the end
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
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
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
// In text mode data is printed with fmt.Fprintln; commands with structured
// results print their own text and call Success only for JSON.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{
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
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Fail reports err in the configured format and returns the ExitError the
// command should return. The error code and exit code follow from the
// sentinel err wraps.
func (f *OutputFormatter) Fail(message string, err error) error {
	code, exit := classify(err)
	text := message
	if err != nil {
		text = fmt.Sprintf("%s: %v", message, err)
	}
	_ = f.Error(code, text, nil)
	return WrapExitError(exit, fmt.Sprintf("%s: %s", code, message), err)
}

func classify(err error) (code string, exit int) {
	switch {
	case err == nil:
		return ErrCodeGeneric, ExitCommandError
	case errors.Is(err, auth.ErrPermissionDenied), errors.Is(err, auth.ErrInvalidToken):
		return ErrCodePermission, ExitFailure
	case errors.Is(err, link.ErrInvalidTransition):
		return ErrCodeTransition, ExitFailure
	case errors.Is(err, errInvalidISBN):
		return ErrCodeInvalidISBN, ExitFailure
	case errors.Is(err, storage.ErrNotFound):
		return ErrCodeNotFound, ExitFailure
	case errors.Is(err, storage.ErrConflict):
		return ErrCodeConflict, ExitFailure
	case errors.Is(err, book.ErrPageOutOfRange):
		return ErrCodePageOutOfRange, ExitFailure
	case errors.Is(err, config.ErrInvalid):
		return ErrCodeConfig, ExitCommandError
	case errors.Is(err, fixture.ErrUnknownKey):
		return ErrCodeFixture, ExitCommandError
	case errors.Is(err, link.ErrInvalidURL), errors.Is(err, errInvalidInput):
		return ErrCodeInvalidInput, ExitCommandError
	case errors.Is(err, errStorage):
		return ErrCodeStorage, ExitCommandError
	}
	return ErrCodeGeneric, ExitCommandError
}
