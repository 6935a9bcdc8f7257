package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/cartography/internal/dynamics"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Data failure (inconsistent history, schema violations)
	ExitCommandError = 2 // Command error (invalid flags, directory or database not found)
)

// CLI-level error codes. Data errors reported by the dynamics package use
// its own codes (MISSING_EPOCH_FILE, ...).
const (
	ErrCodeGeneric     = "E001"
	ErrCodeInvalidFlag = "E002"
	ErrCodeNotFound    = "E005"
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
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string        `json:"code"`              // "E001" or a dynamics error code
	Message string        `json:"message"`           // human-readable message
	Details *ErrorDetails `json:"details,omitempty"` // file and instance involved
}

// ErrorDetails locates a failure: the epoch file, dynamics directory or
// catalog involved, and the instance identifier when one is known.
type ErrorDetails struct {
	Path string `json:"path,omitempty"`
	Key  string `json:"key,omitempty"`
}

// detailsOf extracts the path and key carried by a dynamics error.
// Returns nil when err carries neither.
func detailsOf(err error) *ErrorDetails {
	var de *dynamics.Error
	if !errors.As(err, &de) || (de.Path == "" && de.Key == "") {
		return nil
	}
	return &ErrorDetails{Path: de.Path, Key: de.Key}
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format. JSON output always
// carries details; text output lists them only in verbose mode.
func (f *OutputFormatter) Error(code, message string, details *ErrorDetails) error {
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

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		if details.Path != "" {
			fmt.Fprintf(f.Writer, "  path: %s\n", details.Path)
		}
		if details.Key != "" {
			fmt.Fprintf(f.Writer, "  instance: %s\n", details.Key)
		}
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
