package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Query or scenario failure (compile error, failed assertions, etc.)
	ExitCommandError = 2 // Command error (invalid paths, unreadable schema, database not found, etc.)
)

// Error codes for CLI responses.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Path not found
	ErrCodeReadFailed  = "E003" // File read error
	ErrCodeDatabase    = "E004" // Database open or introspection failed
	ErrCodeSchema      = "E005" // Schema file invalid
	ErrCodeScript      = "E006" // Script rejected
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeCompile     = "E008" // Query failed to compile
	ErrCodeExecution   = "E009" // Query failed in the database
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
	Status  string    `json:"status"`             // "ok" or "error"
	Data    any       `json:"data,omitempty"`     // success payload
	Error   *CLIError `json:"error,omitempty"`    // error details
	QueryID string    `json:"query_id,omitempty"` // ID of the executed query, if any
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
	warnMark = color.New(color.FgYellow).SprintFunc()
)

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "%s %s\n", failMark(fmt.Sprintf("Error [%s]:", code)), message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Pass prints a green "✓" status line. Ignored in JSON mode.
func (f *OutputFormatter) Pass(format string, args ...any) {
	if f.Format == "json" {
		return
	}
	fmt.Fprintf(f.Writer, "%s %s\n", okMark("✓"), fmt.Sprintf(format, args...))
}

// Fail prints a red "✗" status line. Ignored in JSON mode.
func (f *OutputFormatter) Fail(format string, args ...any) {
	if f.Format == "json" {
		return
	}
	fmt.Fprintf(f.Writer, "%s %s\n", failMark("✗"), fmt.Sprintf(format, args...))
}

// Warn prints a yellow "!" status line. Ignored in JSON mode.
func (f *OutputFormatter) Warn(format string, args ...any) {
	if f.Format == "json" {
		return
	}
	fmt.Fprintf(f.Writer, "%s %s\n", warnMark("!"), fmt.Sprintf(format, args...))
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

func (f *OutputFormatter) encode(resp CLIResponse) error {
	encoder := json.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}
