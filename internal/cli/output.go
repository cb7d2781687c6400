package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/odatabridge/internal/builder"
	"github.com/roach88/odatabridge/internal/odata"
	"github.com/roach88/odatabridge/internal/provider"
	"github.com/roach88/odatabridge/internal/querysql"
	"github.com/roach88/odatabridge/internal/schema"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Query or scenario failure
	ExitCommandError = 2 // Command error (bad flags, missing files, unreadable store)
)

// Error codes reported in CLIError.Code.
const (
	ErrCodeQuery          = "E_QUERY"
	ErrCodeNoEntityType   = "E_NO_ENTITY_TYPE"
	ErrCodeArgument       = "E_ARGUMENT"
	ErrCodeNotRegistered  = "E_NOT_REGISTERED"
	ErrCodeUntranslatable = "E_UNTRANSLATABLE"
	ErrCodeLink           = "E_LINK"
	ErrCodeLinkMissingKey = "E_LINK_MISSING_KEY"
	ErrCodeInvalidRecord  = "E_INVALID_RECORD"
	ErrCodeNotFound       = "E_NOT_FOUND"
	ErrCodeTestFailed     = "E_TEST_FAILED"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code     int    // Exit code (use ExitFailure or ExitCommandError)
	Message  string // Error message
	Err      error  // Underlying error (optional)
	Reported bool   // Already written to the command's output
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

// reportedExitError is an ExitError whose message the command has already
// written through its OutputFormatter.
func reportedExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err, Reported: true}
}

// IsReported reports whether err was already written to the command's
// output, so the caller should not print it again.
func IsReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
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

// ErrorCode maps an error from the query layer to its CLI error code.
func ErrorCode(err error) string {
	var verr *schema.ValidationError
	switch {
	case builder.IsNoEntityTypeFound(err):
		return ErrCodeNoEntityType
	case provider.IsArgumentNull(err), provider.IsUnsupportedExpressionShape(err):
		return ErrCodeArgument
	case errors.Is(err, builder.ErrNotRegistered):
		return ErrCodeNotRegistered
	case errors.Is(err, querysql.ErrUntranslatable):
		return ErrCodeUntranslatable
	case odata.IsLinkMissingKey(err):
		return ErrCodeLinkMissingKey
	case errors.As(err, new(*odata.LinkError)):
		return ErrCodeLink
	case errors.As(err, &verr):
		return ErrCodeInvalidRecord
	}
	return ErrCodeQuery
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
	Code    string `json:"code"`              // "E_QUERY", "E_LINK", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
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

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err in the configured format and returns it as an
// ExitFailure so the process exits non-zero.
func (f *OutputFormatter) Fail(message string, err error) error {
	if outErr := f.Error(ErrorCode(err), fmt.Sprintf("%s: %v", message, err), nil); outErr != nil {
		return outErr
	}
	return reportedExitError(ExitFailure, message, err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
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
