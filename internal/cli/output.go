package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gaitdoc/internal/domain"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected request (validation error, unknown id, missing attachment file)
	ExitCommandError = 2 // Command error (bad flags, unreadable config, filesystem failure)
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
// Domain errors map by kind; anything else is ExitFailure (1).
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if domain.CodeOf(err) == domain.CodeIOFailure {
		return ExitCommandError
	}
	return ExitFailure
}

// OutputFormatter handles text, JSON and YAML output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard response envelope for JSON and YAML output.
type CLIResponse struct {
	Status string    `json:"status" yaml:"status"`                   // "ok" or "error"
	Data   any       `json:"data,omitempty" yaml:"data,omitempty"`   // success payload
	Error  *CLIError `json:"error,omitempty" yaml:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code" yaml:"code"`                           // domain error code, e.g. "VALIDATION"
	Message string `json:"message" yaml:"message"`                     // human-readable message
	Details any    `json:"details,omitempty" yaml:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
// text renders the human-readable form; when nil, data is printed with
// fmt.Fprintln.
func (f *OutputFormatter) Success(data any, text func(w io.Writer) error) error {
	if f.structured() {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	if text == nil {
		fmt.Fprintln(f.Writer, data)
		return nil
	}
	return text(f.Writer)
}

// Partial outputs data that is complete but accompanied by an error, such
// as an attachment list where some files are missing. It returns the error
// the command should exit with; in structured formats the error is already
// part of the envelope and is not reported again.
func (f *OutputFormatter) Partial(data any, err error, text func(w io.Writer) error) error {
	if f.structured() {
		resp := CLIResponse{Status: "error", Data: data, Error: toCLIError(err)}
		if werr := f.encode(resp); werr != nil {
			return werr
		}
		return reportedError{err}
	}
	if text != nil {
		if werr := text(f.Writer); werr != nil {
			return werr
		}
	}
	return err
}

// reportedError marks an error already written by Partial.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.structured() {
		return f.encode(CLIResponse{
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

// Fail reports err using its domain code when it has one.
func (f *OutputFormatter) Fail(err error) error {
	ce := toCLIError(err)
	return f.Error(ce.Code, ce.Message, ce.Details)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is structured, verbose logs go to ErrWriter to avoid corrupting the output.
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

func (f *OutputFormatter) structured() bool {
	return f.Format == "json" || f.Format == "yaml"
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	if f.Format == "yaml" {
		enc := yaml.NewEncoder(f.Writer)
		enc.SetIndent(2)
		if err := enc.Encode(resp); err != nil {
			return err
		}
		return enc.Close()
	}
	return json.NewEncoder(f.Writer).Encode(resp)
}

// toCLIError classifies err. Validation fields and file paths become
// details so a caller can point at the failing input.
func toCLIError(err error) *CLIError {
	var de *domain.Error
	if errors.As(err, &de) {
		ce := &CLIError{Code: string(de.Code), Message: err.Error()}
		switch {
		case len(de.Fields) > 0:
			ce.Details = de.Fields
		case de.Path != "":
			ce.Details = map[string]string{"path": de.Path}
		}
		return ce
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code == ExitCommandError {
		return &CLIError{Code: "COMMAND", Message: err.Error()}
	}
	return &CLIError{Code: "ERROR", Message: err.Error()}
}
