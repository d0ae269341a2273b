package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes failures surfaced to the presentation layer.
type ErrorCode string

const (
	// CodeValidation marks a missing or malformed field. User-correctable,
	// never retried automatically.
	CodeValidation ErrorCode = "VALIDATION"

	// CodeInvalidInput marks a bad argument that is not a record field,
	// such as an attachment source path that does not exist.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeNotFound marks a stale or unknown id.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeIOFailure marks an attachment copy, open or delete failure.
	CodeIOFailure ErrorCode = "IO_FAILURE"

	// CodeCorruption marks an attachment row whose file is missing or
	// does not match its recorded checksum.
	CodeCorruption ErrorCode = "CONFLICT_OR_CORRUPTION"
)

// Sentinels for errors.Is. Every *Error matches the sentinel of its Code.
var (
	ErrValidation   = errors.New("validation error")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("record no longer exists")
	ErrIOFailure    = errors.New("io failure")
	ErrCorruption   = errors.New("conflict or corruption")
)

var sentinels = map[ErrorCode]error{
	CodeValidation:   ErrValidation,
	CodeInvalidInput: ErrInvalidInput,
	CodeNotFound:     ErrNotFound,
	CodeIOFailure:    ErrIOFailure,
	CodeCorruption:   ErrCorruption,
}

// FieldError names one failing field of a validation error.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// String renders "field: message".
func (f FieldError) String() string {
	return f.Field + ": " + f.Message
}

// Error is the typed failure returned across the facade boundary.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Entity and ID identify the record involved, when there is one.
	Entity string
	ID     int64

	// Path is the filesystem path involved in IO and corruption errors.
	Path string

	// Fields lists failing fields for validation errors.
	Fields []FieldError

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Entity != "" && e.ID != 0 {
		fmt.Fprintf(&b, " (%s=%d)", e.Entity, e.ID)
	}
	if len(e.Fields) > 0 {
		parts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			parts[i] = f.String()
		}
		b.WriteString(": ")
		b.WriteString(strings.Join(parts, "; "))
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " [%s]", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Code.
func (e *Error) Is(target error) bool {
	return sentinels[e.Code] == target
}

// CodeOf extracts the ErrorCode of err, or "" if err carries none.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// NewValidationError builds a validation error for entity from fields.
// Returns nil if fields is empty so callers can return it unconditionally.
func NewValidationError(entity string, fields []FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return &Error{
		Code:    CodeValidation,
		Message: "invalid " + entity,
		Entity:  entity,
		Fields:  fields,
	}
}

// NewNotFound reports that the entity with id does not exist.
func NewNotFound(entity string, id int64) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: entity + " no longer exists",
		Entity:  entity,
		ID:      id,
	}
}

// NewInvalidInput reports a bad argument.
func NewInvalidInput(message, path string) *Error {
	return &Error{Code: CodeInvalidInput, Message: message, Path: path}
}

// NewIOFailure wraps a filesystem failure on path.
func NewIOFailure(message, path string, err error) *Error {
	return &Error{Code: CodeIOFailure, Message: message, Path: path, Err: err}
}

// NewCorruption reports that the attachment with id has lost its file.
func NewCorruption(id int64, path, message string) *Error {
	return &Error{
		Code:    CodeCorruption,
		Message: message,
		Entity:  "attachment",
		ID:      id,
		Path:    path,
	}
}
