// Package apperr provides the error taxonomy shared by the store and the
// transports.
package apperr

import "errors"

// Code is a machine-readable error code.
type Code string

const (
	// CodeInvalidInput marks a missing or malformed required field.
	CodeInvalidInput Code = "INVALID_INPUT"
	// CodeNotFound marks an unknown group or participant.
	CodeNotFound Code = "NOT_FOUND"
	// CodeConflict is raised internally when code generation collides.
	// It is retried and never reaches a caller.
	CodeConflict Code = "CONFLICT"
	// CodeInternal marks everything else.
	CodeInternal Code = "INTERNAL"
)

// Error is the domain error type.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message, safe to return to callers
	Cause   error  // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// InvalidInput is shorthand for New(CodeInvalidInput, message).
func InvalidInput(message string) *Error {
	return New(CodeInvalidInput, message)
}

// NotFound is shorthand for New(CodeNotFound, message).
func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Message returns the caller-facing message of the first *Error in err's
// chain. Foreign errors are reduced to a generic message.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
