// Package errors provides the error taxonomy shared by the MoraShelf data layer.
//
// Clients and stores convert transport and storage failures into one of the
// codes below before returning, so the presentation layer only ever sees
// *Error values:
//
//	books, err := catalog.SearchBooks(ctx, "dune", 20)
//	if errors.Is(err, errors.ErrCatalogUnavailable) {
//	    // show inline retry state with err.(*errors.Error).UserMessage()
//	}
//
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeInvalidCredentials, errors.CodeEmailAlreadyExists:
//	        // blocking alert
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the data layer.
const (
	CodeCatalogUnavailable Code = "CATALOG_UNAVAILABLE"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeEmailAlreadyExists Code = "EMAIL_ALREADY_EXISTS"
	CodeNetwork            Code = "NETWORK_ERROR"
	CodeServerRejected     Code = "SERVER_REJECTED"
	CodeEmptyNoteRejected  Code = "EMPTY_NOTE_REJECTED"
	CodeNoSignal           Code = "NO_SIGNAL"
	CodeValidation         Code = "VALIDATION"
	CodeNotFound           Code = "NOT_FOUND"
	CodeInternal           Code = "INTERNAL"
)

// RequiresAcknowledgement reports whether errors with this code need user
// action before a retry (blocking alert rather than inline state).
func (c Code) RequiresAcknowledgement() bool {
	switch c {
	case CodeInvalidCredentials, CodeEmailAlreadyExists, CodeServerRejected, CodeValidation:
		return true
	default:
		return false
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// UserMessage returns the message without the wrapped cause, suitable for alerts.
func (e *Error) UserMessage() string {
	return e.Message
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrCatalogUnavailable = &Error{Code: CodeCatalogUnavailable, Message: "catalog unavailable"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrEmailAlreadyExists = &Error{Code: CodeEmailAlreadyExists, Message: "email already exists"}
	ErrNetwork            = &Error{Code: CodeNetwork, Message: "network error"}
	ErrServerRejected     = &Error{Code: CodeServerRejected, Message: "server rejected the request"}
	ErrEmptyNoteRejected  = &Error{Code: CodeEmptyNoteRejected, Message: "note text cannot be empty"}
	ErrNoSignal           = &Error{Code: CodeNoSignal, Message: "not enough reading history"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// CatalogUnavailable creates a catalog unavailable error.
func CatalogUnavailable(msg string) *Error {
	return &Error{Code: CodeCatalogUnavailable, Message: msg}
}

// InvalidCredentials creates an invalid credentials error.
func InvalidCredentials(msg string) *Error {
	return &Error{Code: CodeInvalidCredentials, Message: msg}
}

// EmailAlreadyExists creates an email already exists error.
func EmailAlreadyExists(msg string) *Error {
	return &Error{Code: CodeEmailAlreadyExists, Message: msg}
}

// ServerRejected creates a server rejected error.
func ServerRejected(msg string) *Error {
	return &Error{Code: CodeServerRejected, Message: msg}
}

// ServerRejectedf creates a server rejected error with formatted message.
func ServerRejectedf(format string, args ...any) *Error {
	return &Error{Code: CodeServerRejected, Message: fmt.Sprintf(format, args...)}
}

// EmptyNoteRejected creates an empty note error.
func EmptyNoteRejected(msg string) *Error {
	return &Error{Code: CodeEmptyNoteRejected, Message: msg}
}

// NoSignal creates a no signal error.
func NoSignal(msg string) *Error {
	return &Error{Code: CodeNoSignal, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
