// Package apperrors defines the error taxonomy shared by the data, service
// and API layers. The data layer returns these errors with a human readable
// message; the API layer maps the Type to a status code and passes the
// message through untouched.
package apperrors

import (
	"errors"
	"fmt"
)

// Type is the category of an application error
type Type string

const (
	TypeValidation   Type = "validation"
	TypeNotFound     Type = "not_found"
	TypeConflict     Type = "conflict"
	TypeUnauthorized Type = "unauthorized"
	TypeForbidden    Type = "forbidden"
	TypeInternal     Type = "internal"
)

// Error is a typed application error
type Error struct {
	Type    Type
	Message string
	Err     error
	Fields  map[string]string
}

// Error implements the error interface. Only the message is returned so it can
// be shown to API callers as is.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// Validation returns a ValidationError
func Validation(message string) *Error {
	return &Error{Type: TypeValidation, Message: message}
}

// ValidationFields returns a ValidationError carrying per-field messages
func ValidationFields(message string, fields map[string]string) *Error {
	return &Error{Type: TypeValidation, Message: message, Fields: fields}
}

// NotFound returns a NotFoundError, e.g. NotFound("role") -> "role not found"
func NotFound(entity string) *Error {
	return &Error{Type: TypeNotFound, Message: entity + " not found"}
}

// Conflict returns a ConflictError
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Type: TypeConflict, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized returns an UnauthorizedError
func Unauthorized(message string) *Error {
	return &Error{Type: TypeUnauthorized, Message: message}
}

// Forbidden returns a ForbiddenError
func Forbidden(message string) *Error {
	return &Error{Type: TypeForbidden, Message: message}
}

// Internal wraps an unexpected failure. The message is for logs; callers see a
// generic message.
func Internal(message string, err error) *Error {
	return &Error{Type: TypeInternal, Message: message, Err: err}
}

var (
	ErrValidation   = &Error{Type: TypeValidation}
	ErrNotFound     = &Error{Type: TypeNotFound}
	ErrConflict     = &Error{Type: TypeConflict}
	ErrUnauthorized = &Error{Type: TypeUnauthorized}
	ErrForbidden    = &Error{Type: TypeForbidden}
	ErrInternal     = &Error{Type: TypeInternal}
)

// TypeOf reports the Type of err. Untyped errors are internal.
func TypeOf(err error) Type {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return TypeInternal
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is a ConflictError
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
