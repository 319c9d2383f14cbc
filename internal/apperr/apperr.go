// Package apperr defines the single error sum type used across every
// domain package: a status kind plus a message. Handlers map it to HTTP at
// the boundary via WriteHTTP, matching design note §9 ("use a single result
// sum type returning (status-kind, message) pairs; map to HTTP at the
// boundary") and the teacher's ErrorResponse envelope in internal/httpserver.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a closed set of error categories independent of transport.
type Kind string

const (
	KindBadRequest        Kind = "bad_request"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindPayloadTooLarge   Kind = "payload_too_large"
	KindServiceUnavailable Kind = "service_unavailable"
	KindInternal          Kind = "internal"
)

// Error carries a Kind and a caller-facing message. Internal error details
// (e.g. database driver text) must never be placed in Message.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind carrying an internal cause, which is
// never exposed in Message (it is available via errors.Unwrap for logging).
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// BadRequest, Unauthorized, Forbidden, NotFound, Conflict, Internal are
// convenience constructors for the corresponding Kind.
func BadRequest(format string, args ...any) *Error {
	return New(KindBadRequest, fmt.Sprintf(format, args...))
}
func Unauthorized(format string, args ...any) *Error {
	return New(KindUnauthorized, fmt.Sprintf(format, args...))
}
func Forbidden(format string, args ...any) *Error {
	return New(KindForbidden, fmt.Sprintf(format, args...))
}
func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}
func Conflict(format string, args ...any) *Error {
	return New(KindConflict, fmt.Sprintf(format, args...))
}
func Internal(cause error) *Error {
	return Wrap(KindInternal, "an internal error occurred", cause)
}

// HTTPStatus maps a Kind to its transport status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// As extracts an *Error from err, falling back to an Internal wrapping of
// err when it is not already one.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}
