// Package apperr carries machine-readable error kinds across the service
// boundary so handlers can map business failures to HTTP codes without
// string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping and caller retry decisions.
type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindInsufficientStock Kind = "insufficient_stock"
	KindInvalidUnit       Kind = "invalid_unit"
	KindInvalidState      Kind = "invalid_state"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindTransientIO       Kind = "transient_io"
	KindInternal          Kind = "internal"
)

// Error is a kind-tagged error. Business failures are always returned as
// values of this type, never panics.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a kind-tagged error with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error with a kind and message.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation is shorthand for a KindValidation error.
func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, format, args...)
}

// KindOf extracts the kind of err, or KindInternal for untagged errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error kind to the HTTP status handlers respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInsufficientStock, KindInvalidUnit:
		return http.StatusBadRequest
	case KindInvalidState, KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindTransientIO:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
