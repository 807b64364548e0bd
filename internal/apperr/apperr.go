// Package apperr defines the error taxonomy shared by services and the HTTP layer.
//
// Every error returned by a domain operation either wraps one of the sentinel
// kinds below or is treated as an unexpected backend failure.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel error kinds.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
)

// Error is a classified error with a caller-safe message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the kind so errors.Is works against the sentinels.
func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed or missing input.
func Validation(format string, args ...interface{}) error {
	return newError(ErrValidation, format, args...)
}

// Unauthenticated reports a missing or invalid credential.
func Unauthenticated(format string, args ...interface{}) error {
	return newError(ErrUnauthenticated, format, args...)
}

// Forbidden reports a verified identity that may not act on the resource.
func Forbidden(format string, args ...interface{}) error {
	return newError(ErrForbidden, format, args...)
}

// NotFound reports an absent entity.
func NotFound(entity string, id interface{}) error {
	return newError(ErrNotFound, "%s %v not found", entity, id)
}

// Conflict reports a state that forbids the operation (duplicate, wrong status).
func Conflict(format string, args ...interface{}) error {
	return newError(ErrConflict, format, args...)
}

// IsNotFound reports whether err is classified as not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// HTTPStatus maps an error to its response status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to send to a client.
// Unclassified errors never leak their detail.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}
