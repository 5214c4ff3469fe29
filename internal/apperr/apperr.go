// Package apperr carries the error kinds services return and the HTTP
// status each kind maps to.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindNotFound              Kind = "not_found"
	KindNotAuthorized         Kind = "not_authorized"
	KindForbidden             Kind = "forbidden"
	KindDuplicateRegistration Kind = "duplicate_registration"
	KindCapacityExceeded      Kind = "capacity_exceeded"
	KindValidation            Kind = "validation_error"
	KindRateLimited           Kind = "rate_limited"
	KindUnknown               Kind = "unknown"
)

// Error is the only error type services hand back to the HTTP layer.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code for the error's kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindNotAuthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindDuplicateRegistration, KindCapacityExceeded, KindValidation:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func NotFound(msg string) *Error      { return &Error{Kind: KindNotFound, Message: msg} }
func NotAuthorized(msg string) *Error { return &Error{Kind: KindNotAuthorized, Message: msg} }
func Forbidden(msg string) *Error     { return &Error{Kind: KindForbidden, Message: msg} }
func Validation(msg string) *Error    { return &Error{Kind: KindValidation, Message: msg} }
func RateLimited(msg string) *Error   { return &Error{Kind: KindRateLimited, Message: msg} }

func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

func DuplicateRegistration(msg string) *Error {
	return &Error{Kind: KindDuplicateRegistration, Message: msg}
}

func CapacityExceeded(remaining int) *Error {
	return &Error{
		Kind:    KindCapacityExceeded,
		Message: fmt.Sprintf("Only %d seats remaining for this event", remaining),
	}
}

// Unknown wraps an unexpected storage or runtime failure.
func Unknown(msg string, err error) *Error {
	return &Error{Kind: KindUnknown, Message: msg, Err: err}
}

// From converts any error into an *Error, treating foreign errors as unknown.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Unknown("Internal server error", err)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
