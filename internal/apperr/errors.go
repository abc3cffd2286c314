// Package apperr defines the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the transport layer.
type Kind string

const (
	KindValidation     Kind = "VALIDATION"
	KindNotFound       Kind = "NOT_FOUND"
	KindAuthentication Kind = "AUTHENTICATION"
	KindAuthorization  Kind = "AUTHORIZATION"
	KindConflict       Kind = "CONFLICT"
	KindUpstream       Kind = "UPSTREAM"
	KindInternal       Kind = "INTERNAL"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	// Details is diagnostic text that is only exposed outside production.
	Details string
	// Unavailable marks an upstream dependency that is not configured at all.
	Unavailable bool
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation creates a non-retryable input error.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates an error for a missing entity.
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

// Authentication creates a 401-class error.
func Authentication(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

// Authorization creates a 403-class error.
func Authorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

// Conflict creates an error for a state or uniqueness conflict.
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Upstream wraps a failure of an external dependency (payment processor, mail relay).
func Upstream(message string, err error) *Error {
	e := &Error{Kind: KindUpstream, Message: message, Err: err}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

// Unavailable reports an external dependency that has not been configured.
func Unavailable(message string) *Error {
	return &Error{Kind: KindUpstream, Message: message, Unavailable: true}
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) *Error {
	e := &Error{Kind: KindInternal, Message: message, Err: err}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// As extracts the classified error, if any.
func As(err error) (*Error, bool) {
	var ae *Error
	ok := errors.As(err, &ae)
	return ae, ok
}
