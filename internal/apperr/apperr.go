// Package apperr defines the error taxonomy shared by services and
// handlers.  Every error that crosses the service boundary is one of these
// kinds; handlers map the kind to an HTTP status and never inspect causes.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for propagation and retry decisions.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindExternalService
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindExternalService:
		return "external_service"
	case KindPersistence:
		return "persistence"
	}
	return "internal"
}

// Error carries a kind, a message safe to show to callers and the
// underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error { return &Error{Kind: KindValidation, Msg: msg} }

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(msg string) error { return &Error{Kind: KindNotFound, Msg: msg} }

func Conflict(msg string) error { return &Error{Kind: KindConflict, Msg: msg} }

func Unauthorized(msg string) error { return &Error{Kind: KindUnauthorized, Msg: msg} }

// External wraps a failure of a third-party API (payment provider, email).
func External(msg string, err error) error {
	return &Error{Kind: KindExternalService, Msg: msg, Err: err}
}

// Persistence wraps a data store failure.
func Persistence(msg string, err error) error {
	return &Error{Kind: KindPersistence, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or KindInternal for errors outside the
// taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the caller-facing message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal error"
}

// Retryable reports whether the operation that produced err may be retried
// by an at-least-once caller such as the webhook sender.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindExternalService, KindPersistence, KindInternal:
		return true
	}
	return false
}
