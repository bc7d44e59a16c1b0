package service

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a service failure.  The set is closed: every error a
// service method returns carries exactly one of these kinds.
type Kind int

const (
	// Internal covers store, verifier and unexpected failures.
	Internal Kind = iota
	// Unauthenticated means the credential is missing or invalid.
	Unauthenticated
	// InvalidArgument means the client payload violates a field constraint.
	InvalidArgument
	// NotFound means the referenced ticket does not exist.
	NotFound
	// Forbidden means the ticket exists but the caller does not own it.
	Forbidden
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case InvalidArgument:
		return "invalid_argument"
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// HTTPStatus maps the kind to its HTTP status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case Unauthenticated:
		return http.StatusUnauthorized
	case InvalidArgument:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Forbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is the structured failure returned by service operations.  Message
// is safe to show to clients; Err, when set, is the underlying cause and is
// only exposed outside production.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func internalError(err error) *Error {
	return &Error{Kind: Internal, Message: "Internal server error", Err: err}
}

// KindOf returns the kind of err.  Errors that are not *Error are Internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return Internal
}
