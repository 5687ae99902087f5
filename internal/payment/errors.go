package payment

import (
	"errors"
	"net/http"
)

// Kind classifies why an invocation failed.
type Kind string

const (
	// KindUnauthenticated means no caller identity was present.
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	// KindInvalidArgument covers a bad amount as well as every processor failure.
	KindInvalidArgument Kind = "INVALID_ARGUMENT"
)

// HTTPStatus maps the kind onto the status code used by the HTTP transports.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is the failure half of an invocation result.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

func unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

func invalidArgument(message string, cause error) *Error {
	return &Error{Kind: KindInvalidArgument, Message: message, Err: cause}
}
