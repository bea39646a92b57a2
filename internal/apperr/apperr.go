// Package apperr defines the error taxonomy surfaced to API callers.
// Expected domain conditions (not found, conflict, bad input) are returned
// as values of this package; only programmer errors panic.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into a stable status class.
type Kind int

const (
	// KindInternal covers store or dispatch malfunction and malformed
	// record shapes. It is the zero value so an unclassified error maps
	// to a 500 rather than leaking as a success.
	KindInternal Kind = iota
	// KindBadRequest covers structurally incomplete requests (missing
	// token, sub_id or nonce).
	KindBadRequest
	// KindInvalidInput covers well-formed requests carrying an invalid
	// subscription payload.
	KindInvalidInput
	// KindUnauthorized covers a missing or empty token credential.
	KindUnauthorized
	// KindNotFound covers a genuine miss, and deliberately also a
	// token mismatch on an existing record.
	KindNotFound
	// KindConflict covers token collisions and double notification.
	KindConflict
)

// HTTPStatus maps a kind to the status code returned to the caller.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindInvalidInput:
		return http.StatusUnprocessableEntity
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified error with a caller-safe message.
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

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a classified error with the given caller-safe message.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies an underlying error. The wrapped error is for logs; only
// Message is shown to external callers.
func Wrap(kind Kind, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-safe message for err. Unclassified errors get
// a generic message so internal detail never leaks to the external caller.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
