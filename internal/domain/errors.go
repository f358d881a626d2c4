package domain

import (
	"errors"
	"fmt"
)

// Kind is the stable machine-readable code attached to every classified error.
type Kind string

const (
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindForbidden       Kind = "FORBIDDEN"
	KindUserInput       Kind = "BAD_USER_INPUT"
	KindNotFound        Kind = "NOT_FOUND"
	KindValidation      Kind = "VALIDATION_FAILED"
	KindInternal        Kind = "INTERNAL"
)

// Error is a classified error carrying a stable code and a caller-safe
// message. The wrapped cause is for logs only and never reaches callers.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches two classified errors by kind, so sentinel-style comparisons
// like errors.Is(err, domain.Unauthenticated("")) work in tests.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Unauthenticated reports that the caller's identity could not be
// established. Sub-causes (missing header, bad signature, expiry) are
// deliberately not distinguished.
func Unauthenticated(msg string) *Error {
	if msg == "" {
		msg = "authentication required"
	}
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// Forbidden reports a known caller lacking permission, or a hard business
// invariant violation.
func Forbidden(msg string) *Error {
	if msg == "" {
		msg = "not authorized"
	}
	return &Error{Kind: KindForbidden, Message: msg}
}

// UserInput reports structurally invalid caller-supplied data.
func UserInput(msg string) *Error {
	return &Error{Kind: KindUserInput, Message: msg}
}

// NotFound reports a missing referenced entity.
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

// Validation reports a field-level constraint violation.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Internal wraps an infrastructure failure behind a generic message. The
// cause is retained for logging but never shown to the caller.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, cause: cause}
}

// KindOf extracts the classification of err, or KindInternal for
// unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
