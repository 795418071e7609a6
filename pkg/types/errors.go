package types

import (
	"errors"
	"net/http"
)

// Kind classifies a caller-visible failure. Each kind maps to exactly
// one transport status; the mapping is identical for REST and chat.
type Kind int

const (
	KindValidation Kind = iota
	KindAuth
	KindPermission
	KindNotFound
	KindConflict
	KindRateLimited
	KindRenderFailure
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindPermission:
		return "permission_denied"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindRenderFailure:
		return "render_failure"
	default:
		return "internal"
	}
}

// HTTPStatus returns the REST status code for the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindPermission:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a tagged failure carrying a short human-readable reason. No
// internal diagnostics cross a transport boundary; the reason string is
// all a caller sees.
type Error struct {
	Kind   Kind
	Reason string
	cause  error
}

func (e *Error) Error() string {
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError creates a tagged error with the given kind and reason.
func NewError(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// WrapError tags an underlying error with a kind and caller-visible
// reason. The cause stays available for logs via Unwrap.
func WrapError(kind Kind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, cause: cause}
}

// AsError extracts a *Error from err, or nil if err is untagged.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// KindOf returns the taxonomy kind for err. Untagged errors are
// internal by definition.
func KindOf(err error) Kind {
	if e := AsError(err); e != nil {
		return e.Kind
	}
	return KindInternal
}
