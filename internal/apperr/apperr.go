// Package apperr defines the application error taxonomy and its mapping
// to HTTP status codes.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	// KindInternal is an unexpected failure. Its details never reach the client.
	KindInternal Kind = iota
	// KindValidation is missing or malformed input.
	KindValidation
	// KindConflict is a uniqueness violation (duplicate email or username).
	KindConflict
	// KindAuthentication covers bad credentials and missing, invalid or expired tokens.
	KindAuthentication
	// KindNotFound is an unknown resource or user.
	KindNotFound
	// KindAuthorization is a valid identity acting on a resource it does not own.
	KindAuthorization
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not_found"
	case KindAuthorization:
		return "authorization"
	default:
		return "internal"
	}
}

// statusByKind is the only place where error kinds become HTTP statuses.
// Authorization failures answer 401 to match the existing client surface.
var statusByKind = map[Kind]int{
	KindInternal:       http.StatusInternalServerError,
	KindValidation:     http.StatusBadRequest,
	KindConflict:       http.StatusBadRequest,
	KindAuthentication: http.StatusUnauthorized,
	KindNotFound:       http.StatusNotFound,
	KindAuthorization:  http.StatusUnauthorized,
}

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Code    string // Machine-readable code, e.g. EMAIL_EXISTS
	Message string // Client-safe message
	Err     error  // Underlying cause, never sent to clients
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation returns a KindValidation error.
func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// Conflict returns a KindConflict error.
func Conflict(code, message string, cause error) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message, Err: cause}
}

// Authentication returns a KindAuthentication error.
func Authentication(code, message string) *Error {
	return &Error{Kind: KindAuthentication, Code: code, Message: message}
}

// NotFound returns a KindNotFound error.
func NotFound(code, message string, cause error) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message, Err: cause}
}

// Authorization returns a KindAuthorization error.
func Authorization(code, message string) *Error {
	return &Error{Kind: KindAuthorization, Code: code, Message: message}
}

// Internal wraps an unexpected failure.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: "Internal server error", Err: cause}
}

// From returns err as an *Error. Unclassified errors become KindInternal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// KindOf reports the kind of err. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	return From(err).Kind
}

// HTTPStatus maps err to its HTTP status code.
func HTTPStatus(err error) int {
	if status, ok := statusByKind[KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}
