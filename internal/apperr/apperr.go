// Package apperr defines the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error independently of the transport.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindLoginRequired
	KindSessionExpired
	KindForbidden
	KindUnauthorized
	KindNotFound
	KindConflict
)

// Numeric codes returned to clients in the failure envelope.
const (
	CodeLoginRequired   = -1
	CodeEmailExists     = 0
	CodeBadRequest      = 1
	CodePasswordLength  = 2
	CodeInvalidLogin    = 3
	CodeNotAuthorized   = 4
	CodeSessionExpired  = 5
	CodeUnexpected      = 6
	CodePostIDRequired  = 7
	CodeInvalidPost     = 8
	CodeMissingInfo     = 9
	CodePostDesign      = 10
	CodeNotFound        = 11
	CodeGeneric         = 12
	CodeUnknownInterval = 13
)

const genericMessage = "Something went wrong check your data and try again"

// Error is an error carrying a kind, a client-facing code and message, and an optional cause.
// The cause is for logs only and is never written to a response.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
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

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindLoginRequired:
		return http.StatusUnauthorized
	case KindUnauthorized:
		if e.Code == CodeInvalidLogin {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case KindSessionExpired, KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Validation reports a malformed or rejected request body.
func Validation(code int, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

// LoginRequired reports a request without a session token.
func LoginRequired() *Error {
	return &Error{Kind: KindLoginRequired, Code: CodeLoginRequired, Message: "Login is required"}
}

// SessionExpired reports a token past its expiry.
func SessionExpired() *Error {
	return &Error{Kind: KindSessionExpired, Code: CodeSessionExpired, Message: "Session expired. Please login again"}
}

// Forbidden reports a token that is malformed, revoked or could not be checked.
func Forbidden(cause error) *Error {
	return &Error{Kind: KindForbidden, Code: CodeNotAuthorized, Message: "Not authorized", Err: cause}
}

// Unauthorized reports a caller that does not own the targeted resource.
func Unauthorized() *Error {
	return &Error{Kind: KindUnauthorized, Code: CodeNotAuthorized, Message: "Not authorized"}
}

// InvalidLogin reports an unknown email or a wrong password.
func InvalidLogin() *Error {
	return &Error{Kind: KindUnauthorized, Code: CodeInvalidLogin, Message: "Invalid login information"}
}

// NotFound reports a missing or deleted resource.
func NotFound(code int, msg string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: msg}
}

// Conflict reports a write that collides with existing data.
func Conflict(code int, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

// Internal wraps a store or index failure. Clients only ever see the generic message.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Code: CodeGeneric, Message: genericMessage, Err: cause}
}

// As returns err as an *Error, converting anything else into an Internal error.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
