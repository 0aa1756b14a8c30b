package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the closed set of error classes a handler may raise
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "BadRequest"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	default:
		return "Internal"
	}
}

// Returns the HTTP status for the kind
func (k Kind) Status() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Returns the message used when none is supplied
func (k Kind) DefaultMessage() string {
	switch k {
	case KindBadRequest:
		return "Invalid request"
	case KindUnauthorized:
		return "Authentication required"
	case KindForbidden:
		return "Insufficient permissions"
	case KindNotFound:
		return "Resource not found"
	case KindConflict:
		return "Resource conflict"
	default:
		return "Internal server error"
	}
}

// Error is an operational error. Message and Code are safe to show to clients,
// Err is internal detail and only reaches the log.
type Error struct {
	Kind    Kind
	Message string
	Code    string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithCode returns a copy carrying a machine readable code
func (e *Error) WithCode(code string) *Error {
	cp := *e
	cp.Code = code
	return &cp
}

// Wrap attaches an internal cause without changing what clients see
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

func newError(kind Kind, message string) *Error {
	if message == "" {
		message = kind.DefaultMessage()
	}
	return &Error{Kind: kind, Message: message}
}

func BadRequest(message string) *Error   { return newError(KindBadRequest, message) }
func Unauthorized(message string) *Error { return newError(KindUnauthorized, message) }
func Forbidden(message string) *Error    { return newError(KindForbidden, message) }
func NotFound(message string) *Error     { return newError(KindNotFound, message) }
func Conflict(message string) *Error     { return newError(KindConflict, message) }
func Internal(message string) *Error     { return newError(KindInternal, message) }

// As extracts a taxonomy error from the chain
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) && appErr != nil {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err is a taxonomy error of the given kind
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
