// Package common defines shared constants and errors used across the client
// and server layers of gophfeed. Callers should use errors.Is (and errors.As
// for *Error) to match these values.
package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Credential errors. Unknown email and wrong password share one value.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already in use")

	// Token lifecycle errors.
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")
	ErrRefreshTokenRequired = errors.New("refresh token required")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrRefreshTokenInvalid  = errors.New("invalid refresh token")
	ErrNoRefreshToken       = errors.New("no refresh token available")
)

// Kind classifies an Error for transport mapping.
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field string `json:"field,omitempty"`
	Msg   string `json:"msg"`
}

// Error is the tagged failure returned by services and decoded by clients.
// Message is safe to show to end users.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches the Kind sentinels so errors.Is(err, common.ErrorValidation)
// works for any validation failure regardless of its cause.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrorValidation:
		return e.Kind == KindValidation
	case ErrorUnauthorized:
		return e.Kind == KindAuth
	case ErrorNotFound:
		return e.Kind == KindNotFound
	case ErrorInternal:
		return e.Kind == KindInternal
	}
	return false
}

// Status maps the Kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, cause error, msg string) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: kind, Message: msg, cause: cause}
}

// Validation wraps cause as a validation failure. An empty msg reuses cause's text.
func Validation(cause error, msg string) *Error { return newError(KindValidation, cause, msg) }

// Auth wraps cause as an authentication failure.
func Auth(cause error, msg string) *Error { return newError(KindAuth, cause, msg) }

// NotFound wraps cause as a missing-resource failure.
func NotFound(cause error, msg string) *Error { return newError(KindNotFound, cause, msg) }

// Internal wraps cause as an internal failure. The message never exposes cause.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: ErrorInternal.Error(), cause: cause}
}

// InvalidFields builds a validation error carrying per-field messages.
func InvalidFields(fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: ErrorValidation.Error(), Fields: fields}
}

// KindFromStatus is the inverse of (*Error).Status, used by HTTP clients.
func KindFromStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusConflict:
		return KindValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusNotFound:
		return KindNotFound
	default:
		return KindInternal
	}
}

// AsError returns err as *Error, wrapping unknown errors as internal.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

type errorBody struct {
	Error  string       `json:"error"`
	Errors []FieldError `json:"errors"`
}

// FromResponse rebuilds an Error from a non-2xx response body of the REST
// API. Unknown bodies fall back to the status text.
func FromResponse(status int, body []byte) *Error {
	e := &Error{Kind: KindFromStatus(status)}

	var b errorBody
	if err := json.Unmarshal(body, &b); err == nil {
		e.Message = b.Error
		e.Fields = b.Errors
	}
	if e.Message == "" && len(e.Fields) > 0 {
		e.Message = e.Fields[0].Msg
	}
	if e.Message == "" {
		e.Message = strings.ToLower(http.StatusText(status))
	}
	return e
}
