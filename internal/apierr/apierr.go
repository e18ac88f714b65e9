// backend/internal/apierr/apierr.go
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation         = "validation_error"
	CodeAuthentication     = "authentication_error"
	CodeUnauthorized       = "unauthorized"
	CodeForbidden          = "forbidden"
	CodeNotFound           = "not_found"
	CodeConflict           = "conflict"
	CodeServiceUnavailable = "service_unavailable"
	CodeInternal           = "internal_error"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Validation(msg string) *Error {
	return New(http.StatusBadRequest, CodeValidation, errors.New(msg))
}

func Validationf(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, CodeValidation, fmt.Errorf(format, args...))
}

// Authentication is a bad-credentials failure. It is a 400, not a 401.
func Authentication(msg string) *Error {
	return New(http.StatusBadRequest, CodeAuthentication, errors.New(msg))
}

func Unauthorized(msg string) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, errors.New(msg))
}

func Forbidden(msg string) *Error {
	return New(http.StatusForbidden, CodeForbidden, errors.New(msg))
}

func NotFound(msg string) *Error {
	return New(http.StatusNotFound, CodeNotFound, errors.New(msg))
}

func Conflict(msg string) *Error {
	return New(http.StatusConflict, CodeConflict, errors.New(msg))
}

func ServiceUnavailable(msg string) *Error {
	return New(http.StatusInternalServerError, CodeServiceUnavailable, errors.New(msg))
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status != 0 {
		return apiErr.Status
	}
	return http.StatusInternalServerError
}
