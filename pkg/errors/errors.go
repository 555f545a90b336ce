package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error identifier. Transport layers map
// codes to HTTP statuses; domain logic matches on them with Is/As.
type Code string

const (
	CodeValidation           Code = "validation_failed"
	CodeDuplicateActiveCycle Code = "duplicate_active_cycle"
	CodeInvalidTransition    Code = "invalid_transition"
	CodeNotFound             Code = "not_found"
	CodeNoChecksConfigured   Code = "no_checks_configured"
	CodeUnauthorized         Code = "unauthorized"
	CodeInternal             Code = "internal"
)

// Error carries a code alongside the message so callers never have to parse
// error strings.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two coded errors by code alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New builds a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and context to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the status the JSON envelope is written with.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeDuplicateActiveCycle, CodeInvalidTransition:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNoChecksConfigured:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
