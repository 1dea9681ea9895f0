// Package errors defines the sentinel errors shared across the text query
// service and maps them onto HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrStoreMismatch       = errors.New("line store mismatch")
	ErrInvalidQuery        = errors.New("invalid query")
	ErrQueryTooLong        = errors.New("query too long")
	ErrQueryTooDeep        = errors.New("query nested too deeply")
	ErrLineOutOfRange      = errors.New("line index out of range")
	ErrDocumentUnavailable = errors.New("document unavailable")
	ErrInternal            = errors.New("internal error")
	ErrTimeout             = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode picks the status for err. An AppError carries its own code;
// sentinels are matched through any wrapping.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidQuery), errors.Is(err, ErrQueryTooLong), errors.Is(err, ErrQueryTooDeep):
		return http.StatusBadRequest
	case errors.Is(err, ErrDocumentUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		// ErrStoreMismatch and ErrLineOutOfRange are programming errors.
		return http.StatusInternalServerError
	}
}
