package property

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine readable code reported to API consumers.
type ErrorCode string

const (
	CodeInvalidPin         ErrorCode = "INVALID_PIN"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeParseError         ErrorCode = "PARSE_ERROR"
	CodeFetchError         ErrorCode = "FETCH_ERROR"
	CodeBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
)

// Error is a failure attributed to a source (or to no source for validation
// and storage failures).
type Error struct {
	Code   ErrorCode
	Source SourceKind
	Err    error
}

// NewError wraps err with a code, err may be nil.
func NewError(code ErrorCode, source SourceKind, err error) *Error {
	return &Error{Code: code, Source: source, Err: err}
}

// Errorf is NewError with a formatted message.
func Errorf(code ErrorCode, source SourceKind, format string, args ...any) *Error {
	return &Error{Code: code, Source: source, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	prefix := string(e.Code)
	if e.Source != "" {
		prefix = fmt.Sprintf("%s %s", e.Source, e.Code)
	}
	if e.Err == nil {
		return prefix
	}
	return fmt.Sprintf("%s: %s", prefix, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the error text without the code prefix, used in envelopes.
func (e *Error) Message() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return e.Err.Error()
}

// CodeOf returns the code carried by err, anything that isn't a *Error is
// considered a FETCH_ERROR.
func CodeOf(err error) ErrorCode {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Code
	}
	return CodeFetchError
}

// MessageOf returns the user facing message of err.
func MessageOf(err error) string {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Message()
	}
	return err.Error()
}

// HTTPStatus maps an error code to the status returned at the API boundary.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case CodeInvalidPin:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeParseError, CodeFetchError:
		return http.StatusBadGateway
	case CodeBackendUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
