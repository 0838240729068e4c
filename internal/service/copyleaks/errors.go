package copyleaks

import (
	"fmt"
)

const (
	CodeLoginRejected = "login-rejected"
	CodeUnauthorized  = "unauthorized"
	CodeTransport     = "transport"
	CodeDecode        = "decode"
	CodeUnknown       = "unknown"
)

// Error is returned by every Client method that failed to get a usable answer
type Error struct {
	Code       string
	StatusCode int // zero when no response was received
	Err        error
}

func NewError(code string, statusCode int, err error) *Error {
	return &Error{Code: code, StatusCode: statusCode, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("code: %s, status_code: %d, error: %v", e.Code, e.StatusCode, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
