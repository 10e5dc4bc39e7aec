package usecase

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrorNotFound         ErrorCode = "NOT_FOUND"
	ErrorMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	ErrorInternal         ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// NewError builds an Error for callers outside the package, such as the
// router rejecting an unknown route.
func NewError(code ErrorCode, reason string) *Error {
	return newError(code, reason, nil)
}

// CodeOf returns the code carried by err, or ErrorInternal for untyped errors.
func CodeOf(err error) (ErrorCode, string) {
	var ucErr *Error
	if errors.As(err, &ucErr) && ucErr != nil {
		return ucErr.Code, ucErr.Reason
	}
	return ErrorInternal, "unexpected_error"
}
