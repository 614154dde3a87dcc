package service

import (
	"errors"
	"fmt"
)

// Code is a stable, caller-visible error code for business-rule
// failures.
type Code string

const (
	CodeAccessDenied      Code = "ACCESS_DENIED"
	CodeNotFound          Code = "NOT_FOUND"
	CodeValidationFailed  Code = "VALIDATION_FAILED"
	CodeInvalidState      Code = "INVALID_STATE"
	CodeLimitExceeded     Code = "LIMIT_EXCEEDED"
	CodeConflictRetryable Code = "CONFLICT_RETRYABLE"
	CodeStoreUnavailable  Code = "STORE_UNAVAILABLE"
)

// Error is a business-rule failure carrying a stable code and a
// message safe to show to callers.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the stable code from an error. Anything that is not
// a service error surfaces as a store failure with a generic message.
func CodeOf(err error) Code {
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return serviceErr.Code
	}
	return CodeStoreUnavailable
}
