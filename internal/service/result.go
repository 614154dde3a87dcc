package service

import "errors"

// Result is the uniform envelope the API layer consumes. Expected
// business-rule failures land in Error/ErrorCode instead of being
// raised; infra failures carry a generic message and never leak
// internals.
type Result[T any] struct {
	Success   bool   `json:"success"`
	Data      T      `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode Code   `json:"error_code,omitempty"`
}

// AsResult converts a (value, error) pair into the uniform envelope.
func AsResult[T any](data T, err error) Result[T] {
	if err == nil {
		return Result[T]{Success: true, Data: data}
	}

	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return Result[T]{Success: false, Error: serviceErr.Message, ErrorCode: serviceErr.Code}
	}

	return Result[T]{Success: false, Error: "the operation could not be completed", ErrorCode: CodeStoreUnavailable}
}
