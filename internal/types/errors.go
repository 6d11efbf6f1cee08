package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for Cadence framework errors.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
	CONFIG_NOT_FOUND         ErrorCode = "CONFIG_NOT_FOUND"
)

// Registry error codes
const (
	REGISTRY_LOAD_FAILED       ErrorCode = "REGISTRY_LOAD_FAILED"
	REGISTRY_PARSE_FAILED      ErrorCode = "REGISTRY_PARSE_FAILED"
	REGISTRY_VALIDATION_FAILED ErrorCode = "REGISTRY_VALIDATION_FAILED"
	PROFILE_NOT_FOUND          ErrorCode = "PROFILE_NOT_FOUND"
)

// Tool error codes
const (
	TOOL_NOT_FOUND        ErrorCode = "TOOL_NOT_FOUND"
	TOOL_ALREADY_EXISTS   ErrorCode = "TOOL_ALREADY_EXISTS"
	TOOL_INVALID_INPUT    ErrorCode = "TOOL_INVALID_INPUT"
	TOOL_EXECUTION_FAILED ErrorCode = "TOOL_EXECUTION_FAILED"
	TOOL_NOT_ALLOWED      ErrorCode = "TOOL_NOT_ALLOWED"
)

// LLM error codes
const (
	LLM_UNAVAILABLE      ErrorCode = "LLM_UNAVAILABLE"
	LLM_REQUEST_FAILED   ErrorCode = "LLM_REQUEST_FAILED"
	LLM_RESPONSE_INVALID ErrorCode = "LLM_RESPONSE_INVALID"
)

// CadenceError represents a structured error with error code, message, and optional cause.
// It supports error wrapping and retryability hints for error handling logic.
type CadenceError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *CadenceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
// This enables using errors.Is() and errors.As() with wrapped errors.
func (e *CadenceError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
// Returns true if target is a CadenceError with the same Code.
func (e *CadenceError) Is(target error) bool {
	var cadenceErr *CadenceError
	if errors.As(target, &cadenceErr) {
		return e.Code == cadenceErr.Code
	}
	return false
}

// NewError creates a new non-retryable CadenceError with the given code and message.
func NewError(code ErrorCode, message string) *CadenceError {
	return &CadenceError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     nil,
	}
}

// NewRetryableError creates a new retryable CadenceError with the given code and message.
// Use this for transient errors that may succeed on retry (e.g., network timeouts).
func NewRetryableError(code ErrorCode, message string) *CadenceError {
	return &CadenceError{
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     nil,
	}
}

// WrapError creates a new non-retryable CadenceError that wraps an existing error.
// The wrapped error is accessible via Unwrap() for error chain inspection.
func WrapError(code ErrorCode, message string, cause error) *CadenceError {
	return &CadenceError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     cause,
	}
}
