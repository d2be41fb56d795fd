// Package errors provides structured error types for iceflow.
//
// Every failure class the tool can hit has a machine-readable code, so
// the CLI can map errors to distinct exit statuses and scripts can
// branch on the failure class.
//
// # Error Codes
//
// Codes group into four families:
//   - CONFIG_* / INVALID_*: configuration and input validation failures
//   - UNAUTHORIZED / NOT_FOUND / AMBIGUOUS_NAME: upstream API lookups
//   - SCHEMA_MISMATCH / DANGLING_REFERENCE: response shape and data errors
//   - NETWORK_ERROR / RENDER_ERROR: transport and external renderer failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeNotFound, "no flow named %q", name)
//	if errors.Is(err, errors.ErrCodeNotFound) {
//	    // Handle missing flow
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different failure classes.
const (
	// Configuration and input validation errors
	ErrCodeConfig       Code = "CONFIG_ERROR"
	ErrCodeInvalidInput Code = "INVALID_INPUT"

	// Upstream API lookup errors
	ErrCodeUnauthorized  Code = "UNAUTHORIZED"
	ErrCodeNotFound      Code = "NOT_FOUND"
	ErrCodeAmbiguousName Code = "AMBIGUOUS_NAME"

	// Response shape and data errors
	ErrCodeSchemaMismatch    Code = "SCHEMA_MISMATCH"
	ErrCodeDanglingReference Code = "DANGLING_REFERENCE"

	// Transport and external tool errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeRender  Code = "RENDER_ERROR"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err carries the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Exit codes per failure class, so shell scripts can branch on why a
// run failed rather than parsing stderr.
const (
	ExitOK        = 0
	ExitUnknown   = 1
	ExitConfig    = 2
	ExitAuth      = 3
	ExitNotFound  = 4
	ExitAmbiguous = 5
	ExitSchema    = 6
	ExitDangling  = 7
	ExitNetwork   = 8
	ExitRender    = 9
)

// ExitCode maps an error to its process exit status.
// A nil error maps to ExitOK; errors without a recognized code map to
// ExitUnknown.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch GetCode(err) {
	case ErrCodeConfig, ErrCodeInvalidInput:
		return ExitConfig
	case ErrCodeUnauthorized:
		return ExitAuth
	case ErrCodeNotFound:
		return ExitNotFound
	case ErrCodeAmbiguousName:
		return ExitAmbiguous
	case ErrCodeSchemaMismatch:
		return ExitSchema
	case ErrCodeDanglingReference:
		return ExitDangling
	case ErrCodeNetwork:
		return ExitNetwork
	case ErrCodeRender:
		return ExitRender
	default:
		return ExitUnknown
	}
}
