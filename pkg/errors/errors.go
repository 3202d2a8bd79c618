// Package errors provides structured error types for diagshot.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI commands
//   - Machine-readable error codes for exit status mapping
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes fall into the classes the CLI reports on:
//   - configuration: MISSING_FLAG, UNSUPPORTED, INVALID_*
//   - content: EMPTY_INPUT, BUNDLE_NOT_FOUND, INVALID_SIZE, MISSING_SVG
//   - internal: BROWSER_LAUNCH, ENDPOINT_WRITE, INTERNAL_ERROR
//
// A missing or stale shared browser is never an error: it is recovered by
// launching a private browser and has no code.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnsupported, "unsupported format %q", format)
//	if errors.Is(err, errors.ErrCodeUnsupported) {
//	    // exit with the configuration status
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeBrowserLaunch, origErr, "start %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Configuration errors
	ErrCodeMissingFlag       Code = "MISSING_FLAG"
	ErrCodeUnsupported       Code = "UNSUPPORTED"
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidBackground Code = "INVALID_BACKGROUND"
	ErrCodeInvalidPath       Code = "INVALID_PATH"
	ErrCodeInvalidEndpoint   Code = "INVALID_ENDPOINT"

	// Content errors
	ErrCodeEmptyInput     Code = "EMPTY_INPUT"
	ErrCodeBundleNotFound Code = "BUNDLE_NOT_FOUND"
	ErrCodeInvalidSize    Code = "INVALID_SIZE"
	ErrCodeMissingSVG     Code = "MISSING_SVG"
	ErrCodeFileNotFound   Code = "FILE_NOT_FOUND"

	// Browser and endpoint errors
	ErrCodeBrowserLaunch Code = "BROWSER_LAUNCH"
	ErrCodeEndpointWrite Code = "ENDPOINT_WRITE"
	ErrCodeRender        Code = "RENDER_FAILED"

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

// Is reports whether err has the given error code.
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
// For *Error types, returns the message (and the cause, if any) without the
// code prefix. For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// IsConfiguration reports whether err is a configuration error: a missing
// flag, an unsupported option value or an invalid argument.
func IsConfiguration(err error) bool {
	switch GetCode(err) {
	case ErrCodeMissingFlag, ErrCodeUnsupported, ErrCodeInvalidInput,
		ErrCodeInvalidBackground, ErrCodeInvalidPath, ErrCodeInvalidEndpoint:
		return true
	}
	return false
}
