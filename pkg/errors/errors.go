// Package errors provides structured error types for Novella.
//
// Every failure that crosses a package boundary carries a machine-readable
// [Code] so that the CLI, the HTTP API and the MCP tools can react to it
// consistently:
//   - NOT_FOUND: an operation referenced an unknown scene, layer or choice
//   - PARSE_ERROR: a persisted document is not structured data at all
//   - INVALID_*: input validation failures
//   - STORAGE_ERROR: a storage backend failed
//   - INTERNAL_ERROR: unexpected internal failures
//
// Missing or out-of-range document fields are not errors; they are silently
// replaced by their defaults when a project is loaded.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeNotFound, "scene %s", id)
//	if errors.Is(err, errors.ErrCodeNotFound) {
//	    // log and ignore
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeParse, origErr, "decode project")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidName   Code = "INVALID_NAME"
	ErrCodeInvalidSource Code = "INVALID_SOURCE"

	// Resource not found errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeProjectNotFound Code = "PROJECT_NOT_FOUND"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"

	// Document errors
	ErrCodeParse Code = "PARSE_ERROR"

	// Backend errors
	ErrCodeStorage Code = "STORAGE_ERROR"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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

// NotFound is shorthand for an ErrCodeNotFound error naming the missing entity.
func NotFound(kind, id string) *Error {
	return New(ErrCodeNotFound, "%s %q not found", kind, id)
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

// IsNotFound reports whether err carries ErrCodeNotFound.
func IsNotFound(err error) bool { return Is(err, ErrCodeNotFound) }

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
