// Package errors provides structured error types for cpanmeta.
//
// Every layer of the resolution pipeline reports failures through [Error]
// values carrying a machine-readable [Code]. The code decides how far a
// failure propagates:
//
//   - DISCOVERY_FAILED is the only code that aborts a directory resolution.
//   - TOOL_*, MANIFEST_PARSE, MALFORMED_DEPENDENCY_LINE and
//     NO_METADATA_PRODUCED are soft: they are logged and reported next to
//     the result, but the remaining sources of the directory still resolve.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "unknown format %q", f)
//	if errors.Is(err, errors.ErrCodeToolNotFound) {
//	    // tell the user which prerequisite is missing
//	}
//
//	// Wrap existing errors and attach the file they concern
//	err := errors.WrapPath(errors.ErrCodeManifestParse, cause, path, "invalid YAML")
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
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInvalidPath  Code = "INVALID_PATH"

	// Pipeline errors
	ErrCodeDiscovery     Code = "DISCOVERY_FAILED"
	ErrCodeToolTimeout   Code = "TOOL_TIMEOUT"
	ErrCodeToolNotFound  Code = "TOOL_NOT_FOUND"
	ErrCodeToolNonZero   Code = "TOOL_NONZERO_EXIT"
	ErrCodeManifestParse Code = "MANIFEST_PARSE"
	ErrCodeMalformedLine Code = "MALFORMED_DEPENDENCY_LINE"
	ErrCodeNoMetadata    Code = "NO_METADATA_PRODUCED"
	ErrCodeFileNotFound  Code = "FILE_NOT_FOUND"
	ErrCodeCacheFailure  Code = "CACHE_FAILURE"
	ErrCodeStoreFailure  Code = "STORE_FAILURE"
	ErrCodeRenderFailure Code = "RENDER_FAILURE"
	ErrCodeInternal      Code = "INTERNAL_ERROR"
	ErrCodeUnsupported   Code = "UNSUPPORTED"
)

// soft lists the codes that never abort the resolution of a directory.
var soft = map[Code]bool{
	ErrCodeToolTimeout:   true,
	ErrCodeToolNotFound:  true,
	ErrCodeToolNonZero:   true,
	ErrCodeManifestParse: true,
	ErrCodeMalformedLine: true,
	ErrCodeNoMetadata:    true,
}

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Path    string // File or directory the error concerns (optional)
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
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

// WrapPath is like [Wrap] but records the file or directory the error concerns.
func WrapPath(code Code, cause error, path, format string, args ...any) *Error {
	e := Wrap(code, cause, format, args...)
	e.Path = path
	return e
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

// GetPath extracts the path an error concerns, if available.
func GetPath(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Path
	}
	return ""
}

// IsSoft reports whether err carries a code that is logged and reported but
// never aborts the resolution of a whole directory.
func IsSoft(err error) bool {
	return soft[GetCode(err)]
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Path != "" {
			return e.Path + ": " + e.Message
		}
		return e.Message
	}
	return err.Error()
}
