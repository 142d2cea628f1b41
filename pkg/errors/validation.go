package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// ValidateDirectory validates a directory argument for safety before it is
// handed to the resolution pipeline.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidateDirectory(dir string) error {
	if dir == "" {
		return New(ErrCodeInvalidPath, "directory cannot be empty")
	}

	const maxPathLength = 4096
	if len(dir) > maxPathLength {
		return New(ErrCodeInvalidPath, "directory too long (max %d characters)", maxPathLength)
	}

	for _, r := range dir {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "directory contains invalid characters")
		}
	}
	return nil
}

// ValidatePath validates a path relative to a served root.
// It prevents path traversal so that remote callers cannot escape the root.
//
// Validation rules:
//   - All rules of [ValidateDirectory]
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if err := ValidateDirectory(path); err != nil {
		return err
	}

	if strings.HasPrefix(path, "/") || filepath.IsAbs(path) {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
		}
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateIgnorePattern validates a discovery ignore substring.
func ValidateIgnorePattern(s string) error {
	if strings.TrimSpace(s) == "" {
		return New(ErrCodeInvalidInput, "ignore pattern cannot be blank")
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "ignore pattern contains invalid control characters")
		}
	}
	return nil
}
