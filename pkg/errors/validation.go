package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// projectNameRegex matches project names usable as storage keys and file names.
var projectNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateProjectName validates a project name for safety and correctness.
// Project names double as file names for the file store, so the rules reject
// anything that could escape the storage directory:
//   - No empty names
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
func ValidateProjectName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "project name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidName, "project name too long (max 128 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "project name contains invalid control characters")
		}
	}

	if strings.Contains(name, "..") {
		return New(ErrCodeInvalidName, "project name cannot contain %q", "..")
	}

	if !projectNameRegex.MatchString(name) {
		return New(ErrCodeInvalidName, "invalid project name: %q", name)
	}

	return nil
}

// ValidateImageSource validates an image layer source reference.
// Accepted sources are http(s) URLs, data URLs carrying an image MIME type,
// and relative paths without traversal. An empty source is valid: it marks an
// image placeholder that has not been pointed at anything yet.
func ValidateImageSource(src string) error {
	if src == "" {
		return nil
	}

	for _, r := range src {
		if r == '\x00' || r == '\n' || r == '\r' {
			return New(ErrCodeInvalidSource, "image source contains invalid characters")
		}
	}

	switch {
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return nil
	case strings.HasPrefix(src, "data:"):
		if !strings.HasPrefix(src, "data:image/") {
			return New(ErrCodeInvalidSource, "data URL must carry an image MIME type")
		}
		return nil
	case strings.Contains(src, ":"):
		return New(ErrCodeInvalidSource, "image source must use http, https or data scheme")
	case strings.Contains(src, ".."):
		return New(ErrCodeInvalidSource, "image path cannot contain path traversal sequences (..)")
	}
	return nil
}
