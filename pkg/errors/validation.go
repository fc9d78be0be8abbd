package errors

import (
	"strings"
	"unicode"
)

// ValidateSourceName validates a calibration source name (e.g. "iwfs").
// Source names key the voxel-size table in the configuration and appear in
// cache keys and stored run documents, so they are kept deliberately plain.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - Lowercase letters, digits, '-' and '_' only
//   - Maximum length of 64 characters
func ValidateSourceName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "source name cannot be empty")
	}

	if len(name) > 64 {
		return New(ErrCodeInvalidInput, "source name too long (max 64 characters)")
	}

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return New(ErrCodeInvalidInput, "source name contains invalid character %q", r)
		}
	}

	return nil
}

// ValidateReportName validates a report name used as an HTTP path segment
// and as a file basename. It rejects names that could be used for path
// traversal.
func ValidateReportName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "report name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "report name too long (max 256 characters)")
	}

	// Check for control characters and null bytes
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "report name contains invalid control characters")
		}
	}

	// Check for path traversal patterns
	dangerousPatterns := []string{
		"..",   // Parent directory
		"/",    // Path separator
		"\\",   // Backslash (Windows path)
		"\x00", // Null byte
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidInput, "report name contains invalid characters: %q", pattern)
		}
	}

	return nil
}
