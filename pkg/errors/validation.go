package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateTaxonName validates a taxon or clade label for safety and
// correctness before it is written back into tree files or DOT output.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No null bytes
//   - No Newick structural characters outside quoting (handled by writers)
//   - Maximum length of 256 characters
func ValidateTaxonName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "taxon name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "taxon name too long (max 256 characters)")
	}

	for _, r := range name {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "taxon name contains invalid control characters")
		}
	}

	return nil
}

// annotationKeyRegex matches BEAST-style annotation keys: an identifier
// optionally prefixed with '!' for display attributes.
var annotationKeyRegex = regexp.MustCompile(`^!?[A-Za-z_][A-Za-z0-9_.%-]*$`)

// ValidateAnnotationKey validates an annotation key.
func ValidateAnnotationKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidAnnotation, "annotation key cannot be empty")
	}

	if !annotationKeyRegex.MatchString(key) {
		return New(ErrCodeInvalidAnnotation, "invalid annotation key: %q", key)
	}

	return nil
}

// hexColourRegex matches #RGB and #RRGGBB hex colours.
var hexColourRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// namedColourRegex matches simple colour names (passed through to SVG).
var namedColourRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]*$`)

// ValidateColour validates a paint colour: a hex value or an SVG colour name.
func ValidateColour(colour string) error {
	if colour == "" {
		return New(ErrCodeInvalidColour, "colour cannot be empty")
	}

	if !hexColourRegex.MatchString(colour) && !namedColourRegex.MatchString(colour) {
		return New(ErrCodeInvalidColour, "invalid colour: %q (use #rrggbb or an SVG colour name)", colour)
	}

	return nil
}

// ValidatePath validates a file path for safety when served over the API.
// It prevents path traversal attacks and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	// Check for null bytes and control characters
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	// Must not be absolute path
	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	// Check for path traversal
	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	// No backslashes (potential Windows path injection)
	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
