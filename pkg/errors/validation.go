package errors

import (
	"strings"
	"unicode"
)

// FormatPNG is the only output format of the raster path.
const FormatPNG = "png"

// ValidateFormat accepts only "png". The check is case-sensitive, matching
// the flag values rsvg-convert callers pass.
func ValidateFormat(format string) error {
	if format != FormatPNG {
		return New(ErrCodeUnsupported, "unsupported output format %q (only png is supported)", format)
	}
	return nil
}

// ValidateBackground validates a background value before it is placed in a
// page style sheet. Accepted values are "transparent", colour keywords,
// hex colours and functional notations such as rgb(0, 0, 0).
//
// Rejected:
//   - empty values
//   - control characters
//   - style sheet or markup delimiters (; { } < > " ' \)
func ValidateBackground(bg string) error {
	if strings.TrimSpace(bg) == "" {
		return New(ErrCodeInvalidBackground, "background cannot be empty")
	}

	const maxLength = 64
	if len(bg) > maxLength {
		return New(ErrCodeInvalidBackground, "background too long (max %d characters)", maxLength)
	}

	for _, r := range bg {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidBackground, "background contains control characters")
		}
	}

	if strings.ContainsAny(bg, ";{}<>\"'\\") {
		return New(ErrCodeInvalidBackground, "background contains invalid characters: %q", bg)
	}

	return nil
}

// ValidatePath validates a file path given on the command line.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateEndpoint validates a browser DevTools address read from an
// endpoint record. Only websocket addresses are accepted.
func ValidateEndpoint(addr string) error {
	if addr == "" {
		return New(ErrCodeInvalidEndpoint, "endpoint cannot be empty")
	}

	if !strings.HasPrefix(addr, "ws://") && !strings.HasPrefix(addr, "wss://") {
		return New(ErrCodeInvalidEndpoint, "endpoint must use ws or wss scheme: %q", addr)
	}

	if strings.ContainsFunc(addr, unicode.IsSpace) {
		return New(ErrCodeInvalidEndpoint, "endpoint contains whitespace")
	}

	return nil
}
