package textutil

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SafeSegment validates and sanitizes a value for use as a single path
// segment under the workspace root. Path separators are rejected outright;
// any other unsafe runes collapse to underscores.
func SafeSegment(value string) (string, error) {
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("path segment %q must not contain path separators", value)
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	cleaned := strings.Trim(b.String(), "._-")
	if cleaned == "" {
		return "", errors.New("path segment must not be empty after sanitization")
	}
	return cleaned, nil
}

// Slugify converts arbitrary text into a lowercase URL slug. Unicode input is
// decomposed so accented letters reduce to their ASCII base before anything
// unrepresentable is dropped.
func Slugify(value string) string {
	decomposed := norm.NFKD.String(value)
	var b strings.Builder
	lastDash := true
	for _, r := range decomposed {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
			lastDash = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		default:
			// combining marks and symbols are dropped
		}
	}
	return strings.Trim(b.String(), "-")
}

// EnsureTrailingNewline appends a newline unless the text already ends with
// one. Selected-text comparison happens after this normalization.
func EnsureTrailingNewline(text string) string {
	if strings.HasSuffix(text, "\n") {
		return text
	}
	return text + "\n"
}
