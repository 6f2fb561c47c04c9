package sanitize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultSlugMaxLength is the maximum slug length in runes.
	DefaultSlugMaxLength = 50

	// FallbackSlug is used when a title has no allowed characters.
	FallbackSlug = "untitled"
)

// Slug turns an untrusted title into a filesystem-safe name component.
//
// Rules applied:
//   - Normalizes to Unicode NFC and converts to lowercase
//   - Keeps only letters, digits, underscores, hyphens and whitespace (allow-list)
//   - Collapses runs of whitespace and hyphens into a single hyphen
//   - Trims leading/trailing hyphens
//   - Truncates to maxLen runes (DefaultSlugMaxLength if maxLen < 1)
//   - Returns FallbackSlug if the result would be empty
//
// Examples:
//
//	"Test Chat"           -> "test-chat"
//	"../../etc/passwd"    -> "etcpasswd"
//	"Hello,   World -- 2" -> "hello-world-2"
func Slug(title string, maxLen int) string {
	if maxLen < 1 {
		maxLen = DefaultSlugMaxLength
	}

	title = strings.ToLower(norm.NFC.String(title))

	var b strings.Builder
	b.Grow(len(title))
	pendingSep := false
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingSep = true
		}
	}

	slug := b.String()
	if slug == "" {
		return FallbackSlug
	}

	if runes := []rune(slug); len(runes) > maxLen {
		slug = strings.TrimRight(string(runes[:maxLen]), "-")
	}

	return slug
}
