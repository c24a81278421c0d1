package article

import (
	"strings"
	"unicode"
)

const fallbackSlug = "article"

// Slugify derives a filesystem-safe identifier from a title. Whitespace runs
// become a single "-", then everything except letters, digits, "_" and "-"
// is dropped. Case is preserved.
func Slugify(title string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range strings.TrimSpace(title) {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
			}
			inSpace = true
			continue
		}
		inSpace = false
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return fallbackSlug
	}
	return b.String()
}

// Excerpt returns the first n runes of body. No word boundary handling.
func Excerpt(body string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range body {
		if i == n {
			return body[:pos]
		}
		i++
	}
	return body
}
