package input

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultMaxLength bounds the output of [SanitizeInput]. Field-specific
// validators apply tighter limits of their own.
const DefaultMaxLength = 1000

// ForbiddenChars is the character set rejected at the trust boundary.
// Every character in it is either markup, a string/statement terminator,
// or a query/template operator in some downstream interpreter.
const ForbiddenChars = "<>\"'`;={}[]$\\"

// stripMarkup removes every tag and attribute; zero markup survives.
// bluemonday policies are immutable and safe for concurrent use.
var stripMarkup = bluemonday.StrictPolicy()

// SanitizeInput strips all markup, removes the forbidden character set,
// truncates to [DefaultMaxLength], and trims surrounding whitespace.
//
// The function is idempotent: SanitizeInput(SanitizeInput(s)) == SanitizeInput(s)
// for every s. One strip round decodes exactly one level of entity
// encoding, so double-encoded payloads such as "&amp;lt;script&amp;gt;"
// surface one level shallower each round; the strip steps therefore run to
// a fixed point before the final truncate and trim.
func SanitizeInput(s string) string {
	return sanitize(s, DefaultMaxLength)
}

func sanitize(s string, maxLen int) string {
	// Every non-final round strictly shortens the string (entity decoding
	// and tag removal both shrink, escaping is undone by the decode), so
	// the loop terminates.
	for {
		next := stripForbidden(html.UnescapeString(stripMarkup.Sanitize(s)))
		if next == s {
			break
		}
		s = next
	}
	s = truncate(s, maxLen)
	return strings.TrimSpace(s)
}

// HasForbiddenChars reports whether s contains any character of
// [ForbiddenChars]. Identifiers that must round-trip exactly (usernames,
// coupon codes) are rejected outright on a hit rather than silently
// mutated by [SanitizeInput].
func HasForbiddenChars(s string) bool {
	return strings.ContainsAny(s, ForbiddenChars)
}

func stripForbidden(s string) string {
	if !strings.ContainsAny(s, ForbiddenChars) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < utf8.RuneSelf && strings.ContainsRune(ForbiddenChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// truncate cuts s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
