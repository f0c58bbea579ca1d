package input

import (
	"fmt"
	"net/url"
	"strings"
)

// Sink-specific escapers. Each function implements the encoding rules of
// exactly one rendering context. None of them validate or truncate; they
// are safe to apply to already-sanitized and to raw data alike.

// EscapeHTML encodes s for an HTML element body.
func EscapeHTML(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#x27;")
		case '/':
			b.WriteString("&#x2F;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// EscapeHTMLAttribute encodes s for an HTML attribute value. Attribute
// contexts break out of quoting far more easily than element bodies, so
// every non-alphanumeric character below U+0100 is entity-encoded.
func EscapeHTMLAttribute(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isAlphanumeric(r) || r > 0xFF {
			b.WriteRune(r)
			continue
		}
		fmt.Fprintf(&b, "&#x%02X;", r)
	}
	return b.String()
}

// EscapeJavaScript encodes s for a JavaScript string literal. Characters
// below U+0100 use \xHH, the rest \uHHHH, so no quote, backslash, line
// terminator, or closing-tag sequence survives unencoded.
func EscapeJavaScript(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isAlphanumeric(r) {
			b.WriteRune(r)
			continue
		}
		if r <= 0xFF {
			fmt.Fprintf(&b, `\x%02X`, r)
		} else {
			fmt.Fprintf(&b, `\u%04X`, r)
		}
	}
	return b.String()
}

// EscapeURL encodes s for inclusion as a single URL query component.
func EscapeURL(s string) string {
	return url.QueryEscape(s)
}

// EscapeCSS encodes s for a CSS value context using hex escapes. The
// trailing space terminates each escape so a following hex digit in the
// data cannot be absorbed into it.
func EscapeCSS(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isAlphanumeric(r) {
			b.WriteRune(r)
			continue
		}
		fmt.Fprintf(&b, `\%06X `, r)
	}
	return b.String()
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
