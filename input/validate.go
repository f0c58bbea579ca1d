package input

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Field limits. Email length tracks the RFC 5321 path limit; the rest are
// storefront policy.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxEmailLength    = 255
	MinUsernameLength = 3
	MaxUsernameLength = 32
	MaxCommentLength  = 1000
)

// minPasswordClasses is the number of character classes (lowercase,
// uppercase, digit, symbol) a password must cover.
const minPasswordClasses = 3

var (
	// ErrEmptyInput is returned for required fields that are empty after trimming.
	ErrEmptyInput = errors.New("input is empty")
	// ErrTooShort is returned when a field is below its minimum length.
	ErrTooShort = errors.New("input too short")
	// ErrTooLong is returned when a field exceeds its maximum length.
	ErrTooLong = errors.New("input too long")
	// ErrForbiddenChars is returned when a field contains trust-boundary characters.
	ErrForbiddenChars = errors.New("input contains forbidden characters")
	// ErrMalformedEmail is returned when an address does not parse as local@domain.
	ErrMalformedEmail = errors.New("malformed email address")
	// ErrMalformedUsername is returned when a username contains runes outside its alphabet.
	ErrMalformedUsername = errors.New("malformed username")
	// ErrWeakPassword is returned when a password covers too few character classes.
	ErrWeakPassword = errors.New("password needs more character variety")
	// ErrInvalidEncoding is returned for byte sequences that are not valid UTF-8.
	ErrInvalidEncoding = errors.New("input is not valid utf-8")
)

// Result is the outcome of a field validator. Expected-bad input yields
// Valid == false with Err set; it is never surfaced as a Go error return.
// Sanitized carries the value the caller should use when Valid is true.
type Result struct {
	Valid     bool
	Sanitized string
	Err       error
}

func invalid(err error) Result {
	return Result{Err: err}
}

func valid(sanitized string) Result {
	return Result{Valid: true, Sanitized: sanitized}
}

// emailPattern is deliberately conservative: one local part, one domain with
// at least one dot, no whitespace. The forbidden-character check has already
// run before this is applied.
var emailPattern = regexp.MustCompile(`^[a-z0-9!#%&*+/?^_~.-]+@[a-z0-9-]+(\.[a-z0-9-]+)+$`)

// usernamePattern is the identifier alphabet: usernames round-trip exactly
// and are never silently rewritten.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidateEmail trims, lowercases, and validates an email address.
// The lowercased form is the canonical one returned in Sanitized; lookups
// must use it so that case variants cannot mint duplicate accounts.
func ValidateEmail(s string) Result {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return invalid(ErrEmptyInput)
	}
	if len(trimmed) > MaxEmailLength {
		return invalid(ErrTooLong)
	}
	if HasForbiddenChars(trimmed) {
		return invalid(ErrForbiddenChars)
	}
	normalized := strings.ToLower(trimmed)
	if !emailPattern.MatchString(normalized) {
		return invalid(ErrMalformedEmail)
	}
	return valid(normalized)
}

// ValidateUsername validates an exact-round-trip identifier. Unlike free
// text it is never sanitized: any disallowed rune rejects the whole value.
func ValidateUsername(s string) Result {
	if s == "" {
		return invalid(ErrEmptyInput)
	}
	if HasForbiddenChars(s) {
		return invalid(ErrForbiddenChars)
	}
	n := utf8.RuneCountInString(s)
	if n < MinUsernameLength {
		return invalid(ErrTooShort)
	}
	if n > MaxUsernameLength {
		return invalid(ErrTooLong)
	}
	if !usernamePattern.MatchString(s) {
		return invalid(ErrMalformedUsername)
	}
	return valid(s)
}

// ValidatePassword enforces the password policy: byte length within
// [MinPasswordLength, MaxPasswordLength], no forbidden characters, and at
// least minPasswordClasses of {lowercase, uppercase, digit, symbol}.
// Passwords are never sanitized; Sanitized echoes the input untouched so a
// stray transformation can never diverge from what gets hashed.
func ValidatePassword(s string) Result {
	if len(s) < MinPasswordLength {
		return invalid(ErrTooShort)
	}
	if len(s) > MaxPasswordLength {
		return invalid(ErrTooLong)
	}
	if HasForbiddenChars(s) {
		return invalid(ErrForbiddenChars)
	}
	if passwordClasses(s) < minPasswordClasses {
		return invalid(ErrWeakPassword)
	}
	return valid(s)
}

func passwordClasses(s string) int {
	var lower, upper, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	classes := 0
	for _, set := range []bool{lower, upper, digit, symbol} {
		if set {
			classes++
		}
	}
	return classes
}

// ValidateComment sanitizes free-form commentary. Oversized input is
// truncated rather than rejected; only an empty-after-sanitization comment
// is invalid.
func ValidateComment(s string) Result {
	if !utf8.ValidString(s) {
		return invalid(ErrInvalidEncoding)
	}
	sanitized := sanitize(s, MaxCommentLength)
	if sanitized == "" {
		return invalid(ErrEmptyInput)
	}
	return valid(sanitized)
}

// ValidateText is the generic validator for any untrusted text field
// without a policy of its own. Empty output is permitted.
func ValidateText(s string) Result {
	if !utf8.ValidString(s) {
		return invalid(ErrInvalidEncoding)
	}
	return valid(SanitizeInput(s))
}
