// Package sanitize normalizes and validates raw contact-form fields.
// Everything here is a pure function of its input.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxFieldLen = 1000

var (
	tagPattern     = regexp.MustCompile(`<[^>]*>`)
	charPattern    = regexp.MustCompile("[<>\"'`;(){}]")
	schemePattern  = regexp.MustCompile(`(?i)(javascript|data):`)
	handlerPattern = regexp.MustCompile(`(?i)on\w+=`)
	emailPattern   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// Clean trims, truncates and strips injection-enabling patterns from a raw
// field. Stripping runs to a fixed point so that nested payloads such as
// "javajavascript:script:" cannot survive a single pass; this also makes
// Clean idempotent.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxFieldLen {
		runes := []rune(s)
		s = string(runes[:maxFieldLen])
	}

	for {
		next := tagPattern.ReplaceAllString(s, "")
		next = charPattern.ReplaceAllString(next, "")
		next = schemePattern.ReplaceAllString(next, "")
		next = handlerPattern.ReplaceAllString(next, "")
		if next == s {
			return s
		}
		s = next
	}
}

// ValidationError carries a user-facing rejection reason.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

var (
	ErrNameRequired    = &ValidationError{"Name is required"}
	ErrEmailRequired   = &ValidationError{"Valid email is required"}
	ErrMessageRequired = &ValidationError{"Message is required"}
	ErrNameLength      = &ValidationError{"Name must be between 2 and 100 characters"}
	ErrMessageLength   = &ValidationError{"Message must be between 10 and 1000 characters"}
	ErrEmailInvalid    = &ValidationError{"Valid email is required"}
)

// ValidEmail reports whether s has a local@domain.tld shape and fits the
// 254-character limit.
func ValidEmail(s string) bool {
	return len(s) <= 254 && emailPattern.MatchString(s)
}

// ValidateContact checks already-cleaned fields. First failure wins.
func ValidateContact(name, email, message string) error {
	if name == "" {
		return ErrNameRequired
	}
	if email == "" {
		return ErrEmailRequired
	}
	if message == "" {
		return ErrMessageRequired
	}
	if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
		return ErrNameLength
	}
	if n := utf8.RuneCountInString(message); n < 10 || n > 1000 {
		return ErrMessageLength
	}
	if !ValidEmail(email) {
		return ErrEmailInvalid
	}
	return nil
}
