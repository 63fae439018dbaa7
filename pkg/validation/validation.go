// Package validation provides the stateless field checks used by every form in the console.
// Each validator sanitizes its input first and returns a Result; none of them panic and none
// return an error value. Callers abort their workflow when Result.IsValid is false.
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Default maximum lengths for common fields.
const (
	MaxNameLength    = 100
	MaxEmailLength   = 254
	MaxPhoneLength   = 20
	MaxSubjectLength = 200
	MaxMessageLength = 5000
	MaxURLLength     = 2048
	MaxTagLength     = 50
	MinPasswordLen   = 8
	MaxPasswordLen   = 128
)

// Result is the outcome of validating one field.
type Result struct {
	IsValid   bool   `json:"is_valid"`
	Sanitized string `json:"sanitized"`
	Error     string `json:"error,omitempty"`
}

func ok(s string) Result { return Result{IsValid: true, Sanitized: s} }

func fail(s, msg string) Result { return Result{Sanitized: s, Error: msg} }

var (
	emailRegex = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)
	dateRegex  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRegex  = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:[0-5]\d)?$`)
	zipRegex   = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
)

var htmlSpecial = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "", "&", "", "`", "")

// Sanitize strips control characters (newline and tab survive) and HTML special
// characters, trims surrounding whitespace, and truncates to maxLen runes when maxLen > 0.
func Sanitize(raw string, maxLen int) string {
	s := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
	s = htmlSpecial.Replace(s)
	s = strings.TrimSpace(s)
	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		s = string([]rune(s)[:maxLen])
	}
	return s
}

// Text validates a free-text field. Required fields must be non-empty after sanitization.
// Input longer than maxLen is rejected rather than silently truncated.
func Text(field, raw string, maxLen int, required bool) Result {
	s := Sanitize(raw, 0)
	if s == "" {
		if required {
			return fail(s, fmt.Sprintf("%s is required", field))
		}
		return ok(s)
	}
	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		return fail(s, fmt.Sprintf("%s must be %d characters or less", field, maxLen))
	}
	return ok(s)
}

// Email validates an email address and lower-cases it. A top-level domain is required.
func Email(raw string) Result {
	s := strings.ToLower(Sanitize(raw, 0))
	if s == "" {
		return fail(s, "email is required")
	}
	if len(s) > MaxEmailLength {
		return fail(s, fmt.Sprintf("email must be %d characters or less", MaxEmailLength))
	}
	if !emailRegex.MatchString(s) {
		return fail(s, "invalid email format")
	}
	return ok(s)
}

// Phone validates a phone number containing at least 10 digits. Formatting characters
// are kept in the sanitized value.
func Phone(raw string, required bool) Result {
	s := Sanitize(raw, 0)
	if s == "" {
		if required {
			return fail(s, "phone is required")
		}
		return ok(s)
	}
	if len(s) > MaxPhoneLength {
		return fail(s, fmt.Sprintf("phone must be %d characters or less", MaxPhoneLength))
	}
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case strings.ContainsRune(" ()-.+", r):
		default:
			return fail(s, "phone may only contain digits, spaces and ()-.+")
		}
	}
	if digits < 10 {
		return fail(s, "phone must contain at least 10 digits")
	}
	return ok(s)
}

// Date validates a calendar date in YYYY-MM-DD form.
func Date(raw string) Result {
	s := Sanitize(raw, 0)
	if s == "" {
		return fail(s, "date is required")
	}
	if !dateRegex.MatchString(s) {
		return fail(s, "invalid date format (expected: YYYY-MM-DD)")
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return fail(s, "invalid calendar date")
	}
	return ok(s)
}

// Time validates a clock time in HH:MM or HH:MM:SS form.
func Time(raw string) Result {
	s := Sanitize(raw, 0)
	if s == "" {
		return fail(s, "time is required")
	}
	if !timeRegex.MatchString(s) {
		return fail(s, "invalid time format (expected: HH:MM or HH:MM:SS)")
	}
	return ok(s)
}

var usStates = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true, "CT": true, "DE": true,
	"DC": true, "FL": true, "GA": true, "HI": true, "ID": true, "IL": true, "IN": true, "IA": true,
	"KS": true, "KY": true, "LA": true, "ME": true, "MD": true, "MA": true, "MI": true, "MN": true,
	"MS": true, "MO": true, "MT": true, "NE": true, "NV": true, "NH": true, "NJ": true, "NM": true,
	"NY": true, "NC": true, "ND": true, "OH": true, "OK": true, "OR": true, "PA": true, "RI": true,
	"SC": true, "SD": true, "TN": true, "TX": true, "UT": true, "VT": true, "VA": true, "WA": true,
	"WV": true, "WI": true, "WY": true, "PR": true,
}

// State validates a 2-letter US state code and upper-cases it.
func State(raw string) Result {
	s := strings.ToUpper(Sanitize(raw, 0))
	if len(s) != 2 {
		return fail(s, "state must be a 2-letter code")
	}
	if !usStates[s] {
		return fail(s, "unknown state code")
	}
	return ok(s)
}

// ZipCode validates a 5-digit or ZIP+4 code.
func ZipCode(raw string) Result {
	s := Sanitize(raw, 0)
	if !zipRegex.MatchString(s) {
		return fail(s, "zip code must be 12345 or 12345-6789")
	}
	return ok(s)
}

// URL validates an optional http(s) URL. HTML special characters are rejected rather
// than stripped, except & which query strings need.
func URL(raw string) Result {
	s := strings.TrimSpace(stripControl(raw))
	if s == "" {
		return ok(s)
	}
	if strings.ContainsAny(s, "<>\"'`") {
		return fail(s, "url must not contain < > \" ' or `")
	}
	if len(s) > MaxURLLength {
		return fail(s, fmt.Sprintf("url must be %d characters or less", MaxURLLength))
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fail(s, "url must start with http:// or https://")
	}
	return ok(s)
}

// Password checks length and character-class rules. The sanitized value is the input
// unchanged: passwords are never rewritten.
func Password(raw string) Result {
	if raw == "" {
		return fail("", "password is required")
	}
	if len(raw) < MinPasswordLen {
		return fail(raw, fmt.Sprintf("password must be at least %d characters", MinPasswordLen))
	}
	if len(raw) > MaxPasswordLen {
		return fail(raw, fmt.Sprintf("password must be %d characters or less", MaxPasswordLen))
	}
	var upper, lower, digit bool
	for _, r := range raw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return fail(raw, "password must contain an uppercase letter, a lowercase letter and a number")
	}
	return ok(raw)
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// Errors collects field-level failures for a form.
type Errors map[string]string

// Check records r's error under field when r is invalid and returns the sanitized value.
func (e Errors) Check(field string, r Result) string {
	if !r.IsValid {
		e[field] = r.Error
	}
	return r.Sanitized
}

// Empty reports whether no field failed.
func (e Errors) Empty() bool { return len(e) == 0 }
