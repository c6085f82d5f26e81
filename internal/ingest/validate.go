package ingest

import "regexp"

// emailPattern is the acceptance shape for provided addresses: local@domain
// with a TLD of at least two characters. The character classes are case
// agnostic, so no folding is needed.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)

// ValidEmail reports whether s is an acceptable email address. Empty means
// "not provided" and is valid; an invalid non-empty value is sanitized by
// the classifier, never rejected.
func ValidEmail(s string) bool {
	if s == "" {
		return true
	}
	return emailPattern.MatchString(s)
}

// DigitsOnly strips every non-digit rune. Used to sanitize loyalty point
// balances ("1.250 pts" reads as "1250").
func DigitsOnly(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			out = append(out, r)
		}
	}
	return string(out)
}

// containsDigit reports whether s has at least one ASCII digit.
func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
