package ingest

import "strings"

// PhoneFormat selects how valid numbers are rendered in the output.
type PhoneFormat int

const (
	// FormatPunctuated renders (DD)NNNNN-NNNN / (DD)NNNN-NNNN. Default.
	FormatPunctuated PhoneFormat = iota
	// FormatDigits renders the bare national digits.
	FormatDigits
	// FormatE164 renders +55 followed by the national digits.
	FormatE164
)

// ParsePhoneFormat maps a config string to a PhoneFormat.
func ParsePhoneFormat(s string) (PhoneFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "punctuated":
		return FormatPunctuated, true
	case "digits":
		return FormatDigits, true
	case "e164":
		return FormatE164, true
	default:
		return FormatPunctuated, false
	}
}

// brAreaCodes is the closed set of valid Brazilian area codes (DDDs).
var brAreaCodes = map[string]bool{
	"11": true, "12": true, "13": true, "14": true, "15": true,
	"16": true, "17": true, "18": true, "19": true,
	"21": true, "22": true, "24": true,
	"27": true, "28": true,
	"31": true, "32": true, "33": true, "34": true, "35": true,
	"37": true, "38": true,
	"41": true, "42": true, "43": true, "44": true, "45": true,
	"46": true, "47": true, "48": true, "49": true,
	"51": true, "53": true, "54": true, "55": true,
	"61": true, "62": true, "63": true, "64": true, "65": true,
	"66": true, "67": true, "68": true, "69": true,
	"71": true, "73": true, "74": true, "75": true, "77": true, "79": true,
	"81": true, "82": true, "83": true, "84": true, "85": true,
	"86": true, "87": true, "88": true, "89": true,
	"91": true, "92": true, "93": true, "94": true, "95": true,
	"96": true, "97": true, "98": true, "99": true,
}

// PhoneValidator validates and formats Brazilian phone numbers. The zero
// value is mobile-only with punctuated output.
type PhoneValidator struct {
	AllowLandline bool
	Format        PhoneFormat
}

// NormalizePhoneDigits strips every non-digit and a leading "55" country
// code (only when the remaining length still fits a national number).
func NormalizePhoneDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()
	if (len(d) == 12 || len(d) == 13) && strings.HasPrefix(d, "55") {
		d = d[2:]
	}
	return d
}

// Validate reports whether s holds a plausible Brazilian number and returns
// its formatted form. Rules:
//   - national length exactly 10 or 11 digits after normalization
//   - the two leading digits must be a known area code
//   - a single repeated digit (including all zeros) is an obvious fake
//   - 11 digits require the mobile "9" marker after the area code
//   - 10 digits require AllowLandline and a digit in [2-5] after the area code
func (v PhoneValidator) Validate(s string) (string, bool) {
	d := NormalizePhoneDigits(s)
	if len(d) != 10 && len(d) != 11 {
		return "", false
	}
	if repeatedDigit(d) {
		return "", false
	}
	if !brAreaCodes[d[:2]] {
		return "", false
	}
	if len(d) == 11 {
		if d[2] != '9' {
			return "", false
		}
	} else {
		if !v.AllowLandline {
			return "", false
		}
		if d[2] < '2' || d[2] > '5' {
			return "", false
		}
	}
	return v.format(d), true
}

func (v PhoneValidator) format(d string) string {
	switch v.Format {
	case FormatDigits:
		return d
	case FormatE164:
		return "+55" + d
	default:
		return "(" + d[:2] + ")" + d[2:len(d)-4] + "-" + d[len(d)-4:]
	}
}

func repeatedDigit(d string) bool {
	for i := 1; i < len(d); i++ {
		if d[i] != d[0] {
			return false
		}
	}
	return len(d) > 0
}
