package ingest

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// CleanCell normalizes a raw cell value: byte-order marks are removed,
// non-breaking spaces collapse to ordinary spaces, and the result is
// trimmed. Total function; never fails.
func CleanCell(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\uFEFF", "")
	s = strings.ReplaceAll(s, "\u00A0", " ")
	return strings.TrimSpace(s)
}

// sanitizeUTF8 replaces invalid byte sequences with the Unicode replacement
// character so the csv reader never chokes on exports from legacy CRMs.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

// cellAt is the bounds-checked accessor for ragged rows: a missing trailing
// cell or an unmapped index reads as the empty string.
func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return CleanCell(row[idx])
}
