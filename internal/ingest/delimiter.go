package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"sort"
)

// ErrParseFailure is returned when no candidate delimiter yields a table
// with more than one row and more than one column. It is the only fatal
// error of the pipeline.
var ErrParseFailure = errors.New("could not read file")

// delimiterSampleSize bounds how much of the input the frequency heuristic
// inspects.
const delimiterSampleSize = 8 * 1024

// candidateDelimiters in fixed priority order. Ties in the frequency count
// break in this order.
var candidateDelimiters = []rune{',', ';', '\t', '|'}

// ParseTable detects the field delimiter and parses the whole input.
//
// Detection counts raw occurrences of each candidate in the first 8 KB; it
// never inspects quoting. Candidates are then tried most-frequent first
// (priority order breaking ties), and the first one producing more than one
// row and more than one column wins. Every attempt is recorded as a
// DelimiterTrial for the diagnostics surface. When no candidate qualifies,
// ErrParseFailure is returned along with the trials.
func ParseTable(data []byte) ([][]string, rune, []DelimiterTrial, error) {
	sample := data
	if len(sample) > delimiterSampleSize {
		sample = sample[:delimiterSampleSize]
	}

	order := rankDelimiters(sample)

	var trials []DelimiterTrial
	for _, delim := range order {
		rows := parseWith(data, delim)
		cols := maxWidth(rows)
		trials = append(trials, DelimiterTrial{Delimiter: delimiterLabel(delim), Rows: len(rows), Cols: cols})
		if len(rows) > 1 && cols > 1 {
			return rows, delim, trials, nil
		}
	}

	return nil, 0, trials, ErrParseFailure
}

// rankDelimiters orders the candidates by occurrence count in the sample,
// descending, with the fixed priority order breaking ties. The semicolon
// fallback retry is implicit: every candidate gets a turn.
func rankDelimiters(sample []byte) []rune {
	order := make([]rune, len(candidateDelimiters))
	copy(order, candidateDelimiters)

	counts := make(map[rune]int, len(order))
	priority := make(map[rune]int, len(order))
	for i, d := range candidateDelimiters {
		counts[d] = bytes.Count(sample, []byte(string(d)))
		priority[d] = i
	}

	sort.SliceStable(order, func(i, j int) bool {
		if counts[order[i]] != counts[order[j]] {
			return counts[order[i]] > counts[order[j]]
		}
		return priority[order[i]] < priority[order[j]]
	})

	return order
}

func parseWith(data []byte, delim rune) [][]string {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil
	}
	return rows
}

func maxWidth(rows [][]string) int {
	w := 0
	for _, row := range rows {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

func delimiterLabel(d rune) string {
	switch d {
	case '\t':
		return "\\t"
	default:
		return string(d)
	}
}
