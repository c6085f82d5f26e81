package ingest

import (
	"sort"
	"unicode"
	"unicode/utf8"
)

// Per-cell heuristic weights for content-based role inference.
const (
	scorePhoneValid   = 6.0
	scorePhoneLength  = 3.0
	scorePhoneDigit   = 0.2
	scoreEmailShape   = 4.0
	scorePointsDigit  = 1.0
	scoreNameShape    = 1.2
	scoreNameMultiple = 0.3
	nameMaxLen        = 80
)

// ScoreTable holds the raw per-column scores accumulated for each role.
// Exposed through Diagnostics so the mapping UI can explain a decision.
type ScoreTable struct {
	Columns int       `json:"columns"`
	Name    []float64 `json:"name"`
	Phone   []float64 `json:"phone"`
	Email   []float64 `json:"email"`
	Points  []float64 `json:"points"`
}

func (t *ScoreTable) scores(r Role) []float64 {
	switch r {
	case RoleName:
		return t.Name
	case RolePhone:
		return t.Phone
	case RoleEmail:
		return t.Email
	case RolePoints:
		return t.Points
	}
	return nil
}

// InferRoles scores every column of the sampled body rows against each
// semantic role and resolves a RoleMap.
//
// Phone, Email and Points each take their single highest-scoring column
// regardless of collisions with one another. Name walks its ranking and
// takes the first column not already claimed. A role whose top score is
// zero stays unmapped. Confidence per role is the normalized margin
// (top-second)/top over that role's raw ranking.
func InferRoles(rows [][]string, sample int, phone PhoneValidator) (RoleMap, *ScoreTable, Confidence) {
	if sample <= 0 || sample > len(rows) {
		sample = len(rows)
	}

	cols := maxWidth(rows[:sample])
	table := &ScoreTable{
		Columns: cols,
		Name:    make([]float64, cols),
		Phone:   make([]float64, cols),
		Email:   make([]float64, cols),
		Points:  make([]float64, cols),
	}

	for _, row := range rows[:sample] {
		for c := 0; c < cols; c++ {
			cell := cellAt(row, c)
			if cell == "" {
				continue
			}
			table.Phone[c] += phoneCellScore(cell, phone)
			if emailPattern.MatchString(cell) {
				table.Email[c] += scoreEmailShape
			}
			if containsDigit(cell) {
				table.Points[c] += scorePointsDigit
			}
			table.Name[c] += nameCellScore(cell)
		}
	}

	m := NewRoleMap()
	m.Phone = topColumn(table.Phone)
	m.Email = topColumn(table.Email)
	m.Points = topColumn(table.Points)
	for _, idx := range ranked(table.Name) {
		if table.Name[idx] <= 0 {
			break
		}
		if !m.claimed(idx) {
			m.Name = idx
			break
		}
	}

	conf := Confidence{
		Name:   margin(table.Name),
		Phone:  margin(table.Phone),
		Email:  margin(table.Email),
		Points: margin(table.Points),
	}

	return m, table, conf
}

func phoneCellScore(cell string, phone PhoneValidator) float64 {
	if _, ok := phone.Validate(cell); ok {
		return scorePhoneValid
	}
	if d := NormalizePhoneDigits(cell); len(d) == 10 || len(d) == 11 {
		return scorePhoneLength
	}
	if containsDigit(cell) {
		return scorePhoneDigit
	}
	return 0
}

func nameCellScore(cell string) float64 {
	if containsDigit(cell) || utf8.RuneCountInString(cell) > nameMaxLen {
		return 0
	}
	letters := 0
	hasSpace := false
	for _, r := range cell {
		if unicode.IsLetter(r) {
			letters++
		}
		if unicode.IsSpace(r) {
			hasSpace = true
		}
	}
	if letters < 3 {
		return 0
	}
	score := scoreNameShape
	if hasSpace {
		score += scoreNameMultiple
	}
	return score
}

// topColumn returns the index of the highest positive score, lowest index
// winning ties, or Unmapped when every score is zero.
func topColumn(scores []float64) int {
	best := Unmapped
	bestScore := 0.0
	for i, s := range scores {
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}

// ranked returns column indices ordered by descending score, lowest index
// first on ties.
func ranked(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	return idx
}

// margin computes (top-second)/top over the raw scores, zero when the top
// score is not positive.
func margin(scores []float64) float64 {
	top, second := 0.0, 0.0
	for _, s := range scores {
		if s > top {
			top, second = s, top
		} else if s > second {
			second = s
		}
	}
	if top <= 0 {
		return 0
	}
	return (top - second) / top
}
