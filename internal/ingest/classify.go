package ingest

import (
	"golang.org/x/sync/errgroup"
)

// Classifier turns raw table rows into accepted records and rejected rows
// under a resolved role mapping.
type Classifier struct {
	roles RoleMap
	phone PhoneValidator
}

// NewClassifier builds a Classifier for one run.
func NewClassifier(roles RoleMap, phone PhoneValidator) *Classifier {
	return &Classifier{roles: roles, phone: phone}
}

// rowOutcome is the classification of a single row before merging. Outcomes
// are produced per row (possibly in parallel) and merged in input order so
// the output is deterministic.
type rowOutcome struct {
	accepted bool
	reason   RejectReason
	record   Record
	rejected Rejected

	emailSanitized  bool
	pointsSanitized bool
}

// classifyRow applies the acceptance rules to one raw row.
//
// Rejection checks run in priority order: a row with no phone value rejects
// as no_valid_number, a non-empty value that fails validation rejects as
// invalid_telefone, and a valid phone with an empty name rejects as
// invalid_format. Email and points never reject; invalid values are blanked
// and tallied as sanitizations.
func (c *Classifier) classifyRow(row []string, line int) rowOutcome {
	rawName := cellAt(row, c.roles.Name)
	rawPhone := cellAt(row, c.roles.Phone)
	rawEmail := cellAt(row, c.roles.Email)
	rawPoints := cellAt(row, c.roles.Points)

	var out rowOutcome

	email := rawEmail
	if !ValidEmail(email) {
		email = ""
		out.emailSanitized = true
	}
	points := DigitsOnly(rawPoints)
	if points == "" && rawPoints != "" {
		out.pointsSanitized = true
	}

	reject := func(reason RejectReason) rowOutcome {
		out.reason = reason
		out.rejected = Rejected{
			Line:   line,
			Reason: reason,
			Name:   rawName,
			Phone:  rawPhone,
			Email:  rawEmail,
			Points: rawPoints,
		}
		return out
	}

	if rawPhone == "" {
		return reject(ReasonNoNumber)
	}
	phone, ok := c.phone.Validate(rawPhone)
	if !ok {
		return reject(ReasonInvalidPhone)
	}

	name := rawName
	if name == "" {
		return reject(ReasonInvalidFormat)
	}
	if name == "" {
		// Unreachable while empty names reject above; the fallback applies
		// only if the emptiness policy ever loosens.
		name = "Cliente"
	}

	out.accepted = true
	out.record = Record{Name: name, Phone: phone, Email: email, Points: points}
	return out
}

// ClassifyAll classifies every row. startLine is the 1-based file line of
// rows[0], so rejected rows reference their position in the source file.
//
// When workers > 1 the rows are split into contiguous blocks classified
// concurrently; the merge always walks outcomes in input order, so results
// are identical to the sequential path.
func (c *Classifier) ClassifyAll(rows [][]string, startLine, workers int) ([]Record, []Rejected, Report, []RowDetail) {
	outcomes := make([]rowOutcome, len(rows))

	if workers > 1 && len(rows) > 1 {
		var g errgroup.Group
		g.SetLimit(workers)
		block := (len(rows) + workers - 1) / workers
		for lo := 0; lo < len(rows); lo += block {
			lo, hi := lo, min(lo+block, len(rows))
			g.Go(func() error {
				for i := lo; i < hi; i++ {
					outcomes[i] = c.classifyRow(rows[i], startLine+i)
				}
				return nil
			})
		}
		g.Wait() // workers never return errors
	} else {
		for i, row := range rows {
			outcomes[i] = c.classifyRow(row, startLine+i)
		}
	}

	report := Report{
		TotalRead:  len(rows),
		Rejections: make(map[RejectReason]int),
		Sanitized:  make(map[RejectReason]int),
	}

	var (
		records  []Record
		rejected []Rejected
		sample   []RowDetail
	)
	for i, out := range outcomes {
		if out.emailSanitized {
			report.Sanitized[ReasonInvalidEmail]++
		}
		if out.pointsSanitized {
			report.Sanitized[ReasonInvalidPoints]++
		}

		if out.accepted {
			report.TotalValid++
			records = append(records, out.record)
		} else {
			report.Rejections[out.reason]++
			rejected = append(rejected, out.rejected)
		}

		if len(sample) < rowSampleLimit {
			d := RowDetail{Line: startLine + i, Accepted: out.accepted}
			if out.accepted {
				d.Phone = out.record.Phone
			} else {
				d.Reason = out.reason
				d.Phone = out.rejected.Phone
			}
			sample = append(sample, d)
		}
	}

	return records, rejected, report, sample
}
