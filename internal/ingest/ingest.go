package ingest

import (
	"errors"
	"fmt"
)

// ErrIncompleteMapping is returned when a manual override does not bind the
// two mandatory roles.
var ErrIncompleteMapping = errors.New("manual mapping must resolve name and phone columns")

// Run executes the full pipeline on raw file bytes: sanitize encoding,
// detect the delimiter, resolve the column mapping, classify every body
// row, and assemble the diagnostics surface.
//
// Run never aborts on low-confidence mappings; it proceeds and sets
// Diagnostics.ReviewNeeded so the caller can gate the output. The only
// errors are ErrParseFailure and ErrIncompleteMapping.
func Run(data []byte, opts Options) (*Result, error) {
	opts = opts.normalized()

	rows, delim, trials, err := ParseTable(sanitizeUTF8(data))
	if err != nil {
		return nil, err
	}

	diag := Diagnostics{
		Delimiter: delimiterLabel(delim),
		Trials:    trials,
	}

	roles, hasHeader, err := resolveMapping(rows, opts, &diag)
	if err != nil {
		return nil, err
	}
	diag.Roles = roles
	diag.HeaderDetected = hasHeader
	if hasHeader {
		diag.Header = rows[0]
	}

	flagReview(&diag, opts)

	dataRows := rows
	startLine := 1
	if hasHeader {
		dataRows = rows[1:]
		startLine = 2
	}

	phone := PhoneValidator{AllowLandline: opts.AllowLandline, Format: opts.PhoneFormat}
	classifier := NewClassifier(roles, phone)
	records, rejected, report, sample := classifier.ClassifyAll(dataRows, startLine, opts.Workers)
	diag.RowSample = sample

	return &Result{
		Records:     records,
		Rejected:    rejected,
		Report:      report,
		Diagnostics: diag,
	}, nil
}

// resolveMapping picks the active RoleMap: a manual override beats header
// matching, which beats content inference. Content inference runs only when
// no cell of the first row matched a header alias; a detected header that
// leaves roles unbound keeps them unbound, and the review flags fire instead.
func resolveMapping(rows [][]string, opts Options, diag *Diagnostics) (RoleMap, bool, error) {
	if ov := opts.Override; ov != nil {
		if !ov.Roles.Complete() {
			return RoleMap{}, false, ErrIncompleteMapping
		}
		diag.Source = SourceManual
		return ov.Roles, ov.HasHeader, nil
	}

	headerRoles, detected := MatchHeader(rows[0])
	if detected && !headerRoles.Empty() {
		diag.Source = SourceHeader
		return headerRoles, true, nil
	}

	body := rows
	if detected {
		body = rows[1:]
	}
	phone := PhoneValidator{AllowLandline: opts.AllowLandline}
	inferred, scores, conf := InferRoles(body, opts.SampleRows, phone)
	diag.Scores = scores
	diag.Confidence = conf
	diag.Source = SourceContent
	return inferred, detected, nil
}

// flagReview marks runs whose mapping is too weak to trust unattended.
func flagReview(diag *Diagnostics, opts Options) {
	var reasons []string

	if diag.Roles.Phone == Unmapped {
		reasons = append(reasons, "no phone column resolved")
	}
	if diag.Roles.Name == Unmapped {
		reasons = append(reasons, "no name column resolved")
	}
	if diag.Source == SourceContent && diag.Roles.Phone != Unmapped &&
		diag.Confidence.Phone < opts.ConfidenceThreshold {
		reasons = append(reasons,
			fmt.Sprintf("phone column confidence %.2f below threshold %.2f",
				diag.Confidence.Phone, opts.ConfidenceThreshold))
	}

	diag.ReviewNeeded = len(reasons) > 0
	diag.ReviewReasons = reasons
}
