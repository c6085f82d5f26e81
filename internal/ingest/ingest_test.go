package ingest

import (
	"errors"
	"testing"
)

func TestRun_HeaderFile(t *testing.T) {
	data := []byte("Nome;Telefone;Email;Pontos\n" +
		"Maria Silva;11987654321;maria@example.com;120\n" +
		"João Souza;123;;\n")

	res, err := Run(data, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.Diagnostics.HeaderDetected {
		t.Error("expected header detection")
	}
	if res.Diagnostics.Source != SourceHeader {
		t.Errorf("expected header source, got %q", res.Diagnostics.Source)
	}
	if res.Report.TotalRead != 2 {
		t.Errorf("expected 2 body rows read, got %d", res.Report.TotalRead)
	}
	if len(res.Records) != 1 || res.Records[0].Phone != "(11)98765-4321" {
		t.Errorf("unexpected records: %+v", res.Records)
	}
	if len(res.Rejected) != 1 || res.Rejected[0].Line != 3 {
		t.Errorf("expected rejection at file line 3, got %+v", res.Rejected)
	}
	if res.Diagnostics.ReviewNeeded {
		t.Errorf("expected no review flag, got %v", res.Diagnostics.ReviewReasons)
	}
}

func TestRun_HeaderlessFile(t *testing.T) {
	data := []byte("Maria Silva;11987654321;maria@example.com;120\n" +
		"João Souza;21998765432;joao@example.com;45\n" +
		"Ana Pereira;31991234567;ana@example.com;0\n")

	res, err := Run(data, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Diagnostics.HeaderDetected {
		t.Error("expected no header detection")
	}
	if res.Diagnostics.Source != SourceContent {
		t.Errorf("expected content source, got %q", res.Diagnostics.Source)
	}
	if res.Report.TotalRead != 3 {
		t.Errorf("expected 3 rows read, got %d", res.Report.TotalRead)
	}
	if res.Report.TotalValid != 3 {
		t.Errorf("expected all rows valid, got %d", res.Report.TotalValid)
	}
	if res.Rejected != nil && len(res.Rejected) != 0 {
		t.Errorf("expected no rejections, got %+v", res.Rejected)
	}
	if res.Diagnostics.Scores == nil {
		t.Error("expected inference scores in diagnostics")
	}
	// First data line is line 1 when there is no header.
	if len(res.Diagnostics.RowSample) == 0 || res.Diagnostics.RowSample[0].Line != 1 {
		t.Errorf("expected row sample starting at line 1, got %+v", res.Diagnostics.RowSample)
	}
}

func TestRun_BOMAndEncoding(t *testing.T) {
	data := append([]byte("\uFEFF"), []byte("Nome;Telefone\nMaria;11987654321\n")...)

	res, err := Run(data, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Diagnostics.HeaderDetected {
		t.Error("expected header detection despite leading BOM")
	}
	if res.Report.TotalValid != 1 {
		t.Errorf("expected 1 valid row, got %d", res.Report.TotalValid)
	}
}

func TestRun_ParseFailure(t *testing.T) {
	_, err := Run([]byte("no delimiters here"), DefaultOptions())
	if !errors.Is(err, ErrParseFailure) {
		t.Fatalf("expected ErrParseFailure, got %v", err)
	}
}

func TestRun_ManualOverride(t *testing.T) {
	data := []byte("ignored;11987654321;Maria Silva\n" +
		"ignored;21998765432;João Souza\n")

	opts := DefaultOptions()
	opts.Override = &Override{
		Roles: RoleMap{Name: 2, Phone: 1, Email: Unmapped, Points: Unmapped},
	}

	res, err := Run(data, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Diagnostics.Source != SourceManual {
		t.Errorf("expected manual source, got %q", res.Diagnostics.Source)
	}
	if res.Report.TotalValid != 2 {
		t.Errorf("expected 2 valid rows, got %d", res.Report.TotalValid)
	}
	if res.Records[0].Name != "Maria Silva" {
		t.Errorf("expected override mapping applied, got %+v", res.Records[0])
	}
}

func TestRun_ManualOverrideIncomplete(t *testing.T) {
	opts := DefaultOptions()
	opts.Override = &Override{
		Roles: RoleMap{Name: 0, Phone: Unmapped, Email: Unmapped, Points: Unmapped},
	}

	_, err := Run([]byte("a;b\nc;d\n"), opts)
	if !errors.Is(err, ErrIncompleteMapping) {
		t.Fatalf("expected ErrIncompleteMapping, got %v", err)
	}
}

func TestRun_ManualOverrideWithHeader(t *testing.T) {
	data := []byte("col1;col2\nMaria;11987654321\n")

	opts := DefaultOptions()
	opts.Override = &Override{
		Roles:     RoleMap{Name: 0, Phone: 1, Email: Unmapped, Points: Unmapped},
		HasHeader: true,
	}

	res, err := Run(data, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Report.TotalRead != 1 {
		t.Errorf("expected header row skipped, got %d rows read", res.Report.TotalRead)
	}
	if len(res.Rejected) != 0 {
		t.Errorf("expected no rejections, got %+v", res.Rejected)
	}
}

func TestRun_ReviewFlagOnNoPhoneColumn(t *testing.T) {
	data := []byte("Maria Silva;maria@example.com\n" +
		"João Souza;joao@example.com\n")

	res, err := Run(data, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Diagnostics.ReviewNeeded {
		t.Error("expected review flag when no phone column resolves")
	}
	if res.Report.TotalValid != 0 {
		t.Errorf("expected no valid rows without a phone column, got %d", res.Report.TotalValid)
	}
	if res.Report.Rejections[ReasonNoNumber] != 2 {
		t.Errorf("expected 2 no_valid_number rejections, got %+v", res.Report.Rejections)
	}
}

func TestRun_PartialHeaderKeepsUnboundRoles(t *testing.T) {
	// "telefone" matches but no name alias does. The header stays the active
	// mapping with name unbound; the run proceeds and is flagged for review
	// rather than guessing a name column from the body.
	data := []byte("contato_id;telefone\n" +
		"Maria Silva;11987654321\n" +
		"João Souza;21998765432\n")

	res, err := Run(data, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Diagnostics.HeaderDetected {
		t.Error("expected header detection")
	}
	if res.Diagnostics.Source != SourceHeader {
		t.Errorf("expected header source, got %q", res.Diagnostics.Source)
	}
	if res.Diagnostics.Roles.Phone != 1 {
		t.Errorf("expected phone bound by header, got %d", res.Diagnostics.Roles.Phone)
	}
	if res.Diagnostics.Roles.Name != Unmapped {
		t.Errorf("expected name to stay unbound, got %d", res.Diagnostics.Roles.Name)
	}
	if !res.Diagnostics.ReviewNeeded {
		t.Error("expected review flag for an unbound name role")
	}
	if res.Report.TotalValid != 0 || res.Report.Rejections[ReasonInvalidFormat] != 2 {
		t.Errorf("expected every row rejected as invalid_format, got %+v", res.Report)
	}
}

func TestRun_ConservationInvariant(t *testing.T) {
	data := []byte("Nome;Telefone\n" +
		"Maria;11987654321\n" +
		"João;\n" +
		"Ana;123\n" +
		";21998765432\n")

	res, err := Run(data, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	total := res.Report.TotalValid
	for _, n := range res.Report.Rejections {
		total += n
	}
	if total != res.Report.TotalRead {
		t.Errorf("conservation violated: read=%d accounted=%d", res.Report.TotalRead, total)
	}
}
