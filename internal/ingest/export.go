package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// CanonicalHeader is the fixed 14-column output schema. Only the four
// canonical fields are populated; the rest stay empty so downstream imports
// see a stable shape.
var CanonicalHeader = []string{
	"Nome",
	"Telefone",
	"Email",
	"Sexo",
	"Data de nascimento",
	"Data de cadastro",
	"Pontos do fidelidade",
	"Rua",
	"Número",
	"Complemento",
	"Bairro",
	"CEP",
	"Cidade",
	"Estado",
}

// RejectedHeader is the audit export schema.
var RejectedHeader = []string{
	"Linha original",
	"Motivo",
	"Nome",
	"Telefone",
	"Email",
	"Pontos do fidelidade",
}

// Part is one exported file chunk.
type Part struct {
	Name string `json:"name"`
	Data []byte `json:"-"`
}

// WriteRecords renders accepted records as semicolon-separated CSV, split
// into chunks of at most chunkSize data rows. Every part repeats the header.
// A single part is named base+".csv"; multiple parts are numbered
// base+"_parteN.csv" starting at 1. No records means no parts.
func WriteRecords(records []Record, base string, chunkSize int) ([]Part, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	var chunks [][][]string
	for start := 0; start < len(records); start += chunkSize {
		end := min(start+chunkSize, len(records))
		rows := make([][]string, 0, end-start)
		for _, rec := range records[start:end] {
			rows = append(rows, canonicalRow(rec))
		}
		chunks = append(chunks, rows)
	}
	return renderParts(chunks, base, CanonicalHeader)
}

// WriteRejected renders the audit export with the same chunking and naming
// scheme as WriteRecords.
func WriteRejected(rejected []Rejected, base string, chunkSize int) ([]Part, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	var chunks [][][]string
	for start := 0; start < len(rejected); start += chunkSize {
		end := min(start+chunkSize, len(rejected))
		rows := make([][]string, 0, end-start)
		for _, rej := range rejected[start:end] {
			rows = append(rows, []string{
				strconv.Itoa(rej.Line),
				string(rej.Reason),
				rej.Name,
				rej.Phone,
				rej.Email,
				rej.Points,
			})
		}
		chunks = append(chunks, rows)
	}
	return renderParts(chunks, base, RejectedHeader)
}

func canonicalRow(rec Record) []string {
	row := make([]string, len(CanonicalHeader))
	row[0] = rec.Name
	row[1] = rec.Phone
	row[2] = rec.Email
	row[6] = rec.Points
	return row
}

func renderParts(chunks [][][]string, base string, header []string) ([]Part, error) {
	parts := make([]Part, 0, len(chunks))
	for i, rows := range chunks {
		name := base + ".csv"
		if len(chunks) > 1 {
			name = fmt.Sprintf("%s_parte%d.csv", base, i+1)
		}

		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		w.Comma = ';'
		if err := w.Write(header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
		if err := w.WriteAll(rows); err != nil {
			return nil, fmt.Errorf("write rows: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, fmt.Errorf("flush part %s: %w", name, err)
		}
		parts = append(parts, Part{Name: name, Data: buf.Bytes()})
	}
	return parts, nil
}
