// Package history persists a record of past ingestion runs in SQLite so
// operators can audit what was processed and with which mapping.
package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"fidelize/internal/ingest"
)

// ErrNotFound is returned when a run ID has no stored row.
var ErrNotFound = errors.New("run not found")

// Run is one persisted ingestion run.
type Run struct {
	ID           uuid.UUID      `json:"id"`
	FileName     string         `json:"fileName"`
	Delimiter    string         `json:"delimiter"`
	Source       string         `json:"source"`
	TotalRead    int            `json:"totalRead"`
	TotalValid   int            `json:"totalValid"`
	Rejections   map[string]int `json:"rejections"`
	Sanitized    map[string]int `json:"sanitized"`
	ReviewNeeded bool           `json:"reviewNeeded"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// NewRun builds a Run row from a pipeline result.
func NewRun(fileName string, res *ingest.Result) Run {
	return Run{
		ID:           uuid.New(),
		FileName:     fileName,
		Delimiter:    res.Diagnostics.Delimiter,
		Source:       string(res.Diagnostics.Source),
		TotalRead:    res.Report.TotalRead,
		TotalValid:   res.Report.TotalValid,
		Rejections:   reasonCounts(res.Report.Rejections),
		Sanitized:    reasonCounts(res.Report.Sanitized),
		ReviewNeeded: res.Diagnostics.ReviewNeeded,
		CreatedAt:    time.Now().UTC(),
	}
}

func reasonCounts(m map[ingest.RejectReason]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

// Store wraps the SQLite connection.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s := &Store{conn: conn}
	if err := s.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  fileName TEXT NOT NULL,
  delimiter TEXT NOT NULL,
  source TEXT NOT NULL,
  totalRead INTEGER NOT NULL,
  totalValid INTEGER NOT NULL,
  rejectionsJson TEXT NOT NULL,
  sanitizedJson TEXT NOT NULL,
  reviewNeeded INTEGER NOT NULL DEFAULT 0,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_createdAt ON runs(createdAt);
`

	_, err := s.conn.Exec(schema)
	return err
}

// Insert stores one run.
func (s *Store) Insert(run Run) error {
	rejectionsJSON, _ := json.Marshal(run.Rejections)
	sanitizedJSON, _ := json.Marshal(run.Sanitized)

	_, err := s.conn.Exec(`
INSERT INTO runs (id, fileName, delimiter, source, totalRead, totalValid, rejectionsJson, sanitizedJson, reviewNeeded, createdAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, run.ID.String(), run.FileName, run.Delimiter, run.Source,
		run.TotalRead, run.TotalValid,
		string(rejectionsJSON), string(sanitizedJSON),
		boolToInt(run.ReviewNeeded), run.CreatedAt.Format(time.RFC3339))
	return err
}

// Get returns the run with the given ID, or ErrNotFound.
func (s *Store) Get(id uuid.UUID) (Run, error) {
	row := s.conn.QueryRow(`
SELECT id, fileName, delimiter, source, totalRead, totalValid, rejectionsJson, sanitizedJson, reviewNeeded, createdAt
FROM runs WHERE id = ?
`, id.String())

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return run, err
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(limit int) ([]Run, error) {
	rows, err := s.conn.Query(`
SELECT id, fileName, delimiter, source, totalRead, totalValid, rejectionsJson, sanitizedJson, reviewNeeded, createdAt
FROM runs ORDER BY createdAt DESC, id LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run            Run
		id             string
		rejectionsJSON string
		sanitizedJSON  string
		reviewNeeded   int
		createdAt      string
	)
	if err := row.Scan(&id, &run.FileName, &run.Delimiter, &run.Source,
		&run.TotalRead, &run.TotalValid, &rejectionsJSON, &sanitizedJSON,
		&reviewNeeded, &createdAt); err != nil {
		return Run{}, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return Run{}, err
	}
	run.ID = parsed
	run.ReviewNeeded = reviewNeeded != 0
	_ = json.Unmarshal([]byte(rejectionsJSON), &run.Rejections)
	_ = json.Unmarshal([]byte(sanitizedJSON), &run.Sanitized)
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		run.CreatedAt = t
	}
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
