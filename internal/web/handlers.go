package web

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fidelize/internal/history"
	"fidelize/internal/ingest"
	"fidelize/internal/logging"
)

// ingestResponse is the body returned by POST /api/ingest.
type ingestResponse struct {
	RunID       uuid.UUID          `json:"runId"`
	FileName    string             `json:"fileName"`
	Report      ingest.Report      `json:"report"`
	Diagnostics ingest.Diagnostics `json:"diagnostics"`
	Outputs     []string           `json:"outputs"`
	Rejected    []string           `json:"rejected,omitempty"`
}

// readUploadedFile pulls the multipart file and optional mapping override
// out of the request. The override JSON shape mirrors ingest.Override.
func (s *Server) readUploadedFile(w http.ResponseWriter, r *http.Request) ([]byte, string, *ingest.Override, bool) {
	ctx := r.Context()
	maxSize := s.cfg.Server.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "file too large or invalid form")
		return nil, "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, "no file provided")
		return nil, "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "failed to read file")
		return nil, "", nil, false
	}

	var override *ingest.Override
	if mappingJSON := r.FormValue("mapping"); mappingJSON != "" {
		override = &ingest.Override{}
		if err := json.Unmarshal([]byte(mappingJSON), override); err != nil {
			writeError(ctx, w, http.StatusBadRequest, "invalid mapping format")
			return nil, "", nil, false
		}
	}

	return data, header.Filename, override, true
}

// runOptions builds per-request pipeline options from config plus query
// parameters. Query parameters win so the mapping UI can re-run with
// different settings without a config change.
func (s *Server) runOptions(r *http.Request, override *ingest.Override) ingest.Options {
	opts := s.cfg.Options()
	opts.Override = override

	q := r.URL.Query()
	if v := q.Get("allowLandline"); v != "" {
		opts.AllowLandline = v == "true" || v == "1"
	}
	if v := q.Get("phoneFormat"); v != "" {
		if format, ok := ingest.ParsePhoneFormat(v); ok {
			opts.PhoneFormat = format
		}
	}
	if v := q.Get("chunkSize"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.ChunkSize = n
		}
	}
	return opts
}

// handleIngest runs the full pipeline and registers the exported parts for
// download.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, fileName, override, ok := s.readUploadedFile(w, r)
	if !ok {
		return
	}

	opts := s.runOptions(r, override)
	result, err := ingest.Run(data, opts)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	base := outputBase(fileName)
	parts, err := ingest.WriteRecords(result.Records, base, opts.ChunkSize)
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "failed to render output")
		return
	}
	rejectedParts, err := ingest.WriteRejected(result.Rejected, base+"_rejeitados", opts.RejectedChunkSize)
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "failed to render rejected output")
		return
	}

	entry := &runEntry{
		ID:        uuid.New(),
		FileName:  fileName,
		Result:    result,
		Parts:     parts,
		Rejected:  rejectedParts,
		CreatedAt: time.Now(),
	}
	s.runs.add(entry)

	logger := logging.WithFields(ctx, "run_id", entry.ID, "file", fileName)
	logger.Info("ingestion complete",
		"read", result.Report.TotalRead,
		"valid", result.Report.TotalValid,
		"rejected", len(result.Rejected),
		"source", result.Diagnostics.Source,
		"review_needed", result.Diagnostics.ReviewNeeded,
	)

	if s.store != nil {
		run := history.NewRun(fileName, result)
		run.ID = entry.ID
		if err := s.store.Insert(run); err != nil {
			logger.Error("failed to persist run history", "error", err)
		}
	}

	writeJSON(w, ingestResponse{
		RunID:       entry.ID,
		FileName:    fileName,
		Report:      result.Report,
		Diagnostics: result.Diagnostics,
		Outputs:     partNames(parts),
		Rejected:    partNames(rejectedParts),
	})
}

// handlePreview runs the pipeline without registering any downloadable
// output. The response carries the mapping diagnostics and counts so a
// caller can decide whether to proceed or supply a manual mapping.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, fileName, override, ok := s.readUploadedFile(w, r)
	if !ok {
		return
	}

	result, err := ingest.Run(data, s.runOptions(r, override))
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, map[string]any{
		"fileName":    fileName,
		"report":      result.Report,
		"diagnostics": result.Diagnostics,
	})
}

func (s *Server) runFromRequest(w http.ResponseWriter, r *http.Request) (*runEntry, bool) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid run ID")
		return nil, false
	}
	entry, ok := s.runs.get(id)
	if !ok {
		writeError(ctx, w, http.StatusNotFound, "run not found or expired")
		return nil, false
	}
	return entry, true
}

func (s *Server) handleRunSummary(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.runFromRequest(w, r)
	if !ok {
		return
	}

	writeJSON(w, ingestResponse{
		RunID:       entry.ID,
		FileName:    entry.FileName,
		Report:      entry.Result.Report,
		Diagnostics: entry.Result.Diagnostics,
		Outputs:     partNames(entry.Parts),
		Rejected:    partNames(entry.Rejected),
	})
}

// handleRunOutput serves one exported part as a CSV download.
func (s *Server) handleRunOutput(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.runFromRequest(w, r)
	if !ok {
		return
	}

	name := chi.URLParam(r, "part")
	for _, part := range entry.Parts {
		if part.Name == name {
			serveCSV(w, part)
			return
		}
	}
	writeError(r.Context(), w, http.StatusNotFound, "output part not found")
}

// handleRunRejected serves the first rejected-audit part, or all rejected
// rows as JSON when ?format=json is set.
func (s *Server) handleRunRejected(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.runFromRequest(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, entry.Result.Rejected)
		return
	}

	if name := r.URL.Query().Get("part"); name != "" {
		for _, part := range entry.Rejected {
			if part.Name == name {
				serveCSV(w, part)
				return
			}
		}
		writeError(r.Context(), w, http.StatusNotFound, "rejected part not found")
		return
	}

	if len(entry.Rejected) == 0 {
		writeError(r.Context(), w, http.StatusNotFound, "run has no rejected rows")
		return
	}
	serveCSV(w, entry.Rejected[0])
}

// handleHistory lists persisted runs, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.store == nil {
		writeError(ctx, w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}

	limit := s.cfg.History.Recent
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := s.store.Recent(limit)
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, runs)
}

func serveCSV(w http.ResponseWriter, part ingest.Part) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+part.Name+`"`)
	_, _ = w.Write(part.Data)
}

func partNames(parts []ingest.Part) []string {
	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = p.Name
	}
	return names
}

// outputBase derives the export base name from the uploaded file name.
func outputBase(fileName string) string {
	base := filepath.Base(fileName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimSpace(base)
	if base == "" || base == "." {
		base = "contatos"
	}
	return base + "_processado"
}
