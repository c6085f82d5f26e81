package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"fidelize/internal/config"
	"fidelize/internal/history"
	"fidelize/internal/ingest"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1", Port: 0,
			RequestTimeout: 30 * time.Second,
			MaxFileSize:    1 << 20,
		},
		Ingest: config.IngestConfig{
			SampleRows: 150, ChunkSize: 5000, RejectedChunkSize: 5000,
			PhoneFormat: "punctuated", ConfidenceThreshold: 0.35, Workers: 2,
		},
		History: config.HistoryConfig{Recent: 50},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}
}

func newTestServer(t *testing.T, store *history.Store) *Server {
	t.Helper()
	s := NewServer(testConfig(), store)
	t.Cleanup(func() { s.runs.stop() })
	return s
}

// multipartBody builds a multipart form with a single "file" field, plus an
// optional mapping field.
func multipartBody(t *testing.T, fileName, content, mapping string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if mapping != "" {
		if err := mw.WriteField("mapping", mapping); err != nil {
			t.Fatalf("write mapping field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

const sampleCSV = "Nome;Telefone;Email;Pontos\n" +
	"Maria Silva;11987654321;maria@example.com;120\n" +
	"João Souza;123;;\n"

func postIngest(t *testing.T, s *Server, path, fileName, content, mapping string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fileName, content, mapping)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleIngest(t *testing.T) {
	s := newTestServer(t, nil)

	rec := postIngest(t, s, "/api/ingest", "clientes.csv", sampleCSV, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp ingestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RunID == uuid.Nil {
		t.Error("expected a run ID")
	}
	if resp.Report.TotalRead != 2 || resp.Report.TotalValid != 1 {
		t.Errorf("report = %+v", resp.Report)
	}
	if len(resp.Outputs) != 1 || resp.Outputs[0] != "clientes_processado.csv" {
		t.Errorf("outputs = %v", resp.Outputs)
	}
	if len(resp.Rejected) != 1 {
		t.Errorf("rejected outputs = %v", resp.Rejected)
	}
}

func TestHandleIngest_NoFile(t *testing.T) {
	s := newTestServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleIngest_ParseFailure(t *testing.T) {
	s := newTestServer(t, nil)

	rec := postIngest(t, s, "/api/ingest", "junk.csv", "no delimiters here", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleIngest_ManualMapping(t *testing.T) {
	s := newTestServer(t, nil)

	csv := "x;11987654321;Maria Silva\nx;21998765432;João Souza\n"
	mapping := `{"roles":{"name":2,"phone":1,"email":-1,"points":-1},"hasHeader":false}`
	rec := postIngest(t, s, "/api/ingest", "clientes.csv", csv, mapping)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp ingestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Diagnostics.Source != ingest.SourceManual {
		t.Errorf("source = %q, want manual", resp.Diagnostics.Source)
	}
	if resp.Report.TotalValid != 2 {
		t.Errorf("valid = %d, want 2", resp.Report.TotalValid)
	}
}

func TestHandleIngest_IncompleteMapping(t *testing.T) {
	s := newTestServer(t, nil)

	mapping := `{"roles":{"name":0,"phone":-1,"email":-1,"points":-1}}`
	rec := postIngest(t, s, "/api/ingest", "clientes.csv", sampleCSV, mapping)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandlePreview(t *testing.T) {
	s := newTestServer(t, nil)

	rec := postIngest(t, s, "/api/preview", "clientes.csv", sampleCSV, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Report      ingest.Report      `json:"report"`
		Diagnostics ingest.Diagnostics `json:"diagnostics"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Diagnostics.HeaderDetected {
		t.Error("expected header detection in preview")
	}
	if resp.Report.TotalRead != 2 {
		t.Errorf("read = %d, want 2", resp.Report.TotalRead)
	}
}

func TestHandleRunOutput(t *testing.T) {
	s := newTestServer(t, nil)

	rec := postIngest(t, s, "/api/ingest", "clientes.csv", sampleCSV, "")
	var resp ingestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/runs/"+resp.RunID.String()+"/output/"+resp.Outputs[0], nil)
	out := httptest.NewRecorder()
	s.Router().ServeHTTP(out, req)

	if out.Code != http.StatusOK {
		t.Fatalf("status = %d", out.Code)
	}
	if ct := out.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
	if !bytes.Contains(out.Body.Bytes(), []byte("Maria Silva")) {
		t.Error("expected accepted record in output")
	}
	if !bytes.Contains(out.Body.Bytes(), []byte("Pontos do fidelidade")) {
		t.Error("expected canonical header in output")
	}
}

func TestHandleRunRejected_JSON(t *testing.T) {
	s := newTestServer(t, nil)

	rec := postIngest(t, s, "/api/ingest", "clientes.csv", sampleCSV, "")
	var resp ingestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/runs/"+resp.RunID.String()+"/rejected?format=json", nil)
	out := httptest.NewRecorder()
	s.Router().ServeHTTP(out, req)

	if out.Code != http.StatusOK {
		t.Fatalf("status = %d", out.Code)
	}
	var rejected []ingest.Rejected
	if err := json.Unmarshal(out.Body.Bytes(), &rejected); err != nil {
		t.Fatalf("decode rejected: %v", err)
	}
	if len(rejected) != 1 || rejected[0].Reason != ingest.ReasonInvalidPhone {
		t.Errorf("rejected = %+v", rejected)
	}
}

func TestHandleRunSummary_UnknownRun(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleHistory(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	s := newTestServer(t, store)

	if rec := postIngest(t, s, "/api/ingest", "clientes.csv", sampleCSV, ""); rec.Code != http.StatusOK {
		t.Fatalf("ingest status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var runs []history.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 1 || runs[0].FileName != "clientes.csv" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestHandleHistory_Disabled(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestRunRegistry_Expiry(t *testing.T) {
	r := newRunRegistry(time.Minute)
	defer r.stop()

	entry := &runEntry{ID: uuid.New(), CreatedAt: time.Now().Add(-2 * time.Minute)}
	r.add(entry)
	fresh := &runEntry{ID: uuid.New(), CreatedAt: time.Now()}
	r.add(fresh)

	r.evictExpired(time.Now())

	if _, ok := r.get(entry.ID); ok {
		t.Error("expected expired entry to be evicted")
	}
	if _, ok := r.get(fresh.ID); !ok {
		t.Error("expected fresh entry to survive")
	}
}
