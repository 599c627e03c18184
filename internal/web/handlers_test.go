package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tablediff/tablediff/internal/config"
	"github.com/tablediff/tablediff/internal/core"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.RequestTimeout = time.Minute
	cfg.Engine.MaxBodySize = 1 << 20
	cfg.Engine.HistoryLimit = 50
	cfg.Engine.HistoryMaxLimit = 500
	cfg.Rate.Enabled = false

	service, err := core.NewService(nil, cfg)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return NewServer(service, cfg)
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/healthz", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Status  string `json:"status"`
		History bool   `json:"history"`
	}
	decodeBody(t, rec, &body)
	if body.Status != "ok" || body.History {
		t.Errorf("body = %+v, want status ok with history disabled", body)
	}
}

func TestHandleParse(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/parse",
		`{"text":"name,age\nJohn,25\nJane,30","label":"people.csv"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Headers []string                     `json:"headers"`
		Columns []string                     `json:"columns"`
		Data    []map[string]json.RawMessage `json:"data"`
	}
	decodeBody(t, rec, &body)
	if len(body.Headers) != 2 || body.Headers[0] != "name" {
		t.Errorf("headers = %v, want [name age]", body.Headers)
	}
	if len(body.Data) != 2 {
		t.Errorf("len(data) = %d, want 2", len(body.Data))
	}
}

func TestHandleParse_DuplicateHeadersIs422(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/parse",
		`{"text":"id,id\n1,2","label":"dup.csv"}`)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	var body errorResponse
	decodeBody(t, rec, &body)
	if body.Kind != "duplicate_headers" {
		t.Errorf("kind = %q, want %q", body.Kind, "duplicate_headers")
	}
	if body.Label != "dup.csv" {
		t.Errorf("label = %q, want %q", body.Label, "dup.csv")
	}
	if !strings.Contains(body.Error, "dup.csv") {
		t.Errorf("error = %q, want the verbatim engine message naming the file", body.Error)
	}
}

func TestHandleParse_MalformedJSONIs400(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/parse", `{"text": `)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var body errorResponse
	decodeBody(t, rec, &body)
	if body.Kind != "invalid_argument" {
		t.Errorf("kind = %q, want %q", body.Kind, "invalid_argument")
	}
}

func TestHandleParse_BodyTooLargeIs413(t *testing.T) {
	s := newTestServer(t)
	s.cfg.Engine.MaxBodySize = 16

	rec := doJSON(t, s, http.MethodPost, "/api/parse",
		`{"text":"name,age\nJohn,25","label":"big.csv"}`)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
}

func TestHandleFilter(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/filter",
		`{"left":{"text":"id\n1\n2\n3"},"right":{"text":"id\n2"},"column":"id"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		RunID   string `json:"runId"`
		Summary struct {
			Processed int `json:"processed"`
			Kept      int `json:"kept"`
			Dropped   int `json:"dropped"`
		} `json:"summary"`
	}
	decodeBody(t, rec, &body)
	if body.RunID == "" {
		t.Error("runId missing from response")
	}
	if body.Summary.Processed != 3 || body.Summary.Kept != 2 || body.Summary.Dropped != 1 {
		t.Errorf("summary = %+v, want 3 processed, 2 kept, 1 dropped", body.Summary)
	}
}

func TestHandleFilter_UnknownModeIs400(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/filter",
		`{"left":{"text":"id\n1"},"right":{"text":"id\n1"},"column":"id","mode":"invert"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleCompare(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/compare",
		`{"left":{"text":"id,v\n1,100\n2,200"},"right":{"text":"id,v\n1,100\n2,250"},"keyColumn":"id","valueColumn":"v"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		KeyColumn string `json:"keyColumnName"`
		Summary   struct {
			Total   int `json:"total"`
			Matched int `json:"matched"`
			Diff    int `json:"diff"`
		} `json:"summary"`
	}
	decodeBody(t, rec, &body)
	if body.KeyColumn != "id" {
		t.Errorf("keyColumnName = %q, want %q", body.KeyColumn, "id")
	}
	if body.Summary.Total != 2 || body.Summary.Matched != 1 || body.Summary.Diff != 1 {
		t.Errorf("summary = %+v, want total 2, matched 1, diff 1", body.Summary)
	}
}

func TestHandleCompare_MissingColumnsIs400(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/compare",
		`{"left":{"text":"id,v\n1,100"},"right":{"text":"id,v\n1,100"},"valueColumn":"v"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleExport(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/export",
		`{"headers":["a","b"],"data":[{"a":"1","b":"x,y"}],"fileName":"out.csv"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "out.csv") {
		t.Errorf("Content-Disposition = %q, want it to name out.csv", cd)
	}

	want := "a,b\n1,\"x,y\"\n"
	if rec.Body.String() != want {
		t.Errorf("body = %q, want %q", rec.Body.String(), want)
	}
}

func TestHandleExport_NoHeadersIs400(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/export", `{"data":[{"a":"1"}]}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleRuns_HistoryDisabledIs404(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/runs", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/runs status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/runs/4a79e577-3a37-4176-8f8b-37c414b1f1a1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/runs/{id} status = %d, want 404", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/healthz", "")

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)

	if !rl.allow("10.0.0.1") || !rl.allow("10.0.0.1") {
		t.Fatal("first two requests should be allowed")
	}
	if rl.allow("10.0.0.1") {
		t.Error("third request within the window should be rejected")
	}
	if !rl.allow("10.0.0.2") {
		t.Error("a different IP should have its own bucket")
	}
}
