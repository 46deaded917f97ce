package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/crawlscope/crawlscope/internal/store"
	"github.com/crawlscope/crawlscope/pkg/audit"
	"github.com/crawlscope/crawlscope/pkg/remediation"
	"github.com/crawlscope/crawlscope/pkg/scoring"
)

const testReport = `{
  "site_url": "https://example.com",
  "audit_date": "2026-10-01",
  "urls": [
    {"url": "/a", "issues": {"content": [
      {"check_name": "h1_presence", "status": "critical", "message": "No H1", "severity": "high"},
      {"check_name": "title_length", "status": "warning", "message": "Too long", "severity": "medium", "value": 72}
    ]}},
    {"url": "/b", "issues": {"content": [
      {"check_name": "h1_presence", "status": "critical", "message": "No H1", "severity": "high"}
    ]}},
    {"url": "/c", "issues": {"content": [
      {"check_name": "h1_presence", "status": "critical", "message": "No H1", "severity": "high"}
    ]}}
  ]
}`

type fakeRemediator struct {
	mu    sync.Mutex
	calls []remediation.Request
	err   error
}

func (f *fakeRemediator) Remediate(_ context.Context, req remediation.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.err
}

type testServer struct {
	t       *testing.T
	mux     *http.ServeMux
	backend *store.Memory
	fixer   *fakeRemediator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	backend := store.NewMemory()
	fixer := &fakeRemediator{}
	h := NewHandler(backend, fixer, scoring.DefaultWeightTable(), WithSessionCache(NewSessionCache(10)))
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return &testServer{t: t, mux: mux, backend: backend, fixer: fixer}
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	ts.t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.mux.ServeHTTP(w, r)
	return w
}

func (ts *testServer) createSession() string {
	ts.t.Helper()
	w := ts.do("POST", "/api/sessions", "")
	if w.Code != http.StatusCreated {
		ts.t.Fatalf("create session: status %d: %s", w.Code, w.Body)
	}
	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	return resp["id"]
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v\n%s", err, w.Body)
	}
	return v
}

func TestAuditAndFixFlow(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession()
	base := "/api/sessions/" + id

	w := ts.do("POST", base+"/audits", testReport)
	if w.Code != http.StatusCreated {
		t.Fatalf("start audit: status %d: %s", w.Code, w.Body)
	}
	started := decode[summaryResponse](t, w)
	if started.Audit.Summary.CriticalIssues != 3 || started.Audit.Summary.Warnings != 1 {
		t.Errorf("tally = %+v", started.Audit.Summary)
	}

	w = ts.do("GET", base+"/issues", "")
	issues := decode[issuesResponse](t, w)
	if len(issues.Issues) != 2 || issues.Issues[0].IssueType != "h1_presence" {
		t.Errorf("issues = %+v", issues.Issues)
	}

	w = ts.do("GET", base+"/issues/h1_presence", "")
	inst := decode[instancesResponse](t, w)
	if len(inst.Instances) != 3 || inst.Weight != 10 {
		t.Errorf("instances = %+v", inst)
	}

	if w := ts.do("PUT", base+"/tab", `{"tab":"h1_presence"}`); w.Code != http.StatusOK {
		t.Fatalf("set tab: %d %s", w.Code, w.Body)
	}
	ts.do("POST", base+"/selection/toggle", `{"url":"/a"}`)
	w = ts.do("POST", base+"/selection/toggle", `{"url":"/b"}`)
	sel := decode[selectionResponse](t, w)
	if len(sel.Selected) != 2 || sel.Tab != "h1_presence" {
		t.Errorf("selection = %+v", sel)
	}

	w = ts.do("POST", base+"/fix/selected", "")
	if w.Code != http.StatusOK {
		t.Fatalf("fix selected: %d %s", w.Code, w.Body)
	}
	fixed := decode[fixResponse](t, w)
	if len(fixed.Result.Fixed) != 2 {
		t.Errorf("fixed = %v", fixed.Result.Fixed)
	}
	if len(ts.fixer.calls) != 1 || ts.fixer.calls[0].IssueType != "h1_presence" {
		t.Errorf("remediation calls = %+v", ts.fixer.calls)
	}

	w = ts.do("GET", base+"/summary", "")
	sum := decode[summaryResponse](t, w)
	if sum.Audit.Summary.CriticalIssues != 1 {
		t.Errorf("critical after fix = %d, want 1", sum.Audit.Summary.CriticalIssues)
	}
	if got := sum.Audit.URLs("h1_presence"); len(got) != 1 || got[0] != "/c" {
		t.Errorf("remaining = %v", got)
	}

	w = ts.do("GET", base+"/selection", "")
	if sel := decode[selectionResponse](t, w); len(sel.Selected) != 0 {
		t.Errorf("selection after fix = %v", sel.Selected)
	}
}

func TestSessionResumedAfterEviction(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession()
	ts.do("POST", "/api/sessions/"+id+"/audits", testReport)

	// A fresh handler over the same store has an empty cache.
	h := NewHandler(ts.backend, ts.fixer, scoring.DefaultWeightTable(), WithSessionCache(NewSessionCache(1)))
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/sessions/"+id+"/summary", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("resume: status %d: %s", w.Code, w.Body)
	}
	if h.cache.Len() != 1 {
		t.Errorf("resumed session not cached")
	}
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession()
	base := "/api/sessions/" + id

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"unknown session", "GET", "/api/sessions/nope/summary", "", http.StatusNotFound},
		{"malformed json", "POST", base + "/audits", "{", http.StatusBadRequest},
		{"missing site url", "POST", base + "/audits", `{"urls":[]}`, http.StatusBadRequest},
		{"crawl without crawler", "POST", base + "/audits", `{"site_url":"https://x"}`, http.StatusBadRequest},
		{"fix before audit", "POST", base + "/fix/all", "", http.StatusConflict},
		{"toggle before audit", "POST", base + "/selection/toggle", `{"url":"/a"}`, http.StatusConflict},
		{"fix one without url", "POST", base + "/fix", `{}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(tt.method, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body)
			}
		})
	}
}

func TestFixFailureReturnsBadGateway(t *testing.T) {
	ts := newTestServer(t)
	ts.fixer.err = errors.New("cms offline")
	id := ts.createSession()
	base := "/api/sessions/" + id
	ts.do("POST", base+"/audits", testReport)
	ts.do("PUT", base+"/tab", `{"tab":"h1_presence"}`)

	w := ts.do("POST", base+"/fix", `{"url":"/a"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502: %s", w.Code, w.Body)
	}

	w = ts.do("GET", base+"/summary", "")
	if sum := decode[summaryResponse](t, w); sum.Audit.Summary.CriticalIssues != 3 {
		t.Errorf("failed fix changed the summary: %+v", sum.Audit.Summary)
	}
}

func TestUnknownTab(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession()
	ts.do("POST", "/api/sessions/"+id+"/audits", testReport)

	w := ts.do("PUT", "/api/sessions/"+id+"/tab", `{"tab":"compression"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession()
	ts.do("POST", "/api/sessions/"+id+"/audits", testReport)

	if w := ts.do("DELETE", "/api/sessions/"+id, ""); w.Code != http.StatusOK {
		t.Fatalf("delete: %d", w.Code)
	}
	if _, err := ts.backend.Get(context.Background(), store.SummaryKey(id)); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("persisted summary survived delete: %v", err)
	}
	if w := ts.do("GET", "/api/sessions/"+id+"/summary", ""); w.Code != http.StatusNotFound {
		t.Errorf("summary after delete: %d, want 404", w.Code)
	}
}

func TestGzipAudit(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write([]byte(testReport))
	gz.Close()

	r := httptest.NewRequest("POST", "/api/sessions/"+id+"/audits", &buf)
	r.Header.Set("Content-Encoding", "gzip")
	w := httptest.NewRecorder()
	ts.mux.ServeHTTP(w, r)
	if w.Code != http.StatusCreated {
		t.Errorf("gzip audit: status %d: %s", w.Code, w.Body)
	}
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := CORS(APIKeyAuth("secret")(ok))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing key: %d", w.Code)
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-API-Key", "secret")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusNoContent {
		t.Errorf("valid key: %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("OPTIONS", "/", nil))
	if w.Code != http.StatusOK || w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight: %d %v", w.Code, w.Header())
	}
}

func TestIngestAudit(t *testing.T) {
	backend := store.NewMemory()
	h := NewHandler(backend, &fakeRemediator{}, scoring.DefaultWeightTable(), WithSessionCache(NewSessionCache(10)))
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	raw, err := audit.ParseReport([]byte(testReport))
	if err != nil {
		t.Fatalf("ParseReport: %v", err)
	}
	if err := h.IngestAudit(context.Background(), "pushed", raw); err != nil {
		t.Fatalf("IngestAudit: %v", err)
	}

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/sessions/pushed/issues/h1_presence", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("instances: status %d: %s", w.Code, w.Body)
	}
	if backend.Keys() != 1 {
		t.Errorf("stored keys = %d, want 1", backend.Keys())
	}

	bad := &audit.RawAuditReport{}
	if err := h.IngestAudit(context.Background(), "pushed", bad); !errors.Is(err, audit.ErrMalformedReport) {
		t.Errorf("IngestAudit(no site_url) = %v, want ErrMalformedReport", err)
	}
}
