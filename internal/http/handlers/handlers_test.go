package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/vibecheck/vibecheck-dash/internal/api"
	"github.com/vibecheck/vibecheck-dash/internal/config"
	"github.com/vibecheck/vibecheck-dash/internal/livesync"
	"github.com/vibecheck/vibecheck-dash/internal/store"
)

type fakeBackend struct {
	mu          sync.Mutex
	assessments []api.Assessment
	findings    map[string][]api.Finding
	created     api.Assessment
	createdReq  api.CreateAssessmentRequest
	createCalls int
	listCalls   int
	analyze     json.RawMessage
	memory      api.MemorySearchResult
	memoryQuery string
	tunnels     []api.TunnelSession
	listErr     error
	findingsErr error
}

func (f *fakeBackend) ListAssessments(ctx context.Context, limit int) ([]api.Assessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]api.Assessment(nil), f.assessments...), nil
}

func (f *fakeBackend) GetAssessment(ctx context.Context, id string) (api.Assessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assessments {
		if a.ID == id {
			return a, nil
		}
	}
	return api.Assessment{}, &api.APIError{StatusCode: http.StatusNotFound, Message: "not found"}
}

func (f *fakeBackend) CreateAssessment(ctx context.Context, req api.CreateAssessmentRequest) (api.Assessment, error) {
	if err := req.Validate(); err != nil {
		return api.Assessment{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.createdReq = req
	return f.created, nil
}

func (f *fakeBackend) ListFindings(ctx context.Context, assessmentID string, limit int) ([]api.Finding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findingsErr != nil {
		return nil, f.findingsErr
	}
	return append([]api.Finding(nil), f.findings[assessmentID]...), nil
}

func (f *fakeBackend) AnalyzeFinding(ctx context.Context, assessmentID, findingID string) (json.RawMessage, error) {
	return f.analyze, nil
}

func (f *fakeBackend) SearchMemory(ctx context.Context, query string, limit int, assessmentID string) (api.MemorySearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memoryQuery = query
	return f.memory, nil
}

func (f *fakeBackend) ListTunnelSessions(ctx context.Context) ([]api.TunnelSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.TunnelSession(nil), f.tunnels...), nil
}

func (f *fakeBackend) WebSocketURL(assessmentID string) string {
	return "ws://backend.test/v1/assessments/" + assessmentID + "/ws"
}

func newTestHandlers(t *testing.T, backend *fakeBackend) *Handlers {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	assessments := store.NewAssessments()
	findings := store.NewFindings()
	tracker := livesync.New(ctx, livesync.Options{
		Backend:      backend,
		Assessments:  assessments,
		Findings:     findings,
		PollInterval: time.Hour,
		Dial: func(ctx context.Context, url string) (livesync.Conn, error) {
			return nil, errors.New("no push channel in tests")
		},
	})
	t.Cleanup(tracker.Untrack)

	return &Handlers{
		Cfg: config.Config{
			AssessmentsPerPage: 15,
			FindingsPerPage:    15,
			FindingsFetchLimit: 200,
			AssessmentsLimit:   50,
		},
		Client:      backend,
		Assessments: assessments,
		Findings:    findings,
		Tracker:     tracker,
		Refresher:   livesync.NewRefresher(ctx, tracker, time.Hour),
	}
}

func doRequest(t *testing.T, h func(*echo.Context) error, method, target string, body string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e := echo.New()
	c := e.NewContext(req, rec)
	if len(params) == 2 {
		c.SetPathValues(echo.PathValues{{Name: params[0], Value: params[1]}})
	}
	if err := h(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response: %v\n%s", err, rec.Body.String())
	}
}

func seedFindings(h *Handlers, owner string, items []api.Finding) {
	h.Assessments.ReplaceAll([]api.Assessment{{ID: owner, Status: api.StatusComplete}})
	h.Assessments.Select(owner)
	h.Findings.ReplaceAll(owner, items)
}

func TestHandleFindingsAppliesViewConfig(t *testing.T) {
	h := newTestHandlers(t, &fakeBackend{})
	seedFindings(h, "a1", []api.Finding{
		{ID: "f1", Severity: "high", Category: "injection", Agent: "sast", Title: "SQL injection"},
		{ID: "f2", Severity: "low", Category: "config", Agent: "dast", Title: "Verbose header"},
		{ID: "f3", Severity: "critical", Category: "injection", Agent: "sast", Title: "Command injection"},
	})

	rec := doRequest(t, h.HandleFindings, http.MethodGet, "/api/findings?category=injection", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp findingsResponse
	decodeBody(t, rec, &resp)
	if resp.TotalCount != 2 {
		t.Fatalf("total_count = %d, want 2", resp.TotalCount)
	}
	if resp.Items[0].ID != "f3" || resp.Items[1].ID != "f1" {
		t.Fatalf("unexpected severity order: %s, %s", resp.Items[0].ID, resp.Items[1].ID)
	}
	if len(resp.Categories) != 2 || len(resp.Agents) != 2 {
		t.Fatalf("filter options = %v / %v", resp.Categories, resp.Agents)
	}
}

func TestHandleFindingsWithoutSelection(t *testing.T) {
	h := newTestHandlers(t, &fakeBackend{})

	rec := doRequest(t, h.HandleFindings, http.MethodGet, "/api/findings", "")
	var resp findingsResponse
	decodeBody(t, rec, &resp)
	if resp.TotalCount != 0 || resp.TotalPages != 1 || resp.Page != 1 {
		t.Fatalf("unexpected empty view: %+v", resp)
	}
	if resp.Items == nil {
		t.Fatal("items should encode as an empty array, not null")
	}
}

func TestHandleFindingDetail(t *testing.T) {
	h := newTestHandlers(t, &fakeBackend{})
	seedFindings(h, "a1", []api.Finding{
		{ID: "f1", Severity: "high", Title: "XSS", Evidence: json.RawMessage(`{"req":"GET /"}`)},
	})

	rec := doRequest(t, h.HandleFindingDetail, http.MethodGet, "/api/findings/f1", "", "id", "f1")
	var resp findingDetail
	decodeBody(t, rec, &resp)
	if resp.Finding.ID != "f1" || !resp.EvidenceAvailable {
		t.Fatalf("unexpected detail: %+v", resp)
	}
	if resp.LocationText != "-" {
		t.Fatalf("location text = %q, want -", resp.LocationText)
	}

	rec = doRequest(t, h.HandleFindingDetail, http.MethodGet, "/api/findings/nope", "", "id", "nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleAnalyzeFindingPassthrough(t *testing.T) {
	backend := &fakeBackend{analyze: json.RawMessage(`{"verdict":"exploitable","confidence":0.9}`)}
	h := newTestHandlers(t, backend)
	seedFindings(h, "a1", []api.Finding{{ID: "f1", Severity: "high"}})

	rec := doRequest(t, h.HandleAnalyzeFinding, http.MethodPost, "/api/findings/f1/analyze", "", "id", "f1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != `{"verdict":"exploitable","confidence":0.9}` {
		t.Fatalf("analyzer payload rewritten: %s", got)
	}
}

func TestHandleFindingMemoryBuildsQuery(t *testing.T) {
	backend := &fakeBackend{memory: api.MemorySearchResult{Enabled: true}}
	h := newTestHandlers(t, backend)
	seedFindings(h, "a1", []api.Finding{
		{ID: "f1", Title: "SQL injection", Description: "login form concatenates input"},
	})

	rec := doRequest(t, h.HandleFindingMemory, http.MethodGet, "/api/findings/f1/memory", "", "id", "f1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if backend.memoryQuery != "SQL injection login form concatenates input" {
		t.Fatalf("memory query = %q", backend.memoryQuery)
	}
}

func TestHandleDashboard(t *testing.T) {
	h := newTestHandlers(t, &fakeBackend{})
	h.Assessments.ReplaceAll([]api.Assessment{
		{ID: "a1", Status: api.StatusComplete, FindingCounts: api.FindingCounts{"high": 2}},
		{ID: "a2", Status: api.StatusScanning},
		{ID: "a3", Status: api.StatusFailed},
	})
	h.Assessments.Select("a1")
	h.Findings.ReplaceAll("a1", []api.Finding{
		{ID: "f1", Severity: "high"},
		{ID: "f2", Severity: "high"},
	})

	rec := doRequest(t, h.HandleDashboard, http.MethodGet, "/api/dashboard", "")
	var resp dashboardResponse
	decodeBody(t, rec, &resp)
	if resp.Stats.Total != 3 || resp.Stats.Active != 1 || resp.Stats.Complete != 1 || resp.Stats.Failed != 1 {
		t.Fatalf("stats = %+v", resp.Stats)
	}
	if resp.Selected != "a1" || resp.AutoRefresh {
		t.Fatalf("selection state = %+v", resp)
	}
	if resp.Severity[1].Severity != "high" || resp.Severity[1].Count != 2 {
		t.Fatalf("severity histogram = %+v", resp.Severity)
	}
	if len(resp.Trend) != 3 {
		t.Fatalf("trend length = %d", len(resp.Trend))
	}
}

func TestHandleSelectAssessment(t *testing.T) {
	backend := &fakeBackend{
		assessments: []api.Assessment{{ID: "a1", Status: api.StatusComplete}},
		findings:    map[string][]api.Finding{"a1": {{ID: "f1", Severity: "low"}}},
	}
	h := newTestHandlers(t, backend)
	h.Assessments.ReplaceAll(backend.assessments)

	rec := doRequest(t, h.HandleSelectAssessment, http.MethodPost, "/api/assessments/a1/select", "", "id", "a1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	decodeBody(t, rec, &resp)
	if resp["selected"] != "a1" || resp["finding_count"] != float64(1) {
		t.Fatalf("unexpected response: %v", resp)
	}
	if _, ok := h.Findings.ForOwner("a1"); !ok {
		t.Fatal("findings were not stored for the selection")
	}
	// Complete assessments are not live-tracked.
	if got := h.Tracker.Current(); got != "" {
		t.Fatalf("tracker current = %q, want idle", got)
	}
}

func TestHandleSelectUnknownRetriesListThenNotFound(t *testing.T) {
	backend := &fakeBackend{}
	h := newTestHandlers(t, backend)

	rec := doRequest(t, h.HandleSelectAssessment, http.MethodPost, "/api/assessments/ghost/select", "", "id", "ghost")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if backend.listCalls != 1 {
		t.Fatalf("list calls = %d, want 1 retry fetch", backend.listCalls)
	}
}

func TestHandleCreateAssessmentValidates(t *testing.T) {
	backend := &fakeBackend{}
	h := newTestHandlers(t, backend)

	rec := doRequest(t, h.HandleCreateAssessment, http.MethodPost, "/api/assessments",
		`{"mode":"lightweight"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if backend.createCalls != 0 {
		t.Fatalf("create calls = %d, want 0", backend.createCalls)
	}
}

func TestHandleCreateAssessmentSelectsAndTracks(t *testing.T) {
	backend := &fakeBackend{
		created: api.Assessment{ID: "a9", Status: api.StatusQueued},
	}
	h := newTestHandlers(t, backend)

	rec := doRequest(t, h.HandleCreateAssessment, http.MethodPost, "/api/assessments",
		`{"mode":"lightweight","repo_url":"https://github.com/acme/app"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if backend.createdReq.IdempotencyKey == "" {
		t.Fatal("idempotency key was not generated")
	}
	if h.Assessments.Selected() != "a9" {
		t.Fatalf("selected = %q, want a9", h.Assessments.Selected())
	}
	if h.Tracker.Current() != "a9" {
		t.Fatalf("tracker current = %q, want a9", h.Tracker.Current())
	}
	if h.Findings.Owner() != "a9" {
		t.Fatalf("findings owner = %q, want a9", h.Findings.Owner())
	}
}

func TestHandleRefreshReplacesList(t *testing.T) {
	backend := &fakeBackend{
		assessments: []api.Assessment{{ID: "a1", Status: api.StatusScanning}, {ID: "a2", Status: api.StatusComplete}},
	}
	h := newTestHandlers(t, backend)

	rec := doRequest(t, h.HandleRefresh, http.MethodPost, "/api/refresh", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if h.Assessments.Len() != 2 {
		t.Fatalf("store length = %d, want 2", h.Assessments.Len())
	}
}

func TestHandleRefreshBackendDown(t *testing.T) {
	backend := &fakeBackend{listErr: &api.APIError{StatusCode: http.StatusInternalServerError, Message: "HTTP 500"}}
	h := newTestHandlers(t, backend)

	rec := doRequest(t, h.HandleRefresh, http.MethodPost, "/api/refresh", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var body errorBody
	decodeBody(t, rec, &body)
	if body.Error.Message == "" {
		t.Fatal("error envelope missing message")
	}
}

func TestHandleExportCSV(t *testing.T) {
	h := newTestHandlers(t, &fakeBackend{})
	seedFindings(h, "a1", []api.Finding{{ID: "f1", Severity: "high", Title: "XSS"}})

	rec := doRequest(t, h.HandleExportCSV, http.MethodGet, "/export/findings.csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), `"id","severity","category","title","agent","location","created_at","description","remediation"`) {
		t.Fatalf("unexpected CSV header: %s", rec.Body.String())
	}
	cd := rec.Header().Get("Content-Disposition")
	if !strings.Contains(cd, "findings-a1-") || !strings.Contains(cd, ".csv") {
		t.Fatalf("content disposition = %q", cd)
	}
}

func TestHandleExportWithoutSelection(t *testing.T) {
	h := newTestHandlers(t, &fakeBackend{})

	rec := doRequest(t, h.HandleExportJSON, http.MethodGet, "/export/findings.json", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestHandleTunnelSessionsFiltersConnected(t *testing.T) {
	backend := &fakeBackend{tunnels: []api.TunnelSession{
		{ID: "t1", Status: "connected"},
		{ID: "t2", Status: "disconnected"},
	}}
	h := newTestHandlers(t, backend)

	rec := doRequest(t, h.HandleTunnelSessions, http.MethodGet, "/api/tunnel-sessions", "")
	var resp struct {
		Data []api.TunnelSession `json:"data"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Data) != 1 || resp.Data[0].ID != "t1" {
		t.Fatalf("unexpected sessions: %+v", resp.Data)
	}
}

func TestHandleAutoRefreshToggle(t *testing.T) {
	h := newTestHandlers(t, &fakeBackend{})

	rec := doRequest(t, h.HandleAutoRefresh, http.MethodPost, "/api/auto-refresh", "")
	var resp map[string]bool
	decodeBody(t, rec, &resp)
	if !resp["auto_refresh"] {
		t.Fatal("toggle did not start the refresher")
	}

	rec = doRequest(t, h.HandleAutoRefresh, http.MethodPost, "/api/auto-refresh", "")
	decodeBody(t, rec, &resp)
	if resp["auto_refresh"] {
		t.Fatal("second toggle did not stop the refresher")
	}
}
