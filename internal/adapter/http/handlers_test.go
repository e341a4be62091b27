package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/Gatekeeper/internal/adapter/memory"
	"github.com/Strob0t/Gatekeeper/internal/domain/tool"
	"github.com/Strob0t/Gatekeeper/internal/executor"
	"github.com/Strob0t/Gatekeeper/internal/middleware"
	"github.com/Strob0t/Gatekeeper/internal/ratelimit"
	"github.com/Strob0t/Gatekeeper/internal/resilience"
	"github.com/Strob0t/Gatekeeper/internal/service"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func newTestRouter(t *testing.T, sessionMax int) chi.Router {
	t.Helper()

	limiter := ratelimit.New(map[ratelimit.Scope]ratelimit.Config{
		ratelimit.ScopeSession: {Window: time.Minute, Max: sessionMax},
		ratelimit.ScopeTool:    {Window: time.Minute, Max: 100},
	}, 0)
	breakers := resilience.NewRegistry(resilience.Settings{})

	execs := executor.NewRegistry()
	for _, name := range []string{"search_catalog", "get_order_status", "update_profile", "upsert_segment", "delete_package"} {
		execs.Register(name, func(_ context.Context, _ string, _ json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`{"ok":true}`), nil
		})
	}

	store := memory.NewStore()
	proposals := service.NewProposalService(store, execs, 15*time.Minute, nil, nil, nil)
	notices := service.NewNoticeService(&mapCache{data: make(map[string][]byte)}, 2*time.Minute, nil)
	sessions := service.NewSessionTracker(256, 1000)

	orch := service.NewOrchestrator(service.OrchestratorDeps{
		Limiter:   limiter,
		Breakers:  breakers,
		Catalog:   tool.DefaultCatalog(),
		Executors: execs,
		Proposals: proposals,
		Notices:   notices,
		Sessions:  sessions,
	})

	r := chi.NewRouter()
	r.Use(middleware.TenantID)
	MountRoutes(r, NewHandlers(orch, notices))
	return r
}

func postTurn(t *testing.T, r chi.Router, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/turns", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandleTurnEndToEnd(t *testing.T) {
	r := newTestRouter(t, 100)

	rec := postTurn(t, r, `{
		"session_id": "s-1",
		"input": "refresh the vip segment",
		"calls": [{"tool": "upsert_segment", "payload": {"segment_id": "vip"}}]
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result service.TurnResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.TenantID != middleware.DefaultTenantID {
		t.Errorf("TenantID = %q, want default tenant", result.TenantID)
	}
	if len(result.Calls) != 1 || result.Calls[0].Status != service.CallProposed {
		t.Fatalf("unexpected calls: %+v", result.Calls)
	}

	// Confirm the proposal through the API.
	id := result.Calls[0].Proposal.ID
	req := httptest.NewRequest(http.MethodPost, "/api/v1/proposals/"+id+"/confirm", http.NoBody)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// A second confirm conflicts.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/proposals/"+id+"/confirm", http.NoBody)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("double confirm status = %d, want 409", rec.Code)
	}
}

func TestHandleTurnInvalidBody(t *testing.T) {
	r := newTestRouter(t, 100)

	rec := postTurn(t, r, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleTurnMissingSessionID(t *testing.T) {
	r := newTestRouter(t, 100)

	rec := postTurn(t, r, `{"input": "hello"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleTurnRateLimited(t *testing.T) {
	r := newTestRouter(t, 1)

	if rec := postTurn(t, r, `{"session_id": "s-1"}`); rec.Code != http.StatusOK {
		t.Fatalf("first turn status = %d", rec.Code)
	}

	rec := postTurn(t, r, `{"session_id": "s-1"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestGetProposalNotFound(t *testing.T) {
	r := newTestRouter(t, 100)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/proposals/unknown", http.NoBody)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRejectProposal(t *testing.T) {
	r := newTestRouter(t, 100)

	rec := postTurn(t, r, `{"session_id": "s-1", "calls": [{"tool": "delete_package"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("turn status = %d", rec.Code)
	}
	var result service.TurnResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	id := result.Calls[0].Proposal.ID

	req := httptest.NewRequest(http.MethodPost, "/api/v1/proposals/"+id+"/reject", http.NoBody)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("reject status = %d", rec.Code)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "rejected" {
		t.Errorf("status = %q, want rejected", body.Status)
	}
}

func TestNoticeLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t, 100)

	rec := postTurn(t, r, `{"session_id": "s-1", "calls": [{"tool": "update_profile"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("turn status = %d", rec.Code)
	}
	var result service.TurnResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Calls[0].Notice == nil {
		t.Fatal("expected notice for soft-confirm tool")
	}
	id := result.Calls[0].Notice.ID

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notices/"+id, http.NoBody)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get notice status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/notices/"+id+"/ack", http.NoBody)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("ack status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/notices/"+id, http.NoBody)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("acked notice status = %d, want 404", rec.Code)
	}
}

func TestGetBreakerState(t *testing.T) {
	r := newTestRouter(t, 100)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s-1/breaker", http.NoBody)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body breakerStateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.State != string(resilience.StateClosed) {
		t.Errorf("state = %q, want closed", body.State)
	}
}

func TestTenantHeaderSeparatesSessions(t *testing.T) {
	r := newTestRouter(t, 1)

	send := func(tenant string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/turns",
			strings.NewReader(`{"session_id": "shared"}`))
		req.Header.Set("X-Tenant-ID", tenant)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("tenant-a"); code != http.StatusOK {
		t.Fatalf("tenant-a first turn = %d", code)
	}
	if code := send("tenant-a"); code != http.StatusTooManyRequests {
		t.Fatalf("tenant-a second turn = %d, want 429", code)
	}
	// Same session id under another tenant has its own budget.
	if code := send("tenant-b"); code != http.StatusOK {
		t.Errorf("tenant-b turn = %d, want 200", code)
	}
}
