package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PavoWillow/wine-data-toolkit/internal/cache"
	"github.com/PavoWillow/wine-data-toolkit/internal/genai"
	"github.com/PavoWillow/wine-data-toolkit/internal/metrics"
	"github.com/PavoWillow/wine-data-toolkit/internal/orchestrator"
)

type staticGenerator struct {
	text  string
	calls int
}

func (s *staticGenerator) Generate(_ context.Context, _ *genai.GenerateRequest) (*genai.GenerateResponse, error) {
	s.calls++
	return &genai.GenerateResponse{Text: s.text}, nil
}

func newHandler(gen genai.Generator) *QueryHandler {
	recorder := metrics.NewRecorder(metrics.DefaultCostModel, nil)
	o := orchestrator.New(cache.New(cache.NewMemoryStore(), 0), genai.NewRegistry(), gen, recorder)
	return NewQueryHandler(o, nil)
}

func postQuery(t *testing.T, h *QueryHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Query(w, req)
	return w
}

func TestQueryEndpoint(t *testing.T) {
	gen := &staticGenerator{text: "try a malbec"}
	h := newHandler(gen)

	w := postQuery(t, h, `{"query": "What wine pairs with steak?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp QueryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Response != "try a malbec" {
		t.Fatalf("unexpected answer %q", resp.Response)
	}
	if resp.CacheHit {
		t.Fatalf("first query must miss")
	}
	if !strings.HasPrefix(resp.ConversationID, "conv-") {
		t.Fatalf("expected minted conversation ID, got %q", resp.ConversationID)
	}
}

func TestQueryEndpointCacheHit(t *testing.T) {
	gen := &staticGenerator{text: "try a malbec"}
	h := newHandler(gen)

	postQuery(t, h, `{"query": "What wine pairs with steak?"}`)
	w := postQuery(t, h, `{"query": "what pairs well with a good steak"}`)

	var resp QueryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.CacheHit {
		t.Fatalf("reworded query must hit the cache")
	}
	if gen.calls != 1 {
		t.Fatalf("expected one generation, got %d", gen.calls)
	}
}

func TestQueryEndpointRejectsBadInput(t *testing.T) {
	h := newHandler(&staticGenerator{text: "ok"})

	if w := postQuery(t, h, `{not json`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid JSON, got %d", w.Code)
	}
	if w := postQuery(t, h, `{"query": "   "}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty query, got %d", w.Code)
	}
}

func TestMetricsEndpoints(t *testing.T) {
	h := newHandler(&staticGenerator{text: "ok"})

	postQuery(t, h, `{"query": "What is terroir?"}`)

	w := httptest.NewRecorder()
	h.Metrics(w, httptest.NewRequest(http.MethodGet, "/v1/metrics", nil))
	var agg metrics.Aggregates
	if err := json.Unmarshal(w.Body.Bytes(), &agg); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if agg.TotalQueries != 1 {
		t.Fatalf("expected one recorded query, got %d", agg.TotalQueries)
	}

	w = httptest.NewRecorder()
	h.ResetMetrics(w, httptest.NewRequest(http.MethodPost, "/v1/metrics/reset", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("reset failed: %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.Metrics(w, httptest.NewRequest(http.MethodGet, "/v1/metrics", nil))
	if err := json.Unmarshal(w.Body.Bytes(), &agg); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if agg.TotalQueries != 0 {
		t.Fatalf("counters must be zero after reset, got %d", agg.TotalQueries)
	}
}

func TestSessionsEndpointWithoutHistory(t *testing.T) {
	h := newHandler(&staticGenerator{text: "ok"})

	w := httptest.NewRecorder()
	h.Sessions(w, httptest.NewRequest(http.MethodGet, "/v1/sessions", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Fatalf("expected empty list, got %q", body)
	}
}
