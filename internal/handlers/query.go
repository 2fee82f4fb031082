// Package handlers implements the HTTP surface over the orchestrator:
// query processing, metrics snapshots, and session history.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/PavoWillow/wine-data-toolkit/internal/metrics"
	"github.com/PavoWillow/wine-data-toolkit/internal/orchestrator"
	"github.com/PavoWillow/wine-data-toolkit/internal/query"
	"github.com/PavoWillow/wine-data-toolkit/pkg/logging"
)

// QueryRequest is the POST /v1/query payload.
type QueryRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
	Category       string `json:"category,omitempty"`
}

// QueryResponse is the processed answer.
type QueryResponse struct {
	Response       string  `json:"response"`
	ConversationID string  `json:"conversation_id"`
	CacheHit       bool    `json:"cache_hit"`
	LatencyMS      float64 `json:"latency_ms"`
}

// QueryHandler holds dependencies for the query endpoints.
type QueryHandler struct {
	Orchestrator *orchestrator.Orchestrator
	History      *metrics.SQLiteHistory
}

func NewQueryHandler(o *orchestrator.Orchestrator, history *metrics.SQLiteHistory) *QueryHandler {
	return &QueryHandler{Orchestrator: o, History: history}
}

// Query handles POST /v1/query.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid request", zap.Error(err))
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	result, err := h.Orchestrator.Process(ctx, req.Query, req.ConversationID, req.Category)
	if err != nil {
		if errors.Is(err, query.ErrEmptyQuery) {
			http.Error(w, "query is required", http.StatusBadRequest)
			return
		}
		logger.Error("query processing failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	logger.Info("query_processed",
		zap.String("conversation_id", result.ConversationID),
		zap.Bool("cache_hit", result.WasCacheHit),
		zap.Duration("latency", result.Latency),
	)

	h.writeJSON(w, QueryResponse{
		Response:       result.AnswerText,
		ConversationID: result.ConversationID,
		CacheHit:       result.WasCacheHit,
		LatencyMS:      float64(result.Latency.Microseconds()) / 1000,
	})
}

// Metrics handles GET /v1/metrics.
func (h *QueryHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.Orchestrator.MetricsSnapshot())
}

// ResetMetrics handles POST /v1/metrics/reset: the live session is
// flushed to history and the counters start over.
func (h *QueryHandler) ResetMetrics(w http.ResponseWriter, r *http.Request) {
	if err := h.Orchestrator.ResetMetrics(r.Context()); err != nil {
		logging.L(r.Context()).Error("metrics reset failed", zap.Error(err))
		http.Error(w, "reset failed", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, map[string]string{"status": "reset"})
}

// Sessions handles GET /v1/sessions.
func (h *QueryHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		h.writeJSON(w, []metrics.SessionSummary{})
		return
	}
	sessions, err := h.History.ListSessions(r.Context(), 20)
	if err != nil {
		logging.L(r.Context()).Error("session listing failed", zap.Error(err))
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []metrics.SessionSummary{}
	}
	h.writeJSON(w, sessions)
}

func (h *QueryHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
