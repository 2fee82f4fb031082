// Package metrics tracks per-session cache performance: hit/miss
// counts, latency buckets, per-category stats, and the derived cost
// figures, alongside the process-level prometheus metrics.
package metrics

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// Outcome of a completed cache lookup.
type Outcome string

const (
	OutcomeHit  Outcome = "hit"
	OutcomeMiss Outcome = "miss"
)

const (
	maxQueryLen    = 100
	maxDetailLen   = 200
	maxQueryLog    = 50
	maxErrorLog    = 50
	queryLogSuffix = "..."
)

// CostModel estimates the spend a cache hit avoids.
type CostModel struct {
	TokensPerResponse int
	CostPer1KTokens   float64
}

// DefaultCostModel mirrors typical generation pricing; configurable.
var DefaultCostModel = CostModel{
	TokensPerResponse: 1000,
	CostPer1KTokens:   0.002,
}

// CategoryStats is the hit/miss breakdown for one query category.
type CategoryStats struct {
	Total  int `json:"total"`
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
}

// QueryLogEntry is one line of the bounded rolling query log.
type QueryLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Query     string    `json:"query"`
	CacheHit  bool      `json:"cache_hit"`
	Latency   float64   `json:"response_time"`
	Category  string    `json:"query_type,omitempty"`
}

// ErrorEntry is one absorbed failure.
type ErrorEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"type"`
	Detail    string    `json:"details,omitempty"`
}

// Aggregates is a derived snapshot of the session. All values are
// recomputed from the raw counters on demand, never drifted.
type Aggregates struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`

	TotalQueries int `json:"total_queries"`
	CacheHits    int `json:"cache_hits"`
	CacheMisses  int `json:"cache_misses"`
	APIErrors    int `json:"api_errors"`

	HitRate  float64 `json:"cache_hit_rate"`
	MissRate float64 `json:"cache_miss_rate"`

	AvgResponseTime   float64 `json:"avg_response_time"`
	AvgCacheHitTime   float64 `json:"avg_cache_hit_time"`
	AvgGenerationTime float64 `json:"avg_generation_time"`

	TokensSaved   int     `json:"estimated_tokens_saved"`
	CostSaved     float64 `json:"estimated_cost_saved"`
	PotentialCost float64 `json:"potential_cost_without_caching"`
	ActualCost    float64 `json:"actual_cost_with_caching"`
	CostReduction float64 `json:"cost_reduction_percentage"`

	Categories    map[string]CategoryStats `json:"query_types"`
	RecentQueries []QueryLogEntry          `json:"query_log"`
	Errors        []ErrorEntry             `json:"errors,omitempty"`
}

// HistorySink receives finished session aggregates on reset.
type HistorySink interface {
	SaveSession(ctx context.Context, agg Aggregates) error
}

// Recorder accumulates one session's metrics. Safe for concurrent use;
// a single mutex serializes updates so concurrent hits and misses are
// never lost.
type Recorder struct {
	mu      sync.Mutex
	cost    CostModel
	history HistorySink

	startTime     time.Time
	totalQueries  int
	cacheHits     int
	cacheMisses   int
	apiErrors     int
	responseTimes []float64
	hitTimes      []float64
	missTimes     []float64
	categories    map[string]*CategoryStats
	queryLog      []QueryLogEntry
	errorLog      []ErrorEntry
}

// NewRecorder starts a fresh session. history may be nil; Reset then
// discards the flushed aggregate.
func NewRecorder(cost CostModel, history HistorySink) *Recorder {
	if cost.TokensPerResponse <= 0 {
		cost = DefaultCostModel
	}
	return &Recorder{
		cost:       cost,
		history:    history,
		startTime:  time.Now(),
		categories: make(map[string]*CategoryStats),
	}
}

// Record logs one completed lookup outcome.
func (r *Recorder) Record(outcome Outcome, latency time.Duration, category, queryText string) {
	seconds := latency.Seconds()
	hit := outcome == OutcomeHit

	if hit {
		CacheHitsTotal.Inc()
	} else {
		CacheMissesTotal.Inc()
	}
	QueryLatencySeconds.WithLabelValues(string(outcome)).Observe(seconds)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.totalQueries++
	r.responseTimes = append(r.responseTimes, seconds)
	if hit {
		r.cacheHits++
		r.hitTimes = append(r.hitTimes, seconds)
	} else {
		r.cacheMisses++
		r.missTimes = append(r.missTimes, seconds)
	}

	if category != "" {
		stats := r.categories[category]
		if stats == nil {
			stats = &CategoryStats{}
			r.categories[category] = stats
		}
		stats.Total++
		if hit {
			stats.Hits++
		} else {
			stats.Misses++
		}
	}

	r.queryLog = append(r.queryLog, QueryLogEntry{
		Timestamp: time.Now(),
		Query:     truncate(queryText, maxQueryLen),
		CacheHit:  hit,
		Latency:   seconds,
		Category:  category,
	})
	if len(r.queryLog) > maxQueryLog {
		r.queryLog = r.queryLog[len(r.queryLog)-maxQueryLog:]
	}
}

// RecordError logs an absorbed failure. Hit/miss counters are not
// affected.
func (r *Recorder) RecordError(kind, detail string) {
	ErrorsTotal.WithLabelValues(kind).Inc()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.apiErrors++
	r.errorLog = append(r.errorLog, ErrorEntry{
		Timestamp: time.Now(),
		Kind:      kind,
		Detail:    truncate(detail, maxDetailLen),
	})
	if len(r.errorLog) > maxErrorLog {
		r.errorLog = r.errorLog[len(r.errorLog)-maxErrorLog:]
	}
}

// Snapshot derives the current aggregates.
func (r *Recorder) Snapshot() Aggregates {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deriveLocked()
}

// Reset flushes the current session to the history sink, then
// reinitializes every counter. The flushed aggregate carries an end
// timestamp. When the flush fails the counters are left intact so the
// session can be flushed again later.
func (r *Recorder) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	agg := r.deriveLocked()
	agg.EndTime = time.Now()

	if r.history != nil {
		if err := r.history.SaveSession(ctx, agg); err != nil {
			return fmt.Errorf("flush session history: %w", err)
		}
	}

	r.startTime = time.Now()
	r.totalQueries = 0
	r.cacheHits = 0
	r.cacheMisses = 0
	r.apiErrors = 0
	r.responseTimes = nil
	r.hitTimes = nil
	r.missTimes = nil
	r.categories = make(map[string]*CategoryStats)
	r.queryLog = nil
	r.errorLog = nil
	return nil
}

func (r *Recorder) deriveLocked() Aggregates {
	agg := Aggregates{
		StartTime:    r.startTime,
		TotalQueries: r.totalQueries,
		CacheHits:    r.cacheHits,
		CacheMisses:  r.cacheMisses,
		APIErrors:    r.apiErrors,
		Categories:   make(map[string]CategoryStats, len(r.categories)),
	}

	if r.totalQueries > 0 {
		agg.HitRate = round2(float64(r.cacheHits) / float64(r.totalQueries) * 100)
		agg.MissRate = round2(float64(r.cacheMisses) / float64(r.totalQueries) * 100)
	}

	agg.AvgResponseTime = round2(mean(r.responseTimes))
	agg.AvgCacheHitTime = round2(mean(r.hitTimes))
	agg.AvgGenerationTime = round2(mean(r.missTimes))

	tokensSaved := r.cacheHits * r.cost.TokensPerResponse
	costSaved := float64(tokensSaved) / 1000 * r.cost.CostPer1KTokens
	potentialCost := float64(r.totalQueries*r.cost.TokensPerResponse) / 1000 * r.cost.CostPer1KTokens
	actualCost := float64(r.cacheMisses*r.cost.TokensPerResponse) / 1000 * r.cost.CostPer1KTokens

	agg.TokensSaved = tokensSaved
	agg.CostSaved = round4(costSaved)
	agg.PotentialCost = round4(potentialCost)
	agg.ActualCost = round4(actualCost)
	if potentialCost > 0 {
		agg.CostReduction = round2(costSaved / potentialCost * 100)
	}

	for name, stats := range r.categories {
		agg.Categories[name] = *stats
	}
	agg.RecentQueries = append([]QueryLogEntry(nil), r.queryLog...)
	agg.Errors = append([]ErrorEntry(nil), r.errorLog...)

	return agg
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + queryLogSuffix
}
