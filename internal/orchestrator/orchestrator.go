// Package orchestrator runs the full query path: normalization, cache
// lookup, generation with retries, write-back, conversation tracking,
// and metrics accounting. Only an empty query is an error to callers;
// every downstream failure turns into a degraded answer.
package orchestrator

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/PavoWillow/wine-data-toolkit/internal/cache"
	"github.com/PavoWillow/wine-data-toolkit/internal/genai"
	"github.com/PavoWillow/wine-data-toolkit/internal/metrics"
	"github.com/PavoWillow/wine-data-toolkit/internal/query"
	"github.com/PavoWillow/wine-data-toolkit/pkg/logging"
)

// maxQueryLen bounds the query text sent to the backend so the whole
// request stays under its context budget.
const maxQueryLen = 450

// Degraded answers by failure kind, returned when generation fails
// after retries.
const (
	msgRateLimited = "I'm currently experiencing high demand. Please try again in a moment."
	msgTimeout     = "It's taking longer than expected to process your request. Could you try asking in a simpler way?"
	msgGeneric     = "I encountered an issue while processing your question. Could you try rephrasing or asking a new question?"
)

// Result is one processed query.
type Result struct {
	AnswerText     string
	ConversationID string
	WasCacheHit    bool
	Latency        time.Duration
}

// Orchestrator wires the cache, registries, generator, and metrics
// into the single query-processing surface. Safe for concurrent use.
type Orchestrator struct {
	normalizer *query.Normalizer
	cache      *cache.ResponseCache
	registry   *genai.Registry
	generator  genai.Generator
	recorder   *metrics.Recorder

	mu            sync.Mutex
	conversations map[string]*conversation
}

// New builds an Orchestrator. The generator should already carry its
// retry policy.
func New(rc *cache.ResponseCache, registry *genai.Registry, gen genai.Generator, recorder *metrics.Recorder) *Orchestrator {
	return &Orchestrator{
		normalizer:    query.New(),
		cache:         rc,
		registry:      registry,
		generator:     gen,
		recorder:      recorder,
		conversations: make(map[string]*conversation),
	}
}

// Process answers one query. conversationID continues an existing
// session when set; categoryHint forces a prompt when it names a
// registered one. The only error returned is query.ErrEmptyQuery.
func (o *Orchestrator) Process(ctx context.Context, queryText, conversationID, categoryHint string) (*Result, error) {
	start := time.Now()
	logger := logging.L(ctx)

	ess, err := o.normalizer.Normalize(queryText)
	if err != nil {
		return nil, err
	}

	conv := o.conversation(conversationID)

	hint := categoryHint
	o.mu.Lock()
	hasHistory := len(conv.turns) > 0
	if hint == "" && hasHistory && o.normalizer.IsFollowUp(queryText) {
		hint = o.inferPromptHint(queryText, conv)
	}
	o.mu.Unlock()

	prompt := o.registry.SelectPrompt(queryText, ess, hint)
	dataSource := o.registry.SelectDataSource(queryText, ess)

	// Generation inside an ongoing session sees that session's prior
	// turns, so any answer it produces is conditioned on them. Those
	// answers are keyed and attributed to the session; only the first
	// exchange, generated against a fresh context, shares the global
	// cache.
	keyConversation := ""
	if hasHistory {
		keyConversation = conv.id
	}
	key := cache.DeriveKey(ess.Text, dataSource.ID, prompt.ID, keyConversation)

	logger.Debug("query_routed",
		zap.String("essence", ess.Text),
		zap.String("category", string(ess.Category)),
		zap.String("prompt_id", prompt.ID),
		zap.String("data_source_id", dataSource.ID),
		zap.String("cache_key", key),
	)

	if answer := o.cache.Lookup(ctx, queryText, ess, key, dataSource.ID, keyConversation); answer != nil {
		latency := time.Since(start)
		o.appendTurns(conv, queryText, answer.AnswerText, prompt.ID)
		o.recorder.Record(metrics.OutcomeHit, latency, string(ess.Category), queryText)
		return &Result{
			AnswerText:     answer.AnswerText,
			ConversationID: conv.id,
			WasCacheHit:    true,
			Latency:        latency,
		}, nil
	}

	resp, err := o.generator.Generate(ctx, &genai.GenerateRequest{
		SystemPrompt:        prompt.Instructions,
		Query:               truncateQuery(queryText),
		ConversationContext: o.conversationContext(conv),
		DataSourceID:        dataSource.ID,
	})
	if err != nil {
		latency := time.Since(start)
		kind := genai.ErrorKindOf(err)
		logger.Warn("generation_failed",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		// A failed generation still consumed an attempt: it counts as a
		// miss alongside the error record.
		o.recorder.RecordError(string(kind), err.Error())
		o.recorder.Record(metrics.OutcomeMiss, latency, string(ess.Category), queryText)
		return &Result{
			AnswerText:     degradedMessage(kind),
			ConversationID: conv.id,
			Latency:        latency,
		}, nil
	}

	stored := &cache.CachedAnswer{
		Key:            key,
		QueryText:      query.CleanText(queryText),
		AnswerText:     resp.Text,
		DataSourceID:   dataSource.ID,
		PromptID:       prompt.ID,
		ConversationID: keyConversation,
		CreatedAt:      time.Now(),
	}
	if err := o.cache.Store(ctx, stored); err != nil {
		// Losing the write-back degrades future hit rate, not this answer.
		logger.Warn("cache_store_failed", zap.String("cache_key", key), zap.Error(err))
		o.recorder.RecordError("cache_store_failed", err.Error())
	}

	latency := time.Since(start)
	o.appendTurns(conv, queryText, resp.Text, prompt.ID)
	o.recorder.Record(metrics.OutcomeMiss, latency, string(ess.Category), queryText)
	return &Result{
		AnswerText:     resp.Text,
		ConversationID: conv.id,
		Latency:        latency,
	}, nil
}

// MetricsSnapshot returns the live session aggregates.
func (o *Orchestrator) MetricsSnapshot() metrics.Aggregates {
	return o.recorder.Snapshot()
}

// ResetMetrics flushes the session to history and zeroes the counters.
func (o *Orchestrator) ResetMetrics(ctx context.Context) error {
	return o.recorder.Reset(ctx)
}

// ResetConversation drops a session and its history. Unknown IDs are a
// no-op; reusing the ID afterwards starts a fresh session under it.
func (o *Orchestrator) ResetConversation(conversationID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.conversations, conversationID)
}

// maxConversations caps the tracked sessions. When a new session would
// exceed it, the least recently active one is dropped.
const maxConversations = 1000

// conversation returns the session for id, creating it (and minting an
// ID when none was given).
func (o *Orchestrator) conversation(id string) *conversation {
	o.mu.Lock()
	defer o.mu.Unlock()

	if id == "" {
		id = newConversationID()
	}
	conv, ok := o.conversations[id]
	if !ok {
		if len(o.conversations) >= maxConversations {
			o.evictIdleLocked()
		}
		conv = &conversation{id: id}
		o.conversations[id] = conv
	}
	conv.lastActive = time.Now()
	return conv
}

// evictIdleLocked removes the least recently active session. A client
// still holding the evicted ID simply starts over with empty history.
// Caller holds the lock.
func (o *Orchestrator) evictIdleLocked() {
	var oldestID string
	var oldest time.Time
	for id, conv := range o.conversations {
		if oldestID == "" || conv.lastActive.Before(oldest) {
			oldestID = id
			oldest = conv.lastActive
		}
	}
	if oldestID != "" {
		delete(o.conversations, oldestID)
	}
}

func (o *Orchestrator) appendTurns(conv *conversation, userText, answerText, promptID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	conv.append(userText, answerText, promptID)
}

func (o *Orchestrator) conversationContext(conv *conversation) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return conv.context()
}

// inferPromptHint routes a follow-up to a prompt: current-query cues
// first, then the prompt that answered the previous turn. Caller holds
// the lock.
func (o *Orchestrator) inferPromptHint(queryText string, conv *conversation) string {
	lower := strings.ToLower(queryText)

	for _, term := range []string{"pair", "go with", "serve with", "dish", "meal", "food"} {
		if strings.Contains(lower, term) {
			return genai.PromptFoodPairing
		}
	}
	for _, term := range []string{"recommend", "suggest", "alternative", "similar", "prefer"} {
		if strings.Contains(lower, term) {
			return genai.PromptRecommendations
		}
	}
	return conv.lastPromptID
}

func degradedMessage(kind genai.ErrorKind) string {
	switch kind {
	case genai.KindRateLimited:
		return msgRateLimited
	case genai.KindTimeout:
		return msgTimeout
	default:
		return msgGeneric
	}
}

func truncateQuery(q string) string {
	if len(q) <= maxQueryLen {
		return q
	}
	return q[:maxQueryLen-3] + "..."
}
