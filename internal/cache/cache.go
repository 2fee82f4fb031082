// Package cache implements the response cache in front of the
// generation backend: deterministic key derivation, exact lookup, and
// the fuzzy fallback over a data-source-scoped candidate pool.
package cache

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/PavoWillow/wine-data-toolkit/internal/query"
	"github.com/PavoWillow/wine-data-toolkit/internal/similarity"
	"github.com/PavoWillow/wine-data-toolkit/pkg/logging"
)

const (
	// defaultCandidateLimit bounds the pool handed to similarity search.
	defaultCandidateLimit = 10
	// foodSearchLimit bounds the looser food-entity retry.
	foodSearchLimit = 5
)

// ResponseCache is the lookup/store surface over the answer store.
// Every store failure during lookup is absorbed as a miss.
type ResponseCache struct {
	store     Store
	threshold float64
}

// New builds a ResponseCache. threshold gates the fuzzy match; pass 0
// for the default.
func New(store Store, threshold float64) *ResponseCache {
	if threshold <= 0 {
		threshold = similarity.DefaultThreshold
	}
	return &ResponseCache{store: store, threshold: threshold}
}

// Lookup finds a cached answer for the query. It tries the direct key
// first, then a similarity match over candidates from the same data
// source, then (for food-pairing queries) a looser search on the
// extracted food terms alone. conversationID is the caller's session
// scope: answers generated inside another session were conditioned on
// that session's turns and are never reused outside it. Returns nil on
// miss; never fails.
func (c *ResponseCache) Lookup(ctx context.Context, queryText string, ess query.Essence, key, dataSourceID, conversationID string) *CachedAnswer {
	logger := logging.L(ctx)

	// Direct key lookup is the fastest path.
	answer, err := c.store.Get(ctx, key)
	if err == nil {
		logger.Info("cache_direct_hit", zap.String("cache_key", key))
		return answer
	}
	if err != ErrNotFound {
		logger.Warn("cache_direct_lookup_error", zap.String("cache_key", key), zap.Error(err))
	}

	cleaned := query.CleanText(queryText)

	// Fuzzy path: text search scoped to the data source, then the
	// similarity gate.
	candidates, err := c.store.Search(ctx, cleaned, dataSourceID, defaultCandidateLimit)
	if err != nil {
		logger.Warn("cache_search_error", zap.Error(err))
	} else if match := c.bestCandidate(cleaned, inScope(candidates, conversationID)); match != nil {
		logger.Info("cache_similarity_hit",
			zap.String("matched_key", match.Key),
			zap.String("cache_key", key),
		)
		c.rekey(ctx, match, key)
		return match
	}

	// Food-pairing retry: search on the extracted food terms alone and
	// take the most recent result. Entity extraction already narrowed
	// precision, so no similarity threshold applies here.
	if ess.Category == query.CategoryFoodPairing && len(ess.Foods) > 0 {
		foodText := strings.Join(ess.Foods, " ")
		hits, err := c.store.Search(ctx, foodText, dataSourceID, foodSearchLimit)
		hits = inScope(hits, conversationID)
		if err != nil {
			logger.Warn("cache_food_search_error", zap.Error(err))
		} else if len(hits) > 0 {
			sort.Slice(hits, func(a, b int) bool {
				return hits[a].CreatedAt.After(hits[b].CreatedAt)
			})
			match := hits[0]
			logger.Info("cache_food_pairing_hit",
				zap.String("matched_key", match.Key),
				zap.String("food_terms", foodText),
			)
			return &match
		}
	}

	return nil
}

// Store persists an answer under its cache key. The record carries the
// cache's own key/prompt/data-source attribution; any prior record for
// the key is overwritten, which also corrects upstream ID mismatches.
func (c *ResponseCache) Store(ctx context.Context, answer *CachedAnswer) error {
	return c.store.Put(ctx, answer)
}

func (c *ResponseCache) bestCandidate(cleaned string, candidates []CachedAnswer) *CachedAnswer {
	pool := make([]similarity.Candidate, len(candidates))
	for i, cand := range candidates {
		pool[i] = similarity.Candidate{
			Key:       cand.Key,
			QueryText: cand.QueryText,
			CreatedAt: cand.CreatedAt,
		}
	}

	best := similarity.BestMatch(cleaned, pool, c.threshold)
	if best == nil {
		return nil
	}
	for i := range candidates {
		if candidates[i].Key == best.Key {
			return &candidates[i]
		}
	}
	return nil
}

// inScope keeps the records reusable under conversationID: records
// with no conversation attribution and the session's own.
func inScope(records []CachedAnswer, conversationID string) []CachedAnswer {
	var kept []CachedAnswer
	for _, r := range records {
		if r.ConversationID == "" || r.ConversationID == conversationID {
			kept = append(kept, r)
		}
	}
	return kept
}

// rekey saves a fuzzy match under the freshly derived key so the next
// identical query becomes a direct hit. Best effort.
func (c *ResponseCache) rekey(ctx context.Context, match *CachedAnswer, key string) {
	if match.Key == key {
		return
	}
	copied := *match
	copied.Key = key
	if err := c.store.Put(ctx, &copied); err != nil {
		logging.L(ctx).Warn("cache_rekey_error", zap.String("cache_key", key), zap.Error(err))
	}
}
