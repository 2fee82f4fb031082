package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Store.Get when no record exists for a key.
var ErrNotFound = errors.New("cache: record not found")

// CachedAnswer is a persisted answer record. Written once on a cache
// miss; overwritten only to correct upstream attribution mismatches.
// Eviction belongs to the external store's lifecycle, not this layer.
type CachedAnswer struct {
	Key            string    `json:"objectID"`
	QueryText      string    `json:"query"`
	AnswerText     string    `json:"response"`
	DataSourceID   string    `json:"dataSourceID"`
	PromptID       string    `json:"promptID"`
	ConversationID string    `json:"conversationID,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Store is the abstract persistent store the cache relies on.
// Implemented by the in-memory store (dev, tests) and Redis (prod).
type Store interface {
	// Get returns the record for key, or ErrNotFound.
	Get(ctx context.Context, key string) (*CachedAnswer, error)
	// Put upserts a record; an existing record under the same key is
	// overwritten.
	Put(ctx context.Context, answer *CachedAnswer) error
	// Search returns up to limit records from the given data-source
	// partition whose query text matches the search text.
	Search(ctx context.Context, text, dataSourceID string, limit int) ([]CachedAnswer, error)
}
