package cache

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]CachedAnswer
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]CachedAnswer),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*CachedAnswer, error) {
	s.mu.RLock()
	entry, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	// Copy to decouple from the store's map.
	out := entry
	return &out, nil
}

func (s *MemoryStore) Put(_ context.Context, answer *CachedAnswer) error {
	s.mu.Lock()
	s.items[answer.Key] = *answer
	s.mu.Unlock()
	return nil
}

// Search scans the data-source partition for records whose query text
// shares at least one word with the search text.
func (s *MemoryStore) Search(_ context.Context, text, dataSourceID string, limit int) ([]CachedAnswer, error) {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []CachedAnswer
	for _, entry := range s.items {
		if entry.DataSourceID != dataSourceID {
			continue
		}
		stored := strings.ToLower(entry.QueryText)
		for _, w := range words {
			if strings.Contains(stored, w) {
				hits = append(hits, entry)
				break
			}
		}
		if limit > 0 && len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Clear removes all records. Useful for tests or manual resets.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	s.items = make(map[string]CachedAnswer)
	s.mu.Unlock()
}
