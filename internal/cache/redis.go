package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis. Records are stored as JSON
// under their cache key; a per-data-source index set makes Search able
// to scope candidates to one partition.
type RedisStore struct {
	client *redis.Client
	prefix string
}

type RedisConfig struct {
	Prefix string
}

func NewRedisStore(client *redis.Client, config RedisConfig) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: config.Prefix,
	}
}

// key builds the final Redis key with prefix.
func (s *RedisStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

// indexKey is the set of record keys belonging to one data source.
func (s *RedisStore) indexKey(dataSourceID string) string {
	return s.key("ds:" + dataSourceID)
}

// Get retrieves a record. On Redis error it returns the error so the
// caller can log and treat the lookup as a miss.
func (s *RedisStore) Get(ctx context.Context, key string) (*CachedAnswer, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var answer CachedAnswer
	if err := json.Unmarshal(raw, &answer); err != nil {
		return nil, fmt.Errorf("redis record decode failed: %w", err)
	}
	return &answer, nil
}

// Put upserts a record and registers it in its data-source index.
func (s *RedisStore) Put(ctx context.Context, answer *CachedAnswer) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	raw, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("redis record encode failed: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(answer.Key), raw, 0)
	pipe.SAdd(ctx, s.indexKey(answer.DataSourceID), answer.Key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put failed: %w", err)
	}
	return nil
}

// Search fetches the data source's records and keeps those whose query
// text shares a word with the search text, up to limit.
func (s *RedisStore) Search(ctx context.Context, text, dataSourceID string, limit int) ([]CachedAnswer, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return nil, nil
	}

	keys, err := s.client.SMembers(ctx, s.indexKey(dataSourceID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis index read failed: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	raws, err := s.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget failed: %w", err)
	}

	var hits []CachedAnswer
	for _, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			// Record evicted since it was indexed; skip.
			continue
		}
		var answer CachedAnswer
		if err := json.Unmarshal([]byte(str), &answer); err != nil {
			continue
		}
		stored := strings.ToLower(answer.QueryText)
		for _, w := range words {
			if strings.Contains(stored, w) {
				hits = append(hits, answer)
				break
			}
		}
		if limit > 0 && len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

// Ping checks if the Redis connection is healthy.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	return s.client.Ping(ctx).Err()
}
