package cache

import (
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Backend string
	Prefix  string
}

// NewStore selects a Store backend. "redis" requires a connected
// client; anything else falls back to the in-memory store.
func NewStore(cfg Config, redisClient *redis.Client) Store {
	switch cfg.Backend {
	case "redis":
		return NewRedisStore(redisClient, RedisConfig{
			Prefix: cfg.Prefix,
		})
	default:
		return NewMemoryStore()
	}
}
