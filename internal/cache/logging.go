package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/PavoWillow/wine-data-toolkit/internal/metrics"
	"github.com/PavoWillow/wine-data-toolkit/pkg/logging"
)

// LoggingStore wraps a Store with logging and per-operation counters.
type LoggingStore struct {
	inner Store
}

// NewLoggingStore returns a store that logs and records metrics.
func NewLoggingStore(inner Store) Store {
	return &LoggingStore{inner: inner}
}

func (s *LoggingStore) Get(ctx context.Context, key string) (*CachedAnswer, error) {
	start := time.Now()
	answer, err := s.inner.Get(ctx, key)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	metrics.StoreOperationsTotal.WithLabelValues("get").Inc()

	logger := logging.L(ctx)
	fields := []zap.Field{
		zap.String("store_op", "get"),
		zap.String("cache_key", key),
		zap.Float64("latency_ms", latencyMs),
	}

	switch {
	case err == ErrNotFound:
		logger.Debug("store_get_miss", fields...)
	case err != nil:
		logger.Warn("store_get_error", append(fields, zap.Error(err))...)
	default:
		logger.Debug("store_get_hit", fields...)
	}

	return answer, err
}

func (s *LoggingStore) Put(ctx context.Context, answer *CachedAnswer) error {
	start := time.Now()
	err := s.inner.Put(ctx, answer)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	metrics.StoreOperationsTotal.WithLabelValues("save").Inc()

	logger := logging.L(ctx)
	fields := []zap.Field{
		zap.String("store_op", "save"),
		zap.String("cache_key", answer.Key),
		zap.String("data_source_id", answer.DataSourceID),
		zap.Float64("latency_ms", latencyMs),
	}

	if err != nil {
		logger.Warn("store_put_error", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("store_put", fields...)
	}

	return err
}

func (s *LoggingStore) Search(ctx context.Context, text, dataSourceID string, limit int) ([]CachedAnswer, error) {
	start := time.Now()
	hits, err := s.inner.Search(ctx, text, dataSourceID, limit)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	metrics.StoreOperationsTotal.WithLabelValues("search").Inc()

	logger := logging.L(ctx)
	fields := []zap.Field{
		zap.String("store_op", "search"),
		zap.String("data_source_id", dataSourceID),
		zap.Int("hits", len(hits)),
		zap.Float64("latency_ms", latencyMs),
	}

	if err != nil {
		logger.Warn("store_search_error", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("store_search", fields...)
	}

	return hits, err
}
