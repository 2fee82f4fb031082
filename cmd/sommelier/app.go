package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/PavoWillow/wine-data-toolkit/internal/cache"
	"github.com/PavoWillow/wine-data-toolkit/internal/config"
	"github.com/PavoWillow/wine-data-toolkit/internal/genai"
	"github.com/PavoWillow/wine-data-toolkit/internal/metrics"
	"github.com/PavoWillow/wine-data-toolkit/internal/orchestrator"
	"github.com/PavoWillow/wine-data-toolkit/pkg/logging"
)

// app bundles the wired assistant and everything that needs closing.
type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	orchestrator *orchestrator.Orchestrator
	history      *metrics.SQLiteHistory
	redisClient  *redis.Client
}

// buildApp wires the full query path from a config file.
func buildApp(configPath string) (*app, error) {
	logger := logging.DefaultLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger.Info("loaded config",
		zap.String("listen", cfg.Listen),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Float64("similarity_threshold", cfg.Cache.SimilarityThreshold),
		zap.String("backend_url", cfg.Backend.URL),
	)

	// Redis client (only if needed); fail fast on misconfiguration.
	var redisClient *redis.Client
	if cfg.Cache.Backend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Error("redis connection failed", zap.Error(err))
			return nil, err
		}
		logger.Info("redis connection established",
			zap.String("addr", cfg.Cache.Redis.Addr),
		)
	}

	store := cache.NewStore(cache.Config{
		Backend: cfg.Cache.Backend,
		Prefix:  cfg.Cache.Prefix,
	}, redisClient)
	responseCache := cache.New(cache.NewLoggingStore(store), cfg.Cache.SimilarityThreshold)

	history, err := metrics.NewSQLiteHistory(cfg.Metrics.HistoryPath)
	if err != nil {
		return nil, err
	}
	recorder := metrics.NewRecorder(metrics.CostModel{
		TokensPerResponse: cfg.Metrics.TokensPerResponse,
		CostPer1KTokens:   cfg.Metrics.CostPer1KTokens,
	}, history)

	generator, err := genai.NewClient(genai.Config{
		BaseURL: cfg.Backend.URL,
		APIKey:  cfg.Backend.APIKey,
		Model:   cfg.Backend.Model,
		Timeout: cfg.Backend.Timeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	generator = genai.WithRetry(generator, genai.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
	})

	return &app{
		cfg:          cfg,
		logger:       logger,
		orchestrator: orchestrator.New(responseCache, genai.NewRegistry(), generator, recorder),
		history:      history,
		redisClient:  redisClient,
	}, nil
}

func (a *app) close() {
	if a.history != nil {
		_ = a.history.Close()
	}
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
	_ = a.logger.Sync()
}
