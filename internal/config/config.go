// Package config loads the assistant's YAML configuration with
// environment variable expansion.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PavoWillow/wine-data-toolkit/internal/similarity"
)

// Config holds all assistant configuration.
type Config struct {
	Listen  string        `yaml:"listen"`
	Cache   CacheConfig   `yaml:"cache"`
	Backend BackendConfig `yaml:"backend"`
	Retry   RetryConfig   `yaml:"retry"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend string `yaml:"backend"`
	Prefix  string `yaml:"prefix"`
	// SimilarityThreshold gates the fuzzy match (0 uses the default).
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	Redis               Redis   `yaml:"redis"`
}

// Redis holds the redis connection settings.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// BackendConfig defines the generation backend.
type BackendConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// RetryConfig bounds generation retries.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// MetricsConfig controls session metrics and history.
type MetricsConfig struct {
	HistoryPath       string  `yaml:"history_path"`
	TokensPerResponse int     `yaml:"tokens_per_response"`
	CostPer1KTokens   float64 `yaml:"cost_per_1k_tokens"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Cache: CacheConfig{
			Backend:             "memory",
			Prefix:              "sommelier:",
			SimilarityThreshold: similarity.DefaultThreshold,
			Redis: Redis{
				Addr: "localhost:6379",
			},
		},
		Backend: BackendConfig{
			Model:   "sommelier-1",
			Timeout: 30 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    60 * time.Second,
		},
		Metrics: MetricsConfig{
			HistoryPath:       "sommelier.db",
			TokensPerResponse: 1000,
			CostPer1KTokens:   0.002,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if c.Backend.APIKey == "" {
		return fmt.Errorf("backend.api_key is required")
	}
	return nil
}
