package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the guidance chat service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	GenerationMode    string
	GenerationHTTPURL string
	GenerationTimeout time.Duration

	MaxRegenerations int
	ExternalRetries  int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	HistoryWindow      int
	MemoryContextLimit int

	KnowledgeStorePath string
	KnowledgeSeedDir   string
	KnowledgeTopK      int

	RateLimitMessages int
	RateLimitWindow   time.Duration

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                 envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:         envOrDefault("APP_METRICS_NAMESPACE", "buddy"),
		AllowAnyOrigin:           false,
		GenerationMode:           envOrDefault("GENERATION_MODE", "auto"),
		GenerationHTTPURL:        stringsTrimSpace("GENERATION_HTTP_URL"),
		GenerationTimeout:        30 * time.Second,
		MaxRegenerations:         2,
		ExternalRetries:          2,
		RetryBaseDelay:           200 * time.Millisecond,
		RetryMaxDelay:            2 * time.Second,
		HistoryWindow:            6,
		MemoryContextLimit:       8,
		KnowledgeStorePath:       stringsTrimSpace("KNOWLEDGE_STORE_PATH"),
		KnowledgeSeedDir:         stringsTrimSpace("KNOWLEDGE_SEED_DIR"),
		KnowledgeTopK:            3,
		RateLimitMessages:        30,
		RateLimitWindow:          time.Minute,
		DatabaseURL:              stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 10 * time.Minute,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.GenerationTimeout, err = durationFromEnv("GENERATION_TIMEOUT", cfg.GenerationTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.RetryBaseDelay, err = durationFromEnv("APP_RETRY_BASE_DELAY", cfg.RetryBaseDelay)
	if err != nil {
		return Config{}, err
	}
	cfg.RetryMaxDelay, err = durationFromEnv("APP_RETRY_MAX_DELAY", cfg.RetryMaxDelay)
	if err != nil {
		return Config{}, err
	}
	cfg.RateLimitWindow, err = durationFromEnv("APP_RATE_LIMIT_WINDOW", cfg.RateLimitWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	cfg.MaxRegenerations, err = intFromEnv("APP_MAX_REGENERATIONS", cfg.MaxRegenerations)
	if err != nil {
		return Config{}, err
	}
	cfg.ExternalRetries, err = intFromEnv("APP_EXTERNAL_RETRIES", cfg.ExternalRetries)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryWindow, err = intFromEnv("APP_HISTORY_WINDOW", cfg.HistoryWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryContextLimit, err = intFromEnv("APP_MEMORY_CONTEXT_LIMIT", cfg.MemoryContextLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.KnowledgeTopK, err = intFromEnv("KNOWLEDGE_TOP_K", cfg.KnowledgeTopK)
	if err != nil {
		return Config{}, err
	}
	cfg.RateLimitMessages, err = intFromEnv("APP_RATE_LIMIT_MESSAGES", cfg.RateLimitMessages)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.MaxRegenerations < 0 {
		return Config{}, fmt.Errorf("APP_MAX_REGENERATIONS must be >= 0")
	}
	if cfg.ExternalRetries < 0 {
		return Config{}, fmt.Errorf("APP_EXTERNAL_RETRIES must be >= 0")
	}
	if cfg.HistoryWindow <= 0 {
		return Config{}, fmt.Errorf("APP_HISTORY_WINDOW must be positive")
	}
	if cfg.MemoryContextLimit <= 0 {
		return Config{}, fmt.Errorf("APP_MEMORY_CONTEXT_LIMIT must be positive")
	}
	if cfg.KnowledgeTopK <= 0 {
		return Config{}, fmt.Errorf("KNOWLEDGE_TOP_K must be positive")
	}
	if cfg.RateLimitMessages <= 0 {
		return Config{}, fmt.Errorf("APP_RATE_LIMIT_MESSAGES must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return trimSpace(os.Getenv(key))
}

func trimSpace(v string) string {
	for len(v) > 0 && (v[0] == ' ' || v[0] == '\n' || v[0] == '\t' || v[0] == '\r') {
		v = v[1:]
	}
	for len(v) > 0 {
		c := v[len(v)-1]
		if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			v = v[:len(v)-1]
			continue
		}
		break
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
