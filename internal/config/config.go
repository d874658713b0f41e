// Package config reads service settings from environment variables,
// applying defaults where unset.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service settings.
type Config struct {
	DBPath          string
	HTTPAddr        string
	LogLevel        string
	ShutdownTimeout time.Duration

	// History-source crawler configuration.
	IngestEnabled bool
	IngestBaseURL string
	IngestRPS     float64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:        envOrDefault("TIANQI_DB", "tianqi.db"),
		HTTPAddr:      envOrDefault("TIANQI_HTTP_ADDR", ":8080"),
		LogLevel:      envOrDefault("TIANQI_LOG_LEVEL", "info"),
		IngestBaseURL: envOrDefault("TIANQI_INGEST_BASE_URL", ""),
		IngestEnabled: envOrDefault("TIANQI_INGEST_ENABLED", "true") == "true",
	}

	shutdownStr := envOrDefault("TIANQI_SHUTDOWN_TIMEOUT", "10s")
	shutdown, err := time.ParseDuration(shutdownStr)
	if err != nil || shutdown <= 0 {
		return nil, fmt.Errorf("invalid TIANQI_SHUTDOWN_TIMEOUT %q", shutdownStr)
	}
	cfg.ShutdownTimeout = shutdown

	rpsStr := envOrDefault("TIANQI_INGEST_RPS", "0.5")
	rps, err := strconv.ParseFloat(rpsStr, 64)
	if err != nil || rps <= 0 {
		return nil, fmt.Errorf("invalid TIANQI_INGEST_RPS %q", rpsStr)
	}
	cfg.IngestRPS = rps

	if cfg.DBPath == "" {
		return nil, fmt.Errorf("TIANQI_DB must not be empty")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid TIANQI_LOG_LEVEL %q", cfg.LogLevel)
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
