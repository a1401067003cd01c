// Package config loads process configuration from the environment.
package config

import (
	"os"
	"strconv"
)

// Config holds the settings needed to wire the registry, policy service,
// planner, trace store, and metrics registry into a running process.
type Config struct {
	HTTPAddr         string
	LogLevel         string
	RegistryDir      string
	PolicyFile       string
	DefaultTimeoutMs int64
	TraceTTLMs       int64
	TraceMaxEntries  int
	MetricsAddr      string
}

// Load reads configuration from environment variables, falling back to
// safe local defaults.
func Load() *Config {
	return &Config{
		HTTPAddr:         envOrDefault("CAPROUTER_HTTP_ADDR", ":8080"),
		LogLevel:         envOrDefault("CAPROUTER_LOG_LEVEL", "INFO"),
		RegistryDir:      envOrDefault("CAPROUTER_REGISTRY_DIR", "./tools"),
		PolicyFile:       envOrDefault("CAPROUTER_POLICY_FILE", "./policy.yaml"),
		DefaultTimeoutMs: envOrDefaultInt64("CAPROUTER_DEFAULT_TIMEOUT_MS", 3000),
		TraceTTLMs:       envOrDefaultInt64("CAPROUTER_TRACE_TTL_MS", 15*60*1000),
		TraceMaxEntries:  envOrDefaultInt("CAPROUTER_TRACE_MAX_ENTRIES", 1000),
		MetricsAddr:      envOrDefault("CAPROUTER_METRICS_ADDR", ":9090"),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envOrDefaultInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
