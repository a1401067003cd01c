package config_test

import (
	"testing"

	"github.com/Mindburn-Labs/caprouter/pkg/config"
	"github.com/stretchr/testify/assert"
)

// TestLoad_Defaults verifies that Load() returns sensible defaults
// when no environment variables are set.
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CAPROUTER_HTTP_ADDR", "")
	t.Setenv("CAPROUTER_LOG_LEVEL", "")
	t.Setenv("CAPROUTER_REGISTRY_DIR", "")
	t.Setenv("CAPROUTER_POLICY_FILE", "")
	t.Setenv("CAPROUTER_DEFAULT_TIMEOUT_MS", "")
	t.Setenv("CAPROUTER_TRACE_TTL_MS", "")
	t.Setenv("CAPROUTER_TRACE_MAX_ENTRIES", "")
	t.Setenv("CAPROUTER_METRICS_ADDR", "")

	cfg := config.Load()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "./tools", cfg.RegistryDir)
	assert.Equal(t, "./policy.yaml", cfg.PolicyFile)
	assert.EqualValues(t, 3000, cfg.DefaultTimeoutMs)
	assert.EqualValues(t, 900000, cfg.TraceTTLMs)
	assert.Equal(t, 1000, cfg.TraceMaxEntries)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
}

// TestLoad_Overrides verifies that environment variables correctly
// override default values.
func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CAPROUTER_HTTP_ADDR", ":9000")
	t.Setenv("CAPROUTER_LOG_LEVEL", "DEBUG")
	t.Setenv("CAPROUTER_REGISTRY_DIR", "/etc/caprouter/tools")
	t.Setenv("CAPROUTER_POLICY_FILE", "/etc/caprouter/policy.yaml")
	t.Setenv("CAPROUTER_DEFAULT_TIMEOUT_MS", "5000")
	t.Setenv("CAPROUTER_TRACE_TTL_MS", "60000")
	t.Setenv("CAPROUTER_TRACE_MAX_ENTRIES", "50")
	t.Setenv("CAPROUTER_METRICS_ADDR", ":9091")

	cfg := config.Load()

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "/etc/caprouter/tools", cfg.RegistryDir)
	assert.Equal(t, "/etc/caprouter/policy.yaml", cfg.PolicyFile)
	assert.EqualValues(t, 5000, cfg.DefaultTimeoutMs)
	assert.EqualValues(t, 60000, cfg.TraceTTLMs)
	assert.Equal(t, 50, cfg.TraceMaxEntries)
	assert.Equal(t, ":9091", cfg.MetricsAddr)
}

// TestLoad_InvalidIntegersFallBackToDefault ensures malformed numeric
// overrides degrade to defaults rather than panicking at boot.
func TestLoad_InvalidIntegersFallBackToDefault(t *testing.T) {
	t.Setenv("CAPROUTER_DEFAULT_TIMEOUT_MS", "not-a-number")
	t.Setenv("CAPROUTER_TRACE_MAX_ENTRIES", "not-a-number")

	cfg := config.Load()

	assert.EqualValues(t, 3000, cfg.DefaultTimeoutMs)
	assert.Equal(t, 1000, cfg.TraceMaxEntries)
}
