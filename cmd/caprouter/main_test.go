package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_HelpPrintsUsageAndExitsZero(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"caprouter", "help"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "caprouter")
}

func TestRun_UnknownCommandExitsNonZero(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"caprouter", "bogus"}, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "unknown command")
}

func TestRun_ValidateValidToolFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tool.yaml")
	content := `
id: fast
name: Fast Search
version: 1.0.0
capabilities:
  - name: patient.search
endpoint:
  type: http
  url: https://example.test/fast
  timeout_ms: 1000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	var stdout, stderr bytes.Buffer
	code := Run([]string{"caprouter", "validate", path}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), `"valid": true`)
}

func TestRun_ValidateRejectsEmptyCapabilities(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tool.yaml")
	content := `
id: broken
name: Broken
version: 1.0.0
capabilities: []
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	var stdout, stderr bytes.Buffer
	code := Run([]string{"caprouter", "validate", path}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "invalid")
}

func TestMsToDuration_ZeroOrNegativeIsZero(t *testing.T) {
	assert.Equal(t, int64(0), int64(msToDuration(0)))
	assert.Equal(t, int64(0), int64(msToDuration(-5)))
}
