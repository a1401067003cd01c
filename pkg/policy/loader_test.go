package policy_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Mindburn-Labs/caprouter/pkg/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDocument_ParsesTenantsAndDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	content := `
schemaVersion: "1.0"
default:
  allowCapabilities: ["patient.search"]
tenants:
  acme:
    denyCapabilities: ["billing.charge"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	doc, err := policy.LoadDocument(path)
	require.NoError(t, err)
	require.NotNil(t, doc.Default)
	assert.Equal(t, []string{"patient.search"}, doc.Default.AllowCapabilities)
	assert.Equal(t, []string{"billing.charge"}, doc.Tenants["acme"].DenyCapabilities)
}

func TestLoadDocument_RejectsUnsupportedSchemaVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`schemaVersion: "2.0"`), 0o644))

	_, err := policy.LoadDocument(path)
	assert.Error(t, err)
}

func TestLoadDocument_MissingFileReturnsError(t *testing.T) {
	_, err := policy.LoadDocument("/nonexistent/policy.yaml")
	assert.Error(t, err)
}
