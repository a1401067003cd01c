package tool_test

import (
	"testing"

	"github.com/Mindburn-Labs/caprouter/pkg/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validHTTPToolDoc() map[string]any {
	return map[string]any{
		"id":      "fast",
		"name":    "Fast Search",
		"version": "1.0.0",
		"capabilities": []any{
			map[string]any{
				"name":    "patient.search",
				"inputs":  map[string]any{"mrn": "string"},
				"outputs": map[string]any{"id": "string", "name": "string"},
			},
		},
		"cost_estimate": 0.1,
		"sla": map[string]any{
			"p95_ms":           200,
			"success_rate_min": 0.99,
		},
		"endpoint": map[string]any{
			"type":       "http",
			"url":        "https://example.test/search",
			"timeout_ms": 1000,
		},
	}
}

func TestValidateToolDocument_Valid(t *testing.T) {
	doc := validHTTPToolDoc()
	tl, err := tool.ValidateToolDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, "fast", tl.ID)
	assert.Equal(t, tool.EndpointHTTP, tl.Endpoint.Type)
	assert.True(t, tl.HasCapability("patient.search"))
}

func TestValidateToolDocument_RejectsUnknownTopLevelField(t *testing.T) {
	doc := validHTTPToolDoc()
	doc["unexpected_field"] = "oops"
	_, err := tool.ValidateToolDocument(doc)
	assert.Error(t, err)
}

func TestValidateToolDocument_RejectsUnknownCapabilityField(t *testing.T) {
	doc := validHTTPToolDoc()
	doc["capabilities"] = []any{
		map[string]any{"name": "patient.search", "bogus": true},
	}
	_, err := tool.ValidateToolDocument(doc)
	assert.Error(t, err)
}

func TestValidateToolDocument_RequiresAtLeastOneCapability(t *testing.T) {
	doc := validHTTPToolDoc()
	doc["capabilities"] = []any{}
	_, err := tool.ValidateToolDocument(doc)
	assert.Error(t, err)
}

func TestValidateToolDocument_HTTPEndpointRequiresURL(t *testing.T) {
	doc := validHTTPToolDoc()
	doc["endpoint"] = map[string]any{"type": "http", "timeout_ms": 1000}
	_, err := tool.ValidateToolDocument(doc)
	assert.Error(t, err)
}

func TestValidateToolDocument_RPAEndpointRequiresScript(t *testing.T) {
	doc := validHTTPToolDoc()
	doc["endpoint"] = map[string]any{
		"type":       "rpa",
		"script":     "click-and-fill.rpa",
		"timeout_ms": 5000,
	}
	tl, err := tool.ValidateToolDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, tool.EndpointRPA, tl.Endpoint.Type)
}

func TestValidateToolDocument_EndpointTimeoutMustBePositive(t *testing.T) {
	doc := validHTTPToolDoc()
	doc["endpoint"] = map[string]any{
		"type":       "http",
		"url":        "https://example.test/search",
		"timeout_ms": 0,
	}
	_, err := tool.ValidateToolDocument(doc)
	assert.Error(t, err)
}

func TestValidateToolDocument_NegativeCostEstimateRejected(t *testing.T) {
	doc := validHTTPToolDoc()
	doc["cost_estimate"] = -1.0
	_, err := tool.ValidateToolDocument(doc)
	assert.Error(t, err)
}

func TestValidateToolDocument_SuccessRateOutOfRangeRejected(t *testing.T) {
	doc := validHTTPToolDoc()
	doc["sla"] = map[string]any{"p95_ms": 100, "success_rate_min": 1.5}
	_, err := tool.ValidateToolDocument(doc)
	assert.Error(t, err)
}

func TestValidateRegistryDocument_Valid(t *testing.T) {
	doc := map[string]any{
		"tools":     []any{validHTTPToolDoc()},
		"updatedAt": "2026-08-06T00:00:00Z",
	}
	reg, err := tool.ValidateRegistryDocument(doc)
	require.NoError(t, err)
	require.Len(t, reg.Tools, 1)
	assert.Equal(t, "fast", reg.Tools[0].ID)
}

// TestValidate_RoundTrip covers the idempotence property: validating a
// tool, serializing it, and re-validating yields the same verdict.
func TestValidate_RoundTrip(t *testing.T) {
	doc := validHTTPToolDoc()
	tl, err := tool.ValidateToolDocument(doc)
	require.NoError(t, err)

	err = tool.Validate(*tl)
	assert.NoError(t, err)
}

func TestValidate_RoundTrip_InvalidStaysInvalid(t *testing.T) {
	bad := tool.Tool{ID: "bad"} // no capabilities
	err := tool.Validate(bad)
	assert.Error(t, err)
}
