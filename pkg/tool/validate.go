package tool

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema/tool.schema.json schema/registry.schema.json
var schemaFS embed.FS

const (
	toolSchemaURL     = "https://caprouter.local/schema/tool.schema.json"
	registrySchemaURL = "https://caprouter.local/schema/registry.schema.json"
)

var (
	compileOnce    sync.Once
	compileErr     error
	toolSchema     *jsonschema.Schema
	registrySchema *jsonschema.Schema
)

func compiledSchemas() (*jsonschema.Schema, *jsonschema.Schema, error) {
	compileOnce.Do(func() {
		toolRaw, err := schemaFS.ReadFile("schema/tool.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("tool: read tool schema: %w", err)
			return
		}
		registryRaw, err := schemaFS.ReadFile("schema/registry.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("tool: read registry schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(toolSchemaURL, bytes.NewReader(toolRaw)); err != nil {
			compileErr = fmt.Errorf("tool: add tool schema resource: %w", err)
			return
		}
		if err := c.AddResource(registrySchemaURL, bytes.NewReader(registryRaw)); err != nil {
			compileErr = fmt.Errorf("tool: add registry schema resource: %w", err)
			return
		}

		toolSchema, compileErr = c.Compile(toolSchemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("tool: compile tool schema: %w", compileErr)
			return
		}
		registrySchema, compileErr = c.Compile(registrySchemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("tool: compile registry schema: %w", compileErr)
			return
		}
	})
	return toolSchema, registrySchema, compileErr
}

// toJSONValue normalizes an arbitrary decoded document (from YAML or JSON)
// into the plain map[string]interface{}/[]interface{}/float64/string/bool
// shape jsonschema.Schema.Validate expects, by round-tripping through
// encoding/json.
func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateToolDocument validates a single raw tool document (already
// decoded from YAML or JSON into a generic Go value) against the tool
// schema, then checks the cross-field invariants and decodes it into a
// Tool.
func ValidateToolDocument(raw any) (*Tool, error) {
	ts, _, err := compiledSchemas()
	if err != nil {
		return nil, err
	}

	jv, err := toJSONValue(raw)
	if err != nil {
		return nil, fmt.Errorf("tool: normalize document: %w", err)
	}
	if err := ts.Validate(jv); err != nil {
		return nil, fmt.Errorf("tool: schema validation failed: %w", err)
	}

	data, err := json.Marshal(jv)
	if err != nil {
		return nil, fmt.Errorf("tool: re-marshal document: %w", err)
	}
	var t Tool
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("tool: decode document: %w", err)
	}
	if err := t.CheckInvariants(); err != nil {
		return nil, err
	}
	return &t, nil
}

// ValidateRegistryDocument validates a raw registry document (tools +
// updatedAt) against the registry schema, then every contained tool
// against its invariants.
func ValidateRegistryDocument(raw any) (*RegistryDocument, error) {
	_, rs, err := compiledSchemas()
	if err != nil {
		return nil, err
	}

	jv, err := toJSONValue(raw)
	if err != nil {
		return nil, fmt.Errorf("tool: normalize document: %w", err)
	}
	if err := rs.Validate(jv); err != nil {
		return nil, fmt.Errorf("tool: registry schema validation failed: %w", err)
	}

	data, err := json.Marshal(jv)
	if err != nil {
		return nil, fmt.Errorf("tool: re-marshal document: %w", err)
	}
	var doc RegistryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("tool: decode document: %w", err)
	}
	for i := range doc.Tools {
		if err := doc.Tools[i].CheckInvariants(); err != nil {
			return nil, err
		}
	}
	return &doc, nil
}

// DecodeYAMLOrJSON decodes file content into a generic Go value, choosing
// the YAML decoder (which also accepts plain JSON) for .yaml/.yml files
// and the JSON decoder otherwise.
func DecodeYAMLOrJSON(data []byte, isYAML bool) (any, error) {
	var v any
	if isYAML {
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("tool: parse yaml: %w", err)
		}
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("tool: parse json: %w", err)
	}
	return v, nil
}

// Validate is the standalone validator entrypoint used by callers that
// already hold a decoded Tool (e.g. round-trip idempotence tests): it
// re-serializes the tool, validates it against the schema exactly as a
// freshly loaded document would be, and reports the same verdict.
func Validate(t Tool) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("tool: marshal for validation: %w", err)
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("tool: unmarshal for validation: %w", err)
	}
	_, err = ValidateToolDocument(raw)
	return err
}
