package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Mindburn-Labs/caprouter/pkg/tool"
)

// validateDocument dispatches to the tool- or registry-document validator
// depending on whether the decoded payload carries a top-level "tools" key.
func validateDocument(raw any) (any, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document must be a JSON/YAML object")
	}
	if _, hasTools := m["tools"]; hasTools {
		return tool.ValidateRegistryDocument(raw)
	}
	return tool.ValidateToolDocument(raw)
}

func runValidate(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: caprouter validate <file.yaml|file.json>")
		return 2
	}
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "read %s: %v\n", path, err)
		return 1
	}

	ext := strings.ToLower(filepath.Ext(path))
	isYAML := ext == ".yaml" || ext == ".yml"

	raw, err := tool.DecodeYAMLOrJSON(data, isYAML)
	if err != nil {
		fmt.Fprintf(stderr, "parse %s: %v\n", path, err)
		return 1
	}

	validated, err := validateDocument(raw)
	if err != nil {
		fmt.Fprintf(stderr, "invalid: %v\n", err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]any{"valid": true, "document": validated})
	return 0
}
