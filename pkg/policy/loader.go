package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadDocument reads and decodes a policy document from a YAML file on
// disk. It performs no semantic validation beyond the schemaVersion
// literal check (a document with no schemaVersion is accepted) —
// preSchemas/postSchemas are compiled lazily on first use.
func LoadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("policy: read %s: %w", path, err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("policy: parse %s: %w", path, err)
	}
	if doc.SchemaVersion != "" && doc.SchemaVersion != SchemaVersion1 {
		return Document{}, fmt.Errorf("policy: unsupported schemaVersion %q in %s", doc.SchemaVersion, path)
	}
	return doc, nil
}
