package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Service evaluates pre- and post-invocation policy decisions against a
// loaded Document. It is safe for concurrent use; Reload republishes a new
// document atomically.
type Service struct {
	logger *slog.Logger
	doc    atomic.Pointer[Document]

	schemaMu    sync.Mutex
	schemaCache map[string]*jsonschema.Schema // key: "<kind>:<capability>"
}

// NewService creates a Service backed by doc.
func NewService(doc Document, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		logger:      logger,
		schemaCache: make(map[string]*jsonschema.Schema),
	}
	s.doc.Store(&doc)
	return s
}

// Reload atomically replaces the active document and drops the compiled
// schema cache, since pre/post schemas may have changed.
func (s *Service) Reload(doc Document) {
	s.doc.Store(&doc)
	s.schemaMu.Lock()
	s.schemaCache = make(map[string]*jsonschema.Schema)
	s.schemaMu.Unlock()
	s.logger.Info("policy: document reloaded")
}

// PreCheck evaluates, in strict order, allow-list, deny-list, time window,
// and pre-input schema rules. The first rejecting rule wins.
func (s *Service) PreCheck(tenant *string, capability string, input map[string]any, now *time.Time) PreDecision {
	doc := *s.doc.Load()
	tp := doc.resolve(tenant)

	if len(tp.AllowCapabilities) > 0 && !contains(tp.AllowCapabilities, capability) {
		return PreDecision{Allow: false, Code: CodeCapabilityDenied, Detail: "capability not in allow-list"}
	}
	if contains(tp.DenyCapabilities, capability) {
		return PreDecision{Allow: false, Code: CodeCapabilityDenied, Detail: "capability explicitly denied"}
	}

	if tp.TimeWindows != nil && len(tp.TimeWindows.Allow) > 0 {
		moment := resolveNow(now, tp.TimeWindows.TZ)
		if !matchesAnyWindow(tp.TimeWindows.Allow, moment) {
			return PreDecision{Allow: false, Code: CodeTimeDenied, Detail: "outside all allowed time windows"}
		}
	}

	if schemaDoc, ok := tp.PreSchemas[capability]; ok {
		schema, err := s.compiledSchema("pre", capability, schemaDoc)
		if err != nil {
			return PreDecision{Allow: false, Code: CodeInputInvalid, Detail: err.Error()}
		}
		if err := schema.Validate(toValidatable(input)); err != nil {
			return PreDecision{Allow: false, Code: CodeInputInvalid, Detail: err.Error()}
		}
	}

	return PreDecision{Allow: true}
}

// PostCheck validates a tool's output against the tenant's post-schema for
// the capability, if one is declared.
func (s *Service) PostCheck(tenant *string, capability string, output map[string]any) PostDecision {
	doc := *s.doc.Load()
	tp := doc.resolve(tenant)

	schemaDoc, ok := tp.PostSchemas[capability]
	if !ok {
		return PostDecision{Pass: true}
	}

	schema, err := s.compiledSchema("post", capability, schemaDoc)
	if err != nil {
		return PostDecision{Pass: false, Code: CodePostConditionFailed, Detail: err.Error()}
	}
	if err := schema.Validate(toValidatable(output)); err != nil {
		return PostDecision{Pass: false, Code: CodePostConditionFailed, Detail: err.Error()}
	}
	return PostDecision{Pass: true}
}

// compiledSchema compiles and caches a JSON Schema document keyed by
// (kind, capability), as required: the cache is shared across tenants for
// the lifetime of the service.
func (s *Service) compiledSchema(kind, capability string, schemaDoc any) (*jsonschema.Schema, error) {
	key := kind + ":" + capability

	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	if cached, ok := s.schemaCache[key]; ok {
		return cached, nil
	}

	data, err := json.Marshal(schemaDoc)
	if err != nil {
		return nil, fmt.Errorf("policy: marshal %s schema for %q: %w", kind, capability, err)
	}

	url := fmt.Sprintf("https://caprouter.local/schema/%s/%s.json", kind, capability)
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("policy: add %s schema resource for %q: %w", kind, capability, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("policy: compile %s schema for %q: %w", kind, capability, err)
	}

	s.schemaCache[key] = compiled
	return compiled, nil
}

func resolveNow(now *time.Time, tz string) time.Time {
	var moment time.Time
	if now != nil {
		moment = *now
	} else {
		moment = time.Now()
	}
	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" {
		loc = time.UTC
	}
	return moment.In(loc)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// toValidatable round-trips a map[string]any through JSON so jsonschema
// sees the same plain types (float64, string, bool, nil, slices, maps) it
// would see decoding a wire payload, regardless of how the caller built
// the map.
func toValidatable(m map[string]any) any {
	data, err := json.Marshal(m)
	if err != nil {
		return m
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return m
	}
	return out
}
