// Package tool defines the declarative tool document shape consumed by the
// registry and planner, and validates raw tool/registry documents against
// their declared schema before they are trusted anywhere else in the
// system.
package tool

import "fmt"

// Capability is a named abstract operation a Tool implements (e.g.
// "patient.search"). Inputs/Outputs are documentation-only type maps.
type Capability struct {
	Name    string            `json:"name" yaml:"name"`
	Inputs  map[string]string `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs map[string]string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// SLA declares a tool's service level expectations.
type SLA struct {
	P95Ms          int     `json:"p95_ms" yaml:"p95_ms"`
	SuccessRateMin float64 `json:"success_rate_min" yaml:"success_rate_min"`
}

// Preconditions gate whether a tool is even a candidate for a decision.
type Preconditions struct {
	RequiresNetwork bool     `json:"requires_network,omitempty" yaml:"requires_network,omitempty"`
	RequiresVPN     bool     `json:"requires_vpn,omitempty" yaml:"requires_vpn,omitempty"`
	Env             []string `json:"env,omitempty" yaml:"env,omitempty"`
}

// EndpointType discriminates the Endpoint tagged variant.
type EndpointType string

const (
	EndpointHTTP EndpointType = "http"
	EndpointRPA  EndpointType = "rpa"
)

// Endpoint describes how a tool is actually invoked. Exactly one of URL
// (http) or Script (rpa) is meaningful, selected by Type.
type Endpoint struct {
	Type      EndpointType `json:"type" yaml:"type"`
	URL       string       `json:"url,omitempty" yaml:"url,omitempty"`
	Script    string       `json:"script,omitempty" yaml:"script,omitempty"`
	TimeoutMs int          `json:"timeout_ms" yaml:"timeout_ms"`
}

// DefaultTimeoutMs is applied when an endpoint's TimeoutMs is unset.
const DefaultTimeoutMs = 3000

// EffectiveTimeoutMs returns the endpoint's configured per-tool timeout,
// or DefaultTimeoutMs if the tool has no endpoint or its TimeoutMs is not
// positive.
func (t *Tool) EffectiveTimeoutMs() int {
	if t.Endpoint == nil || t.Endpoint.TimeoutMs <= 0 {
		return DefaultTimeoutMs
	}
	return t.Endpoint.TimeoutMs
}

// Tool is a concrete, callable implementation of one or more capabilities.
type Tool struct {
	ID            string         `json:"id" yaml:"id"`
	Name          string         `json:"name" yaml:"name"`
	Version       string         `json:"version" yaml:"version"`
	Description   string         `json:"description,omitempty" yaml:"description,omitempty"`
	Capabilities  []Capability   `json:"capabilities" yaml:"capabilities"`
	CostEstimate  *float64       `json:"cost_estimate,omitempty" yaml:"cost_estimate,omitempty"`
	SLA           *SLA           `json:"sla,omitempty" yaml:"sla,omitempty"`
	Preconditions *Preconditions `json:"preconditions,omitempty" yaml:"preconditions,omitempty"`
	Endpoint      *Endpoint      `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// HasCapability reports whether the tool declares the named capability.
func (t *Tool) HasCapability(name string) bool {
	for _, c := range t.Capabilities {
		if c.Name == name {
			return true
		}
	}
	return false
}

// CheckInvariants re-validates the structural invariants that the JSON
// Schema cannot express on its own (cross-field constraints). Callers that
// already ran the schema validator still call this — schema validation and
// invariant checking are deliberately separate passes so either can be
// exercised independently in tests.
func (t *Tool) CheckInvariants() error {
	if t.ID == "" {
		return fmt.Errorf("tool: id must not be empty")
	}
	if len(t.Capabilities) == 0 {
		return fmt.Errorf("tool %q: at least one capability is required", t.ID)
	}
	for _, c := range t.Capabilities {
		if c.Name == "" {
			return fmt.Errorf("tool %q: capability name must not be empty", t.ID)
		}
	}
	if t.CostEstimate != nil && *t.CostEstimate < 0 {
		return fmt.Errorf("tool %q: cost_estimate must be >= 0", t.ID)
	}
	if t.SLA != nil {
		if t.SLA.P95Ms <= 0 {
			return fmt.Errorf("tool %q: sla.p95_ms must be a positive integer", t.ID)
		}
		if t.SLA.SuccessRateMin < 0 || t.SLA.SuccessRateMin > 1 {
			return fmt.Errorf("tool %q: sla.success_rate_min must be in [0,1]", t.ID)
		}
	}
	if t.Endpoint != nil {
		if t.Endpoint.TimeoutMs < 1 {
			return fmt.Errorf("tool %q: endpoint.timeout_ms must be >= 1", t.ID)
		}
		switch t.Endpoint.Type {
		case EndpointHTTP:
			if t.Endpoint.URL == "" {
				return fmt.Errorf("tool %q: http endpoint requires url", t.ID)
			}
		case EndpointRPA:
			if t.Endpoint.Script == "" {
				return fmt.Errorf("tool %q: rpa endpoint requires script", t.ID)
			}
		default:
			return fmt.Errorf("tool %q: endpoint.type must be http or rpa", t.ID)
		}
	}
	return nil
}

// RegistryDocument is the on-disk shape of a multi-tool registry file.
type RegistryDocument struct {
	Tools     []Tool `json:"tools" yaml:"tools"`
	UpdatedAt string `json:"updatedAt" yaml:"updatedAt"`
}
