// Package policy implements the tenant-scoped policy engine: pre-invocation
// allow/deny and time-window checks, pre-input and post-output schema
// validation.
package policy

// Code is the closed alphabet of policy decision codes. Decisions are
// surfaced through these codes, not Go error values, per the taxonomy in
// the error handling design.
type Code string

const (
	CodeTenantDenied        Code = "TENANT_DENIED"
	CodeCapabilityDenied    Code = "CAPABILITY_DENIED"
	CodeTimeDenied          Code = "TIME_DENIED"
	CodeInputInvalid        Code = "INPUT_INVALID"
	CodePostConditionFailed Code = "POST_CONDITION_FAILED"
)

// SchemaVersion1 is the only schemaVersion literal this service accepts.
const SchemaVersion1 = "1.0"

// Document is the on-disk policy document shape.
type Document struct {
	SchemaVersion string                  `yaml:"schemaVersion" json:"schemaVersion"`
	Default       *TenantPolicy           `yaml:"default,omitempty" json:"default,omitempty"`
	Tenants       map[string]TenantPolicy `yaml:"tenants,omitempty" json:"tenants,omitempty"`
}

// TenantPolicy is the policy configuration for a single tenant (or the
// default, tenant-less configuration).
type TenantPolicy struct {
	AllowCapabilities []string          `yaml:"allowCapabilities,omitempty" json:"allowCapabilities,omitempty"`
	DenyCapabilities  []string          `yaml:"denyCapabilities,omitempty" json:"denyCapabilities,omitempty"`
	TimeWindows       *TimeWindowPolicy `yaml:"timeWindows,omitempty" json:"timeWindows,omitempty"`
	PreSchemas        map[string]any    `yaml:"preSchemas,omitempty" json:"preSchemas,omitempty"`
	PostSchemas       map[string]any    `yaml:"postSchemas,omitempty" json:"postSchemas,omitempty"`
}

// TimeWindowPolicy declares the timezone and allowed windows for a tenant.
type TimeWindowPolicy struct {
	TZ    string   `yaml:"tz,omitempty" json:"tz,omitempty"`
	Allow []string `yaml:"allow,omitempty" json:"allow,omitempty"`
}

// resolve implements the tenants[tenant] ?? default ?? empty precedence.
func (d Document) resolve(tenant *string) TenantPolicy {
	if tenant != nil {
		if tp, ok := d.Tenants[*tenant]; ok {
			return tp
		}
	}
	if d.Default != nil {
		return *d.Default
	}
	return TenantPolicy{}
}

// PreDecision is the tagged-variant result of PreCheck.
type PreDecision struct {
	Allow  bool
	Code   Code
	Detail string
}

// PostDecision is the tagged-variant result of PostCheck.
type PostDecision struct {
	Pass   bool
	Code   Code
	Detail string
}
