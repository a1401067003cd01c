// Package planner implements the capability router's core decision
// pipeline: policy pre-check, registry snapshot, capability and
// precondition filtering, Contract-Net scoring, and best-first execution
// with typed-outcome fallback under two composed deadlines.
package planner

import (
	"context"
	"log/slog"
	"math"
	"os"
	"sort"
	"time"

	"github.com/Mindburn-Labs/caprouter/pkg/executor"
	"github.com/Mindburn-Labs/caprouter/pkg/metrics"
	"github.com/Mindburn-Labs/caprouter/pkg/policy"
	"github.com/Mindburn-Labs/caprouter/pkg/registry"
	"github.com/Mindburn-Labs/caprouter/pkg/scorer"
	"github.com/Mindburn-Labs/caprouter/pkg/tool"
	"github.com/Mindburn-Labs/caprouter/pkg/tracestore"
)

// OfflineEnvVar is the process-scoped "offline" indicator referenced by
// the preconditions gate: its presence in the environment, with any value
// (including empty), disqualifies candidates that set requiresNetwork.
const OfflineEnvVar = "CAPROUTER_OFFLINE"

// ResultCode is the closed alphabet of terminal plan-result codes
// surfaced when execution did not reach a success.
type ResultCode string

const (
	CodeInputInvalid        ResultCode = "INPUT_INVALID"
	CodeNoCandidates        ResultCode = "NO_CANDIDATES"
	CodeAllCandidatesFailed ResultCode = "ALL_CANDIDATES_FAILED"
)

// Context is the request envelope for a single plan() call.
type Context struct {
	Tenant     *string
	Capability string
	Input      map[string]any
	TimeoutMs  int64 // overall deadline; <= 0 means unset
	Execute    *bool // nil defaults to true
}

func (c Context) execute() bool {
	return c.Execute == nil || *c.Execute
}

// ScoredCandidate pairs a tool id with its bid, preserving a reference to
// the tool for execution.
type ScoredCandidate struct {
	ToolID string
	Score  float64
	Tool   tool.Tool
}

// Result is the outcome of a single plan() call.
type Result struct {
	TraceID    string
	Capability string
	Candidates []ScoredCandidate
	Selected   *string // tool id, nil if nothing was selected
	Execution  *executor.ExecutionResult
	Denied     *policy.PreDecision // non-nil iff the request was denied pre-filter
	Code       ResultCode          // set for input-invalid, no-candidates and all-candidates-failed outcomes
}

// Planner orchestrates the decision pipeline. It reaches the registry,
// scorer and executor through interfaces, and the policy service, trace
// store and metrics registry as concrete types; no collaborator is a
// process-wide singleton except, by convention, the metrics registry.
type Planner struct {
	registry  registry.Service
	policySvc *policy.Service
	scorer    scorer.Scorer
	exec      executor.Executor
	traces    *tracestore.Store
	metrics   *metrics.Registry
	logger    *slog.Logger

	environ func() []string
}

// Option configures a Planner at construction time.
type Option func(*Planner)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) { p.logger = l }
}

// WithPolicy attaches a policy.Service. Without one, preCheck/postCheck
// always pass — policy is optional per the documented design.
func WithPolicy(svc *policy.Service) Option {
	return func(p *Planner) { p.policySvc = svc }
}

// New constructs a Planner from its required collaborators.
func New(reg registry.Service, sc scorer.Scorer, ex executor.Executor, traces *tracestore.Store, m *metrics.Registry, opts ...Option) *Planner {
	p := &Planner{
		registry: reg,
		scorer:   sc,
		exec:     ex,
		traces:   traces,
		metrics:  m,
		logger:   slog.Default(),
		environ:  os.Environ,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan runs the full decision pipeline for ctx.
func (p *Planner) Plan(ctx context.Context, req Context) Result {
	traceID := p.traces.Create()
	p.metrics.TraceCreated.Inc()
	p.emit(traceID, tracestore.EventRequest, map[string]any{
		"capability": req.Capability,
		"tenant":     req.Tenant,
	})

	result := Result{TraceID: traceID, Capability: req.Capability}

	if req.Capability == "" {
		result.Code = CodeInputInvalid
		return result
	}

	if p.policySvc != nil {
		decision := p.policySvc.PreCheck(req.Tenant, req.Capability, req.Input, nil)
		if !decision.Allow {
			result.Denied = &decision
			return result
		}
	}

	snap := p.registry.GetRegistry()
	candidates := p.filterByCapability(snap.Tools, req.Capability)
	candidates = p.filterByPreconditions(candidates)

	if len(candidates) == 0 {
		result.Code = CodeNoCandidates
		p.emit(traceID, tracestore.EventNoCandidates, map[string]any{"capability": req.Capability})
		p.logger.Debug("planner: no candidates", "capability", req.Capability, "traceId", traceID)
		return result
	}

	scored := p.scoreAndSort(req, candidates)
	result.Candidates = scored
	p.emit(traceID, tracestore.EventScores, map[string]any{
		"capability": req.Capability,
		"count":      len(scored),
	})

	if !req.execute() {
		if len(scored) > 0 {
			id := scored[0].ToolID
			result.Selected = &id
		}
		return result
	}

	overallCtx, cancel := p.overallContext(ctx, req.TimeoutMs)
	defer cancel()

	return p.executeLoop(overallCtx, traceID, req, scored, result)
}

func (p *Planner) filterByCapability(tools []tool.Tool, capability string) []tool.Tool {
	out := make([]tool.Tool, 0, len(tools))
	for _, t := range tools {
		if t.HasCapability(capability) {
			out = append(out, t)
		}
	}
	return out
}

// filterByPreconditions applies the offline indicator and required
// environment-variable gate. Environment is read once per decision, not
// cached across decisions, so it remains independently testable.
func (p *Planner) filterByPreconditions(tools []tool.Tool) []tool.Tool {
	env := p.environ()
	present := make(map[string]struct{}, len(env))
	for _, kv := range env {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				present[kv[:i]] = struct{}{}
				break
			}
		}
	}
	_, offline := present[OfflineEnvVar]

	out := make([]tool.Tool, 0, len(tools))
	for _, t := range tools {
		if t.Preconditions == nil {
			out = append(out, t)
			continue
		}
		if t.Preconditions.RequiresNetwork && offline {
			continue
		}
		ok := true
		for _, name := range t.Preconditions.Env {
			if _, found := present[name]; !found {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, t)
		}
	}
	return out
}

func (p *Planner) scoreAndSort(req Context, tools []tool.Tool) []ScoredCandidate {
	sc := make([]ScoredCandidate, 0, len(tools))
	for _, t := range tools {
		s := p.scorer.Score(t, scorer.RequestContext{Capability: req.Capability, Input: req.Input})
		sc = append(sc, ScoredCandidate{ToolID: t.ID, Score: s, Tool: t})
		p.metrics.PlannerBids.WithLabelValues(req.Capability, t.ID).Inc()
	}
	sort.SliceStable(sc, func(i, j int) bool {
		return higherScoreFirst(sc[i].Score, sc[j].Score)
	})
	return sc
}

func higherScoreFirst(a, b float64) bool {
	if isFinite(a) && isFinite(b) {
		return a > b
	}
	if isFinite(a) && !isFinite(b) {
		return true
	}
	if !isFinite(a) && isFinite(b) {
		return false
	}
	return false // both non-finite: preserve input order
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// overallContext derives the composite abort for the execute loop from
// ctx and the request's overall deadline. timeoutMs <= 0 behaves as
// unset: no additional deadline is imposed beyond the caller's ctx.
func (p *Planner) overallContext(ctx context.Context, timeoutMs int64) (context.Context, context.CancelFunc) {
	if timeoutMs <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
}

// Trace resolves a plan result's traceId back to its recorded event log,
// for callers (and tests) that need to inspect decision history.
func (p *Planner) Trace(traceID string) (*tracestore.Trace, bool) {
	return p.traces.Get(traceID)
}

func (p *Planner) emit(traceID string, eventType tracestore.EventType, data map[string]any) {
	p.traces.Record(traceID, eventType, data)
	p.metrics.TraceEvents.Inc()
}
