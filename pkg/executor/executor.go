// Package executor defines the tagged-variant outcome of invoking a tool
// and a reference Executor that the planner can exercise in tests without
// a real HTTP/RPA transport.
package executor

import (
	"context"
	"time"

	"github.com/Mindburn-Labs/caprouter/pkg/tool"
)

// Status discriminates the ExecutionResult tagged variant.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusTimeout Status = "timeout"
)

// ExecutionResult is the sum-type result of one tool invocation attempt.
// Consumers switch on Status and must not read fields belonging to a
// different variant.
type ExecutionResult struct {
	Status    Status
	LatencyMs int64
	Output    map[string]any // success only
	Error     string         // failure, timeout
}

// Executor owns the outbound protocol for invoking a tool. Implementations
// must honor overallAbort, apply their own endpoint timeout, and must not
// panic or return a Go error for ordinary protocol failures — those are
// reported as a failure- or timeout-status ExecutionResult instead. The
// planner normalizes any error Execute does return (see Normalize).
type Executor interface {
	Execute(overallAbort context.Context, t tool.Tool, input map[string]any) (ExecutionResult, error)
}

// Invoke is the signature a Static executor delegates to per tool id, so
// tests can script per-tool behavior without a real transport.
type Invoke func(ctx context.Context, t tool.Tool, input map[string]any) (ExecutionResult, error)

// Static is a reference Executor: it dispatches to a caller-supplied
// function per tool id, while independently enforcing the tool's own
// endpoint timeout composed with overallAbort. It is the kind of stub the
// core depends on through the Executor interface; a production transport
// lives outside this module.
type Static struct {
	// Invoke performs the actual attempt for a resolved per-attempt
	// context (already composed with the tool's own timeout). If nil,
	// every call succeeds immediately with an empty output.
	Invoke Invoke
}

// NewStatic constructs a Static executor around invoke. A nil invoke
// always succeeds trivially; useful for plan-only-mode tests.
func NewStatic(invoke Invoke) *Static {
	return &Static{Invoke: invoke}
}

// Execute implements Executor. It composes the tool's own endpoint
// timeout with overallAbort so the attempt observes whichever deadline
// fires first, then delegates to Invoke (or a trivial success if Invoke
// is nil). The composed timer is always released on return.
func (s *Static) Execute(overallAbort context.Context, t tool.Tool, input map[string]any) (ExecutionResult, error) {
	timeoutMs := t.EffectiveTimeoutMs()
	attemptCtx, cancel := context.WithTimeout(overallAbort, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	start := time.Now()

	if s.Invoke == nil {
		return ExecutionResult{Status: StatusSuccess, LatencyMs: elapsedMs(start), Output: map[string]any{}}, nil
	}

	result, err := s.Invoke(attemptCtx, t, input)
	if err != nil {
		return ExecutionResult{}, err
	}
	if result.LatencyMs == 0 {
		result.LatencyMs = elapsedMs(start)
	}
	return result, nil
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

// Normalize converts an error thrown by an Executor into a typed
// ExecutionResult per the documented fallback rule: if the overall abort
// has already fired, classify as timeout; otherwise as failure.
func Normalize(overallAbort context.Context, err error) ExecutionResult {
	if overallAbort.Err() != nil {
		return ExecutionResult{Status: StatusTimeout, Error: err.Error()}
	}
	return ExecutionResult{Status: StatusFailure, Error: err.Error()}
}
