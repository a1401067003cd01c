package planner

import (
	"context"

	"github.com/Mindburn-Labs/caprouter/pkg/executor"
	"github.com/Mindburn-Labs/caprouter/pkg/tracestore"
)

// executeLoop attempts scored candidates strictly sequentially,
// highest-score first, until one succeeds, the overall deadline fires, a
// tool reports a terminal timeout, or all candidates are exhausted.
func (p *Planner) executeLoop(overallCtx context.Context, traceID string, req Context, scored []ScoredCandidate, result Result) Result {
	for rank, cand := range scored {
		p.emit(traceID, tracestore.EventAttempt, map[string]any{
			"toolId": cand.ToolID,
			"rank":   rank,
		})

		execResult, err := p.exec.Execute(overallCtx, cand.Tool, req.Input)
		if err != nil {
			execResult = executor.Normalize(overallCtx, err)
		}

		switch execResult.Status {
		case executor.StatusSuccess:
			if p.postCheckPasses(req, cand, execResult) {
				id := cand.ToolID
				result.Selected = &id
				result.Execution = &execResult
				p.metrics.PlannerSelected.WithLabelValues(req.Capability, cand.ToolID).Inc()
				p.metrics.ExecLatencyMs.WithLabelValues(cand.ToolID).Observe(float64(execResult.LatencyMs))
				p.emit(traceID, tracestore.EventSelected, map[string]any{"toolId": cand.ToolID})
				p.emit(traceID, tracestore.EventSuccess, map[string]any{"toolId": cand.ToolID, "latencyMs": execResult.LatencyMs})
				return result
			}
			p.metrics.PlannerFallback.WithLabelValues(req.Capability).Inc()
			p.emit(traceID, tracestore.EventPostFallback, map[string]any{"toolId": cand.ToolID})

		case executor.StatusTimeout:
			result.Execution = &execResult
			p.emit(traceID, tracestore.EventTimeout, map[string]any{"toolId": cand.ToolID, "error": execResult.Error})
			return result // terminal: no further candidates attempted

		case executor.StatusFailure:
			p.metrics.PlannerFallback.WithLabelValues(req.Capability).Inc()
			p.emit(traceID, tracestore.EventFallback, map[string]any{"toolId": cand.ToolID, "error": execResult.Error})
		}

		if overallCtx.Err() != nil {
			result.Execution = &executor.ExecutionResult{Status: executor.StatusTimeout, Error: "overall deadline exceeded"}
			p.emit(traceID, tracestore.EventTimeout, map[string]any{"reason": "overall_deadline"})
			return result
		}
	}

	result.Code = CodeAllCandidatesFailed
	result.Execution = &executor.ExecutionResult{Status: executor.StatusFailure, Error: string(CodeAllCandidatesFailed)}
	p.emit(traceID, tracestore.EventFailure, map[string]any{"code": string(CodeAllCandidatesFailed)})
	return result
}

// postCheckPasses runs the post-check for a successful attempt. With no
// policy service attached, every success passes.
func (p *Planner) postCheckPasses(req Context, cand ScoredCandidate, execResult executor.ExecutionResult) bool {
	if p.policySvc == nil {
		return true
	}
	post := p.policySvc.PostCheck(req.Tenant, req.Capability, execResult.Output)
	return post.Pass
}
