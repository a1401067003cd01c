// Package scorer implements Contract-Net-style scalar bidding: each
// candidate tool bids a real-valued score for a capability request, the
// planner attempts candidates highest-bid-first.
package scorer

import (
	"math"

	"github.com/Mindburn-Labs/caprouter/pkg/tool"
)

// Weights are the linear-combination coefficients of the bid formula.
type Weights struct {
	Fit    float64
	SLA    float64
	Reward float64
	Cost   float64
}

// DefaultWeights matches the reference scoring profile.
var DefaultWeights = Weights{Fit: 0.45, SLA: 0.25, Reward: 0.15, Cost: 0.15}

const (
	slaCapMs        = 5000
	missingP95Ms    = 3000
	neutralReward   = 0.5
	constantFitBase = 1.0
)

// RequestContext carries the fields a Scorer needs beyond the tool itself.
// Input is retained for symmetry with pluggable scorers that do inspect the
// input, even though the default formula does not.
type RequestContext struct {
	Capability string
	Input      map[string]any
}

// Scorer maps (tool, context) to a real-valued bid.
type Scorer interface {
	Score(t tool.Tool, ctx RequestContext) float64
}

// Default is the weighted-linear Scorer described by the reference
// formula: s = wFit*fit + wSla*sla + wReward*reward - wCost*cost.
type Default struct {
	Weights Weights
}

// New constructs a Default scorer with DefaultWeights.
func New() *Default {
	return &Default{Weights: DefaultWeights}
}

// NewWithWeights constructs a Default scorer with custom weights.
func NewWithWeights(w Weights) *Default {
	return &Default{Weights: w}
}

// Score implements Scorer. The capability gate runs upstream of scoring,
// so fit is always the constant 1.0 here; reward is a neutral placeholder
// pending a learned signal.
func (d *Default) Score(t tool.Tool, _ RequestContext) float64 {
	fit := constantFitBase
	sla := slaComponent(t)
	reward := neutralReward
	cost := costComponent(t)

	s := d.Weights.Fit*fit + d.Weights.SLA*sla + d.Weights.Reward*reward - d.Weights.Cost*cost
	if !isFinite(s) {
		return math.Inf(-1)
	}
	return s
}

func slaComponent(t tool.Tool) float64 {
	p95 := float64(missingP95Ms)
	if t.SLA != nil && t.SLA.P95Ms > 0 {
		p95 = float64(t.SLA.P95Ms)
	}
	return clamp01(1 - math.Min(p95, slaCapMs)/slaCapMs)
}

func costComponent(t tool.Tool) float64 {
	if t.CostEstimate == nil {
		return 0
	}
	return *t.CostEstimate
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
