// Package llm provides the goal-decomposition collaborator contract and a
// langchaingo-backed implementation. Decomposition failures are returned as
// explicit result values so the planner can branch to its rule-based fallback
// without catching errors.
package llm

import (
	"context"

	"github.com/cadence-hq/cadence/internal/registry"
)

// DecomposedStep is one step proposed by the decomposer. Domain and
// side-effect classification are NOT part of the contract: the planner looks
// those up from the registry so safety stays registry-controlled.
type DecomposedStep struct {
	Tool          string         `json:"tool"`
	Input         map[string]any `json:"input"`
	Reason        string         `json:"reason"`
	EstimatedCost float64        `json:"estimated_cost"`
}

// DecomposeContext carries ambient information for the decomposition request.
type DecomposeContext struct {
	TraceID  string
	Profile  string
	Prospect map[string]any
}

// DecomposeResult is the explicit outcome of a decomposition attempt. A
// failed attempt carries Err; the caller branches on OK rather than catching.
type DecomposeResult struct {
	Steps []DecomposedStep
	Err   error
}

// OK reports whether the attempt produced at least one usable step.
func (r DecomposeResult) OK() bool {
	return r.Err == nil && len(r.Steps) > 0
}

// Failure builds a failed result.
func Failure(err error) DecomposeResult {
	return DecomposeResult{Err: err}
}

// GoalDecomposer turns a high-level goal into candidate steps over the tools
// a profile allows.
type GoalDecomposer interface {
	// Available reports whether the decomposer can serve requests at all.
	Available() bool

	// DecomposeGoal proposes steps for the goal. Any internal error is
	// reported through the result, never panicked or swallowed.
	DecomposeGoal(ctx context.Context, goal string, tools []registry.ToolInfo, dc DecomposeContext) DecomposeResult
}
