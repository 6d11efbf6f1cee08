// Package plan defines the budget-aware plan data model: ordered steps with
// cost, domain and side-effect metadata, the aggregate budget, and the
// structured execution result. Plans are built once by the planner and
// consumed exactly once by the coordinator.
package plan

import (
	"fmt"
	"time"

	"github.com/cadence-hq/cadence/internal/types"
)

// Budget caps the aggregate estimated cost of a plan's steps. Checked softly
// at planning time and hard at execution time.
type Budget struct {
	CallCeiling float64 `json:"call_ceiling"`
}

// Plan is an immutable, ordered, budgeted sequence of tool invocations
// derived from a goal. Step order is execution order and is not reorderable.
type Plan struct {
	ID        types.ID       `json:"id"`
	Goal      string         `json:"goal"`
	Steps     []Step         `json:"steps"`
	Budget    Budget         `json:"budget"`
	TraceID   string         `json:"trace_id"`
	Profile   string         `json:"profile"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// TotalEstimatedCost sums the estimated cost of all steps.
func (p *Plan) TotalEstimatedCost() float64 {
	var total float64
	for _, s := range p.Steps {
		total += s.EstimatedCost
	}
	return total
}

// ExceedsBudget reports whether the total estimated cost is over the ceiling.
// At planning time this is a warning, not a failure; the coordinator enforces
// the ceiling per step.
func (p *Plan) ExceedsBudget() bool {
	return p.TotalEstimatedCost() > p.Budget.CallCeiling
}

// Validate checks the plan's structural invariants: a non-zero id, at least
// one step, sequential 1-based indices, valid steps, and a positive ceiling.
func (p *Plan) Validate() error {
	if p.ID.IsZero() {
		return fmt.Errorf("plan id is required")
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan must have at least one step")
	}
	if p.Budget.CallCeiling <= 0 {
		return fmt.Errorf("budget ceiling must be positive, got %v", p.Budget.CallCeiling)
	}
	for i, s := range p.Steps {
		if s.Index != i+1 {
			return fmt.Errorf("step at position %d has index %d, want %d", i, s.Index, i+1)
		}
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}
