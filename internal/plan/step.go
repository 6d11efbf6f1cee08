package plan

import "fmt"

// SideEffect classifies what a step does to the outside world. It controls
// whether the step must pass the approval gate before execution. The registry
// is the single source of truth for a tool's classification.
type SideEffect string

const (
	SideEffectReadOnly SideEffect = "read-only"
	SideEffectPropose  SideEffect = "propose"
	SideEffectExecute  SideEffect = "execute"
)

// IsValid checks if the SideEffect is a known value.
func (s SideEffect) IsValid() bool {
	switch s {
	case SideEffectReadOnly, SideEffectPropose, SideEffectExecute:
		return true
	default:
		return false
	}
}

// RequiresApproval reports whether a step of this class must be approved
// before execution.
func (s SideEffect) RequiresApproval() bool {
	return s == SideEffectPropose || s == SideEffectExecute
}

// Step is a single tool invocation within a plan. Steps are immutable once
// the plan is built; execution order is the slice order.
type Step struct {
	// Index is 1-based and matches the step's position in the plan.
	Index int `json:"index"`

	Tool   string         `json:"tool"`
	Name   string         `json:"name"`
	Input  map[string]any `json:"input"`
	Reason string         `json:"reason,omitempty"`

	// EstimatedCost is charged against the plan's budget on success only.
	EstimatedCost float64 `json:"estimated_cost"`

	Domain     string     `json:"domain"`
	SideEffect SideEffect `json:"side_effect_class"`

	// DependsOn is the 1-based index of a prior step whose output seeds this
	// step's input at execution time. Zero means no dependency.
	DependsOn int `json:"depends_on,omitempty"`

	// OutputBindings maps input keys to output keys of the DependsOn step.
	// The coordinator performs the substitution; the planner leaves
	// placeholder values in Input.
	OutputBindings map[string]string `json:"output_bindings,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate checks the step's structural invariants.
func (s *Step) Validate() error {
	if s.Index < 1 {
		return fmt.Errorf("step index must be 1-based, got %d", s.Index)
	}
	if s.Tool == "" {
		return fmt.Errorf("step %d: tool name is required", s.Index)
	}
	if s.EstimatedCost <= 0 {
		return fmt.Errorf("step %d: estimated cost must be positive, got %v", s.Index, s.EstimatedCost)
	}
	if s.Domain == "" {
		return fmt.Errorf("step %d: domain is required", s.Index)
	}
	if !s.SideEffect.IsValid() {
		return fmt.Errorf("step %d: invalid side effect class %q", s.Index, s.SideEffect)
	}
	if s.DependsOn != 0 && (s.DependsOn < 1 || s.DependsOn >= s.Index) {
		return fmt.Errorf("step %d: depends_on must reference a prior step, got %d", s.Index, s.DependsOn)
	}
	return nil
}
