package plan

import (
	"fmt"
	"time"

	"github.com/cadence-hq/cadence/internal/approval"
	"github.com/cadence-hq/cadence/internal/failure"
	"github.com/cadence-hq/cadence/internal/types"
)

// StepStatus is the terminal status of one executed (or skipped) step.
type StepStatus string

const (
	StepStatusSuccess        StepStatus = "success"
	StepStatusError          StepStatus = "error"
	StepStatusBudgetExceeded StepStatus = "budget_exceeded"
	StepStatusApprovalDenied StepStatus = "approval_denied"
)

// StepOutcome records how a single step ended. Budget-exceeded and
// approval-denied are first-class outcomes, not errors.
type StepOutcome struct {
	Index  int        `json:"index"`
	Tool   string     `json:"tool"`
	Domain string     `json:"domain"`
	Status StepStatus `json:"status"`

	Output map[string]any `json:"output,omitempty"`

	// Reason explains non-success outcomes: the deficit for budget skips,
	// the approval reason for denials, the failure message for errors.
	Reason string `json:"reason,omitempty"`

	Error       string       `json:"error,omitempty"`
	FailureMode failure.Mode `json:"failure_mode,omitempty"`

	ApprovalRequired bool          `json:"approval_required,omitempty"`
	ApprovalWait     time.Duration `json:"approval_wait,omitempty"`

	Duration time.Duration `json:"duration"`
}

// BudgetUsage tracks cost actually charged during execution, broken down by
// domain and tool. Cost is charged on success only.
type BudgetUsage struct {
	Total    float64            `json:"total"`
	ByDomain map[string]float64 `json:"by_domain"`
	ByTool   map[string]float64 `json:"by_tool"`
}

// NewBudgetUsage returns an empty usage record with initialized maps.
func NewBudgetUsage() BudgetUsage {
	return BudgetUsage{
		ByDomain: make(map[string]float64),
		ByTool:   make(map[string]float64),
	}
}

// Charge adds cost for a successful step to the total and breakdowns.
func (b *BudgetUsage) Charge(domain, tool string, cost float64) {
	b.Total += cost
	b.ByDomain[domain] += cost
	b.ByTool[tool] += cost
}

// Result is the complete outcome of executing one plan. It is always fully
// populated, including under partial failure, so callers get a complete
// partial-result view.
type Result struct {
	PlanID  types.ID `json:"plan_id"`
	Success bool     `json:"success"`

	Outcomes []StepOutcome `json:"outcomes"`
	TraceID  string        `json:"trace_id"`

	Budget         BudgetUsage `json:"budget"`
	BudgetCeiling  float64     `json:"budget_ceiling"`
	BudgetExceeded bool        `json:"budget_exceeded"`

	Approvals         []approval.Response `json:"approvals,omitempty"`
	TotalApprovalWait time.Duration       `json:"total_approval_wait"`

	Duration time.Duration `json:"duration"`
}

// CompletedSteps returns the names of steps that succeeded.
func (r *Result) CompletedSteps() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Status == StepStatusSuccess {
			out = append(out, o.Tool)
		}
	}
	return out
}

// FailedSteps returns the names of steps that did not succeed.
func (r *Result) FailedSteps() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Status != StepStatusSuccess {
			out = append(out, o.Tool)
		}
	}
	return out
}

// ErrorCode is the type of error raised during plan creation or execution.
type ErrorCode string

const (
	ErrPlanGenerationFailed ErrorCode = "plan_generation_failed"
	ErrInvalidPlan          ErrorCode = "invalid_plan"
	ErrInvalidProfile       ErrorCode = "invalid_profile"
	ErrUnknownTool          ErrorCode = "unknown_tool"
	ErrStepExecutionFailed  ErrorCode = "step_execution_failed"
	ErrApprovalTimeout      ErrorCode = "approval_timeout"
	ErrApprovalDenied       ErrorCode = "approval_denied"
)

// Error is a structured plan-level error.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	StepIdx int       `json:"step_index,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var stepInfo string
	if e.StepIdx > 0 {
		stepInfo = fmt.Sprintf(" (step %d)", e.StepIdx)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s%s: %v", e.Code, e.Message, stepInfo, e.Cause)
	}
	return fmt.Sprintf("%s: %s%s", e.Code, e.Message, stepInfo)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
