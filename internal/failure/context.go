package failure

import (
	"fmt"
)

// Stage identifies the orchestration lifecycle phase where a failure occurred.
type Stage string

const (
	StagePlanning       Stage = "planning"
	StageValidation     Stage = "validation"
	StageApproval       Stage = "approval"
	StageExecution      Stage = "execution"
	StageToolInvocation Stage = "tool_invocation"
	StageAggregation    Stage = "aggregation"
	StageCompletion     Stage = "completion"
)

// PartialResult represents partial success with completed and failed
// components. It lets callers salvage what finished before the failure.
type PartialResult struct {
	CompletedSteps []string       `json:"completed_steps"`
	FailedSteps    []string       `json:"failed_steps"`
	PartialData    map[string]any `json:"partial_data"`
	Mode           Mode           `json:"failure_mode"`
	RecoveryHint   string         `json:"recovery_strategy,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// CompletionRatio returns the fraction of steps that completed, in [0.0, 1.0].
// A result with no steps at all has ratio 0.
func (p *PartialResult) CompletionRatio() float64 {
	total := len(p.CompletedSteps) + len(p.FailedSteps)
	if total == 0 {
		return 0.0
	}
	return float64(len(p.CompletedSteps)) / float64(total)
}

// IsRecoverable reports whether the partial result can be resumed: the
// failure mode must be retryable and at least one step must have completed.
func (p *PartialResult) IsRecoverable() bool {
	return p.Mode.Retryable() && p.CompletionRatio() > 0.0
}

// Context carries everything known about a failure: its mode, the lifecycle
// stage, the original cause, any partial result, and retry bookkeeping.
type Context struct {
	Mode       Mode
	Stage      Stage
	Message    string
	Cause      error
	TraceID    string
	Operation  string
	Partial    *PartialResult
	RetryCount int
	Metadata   map[string]any
}

// FromError builds a failure context from an error, classifying its mode when
// mode is empty.
func FromError(err error, stage Stage, mode Mode) *Context {
	if mode == "" {
		mode = Classify(err)
	}

	msg := ""
	if err != nil {
		msg = err.Error()
	}

	return &Context{
		Mode:    mode,
		Stage:   stage,
		Message: msg,
		Cause:   err,
		Metadata: map[string]any{
			"error_type": fmt.Sprintf("%T", err),
		},
	}
}

// Err converts the context into an error suitable for propagation. The
// returned error unwraps to the original cause.
func (c *Context) Err() error {
	return &Error{Context: c}
}

// Error is the error form of a failure context.
type Error struct {
	Context *Context
}

// Error implements the error interface.
func (e *Error) Error() string {
	c := e.Context
	return fmt.Sprintf("%s failure at %s: %s", c.Mode, c.Stage, c.Message)
}

// Unwrap returns the original cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Context.Cause
}

// Recoverable reports whether the underlying mode is retryable.
func (e *Error) Recoverable() bool {
	return e.Context.Mode.Retryable()
}
