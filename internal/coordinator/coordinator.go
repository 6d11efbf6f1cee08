// Package coordinator executes validated plans step by step, enforcing the
// budget ceiling, routing side-effecting steps through the approval gate,
// splicing dependent step outputs, and assembling a complete result even
// under partial failure.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cadence-hq/cadence/internal/approval"
	"github.com/cadence-hq/cadence/internal/events"
	"github.com/cadence-hq/cadence/internal/failure"
	"github.com/cadence-hq/cadence/internal/plan"
	"github.com/cadence-hq/cadence/internal/retry"
	"github.com/cadence-hq/cadence/internal/tool"
)

// DefaultWarnThreshold is the fraction of the budget ceiling at which a
// warning is emitted before a step runs.
const DefaultWarnThreshold = 0.8

// Coordinator drives plan execution. It is stateless between Execute calls
// and safe for concurrent use.
type Coordinator struct {
	tools   *tool.Registry
	gate    *approval.Gate
	retrier *retry.Executor
	bus     events.Bus

	logger *slog.Logger
	tracer trace.Tracer

	stepTimeout   time.Duration
	warnThreshold float64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithGate routes propose and execute steps through an approval gate.
// Without a gate, all steps run unguarded.
func WithGate(gate *approval.Gate) Option {
	return func(c *Coordinator) {
		c.gate = gate
	}
}

// WithRetrier wraps each tool invocation in a retry executor.
func WithRetrier(r *retry.Executor) Option {
	return func(c *Coordinator) {
		c.retrier = r
	}
}

// WithBus publishes execution events to the given bus.
func WithBus(bus events.Bus) Option {
	return func(c *Coordinator) {
		c.bus = bus
	}
}

// WithLogger sets the structured logger for execution events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Coordinator) {
		c.tracer = tracer
	}
}

// WithStepTimeout bounds each tool invocation. Zero means no per-step bound.
func WithStepTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.stepTimeout = d
	}
}

// WithWarnThreshold sets the budget fraction that triggers a warning.
func WithWarnThreshold(f float64) Option {
	return func(c *Coordinator) {
		if f > 0 && f <= 1 {
			c.warnThreshold = f
		}
	}
}

// New creates a Coordinator over the given tool registry.
func New(tools *tool.Registry, opts ...Option) *Coordinator {
	c := &Coordinator{
		tools:         tools,
		logger:        slog.Default(),
		tracer:        otel.Tracer("cadence/coordinator"),
		warnThreshold: DefaultWarnThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute runs the plan to completion and returns the full result. Budget
// skips, approval denials, and step errors are recorded as outcomes and
// execution continues with the remaining steps; an error return means the
// plan itself was unusable.
func (c *Coordinator) Execute(ctx context.Context, p *plan.Plan) (*plan.Result, error) {
	if p == nil {
		return nil, &plan.Error{Code: plan.ErrInvalidPlan, Message: "plan is nil"}
	}
	if err := p.Validate(); err != nil {
		return nil, &plan.Error{Code: plan.ErrInvalidPlan, Message: "plan validation failed", Cause: err}
	}

	ctx, span := c.tracer.Start(ctx, "plan.execute",
		trace.WithAttributes(
			attribute.String("plan.id", p.ID.String()),
			attribute.String("plan.trace_id", p.TraceID),
			attribute.String("plan.profile", p.Profile),
			attribute.Int("plan.steps", len(p.Steps)),
			attribute.Float64("plan.budget_ceiling", p.Budget.CallCeiling),
		))
	defer span.End()

	start := time.Now()
	c.logger.Info("executing plan",
		"plan_id", p.ID,
		"trace_id", p.TraceID,
		"goal", p.Goal,
		"steps", len(p.Steps),
		"budget_ceiling", p.Budget.CallCeiling)
	c.publish(ctx, events.EventPlanStarted, p.TraceID, map[string]any{
		"plan_id": p.ID.String(),
		"goal":    p.Goal,
		"steps":   len(p.Steps),
	})

	result := &plan.Result{
		PlanID:        p.ID,
		TraceID:       p.TraceID,
		Budget:        plan.NewBudgetUsage(),
		BudgetCeiling: p.Budget.CallCeiling,
	}
	outputs := make(map[int]map[string]any)
	warned := false

	ctx = tool.WithInvocation(ctx, tool.Invocation{TraceID: p.TraceID, Profile: p.Profile})

	for _, step := range p.Steps {
		outcome := c.executeStep(ctx, p, step, result, outputs, &warned)
		result.Outcomes = append(result.Outcomes, outcome)
	}

	result.Duration = time.Since(start)
	result.Success = true
	for _, o := range result.Outcomes {
		if o.Status != plan.StepStatusSuccess {
			result.Success = false
		}
		if o.Status == plan.StepStatusBudgetExceeded {
			result.BudgetExceeded = true
		}
	}

	span.SetAttributes(
		attribute.Bool("plan.success", result.Success),
		attribute.Float64("plan.budget_used", result.Budget.Total),
	)

	eventType := events.EventPlanCompleted
	if !result.Success {
		eventType = events.EventPlanFailed
	}
	c.publish(ctx, eventType, p.TraceID, map[string]any{
		"plan_id":         p.ID.String(),
		"success":         result.Success,
		"budget_used":     result.Budget.Total,
		"budget_exceeded": result.BudgetExceeded,
		"completed":       result.CompletedSteps(),
		"failed":          result.FailedSteps(),
	})
	c.logger.Info("plan finished",
		"plan_id", p.ID,
		"success", result.Success,
		"budget_used", result.Budget.Total,
		"duration", result.Duration)

	return result, nil
}

func (c *Coordinator) executeStep(ctx context.Context, p *plan.Plan, step plan.Step, result *plan.Result, outputs map[int]map[string]any, warned *bool) plan.StepOutcome {
	ctx, span := c.tracer.Start(ctx, "step.execute",
		trace.WithAttributes(
			attribute.Int("step.index", step.Index),
			attribute.String("step.tool", step.Tool),
			attribute.String("step.domain", step.Domain),
			attribute.Float64("step.estimated_cost", step.EstimatedCost),
		))
	defer span.End()

	outcome := plan.StepOutcome{
		Index:  step.Index,
		Tool:   step.Tool,
		Domain: step.Domain,
	}
	stepStart := time.Now()

	// Hard budget check before the step runs. Cost is charged on success
	// only, so the projection uses charged cost plus this step's estimate.
	projected := result.Budget.Total + step.EstimatedCost
	if projected > p.Budget.CallCeiling {
		deficit := projected - p.Budget.CallCeiling
		outcome.Status = plan.StepStatusBudgetExceeded
		outcome.Reason = fmt.Sprintf("estimated cost %.2f would exceed ceiling %.2f by %.2f",
			step.EstimatedCost, p.Budget.CallCeiling, deficit)
		outcome.Duration = time.Since(stepStart)

		c.logger.Warn("step skipped, budget exceeded",
			"trace_id", p.TraceID,
			"step", step.Index,
			"tool", step.Tool,
			"deficit", deficit)
		c.publish(ctx, events.EventBudgetExceeded, p.TraceID, map[string]any{
			"step":    step.Index,
			"tool":    step.Tool,
			"deficit": deficit,
		})
		c.publish(ctx, events.EventStepSkipped, p.TraceID, map[string]any{
			"step":   step.Index,
			"tool":   step.Tool,
			"reason": outcome.Reason,
		})
		return outcome
	}

	if !*warned && result.Budget.Total >= c.warnThreshold*p.Budget.CallCeiling {
		*warned = true
		c.logger.Warn("budget warning threshold crossed",
			"trace_id", p.TraceID,
			"step", step.Index,
			"used", result.Budget.Total,
			"ceiling", p.Budget.CallCeiling)
		c.publish(ctx, events.EventBudgetWarning, p.TraceID, map[string]any{
			"step":    step.Index,
			"used":    result.Budget.Total,
			"ceiling": p.Budget.CallCeiling,
		})
	}

	input := spliceInput(step, outputs)

	if step.SideEffect.RequiresApproval() && c.gate != nil {
		outcome.ApprovalRequired = true
		approved, resp, err := c.approve(ctx, p, step)
		if err == nil {
			result.Approvals = append(result.Approvals, resp)
			result.TotalApprovalWait += resp.Wait
			outcome.ApprovalWait = resp.Wait
		}
		if err != nil {
			fc := failure.FromError(err, failure.StageApproval, "")
			outcome.Status = plan.StepStatusError
			outcome.Error = err.Error()
			outcome.FailureMode = fc.Mode
			outcome.Duration = time.Since(stepStart)
			span.RecordError(err)
			return outcome
		}
		if !approved {
			outcome.Status = plan.StepStatusApprovalDenied
			outcome.Reason = resp.Reason
			outcome.Duration = time.Since(stepStart)
			c.logger.Warn("step denied by approval gate",
				"trace_id", p.TraceID,
				"step", step.Index,
				"tool", step.Tool,
				"reason", resp.Reason)
			return outcome
		}
	}

	output, err := c.invoke(ctx, step, input)
	outcome.Duration = time.Since(stepStart)

	if err != nil {
		mode := failure.Classify(err)
		var ferr *failure.Error
		if errors.As(err, &ferr) {
			mode = ferr.Context.Mode
		}
		outcome.Status = plan.StepStatusError
		outcome.Error = err.Error()
		outcome.FailureMode = mode

		span.RecordError(err)
		c.logger.Error("step failed",
			"trace_id", p.TraceID,
			"step", step.Index,
			"tool", step.Tool,
			"mode", mode,
			"error", err)
		c.publish(ctx, events.EventStepFailed, p.TraceID, map[string]any{
			"step": step.Index,
			"tool": step.Tool,
			"mode": string(mode),
		})
		return outcome
	}

	outputs[step.Index] = output
	result.Budget.Charge(step.Domain, step.Tool, step.EstimatedCost)

	outcome.Status = plan.StepStatusSuccess
	outcome.Output = output

	c.logger.Info("step completed",
		"trace_id", p.TraceID,
		"step", step.Index,
		"tool", step.Tool,
		"cost", step.EstimatedCost,
		"duration", outcome.Duration)
	c.publish(ctx, events.EventStepCompleted, p.TraceID, map[string]any{
		"step": step.Index,
		"tool": step.Tool,
		"cost": step.EstimatedCost,
	})
	return outcome
}

// approve routes a step through the gate and reports whether it may run.
func (c *Coordinator) approve(ctx context.Context, p *plan.Plan, step plan.Step) (bool, approval.Response, error) {
	req := c.gate.CreateRequest(step.Tool, p.TraceID, map[string]any{
		"step":        step.Index,
		"domain":      step.Domain,
		"side_effect": string(step.SideEffect),
		"reason":      step.Reason,
	}, riskLevel(step.SideEffect), "coordinator")

	c.publish(ctx, events.EventApprovalRequested, p.TraceID, map[string]any{
		"request_id": req.ID.String(),
		"step":       step.Index,
		"tool":       step.Tool,
	})

	resp, err := c.gate.Resolve(ctx, req)
	if err != nil {
		return false, resp, err
	}

	c.publish(ctx, events.EventApprovalResolved, p.TraceID, map[string]any{
		"request_id": req.ID.String(),
		"step":       step.Index,
		"status":     string(resp.Status),
	})
	return resp.Status.Approved(), resp, nil
}

// invoke runs the tool, under the retrier when one is configured and within
// the per-step timeout.
func (c *Coordinator) invoke(ctx context.Context, step plan.Step, input map[string]any) (map[string]any, error) {
	if c.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.stepTimeout)
		defer cancel()
	}

	if c.retrier == nil {
		return c.tools.Execute(ctx, step.Tool, input)
	}

	var output map[string]any
	err := c.retrier.Execute(ctx, failure.StageToolInvocation, step.Tool, func(ctx context.Context) error {
		out, err := c.tools.Execute(ctx, step.Tool, input)
		if err != nil {
			return err
		}
		output = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return output, nil
}

// spliceInput copies the step's input and overlays values bound from the
// dependency's output. Bindings with no matching output key are left as the
// planner's placeholders.
func spliceInput(step plan.Step, outputs map[int]map[string]any) map[string]any {
	input := make(map[string]any, len(step.Input))
	for k, v := range step.Input {
		input[k] = v
	}
	if step.DependsOn == 0 || len(step.OutputBindings) == 0 {
		return input
	}
	prior, ok := outputs[step.DependsOn]
	if !ok {
		return input
	}
	for inputKey, outputKey := range step.OutputBindings {
		if v, exists := prior[outputKey]; exists {
			input[inputKey] = v
		}
	}
	return input
}

func riskLevel(effect plan.SideEffect) string {
	if effect == plan.SideEffectExecute {
		return "high"
	}
	return "medium"
}

func (c *Coordinator) publish(ctx context.Context, t events.EventType, traceID string, payload map[string]any) {
	if c.bus == nil {
		return
	}
	_ = c.bus.Publish(ctx, events.NewEvent(t, traceID, payload))
}
