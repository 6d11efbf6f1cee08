// Package planner builds plans from goals. The LLM path delegates to a
// GoalDecomposer and converts its steps under registry control; any failure
// on that path falls back to deterministic rule-based planning, never to an
// error.
package planner

import (
	"context"
	"log/slog"
	"time"

	"github.com/cadence-hq/cadence/internal/llm"
	"github.com/cadence-hq/cadence/internal/plan"
	"github.com/cadence-hq/cadence/internal/registry"
	"github.com/cadence-hq/cadence/internal/types"
)

// DefaultStepCost applies when the decomposer omits a step's estimated cost.
const DefaultStepCost = 0.5

// Planner creates plans for one profile. It holds no mutable state beyond
// the read-only registry, so it is safe for concurrent use.
type Planner struct {
	registry   *registry.Registry
	profile    string
	decomposer llm.GoalDecomposer
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Planner.
type Option func(*Planner)

// WithDecomposer wires in a goal decomposer for the LLM path.
func WithDecomposer(d llm.GoalDecomposer) Option {
	return func(p *Planner) {
		p.decomposer = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		p.logger = logger
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) {
		p.now = now
	}
}

// New creates a Planner for the given registry and profile.
func New(reg *registry.Registry, profile string, opts ...Option) *Planner {
	p := &Planner{
		registry: reg,
		profile:  profile,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LLMAvailable reports whether the LLM path can be attempted.
func (p *Planner) LLMAvailable() bool {
	return p.decomposer != nil && p.decomposer.Available()
}

// CreatePlan builds a plan for the goal. When useLLM is true and a decomposer
// is available the LLM path is attempted first; its failure downgrades to the
// rule-based fallback rather than propagating. An unknown profile is the one
// condition that errors synchronously.
func (p *Planner) CreatePlan(ctx context.Context, goal, traceID string, prospect map[string]any, useLLM bool) (*plan.Plan, error) {
	if _, err := p.registry.Profile(p.profile); err != nil {
		return nil, &plan.Error{
			Code:    plan.ErrInvalidProfile,
			Message: "cannot plan for unknown profile " + p.profile,
			Cause:   err,
		}
	}

	if useLLM && p.LLMAvailable() {
		if pl, ok := p.tryLLMPlan(ctx, goal, traceID, prospect); ok {
			return pl, nil
		}
		p.logger.Warn("LLM planning failed, falling back to rule-based",
			"trace_id", traceID,
			"goal", goal)
	}

	return p.ruleBasedPlan(goal, traceID, prospect), nil
}

// tryLLMPlan attempts the decomposition path. Domain and side-effect metadata
// come from the registry, never from the model; a step naming an unregistered
// tool fails the whole attempt.
func (p *Planner) tryLLMPlan(ctx context.Context, goal, traceID string, prospect map[string]any) (*plan.Plan, bool) {
	tools, err := p.registry.AvailableTools(p.profile)
	if err != nil {
		return nil, false
	}

	result := p.decomposer.DecomposeGoal(ctx, goal, tools, llm.DecomposeContext{
		TraceID:  traceID,
		Profile:  p.profile,
		Prospect: prospect,
	})
	if !result.OK() {
		if result.Err != nil {
			p.logger.Warn("goal decomposition failed",
				"trace_id", traceID,
				"error", result.Err)
		}
		return nil, false
	}

	profile, _ := p.registry.Profile(p.profile)

	steps := make([]plan.Step, 0, len(result.Steps))
	for i, ds := range result.Steps {
		def, err := p.registry.Tool(ds.Tool)
		if err != nil || !profile.Allows(ds.Tool) {
			p.logger.Warn("decomposed step rejected",
				"trace_id", traceID,
				"tool", ds.Tool)
			return nil, false
		}

		cost := ds.EstimatedCost
		if cost <= 0 {
			cost = DefaultStepCost
		}
		name := def.Description
		if name == "" {
			name = ds.Tool
		}
		reason := ds.Reason
		if reason == "" {
			reason = "LLM-generated step"
		}
		input := ds.Input
		if input == nil {
			input = map[string]any{}
		}

		steps = append(steps, plan.Step{
			Index:         i + 1,
			Tool:          ds.Tool,
			Name:          name,
			Input:         input,
			Reason:        reason,
			EstimatedCost: cost,
			Domain:        def.Domain,
			SideEffect:    def.SideEffects,
			Metadata:      map[string]any{"llm_generated": true},
		})
	}

	pl := &plan.Plan{
		ID:      types.NewID(),
		Goal:    goal,
		Steps:   steps,
		Budget:  plan.Budget{CallCeiling: p.registry.BudgetCeiling(p.profile)},
		TraceID: traceID,
		Profile: p.profile,
		Metadata: map[string]any{
			"llm_generated": true,
			"rule_based":    false,
		},
		CreatedAt: p.now(),
	}

	if err := pl.Validate(); err != nil {
		p.logger.Warn("LLM plan failed validation",
			"trace_id", traceID,
			"error", err)
		return nil, false
	}

	if pl.ExceedsBudget() {
		p.logger.Warn("plan estimated cost exceeds budget ceiling",
			"trace_id", traceID,
			"estimated", pl.TotalEstimatedCost(),
			"ceiling", pl.Budget.CallCeiling)
	}

	p.logger.Info("LLM plan created",
		"trace_id", traceID,
		"plan_id", pl.ID,
		"steps", len(steps))

	return pl, true
}
