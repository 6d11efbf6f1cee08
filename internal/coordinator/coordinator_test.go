package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadence-hq/cadence/internal/approval"
	"github.com/cadence-hq/cadence/internal/events"
	"github.com/cadence-hq/cadence/internal/failure"
	"github.com/cadence-hq/cadence/internal/plan"
	"github.com/cadence-hq/cadence/internal/retry"
	"github.com/cadence-hq/cadence/internal/tool"
	"github.com/cadence-hq/cadence/internal/tool/sales"
	"github.com/cadence-hq/cadence/internal/types"
)

type fakeTool struct {
	name   string
	domain string
	effect plan.SideEffect
	fn     func(ctx context.Context, input map[string]any) (map[string]any, error)
}

func (f *fakeTool) Name() string                { return f.name }
func (f *fakeTool) Description() string         { return "fake" }
func (f *fakeTool) Domain() string              { return f.domain }
func (f *fakeTool) SideEffect() plan.SideEffect { return f.effect }

func (f *fakeTool) Health(ctx context.Context) types.HealthStatus {
	return types.Healthy("ok")
}

func (f *fakeTool) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	if f.fn != nil {
		return f.fn(ctx, input)
	}
	return map[string]any{"ok": true}, nil
}

func testPlan(ceiling float64, steps ...plan.Step) *plan.Plan {
	for i := range steps {
		steps[i].Index = i + 1
		if steps[i].Domain == "" {
			steps[i].Domain = "test"
		}
		if steps[i].SideEffect == "" {
			steps[i].SideEffect = plan.SideEffectReadOnly
		}
		if steps[i].EstimatedCost == 0 {
			steps[i].EstimatedCost = 1.0
		}
	}
	return &plan.Plan{
		ID:      types.NewID(),
		Goal:    "test goal",
		Steps:   steps,
		Budget:  plan.Budget{CallCeiling: ceiling},
		TraceID: "trace-test",
		Profile: "sales_default",
	}
}

func TestExecuteAllStepsSucceed(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(&fakeTool{name: "a"}))
	require.NoError(t, reg.Register(&fakeTool{name: "b"}))

	coord := New(reg)
	res, err := coord.Execute(context.Background(), testPlan(10,
		plan.Step{Tool: "a"},
		plan.Step{Tool: "b"},
	))
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.False(t, res.BudgetExceeded)
	assert.Len(t, res.Outcomes, 2)
	assert.Equal(t, []string{"a", "b"}, res.CompletedSteps())
	assert.Equal(t, 2.0, res.Budget.Total)
}

func TestExecuteNilAndInvalidPlan(t *testing.T) {
	coord := New(tool.NewRegistry())

	_, err := coord.Execute(context.Background(), nil)
	require.Error(t, err)

	var perr *plan.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, plan.ErrInvalidPlan, perr.Code)

	bad := testPlan(10, plan.Step{Tool: "a"})
	bad.Steps[0].Index = 7
	_, err = coord.Execute(context.Background(), bad)
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, plan.ErrInvalidPlan, perr.Code)
}

func TestExecuteBudgetHardSkip(t *testing.T) {
	reg := tool.NewRegistry()
	calls := map[string]int{}
	for _, name := range []string{"first", "second", "third"} {
		name := name
		require.NoError(t, reg.Register(&fakeTool{name: name, fn: func(ctx context.Context, in map[string]any) (map[string]any, error) {
			calls[name]++
			return map[string]any{}, nil
		}}))
	}

	coord := New(reg)
	res, err := coord.Execute(context.Background(), testPlan(100,
		plan.Step{Tool: "first", EstimatedCost: 60},
		plan.Step{Tool: "second", EstimatedCost: 50},
		plan.Step{Tool: "third", EstimatedCost: 30},
	))
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.True(t, res.BudgetExceeded)

	assert.Equal(t, plan.StepStatusSuccess, res.Outcomes[0].Status)
	assert.Equal(t, plan.StepStatusBudgetExceeded, res.Outcomes[1].Status)
	assert.Contains(t, res.Outcomes[1].Reason, "exceed ceiling")
	assert.Contains(t, res.Outcomes[1].Reason, "10.00")

	// Third step still fits: 60 + 30 <= 100.
	assert.Equal(t, plan.StepStatusSuccess, res.Outcomes[2].Status)
	assert.Equal(t, 90.0, res.Budget.Total)

	assert.Equal(t, 0, calls["second"])
	assert.Equal(t, 1, calls["third"])
}

func TestExecuteBudgetWarningEvent(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(&fakeTool{name: "a"}))
	require.NoError(t, reg.Register(&fakeTool{name: "a2"}))

	bus := events.NewBus()
	defer bus.Close()
	ch, cleanup := bus.Subscribe(context.Background(), events.Filter{
		Types: []events.EventType{events.EventBudgetWarning},
	}, 10)
	defer cleanup()

	coord := New(reg, WithBus(bus))
	_, err := coord.Execute(context.Background(), testPlan(10,
		plan.Step{Tool: "a", EstimatedCost: 8.5},
		plan.Step{Tool: "a2", EstimatedCost: 1},
	))
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, events.EventBudgetWarning, ev.Type)
		assert.Equal(t, 2, ev.Payload["step"])
		assert.Equal(t, 8.5, ev.Payload["used"])
	case <-time.After(time.Second):
		t.Fatal("no budget warning published")
	}
}

func TestExecuteApprovalApproved(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(&fakeTool{name: "send", effect: plan.SideEffectPropose}))

	resolver := approval.NewMockResolver(approval.MockApprove("alice"))
	gate := approval.NewGate(approval.DefaultPolicy(), resolver)

	coord := New(reg, WithGate(gate))
	res, err := coord.Execute(context.Background(), testPlan(10,
		plan.Step{Tool: "send", SideEffect: plan.SideEffectPropose},
	))
	require.NoError(t, err)

	assert.True(t, res.Success)
	require.Len(t, res.Approvals, 1)
	assert.Equal(t, approval.StatusApproved, res.Approvals[0].Status)
	assert.True(t, res.Outcomes[0].ApprovalRequired)

	reqs := resolver.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "send", reqs[0].Operation)
	assert.Equal(t, "medium", reqs[0].RiskLevel)
}

func TestExecuteApprovalDeniedContinues(t *testing.T) {
	reg := tool.NewRegistry()
	sendCalls := 0
	require.NoError(t, reg.Register(&fakeTool{name: "send", effect: plan.SideEffectExecute, fn: func(ctx context.Context, in map[string]any) (map[string]any, error) {
		sendCalls++
		return map[string]any{}, nil
	}}))
	require.NoError(t, reg.Register(&fakeTool{name: "after"}))

	resolver := approval.NewMockResolver(approval.MockDeny("too risky"))
	gate := approval.NewGate(approval.DefaultPolicy(), resolver)

	coord := New(reg, WithGate(gate))
	res, err := coord.Execute(context.Background(), testPlan(10,
		plan.Step{Tool: "send", SideEffect: plan.SideEffectExecute},
		plan.Step{Tool: "after"},
	))
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, plan.StepStatusApprovalDenied, res.Outcomes[0].Status)
	assert.Equal(t, "too risky", res.Outcomes[0].Reason)
	assert.Equal(t, 0, sendCalls)

	// Denial does not halt the plan.
	assert.Equal(t, plan.StepStatusSuccess, res.Outcomes[1].Status)
	// Denied step cost is not charged.
	assert.Equal(t, 1.0, res.Budget.Total)
}

func TestExecuteReadOnlySkipsGate(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(&fakeTool{name: "lookup"}))

	resolver := approval.NewMockResolver()
	gate := approval.NewGate(approval.DefaultPolicy(), resolver)

	coord := New(reg, WithGate(gate))
	res, err := coord.Execute(context.Background(), testPlan(10,
		plan.Step{Tool: "lookup"},
	))
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Empty(t, resolver.Requests())
	assert.Empty(t, res.Approvals)
}

func TestExecuteStepErrorClassifiedAndContinues(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(&fakeTool{name: "flaky", fn: func(ctx context.Context, in map[string]any) (map[string]any, error) {
		return nil, errors.New("connection refused by upstream")
	}}))
	require.NoError(t, reg.Register(&fakeTool{name: "after"}))

	coord := New(reg)
	res, err := coord.Execute(context.Background(), testPlan(10,
		plan.Step{Tool: "flaky"},
		plan.Step{Tool: "after"},
	))
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, plan.StepStatusError, res.Outcomes[0].Status)
	assert.Equal(t, failure.SystemNetwork, res.Outcomes[0].FailureMode)
	assert.Equal(t, plan.StepStatusSuccess, res.Outcomes[1].Status)
	// Failed step cost is not charged.
	assert.Equal(t, 1.0, res.Budget.Total)
}

func TestExecuteWithRetrierRecovers(t *testing.T) {
	reg := tool.NewRegistry()
	attempts := 0
	require.NoError(t, reg.Register(&fakeTool{name: "flaky", fn: func(ctx context.Context, in map[string]any) (map[string]any, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("connection reset by peer")
		}
		return map[string]any{"attempts": attempts}, nil
	}}))

	policy := retry.NewExponentialBackoff()
	retrier := retry.NewExecutor(policy, retry.WithSleep(func(ctx context.Context, d time.Duration) error {
		return nil
	}))

	coord := New(reg, WithRetrier(retrier))
	res, err := coord.Execute(context.Background(), testPlan(10,
		plan.Step{Tool: "flaky"},
	))
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, res.Outcomes[0].Output["attempts"])
}

func TestExecuteSplicesDependentOutputs(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(&fakeTool{name: "draft", fn: func(ctx context.Context, in map[string]any) (map[string]any, error) {
		return map[string]any{"message_draft": "hello there", "subject": "hi"}, nil
	}}))

	var seen map[string]any
	require.NoError(t, reg.Register(&fakeTool{name: "assess", fn: func(ctx context.Context, in map[string]any) (map[string]any, error) {
		seen = in
		return map[string]any{}, nil
	}}))

	coord := New(reg)
	res, err := coord.Execute(context.Background(), testPlan(10,
		plan.Step{Tool: "draft"},
		plan.Step{
			Tool:           "assess",
			Input:          map[string]any{"message": "", "subject": "", "extra": "kept"},
			DependsOn:      1,
			OutputBindings: map[string]string{"message": "message_draft", "subject": "subject"},
		},
	))
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.Equal(t, "hello there", seen["message"])
	assert.Equal(t, "hi", seen["subject"])
	assert.Equal(t, "kept", seen["extra"])
}

func TestExecuteSpliceSkippedWhenDependencyFailed(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(&fakeTool{name: "draft", fn: func(ctx context.Context, in map[string]any) (map[string]any, error) {
		return nil, errors.New("boom")
	}}))

	var seen map[string]any
	require.NoError(t, reg.Register(&fakeTool{name: "assess", fn: func(ctx context.Context, in map[string]any) (map[string]any, error) {
		seen = in
		return map[string]any{}, nil
	}}))

	coord := New(reg)
	_, err := coord.Execute(context.Background(), testPlan(10,
		plan.Step{Tool: "draft"},
		plan.Step{
			Tool:           "assess",
			Input:          map[string]any{"message": "placeholder"},
			DependsOn:      1,
			OutputBindings: map[string]string{"message": "message_draft"},
		},
	))
	require.NoError(t, err)

	// Placeholder survives when the dependency produced no output.
	assert.Equal(t, "placeholder", seen["message"])
}

func TestExecutePropagatesInvocationContext(t *testing.T) {
	reg := tool.NewRegistry()
	var inv tool.Invocation
	require.NoError(t, reg.Register(&fakeTool{name: "a", fn: func(ctx context.Context, in map[string]any) (map[string]any, error) {
		inv, _ = tool.InvocationFromContext(ctx)
		return map[string]any{}, nil
	}}))

	coord := New(reg)
	_, err := coord.Execute(context.Background(), testPlan(10, plan.Step{Tool: "a"}))
	require.NoError(t, err)

	assert.Equal(t, "trace-test", inv.TraceID)
	assert.Equal(t, "sales_default", inv.Profile)
}

func TestExecutePublishesLifecycleEvents(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(&fakeTool{name: "a"}))

	bus := events.NewBus()
	defer bus.Close()
	ch, cleanup := bus.Subscribe(context.Background(), events.Filter{TraceID: "trace-test"}, 50)
	defer cleanup()

	coord := New(reg, WithBus(bus))
	_, err := coord.Execute(context.Background(), testPlan(10, plan.Step{Tool: "a"}))
	require.NoError(t, err)

	var seen []events.EventType
	for len(ch) > 0 {
		seen = append(seen, (<-ch).Type)
	}
	assert.Contains(t, seen, events.EventPlanStarted)
	assert.Contains(t, seen, events.EventStepCompleted)
	assert.Contains(t, seen, events.EventPlanCompleted)
}

func TestExecuteCanonicalSalesPlan(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, sales.RegisterAll(reg))

	resolver := approval.NewMockResolver(approval.MockApprove("sales-lead"))
	gate := approval.NewGate(approval.DefaultPolicy(), resolver)

	coord := New(reg, WithGate(gate))

	p := testPlan(50,
		plan.Step{
			Tool:   "score_account_fit",
			Domain: "intelligence",
			Input: map[string]any{
				"account": map[string]any{
					"company":        "Acme Corp",
					"industry":       "Technology",
					"employee_count": 500,
					"revenue":        10000000,
				},
				"icp_criteria": map[string]any{
					"target_industries":  []string{"Technology", "SaaS", "Financial Services"},
					"min_employee_count": 100,
					"min_revenue":        1000000,
				},
			},
			EstimatedCost: 0.5,
		},
		plan.Step{
			Tool:       "draft_outbound_message",
			Domain:     "engagement",
			SideEffect: plan.SideEffectPropose,
			Input: map[string]any{
				"prospect_data": map[string]any{
					"first_name":  "Jo",
					"company":     "Acme Corp",
					"department":  "sales",
					"pain_point":  "slow ramp",
					"value_prop":  "ramp reps faster",
					"sender_name": "Sam",
				},
			},
			EstimatedCost: 1.0,
		},
		plan.Step{
			Tool:           "assess_message_quality",
			Domain:         "engagement",
			Input:          map[string]any{"message": "", "subject": ""},
			DependsOn:      2,
			OutputBindings: map[string]string{"message": "message_draft", "subject": "subject"},
			EstimatedCost:  0.5,
		},
		plan.Step{
			Tool:   "qualify_opportunity",
			Domain: "qualification",
			Input: map[string]any{
				"opportunity_id": "opp-acme-corp",
				"criteria": map[string]any{
					"budget":    true,
					"authority": false,
					"need":      true,
					"timing":    true,
				},
			},
			EstimatedCost: 0.7,
		},
	)

	res, err := coord.Execute(context.Background(), p)
	require.NoError(t, err)

	require.True(t, res.Success, "outcomes: %+v", res.Outcomes)
	assert.InDelta(t, 2.7, res.Budget.Total, 1e-9)
	assert.Len(t, res.Approvals, 1)

	fit := res.Outcomes[0].Output
	assert.Equal(t, 1.0, fit["fit_score"])
	assert.Equal(t, "pursue", fit["recommendation"])

	quality := res.Outcomes[2].Output
	assert.NotContains(t, quality["issues"], "unresolved_placeholders")

	qual := res.Outcomes[3].Output
	assert.Equal(t, "BANT", qual["framework"])
	assert.Equal(t, 0.75, qual["qualification_score"])

	assert.InDelta(t, 1.5, res.Budget.ByDomain["engagement"], 1e-9)
	assert.InDelta(t, 0.5, res.Budget.ByDomain["intelligence"], 1e-9)
}
