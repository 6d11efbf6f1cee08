package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadence-hq/cadence/internal/types"
)

func validPlan() *Plan {
	return &Plan{
		ID:   types.NewID(),
		Goal: "engage prospect",
		Steps: []Step{
			{
				Index:         1,
				Tool:          "score_account_fit",
				Name:          "Score account fit",
				Input:         map[string]any{"company": "Acme"},
				EstimatedCost: 0.5,
				Domain:        "intelligence",
				SideEffect:    SideEffectReadOnly,
			},
			{
				Index:         2,
				Tool:          "draft_outbound_message",
				Name:          "Draft outreach",
				Input:         map[string]any{"contact_name": "Jo"},
				EstimatedCost: 1.0,
				Domain:        "engagement",
				SideEffect:    SideEffectPropose,
			},
			{
				Index:          3,
				Tool:           "assess_message_quality",
				Name:           "Assess quality",
				Input:          map[string]any{"message": "", "subject": ""},
				EstimatedCost:  0.5,
				Domain:         "engagement",
				SideEffect:     SideEffectReadOnly,
				DependsOn:      2,
				OutputBindings: map[string]string{"message": "message_draft", "subject": "subject"},
			},
		},
		Budget:  Budget{CallCeiling: 5.0},
		TraceID: "trace-1",
		Profile: "sales_default",
	}
}

func TestSideEffectRequiresApproval(t *testing.T) {
	assert.False(t, SideEffectReadOnly.RequiresApproval())
	assert.True(t, SideEffectPropose.RequiresApproval())
	assert.True(t, SideEffectExecute.RequiresApproval())
}

func TestSideEffectIsValid(t *testing.T) {
	assert.True(t, SideEffectReadOnly.IsValid())
	assert.True(t, SideEffectPropose.IsValid())
	assert.True(t, SideEffectExecute.IsValid())
	assert.False(t, SideEffect("mutate").IsValid())
	assert.False(t, SideEffect("").IsValid())
}

func TestPlanValidate(t *testing.T) {
	t.Run("valid plan", func(t *testing.T) {
		assert.NoError(t, validPlan().Validate())
	})

	t.Run("missing id", func(t *testing.T) {
		p := validPlan()
		p.ID = ""
		assert.Error(t, p.Validate())
	})

	t.Run("no steps", func(t *testing.T) {
		p := validPlan()
		p.Steps = nil
		assert.Error(t, p.Validate())
	})

	t.Run("non-positive ceiling", func(t *testing.T) {
		p := validPlan()
		p.Budget.CallCeiling = 0
		assert.Error(t, p.Validate())
	})

	t.Run("non-sequential indices", func(t *testing.T) {
		p := validPlan()
		p.Steps[1].Index = 5
		assert.Error(t, p.Validate())
	})

	t.Run("depends_on must reference prior step", func(t *testing.T) {
		p := validPlan()
		p.Steps[2].DependsOn = 3
		assert.Error(t, p.Validate())

		p.Steps[2].DependsOn = 4
		assert.Error(t, p.Validate())
	})

	t.Run("zero cost step", func(t *testing.T) {
		p := validPlan()
		p.Steps[0].EstimatedCost = 0
		assert.Error(t, p.Validate())
	})

	t.Run("invalid side effect", func(t *testing.T) {
		p := validPlan()
		p.Steps[0].SideEffect = "mutate"
		assert.Error(t, p.Validate())
	})
}

func TestPlanTotalEstimatedCost(t *testing.T) {
	p := validPlan()
	assert.InDelta(t, 2.0, p.TotalEstimatedCost(), 1e-9)
}

func TestPlanExceedsBudget(t *testing.T) {
	p := validPlan()
	assert.False(t, p.ExceedsBudget())

	p.Budget.CallCeiling = 1.5
	assert.True(t, p.ExceedsBudget())
}

func TestBudgetUsageCharge(t *testing.T) {
	u := NewBudgetUsage()

	u.Charge("intelligence", "score_account_fit", 0.5)
	u.Charge("engagement", "draft_outbound_message", 1.0)
	u.Charge("engagement", "assess_message_quality", 0.5)

	assert.InDelta(t, 2.0, u.Total, 1e-9)
	assert.InDelta(t, 0.5, u.ByDomain["intelligence"], 1e-9)
	assert.InDelta(t, 1.5, u.ByDomain["engagement"], 1e-9)
	assert.InDelta(t, 1.0, u.ByTool["draft_outbound_message"], 1e-9)
}

func TestResultStepPartition(t *testing.T) {
	r := &Result{
		Outcomes: []StepOutcome{
			{Tool: "a", Status: StepStatusSuccess},
			{Tool: "b", Status: StepStatusError},
			{Tool: "c", Status: StepStatusBudgetExceeded},
			{Tool: "d", Status: StepStatusSuccess},
		},
	}

	assert.Equal(t, []string{"a", "d"}, r.CompletedSteps())
	assert.Equal(t, []string{"b", "c"}, r.FailedSteps())
}

func TestPlanErrorFormat(t *testing.T) {
	err := &Error{Code: ErrUnknownTool, Message: "no tool named x", StepIdx: 2}
	assert.Contains(t, err.Error(), "unknown_tool")
	assert.Contains(t, err.Error(), "step 2")

	require.NotPanics(t, func() {
		var nilErr *Error
		_ = nilErr.Error()
	})
}
