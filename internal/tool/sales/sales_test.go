package sales

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadence-hq/cadence/internal/plan"
	"github.com/cadence-hq/cadence/internal/tool"
)

func TestRegisterAll(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, RegisterAll(reg))

	assert.Equal(t, []string{
		"assess_message_quality",
		"draft_outbound_message",
		"qualify_opportunity",
		"score_account_fit",
	}, reg.List())
}

func TestAccountFitScorerFullMatch(t *testing.T) {
	s := &AccountFitScorer{}

	out, err := s.Execute(context.Background(), map[string]any{
		"account": map[string]any{
			"company":        "Acme Corp",
			"industry":       "Technology",
			"employee_count": 500,
			"revenue":        10000000,
		},
		"icp_criteria": map[string]any{
			"target_industries":  []string{"Technology", "SaaS"},
			"min_employee_count": 100,
			"min_revenue":        1000000,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1.0, out["fit_score"])
	assert.Equal(t, "pursue", out["recommendation"])
	assert.Empty(t, out["missing_criteria"])
}

func TestAccountFitScorerPartialMatch(t *testing.T) {
	s := &AccountFitScorer{}

	out, err := s.Execute(context.Background(), map[string]any{
		"account": map[string]any{
			"industry":       "Retail",
			"employee_count": 50,
			"revenue":        5000000,
		},
		"icp_criteria": map[string]any{
			"target_industries":  []string{"Technology"},
			"min_employee_count": 100,
			"min_revenue":        1000000,
		},
	})
	require.NoError(t, err)

	assert.InDelta(t, 1.0/3.0, out["fit_score"].(float64), 1e-9)
	assert.Equal(t, "deprioritize", out["recommendation"])
	assert.ElementsMatch(t, []string{"industry", "employee_count"}, out["missing_criteria"])
}

func TestAccountFitScorerRequiresAccount(t *testing.T) {
	s := &AccountFitScorer{}
	_, err := s.Execute(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestAccountFitScorerMetadata(t *testing.T) {
	s := &AccountFitScorer{}
	assert.Equal(t, "score_account_fit", s.Name())
	assert.Equal(t, DomainIntelligence, s.Domain())
	assert.Equal(t, plan.SideEffectReadOnly, s.SideEffect())
	assert.True(t, s.Health(context.Background()).IsHealthy())
}

func TestOutboundDrafterRendersTemplate(t *testing.T) {
	d := &OutboundDrafter{}

	out, err := d.Execute(context.Background(), map[string]any{
		"template":         "Hi {{first_name}}, greetings from {{sender_name}}. Interested?",
		"subject_template": "For {{company}}",
		"prospect_data": map[string]any{
			"first_name":  "Jo",
			"company":     "Acme",
			"sender_name": "Sam",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hi Jo, greetings from Sam. Interested?", out["message_draft"])
	assert.Equal(t, "For Acme", out["subject"])
	assert.Equal(t, "draft", out["status"])

	meta := out["metadata"].(map[string]any)
	assert.Equal(t, 1.0, meta["personalization_score"])
	assert.Equal(t, "email", meta["channel"])
	assert.Equal(t, "professional", meta["tone"])
}

func TestOutboundDrafterLeavesUnresolvedPlaceholders(t *testing.T) {
	d := &OutboundDrafter{}

	out, err := d.Execute(context.Background(), map[string]any{
		"template":         "Hi {{first_name}}, about {{pain_point}}?",
		"subject_template": "Hello",
		"prospect_data":    map[string]any{"first_name": "Jo"},
	})
	require.NoError(t, err)

	draft := out["message_draft"].(string)
	assert.Contains(t, draft, "{{pain_point}}")

	meta := out["metadata"].(map[string]any)
	assert.Equal(t, 0.5, meta["personalization_score"])
}

func TestOutboundDrafterDefaultTemplate(t *testing.T) {
	d := &OutboundDrafter{}

	out, err := d.Execute(context.Background(), map[string]any{
		"prospect_data": map[string]any{"company": "Acme"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, out["message_draft"])
	assert.Contains(t, out["subject"].(string), "Acme")
}

func TestMessageQualityAssessorCleanMessage(t *testing.T) {
	a := &MessageQualityAssessor{}

	message := "Hi Jo, I noticed Acme is growing its sales team quickly this quarter. " +
		"We help teams at that stage ramp new reps faster. Would you be open to a short call this week?"

	out, err := a.Execute(context.Background(), map[string]any{
		"message": message,
		"subject": "Quick question about Acme",
	})
	require.NoError(t, err)

	assert.Equal(t, 1.0, out["quality_score"])
	assert.Equal(t, "A", out["grade"])
	assert.Equal(t, true, out["ready"])
	assert.Empty(t, out["issues"])
}

func TestMessageQualityAssessorFlagsProblems(t *testing.T) {
	a := &MessageQualityAssessor{}

	out, err := a.Execute(context.Background(), map[string]any{
		"message": "Act now for free money {{first_name}}",
		"subject": "",
	})
	require.NoError(t, err)

	score := out["quality_score"].(float64)
	assert.Less(t, score, 0.75)
	assert.Equal(t, false, out["ready"])

	issues := out["issues"].([]string)
	assert.Contains(t, issues, "unresolved_placeholders")
	assert.Contains(t, issues, "too_short")
	assert.Contains(t, issues, "missing_subject")
	assert.Contains(t, issues, "spam_language")

	recs := out["recommendations"].([]string)
	assert.NotEmpty(t, recs)
}

func TestMessageQualityAssessorRequiresMessage(t *testing.T) {
	a := &MessageQualityAssessor{}
	_, err := a.Execute(context.Background(), map[string]any{"subject": "s"})
	assert.Error(t, err)
}

func TestMessageQualityAssessorScoreNeverNegative(t *testing.T) {
	a := &MessageQualityAssessor{}

	longSpam := "{{x}} guarantee act now limited time no obligation free money " + strings.Repeat("buy! ", 400)
	out, err := a.Execute(context.Background(), map[string]any{
		"message": longSpam,
		"subject": strings.Repeat("s", 100),
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, out["quality_score"].(float64), 0.0)
	assert.Equal(t, "D", out["grade"])
}

func TestOpportunityQualifier(t *testing.T) {
	q := &OpportunityQualifier{}

	out, err := q.Execute(context.Background(), map[string]any{
		"opportunity_id": "opp-acme",
		"criteria": map[string]any{
			"budget":    true,
			"authority": false,
			"need":      true,
			"timing":    true,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 0.75, out["qualification_score"])
	assert.Equal(t, true, out["qualified"])
	assert.Equal(t, "BANT", out["framework"])
	assert.Equal(t, []string{"Budget confirmed", "Clear need identified", "Active buying window"}, out["strengths"])
	assert.Equal(t, []string{"No decision maker engaged"}, out["gaps"])
}

func TestOpportunityQualifierNothingMet(t *testing.T) {
	q := &OpportunityQualifier{}

	out, err := q.Execute(context.Background(), map[string]any{
		"opportunity_id": "opp-x",
	})
	require.NoError(t, err)

	assert.Equal(t, 0.0, out["qualification_score"])
	assert.Equal(t, false, out["qualified"])
	assert.Len(t, out["gaps"], 4)
}

func TestOpportunityQualifierRequiresID(t *testing.T) {
	q := &OpportunityQualifier{}
	_, err := q.Execute(context.Background(), map[string]any{})
	assert.Error(t, err)
}
