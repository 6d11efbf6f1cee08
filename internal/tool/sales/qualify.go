package sales

import (
	"context"
	"fmt"

	"github.com/cadence-hq/cadence/internal/plan"
	"github.com/cadence-hq/cadence/internal/types"
)

// bantCriteria are checked in fixed order for deterministic output.
var bantCriteria = []struct {
	key      string
	strength string
	gap      string
}{
	{"budget", "Budget confirmed", "Budget not confirmed"},
	{"authority", "Decision maker engaged", "No decision maker engaged"},
	{"need", "Clear need identified", "Need not established"},
	{"timing", "Active buying window", "No timeline identified"},
}

// OpportunityQualifier scores an opportunity against the BANT framework.
//
// Input: opportunity_id, criteria {budget, authority, need, timing}, notes.
// Output: qualification_score, qualified, framework, strengths, gaps.
type OpportunityQualifier struct{}

func (q *OpportunityQualifier) Name() string                { return "qualify_opportunity" }
func (q *OpportunityQualifier) Description() string         { return "Qualify an opportunity with the BANT framework" }
func (q *OpportunityQualifier) Domain() string              { return DomainQualification }
func (q *OpportunityQualifier) SideEffect() plan.SideEffect { return plan.SideEffectReadOnly }

func (q *OpportunityQualifier) Health(ctx context.Context) types.HealthStatus {
	return healthy(q.Name())
}

func (q *OpportunityQualifier) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	opportunityID := stringInput(input, "opportunity_id")
	if opportunityID == "" {
		return nil, fmt.Errorf("invalid input: opportunity_id is required")
	}
	criteria := mapInput(input, "criteria")

	met := 0
	strengths := []string{}
	gaps := []string{}

	for _, c := range bantCriteria {
		if boolInput(criteria, c.key) {
			met++
			strengths = append(strengths, c.strength)
		} else {
			gaps = append(gaps, c.gap)
		}
	}

	score := float64(met) / float64(len(bantCriteria))

	return map[string]any{
		"opportunity_id":      opportunityID,
		"qualification_score": score,
		"qualified":           score >= 0.75,
		"framework":           "BANT",
		"strengths":           strengths,
		"gaps":                gaps,
	}, nil
}
