package sales

import (
	"context"
	"fmt"

	"github.com/cadence-hq/cadence/internal/plan"
	"github.com/cadence-hq/cadence/internal/types"
)

// AccountFitScorer scores an account against ideal-customer-profile criteria.
//
// Input: account {company, industry, employee_count, revenue} and
// icp_criteria {target_industries, min_employee_count, min_revenue}.
// Output: fit_score in [0,1], recommendation, missing_criteria.
type AccountFitScorer struct{}

func (s *AccountFitScorer) Name() string                { return "score_account_fit" }
func (s *AccountFitScorer) Description() string         { return "Score an account against the ideal customer profile" }
func (s *AccountFitScorer) Domain() string              { return DomainIntelligence }
func (s *AccountFitScorer) SideEffect() plan.SideEffect { return plan.SideEffectReadOnly }

func (s *AccountFitScorer) Health(ctx context.Context) types.HealthStatus {
	return healthy(s.Name())
}

func (s *AccountFitScorer) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	account := mapInput(input, "account")
	criteria := mapInput(input, "icp_criteria")

	if len(account) == 0 {
		return nil, fmt.Errorf("invalid input: account is required")
	}

	checks := 0
	met := 0
	var missing []string

	if targets := stringsInput(criteria, "target_industries"); len(targets) > 0 {
		checks++
		industry := stringInput(account, "industry")
		matched := false
		for _, t := range targets {
			if t == industry {
				matched = true
				break
			}
		}
		if matched {
			met++
		} else {
			missing = append(missing, "industry")
		}
	}

	if minEmployees, ok := floatInput(criteria, "min_employee_count"); ok {
		checks++
		if employees, ok := floatInput(account, "employee_count"); ok && employees >= minEmployees {
			met++
		} else {
			missing = append(missing, "employee_count")
		}
	}

	if minRevenue, ok := floatInput(criteria, "min_revenue"); ok {
		checks++
		if revenue, ok := floatInput(account, "revenue"); ok && revenue >= minRevenue {
			met++
		} else {
			missing = append(missing, "revenue")
		}
	}

	score := 1.0
	if checks > 0 {
		score = float64(met) / float64(checks)
	}

	recommendation := "deprioritize"
	switch {
	case score >= 0.8:
		recommendation = "pursue"
	case score >= 0.5:
		recommendation = "nurture"
	}

	if missing == nil {
		missing = []string{}
	}

	return map[string]any{
		"fit_score":        score,
		"recommendation":   recommendation,
		"missing_criteria": missing,
	}, nil
}
