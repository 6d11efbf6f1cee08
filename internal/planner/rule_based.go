package planner

import (
	"fmt"
	"strings"

	"github.com/cadence-hq/cadence/internal/plan"
	"github.com/cadence-hq/cadence/internal/types"
)

// ruleBasedPlan is the deterministic offline fallback. Given the same goal
// and prospect data it always produces identical step ordering, tool names,
// costs and metadata; only the plan id and creation time differ.
//
// The canonical scenario is four steps across three domains:
//  1. intelligence: score account fit
//  2. engagement: draft outreach message
//  3. engagement: assess message quality (input spliced from step 2 at
//     execution time; the plan carries empty placeholders)
//  4. qualification: qualify opportunity
func (p *Planner) ruleBasedPlan(goal, traceID string, prospect map[string]any) *plan.Plan {
	if prospect == nil {
		prospect = map[string]any{}
	}

	company, _ := prospect["company"].(string)
	if company == "" {
		company = "unknown"
	}

	steps := []plan.Step{
		{
			Index: 1,
			Tool:  "score_account_fit",
			Name:  "Score Account Fit",
			Input: map[string]any{
				"account": map[string]any{
					"company":        prospect["company"],
					"industry":       prospect["industry"],
					"employee_count": valueOr(prospect, "employee_count", 500),
					"revenue":        valueOr(prospect, "revenue", 10000000),
				},
				"icp_criteria": map[string]any{
					"target_industries":  []string{"Technology", "SaaS", "Financial Services"},
					"min_employee_count": 100,
					"min_revenue":        1000000,
				},
			},
			Reason:        "Score account against ICP to prioritize outreach",
			EstimatedCost: 0.5,
			Domain:        "intelligence",
			SideEffect:    plan.SideEffectReadOnly,
		},
		{
			Index: 2,
			Tool:  "draft_outbound_message",
			Name:  "Draft Outreach Message",
			Input: map[string]any{
				"template":      prospect["template"],
				"prospect_data": prospect["prospect_data"],
				"channel":       "email",
				"tone":          "professional",
			},
			Reason:        "Draft personalized outreach message",
			EstimatedCost: 1.0,
			Domain:        "engagement",
			SideEffect:    plan.SideEffectPropose,
		},
		{
			Index: 3,
			Tool:  "assess_message_quality",
			Name:  "Assess Message Quality",
			Input: map[string]any{
				"message": "",
				"subject": "",
				"channel": "email",
			},
			Reason:        "Validate message quality before proposing to human",
			EstimatedCost: 0.5,
			Domain:        "engagement",
			SideEffect:    plan.SideEffectReadOnly,
			DependsOn:     2,
			OutputBindings: map[string]string{
				"message": "message_draft",
				"subject": "subject",
			},
		},
		{
			Index: 4,
			Tool:  "qualify_opportunity",
			Name:  "Qualify Opportunity",
			Input: map[string]any{
				"opportunity_id": "opp-" + strings.ReplaceAll(strings.ToLower(company), " ", "-"),
				"criteria": map[string]any{
					"budget":    true,
					"authority": false,
					"need":      true,
					"timing":    true,
				},
				"notes": fmt.Sprintf("Initial qualification for %s", company),
			},
			Reason:        "Assess opportunity quality for prioritization",
			EstimatedCost: 0.7,
			Domain:        "qualification",
			SideEffect:    plan.SideEffectReadOnly,
		},
	}

	pl := &plan.Plan{
		ID:      types.NewID(),
		Goal:    goal,
		Steps:   steps,
		Budget:  plan.Budget{CallCeiling: p.registry.BudgetCeiling(p.profile)},
		TraceID: traceID,
		Profile: p.profile,
		Metadata: map[string]any{
			"llm_generated": false,
			"rule_based":    true,
		},
		CreatedAt: p.now(),
	}

	p.logger.Info("rule-based plan created",
		"trace_id", traceID,
		"plan_id", pl.ID,
		"steps", len(steps))

	return pl
}

func valueOr(m map[string]any, key string, fallback any) any {
	if v, ok := m[key]; ok && v != nil {
		return v
	}
	return fallback
}
