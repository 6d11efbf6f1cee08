// Package sales provides the built-in sales capabilities: account fit
// scoring, outreach drafting, message quality assessment, and opportunity
// qualification. All four are pure functions in tool form; they hold no state
// and are safe for concurrent use.
package sales

import (
	"github.com/cadence-hq/cadence/internal/tool"
	"github.com/cadence-hq/cadence/internal/types"
)

// Domains the built-in tools belong to.
const (
	DomainIntelligence  = "intelligence"
	DomainEngagement    = "engagement"
	DomainQualification = "qualification"
)

// RegisterAll adds every built-in sales tool to the registry.
func RegisterAll(reg *tool.Registry) error {
	for _, t := range []tool.Tool{
		&AccountFitScorer{},
		&OutboundDrafter{},
		&MessageQualityAssessor{},
		&OpportunityQualifier{},
	} {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func healthy(name string) types.HealthStatus {
	return types.Healthy(name + " ready")
}

// mapInput extracts a nested mapping from the input.
func mapInput(input map[string]any, key string) map[string]any {
	if m, ok := input[key].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// stringInput extracts a string field, empty if absent or mistyped.
func stringInput(input map[string]any, key string) string {
	s, _ := input[key].(string)
	return s
}

// floatInput coerces a numeric field. YAML and JSON decoding may deliver
// int, int64 or float64.
func floatInput(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// boolInput extracts a boolean field.
func boolInput(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

// stringsInput extracts a list of strings, tolerating []any payloads.
func stringsInput(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
