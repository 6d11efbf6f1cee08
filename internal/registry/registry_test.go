package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadence-hq/cadence/internal/plan"
	"github.com/cadence-hq/cadence/internal/types"
)

const sampleRegistry = `
profiles:
  sales_default:
    description: Default sales automation profile
    allowed_tools:
      - score_account_fit
      - draft_outbound_message
      - assess_message_quality
      - qualify_opportunity
    budget_ceiling: 50

  read_only:
    description: Scoring and qualification only
    allowed_tools:
      - score_account_fit
      - qualify_opportunity
    budget_ceiling: 10

tools:
  score_account_fit:
    description: Score an account against the ideal customer profile
    domain: intelligence
    side_effects: read-only
    inputs:
      account: Account firmographics
      icp_criteria: Ideal customer profile criteria

  draft_outbound_message:
    description: Draft a personalized outreach message
    domain: engagement
    side_effects: propose
    inputs:
      template: Message template with placeholders
      prospect_data: Prospect personalization fields
      channel: Delivery channel

  assess_message_quality:
    description: Assess draft message quality
    domain: engagement
    side_effects: read-only
    inputs:
      message: Message body
      subject: Message subject
      channel: Delivery channel

  qualify_opportunity:
    description: Qualify an opportunity with BANT
    domain: qualification
    side_effects: read-only
    inputs:
      opportunity_id: Opportunity identifier
      criteria: BANT criteria flags
`

func TestParseValidRegistry(t *testing.T) {
	reg, err := Parse([]byte(sampleRegistry))
	require.NoError(t, err)

	assert.Len(t, reg.Profiles, 2)
	assert.Len(t, reg.Tools, 4)

	tool, err := reg.Tool("draft_outbound_message")
	require.NoError(t, err)
	assert.Equal(t, "engagement", tool.Domain)
	assert.Equal(t, plan.SideEffectPropose, tool.SideEffects)
	assert.True(t, tool.RequiresApproval())

	tool, err = reg.Tool("score_account_fit")
	require.NoError(t, err)
	assert.False(t, tool.RequiresApproval())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRegistry), 0o644))

	reg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, reg.Tools, 4)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/registry.yaml")
	require.Error(t, err)

	var cerr *types.CadenceError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, types.REGISTRY_LOAD_FAILED, cerr.Code)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("profiles: [not: a: mapping"))
	require.Error(t, err)

	var cerr *types.CadenceError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, types.REGISTRY_PARSE_FAILED, cerr.Code)
}

func TestValidationErrorsNameField(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "missing domain",
			doc: `
profiles:
  p: {allowed_tools: [t]}
tools:
  t:
    side_effects: read-only
`,
			want: "tools.t: domain",
		},
		{
			name: "missing side effects",
			doc: `
profiles:
  p: {allowed_tools: [t]}
tools:
  t:
    domain: intelligence
`,
			want: "tools.t: side_effects",
		},
		{
			name: "invalid side effects",
			doc: `
profiles:
  p: {allowed_tools: [t]}
tools:
  t:
    domain: intelligence
    side_effects: mutate
`,
			want: "read-only, propose, execute",
		},
		{
			name: "allowed tool not declared",
			doc: `
profiles:
  p: {allowed_tools: [ghost]}
tools:
  t:
    domain: intelligence
    side_effects: read-only
`,
			want: `profiles.p: allowed tool "ghost"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			var cerr *types.CadenceError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, types.REGISTRY_VALIDATION_FAILED, cerr.Code)
		})
	}
}

func TestProfileNotFound(t *testing.T) {
	reg, err := Parse([]byte(sampleRegistry))
	require.NoError(t, err)

	_, err = reg.Profile("missing")
	assert.True(t, errors.Is(err, types.NewError(types.PROFILE_NOT_FOUND, "")))
}

func TestProfileAllows(t *testing.T) {
	reg, err := Parse([]byte(sampleRegistry))
	require.NoError(t, err)

	ro, err := reg.Profile("read_only")
	require.NoError(t, err)
	assert.True(t, ro.Allows("score_account_fit"))
	assert.False(t, ro.Allows("draft_outbound_message"))

	// Empty allow-list permits everything.
	open := Profile{}
	assert.True(t, open.Allows("anything"))
}

func TestBudgetCeiling(t *testing.T) {
	reg, err := Parse([]byte(sampleRegistry))
	require.NoError(t, err)

	assert.Equal(t, 50.0, reg.BudgetCeiling("sales_default"))
	assert.Equal(t, 10.0, reg.BudgetCeiling("read_only"))
	assert.Equal(t, DefaultBudgetCeiling, reg.BudgetCeiling("missing"))
}

func TestAvailableToolsSortedAndScoped(t *testing.T) {
	reg, err := Parse([]byte(sampleRegistry))
	require.NoError(t, err)

	tools, err := reg.AvailableTools("read_only")
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "qualify_opportunity", tools[0].Name)
	assert.Equal(t, "score_account_fit", tools[1].Name)

	all, err := reg.AvailableTools("sales_default")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	// Inputs are sorted for deterministic presentation.
	assert.Equal(t, []string{"account", "icp_criteria"}, tools[1].Inputs)
}
