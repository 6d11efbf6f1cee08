package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/cadence-hq/cadence/internal/registry"
	"github.com/cadence-hq/cadence/internal/types"
)

type fakeModel struct {
	response string
	err      error
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.response}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

var testTools = []registry.ToolInfo{
	{Name: "score_account_fit", Domain: "intelligence", Description: "Score account"},
	{Name: "draft_outbound_message", Domain: "engagement", Description: "Draft message"},
}

func TestModelDecomposerAvailable(t *testing.T) {
	assert.False(t, NewModelDecomposer(nil).Available())
	assert.True(t, NewModelDecomposer(&fakeModel{}).Available())
}

func TestModelDecomposerHappyPath(t *testing.T) {
	model := &fakeModel{response: "```json\n" +
		`[{"tool": "score_account_fit", "input": {"company": "Acme"}, "reason": "prioritize", "estimated_cost": 0.5}]` +
		"\n```"}

	d := NewModelDecomposer(model)
	result := d.DecomposeGoal(context.Background(), "engage prospect", testTools, DecomposeContext{TraceID: "t1"})

	require.True(t, result.OK())
	require.Len(t, result.Steps, 1)
	assert.Equal(t, "score_account_fit", result.Steps[0].Tool)
	assert.Equal(t, 0.5, result.Steps[0].EstimatedCost)
}

func TestModelDecomposerRequestFailure(t *testing.T) {
	d := NewModelDecomposer(&fakeModel{err: errors.New("connection refused")})
	result := d.DecomposeGoal(context.Background(), "goal", testTools, DecomposeContext{})

	assert.False(t, result.OK())

	var cerr *types.CadenceError
	require.ErrorAs(t, result.Err, &cerr)
	assert.Equal(t, types.LLM_REQUEST_FAILED, cerr.Code)
}

func TestModelDecomposerBadJSON(t *testing.T) {
	d := NewModelDecomposer(&fakeModel{response: "I could not produce a plan."})
	result := d.DecomposeGoal(context.Background(), "goal", testTools, DecomposeContext{})

	assert.False(t, result.OK())

	var cerr *types.CadenceError
	require.ErrorAs(t, result.Err, &cerr)
	assert.Equal(t, types.LLM_RESPONSE_INVALID, cerr.Code)
}

func TestModelDecomposerRejectsUnknownTool(t *testing.T) {
	d := NewModelDecomposer(&fakeModel{response: `[{"tool": "delete_everything", "estimated_cost": 1}]`})
	result := d.DecomposeGoal(context.Background(), "goal", testTools, DecomposeContext{})

	assert.False(t, result.OK())
	assert.Contains(t, result.Err.Error(), "delete_everything")
}

func TestModelDecomposerEmptySteps(t *testing.T) {
	d := NewModelDecomposer(&fakeModel{response: `[]`})
	result := d.DecomposeGoal(context.Background(), "goal", testTools, DecomposeContext{})

	assert.False(t, result.OK())
}

func TestDecomposeResultOK(t *testing.T) {
	assert.False(t, Failure(errors.New("x")).OK())
	assert.False(t, DecomposeResult{}.OK())
	assert.True(t, DecomposeResult{Steps: []DecomposedStep{{Tool: "t"}}}.OK())
}
