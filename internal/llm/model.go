package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/cadence-hq/cadence/internal/registry"
	"github.com/cadence-hq/cadence/internal/types"
)

// ModelDecomposer decomposes goals with a langchaingo chat model. Any error
// on the path (request, extraction, decoding, validation) is reported through
// the DecomposeResult.
type ModelDecomposer struct {
	model       llms.Model
	logger      *slog.Logger
	temperature float64
}

// ModelOption configures a ModelDecomposer.
type ModelOption func(*ModelDecomposer)

// WithModelLogger sets the structured logger.
func WithModelLogger(logger *slog.Logger) ModelOption {
	return func(d *ModelDecomposer) {
		d.logger = logger
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ModelOption {
	return func(d *ModelDecomposer) {
		d.temperature = t
	}
}

// NewModelDecomposer wraps a langchaingo model. A nil model yields a
// decomposer that reports itself unavailable.
func NewModelDecomposer(model llms.Model, opts ...ModelOption) *ModelDecomposer {
	d := &ModelDecomposer{
		model:       model,
		logger:      slog.Default(),
		temperature: 0.2,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Available reports whether a model is wired in.
func (d *ModelDecomposer) Available() bool {
	return d != nil && d.model != nil
}

// DecomposeGoal asks the model for a JSON step list and converts it.
func (d *ModelDecomposer) DecomposeGoal(ctx context.Context, goal string, tools []registry.ToolInfo, dc DecomposeContext) DecomposeResult {
	if !d.Available() {
		return Failure(types.NewError(types.LLM_UNAVAILABLE, "no model configured"))
	}

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt(tools)),
		llms.TextParts(schema.ChatMessageTypeHuman, userPrompt(goal, dc)),
	}

	resp, err := d.model.GenerateContent(ctx, messages, llms.WithTemperature(d.temperature))
	if err != nil {
		return Failure(types.WrapError(types.LLM_REQUEST_FAILED, "goal decomposition request", err))
	}
	if len(resp.Choices) == 0 {
		return Failure(types.NewError(types.LLM_RESPONSE_INVALID, "model returned no choices"))
	}

	raw, err := ExtractJSON(resp.Choices[0].Content)
	if err != nil {
		return Failure(types.WrapError(types.LLM_RESPONSE_INVALID, "extracting step JSON", err))
	}

	var steps []DecomposedStep
	if err := json.Unmarshal([]byte(raw), &steps); err != nil {
		return Failure(types.WrapError(types.LLM_RESPONSE_INVALID, "decoding step JSON", err))
	}
	if len(steps) == 0 {
		return Failure(types.NewError(types.LLM_RESPONSE_INVALID, "model proposed no steps"))
	}

	known := make(map[string]bool, len(tools))
	for _, t := range tools {
		known[t.Name] = true
	}
	for i, s := range steps {
		if s.Tool == "" {
			return Failure(types.NewError(types.LLM_RESPONSE_INVALID,
				fmt.Sprintf("step %d has no tool", i+1)))
		}
		if !known[s.Tool] {
			return Failure(types.NewError(types.LLM_RESPONSE_INVALID,
				fmt.Sprintf("step %d names unknown tool %q", i+1, s.Tool)))
		}
	}

	d.logger.Info("goal decomposed",
		"trace_id", dc.TraceID,
		"steps", len(steps))

	return DecomposeResult{Steps: steps}
}

func systemPrompt(tools []registry.ToolInfo) string {
	var b strings.Builder
	b.WriteString("You are a sales-automation planner. Decompose the user's goal into an ordered list of tool invocations.\n\n")
	b.WriteString("Available tools:\n")
	for _, t := range tools {
		fmt.Fprintf(&b, "- %s (%s): %s", t.Name, t.Domain, t.Description)
		if len(t.Inputs) > 0 {
			fmt.Fprintf(&b, " [inputs: %s]", strings.Join(t.Inputs, ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString("\nRespond with ONLY a JSON array. Each element:\n")
	b.WriteString(`{"tool": "<name>", "input": {...}, "reason": "<why>", "estimated_cost": <float>}`)
	b.WriteString("\nUse only the tools listed. Keep estimated_cost at or below 2.0 per step.")
	return b.String()
}

func userPrompt(goal string, dc DecomposeContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n", goal)
	if dc.Profile != "" {
		fmt.Fprintf(&b, "Profile: %s\n", dc.Profile)
	}
	if len(dc.Prospect) > 0 {
		if data, err := json.Marshal(dc.Prospect); err == nil {
			fmt.Fprintf(&b, "Prospect data: %s\n", data)
		}
	}
	return b.String()
}
