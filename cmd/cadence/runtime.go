package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/cadence-hq/cadence/internal/approval"
	"github.com/cadence-hq/cadence/internal/config"
	"github.com/cadence-hq/cadence/internal/coordinator"
	"github.com/cadence-hq/cadence/internal/events"
	"github.com/cadence-hq/cadence/internal/llm"
	"github.com/cadence-hq/cadence/internal/metrics"
	"github.com/cadence-hq/cadence/internal/planner"
	"github.com/cadence-hq/cadence/internal/registry"
	"github.com/cadence-hq/cadence/internal/retry"
	"github.com/cadence-hq/cadence/internal/tool"
	"github.com/cadence-hq/cadence/internal/tool/sales"
)

// runtime wires the registry, planner, coordinator, and observability from
// configuration. One runtime serves a whole process.
type runtime struct {
	registry    *registry.Registry
	tools       *tool.Registry
	planner     *planner.Planner
	coordinator *coordinator.Coordinator
	metrics     *metrics.Aggregator
	bus         *events.DefaultBus
}

func buildRuntime(cfg *config.Config) (*runtime, error) {
	reg, err := registry.Load(cfg.Core.RegistryPath)
	if err != nil {
		return nil, err
	}

	tools := tool.NewRegistry(tool.WithLogger(logger))
	if err := sales.RegisterAll(tools); err != nil {
		return nil, err
	}

	var plannerOpts []planner.Option
	plannerOpts = append(plannerOpts, planner.WithLogger(logger))
	if cfg.Planner.UseLLM && cfg.Planner.Model != "" {
		model, err := openai.New(openai.WithModel(cfg.Planner.Model))
		if err != nil {
			return nil, fmt.Errorf("llm provider init failed: %w", err)
		}
		decomposer := llm.NewModelDecomposer(model,
			llm.WithModelLogger(logger),
			llm.WithTemperature(cfg.Planner.Temperature))
		plannerOpts = append(plannerOpts, planner.WithDecomposer(decomposer))
	}
	pl := planner.New(reg, cfg.Core.Profile, plannerOpts...)

	policy, err := retry.FromStrategy(cfg.Retry.Strategy, cfg.Retry.MaxAttempts)
	if err != nil {
		return nil, err
	}
	retrier := retry.NewExecutor(policy, retry.WithLogger(logger))

	var resolver approval.Resolver
	switch cfg.Approval.Mode {
	case "channel":
		resolver = approval.NewChannelResolver(16)
	default:
		resolver = approval.NewAutoResolver(cfg.Approval.AutoDelay)
	}
	gate := approval.NewGate(approval.Policy{
		Enabled:              cfg.Approval.Enabled,
		Timeout:              cfg.Approval.Timeout,
		AutoApproveOnTimeout: cfg.Approval.AutoApproveOnTimeout,
		RequireReason:        cfg.Approval.RequireReason,
	}, resolver, approval.WithLogger(logger))

	bus := events.NewBus()

	coord := coordinator.New(tools,
		coordinator.WithGate(gate),
		coordinator.WithRetrier(retrier),
		coordinator.WithBus(bus),
		coordinator.WithLogger(logger),
		coordinator.WithWarnThreshold(cfg.Budget.WarnThreshold))

	return &runtime{
		registry:    reg,
		tools:       tools,
		planner:     pl,
		coordinator: coord,
		metrics:     metrics.NewAggregator(),
		bus:         bus,
	}, nil
}

func (r *runtime) close() {
	_ = r.bus.Close()
}

// parseProspect converts repeated key=value flags into a prospect map,
// coercing numeric and boolean values.
func parseProspect(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("prospect field must be key=value, got %q", pair)
		}
		out[key] = coerceValue(value)
	}
	return out, nil
}

func coerceValue(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
