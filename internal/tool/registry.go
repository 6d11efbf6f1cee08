package tool

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cadence-hq/cadence/internal/types"
)

// ExecutionStats tracks per-tool invocation counters.
type ExecutionStats struct {
	Executions    int64         `json:"executions"`
	Failures      int64         `json:"failures"`
	TotalDuration time.Duration `json:"total_duration"`
	LastExecuted  time.Time     `json:"last_executed"`
}

// Registry is a thread-safe mapping from tool name to implementation with
// per-tool execution stats.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	stats map[string]*ExecutionStats

	logger *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the structured logger for tool events.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty tool registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tools:  make(map[string]Tool),
		stats:  make(map[string]*ExecutionStats),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool. Registering a duplicate name is an error.
func (r *Registry) Register(t Tool) error {
	if t == nil || t.Name() == "" {
		return types.NewError(types.TOOL_INVALID_INPUT, "tool must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name()]; exists {
		return types.NewError(types.TOOL_ALREADY_EXISTS,
			fmt.Sprintf("tool %q is already registered", t.Name()))
	}

	r.tools[t.Name()] = t
	r.stats[t.Name()] = &ExecutionStats{}
	return nil
}

// Get returns the named tool. Unknown names fail fast so the coordinator can
// classify them.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, types.NewError(types.TOOL_NOT_FOUND,
			fmt.Sprintf("tool %q not found", name))
	}
	return t, nil
}

// List returns registered tool names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute looks up and invokes a tool, recording stats. The input mapping is
// passed through unchanged; failures surface as errors for classification.
func (r *Registry) Execute(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	t, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	output, err := t.Execute(ctx, input)
	elapsed := time.Since(start)

	r.mu.Lock()
	if s, ok := r.stats[name]; ok {
		s.Executions++
		s.TotalDuration += elapsed
		s.LastExecuted = start
		if err != nil {
			s.Failures++
		}
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Warn("tool execution failed",
			"tool", name,
			"duration", elapsed,
			"error", err)
		return nil, err
	}

	r.logger.Debug("tool executed",
		"tool", name,
		"duration", elapsed)
	return output, nil
}

// Stats returns a copy of the named tool's execution stats.
func (r *Registry) Stats(name string) (ExecutionStats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.stats[name]
	if !ok {
		return ExecutionStats{}, false
	}
	return *s, true
}

// Health checks every registered tool and reports the worst state.
func (r *Registry) Health(ctx context.Context) types.HealthStatus {
	r.mu.RLock()
	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	r.mu.RUnlock()

	if len(tools) == 0 {
		return types.Degraded("no tools registered")
	}

	for _, t := range tools {
		if status := t.Health(ctx); !status.IsHealthy() {
			return types.Degraded(fmt.Sprintf("tool %s: %s", t.Name(), status.Message))
		}
	}
	return types.Healthy(fmt.Sprintf("%d tools registered", len(tools)))
}
