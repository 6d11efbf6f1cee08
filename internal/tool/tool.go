// Package tool defines the typed capability interface the coordinator invokes
// and a thread-safe registry mapping tool names to implementations. Tools
// raise errors on failure so the failure taxonomy can classify them; they
// never return error sentinels in their output.
package tool

import (
	"context"

	"github.com/cadence-hq/cadence/internal/plan"
	"github.com/cadence-hq/cadence/internal/types"
)

// Tool is a named capability. Execute takes an input mapping and returns an
// output mapping; the invocation context (trace id, profile) travels on ctx.
type Tool interface {
	Name() string
	Description() string
	Domain() string
	SideEffect() plan.SideEffect
	Execute(ctx context.Context, input map[string]any) (map[string]any, error)
	Health(ctx context.Context) types.HealthStatus
}

// invocationKey is the context key for invocation metadata.
type invocationKey struct{}

// Invocation carries per-call metadata into tool executions.
type Invocation struct {
	TraceID string
	Profile string
}

// WithInvocation attaches invocation metadata to the context.
func WithInvocation(ctx context.Context, inv Invocation) context.Context {
	return context.WithValue(ctx, invocationKey{}, inv)
}

// InvocationFromContext returns the invocation metadata, if any.
func InvocationFromContext(ctx context.Context) (Invocation, bool) {
	inv, ok := ctx.Value(invocationKey{}).(Invocation)
	return inv, ok
}
