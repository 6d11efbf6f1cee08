package llm

import (
	"context"
	"sync"

	"github.com/cadence-hq/cadence/internal/registry"
)

// MockDecomposer is a configurable test double for GoalDecomposer.
type MockDecomposer struct {
	mu sync.Mutex

	AvailableFlag bool
	Result        DecomposeResult
	calls         int
}

// NewMockDecomposer creates an available mock returning the given result.
func NewMockDecomposer(result DecomposeResult) *MockDecomposer {
	return &MockDecomposer{
		AvailableFlag: true,
		Result:        result,
	}
}

// Available implements GoalDecomposer.
func (m *MockDecomposer) Available() bool {
	return m.AvailableFlag
}

// DecomposeGoal implements GoalDecomposer.
func (m *MockDecomposer) DecomposeGoal(ctx context.Context, goal string, tools []registry.ToolInfo, dc DecomposeContext) DecomposeResult {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.Result
}

// Calls returns how many times DecomposeGoal was invoked.
func (m *MockDecomposer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
