package approval

import (
	"context"
	"sync"
	"time"
)

// MockResolver is a configurable test double. It resolves instantly by
// default and records every request it sees.
type MockResolver struct {
	mu       sync.Mutex
	requests []Request

	decision Decision
	err      error
	delay    time.Duration
}

// MockOption configures a MockResolver.
type MockOption func(*MockResolver)

// MockApprove makes the mock approve with the given approver.
func MockApprove(approver string) MockOption {
	return func(m *MockResolver) {
		m.decision = Decision{Approved: true, Approver: approver, Reason: "approved"}
	}
}

// MockDeny makes the mock deny with the given reason.
func MockDeny(reason string) MockOption {
	return func(m *MockResolver) {
		m.decision = Decision{Approved: false, Approver: "mock-approver", Reason: reason}
	}
}

// MockError makes the mock return an error.
func MockError(err error) MockOption {
	return func(m *MockResolver) {
		m.err = err
	}
}

// MockDelay makes the mock wait before resolving, honoring ctx cancellation.
func MockDelay(d time.Duration) MockOption {
	return func(m *MockResolver) {
		m.delay = d
	}
}

// NewMockResolver creates a MockResolver that approves instantly unless
// configured otherwise.
func NewMockResolver(opts ...MockOption) *MockResolver {
	m := &MockResolver{
		decision: Decision{Approved: true, Approver: "mock-approver", Reason: "approved"},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Resolve implements Resolver.
func (m *MockResolver) Resolve(ctx context.Context, req Request) (Decision, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Decision{}, ctx.Err()
		case <-timer.C:
		}
	}

	if m.err != nil {
		return Decision{}, m.err
	}
	return m.decision, nil
}

// Requests returns a copy of every request seen so far.
func (m *MockResolver) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}
