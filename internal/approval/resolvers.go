package approval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cadence-hq/cadence/internal/types"
)

// AutoResolver approves every request after a fixed delay. It stands in for
// human latency in demos and local runs.
type AutoResolver struct {
	Delay    time.Duration
	Approver string
}

// NewAutoResolver creates an AutoResolver with the given delay.
func NewAutoResolver(delay time.Duration) *AutoResolver {
	return &AutoResolver{
		Delay:    delay,
		Approver: "auto-approver",
	}
}

// Resolve waits the configured delay then approves. Cancellation during the
// wait surfaces the context error so the gate can convert it to a timeout.
func (r *AutoResolver) Resolve(ctx context.Context, req Request) (Decision, error) {
	if r.Delay > 0 {
		timer := time.NewTimer(r.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Decision{}, ctx.Err()
		case <-timer.C:
		}
	}
	return Decision{
		Approved: true,
		Approver: r.Approver,
		Reason:   "auto-approved",
	}, nil
}

// ChannelResolver routes requests to an external approval feed. Each pending
// request gets a channel; SubmitDecision from the feed side unblocks the
// waiting Resolve call. Safe for concurrent use.
type ChannelResolver struct {
	mu      sync.Mutex
	pending map[types.ID]chan Decision

	// Pending receives each request as it arrives so a feed can present it.
	Pending chan Request
}

// NewChannelResolver creates a ChannelResolver with the given pending queue
// capacity.
func NewChannelResolver(queueSize int) *ChannelResolver {
	return &ChannelResolver{
		pending: make(map[types.ID]chan Decision),
		Pending: make(chan Request, queueSize),
	}
}

// Resolve registers the request and blocks until SubmitDecision or ctx
// expiry.
func (r *ChannelResolver) Resolve(ctx context.Context, req Request) (Decision, error) {
	ch := make(chan Decision, 1)

	r.mu.Lock()
	r.pending[req.ID] = ch
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.pending, req.ID)
		r.mu.Unlock()
	}()

	select {
	case r.Pending <- req:
	default:
		// Feed queue full; the request still resolves via SubmitDecision.
	}

	select {
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	case decision := <-ch:
		return decision, nil
	}
}

// SubmitDecision delivers a decision for a pending request. Returns an error
// if the request is unknown or already resolved.
func (r *ChannelResolver) SubmitDecision(requestID types.ID, decision Decision) error {
	r.mu.Lock()
	ch, ok := r.pending[requestID]
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("no pending approval request with id %s", requestID)
	}

	select {
	case ch <- decision:
		return nil
	default:
		return fmt.Errorf("approval request %s already resolved", requestID)
	}
}

// PendingCount returns the number of requests awaiting a decision.
func (r *ChannelResolver) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
