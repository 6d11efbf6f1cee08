package approval

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cadence-hq/cadence/internal/types"
)

// Resolver produces a decision for a pending approval request. Implementations
// must honor ctx cancellation; the Gate bounds resolution with the policy
// timeout.
type Resolver interface {
	Resolve(ctx context.Context, req Request) (Decision, error)
}

// Gate is the approval checkpoint used by the coordinator. It is safe for
// concurrent use when the underlying Resolver is.
type Gate struct {
	policy   Policy
	resolver Resolver
	logger   *slog.Logger
	now      func() time.Time
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithLogger sets the structured logger for approval events.
func WithLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) {
		g.logger = logger
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		g.now = now
	}
}

// NewGate creates a Gate with the given policy and resolver.
func NewGate(policy Policy, resolver Resolver, opts ...GateOption) *Gate {
	g := &Gate{
		policy:   policy,
		resolver: resolver,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Policy returns the gate's policy.
func (g *Gate) Policy() Policy {
	return g.policy
}

// CreateRequest builds a new approval request with a unique id. Pure
// construction, no side effects beyond id generation.
func (g *Gate) CreateRequest(operation, traceID string, metadata map[string]any, riskLevel, requester string) Request {
	return Request{
		ID:          types.NewID(),
		Operation:   operation,
		TraceID:     traceID,
		Metadata:    metadata,
		RiskLevel:   riskLevel,
		Requester:   requester,
		RequestedAt: g.now(),
	}
}

// Resolve drives a request through the resolver under the policy timeout.
// When gating is disabled the request is approved immediately. A timeout with
// no decision yields StatusTimeout, treated as denial, unless the policy
// auto-approves on timeout. The measured wait is always populated.
func (g *Gate) Resolve(ctx context.Context, req Request) (Response, error) {
	start := g.now()

	if !g.policy.Enabled {
		return Response{
			RequestID: req.ID,
			Status:    StatusApproved,
			Approver:  "system",
			Reason:    "approval gating disabled",
			Wait:      g.now().Sub(start),
		}, nil
	}

	resolveCtx := ctx
	if g.policy.Timeout > 0 {
		var cancel context.CancelFunc
		resolveCtx, cancel = context.WithTimeout(ctx, g.policy.Timeout)
		defer cancel()
	}

	decision, err := g.resolver.Resolve(resolveCtx, req)
	wait := g.now().Sub(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			if g.policy.AutoApproveOnTimeout {
				g.logger.Warn("approval timed out, auto-approving per policy",
					"request_id", req.ID,
					"operation", req.Operation,
					"wait", wait)
				return Response{
					RequestID: req.ID,
					Status:    StatusApproved,
					Approver:  "system",
					Reason:    "auto-approved on timeout",
					Wait:      wait,
				}, nil
			}
			g.logger.Warn("approval timed out",
				"request_id", req.ID,
				"operation", req.Operation,
				"wait", wait)
			return Response{
				RequestID: req.ID,
				Status:    StatusTimeout,
				Reason:    "no decision before timeout",
				Wait:      wait,
			}, nil
		}
		return Response{}, err
	}

	status := StatusDenied
	if decision.Approved {
		status = StatusApproved
	}

	reason := decision.Reason
	if status == StatusDenied && reason == "" && g.policy.RequireReason {
		reason = "denied without reason"
	}

	g.logger.Info("approval resolved",
		"request_id", req.ID,
		"operation", req.Operation,
		"status", status,
		"approver", decision.Approver,
		"wait", wait)

	return Response{
		RequestID: req.ID,
		Status:    status,
		Approver:  decision.Approver,
		Reason:    reason,
		Wait:      wait,
	}, nil
}
