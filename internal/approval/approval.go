// Package approval implements the human-in-the-loop checkpoint for plan steps
// with side effects. A Gate creates approval requests and resolves them
// through a pluggable Resolver under a timeout-bounded policy.
package approval

import (
	"time"

	"github.com/cadence-hq/cadence/internal/types"
)

// Status is the outcome of an approval request.
type Status string

const (
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusTimeout  Status = "timeout"
)

// Approved reports whether the status permits execution. Timeout is treated
// as denial unless policy auto-approves.
func (s Status) Approved() bool {
	return s == StatusApproved
}

// Request is a single approval checkpoint presented to an approver. Requests
// are ephemeral: they live only for the duration of one plan execution.
type Request struct {
	ID          types.ID       `json:"id"`
	Operation   string         `json:"operation"`
	TraceID     string         `json:"trace_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	RiskLevel   string         `json:"risk_level"`
	Requester   string         `json:"requester"`
	RequestedAt time.Time      `json:"requested_at"`
}

// Response records how a request was resolved and how long the resolution
// took.
type Response struct {
	RequestID types.ID      `json:"request_id"`
	Status    Status        `json:"status"`
	Approver  string        `json:"approver,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Wait      time.Duration `json:"wait"`
}

// Decision is what a Resolver returns: the verdict plus attribution.
type Decision struct {
	Approved bool
	Approver string
	Reason   string
}

// Policy controls gate behavior.
type Policy struct {
	// Enabled turns gating on. When false every request resolves approved
	// immediately.
	Enabled bool

	// Timeout bounds how long a resolution may take.
	Timeout time.Duration

	// AutoApproveOnTimeout approves instead of denying when the timeout
	// elapses without a decision.
	AutoApproveOnTimeout bool

	// RequireReason demands a reason on denial; denials without one get a
	// placeholder.
	RequireReason bool
}

// DefaultPolicy returns gating enabled with a 30 second timeout and deny on
// timeout.
func DefaultPolicy() Policy {
	return Policy{
		Enabled:              true,
		Timeout:              30 * time.Second,
		AutoApproveOnTimeout: false,
		RequireReason:        true,
	}
}
