// Package failure provides the canonical failure taxonomy for plan
// orchestration: failure modes with derived category, severity, retryability
// and terminality, classification of arbitrary errors into modes, and
// structured failure contexts carrying partial results.
package failure

// Category is the high-level failure classification used for routing decisions.
type Category string

const (
	CategoryAgent    Category = "agent"    // agent logic error (validation, business logic)
	CategorySystem   Category = "system"   // infrastructure error (timeout, network)
	CategoryResource Category = "resource" // resource unavailable (tool, API, memory)
	CategoryPolicy   Category = "policy"   // policy violation (security, budget)
	CategoryUser     Category = "user"     // user-caused error (invalid input, cancellation)
)

// Severity indicates how serious a failure is for logging and escalation.
type Severity string

const (
	SeverityLow      Severity = "low"      // expected failure, handled gracefully
	SeverityMedium   Severity = "medium"   // unexpected but recoverable
	SeverityHigh     Severity = "high"     // serious failure requiring attention
	SeverityCritical Severity = "critical" // system integrity threatened
)

// Mode is a failure mode in the orchestration taxonomy. Each mode derives its
// category, severity, retryability, terminality, and whether partial results
// may exist.
type Mode string

// Agent errors (logic/validation).
const (
	AgentValidation Mode = "agent_validation" // input validation failed
	AgentTimeout    Mode = "agent_timeout"    // agent exceeded timeout
	AgentLogic      Mode = "agent_logic"      // agent logic error
	AgentContract   Mode = "agent_contract"   // I/O contract violation
	AgentState      Mode = "agent_state"      // invalid agent state
)

// System errors (infrastructure).
const (
	SystemNetwork Mode = "system_network" // network connectivity
	SystemTimeout Mode = "system_timeout" // system timeout
	SystemCrash   Mode = "system_crash"   // process crash
	SystemOOM     Mode = "system_oom"     // out of memory
	SystemDisk    Mode = "system_disk"    // disk space/IO
)

// Resource errors (availability).
const (
	ResourceToolUnavailable Mode = "resource_tool"    // tool not available
	ResourceAPIUnavailable  Mode = "resource_api"     // API not available
	ResourceMemoryFull      Mode = "resource_memory"  // memory full
	ResourceQuota           Mode = "resource_quota"   // quota exceeded
	ResourceCircuitOpen     Mode = "resource_circuit" // circuit breaker open
)

// Policy errors (security/constraints).
const (
	PolicySecurity  Mode = "policy_security"   // security violation
	PolicyBudget    Mode = "policy_budget"     // budget exceeded
	PolicyAllowlist Mode = "policy_allowlist"  // allowlist violation
	PolicyRateLimit Mode = "policy_rate_limit" // rate limit exceeded
)

// User errors (input/cancellation).
const (
	UserInvalidInput Mode = "user_invalid_input" // invalid user input
	UserCancelled    Mode = "user_cancelled"     // user cancellation
	UserPermission   Mode = "user_permission"    // permission denied
)

// Partial success states.
const (
	PartialToolFailures Mode = "partial_tool_failures" // some tools failed
	PartialStepFailures Mode = "partial_step_failures" // some steps failed
	PartialTimeout      Mode = "partial_timeout"       // partial completion before timeout
)

// String returns the wire value of the mode.
func (m Mode) String() string {
	return string(m)
}

// Category returns the high-level failure category derived from the mode's
// name prefix. Partial states inherit the agent category since the underlying
// work was agent-driven.
func (m Mode) Category() Category {
	switch {
	case hasPrefix(m, "agent_"):
		return CategoryAgent
	case hasPrefix(m, "system_"):
		return CategorySystem
	case hasPrefix(m, "resource_"):
		return CategoryResource
	case hasPrefix(m, "policy_"):
		return CategoryPolicy
	case hasPrefix(m, "user_"):
		return CategoryUser
	case hasPrefix(m, "partial_"):
		return CategoryAgent
	}
	return CategorySystem
}

var retryableModes = map[Mode]bool{
	// System errors are often transient.
	SystemNetwork: true,
	SystemTimeout: true,

	// Resource errors may recover.
	ResourceToolUnavailable: true,
	ResourceAPIUnavailable:  true,
	ResourceCircuitOpen:     true,

	// Rate limits recover with backoff.
	PolicyRateLimit: true,

	// Agent timeouts may succeed with more time.
	AgentTimeout: true,

	// Partial timeouts may be retried.
	PartialTimeout: true,
}

var terminalModes = map[Mode]bool{
	// Policy violations stop execution.
	PolicySecurity:  true,
	PolicyBudget:    true,
	PolicyAllowlist: true,

	// System integrity failures.
	SystemCrash: true,
	SystemOOM:   true,

	// User cancellation.
	UserCancelled: true,

	// Contract violations.
	AgentContract: true,
}

// Retryable reports whether the failure mode may succeed on retry.
func (m Mode) Retryable() bool {
	return retryableModes[m]
}

// Terminal reports whether execution should stop immediately without retry.
func (m Mode) Terminal() bool {
	return terminalModes[m]
}

// PartialResultsPossible reports whether partial results may exist after a
// failure of this mode.
func (m Mode) PartialResultsPossible() bool {
	if hasPrefix(m, "partial_") {
		return true
	}
	switch m {
	case AgentTimeout, SystemTimeout, ResourceQuota:
		return true
	}
	return false
}

// Severity returns the escalation severity derived from terminality and
// category.
func (m Mode) Severity() Severity {
	switch {
	case m.Terminal():
		return SeverityCritical
	case m.Category() == CategorySystem:
		return SeverityHigh
	case m.Category() == CategoryResource, m.Category() == CategoryPolicy:
		return SeverityMedium
	}
	return SeverityLow
}

func hasPrefix(m Mode, prefix string) bool {
	return len(m) >= len(prefix) && string(m[:len(prefix)]) == prefix
}
