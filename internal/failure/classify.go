package failure

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Classify detects the failure mode of an arbitrary error by inspecting its
// type name and message. Checks run in a fixed order and the first match wins:
// timeout, network/connection, memory, permission, validation, rate limit,
// circuit breaker, unavailable. Anything unmatched is an agent logic error.
func Classify(err error) Mode {
	if err == nil {
		return AgentLogic
	}

	// Context sentinel errors carry exact semantics regardless of message.
	if errors.Is(err, context.DeadlineExceeded) {
		return SystemTimeout
	}
	if errors.Is(err, context.Canceled) {
		return UserCancelled
	}

	typeName := strings.ToLower(fmt.Sprintf("%T", err))
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(typeName, "timeout") || strings.Contains(msg, "timeout"):
		return SystemTimeout
	case strings.Contains(typeName, "network") || strings.Contains(msg, "connection"):
		return SystemNetwork
	case strings.Contains(msg, "memory") || strings.Contains(msg, "oom"):
		return SystemOOM
	case strings.Contains(msg, "permission") || strings.Contains(msg, "forbidden"):
		return UserPermission
	case strings.Contains(msg, "validation") || strings.Contains(msg, "invalid"):
		return AgentValidation
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota"):
		return PolicyRateLimit
	case strings.Contains(msg, "circuit"):
		return ResourceCircuitOpen
	case strings.Contains(msg, "unavailable") || strings.Contains(msg, "not found"):
		return ResourceToolUnavailable
	}

	return AgentLogic
}
