package events

import (
	"time"
)

// EventType identifies the category and nature of an event emitted while a
// plan moves through the execution pipeline.
type EventType string

// Plan lifecycle events.
const (
	EventPlanCreated   EventType = "plan.created"
	EventPlanStarted   EventType = "plan.started"
	EventPlanCompleted EventType = "plan.completed"
	EventPlanFailed    EventType = "plan.failed"
)

// Step execution events.
const (
	EventStepStarted   EventType = "step.started"
	EventStepCompleted EventType = "step.completed"
	EventStepFailed    EventType = "step.failed"
	EventStepSkipped   EventType = "step.skipped"
	EventStepRetried   EventType = "step.retried"
)

// Budget events.
const (
	EventBudgetWarning  EventType = "budget.warning"
	EventBudgetExceeded EventType = "budget.exceeded"
)

// Approval events.
const (
	EventApprovalRequested EventType = "approval.requested"
	EventApprovalResolved  EventType = "approval.resolved"
)

// Planner events.
const (
	EventPlannerLLMAttempt  EventType = "planner.llm_attempt"
	EventPlannerLLMFallback EventType = "planner.llm_fallback"
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	return string(t)
}

// Event is a single observability record published to the bus. Events are
// JSON-serializable and carry the trace ID of the plan execution that
// produced them so subscribers can correlate across steps.
type Event struct {
	// Type identifies the category and nature of the event
	Type EventType `json:"type"`

	// Timestamp records when the event occurred
	Timestamp time.Time `json:"timestamp"`

	// TraceID correlates the event with a plan execution (empty for
	// system events)
	TraceID string `json:"trace_id,omitempty"`

	// Payload holds event-specific data. Sensitive keys are redacted
	// before publication.
	Payload map[string]any `json:"payload,omitempty"`
}

// NewEvent creates an event with the current timestamp and a redacted copy
// of the payload.
func NewEvent(eventType EventType, traceID string, payload map[string]any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		TraceID:   traceID,
		Payload:   Redact(payload),
	}
}

// Filter specifies criteria for event subscription. Zero-value fields match
// everything.
type Filter struct {
	// Types limits delivery to the listed event types. Empty matches all.
	Types []EventType

	// TraceID limits delivery to events from one plan execution.
	TraceID string
}

// Matches reports whether an event satisfies the filter.
func (f Filter) Matches(event Event) bool {
	if f.TraceID != "" && event.TraceID != f.TraceID {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if event.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// sensitiveKeys are payload fields that never appear in published events.
var sensitiveKeys = map[string]bool{
	"api_key":       true,
	"apikey":        true,
	"authorization": true,
	"credential":    true,
	"password":      true,
	"secret":        true,
	"token":         true,
}

// Redact returns a copy of payload with sensitive keys replaced by
// "[REDACTED]". Nested maps are redacted recursively. The input map is not
// modified.
func Redact(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if sensitiveKeys[normalizeKey(k)] {
			out[k] = "[REDACTED]"
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			out[k] = Redact(nested)
			continue
		}
		out[k] = v
	}
	return out
}

func normalizeKey(k string) string {
	b := make([]byte, 0, len(k))
	for i := 0; i < len(k); i++ {
		c := k[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b = append(b, c)
	}
	return string(b)
}
