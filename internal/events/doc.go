// Package events provides an in-process publish/subscribe bus for plan
// execution events.
//
// The coordinator and planner publish lifecycle events (plan started, step
// completed, budget warning, approval resolved) and any number of
// subscribers consume them through buffered channels. Delivery is
// non-blocking: a slow subscriber never stalls execution; events it cannot
// keep up with are dropped and counted.
//
// Payloads pass through Redact before publication so secrets from tool
// inputs never reach subscribers.
package events
