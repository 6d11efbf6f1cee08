// Package metrics aggregates plan execution results into queryable
// counters and latency percentiles, with Prometheus text exposition for
// scraping.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cadence-hq/cadence/internal/plan"
)

// Record captures the outcome of a single plan execution.
type Record struct {
	PlanID       string
	TraceID      string
	Profile      string
	Success      bool
	Duration     time.Duration
	BudgetUsed   float64
	CostByDomain map[string]float64
	Outcomes     []plan.StepOutcome
	Approvals    int
	FinishedAt   time.Time
}

// Summary is a point-in-time view of aggregated execution metrics.
type Summary struct {
	Executions     int64              `json:"executions"`
	Successes      int64              `json:"successes"`
	Failures       int64              `json:"failures"`
	SuccessRate    float64            `json:"success_rate"`
	LatencyP50     time.Duration      `json:"latency_p50"`
	LatencyP95     time.Duration      `json:"latency_p95"`
	LatencyP99     time.Duration      `json:"latency_p99"`
	BudgetConsumed float64            `json:"budget_consumed"`
	Approvals      int64              `json:"approvals"`
	StepsByStatus  map[string]int64   `json:"steps_by_status"`
	StepsByTool    map[string]int64   `json:"steps_by_tool"`
	StepsByDomain  map[string]int64   `json:"steps_by_domain"`
	CostByDomain   map[string]float64 `json:"cost_by_domain"`
	FirstExecution time.Time          `json:"first_execution,omitempty"`
	LastExecution  time.Time          `json:"last_execution,omitempty"`
}

// Aggregator accumulates execution records in memory. All methods are safe
// for concurrent use.
type Aggregator struct {
	mu sync.Mutex

	executions int64
	successes  int64
	approvals  int64
	budget     float64
	durations  []time.Duration

	stepsByStatus map[string]int64
	stepsByTool   map[string]int64
	stepsByDomain map[string]int64
	costByDomain  map[string]float64

	first time.Time
	last  time.Time
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		stepsByStatus: make(map[string]int64),
		stepsByTool:   make(map[string]int64),
		stepsByDomain: make(map[string]int64),
		costByDomain:  make(map[string]float64),
	}
}

// RecordExecution folds one execution record into the aggregate.
func (a *Aggregator) RecordExecution(rec Record) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.executions++
	if rec.Success {
		a.successes++
	}
	a.approvals += int64(rec.Approvals)
	a.budget += rec.BudgetUsed
	a.durations = append(a.durations, rec.Duration)

	for _, o := range rec.Outcomes {
		a.stepsByStatus[string(o.Status)]++
		if o.Tool != "" {
			a.stepsByTool[o.Tool]++
		}
		if o.Domain != "" {
			a.stepsByDomain[o.Domain]++
		}
	}
	for domain, cost := range rec.CostByDomain {
		a.costByDomain[domain] += cost
	}

	at := rec.FinishedAt
	if at.IsZero() {
		at = time.Now()
	}
	if a.first.IsZero() || at.Before(a.first) {
		a.first = at
	}
	if at.After(a.last) {
		a.last = at
	}
}

// RecordResult is a convenience wrapper that builds a Record from a plan
// result.
func (a *Aggregator) RecordResult(res *plan.Result, profile string) {
	if res == nil {
		return
	}
	a.RecordExecution(Record{
		PlanID:       res.PlanID.String(),
		TraceID:      res.TraceID,
		Profile:      profile,
		Success:      res.Success,
		Duration:     res.Duration,
		BudgetUsed:   res.Budget.Total,
		CostByDomain: res.Budget.ByDomain,
		Outcomes:     res.Outcomes,
		Approvals:    len(res.Approvals),
	})
}

// Summary returns the current aggregate view.
func (a *Aggregator) Summary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Summary{
		Executions:     a.executions,
		Successes:      a.successes,
		Failures:       a.executions - a.successes,
		BudgetConsumed: a.budget,
		Approvals:      a.approvals,
		StepsByStatus:  copyCounts(a.stepsByStatus),
		StepsByTool:    copyCounts(a.stepsByTool),
		StepsByDomain:  copyCounts(a.stepsByDomain),
		CostByDomain:   copyCosts(a.costByDomain),
		FirstExecution: a.first,
		LastExecution:  a.last,
	}
	if a.executions > 0 {
		s.SuccessRate = float64(a.successes) / float64(a.executions)
	}
	s.LatencyP50 = percentile(a.durations, 0.50)
	s.LatencyP95 = percentile(a.durations, 0.95)
	s.LatencyP99 = percentile(a.durations, 0.99)
	return s
}

// Reset clears all accumulated state.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.executions = 0
	a.successes = 0
	a.approvals = 0
	a.budget = 0
	a.durations = nil
	a.stepsByStatus = make(map[string]int64)
	a.stepsByTool = make(map[string]int64)
	a.stepsByDomain = make(map[string]int64)
	a.costByDomain = make(map[string]float64)
	a.first = time.Time{}
	a.last = time.Time{}
}

// PrometheusText renders the aggregate in Prometheus text exposition format.
func (a *Aggregator) PrometheusText() string {
	s := a.Summary()

	var b strings.Builder
	writeMetric(&b, "cadence_executions_total", "Total plan executions.", "counter",
		fmt.Sprintf("cadence_executions_total %d\n", s.Executions))
	writeMetric(&b, "cadence_executions_success_total", "Successful plan executions.", "counter",
		fmt.Sprintf("cadence_executions_success_total %d\n", s.Successes))
	writeMetric(&b, "cadence_budget_consumed_total", "Budget units consumed across all executions.", "counter",
		fmt.Sprintf("cadence_budget_consumed_total %g\n", s.BudgetConsumed))
	writeMetric(&b, "cadence_approvals_total", "Approval requests resolved.", "counter",
		fmt.Sprintf("cadence_approvals_total %d\n", s.Approvals))

	var lat strings.Builder
	fmt.Fprintf(&lat, "cadence_execution_latency_seconds{quantile=\"0.5\"} %g\n", s.LatencyP50.Seconds())
	fmt.Fprintf(&lat, "cadence_execution_latency_seconds{quantile=\"0.95\"} %g\n", s.LatencyP95.Seconds())
	fmt.Fprintf(&lat, "cadence_execution_latency_seconds{quantile=\"0.99\"} %g\n", s.LatencyP99.Seconds())
	writeMetric(&b, "cadence_execution_latency_seconds", "Plan execution latency quantiles.", "summary", lat.String())

	var steps strings.Builder
	for _, status := range sortedKeys(s.StepsByStatus) {
		fmt.Fprintf(&steps, "cadence_steps_total{status=%q} %d\n", status, s.StepsByStatus[status])
	}
	writeMetric(&b, "cadence_steps_total", "Step outcomes by status.", "counter", steps.String())

	var tools strings.Builder
	for _, tool := range sortedKeys(s.StepsByTool) {
		fmt.Fprintf(&tools, "cadence_tool_invocations_total{tool=%q} %d\n", tool, s.StepsByTool[tool])
	}
	writeMetric(&b, "cadence_tool_invocations_total", "Tool invocations by tool name.", "counter", tools.String())

	var domains strings.Builder
	for _, domain := range sortedKeys(s.StepsByDomain) {
		fmt.Fprintf(&domains, "cadence_domain_steps_total{domain=%q} %d\n", domain, s.StepsByDomain[domain])
	}
	writeMetric(&b, "cadence_domain_steps_total", "Step outcomes by domain.", "counter", domains.String())

	return b.String()
}

func writeMetric(b *strings.Builder, name, help, typ, body string) {
	if body == "" {
		return
	}
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s %s\n", name, typ)
	b.WriteString(body)
}

// percentile computes the q-th quantile with nearest-rank selection over a
// sorted copy of the samples.
func percentile(samples []time.Duration, q float64) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(q*float64(len(sorted))+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyCosts(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](in map[string]V) []string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
