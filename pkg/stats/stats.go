// Package stats is a read-only projection of the Telemetry Store's state
// into the shapes an introspection surface needs: an overall summary,
// per-backend usage and performance and cost breakdowns, task/priority
// distributions over the decision log, a recent decision timeline, and a
// per-backend comparison matrix. It never mutates telemetry and never calls
// an LLMClient.
package stats

import "github.com/kestrel-run/modelmesh/pkg/telemetry"

// TimelineCap bounds how many recent decisions the timeline carries,
// independent of the Telemetry Store's own DecisionLogCap.
const TimelineCap = 10

// TimelineEntry is one past routing decision, ordered oldest-first within
// the returned slice.
type TimelineEntry struct {
	TS           int64                   `json:"ts"`
	Backend      string                  `json:"backend"`
	Task         string                  `json:"task"`
	Priority     string                  `json:"priority"`
	Score        float64                 `json:"score"`
	Alternatives []telemetry.Alternative `json:"alternatives,omitempty"`
}

// ComparisonRow is one backend's current telemetry, for side-by-side
// display.
type ComparisonRow struct {
	Backend         string  `json:"backend"`
	CapabilityTier  string  `json:"capability_tier"`
	AvgLatencyMS    float64 `json:"avg_latency_ms"`
	SuccessRate     float64 `json:"success_rate"`
	CostPer1KTokens float64 `json:"cost_per_1k_tokens"`
	CallCount       int64   `json:"call_count"`
}

// Summary is the top-line rollup across every known backend.
type Summary struct {
	BackendCount    int     `json:"backend_count"`
	TotalCalls      int64   `json:"total_calls"`
	TotalDecisions  int     `json:"total_decisions"`
	AvgSuccessRate  float64 `json:"avg_success_rate"`
	AvgLatencyMS    float64 `json:"avg_latency_ms"`
}

// ModelUsage is call-volume share for one backend.
type ModelUsage struct {
	Backend   string  `json:"backend"`
	CallCount int64   `json:"call_count"`
	Share     float64 `json:"share"`
}

// PerformanceRow is one backend's latency/reliability figures, the same
// fields as ComparisonRow's performance-relevant subset, kept as its own
// named projection since the two facets can diverge (comparison is a fuller
// row meant for a table; performance is meant for a chart keyed purely on
// backend name).
type PerformanceRow struct {
	Backend       string  `json:"backend"`
	AvgLatencyMS  float64 `json:"avg_latency_ms"`
	LastLatencyMS int64   `json:"last_latency_ms"`
	SuccessRate   float64 `json:"success_rate"`
}

// CostRow is one backend's observed cost-per-1K-tokens rate together with
// the call volume it was charged against, so a caller can derive a rough
// total-spend estimate without re-deriving call_count from ModelUsage.
type CostRow struct {
	Backend         string  `json:"backend"`
	CostPer1KTokens float64 `json:"cost_per_1k_tokens"`
	CallCount       int64   `json:"call_count"`
}

// Snapshot is the full introspection payload served by GET /model-router/stats.
type Snapshot struct {
	Summary             Summary          `json:"summary"`
	ModelUsage          []ModelUsage     `json:"model_usage"`
	TaskDistribution    map[string]int   `json:"task_distribution"`
	PriorityDistribution map[string]int  `json:"priority_distribution"`
	Performance         []PerformanceRow `json:"performance"`
	CostAnalysis        []CostRow        `json:"cost_analysis"`
	Timeline            []TimelineEntry  `json:"timeline"`
	Comparison          []ComparisonRow  `json:"comparison"`
}

// Project reads store's current snapshot and shapes it into every facet
// GET /model-router/stats serves. It takes no lock of its own: Store.Snapshot
// already returns an independent, consistent copy.
func Project(store *telemetry.Store) Snapshot {
	snap := store.Snapshot()
	names := snap.Names()

	timeline := buildTimeline(snap.Decisions)
	comparison := buildComparison(snap, names)
	usage := buildModelUsage(snap, names)
	performance := buildPerformance(snap, names)
	cost := buildCostAnalysis(snap, names)
	taskDist, priorityDist := buildDistributions(snap.Decisions)

	return Snapshot{
		Summary:              buildSummary(snap, names),
		ModelUsage:           usage,
		TaskDistribution:     taskDist,
		PriorityDistribution: priorityDist,
		Performance:          performance,
		CostAnalysis:         cost,
		Timeline:             timeline,
		Comparison:           comparison,
	}
}

func buildTimeline(decisions []telemetry.DecisionRecord) []TimelineEntry {
	if len(decisions) > TimelineCap {
		decisions = decisions[len(decisions)-TimelineCap:]
	}
	timeline := make([]TimelineEntry, 0, len(decisions))
	for _, d := range decisions {
		timeline = append(timeline, TimelineEntry{
			TS:           d.TS,
			Backend:      d.SelectedBackend,
			Task:         string(d.Config.Task),
			Priority:     string(d.Config.Priority),
			Score:        d.Score,
			Alternatives: d.Alternatives,
		})
	}
	return timeline
}

func buildComparison(snap telemetry.Snapshot, names []string) []ComparisonRow {
	comparison := make([]ComparisonRow, 0, len(names))
	for _, name := range names {
		t := snap.Telemetry[name]
		comparison = append(comparison, ComparisonRow{
			Backend:         name,
			CapabilityTier:  string(t.CapabilityTier),
			AvgLatencyMS:    t.AvgLatencyMS,
			SuccessRate:     t.SuccessRate,
			CostPer1KTokens: t.CostPer1KTokens,
			CallCount:       t.CallCount,
		})
	}
	return comparison
}

func buildSummary(snap telemetry.Snapshot, names []string) Summary {
	var totalCalls int64
	var successSum, latencySum float64
	for _, name := range names {
		t := snap.Telemetry[name]
		totalCalls += t.CallCount
		successSum += t.SuccessRate
		latencySum += t.AvgLatencyMS
	}
	n := float64(len(names))
	summary := Summary{
		BackendCount:   len(names),
		TotalCalls:     totalCalls,
		TotalDecisions: len(snap.Decisions),
	}
	if n > 0 {
		summary.AvgSuccessRate = successSum / n
		summary.AvgLatencyMS = latencySum / n
	}
	return summary
}

func buildModelUsage(snap telemetry.Snapshot, names []string) []ModelUsage {
	var total int64
	for _, name := range names {
		total += snap.Telemetry[name].CallCount
	}
	usage := make([]ModelUsage, 0, len(names))
	for _, name := range names {
		t := snap.Telemetry[name]
		var share float64
		if total > 0 {
			share = float64(t.CallCount) / float64(total)
		}
		usage = append(usage, ModelUsage{Backend: name, CallCount: t.CallCount, Share: share})
	}
	return usage
}

func buildPerformance(snap telemetry.Snapshot, names []string) []PerformanceRow {
	performance := make([]PerformanceRow, 0, len(names))
	for _, name := range names {
		t := snap.Telemetry[name]
		performance = append(performance, PerformanceRow{
			Backend:       name,
			AvgLatencyMS:  t.AvgLatencyMS,
			LastLatencyMS: t.LastLatencyMS,
			SuccessRate:   t.SuccessRate,
		})
	}
	return performance
}

func buildCostAnalysis(snap telemetry.Snapshot, names []string) []CostRow {
	cost := make([]CostRow, 0, len(names))
	for _, name := range names {
		t := snap.Telemetry[name]
		cost = append(cost, CostRow{Backend: name, CostPer1KTokens: t.CostPer1KTokens, CallCount: t.CallCount})
	}
	return cost
}

func buildDistributions(decisions []telemetry.DecisionRecord) (map[string]int, map[string]int) {
	taskDist := make(map[string]int)
	priorityDist := make(map[string]int)
	for _, d := range decisions {
		taskDist[string(d.Config.Task)]++
		priorityDist[string(d.Config.Priority)]++
	}
	return taskDist, priorityDist
}
