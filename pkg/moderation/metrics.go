package moderation

import "sync"

// RollingMetrics is recomputed incrementally per request and exposed
// read-only via the stats endpoint, alongside CacheStats.
type RollingMetrics struct {
	TotalRequests     int64            `json:"total_requests"`
	FlaggedCount      int64            `json:"flagged_count"`
	SeverityHistogram map[string]int64 `json:"severity_histogram"`
	LanguageHistogram map[string]int64 `json:"language_histogram"`
	AvgLatencyMS      float64          `json:"avg_latency_ms"`
	AvgRiskScore      float64          `json:"avg_risk_score"`
}

// CacheStats tracks cache hit/miss counts since process start.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// metricsState is the short-critical-section-protected running aggregate
// backing RollingMetrics and CacheStats, per the shared-resource policy
// ("Rolling metrics in the Moderation Service are protected by a short
// critical section around the update").
type metricsState struct {
	mu      sync.Mutex
	metrics RollingMetrics
	cache   CacheStats
}

func newMetricsState() *metricsState {
	return &metricsState{
		metrics: RollingMetrics{
			SeverityHistogram: make(map[string]int64),
			LanguageHistogram: make(map[string]int64),
		},
	}
}

func (m *metricsState) recordRequest(r Result, latencyMS int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.metrics.TotalRequests
	m.metrics.AvgLatencyMS = runningMean(m.metrics.AvgLatencyMS, float64(latencyMS), n)
	m.metrics.AvgRiskScore = runningMean(m.metrics.AvgRiskScore, r.RiskScore, n)
	m.metrics.TotalRequests = n + 1

	if r.Flagged {
		m.metrics.FlaggedCount++
	}
	if r.Severity != "" {
		m.metrics.SeverityHistogram[r.Severity]++
	}
	if r.LanguageCode != "" {
		m.metrics.LanguageHistogram[r.LanguageCode]++
	}
}

func (m *metricsState) recordCacheHit() {
	m.mu.Lock()
	m.cache.Hits++
	m.mu.Unlock()
}

func (m *metricsState) recordCacheMiss() {
	m.mu.Lock()
	m.cache.Misses++
	m.mu.Unlock()
}

func (m *metricsState) snapshot() (RollingMetrics, CacheStats) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := m.metrics
	metrics.SeverityHistogram = cloneCounts(m.metrics.SeverityHistogram)
	metrics.LanguageHistogram = cloneCounts(m.metrics.LanguageHistogram)
	return metrics, m.cache
}

func runningMean(mean, sample float64, n int64) float64 {
	return mean + (sample-mean)/float64(n+1)
}

func cloneCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
