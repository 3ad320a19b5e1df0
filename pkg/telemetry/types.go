// Package telemetry owns the data model shared by the Model Router and the
// Telemetry Store: static backend descriptors, the mutable per-backend
// running stats derived from observed calls, the router's input
// configuration, and the bounded decision log.
package telemetry

// CapabilityTier is an ordinal capability class.
type CapabilityTier string

const (
	TierBasic     CapabilityTier = "basic"
	TierStandard  CapabilityTier = "standard"
	TierAdvanced  CapabilityTier = "advanced"
	TierReasoning CapabilityTier = "reasoning"
)

var tierIndex = map[CapabilityTier]int{
	TierBasic:     0,
	TierStandard:  1,
	TierAdvanced:  2,
	TierReasoning: 3,
}

// Index returns the tier's ordinal position, basic=0 .. reasoning=3.
// Unknown tiers sort as basic, so a misconfigured descriptor degrades
// gracefully instead of panicking mid-score.
func (t CapabilityTier) Index() int {
	return tierIndex[t]
}

// BackendDescriptor is the static, init-time-loaded profile of a backend.
// Immutable in-process; never mutated after load.
type BackendDescriptor struct {
	Name                     string         `yaml:"name" json:"name"`
	CapabilityTier           CapabilityTier `yaml:"capability_tier" json:"capability_tier"`
	BaseCostPer1KTokens      float64        `yaml:"base_cost_per_1k_tokens" json:"base_cost_per_1k_tokens"`
	NominalMaxLatencyMS      int64          `yaml:"nominal_max_latency_ms" json:"nominal_max_latency_ms"`
	SupportsStructuredOutput bool           `yaml:"supports_structured_output" json:"supports_structured_output"`
	SupportsStreaming        bool           `yaml:"supports_streaming" json:"supports_streaming"`
}

// BackendTelemetry is the mutable, persistent rolling-stats record for one
// backend. avg_latency_ms and success_rate are running means over
// call_count observations; call_count is monotonically non-decreasing.
type BackendTelemetry struct {
	Name            string         `json:"name"`
	LastLatencyMS   int64          `json:"last_latency_ms"`
	CostPer1KTokens float64        `json:"cost_per_1k_tokens"`
	SuccessRate     float64        `json:"success_rate"`
	CapabilityTier  CapabilityTier `json:"capability_tier"`
	LastUpdatedTS   int64          `json:"last_updated_ts"`
	CallCount       int64          `json:"call_count"`
	AvgLatencyMS    float64        `json:"avg_latency_ms"`
}

// seed builds the initial telemetry record for a backend that has never
// been observed, per the "missing files imply initial state seeded from
// static descriptors" rule.
func seed(d BackendDescriptor, nowMS int64) BackendTelemetry {
	return BackendTelemetry{
		Name:            d.Name,
		CostPer1KTokens: d.BaseCostPer1KTokens,
		SuccessRate:     1.0,
		CapabilityTier:  d.CapabilityTier,
		AvgLatencyMS:    float64(d.NominalMaxLatencyMS),
		LastUpdatedTS:   nowMS,
		CallCount:       0,
	}
}

// Task is the kind of work a RouterConfig requests a backend for.
type Task string

const (
	TaskClassification Task = "classification"
	TaskSummarization  Task = "summarization"
	TaskReasoning      Task = "reasoning"
	TaskExtraction     Task = "extraction"
	TaskChat           Task = "chat"
	TaskOther          Task = "other"
)

// RequiredTier maps a task to the minimum capability tier it needs.
func (t Task) RequiredTier() CapabilityTier {
	switch t {
	case TaskClassification:
		return TierBasic
	case TaskReasoning:
		return TierReasoning
	case TaskSummarization, TaskExtraction, TaskChat, TaskOther:
		return TierStandard
	default:
		return TierStandard
	}
}

// Priority is the axis a RouterConfig optimizes selection against.
type Priority string

const (
	PriorityCost     Priority = "cost"
	PriorityQuality  Priority = "quality"
	PrioritySpeed    Priority = "speed"
	PriorityBalanced Priority = "balanced"
)

// Complexity is an advisory hint about task difficulty; it does not
// currently enter the scoring formula directly but is carried through the
// decision record for observability and future tuning.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// RouterConfig is the per-request input to the Model Router.
type RouterConfig struct {
	Task                 Task           `json:"task"`
	Priority             Priority       `json:"priority"`
	Complexity           Complexity     `json:"complexity,omitempty"`
	MaxLatencyMS         int64          `json:"max_latency_ms,omitempty"`
	RequiredCapabilities map[string]bool `json:"required_capabilities,omitempty"`
}

// Alternative is a non-selected candidate carried alongside a decision.
type Alternative struct {
	Backend string  `json:"backend"`
	Score   float64 `json:"score"`
	Reason  string  `json:"reason"`
}

// DecisionRecord is one append-only entry in the bounded decision log.
type DecisionRecord struct {
	TS              int64         `json:"ts"`
	Config          RouterConfig  `json:"config"`
	SelectedBackend string        `json:"selected_backend"`
	ReasonTokens    []string      `json:"reason_tokens,omitempty"`
	Score           float64       `json:"score"`
	Alternatives    []Alternative `json:"alternatives,omitempty"`
}

// DecisionLogCap is the maximum length of the bounded decision log.
const DecisionLogCap = 100
