// Package router implements the Model Router: it scores candidate backends
// against a RouterConfig and returns a selection plus alternatives, updating
// the Telemetry Store's decision log on every call.
//
// An earlier design picked an adapter by matching trigger phrases against a
// prompt string. That approach has no notion of cost, latency, or
// reliability, so it is replaced here with the numeric scorer below; the
// functional-options constructor shape (RouterOption) is kept.
package router

import (
	"fmt"
	"sort"
	"time"

	"github.com/kestrel-run/modelmesh/pkg/telemetry"
)

// Router scores and selects a backend per request.
type Router struct {
	store          *telemetry.Store
	descriptors    map[string]telemetry.BackendDescriptor
	defaultBackend string
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithDefaultBackend sets the well-known fallback used when the backend
// table is empty, per the "never fail" fallback rule.
func WithDefaultBackend(name string) RouterOption {
	return func(r *Router) { r.defaultBackend = name }
}

// NewRouter creates a Router backed by store, with descriptors providing
// the static capability facts (tier, cost, latency, supported features)
// telemetry alone does not carry.
func NewRouter(store *telemetry.Store, descriptors []telemetry.BackendDescriptor, opts ...RouterOption) *Router {
	byName := make(map[string]telemetry.BackendDescriptor, len(descriptors))
	for _, d := range descriptors {
		byName[d.Name] = d
	}
	r := &Router{store: store, descriptors: byName}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Selection is the Model Router's output: the chosen backend, its score and
// reasoning, and the top alternatives considered.
type Selection struct {
	Selected     string
	Score        float64
	Reason       string
	Alternatives []telemetry.Alternative
}

type scoredCandidate struct {
	name      string
	score     float64
	reasons   []string
	telemetry telemetry.BackendTelemetry
}

// Select scores every known backend against cfg, picks the winner by the
// deterministic tie-break rule, records the decision, and returns the
// selection plus its top-3 alternatives.
func (r *Router) Select(cfg telemetry.RouterConfig) Selection {
	snap := r.store.Snapshot()
	names := snap.Names()

	if len(names) == 0 {
		r.store.RecordDecision(telemetry.DecisionRecord{
			TS:              time.Now().UnixMilli(),
			Config:          cfg,
			SelectedBackend: r.defaultBackend,
			ReasonTokens:    []string{"backend table empty; using configured default"},
		})
		return Selection{Selected: r.defaultBackend, Reason: "backend table empty; using configured default"}
	}

	candidates := make([]scoredCandidate, 0, len(names))
	for _, name := range names {
		t := snap.Telemetry[name]
		d := r.descriptors[name]
		score, reasons := scoreBackend(cfg, t, d)
		candidates = append(candidates, scoredCandidate{name: name, score: score, reasons: reasons, telemetry: t})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.telemetry.CallCount != b.telemetry.CallCount {
			return a.telemetry.CallCount > b.telemetry.CallCount
		}
		if a.telemetry.CostPer1KTokens != b.telemetry.CostPer1KTokens {
			return a.telemetry.CostPer1KTokens < b.telemetry.CostPer1KTokens
		}
		return a.name < b.name
	})

	best := candidates[0]
	alternatives := make([]telemetry.Alternative, 0, 3)
	for _, c := range candidates[1:] {
		if len(alternatives) == 3 {
			break
		}
		alternatives = append(alternatives, telemetry.Alternative{
			Backend: c.name,
			Score:   c.score,
			Reason:  joinReasons(c.reasons),
		})
	}

	reason := joinReasons(best.reasons)
	r.store.RecordDecision(telemetry.DecisionRecord{
		TS:              time.Now().UnixMilli(),
		Config:          cfg,
		SelectedBackend: best.name,
		ReasonTokens:    best.reasons,
		Score:           best.score,
		Alternatives:    alternatives,
	})

	return Selection{
		Selected:     best.name,
		Score:        best.score,
		Reason:       reason,
		Alternatives: alternatives,
	}
}

func joinReasons(reasons []string) string {
	if len(reasons) == 0 {
		return "no penalties or boosts applied"
	}
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += "; " + r
	}
	return out
}

// scoreBackend implements the scoring algorithm: capability tier match,
// latency gate, required-capability gate, priority blending, reliability
// penalty, and recency boost, floored at 0.
func scoreBackend(cfg telemetry.RouterConfig, t telemetry.BackendTelemetry, d telemetry.BackendDescriptor) (float64, []string) {
	var reasons []string
	base := 100.0

	tier := t.CapabilityTier
	if tier == "" {
		tier = d.CapabilityTier
	}
	required := cfg.Task.RequiredTier()
	switch {
	case tier.Index() < required.Index():
		base -= 30
		reasons = append(reasons, fmt.Sprintf("tier %s below required %s", tier, required))
	case tier.Index() > required.Index()+1:
		base -= 10
		reasons = append(reasons, fmt.Sprintf("tier %s overkill for %s", tier, required))
	}

	if cfg.MaxLatencyMS > 0 && t.AvgLatencyMS > float64(cfg.MaxLatencyMS) {
		base -= 50
		reasons = append(reasons, "avg latency exceeds max_latency_ms")
	}

	for capability, wantsIt := range cfg.RequiredCapabilities {
		if !wantsIt {
			continue
		}
		if !backendSupports(d, capability) {
			reasons = append(reasons, fmt.Sprintf("missing required capability %q", capability))
			return 0, reasons
		}
	}

	score := applyPriority(cfg.Priority, base, t, tier)

	if t.SuccessRate < 0.95 {
		penalty := (1 - t.SuccessRate) * 50
		score -= penalty
		reasons = append(reasons, "reliability penalty")
	}

	if t.CallCount > 10 && time.Since(time.UnixMilli(t.LastUpdatedTS)) < 24*time.Hour {
		score += 5
		reasons = append(reasons, "recency boost")
	}

	if score < 0 {
		score = 0
	}
	return score, reasons
}

func applyPriority(p telemetry.Priority, base float64, t telemetry.BackendTelemetry, tier telemetry.CapabilityTier) float64 {
	cost := t.CostPer1KTokens
	if cost <= 0 {
		cost = 0.0001
	}
	latency := t.AvgLatencyMS
	if latency <= 0 {
		latency = 1
	}
	tierRank := float64(tier.Index() + 1)

	switch p {
	case telemetry.PriorityCost:
		return 0.3*base + 0.7*((1/cost)*100)
	case telemetry.PrioritySpeed:
		return 0.3*base + 0.7*((1/latency)*10000)
	case telemetry.PriorityQuality:
		return 0.3*base + 0.7*(tierRank*25)
	case telemetry.PriorityBalanced:
		costTerm := (1 / cost) * 50
		speedTerm := (1 / latency) * 5000
		qualityTerm := tierRank * 15
		return 0.2*base + 0.3*costTerm + 0.3*speedTerm + 0.2*qualityTerm
	default:
		return base
	}
}

func backendSupports(d telemetry.BackendDescriptor, capability string) bool {
	switch capability {
	case "structured_output":
		return d.SupportsStructuredOutput
	case "streaming":
		return d.SupportsStreaming
	default:
		return false
	}
}
