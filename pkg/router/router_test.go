package router

import (
	"testing"

	"github.com/kestrel-run/modelmesh/pkg/telemetry"
)

func newTestRouter(t *testing.T, descriptors []telemetry.BackendDescriptor) *Router {
	t.Helper()
	store, err := telemetry.NewStore(t.TempDir(), descriptors)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	return NewRouter(store, descriptors, WithDefaultBackend("mock"))
}

func TestSelectCheapestUnderCostPriority(t *testing.T) {
	descriptors := []telemetry.BackendDescriptor{
		{Name: "m_a", CapabilityTier: telemetry.TierBasic},
		{Name: "m_b", CapabilityTier: telemetry.TierStandard},
	}
	r := newTestRouter(t, descriptors)
	r.store.Update("m_a", 2000, true)
	r.store.Update("m_a", 2000, true)
	r.store.Update("m_b", 1500, true)
	r.store.Update("m_b", 1500, true)
	// seed cost directly since Update doesn't touch cost_per_1k
	seedCost(r, "m_a", 0.01)
	seedCost(r, "m_b", 0.03)

	sel := r.Select(telemetry.RouterConfig{Task: telemetry.TaskClassification, Priority: telemetry.PriorityCost})
	if sel.Selected != "m_a" {
		t.Fatalf("expected m_a to win on cost, got %s (score=%v)", sel.Selected, sel.Score)
	}
}

func TestLatencyGateExcludesSlowBackend(t *testing.T) {
	// Under priority=speed the latency gate's -50 plus the speed term's
	// inverse-latency weighting dominate m_r's tier advantage, so m_s wins
	// despite its lower capability tier.
	descriptors := []telemetry.BackendDescriptor{
		{Name: "m_r", CapabilityTier: telemetry.TierReasoning, NominalMaxLatencyMS: 10000},
		{Name: "m_s", CapabilityTier: telemetry.TierStandard, NominalMaxLatencyMS: 2000},
	}
	r := newTestRouter(t, descriptors)

	sel := r.Select(telemetry.RouterConfig{
		Task:         telemetry.TaskReasoning,
		Priority:     telemetry.PrioritySpeed,
		MaxLatencyMS: 5000,
	})
	if sel.Selected != "m_s" {
		t.Fatalf("expected m_s to win once m_r is latency-penalized, got %s", sel.Selected)
	}
}

func TestRequiredCapabilityExcludesUnsupportedBackend(t *testing.T) {
	descriptors := []telemetry.BackendDescriptor{
		{Name: "no_structured", CapabilityTier: telemetry.TierStandard, SupportsStructuredOutput: false},
		{Name: "has_structured", CapabilityTier: telemetry.TierStandard, SupportsStructuredOutput: true},
	}
	r := newTestRouter(t, descriptors)

	sel := r.Select(telemetry.RouterConfig{
		Task:                 telemetry.TaskClassification,
		Priority:             telemetry.PrioritySpeed,
		RequiredCapabilities: map[string]bool{"structured_output": true},
	})
	if sel.Selected != "has_structured" {
		t.Fatalf("expected has_structured, got %s", sel.Selected)
	}
}

func TestSelectDeterministicUnderTie(t *testing.T) {
	descriptors := []telemetry.BackendDescriptor{
		{Name: "z_model", CapabilityTier: telemetry.TierStandard},
		{Name: "a_model", CapabilityTier: telemetry.TierStandard},
	}
	r := newTestRouter(t, descriptors)

	sel1 := r.Select(telemetry.RouterConfig{Task: telemetry.TaskChat, Priority: telemetry.PriorityBalanced})
	sel2 := r.Select(telemetry.RouterConfig{Task: telemetry.TaskChat, Priority: telemetry.PriorityBalanced})
	if sel1.Selected != sel2.Selected {
		t.Fatalf("expected deterministic selection, got %s then %s", sel1.Selected, sel2.Selected)
	}
	if sel1.Selected != "a_model" {
		t.Fatalf("expected lexicographic tie-break to favor a_model, got %s", sel1.Selected)
	}
}

func TestSelectRecordsDecisionExactlyOnce(t *testing.T) {
	r := newTestRouter(t, []telemetry.BackendDescriptor{{Name: "m1", CapabilityTier: telemetry.TierStandard}})
	r.Select(telemetry.RouterConfig{Task: telemetry.TaskChat, Priority: telemetry.PrioritySpeed})

	snap := r.store.Snapshot()
	if len(snap.Decisions) != 1 {
		t.Fatalf("expected exactly 1 decision recorded, got %d", len(snap.Decisions))
	}
}

func TestSelectFallsBackWhenTableEmpty(t *testing.T) {
	store, err := telemetry.NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()
	r := NewRouter(store, nil, WithDefaultBackend("mock"))

	sel := r.Select(telemetry.RouterConfig{Task: telemetry.TaskChat, Priority: telemetry.PrioritySpeed})
	if sel.Selected != "mock" {
		t.Fatalf("expected fallback to configured default, got %s", sel.Selected)
	}
}

// seedCost sets a backend's cost directly. Update never touches cost, so
// tests write it through the store's exported SetForTest setter, which
// replaces the in-memory entry and persists it.
func seedCost(r *Router, backend string, cost float64) {
	t := r.store.Get(backend)
	t.CostPer1KTokens = cost
	r.store.SetForTest(backend, t)
}
