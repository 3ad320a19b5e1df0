package telemetry

import "testing"

func TestUpdateComputesRunningMean(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, []BackendDescriptor{{Name: "m1", NominalMaxLatencyMS: 1000}})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	s.Update("m1", 2000, true)
	s.Update("m1", 4000, true)

	got := s.Get("m1")
	if got.CallCount != 2 {
		t.Fatalf("expected call_count=2, got %d", got.CallCount)
	}
	if got.AvgLatencyMS != 3000 {
		t.Fatalf("expected avg_latency_ms=3000, got %v", got.AvgLatencyMS)
	}
	if got.SuccessRate != 1.0 {
		t.Fatalf("expected success_rate=1.0, got %v", got.SuccessRate)
	}
}

func TestUpdateTracksFailures(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	s.Update("m1", 1000, true)
	s.Update("m1", 1000, false)

	got := s.Get("m1")
	if got.SuccessRate != 0.5 {
		t.Fatalf("expected success_rate=0.5, got %v", got.SuccessRate)
	}
}

func TestDecisionLogBoundedAt100(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	for i := 0; i < 150; i++ {
		s.RecordDecision(DecisionRecord{SelectedBackend: "m1", Score: float64(i)})
	}

	snap := s.Snapshot()
	if len(snap.Decisions) != DecisionLogCap {
		t.Fatalf("expected log length %d, got %d", DecisionLogCap, len(snap.Decisions))
	}
	// oldest entries should have been dropped, newest retained
	if snap.Decisions[len(snap.Decisions)-1].Score != 149 {
		t.Fatalf("expected newest decision retained, got score %v", snap.Decisions[len(snap.Decisions)-1].Score)
	}
}

func TestStoreReloadsPersistedState(t *testing.T) {
	dir := t.TempDir()
	s1, err := NewStore(dir, []BackendDescriptor{{Name: "m1", NominalMaxLatencyMS: 500}})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	s1.Update("m1", 800, true)
	s1.Close()

	s2, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer s2.Close()

	got := s2.Get("m1")
	if got.CallCount != 1 || got.AvgLatencyMS != 800 {
		t.Fatalf("expected reloaded telemetry, got %+v", got)
	}
}
