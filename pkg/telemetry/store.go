package telemetry

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/kestrel-run/modelmesh/pkg/statefile"
)

const (
	telemetryFileName = ".model-telemetry.json"
	historyFileName   = ".routing-history.json"
)

// Store is the single-writer Telemetry Store: it owns the
// backend-telemetry map and the bounded decision log, persists both to disk
// on every write, and serves reads from a consistent snapshot. All mutation
// and snapshot requests are routed through one goroutine, so "last write
// wins" under races never means a torn read.
type Store struct {
	telemetryPath string
	historyPath   string

	cmds chan func(*storeState)
	stop chan struct{}
}

type storeState struct {
	telemetry map[string]BackendTelemetry
	decisions []DecisionRecord
}

// NewStore loads (or seeds) telemetry and decision history from dir and
// starts the single-writer goroutine. descriptors seed any backend with no
// prior recorded telemetry.
func NewStore(dir string, descriptors []BackendDescriptor) (*Store, error) {
	s := &Store{
		telemetryPath: filepath.Join(dir, telemetryFileName),
		historyPath:   filepath.Join(dir, historyFileName),
		cmds:          make(chan func(*storeState)),
		stop:          make(chan struct{}),
	}

	st := &storeState{telemetry: make(map[string]BackendTelemetry)}

	var loaded map[string]BackendTelemetry
	if _, err := statefile.Read(s.telemetryPath, &loaded); err != nil {
		return nil, err
	}
	for k, v := range loaded {
		st.telemetry[k] = v
	}

	var history []DecisionRecord
	if _, err := statefile.Read(s.historyPath, &history); err != nil {
		return nil, err
	}
	st.decisions = history

	now := time.Now().UnixMilli()
	for _, d := range descriptors {
		if _, ok := st.telemetry[d.Name]; !ok {
			st.telemetry[d.Name] = seed(d, now)
		}
	}

	go s.run(st)
	return s, nil
}

func (s *Store) run(st *storeState) {
	for {
		select {
		case fn := <-s.cmds:
			fn(st)
		case <-s.stop:
			return
		}
	}
}

// Close stops the writer goroutine. Pending persisted state remains on disk.
func (s *Store) Close() {
	close(s.stop)
}

func (s *Store) do(fn func(*storeState)) {
	done := make(chan struct{})
	s.cmds <- func(st *storeState) {
		fn(st)
		close(done)
	}
	<-done
}

// Update records one observed call outcome for backend, folding latency_ms
// and success into the running means: a plain arithmetic running mean over
// call_count, not an exponential moving average.
func (s *Store) Update(backend string, latencyMS int64, success bool) {
	s.do(func(st *storeState) {
		t, ok := st.telemetry[backend]
		if !ok {
			t = BackendTelemetry{Name: backend, SuccessRate: 1.0}
		}
		n := t.CallCount + 1
		t.AvgLatencyMS = (t.AvgLatencyMS*float64(t.CallCount) + float64(latencyMS)) / float64(n)
		successVal := 0.0
		if success {
			successVal = 1.0
		}
		t.SuccessRate = (t.SuccessRate*float64(t.CallCount) + successVal) / float64(n)
		t.CallCount = n
		t.LastLatencyMS = latencyMS
		t.LastUpdatedTS = time.Now().UnixMilli()
		st.telemetry[backend] = t

		_ = statefile.Write(s.telemetryPath, st.telemetry)
	})
}

// Get returns the current telemetry record for backend, or a fresh
// zero-call record with success_rate=1 if the backend has never been
// registered or observed.
func (s *Store) Get(backend string) BackendTelemetry {
	var out BackendTelemetry
	s.do(func(st *storeState) {
		if t, ok := st.telemetry[backend]; ok {
			out = t
			return
		}
		out = BackendTelemetry{Name: backend, SuccessRate: 1.0}
	})
	return out
}

// RecordDecision appends dr to the bounded decision log, dropping the
// oldest entry once the log exceeds DecisionLogCap, and persists the log.
func (s *Store) RecordDecision(dr DecisionRecord) {
	s.do(func(st *storeState) {
		st.decisions = append(st.decisions, dr)
		if len(st.decisions) > DecisionLogCap {
			st.decisions = st.decisions[len(st.decisions)-DecisionLogCap:]
		}
		_ = statefile.Write(s.historyPath, st.decisions)
	})
}

// Snapshot is a consistent, independent copy of the telemetry table and
// decision log.
type Snapshot struct {
	Telemetry map[string]BackendTelemetry
	Decisions []DecisionRecord
}

// Snapshot returns a consistent copy of telemetry and the decision log,
// sorted by backend name for deterministic iteration by callers.
func (s *Store) Snapshot() Snapshot {
	var out Snapshot
	s.do(func(st *storeState) {
		out.Telemetry = make(map[string]BackendTelemetry, len(st.telemetry))
		for k, v := range st.telemetry {
			out.Telemetry[k] = v
		}
		out.Decisions = append([]DecisionRecord(nil), st.decisions...)
	})
	return out
}

// SetForTest overwrites a backend's telemetry record directly, bypassing the
// running-mean update path. Exported for tests in other packages that need
// to seed cost or tier data Update does not touch.
func (s *Store) SetForTest(backend string, t BackendTelemetry) {
	s.do(func(st *storeState) {
		st.telemetry[backend] = t
		_ = statefile.Write(s.telemetryPath, st.telemetry)
	})
}

// Names returns the known backend names in the snapshot, sorted.
func (snap Snapshot) Names() []string {
	names := make([]string, 0, len(snap.Telemetry))
	for k := range snap.Telemetry {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
