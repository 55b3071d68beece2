package state

import (
	"math"
	"path/filepath"
	"testing"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func appendVersion(t *testing.T, s *Store, runID, parent string, ts int64, belief []float64, reason string) BeliefVersion {
	t.Helper()
	v, err := s.Append(
		BeliefVersion{ParentID: parent, RunID: runID, T: ts, Belief: belief},
		ProvenanceEntry{ActionSource: "event", Reason: reason, Ignited: reason == "ignite", DeltaG: 0.35, SignalsJSON: `{"t":0}`},
	)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	return v
}

func TestBeginRunAndAppend(t *testing.T) {
	s := tempDB(t)

	run, err := s.BeginRun("demo")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if run.RunID == "" {
		t.Fatal("expected non-empty run ID")
	}

	belief := []float64{0.3133204974393946, 0.5854695565139671, 0.05060497302331911, 0.05060497302331911}
	v := appendVersion(t, s, run.RunID, "", 0, belief, "ignite")
	if v.VersionID == "" {
		t.Fatal("expected generated version ID")
	}

	got, err := s.GetVersion(v.VersionID)
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if got.ParentID != "" {
		t.Fatalf("expected empty parent, got %s", got.ParentID)
	}
	if len(got.Belief) != len(belief) {
		t.Fatalf("expected %d elements, got %d", len(belief), len(got.Belief))
	}
	for i := range belief {
		if got.Belief[i] != belief[i] {
			t.Fatalf("belief[%d] = %v, want exact %v", i, got.Belief[i], belief[i])
		}
	}
}

func TestAppendChainsVersions(t *testing.T) {
	s := tempDB(t)
	run, _ := s.BeginRun("stream.ndjson")

	v1 := appendVersion(t, s, run.RunID, "", 0, []float64{0.5, 0.5}, "ignite")
	v2 := appendVersion(t, s, run.RunID, v1.VersionID, 1, []float64{0.6, 0.4}, "deltaG_fail")

	latest, err := s.Latest(run.RunID)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.VersionID != v2.VersionID {
		t.Fatalf("expected latest %s, got %s", v2.VersionID, latest.VersionID)
	}
	if latest.ParentID != v1.VersionID {
		t.Fatalf("expected parent %s, got %s", v1.VersionID, latest.ParentID)
	}
	if latest.T != 1 {
		t.Fatalf("expected t=1, got %d", latest.T)
	}
}

func TestAppendRejectsUnknownParent(t *testing.T) {
	s := tempDB(t)
	run, _ := s.BeginRun("demo")

	_, err := s.Append(
		BeliefVersion{ParentID: "missing", RunID: run.RunID, Belief: []float64{1}},
		ProvenanceEntry{ActionSource: "event", Reason: "ignite"},
	)
	if err == nil {
		t.Fatal("expected foreign key failure for unknown parent")
	}

	vs, err := s.ListVersions(run.RunID, 10)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(vs) != 0 {
		t.Fatalf("failed append must not leave rows, got %d", len(vs))
	}
}

func TestListVersionsNewestFirst(t *testing.T) {
	s := tempDB(t)
	run, _ := s.BeginRun("demo")

	parent := ""
	for i := 0; i < 5; i++ {
		reason := "ignite"
		if i%2 == 1 {
			reason = "no_survivors"
		}
		v := appendVersion(t, s, run.RunID, parent, int64(i), []float64{float64(i), 1}, reason)
		parent = v.VersionID
	}

	vs, err := s.ListVersions(run.RunID, 3)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(vs) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(vs))
	}
	if vs[0].T != 4 || vs[2].T != 2 {
		t.Fatalf("expected t 4..2, got %d..%d", vs[0].T, vs[2].T)
	}
	if vs[1].Reason != "no_survivors" || vs[1].Ignited {
		t.Fatalf("expected provenance joined, got %+v", vs[1])
	}
	if !vs[0].Ignited || vs[0].ActionSource != "event" {
		t.Fatalf("expected ignited event row, got %+v", vs[0])
	}
}

func TestProvenanceInAppendOrder(t *testing.T) {
	s := tempDB(t)
	run, _ := s.BeginRun("demo")
	other, _ := s.BeginRun("other")

	v1 := appendVersion(t, s, run.RunID, "", 0, []float64{1}, "ignite")
	appendVersion(t, s, other.RunID, "", 0, []float64{1}, "ignite")
	appendVersion(t, s, run.RunID, v1.VersionID, 1, []float64{1}, "coherence_fail")

	entries, err := s.Provenance(run.RunID)
	if err != nil {
		t.Fatalf("Provenance: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for run, got %d", len(entries))
	}
	if entries[0].Reason != "ignite" || entries[1].Reason != "coherence_fail" {
		t.Fatalf("unexpected order: %s, %s", entries[0].Reason, entries[1].Reason)
	}
	if entries[0].SignalsJSON != `{"t":0}` {
		t.Fatalf("signals not persisted: %q", entries[0].SignalsJSON)
	}
	if entries[0].CreatedAt.IsZero() {
		t.Fatal("expected created_at to round-trip")
	}
}

func TestRunsCountsVersions(t *testing.T) {
	s := tempDB(t)
	a, _ := s.BeginRun("a")
	b, _ := s.BeginRun("b")
	appendVersion(t, s, a.RunID, "", 0, []float64{1}, "ignite")
	appendVersion(t, s, a.RunID, "", 1, []float64{1}, "ignite")

	runs, err := s.Runs(10)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != b.RunID || runs[0].Versions != 0 {
		t.Fatalf("expected newest run b with 0 versions, got %+v", runs[0])
	}
	if runs[1].Versions != 2 {
		t.Fatalf("expected 2 versions on run a, got %d", runs[1].Versions)
	}
}

func TestVectorEncodingRoundTrip(t *testing.T) {
	in := []float64{0, -1.5, math.SmallestNonzeroFloat64, 1e300}
	out := decodeVector(encodeVector(in))
	if len(out) != len(in) {
		t.Fatalf("expected %d, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("index %d: %v != %v", i, out[i], in[i])
		}
	}
	if len(decodeVector(nil)) != 0 {
		t.Fatal("expected empty decode of nil blob")
	}
}
