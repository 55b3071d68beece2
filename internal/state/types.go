package state

import "time"

// #region run
// Run groups the belief versions written by one driver invocation.
type Run struct {
	RunID     string
	Source    string // input path, or "demo" / "fixture:<name>"
	CreatedAt time.Time
	Versions  int
}

// #endregion run

// #region belief-version
// BeliefVersion is an immutable snapshot of the running belief after one event.
type BeliefVersion struct {
	VersionID string
	ParentID  string
	RunID     string
	T         int64
	Belief    []float64
	CreatedAt time.Time
}

// #endregion belief-version

// #region provenance-entry
// ProvenanceEntry links a belief version to the decision that produced it.
type ProvenanceEntry struct {
	ID           int64
	VersionID    string
	RunID        string
	T            int64
	ActionSource string // "event" | "policy"
	Reason       string // ignition reason
	Ignited      bool
	DeltaG       float64
	SignalsJSON  string // full replay row for audit
	CreatedAt    time.Time
}

// #endregion provenance-entry

// #region version-with-provenance
// VersionWithProvenance pairs a belief version with its provenance row fields.
type VersionWithProvenance struct {
	BeliefVersion
	ActionSource string
	Reason       string
	Ignited      bool
	DeltaG       float64
}

// #endregion version-with-provenance
