package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/ignition/internal/event"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	Events          []event.Event           `json:"events"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureExpectedResult captures the expected outcome per event.
type FixtureExpectedResult struct {
	T            int64  `json:"t"`
	Reason       string `json:"reason"`
	ActionSource string `json:"action_source,omitempty"`
}

// FixtureConfig overrides defaults; absent fields keep their default value.
type FixtureConfig struct {
	Gate            FixtureGateConfig `json:"gate"`
	Lambda          *float64          `json:"lambda,omitempty"`
	HistoryCapacity *int              `json:"history_capacity,omitempty"`
}

// FixtureGateConfig mirrors gate.GateConfig with optional JSON fields.
type FixtureGateConfig struct {
	Alpha         *float64 `json:"alpha,omitempty"`
	Beta          *float64 `json:"beta,omitempty"`
	Gamma         *float64 `json:"gamma,omitempty"`
	CoherenceCrit *float64 `json:"coherence_crit,omitempty"`
	DeltaMin      *float64 `json:"delta_min,omitempty"`
	RGLevel       *int     `json:"rg_level,omitempty"`
	RGCost        *float64 `json:"rg_cost,omitempty"`
}

// Mismatch is one divergence between a fixture and its replay.
type Mismatch struct {
	Index    int
	T        int64
	Field    string
	Expected string
	Got      string
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToReplayConfig applies the fixture overrides to the default config.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	cfg := DefaultReplayConfig()
	g := &cfg.Session.Pipeline.Gate
	setFloat(&g.Alpha, fc.Gate.Alpha)
	setFloat(&g.Beta, fc.Gate.Beta)
	setFloat(&g.Gamma, fc.Gate.Gamma)
	setFloat(&g.CoherenceCrit, fc.Gate.CoherenceCrit)
	setFloat(&g.DeltaMin, fc.Gate.DeltaMin)
	setFloat(&g.RGCost, fc.Gate.RGCost)
	if fc.Gate.RGLevel != nil {
		g.RGLevel = *fc.Gate.RGLevel
	}
	setFloat(&cfg.Session.Pipeline.Broadcast.Lambda, fc.Lambda)
	if fc.HistoryCapacity != nil {
		cfg.Session.HistoryCapacity = *fc.HistoryCapacity
	}
	return cfg
}

// Check compares replay results against the expected results.
func (f *Fixture) Check(results []ReplayResult) []Mismatch {
	var out []Mismatch
	if len(results) != len(f.ExpectedResults) {
		out = append(out, Mismatch{
			Index:    -1,
			Field:    "count",
			Expected: fmt.Sprint(len(f.ExpectedResults)),
			Got:      fmt.Sprint(len(results)),
		})
	}
	for i := 0; i < min(len(results), len(f.ExpectedResults)); i++ {
		exp, got := f.ExpectedResults[i], results[i]
		if exp.T != got.T {
			out = append(out, Mismatch{Index: i, T: got.T, Field: "t", Expected: fmt.Sprint(exp.T), Got: fmt.Sprint(got.T)})
		}
		if exp.Reason != string(got.Reason) {
			out = append(out, Mismatch{Index: i, T: got.T, Field: "reason", Expected: exp.Reason, Got: string(got.Reason)})
		}
		if exp.ActionSource != "" && exp.ActionSource != string(got.ActionSource) {
			out = append(out, Mismatch{Index: i, T: got.T, Field: "action_source", Expected: exp.ActionSource, Got: string(got.ActionSource)})
		}
	}
	return out
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// #endregion fixture-loader
