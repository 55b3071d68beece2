package gate

import "github.com/danielpatrickdp/ignition/internal/message"

// #region reason
// Reason enumerates the terminal outcomes of the ignition decision.
type Reason string

const (
	ReasonNoSurvivors   Reason = "no_survivors"
	ReasonCoherenceFail Reason = "coherence_fail"
	ReasonDeltaGFail    Reason = "deltaG_fail"
	ReasonIgnite        Reason = "ignite"
)

// #endregion reason

// #region drop-stage
// DropStage names the filter stage that discarded a message.
type DropStage string

const (
	DropEfficiency  DropStage = "efficiency"
	DropCoarseGrain DropStage = "coarse_grain"
)

// #endregion drop-stage

// #region gate-config
// GateConfig holds thresholds for the message filter and the ignition decision.
type GateConfig struct {
	Alpha         float64 `yaml:"alpha"`          // base efficiency threshold
	Beta          float64 `yaml:"beta"`           // threshold slope on normalized uncertainty
	Gamma         float64 `yaml:"gamma"`          // coarse-grain admission fraction of theta
	CoherenceCrit float64 `yaml:"coherence_crit"` // minimum survivor coherence to ignite
	DeltaMin      float64 `yaml:"delta_min"`      // minimum free-energy drop to ignite
	RGLevel       int     `yaml:"rg_level"`       // pooling window is 2^RGLevel
	RGCost        float64 `yaml:"rg_cost"`        // complexity penalty for coarse-graining
}

// DefaultGateConfig returns the standard filter and ignition thresholds.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		Alpha:         0.10,
		Beta:          0.25,
		Gamma:         0.80,
		CoherenceCrit: 0.70,
		DeltaMin:      0.05,
		RGLevel:       1,
		RGCost:        0.1,
	}
}

// #endregion gate-config

// #region survivor
// Survivor is a message that passed both filter stages. Delta holds the
// coarse-grained vector; the other metrics are the pre-penalty values.
type Survivor struct {
	message.Message
	Efficiency float64
}

// Drop records a message discarded by the filter.
type Drop struct {
	Level      message.Level
	Stage      DropStage
	Efficiency float64 // eta at the stage that rejected it
}

// FilterResult is the output of the two-stage filter.
type FilterResult struct {
	Theta     float64
	Survivors []Survivor
	Drops     []Drop
}

// Levels lists the survivor levels in admission order.
func (r FilterResult) Levels() []int {
	levels := make([]int, len(r.Survivors))
	for i, s := range r.Survivors {
		levels[i] = int(s.Level)
	}
	return levels
}

// #endregion survivor

// #region gate-decision
// GateDecision is the output of the ignition evaluation.
type GateDecision struct {
	Reason    Reason
	Ignited   bool
	Coherence float64
	DeltaG    float64
}

// #endregion gate-decision
