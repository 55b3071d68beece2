package update

import (
	"github.com/danielpatrickdp/ignition/internal/broadcast"
	"github.com/danielpatrickdp/ignition/internal/gate"
	"github.com/danielpatrickdp/ignition/internal/message"
	"github.com/danielpatrickdp/ignition/internal/sensory"
)

// #region input
// Input carries one event's vectors and the exploration inputs chosen for it.
type Input struct {
	Belief     []float64 // running belief before this event
	Prior      []float64
	Likelihood []float64 // raw likelihood column, sliced by the observation
	Task       []float64
	Action     sensory.Action
}

// #endregion input

// #region update-config
// Config bundles the parameters of every pipeline stage.
type Config struct {
	Sensory   sensory.Config   `yaml:"sensory"`
	Message   message.Config   `yaml:"message"`
	Gate      gate.GateConfig  `yaml:"gate"`
	Broadcast broadcast.Config `yaml:"broadcast"`
}

// DefaultConfig returns the default parameters for all stages.
func DefaultConfig() Config {
	return Config{
		Sensory:   sensory.DefaultConfig(),
		Message:   message.DefaultConfig(),
		Gate:      gate.DefaultGateConfig(),
		Broadcast: broadcast.DefaultConfig(),
	}
}

// #endregion update-config

// #region update-result
// FreeEnergy holds the three G values of an event and their drops.
type FreeEnergy struct {
	Before         float64
	AfterLocal     float64
	AfterBroadcast float64
	DeltaLocal     float64
	DeltaBroadcast float64
}

// Result bundles everything computed for one event.
type Result struct {
	Sensory     sensory.Output
	Uncertainty float64

	Before     []float64 // running belief as received
	After      []float64 // local Bayes update
	TaskBiased []float64
	Broadcast  []float64 // After re-updated with the expanded broadcast
	Next       []float64 // Broadcast if ignited, else After

	Messages  []message.Message
	Filter    gate.FilterResult
	Coherence float64

	Coarse   []float64 // combined survivor deltas, empty without survivors
	Expanded []float64 // Coarse expanded to full length

	G        FreeEnergy
	Decision gate.GateDecision
}

// FirstSurvivor returns the first admitted survivor, if any.
func (r Result) FirstSurvivor() (gate.Survivor, bool) {
	if len(r.Filter.Survivors) == 0 {
		return gate.Survivor{}, false
	}
	return r.Filter.Survivors[0], true
}

// #endregion update-result
