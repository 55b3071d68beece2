// Package policy picks exploration inputs when an event does not supply them.
package policy

import (
	"math"

	"github.com/danielpatrickdp/ignition/internal/belief"
	"github.com/danielpatrickdp/ignition/internal/history"
	"github.com/danielpatrickdp/ignition/internal/sensory"
)

// Config holds the linear weights and output bounds of the fallback policy.
type Config struct {
	BaseStrength      float64 `yaml:"base_strength"`
	StrengthEntropy   float64 `yaml:"strength_entropy"`
	StrengthQuiet     float64 `yaml:"strength_quiet"` // weight on 1 - ignite_rate
	StrengthTask      float64 `yaml:"strength_task"`
	StrengthDeltaG    float64 `yaml:"strength_delta_g"`
	MinStrength       float64 `yaml:"min_strength"`
	MaxStrength       float64 `yaml:"max_strength"`
	BasePressure      float64 `yaml:"base_pressure"`
	PressureCertainty float64 `yaml:"pressure_certainty"` // weight on 1 - h
	PressureIgnite    float64 `yaml:"pressure_ignite"`
	PressureTaskSlack float64 `yaml:"pressure_task_slack"` // weight on 1 - task_mean
	MinPressure       float64 `yaml:"min_pressure"`
	MaxPressure       float64 `yaml:"max_pressure"`
}

// DefaultConfig returns the standard policy weights.
func DefaultConfig() Config {
	return Config{
		BaseStrength:      1.0,
		StrengthEntropy:   1.25,
		StrengthQuiet:     0.50,
		StrengthTask:      0.35,
		StrengthDeltaG:    0.15,
		MinStrength:       0.1,
		MaxStrength:       3.0,
		BasePressure:      0.25,
		PressureCertainty: 0.75,
		PressureIgnite:    0.25,
		PressureTaskSlack: 0.10,
		MinPressure:       0.0,
		MaxPressure:       3.0,
	}
}

// Choose derives strength and pressure from belief uncertainty, recent
// ignition statistics and task demand.
func Choose(q []float64, stats history.Stats, task []float64, cfg Config) sensory.Action {
	h := belief.Uncertainty(q)
	rate := stats.IgniteRate()
	tm := TaskMean(q, task)

	strength := cfg.BaseStrength +
		cfg.StrengthEntropy*h +
		cfg.StrengthQuiet*(1-rate) +
		cfg.StrengthTask*tm -
		cfg.StrengthDeltaG*stats.MeanDeltaG()
	pressure := cfg.BasePressure +
		cfg.PressureCertainty*(1-h) +
		cfg.PressureIgnite*rate +
		cfg.PressureTaskSlack*(1-tm)

	return sensory.Action{
		Strength: clamp(strength, cfg.MinStrength, cfg.MaxStrength),
		Pressure: clamp(pressure, cfg.MinPressure, cfg.MaxPressure),
	}
}

// TaskMean is the mean of max(task_i, 0) over the overlap of q and task.
func TaskMean(q, task []float64) float64 {
	n := min(len(q), len(task))
	var s float64
	for i := 0; i < n; i++ {
		s += math.Max(task[i], 0)
	}
	return s / math.Max(float64(n), 1)
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}
