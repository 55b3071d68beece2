// Package sensory reshapes a raw likelihood column according to the
// exploration inputs of the current event.
package sensory

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/danielpatrickdp/ignition/internal/belief"
)

// Action is the pair of exploration inputs applied to one event.
type Action struct {
	Strength float64 `json:"sniff_strength"`
	Pressure float64 `json:"touch_pressure"`
}

// Config controls the strength/pressure to temperature mapping.
type Config struct {
	BaseTemperature float64 `yaml:"base_temperature"`
	PressureGain    float64 `yaml:"pressure_gain"`
	MinTemperature  float64 `yaml:"min_temperature"`
	MaxTemperature  float64 `yaml:"max_temperature"`
}

// DefaultConfig returns the standard temperature mapping.
func DefaultConfig() Config {
	return Config{
		BaseTemperature: 1.0,
		PressureGain:    0.75,
		MinTemperature:  0.25,
		MaxTemperature:  4.0,
	}
}

// Output keeps the raw and modulated likelihood together for audit.
type Output struct {
	Raw         []float64
	Modulated   []float64
	Temperature float64
}

// Temperature maps exploration inputs to a clamped temperature. Stronger
// combined input gives a lower temperature.
func Temperature(a Action, cfg Config) float64 {
	denom := math.Max(math.Max(a.Strength, 0)+cfg.PressureGain*math.Max(a.Pressure, 0), belief.Eps)
	temp := cfg.BaseTemperature / denom
	if temp < cfg.MinTemperature {
		temp = cfg.MinTemperature
	}
	if temp > cfg.MaxTemperature {
		temp = cfg.MaxTemperature
	}
	return temp
}

// Modulate raises the likelihood to 1/temperature and renormalizes it.
func Modulate(raw []float64, a Action, cfg Config) Output {
	temp := Temperature(a, cfg)
	inv := 1.0 / temp

	mod := make([]float64, len(raw))
	for i, x := range raw {
		mod[i] = math.Pow(math.Max(x, belief.Eps), inv)
	}
	if len(mod) > 0 {
		floats.Scale(1/math.Max(floats.Sum(mod), belief.Eps), mod)
	}

	return Output{
		Raw:         append([]float64(nil), raw...),
		Modulated:   mod,
		Temperature: temp,
	}
}
