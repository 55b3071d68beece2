// Package message summarizes a belief transition as a leveled message
// carrying its energy, precision gain and complexity.
package message

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/danielpatrickdp/ignition/internal/belief"
)

// Level identifies which interpretation produced a message.
type Level uint8

const (
	// LevelLocal summarizes the local Bayes update.
	LevelLocal Level = 0
	// LevelTask summarizes the task-biased reinterpretation.
	LevelTask Level = 1
)

// Config holds the message generator constants.
type Config struct {
	TaskGain          float64 `yaml:"task_gain"`           // logit gain for the task-biased belief
	PrecisionTaskGain float64 `yaml:"precision_task_gain"` // task bias added to level-1 precision
	SparsityWeight    float64 `yaml:"sparsity_weight"`
	NonzeroTolerance  float64 `yaml:"nonzero_tolerance"`
}

// DefaultConfig returns the standard generator constants.
func DefaultConfig() Config {
	return Config{
		TaskGain:          0.05,
		PrecisionTaskGain: 0.1,
		SparsityWeight:    0.5,
		NonzeroTolerance:  1e-6,
	}
}

// Message is one leveled summary of a belief transition.
type Message struct {
	Level         Level
	Delta         []float64
	Precision     []float64
	Energy        float64
	PrecisionGain float64
	Complexity    float64
}

// Efficiency is (e + p) / (k + eps).
func Efficiency(energy, precisionGain, complexity float64) float64 {
	return (energy + precisionGain) / (complexity + belief.Eps)
}

// Efficiency scores the message with its own recorded complexity.
func (m Message) Efficiency() float64 {
	return Efficiency(m.Energy, m.PrecisionGain, m.Complexity)
}

// Generate builds the message for the transition before -> after.
func Generate(before, after, task []float64, level Level, cfg Config) Message {
	qb := belief.Normalize(before)
	qa := belief.Normalize(after)

	n := min(len(qa), len(qb))
	delta := make([]float64, n)
	floats.SubTo(delta, qa[:n], qb[:n])

	var nnz float64
	for _, d := range delta {
		if math.Abs(d) > cfg.NonzeroTolerance {
			nnz++
		}
	}
	complexity := floats.Norm(delta, 2) + cfg.SparsityWeight*(nnz/(float64(len(delta))+belief.Eps))

	return Message{
		Level:         level,
		Delta:         delta,
		Precision:     precision(delta, task, level, cfg),
		Energy:        belief.KL(qa, qb),
		PrecisionGain: belief.Entropy(qb) - belief.Entropy(qa),
		Complexity:    complexity,
	}
}

func precision(delta, task []float64, level Level, cfg Config) []float64 {
	prec := make([]float64, len(delta))
	for i, d := range delta {
		prec[i] = math.Abs(d)
	}
	if level == LevelTask {
		for i := 0; i < min(len(prec), len(task)); i++ {
			prec[i] += cfg.PrecisionTaskGain * task[i]
		}
	}
	if len(prec) > 0 {
		floats.Scale(1/math.Max(floats.Norm(prec, 2), belief.Eps), prec)
	}
	return prec
}

// TaskBiased reinterprets q through the task vector.
func TaskBiased(q, task []float64, cfg Config) []float64 {
	return belief.Tilt(q, task, cfg.TaskGain)
}
