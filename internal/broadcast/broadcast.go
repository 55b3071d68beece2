// Package broadcast coarse-grains message deltas into the shared channel
// resolution and merges surviving messages into one correction.
package broadcast

import (
	"gonum.org/v1/gonum/floats"

	"github.com/danielpatrickdp/ignition/internal/belief"
)

// Config holds the broadcast mixing weight.
type Config struct {
	Lambda float64 `yaml:"lambda"`
}

// DefaultConfig returns lambda = 1.
func DefaultConfig() Config {
	return Config{Lambda: 1.0}
}

// Window is the pooling width for a coarse-graining level.
func Window(level int) int {
	if level <= 0 {
		return 1
	}
	return 1 << level
}

// Pool averages non-overlapping windows of width 2^level. A trailing partial
// window is dropped; when no full window fits the result is a single zero.
func Pool(v []float64, level int) []float64 {
	k := Window(level)
	if k <= 1 {
		return append([]float64(nil), v...)
	}
	groups := len(v) / k
	if groups == 0 {
		return []float64{0}
	}
	out := make([]float64, groups)
	for g := range out {
		out[g] = floats.Sum(v[g*k:(g+1)*k]) / float64(k)
	}
	return out
}

// Expand repeats each coarse value 2^level times and truncates or
// right-pads with zeros to exactly n entries.
func Expand(coarse []float64, n, level int) []float64 {
	out := make([]float64, n)
	if len(coarse) == 0 {
		return out
	}
	k := Window(level)
	for i := range out {
		if j := i / k; j < len(coarse) {
			out[i] = coarse[j]
		}
	}
	return out
}

// Weights is the max-shifted softmax over survivor efficiencies.
func Weights(etas []float64) []float64 {
	return belief.Softmax(etas)
}

// Combine merges equal-length coarse deltas weighted by softmax(etas).
// Zero inputs give an empty vector.
func Combine(deltas [][]float64, etas []float64) []float64 {
	if len(deltas) == 0 {
		return []float64{}
	}
	w := Weights(etas)
	out := make([]float64, len(deltas[0]))
	for i, d := range deltas {
		floats.AddScaled(out, w[i], d)
	}
	return out
}

// Apply tilts q in log space by lambda times the expanded broadcast.
func Apply(q, expanded []float64, lambda float64) []float64 {
	return belief.Tilt(q, expanded, lambda)
}

// Magnitude is the L2 norm of a broadcast vector, zero when empty.
func Magnitude(b []float64) float64 {
	if len(b) == 0 {
		return 0
	}
	return floats.Norm(b, 2)
}
