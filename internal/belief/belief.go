// Package belief holds the simplex arithmetic shared by every stage of the
// ignition loop: normalization, Bayes combination, entropy, divergence and
// the variational free energy used to score beliefs.
package belief

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Eps guards every logarithm and division in the loop.
const Eps = 1e-9

// normFloor is the per-element floor applied by Normalize.
const normFloor = 1e-12

// Normalize floors each element at 1e-12 and divides by the floored sum of
// the input vector. The sum is taken before flooring, so inputs with zero
// or negative entries produce a vector that can sum slightly above 1.
func Normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	if len(v) == 0 {
		return out
	}
	s := math.Max(floats.Sum(v), normFloor)
	for i, x := range v {
		out[i] = math.Max(x, normFloor) / s
	}
	return out
}

// BayesUpdate multiplies prior and likelihood elementwise and normalizes the
// product. Only the overlapping prefix is combined.
func BayesUpdate(prior, likelihood []float64) []float64 {
	n := min(len(prior), len(likelihood))
	post := make([]float64, n)
	floats.MulTo(post, prior[:n], likelihood[:n])
	return Normalize(post)
}

// project floors at Eps and rescales to unit sum. Entropy and KL run on this
// projection so callers may pass unnormalized vectors.
func project(q []float64) []float64 {
	out := make([]float64, len(q))
	for i, x := range q {
		out[i] = math.Max(x, Eps)
	}
	if len(out) > 0 {
		floats.Scale(1/math.Max(floats.Sum(out), Eps), out)
	}
	return out
}

// Entropy is the Shannon entropy of q in nats.
func Entropy(q []float64) float64 {
	var h float64
	for _, x := range project(q) {
		h -= x * math.Log(x)
	}
	return h
}

// KL is the divergence KL(q || p) over the overlapping prefix.
func KL(q, p []float64) float64 {
	n := min(len(q), len(p))
	qn, pn := project(q[:n]), project(p[:n])
	var d float64
	for i := range qn {
		d += qn[i] * (math.Log(qn[i]) - math.Log(pn[i]))
	}
	return d
}

// SafeLogN returns ln(n) floored at Eps.
func SafeLogN(n int) float64 {
	if n <= 0 {
		return Eps
	}
	return math.Max(math.Log(float64(n)), Eps)
}

// Uncertainty is the entropy of the normalized belief divided by ln(n), in [0, 1].
func Uncertainty(q []float64) float64 {
	return Entropy(Normalize(q)) / SafeLogN(len(q))
}

// FreeEnergy is G(q) = KL(q || prior) - E_q[log likelihood].
func FreeEnergy(q, prior, likelihood []float64) float64 {
	qn := Normalize(q)
	pn := Normalize(prior)
	var eloglik float64
	for i := 0; i < min(len(qn), len(likelihood)); i++ {
		eloglik += qn[i] * math.Log(math.Max(likelihood[i], Eps))
	}
	return KL(qn, pn) - eloglik
}

// Tilt returns softmax(log q + gain*shift). The shift is applied over the
// overlapping prefix of q and shift; remaining logits are left untouched.
func Tilt(q, shift []float64, gain float64) []float64 {
	logits := make([]float64, len(q))
	for i, x := range q {
		logits[i] = math.Log(math.Max(x, Eps))
	}
	for i := 0; i < min(len(q), len(shift)); i++ {
		logits[i] += gain * shift[i]
	}
	return Softmax(logits)
}

// Softmax exponentiates logits after subtracting their maximum and
// normalizes by the Eps-floored sum.
func Softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}
	m := floats.Max(logits)
	for i, x := range logits {
		out[i] = math.Exp(x - m)
	}
	floats.Scale(1/math.Max(floats.Sum(out), Eps), out)
	return out
}
