package gate

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/danielpatrickdp/ignition/internal/belief"
	"github.com/danielpatrickdp/ignition/internal/broadcast"
	"github.com/danielpatrickdp/ignition/internal/message"
)

// #region gate
// Gate filters messages and decides whether their broadcast ignites.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Config returns the thresholds the gate was built with.
func (g *Gate) Config() GateConfig {
	return g.config
}

// Threshold is alpha + beta*u for normalized uncertainty u.
func (g *Gate) Threshold(uncertainty float64) float64 {
	return g.config.Alpha + g.config.Beta*uncertainty
}

// Filter runs the efficiency test, then coarse-grains passing messages and
// re-tests them with the rg_cost penalty. Survivors keep their unpenalized
// complexity; the penalty only affects admission.
func (g *Gate) Filter(msgs []message.Message, uncertainty float64) FilterResult {
	theta := g.Threshold(uncertainty)
	res := FilterResult{Theta: theta}

	for _, m := range msgs {
		// --- Stage A: efficiency ---
		eta := m.Efficiency()
		if eta < theta {
			res.Drops = append(res.Drops, Drop{Level: m.Level, Stage: DropEfficiency, Efficiency: eta})
			continue
		}

		// --- Stage B: coarse-grain admission ---
		etaRG := message.Efficiency(m.Energy, m.PrecisionGain, m.Complexity+g.config.RGCost)
		if etaRG < g.config.Gamma*theta {
			res.Drops = append(res.Drops, Drop{Level: m.Level, Stage: DropCoarseGrain, Efficiency: etaRG})
			continue
		}

		s := Survivor{Message: m, Efficiency: eta}
		s.Delta = broadcast.Pool(m.Delta, g.config.RGLevel)
		res.Survivors = append(res.Survivors, s)
	}

	return res
}

// Evaluate applies the ignition checks in order; the first failing check
// decides the outcome.
func (g *Gate) Evaluate(survivors int, coherence, deltaG float64) GateDecision {
	d := GateDecision{Coherence: coherence, DeltaG: deltaG}

	switch {
	// 1. Nothing to broadcast
	case survivors == 0:
		d.Reason = ReasonNoSurvivors
	// 2. Survivors disagree
	case coherence < g.config.CoherenceCrit:
		d.Reason = ReasonCoherenceFail
	// 3. Broadcast does not lower free energy enough
	case deltaG < g.config.DeltaMin:
		d.Reason = ReasonDeltaGFail
	default:
		d.Reason = ReasonIgnite
		d.Ignited = true
	}

	return d
}

// #endregion gate

// #region coherence
// Coherence averages pairwise cosine similarity over all ordered pairs of
// rows, diagonal included. No rows gives 0.
func Coherence(rows [][]float64) float64 {
	m := len(rows)
	if m == 0 {
		return 0
	}
	var sum float64
	for i := range rows {
		for j := range rows {
			sum += cosine(rows[i], rows[j])
		}
	}
	return sum / float64(m*m)
}

// SurvivorCoherence is Coherence over the survivors' precision vectors.
func SurvivorCoherence(survivors []Survivor) float64 {
	rows := make([][]float64, len(survivors))
	for i, s := range survivors {
		rows[i] = s.Precision
	}
	return Coherence(rows)
}

// #endregion coherence

// #region helpers
func cosine(a, b []float64) float64 {
	n := min(len(a), len(b))
	dot := floats.Dot(a[:n], b[:n])
	na := math.Sqrt(floats.Dot(a, a))
	nb := math.Sqrt(floats.Dot(b, b))
	return dot / (na*nb + belief.Eps)
}

// #endregion helpers
