package gate

import (
	"testing"

	"github.com/danielpatrickdp/ignition/internal/message"
)

func makeMessage(level message.Level, e, p, k float64) message.Message {
	return message.Message{
		Level:         level,
		Delta:         []float64{0.1, 0.3, -0.2, -0.2},
		Precision:     []float64{0.5, 0.5, 0.5, 0.5},
		Energy:        e,
		PrecisionGain: p,
		Complexity:    k,
	}
}

func TestThreshold(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	if got := g.Threshold(0); got != 0.10 {
		t.Fatalf("expected 0.10 at zero uncertainty, got %.4f", got)
	}
	if got := g.Threshold(1); got < 0.3499 || got > 0.3501 {
		t.Fatalf("expected 0.35 at full uncertainty, got %.4f", got)
	}
}

func TestFilterAdmitsEfficientMessage(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	res := g.Filter([]message.Message{makeMessage(message.LevelLocal, 0.34, 0.31, 0.91)}, 0.98)

	if len(res.Survivors) != 1 {
		t.Fatalf("expected 1 survivor, got %d (drops=%v)", len(res.Survivors), res.Drops)
	}
	s := res.Survivors[0]
	if len(s.Delta) != 2 {
		t.Fatalf("expected coarse-grained delta of length 2, got %d", len(s.Delta))
	}
	if s.Delta[0] < 0.1999 || s.Delta[0] > 0.2001 {
		t.Fatalf("expected pooled value 0.2, got %.4f", s.Delta[0])
	}
	if s.Complexity != 0.91 {
		t.Fatalf("survivor must keep pre-penalty complexity, got %.4f", s.Complexity)
	}
	if s.Efficiency != s.Message.Efficiency() {
		t.Fatalf("survivor efficiency %.4f should use unpenalized complexity", s.Efficiency)
	}
}

func TestFilterDoesNotMutateInputDelta(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	m := makeMessage(message.LevelLocal, 0.34, 0.31, 0.91)
	g.Filter([]message.Message{m}, 0.5)
	if len(m.Delta) != 4 {
		t.Fatalf("input delta was replaced: %v", m.Delta)
	}
}

func TestFilterDropsInefficientMessage(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	res := g.Filter([]message.Message{makeMessage(message.LevelTask, 0.0003, 0.006, 0.51)}, 0.98)

	if len(res.Survivors) != 0 {
		t.Fatalf("expected no survivors, got %d", len(res.Survivors))
	}
	if len(res.Drops) != 1 || res.Drops[0].Stage != DropEfficiency {
		t.Fatalf("expected one efficiency drop, got %+v", res.Drops)
	}
	if res.Drops[0].Level != message.LevelTask {
		t.Fatalf("expected drop of level 1, got %d", res.Drops[0].Level)
	}
}

func TestFilterCoarseGrainPenaltyRejects(t *testing.T) {
	config := DefaultGateConfig()
	config.Alpha = 0.5
	config.Beta = 0
	config.Gamma = 1.0
	config.RGCost = 1.0
	g := NewGate(config)

	// eta = 0.6 passes theta=0.5; eta_rg = 0.6/2 = 0.3 fails gamma*theta=0.5
	res := g.Filter([]message.Message{makeMessage(message.LevelLocal, 0.3, 0.3, 1.0)}, 0)

	if len(res.Survivors) != 0 {
		t.Fatalf("expected coarse-grain rejection, got %d survivors", len(res.Survivors))
	}
	if res.Drops[0].Stage != DropCoarseGrain {
		t.Fatalf("expected coarse_grain stage, got %s", res.Drops[0].Stage)
	}
}

func TestFilterThetaOneForcesNoSurvivors(t *testing.T) {
	config := DefaultGateConfig()
	config.Alpha = 1
	config.Beta = 0
	g := NewGate(config)

	res := g.Filter([]message.Message{
		makeMessage(message.LevelLocal, 0.34, 0.31, 0.91),
		makeMessage(message.LevelTask, 0.0003, 0.006, 0.51),
	}, 0.98)

	if res.Theta != 1 {
		t.Fatalf("expected theta=1, got %.4f", res.Theta)
	}
	if len(res.Survivors) != 0 {
		t.Fatalf("expected no survivors, got %d", len(res.Survivors))
	}
}

func TestFilterLevels(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	res := g.Filter([]message.Message{
		makeMessage(message.LevelLocal, 0.34, 0.31, 0.91),
		makeMessage(message.LevelTask, 0.34, 0.31, 0.91),
	}, 0.5)
	levels := res.Levels()
	if len(levels) != 2 || levels[0] != 0 || levels[1] != 1 {
		t.Fatalf("expected levels [0 1], got %v", levels)
	}
}

func TestCoherenceIdenticalRows(t *testing.T) {
	row := []float64{0.5, 0.5, 0.5, 0.5}
	got := Coherence([][]float64{row, row, row})
	if got < 0.999999 || got > 1.0 {
		t.Fatalf("expected coherence ~1, got %.8f", got)
	}
}

func TestCoherenceOrthogonalRows(t *testing.T) {
	got := Coherence([][]float64{{1, 0}, {0, 1}})
	if got < 0.4999 || got > 0.5001 {
		t.Fatalf("expected 0.5 (diagonal only), got %.4f", got)
	}
}

func TestCoherenceEmpty(t *testing.T) {
	if got := Coherence(nil); got != 0 {
		t.Fatalf("expected 0 with no rows, got %.4f", got)
	}
	if got := SurvivorCoherence(nil); got != 0 {
		t.Fatalf("expected 0 with no survivors, got %.4f", got)
	}
}

func TestEvaluateNoSurvivors(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	d := g.Evaluate(0, 1.0, 1.0)
	if d.Reason != ReasonNoSurvivors || d.Ignited {
		t.Fatalf("expected no_survivors, got %s ignited=%v", d.Reason, d.Ignited)
	}
}

func TestEvaluateCoherenceFailTakesPriority(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	// deltaG alone would also fail; coherence is checked first
	d := g.Evaluate(2, 0.5, 0.0)
	if d.Reason != ReasonCoherenceFail {
		t.Fatalf("expected coherence_fail, got %s", d.Reason)
	}
	d = g.Evaluate(2, 0.5, 1.0)
	if d.Reason != ReasonCoherenceFail || d.Ignited {
		t.Fatalf("expected coherence_fail with passing deltaG, got %s", d.Reason)
	}
}

func TestEvaluateDeltaGFail(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	d := g.Evaluate(1, 0.99, 0.01)
	if d.Reason != ReasonDeltaGFail || d.Ignited {
		t.Fatalf("expected deltaG_fail, got %s", d.Reason)
	}
}

func TestEvaluateIgnite(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	d := g.Evaluate(1, 0.99, 0.35)
	if d.Reason != ReasonIgnite || !d.Ignited {
		t.Fatalf("expected ignite, got %s", d.Reason)
	}
	if d.Coherence != 0.99 || d.DeltaG != 0.35 {
		t.Fatalf("decision should carry its inputs, got %+v", d)
	}
}
