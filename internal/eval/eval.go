package eval

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/danielpatrickdp/ignition/internal/belief"
)

// #region eval-harness
// EvalHarness checks that a belief is still a usable simplex after a step.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run validates q. Failures are reported, never enforced; callers log them.
func (h *EvalHarness) Run(q []float64) EvalResult {
	var metrics []EvalMetric
	passed := true
	var failReasons []string

	// 1. Every element finite
	nonFinite := 0
	for _, x := range q {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			nonFinite++
		}
	}
	finitePass := nonFinite == 0
	metrics = append(metrics, EvalMetric{Name: "non_finite", Value: float64(nonFinite), Pass: finitePass})
	if !finitePass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("%d non-finite elements", nonFinite))
	}

	// 2. Non-negative
	minVal := 0.0
	if len(q) > 0 {
		minVal = floats.Min(q)
	}
	nonNegPass := minVal >= 0
	metrics = append(metrics, EvalMetric{Name: "min_element", Value: minVal, Pass: nonNegPass})
	if !nonNegPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("negative element %.6g", minVal))
	}

	// 3. Sums to one
	sum := floats.Sum(q)
	sumPass := math.Abs(sum-1) <= h.config.SumTolerance
	metrics = append(metrics, EvalMetric{Name: "simplex_sum", Value: sum, Pass: sumPass})
	if !sumPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("sum %.9f outside 1±%g", sum, h.config.SumTolerance))
	}

	// 4. Collapse check: informational, does not fail
	u := 0.0
	if finitePass && len(q) > 0 {
		u = belief.Uncertainty(q)
	}
	metrics = append(metrics, EvalMetric{Name: "uncertainty", Value: u, Pass: u >= h.config.CollapseFloor})

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:  passed,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness
