package eval

// #region eval-config
// EvalConfig holds thresholds for post-step belief validation.
type EvalConfig struct {
	SumTolerance  float64 `yaml:"sum_tolerance"`  // fail if |sum - 1| exceeds this
	CollapseFloor float64 `yaml:"collapse_floor"` // warn if normalized uncertainty drops below this
}

// DefaultEvalConfig returns the standard validation thresholds.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		SumTolerance:  1e-6,
		CollapseFloor: 0.01,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of post-step validation.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Reason  string
}

// Metric looks up a check by name.
func (r EvalResult) Metric(name string) (EvalMetric, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return EvalMetric{}, false
}

// #endregion eval-result
