package replay

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/ignition/internal/eval"
	"github.com/danielpatrickdp/ignition/internal/event"
	"github.com/danielpatrickdp/ignition/internal/gate"
	"github.com/danielpatrickdp/ignition/internal/session"
)

// #region types
// ReplayConfig bundles session and eval configs for a replay run.
type ReplayConfig struct {
	Session session.Config
	Eval    eval.EvalConfig
}

// DefaultReplayConfig returns defaults for every stage.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		Session: session.DefaultConfig(),
		Eval:    eval.DefaultEvalConfig(),
	}
}

// ReplayResult captures the outcome of replaying one event.
type ReplayResult struct {
	T            int64
	Reason       gate.Reason
	Ignited      bool
	ActionSource session.ActionSource
	Survivors    int
	DeltaG       float64
	EvalResult   eval.EvalResult
	Outcome      session.Outcome
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalEvents    int
	Ignitions      int
	NoSurvivors    int
	CoherenceFails int
	DeltaGFails    int
	PolicyActions  int
	EvalFailures   int
	FinalBelief    []float64
}

// #endregion types

// #region replay
// Replay runs events in order through a fresh session, validating the next
// belief after each step. It stops at the first invalid event.
func Replay(events []event.Event, config ReplayConfig, logger *zap.Logger) ([]ReplayResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sess := session.New(config.Session, logger)
	evalInst := eval.NewEvalHarness(config.Eval)
	results := make([]ReplayResult, 0, len(events))

	for i, ev := range events {
		out, err := sess.Step(ev)
		if err != nil {
			return results, fmt.Errorf("replay event %d: %w", i, err)
		}

		evalResult := evalInst.Run(out.Result.Next)
		if !evalResult.Passed {
			logger.Warn("belief validation failed", zap.Int64("t", ev.T), zap.String("reason", evalResult.Reason))
		}

		results = append(results, NewResult(out, evalResult))
	}

	return results, nil
}

// NewResult flattens a processed outcome and its validation into a ReplayResult.
func NewResult(out session.Outcome, evalResult eval.EvalResult) ReplayResult {
	return ReplayResult{
		T:            out.Event.T,
		Reason:       out.Result.Decision.Reason,
		Ignited:      out.Result.Decision.Ignited,
		ActionSource: out.ActionSource,
		Survivors:    len(out.Result.Filter.Survivors),
		DeltaG:       out.Result.G.DeltaBroadcast,
		EvalResult:   evalResult,
		Outcome:      out,
	}
}

// #endregion replay

// #region summarize
// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{}
	for _, r := range results {
		s.Add(r)
	}
	return s
}

// Add folds one result into the summary. The final belief tracks the last
// result added.
func (s *ReplaySummary) Add(r ReplayResult) {
	s.TotalEvents++
	switch r.Reason {
	case gate.ReasonIgnite:
		s.Ignitions++
	case gate.ReasonNoSurvivors:
		s.NoSurvivors++
	case gate.ReasonCoherenceFail:
		s.CoherenceFails++
	case gate.ReasonDeltaGFail:
		s.DeltaGFails++
	}
	if r.ActionSource == session.SourcePolicy {
		s.PolicyActions++
	}
	if !r.EvalResult.Passed {
		s.EvalFailures++
	}
	s.FinalBelief = append(s.FinalBelief[:0], r.Outcome.Result.Next...)
}

// #endregion summarize
