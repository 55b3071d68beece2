// Package session owns the running belief and its history window and steps
// events through the update pipeline one at a time.
package session

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/ignition/internal/broadcast"
	"github.com/danielpatrickdp/ignition/internal/event"
	"github.com/danielpatrickdp/ignition/internal/history"
	"github.com/danielpatrickdp/ignition/internal/policy"
	"github.com/danielpatrickdp/ignition/internal/sensory"
	"github.com/danielpatrickdp/ignition/internal/update"
)

// ErrDimension means the running belief and the event prior have different lengths.
var ErrDimension = errors.New("belief dimension mismatch")

// ActionSource records where an event's exploration inputs came from.
type ActionSource string

const (
	SourceEvent  ActionSource = "event"
	SourcePolicy ActionSource = "policy"
)

// Config holds pipeline, history and policy parameters.
type Config struct {
	Pipeline        update.Config
	Policy          policy.Config
	HistoryCapacity int
}

// DefaultConfig returns defaults for every stage and a 64-row history.
func DefaultConfig() Config {
	return Config{
		Pipeline:        update.DefaultConfig(),
		Policy:          policy.DefaultConfig(),
		HistoryCapacity: history.DefaultCapacity,
	}
}

// Outcome is everything known about one processed event.
type Outcome struct {
	Event            event.Event
	ObservationIndex int
	Action           sensory.Action
	ActionSource     ActionSource
	Result           update.Result
	Pre              history.Features // before this event's row was pushed
	Post             history.Features // after
}

// Session carries the belief across events. Not safe for concurrent use:
// event t+1 depends on the outcome of event t.
type Session struct {
	config  Config
	belief  []float64
	history *history.History
	logger  *zap.Logger
}

// New creates an unseeded session. A nil logger disables logging.
func New(config Config, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		config:  config,
		history: history.New(config.HistoryCapacity),
		logger:  logger,
	}
}

// Step validates ev, runs it through the pipeline and advances the belief.
// The first event seeds the belief from its initial belief, or its prior.
func (s *Session) Step(ev event.Event) (Outcome, error) {
	if err := ev.Validate(); err != nil {
		return Outcome{}, err
	}

	if s.belief == nil {
		seed := ev.InitialBelief
		if len(seed) == 0 {
			seed = ev.Prior
		}
		s.belief = append([]float64(nil), seed...)
	}
	if len(s.belief) != len(ev.Prior) {
		return Outcome{}, fmt.Errorf("event t=%d: %w: belief %d, prior %d", ev.T, ErrDimension, len(s.belief), len(ev.Prior))
	}

	pre := s.history.Features(ev.T)

	action, ok := ev.Action()
	source := SourceEvent
	if !ok {
		action = policy.Choose(s.belief, s.history, ev.Task, s.config.Policy)
		source = SourcePolicy
	}

	res := update.Update(update.Input{
		Belief:     s.belief,
		Prior:      ev.Prior,
		Likelihood: ev.Likelihood,
		Task:       ev.Task,
		Action:     action,
	}, s.config.Pipeline)

	s.belief = append([]float64(nil), res.Next...)
	s.history.Push(history.Row{
		T:           ev.T,
		Ignited:     res.Decision.Ignited,
		DeltaG:      res.G.DeltaBroadcast,
		Temperature: res.Sensory.Temperature,
		Strength:    action.Strength,
		Pressure:    action.Pressure,
	})
	post := s.history.Features(ev.T)

	for _, d := range res.Filter.Drops {
		s.logger.Debug("message dropped",
			zap.Int64("t", ev.T),
			zap.Int("level", int(d.Level)),
			zap.String("stage", string(d.Stage)),
			zap.Float64("eta", d.Efficiency))
	}
	s.logger.Debug("event processed",
		zap.Int64("t", ev.T),
		zap.String("reason", string(res.Decision.Reason)),
		zap.Int("survivors", len(res.Filter.Survivors)),
		zap.Float64("coherence", res.Coherence),
		zap.Float64("d_g_broadcast", res.G.DeltaBroadcast),
		zap.Float64("broadcast_norm", broadcast.Magnitude(res.Coarse)),
		zap.String("action_source", string(source)))

	return Outcome{
		Event:            ev,
		ObservationIndex: ev.ObservationIndex(),
		Action:           action,
		ActionSource:     source,
		Result:           res,
		Pre:              pre,
		Post:             post,
	}, nil
}

// Belief returns a copy of the running belief, nil before the first event.
func (s *Session) Belief() []float64 {
	if s.belief == nil {
		return nil
	}
	return append([]float64(nil), s.belief...)
}

// History exposes the session's window for inspection.
func (s *Session) History() *history.History {
	return s.history
}
