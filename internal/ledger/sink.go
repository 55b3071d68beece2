package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/danielpatrickdp/ignition/internal/session"
	"github.com/danielpatrickdp/ignition/internal/state"
)

// Output file names for the two drivers.
const (
	TraceFile      = "trace.ndjson"
	ReplayFile     = "replay.ndjson"
	TraceLoopFile  = "trace_loop.ndjson"
	ReplayLoopFile = "replay_loop.ndjson"
)

// Sink receives one outcome per processed event, in event order.
type Sink interface {
	Write(ctx context.Context, out session.Outcome) error
	Close() error
}

// #region ndjson
// NDJSONSink writes one Trace and one Replay JSON line per event.
type NDJSONSink struct {
	trace   *json.Encoder
	replay  *json.Encoder
	closers []io.Closer
}

// NewNDJSONSink writes to the given streams. Close does not close them.
func NewNDJSONSink(trace, replay io.Writer) *NDJSONSink {
	return &NDJSONSink{trace: json.NewEncoder(trace), replay: json.NewEncoder(replay)}
}

// CreateFiles creates dir if needed and truncates the two output files in it.
func CreateFiles(dir, traceName, replayName string) (*NDJSONSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	tf, err := os.Create(filepath.Join(dir, traceName))
	if err != nil {
		return nil, fmt.Errorf("create trace file: %w", err)
	}
	rf, err := os.Create(filepath.Join(dir, replayName))
	if err != nil {
		tf.Close()
		return nil, fmt.Errorf("create replay file: %w", err)
	}
	s := NewNDJSONSink(tf, rf)
	s.closers = []io.Closer{tf, rf}
	return s, nil
}

func (s *NDJSONSink) Write(_ context.Context, out session.Outcome) error {
	if err := s.trace.Encode(NewTraceRow(out)); err != nil {
		return fmt.Errorf("write trace row t=%d: %w", out.Event.T, err)
	}
	if err := s.replay.Encode(NewReplayRow(out)); err != nil {
		return fmt.Errorf("write replay row t=%d: %w", out.Event.T, err)
	}
	return nil
}

func (s *NDJSONSink) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// #endregion ndjson

// #region store
// StoreSink appends each next belief and its provenance to a SQLite log.
type StoreSink struct {
	store  *state.Store
	run    state.Run
	parent string
}

// NewStoreSink registers a run for source. The store stays owned by the caller.
func NewStoreSink(store *state.Store, source string) (*StoreSink, error) {
	run, err := store.BeginRun(source)
	if err != nil {
		return nil, err
	}
	return &StoreSink{store: store, run: run}, nil
}

// RunID identifies the rows written by this sink.
func (s *StoreSink) RunID() string { return s.run.RunID }

func (s *StoreSink) Write(_ context.Context, out session.Outcome) error {
	signals, err := json.Marshal(NewReplayRow(out))
	if err != nil {
		return fmt.Errorf("marshal replay row: %w", err)
	}
	v, err := s.store.Append(
		state.BeliefVersion{
			ParentID: s.parent,
			RunID:    s.run.RunID,
			T:        out.Event.T,
			Belief:   out.Result.Next,
		},
		state.ProvenanceEntry{
			ActionSource: string(out.ActionSource),
			Reason:       string(out.Result.Decision.Reason),
			Ignited:      out.Result.Decision.Ignited,
			DeltaG:       out.Result.G.DeltaBroadcast,
			SignalsJSON:  string(signals),
		},
	)
	if err != nil {
		return fmt.Errorf("append t=%d: %w", out.Event.T, err)
	}
	s.parent = v.VersionID
	return nil
}

func (s *StoreSink) Close() error { return nil }

// #endregion store

// #region multi
// MultiSink fans each outcome out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, out session.Outcome) error {
	for _, s := range m {
		if err := s.Write(ctx, out); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// #endregion multi
