// Package runner drives a session over a stream of events, validating each
// next belief and handing every outcome to a sink.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/ignition/internal/eval"
	"github.com/danielpatrickdp/ignition/internal/event"
	"github.com/danielpatrickdp/ignition/internal/ledger"
	"github.com/danielpatrickdp/ignition/internal/replay"
	"github.com/danielpatrickdp/ignition/internal/session"
)

const tracerName = "ignition/runner"

// Runner owns one session. Events are stepped strictly in order.
type Runner struct {
	session *session.Session
	eval    *eval.EvalHarness
	sink    ledger.Sink
	logger  *zap.Logger
}

// New creates a runner with a fresh session. sink may be nil; a nil logger
// disables logging.
func New(config replay.ReplayConfig, sink ledger.Sink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		session: session.New(config.Session, logger),
		eval:    eval.NewEvalHarness(config.Eval),
		sink:    sink,
		logger:  logger,
	}
}

// Session exposes the underlying session.
func (r *Runner) Session() *session.Session { return r.session }

// Step processes one event and writes its outcome to the sink.
func (r *Runner) Step(ctx context.Context, ev event.Event) (replay.ReplayResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "runner.Step",
		trace.WithAttributes(attribute.Int64("t", ev.T)),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled")
		return replay.ReplayResult{}, err
	}

	out, err := r.session.Step(ev)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "step failed")
		return replay.ReplayResult{}, fmt.Errorf("step t=%d: %w", ev.T, err)
	}

	evalResult := r.eval.Run(out.Result.Next)
	if !evalResult.Passed {
		r.logger.Warn("belief validation failed", zap.Int64("t", ev.T), zap.String("reason", evalResult.Reason))
	}

	span.SetAttributes(
		attribute.String("reason", string(out.Result.Decision.Reason)),
		attribute.Int("survivors", len(out.Result.Filter.Survivors)),
		attribute.Float64("d_g_broadcast", out.Result.G.DeltaBroadcast),
		attribute.String("action_source", string(out.ActionSource)),
	)

	if r.sink != nil {
		if err := r.sink.Write(ctx, out); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "sink write failed")
			return replay.ReplayResult{}, fmt.Errorf("sink: %w", err)
		}
	}
	return replay.NewResult(out, evalResult), nil
}

// Run decodes line-delimited events from in and steps each one. Decoding runs
// on its own goroutine; stepping stays sequential. The first decode, step or
// sink error stops the run and is returned with the summary of the events
// processed before it.
func (r *Runner) Run(ctx context.Context, in io.Reader) (replay.ReplaySummary, error) {
	var summary replay.ReplaySummary
	events := make(chan event.Event)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(events)
		rd := event.NewReader(in)
		for {
			ev, err := rd.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case events <- ev:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})
	// Events already decoded are stepped even if decoding fails later.
	g.Go(func() error {
		for ev := range events {
			res, err := r.Step(ctx, ev)
			if err != nil {
				return err
			}
			summary.Add(res)
		}
		return nil
	})

	err := g.Wait()
	r.logger.Info("run finished",
		zap.Int("events", summary.TotalEvents),
		zap.Int("ignitions", summary.Ignitions),
		zap.Int("no_survivors", summary.NoSurvivors),
		zap.Int("coherence_fails", summary.CoherenceFails),
		zap.Int("delta_g_fails", summary.DeltaGFails),
		zap.Int("policy_actions", summary.PolicyActions),
		zap.Int("eval_failures", summary.EvalFailures),
		zap.Error(err))
	return summary, err
}
