package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/danielpatrickdp/ignition/internal/event"
	"github.com/danielpatrickdp/ignition/internal/gate"
	"github.com/danielpatrickdp/ignition/internal/ledger"
	"github.com/danielpatrickdp/ignition/internal/replay"
	"github.com/danielpatrickdp/ignition/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func loadDemoStream(t *testing.T) *replay.Fixture {
	t.Helper()
	f, err := replay.LoadFixture("../replay/testdata/demo_stream.json")
	require.NoError(t, err)
	return f
}

func encodeStream(t *testing.T, events []event.Event) string {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, ev := range events {
		require.NoError(t, enc.Encode(ev))
	}
	return buf.String()
}

func runStream(t *testing.T, input string) (replay.ReplaySummary, string, string, error) {
	t.Helper()
	var trace, rep bytes.Buffer
	r := New(replay.DefaultReplayConfig(), ledger.NewNDJSONSink(&trace, &rep), nil)
	summary, err := r.Run(context.Background(), strings.NewReader(input))
	return summary, trace.String(), rep.String(), err
}

type failingSink struct{ err error }

func (f failingSink) Write(context.Context, session.Outcome) error { return f.err }
func (f failingSink) Close() error                                 { return nil }

func TestRunDemoStream(t *testing.T) {
	f := loadDemoStream(t)
	summary, trace, rep, err := runStream(t, encodeStream(t, f.Events))
	require.NoError(t, err)

	assert.Equal(t, 6, summary.TotalEvents)
	assert.Equal(t, 5, summary.Ignitions)
	assert.Equal(t, 1, summary.NoSurvivors)
	assert.Equal(t, 2, summary.PolicyActions)
	assert.Zero(t, summary.EvalFailures)
	assert.Equal(t, 6, strings.Count(trace, "\n"))
	assert.Equal(t, 6, strings.Count(rep, "\n"))

	// The streamed run and an in-memory replay of the same events agree.
	results, err := replay.Replay(f.Events, replay.DefaultReplayConfig(), nil)
	require.NoError(t, err)
	if diff := cmp.Diff(replay.Summarize(results), summary); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestRunIsReproducible(t *testing.T) {
	input := encodeStream(t, loadDemoStream(t).Events)

	_, traceA, replayA, err := runStream(t, input)
	require.NoError(t, err)
	_, traceB, replayB, err := runStream(t, input)
	require.NoError(t, err)

	assert.Equal(t, traceA, traceB)
	assert.Equal(t, replayA, replayB)
}

func TestRunStopsAtInvalidLine(t *testing.T) {
	f := loadDemoStream(t)
	input := encodeStream(t, f.Events[:1]) + "{\"t\": 1, \"o\": [9]\n" + encodeStream(t, f.Events[1:])

	summary, trace, _, err := runStream(t, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, 1, summary.TotalEvents)
	assert.Equal(t, 1, strings.Count(trace, "\n"))
}

func TestRunStopsAtShapeMismatch(t *testing.T) {
	events := loadDemoStream(t).Events
	events[1].Shape = []int{3, 3, 5}

	summary, _, _, err := runStream(t, encodeStream(t, events))
	assert.ErrorIs(t, err, event.ErrShapeMismatch)
	assert.Equal(t, 1, summary.TotalEvents)
}

func TestRunSinkFailure(t *testing.T) {
	boom := errors.New("disk full")
	r := New(replay.DefaultReplayConfig(), failingSink{err: boom}, nil)

	summary, err := r.Run(context.Background(), strings.NewReader(encodeStream(t, loadDemoStream(t).Events)))
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, summary.TotalEvents)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(replay.DefaultReplayConfig(), nil, nil)
	summary, err := r.Run(ctx, strings.NewReader(encodeStream(t, loadDemoStream(t).Events)))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.TotalEvents)
}

func TestRunEmptyInput(t *testing.T) {
	summary, trace, _, err := runStream(t, "\n\n")
	require.NoError(t, err)
	assert.Zero(t, summary.TotalEvents)
	assert.Nil(t, summary.FinalBelief)
	assert.Empty(t, trace)
}

func TestStepDemoEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := New(replay.DefaultReplayConfig(), nil, zap.New(core))

	res, err := r.Step(context.Background(), event.Demo())
	require.NoError(t, err)
	assert.Equal(t, gate.ReasonIgnite, res.Reason)
	assert.Equal(t, session.SourceEvent, res.ActionSource)
	assert.True(t, res.EvalResult.Passed)
	assert.Equal(t, res.Outcome.Result.Next, r.Session().Belief())
	assert.Zero(t, logs.FilterMessage("belief validation failed").Len())
}
