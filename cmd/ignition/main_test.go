package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/ignition/internal/ledger"
	"github.com/danielpatrickdp/ignition/internal/replay"
)

const demoFixture = "../../internal/replay/testdata/demo_stream.json"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("IGNITION_ENV", filepath.Join(t.TempDir(), "none.env"))
	for _, k := range []string{"IGNITION_LOG_LEVEL", "IGNITION_OUT_DIR", "IGNITION_DB", "IGNITION_HISTORY_CAPACITY"} {
		t.Setenv(k, "")
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "--verbose=false"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Count(string(data), "\n")
}

func writeStream(t *testing.T) string {
	t.Helper()
	f, err := replay.LoadFixture(demoFixture)
	require.NoError(t, err)
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, ev := range f.Events {
		require.NoError(t, enc.Encode(ev))
	}
	path := filepath.Join(t.TempDir(), "events.ndjson")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestStepDemo(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "step", "--out", dir, "--event", "", "--db", "")
	require.NoError(t, err)
	assert.Contains(t, out, "reason=ignite")
	assert.Equal(t, 1, countLines(t, filepath.Join(dir, ledger.TraceFile)))
	assert.Equal(t, 1, countLines(t, filepath.Join(dir, ledger.ReplayFile)))
}

func TestRunThenInspect(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "ignition.db")

	out, err := execute(t, "run", "--input", writeStream(t), "--out", dir, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "6 events: 5 ignite, 1 no_survivors")
	assert.Equal(t, 6, countLines(t, filepath.Join(dir, ledger.TraceLoopFile)))
	assert.Equal(t, 6, countLines(t, filepath.Join(dir, ledger.ReplayLoopFile)))

	out, err = execute(t, "inspect", "--db", db, "--run", "", "--version", "", "--json=false")
	require.NoError(t, err)
	assert.Contains(t, out, "VERSIONS")
	assert.Contains(t, out, "events.ndjson")
}

func TestReplayFixture(t *testing.T) {
	out, err := execute(t, "replay", "--fixture", demoFixture)
	require.NoError(t, err)
	assert.Contains(t, out, "0 mismatches")
	assert.NotContains(t, out, "DIFF")
}

func TestPrintComparisonMarksDivergence(t *testing.T) {
	f := &replay.Fixture{ExpectedResults: []replay.FixtureExpectedResult{
		{T: 0, Reason: "ignite"},
		{T: 1, Reason: "ignite"},
	}}
	results := []replay.ReplayResult{{T: 0, Reason: "ignite"}}

	var buf bytes.Buffer
	printComparison(&buf, f, results, f.Check(results))
	assert.Contains(t, buf.String(), "DIFF")
	assert.Contains(t, buf.String(), "1 mismatches")
}

func TestFormatBelief(t *testing.T) {
	assert.Equal(t, "[0.2500 0.7500]", formatBelief([]float64{0.25, 0.75}))
	assert.Equal(t, "[]", formatBelief(nil))
}
