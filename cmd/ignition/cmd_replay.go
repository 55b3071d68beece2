package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/ignition/internal/replay"
)

var errDiverged = errors.New("replay diverged from fixture")

var replayFixture string

// replayCmd checks a fixture's expected decisions against a fresh replay.
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a fixture and compare decisions",
	Long: `Replays the events of a JSON fixture from a fresh session using the fixture's
gate overrides on top of the defaults, then prints an expected-vs-replayed
table. Exits non-zero when any decision diverges.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayFixture, "fixture", "f", "", "Fixture JSON file")
	_ = replayCmd.MarkFlagRequired("fixture")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := replay.LoadFixture(replayFixture)
	if err != nil {
		return err
	}

	results, err := replay.Replay(f.Events, f.Config.ToReplayConfig(), logger)
	if err != nil {
		return err
	}

	mismatches := f.Check(results)
	printComparison(cmd.OutOrStdout(), f, results, mismatches)
	if len(mismatches) > 0 {
		return errDiverged
	}
	return nil
}

// #region output

// printComparison writes one row per expected result.
func printComparison(w io.Writer, f *replay.Fixture, results []replay.ReplayResult, mismatches []replay.Mismatch) {
	diff := make(map[int]bool, len(mismatches))
	for _, m := range mismatches {
		diff[m.Index] = true
	}

	fmt.Fprintf(w, "%-6s| %-15s| %-15s| %-8s| %s\n", "T", "Expected", "Replayed", "Source", "Match")
	fmt.Fprintf(w, "%-6s+%-16s+%-16s+%-9s+%s\n", "------", "----------------", "----------------", "---------", "------")

	for i, exp := range f.ExpectedResults {
		got, source := "-", "-"
		if i < len(results) {
			got, source = string(results[i].Reason), string(results[i].ActionSource)
		}
		match := "OK"
		if diff[i] || i >= len(results) {
			match = "DIFF"
		}
		fmt.Fprintf(w, "%-6d| %-15s| %-15s| %-8s| %s\n", exp.T, exp.Reason, got, source, match)
	}

	fmt.Fprintf(w, "\nSummary: %d expected, %d replayed, %d mismatches\n", len(f.ExpectedResults), len(results), len(mismatches))
}

// #endregion output
