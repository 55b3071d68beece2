package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/ignition/internal/event"
	"github.com/danielpatrickdp/ignition/internal/ledger"
	"github.com/danielpatrickdp/ignition/internal/runner"
)

var (
	stepEvent string
	stepOut   string
	stepDB    string
)

// stepCmd processes a single event from a fresh session.
var stepCmd = &cobra.Command{
	Use:   "step",
	Short: "Process one event from a fresh belief",
	Long: `Processes a single JSON event (or the built-in demonstration event when --event
is omitted) and writes trace.ndjson and replay.ndjson to the output directory.`,
	RunE: runStep,
}

func init() {
	stepCmd.Flags().StringVarP(&stepEvent, "event", "e", "", "Event JSON file (default: demonstration event)")
	stepCmd.Flags().StringVarP(&stepOut, "out", "o", "", "Output directory (default from config)")
	stepCmd.Flags().StringVar(&stepDB, "db", "", "SQLite log path (default from config, empty disables)")
}

func runStep(cmd *cobra.Command, args []string) error {
	ev := event.Demo()
	source := "demo"
	if stepEvent != "" {
		var err error
		if ev, err = event.LoadFile(stepEvent); err != nil {
			return err
		}
		source = stepEvent
	}

	sink, closeSinks, err := openSinks(orDefault(stepOut, cfg.Output.Dir), ledger.TraceFile, ledger.ReplayFile,
		orDefault(stepDB, cfg.Output.Database), source)
	if err != nil {
		return err
	}

	r := runner.New(cfg.ToReplayConfig(), sink, logger)
	res, stepErr := r.Step(cmd.Context(), ev)
	if err := closeSinks(); err != nil {
		logger.Warn("close sinks", zap.Error(err))
	}
	if stepErr != nil {
		return stepErr
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "t=%d reason=%s survivors=%d dG=%.6f source=%s\n",
		res.T, res.Reason, res.Survivors, res.DeltaG, res.ActionSource)
	fmt.Fprintf(out, "q_next=%v\n", res.Outcome.Result.Next)
	return nil
}
