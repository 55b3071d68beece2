package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/ignition/internal/ledger"
	"github.com/danielpatrickdp/ignition/internal/runner"
)

var (
	runInput string
	runOut   string
	runDB    string
)

// runCmd streams line-delimited events through one session.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process a stream of line-delimited JSON events",
	Long: `Reads one JSON event per line from --input (or stdin) and steps them in order
through a single session. Writes trace_loop.ndjson and replay_loop.ndjson to the
output directory, truncating them first. The first invalid event aborts the run.`,
	RunE: runStream,
}

func init() {
	runCmd.Flags().StringVarP(&runInput, "input", "i", "-", "Event stream file, - for stdin")
	runCmd.Flags().StringVarP(&runOut, "out", "o", "", "Output directory (default from config)")
	runCmd.Flags().StringVar(&runDB, "db", "", "SQLite log path (default from config, empty disables)")
}

func runStream(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var in io.Reader = os.Stdin
	source := "stdin"
	if runInput != "-" {
		f, err := os.Open(runInput)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
		source = runInput
	}

	sink, closeSinks, err := openSinks(orDefault(runOut, cfg.Output.Dir), ledger.TraceLoopFile, ledger.ReplayLoopFile,
		orDefault(runDB, cfg.Output.Database), source)
	if err != nil {
		return err
	}

	r := runner.New(cfg.ToReplayConfig(), sink, logger)
	summary, runErr := r.Run(ctx, in)
	if err := closeSinks(); err != nil {
		logger.Warn("close sinks", zap.Error(err))
	}
	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d events: %d ignite, %d no_survivors, %d coherence_fail, %d deltaG_fail (%d policy actions)\n",
		summary.TotalEvents, summary.Ignitions, summary.NoSurvivors, summary.CoherenceFails, summary.DeltaGFails, summary.PolicyActions)
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
