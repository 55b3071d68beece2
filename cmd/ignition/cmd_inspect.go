package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/ignition/internal/state"
)

var (
	inspectDB   string
	inspectRun  string
	inspectLast int
	inspectJSON bool
	inspectVer  string
	inspectProv bool
)

// inspectCmd reads back what run and step logged to SQLite.
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List logged runs, belief versions and provenance",
	Long: `Without --run, lists the most recent runs. With --run, lists the run's last
belief versions with their decisions, newest first; --provenance lists its
provenance log instead. --version shows one belief version in full.`,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectDB, "db", "", "SQLite log path (default from config)")
	inspectCmd.Flags().StringVar(&inspectRun, "run", "", "Run ID to show")
	inspectCmd.Flags().IntVarP(&inspectLast, "last", "n", 20, "Show N most recent rows")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Output as JSON instead of table")
	inspectCmd.Flags().StringVar(&inspectVer, "version", "", "Show a single belief version")
	inspectCmd.Flags().BoolVar(&inspectProv, "provenance", false, "With --run, list the provenance log")
}

func runInspect(cmd *cobra.Command, args []string) error {
	dbPath := orDefault(inspectDB, cfg.Output.Database)
	if dbPath == "" {
		return fmt.Errorf("no database: pass --db or set output.database")
	}
	store, err := state.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	switch {
	case inspectVer != "":
		v, err := store.GetVersion(inspectVer)
		if err != nil {
			return err
		}
		if inspectJSON {
			return writeJSON(out, v)
		}
		fmt.Fprintf(out, "version  %s\nparent   %s\nrun      %s\nt        %d\ncreated  %s\nbelief   %s\n",
			v.VersionID, orDefault(v.ParentID, "-"), v.RunID, v.T, v.CreatedAt.Format("2006-01-02 15:04:05"), formatBelief(v.Belief))
		return nil
	case inspectRun == "":
		runs, err := store.Runs(inspectLast)
		if err != nil {
			return err
		}
		if inspectJSON {
			return writeJSON(out, runs)
		}
		printRuns(out, runs)
		return nil
	case inspectProv:
		entries, err := store.Provenance(inspectRun)
		if err != nil {
			return err
		}
		if inspectJSON {
			return writeJSON(out, entries)
		}
		printProvenance(out, entries)
		return nil
	}

	versions, err := store.ListVersions(inspectRun, inspectLast)
	if err != nil {
		return err
	}
	if inspectJSON {
		return writeJSON(out, versions)
	}
	printVersions(out, versions)
	return nil
}

// #region output

func printRuns(w io.Writer, runs []state.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs found")
		return
	}
	fmt.Fprintf(w, "%-36s  %-20s  %8s  %s\n", "RUN", "CREATED", "VERSIONS", "SOURCE")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-20s  %8d  %s\n", r.RunID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Versions, r.Source)
	}
}

func printVersions(w io.Writer, versions []state.VersionWithProvenance) {
	if len(versions) == 0 {
		fmt.Fprintln(w, "no versions found")
		return
	}
	fmt.Fprintf(w, "%-6s  %-14s  %-7s  %10s  %-36s  %s\n", "T", "REASON", "SOURCE", "DG", "VERSION", "BELIEF")
	for _, v := range versions {
		fmt.Fprintf(w, "%-6d  %-14s  %-7s  %10.6f  %-36s  %s\n",
			v.T, v.Reason, v.ActionSource, v.DeltaG, v.VersionID, formatBelief(v.Belief))
	}
}

func printProvenance(w io.Writer, entries []state.ProvenanceEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no provenance found")
		return
	}
	fmt.Fprintf(w, "%-6s  %-6s  %-14s  %-7s  %-7s  %10s\n", "ID", "T", "REASON", "IGNITED", "SOURCE", "DG")
	for _, e := range entries {
		fmt.Fprintf(w, "%-6d  %-6d  %-14s  %-7t  %-7s  %10.6f\n", e.ID, e.T, e.Reason, e.Ignited, e.ActionSource, e.DeltaG)
	}
}

func formatBelief(q []float64) string {
	s := "["
	for i, x := range q {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%.4f", x)
	}
	return s + "]"
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion output
