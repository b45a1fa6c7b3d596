package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/heatsafenet/hubsite/internal/model"
	"github.com/heatsafenet/hubsite/internal/monitoring"
	"github.com/heatsafenet/hubsite/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect solve run history",
	Long:  "Commands for listing, viewing, summarizing, and pruning recorded solve runs.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return validateFor("runs")
	},
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List solve runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		geography, _ := cmd.Flags().GetString("geography")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.RunFilter{
			Status:    model.RunStatus(status),
			Geography: geography,
			Limit:     limit,
		}

		runs, err := st.ListRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		return writeJSON(os.Stdout, run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		snap, err := monitoring.NewCollector(st).Collect(ctx, int(since.Hours()))
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, *snap)
		return nil
	},
}

// -- runs check --

var runsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate run health against alert thresholds",
	Long:  "Collects run statistics over monitoring.lookback_window_hours, prints any alerts that breach the configured thresholds, and posts them to monitoring.webhook_url when set.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		mc := cfg.Monitoring
		checker := monitoring.NewChecker(monitoring.NewCollector(st), monitoring.NewAlerter(mc), mc)
		alerts := checker.Check(ctx)
		if len(alerts) == 0 {
			fmt.Println("No alerts.")
			return nil
		}
		formatAlerts(os.Stdout, alerts)
		return nil
	},
}

// -- runs prune --

var runsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete runs older than a cutoff",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		olderThan, _ := cmd.Flags().GetDuration("older-than")
		if olderThan <= 0 {
			return eris.New("runs prune: --older-than must be positive")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.DeleteRunsBefore(ctx, time.Now().Add(-olderThan))
		if err != nil {
			return eris.Wrap(err, "runs prune")
		}
		fmt.Printf("Deleted %d runs\n", n)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (succeeded, failed)")
	runsListCmd.Flags().String("geography", "", "filter by geography")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats in whole hours, 0 for all runs")

	runsPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "delete runs created before now minus this duration")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	runsCmd.AddCommand(runsCheckCmd)
	runsCmd.AddCommand(runsPruneCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tGEOGRAPHY\tSCENARIO\tK\tMODE\tSTATUS\tCOVERAGE\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t---------\t--------\t-\t----\t------\t--------\t-------")

	for _, r := range runs {
		outcome := string(r.ErrorCode)
		if r.Result != nil {
			outcome = fmt.Sprintf("%.1f%%", 100*r.Result.Stats.CoverageRate)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Geography,
			truncate(r.Scenario.Label(), 40),
			r.Scenario.K,
			r.Scenario.Mode,
			r.Status,
			outcome,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s monitoring.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Succeeded:\t%d\n", s.Succeeded)
	_, _ = fmt.Fprintf(w, "  Heuristic:\t%d\n", s.Heuristic)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)

	codes := make([]string, 0, len(s.ByCode))
	for c := range s.ByCode {
		codes = append(codes, string(c))
	}
	sort.Strings(codes)
	for _, c := range codes {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", c, s.ByCode[model.Code(c)])
	}
	if s.Succeeded > 0 {
		_, _ = fmt.Fprintf(w, "Avg coverage:\t%.1f%%\n", 100*s.AvgCoverage)
		_, _ = fmt.Fprintf(w, "Avg solve time:\t%s\n", s.AvgSolveTime.Round(time.Millisecond))
	}
	_ = w.Flush()
}

func formatAlerts(out io.Writer, alerts []monitoring.Alert) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SEVERITY\tTYPE\tMESSAGE")
	for _, a := range alerts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", a.Severity, a.Type, a.Message)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
