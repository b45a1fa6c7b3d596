package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/heatsafenet/hubsite/internal/model"
	"github.com/heatsafenet/hubsite/internal/scenario"
	"github.com/heatsafenet/hubsite/internal/store"
)

// customPreset names the weights given with --weights in scenario IDs.
const customPreset = "custom"

var (
	sweepFlags    scenarioFlags
	sweepKs       []int
	sweepPresets  []string
	sweepModes    []string
	sweepFormat   string
	sweepNoRecord bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Solve a grid of budgets, presets and travel modes",
	Long:  "Expands K values x weight presets x travel modes around one geography, solves every scenario in parallel, and reports marginal benefit and coverage efficiency per budget.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := validateFor("sweep"); err != nil {
			return err
		}
		ctx := cmd.Context()

		presets, err := cfg.Presets()
		if err != nil {
			return err
		}
		base, err := sweepFlags.scenario(presets)
		if err != nil {
			return err
		}

		grid := scenario.Grid{Base: base, Presets: sweepPresets, Ks: sweepKs}
		if len(grid.Presets) == 0 {
			if len(sweepFlags.weights) > 0 {
				presets[customPreset] = base.Weights
				grid.Presets = []string{customPreset}
			} else {
				grid.Presets = []string{sweepFlags.preset}
			}
		}
		for _, raw := range sweepModes {
			m, err := model.ParseTravelMode(raw)
			if err != nil {
				return err
			}
			grid.Modes = append(grid.Modes, m)
		}
		scenarios, err := grid.Expand(presets)
		if err != nil {
			return err
		}

		reg, err := loadInstances(ctx)
		if err != nil {
			return err
		}
		batch, err := newOrchestrator(reg).RunBatch(ctx, scenarios)
		if err != nil {
			return eris.Wrap(err, "sweep")
		}

		if !sweepNoRecord {
			runs := make([]*model.Run, 0, len(batch.Outcomes))
			for _, id := range batch.IDs() {
				out := batch.Outcomes[id]
				runs = append(runs, store.NewRun(out.Scenario, out.Result, out.Err))
			}
			recordRuns(cmd, runs)
		}

		analysis := scenario.Analyze(batch)
		if sweepFormat == "json" {
			return writeJSON(os.Stdout, analysis)
		}
		formatAnalysis(os.Stdout, analysis)
		return nil
	},
}

func init() {
	sweepFlags.register(sweepCmd.Flags())
	sweepCmd.Flags().IntSliceVar(&sweepKs, "ks", []int{1, 3, 5, 10}, "site budgets to solve")
	sweepCmd.Flags().StringSliceVar(&sweepPresets, "presets", nil, "weight presets (default: --preset)")
	sweepCmd.Flags().StringSliceVar(&sweepModes, "modes", nil, "travel modes (default: --mode)")
	sweepCmd.Flags().StringVar(&sweepFormat, "format", "table", "output format (table, json)")
	sweepCmd.Flags().BoolVar(&sweepNoRecord, "no-record", false, "do not record runs")
	rootCmd.AddCommand(sweepCmd)
}
