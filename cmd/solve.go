package main

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/heatsafenet/hubsite/internal/model"
	"github.com/heatsafenet/hubsite/internal/risk"
	"github.com/heatsafenet/hubsite/internal/scenario"
	"github.com/heatsafenet/hubsite/internal/store"
)

// scenarioFlags are the scenario options shared by solve and sweep.
type scenarioFlags struct {
	geography         string
	mode              string
	preset            string
	weights           map[string]string
	equityFloor       float64
	highRiskThreshold float64
	excludeHazard     bool
	excludeFlood      bool
	minSize           float64
	excludeCategories []string
}

func (f *scenarioFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.geography, "geography", "", "geography to solve (required)")
	fs.StringVar(&f.mode, "mode", string(model.ModeWalk), "travel mode (walk, drive)")
	fs.StringVar(&f.preset, "preset", risk.DefaultPreset, "weight preset")
	fs.StringToStringVar(&f.weights, "weights", nil, "explicit weights, e.g. heat_exposure=0.4,social_vulnerability=0.3,...")
	fs.Float64Var(&f.equityFloor, "equity-floor", 0, "minimum high-risk population coverage rate (0 disables)")
	fs.Float64Var(&f.highRiskThreshold, "high-risk-threshold", 0, "risk above which a unit is high-risk (default from config)")
	fs.BoolVar(&f.excludeHazard, "exclude-hazard", false, "exclude sites in hazard zones")
	fs.BoolVar(&f.excludeFlood, "exclude-flood", false, "exclude sites in flood zones")
	fs.Float64Var(&f.minSize, "min-size", 0, "minimum site footprint in m2")
	fs.StringSliceVar(&f.excludeCategories, "exclude-category", nil, "site categories to exclude")
	_ = cobra.MarkFlagRequired(fs, "geography")
}

// scenario builds the base scenario. K is left to the caller.
func (f *scenarioFlags) scenario(presets risk.Presets) (model.Scenario, error) {
	mode, err := model.ParseTravelMode(f.mode)
	if err != nil {
		return model.Scenario{}, err
	}

	weights, err := parseWeights(f.weights)
	if err != nil {
		return model.Scenario{}, err
	}
	if len(weights) == 0 {
		if weights, err = presets.Get(f.preset); err != nil {
			return model.Scenario{}, err
		}
	}

	sc := model.Scenario{
		Geography: f.geography,
		Mode:      mode,
		Weights:   weights,
		Exclusions: model.Exclusions{
			ExcludeHazard: f.excludeHazard,
			ExcludeFlood:  f.excludeFlood,
			MinSizeM2:     f.minSize,
		},
	}
	for _, raw := range f.excludeCategories {
		c, ok := model.LookupCategory(raw)
		if !ok {
			return model.Scenario{}, eris.Errorf("unknown category %q, want one of %v", raw, model.Categories)
		}
		sc.Exclusions.ExcludedCategories = append(sc.Exclusions.ExcludedCategories, c)
	}
	if f.equityFloor > 0 {
		sc.Equity = model.Equity{
			Enabled:           true,
			Floor:             f.equityFloor,
			HighRiskThreshold: f.highRiskThreshold,
		}
	}
	return sc, nil
}

// parseWeights converts name=value pairs. Validation of names and sum is left
// to the composer.
func parseWeights(raw map[string]string) (model.Weights, error) {
	w := make(model.Weights, len(raw))
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw[k]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "weight %s", k)
		}
		w[strings.TrimSpace(k)] = v
	}
	return w, nil
}

var (
	solveFlags    scenarioFlags
	solveK        int
	solveFormat   string
	solveNoRecord bool
	solveLimit    int
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve one siting scenario",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := validateFor("solve"); err != nil {
			return err
		}
		ctx := cmd.Context()

		presets, err := cfg.Presets()
		if err != nil {
			return err
		}
		sc, err := solveFlags.scenario(presets)
		if err != nil {
			return err
		}
		sc.K = solveK

		reg, err := loadInstances(ctx)
		if err != nil {
			return err
		}
		res, runErr := newOrchestrator(reg).Run(ctx, sc)

		if !solveNoRecord {
			recordRuns(cmd, []*model.Run{store.NewRun(sc, res, runErr)})
		}
		if runErr != nil {
			return eris.Wrapf(runErr, "solve %s [%s]", sc.Label(), model.CodeOf(runErr))
		}

		switch solveFormat {
		case "json":
			return writeJSON(os.Stdout, res)
		case "csv":
			return writeResultCSV(os.Stdout, res)
		default:
			formatResult(os.Stdout, res, scenario.Recommend(res, solveLimit))
			return nil
		}
	},
}

// recordRuns saves runs, logging rather than failing when the store is
// unavailable.
func recordRuns(cmd *cobra.Command, runs []*model.Run) {
	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		zap.L().Warn("run store unavailable, runs not recorded", zap.Error(err))
		return
	}
	defer st.Close() //nolint:errcheck
	for _, run := range runs {
		if err := st.SaveRun(ctx, run); err != nil {
			zap.L().Warn("save run failed", zap.String("scenario", run.Scenario.Label()), zap.Error(err))
		}
	}
}

func init() {
	solveFlags.register(solveCmd.Flags())
	solveCmd.Flags().IntVar(&solveK, "k", 5, "number of sites to select")
	solveCmd.Flags().StringVar(&solveFormat, "format", "table", "output format (table, json, csv)")
	solveCmd.Flags().BoolVar(&solveNoRecord, "no-record", false, "do not record the run")
	solveCmd.Flags().IntVar(&solveLimit, "recommend", scenario.DefaultRecommendLimit, "max recommendations to print")
	rootCmd.AddCommand(solveCmd)
}
