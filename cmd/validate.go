package main

import (
	"context"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/heatsafenet/hubsite/internal/instance"
	"github.com/heatsafenet/hubsite/internal/model"
	"github.com/heatsafenet/hubsite/internal/risk"
	"github.com/heatsafenet/hubsite/internal/scenario"
)

// validationReport is the consistency check of one geography.
type validationReport struct {
	Geography string
	Summary   instance.Summary
	Profile   *scenario.Profile
	Code      model.Code
	Err       error
}

type geographyLoader func(ctx context.Context, geography string) (*instance.Instance, error)

// validateGeographies loads each geography, checks its reachability against
// its units and sites, and profiles its risk under weights.
func validateGeographies(ctx context.Context, load geographyLoader, names []string, weights model.Weights) []validationReport {
	reports := make([]validationReport, 0, len(names))
	for _, geo := range names {
		rep := validationReport{Geography: geo}
		in, err := load(ctx, geo)
		if err == nil {
			rep.Summary = in.Summarize()
			reg := instance.NewRegistry()
			reg.Register(in)
			rep.Profile, err = newOrchestrator(reg).Profile(geo, weights)
		}
		if err != nil {
			rep.Err = err
			rep.Code = model.CodeOf(err)
		}
		reports = append(reports, rep)
	}
	return reports
}

func formatValidation(out io.Writer, reports []validationReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = io.WriteString(w, "GEOGRAPHY\tSTATUS\tUNITS\tSITES\tPOPULATION\tMODES\tRISK_MEAN\tHIGH_RISK\tERROR\n")
	_, _ = io.WriteString(w, "---------\t------\t-----\t-----\t----------\t-----\t---------\t---------\t-----\n")
	for _, r := range reports {
		if r.Err != nil {
			printer.Fprintf(w, "%s\t%s\t\t\t\t\t\t\t%s\n", r.Geography, r.Code, r.Err.Error())
			continue
		}
		modes := make([]string, len(r.Summary.Modes))
		for i, m := range r.Summary.Modes {
			modes[i] = string(m)
		}
		printer.Fprintf(w, "%s\tok\t%d\t%d\t%.0f\t%s\t%.3f\t%.1f%%\t\n",
			r.Geography,
			r.Summary.Units,
			r.Summary.Sites,
			r.Summary.Population,
			strings.Join(modes, ","),
			r.Profile.Risk.RiskMean,
			100*r.Profile.Risk.HighRiskShare,
		)
	}
	_ = w.Flush()
}

var validateCmd = &cobra.Command{
	Use:   "validate [geography...]",
	Short: "Check problem instances for consistency",
	Long:  "Loads each geography, verifies that every reachability entry references a known demand unit and candidate site, and profiles its composed risk. With no arguments every geography in the data source is checked.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFor("validate"); err != nil {
			return err
		}
		ctx := cmd.Context()

		presets, err := cfg.Presets()
		if err != nil {
			return err
		}
		weights, err := presets.Get(risk.DefaultPreset)
		if err != nil {
			return err
		}

		var (
			load  geographyLoader
			names = args
		)
		switch cfg.Data.Source {
		case "postgres":
			pool, err := dataPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			src := instance.NewPostgresSource(pool, cfg.RetrySettings())
			load = src.Load
			if len(names) == 0 {
				if names, err = src.List(ctx); err != nil {
					return err
				}
			}
		default:
			load = func(_ context.Context, geo string) (*instance.Instance, error) {
				return instance.LoadGeography(cfg.Data.Dir, geo)
			}
			if len(names) == 0 {
				if names, err = subdirs(cfg.Data.Dir); err != nil {
					return err
				}
			}
		}

		reports := validateGeographies(ctx, load, names, weights)
		formatValidation(os.Stdout, reports)

		failed := 0
		for _, r := range reports {
			if r.Err != nil {
				failed++
			}
		}
		if failed > 0 {
			return eris.Errorf("validate: %d of %d geographies failed", failed, len(reports))
		}
		return nil
	},
}

func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "read data dir %s", dir)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
