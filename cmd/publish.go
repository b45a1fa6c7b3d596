package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/heatsafenet/hubsite/internal/instance"
)

var publishCmd = &cobra.Command{
	Use:   "publish <geography...>",
	Short: "Copy geographies from the data directory into PostGIS",
	Long:  "Loads each geography from data.dir, validates it, and replaces its demand units, candidate sites and reachability rows in the hubsite schema so that servers with data.source=postgres can read it.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFor("publish"); err != nil {
			return err
		}
		ctx := cmd.Context()

		pool, err := dataPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		src := instance.NewPostgresSource(pool, cfg.RetrySettings())
		if err := src.Migrate(ctx); err != nil {
			return err
		}

		for _, geo := range args {
			in, err := instance.LoadGeography(cfg.Data.Dir, geo)
			if err != nil {
				return eris.Wrapf(err, "publish %s", geo)
			}
			if err := src.Publish(ctx, in); err != nil {
				return eris.Wrapf(err, "publish %s", geo)
			}
			s := in.Summarize()
			zap.L().Info("published geography",
				zap.String("geography", geo),
				zap.Int("demand_units", s.Units),
				zap.Int("candidate_sites", s.Sites),
			)
			fmt.Printf("Published %s: %d units, %d sites, modes %v\n", geo, s.Units, s.Sites, s.Modes)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
}
