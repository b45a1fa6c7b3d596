package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/heatsafenet/hubsite/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "hubsite",
	Short: "Equity-weighted resilience hub siting",
	Long:  "Composes heat and vulnerability risk per demand unit, then selects the K candidate sites that cover the most at-risk population under exclusion rules and an optional equity floor.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// validateFor checks the config sections a command needs.
func validateFor(mode string) error {
	if err := cfg.Validate(mode); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
