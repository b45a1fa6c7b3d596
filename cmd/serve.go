package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/heatsafenet/hubsite/internal/api"
	"github.com/heatsafenet/hubsite/internal/monitoring"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the siting API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFor("serve"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reg, err := loadInstances(ctx)
		if err != nil {
			return err
		}
		presets, err := cfg.Presets()
		if err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		server := api.New(reg, newOrchestrator(reg), st, presets, api.Options{
			MaxK:           cfg.Server.MaxK,
			RateLimit:      rate.Limit(cfg.Server.RateLimit.RPS),
			Burst:          cfg.Server.RateLimit.Burst,
			AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
			RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second,
		})

		if cfg.Monitoring.Enabled {
			mc := cfg.Monitoring
			checker := monitoring.NewChecker(monitoring.NewCollector(st), monitoring.NewAlerter(mc), mc)
			go checker.Run(ctx)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           server.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSecs)*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.Strings("geographies", reg.Geographies()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
