package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/heatsafenet/hubsite/internal/instance"
	"github.com/heatsafenet/hubsite/internal/resilience"
	"github.com/heatsafenet/hubsite/internal/scenario"
	"github.com/heatsafenet/hubsite/internal/solver"
	"github.com/heatsafenet/hubsite/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "hubsite.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.Pool.MaxConns,
			MinConns: cfg.Store.Pool.MinConns,
		}, cfg.RetrySettings())
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore initializes and migrates the run store.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// dataPool connects to the instance database. Uses cfg.Data.DatabaseURL,
// falling back to cfg.Store.DatabaseURL for a Postgres store.
func dataPool(ctx context.Context) (*pgxpool.Pool, error) {
	dsn := cfg.DataDatabaseURL()
	if dsn == "" {
		return nil, eris.New("data: no database_url configured (set data.database_url or store.database_url)")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "data: create connection pool")
	}

	retry := cfg.RetrySettings()
	retry.OnRetry = resilience.RetryLogger("data", "ping")
	if err := resilience.Do(ctx, retry, pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "data: ping database")
	}
	return pool, nil
}

// loadInstances loads every geography from the configured data source.
func loadInstances(ctx context.Context) (*instance.Registry, error) {
	var (
		reg    *instance.Registry
		failed int
		err    error
	)
	switch cfg.Data.Source {
	case "dir":
		reg, failed, err = instance.LoadDir(cfg.Data.Dir)
	case "postgres":
		pool, perr := dataPool(ctx)
		if perr != nil {
			return nil, perr
		}
		defer pool.Close()
		reg, failed, err = instance.NewPostgresSource(pool, cfg.RetrySettings()).LoadAll(ctx)
	default:
		return nil, eris.Errorf("unsupported data source: %s", cfg.Data.Source)
	}
	if err != nil {
		return nil, err
	}

	zap.L().Info("instances loaded",
		zap.String("source", cfg.Data.Source),
		zap.Int("geographies", len(reg.Geographies())),
		zap.Int("failed", failed),
	)
	return reg, nil
}

// newOrchestrator wires the solver and orchestrator from config.
func newOrchestrator(reg scenario.Instances) *scenario.Orchestrator {
	return scenario.New(reg, solver.New(cfg.SolverSettings()), cfg.OrchestratorSettings())
}
