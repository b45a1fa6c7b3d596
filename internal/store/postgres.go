package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/heatsafenet/hubsite/internal/db"
	"github.com/heatsafenet/hubsite/internal/model"
	"github.com/heatsafenet/hubsite/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"insert_run": `INSERT INTO runs (id, geography, scenario, status, result, error_code, error, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"get_run":    `SELECT id, geography, scenario, status, result, error_code, error, created_at FROM runs WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool. Connecting is
// retried per retry while the database reports transient errors.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig, retry resilience.RetryConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	retry.OnRetry = resilience.RetryLogger("store", "ping")
	if err := resilience.Do(ctx, retry, pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that read
// instance tables directly.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	geography  TEXT NOT NULL,
	scenario   JSONB NOT NULL,
	status     TEXT NOT NULL,
	result     JSONB,
	error_code TEXT NOT NULL DEFAULT '',
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_geography ON runs(geography);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *model.Run) error {
	prepareRun(run)
	scenarioJSON, resultJSON, err := marshalRun(run)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, geography, scenario, status, result, error_code, error, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.Geography, scenarioJSON, string(run.Status), resultJSON, string(run.ErrorCode), run.Error, run.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert run %s", run.ID)
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, geography, scenario, status, result, error_code, error, created_at FROM runs WHERE id = $1`,
		runID,
	)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &model.NotFoundError{Kind: "run", ID: runID}
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, geography, scenario, status, result, error_code, error, created_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Geography != "" {
		query += fmt.Sprintf(` AND geography = $%d`, argIdx)
		args = append(args, filter.Geography)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at > $%d`, argIdx)
		args = append(args, filter.CreatedAfter)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM runs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete runs")
	}
	return int(tag.RowsAffected()), nil
}

func scanPgRun(row scannable) (*model.Run, error) {
	var (
		r            model.Run
		scenarioJSON []byte
		resultNull   *[]byte
		status       string
		errorCode    string
	)
	if err := row.Scan(&r.ID, &r.Geography, &scenarioJSON, &status, &resultNull, &errorCode, &r.Error, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	r.ErrorCode = model.Code(errorCode)

	var resultJSON []byte
	if resultNull != nil {
		resultJSON = *resultNull
	}
	if err := unmarshalRun(&r, scenarioJSON, resultJSON); err != nil {
		return nil, err
	}
	return &r, nil
}
