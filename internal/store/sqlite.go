package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/heatsafenet/hubsite/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	geography  TEXT NOT NULL,
	scenario   TEXT NOT NULL,
	status     TEXT NOT NULL,
	result     TEXT,
	error_code TEXT NOT NULL DEFAULT '',
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_geography ON runs(geography);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.Run) error {
	prepareRun(run)
	scenarioJSON, resultJSON, err := marshalRun(run)
	if err != nil {
		return err
	}

	var result sql.NullString
	if resultJSON != nil {
		result = sql.NullString{String: string(resultJSON), Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, geography, scenario, status, result, error_code, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Geography, string(scenarioJSON), string(run.Status), result, string(run.ErrorCode), run.Error, run.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, geography, scenario, status, result, error_code, error, created_at FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &model.NotFoundError{Kind: "run", ID: runID}
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, geography, scenario, status, result, error_code, error, created_at FROM runs WHERE 1=1`
	var args []any

	if filter.Geography != "" {
		query += ` AND geography = ?`
		args = append(args, filter.Geography)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at > ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, listLimit(filter))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete runs")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var (
		r            model.Run
		scenarioJSON string
		resultJSON   sql.NullString
		status       string
		errorCode    string
	)
	err := row.Scan(&r.ID, &r.Geography, &scenarioJSON, &status, &resultJSON, &errorCode, &r.Error, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Status = model.RunStatus(status)
	r.ErrorCode = model.Code(errorCode)

	var result []byte
	if resultJSON.Valid {
		result = []byte(resultJSON.String)
	}
	if err := unmarshalRun(&r, []byte(scenarioJSON), result); err != nil {
		return nil, err
	}
	return &r, nil
}

func marshalRun(run *model.Run) ([]byte, []byte, error) {
	scenarioJSON, err := json.Marshal(run.Scenario)
	if err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal scenario")
	}
	if run.Result == nil {
		return scenarioJSON, nil, nil
	}
	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal result")
	}
	return scenarioJSON, resultJSON, nil
}

func unmarshalRun(r *model.Run, scenarioJSON, resultJSON []byte) error {
	if err := json.Unmarshal(scenarioJSON, &r.Scenario); err != nil {
		return eris.Wrap(err, "store: unmarshal scenario")
	}
	if resultJSON != nil {
		r.Result = &model.Result{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return eris.Wrap(err, "store: unmarshal result")
		}
	}
	return nil
}
