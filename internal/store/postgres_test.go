package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heatsafenet/hubsite/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var runColumns = []string{"id", "geography", "scenario", "status", "result", "error_code", "error", "created_at"}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	run := NewRun(testScenario("phoenix", 1), testResult(), nil)
	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(run.ID, "phoenix", pgxmock.AnyArg(), "succeeded", pgxmock.AnyArg(), "", "", run.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SaveRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	run := NewRun(testScenario("phoenix", 1), testResult(), nil)
	mock.ExpectExec(`INSERT INTO runs`).WillReturnError(fmt.Errorf("connection refused"))

	err := s.SaveRun(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: insert run")
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	scenarioJSON, err := json.Marshal(testScenario("phoenix", 1))
	require.NoError(t, err)
	resultJSON, err := json.Marshal(testResult())
	require.NoError(t, err)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, geography, scenario, status, result, error_code, error, created_at FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(runColumns).
			AddRow("run-1", "phoenix", scenarioJSON, "succeeded", &resultJSON, "", "", created))

	got, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, model.RunStatusSucceeded, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, []string{"A"}, got.Result.SiteIDs())
	assert.Equal(t, created, got.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Equal(t, model.CodeNotFound, model.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	scenarioJSON, err := json.Marshal(testScenario("phoenix", 2))
	require.NoError(t, err)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM runs WHERE true AND geography = \$1 AND status = \$2 ORDER BY created_at DESC, id LIMIT \$3 OFFSET \$4`).
		WithArgs("phoenix", "failed", 10, 5).
		WillReturnRows(pgxmock.NewRows(runColumns).
			AddRow("run-2", "phoenix", scenarioJSON, "failed", (*[]byte)(nil), "INFEASIBLE_SCENARIO", "infeasible scenario", created))

	runs, err := s.ListRuns(context.Background(), RunFilter{Geography: "phoenix", Status: model.RunStatusFailed, Limit: 10, Offset: 5})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.CodeInfeasible, runs[0].ErrorCode)
	assert.Nil(t, runs[0].Result)
	assert.Equal(t, 2, runs[0].Scenario.K)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM runs WHERE true ORDER BY created_at DESC, id LIMIT \$1`).
		WithArgs(DefaultListLimit).
		WillReturnRows(pgxmock.NewRows(runColumns))

	runs, err := s.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteRunsBefore(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM runs WHERE created_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	n, err := s.DeleteRunsBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
