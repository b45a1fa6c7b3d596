package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heatsafenet/hubsite/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testScenario(geo string, k int) model.Scenario {
	return model.Scenario{
		ID:        "base",
		Geography: geo,
		K:         k,
		Mode:      model.ModeWalk,
		Weights:   model.Weights{model.ComponentHeatExposure: 1},
		Equity:    model.Equity{Enabled: true, Floor: 0.5, HighRiskThreshold: 0.6},
	}
}

func testResult() *model.Result {
	return &model.Result{
		ScenarioID:      "base",
		Geography:       "phoenix",
		Mode:            model.ModeWalk,
		K:               1,
		Status:          model.StatusOptimal,
		SolvedOptimally: true,
		Selected: []model.SelectedSite{{
			Site:              model.CandidateSite{ID: "A", Name: "Central Library", Category: model.CategoryLibrary},
			CoveredUnits:      []string{"u1", "u2"},
			CoveredPopulation: 300,
		}},
		CoveredUnitIDs: []string{"u1", "u2"},
		Stats:          model.Stats{SitesSelected: 1, CoverageRate: 300.0 / 350.0, ObjectiveValue: 190, SolveTime: 3 * time.Millisecond},
	}
}

func TestNewRun(t *testing.T) {
	run := NewRun(testScenario("phoenix", 1), testResult(), nil)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "phoenix", run.Geography)
	assert.Equal(t, model.RunStatusSucceeded, run.Status)
	assert.NotNil(t, run.Result)
	assert.Empty(t, run.ErrorCode)

	err := eris.Wrap(&model.InfeasibleScenarioError{Cause: model.CauseNoEligibleSites, K: 2}, "solve")
	run = NewRun(testScenario("phoenix", 2), nil, err)
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.Equal(t, model.CodeInfeasible, run.ErrorCode)
	assert.Contains(t, run.Error, "no_eligible_sites")
	assert.Nil(t, run.Result)
}

func TestSQLite_SaveAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run := NewRun(testScenario("phoenix", 1), testResult(), nil)
	require.NoError(t, st.SaveRun(ctx, run))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "phoenix", got.Geography)
	assert.Equal(t, model.RunStatusSucceeded, got.Status)
	assert.Equal(t, 1, got.Scenario.K)
	assert.True(t, got.Scenario.Equity.Enabled)
	assert.InDelta(t, 1.0, got.Scenario.Weights[model.ComponentHeatExposure], 1e-12)
	require.NotNil(t, got.Result)
	assert.Equal(t, []string{"A"}, got.Result.SiteIDs())
	assert.Equal(t, model.CategoryLibrary, got.Result.Selected[0].Site.Category)
	assert.Equal(t, 3*time.Millisecond, got.Result.Stats.SolveTime)
	assert.WithinDuration(t, run.CreatedAt, got.CreatedAt, time.Second)
}

func TestSQLite_SaveFailedRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run := NewRun(testScenario("phoenix", 9), nil, &model.WeightValidationError{Sum: 0.9, Reason: "weights must sum to 1"})
	require.NoError(t, st.SaveRun(ctx, run))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, model.CodeWeightValidation, got.ErrorCode)
	assert.NotEmpty(t, got.Error)
	assert.Nil(t, got.Result)
}

func TestSQLite_SaveRunAssignsID(t *testing.T) {
	st := newTestSQLiteStore(t)
	run := &model.Run{Scenario: testScenario("tucson", 1), Status: model.RunStatusSucceeded}
	require.NoError(t, st.SaveRun(context.Background(), run))
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "tucson", run.Geography)
	assert.False(t, run.CreatedAt.IsZero())
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, model.CodeNotFound, model.CodeOf(err))
}

func TestSQLite_DuplicateID(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	run := NewRun(testScenario("phoenix", 1), testResult(), nil)
	require.NoError(t, st.SaveRun(ctx, run))
	assert.Error(t, st.SaveRun(ctx, run))
}

func seedRuns(t *testing.T, st Store) []*model.Run {
	t.Helper()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []*model.Run{
		NewRun(testScenario("phoenix", 1), testResult(), nil),
		NewRun(testScenario("phoenix", 2), nil, &model.InfeasibleScenarioError{Cause: model.CauseEquityFloor}),
		NewRun(testScenario("tucson", 1), testResult(), nil),
	}
	for i, r := range runs {
		r.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, st.SaveRun(context.Background(), r))
	}
	return runs
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	runs := seedRuns(t, st)

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, runs[2].ID, all[0].ID, "newest first")

	phx, err := st.ListRuns(ctx, RunFilter{Geography: "phoenix"})
	require.NoError(t, err)
	assert.Len(t, phx, 2)

	failed, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, model.CodeInfeasible, failed[0].ErrorCode)

	recent, err := st.ListRuns(ctx, RunFilter{CreatedAfter: runs[0].CreatedAt})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	page, err := st.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, runs[1].ID, page[0].ID)
}

func TestSQLite_DeleteRunsBefore(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	runs := seedRuns(t, st)

	n, err := st.DeleteRunsBefore(ctx, runs[2].CreatedAt)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, runs[2].ID, left[0].ID)
}
