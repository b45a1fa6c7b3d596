package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heatsafenet/hubsite/internal/instance"
	"github.com/heatsafenet/hubsite/internal/model"
	"github.com/heatsafenet/hubsite/internal/risk"
)

func dirLoader(dataDir string) geographyLoader {
	return func(_ context.Context, geo string) (*instance.Instance, error) {
		return instance.LoadGeography(dataDir, geo)
	}
}

func TestValidateGeographies(t *testing.T) {
	dataDir := t.TempDir()
	writeTestGeography(t, dataDir, "phoenix")
	useTestConfig(t, dataDir)

	reports := validateGeographies(context.Background(), dirLoader(dataDir),
		[]string{"phoenix", "tucson"}, risk.DefaultWeights())
	require.Len(t, reports, 2)

	ok := reports[0]
	require.NoError(t, ok.Err)
	assert.Equal(t, 3, ok.Summary.Units)
	assert.Equal(t, 3, ok.Summary.Sites)
	assert.Equal(t, []model.TravelMode{model.ModeDrive, model.ModeWalk}, ok.Summary.Modes)
	require.NotNil(t, ok.Profile)
	assert.InDelta(t, 350, ok.Profile.Risk.Population, 1e-9)
	assert.InDelta(t, 0.9, ok.Profile.Risk.RiskMax, 1e-9)

	missing := reports[1]
	require.Error(t, missing.Err)
	assert.Equal(t, model.CodeNotFound, missing.Code)
	assert.Nil(t, missing.Profile)

	var buf bytes.Buffer
	formatValidation(&buf, reports)
	out := buf.String()
	assert.Contains(t, out, "phoenix")
	assert.Contains(t, out, "drive,walk")
	assert.Contains(t, out, "NOT_FOUND")
}

func TestValidateGeographies_UnknownSiteInCoverage(t *testing.T) {
	dataDir := t.TempDir()
	writeTestGeography(t, dataDir, "phoenix")
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "phoenix", "coverage_walk.json"),
		[]byte(`{"mode": "walk", "reach": {"u1": ["Z"]}}`), 0o644))
	useTestConfig(t, dataDir)

	reports := validateGeographies(context.Background(), dirLoader(dataDir),
		[]string{"phoenix"}, risk.DefaultWeights())
	require.Len(t, reports, 1)
	require.Error(t, reports[0].Err)
	assert.Equal(t, model.CodeDataInconsistency, reports[0].Code)
}

func TestValidateGeographies_BadWeights(t *testing.T) {
	dataDir := t.TempDir()
	writeTestGeography(t, dataDir, "phoenix")
	useTestConfig(t, dataDir)

	reports := validateGeographies(context.Background(), dirLoader(dataDir),
		[]string{"phoenix"}, model.Weights{"heat_exposure": 0.2})
	require.Len(t, reports, 1)
	assert.Equal(t, model.CodeWeightValidation, reports[0].Code)
	assert.Equal(t, 3, reports[0].Summary.Units)
}

func TestSubdirs(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dataDir, "tucson"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dataDir, "phoenix"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "README"), []byte("x"), 0o644))

	names, err := subdirs(dataDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"phoenix", "tucson"}, names)

	_, err = subdirs(filepath.Join(dataDir, "nope"))
	require.Error(t, err)
}

func TestLoadInstances(t *testing.T) {
	dataDir := t.TempDir()
	writeTestGeography(t, dataDir, "phoenix")
	require.NoError(t, os.Mkdir(filepath.Join(dataDir, "empty"), 0o755))
	useTestConfig(t, dataDir)

	reg, err := loadInstances(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"phoenix"}, reg.Geographies())
}

func TestLoadInstances_UnsupportedSource(t *testing.T) {
	useTestConfig(t, t.TempDir())
	cfg.Data.Source = "s3"

	_, err := loadInstances(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported data source")
}

func TestSolveEndToEnd(t *testing.T) {
	dataDir := t.TempDir()
	writeTestGeography(t, dataDir, "phoenix")
	useTestConfig(t, dataDir)

	reg, err := loadInstances(context.Background())
	require.NoError(t, err)

	f := scenarioFlags{geography: "phoenix", mode: "walk", preset: risk.DefaultPreset}
	sc, err := f.scenario(risk.BuiltinPresets())
	require.NoError(t, err)
	sc.K = 1

	res, err := newOrchestrator(reg).Run(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, res.SiteIDs())
	assert.InDelta(t, 300, res.Stats.CoveredPopulation, 1e-9)

	var buf bytes.Buffer
	require.NoError(t, writeResultCSV(&buf, res))
	assert.Contains(t, buf.String(), "Central High")
}
