package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heatsafenet/hubsite/internal/config"
)

const testDemand = `{
  "type": "FeatureCollection",
  "features": [%s]
}`

func demandFeature(id string, lon, lat, v, pop float64) string {
	return fmt.Sprintf(`{"type": "Feature",
  "geometry": {"type": "Point", "coordinates": [%g, %g]},
  "properties": {"id": %q, "county": "Maricopa", "population": %g,
    "heat_exposure": %g, "social_vulnerability": %g, "digital_exclusion": %g, "elderly_vulnerability": %g}}`,
		lon, lat, id, pop, v, v, v, v)
}

const testCandidates = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-112.07, 33.45]},
     "properties": {"id": "A", "name": "Central High", "category": "school", "size_m2": 2500}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-112.00, 33.50]},
     "properties": {"id": "B", "name": "Eastside Library", "category": "library", "size_m2": 800}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-112.10, 33.40]},
     "properties": {"id": "C", "name": "South Elementary", "category": "school", "size_m2": 400, "hazard_zone": true}}
  ]
}`

// writeTestGeography writes a three-unit, three-site geography: A covers u1
// and u2 on foot, B and C cover u3.
func writeTestGeography(t *testing.T, dataDir, geo string) {
	t.Helper()
	dir := filepath.Join(dataDir, geo)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	demand := fmt.Sprintf(testDemand, demandFeature("u1", -112.07, 33.45, 0.9, 100)+",\n"+
		demandFeature("u2", -112.06, 33.46, 0.5, 200)+",\n"+
		demandFeature("u3", -112.01, 33.49, 0.2, 50))
	files := map[string]string{
		"demand.geojson":      demand,
		"candidates.geojson":  testCandidates,
		"coverage_walk.json":  `{"mode": "walk", "reach": {"u1": ["A"], "u2": ["A"], "u3": ["B", "C"]}}`,
		"coverage_drive.json": `{"mode": "drive", "reach": {"u1": ["A", "B"], "u2": ["A", "B"], "u3": ["B"]}}`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

// useTestConfig installs a config with defaults pointing at dataDir and a
// SQLite store inside it.
func useTestConfig(t *testing.T, dataDir string) {
	t.Helper()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(origDir) })

	c, err := config.Load()
	require.NoError(t, err)
	c.Data.Dir = dataDir
	c.Store.DatabaseURL = filepath.Join(dataDir, "runs.db")

	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}
