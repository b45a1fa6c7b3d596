package instance

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/heatsafenet/hubsite/internal/coverage"
	"github.com/heatsafenet/hubsite/internal/model"
)

// File names looked up inside a geography directory, in preference order.
var (
	demandFiles    = []string{"demand.geojson", "demand.json", "demand.xlsx"}
	candidateFiles = []string{"candidates.geojson", "candidates.json", "candidates.shp"}
)

func coverageFile(mode model.TravelMode) string {
	return "coverage_" + string(mode) + ".json"
}

// LoadDir loads every geography found as a subdirectory of dataDir and
// registers it. A geography that fails to load is logged and skipped; the
// number of failures is returned alongside the registry.
func LoadDir(dataDir string) (*Registry, int, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "instance: read data dir %s", dataDir)
	}
	log := zap.L().With(zap.String("data_dir", dataDir))

	reg := NewRegistry()
	failed := 0
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, geo := range names {
		in, err := LoadGeography(dataDir, geo)
		if err != nil {
			failed++
			log.Warn("instance: skipping geography", zap.String("geography", geo), zap.Error(err))
			continue
		}
		reg.Register(in)
		log.Info("instance: loaded geography",
			zap.String("geography", geo),
			zap.Int("demand_units", len(in.Units())),
			zap.Int("candidate_sites", len(in.Sites())),
			zap.Int("modes", len(in.Modes())),
		)
	}
	return reg, failed, nil
}

// LoadGeography loads and validates one geography directory.
func LoadGeography(dataDir, geography string) (*Instance, error) {
	dir := filepath.Join(dataDir, geography)

	demandPath, err := firstExisting(dir, demandFiles)
	if err != nil {
		return nil, err
	}
	units, err := loadDemand(demandPath)
	if err != nil {
		return nil, err
	}

	sitesPath, err := firstExisting(dir, candidateFiles)
	if err != nil {
		return nil, err
	}
	sites, err := loadSites(sitesPath)
	if err != nil {
		return nil, err
	}

	matrices := make(map[model.TravelMode]*coverage.Matrix)
	for _, mode := range model.TravelModes {
		path := filepath.Join(dir, coverageFile(mode))
		if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
			continue
		}
		m, err := coverage.LoadFile(path, mode)
		if err != nil {
			return nil, err
		}
		matrices[mode] = m
	}
	if len(matrices) == 0 {
		return nil, &model.DataInconsistencyError{Kind: "geography", ID: geography, Detail: "no coverage matrix found"}
	}

	in, err := New(geography, units, sites, matrices)
	if err != nil {
		return nil, err
	}
	in.Source = dir
	return in, nil
}

func firstExisting(dir string, names []string) (string, error) {
	for _, n := range names {
		p := filepath.Join(dir, n)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", &model.NotFoundError{Kind: "input file", ID: filepath.Join(dir, names[0])}
}

func loadDemand(path string) ([]model.DemandUnit, error) {
	if filepath.Ext(path) == ".xlsx" {
		return LoadDemandXLSX(path, XLSXOptions{})
	}
	return LoadDemandGeoJSON(path)
}

func loadSites(path string) ([]model.CandidateSite, error) {
	if filepath.Ext(path) == ".shp" {
		return LoadSitesShapefile(path)
	}
	return LoadSitesGeoJSON(path)
}
