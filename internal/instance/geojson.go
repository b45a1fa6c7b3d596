package instance

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"

	"github.com/heatsafenet/hubsite/internal/model"
)

func readFeatureCollection(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "instance: read %s", path)
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "instance: parse geojson %s", path)
	}
	return &fc, nil
}

// LoadDemandGeoJSON reads demand units from a feature collection. Polygon
// geometries contribute their centroid.
func LoadDemandGeoJSON(path string) ([]model.DemandUnit, error) {
	fc, err := readFeatureCollection(path)
	if err != nil {
		return nil, err
	}
	units := make([]model.DemandUnit, 0, len(fc.Features))
	for i, f := range fc.Features {
		u, err := newAttrs(f.Properties).demandUnit(featureID(f, i))
		if err != nil {
			return nil, err
		}
		if pt, ok := representativePoint(f.Geometry); ok {
			u.Centroid = &pt
		}
		units = append(units, u)
	}
	return units, nil
}

// LoadSitesGeoJSON reads candidate sites from a feature collection.
func LoadSitesGeoJSON(path string) ([]model.CandidateSite, error) {
	fc, err := readFeatureCollection(path)
	if err != nil {
		return nil, err
	}
	sites := make([]model.CandidateSite, 0, len(fc.Features))
	for i, f := range fc.Features {
		a := newAttrs(f.Properties)
		s, err := a.candidateSite(featureID(f, i))
		if err != nil {
			return nil, err
		}
		if pt, ok := representativePoint(f.Geometry); ok {
			s.Location = pt
		} else if lat, okLat, _ := a.float(latKeys); okLat {
			lon, _, _ := a.float(lonKeys)
			s.Location = model.Point{Lat: lat, Lon: lon}
		} else {
			return nil, &model.DataInconsistencyError{Kind: "candidate site", ID: s.ID, Detail: "no location"}
		}
		sites = append(sites, s)
	}
	return sites, nil
}

func featureID(f *geojson.Feature, i int) string {
	if f.ID != "" {
		return f.ID
	}
	return strconv.Itoa(i)
}

// representativePoint returns a point geometry as is, or the centroid of
// any other geometry.
func representativePoint(g geom.T) (model.Point, bool) {
	if g == nil || g.Empty() {
		return model.Point{}, false
	}
	if p, ok := g.(*geom.Point); ok {
		return model.Point{Lat: p.Y(), Lon: p.X()}, true
	}
	c, err := xy.Centroid(g)
	if err != nil || len(c) < 2 {
		return model.Point{}, false
	}
	return model.Point{Lat: c[1], Lon: c[0]}, true
}
