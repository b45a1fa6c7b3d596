package instance

import (
	"fmt"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/heatsafenet/hubsite/internal/model"
)

// LoadSitesShapefile reads candidate sites from an ESRI shapefile. Point
// records are used as is; other shapes contribute their bounding-box center.
// Coordinates must be WGS84 longitude/latitude.
func LoadSitesShapefile(path string) ([]model.CandidateSite, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "instance: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	var sites []model.CandidateSite
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()
		if shape == nil {
			skipped++
			continue
		}

		raw := make(map[string]any, len(names))
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val != "" {
				raw[name] = val
			}
		}
		s, err := newAttrs(raw).candidateSite(fmt.Sprintf("record-%d", n))
		if err != nil {
			return nil, err
		}
		s.Location = shapePoint(shape)
		sites = append(sites, s)
	}
	if skipped > 0 {
		zap.L().Debug("instance: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return sites, nil
}

func shapePoint(shape shp.Shape) model.Point {
	if p, ok := shape.(*shp.Point); ok {
		return model.Point{Lat: p.Y, Lon: p.X}
	}
	b := shape.BBox()
	return model.Point{Lat: (b.MinY + b.MaxY) / 2, Lon: (b.MinX + b.MaxX) / 2}
}
