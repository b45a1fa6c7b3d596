package instance

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/heatsafenet/hubsite/internal/coverage"
	"github.com/heatsafenet/hubsite/internal/db"
	"github.com/heatsafenet/hubsite/internal/model"
	"github.com/heatsafenet/hubsite/internal/resilience"
)

const srid = 4326

// Schema tables for published instances.
const (
	tableGeographies  = "hubsite.geographies"
	tableDemand       = "hubsite.demand_units"
	tableCandidates   = "hubsite.candidate_sites"
	tableReachability = "hubsite.reachability"
)

const postgisMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;
CREATE SCHEMA IF NOT EXISTS hubsite;

CREATE TABLE IF NOT EXISTS hubsite.geographies (
	geography    TEXT PRIMARY KEY,
	source       TEXT,
	units        INTEGER NOT NULL DEFAULT 0,
	sites        INTEGER NOT NULL DEFAULT 0,
	published_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS hubsite.demand_units (
	geography             TEXT NOT NULL,
	id                    TEXT NOT NULL,
	county                TEXT,
	population            DOUBLE PRECISION NOT NULL DEFAULT 0,
	heat_exposure         DOUBLE PRECISION,
	social_vulnerability  DOUBLE PRECISION,
	digital_exclusion     DOUBLE PRECISION,
	elderly_vulnerability DOUBLE PRECISION,
	centroid              geometry(Point, 4326),
	PRIMARY KEY (geography, id)
);

CREATE TABLE IF NOT EXISTS hubsite.candidate_sites (
	geography TEXT NOT NULL,
	id        TEXT NOT NULL,
	name      TEXT,
	category  TEXT NOT NULL DEFAULT 'other',
	size_m2   DOUBLE PRECISION NOT NULL DEFAULT 0,
	flags     TEXT[] NOT NULL DEFAULT '{}',
	location  geometry(Point, 4326) NOT NULL,
	PRIMARY KEY (geography, id)
);

CREATE TABLE IF NOT EXISTS hubsite.reachability (
	geography TEXT NOT NULL,
	mode      TEXT NOT NULL,
	unit_id   TEXT NOT NULL,
	site_id   TEXT NOT NULL,
	access    DOUBLE PRECISION NOT NULL DEFAULT 1,
	PRIMARY KEY (geography, mode, unit_id, site_id)
);

CREATE INDEX IF NOT EXISTS idx_candidate_sites_location ON hubsite.candidate_sites USING GIST (location);
`

var (
	demandColumns = []string{"geography", "id", "county", "population",
		model.ComponentHeatExposure, model.ComponentSocialVulnerability,
		model.ComponentDigitalExclusion, model.ComponentElderlyVulnerability, "centroid"}
	candidateColumns    = []string{"geography", "id", "name", "category", "size_m2", "flags", "location"}
	reachabilityColumns = []string{"geography", "mode", "unit_id", "site_id", "access"}
	geographyColumns    = []string{"geography", "source", "units", "sites", "published_at"}
)

// PostgresSource reads and publishes instances in PostGIS tables.
type PostgresSource struct {
	pool  db.Pool
	retry resilience.RetryConfig
}

// NewPostgresSource wraps a pool. Reads retry transient failures per retry.
func NewPostgresSource(pool db.Pool, retry resilience.RetryConfig) *PostgresSource {
	return &PostgresSource{pool: pool, retry: retry}
}

// Migrate creates the instance schema if needed.
func (s *PostgresSource) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgisMigration); err != nil {
		return eris.Wrap(err, "instance: postgres migrate")
	}
	return nil
}

// List returns the published geographies, sorted.
func (s *PostgresSource) List(ctx context.Context) ([]string, error) {
	return resilience.DoVal(ctx, s.retry, func(ctx context.Context) ([]string, error) {
		rows, err := s.pool.Query(ctx, `SELECT geography FROM hubsite.geographies ORDER BY geography`)
		if err != nil {
			return nil, eris.Wrap(err, "instance: list geographies")
		}
		names, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return nil, eris.Wrap(err, "instance: scan geographies")
		}
		return names, nil
	})
}

// LoadAll loads every published geography into a new registry. Geographies
// that fail validation are logged and skipped.
func (s *PostgresSource) LoadAll(ctx context.Context) (*Registry, int, error) {
	names, err := s.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	reg := NewRegistry()
	failed := 0
	for _, geo := range names {
		in, err := s.Load(ctx, geo)
		if err != nil {
			failed++
			zap.L().Warn("instance: skipping geography", zap.String("geography", geo), zap.Error(err))
			continue
		}
		reg.Register(in)
	}
	return reg, failed, nil
}

// Load reads one geography and validates it.
func (s *PostgresSource) Load(ctx context.Context, geography string) (*Instance, error) {
	units, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) ([]model.DemandUnit, error) {
		return s.loadUnits(ctx, geography)
	})
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, &model.NotFoundError{Kind: "geography", ID: geography}
	}
	sites, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) ([]model.CandidateSite, error) {
		return s.loadSites(ctx, geography)
	})
	if err != nil {
		return nil, err
	}
	matrices, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (map[model.TravelMode]*coverage.Matrix, error) {
		return s.loadReachability(ctx, geography)
	})
	if err != nil {
		return nil, err
	}

	in, err := New(geography, units, sites, matrices)
	if err != nil {
		return nil, err
	}
	in.Source = "postgres:" + geography
	return in, nil
}

func (s *PostgresSource) loadUnits(ctx context.Context, geography string) ([]model.DemandUnit, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, county, population,
		heat_exposure, social_vulnerability, digital_exclusion, elderly_vulnerability,
		ST_AsEWKB(centroid)
		FROM hubsite.demand_units WHERE geography = $1 ORDER BY id`, geography)
	if err != nil {
		return nil, eris.Wrapf(err, "instance: query demand units for %s", geography)
	}
	defer rows.Close()

	var units []model.DemandUnit
	for rows.Next() {
		var (
			u        model.DemandUnit
			county   *string
			comps    [4]*float64
			centroid []byte
		)
		if err := rows.Scan(&u.ID, &county, &u.Population, &comps[0], &comps[1], &comps[2], &comps[3], &centroid); err != nil {
			return nil, eris.Wrap(err, "instance: scan demand unit")
		}
		if county != nil {
			u.County = *county
		}
		u.Components = make(map[string]float64, len(comps))
		for i, v := range comps {
			if v != nil {
				u.Components[model.Components[i]] = *v
			}
		}
		if len(centroid) > 0 {
			pt, err := decodePoint(centroid)
			if err != nil {
				return nil, eris.Wrapf(err, "instance: demand unit %s centroid", u.ID)
			}
			u.Centroid = &pt
		}
		units = append(units, u)
	}
	return units, eris.Wrap(rows.Err(), "instance: iterate demand units")
}

func (s *PostgresSource) loadSites(ctx context.Context, geography string) ([]model.CandidateSite, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, category, size_m2, flags, ST_AsEWKB(location)
		FROM hubsite.candidate_sites WHERE geography = $1 ORDER BY id`, geography)
	if err != nil {
		return nil, eris.Wrapf(err, "instance: query candidate sites for %s", geography)
	}
	defer rows.Close()

	var sites []model.CandidateSite
	for rows.Next() {
		var (
			st       model.CandidateSite
			name     *string
			category string
			flags    []string
			location []byte
		)
		if err := rows.Scan(&st.ID, &name, &category, &st.SizeM2, &flags, &location); err != nil {
			return nil, eris.Wrap(err, "instance: scan candidate site")
		}
		if name != nil {
			st.Name = *name
		}
		st.Category = model.ParseCategory(category)
		for _, f := range flags {
			st.Flags = append(st.Flags, model.Flag(f))
		}
		pt, err := decodePoint(location)
		if err != nil {
			return nil, eris.Wrapf(err, "instance: candidate site %s location", st.ID)
		}
		st.Location = pt
		sites = append(sites, st)
	}
	return sites, eris.Wrap(rows.Err(), "instance: iterate candidate sites")
}

func (s *PostgresSource) loadReachability(ctx context.Context, geography string) (map[model.TravelMode]*coverage.Matrix, error) {
	rows, err := s.pool.Query(ctx, `SELECT mode, unit_id, site_id, access
		FROM hubsite.reachability WHERE geography = $1 ORDER BY mode, unit_id, site_id`, geography)
	if err != nil {
		return nil, eris.Wrapf(err, "instance: query reachability for %s", geography)
	}
	defer rows.Close()

	type pairs struct {
		access   map[string]map[string]float64
		weighted bool
	}
	byMode := make(map[model.TravelMode]*pairs)
	for rows.Next() {
		var (
			modeName, unitID, siteID string
			access                   float64
		)
		if err := rows.Scan(&modeName, &unitID, &siteID, &access); err != nil {
			return nil, eris.Wrap(err, "instance: scan reachability")
		}
		mode, err := model.ParseTravelMode(modeName)
		if err != nil {
			return nil, &model.DataInconsistencyError{Kind: "reachability", ID: unitID, Detail: err.Error()}
		}
		p, ok := byMode[mode]
		if !ok {
			p = &pairs{access: make(map[string]map[string]float64)}
			byMode[mode] = p
		}
		if p.access[unitID] == nil {
			p.access[unitID] = make(map[string]float64)
		}
		p.access[unitID][siteID] = access
		if access != 1 {
			p.weighted = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "instance: iterate reachability")
	}

	out := make(map[model.TravelMode]*coverage.Matrix, len(byMode))
	for mode, p := range byMode {
		if p.weighted {
			m, err := coverage.NewWeighted(mode, p.access)
			if err != nil {
				return nil, err
			}
			out[mode] = m
			continue
		}
		reach := make(map[string][]string, len(p.access))
		for unitID, sites := range p.access {
			for siteID := range sites {
				reach[unitID] = append(reach[unitID], siteID)
			}
		}
		out[mode] = coverage.NewBoolean(mode, reach)
	}
	return out, nil
}

// Publish writes an instance to the PostGIS tables, replacing any rows
// previously published for its geography.
func (s *PostgresSource) Publish(ctx context.Context, in *Instance) error {
	log := zap.L().With(zap.String("geography", in.Geography))

	unitRows := make([][]any, 0, len(in.Units()))
	for _, u := range in.Units() {
		row := []any{in.Geography, u.ID, u.County, u.Population}
		for _, c := range model.Components {
			if v, ok := u.Components[c]; ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		var centroid []byte
		if u.Centroid != nil {
			b, err := encodePoint(*u.Centroid)
			if err != nil {
				return err
			}
			centroid = b
		}
		unitRows = append(unitRows, append(row, centroid))
	}

	siteRows := make([][]any, 0, len(in.Sites()))
	for _, st := range in.Sites() {
		loc, err := encodePoint(st.Location)
		if err != nil {
			return err
		}
		flags := make([]string, len(st.Flags))
		for i, f := range st.Flags {
			flags[i] = string(f)
		}
		siteRows = append(siteRows, []any{in.Geography, st.ID, st.Name, string(st.Category), st.SizeM2, flags, loc})
	}

	var reachRows [][]any
	for _, mode := range in.Modes() {
		m, _ := in.Matrix(mode)
		for _, unitID := range m.UnitIDs() {
			for _, l := range m.Reach(unitID) {
				reachRows = append(reachRows, []any{in.Geography, string(mode), unitID, l.SiteID, l.Access})
			}
		}
	}

	for _, step := range []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{tableDemand, demandColumns, unitRows},
		{tableCandidates, candidateColumns, siteRows},
		{tableReachability, reachabilityColumns, reachRows},
	} {
		n, err := db.ReplaceScoped(ctx, s.pool, step.table, "geography", in.Geography, step.columns, step.rows)
		if err != nil {
			return eris.Wrapf(err, "instance: publish %s", in.Geography)
		}
		log.Debug("instance: published table", zap.String("table", step.table), zap.Int64("rows", n))
	}

	_, err := db.Upsert(ctx, s.pool, db.UpsertConfig{
		Table:        tableGeographies,
		Columns:      geographyColumns,
		ConflictKeys: []string{"geography"},
	}, [][]any{{in.Geography, in.Source, len(in.Units()), len(in.Sites()), time.Now().UTC()}})
	if err != nil {
		return eris.Wrapf(err, "instance: register %s", in.Geography)
	}
	log.Info("instance: published",
		zap.Int("demand_units", len(unitRows)),
		zap.Int("candidate_sites", len(siteRows)),
		zap.Int("reachability_pairs", len(reachRows)),
	)
	return nil
}

func encodePoint(p model.Point) ([]byte, error) {
	g := geom.NewPointFlat(geom.XY, []float64{p.Lon, p.Lat}).SetSRID(srid)
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "instance: encode point")
	}
	return data, nil
}

func decodePoint(data []byte) (model.Point, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return model.Point{}, eris.Wrap(err, "instance: decode point")
	}
	p, ok := g.(*geom.Point)
	if !ok {
		return model.Point{}, eris.Errorf("instance: expected point geometry, got %T", g)
	}
	return model.Point{Lat: p.Y(), Lon: p.X()}, nil
}
