// Package instance loads and holds problem instances: the demand units,
// candidate sites, and reachability matrices of one geography.
package instance

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/heatsafenet/hubsite/internal/coverage"
	"github.com/heatsafenet/hubsite/internal/model"
)

// Instance is immutable once built and shared by concurrent solves.
type Instance struct {
	Geography string
	Source    string
	LoadedAt  time.Time

	units    []model.DemandUnit
	sites    []model.CandidateSite
	siteByID map[string]int
	coverage map[model.TravelMode]*coverage.Matrix
}

// New validates the inputs and builds an Instance. Unit and site IDs must
// be unique and every matrix must reference only known units and sites.
func New(geography string, units []model.DemandUnit, sites []model.CandidateSite, matrices map[model.TravelMode]*coverage.Matrix) (*Instance, error) {
	if geography == "" {
		return nil, eris.New("instance: geography is required")
	}
	seen := make(map[string]struct{}, len(units))
	for _, u := range units {
		if u.ID == "" {
			return nil, &model.DataInconsistencyError{Kind: "demand unit", Detail: "missing ID"}
		}
		if _, dup := seen[u.ID]; dup {
			return nil, &model.DataInconsistencyError{Kind: "demand unit", ID: u.ID, Detail: "duplicate ID"}
		}
		seen[u.ID] = struct{}{}
	}

	in := &Instance{
		Geography: geography,
		LoadedAt:  time.Now().UTC(),
		units:     append([]model.DemandUnit(nil), units...),
		sites:     append([]model.CandidateSite(nil), sites...),
		siteByID:  make(map[string]int, len(sites)),
		coverage:  make(map[model.TravelMode]*coverage.Matrix, len(matrices)),
	}
	for i, s := range in.sites {
		if s.ID == "" {
			return nil, &model.DataInconsistencyError{Kind: "candidate site", Detail: "missing ID"}
		}
		if _, dup := in.siteByID[s.ID]; dup {
			return nil, &model.DataInconsistencyError{Kind: "candidate site", ID: s.ID, Detail: "duplicate ID"}
		}
		in.siteByID[s.ID] = i
	}
	for mode, m := range matrices {
		if m == nil {
			continue
		}
		if m.Mode() != mode {
			return nil, eris.Errorf("instance: matrix registered for %s was built for %s", mode, m.Mode())
		}
		if err := m.Validate(in.units, in.sites); err != nil {
			return nil, eris.Wrapf(err, "instance: %s", geography)
		}
		in.coverage[mode] = m
	}
	return in, nil
}

// Units returns the demand units. The slice must not be modified.
func (in *Instance) Units() []model.DemandUnit { return in.units }

// Sites returns the candidate sites. The slice must not be modified.
func (in *Instance) Sites() []model.CandidateSite { return in.sites }

// Site looks up a candidate site by ID.
func (in *Instance) Site(id string) (model.CandidateSite, bool) {
	i, ok := in.siteByID[id]
	if !ok {
		return model.CandidateSite{}, false
	}
	return in.sites[i], true
}

// Matrix returns the reachability matrix for a travel mode.
func (in *Instance) Matrix(mode model.TravelMode) (*coverage.Matrix, error) {
	m, ok := in.coverage[mode]
	if !ok {
		return nil, &model.NotFoundError{Kind: "travel mode", ID: in.Geography + "/" + string(mode)}
	}
	return m, nil
}

// Modes lists the travel modes with a matrix, sorted.
func (in *Instance) Modes() []model.TravelMode {
	modes := make([]model.TravelMode, 0, len(in.coverage))
	for m := range in.coverage {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

// Summary describes data availability for one geography.
type Summary struct {
	Geography  string             `json:"geography"`
	Units      int                `json:"demand_units"`
	Sites      int                `json:"candidate_sites"`
	Population float64            `json:"population"`
	Modes      []model.TravelMode `json:"modes"`
	Categories map[string]int     `json:"categories"`
	Source     string             `json:"source,omitempty"`
	LoadedAt   time.Time          `json:"loaded_at"`
}

// Summarize reports counts and available modes.
func (in *Instance) Summarize() Summary {
	s := Summary{
		Geography:  in.Geography,
		Units:      len(in.units),
		Sites:      len(in.sites),
		Modes:      in.Modes(),
		Categories: make(map[string]int),
		Source:     in.Source,
		LoadedAt:   in.LoadedAt,
	}
	for _, u := range in.units {
		s.Population += u.Population
	}
	for _, st := range in.sites {
		s.Categories[string(st.Category)]++
	}
	return s
}
