// Package coverage holds the reachability relation between demand units and
// candidate sites for one travel mode.
package coverage

import (
	"fmt"
	"math"
	"sort"

	"github.com/heatsafenet/hubsite/internal/model"
)

// Kind distinguishes boolean reachability from weighted accessibility.
type Kind string

const (
	KindBoolean  Kind = "boolean"
	KindWeighted Kind = "weighted"
)

// Link is one reachable (unit, site) pair with its accessibility in [0,1].
// Boolean matrices always carry Access 1.
type Link struct {
	SiteID string  `json:"site_id"`
	Access float64 `json:"access"`
}

// Matrix is an immutable reachability relation. It is safe for concurrent
// readers once constructed.
type Matrix struct {
	mode  model.TravelMode
	kind  Kind
	reach map[string][]Link
	sites map[string]struct{}
	pairs int
}

// NewBoolean builds a boolean matrix from unit ID to reachable site IDs.
// Duplicate site IDs for a unit are collapsed.
func NewBoolean(mode model.TravelMode, reach map[string][]string) *Matrix {
	m := &Matrix{mode: mode, kind: KindBoolean, reach: make(map[string][]Link, len(reach)), sites: make(map[string]struct{})}
	for unitID, siteIDs := range reach {
		seen := make(map[string]struct{}, len(siteIDs))
		links := make([]Link, 0, len(siteIDs))
		for _, s := range siteIDs {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			links = append(links, Link{SiteID: s, Access: 1})
		}
		m.add(unitID, links)
	}
	return m
}

// NewWeighted builds a weighted matrix from unit ID to per-site accessibility.
// Accessibility must lie in [0,1]; zero entries are dropped.
func NewWeighted(mode model.TravelMode, reach map[string]map[string]float64) (*Matrix, error) {
	m := &Matrix{mode: mode, kind: KindWeighted, reach: make(map[string][]Link, len(reach)), sites: make(map[string]struct{})}
	for unitID, access := range reach {
		links := make([]Link, 0, len(access))
		for siteID, a := range access {
			if math.IsNaN(a) || a < 0 || a > 1 {
				return nil, &model.DataInconsistencyError{
					Kind:   "reachability",
					ID:     unitID,
					Detail: fmt.Sprintf("accessibility %v to site %q outside [0,1]", a, siteID),
				}
			}
			if a == 0 {
				continue
			}
			links = append(links, Link{SiteID: siteID, Access: a})
		}
		m.add(unitID, links)
	}
	return m, nil
}

func (m *Matrix) add(unitID string, links []Link) {
	sort.Slice(links, func(i, j int) bool { return links[i].SiteID < links[j].SiteID })
	m.reach[unitID] = links
	for _, l := range links {
		m.sites[l.SiteID] = struct{}{}
	}
	m.pairs += len(links)
}

// Mode returns the travel mode the matrix was built for.
func (m *Matrix) Mode() model.TravelMode { return m.mode }

// Kind returns whether the matrix is boolean or weighted.
func (m *Matrix) Kind() Kind { return m.kind }

// Pairs returns the number of reachable (unit, site) pairs.
func (m *Matrix) Pairs() int { return m.pairs }

// Reach returns the sites reachable from a unit, sorted by site ID. The
// returned slice must not be modified.
func (m *Matrix) Reach(unitID string) []Link {
	return m.reach[unitID]
}

// Reaches reports whether siteID reaches unitID at all.
func (m *Matrix) Reaches(unitID, siteID string) bool {
	links := m.reach[unitID]
	i := sort.Search(len(links), func(i int) bool { return links[i].SiteID >= siteID })
	return i < len(links) && links[i].SiteID == siteID
}

// UnitIDs returns the units with at least one entry, sorted.
func (m *Matrix) UnitIDs() []string {
	ids := make([]string, 0, len(m.reach))
	for id := range m.reach {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks that every unit and site the matrix references exists in
// the instance. Units absent from the matrix are simply unreachable.
func (m *Matrix) Validate(units []model.DemandUnit, sites []model.CandidateSite) error {
	knownUnits := make(map[string]struct{}, len(units))
	for _, u := range units {
		knownUnits[u.ID] = struct{}{}
	}
	knownSites := make(map[string]struct{}, len(sites))
	for _, s := range sites {
		knownSites[s.ID] = struct{}{}
	}

	for _, unitID := range m.UnitIDs() {
		if _, ok := knownUnits[unitID]; !ok {
			return &model.DataInconsistencyError{Kind: "demand unit", ID: unitID, Detail: fmt.Sprintf("referenced by %s reachability but not in instance", m.mode)}
		}
	}
	siteIDs := make([]string, 0, len(m.sites))
	for id := range m.sites {
		siteIDs = append(siteIDs, id)
	}
	sort.Strings(siteIDs)
	for _, siteID := range siteIDs {
		if _, ok := knownSites[siteID]; !ok {
			return &model.DataInconsistencyError{Kind: "candidate site", ID: siteID, Detail: fmt.Sprintf("referenced by %s reachability but not in instance", m.mode)}
		}
	}
	return nil
}
