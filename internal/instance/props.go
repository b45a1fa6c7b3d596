package instance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/heatsafenet/hubsite/internal/model"
)

// Attribute aliases accepted by the loaders, in priority order.
var (
	unitIDKeys     = []string{"id", "geoid", "unit_id"}
	countyKeys     = []string{"county", "county_name"}
	populationKeys = []string{"population", "total_population", "pop"}
	siteIDKeys     = []string{"id", "site_id", "osm_id"}
	nameKeys       = []string{"name"}
	categoryKeys   = []string{"category", "amenity"}
	sizeKeys       = []string{"size_m2", "footprint_area_m2", "area_m2"}
	latKeys        = []string{"lat", "latitude"}
	lonKeys        = []string{"lon", "lng", "longitude"}
)

// flagKeys maps each site flag to its accepted attribute names. Shapefile
// field names are truncated to ten characters.
var flagKeys = map[model.Flag][]string{
	model.FlagHazardZone:  {"hazard_zone", "hazard_zon", "hazard"},
	model.FlagFloodZone:   {"flood_zone", "flood"},
	model.FlagNoBroadband: {"no_broadband", "no_broadba"},
}

// attrs is a case-insensitive attribute lookup over feature properties or
// table rows.
type attrs map[string]any

func newAttrs(raw map[string]any) attrs {
	a := make(attrs, len(raw))
	for k, v := range raw {
		a[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return a
}

func (a attrs) lookup(keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := a[k]; ok && v != nil {
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
				continue
			}
			return v, true
		}
	}
	return nil, false
}

func (a attrs) str(keys []string) string {
	v, ok := a.lookup(keys)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func (a attrs) float(keys []string) (float64, bool, error) {
	v, ok := a.lookup(keys)
	if !ok {
		return 0, false, nil
	}
	switch t := v.(type) {
	case float64:
		return t, true, nil
	case int:
		return float64(t), true, nil
	case int64:
		return float64(t), true, nil
	case json.Number:
		f, err := t.Float64()
		return f, err == nil, err
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false, err
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("unsupported value %v", v)
	}
}

func (a attrs) boolean(keys []string) bool {
	v, ok := a.lookup(keys)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "t", "true", "y", "yes":
			return true
		}
	}
	return false
}

// demandUnit builds a unit from attributes. Components absent from the
// attributes stay absent so composition can report them.
func (a attrs) demandUnit(fallbackID string) (model.DemandUnit, error) {
	u := model.DemandUnit{
		ID:         a.str(unitIDKeys),
		County:     a.str(countyKeys),
		Components: make(map[string]float64, len(model.Components)),
	}
	if u.ID == "" {
		u.ID = fallbackID
	}
	pop, ok, err := a.float(populationKeys)
	if err != nil {
		return u, &model.DataInconsistencyError{Kind: "demand unit", ID: u.ID, Detail: "invalid population: " + err.Error()}
	}
	if ok {
		u.Population = pop
	}
	for _, c := range model.Components {
		v, ok, err := a.float([]string{c})
		if err != nil {
			return u, &model.DataInconsistencyError{Kind: "demand unit", ID: u.ID, Detail: "invalid " + c + ": " + err.Error()}
		}
		if ok {
			u.Components[c] = v
		}
	}
	return u, nil
}

// candidateSite builds a site from attributes; the location is set by the
// caller from geometry when present.
func (a attrs) candidateSite(fallbackID string) (model.CandidateSite, error) {
	s := model.CandidateSite{
		ID:       a.str(siteIDKeys),
		Name:     a.str(nameKeys),
		Category: model.ParseCategory(a.str(categoryKeys)),
	}
	if s.ID == "" {
		s.ID = fallbackID
	}
	size, ok, err := a.float(sizeKeys)
	if err != nil {
		return s, &model.DataInconsistencyError{Kind: "candidate site", ID: s.ID, Detail: "invalid size: " + err.Error()}
	}
	if ok {
		s.SizeM2 = size
	}
	for _, f := range []model.Flag{model.FlagHazardZone, model.FlagFloodZone, model.FlagNoBroadband} {
		if a.boolean(flagKeys[f]) {
			s.Flags = append(s.Flags, f)
		}
	}
	if raw, ok := a.lookup([]string{"flags"}); ok {
		if list, isList := raw.([]any); isList {
			for _, item := range list {
				f := model.Flag(strings.ToLower(fmt.Sprint(item)))
				if !s.HasFlag(f) {
					s.Flags = append(s.Flags, f)
				}
			}
		}
	}
	return s, nil
}
