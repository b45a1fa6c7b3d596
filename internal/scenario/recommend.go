package scenario

import (
	"sort"

	"github.com/heatsafenet/hubsite/internal/model"
)

// Suitability scoring constants.
const (
	baseSuitability     = 0.5
	largeFootprintM2    = 2000
	smallFootprintM2    = 500
	footprintAdjustment = 0.1
	// MinSiteSizeM2 is the smallest footprint considered usable as a hub.
	MinSiteSizeM2 = 300
	// nominalSizeM2 stands in for sites with no recorded footprint.
	nominalSizeM2 = 1000
)

var categorySuitability = map[model.Category]float64{
	model.CategorySchool:          0.9,
	model.CategoryLibrary:         0.9,
	model.CategoryCommunityCentre: 0.85,
	model.CategoryPlaceOfWorship:  0.7,
	model.CategoryHospital:        0.6,
}

// Suitability scores a site in [0,1] from its category and footprint.
func Suitability(site model.CandidateSite) float64 {
	score, ok := categorySuitability[site.Category]
	if !ok {
		score = baseSuitability
	}
	switch size := footprint(site); {
	case size > largeFootprintM2:
		score += footprintAdjustment
	case size < smallFootprintM2:
		score -= footprintAdjustment
	}
	return min(1, max(0, score))
}

func footprint(site model.CandidateSite) float64 {
	if site.SizeM2 <= 0 {
		return nominalSizeM2
	}
	return site.SizeM2
}

// Constraints reports site checks that inform a recommendation but are not
// exclusion rules.
type Constraints struct {
	MinSizeMet         bool `json:"min_size_met"`
	FloodRisk          bool `json:"flood_risk"`
	HazardRisk         bool `json:"hazard_risk"`
	BroadbandAvailable bool `json:"broadband_available"`
}

// CheckConstraints evaluates a site's constraints.
func CheckConstraints(site model.CandidateSite) Constraints {
	return Constraints{
		MinSizeMet:         footprint(site) >= MinSiteSizeM2,
		FloodRisk:          site.HasFlag(model.FlagFloodZone),
		HazardRisk:         site.HasFlag(model.FlagHazardZone),
		BroadbandAvailable: !site.HasFlag(model.FlagNoBroadband),
	}
}

// Recommendation is one selected site ranked for reporting.
type Recommendation struct {
	Rank                 int                 `json:"rank"`
	Site                 model.CandidateSite `json:"site"`
	CoveredPopulation    float64             `json:"covered_population"`
	UniquePopulation     float64             `json:"unique_population"`
	RiskWeightedCoverage float64             `json:"risk_weighted_coverage"`
	Suitability          float64             `json:"suitability_score"`
	Constraints          Constraints         `json:"constraints"`
}

// DefaultRecommendLimit caps recommendations when no limit is given.
const DefaultRecommendLimit = 15

// Recommend ranks a result's selected sites by risk-weighted coverage, then
// suitability, then site ID, keeping at most limit entries.
func Recommend(res *model.Result, limit int) []Recommendation {
	if limit <= 0 {
		limit = DefaultRecommendLimit
	}
	recs := make([]Recommendation, 0, len(res.Selected))
	for _, s := range res.Selected {
		recs = append(recs, Recommendation{
			Site:                 s.Site,
			CoveredPopulation:    s.CoveredPopulation,
			UniquePopulation:     s.UniquePopulation,
			RiskWeightedCoverage: s.RiskWeightedCoverage,
			Suitability:          Suitability(s.Site),
			Constraints:          CheckConstraints(s.Site),
		})
	}
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.RiskWeightedCoverage != b.RiskWeightedCoverage {
			return a.RiskWeightedCoverage > b.RiskWeightedCoverage
		}
		if a.Suitability != b.Suitability {
			return a.Suitability > b.Suitability
		}
		return a.Site.ID < b.Site.ID
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	for i := range recs {
		recs[i].Rank = i + 1
	}
	return recs
}
