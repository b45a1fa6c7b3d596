package risk

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/heatsafenet/hubsite/internal/model"
)

// HighRiskCutoff is the risk above which a unit counts toward HighRiskShare.
const HighRiskCutoff = 0.75

// Quartile labels a unit's risk relative to its county.
type Quartile string

const (
	QuartileLow     Quartile = "Q1_Low"
	QuartileMedLow  Quartile = "Q2_Med_Low"
	QuartileMedHigh Quartile = "Q3_Med_High"
	QuartileHigh    Quartile = "Q4_High"
)

// ComponentStats describes one risk component across all units.
type ComponentStats struct {
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Weight float64 `json:"weight"`
}

// CountySummary aggregates composed risk within one county.
type CountySummary struct {
	Units         int     `json:"n_units"`
	RiskMean      float64 `json:"risk_mean"`
	Population    float64 `json:"population_total"`
	HighRiskShare float64 `json:"high_risk_share"`
	TotalDemand   float64 `json:"total_weighted_demand"`
}

// Summary describes the composed risk surface of one geography.
type Summary struct {
	Units         int                       `json:"n_units"`
	RiskMean      float64                   `json:"risk_mean"`
	RiskStd       float64                   `json:"risk_std"`
	RiskMin       float64                   `json:"risk_min"`
	RiskMax       float64                   `json:"risk_max"`
	HighRiskShare float64                   `json:"high_risk_share"`
	Population    float64                   `json:"population_total"`
	TotalDemand   float64                   `json:"total_weighted_demand"`
	Components    map[string]ComponentStats `json:"components"`
	ByCounty      map[string]CountySummary  `json:"by_county"`
}

// Summarize computes summary statistics. composed must be the output of
// c.Compose(units), index-aligned with units.
func (c *Composer) Summarize(units []model.DemandUnit, composed []model.ComposedUnit) (Summary, error) {
	if len(units) != len(composed) {
		return Summary{}, eris.Errorf("risk: summarize: %d units but %d composed", len(units), len(composed))
	}
	s := Summary{
		Units:      len(units),
		Components: make(map[string]ComponentStats),
		ByCounty:   make(map[string]CountySummary),
	}
	if len(units) == 0 {
		return s, nil
	}

	risks := make([]float64, len(composed))
	for i, cu := range composed {
		risks[i] = cu.Risk
		s.Population += cu.Population
		s.TotalDemand += cu.Demand
	}
	s.RiskMean, s.RiskStd = meanStd(risks)
	s.RiskMin = floats.Min(risks)
	s.RiskMax = floats.Max(risks)
	s.HighRiskShare = highRiskShare(risks)

	for _, name := range c.weights.Keys() {
		vals := make([]float64, 0, len(units))
		for _, u := range units {
			if v, ok := u.Component(name); ok {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			continue
		}
		mean, std := meanStd(vals)
		s.Components[name] = ComponentStats{Mean: mean, Std: std, Weight: c.weights[name]}
	}

	for county, idx := range groupByCounty(units) {
		cr := make([]float64, len(idx))
		cs := CountySummary{Units: len(idx)}
		for j, i := range idx {
			cr[j] = composed[i].Risk
			cs.Population += composed[i].Population
			cs.TotalDemand += composed[i].Demand
		}
		cs.RiskMean = stat.Mean(cr, nil)
		cs.HighRiskShare = highRiskShare(cr)
		s.ByCounty[county] = cs
	}
	return s, nil
}

// Quartiles classifies each unit's risk against the quartiles of its county.
// The result is keyed by unit ID.
func Quartiles(units []model.DemandUnit, composed []model.ComposedUnit) (map[string]Quartile, error) {
	if len(units) != len(composed) {
		return nil, eris.Errorf("risk: quartiles: %d units but %d composed", len(units), len(composed))
	}
	out := make(map[string]Quartile, len(units))
	for _, idx := range groupByCounty(units) {
		sorted := make([]float64, len(idx))
		for j, i := range idx {
			sorted[j] = composed[i].Risk
		}
		sort.Float64s(sorted)
		q1 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
		q2 := stat.Quantile(0.5, stat.Empirical, sorted, nil)
		q3 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
		for _, i := range idx {
			r := composed[i].Risk
			switch {
			case r <= q1:
				out[composed[i].UnitID] = QuartileLow
			case r <= q2:
				out[composed[i].UnitID] = QuartileMedLow
			case r <= q3:
				out[composed[i].UnitID] = QuartileMedHigh
			default:
				out[composed[i].UnitID] = QuartileHigh
			}
		}
	}
	return out, nil
}

func groupByCounty(units []model.DemandUnit) map[string][]int {
	groups := make(map[string][]int)
	for i, u := range units {
		groups[u.County] = append(groups[u.County], i)
	}
	return groups
}

func meanStd(x []float64) (float64, float64) {
	if len(x) < 2 {
		return stat.Mean(x, nil), 0
	}
	mean, std := stat.MeanStdDev(x, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return mean, std
}

func highRiskShare(risks []float64) float64 {
	if len(risks) == 0 {
		return 0
	}
	var n int
	for _, r := range risks {
		if r > HighRiskCutoff {
			n++
		}
	}
	return float64(n) / float64(len(risks))
}
