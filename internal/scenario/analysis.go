package scenario

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DiminishingReturnsThreshold is the marginal coverage rate per added site
// below which a budget step is flagged as diminishing returns.
const DiminishingReturnsThreshold = 0.01

// Point is one solved budget within a series.
type Point struct {
	ScenarioID           string        `json:"scenario_id"`
	K                    int           `json:"k"`
	SitesSelected        int           `json:"sites_selected"`
	CoverageRate         float64       `json:"coverage_rate"`
	CoveredPopulation    float64       `json:"covered_population"`
	RiskWeightedCoverage float64       `json:"risk_weighted_coverage"`
	SolveTime            time.Duration `json:"solve_time_ns"`
	SolvedOptimally      bool          `json:"solved_optimally"`
}

// Marginal is the risk-weighted coverage gained per added site between two
// consecutive budgets.
type Marginal struct {
	FromK   int     `json:"from_k"`
	ToK     int     `json:"to_k"`
	Benefit float64 `json:"marginal_benefit"`
}

// Efficiency is the coverage rate gained per added site at one budget.
type Efficiency struct {
	K                  int     `json:"k"`
	CoveragePerSite    float64 `json:"marginal_coverage_per_site"`
	DiminishingReturns bool    `json:"diminishing_returns"`
}

// Series is every successful budget of one scenario family, sorted by K.
type Series struct {
	Name       string       `json:"name"`
	Geography  string       `json:"geography"`
	Mode       string       `json:"mode"`
	Points     []Point      `json:"points"`
	Marginals  []Marginal   `json:"marginal_benefits,omitempty"`
	Efficiency []Efficiency `json:"efficiency"`
}

// Best is the highest-coverage scenario at one budget.
type Best struct {
	K            int     `json:"k"`
	ScenarioID   string  `json:"scenario_id"`
	CoverageRate float64 `json:"coverage_rate"`
}

// Analysis summarizes a batch across budgets.
type Analysis struct {
	Scenarios   int             `json:"scenarios"`
	Failed      int             `json:"failed"`
	FailedCodes map[string]int  `json:"failed_codes,omitempty"`
	Series      []Series        `json:"series"`
	AvgCoverage map[int]float64 `json:"avg_coverage_by_k"`
	BestByK     []Best          `json:"best_by_k"`
}

// Analyze groups successful outcomes into series and computes marginal
// benefit, per-site efficiency, and the best scenario per budget.
func Analyze(b *Batch) Analysis {
	a := Analysis{
		Scenarios:   len(b.Outcomes),
		FailedCodes: make(map[string]int),
		AvgCoverage: make(map[int]float64),
	}

	groups := make(map[string]*Series)
	sums := make(map[int][]float64)
	best := make(map[int]Best)
	for _, id := range b.IDs() {
		out := b.Outcomes[id]
		if out.Err != nil {
			a.Failed++
			a.FailedCodes[string(out.Code())]++
			continue
		}
		r := out.Result
		name := seriesName(id, out.Scenario.K)
		s, ok := groups[name]
		if !ok {
			s = &Series{Name: name, Geography: r.Geography, Mode: string(r.Mode)}
			groups[name] = s
		}
		s.Points = append(s.Points, Point{
			ScenarioID:           id,
			K:                    r.K,
			SitesSelected:        r.Stats.SitesSelected,
			CoverageRate:         r.Stats.CoverageRate,
			CoveredPopulation:    r.Stats.CoveredPopulation,
			RiskWeightedCoverage: r.Stats.RiskWeightedCoverage,
			SolveTime:            r.Stats.SolveTime,
			SolvedOptimally:      r.SolvedOptimally,
		})

		sums[r.K] = append(sums[r.K], r.Stats.CoverageRate)
		// IDs are visited in sorted order, so the first of equal rates wins.
		if cur, ok := best[r.K]; !ok || r.Stats.CoverageRate > cur.CoverageRate {
			best[r.K] = Best{K: r.K, ScenarioID: id, CoverageRate: r.Stats.CoverageRate}
		}
	}
	if len(a.FailedCodes) == 0 {
		a.FailedCodes = nil
	}

	names := make([]string, 0, len(groups))
	for n := range groups {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		s := groups[n]
		sort.Slice(s.Points, func(i, j int) bool { return s.Points[i].K < s.Points[j].K })
		s.Marginals, s.Efficiency = stepMetrics(s.Points)
		a.Series = append(a.Series, *s)
	}

	ks := make([]int, 0, len(best))
	for k, rates := range sums {
		var total float64
		for _, r := range rates {
			total += r
		}
		a.AvgCoverage[k] = total / float64(len(rates))
		ks = append(ks, k)
	}
	sort.Ints(ks)
	for _, k := range ks {
		a.BestByK = append(a.BestByK, best[k])
	}
	return a
}

// stepMetrics derives marginal benefit and efficiency from points sorted
// by K. The first point's efficiency is measured from zero sites.
func stepMetrics(points []Point) ([]Marginal, []Efficiency) {
	var marginals []Marginal
	eff := make([]Efficiency, 0, len(points))
	for i, p := range points {
		if i == 0 {
			e := Efficiency{K: p.K}
			if p.SitesSelected > 0 {
				e.CoveragePerSite = p.CoverageRate / float64(p.SitesSelected)
			}
			eff = append(eff, e)
			continue
		}
		prev := points[i-1]
		if dk := p.K - prev.K; dk > 0 {
			marginals = append(marginals, Marginal{
				FromK:   prev.K,
				ToK:     p.K,
				Benefit: (p.RiskWeightedCoverage - prev.RiskWeightedCoverage) / float64(dk),
			})
		}
		e := Efficiency{K: p.K}
		if ds := p.SitesSelected - prev.SitesSelected; ds > 0 {
			e.CoveragePerSite = (p.CoverageRate - prev.CoverageRate) / float64(ds)
		}
		e.DiminishingReturns = e.CoveragePerSite < DiminishingReturnsThreshold
		eff = append(eff, e)
	}
	return marginals, eff
}

func seriesName(id string, k int) string {
	return strings.TrimSuffix(id, fmt.Sprintf("/K_%d", k))
}
