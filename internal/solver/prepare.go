package solver

import (
	"math"
	"math/bits"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/heatsafenet/hubsite/internal/coverage"
	"github.com/heatsafenet/hubsite/internal/model"
)

const coverEps = 1e-9

// prepared is the dense, read-only form of a Problem. Sites are ordered by
// ID so that index order and lexicographic ID order agree.
type prepared struct {
	n, m      int
	sites     []model.CandidateSite
	siteCat   []int
	suffixCat []uint32

	unitIDs []string
	demand  []float64
	pop     []float64
	risk    []float64
	high    []bool

	totalPop  float64
	totalHigh float64
	highUnits int

	idx       *coverage.Index
	threshold float64
	boolean   bool

	equity bool
	floor  float64

	prox [][]float64
}

func (s *Solver) prepare(p Problem) *prepared {
	sites := make([]model.CandidateSite, len(p.Sites))
	copy(sites, p.Sites)
	sort.Slice(sites, func(i, j int) bool { return sites[i].ID < sites[j].ID })

	pr := &prepared{
		n:       len(sites),
		m:       p.K,
		sites:   sites,
		boolean: p.Matrix.Kind() == coverage.KindBoolean,
		equity:  p.Equity.Enabled,
		floor:   p.Equity.Floor,
	}
	if pr.boolean {
		pr.threshold = 1
	} else {
		pr.threshold = s.cfg.CoverageThreshold
	}

	highThreshold := p.Equity.HighRiskThreshold
	if highThreshold <= 0 {
		highThreshold = s.cfg.HighRiskThreshold
	}

	pr.unitIDs = make([]string, len(p.Units))
	pr.demand = make([]float64, len(p.Units))
	pr.pop = make([]float64, len(p.Units))
	pr.risk = make([]float64, len(p.Units))
	pr.high = make([]bool, len(p.Units))
	for i, u := range p.Units {
		pr.unitIDs[i] = u.UnitID
		pr.demand[i] = u.Demand
		pr.pop[i] = u.Population
		pr.risk[i] = u.Risk
		pr.totalPop += u.Population
		if u.Risk > highThreshold {
			pr.high[i] = true
			pr.highUnits++
			pr.totalHigh += u.Population
		}
	}
	if pr.totalHigh == 0 {
		// Nothing to protect: the floor holds vacuously.
		pr.equity = false
	}

	siteIDs := make([]string, len(sites))
	for j, st := range sites {
		siteIDs[j] = st.ID
	}
	pr.idx = p.Matrix.Index(pr.unitIDs, siteIDs)

	pr.siteCat = make([]int, pr.n)
	for j, st := range sites {
		pr.siteCat[j] = categoryIndex(st.Category)
	}
	pr.suffixCat = make([]uint32, pr.n+1)
	for j := pr.n - 1; j >= 0; j-- {
		pr.suffixCat[j] = pr.suffixCat[j+1] | 1<<uint(pr.siteCat[j])
	}

	if pr.n <= s.cfg.ExactMaxCandidates {
		pr.prox = proximityMatrix(sites)
	}
	return pr
}

func categoryIndex(c model.Category) int {
	for i, k := range model.Categories {
		if k == c {
			return i
		}
	}
	return len(model.Categories) - 1
}

// proximityMatrix holds 1/(1+d) for every site pair, d the great-circle
// distance in kilometers.
func proximityMatrix(sites []model.CandidateSite) [][]float64 {
	prox := make([][]float64, len(sites))
	for a := range sites {
		prox[a] = make([]float64, len(sites))
	}
	for a := range sites {
		pa := orb.Point{sites[a].Location.Lon, sites[a].Location.Lat}
		for b := a + 1; b < len(sites); b++ {
			pb := orb.Point{sites[b].Location.Lon, sites[b].Location.Lat}
			v := 1 / (1 + geo.Distance(pa, pb)/1000)
			prox[a][b] = v
			prox[b][a] = v
		}
	}
	return prox
}

func (pr *prepared) covered(acc float64) bool {
	return acc >= pr.threshold-coverEps
}

// equityReachable reports whether selecting every eligible site would meet
// the floor. If not, no budgeted subset can.
func (pr *prepared) equityReachable() bool {
	var highCovered float64
	for i, links := range pr.idx.UnitSites {
		if !pr.high[i] {
			continue
		}
		var acc float64
		for _, e := range links {
			acc += e.Access
		}
		if pr.covered(acc) {
			highCovered += pr.pop[i]
		}
	}
	return meetsFloor(highCovered, pr.totalHigh, pr.floor)
}

func meetsFloor(covered, total, floor float64) bool {
	if total <= 0 {
		return true
	}
	return covered/total >= floor-coverEps
}

type evaluation struct {
	acc         []float64
	covered     []bool
	objective   float64
	highCovered float64
}

// evaluate computes coverage of a selection from scratch, in unit order.
func (pr *prepared) evaluate(sel []int) evaluation {
	ev := evaluation{acc: make([]float64, len(pr.demand)), covered: make([]bool, len(pr.demand))}
	for _, j := range sel {
		for _, e := range pr.idx.SiteUnits[j] {
			ev.acc[e.Index] += e.Access
		}
	}
	for i, a := range ev.acc {
		if !pr.covered(a) {
			continue
		}
		ev.covered[i] = true
		ev.objective += pr.demand[i]
		if pr.high[i] {
			ev.highCovered += pr.pop[i]
		}
	}
	return ev
}

// diversity counts distinct categories in a selection.
func (pr *prepared) diversity(sel []int) int {
	var mask uint32
	for _, j := range sel {
		mask |= 1 << uint(pr.siteCat[j])
	}
	return bits.OnesCount32(mask)
}

// proximity sums pairwise proximity over a selection.
func (pr *prepared) proximity(sel []int) float64 {
	var sum float64
	for a := 0; a < len(sel); a++ {
		for b := a + 1; b < len(sel); b++ {
			sum += pr.proxAt(sel[a], sel[b])
		}
	}
	return sum
}

func (pr *prepared) proxAt(a, b int) float64 {
	if pr.prox != nil {
		return pr.prox[a][b]
	}
	pa := orb.Point{pr.sites[a].Location.Lon, pr.sites[a].Location.Lat}
	pb := orb.Point{pr.sites[b].Location.Lon, pr.sites[b].Location.Lat}
	return 1 / (1 + geo.Distance(pa, pb)/1000)
}

func approxEqual(a, b float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= 1e-9*scale
}
