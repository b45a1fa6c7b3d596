package solver

import (
	"sort"
	"time"

	"github.com/heatsafenet/hubsite/internal/model"
)

// result assembles the public result for a selection. Selected sites are
// ordered by ID and per-site attribution only counts covered units.
func (pr *prepared) result(p Problem, sel []int, status model.SolveStatus, reason model.FallbackReason, nodes int64, elapsed time.Duration) *model.Result {
	sorted := append([]int(nil), sel...)
	sort.Ints(sorted)
	ev := pr.evaluate(sorted)

	reachCount := make([]int, len(pr.demand))
	for _, j := range sorted {
		for _, e := range pr.idx.SiteUnits[j] {
			reachCount[e.Index]++
		}
	}

	res := &model.Result{
		Mode:            p.Matrix.Mode(),
		K:               p.K,
		Status:          status,
		SolvedOptimally: status == model.StatusOptimal,
		Fallback:        reason,
		Selected:        make([]model.SelectedSite, 0, len(sorted)),
		CoveredUnitIDs:  []string{},
	}

	for _, j := range sorted {
		ss := model.SelectedSite{Site: pr.sites[j], CoveredUnits: []string{}}
		for _, e := range pr.idx.SiteUnits[j] {
			i := e.Index
			if !ev.covered[i] {
				continue
			}
			ss.CoveredUnits = append(ss.CoveredUnits, pr.unitIDs[i])
			ss.CoveredPopulation += pr.pop[i]
			ss.RiskWeightedCoverage += pr.pop[i] * pr.risk[i]
			if reachCount[i] == 1 {
				ss.UniquePopulation += pr.pop[i]
			}
		}
		sort.Strings(ss.CoveredUnits)
		res.Selected = append(res.Selected, ss)
	}

	st := model.Stats{
		SitesSelected:   len(sorted),
		EligibleSites:   pr.n,
		TotalUnits:      len(pr.demand),
		TotalPopulation: pr.totalPop,
		ObjectiveValue:  ev.objective,
		HighRiskUnits:   pr.highUnits,
		SolveTime:       elapsed,
		NodesExplored:   nodes,
	}
	for i, c := range ev.covered {
		if !c {
			continue
		}
		res.CoveredUnitIDs = append(res.CoveredUnitIDs, pr.unitIDs[i])
		st.CoveredUnits++
		st.CoveredPopulation += pr.pop[i]
		st.RiskWeightedCoverage += pr.pop[i] * pr.risk[i]
	}
	sort.Strings(res.CoveredUnitIDs)
	if st.TotalPopulation > 0 {
		st.CoverageRate = st.CoveredPopulation / st.TotalPopulation
	}
	st.HighRiskCoverageRate = 1
	if pr.totalHigh > 0 {
		st.HighRiskCoverageRate = ev.highCovered / pr.totalHigh
	}
	res.Stats = st
	return res
}
