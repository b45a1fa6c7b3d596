package solver

import (
	"math"
	"sort"
)

// greedyKey ranks one greedy step. Fields compare in order.
type greedyKey struct {
	primary   float64
	secondary float64
	progress  float64
	newCat    bool
}

func (k greedyKey) better(o greedyKey) bool {
	if !approxEqual(k.primary, o.primary) {
		return k.primary > o.primary
	}
	if !approxEqual(k.secondary, o.secondary) {
		return k.secondary > o.secondary
	}
	if !approxEqual(k.progress, o.progress) {
		return k.progress > o.progress
	}
	return k.newCat && !o.newCat
}

// greedy builds a selection of exactly m sites. While the equity floor is
// unmet it picks the site adding the most high-risk population; afterwards
// it picks by objective gain. It returns nil if the floor is still unmet.
func (pr *prepared) greedy() []int {
	acc := make([]float64, len(pr.demand))
	chosen := make([]bool, pr.n)
	sel := make([]int, 0, pr.m)
	var highCovered float64
	var mask uint32

	for len(sel) < pr.m {
		needHigh := pr.equity && !meetsFloor(highCovered, pr.totalHigh, pr.floor)
		best := -1
		var bestKey greedyKey
		for j := 0; j < pr.n; j++ {
			if chosen[j] {
				continue
			}
			k := pr.greedyStep(j, acc, needHigh, mask)
			if best < 0 || k.better(bestKey) {
				best, bestKey = j, k
			}
		}

		chosen[best] = true
		sel = append(sel, best)
		mask |= 1 << uint(pr.siteCat[best])
		for _, e := range pr.idx.SiteUnits[best] {
			before := pr.covered(acc[e.Index])
			acc[e.Index] += e.Access
			if !before && pr.covered(acc[e.Index]) && pr.high[e.Index] {
				highCovered += pr.pop[e.Index]
			}
		}
	}

	sort.Ints(sel)
	if pr.equity && !meetsFloor(highCovered, pr.totalHigh, pr.floor) {
		return nil
	}
	return sel
}

func (pr *prepared) greedyStep(j int, acc []float64, needHigh bool, mask uint32) greedyKey {
	var gain, highGain, progress float64
	for _, e := range pr.idx.SiteUnits[j] {
		i := e.Index
		if pr.covered(acc[i]) {
			continue
		}
		if pr.covered(acc[i] + e.Access) {
			gain += pr.demand[i]
			if pr.high[i] {
				highGain += pr.pop[i]
			}
		}
		w := pr.demand[i]
		if needHigh {
			if !pr.high[i] {
				continue
			}
			w = pr.pop[i]
		}
		progress += w * math.Min(e.Access, pr.threshold-acc[i]) / pr.threshold
	}
	k := greedyKey{primary: gain, progress: progress, newCat: mask&(1<<uint(pr.siteCat[j])) == 0}
	if needHigh {
		k.primary, k.secondary = highGain, gain
	}
	return k
}
