package solver

import (
	"math/bits"
	"sort"

	"github.com/heatsafenet/hubsite/internal/coverage"
)

// incumbent is the best complete selection found so far.
type incumbent struct {
	sel  []int
	obj  float64
	high float64
	div  int
	prox float64
}

// better reports whether a ranks strictly ahead of b: higher objective, then
// more distinct categories, then lower pairwise proximity, then the lower
// sorted site ID list.
func better(a, b *incumbent) bool {
	if !approxEqual(a.obj, b.obj) {
		return a.obj > b.obj
	}
	if a.div != b.div {
		return a.div > b.div
	}
	if !approxEqual(a.prox, b.prox) {
		return a.prox < b.prox
	}
	return lexLess(a.sel, b.sel)
}

func lexLess(a, b []int) bool {
	for t := 0; t < len(a) && t < len(b); t++ {
		if a[t] != b[t] {
			return a[t] < b[t]
		}
	}
	return len(a) < len(b)
}

// lexCanBeat reports whether some completion of prefix, choosing only sites
// at index j or later, sorts strictly before best.
func lexCanBeat(prefix []int, j int, best []int) bool {
	c := len(prefix)
	for t := 0; t < c; t++ {
		if prefix[t] != best[t] {
			return prefix[t] < best[t]
		}
	}
	if c >= len(best) || best[c] < j {
		return false
	}
	prev := j - 1
	for t := c; t < len(best); t++ {
		if best[t]-prev > 1 {
			return true
		}
		prev = best[t]
	}
	return false
}

type accUndo struct {
	unit int
	acc  float64
}

type frame struct {
	undo            int
	obj, high, prox float64
}

// search is a depth-first branch and bound over sites in ID order, trying
// inclusion before exclusion.
type search struct {
	pr   *prepared
	best *incumbent

	acc      []float64
	undo     []accUndo
	sel      []int
	catCount []int
	curObj   float64
	curHigh  float64
	curProx  float64

	nodes      int64
	checkEvery int64
	stop       func() bool
	stopped    bool

	gains     []float64
	highGains []float64
	buf       []float64
}

func newSearch(pr *prepared, warm []int, checkEvery int64, stop func() bool) *search {
	if checkEvery <= 0 {
		checkEvery = defaultCheckEvery
	}
	s := &search{
		pr:         pr,
		acc:        make([]float64, len(pr.demand)),
		sel:        make([]int, 0, pr.m),
		catCount:   make([]int, 32),
		checkEvery: checkEvery,
		stop:       stop,
		gains:      make([]float64, 0, pr.n),
		highGains:  make([]float64, 0, pr.n),
	}
	if warm != nil {
		s.best = s.score(warm)
	}
	return s
}

func (s *search) score(sel []int) *incumbent {
	ev := s.pr.evaluate(sel)
	return &incumbent{
		sel:  append([]int(nil), sel...),
		obj:  ev.objective,
		high: ev.highCovered,
		div:  s.pr.diversity(sel),
		prox: s.pr.proximity(sel),
	}
}

func (s *search) run() {
	s.dfs(0)
}

func (s *search) dfs(j int) {
	s.nodes++
	if s.nodes%s.checkEvery == 0 && s.stop() {
		s.stopped = true
	}
	if s.stopped {
		return
	}

	pr := s.pr
	r := pr.m - len(s.sel)
	if r == 0 {
		s.leaf()
		return
	}
	if pr.n-j < r || s.prune(j, r) {
		return
	}

	f := s.push(j)
	s.dfs(j + 1)
	s.pop(f)
	if s.stopped {
		return
	}
	s.dfs(j + 1)
}

func (s *search) leaf() {
	cand := s.score(s.sel)
	if s.pr.equity && !meetsFloor(cand.high, s.pr.totalHigh, s.pr.floor) {
		return
	}
	if s.best == nil || better(cand, s.best) {
		s.best = cand
	}
}

func (s *search) push(j int) frame {
	pr := s.pr
	f := frame{undo: len(s.undo), obj: s.curObj, high: s.curHigh, prox: s.curProx}
	for _, q := range s.sel {
		s.curProx += pr.proxAt(q, j)
	}
	for _, e := range pr.idx.SiteUnits[j] {
		i := e.Index
		s.undo = append(s.undo, accUndo{unit: i, acc: s.acc[i]})
		before := pr.covered(s.acc[i])
		s.acc[i] += e.Access
		if !before && pr.covered(s.acc[i]) {
			s.curObj += pr.demand[i]
			if pr.high[i] {
				s.curHigh += pr.pop[i]
			}
		}
	}
	s.sel = append(s.sel, j)
	s.catCount[pr.siteCat[j]]++
	return f
}

func (s *search) pop(f frame) {
	for k := len(s.undo) - 1; k >= f.undo; k-- {
		s.acc[s.undo[k].unit] = s.undo[k].acc
	}
	s.undo = s.undo[:f.undo]
	last := s.sel[len(s.sel)-1]
	s.sel = s.sel[:len(s.sel)-1]
	s.catCount[s.pr.siteCat[last]]--
	s.curObj, s.curHigh, s.curProx = f.obj, f.high, f.prox
}

// prune reports whether no completion of the current node, picking r more
// sites from index j on, can satisfy equity and beat the incumbent.
func (s *search) prune(j, r int) bool {
	pr := s.pr
	objUB, highUB := s.bounds(j, r)
	if pr.equity && !meetsFloor(highUB, pr.totalHigh, pr.floor) {
		return true
	}
	b := s.best
	if b == nil {
		return false
	}
	if !approxEqual(objUB, b.obj) {
		return objUB < b.obj
	}

	var mask uint32
	for c, n := range s.catCount {
		if n > 0 {
			mask |= 1 << uint(c)
		}
	}
	divUB := bits.OnesCount32(mask) + min(r, bits.OnesCount32(pr.suffixCat[j]&^mask))
	if divUB != b.div {
		return divUB < b.div
	}
	if !approxEqual(s.curProx, b.prox) {
		return s.curProx > b.prox
	}
	return !lexCanBeat(s.sel, j, b.sel)
}

// bounds returns upper bounds on the objective and on covered high-risk
// population over all completions. A unit is counted only if the r largest
// remaining accessibilities could lift it to the threshold. Boolean matrices
// are additionally bounded by the r largest marginal gains, which is valid
// because boolean coverage is submodular.
func (s *search) bounds(j, r int) (float64, float64) {
	pr := s.pr
	var objAdd, highAdd float64
	for i, links := range pr.idx.UnitSites {
		if pr.covered(s.acc[i]) || !s.coverable(i, links, j, r) {
			continue
		}
		objAdd += pr.demand[i]
		if pr.high[i] {
			highAdd += pr.pop[i]
		}
	}
	objUB, highUB := s.curObj+objAdd, s.curHigh+highAdd
	if pr.boolean {
		gain, highGain := s.marginalBound(j, r)
		objUB = min(objUB, s.curObj+gain)
		highUB = min(highUB, s.curHigh+highGain)
	}
	return objUB, highUB
}

func (s *search) coverable(i int, links []coverage.Entry, j, r int) bool {
	start := sort.Search(len(links), func(k int) bool { return links[k].Index >= j })
	rest := links[start:]
	if len(rest) == 0 {
		return false
	}
	pr := s.pr
	if pr.boolean {
		return true
	}
	s.buf = s.buf[:0]
	for _, e := range rest {
		s.buf = append(s.buf, e.Access)
	}
	if len(s.buf) > r {
		sort.Sort(sort.Reverse(sort.Float64Slice(s.buf)))
		s.buf = s.buf[:r]
	}
	acc := s.acc[i]
	for _, a := range s.buf {
		acc += a
	}
	return pr.covered(acc)
}

func (s *search) marginalBound(j, r int) (float64, float64) {
	pr := s.pr
	s.gains = s.gains[:0]
	s.highGains = s.highGains[:0]
	for q := j; q < pr.n; q++ {
		var g, h float64
		for _, e := range pr.idx.SiteUnits[q] {
			if pr.covered(s.acc[e.Index]) {
				continue
			}
			g += pr.demand[e.Index]
			if pr.high[e.Index] {
				h += pr.pop[e.Index]
			}
		}
		s.gains = append(s.gains, g)
		s.highGains = append(s.highGains, h)
	}
	return topSum(s.gains, r), topSum(s.highGains, r)
}

func topSum(x []float64, r int) float64 {
	if len(x) > r {
		sort.Sort(sort.Reverse(sort.Float64Slice(x)))
		x = x[:r]
	}
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum
}
