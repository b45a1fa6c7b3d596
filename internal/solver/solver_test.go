package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heatsafenet/hubsite/internal/coverage"
	"github.com/heatsafenet/hubsite/internal/model"
)

func composed(id string, risk, pop float64) model.ComposedUnit {
	return model.ComposedUnit{UnitID: id, Risk: risk, Population: pop, Demand: risk * pop}
}

func site(id string, cat model.Category, lat, lon float64) model.CandidateSite {
	return model.CandidateSite{ID: id, Name: "Site " + id, Category: cat, Location: model.Point{Lat: lat, Lon: lon}, SizeM2: 1000}
}

// threeUnitProblem is the reference instance: A covers u1 and u2, B covers u3.
func threeUnitProblem() Problem {
	return Problem{
		Units: []model.ComposedUnit{
			composed("u1", 0.9, 100),
			composed("u2", 0.5, 200),
			composed("u3", 0.2, 50),
		},
		Sites: []model.CandidateSite{
			site("A", model.CategorySchool, 33.45, -112.07),
			site("B", model.CategoryLibrary, 33.50, -112.00),
		},
		Matrix: coverage.NewBoolean(model.ModeWalk, map[string][]string{
			"u1": {"A"},
			"u2": {"A"},
			"u3": {"B"},
		}),
		K: 1,
	}
}

func TestSolve_ReferenceScenario(t *testing.T) {
	res, err := New(DefaultConfig()).Solve(context.Background(), threeUnitProblem())
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, res.SiteIDs())
	assert.Equal(t, model.StatusOptimal, res.Status)
	assert.True(t, res.SolvedOptimally)
	assert.Equal(t, model.FallbackNone, res.Fallback)
	assert.InDelta(t, 300.0, res.Stats.CoveredPopulation, 1e-9)
	assert.InDelta(t, 350.0, res.Stats.TotalPopulation, 1e-9)
	assert.InDelta(t, 190.0, res.Stats.ObjectiveValue, 1e-9)
	assert.InDelta(t, 300.0/350.0, res.Stats.CoverageRate, 1e-9)
	assert.Equal(t, 1, res.Stats.SitesSelected)
	assert.Equal(t, []string{"u1", "u2"}, res.CoveredUnitIDs)
	assert.Equal(t, []string{"u1", "u2"}, res.Selected[0].CoveredUnits)
	assert.InDelta(t, 300.0, res.Selected[0].CoveredPopulation, 1e-9)
}

func TestSolve_ReferenceScenarioWithEquity(t *testing.T) {
	p := threeUnitProblem()
	p.Equity = model.Equity{Enabled: true, Floor: 0.8, HighRiskThreshold: 0.6}

	res, err := New(DefaultConfig()).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, res.SiteIDs())
	assert.InDelta(t, 190.0, res.Stats.ObjectiveValue, 1e-9)
	assert.Equal(t, 1, res.Stats.HighRiskUnits)
	assert.InDelta(t, 1.0, res.Stats.HighRiskCoverageRate, 1e-9)
}

func TestSolve_NoEligibleSites(t *testing.T) {
	p := threeUnitProblem()
	p.Sites = nil

	res, err := New(DefaultConfig()).Solve(context.Background(), p)
	require.Error(t, err)
	assert.Nil(t, res)
	var ie *model.InfeasibleScenarioError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, model.CauseNoEligibleSites, ie.Cause)
}

func TestSolve_BudgetExceedsEligible(t *testing.T) {
	p := threeUnitProblem()
	p.K = 3
	_, err := New(DefaultConfig()).Solve(context.Background(), p)
	var ie *model.InfeasibleScenarioError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, model.CauseBudgetExceedsEligible, ie.Cause)
}

func TestSolve_EquityFloorInfeasible(t *testing.T) {
	p := threeUnitProblem()
	// Every unit is high risk and no single site covers all of them.
	p.Equity = model.Equity{Enabled: true, Floor: 1.0, HighRiskThreshold: 0.1}

	_, err := New(DefaultConfig()).Solve(context.Background(), p)
	var ie *model.InfeasibleScenarioError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, model.CauseEquityFloor, ie.Cause)
}

func TestSolve_EquityFloorUnreachableEvenWithAllSites(t *testing.T) {
	p := threeUnitProblem()
	p.Units = append(p.Units, composed("u4", 0.95, 1000))
	p.Equity = model.Equity{Enabled: true, Floor: 0.5, HighRiskThreshold: 0.6}

	_, err := New(DefaultConfig()).Solve(context.Background(), p)
	assert.Equal(t, model.CodeInfeasible, model.CodeOf(err))
}

func TestSolve_EquityChangesSelection(t *testing.T) {
	p := Problem{
		Units: []model.ComposedUnit{
			composed("u1", 0.9, 10),
			composed("u2", 0.5, 100),
		},
		Sites: []model.CandidateSite{
			site("A", model.CategorySchool, 33.4, -112.0),
			site("B", model.CategorySchool, 33.5, -112.1),
		},
		Matrix: coverage.NewBoolean(model.ModeWalk, map[string][]string{"u1": {"B"}, "u2": {"A"}}),
		K:      1,
	}
	slv := New(DefaultConfig())

	res, err := slv.Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, res.SiteIDs())

	p.Equity = model.Equity{Enabled: true, Floor: 0.5, HighRiskThreshold: 0.6}
	res, err = slv.Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, res.SiteIDs())
	assert.InDelta(t, 9.0, res.Stats.ObjectiveValue, 1e-9)
	assert.GreaterOrEqual(t, res.Stats.HighRiskCoverageRate, 0.5)
}

func TestSolve_EquityWithoutHighRiskUnitsIsVacuous(t *testing.T) {
	p := threeUnitProblem()
	p.Equity = model.Equity{Enabled: true, Floor: 1.0, HighRiskThreshold: 0.95}

	res, err := New(DefaultConfig()).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, res.SiteIDs())
	assert.Equal(t, 0, res.Stats.HighRiskUnits)
	assert.Equal(t, 1.0, res.Stats.HighRiskCoverageRate)
}

func TestSolve_TieBreakCategoryDiversity(t *testing.T) {
	p := Problem{
		Units: []model.ComposedUnit{composed("u1", 1, 10), composed("u2", 1, 10), composed("u3", 1, 10)},
		Sites: []model.CandidateSite{
			site("a1", model.CategorySchool, 33.40, -112.00),
			site("a2", model.CategorySchool, 33.41, -112.01),
			site("b", model.CategoryLibrary, 33.42, -112.02),
		},
		Matrix: coverage.NewBoolean(model.ModeWalk, map[string][]string{"u1": {"a1"}, "u2": {"a2", "b"}}),
		K:      2,
	}
	res, err := New(DefaultConfig()).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "b"}, res.SiteIDs())
}

func TestSolve_TieBreakProximity(t *testing.T) {
	p := Problem{
		Units: []model.ComposedUnit{composed("u1", 1, 10), composed("u2", 1, 10)},
		Sites: []model.CandidateSite{
			site("a", model.CategorySchool, 33.40, -112.00),
			site("b", model.CategorySchool, 33.401, -112.001),
			site("c", model.CategorySchool, 33.90, -111.50),
		},
		Matrix: coverage.NewBoolean(model.ModeWalk, map[string][]string{"u1": {"a"}, "u2": {"b", "c"}}),
		K:      2,
	}
	res, err := New(DefaultConfig()).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, res.SiteIDs(), "the spread-out pair wins the tie")
}

func TestSolve_TieBreakLexicographic(t *testing.T) {
	p := Problem{
		Units: []model.ComposedUnit{composed("u1", 1, 10)},
		Sites: []model.CandidateSite{
			site("s2", model.CategorySchool, 33.4, -112.0),
			site("s1", model.CategorySchool, 33.4, -112.0),
		},
		Matrix: coverage.NewBoolean(model.ModeWalk, map[string][]string{"u1": {"s1", "s2"}}),
		K:      1,
	}
	res, err := New(DefaultConfig()).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, res.SiteIDs())
}

func TestSolve_WeightedThreshold(t *testing.T) {
	m, err := coverage.NewWeighted(model.ModeDrive, map[string]map[string]float64{
		"u1": {"A": 0.3, "B": 0.3},
		"u2": {"C": 0.6},
	})
	require.NoError(t, err)
	p := Problem{
		Units: []model.ComposedUnit{composed("u1", 1, 10), composed("u2", 1, 5)},
		Sites: []model.CandidateSite{
			site("A", model.CategorySchool, 33.40, -112.00),
			site("B", model.CategoryLibrary, 33.45, -112.05),
			site("C", model.CategoryClinic, 33.50, -112.10),
		},
		Matrix: m,
		K:      2,
	}
	res, err := New(DefaultConfig()).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, res.SiteIDs())
	assert.InDelta(t, 10.0, res.Stats.ObjectiveValue, 1e-9)
	assert.Equal(t, []string{"u1"}, res.CoveredUnitIDs)

	p.K = 1
	res, err = New(DefaultConfig()).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, res.SiteIDs())
}

func TestSolve_Attribution(t *testing.T) {
	p := Problem{
		Units: []model.ComposedUnit{composed("u1", 0.5, 10), composed("u2", 1, 20), composed("u3", 1, 30)},
		Sites: []model.CandidateSite{
			site("A", model.CategorySchool, 33.40, -112.00),
			site("B", model.CategoryLibrary, 33.50, -112.10),
		},
		Matrix: coverage.NewBoolean(model.ModeWalk, map[string][]string{"u1": {"A"}, "u2": {"A", "B"}, "u3": {"B"}}),
		K:      2,
	}
	res, err := New(DefaultConfig()).Solve(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, res.Selected, 2)

	a, b := res.Selected[0], res.Selected[1]
	assert.Equal(t, "A", a.Site.ID)
	assert.InDelta(t, 30.0, a.CoveredPopulation, 1e-9)
	assert.InDelta(t, 10.0, a.UniquePopulation, 1e-9)
	assert.InDelta(t, 25.0, a.RiskWeightedCoverage, 1e-9)
	assert.Equal(t, "B", b.Site.ID)
	assert.InDelta(t, 50.0, b.CoveredPopulation, 1e-9)
	assert.InDelta(t, 30.0, b.UniquePopulation, 1e-9)
	assert.InDelta(t, 60.0, res.Stats.CoveredPopulation, 1e-9)
}

func TestSolve_SizeThresholdFallsBackToGreedy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExactMaxCandidates = 1
	res, err := New(cfg).Solve(context.Background(), threeUnitProblem())
	require.NoError(t, err)
	assert.Equal(t, model.StatusHeuristicFallback, res.Status)
	assert.False(t, res.SolvedOptimally)
	assert.Equal(t, model.FallbackSizeThreshold, res.Fallback)
	assert.Equal(t, []string{"A"}, res.SiteIDs())
}

func TestSolve_TimeoutReturnsIncumbent(t *testing.T) {
	slv := New(DefaultConfig())
	slv.checkEvery = 1

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := slv.Solve(ctx, threeUnitProblem())
	require.NoError(t, err)
	assert.Equal(t, model.StatusHeuristicFallback, res.Status)
	assert.Equal(t, model.FallbackTimeout, res.Fallback)
	assert.False(t, res.SolvedOptimally)
	assert.Equal(t, []string{"A"}, res.SiteIDs())
}

func TestSolve_WallClockBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimeBudget = time.Second
	slv := New(cfg)
	slv.checkEvery = 1
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	slv.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Minute)
	}

	res, err := slv.Solve(context.Background(), threeUnitProblem())
	require.NoError(t, err)
	assert.Equal(t, model.FallbackTimeout, res.Fallback)
}

// greedyTrapProblem needs B and C together to cover every high-risk unit,
// while greedy opens with A and cannot reach the floor.
func greedyTrapProblem() Problem {
	units := make([]model.ComposedUnit, 0, 6)
	for i := 1; i <= 6; i++ {
		units = append(units, composed(fmt.Sprintf("h%d", i), 0.9, 10))
	}
	return Problem{
		Units: units,
		Sites: []model.CandidateSite{
			site("A", model.CategorySchool, 33.40, -112.00),
			site("B", model.CategoryLibrary, 33.45, -112.05),
			site("C", model.CategoryClinic, 33.50, -112.10),
		},
		Matrix: coverage.NewBoolean(model.ModeWalk, map[string][]string{
			"h1": {"A", "B"},
			"h2": {"A", "B"},
			"h3": {"A", "C"},
			"h4": {"A", "C"},
			"h5": {"B"},
			"h6": {"C"},
		}),
		K:      2,
		Equity: model.Equity{Enabled: true, Floor: 1.0, HighRiskThreshold: 0.5},
	}
}

func TestSolve_EquityFloorMetByExactSearch(t *testing.T) {
	res, err := New(DefaultConfig()).Solve(context.Background(), greedyTrapProblem())
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, res.SiteIDs())
	assert.Equal(t, model.StatusOptimal, res.Status)
	assert.InDelta(t, 1.0, res.Stats.HighRiskCoverageRate, 1e-9)
}

func TestSolve_StoppedWithoutEquityIncumbentIsNotInfeasible(t *testing.T) {
	slv := New(DefaultConfig())
	slv.checkEvery = 1

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := slv.Solve(ctx, greedyTrapProblem())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, model.CodeSolverTimeout, model.CodeOf(err))

	var te *model.SolverTimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, model.FallbackTimeout, te.Reason)
	assert.Equal(t, 2, te.K)
	assert.Equal(t, 3, te.Eligible)

	var ie *model.InfeasibleScenarioError
	assert.False(t, errors.As(err, &ie))
}

func TestSolve_GreedyOnlyWithoutEquityIncumbentIsNotInfeasible(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExactMaxCandidates = 2

	_, err := New(cfg).Solve(context.Background(), greedyTrapProblem())
	require.Error(t, err)
	assert.Equal(t, model.CodeSolverTimeout, model.CodeOf(err))

	var te *model.SolverTimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, model.FallbackSizeThreshold, te.Reason)
}

func TestSolve_ExactlyKSitesEvenWhenUseless(t *testing.T) {
	p := threeUnitProblem()
	p.Sites = append(p.Sites, site("C", model.CategoryClinic, 33.6, -112.2))
	p.K = 3
	res, err := New(DefaultConfig()).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, res.SiteIDs())
	assert.InDelta(t, 200.0, res.Stats.ObjectiveValue, 1e-9)
}

func TestSolve_DuplicateSiteIDs(t *testing.T) {
	p := threeUnitProblem()
	p.Sites = append(p.Sites, site("A", model.CategoryOther, 0, 0))
	_, err := New(DefaultConfig()).Solve(context.Background(), p)
	assert.Equal(t, model.CodeDataInconsistency, model.CodeOf(err))
}

func TestSolve_DeterministicAndOrderIndependent(t *testing.T) {
	p := randomProblem(7, 10, 40, false)
	p.K = 3
	slv := New(DefaultConfig())

	first, err := slv.Solve(context.Background(), p)
	require.NoError(t, err)

	reversed := p
	reversed.Sites = make([]model.CandidateSite, len(p.Sites))
	for i, s := range p.Sites {
		reversed.Sites[len(p.Sites)-1-i] = s
	}
	second, err := slv.Solve(context.Background(), reversed)
	require.NoError(t, err)

	assert.Equal(t, first.SiteIDs(), second.SiteIDs())
	assert.Equal(t, first.Stats.ObjectiveValue, second.Stats.ObjectiveValue)
	assert.Equal(t, first.CoveredUnitIDs, second.CoveredUnitIDs)
}

func TestSolve_MonotoneInK(t *testing.T) {
	for seed := int64(1); seed <= 3; seed++ {
		p := randomProblem(seed, 9, 30, false)
		prev := -1.0
		for k := 1; k <= 6; k++ {
			p.K = k
			res, err := New(DefaultConfig()).Solve(context.Background(), p)
			require.NoError(t, err)
			assert.Len(t, res.Selected, k)
			assert.GreaterOrEqual(t, res.Stats.ObjectiveValue, prev-1e-9, "seed %d k %d", seed, k)
			prev = res.Stats.ObjectiveValue
		}
	}
}

func TestSolve_MatchesBruteForce(t *testing.T) {
	tests := []struct {
		name     string
		weighted bool
		equity   bool
	}{
		{"boolean", false, false},
		{"weighted", true, false},
		{"boolean equity", false, true},
		{"weighted equity", true, true},
	}
	for _, tt := range tests {
		for seed := int64(11); seed <= 14; seed++ {
			t.Run(fmt.Sprintf("%s/seed_%d", tt.name, seed), func(t *testing.T) {
				p := randomProblem(seed, 8, 30, tt.weighted)
				if tt.equity {
					p.Equity = model.Equity{Enabled: true, Floor: 0.6, HighRiskThreshold: 0.7}
				}
				for k := 1; k <= 4; k++ {
					p.K = k
					want := bruteForce(p, DefaultConfig())
					res, err := New(DefaultConfig()).Solve(context.Background(), p)
					if want == nil {
						assert.Equal(t, model.CodeInfeasible, model.CodeOf(err), "k=%d", k)
						continue
					}
					require.NoError(t, err, "k=%d", k)
					assert.Equal(t, model.StatusOptimal, res.Status)
					assert.InDelta(t, want.obj, res.Stats.ObjectiveValue, 1e-6, "k=%d", k)
					assert.Equal(t, want.ids, res.SiteIDs(), "k=%d", k)
					if tt.equity {
						assert.GreaterOrEqual(t, res.Stats.HighRiskCoverageRate, 0.6-1e-9)
					}
				}
			})
		}
	}
}

func TestGreedy_MatchesExactOnEasyInstance(t *testing.T) {
	cfg := DefaultConfig()
	exact, err := New(cfg).Solve(context.Background(), threeUnitProblem())
	require.NoError(t, err)

	cfg.ExactMaxCandidates = 1
	heur, err := New(cfg).Solve(context.Background(), threeUnitProblem())
	require.NoError(t, err)
	assert.Equal(t, exact.SiteIDs(), heur.SiteIDs())
	assert.Equal(t, exact.Stats.ObjectiveValue, heur.Stats.ObjectiveValue)
}

func TestLexCanBeat(t *testing.T) {
	tests := []struct {
		name   string
		prefix []int
		j      int
		best   []int
		want   bool
	}{
		{"prefix smaller", []int{0}, 3, []int{1, 2}, true},
		{"prefix larger", []int{2}, 3, []int{1, 5}, false},
		{"next pick can undercut", []int{0}, 1, []int{0, 4}, true},
		{"completion forced above best", []int{0}, 5, []int{0, 4}, false},
		{"contiguous best cannot be beaten", []int{}, 2, []int{2, 3, 4}, false},
		{"gap later in best", []int{}, 2, []int{2, 3, 6}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lexCanBeat(tt.prefix, tt.j, tt.best))
		})
	}
}

// randomProblem builds a reproducible instance around Phoenix.
func randomProblem(seed int64, nSites, nUnits int, weighted bool) Problem {
	rng := rand.New(rand.NewSource(seed))
	p := Problem{}
	for i := 0; i < nUnits; i++ {
		p.Units = append(p.Units, composed(fmt.Sprintf("u%02d", i), math.Round(rng.Float64()*100)/100, float64(10+rng.Intn(500))))
	}
	cats := []model.Category{model.CategorySchool, model.CategoryLibrary, model.CategoryCommunityCentre, model.CategoryClinic}
	for j := 0; j < nSites; j++ {
		p.Sites = append(p.Sites, site(fmt.Sprintf("s%02d", j), cats[rng.Intn(len(cats))], 33.3+rng.Float64()*0.3, -112.2+rng.Float64()*0.3))
	}

	boolean := make(map[string][]string)
	access := make(map[string]map[string]float64)
	for _, u := range p.Units {
		for _, s := range p.Sites {
			if rng.Float64() > 0.25 {
				continue
			}
			boolean[u.UnitID] = append(boolean[u.UnitID], s.ID)
			if access[u.UnitID] == nil {
				access[u.UnitID] = make(map[string]float64)
			}
			access[u.UnitID][s.ID] = math.Round((0.1+rng.Float64()*0.5)*100) / 100
		}
	}
	if weighted {
		m, err := coverage.NewWeighted(model.ModeDrive, access)
		if err != nil {
			panic(err)
		}
		p.Matrix = m
	} else {
		p.Matrix = coverage.NewBoolean(model.ModeWalk, boolean)
	}
	return p
}

type bruteBest struct {
	ids  []string
	obj  float64
	div  int
	prox float64
}

// bruteForce enumerates every K-subset and applies the documented ordering
// independently of the search code.
func bruteForce(p Problem, cfg Config) *bruteBest {
	sites := append([]model.CandidateSite(nil), p.Sites...)
	sort.Slice(sites, func(i, j int) bool { return sites[i].ID < sites[j].ID })
	threshold := 1.0
	if p.Matrix.Kind() == coverage.KindWeighted {
		threshold = cfg.CoverageThreshold
	}

	var totalHigh float64
	for _, u := range p.Units {
		if u.Risk > p.Equity.HighRiskThreshold {
			totalHigh += u.Population
		}
	}

	var best *bruteBest
	var rec func(start int, chosen []int)
	rec = func(start int, chosen []int) {
		if len(chosen) == p.K {
			var obj, high float64
			for _, u := range p.Units {
				var acc float64
				for _, j := range chosen {
					for _, l := range p.Matrix.Reach(u.UnitID) {
						if l.SiteID == sites[j].ID {
							acc += l.Access
						}
					}
				}
				if acc >= threshold-1e-9 {
					obj += u.Demand
					if u.Risk > p.Equity.HighRiskThreshold {
						high += u.Population
					}
				}
			}
			if p.Equity.Enabled && totalHigh > 0 && high/totalHigh < p.Equity.Floor-1e-9 {
				return
			}
			cats := map[model.Category]bool{}
			var prox float64
			ids := make([]string, len(chosen))
			for a, ja := range chosen {
				ids[a] = sites[ja].ID
				cats[sites[ja].Category] = true
				for _, jb := range chosen[a+1:] {
					pa := orb.Point{sites[ja].Location.Lon, sites[ja].Location.Lat}
					pb := orb.Point{sites[jb].Location.Lon, sites[jb].Location.Lat}
					prox += 1 / (1 + geo.Distance(pa, pb)/1000)
				}
			}
			cand := &bruteBest{ids: ids, obj: obj, div: len(cats), prox: prox}
			if best == nil || bruteBetter(cand, best) {
				best = cand
			}
			return
		}
		for j := start; j < len(sites); j++ {
			rec(j+1, append(chosen, j))
		}
	}
	rec(0, nil)
	return best
}

func bruteBetter(a, b *bruteBest) bool {
	if math.Abs(a.obj-b.obj) > 1e-9*math.Max(1, math.Abs(b.obj)) {
		return a.obj > b.obj
	}
	if a.div != b.div {
		return a.div > b.div
	}
	if math.Abs(a.prox-b.prox) > 1e-9*math.Max(1, math.Abs(b.prox)) {
		return a.prox < b.prox
	}
	for t := range a.ids {
		if a.ids[t] != b.ids[t] {
			return a.ids[t] < b.ids[t]
		}
	}
	return false
}
