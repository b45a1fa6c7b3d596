// Package solver selects candidate sites that maximize risk-weighted demand
// coverage under a site budget and an optional equity floor.
package solver

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/heatsafenet/hubsite/internal/coverage"
	"github.com/heatsafenet/hubsite/internal/model"
	"github.com/heatsafenet/hubsite/internal/sitefilter"
)

// Config tunes the solver.
type Config struct {
	// TimeBudget bounds one exact solve. Zero disables the limit.
	TimeBudget time.Duration
	// ExactMaxCandidates is the largest eligible set solved exactly. Larger
	// sets go straight to the greedy heuristic.
	ExactMaxCandidates int
	// CoverageThreshold is the accumulated accessibility at which a unit
	// counts as covered under a weighted matrix.
	CoverageThreshold float64
	// HighRiskThreshold classifies high-risk units when a scenario leaves
	// its own threshold unset.
	HighRiskThreshold float64
}

// DefaultConfig returns the solver defaults.
func DefaultConfig() Config {
	return Config{
		TimeBudget:         5 * time.Second,
		ExactMaxCandidates: 100,
		CoverageThreshold:  0.5,
		HighRiskThreshold:  0.75,
	}
}

const defaultCheckEvery = 1024

// Problem is one fully formulated instance: composed demand, eligible sites,
// the reachability matrix for the scenario's mode, and the constraints.
type Problem struct {
	Units  []model.ComposedUnit
	Sites  []model.CandidateSite
	Matrix *coverage.Matrix
	K      int
	Equity model.Equity
}

// Solver is stateless between calls and safe for concurrent use.
type Solver struct {
	cfg        Config
	now        func() time.Time
	checkEvery int64
}

// New creates a Solver, filling unset config fields with defaults.
func New(cfg Config) *Solver {
	def := DefaultConfig()
	if cfg.ExactMaxCandidates <= 0 {
		cfg.ExactMaxCandidates = def.ExactMaxCandidates
	}
	if cfg.CoverageThreshold <= 0 {
		cfg.CoverageThreshold = def.CoverageThreshold
	}
	if cfg.HighRiskThreshold <= 0 {
		cfg.HighRiskThreshold = def.HighRiskThreshold
	}
	return &Solver{cfg: cfg, now: time.Now, checkEvery: defaultCheckEvery}
}

// Config returns the effective configuration.
func (s *Solver) Config() Config { return s.cfg }

// Solve selects exactly K sites. Ties on the objective are broken by more
// distinct categories, then lower pairwise proximity, then the
// lexicographically lowest sorted site ID list.
func (s *Solver) Solve(ctx context.Context, p Problem) (*model.Result, error) {
	start := s.now()
	if p.Matrix == nil {
		return nil, eris.New("solver: problem has no reachability matrix")
	}
	if err := sitefilter.CheckBudget(len(p.Sites), p.K); err != nil {
		return nil, err
	}
	if err := checkUniqueSites(p.Sites); err != nil {
		return nil, err
	}

	prep := s.prepare(p)
	log := zap.L().With(
		zap.String("mode", string(p.Matrix.Mode())),
		zap.Int("k", p.K),
		zap.Int("eligible", prep.n),
		zap.Int("units", len(prep.demand)),
	)

	if prep.equity && !prep.equityReachable() {
		return nil, &model.InfeasibleScenarioError{
			Cause:    model.CauseEquityFloor,
			K:        p.K,
			Eligible: prep.n,
			Detail:   "floor exceeds the high-risk coverage of all eligible sites combined",
		}
	}

	greedy := prep.greedy()

	if prep.n > s.cfg.ExactMaxCandidates {
		if greedy == nil {
			return nil, &model.SolverTimeoutError{
				Reason:   model.FallbackSizeThreshold,
				K:        p.K,
				Eligible: prep.n,
			}
		}
		log.Debug("solver: eligible set above exact threshold, using greedy",
			zap.Int("exact_max_candidates", s.cfg.ExactMaxCandidates))
		return prep.result(p, greedy, model.StatusHeuristicFallback, model.FallbackSizeThreshold, 0, s.now().Sub(start)), nil
	}

	srch := newSearch(prep, greedy, s.checkEvery, s.stopFunc(ctx, start))
	srch.run()

	switch {
	case srch.best == nil && srch.stopped:
		log.Warn("solver: time budget exhausted without an equity-feasible incumbent",
			zap.Int64("nodes", srch.nodes),
			zap.Duration("budget", s.cfg.TimeBudget))
		return nil, &model.SolverTimeoutError{
			Reason:   model.FallbackTimeout,
			K:        p.K,
			Eligible: prep.n,
			Nodes:    srch.nodes,
		}
	case srch.best == nil:
		return nil, &model.InfeasibleScenarioError{
			Cause:    model.CauseEquityFloor,
			K:        p.K,
			Eligible: prep.n,
			Detail:   "no selection of the budgeted size meets the floor",
		}
	case srch.stopped:
		log.Warn("solver: time budget exhausted, returning incumbent",
			zap.Int64("nodes", srch.nodes),
			zap.Duration("budget", s.cfg.TimeBudget))
		return prep.result(p, srch.best.sel, model.StatusHeuristicFallback, model.FallbackTimeout, srch.nodes, s.now().Sub(start)), nil
	}

	log.Debug("solver: solved to optimality", zap.Int64("nodes", srch.nodes))
	return prep.result(p, srch.best.sel, model.StatusOptimal, model.FallbackNone, srch.nodes, s.now().Sub(start)), nil
}

func (s *Solver) stopFunc(ctx context.Context, start time.Time) func() bool {
	var deadline time.Time
	if s.cfg.TimeBudget > 0 {
		deadline = start.Add(s.cfg.TimeBudget)
	}
	return func() bool {
		if ctx.Err() != nil {
			return true
		}
		return !deadline.IsZero() && s.now().After(deadline)
	}
}

func checkUniqueSites(sites []model.CandidateSite) error {
	ids := make([]string, len(sites))
	for i, st := range sites {
		ids[i] = st.ID
	}
	sort.Strings(ids)
	for i := 1; i < len(ids); i++ {
		if ids[i] == ids[i-1] {
			return &model.DataInconsistencyError{Kind: "candidate site", ID: ids[i], Detail: "duplicate site ID"}
		}
	}
	return nil
}
