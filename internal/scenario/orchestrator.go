// Package scenario runs solve scenarios against loaded instances, alone or
// in parallel batches, and analyzes the results.
package scenario

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/heatsafenet/hubsite/internal/instance"
	"github.com/heatsafenet/hubsite/internal/model"
	"github.com/heatsafenet/hubsite/internal/risk"
	"github.com/heatsafenet/hubsite/internal/sitefilter"
	"github.com/heatsafenet/hubsite/internal/solver"
)

// Instances resolves a geography to its loaded instance. *instance.Registry
// satisfies it.
type Instances interface {
	Get(geography string) (*instance.Instance, error)
}

// Config tunes batch execution.
type Config struct {
	// MaxConcurrent bounds parallel solves in a batch.
	MaxConcurrent int
	// DemandVariant selects how population and risk form demand weight.
	DemandVariant risk.DemandVariant
}

// DefaultMaxConcurrent is used when Config.MaxConcurrent is unset.
const DefaultMaxConcurrent = 4

// Orchestrator runs the compose, filter, and solve pipeline per scenario.
type Orchestrator struct {
	instances Instances
	solver    *solver.Solver
	cfg       Config
}

// New creates an Orchestrator.
func New(instances Instances, s *solver.Solver, cfg Config) *Orchestrator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.DemandVariant == "" {
		cfg.DemandVariant = risk.DemandLinear
	}
	return &Orchestrator{instances: instances, solver: s, cfg: cfg}
}

// Outcome is the result or typed error of one scenario.
type Outcome struct {
	Scenario model.Scenario `json:"scenario"`
	Result   *model.Result  `json:"result,omitempty"`
	Err      error          `json:"-"`
}

// Code returns the error taxonomy code, or "" on success.
func (o Outcome) Code() model.Code { return model.CodeOf(o.Err) }

// Batch holds the outcomes of one RunBatch call keyed by scenario ID.
type Batch struct {
	ID       string
	Outcomes map[string]Outcome
	Elapsed  time.Duration
}

// IDs returns the scenario IDs in sorted order.
func (b *Batch) IDs() []string {
	ids := make([]string, 0, len(b.Outcomes))
	for id := range b.Outcomes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Failed counts outcomes that carry an error.
func (b *Batch) Failed() int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Run solves one scenario. Weights are validated before anything else so a
// bad weight vector never reaches the solver.
func (o *Orchestrator) Run(ctx context.Context, sc model.Scenario) (*model.Result, error) {
	composer, err := risk.NewComposer(sc.Weights, o.cfg.DemandVariant)
	if err != nil {
		return nil, err
	}
	in, err := o.instances.Get(sc.Geography)
	if err != nil {
		return nil, err
	}
	matrix, err := in.Matrix(sc.Mode)
	if err != nil {
		return nil, err
	}

	composed, err := composer.Compose(in.Units())
	if err != nil {
		return nil, eris.Wrapf(err, "scenario: compose %s", sc.Label())
	}

	filtered := sitefilter.Filter(in.Sites(), sitefilter.RulesFromExclusions(sc.Exclusions))
	if err := sitefilter.CheckBudget(len(filtered.Eligible), sc.K); err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.String("scenario", sc.Label()),
		zap.String("geography", sc.Geography),
		zap.String("mode", string(sc.Mode)),
		zap.Int("k", sc.K),
	)
	log.Debug("scenario: formulated",
		zap.Int("eligible", len(filtered.Eligible)),
		zap.Int("rejected", len(filtered.Rejected)),
	)

	res, err := o.solver.Solve(ctx, solver.Problem{
		Units:  composed,
		Sites:  filtered.Eligible,
		Matrix: matrix,
		K:      sc.K,
		Equity: sc.Equity,
	})
	if err != nil {
		return nil, err
	}
	res.ScenarioID = sc.Label()
	res.Geography = sc.Geography
	return res, nil
}

// RunBatch solves scenarios independently with bounded parallelism. A
// failing scenario records its error and never stops the others. Scenario
// IDs must be unique within a batch.
func (o *Orchestrator) RunBatch(ctx context.Context, scenarios []model.Scenario) (*Batch, error) {
	seen := make(map[string]struct{}, len(scenarios))
	for _, sc := range scenarios {
		id := sc.Label()
		if _, dup := seen[id]; dup {
			return nil, eris.Errorf("scenario: duplicate scenario ID %q", id)
		}
		seen[id] = struct{}{}
	}

	batch := &Batch{ID: uuid.New().String(), Outcomes: make(map[string]Outcome, len(scenarios))}
	log := zap.L().With(zap.String("batch", batch.ID), zap.Int("scenarios", len(scenarios)))
	log.Info("scenario: batch started", zap.Int("max_concurrent", o.cfg.MaxConcurrent))
	start := time.Now()

	outcomes := make([]Outcome, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrent)
	for i, sc := range scenarios {
		g.Go(func() error {
			res, err := o.Run(gctx, sc)
			if err != nil {
				log.Warn("scenario: failed",
					zap.String("scenario", sc.Label()),
					zap.String("code", string(model.CodeOf(err))),
					zap.Error(err),
				)
			}
			outcomes[i] = Outcome{Scenario: sc, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	for _, out := range outcomes {
		batch.Outcomes[out.Scenario.Label()] = out
	}
	batch.Elapsed = time.Since(start)
	log.Info("scenario: batch complete",
		zap.Int("failed", batch.Failed()),
		zap.Duration("elapsed", batch.Elapsed),
	)
	return batch, nil
}
