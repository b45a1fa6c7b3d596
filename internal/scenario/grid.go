package scenario

import (
	"context"
	"fmt"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/heatsafenet/hubsite/internal/model"
	"github.com/heatsafenet/hubsite/internal/risk"
)

// SweepK solves base once per budget in ks.
func (o *Orchestrator) SweepK(ctx context.Context, base model.Scenario, ks []int) (*Batch, error) {
	scenarios := make([]model.Scenario, 0, len(ks))
	for _, k := range dedupeInts(ks) {
		scenarios = append(scenarios, base.WithK(k))
	}
	return o.RunBatch(ctx, scenarios)
}

// Grid describes a preset x mode x K expansion around a base scenario. The
// base's weights are replaced by each preset's.
type Grid struct {
	Base    model.Scenario
	Presets []string
	Modes   []model.TravelMode
	Ks      []int
}

// Expand lists the grid's scenarios with IDs of the form
// "<geography>/<preset>/<mode>/K_<k>".
func (g Grid) Expand(presets risk.Presets) ([]model.Scenario, error) {
	if len(g.Ks) == 0 {
		return nil, eris.New("scenario: grid has no K values")
	}
	names := g.Presets
	if len(names) == 0 {
		names = []string{risk.DefaultPreset}
	}
	modes := g.Modes
	if len(modes) == 0 {
		modes = []model.TravelMode{g.Base.Mode}
	}

	var out []model.Scenario
	for _, name := range names {
		w, err := presets.Get(name)
		if err != nil {
			return nil, err
		}
		for _, mode := range modes {
			for _, k := range dedupeInts(g.Ks) {
				sc := g.Base
				sc.Weights = w.Clone()
				sc.Mode = mode
				sc.K = k
				sc.ID = fmt.Sprintf("%s/%s/%s/K_%d", g.Base.Geography, name, mode, k)
				out = append(out, sc)
			}
		}
	}
	return out, nil
}

func dedupeInts(xs []int) []int {
	out := append([]int(nil), xs...)
	sort.Ints(out)
	n := 0
	for i, x := range out {
		if i > 0 && x == out[n-1] {
			continue
		}
		out[n] = x
		n++
	}
	return out[:n]
}
