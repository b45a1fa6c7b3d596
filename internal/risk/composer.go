package risk

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/heatsafenet/hubsite/internal/model"
)

// DemandVariant selects how population and risk combine into demand weight.
type DemandVariant string

const (
	// DemandLinear weights demand as population * risk.
	DemandLinear DemandVariant = "linear"
	// DemandSqrt dampens large units: sqrt(population) * risk.
	DemandSqrt DemandVariant = "sqrt"
)

// ParseDemandVariant parses a variant name. Empty selects DemandLinear.
func ParseDemandVariant(s string) (DemandVariant, error) {
	switch DemandVariant(s) {
	case "", DemandLinear:
		return DemandLinear, nil
	case DemandSqrt:
		return DemandSqrt, nil
	default:
		return "", eris.Errorf("risk: unknown demand variant %q", s)
	}
}

// Composer turns demand units into composed units under one fixed weight set.
// A Composer is immutable and safe for concurrent use.
type Composer struct {
	weights model.Weights
	key     string
	variant DemandVariant
}

// NewComposer validates w and returns a Composer bound to a private copy of it.
func NewComposer(w model.Weights, variant DemandVariant) (*Composer, error) {
	if err := ValidateWeights(w); err != nil {
		return nil, err
	}
	if variant == "" {
		variant = DemandLinear
	}
	if _, err := ParseDemandVariant(string(variant)); err != nil {
		return nil, err
	}
	c := &Composer{weights: w.Clone(), variant: variant}
	c.key = c.weights.Key()
	return c, nil
}

// Weights returns a copy of the composer's weight set.
func (c *Composer) Weights() model.Weights { return c.weights.Clone() }

// Risk computes the clamped weighted sum for one unit. A component carrying
// positive weight must be present on the unit.
func (c *Composer) Risk(u model.DemandUnit) (float64, error) {
	var r float64
	for _, name := range c.weights.Keys() {
		w := c.weights[name]
		if w == 0 {
			continue
		}
		v, ok := u.Component(name)
		if !ok {
			return 0, &model.DataInconsistencyError{Kind: "demand unit", ID: u.ID, Detail: "missing component " + name}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, &model.DataInconsistencyError{Kind: "demand unit", ID: u.ID, Detail: "non-finite component " + name}
		}
		r += w * v
	}
	return clamp01(r), nil
}

// Compose returns one ComposedUnit per input unit, in input order.
func (c *Composer) Compose(units []model.DemandUnit) ([]model.ComposedUnit, error) {
	out := make([]model.ComposedUnit, len(units))
	for i, u := range units {
		if u.Population < 0 || math.IsNaN(u.Population) {
			return nil, &model.DataInconsistencyError{Kind: "demand unit", ID: u.ID, Detail: "population must be >= 0"}
		}
		r, err := c.Risk(u)
		if err != nil {
			return nil, err
		}
		out[i] = model.ComposedUnit{
			UnitID:     u.ID,
			Population: u.Population,
			Risk:       r,
			Demand:     c.demand(u.Population, r),
			WeightsKey: c.key,
		}
	}
	return out, nil
}

func (c *Composer) demand(pop, risk float64) float64 {
	if c.variant == DemandSqrt {
		return math.Sqrt(pop) * risk
	}
	return pop * risk
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
