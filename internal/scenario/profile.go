package scenario

import (
	"github.com/rotisserie/eris"

	"github.com/heatsafenet/hubsite/internal/instance"
	"github.com/heatsafenet/hubsite/internal/model"
	"github.com/heatsafenet/hubsite/internal/risk"
)

// Profile describes a geography's data and its risk surface under one
// weight set.
type Profile struct {
	Instance  instance.Summary      `json:"instance"`
	Weights   model.Weights         `json:"weights"`
	Risk      risk.Summary          `json:"risk"`
	Quartiles map[risk.Quartile]int `json:"quartiles"`
}

// UnitRisk is one demand unit of a risk surface.
type UnitRisk struct {
	UnitID     string        `json:"unit_id"`
	County     string        `json:"county,omitempty"`
	Centroid   *model.Point  `json:"centroid,omitempty"`
	Population float64       `json:"population"`
	Risk       float64       `json:"risk"`
	Demand     float64       `json:"demand"`
	Quartile   risk.Quartile `json:"quartile"`
}

// composition holds one geography composed under one weight set.
type composition struct {
	composer  *risk.Composer
	in        *instance.Instance
	units     []model.ComposedUnit
	quartiles map[string]risk.Quartile
}

func (o *Orchestrator) compose(geography string, w model.Weights) (*composition, error) {
	composer, err := risk.NewComposer(w, o.cfg.DemandVariant)
	if err != nil {
		return nil, err
	}
	in, err := o.instances.Get(geography)
	if err != nil {
		return nil, err
	}
	units, err := composer.Compose(in.Units())
	if err != nil {
		return nil, eris.Wrapf(err, "scenario: compose %s", geography)
	}
	quartiles, err := risk.Quartiles(in.Units(), units)
	if err != nil {
		return nil, eris.Wrapf(err, "scenario: compose %s", geography)
	}
	return &composition{composer: composer, in: in, units: units, quartiles: quartiles}, nil
}

// Profile composes a geography's units under w and summarizes them.
func (o *Orchestrator) Profile(geography string, w model.Weights) (*Profile, error) {
	c, err := o.compose(geography, w)
	if err != nil {
		return nil, err
	}
	summary, err := c.composer.Summarize(c.in.Units(), c.units)
	if err != nil {
		return nil, eris.Wrapf(err, "scenario: profile %s", geography)
	}

	p := &Profile{
		Instance:  c.in.Summarize(),
		Weights:   c.composer.Weights(),
		Risk:      summary,
		Quartiles: make(map[risk.Quartile]int, 4),
	}
	for _, q := range c.quartiles {
		p.Quartiles[q]++
	}
	return p, nil
}

// RiskSurface composes a geography's units under w and labels each with its
// quartile within its county. Units keep instance order.
func (o *Orchestrator) RiskSurface(geography string, w model.Weights) ([]UnitRisk, error) {
	c, err := o.compose(geography, w)
	if err != nil {
		return nil, err
	}
	src := c.in.Units()
	out := make([]UnitRisk, len(c.units))
	for i, cu := range c.units {
		out[i] = UnitRisk{
			UnitID:     cu.UnitID,
			County:     src[i].County,
			Centroid:   src[i].Centroid,
			Population: cu.Population,
			Risk:       cu.Risk,
			Demand:     cu.Demand,
			Quartile:   c.quartiles[cu.UnitID],
		}
	}
	return out, nil
}
