// Package risk composes per-unit component scores into a single risk index.
package risk

import (
	"math"

	"github.com/heatsafenet/hubsite/internal/model"
)

// WeightTolerance is the allowed deviation of a weight vector's sum from 1.
const WeightTolerance = 1e-3

// DefaultWeights returns a fresh copy of the default weighting scheme.
func DefaultWeights() model.Weights {
	return model.Weights{
		model.ComponentHeatExposure:         0.35,
		model.ComponentSocialVulnerability:  0.30,
		model.ComponentDigitalExclusion:     0.25,
		model.ComponentElderlyVulnerability: 0.10,
	}
}

// ValidateWeights checks that w names only known components, has no negative
// or non-finite entries, and sums to 1 within WeightTolerance.
func ValidateWeights(w model.Weights) error {
	sum := w.Sum()
	if len(w) == 0 {
		return &model.WeightValidationError{Sum: 0, Reason: "no weights given"}
	}
	for _, name := range w.Keys() {
		v := w[name]
		if !model.IsComponent(name) {
			return &model.WeightValidationError{Sum: sum, Component: name, Reason: "unknown component"}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &model.WeightValidationError{Sum: sum, Component: name, Reason: "non-finite weight"}
		}
		if v < 0 {
			return &model.WeightValidationError{Sum: sum, Component: name, Reason: "negative weight"}
		}
	}
	if math.Abs(sum-1) > WeightTolerance {
		return &model.WeightValidationError{Sum: sum, Reason: "weights must sum to 1"}
	}
	return nil
}
