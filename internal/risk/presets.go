package risk

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/heatsafenet/hubsite/internal/model"
)

// DefaultPreset names the default weighting scheme.
const DefaultPreset = "default"

// Presets maps preset names to weight sets.
type Presets map[string]model.Weights

// BuiltinPresets returns the presets available without a presets file.
func BuiltinPresets() Presets {
	return Presets{
		DefaultPreset: DefaultWeights(),
		"heat_focused": {
			model.ComponentHeatExposure:         0.55,
			model.ComponentSocialVulnerability:  0.20,
			model.ComponentDigitalExclusion:     0.15,
			model.ComponentElderlyVulnerability: 0.10,
		},
		"equity_focused": {
			model.ComponentHeatExposure:         0.25,
			model.ComponentSocialVulnerability:  0.40,
			model.ComponentDigitalExclusion:     0.20,
			model.ComponentElderlyVulnerability: 0.15,
		},
		"digital_focused": {
			model.ComponentHeatExposure:         0.25,
			model.ComponentSocialVulnerability:  0.20,
			model.ComponentDigitalExclusion:     0.45,
			model.ComponentElderlyVulnerability: 0.10,
		},
	}
}

// LoadPresets reads presets from a YAML file with a top-level "presets" key
// and merges them over the builtins. Every preset is validated.
func LoadPresets(path string) (Presets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "risk: read presets %s", path)
	}

	var wrapper struct {
		Presets map[string]map[string]float64 `yaml:"presets"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "risk: parse presets")
	}

	out := BuiltinPresets()
	for name, w := range wrapper.Presets {
		ws := model.Weights(w)
		if err := ValidateWeights(ws); err != nil {
			return nil, eris.Wrapf(err, "risk: preset %q", name)
		}
		out[name] = ws
	}
	return out, nil
}

// Get returns a copy of the named preset.
func (p Presets) Get(name string) (model.Weights, error) {
	w, ok := p[name]
	if !ok {
		return nil, &model.NotFoundError{Kind: "weight preset", ID: name}
	}
	return w.Clone(), nil
}

// Names returns preset names in sorted order.
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
