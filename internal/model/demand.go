package model

// Risk component names. Weight vectors may only reference these.
const (
	ComponentHeatExposure         = "heat_exposure"
	ComponentSocialVulnerability  = "social_vulnerability"
	ComponentDigitalExclusion     = "digital_exclusion"
	ComponentElderlyVulnerability = "elderly_vulnerability"
)

// Components is the fixed set of risk component names.
var Components = []string{
	ComponentHeatExposure,
	ComponentSocialVulnerability,
	ComponentDigitalExclusion,
	ComponentElderlyVulnerability,
}

// IsComponent reports whether name is a known risk component.
func IsComponent(name string) bool {
	for _, c := range Components {
		if c == name {
			return true
		}
	}
	return false
}

// Point is a WGS84 position.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DemandUnit is a census block group (or similar area) carrying normalized
// risk component scores and a population weight.
type DemandUnit struct {
	ID         string             `json:"id"`
	County     string             `json:"county,omitempty"`
	Components map[string]float64 `json:"components"`
	Population float64            `json:"population"`
	Centroid   *Point             `json:"centroid,omitempty"`
}

// Component returns the value of a named component and whether it is present.
func (u DemandUnit) Component(name string) (float64, bool) {
	v, ok := u.Components[name]
	return v, ok
}

// ComposedUnit is a demand unit's risk under one specific weight set. It is
// produced fresh for every weight set and never updated in place.
type ComposedUnit struct {
	UnitID     string  `json:"unit_id"`
	Population float64 `json:"population"`
	Risk       float64 `json:"risk"`
	// Demand is the optimization weight, population * risk.
	Demand float64 `json:"demand"`
	// WeightsKey fingerprints the weight set the risk was composed under.
	WeightsKey string `json:"weights_key"`
}
