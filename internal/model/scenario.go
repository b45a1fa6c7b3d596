package model

import (
	"fmt"
	"sort"
	"strings"
)

// Weights maps risk component names to their share of the composed risk.
type Weights map[string]float64

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	var sum float64
	for _, k := range w.Keys() {
		sum += w[k]
	}
	return sum
}

// Keys returns the component names in sorted order.
func (w Weights) Keys() []string {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Key returns a stable fingerprint of the weight set.
func (w Weights) Key() string {
	parts := make([]string, 0, len(w))
	for _, k := range w.Keys() {
		parts = append(parts, fmt.Sprintf("%s=%.6f", k, w[k]))
	}
	return strings.Join(parts, ",")
}

// Clone returns an independent copy.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Equity configures the high-risk coverage floor.
type Equity struct {
	Enabled bool `json:"enabled"`
	// Floor is the minimum population coverage rate among high-risk units.
	Floor float64 `json:"floor"`
	// HighRiskThreshold classifies units with risk strictly above it as high risk.
	HighRiskThreshold float64 `json:"high_risk_threshold"`
}

// Exclusions toggles the hard site exclusion rules.
type Exclusions struct {
	ExcludeHazard      bool       `json:"exclude_hazard"`
	ExcludeFlood       bool       `json:"exclude_flood"`
	MinSizeM2          float64    `json:"min_size_m2,omitempty"`
	ExcludedCategories []Category `json:"excluded_categories,omitempty"`
}

// Scenario is one immutable solve request against a problem instance.
type Scenario struct {
	ID         string     `json:"id"`
	Geography  string     `json:"geography"`
	K          int        `json:"k"`
	Mode       TravelMode `json:"mode"`
	Weights    Weights    `json:"weights"`
	Equity     Equity     `json:"equity"`
	Exclusions Exclusions `json:"exclusions"`
}

// Label returns the scenario ID, or a derived label when none was set.
func (s Scenario) Label() string {
	if s.ID != "" {
		return s.ID
	}
	return fmt.Sprintf("%s/%s/K_%d", s.Geography, s.Mode, s.K)
}

// WithK returns a copy of the scenario with a different budget and a derived ID.
func (s Scenario) WithK(k int) Scenario {
	out := s
	out.Weights = s.Weights.Clone()
	out.K = k
	if s.ID != "" {
		out.ID = fmt.Sprintf("%s/K_%d", s.ID, k)
	} else {
		out.ID = out.Label()
	}
	return out
}
