package model

import "slices"

// Flag marks a condition on a candidate site that exclusion rules may act on.
type Flag string

const (
	FlagHazardZone  Flag = "hazard_zone"
	FlagFloodZone   Flag = "flood_zone"
	FlagNoBroadband Flag = "no_broadband"
)

// CandidateSite is a facility that could host a resilience hub.
type CandidateSite struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Location Point    `json:"location"`
	Category Category `json:"category"`
	// SizeM2 is the building footprint in square meters.
	SizeM2 float64 `json:"size_m2"`
	Flags  []Flag  `json:"flags,omitempty"`
}

// HasFlag reports whether the site carries f.
func (s CandidateSite) HasFlag(f Flag) bool {
	return slices.Contains(s.Flags, f)
}
