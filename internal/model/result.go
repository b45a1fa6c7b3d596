package model

import "time"

// SolveStatus is the terminal state of a solve.
type SolveStatus string

const (
	StatusOptimal           SolveStatus = "optimal"
	StatusHeuristicFallback SolveStatus = "heuristic_fallback"
	StatusInfeasible        SolveStatus = "infeasible"
)

// FallbackReason explains why a result is not proven optimal.
type FallbackReason string

const (
	FallbackNone          FallbackReason = ""
	FallbackSizeThreshold FallbackReason = "size_threshold"
	FallbackTimeout       FallbackReason = "solver_timeout"
)

// SelectedSite is a chosen site with its coverage attribution.
type SelectedSite struct {
	Site CandidateSite `json:"site"`
	// CoveredUnits lists covered demand units this site reaches, sorted by ID.
	CoveredUnits []string `json:"covered_units"`
	// CoveredPopulation is the population of CoveredUnits. Catchments of
	// different sites may overlap.
	CoveredPopulation float64 `json:"covered_population"`
	// UniquePopulation counts covered units no other selected site reaches.
	UniquePopulation float64 `json:"unique_population"`
	// RiskWeightedCoverage is the sum of population*risk over CoveredUnits.
	RiskWeightedCoverage float64 `json:"risk_weighted_coverage"`
}

// Stats summarizes a solve.
type Stats struct {
	SitesSelected        int           `json:"sites_selected"`
	EligibleSites        int           `json:"eligible_sites"`
	CoveredUnits         int           `json:"covered_units"`
	TotalUnits           int           `json:"total_units"`
	CoveredPopulation    float64       `json:"covered_population"`
	TotalPopulation      float64       `json:"total_population"`
	CoverageRate         float64       `json:"coverage_rate"`
	RiskWeightedCoverage float64       `json:"risk_weighted_coverage"`
	HighRiskCoverageRate float64       `json:"high_risk_coverage_rate"`
	HighRiskUnits        int           `json:"high_risk_units"`
	ObjectiveValue       float64       `json:"objective_value"`
	SolveTime            time.Duration `json:"solve_time_ns"`
	NodesExplored        int64         `json:"nodes_explored"`
}

// Result is the outcome of solving one scenario. It is never mutated after
// it is returned.
type Result struct {
	ScenarioID      string         `json:"scenario_id"`
	Geography       string         `json:"geography"`
	Mode            TravelMode     `json:"mode"`
	K               int            `json:"k"`
	Status          SolveStatus    `json:"status"`
	SolvedOptimally bool           `json:"solved_optimally"`
	Fallback        FallbackReason `json:"fallback_reason,omitempty"`
	Selected        []SelectedSite `json:"selected_sites"`
	CoveredUnitIDs  []string       `json:"covered_unit_ids"`
	Stats           Stats          `json:"stats"`
}

// SiteIDs returns the selected site IDs in result order.
func (r *Result) SiteIDs() []string {
	ids := make([]string, len(r.Selected))
	for i, s := range r.Selected {
		ids[i] = s.Site.ID
	}
	return ids
}
