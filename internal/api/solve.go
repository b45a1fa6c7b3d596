package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/heatsafenet/hubsite/internal/model"
	"github.com/heatsafenet/hubsite/internal/risk"
	"github.com/heatsafenet/hubsite/internal/scenario"
	"github.com/heatsafenet/hubsite/internal/store"
)

// SolveRequest asks for one scenario. Weights take precedence over Preset;
// with neither the default preset applies.
type SolveRequest struct {
	Geography  string             `json:"geography"`
	K          int                `json:"k"`
	Mode       string             `json:"mode"`
	Weights    map[string]float64 `json:"weights,omitempty"`
	Preset     string             `json:"preset,omitempty"`
	Equity     model.Equity       `json:"equity"`
	Exclusions ExclusionsRequest  `json:"exclusions"`
}

// ExclusionsRequest is the wire form of the site exclusion rules.
type ExclusionsRequest struct {
	ExcludeHazard      bool     `json:"exclude_hazard"`
	ExcludeFlood       bool     `json:"exclude_flood"`
	MinSizeM2          float64  `json:"min_size_m2,omitempty"`
	ExcludedCategories []string `json:"excluded_categories,omitempty"`
}

// exclusions resolves category names by exact name or alias. An unknown name
// is reported instead of silently matching the "other" category.
func (e ExclusionsRequest) exclusions() (model.Exclusions, string) {
	if e.MinSizeM2 < 0 {
		return model.Exclusions{}, "exclusions.min_size_m2 must be >= 0"
	}
	out := model.Exclusions{
		ExcludeHazard: e.ExcludeHazard,
		ExcludeFlood:  e.ExcludeFlood,
		MinSizeM2:     e.MinSizeM2,
	}
	for _, raw := range e.ExcludedCategories {
		c, ok := model.LookupCategory(raw)
		if !ok {
			return model.Exclusions{}, fmt.Sprintf("unknown category %q in exclusions.excluded_categories", raw)
		}
		out.ExcludedCategories = append(out.ExcludedCategories, c)
	}
	return out, ""
}

// SiteView is one selected site as reported to clients.
type SiteView struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name,omitempty"`
	Lat                  float64        `json:"lat"`
	Lon                  float64        `json:"lon"`
	Category             model.Category `json:"category"`
	CoveredPopulation    float64        `json:"covered_population"`
	UniquePopulation     float64        `json:"unique_population"`
	RiskWeightedCoverage float64        `json:"risk_weighted_coverage"`
}

// SolveResponse reports one solved scenario.
type SolveResponse struct {
	RunID           string                    `json:"run_id,omitempty"`
	Scenario        model.Scenario            `json:"scenario"`
	Status          model.SolveStatus         `json:"status"`
	SolvedOptimally bool                      `json:"solved_optimally"`
	FallbackReason  model.FallbackReason      `json:"fallback_reason,omitempty"`
	Sites           []SiteView                `json:"sites"`
	Stats           model.Stats               `json:"stats"`
	Recommendations []scenario.Recommendation `json:"recommendations"`
}

func (s *Server) solve(w http.ResponseWriter, r *http.Request) {
	var req SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	sc, msg := s.scenarioFromRequest(req)
	if msg != "" {
		badRequest(w, msg)
		return
	}

	res, err := s.orch.Run(r.Context(), sc)
	runID := s.record(r.Context(), sc, res, err)
	if err != nil {
		writeErr(w, err)
		return
	}

	resp := SolveResponse{
		RunID:           runID,
		Scenario:        sc,
		Status:          res.Status,
		SolvedOptimally: res.SolvedOptimally,
		FallbackReason:  res.Fallback,
		Sites:           make([]SiteView, 0, len(res.Selected)),
		Stats:           res.Stats,
		Recommendations: scenario.Recommend(res, s.opts.RecommendLimit),
	}
	for _, sel := range res.Selected {
		resp.Sites = append(resp.Sites, SiteView{
			ID:                   sel.Site.ID,
			Name:                 sel.Site.Name,
			Lat:                  sel.Site.Location.Lat,
			Lon:                  sel.Site.Location.Lon,
			Category:             sel.Site.Category,
			CoveredPopulation:    sel.CoveredPopulation,
			UniquePopulation:     sel.UniquePopulation,
			RiskWeightedCoverage: sel.RiskWeightedCoverage,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// scenarioFromRequest checks transport-level constraints. Weight validity is
// left to the core so both transports report it identically.
func (s *Server) scenarioFromRequest(req SolveRequest) (model.Scenario, string) {
	if req.Geography == "" {
		return model.Scenario{}, "geography is required"
	}
	if msg := s.checkK(req.K); msg != "" {
		return model.Scenario{}, msg
	}
	mode := model.ModeWalk
	if req.Mode != "" {
		m, err := model.ParseTravelMode(req.Mode)
		if err != nil {
			return model.Scenario{}, fmt.Sprintf("mode must be one of %v", model.TravelModes)
		}
		mode = m
	}
	if msg := checkEquity(req.Equity); msg != "" {
		return model.Scenario{}, msg
	}
	excl, msg := req.Exclusions.exclusions()
	if msg != "" {
		return model.Scenario{}, msg
	}

	weights := model.Weights(req.Weights)
	if len(weights) == 0 {
		name := req.Preset
		if name == "" {
			name = risk.DefaultPreset
		}
		w, err := s.presets.Get(name)
		if err != nil {
			return model.Scenario{}, fmt.Sprintf("unknown preset %q", name)
		}
		weights = w
	}

	return model.Scenario{
		Geography:  req.Geography,
		K:          req.K,
		Mode:       mode,
		Weights:    weights.Clone(),
		Equity:     req.Equity,
		Exclusions: excl,
	}, ""
}

func (s *Server) checkK(k int) string {
	if k < 1 || k > s.opts.MaxK {
		return fmt.Sprintf("k must be between 1 and %d", s.opts.MaxK)
	}
	return ""
}

func checkEquity(eq model.Equity) string {
	if !eq.Enabled {
		return ""
	}
	if eq.Floor < 0 || eq.Floor > 1 {
		return "equity.floor must be in [0, 1]"
	}
	if eq.HighRiskThreshold < 0 || eq.HighRiskThreshold > 1 {
		return "equity.high_risk_threshold must be in [0, 1]"
	}
	return ""
}

// ScenariosRequest asks for a preset x mode x K grid over one geography.
type ScenariosRequest struct {
	Geography  string            `json:"geography"`
	Ks         []int             `json:"ks"`
	Presets    []string          `json:"presets,omitempty"`
	Modes      []string          `json:"modes,omitempty"`
	Equity     model.Equity      `json:"equity"`
	Exclusions ExclusionsRequest `json:"exclusions"`
}

// OutcomeView summarizes one scenario of a batch.
type OutcomeView struct {
	ScenarioID      string            `json:"scenario_id"`
	RunID           string            `json:"run_id,omitempty"`
	Status          model.SolveStatus `json:"status,omitempty"`
	SolvedOptimally bool              `json:"solved_optimally"`
	SiteIDs         []string          `json:"site_ids,omitempty"`
	Stats           *model.Stats      `json:"stats,omitempty"`
	ErrorCode       model.Code        `json:"error_code,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// ScenariosResponse reports a batch and its analysis.
type ScenariosResponse struct {
	BatchID  string            `json:"batch_id"`
	Elapsed  time.Duration     `json:"elapsed_ns"`
	Outcomes []OutcomeView     `json:"outcomes"`
	Analysis scenario.Analysis `json:"analysis"`
}

func (s *Server) runScenarios(w http.ResponseWriter, r *http.Request) {
	var req ScenariosRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Geography == "" {
		badRequest(w, "geography is required")
		return
	}
	if len(req.Ks) == 0 {
		badRequest(w, "ks is required")
		return
	}
	for _, k := range req.Ks {
		if msg := s.checkK(k); msg != "" {
			badRequest(w, msg)
			return
		}
	}
	if msg := checkEquity(req.Equity); msg != "" {
		badRequest(w, msg)
		return
	}
	excl, msg := req.Exclusions.exclusions()
	if msg != "" {
		badRequest(w, msg)
		return
	}
	modes := make([]model.TravelMode, 0, len(req.Modes))
	for _, raw := range req.Modes {
		m, err := model.ParseTravelMode(raw)
		if err != nil {
			badRequest(w, fmt.Sprintf("mode must be one of %v", model.TravelModes))
			return
		}
		modes = append(modes, m)
	}
	for _, name := range req.Presets {
		if _, err := s.presets.Get(name); err != nil {
			badRequest(w, fmt.Sprintf("unknown preset %q", name))
			return
		}
	}

	grid := scenario.Grid{
		Base: model.Scenario{
			Geography:  req.Geography,
			Mode:       model.ModeWalk,
			Equity:     req.Equity,
			Exclusions: excl,
		},
		Presets: req.Presets,
		Modes:   modes,
		Ks:      req.Ks,
	}
	scenarios, err := grid.Expand(s.presets)
	if err != nil {
		writeErr(w, err)
		return
	}
	if len(scenarios) > maxGridScenarios {
		badRequest(w, fmt.Sprintf("grid expands to %d scenarios, limit is %d", len(scenarios), maxGridScenarios))
		return
	}

	batch, err := s.orch.RunBatch(r.Context(), scenarios)
	if err != nil {
		writeErr(w, err)
		return
	}

	resp := ScenariosResponse{
		BatchID:  batch.ID,
		Elapsed:  batch.Elapsed,
		Outcomes: make([]OutcomeView, 0, len(batch.Outcomes)),
		Analysis: scenario.Analyze(batch),
	}
	for _, id := range batch.IDs() {
		out := batch.Outcomes[id]
		view := OutcomeView{
			ScenarioID: id,
			RunID:      s.record(r.Context(), out.Scenario, out.Result, out.Err),
		}
		if out.Err != nil {
			view.ErrorCode = out.Code()
			view.Error = out.Err.Error()
		} else {
			view.Status = out.Result.Status
			view.SolvedOptimally = out.Result.SolvedOptimally
			view.SiteIDs = out.Result.SiteIDs()
			stats := out.Result.Stats
			view.Stats = &stats
		}
		resp.Outcomes = append(resp.Outcomes, view)
	}
	writeJSON(w, http.StatusOK, resp)
}

// record saves the run and returns its ID, or "" when runs are not kept or
// saving fails. A store failure never fails the request.
func (s *Server) record(ctx context.Context, sc model.Scenario, res *model.Result, runErr error) string {
	if s.runs == nil {
		return ""
	}
	run := store.NewRun(sc, res, runErr)
	if err := s.runs.SaveRun(ctx, run); err != nil {
		zap.L().Warn("api: save run failed",
			zap.String("scenario", sc.Label()),
			zap.Error(err),
		)
		return ""
	}
	return run.ID
}
