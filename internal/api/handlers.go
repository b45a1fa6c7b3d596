package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heatsafenet/hubsite/internal/model"
	"github.com/heatsafenet/hubsite/internal/monitoring"
	"github.com/heatsafenet/hubsite/internal/risk"
	"github.com/heatsafenet/hubsite/internal/scenario"
	"github.com/heatsafenet/hubsite/internal/store"
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listGeographies(w http.ResponseWriter, _ *http.Request) {
	summaries := s.catalog.Summaries()
	writeJSON(w, http.StatusOK, map[string]any{
		"geographies": summaries,
		"count":       len(summaries),
	})
}

// geographyStats composes the geography's risk under ?preset= (default
// preset when absent) and reports summary statistics.
func (s *Server) geographyStats(w http.ResponseWriter, r *http.Request) {
	geo := chi.URLParam(r, "geo")
	name := r.URL.Query().Get("preset")
	if name == "" {
		name = risk.DefaultPreset
	}
	weights, err := s.presets.Get(name)
	if err != nil {
		writeErr(w, err)
		return
	}

	profile, err := s.orch.Profile(geo, weights)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"geography": geo,
		"preset":    name,
		"profile":   profile,
	})
}

// geographyRisk serves the composed risk of every demand unit for mapping.
func (s *Server) geographyRisk(w http.ResponseWriter, r *http.Request) {
	geo := chi.URLParam(r, "geo")
	name := r.URL.Query().Get("preset")
	if name == "" {
		name = risk.DefaultPreset
	}
	weights, err := s.presets.Get(name)
	if err != nil {
		writeErr(w, err)
		return
	}

	units, err := s.orch.RiskSurface(geo, weights)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"geography": geo,
		"preset":    name,
		"units":     units,
		"count":     len(units),
	})
}

type candidateView struct {
	model.CandidateSite
	Suitability float64              `json:"suitability_score"`
	Constraints scenario.Constraints `json:"constraints"`
}

func (s *Server) listCandidates(w http.ResponseWriter, r *http.Request) {
	geo := chi.URLParam(r, "geo")
	in, err := s.catalog.Get(geo)
	if err != nil {
		writeErr(w, err)
		return
	}

	var category model.Category
	if raw := r.URL.Query().Get("category"); raw != "" {
		c, ok := model.LookupCategory(raw)
		if !ok {
			badRequest(w, fmt.Sprintf("unknown category %q", raw))
			return
		}
		category = c
	}

	sites := in.Sites()
	out := make([]candidateView, 0, len(sites))
	for _, site := range sites {
		if category != "" && site.Category != category {
			continue
		}
		out = append(out, candidateView{
			CandidateSite: site,
			Suitability:   scenario.Suitability(site),
			Constraints:   scenario.CheckConstraints(site),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"geography":  geo,
		"candidates": out,
		"count":      len(out),
	})
}

func (s *Server) listPresets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"presets": s.presets})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.runs == nil {
		writeErr(w, &model.NotFoundError{Kind: "run", ID: id})
		return
	}
	run, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Geography: q.Get("geography"),
		Status:    model.RunStatus(q.Get("status")),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		badRequest(w, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		badRequest(w, "offset must be a non-negative integer")
		return
	}
	if raw := q.Get("since"); raw != "" {
		d, perr := time.ParseDuration(raw)
		if perr != nil || d < 0 {
			badRequest(w, "since must be a positive duration such as 24h")
			return
		}
		filter.CreatedAfter = time.Now().Add(-d)
	}

	runs := []model.Run{}
	if s.runs != nil {
		if runs, err = s.runs.ListRuns(r.Context(), filter); err != nil {
			writeErr(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (s *Server) runStats(w http.ResponseWriter, r *http.Request) {
	hours, err := intParam(r.URL.Query().Get("lookback_hours"))
	if err != nil {
		badRequest(w, "lookback_hours must be a non-negative integer")
		return
	}
	if s.runs == nil {
		snap := monitoring.Summarize(nil)
		snap.LookbackHours = hours
		writeJSON(w, http.StatusOK, snap)
		return
	}
	snap, err := monitoring.NewCollector(s.runs).Collect(r.Context(), hours)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
