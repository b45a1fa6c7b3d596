package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/heatsafenet/hubsite/internal/model"
	"github.com/heatsafenet/hubsite/internal/store"
)

// statsLimit caps how many runs one snapshot reads.
const statsLimit = 10000

// Snapshot holds a point-in-time view of solve health.
type Snapshot struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	// Heuristic counts successful solves not proven optimal.
	Heuristic     int                `json:"heuristic"`
	FailRate      float64            `json:"fail_rate"`
	HeuristicRate float64            `json:"heuristic_rate"`
	ByCode        map[model.Code]int `json:"failed_by_code"`
	AvgCoverage   float64            `json:"avg_coverage_rate"`
	AvgSolveTime  time.Duration      `json:"avg_solve_time_ns"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours,omitempty"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the part of store.Store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers solve metrics from the run store.
type Collector struct {
	runs RunLister
}

// NewCollector creates a new metrics collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs}
}

// Collect gathers a snapshot over the given lookback window. A window of zero
// or less reads all runs.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	filter := store.RunFilter{Limit: statsLimit}
	if lookbackHours > 0 {
		filter.CreatedAfter = time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)
	}

	runs, err := c.runs.ListRuns(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap := Summarize(runs)
	snap.LookbackHours = lookbackHours
	return &snap, nil
}

// Summarize computes aggregate statistics from a list of runs.
func Summarize(runs []model.Run) Snapshot {
	snap := Snapshot{
		Total:       len(runs),
		ByCode:      make(map[model.Code]int),
		CollectedAt: time.Now().UTC(),
	}

	var coverage float64
	var solveTime time.Duration
	var withResult int
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusSucceeded:
			snap.Succeeded++
			if r.Result == nil {
				continue
			}
			withResult++
			coverage += r.Result.Stats.CoverageRate
			solveTime += r.Result.Stats.SolveTime
			if !r.Result.SolvedOptimally {
				snap.Heuristic++
			}
		case model.RunStatusFailed:
			snap.Failed++
			snap.ByCode[r.ErrorCode]++
		}
	}

	if finished := snap.Succeeded + snap.Failed; finished > 0 {
		snap.FailRate = float64(snap.Failed) / float64(finished)
	}
	if snap.Succeeded > 0 {
		snap.HeuristicRate = float64(snap.Heuristic) / float64(snap.Succeeded)
	}
	if withResult > 0 {
		snap.AvgCoverage = coverage / float64(withResult)
		snap.AvgSolveTime = solveTime / time.Duration(withResult)
	}
	return snap
}
