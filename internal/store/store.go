// Package store persists solve runs.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/heatsafenet/hubsite/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Geography    string          `json:"geography,omitempty"`
	Status       model.RunStatus `json:"status,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// DefaultListLimit applies when RunFilter.Limit is unset.
const DefaultListLimit = 100

// Store defines run persistence.
type Store interface {
	// SaveRun assigns an ID and creation time when unset and inserts the run.
	SaveRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// NewRun builds the run record for a finished scenario. Exactly one of res
// and runErr is expected to be set.
func NewRun(sc model.Scenario, res *model.Result, runErr error) *model.Run {
	run := &model.Run{
		ID:        uuid.New().String(),
		Geography: sc.Geography,
		Scenario:  sc,
		Status:    model.RunStatusSucceeded,
		Result:    res,
		CreatedAt: time.Now().UTC(),
	}
	if runErr != nil {
		run.Status = model.RunStatusFailed
		run.Result = nil
		run.ErrorCode = model.CodeOf(runErr)
		run.Error = runErr.Error()
	}
	return run
}

func prepareRun(run *model.Run) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Geography == "" {
		run.Geography = run.Scenario.Geography
	}
}

func listLimit(filter RunFilter) int {
	if filter.Limit <= 0 {
		return DefaultListLimit
	}
	return filter.Limit
}
