package model

import "time"

// RunStatus is the recorded state of a solve run.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded solve: the scenario as requested plus its result or
// the taxonomy code of its failure.
type Run struct {
	ID        string    `json:"id"`
	Geography string    `json:"geography"`
	Scenario  Scenario  `json:"scenario"`
	Status    RunStatus `json:"status"`
	Result    *Result   `json:"result,omitempty"`
	ErrorCode Code      `json:"error_code,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
