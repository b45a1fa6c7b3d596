package model

import (
	"errors"
	"fmt"
)

// Code classifies a failure for callers and transports.
type Code string

const (
	CodeWeightValidation  Code = "WEIGHT_VALIDATION"
	CodeInfeasible        Code = "INFEASIBLE_SCENARIO"
	CodeDataInconsistency Code = "DATA_INCONSISTENCY"
	CodeSolverTimeout     Code = "SOLVER_TIMEOUT"
	CodeInvalidRequest    Code = "INVALID_REQUEST"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInternal          Code = "INTERNAL"
)

// WeightValidationError reports a weight vector that cannot be used to
// compose risk. It is always recoverable by resubmitting corrected weights.
type WeightValidationError struct {
	Sum       float64
	Component string
	Reason    string
}

func (e *WeightValidationError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("weight validation: %s %q (sum %.4f)", e.Reason, e.Component, e.Sum)
	}
	return fmt.Sprintf("weight validation: %s (sum %.4f)", e.Reason, e.Sum)
}

// InfeasibleCause names the binding constraint of an infeasible scenario.
type InfeasibleCause string

const (
	CauseNoEligibleSites       InfeasibleCause = "no_eligible_sites"
	CauseBudgetExceedsEligible InfeasibleCause = "budget_exceeds_eligible"
	CauseInvalidBudget         InfeasibleCause = "invalid_budget"
	CauseEquityFloor           InfeasibleCause = "equity_floor"
)

// InfeasibleScenarioError reports a scenario that cannot be solved as posed.
// The caller decides whether to relax the budget or the rules.
type InfeasibleScenarioError struct {
	Cause    InfeasibleCause
	K        int
	Eligible int
	Detail   string
}

func (e *InfeasibleScenarioError) Error() string {
	msg := fmt.Sprintf("infeasible scenario: %s (k=%d, eligible=%d)", e.Cause, e.K, e.Eligible)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// DataInconsistencyError reports input data that contradicts the problem
// instance, such as a reachability entry for an unknown site.
type DataInconsistencyError struct {
	Kind   string
	ID     string
	Detail string
}

func (e *DataInconsistencyError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("data inconsistency: %s %q: %s", e.Kind, e.ID, e.Detail)
	}
	return fmt.Sprintf("data inconsistency: %s: %s", e.Kind, e.Detail)
}

// SolverTimeoutError reports a scenario whose search stopped before it found
// any selection meeting the equity floor. Unlike an equity_floor
// infeasibility the floor may still be attainable with a larger time budget
// or a higher exact-solve threshold.
type SolverTimeoutError struct {
	Reason   FallbackReason
	K        int
	Eligible int
	Nodes    int64
}

func (e *SolverTimeoutError) Error() string {
	return fmt.Sprintf("solver stopped (%s) before finding an equity-feasible selection (k=%d, eligible=%d, nodes=%d)",
		e.Reason, e.K, e.Eligible, e.Nodes)
}

// NotFoundError reports an unknown geography, travel mode, or run.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// CodeOf returns the taxonomy code for err, searching its wrap chain.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var we *WeightValidationError
	if errors.As(err, &we) {
		return CodeWeightValidation
	}
	var ie *InfeasibleScenarioError
	if errors.As(err, &ie) {
		return CodeInfeasible
	}
	var de *DataInconsistencyError
	if errors.As(err, &de) {
		return CodeDataInconsistency
	}
	var te *SolverTimeoutError
	if errors.As(err, &te) {
		return CodeSolverTimeout
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return CodeNotFound
	}
	return CodeInternal
}
