// Package sitefilter applies hard exclusion rules to candidate sites before
// optimization.
package sitefilter

import (
	"fmt"
	"slices"

	"github.com/heatsafenet/hubsite/internal/model"
)

// Rule is one exclusion predicate. A site is eligible only if every enabled
// rule allows it.
type Rule interface {
	Name() string
	// Allow returns true if the site passes, or false with a reason.
	Allow(site model.CandidateSite) (bool, string)
}

// ExcludeFlag rejects sites carrying a flag.
type ExcludeFlag struct {
	Flag model.Flag
}

func (r ExcludeFlag) Name() string { return "exclude_" + string(r.Flag) }

func (r ExcludeFlag) Allow(site model.CandidateSite) (bool, string) {
	if site.HasFlag(r.Flag) {
		return false, fmt.Sprintf("flagged %s", r.Flag)
	}
	return true, ""
}

// MinSize rejects sites with a footprint below MinM2.
type MinSize struct {
	MinM2 float64
}

func (r MinSize) Name() string { return "min_size" }

func (r MinSize) Allow(site model.CandidateSite) (bool, string) {
	if site.SizeM2 < r.MinM2 {
		return false, fmt.Sprintf("size %.0f m2 below minimum %.0f m2", site.SizeM2, r.MinM2)
	}
	return true, ""
}

// ExcludeCategories rejects sites in any of the listed categories.
type ExcludeCategories struct {
	Categories []model.Category
}

func (r ExcludeCategories) Name() string { return "exclude_categories" }

func (r ExcludeCategories) Allow(site model.CandidateSite) (bool, string) {
	if slices.Contains(r.Categories, site.Category) {
		return false, fmt.Sprintf("category %s excluded", site.Category)
	}
	return true, ""
}

// RulesFromExclusions builds the enabled rule set for a scenario.
func RulesFromExclusions(ex model.Exclusions) []Rule {
	var rules []Rule
	if ex.ExcludeHazard {
		rules = append(rules, ExcludeFlag{Flag: model.FlagHazardZone})
	}
	if ex.ExcludeFlood {
		rules = append(rules, ExcludeFlag{Flag: model.FlagFloodZone})
	}
	if ex.MinSizeM2 > 0 {
		rules = append(rules, MinSize{MinM2: ex.MinSizeM2})
	}
	if len(ex.ExcludedCategories) > 0 {
		rules = append(rules, ExcludeCategories{Categories: slices.Clone(ex.ExcludedCategories)})
	}
	return rules
}

// Rejection records why a site was excluded. Reasons lists every failed rule.
type Rejection struct {
	SiteID  string   `json:"site_id"`
	Rules   []string `json:"rules"`
	Reasons []string `json:"reasons"`
}

// Outcome is the result of filtering a candidate set.
type Outcome struct {
	// Eligible preserves the input order.
	Eligible []model.CandidateSite
	Rejected []Rejection
}

// Filter applies all rules to sites. It never modifies the input.
func Filter(sites []model.CandidateSite, rules []Rule) Outcome {
	out := Outcome{Eligible: make([]model.CandidateSite, 0, len(sites))}
	for _, s := range sites {
		var rej *Rejection
		for _, r := range rules {
			ok, reason := r.Allow(s)
			if ok {
				continue
			}
			if rej == nil {
				rej = &Rejection{SiteID: s.ID}
			}
			rej.Rules = append(rej.Rules, r.Name())
			rej.Reasons = append(rej.Reasons, reason)
		}
		if rej != nil {
			out.Rejected = append(out.Rejected, *rej)
			continue
		}
		out.Eligible = append(out.Eligible, s)
	}
	return out
}

// CheckBudget reports an InfeasibleScenarioError when k cannot be met by the
// eligible set. The budget is never reduced silently.
func CheckBudget(eligible, k int) error {
	switch {
	case k <= 0:
		return &model.InfeasibleScenarioError{Cause: model.CauseInvalidBudget, K: k, Eligible: eligible, Detail: "budget must be positive"}
	case eligible == 0:
		return &model.InfeasibleScenarioError{Cause: model.CauseNoEligibleSites, K: k, Eligible: eligible}
	case eligible < k:
		return &model.InfeasibleScenarioError{Cause: model.CauseBudgetExceedsEligible, K: k, Eligible: eligible}
	}
	return nil
}
