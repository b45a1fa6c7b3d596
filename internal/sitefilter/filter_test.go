package sitefilter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heatsafenet/hubsite/internal/model"
)

func sites() []model.CandidateSite {
	return []model.CandidateSite{
		{ID: "s1", Category: model.CategorySchool, SizeM2: 2500},
		{ID: "s2", Category: model.CategoryLibrary, SizeM2: 200, Flags: []model.Flag{model.FlagFloodZone}},
		{ID: "s3", Category: model.CategoryPlaceOfWorship, SizeM2: 800, Flags: []model.Flag{model.FlagHazardZone}},
		{ID: "s4", Category: model.CategoryHospital, SizeM2: 5000},
	}
}

func ids(ss []model.CandidateSite) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		ex   model.Exclusions
		want []string
	}{
		{"no rules", model.Exclusions{}, []string{"s1", "s2", "s3", "s4"}},
		{"hazard", model.Exclusions{ExcludeHazard: true}, []string{"s1", "s2", "s4"}},
		{"flood", model.Exclusions{ExcludeFlood: true}, []string{"s1", "s3", "s4"}},
		{"min size", model.Exclusions{MinSizeM2: 300}, []string{"s1", "s3", "s4"}},
		{"categories", model.Exclusions{ExcludedCategories: []model.Category{model.CategoryHospital}}, []string{"s1", "s2", "s3"}},
		{"all combined", model.Exclusions{ExcludeHazard: true, ExcludeFlood: true, MinSizeM2: 300, ExcludedCategories: []model.Category{model.CategoryHospital}}, []string{"s1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Filter(sites(), RulesFromExclusions(tt.ex))
			assert.Equal(t, tt.want, ids(out.Eligible))
			assert.Len(t, out.Rejected, 4-len(tt.want))
		})
	}
}

func TestFilter_RecordsEveryFailedRule(t *testing.T) {
	out := Filter(sites(), RulesFromExclusions(model.Exclusions{ExcludeFlood: true, MinSizeM2: 300}))
	require.Len(t, out.Rejected, 1)
	assert.Equal(t, "s2", out.Rejected[0].SiteID)
	assert.Equal(t, []string{"exclude_flood_zone", "min_size"}, out.Rejected[0].Rules)
	assert.Len(t, out.Rejected[0].Reasons, 2)
}

func TestFilter_Idempotent(t *testing.T) {
	rules := RulesFromExclusions(model.Exclusions{ExcludeHazard: true, MinSizeM2: 500})
	first := Filter(sites(), rules)
	second := Filter(sites(), rules)
	assert.Equal(t, first, second)

	again := Filter(first.Eligible, rules)
	assert.Equal(t, first.Eligible, again.Eligible)
}

func TestCheckBudget(t *testing.T) {
	tests := []struct {
		name      string
		eligible  int
		k         int
		wantCause model.InfeasibleCause
	}{
		{"ok", 4, 2, ""},
		{"exact", 2, 2, ""},
		{"none eligible", 0, 1, model.CauseNoEligibleSites},
		{"budget too large", 3, 5, model.CauseBudgetExceedsEligible},
		{"zero budget", 3, 0, model.CauseInvalidBudget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckBudget(tt.eligible, tt.k)
			if tt.wantCause == "" {
				assert.NoError(t, err)
				return
			}
			var ie *model.InfeasibleScenarioError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, tt.wantCause, ie.Cause)
		})
	}
}

func TestFilter_AllExcluded(t *testing.T) {
	out := Filter(sites(), []Rule{MinSize{MinM2: 1e6}})
	assert.Empty(t, out.Eligible)
	err := CheckBudget(len(out.Eligible), 1)
	assert.Equal(t, model.CodeInfeasible, model.CodeOf(err))
}
