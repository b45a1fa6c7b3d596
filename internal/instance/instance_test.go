package instance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heatsafenet/hubsite/internal/coverage"
	"github.com/heatsafenet/hubsite/internal/model"
)

func testUnits() []model.DemandUnit {
	return []model.DemandUnit{
		{ID: "u1", County: "Maricopa", Population: 100, Components: map[string]float64{"heat_exposure": 0.9}},
		{ID: "u2", County: "Maricopa", Population: 250, Components: map[string]float64{"heat_exposure": 0.4}},
	}
}

func testSites() []model.CandidateSite {
	return []model.CandidateSite{
		{ID: "A", Name: "Central Library", Category: model.CategoryLibrary, SizeM2: 1200},
		{ID: "B", Name: "North School", Category: model.CategorySchool, SizeM2: 3000},
	}
}

func TestNew_Valid(t *testing.T) {
	walk := coverage.NewBoolean(model.ModeWalk, map[string][]string{"u1": {"A"}, "u2": {"A", "B"}})
	in, err := New("phoenix", testUnits(), testSites(), map[model.TravelMode]*coverage.Matrix{model.ModeWalk: walk})
	require.NoError(t, err)

	assert.Len(t, in.Units(), 2)
	assert.Len(t, in.Sites(), 2)
	assert.Equal(t, []model.TravelMode{model.ModeWalk}, in.Modes())

	site, ok := in.Site("B")
	require.True(t, ok)
	assert.Equal(t, "North School", site.Name)
	_, ok = in.Site("Z")
	assert.False(t, ok)

	m, err := in.Matrix(model.ModeWalk)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Pairs())

	_, err = in.Matrix(model.ModeDrive)
	var nf *model.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "travel mode", nf.Kind)
}

func TestNew_DuplicateUnit(t *testing.T) {
	units := append(testUnits(), model.DemandUnit{ID: "u1"})
	_, err := New("phoenix", units, testSites(), nil)
	var di *model.DataInconsistencyError
	require.True(t, errors.As(err, &di))
	assert.Equal(t, "u1", di.ID)
}

func TestNew_DuplicateSite(t *testing.T) {
	sites := append(testSites(), model.CandidateSite{ID: "A"})
	_, err := New("phoenix", testUnits(), sites, nil)
	var di *model.DataInconsistencyError
	require.True(t, errors.As(err, &di))
	assert.Equal(t, "A", di.ID)
}

func TestNew_MatrixReferencesUnknownSite(t *testing.T) {
	walk := coverage.NewBoolean(model.ModeWalk, map[string][]string{"u1": {"Z"}})
	_, err := New("phoenix", testUnits(), testSites(), map[model.TravelMode]*coverage.Matrix{model.ModeWalk: walk})
	require.Error(t, err)
	assert.Equal(t, model.CodeDataInconsistency, model.CodeOf(err))
}

func TestNew_ModeMismatch(t *testing.T) {
	drive := coverage.NewBoolean(model.ModeDrive, map[string][]string{"u1": {"A"}})
	_, err := New("phoenix", testUnits(), testSites(), map[model.TravelMode]*coverage.Matrix{model.ModeWalk: drive})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "built for drive")
}

func TestNew_RequiresGeography(t *testing.T) {
	_, err := New("", testUnits(), testSites(), nil)
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	walk := coverage.NewBoolean(model.ModeWalk, map[string][]string{"u1": {"A"}})
	drive := coverage.NewBoolean(model.ModeDrive, map[string][]string{"u1": {"A", "B"}})
	in, err := New("phoenix", testUnits(), testSites(), map[model.TravelMode]*coverage.Matrix{
		model.ModeWalk:  walk,
		model.ModeDrive: drive,
	})
	require.NoError(t, err)

	s := in.Summarize()
	assert.Equal(t, "phoenix", s.Geography)
	assert.Equal(t, 2, s.Units)
	assert.Equal(t, 2, s.Sites)
	assert.InDelta(t, 350, s.Population, 1e-9)
	assert.Equal(t, []model.TravelMode{model.ModeDrive, model.ModeWalk}, s.Modes)
	assert.Equal(t, map[string]int{"library": 1, "school": 1}, s.Categories)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get("phoenix")
	assert.Equal(t, model.CodeNotFound, model.CodeOf(err))

	for _, geo := range []string{"tucson", "phoenix"} {
		in, err := New(geo, testUnits(), testSites(), nil)
		require.NoError(t, err)
		reg.Register(in)
	}

	assert.Equal(t, []string{"phoenix", "tucson"}, reg.Geographies())
	got, err := reg.Get("tucson")
	require.NoError(t, err)
	assert.Equal(t, "tucson", got.Geography)

	sums := reg.Summaries()
	require.Len(t, sums, 2)
	assert.Equal(t, "phoenix", sums[0].Geography)
}
