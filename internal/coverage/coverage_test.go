package coverage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heatsafenet/hubsite/internal/model"
)

func testInstance() ([]model.DemandUnit, []model.CandidateSite) {
	units := []model.DemandUnit{{ID: "u1"}, {ID: "u2"}, {ID: "u3"}}
	sites := []model.CandidateSite{{ID: "A"}, {ID: "B"}}
	return units, sites
}

func TestNewBoolean(t *testing.T) {
	m := NewBoolean(model.ModeWalk, map[string][]string{
		"u1": {"B", "A", "A"},
		"u3": {"B"},
	})
	assert.Equal(t, KindBoolean, m.Kind())
	assert.Equal(t, model.ModeWalk, m.Mode())
	assert.Equal(t, 3, m.Pairs())
	assert.Equal(t, []Link{{SiteID: "A", Access: 1}, {SiteID: "B", Access: 1}}, m.Reach("u1"))
	assert.True(t, m.Reaches("u3", "B"))
	assert.False(t, m.Reaches("u3", "A"))
	assert.False(t, m.Reaches("u2", "A"))
	assert.Equal(t, []string{"u1", "u3"}, m.UnitIDs())
}

func TestNewWeighted(t *testing.T) {
	m, err := NewWeighted(model.ModeDrive, map[string]map[string]float64{
		"u1": {"A": 0.4, "B": 0},
	})
	require.NoError(t, err)
	assert.Equal(t, KindWeighted, m.Kind())
	assert.Equal(t, []Link{{SiteID: "A", Access: 0.4}}, m.Reach("u1"))

	_, err = NewWeighted(model.ModeDrive, map[string]map[string]float64{"u1": {"A": 1.5}})
	assert.Equal(t, model.CodeDataInconsistency, model.CodeOf(err))
}

func TestValidate(t *testing.T) {
	units, sites := testInstance()

	ok := NewBoolean(model.ModeWalk, map[string][]string{"u1": {"A"}, "u3": {"B"}})
	assert.NoError(t, ok.Validate(units, sites))

	unknownSite := NewBoolean(model.ModeWalk, map[string][]string{"u1": {"Z"}})
	err := unknownSite.Validate(units, sites)
	var de *model.DataInconsistencyError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "Z", de.ID)

	unknownUnit := NewBoolean(model.ModeWalk, map[string][]string{"u9": {"A"}})
	err = unknownUnit.Validate(units, sites)
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "u9", de.ID)
}

func TestIndex_RestrictsToSites(t *testing.T) {
	m := NewBoolean(model.ModeWalk, map[string][]string{"u1": {"A", "B"}, "u2": {"A"}, "u3": {"B"}})
	idx := m.Index([]string{"u1", "u2", "u3"}, []string{"B"})

	assert.Equal(t, []Entry{{Index: 0, Access: 1}}, idx.UnitSites[0])
	assert.Empty(t, idx.UnitSites[1])
	assert.Equal(t, []Entry{{Index: 0, Access: 1}, {Index: 2, Access: 1}}, idx.SiteUnits[0])
}

func TestDecode_KeyedBoolean(t *testing.T) {
	m, err := Decode(strings.NewReader(`{"mode":"drive","reach":{"u1":["A"],"u2":["A","B"]}}`), model.ModeWalk)
	require.NoError(t, err)
	assert.Equal(t, model.ModeDrive, m.Mode())
	assert.Equal(t, KindBoolean, m.Kind())
	assert.Equal(t, 3, m.Pairs())
}

func TestDecode_KeyedWeighted(t *testing.T) {
	m, err := Decode(strings.NewReader(`{"reach":{"u1":{"A":0.6,"B":0.3}}}`), model.ModeWalk)
	require.NoError(t, err)
	assert.Equal(t, model.ModeWalk, m.Mode())
	assert.Equal(t, KindWeighted, m.Kind())
	assert.Equal(t, []Link{{SiteID: "A", Access: 0.6}, {SiteID: "B", Access: 0.3}}, m.Reach("u1"))
}

func TestDecode_IndexBased(t *testing.T) {
	doc := `{
	  "coverage_matrix": {"0": [0, 1], "2": [1]},
	  "demand_metadata": {"geoids": ["040130101001", "040130101002", "040130101003"]},
	  "supply_metadata": {"site_ids": [17, "lib-2"]}
	}`
	m, err := Decode(strings.NewReader(doc), model.ModeWalk)
	require.NoError(t, err)
	assert.True(t, m.Reaches("040130101001", "17"))
	assert.True(t, m.Reaches("040130101001", "lib-2"))
	assert.True(t, m.Reaches("040130101003", "lib-2"))
	assert.Empty(t, m.Reach("040130101002"))
}

func TestDecode_IndexOutOfRange(t *testing.T) {
	doc := `{"coverage_matrix":{"0":[5]},"demand_metadata":{"geoids":["u1"]},"supply_metadata":{"site_ids":["A"]}}`
	_, err := Decode(strings.NewReader(doc), model.ModeWalk)
	assert.Equal(t, model.CodeDataInconsistency, model.CodeOf(err))
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `nope`},
		{"empty", `{}`},
		{"bad mode", `{"mode":"bike","reach":{}}`},
		{"bad reach", `{"reach":{"u1":7}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc), model.ModeWalk)
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage_walk.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"reach":{"u1":["A"]}}`), 0o644))

	m, err := LoadFile(path, model.ModeWalk)
	require.NoError(t, err)
	assert.True(t, m.Reaches("u1", "A"))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"), model.ModeWalk)
	assert.Error(t, err)
}
