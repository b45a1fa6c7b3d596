package coverage

import (
	"cmp"
	"slices"
)

// Entry is one reachable pair in dense index form.
type Entry struct {
	Index  int
	Access float64
}

// Index is a dense view of a Matrix restricted to a given unit and site
// ordering. UnitSites[i] lists sites reaching unit i; SiteUnits[j] lists units
// reached by site j. Both lists are ascending by index.
type Index struct {
	UnitSites [][]Entry
	SiteUnits [][]Entry
}

// Index restricts the matrix to the given units and sites. Entries for
// sites not in siteIDs are dropped.
func (m *Matrix) Index(unitIDs, siteIDs []string) *Index {
	sitePos := make(map[string]int, len(siteIDs))
	for j, id := range siteIDs {
		sitePos[id] = j
	}
	idx := &Index{
		UnitSites: make([][]Entry, len(unitIDs)),
		SiteUnits: make([][]Entry, len(siteIDs)),
	}
	for i, unitID := range unitIDs {
		for _, l := range m.reach[unitID] {
			j, ok := sitePos[l.SiteID]
			if !ok {
				continue
			}
			idx.UnitSites[i] = append(idx.UnitSites[i], Entry{Index: j, Access: l.Access})
			idx.SiteUnits[j] = append(idx.SiteUnits[j], Entry{Index: i, Access: l.Access})
		}
	}
	for _, es := range idx.UnitSites {
		slices.SortFunc(es, func(a, b Entry) int { return cmp.Compare(a.Index, b.Index) })
	}
	return idx
}
