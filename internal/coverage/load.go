package coverage

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/heatsafenet/hubsite/internal/model"
)

// document accepts both the keyed layout
//
//	{"mode": "walk", "reach": {"<unit>": ["<site>", ...]}}
//	{"mode": "walk", "reach": {"<unit>": {"<site>": 0.8}}}
//
// and the index-based layout produced by network preprocessing, where
// coverage_matrix maps demand indexes to site indexes resolved through the
// metadata ID lists.
type document struct {
	Mode           string           `json:"mode"`
	Reach          json.RawMessage  `json:"reach"`
	CoverageMatrix map[string][]int `json:"coverage_matrix"`
	DemandMetadata struct {
		GeoIDs []flexID `json:"geoids"`
	} `json:"demand_metadata"`
	SupplyMetadata struct {
		SiteIDs []flexID `json:"site_ids"`
	} `json:"supply_metadata"`
}

// flexID decodes a JSON string or number as a string ID.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// LoadFile reads a reachability document from path. mode is used when the
// document does not name one.
func LoadFile(path string, mode model.TravelMode) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "coverage: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	m, err := Decode(f, mode)
	if err != nil {
		return nil, eris.Wrapf(err, "coverage: load %s", path)
	}
	return m, nil
}

// Decode parses a reachability document.
func Decode(r io.Reader, mode model.TravelMode) (*Matrix, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "coverage: decode")
	}
	if doc.Mode != "" {
		m, err := model.ParseTravelMode(doc.Mode)
		if err != nil {
			return nil, err
		}
		mode = m
	}

	switch {
	case len(doc.Reach) > 0:
		return decodeKeyed(doc.Reach, mode)
	case doc.CoverageMatrix != nil:
		return decodeIndexed(doc, mode)
	default:
		return nil, eris.New("coverage: document has neither reach nor coverage_matrix")
	}
}

func decodeKeyed(raw json.RawMessage, mode model.TravelMode) (*Matrix, error) {
	var boolean map[string][]string
	if err := json.Unmarshal(raw, &boolean); err == nil {
		return NewBoolean(mode, boolean), nil
	}
	var weighted map[string]map[string]float64
	if err := json.Unmarshal(raw, &weighted); err != nil {
		return nil, eris.Wrap(err, "coverage: reach must map units to site lists or site weights")
	}
	return NewWeighted(mode, weighted)
}

func decodeIndexed(doc document, mode model.TravelMode) (*Matrix, error) {
	units := doc.DemandMetadata.GeoIDs
	sites := doc.SupplyMetadata.SiteIDs
	if len(units) == 0 || len(sites) == 0 {
		return nil, eris.New("coverage: index-based document requires demand_metadata.geoids and supply_metadata.site_ids")
	}

	reach := make(map[string][]string, len(doc.CoverageMatrix))
	for key, siteIdx := range doc.CoverageMatrix {
		ui, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || ui < 0 || ui >= len(units) {
			return nil, &model.DataInconsistencyError{Kind: "demand index", ID: key, Detail: "out of range"}
		}
		ids := make([]string, 0, len(siteIdx))
		for _, sj := range siteIdx {
			if sj < 0 || sj >= len(sites) {
				return nil, &model.DataInconsistencyError{Kind: "site index", ID: strconv.Itoa(sj), Detail: "out of range"}
			}
			ids = append(ids, string(sites[sj]))
		}
		reach[string(units[ui])] = ids
	}
	return NewBoolean(mode, reach), nil
}
