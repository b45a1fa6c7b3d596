package instance

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/heatsafenet/hubsite/internal/model"
)

// XLSXOptions selects the sheet holding the demand table. The first row of
// the sheet is the header.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// LoadDemandXLSX reads demand units from a spreadsheet with one unit per row.
// Columns are matched by header name; lat/lon columns give the centroid.
func LoadDemandXLSX(path string, opts XLSXOptions) ([]model.DemandUnit, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "instance: open xlsx %s", path)
	}
	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("instance: xlsx %s has no header row", path)
	}

	header := rowToStrings(sheet.Rows[0])
	units := make([]model.DemandUnit, 0, len(sheet.Rows)-1)
	for i, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		if blank(cells) {
			continue
		}
		raw := make(map[string]any, len(header))
		for j, name := range header {
			if j < len(cells) && name != "" {
				raw[name] = cells[j]
			}
		}
		a := newAttrs(raw)
		u, err := a.demandUnit("")
		if err != nil {
			return nil, err
		}
		if u.ID == "" {
			return nil, &model.DataInconsistencyError{Kind: "demand unit", Detail: fmt.Sprintf("row %d has no id", i+2)}
		}
		lat, okLat, errLat := a.float(latKeys)
		lon, okLon, errLon := a.float(lonKeys)
		if errLat == nil && errLon == nil && okLat && okLon {
			u.Centroid = &model.Point{Lat: lat, Lon: lon}
		}
		units = append(units, u)
	}
	return units, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("instance: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("instance: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = strings.TrimSpace(cell.String())
	}
	return cells
}

func blank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
