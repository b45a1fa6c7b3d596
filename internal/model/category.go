package model

import (
	"encoding/json"
	"strings"
)

// Category is the facility type of a candidate site.
type Category string

const (
	CategorySchool          Category = "school"
	CategoryLibrary         Category = "library"
	CategoryCommunityCentre Category = "community_centre"
	CategoryPlaceOfWorship  Category = "place_of_worship"
	CategoryUniversity      Category = "university"
	CategoryHospital        Category = "hospital"
	CategoryClinic          Category = "clinic"
	CategoryOther           Category = "other" // default for unknown tags
)

// Categories lists every known category in a stable order.
var Categories = []Category{
	CategorySchool,
	CategoryLibrary,
	CategoryCommunityCentre,
	CategoryPlaceOfWorship,
	CategoryUniversity,
	CategoryHospital,
	CategoryClinic,
	CategoryOther,
}

var categoryAliases = map[string]Category{
	"community_center": CategoryCommunityCentre,
	"community centre": CategoryCommunityCentre,
	"community center": CategoryCommunityCentre,
	"church":           CategoryPlaceOfWorship,
	"college":          CategoryUniversity,
}

// ParseCategory resolves a raw amenity tag to a Category. Unknown or empty
// tags resolve to CategoryOther.
func ParseCategory(raw string) Category {
	if c, ok := LookupCategory(raw); ok {
		return c
	}
	return CategoryOther
}

// LookupCategory resolves raw by exact name or alias only. Request-side
// filters use it so a misspelled category is rejected instead of matching
// CategoryOther.
func LookupCategory(raw string) (Category, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if c := Category(s); c.Valid() {
		return c, true
	}
	c, ok := categoryAliases[s]
	return c, ok
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// UnmarshalJSON resolves the category at decode time so no raw tag survives
// past ingestion.
func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*c = ParseCategory(s)
	return nil
}
