package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// TravelMode selects which reachability matrix a scenario uses.
type TravelMode string

const (
	ModeWalk  TravelMode = "walk"
	ModeDrive TravelMode = "drive"
)

// TravelModes lists the supported modes.
var TravelModes = []TravelMode{ModeWalk, ModeDrive}

// ParseTravelMode parses a mode name, case-insensitively.
func ParseTravelMode(raw string) (TravelMode, error) {
	switch TravelMode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeWalk:
		return ModeWalk, nil
	case ModeDrive:
		return ModeDrive, nil
	}
	return "", eris.Errorf("model: unknown travel mode %q", raw)
}
