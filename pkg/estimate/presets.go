package estimate

import "errors"

// ErrUnknownPreset is returned when an events-per-second value is not one of
// Presets.
var ErrUnknownPreset = errors.New("estimate: not an events-per-second preset")

// Presets are the events-per-second choices offered by the form.
var Presets = []int64{50, 100, 200, 500, 1000}

// IsPreset reports whether eps is one of Presets.
func IsPreset(eps int64) bool {
	for _, p := range Presets {
		if p == eps {
			return true
		}
	}
	return false
}

// PresetCeiling returns the ceiling for a preset rate and margin.
func PresetCeiling(eps int64, margin float64) (Ceiling, error) {
	if !IsPreset(eps) {
		return Ceiling{}, ErrUnknownPreset
	}
	return Ceiling{EventsPerSecond: eps, SafetyMargin: margin}, nil
}
