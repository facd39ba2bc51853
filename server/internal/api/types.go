package api

import "github.com/obsidianstack/samplerate/pkg/estimate"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status           string `json:"status"`
	EffectiveCeiling int64  `json:"effective_ceiling"`
}

// EstimateResponse is the payload for GET /api/v1/estimate.
type EstimateResponse struct {
	Result        estimate.Result `json:"result"`
	Hints         []estimate.Hint `json:"hints"`
	SamplePercent string          `json:"sample_percent"` // e.g. "27.648%"
	Lines         []string        `json:"lines"`
}

// PresetResponse is one entry in GET /api/v1/presets.
type PresetResponse struct {
	EventsPerSecond  int64   `json:"events_per_second"`
	SafetyMargin     float64 `json:"safety_margin"`
	RawCeiling       int64   `json:"raw_ceiling"`
	EffectiveCeiling int64   `json:"effective_ceiling"`
	Active           bool    `json:"active"`
}

// CeilingResponse is the payload for GET /api/v1/ceiling.
type CeilingResponse struct {
	EventsPerSecond  int64   `json:"events_per_second,omitempty"`
	DailyCap         int64   `json:"daily_cap,omitempty"`
	SafetyMargin     float64 `json:"safety_margin"`
	RawCeiling       int64   `json:"raw_ceiling"`
	EffectiveCeiling int64   `json:"effective_ceiling"`
}

// errorResponse is a generic JSON error body. Field names the offending
// query parameter when there is one.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
