package estimate

import "fmt"

// Hint levels, most severe first.
const (
	LevelCritical = "critical"
	LevelWarning  = "warning"
	LevelInfo     = "info"
	LevelOK       = "ok"
)

// nearCeilingRatio flags estimates that fit but leave little room to grow.
const nearCeilingRatio = 0.9

// Hint is one human-readable line of the recommendation.
type Hint struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical".
	Level string `json:"level"`
	// Title is the short label.
	Title string `json:"title"`
	// Detail carries the full explanation, including the calculation.
	Detail string `json:"detail"`
}

// Explain derives display hints from r. The sampling hint always comes first
// when present.
func Explain(r Result) []Hint {
	if r.EstimatedPerDay == 0 {
		return []Hint{{
			Key:   "no_input",
			Level: LevelInfo,
			Title: "Waiting for input",
			Detail: "Enter the transactions generated in a typical session and the number of " +
				"sessions per day. With no traffic there is nothing to sample.",
		}}
	}

	if r.SamplingRequired {
		return []Hint{{
			Key:    "sampling_required",
			Level:  LevelCritical,
			Title:  "You will need to sample the transactions.",
			Detail: Breakdown(r),
		}}
	}

	if float64(r.EstimatedPerDay) >= nearCeilingRatio*float64(r.EffectiveCeiling) {
		return []Hint{{
			Key:   "near_ceiling",
			Level: LevelWarning,
			Title: "Close to the ceiling",
			Detail: fmt.Sprintf(
				"%s transactions/day fits under the %s/day ceiling, but uses %.1f%% of it. "+
					"A modest increase in traffic will require sampling.",
				FormatCount(r.EstimatedPerDay), FormatCount(r.EffectiveCeiling),
				float64(r.EstimatedPerDay)/float64(r.EffectiveCeiling)*100,
			),
		}}
	}

	return []Hint{{
		Key:   "within_ceiling",
		Level: LevelOK,
		Title: "No sampling needed",
		Detail: fmt.Sprintf("%s transactions/day is within the %s/day ceiling; record everything.",
			FormatCount(r.EstimatedPerDay), FormatCount(r.EffectiveCeiling)),
	}}
}

// Breakdown shows how the sample rate was derived.
func Breakdown(r Result) string {
	return fmt.Sprintf(
		"Max transactions/day = %s\nCurrent transactions/day = %s\nSample rate = (%s / %s) * 100 = %s",
		FormatCount(r.EffectiveCeiling),
		FormatCount(r.EstimatedPerDay),
		FormatCount(r.EffectiveCeiling),
		FormatCount(r.EstimatedPerDay),
		FormatPercent(r.SamplePercent()),
	)
}
