package estimate

import (
	"errors"
	"fmt"
	"math"
)

// SecondsPerDay converts an events-per-second rate into a daily ceiling.
const SecondsPerDay = 86400

// Default ceiling: 200 events/s with 20% headroom, i.e. 13,824,000/day.
const (
	DefaultEventsPerSecond = 200
	DefaultSafetyMargin    = 0.8
)

var (
	// ErrNegative is returned when a count input is below zero.
	ErrNegative = errors.New("estimate: counts must not be negative")

	// ErrOverflow is returned when transactions * sessions does not fit in int64.
	ErrOverflow = errors.New("estimate: daily volume overflows")

	// ErrInvalidCeiling is returned for a non-positive ceiling or a safety
	// margin outside (0, 1].
	ErrInvalidCeiling = errors.New("estimate: invalid ceiling")
)

// Ceiling is the maximum daily transaction volume the backend accepts.
type Ceiling struct {
	// EventsPerSecond is the sustained ingest rate. Ignored when DailyCap > 0.
	EventsPerSecond int64 `yaml:"events_per_second" json:"events_per_second,omitempty"`

	// DailyCap is a fixed transactions/day ceiling.
	DailyCap int64 `yaml:"daily_cap" json:"daily_cap,omitempty"`

	// SafetyMargin scales the raw ceiling to leave headroom. Zero means 1.
	SafetyMargin float64 `yaml:"safety_margin" json:"safety_margin"`
}

// DefaultCeiling returns the 200 events/s, 80% margin ceiling.
func DefaultCeiling() Ceiling {
	return Ceiling{EventsPerSecond: DefaultEventsPerSecond, SafetyMargin: DefaultSafetyMargin}
}

// Raw returns the ceiling before the safety margin is applied.
func (c Ceiling) Raw() int64 {
	if c.DailyCap > 0 {
		return c.DailyCap
	}
	return c.EventsPerSecond * SecondsPerDay
}

// Margin returns the effective safety margin.
func (c Ceiling) Margin() float64 {
	if c.SafetyMargin == 0 {
		return 1
	}
	return c.SafetyMargin
}

// Effective returns the raw ceiling scaled by the margin, rounded to a whole
// transaction. It never exceeds Raw.
func (c Ceiling) Effective() int64 {
	raw := c.Raw()
	m := c.Margin()
	if m == 1 {
		return raw
	}
	// float64 holds 53 bits; above that the product can land past raw.
	f := math.Round(float64(raw) * m)
	if f >= math.MaxInt64 || int64(f) > raw {
		return raw
	}
	return int64(f)
}

// Validate reports whether the ceiling can be used for a comparison.
func (c Ceiling) Validate() error {
	if c.DailyCap < 0 || c.EventsPerSecond < 0 {
		return fmt.Errorf("%w: negative rate", ErrInvalidCeiling)
	}
	if c.DailyCap == 0 && c.EventsPerSecond > math.MaxInt64/SecondsPerDay {
		return fmt.Errorf("%w: events_per_second %d too large", ErrInvalidCeiling, c.EventsPerSecond)
	}
	m := c.Margin()
	if math.IsNaN(m) || m <= 0 || m > 1 {
		return fmt.Errorf("%w: safety_margin %v not in (0, 1]", ErrInvalidCeiling, c.SafetyMargin)
	}
	if c.Effective() <= 0 {
		return fmt.Errorf("%w: ceiling must be positive", ErrInvalidCeiling)
	}
	return nil
}

// Input holds the values fed into Compute.
type Input struct {
	TransactionsPerSession int64
	SessionsPerDay         int64
	Ceiling                Ceiling
}

// Result is the derived recommendation for one Input.
type Result struct {
	TransactionsPerSession int64   `json:"transactions_per_session"`
	SessionsPerDay         int64   `json:"sessions_per_day"`
	EstimatedPerDay        int64   `json:"estimated_per_day"`
	RawCeiling             int64   `json:"raw_ceiling"`
	EffectiveCeiling       int64   `json:"effective_ceiling"`
	SafetyMargin           float64 `json:"safety_margin"`
	EventsPerSecond        int64   `json:"events_per_second,omitempty"`

	// SampleRate is the fraction of transactions to keep, in (0, 1].
	SampleRate       float64 `json:"sample_rate"`
	SamplingRequired bool    `json:"sampling_required"`
}

// SamplePercent returns SampleRate as a percentage.
func (r Result) SamplePercent() float64 {
	return r.SampleRate * 100
}

// Compute derives the daily volume and sample rate for in.
func Compute(in Input) (Result, error) {
	t, s := in.TransactionsPerSession, in.SessionsPerDay
	if t < 0 || s < 0 {
		return Result{}, ErrNegative
	}
	if t != 0 && s > math.MaxInt64/t {
		return Result{}, ErrOverflow
	}

	out, err := FromDaily(t*s, in.Ceiling)
	if err != nil {
		return Result{}, err
	}
	out.TransactionsPerSession = t
	out.SessionsPerDay = s
	return out, nil
}

// FromDaily compares an already known daily volume against c. It is used
// when the volume is observed rather than derived from per-session inputs.
func FromDaily(estimatedPerDay int64, c Ceiling) (Result, error) {
	if estimatedPerDay < 0 {
		return Result{}, ErrNegative
	}
	if err := c.Validate(); err != nil {
		return Result{}, err
	}

	out := Result{
		EstimatedPerDay:  estimatedPerDay,
		RawCeiling:       c.Raw(),
		EffectiveCeiling: c.Effective(),
		SafetyMargin:     c.Margin(),
		SampleRate:       1,
	}
	if c.DailyCap == 0 {
		out.EventsPerSecond = c.EventsPerSecond
	}

	// estimated == 0 always lands here, so the division below never sees zero.
	if estimatedPerDay <= out.EffectiveCeiling {
		return out, nil
	}

	out.SampleRate = float64(out.EffectiveCeiling) / float64(estimatedPerDay)
	if out.SampleRate >= 1 {
		// Both values above 2^53 can divide to exactly 1.0.
		out.SampleRate = math.Nextafter(1, 0)
	}
	out.SamplingRequired = true
	return out, nil
}
