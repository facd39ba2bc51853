// Package form holds the input state behind the calculator form.
//
// Every Set recomputes the estimate immediately. Rejected input never
// replaces the last valid value; it only sets Message until the next
// accepted change.
package form

import (
	"errors"
	"fmt"
	"sync"

	"github.com/obsidianstack/samplerate/pkg/estimate"
)

// Field names accepted by Set. They double as JSON keys on the wire.
const (
	FieldTransactionsPerSession = "transactions_per_session"
	FieldSessionsPerDay         = "sessions_per_day"
	FieldEventsPerSecond        = "events_per_second"
)

// ErrUnknownField is returned by Set for a field name it does not accept.
var ErrUnknownField = errors.New("form: unknown field")

// Snapshot is the rendered state of a Form.
type Snapshot struct {
	TransactionsPerSession string           `json:"transactions_per_session"`
	SessionsPerDay         string           `json:"sessions_per_day"`
	Message                string           `json:"message,omitempty"`
	Result                 estimate.Result  `json:"result"`
	SamplePercent          string           `json:"sample_percent"`
	Hints                  []estimate.Hint  `json:"hints"`
	Ceiling                estimate.Ceiling `json:"ceiling"`
}

// Form is safe for concurrent use.
type Form struct {
	mu sync.Mutex

	ceiling estimate.Ceiling
	txText  string
	ssText  string
	tx, ss  int64
	message string
	result  estimate.Result
}

// New returns an empty Form using ceiling c.
func New(c estimate.Ceiling) (*Form, error) {
	f := &Form{ceiling: c}
	if err := f.recompute(); err != nil {
		return nil, err
	}
	return f, nil
}

// Set applies text to field. On error the previous value is kept and
// Message reports estimate.InvalidIntegerMessage.
func (f *Form) Set(field, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch field {
	case FieldTransactionsPerSession, FieldSessionsPerDay:
		n, err := estimate.ParseCount(text)
		if err != nil {
			f.message = estimate.InvalidIntegerMessage
			return err
		}
		prevTx, prevSs, prevTxText, prevSsText := f.tx, f.ss, f.txText, f.ssText
		if field == FieldTransactionsPerSession {
			f.tx, f.txText = n, text
		} else {
			f.ss, f.ssText = n, text
		}
		if err := f.recompute(); err != nil {
			f.tx, f.ss, f.txText, f.ssText = prevTx, prevSs, prevTxText, prevSsText
			f.message = estimate.InvalidIntegerMessage
			return err
		}

	case FieldEventsPerSecond:
		eps, err := estimate.ParseCount(text)
		if err != nil {
			f.message = estimate.InvalidIntegerMessage
			return err
		}
		c, err := estimate.PresetCeiling(eps, f.ceiling.SafetyMargin)
		if err != nil {
			f.message = fmt.Sprintf("Choose one of the presets: %v events/second.", estimate.Presets)
			return err
		}
		prev := f.ceiling
		f.ceiling = c
		if err := f.recompute(); err != nil {
			f.ceiling = prev
			return err
		}

	default:
		return fmt.Errorf("%w %q", ErrUnknownField, field)
	}

	f.message = ""
	return nil
}

// SetCeiling replaces the ceiling, e.g. after a config reload.
func (f *Form) SetCeiling(c estimate.Ceiling) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev := f.ceiling
	f.ceiling = c
	if err := f.recompute(); err != nil {
		f.ceiling = prev
		return err
	}
	return nil
}

// Message returns the current validation message, or "".
func (f *Form) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

// Result returns the estimate for the current values.
func (f *Form) Result() estimate.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

// Snapshot returns a copy of the full form state.
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{
		TransactionsPerSession: f.txText,
		SessionsPerDay:         f.ssText,
		Message:                f.message,
		Result:                 f.result,
		SamplePercent:          estimate.FormatPercent(f.result.SamplePercent()),
		Hints:                  estimate.Explain(f.result),
		Ceiling:                f.ceiling,
	}
}

// recompute must be called with f.mu held.
func (f *Form) recompute() error {
	r, err := estimate.Compute(estimate.Input{
		TransactionsPerSession: f.tx,
		SessionsPerDay:         f.ss,
		Ceiling:                f.ceiling,
	})
	if err != nil {
		return fmt.Errorf("form: %w", err)
	}
	f.result = r
	return nil
}
