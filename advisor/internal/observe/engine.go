package observe

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/obsidianstack/samplerate/advisor/internal/scraper"
	"github.com/obsidianstack/samplerate/pkg/estimate"
)

// uptimeWindow is the number of recent scrape outcomes tracked for uptime %.
const uptimeWindow = 20

// Result is the recommendation derived for one source in one cycle.
type Result struct {
	SourceID  string    `json:"source_id"`
	Timestamp time.Time `json:"timestamp"`

	// Ready is false until two successful scrapes allow a rate to be derived.
	Ready bool `json:"ready"`

	TransactionsPerDay     float64 `json:"transactions_per_day"`
	SessionsPerDay         float64 `json:"sessions_per_day,omitempty"`
	TransactionsPerSession float64 `json:"transactions_per_session,omitempty"`

	Estimate estimate.Result `json:"estimate"`
	Hints    []estimate.Hint `json:"hints,omitempty"`

	UptimePct    float64 `json:"uptime_pct"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// Engine maintains per-source baselines across scrape cycles.
//
// All exported methods are safe for concurrent use.
type Engine struct {
	mu      sync.Mutex
	ceiling estimate.Ceiling
	states  map[string]*sourceState
}

// NewEngine returns an Engine comparing observed volume against c.
func NewEngine(c estimate.Ceiling) (*Engine, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	return &Engine{ceiling: c, states: make(map[string]*sourceState)}, nil
}

// SetCeiling replaces the ceiling used by later Process calls. Baselines are
// kept.
func (e *Engine) SetCeiling(c estimate.Ceiling) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("observe: %w", err)
	}
	e.mu.Lock()
	e.ceiling = c
	e.mu.Unlock()
	return nil
}

// Process ingests a Sample and returns the derived recommendation.
//
// now is passed explicitly so callers (and tests) control the clock without
// sleeping. Use time.Now() in production.
func (e *Engine) Process(s *scraper.Sample, now time.Time) *Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.stateFor(s.SourceID)
	success := s.Err == nil
	st.recordScrape(success)

	out := &Result{
		SourceID:  s.SourceID,
		Timestamp: now,
		UptimePct: st.uptimePct(),
	}

	if !success {
		slog.Warn("observe: scrape failed, keeping baseline",
			"source", s.SourceID, "err", s.Err)
		out.ErrorMessage = s.Err.Error()
		return out
	}

	if st.prev == nil {
		st.updateBaseline(s, now)
		return out
	}

	elapsed := now.Sub(st.prevTime).Seconds()
	if elapsed <= 0 {
		elapsed = 1 // guard against zero or negative clock drift
	}

	txDelta := deltaOf(s.Transactions, st.prev.Transactions)
	out.TransactionsPerDay = txDelta / elapsed * estimate.SecondsPerDay

	if s.HasSessions && st.prev.HasSessions {
		ssDelta := deltaOf(s.Sessions, st.prev.Sessions)
		out.SessionsPerDay = ssDelta / elapsed * estimate.SecondsPerDay
		if ssDelta > 0 {
			out.TransactionsPerSession = txDelta / ssDelta
		}
	}

	perDay := math.Round(out.TransactionsPerDay)
	if perDay >= math.MaxInt64 {
		out.ErrorMessage = estimate.ErrOverflow.Error()
		st.updateBaseline(s, now)
		return out
	}
	res, err := estimate.FromDaily(int64(perDay), e.ceiling)
	if err != nil {
		out.ErrorMessage = err.Error()
		st.updateBaseline(s, now)
		return out
	}
	res.TransactionsPerSession = int64(math.Round(out.TransactionsPerSession))
	res.SessionsPerDay = int64(math.Round(out.SessionsPerDay))

	out.Ready = true
	out.Estimate = res
	out.Hints = estimate.Explain(res)

	st.updateBaseline(s, now)
	return out
}

// sourceState holds per-source counters and uptime history.
type sourceState struct {
	prev     *scraper.Sample
	prevTime time.Time
	history  []bool // circular buffer of scrape outcomes, newest last
}

func (e *Engine) stateFor(id string) *sourceState {
	if st, ok := e.states[id]; ok {
		return st
	}
	st := &sourceState{}
	e.states[id] = st
	return st
}

func (st *sourceState) updateBaseline(s *scraper.Sample, now time.Time) {
	st.prev = s
	st.prevTime = now
}

func (st *sourceState) recordScrape(success bool) {
	if len(st.history) >= uptimeWindow {
		st.history = st.history[1:]
	}
	st.history = append(st.history, success)
}

func (st *sourceState) uptimePct() float64 {
	if len(st.history) == 0 {
		return 100
	}
	var ok int
	for _, s := range st.history {
		if s {
			ok++
		}
	}
	return float64(ok) / float64(len(st.history)) * 100
}

// deltaOf returns the positive counter delta between current and previous.
// If current < previous (counter reset after restart), returns 0.
func deltaOf(current, previous float64) float64 {
	d := current - previous
	if d < 0 {
		return 0
	}
	return d
}
