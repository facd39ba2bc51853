package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/obsidianstack/samplerate/pkg/estimate"
	"github.com/obsidianstack/samplerate/pkg/render"
	"github.com/obsidianstack/samplerate/server/internal/metrics"
)

// Query parameter names.
const (
	paramTransactions = "transactions_per_session"
	paramSessions     = "sessions_per_day"
	paramEPS          = "events_per_second"
	paramDailyCap     = "daily_cap"
	paramMargin       = "safety_margin"
)

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It computes estimates against the active ceiling and returns JSON responses.
type Handler struct {
	metrics *metrics.Metrics
	mux     *http.ServeMux

	mu      sync.RWMutex
	ceiling estimate.Ceiling
}

// New creates a Handler using ceiling c and registers all routes. m may be nil.
func New(c estimate.Ceiling, m *metrics.Metrics) (*Handler, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}
	h := &Handler{ceiling: c, metrics: m, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/estimate", h.estimate)
	h.mux.HandleFunc("/api/v1/estimate.png", h.estimatePNG)
	h.mux.HandleFunc("/api/v1/presets", h.presets)
	h.mux.HandleFunc("/api/v1/ceiling", h.activeCeiling)

	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// SetCeiling replaces the ceiling used by later requests.
func (h *Handler) SetCeiling(c estimate.Ceiling) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	h.mu.Lock()
	h.ceiling = c
	h.mu.Unlock()
	return nil
}

// Ceiling returns the active ceiling.
func (h *Handler) Ceiling() estimate.Ceiling {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ceiling
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	jsonResp(w, http.StatusOK, HealthResponse{
		Status:           "ok",
		EffectiveCeiling: h.Ceiling().Effective(),
	})
}

// estimate returns GET /api/v1/estimate.
func (h *Handler) estimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	res, ok := h.compute(w, r.URL.Query())
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, EstimateResponse{
		Result:        res,
		Hints:         estimate.Explain(res),
		SamplePercent: estimate.FormatPercent(res.SamplePercent()),
		Lines:         render.Lines(res),
	})
}

// estimatePNG returns GET /api/v1/estimate.png.
func (h *Handler) estimatePNG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	res, ok := h.compute(w, r.URL.Query())
	if !ok {
		return
	}

	// Render fully before writing so an encode failure can still be a 500.
	var buf bytes.Buffer
	if err := render.PNG(&buf, res); err != nil {
		slog.Error("api: render png", "err", err)
		jsonErr(w, http.StatusInternalServerError, "render failed", "")
		return
	}
	h.metrics.PNGExported()

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

// presets returns GET /api/v1/presets, using the active safety margin.
func (h *Handler) presets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	active := h.Ceiling()
	out := make([]PresetResponse, 0, len(estimate.Presets))
	for _, eps := range estimate.Presets {
		c, err := estimate.PresetCeiling(eps, active.SafetyMargin)
		if err != nil {
			jsonErr(w, http.StatusInternalServerError, err.Error(), "")
			return
		}
		out = append(out, PresetResponse{
			EventsPerSecond:  eps,
			SafetyMargin:     c.Margin(),
			RawCeiling:       c.Raw(),
			EffectiveCeiling: c.Effective(),
			Active:           active.DailyCap == 0 && active.EventsPerSecond == eps,
		})
	}
	jsonResp(w, http.StatusOK, out)
}

// activeCeiling returns GET /api/v1/ceiling.
func (h *Handler) activeCeiling(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	jsonResp(w, http.StatusOK, toCeilingResponse(h.Ceiling()))
}

// --- helpers ----------------------------------------------------------------

// compute parses q and runs the estimate. On failure it has already written
// a 400 response and returns false.
func (h *Handler) compute(w http.ResponseWriter, q url.Values) (estimate.Result, bool) {
	in, field, err := h.parseInput(q)
	if err == nil {
		var res estimate.Result
		res, err = estimate.Compute(in)
		if err == nil {
			h.metrics.ObserveEstimate(metrics.SurfaceAPI, res)
			return res, true
		}
	}

	h.metrics.ObserveInvalid(metrics.SurfaceAPI)
	msg := err.Error()
	if errors.Is(err, estimate.ErrInvalidInteger) {
		msg = estimate.InvalidIntegerMessage
	}
	jsonErr(w, http.StatusBadRequest, msg, field)
	return estimate.Result{}, false
}

// parseInput reads the estimate inputs from q. The returned field names the
// parameter that failed to parse.
func (h *Handler) parseInput(q url.Values) (estimate.Input, string, error) {
	in := estimate.Input{Ceiling: h.Ceiling()}

	counts := []struct {
		name string
		dst  *int64
	}{
		{paramTransactions, &in.TransactionsPerSession},
		{paramSessions, &in.SessionsPerDay},
	}
	for _, c := range counts {
		n, err := estimate.ParseCount(q.Get(c.name))
		if err != nil {
			return in, c.name, err
		}
		*c.dst = n
	}

	if v := q.Get(paramEPS); v != "" {
		eps, err := estimate.ParseCount(v)
		if err != nil {
			return in, paramEPS, err
		}
		in.Ceiling.EventsPerSecond = eps
		in.Ceiling.DailyCap = 0
	}
	if v := q.Get(paramDailyCap); v != "" {
		dailyCap, err := estimate.ParseCount(v)
		if err != nil {
			return in, paramDailyCap, err
		}
		in.Ceiling.DailyCap = dailyCap
	}
	if v := q.Get(paramMargin); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return in, paramMargin, fmt.Errorf("%w: safety_margin %q is not a number", estimate.ErrInvalidCeiling, v)
		}
		in.Ceiling.SafetyMargin = m
	}
	if err := in.Ceiling.Validate(); err != nil {
		return in, ceilingField(q), err
	}
	return in, "", nil
}

// ceilingField names the override most likely responsible for an invalid
// ceiling.
func ceilingField(q url.Values) string {
	for _, p := range []string{paramMargin, paramDailyCap, paramEPS} {
		if q.Get(p) != "" {
			return p
		}
	}
	return ""
}

func toCeilingResponse(c estimate.Ceiling) CeilingResponse {
	return CeilingResponse{
		EventsPerSecond:  c.EventsPerSecond,
		DailyCap:         c.DailyCap,
		SafetyMargin:     c.Margin(),
		RawCeiling:       c.Raw(),
		EffectiveCeiling: c.Effective(),
	}
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg, field string) {
	jsonResp(w, code, errorResponse{Error: msg, Field: field})
}
