package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obsidianstack/samplerate/pkg/estimate"
)

const namespace = "samplerate"

// Surfaces label which entry point produced an estimate.
const (
	SurfaceAPI = "api"
	SurfaceWS  = "ws"
)

// Outcomes label the result of one estimate.
const (
	OutcomeWithinCeiling = "within_ceiling"
	OutcomeSampling      = "sampling_required"
	OutcomeInvalid       = "invalid"
)

// Metrics holds the collectors updated by the API and the WebSocket hub.
type Metrics struct {
	registry *prometheus.Registry

	estimates    *prometheus.CounterVec
	pngExports   prometheus.Counter
	wsClients    prometheus.Gauge
	reloads      prometheus.Counter
	sampleRate   prometheus.Gauge
	ceilingDaily prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		estimates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimates_total",
			Help:      "Estimates computed, by surface and outcome.",
		}, []string{"surface", "outcome"}),
		pngExports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "png_exports_total",
			Help:      "Result images rendered.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Connected WebSocket form clients.",
		}),
		reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ceiling_reloads_total",
			Help:      "Ceiling changes applied from the config file.",
		}),
		sampleRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sample_rate",
			Help:      "Sample rate of the most recent valid estimate.",
		}),
		ceilingDaily: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "effective_ceiling_per_day",
			Help:      "Active transactions/day ceiling after the safety margin.",
		}),
	}
	m.registry.MustRegister(
		m.estimates,
		m.pngExports,
		m.wsClients,
		m.reloads,
		m.sampleRate,
		m.ceilingDaily,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveEstimate counts a computed estimate and tracks its sample rate.
func (m *Metrics) ObserveEstimate(surface string, r estimate.Result) {
	if m == nil {
		return
	}
	outcome := OutcomeWithinCeiling
	if r.SamplingRequired {
		outcome = OutcomeSampling
	}
	m.estimates.WithLabelValues(surface, outcome).Inc()
	m.sampleRate.Set(r.SampleRate)
}

// ObserveInvalid counts input that was rejected before an estimate existed.
func (m *Metrics) ObserveInvalid(surface string) {
	if m == nil {
		return
	}
	m.estimates.WithLabelValues(surface, OutcomeInvalid).Inc()
}

// PNGExported counts one result image served by the API.
func (m *Metrics) PNGExported() {
	if m == nil {
		return
	}
	m.pngExports.Inc()
}

// SetWSClients records the number of connected form clients.
func (m *Metrics) SetWSClients(n int) {
	if m == nil {
		return
	}
	m.wsClients.Set(float64(n))
}

// SetCeiling records the active ceiling. reload is true when it came from a
// config change rather than startup.
func (m *Metrics) SetCeiling(c estimate.Ceiling, reload bool) {
	if m == nil {
		return
	}
	m.ceilingDaily.Set(float64(c.Effective()))
	if reload {
		m.reloads.Inc()
	}
}
