package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the router's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	classifications *prometheus.CounterVec
	decisions       *prometheus.CounterVec
	fallbacks       prometheus.Counter
	failures        prometheus.Counter
	cache           *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	profilesWarm    prometheus.Gauge
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,

		// intentrouter_classifications_total{path=short_circuit|trivial|chunked}
		classifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "intentrouter_classifications_total",
			Help: "Completed classifications by pipeline path",
		}, []string{"path"}),

		// intentrouter_decisions_total{category=...}
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "intentrouter_decisions_total",
			Help: "Decisions returned, by category",
		}, []string{"category"}),

		fallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "intentrouter_fallbacks_total",
			Help: "Classifications answered with the lone fallback decision",
		}),

		failures: f.NewCounter(prometheus.CounterOpts{
			Name: "intentrouter_classification_failures_total",
			Help: "Classifications that failed, usually because embedding failed",
		}),

		// intentrouter_cache_requests_total{result=hit|miss|error}
		cache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "intentrouter_cache_requests_total",
			Help: "Decision cache lookups by result",
		}, []string{"result"}),

		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "intentrouter_classify_latency_seconds",
			Help:    "Classification latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),

		profilesWarm: f.NewGauge(prometheus.GaugeOpts{
			Name: "intentrouter_profiles_warm",
			Help: "1 once category profiles are built",
		}),
	}
}

// ObserveClassification records one successful classification.
func (m *Metrics) ObserveClassification(path string, categories []string, fallback bool, took time.Duration) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(path).Inc()
	m.latency.WithLabelValues(path).Observe(took.Seconds())
	for _, c := range categories {
		m.decisions.WithLabelValues(c).Inc()
	}
	if fallback {
		m.fallbacks.Inc()
	}
}

func (m *Metrics) ObserveFailure() {
	if m == nil {
		return
	}
	m.failures.Inc()
}

// ObserveCache records a cache lookup result: hit, miss or error.
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.cache.WithLabelValues(result).Inc()
}

func (m *Metrics) SetProfilesWarm(warm bool) {
	if m == nil {
		return
	}
	if warm {
		m.profilesWarm.Set(1)
	} else {
		m.profilesWarm.Set(0)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
