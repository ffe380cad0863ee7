// Package metrics exposes Prometheus collectors for chat resolution and
// contact delivery.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "arvochat"

// Metrics owns a private registry so tests and multiple servers do not
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	resolutions *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	matches     *prometheus.CounterVec
	declines    *prometheus.CounterVec
	deliveries  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Chat turns resolved, by answering tier.",
		}, []string{"tier", "cached"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_seconds",
			Help:      "Time to resolve a chat turn, by answering tier.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 20, 40},
		}, []string{"tier"}),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "faq_matches_total",
			Help:      "FAQ matcher outcomes.",
		}, []string{"kind"}),
		declines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_declines_total",
			Help:      "Resolver tiers that failed and fell through.",
		}, []string{"tier"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contact_deliveries_total",
			Help:      "Contact submission writes, by sink and outcome.",
		}, []string{"sink", "outcome"}),
	}
	m.registry.MustRegister(
		m.resolutions, m.latency, m.matches, m.declines, m.deliveries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveResolution(tier string, cached bool, elapsed time.Duration) {
	m.resolutions.WithLabelValues(tier, strconv.FormatBool(cached)).Inc()
	m.latency.WithLabelValues(tier).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveMatch(kind string) {
	m.matches.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveDecline(tier string) {
	m.declines.WithLabelValues(tier).Inc()
}

func (m *Metrics) ObserveDelivery(sink string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.deliveries.WithLabelValues(sink, outcome).Inc()
}

// Gauge registers a gauge whose value is read from fn at scrape time.
func (m *Metrics) Gauge(name, help string, fn func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, func() float64 { return float64(fn()) }))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
