// Package metrics records chat and generation activity as Prometheus series.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Mode labels distinguish streamed from blocking generations.
const (
	ModeStream   = "stream"
	ModeBlocking = "blocking"
)

type Metrics struct {
	registry *prometheus.Registry

	TurnsTotal        *prometheus.CounterVec
	TurnErrorsTotal   *prometheus.CounterVec
	TokensTotal       prometheus.Counter
	GenerationSeconds *prometheus.HistogramVec
	TokensPerSecond   prometheus.Gauge
	InFlight          prometheus.Gauge
}

// New builds a Metrics set on its own registry so several sessions (and
// tests) never collide on registration.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		TurnsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ovchat_turns_total",
			Help: "Chat turns forwarded to the runtime",
		}, []string{"mode"}),
		TurnErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ovchat_turn_errors_total",
			Help: "Chat turns whose generation call failed",
		}, []string{"mode"}),
		TokensTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "ovchat_stream_tokens_total",
			Help: "Tokens delivered through the streaming callback",
		}),
		GenerationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ovchat_generation_duration_seconds",
			Help:    "Wall-clock time spent inside a generation call",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"mode"}),
		TokensPerSecond: f.NewGauge(prometheus.GaugeOpts{
			Name: "ovchat_last_tokens_per_second",
			Help: "Throughput reported for the most recent streamed turn",
		}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "ovchat_generations_in_flight",
			Help: "Generation calls currently running",
		}),
	}
}

// RecordTurn accounts for one finished generation call.
func (m *Metrics) RecordTurn(mode string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(mode).Inc()
	m.GenerationSeconds.WithLabelValues(mode).Observe(duration.Seconds())
	if err != nil {
		m.TurnErrorsTotal.WithLabelValues(mode).Inc()
	}
}

func (m *Metrics) RecordToken() {
	if m == nil {
		return
	}
	m.TokensTotal.Inc()
}

func (m *Metrics) RecordThroughput(tps int) {
	if m == nil {
		return
	}
	m.TokensPerSecond.Set(float64(tps))
}

// Track marks a generation as running until the returned func is called.
func (m *Metrics) Track() func() {
	if m == nil {
		return func() {}
	}
	m.InFlight.Inc()
	return m.InFlight.Dec
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
