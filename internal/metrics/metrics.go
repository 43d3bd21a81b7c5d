// Package metrics exposes Prometheus collectors for the hub and interpretation pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors on a private registry so tests can build
// as many instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	wsClients       prometheus.Gauge
	framesSent      prometheus.Counter
	framesSkipped   prometheus.Counter
	broadcastTicks  prometheus.Counter
	interpretations *prometheus.CounterVec
	interpretDur    *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "glove_ws_clients",
			Help: "Realtime connections currently registered.",
		}),
		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "glove_frames_sent_total",
			Help: "Realtime frames handed to connection writers.",
		}),
		framesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "glove_frames_skipped_total",
			Help: "Realtime frames skipped because the connection was not ready.",
		}),
		broadcastTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "glove_broadcast_ticks_total",
			Help: "Generator ticks that produced and broadcast a sample.",
		}),
		interpretations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glove_interpretations_total",
			Help: "Interpretation calls by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		interpretDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "glove_interpretation_duration_seconds",
			Help:    "Interpretation latency by strategy.",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy"}),
	}

	m.registry.MustRegister(
		m.wsClients,
		m.framesSent,
		m.framesSkipped,
		m.broadcastTicks,
		m.interpretations,
		m.interpretDur,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SetClients(n int) { m.wsClients.Set(float64(n)) }

func (m *Metrics) FrameSent() { m.framesSent.Inc() }

func (m *Metrics) FrameSkipped() { m.framesSkipped.Inc() }

func (m *Metrics) BroadcastTick() { m.broadcastTicks.Inc() }

// ObserveInterpretation records one interpretation call.
func (m *Metrics) ObserveInterpretation(strategy string, err error, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.interpretations.WithLabelValues(strategy, outcome).Inc()
	m.interpretDur.WithLabelValues(strategy).Observe(d.Seconds())
}
