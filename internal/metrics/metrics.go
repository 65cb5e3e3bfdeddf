package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultMetricsPath = "/metrics"

var (
	registry = prometheus.NewRegistry()

	// SignalingEvents counts inbound live-channel events by outcome
	// (forwarded, dropped, invalid, registered, displaced, unregistered).
	SignalingEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consult_signaling_events_total",
			Help: "Inbound signaling events by event name and outcome",
		},
		[]string{"event", "outcome"},
	)

	LiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "consult_live_connections",
			Help: "Open live-channel connections",
		},
	)

	// RegisteredParties tracks presence registry size by role.
	RegisteredParties = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "consult_registered_parties",
			Help: "Parties currently registered on a live connection",
		},
		[]string{"role"},
	)

	CallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consult_calls_total",
			Help: "Call session status transitions persisted",
		},
		[]string{"status"},
	)

	CallDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "consult_call_duration_seconds",
			Help:    "Duration of calls at termination",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		},
	)

	TranscriptChunks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consult_transcript_chunks_total",
			Help: "Transcript chunks appended by speaker",
		},
		[]string{"speaker"},
	)
)

func init() {
	registry.MustRegister(
		SignalingEvents,
		LiveConnections,
		RegisteredParties,
		CallsTotal,
		CallDuration,
		TranscriptChunks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveCall records a persisted transition and, for terminal ones, the duration.
func ObserveCall(status string, duration *int64) {
	CallsTotal.WithLabelValues(status).Inc()
	if duration != nil {
		CallDuration.Observe((time.Duration(*duration) * time.Second).Seconds())
	}
}

func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func Path() string { return defaultMetricsPath }
