// Package metrics defines the Prometheus collectors for plat-iftar.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	StoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "iftar_store_operation_duration_seconds",
			Help:    "Duration of location store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iftar_store_errors_total",
			Help: "Total number of failed location store operations",
		},
		[]string{"op"},
	)

	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iftar_map_transitions_total",
			Help: "Map interaction mode transitions",
		},
		[]string{"from", "to"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "iftar_active_sessions",
			Help: "Number of live visitor sessions",
		},
	)

	LiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "iftar_live_streams",
			Help: "Number of open map SSE streams",
		},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "iftar_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	EventsExported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iftar_events_exported_total",
			Help: "Location change events written to the external sink",
		},
		[]string{"result"},
	)
)

// ObserveStore records one store call.
func ObserveStore(op string, start time.Time, err error) {
	StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		StoreErrors.WithLabelValues(op).Inc()
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
