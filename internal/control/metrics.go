// Package control is the read-only HTTP surface over Router/Engine/Publisher
// counters: /health, /status, /metrics.
//
// Grounded on the reference implementation's cmd/server/main.go startHTTPServer/handleStatus
// and internal/observability/metrics.go's promauto registration style.
package control

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics this service exposes. The *_total
// fields mirror cumulative counters owned by the router/engine; since those
// components are scraped rather than instrumented at increment time, they
// are bridged here as gauges synced from each /status snapshot.
type Metrics struct {
	OpportunitiesTotal   prometheus.Gauge
	OpportunitiesDropped prometheus.Gauge
	ExecutionsTotal      prometheus.Gauge
	ConsecutiveExpired   prometheus.Gauge
	RouterCircuitOpen    prometheus.Gauge

	DetectionsRunTotal   prometheus.Gauge
	DetectionErrorsTotal prometheus.Gauge
	PoolsAddedTotal      prometheus.Gauge
	PoolsRejectedTotal   prometheus.Gauge
	EngineCircuitOpen    prometheus.Gauge

	PublisherDisabled prometheus.Gauge
}

// NewMetrics registers every gauge/counter under namespace (default
// "arbitrage_coordinator").
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "arbitrage_coordinator"
	}

	return &Metrics{
		OpportunitiesTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "router", Name: "opportunities_total",
			Help: "Total opportunities accepted by the router.",
		}),
		OpportunitiesDropped: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "router", Name: "opportunities_dropped_total",
			Help: "Total opportunities dropped during forwarding.",
		}),
		ExecutionsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "router", Name: "executions_total",
			Help: "Total opportunities successfully forwarded to the execution stream.",
		}),
		ConsecutiveExpired: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "router", Name: "consecutive_expired",
			Help: "Current consecutive-expired-on-arrival streak.",
		}),
		RouterCircuitOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "router", Name: "circuit_open",
			Help: "1 if the forward-path circuit breaker is open.",
		}),
		DetectionsRunTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "engine", Name: "detections_run_total",
			Help: "Total detection kernel invocations.",
		}),
		DetectionErrorsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "engine", Name: "detection_errors_total",
			Help: "Total detection kernel panics recovered.",
		}),
		PoolsAddedTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "engine", Name: "pools_added_total",
			Help: "Total successful pool upserts.",
		}),
		PoolsRejectedTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "engine", Name: "pools_rejected_total",
			Help: "Total pool upserts rejected by validation.",
		}),
		EngineCircuitOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "engine", Name: "circuit_open",
			Help: "1 if the detection circuit breaker is open.",
		}),
		PublisherDisabled: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "publisher", Name: "disabled",
			Help: "1 if the opportunity publisher has self-disabled.",
		}),
	}
}
