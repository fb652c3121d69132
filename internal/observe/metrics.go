// Package observe provides the Prometheus metric set for the delivery core.
package observe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the centralized collector handle injected into the dispatch
// and transport layers.
type Metrics struct {
	// ActiveConnections tracks live authenticated connections.
	ActiveConnections prometheus.Gauge

	// EventsProcessed counts accepted events.
	// Labels: kind (patient-update|medicine-alert|...), priority (low|medium|high|critical)
	EventsProcessed *prometheus.CounterVec

	// EventsRejected counts dropped inbound events.
	// Labels: reason (auth|routing|duplicate)
	EventsRejected *prometheus.CounterVec

	// Deliveries counts per-target mailbox handoffs.
	// Labels: outcome (delivered|dropped)
	Deliveries *prometheus.CounterVec

	// BroadcastDuration measures full fan-out latency in seconds.
	// Buckets: 1ms .. 5s
	BroadcastDuration prometheus.Histogram

	// AuditAppends counts persistence-sink writes.
	// Labels: status (success|error|open_breaker)
	AuditAppends *prometheus.CounterVec

	// QueueOccupancy is the current audit-ring fill level.
	QueueOccupancy prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		ActiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "heal_active_connections",
			Help: "Number of live authenticated connections.",
		}),
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "heal_events_processed_total",
			Help: "Accepted clinical events by kind and priority.",
		}, []string{"kind", "priority"}),
		EventsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "heal_events_rejected_total",
			Help: "Inbound events dropped before broadcast.",
		}, []string{"reason"}),
		Deliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "heal_deliveries_total",
			Help: "Per-target delivery attempts by outcome.",
		}, []string{"outcome"}),
		BroadcastDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "heal_broadcast_duration_seconds",
			Help:    "Fan-out latency per accepted event.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		AuditAppends: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "heal_audit_appends_total",
			Help: "Persistence sink append outcomes.",
		}, []string{"status"}),
		QueueOccupancy: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "heal_queue_occupancy",
			Help: "Entries currently held in the audit ring.",
		}),
	}
}
