// Package health derives the tri-state service signal from queue pressure
// and transport availability, and periodically pushes that signal back
// into the event stream for admin dashboards.
package health

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/healis/realtime-service/internal/domain/model"
	"github.com/healis/realtime-service/internal/domain/queue"
	"github.com/healis/realtime-service/internal/domain/registry"
)

// DefaultSampleInterval matches the original monitor's polling cadence.
const DefaultSampleInterval = 30 * time.Second

// degradedOccupancy is the queue-fill fraction above which the service
// reports degraded.
const degradedOccupancy = 0.8

// AlertSink is the delivery port the monitor pushes system events into.
// Implemented by the dispatch service; an explicit capability rather than
// an ambient broadcaster lookup.
type AlertSink interface {
	PublishSystem(kind model.EventKind, payload map[string]any)
}

// Monitor samples registry size and queue occupancy. Snapshot is a cheap,
// side-effect-free read, safe to poll at any rate.
type Monitor struct {
	ring      *queue.Ring
	reg       registry.Registrar
	startedAt time.Time
	interval  time.Duration
	logger    *slog.Logger

	// transportDown / persistDown are flipped by the transport layer and
	// the audit gateway respectively. Zero value means available.
	transportDown atomic.Bool
	persistDown   atomic.Bool

	mu         sync.Mutex
	lastStatus model.HealthStatus
}

func NewMonitor(ring *queue.Ring, reg registry.Registrar, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Monitor{
		ring:       ring,
		reg:        reg,
		startedAt:  time.Now(),
		interval:   interval,
		logger:     logger,
		lastStatus: model.StatusHealthy,
	}
}

// SetTransportAvailable records delivery-transport availability.
func (m *Monitor) SetTransportAvailable(up bool) {
	m.transportDown.Store(!up)
}

// SetPersistenceAvailable records audit-sink availability. A down sink
// degrades health but never makes it unhealthy: delivery is not gated
// on durability.
func (m *Monitor) SetPersistenceAvailable(up bool) {
	m.persistDown.Store(!up)
}

// Snapshot computes the current health sample.
func (m *Monitor) Snapshot() model.HealthSnapshot {
	size := m.ring.Len()
	capacity := m.ring.Cap()

	status := model.StatusHealthy
	switch {
	case size >= capacity, m.transportDown.Load():
		status = model.StatusUnhealthy
	case float64(size) > degradedOccupancy*float64(capacity), m.persistDown.Load():
		status = model.StatusDegraded
	}

	return model.HealthSnapshot{
		Status:        status,
		Connections:   m.reg.Len(),
		QueueSize:     size,
		QueueCapacity: capacity,
		UptimeSeconds: int64(time.Since(m.startedAt).Seconds()),
	}
}

// Run samples on the configured interval until ctx is cancelled, pushing
// a metrics-update to admins each tick and a system-alert to everyone
// when the status leaves healthy.
func (m *Monitor) Run(ctx context.Context, sink AlertSink) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sample(sink)
		}
	}
}

func (m *Monitor) sample(sink AlertSink) {
	snap := m.Snapshot()

	sink.PublishSystem(model.MetricsUpdate, map[string]any{
		"status":      string(snap.Status),
		"connections": snap.Connections,
		"queueSize":   snap.QueueSize,
		"uptime":      snap.UptimeSeconds,
	})

	m.mu.Lock()
	transitioned := snap.Status != m.lastStatus && snap.Status != model.StatusHealthy
	m.lastStatus = snap.Status
	m.mu.Unlock()

	if transitioned {
		m.logger.Warn("health status changed",
			"status", string(snap.Status),
			"queue_size", snap.QueueSize,
			"connections", snap.Connections)
		sink.PublishSystem(model.SystemAlert, map[string]any{
			"status":  string(snap.Status),
			"message": "service health degraded",
		})
	}
}
