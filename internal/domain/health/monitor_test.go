package health

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/healis/realtime-service/internal/domain/model"
	"github.com/healis/realtime-service/internal/domain/queue"
	"github.com/healis/realtime-service/internal/domain/registry"
)

func newTestMonitor(capacity int) (*Monitor, *queue.Ring) {
	ring := queue.NewRing(capacity)
	reg := registry.NewRegistry()
	m := NewMonitor(ring, reg, time.Minute, slog.Default())
	return m, ring
}

func fill(ring *queue.Ring, n int) {
	for _i := 0; _i < n; _i++ {
		ring.Push(&queue.Entry{
			Event:     model.NewClinicalEvent(model.PatientUpdate, model.PriorityLow, "", "", map[string]any{}),
			Processed: true,
		})
	}
}

func TestSnapshotThresholds(t *testing.T) {
	m, ring := newTestMonitor(10)

	if got := m.Snapshot().Status; got != model.StatusHealthy {
		t.Fatalf("empty queue status = %v, want healthy", got)
	}

	// Exactly 80% occupancy is still healthy; degradation starts past it.
	fill(ring, 8)
	if got := m.Snapshot().Status; got != model.StatusHealthy {
		t.Fatalf("80%% occupancy status = %v, want healthy", got)
	}

	fill(ring, 1)
	if got := m.Snapshot().Status; got != model.StatusDegraded {
		t.Fatalf("90%% occupancy status = %v, want degraded", got)
	}

	fill(ring, 1)
	if got := m.Snapshot().Status; got != model.StatusUnhealthy {
		t.Fatalf("full queue status = %v, want unhealthy", got)
	}
}

func TestTransportUnavailableIsUnhealthy(t *testing.T) {
	m, _ := newTestMonitor(10)

	m.SetTransportAvailable(false)
	if got := m.Snapshot().Status; got != model.StatusUnhealthy {
		t.Fatalf("transport down status = %v, want unhealthy", got)
	}
	m.SetTransportAvailable(true)
	if got := m.Snapshot().Status; got != model.StatusHealthy {
		t.Fatalf("transport restored status = %v, want healthy", got)
	}
}

func TestPersistenceUnavailableDegradesOnly(t *testing.T) {
	m, _ := newTestMonitor(10)

	m.SetPersistenceAvailable(false)
	if got := m.Snapshot().Status; got != model.StatusDegraded {
		t.Fatalf("persistence down status = %v, want degraded", got)
	}
}

func TestSnapshotCountsAndUptime(t *testing.T) {
	m, ring := newTestMonitor(5)
	fill(ring, 2)

	snap := m.Snapshot()
	if snap.QueueSize != 2 || snap.QueueCapacity != 5 {
		t.Fatalf("queue size/capacity = %d/%d", snap.QueueSize, snap.QueueCapacity)
	}
	if snap.Connections != 0 {
		t.Fatalf("connections = %d, want 0", snap.Connections)
	}
	if snap.UptimeSeconds < 0 {
		t.Fatalf("negative uptime %d", snap.UptimeSeconds)
	}
}

type captureSink struct {
	mu     sync.Mutex
	events []model.EventKind
}

func (c *captureSink) PublishSystem(kind model.EventKind, payload map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, kind)
}

func (c *captureSink) kinds() []model.EventKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.EventKind(nil), c.events...)
}

func TestSampleEmitsMetricsAndAlertsOnTransition(t *testing.T) {
	m, ring := newTestMonitor(10)
	sink := new(captureSink)

	m.sample(sink)
	if got := sink.kinds(); len(got) != 1 || got[0] != model.MetricsUpdate {
		t.Fatalf("healthy sample emitted %v, want one metrics-update", got)
	}

	fill(ring, 10)
	m.sample(sink)
	got := sink.kinds()
	if len(got) != 3 || got[1] != model.MetricsUpdate || got[2] != model.SystemAlert {
		t.Fatalf("degraded transition emitted %v, want metrics-update then system-alert", got)
	}

	// Staying unhealthy does not re-alert.
	m.sample(sink)
	if got := sink.kinds(); len(got) != 4 || got[3] != model.MetricsUpdate {
		t.Fatalf("steady state emitted %v", got)
	}
}
