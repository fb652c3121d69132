package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/healis/realtime-service/internal/domain/health"
	"github.com/healis/realtime-service/internal/domain/model"
	"github.com/healis/realtime-service/internal/domain/queue"
	"github.com/healis/realtime-service/internal/domain/registry"
	"github.com/healis/realtime-service/internal/observe"
)

var testMetrics = observe.NewMetrics()

func newMonitor() *health.Monitor {
	return health.NewMonitor(queue.NewRing(10), registry.NewRegistry(), time.Second, slog.Default())
}

func sampleRecord() *model.AuditRecord {
	return &model.AuditRecord{
		EventID:    "evt-1",
		Kind:       "patient-update",
		Priority:   "critical",
		ActorID:    "doc-1",
		Department: "emergency",
		Payload:    map[string]any{"patientId": "p-9"},
		OccurredAt: time.Now().UnixMilli(),
		Targets:    2,
		Delivered:  2,
		DeadlineAt: time.Now().Add(5 * time.Minute).UnixMilli(),
	}
}

func TestAppendRoundTrip(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(slog.Default()))
	defer pubsub.Close()

	const topic = "audit.test.v1"
	msgs, err := pubsub.Subscribe(context.Background(), topic)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	gw := NewGateway(pubsub, topic, newMonitor(), testMetrics, slog.Default())
	want := sampleRecord()
	if err := gw.Append(context.Background(), want); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	select {
	case msg := <-msgs:
		msg.Ack()
		var got model.AuditRecord
		if err := json.Unmarshal(msg.Payload, &got); err != nil {
			t.Fatalf("payload is not a record: %v", err)
		}
		if got.EventID != want.EventID || got.Kind != want.Kind || got.Delivered != want.Delivered {
			t.Fatalf("decoded record = %+v, want %+v", got, want)
		}
		if msg.Metadata.Get("event_id") != want.EventID {
			t.Fatalf("metadata event_id = %q", msg.Metadata.Get("event_id"))
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("record never arrived on topic")
	}
}

func TestAppendNilRecord(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(slog.Default()))
	defer pubsub.Close()

	gw := NewGateway(pubsub, "audit.test.v1", newMonitor(), testMetrics, slog.Default())
	if err := gw.Append(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil record")
	}
}

type failingPublisher struct{}

func (failingPublisher) Publish(string, ...*message.Message) error {
	return errors.New("sink down")
}

func (failingPublisher) Close() error { return nil }

func TestBreakerOpensAndDegradesHealth(t *testing.T) {
	monitor := newMonitor()
	gw := NewGateway(failingPublisher{}, "audit.test.v1", monitor, testMetrics, slog.Default())

	// Five consecutive failures trip the breaker.
	for i := 0; i < 5; i++ {
		if err := gw.Append(context.Background(), sampleRecord()); err == nil {
			t.Fatalf("append %d: expected publish failure", i)
		}
	}

	// Next append is rejected without touching the publisher.
	err := gw.Append(context.Background(), sampleRecord())
	if err == nil {
		t.Fatalf("expected open-breaker rejection")
	}

	snap := monitor.Snapshot()
	if snap.Status != model.StatusDegraded {
		t.Fatalf("health status = %q, want degraded while sink is down", snap.Status)
	}
}
