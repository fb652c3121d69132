// Package audit is the persistence gateway: processed events go out as
// audit records on a durable message topic. Appends are best effort and
// sit behind a circuit breaker so a dead sink costs one failed publish,
// not a stalled delivery path.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/healis/realtime-service/internal/domain/health"
	"github.com/healis/realtime-service/internal/domain/model"
	"github.com/healis/realtime-service/internal/observe"
	"github.com/sony/gobreaker"
)

// Gateway publishes audit records through a watermill publisher guarded
// by a circuit breaker.
type Gateway struct {
	publisher message.Publisher
	topic     string
	breaker   *gobreaker.CircuitBreaker
	metrics   *observe.Metrics
	logger    *slog.Logger
}

func NewGateway(pub message.Publisher, topic string, monitor *health.Monitor, metrics *observe.Metrics, logger *slog.Logger) *Gateway {
	settings := gobreaker.Settings{
		Name: "audit-sink",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			// An open breaker marks the persistence sink unavailable;
			// health degrades but delivery is unaffected.
			monitor.SetPersistenceAvailable(to != gobreaker.StateOpen)
			logger.Warn("audit breaker state changed", "from", from.String(), "to", to.String())
		},
	}

	return &Gateway{
		publisher: pub,
		topic:     topic,
		breaker:   gobreaker.NewCircuitBreaker(settings),
		metrics:   metrics,
		logger:    logger,
	}
}

// Append publishes one audit record. Errors are returned for logging and
// metric purposes only; callers never retry or block delivery on them.
func (g *Gateway) Append(ctx context.Context, record *model.AuditRecord) error {
	if record == nil {
		return fmt.Errorf("audit: nil record")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		g.metrics.AuditAppends.WithLabelValues("error").Inc()
		return fmt.Errorf("audit: marshal record %s: %w", record.EventID, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_id", record.EventID)
	msg.Metadata.Set("kind", record.Kind)

	_, err = g.breaker.Execute(func() (interface{}, error) {
		return nil, g.publisher.Publish(g.topic, msg)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			g.metrics.AuditAppends.WithLabelValues("open_breaker").Inc()
		} else {
			g.metrics.AuditAppends.WithLabelValues("error").Inc()
		}
		return fmt.Errorf("audit: append %s: %w", record.EventID, err)
	}

	g.metrics.AuditAppends.WithLabelValues("success").Inc()
	return nil
}

// Close releases the underlying publisher.
func (g *Gateway) Close() error {
	return g.publisher.Close()
}
