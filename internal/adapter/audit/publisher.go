package audit

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	wmamqp "github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/healis/realtime-service/config"
)

// NewPublisher builds the audit sink publisher. With an AMQP URI it
// publishes to a durable topic exchange; without one (development,
// tests) it falls back to an in-process channel.
func NewPublisher(cfg config.AuditConfig, logger *slog.Logger) (message.Publisher, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	if cfg.AMQPURI == "" {
		return gochannel.NewGoChannel(gochannel.Config{}, wmLogger), nil
	}

	amqpCfg := wmamqp.NewDurablePubSubConfig(cfg.AMQPURI, nil)
	amqpCfg.Exchange = wmamqp.ExchangeConfig{
		GenerateName: func(string) string { return cfg.Exchange },
		Type:         "topic",
		Durable:      true,
	}
	amqpCfg.Publish.GenerateRoutingKey = func(topic string) string { return topic }

	pub, err := wmamqp.NewPublisher(amqpCfg, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("audit: amqp publisher: %w", err)
	}
	return pub, nil
}
