package audit

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/healis/realtime-service/config"
	"github.com/healis/realtime-service/internal/domain/health"
	"github.com/healis/realtime-service/internal/observe"
	"github.com/healis/realtime-service/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit",
	fx.Provide(
		func(cfg *config.Config, logger *slog.Logger) (message.Publisher, error) {
			return NewPublisher(cfg.Audit, logger)
		},
		func(cfg *config.Config, pub message.Publisher, monitor *health.Monitor, metrics *observe.Metrics, logger *slog.Logger) *Gateway {
			return NewGateway(pub, cfg.Audit.Topic, monitor, metrics, logger)
		},
		fx.Annotate(
			func(g *Gateway) service.AuditAppender { return g },
			fx.As(new(service.AuditAppender)),
		),
	),
	fx.Invoke(func(lc fx.Lifecycle, g *Gateway) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return g.Close()
			},
		})
	}),
)
