package health

import (
	"context"
	"log/slog"

	"github.com/healis/realtime-service/config"
	"github.com/healis/realtime-service/internal/domain/queue"
	"github.com/healis/realtime-service/internal/domain/registry"
	"go.uber.org/fx"
)

var Module = fx.Module("health",
	fx.Provide(
		func(cfg *config.Config, ring *queue.Ring, reg registry.Registrar, logger *slog.Logger) *Monitor {
			return NewMonitor(ring, reg, cfg.Monitor.Interval(), logger)
		},
	),
	fx.Invoke(func(lc fx.Lifecycle, m *Monitor, sink AlertSink) {
		runCtx, cancel := context.WithCancel(context.Background())
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go m.Run(runCtx, sink)
				return nil
			},
			OnStop: func(context.Context) error {
				cancel()
				return nil
			},
		})
	}),
)
