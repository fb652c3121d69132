package cmd

import (
	"log/slog"
	"os"

	"github.com/healis/realtime-service/config"
	"github.com/healis/realtime-service/internal/adapter/audit"
	"github.com/healis/realtime-service/internal/domain/health"
	"github.com/healis/realtime-service/internal/domain/queue"
	"github.com/healis/realtime-service/internal/domain/registry"
	"github.com/healis/realtime-service/internal/domain/rooms"
	"github.com/healis/realtime-service/internal/handler/httpapi"
	"github.com/healis/realtime-service/internal/observe"
	"github.com/healis/realtime-service/internal/service"
	"go.uber.org/fx"
)

func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideRing,
			rooms.NewIndex,
			observe.NewMetrics,
		),
		registry.Module,
		health.Module,
		service.Module,
		audit.Module,
		httpapi.Module,
	)
}

func ProvideLogger(cfg *config.Config) *slog.Logger {
	// The LevelVar is owned by the config loader; hot-reloading log.level
	// adjusts this handler in place.
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.Leveler()}))
}

func ProvideRing(cfg *config.Config) *queue.Ring {
	return queue.NewRing(cfg.Queue.Capacity)
}
