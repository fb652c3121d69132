package service

import (
	"log/slog"

	"github.com/healis/realtime-service/config"
	"github.com/healis/realtime-service/internal/domain/health"
	"github.com/healis/realtime-service/internal/domain/queue"
	"github.com/healis/realtime-service/internal/domain/registry"
	"github.com/healis/realtime-service/internal/domain/rooms"
	"github.com/healis/realtime-service/internal/domain/routing"
	"github.com/healis/realtime-service/internal/observe"
	"go.uber.org/fx"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		func(cfg *config.Config) *AuthGate {
			return NewAuthGate(cfg.Auth.Secret)
		},
		func(cfg *config.Config) *routing.CriticalPath {
			return routing.NewCriticalPath(cfg.Dispatch.CriticalDeadline())
		},
		func(
			cfg *config.Config,
			gate *AuthGate,
			reg registry.Registrar,
			idx *rooms.Index,
			ring *queue.Ring,
			crit *routing.CriticalPath,
			audit AuditAppender,
			logger *slog.Logger,
			metrics *observe.Metrics,
		) (*DispatchService, error) {
			return NewDispatchService(gate, reg, idx, ring, crit, audit, logger, metrics, Options{
				MailboxSize: cfg.Dispatch.MailboxSize,
				SendTimeout: cfg.Dispatch.SendTimeout(),
				DedupSize:   cfg.Dispatch.DedupSize,
			})
		},
		fx.Annotate(
			func(s *DispatchService) Dispatcher { return s },
			fx.As(new(Dispatcher)),
		),
		fx.Annotate(
			func(s *DispatchService) health.AlertSink { return s },
			fx.As(new(health.AlertSink)),
		),
	),
)
