package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/healis/realtime-service/config"
	"github.com/healis/realtime-service/internal/domain/health"
	wshandler "github.com/healis/realtime-service/internal/handler/ws"
	"go.uber.org/fx"
)

var Module = fx.Module("httpapi",
	fx.Provide(
		wshandler.NewHandler,
		NewAPI,
		NewRouter,
	),

	fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, router chi.Router, monitor *health.Monitor, logger *slog.Logger) {
		srv := &http.Server{
			Addr:    cfg.Listen.Addr,
			Handler: router,
		}

		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				ln, err := net.Listen("tcp", srv.Addr)
				if err != nil {
					return err
				}
				monitor.SetTransportAvailable(true)
				logger.Info("http server listening", "addr", srv.Addr)
				go func() {
					if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
						logger.Error("http server failed", "error", err)
						monitor.SetTransportAvailable(false)
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				monitor.SetTransportAvailable(false)
				return srv.Shutdown(ctx)
			},
		})
	}),
)
