package registry

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("registry",
	fx.Provide(
		NewRegistry,
		fx.Annotate(
			func(r *Registry) Registrar { return r },
			fx.As(new(Registrar)),
		),
	),
	fx.Invoke(func(lc fx.Lifecycle, r Registrar) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				r.Shutdown() // [GRACEFUL_SHUTDOWN] Close every live connection
				return nil
			},
		})
	}),
)
