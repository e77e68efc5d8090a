package engine

import (
	"go.uber.org/fx"

	"auto_trader/internal/modules/config"
	"auto_trader/internal/modules/engine/service"
)

func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(
			func(cfg *config.Config) *service.SignalLog {
				capacity := cfg.Engine.LogCap
				if capacity <= 0 {
					capacity = service.DefaultLogCap
				}
				return service.NewSignalLog(capacity)
			},
			service.NewDispatcher,
			service.NewController,
		),
	)
}
