package strategy

import (
	"go.uber.org/fx"

	"auto_trader/internal/modules/config"
	"auto_trader/internal/modules/strategy/service"
)

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			func(cfg *config.Config) *service.SelectionStore {
				return service.NewSelectionStore(cfg.Engine.SelectionFile)
			},
		),
	)
}
