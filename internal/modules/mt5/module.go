package mt5

import (
	"context"

	"go.uber.org/fx"

	"auto_trader/internal/modules/config"
	enginesvc "auto_trader/internal/modules/engine/service"
	"auto_trader/internal/modules/mt5/service"
)

// streamOpener адаптирует клиента под интерфейс движка:
// *Subscription уже BarStream, нужна только обёртка возврата.
type streamOpener struct {
	c *service.Client
}

func (o streamOpener) OpenStream(ctx context.Context, symbol, timeframe string) (enginesvc.BarStream, error) {
	sub, err := o.c.OpenStream(ctx, symbol, timeframe)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func asHistoryProvider(c *service.Client) enginesvc.HistoryProvider { return c }

func asStreamOpener(c *service.Client) enginesvc.StreamOpener { return streamOpener{c: c} }

// dry_run подменяет мост бумажным брокером, поток данных остаётся живым.
func asOrderBackend(cfg *config.Config, c *service.Client) enginesvc.OrderBackend {
	if cfg.Trading.DryRun {
		return enginesvc.NewPaperBroker(10_000, 0.0005)
	}
	return c
}

func Module() fx.Option {
	return fx.Module("mt5",
		fx.Provide(
			service.NewClient,
			asHistoryProvider,
			asStreamOpener,
			asOrderBackend,
		),
	)
}
