package main

import (
	"context"
	"log"

	"go.uber.org/fx"

	"auto_trader/internal/modules/config"
	"auto_trader/internal/modules/engine"
	enginesvc "auto_trader/internal/modules/engine/service"
	"auto_trader/internal/modules/health"
	"auto_trader/internal/modules/mt5"
	"auto_trader/internal/modules/strategy"
	"auto_trader/internal/notify"
	"auto_trader/pkg/logger"
	"auto_trader/pkg/tracing"
)

const serviceName = "auto_trader"

func main() {
	logger.SetServiceName(serviceName)
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}

	app := fx.New(
		config.Module(),
		mt5.Module(),
		strategy.Module(),
		engine.Module(),
		health.Module(),
		fx.Provide(
			// Notifier: если TELEGRAM_* нет — используем stdout
			func(cfg *config.Config) notify.Notifier {
				if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
					if tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID); err == nil {
						return tg
					}
				}
				return notify.NewStdout()
			},
		),
		fx.Invoke(
			func(lc fx.Lifecycle, cfg *config.Config) {
				if cfg.Jaeger.Host == "" {
					return
				}
				tracing.SetServiceName(serviceName)
				_, closeTracer, err := tracing.InitTracer(tracing.Config{
					Host: cfg.Jaeger.Host,
					Port: cfg.Jaeger.Port,
				})
				if err != nil {
					logger.Error("[TRACING] init: %v", err)
					return
				}
				lc.Append(fx.Hook{
					OnStop: func(ctx context.Context) error {
						closeTracer()
						return nil
					},
				})
			},
			func(lc fx.Lifecycle, cfg *config.Config, ctrl *enginesvc.Controller) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						if !cfg.Trading.Autostart {
							return nil
						}
						// ран живёт дольше стартового контекста fx
						return ctrl.Start(context.Background())
					},
					OnStop: func(ctx context.Context) error {
						ctrl.Stop()
						return nil
					},
				})
			},
		),
	)
	app.Run()
}
