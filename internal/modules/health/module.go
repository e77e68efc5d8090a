package health

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"

	appconfig "auto_trader/internal/modules/config"
	enginesvc "auto_trader/internal/modules/engine/service"
	"auto_trader/internal/modules/health/service"
	"auto_trader/pkg/logger"
)

type Config struct {
	Addr string // например ":8080"
}

func NewConfig(cfg *appconfig.Config) Config {
	addr := cfg.Service.AdminAddr
	if addr == "" {
		addr = ":8080"
	}
	return Config{Addr: addr}
}

func NewMux(state *service.State, ctrl *enginesvc.Controller) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		// liveness: процесс жив
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		// readiness: сервис готов обслуживать трафик
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		// полезный JSON для отладки
		snap := ctrl.Snapshot()
		resp := map[string]any{
			"ready":     state.Ready(),
			"status":    snap.Status,
			"uptimeSec": int64(state.Uptime().Seconds()),
			"lastBarUnix": func() int64 {
				if snap.LastBarTime.IsZero() {
					return 0
				}
				return snap.LastBarTime.Unix()
			}(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ctrl.Snapshot())
	})

	mux.HandleFunc("/signals", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ctrl.Log().Entries())
	})

	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg Config, state *service.State, mux *http.ServeMux) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			go func() {
				if serveErr := srv.Serve(ln); serveErr != nil && serveErr != http.ErrServerClosed {
					logger.Error("[HEALTH] serve: %v", serveErr)
				}
			}()
			state.SetReady(true)
			logger.Info("[HEALTH] admin on %s", cfg.Addr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			state.SetReady(false)
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			NewConfig,
			NewMux,
		),
		fx.Invoke(RunHTTP),
	)
}
