package health

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/fx"

	"auto_trader/internal/config"
	"auto_trader/internal/exchange"
	"auto_trader/internal/journal"
	"auto_trader/internal/risk"
	"auto_trader/internal/runner"
	"auto_trader/pkg/logger"
)

type lastPricer interface {
	LastPrice(symbol string) float64
}

// NewMux собирает служебные ручки: liveness, readiness и сводку состояния.
func NewMux(cfg *config.Config, b *runner.Bot, rm *risk.Manager, gw exchange.Gateway, jrn *journal.Store) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if b.State() != runner.StateRunning {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		metrics := rm.Metrics()
		resp := map[string]any{
			"state":       b.State().String(),
			"uptimeSec":   int64(b.Uptime().Seconds()),
			"positions":   len(rm.Positions()),
			"dailyTrades": metrics.DailyTrades,
			"dailyPnl":    metrics.DailyPnl,
			"riskLevel":   string(metrics.RiskLevel),
			"lastCycleUnix": func() int64 {
				t := b.LastCycle()
				if t.IsZero() {
					return 0
				}
				return t.Unix()
			}(),
		}

		if lp, ok := gw.(lastPricer); ok {
			prices := make(map[string]float64, len(cfg.Symbols))
			for _, symbol := range cfg.Symbols {
				if px := lp.LastPrice(symbol); px > 0 {
					prices[symbol] = px
				}
			}
			resp["lastPrices"] = prices
		}

		if trades, err := jrn.Recent(r.Context(), 10); err != nil {
			logger.Error("healthz recent trades: %v", err)
		} else if trades != nil {
			resp["recentTrades"] = trades
		}

		out, err := sonic.Marshal(resp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(out)
	})

	return mux
}

// RunHTTP поднимает служебный сервер, если он включён в конфиге.
func RunHTTP(lc fx.Lifecycle, cfg *config.Config, mux *http.ServeMux) {
	if !cfg.Health.Enabled {
		return
	}

	srv := &http.Server{
		Addr:              cfg.Health.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Health.Addr)
			if err != nil {
				return err
			}
			logger.Info("health endpoint on %s", cfg.Health.Addr)
			go func() { _ = srv.Serve(ln) }()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
