package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/fx"

	"auto_trader/internal/config"
	"auto_trader/internal/exchange"
	"auto_trader/internal/health"
	"auto_trader/internal/journal"
	"auto_trader/internal/notify"
	"auto_trader/internal/risk"
	"auto_trader/internal/runner"
	"auto_trader/internal/strategy"
	"auto_trader/pkg/db"
	"auto_trader/pkg/logger"
	"auto_trader/pkg/tracing"
)

func main() {
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	symbol := flag.String("symbol", "", "торговать только этой парой (например BTC-USDT)")
	strategyName := flag.String("strategy", "", "стратегия: rsi_macd | bollinger | moving_average")
	dryRun := flag.Bool("dry-run", false, "режим симуляции: входы отключены")
	testConnection := flag.Bool("test-connection", false, "проверить соединение с биржей и выйти")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug)
	defer logger.Sync()

	// Флаги поверх конфига.
	if *symbol != "" {
		cfg.Symbols = []string{*symbol}
		logger.Info("symbol override: %s", *symbol)
	}
	if *strategyName != "" {
		cfg.Algorithm.Strategy = *strategyName
		logger.Info("strategy override: %s", *strategyName)
	}
	if *dryRun {
		cfg.Trading.Enabled = false
		logger.Info("dry-run: trading disabled")
	}

	if *testConnection {
		os.Exit(runConnectionTest(cfg))
	}

	logConfig(cfg)

	app := fx.New(
		fx.Supply(cfg),
		fx.Provide(
			func(cfg *config.Config) (exchange.Gateway, error) {
				return exchange.NewGateway(cfg.Exchange)
			},
			func(cfg *config.Config) (strategy.Engine, error) {
				return strategy.NewEngine(cfg.Algorithm)
			},
			func(cfg *config.Config) *risk.Manager {
				return risk.NewManager(cfg.Risk)
			},
			provideJournal,
			provideNotifier,
			runner.New,
			health.NewMux,
		),
		fx.Invoke(registerTracing, registerBot, health.RunHTTP),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		logger.Error("startup failed: %v", err)
		os.Exit(1)
	}

	<-app.Done()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		logger.Error("shutdown: %v", err)
		os.Exit(1)
	}
}

// provideJournal: журнал опционален, без DSN работаем с nil-стором.
func provideJournal(cfg *config.Config) (*journal.Store, error) {
	if !cfg.Journal.Enabled || cfg.Journal.DSN == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.Journal.DSN})
	if err != nil {
		return nil, fmt.Errorf("journal pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("journal ping: %w", err)
	}

	return journal.New(db.NewPgTxManager(pool))
}

// provideNotifier: если Telegram не настроен — пишем в stdout.
func provideNotifier(cfg *config.Config) notify.Notifier {
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		if tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID); err == nil {
			return tg
		}
		logger.Warn("telegram init failed, falling back to stdout")
	}
	return notify.NewStdout()
}

func registerTracing(lc fx.Lifecycle, cfg *config.Config) error {
	if !cfg.Tracing.Enabled {
		return nil
	}

	_, closer, err := tracing.InitTracer(tracing.Config{
		Host: cfg.Tracing.Host,
		Port: cfg.Tracing.Port,
	})
	if err != nil {
		return fmt.Errorf("tracing init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closer()
			return nil
		},
	})
	return nil
}

func registerBot(lc fx.Lifecycle, b *runner.Bot) {
	lc.Append(fx.Hook{
		// Стартовый ctx живёт только до конца OnStart, рабочий цикл
		// должен пережить его.
		OnStart: func(context.Context) error {
			return b.Start(context.Background())
		},
		OnStop: func(ctx context.Context) error {
			b.Stop(ctx)
			return nil
		},
	})
}

func runConnectionTest(cfg *config.Config) int {
	logger.Info("testing exchange connection...")

	gw, err := exchange.NewGateway(cfg.Exchange)
	if err != nil {
		logger.Error("connection test: %v", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := gw.Connect(ctx); err != nil {
		logger.Error("connection test: %v", err)
		return 1
	}
	defer gw.Disconnect()

	balances, err := gw.GetBalance(ctx, "USDT")
	if err != nil {
		logger.Error("connection test: get balance: %v", err)
		return 1
	}
	if usdt, ok := balances["USDT"]; ok {
		logger.Info("connection ok, USDT balance: %.2f", usdt.Free)
	} else {
		logger.Info("connection ok, no USDT balance found")
	}
	return 0
}

func logConfig(cfg *config.Config) {
	logger.Info("symbols: %v", cfg.Symbols)
	logger.Info("strategy: %s", cfg.Algorithm.Strategy)
	logger.Info("trading frequency: %s", cfg.Trading.Frequency)
	logger.Info("profit target: %.1f%%, stop loss: %.1f%%",
		cfg.Risk.ProfitTarget*100, cfg.Risk.StopLoss*100)
	logger.Info("max position size: %.0f USDT", cfg.Risk.MaxPositionSize)
	logger.Info("trading enabled: %v", cfg.Trading.Enabled)
}
