package runner

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"auto_trader/internal/models"
	"auto_trader/pkg/logger"
)

// Сдвиг лимитной цены от тача: 0.1% внутрь спреда, чтобы повысить шанс фила.
const limitPriceOffset = 0.001

// executeCycle — один торговый цикл: цены открытых позиций, выходы, входы,
// статус. Ошибка по одному символу не трогает остальные шаги и символы.
func (b *Bot) executeCycle(ctx context.Context) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "trading_cycle")
	defer span.Finish()

	logger.Debug("trading cycle started")

	b.refreshPositions(ctx)
	if ctx.Err() != nil {
		return
	}

	b.checkExits(ctx)
	if ctx.Err() != nil {
		return
	}

	if b.tradingEnabled {
		b.checkEntries(ctx)
	}
	if ctx.Err() != nil {
		return
	}

	b.logStatus()
	b.lastCycleUnix.Store(time.Now().Unix())
}

// Шаг 1: обновить цены всех открытых позиций.
func (b *Bot) refreshPositions(ctx context.Context) {
	for symbol := range b.rm.Positions() {
		ticker, err := b.gw.GetTicker(ctx, symbol)
		if err != nil {
			logger.Error("refresh %s price: %v", symbol, err)
			continue
		}
		if err := b.rm.MarkPrice(symbol, ticker.Last); err != nil {
			logger.Error("mark %s price: %v", symbol, err)
		}
	}
}

// Шаг 2: стоп-лосс / тейк-профит.
func (b *Bot) checkExits(ctx context.Context) {
	for symbol := range b.rm.Positions() {
		shouldClose, reason := b.rm.ShouldClose(symbol)
		if !shouldClose {
			continue
		}

		logger.Info("exit signal: %s — %s", symbol, reason)
		if err := b.closePosition(ctx, symbol, reason); err != nil {
			logger.Error("close %s: %v", symbol, err)
		}
	}
}

// Шаг 3: новые входы по сигналам стратегии.
func (b *Bot) checkEntries(ctx context.Context) {
	open := b.rm.Positions()

	for _, symbol := range b.cfg.Symbols {
		if _, ok := open[symbol]; ok {
			continue
		}

		series, err := b.gw.GetKlines(ctx, symbol, b.cfg.Trading.KlineInterval, b.cfg.Trading.KlineLimit)
		if err != nil {
			logger.Error("get klines %s: %v", symbol, err)
			continue
		}
		if len(series) == 0 {
			continue
		}

		sig := b.eng.GenerateSignal(symbol, series)
		if sig.Action == models.ActionHold {
			continue
		}

		logger.Info("signal: %s %s (strength=%.2f) — %s", symbol, sig.Action, sig.Strength, sig.Reason)
		if err := b.executeSignal(ctx, sig); err != nil {
			logger.Error("execute signal %s: %v", symbol, err)
		}
	}
}

// executeSignal прогоняет сигнал через риск-проверки и отправляет лимитный
// ордер чуть внутрь спреда в сторону сигнала.
func (b *Bot) executeSignal(ctx context.Context, sig models.Signal) error {
	posSide := models.PositionLong
	orderSide := models.OrderSideBuy
	if sig.Action == models.ActionSell {
		posSide = models.PositionShort
		orderSide = models.OrderSideSell
	}

	allowed, reason := b.rm.CheckLimits(sig.Symbol, posSide, 0, sig.ReferencePrice)
	if !allowed {
		logger.Warn("risk limit: %s — %s", sig.Symbol, reason)
		b.n.Sendf("⚠️ [%s] entry blocked: %s", sig.Symbol, reason)
		return nil
	}

	quantity := b.rm.SizePosition(sig.Symbol, sig.ReferencePrice, sig.Strength)
	if quantity <= 0 {
		logger.Warn("position size below minimum: %s", sig.Symbol)
		return nil
	}

	orderPrice := sig.ReferencePrice * (1 - limitPriceOffset)
	if orderSide == models.OrderSideSell {
		orderPrice = sig.ReferencePrice * (1 + limitPriceOffset)
	}

	order, err := b.gw.CreateOrder(ctx, sig.Symbol, orderSide, models.OrderTypeLimit, quantity, orderPrice)
	if err != nil {
		return errors.Wrap(err, "create order")
	}
	if !order.Status.Accepted() {
		logger.Warn("order rejected: %s status=%s", sig.Symbol, order.Status)
		return nil
	}

	if err := b.rm.OpenPosition(sig.Symbol, posSide, quantity, orderPrice); err != nil {
		return errors.Wrap(err, "open position")
	}

	logger.Info("order accepted: %s %s %.6f @ %.4f", sig.Symbol, orderSide, quantity, orderPrice)
	b.n.Sendf("✅ [%s] OPEN %s %.6f @ %.4f | %s", sig.Symbol, orderSide, quantity, orderPrice, sig.Reason)
	return nil
}

// closePosition отправляет закрывающий лимитник чуть внутрь спреда и по
// подтверждению переводит позицию в журнал.
func (b *Bot) closePosition(ctx context.Context, symbol, reason string) error {
	pos, ok := b.rm.Position(symbol)
	if !ok {
		return errors.Errorf("no open position for %s", symbol)
	}

	ticker, err := b.gw.GetTicker(ctx, symbol)
	if err != nil {
		return errors.Wrap(err, "get ticker")
	}

	orderSide := models.OrderSideSell
	orderPrice := ticker.Ask * (1 - limitPriceOffset)
	if pos.Side == models.PositionShort {
		orderSide = models.OrderSideBuy
		orderPrice = ticker.Bid * (1 + limitPriceOffset)
	}

	order, err := b.gw.CreateOrder(ctx, symbol, orderSide, models.OrderTypeLimit, pos.Quantity, orderPrice)
	if err != nil {
		return errors.Wrap(err, "create close order")
	}
	if !order.Status.Accepted() {
		return errors.Errorf("close order rejected: status=%s", order.Status)
	}

	record, err := b.rm.ClosePosition(symbol)
	if err != nil {
		return err
	}

	if err := b.jrn.Append(ctx, record); err != nil {
		// Журнал вторичен: метрики живут в памяти, сделку не откатываем.
		logger.Error("journal append %s: %v", symbol, err)
	}

	logger.Info("position closed: %s — %s | pnl=%.2f (%.2f%%)",
		symbol, reason, record.Pnl, record.PnlPct*100)
	b.n.Sendf("📕 [%s] CLOSE %s | pnl=%.2f (%.2f%%) | %s",
		symbol, pos.Side, record.Pnl, record.PnlPct*100, reason)
	return nil
}

// Шаг 4: сводка метрик и открытых позиций.
func (b *Bot) logStatus() {
	metrics := b.rm.Metrics()
	positions := b.rm.Positions()

	logger.Info("=== status === risk=%s drawdown=%.2f%% dailyTrades=%d dailyPnl=%.2f winRate=%.2f%% sharpe=%.2f positions=%d",
		metrics.RiskLevel, metrics.MaxDrawdown*100, metrics.DailyTrades,
		metrics.DailyPnl, metrics.WinRate*100, metrics.SharpeRatio, len(positions))

	for symbol, pos := range positions {
		logger.Info("  %s: %s %.6f @ %.4f (now %.4f, pnl %.2f%%)",
			symbol, pos.Side, pos.Quantity, pos.EntryPrice, pos.CurrentPrice, pos.UnrealizedPnlPct*100)
	}
}

func mapSide(side string) (models.PositionSide, models.OrderSide, error) {
	switch side {
	case "long":
		return models.PositionLong, models.OrderSideBuy, nil
	case "short":
		return models.PositionShort, models.OrderSideSell, nil
	default:
		return "", "", errors.Errorf("unknown side: %s", side)
	}
}

func orderTypeFor(price float64) models.OrderType {
	if price > 0 {
		return models.OrderTypeLimit
	}
	return models.OrderTypeMarket
}
