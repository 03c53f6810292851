package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"auto_trader/internal/config"
	"auto_trader/internal/exchange"
	"auto_trader/internal/journal"
	"auto_trader/internal/notify"
	"auto_trader/internal/risk"
	"auto_trader/internal/strategy"
	"auto_trader/pkg/logger"
)

type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Bot — оркестратор: гоняет торговый цикл по расписанию и владеет
// последовательностью shutdown. Единственный писатель риск-состояния.
type Bot struct {
	cfg *config.Config
	gw  exchange.Gateway
	eng strategy.Engine
	rm  *risk.Manager
	jrn *journal.Store // может быть nil
	n   notify.Notifier

	state  atomic.Int32
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Ран-лок цикла: тик, заставший предыдущий цикл в полёте,
	// пропускается, а не ставится в очередь.
	cycleBusy atomic.Bool

	startedAt     time.Time
	lastCycleUnix atomic.Int64

	tradingEnabled bool
}

func New(cfg *config.Config, gw exchange.Gateway, eng strategy.Engine, rm *risk.Manager, jrn *journal.Store, n notify.Notifier) *Bot {
	return &Bot{
		cfg:            cfg,
		gw:             gw,
		eng:            eng,
		rm:             rm,
		jrn:            jrn,
		n:              n,
		tradingEnabled: cfg.Trading.Enabled,
	}
}

func (b *Bot) State() State {
	return State(b.state.Load())
}

// LastCycle — время завершения последнего цикла, нулевое до первого.
func (b *Bot) LastCycle() time.Time {
	u := b.lastCycleUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

// Uptime — время с момента старта, ноль до первого Start.
func (b *Bot) Uptime() time.Duration {
	if b.startedAt.IsZero() {
		return 0
	}
	return time.Since(b.startedAt)
}

// Start подключает биржу и запускает периодический цикл. Ошибка инициализации
// оставляет бота в idle.
func (b *Bot) Start(parent context.Context) error {
	if b.State() != StateIdle {
		return errors.Errorf("start from state %s", b.State())
	}

	if err := b.gw.Connect(parent); err != nil {
		return errors.Wrap(err, "exchange init")
	}

	ctx, cancel := context.WithCancel(parent)
	b.cancel = cancel
	b.startedAt = time.Now()
	b.state.Store(int32(StateRunning))

	logger.Info("bot started: strategy=%s symbols=%v frequency=%s trading=%v",
		b.eng.Name(), b.cfg.Symbols, b.cfg.Trading.Frequency, b.tradingEnabled)
	b.n.Sendf("🤖 bot started | %s | %d symbols", b.eng.Name(), len(b.cfg.Symbols))

	b.wg.Add(1)
	go b.loop(ctx)

	// Если шлюз умеет стримить цены, открытые позиции помечаются
	// свежими котировками между циклами.
	if ts, ok := b.gw.(tickerStreamer); ok {
		b.wg.Add(1)
		go b.consumeTicks(ctx, ts.StreamTickers(ctx, b.cfg.Symbols))
	}
	return nil
}

type tickerStreamer interface {
	StreamTickers(ctx context.Context, symbols []string) <-chan exchange.Tick
}

func (b *Bot) consumeTicks(ctx context.Context, ticks <-chan exchange.Tick) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case tick, ok := <-ticks:
			if !ok {
				return
			}
			// Позиция могла закрыться между проверкой и обновлением,
			// такая ошибка не интересна.
			if _, open := b.rm.Position(tick.Symbol); open {
				_ = b.rm.MarkPrice(tick.Symbol, tick.Last)
			}
		}
	}
}

func (b *Bot) loop(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.Trading.Frequency)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Цикл учитывается в WaitGroup: Stop не начнёт ликвидацию,
			// пока висит запущенный до отмены тик.
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.runCycle(ctx)
			}()
		}
	}
}

func (b *Bot) runCycle(ctx context.Context) {
	if !b.cycleBusy.CompareAndSwap(false, true) {
		logger.Warn("previous cycle still in flight, tick skipped")
		return
	}
	defer b.cycleBusy.Store(false)

	b.executeCycle(ctx)
}

// Stop: новые тики не принимаются, текущий цикл дорабатывает, остатки позиций
// закрываются принудительно, соединение отпускается.
func (b *Bot) Stop(ctx context.Context) {
	if !b.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return
	}
	logger.Info("stopping bot...")

	if b.cancel != nil {
		b.cancel()
	}
	// Wait покрывает и основной цикл, и тики, запущенные до отмены.
	b.wg.Wait()

	b.liquidateAll(ctx)

	b.gw.Disconnect()
	b.state.Store(int32(StateStopped))
	logger.Info("bot stopped")
	b.n.Send("🛑 bot stopped")
}

// liquidateAll закрывает всё, что осталось. Ошибки по отдельным символам
// логируются и не прерывают shutdown.
func (b *Bot) liquidateAll(ctx context.Context) {
	for symbol := range b.rm.Positions() {
		if err := b.closePosition(ctx, symbol, "bot shutdown"); err != nil {
			logger.Error("forced close %s failed: %v", symbol, err)
		}
	}
}

// ManualTrade — ручной вход под теми же риск-проверками, что и у цикла.
func (b *Bot) ManualTrade(ctx context.Context, symbol string, side string, quantity, price float64) error {
	posSide, orderSide, err := mapSide(side)
	if err != nil {
		return err
	}

	allowed, reason := b.rm.CheckLimits(symbol, posSide, quantity, price)
	if !allowed {
		return errors.Errorf("manual trade blocked: %s", reason)
	}

	orderType := orderTypeFor(price)
	order, err := b.gw.CreateOrder(ctx, symbol, orderSide, orderType, quantity, price)
	if err != nil {
		return errors.Wrapf(err, "manual trade %s", symbol)
	}
	if !order.Status.Accepted() {
		return errors.Errorf("manual trade %s rejected: status=%s", symbol, order.Status)
	}

	entryPrice := price
	if entryPrice <= 0 {
		entryPrice = order.Price
	}
	if err := b.rm.OpenPosition(symbol, posSide, quantity, entryPrice); err != nil {
		return err
	}

	logger.Info("manual trade: %s %s %.6f @ %.4f", symbol, side, quantity, entryPrice)
	b.n.Sendf("✍️ manual %s %s %.6f @ %.4f", symbol, side, quantity, entryPrice)
	return nil
}
