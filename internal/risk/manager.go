package risk

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"auto_trader/internal/config"
	"auto_trader/internal/models"
)

var (
	ErrPositionExists   = errors.New("position already exists")
	ErrPositionNotFound = errors.New("position not found")
)

// Manager владеет позициями и дневными счётчиками. Все мутации — под одним
// мьютексом: раннер единственный писатель, читатели не пересекаются с циклом.
type Manager struct {
	mu sync.Mutex

	cfg config.RiskConfig

	positions     map[string]*models.Position
	history       []models.TradeRecord
	dailyTrades   int
	dailyPnl      float64
	maxDrawdown   float64
	peakBalance   float64
	lastResetDate time.Time
}

func NewManager(cfg config.RiskConfig) *Manager {
	return &Manager{
		cfg:           cfg,
		positions:     make(map[string]*models.Position),
		lastResetDate: truncateDate(time.Now()),
	}
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// resetDailyLocked обнуляет дневные счётчики ровно один раз при смене даты.
func (m *Manager) resetDailyLocked() {
	today := truncateDate(time.Now())
	if !today.Equal(m.lastResetDate) {
		m.dailyTrades = 0
		m.dailyPnl = 0
		m.lastResetDate = today
	}
}

// availableBalance — баланс для расчётов. Источник — конфиг, как и отправная
// точка метрик; реальный биржевой баланс сюда не подмешивается.
func (m *Manager) availableBalance() float64 {
	return m.cfg.MaxPositionSize
}

// SizePosition возвращает количество монет для входа. Ноль значит "не торговать".
func (m *Manager) SizePosition(symbol string, price, signalStrength float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetDailyLocked()

	if price <= 0 {
		return 0
	}

	notional := m.availableBalance() * m.cfg.PositionSizePercent * signalStrength
	if notional < m.cfg.MinTradeAmount {
		return 0
	}
	if notional > m.cfg.MaxPositionSize {
		notional = m.cfg.MaxPositionSize
	}

	return notional / price
}

// CheckLimits прогоняет проверки в фиксированном порядке; первая сработавшая
// возвращает свою причину. Порядок — контракт, причины уходят в логи.
func (m *Manager) CheckLimits(symbol string, side models.PositionSide, quantity, price float64) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetDailyLocked()

	if m.dailyTrades >= m.cfg.MaxDailyTrades {
		return false, fmt.Sprintf("daily trade limit reached: %d", m.cfg.MaxDailyTrades)
	}

	if len(m.positions) >= m.cfg.MaxConcurrentPositions {
		return false, fmt.Sprintf("max concurrent positions reached: %d", m.cfg.MaxConcurrentPositions)
	}

	if _, ok := m.positions[symbol]; ok {
		return false, fmt.Sprintf("position already open for %s", symbol)
	}

	if m.maxDrawdown > m.cfg.MaxDrawdown {
		return false, fmt.Sprintf("max drawdown limit exceeded: %.1f%%", m.cfg.MaxDrawdown*100)
	}

	if m.maxDrawdown > m.cfg.EmergencyStopLoss {
		return false, fmt.Sprintf("emergency stop triggered: %.1f%%", m.cfg.EmergencyStopLoss*100)
	}

	return true, "risk checks passed"
}

// OpenPosition добавляет позицию. Повторное открытие по символу — ошибка,
// молча перезаписывать нельзя.
func (m *Manager) OpenPosition(symbol string, side models.PositionSide, quantity, entryPrice float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetDailyLocked()

	if _, ok := m.positions[symbol]; ok {
		return errors.Wrap(ErrPositionExists, symbol)
	}

	m.positions[symbol] = &models.Position{
		Symbol:       symbol,
		Side:         side,
		Quantity:     quantity,
		EntryPrice:   entryPrice,
		CurrentPrice: entryPrice,
		EntryTime:    time.Now(),
	}
	m.dailyTrades++
	return nil
}

// MarkPrice обновляет текущую цену и нереализованный PnL открытой позиции.
func (m *Manager) MarkPrice(symbol string, currentPrice float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok {
		return errors.Wrap(ErrPositionNotFound, symbol)
	}

	pos.CurrentPrice = currentPrice
	if pos.Side == models.PositionLong {
		pos.UnrealizedPnl = (currentPrice - pos.EntryPrice) * pos.Quantity
	} else {
		pos.UnrealizedPnl = (pos.EntryPrice - currentPrice) * pos.Quantity
	}
	pos.UnrealizedPnlPct = pos.UnrealizedPnl / (pos.EntryPrice * pos.Quantity)
	return nil
}

// ShouldClose: стоп-лосс либо тейк-профит по нереализованному проценту.
func (m *Manager) ShouldClose(symbol string) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok {
		return false, "position not found"
	}

	if pos.UnrealizedPnlPct <= -m.cfg.StopLoss {
		return true, fmt.Sprintf("stop loss triggered: %.2f%%", pos.UnrealizedPnlPct*100)
	}

	if pos.UnrealizedPnlPct >= m.cfg.ProfitTarget {
		return true, fmt.Sprintf("profit target reached: %.2f%%", pos.UnrealizedPnlPct*100)
	}

	return false, "position within limits"
}

// ClosePosition переводит позицию в TradeRecord и копит дневной PnL.
func (m *Manager) ClosePosition(symbol string) (models.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok {
		return models.TradeRecord{}, errors.Wrap(ErrPositionNotFound, symbol)
	}
	delete(m.positions, symbol)

	record := models.TradeRecord{
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		Quantity:   pos.Quantity,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  pos.CurrentPrice,
		EntryTime:  pos.EntryTime,
		ExitTime:   time.Now(),
		Pnl:        pos.UnrealizedPnl,
		PnlPct:     pos.UnrealizedPnlPct,
	}
	m.history = append(m.history, record)
	m.dailyPnl += record.Pnl

	return record, nil
}

// Metrics пересчитывает агрегаты. Пик баланса монотонный, просадка — максимум
// за всю сессию.
func (m *Manager) Metrics() models.RiskMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetDailyLocked()

	totalBalance := m.availableBalance()

	var totalExposure, unrealized float64
	for _, pos := range m.positions {
		totalExposure += pos.Quantity * pos.CurrentPrice
		unrealized += pos.UnrealizedPnl
	}

	currentBalance := totalBalance + unrealized
	if currentBalance > m.peakBalance {
		m.peakBalance = currentBalance
	}

	var drawdown float64
	if m.peakBalance > 0 {
		drawdown = (m.peakBalance - currentBalance) / m.peakBalance
	}
	if drawdown > m.maxDrawdown {
		m.maxDrawdown = drawdown
	}

	var winRate float64
	if len(m.history) > 0 {
		wins := 0
		for _, tr := range m.history {
			if tr.Pnl > 0 {
				wins++
			}
		}
		winRate = float64(wins) / float64(len(m.history))
	}

	return models.RiskMetrics{
		TotalBalance:     totalBalance,
		AvailableBalance: totalBalance,
		TotalExposure:    totalExposure,
		MaxDrawdown:      m.maxDrawdown,
		DailyPnl:         m.dailyPnl,
		DailyTrades:      m.dailyTrades,
		WinRate:          winRate,
		SharpeRatio:      m.sharpeLocked(),
		RiskLevel:        riskLevel(drawdown, m.dailyTrades, winRate),
	}
}

// sharpeLocked — упрощённый Sharpe: среднее / отклонение сырых процентов
// по сделкам, без аннуализации. Меньше двух сделок или нулевая сигма — ноль.
func (m *Manager) sharpeLocked() float64 {
	if len(m.history) < 2 {
		return 0
	}

	var sum float64
	for _, tr := range m.history {
		sum += tr.PnlPct
	}
	mean := sum / float64(len(m.history))

	var variance float64
	for _, tr := range m.history {
		d := tr.PnlPct - mean
		variance += d * d
	}
	stdev := math.Sqrt(variance / float64(len(m.history)))
	if stdev == 0 {
		return 0
	}

	return mean / stdev
}

// riskLevel — упорядоченная таблица порогов, побеждает худший сработавший.
// Свежая сессия без закрытых сделок имеет winRate 0 и считается critical.
func riskLevel(drawdown float64, dailyTrades int, winRate float64) models.RiskLevel {
	switch {
	case drawdown > 0.15 || dailyTrades > 40 || winRate < 0.3:
		return models.RiskCritical
	case drawdown > 0.1 || dailyTrades > 30 || winRate < 0.4:
		return models.RiskHigh
	case drawdown > 0.05 || dailyTrades > 20 || winRate < 0.5:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// Positions возвращает копию открытых позиций.
func (m *Manager) Positions() map[string]models.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]models.Position, len(m.positions))
	for sym, pos := range m.positions {
		out[sym] = *pos
	}
	return out
}

func (m *Manager) Position(symbol string) (models.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok {
		return models.Position{}, false
	}
	return *pos, true
}

// History возвращает копию журнала закрытых сделок.
func (m *Manager) History() []models.TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.TradeRecord, len(m.history))
	copy(out, m.history)
	return out
}
