package strategy

import (
	"fmt"
	"math"

	"auto_trader/internal/indicators"
	"auto_trader/internal/models"
)

type MACrossConfig struct {
	ShortPeriod int
	LongPeriod  int
}

// MACross: пересечение короткой SMA через длинную, строго по соседним свечам.
type MACross struct {
	cfg MACrossConfig
}

func NewMACross(cfg MACrossConfig) *MACross {
	return &MACross{cfg: cfg}
}

func (s *MACross) Name() string { return "moving_average" }

func (s *MACross) GenerateSignal(symbol string, series models.PriceSeries) models.Signal {
	if len(series) < s.cfg.LongPeriod+1 {
		return hold(symbol, series, reasonInsufficientData)
	}

	closes := series.Closes()
	short := indicators.SMA(closes, s.cfg.ShortPeriod)
	long := indicators.SMA(closes, s.cfg.LongPeriod)

	n := len(closes) - 1
	curShort, curLong := short[n], long[n]
	prevShort, prevLong := short[n-1], long[n-1]

	strength := clampStrength(math.Abs(curShort-curLong) / curLong)

	if curShort > curLong && prevShort <= prevLong {
		return models.Signal{
			Symbol:         symbol,
			Action:         models.ActionBuy,
			Strength:       strength,
			ReferencePrice: closes[n],
			Timestamp:      signalTime(series),
			Reason:         fmt.Sprintf("short MA (%.2f) crossed above long MA (%.2f)", curShort, curLong),
		}
	}

	if curShort < curLong && prevShort >= prevLong {
		return models.Signal{
			Symbol:         symbol,
			Action:         models.ActionSell,
			Strength:       strength,
			ReferencePrice: closes[n],
			Timestamp:      signalTime(series),
			Reason:         fmt.Sprintf("short MA (%.2f) crossed below long MA (%.2f)", curShort, curLong),
		}
	}

	return hold(symbol, series, "no ma cross")
}
