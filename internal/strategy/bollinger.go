package strategy

import (
	"fmt"

	"auto_trader/internal/indicators"
	"auto_trader/internal/models"
)

type BollingerConfig struct {
	Period int
	StdDev float64
}

// Bollinger: покупаем касание нижней полосы, продаём касание верхней.
type Bollinger struct {
	cfg BollingerConfig
}

func NewBollinger(cfg BollingerConfig) *Bollinger {
	return &Bollinger{cfg: cfg}
}

func (s *Bollinger) Name() string { return "bollinger" }

func (s *Bollinger) GenerateSignal(symbol string, series models.PriceSeries) models.Signal {
	if len(series) < s.cfg.Period {
		return hold(symbol, series, reasonInsufficientData)
	}

	closes := series.Closes()
	bands := indicators.Bollinger(closes, s.cfg.Period, s.cfg.StdDev)

	n := len(closes) - 1
	price := closes[n]
	upper, lower := bands.Upper[n], bands.Lower[n]
	width := upper - lower

	if width <= 0 {
		// Плоская серия: полосы схлопнулись, сигнала нет.
		return hold(symbol, series, "bands collapsed")
	}

	if price <= lower {
		return models.Signal{
			Symbol:         symbol,
			Action:         models.ActionBuy,
			Strength:       clampStrength((lower - price) / width),
			ReferencePrice: price,
			Timestamp:      signalTime(series),
			Reason:         fmt.Sprintf("price at lower band (%.2f)", lower),
		}
	}

	if price >= upper {
		return models.Signal{
			Symbol:         symbol,
			Action:         models.ActionSell,
			Strength:       clampStrength((price - upper) / width),
			ReferencePrice: price,
			Timestamp:      signalTime(series),
			Reason:         fmt.Sprintf("price at upper band (%.2f)", upper),
		}
	}

	return hold(symbol, series, "price inside bands")
}
