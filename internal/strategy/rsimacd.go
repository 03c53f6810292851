package strategy

import (
	"fmt"

	"auto_trader/internal/indicators"
	"auto_trader/internal/models"
)

type RSIMACDConfig struct {
	RSIPeriod  int
	Oversold   float64
	Overbought float64
	MACDFast   int
	MACDSlow   int
	MACDSignal int
}

// RSIMACD: вход по перепроданности/перекупленности RSI, подтверждённой
// пересечением MACD строго на текущей свече (edge-triggered, не "выше").
type RSIMACD struct {
	cfg RSIMACDConfig
}

func NewRSIMACD(cfg RSIMACDConfig) *RSIMACD {
	return &RSIMACD{cfg: cfg}
}

func (s *RSIMACD) Name() string { return "rsi_macd" }

func (s *RSIMACD) GenerateSignal(symbol string, series models.PriceSeries) models.Signal {
	need := s.cfg.MACDSlow
	if s.cfg.RSIPeriod > need {
		need = s.cfg.RSIPeriod
	}
	// +1 — для сравнения текущего значения с предыдущим.
	if len(series) < need+1 {
		return hold(symbol, series, reasonInsufficientData)
	}

	closes := series.Closes()
	rsi := indicators.RSI(closes, s.cfg.RSIPeriod)
	macd := indicators.MACD(closes, s.cfg.MACDFast, s.cfg.MACDSlow, s.cfg.MACDSignal)

	n := len(closes) - 1
	curRSI := rsi[n]
	curMACD, curSignal := macd.MACDLine[n], macd.SignalLine[n]
	prevMACD, prevSignal := macd.MACDLine[n-1], macd.SignalLine[n-1]

	crossUp := prevMACD <= prevSignal && curMACD > curSignal
	crossDown := prevMACD >= prevSignal && curMACD < curSignal

	if curRSI < s.cfg.Oversold && crossUp {
		strength := clampStrength((s.cfg.Oversold - curRSI) / s.cfg.Oversold)
		return models.Signal{
			Symbol:         symbol,
			Action:         models.ActionBuy,
			Strength:       strength,
			ReferencePrice: closes[n],
			Timestamp:      signalTime(series),
			Reason:         fmt.Sprintf("RSI oversold (%.2f) + MACD bullish cross", curRSI),
		}
	}

	if curRSI > s.cfg.Overbought && crossDown {
		strength := clampStrength((curRSI - s.cfg.Overbought) / (100 - s.cfg.Overbought))
		return models.Signal{
			Symbol:         symbol,
			Action:         models.ActionSell,
			Strength:       strength,
			ReferencePrice: closes[n],
			Timestamp:      signalTime(series),
			Reason:         fmt.Sprintf("RSI overbought (%.2f) + MACD bearish cross", curRSI),
		}
	}

	return hold(symbol, series, "no clear signal")
}
