package strategy

import (
	"time"

	"auto_trader/internal/models"
)

const reasonInsufficientData = "insufficient data"

// Engine — то, что раннер дергает раз в цикл по каждому символу без позиции.
type Engine interface {
	GenerateSignal(symbol string, series models.PriceSeries) models.Signal
	Name() string
}

func hold(symbol string, series models.PriceSeries, reason string) models.Signal {
	return models.Signal{
		Symbol:         symbol,
		Action:         models.ActionHold,
		Strength:       0,
		ReferencePrice: series.Last().Close,
		Timestamp:      signalTime(series),
		Reason:         reason,
	}
}

func signalTime(series models.PriceSeries) time.Time {
	if len(series) == 0 {
		return time.Now()
	}
	return series.Last().Timestamp
}

// clampStrength держит силу сигнала в [0,1] всегда.
func clampStrength(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
