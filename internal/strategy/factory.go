package strategy

import (
	"github.com/pkg/errors"

	"auto_trader/internal/config"
)

// NewEngine собирает стратегию по имени из конфига. Закрытый набор вариантов.
func NewEngine(cfg config.AlgorithmConfig) (Engine, error) {
	switch cfg.Strategy {
	case "rsi_macd", "":
		return NewRSIMACD(RSIMACDConfig{
			RSIPeriod:  cfg.RSIPeriod,
			Oversold:   cfg.RSIOversold,
			Overbought: cfg.RSIOverbought,
			MACDFast:   cfg.MACDFast,
			MACDSlow:   cfg.MACDSlow,
			MACDSignal: cfg.MACDSignal,
		}), nil

	case "bollinger":
		return NewBollinger(BollingerConfig{
			Period: cfg.BollingerPeriod,
			StdDev: cfg.BollingerStd,
		}), nil

	case "moving_average":
		return NewMACross(MACrossConfig{
			ShortPeriod: cfg.MAShort,
			LongPeriod:  cfg.MALong,
		}), nil

	default:
		return nil, errors.Errorf("unknown strategy: %s", cfg.Strategy)
	}
}

func AvailableStrategies() []string {
	return []string{"rsi_macd", "bollinger", "moving_average"}
}
