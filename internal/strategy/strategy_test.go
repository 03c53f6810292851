package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_trader/internal/config"
	"auto_trader/internal/models"
)

func series(closes ...float64) models.PriceSeries {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make(models.PriceSeries, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    10,
		}
	}
	return out
}

func defaultRSIMACD() *RSIMACD {
	return NewRSIMACD(RSIMACDConfig{
		RSIPeriod:  14,
		Oversold:   30,
		Overbought: 70,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
	})
}

// Рост 26 свечей, полка из трёх, затем падение на 3: RSI остаётся
// перекупленным, а MACD пересекает сигнальную вниз именно на последней свече.
func sellSetup() models.PriceSeries {
	closes := make([]float64, 0, 30)
	for i := 0; i < 26; i++ {
		closes = append(closes, 100+float64(i))
	}
	closes = append(closes, 125, 125, 125, 122)
	return series(closes...)
}

// Зеркальная картина для покупки: падение, полка, отскок.
func buySetup() models.PriceSeries {
	closes := make([]float64, 0, 30)
	for i := 0; i < 26; i++ {
		closes = append(closes, 200-float64(i))
	}
	closes = append(closes, 175, 175, 175, 178)
	return series(closes...)
}

func TestRSIMACDInsufficientData(t *testing.T) {
	s := defaultRSIMACD()

	sig := s.GenerateSignal("BTC-USDT", series(100, 101, 102))
	assert.Equal(t, models.ActionHold, sig.Action)
	assert.Equal(t, "insufficient data", sig.Reason)
	assert.Zero(t, sig.Strength)
}

func TestRSIMACDSellOnOverboughtCross(t *testing.T) {
	s := defaultRSIMACD()
	data := sellSetup()

	sig := s.GenerateSignal("BTC-USDT", data)
	require.Equal(t, models.ActionSell, sig.Action)
	assert.Contains(t, sig.Reason, "RSI overbought")
	assert.Contains(t, sig.Reason, "MACD bearish cross")
	assert.InDelta(t, 0.2308, sig.Strength, 0.001)
	assert.Equal(t, 122.0, sig.ReferencePrice)
	assert.Equal(t, data.Last().Timestamp, sig.Timestamp)
}

func TestRSIMACDBuyOnOversoldCross(t *testing.T) {
	s := defaultRSIMACD()

	sig := s.GenerateSignal("ETH-USDT", buySetup())
	require.Equal(t, models.ActionBuy, sig.Action)
	assert.Contains(t, sig.Reason, "RSI oversold")
	assert.Contains(t, sig.Reason, "MACD bullish cross")
	assert.InDelta(t, 0.2308, sig.Strength, 0.001)
}

func TestRSIMACDHoldWithoutCross(t *testing.T) {
	s := defaultRSIMACD()

	// Монотонный рост: RSI перекуплен, но пересечения вниз нет.
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	sig := s.GenerateSignal("BTC-USDT", series(closes...))
	assert.Equal(t, models.ActionHold, sig.Action)
	assert.Equal(t, "no clear signal", sig.Reason)
}

func TestRSIMACDStrengthClamped(t *testing.T) {
	s := defaultRSIMACD()

	sig := s.GenerateSignal("BTC-USDT", sellSetup())
	assert.GreaterOrEqual(t, sig.Strength, 0.0)
	assert.LessOrEqual(t, sig.Strength, 1.0)
}

func TestBollingerInsufficientData(t *testing.T) {
	s := NewBollinger(BollingerConfig{Period: 20, StdDev: 2.0})

	sig := s.GenerateSignal("BTC-USDT", series(100, 101))
	assert.Equal(t, models.ActionHold, sig.Action)
	assert.Equal(t, "insufficient data", sig.Reason)
}

func TestBollingerCollapsedBands(t *testing.T) {
	s := NewBollinger(BollingerConfig{Period: 20, StdDev: 2.0})

	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}

	sig := s.GenerateSignal("BTC-USDT", series(closes...))
	assert.Equal(t, models.ActionHold, sig.Action)
	assert.Equal(t, "bands collapsed", sig.Reason)
}

func TestBollingerBuyAtLowerBand(t *testing.T) {
	s := NewBollinger(BollingerConfig{Period: 20, StdDev: 2.0})

	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	closes[19] = 90

	sig := s.GenerateSignal("BTC-USDT", series(closes...))
	require.Equal(t, models.ActionBuy, sig.Action)
	assert.Contains(t, sig.Reason, "lower band")
	assert.Greater(t, sig.Strength, 0.0)
	assert.LessOrEqual(t, sig.Strength, 1.0)
}

func TestBollingerSellAtUpperBand(t *testing.T) {
	s := NewBollinger(BollingerConfig{Period: 20, StdDev: 2.0})

	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	closes[19] = 110

	sig := s.GenerateSignal("BTC-USDT", series(closes...))
	require.Equal(t, models.ActionSell, sig.Action)
	assert.Contains(t, sig.Reason, "upper band")
}

func TestBollingerHoldInsideBands(t *testing.T) {
	s := NewBollinger(BollingerConfig{Period: 20, StdDev: 2.0})

	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i%3)
	}

	sig := s.GenerateSignal("BTC-USDT", series(closes...))
	assert.Equal(t, models.ActionHold, sig.Action)
	assert.Equal(t, "price inside bands", sig.Reason)
}

func TestMACrossInsufficientData(t *testing.T) {
	s := NewMACross(MACrossConfig{ShortPeriod: 2, LongPeriod: 3})

	sig := s.GenerateSignal("BTC-USDT", series(10, 10, 10))
	assert.Equal(t, models.ActionHold, sig.Action)
	assert.Equal(t, "insufficient data", sig.Reason)
}

func TestMACrossBuy(t *testing.T) {
	s := NewMACross(MACrossConfig{ShortPeriod: 2, LongPeriod: 3})

	sig := s.GenerateSignal("BTC-USDT", series(10, 10, 10, 11))
	require.Equal(t, models.ActionBuy, sig.Action)
	assert.Contains(t, sig.Reason, "crossed above")
	assert.Greater(t, sig.Strength, 0.0)
}

func TestMACrossSell(t *testing.T) {
	s := NewMACross(MACrossConfig{ShortPeriod: 2, LongPeriod: 3})

	sig := s.GenerateSignal("BTC-USDT", series(10, 10, 10, 9))
	require.Equal(t, models.ActionSell, sig.Action)
	assert.Contains(t, sig.Reason, "crossed below")
}

func TestMACrossNoRepeatAfterCross(t *testing.T) {
	s := NewMACross(MACrossConfig{ShortPeriod: 2, LongPeriod: 3})

	// Пересечение было свечу назад, на текущей соседней пары уже нет.
	sig := s.GenerateSignal("BTC-USDT", series(10, 10, 10, 11, 12))
	assert.Equal(t, models.ActionHold, sig.Action)
	assert.Equal(t, "no ma cross", sig.Reason)
}

func TestNewEngineKnownStrategies(t *testing.T) {
	cases := []struct {
		strategy string
		name     string
	}{
		{"rsi_macd", "rsi_macd"},
		{"", "rsi_macd"},
		{"bollinger", "bollinger"},
		{"moving_average", "moving_average"},
	}

	for _, tc := range cases {
		eng, err := NewEngine(config.AlgorithmConfig{
			Strategy:        tc.strategy,
			RSIPeriod:       14,
			RSIOversold:     30,
			RSIOverbought:   70,
			MACDFast:        12,
			MACDSlow:        26,
			MACDSignal:      9,
			BollingerPeriod: 20,
			BollingerStd:    2.0,
			MAShort:         10,
			MALong:          30,
		})
		require.NoError(t, err, tc.strategy)
		assert.Equal(t, tc.name, eng.Name())
	}
}

func TestNewEngineUnknownStrategy(t *testing.T) {
	_, err := NewEngine(config.AlgorithmConfig{Strategy: "martingale"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown strategy")
}
