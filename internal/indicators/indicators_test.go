package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	out := SMA([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, out, 5)

	assert.Zero(t, out[0])
	assert.Zero(t, out[1])
	assert.InDelta(t, 2.0, out[2], 1e-9)
	assert.InDelta(t, 3.0, out[3], 1e-9)
	assert.InDelta(t, 4.0, out[4], 1e-9)
}

func TestSMAShortSeries(t *testing.T) {
	out := SMA([]float64{1, 2}, 5)
	assert.Equal(t, []float64{0, 0}, out)
}

func TestEMASeededWithFirstClose(t *testing.T) {
	out := EMA([]float64{10, 10, 10, 10}, 3)
	for i, v := range out {
		assert.InDelta(t, 10.0, v, 1e-9, "index %d", i)
	}
}

func TestEMAFollowsTrend(t *testing.T) {
	closes := []float64{10, 11, 12, 13, 14, 15}
	out := EMA(closes, 3)

	assert.Equal(t, closes[0], out[0])
	for i := 1; i < len(out); i++ {
		assert.Greater(t, out[i], out[i-1])
		// EMA отстаёт от растущей цены.
		assert.Less(t, out[i], closes[i])
	}
}

func TestRSIMonotoneRiseIs100(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	out := RSI(closes, 14)
	for i := 14; i < len(out); i++ {
		assert.InDelta(t, 100.0, out[i], 1e-9, "index %d", i)
	}
}

func TestRSIWarmupIsZero(t *testing.T) {
	closes := []float64{1, 2, 3, 2, 3, 4, 3, 4, 5, 4}
	out := RSI(closes, 5)

	for i := 0; i < 5; i++ {
		assert.Zero(t, out[i], "index %d", i)
	}
	assert.NotZero(t, out[5])
}

func TestRSIBalancedMoves(t *testing.T) {
	// Равные приросты и просадки в окне дают RSI 50.
	closes := []float64{10, 11, 10, 11, 10, 11}
	out := RSI(closes, 2)

	for i := 2; i < len(out); i++ {
		assert.InDelta(t, 50.0, out[i], 1e-9, "index %d", i)
	}
}

func TestMACDHistogram(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 50 + float64(i%7)
	}

	res := MACD(closes, 12, 26, 9)
	require.Len(t, res.MACDLine, len(closes))
	require.Len(t, res.SignalLine, len(closes))
	require.Len(t, res.Histogram, len(closes))

	for i := range closes {
		assert.InDelta(t, res.MACDLine[i]-res.SignalLine[i], res.Histogram[i], 1e-9)
	}
}

func TestMACDRisingSeriesPositive(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	res := MACD(closes, 12, 26, 9)
	// На устойчивом росте быстрая EMA выше медленной.
	assert.Greater(t, res.MACDLine[len(closes)-1], 0.0)
}

func TestBollingerFlatSeries(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 100.0
	}

	res := Bollinger(closes, 20, 2.0)
	n := len(closes) - 1
	assert.InDelta(t, 100.0, res.Middle[n], 1e-9)
	assert.InDelta(t, res.Middle[n], res.Upper[n], 1e-9)
	assert.InDelta(t, res.Middle[n], res.Lower[n], 1e-9)
}

func TestBollingerBandsOrdered(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i%5)
	}

	res := Bollinger(closes, 20, 2.0)
	for i := 19; i < len(closes); i++ {
		assert.Greater(t, res.Upper[i], res.Middle[i], "index %d", i)
		assert.Less(t, res.Lower[i], res.Middle[i], "index %d", i)
	}
}

func TestBollingerSampleSigma(t *testing.T) {
	// Окно [1,2,3]: среднее 2, выборочная дисперсия (1+0+1)/2 = 1.
	res := Bollinger([]float64{1, 2, 3}, 3, 2.0)
	assert.InDelta(t, 4.0, res.Upper[2], 1e-9)
	assert.InDelta(t, 2.0, res.Middle[2], 1e-9)
	assert.InDelta(t, 0.0, res.Lower[2], 1e-9)
}

func TestBollingerMiddleIsSMA(t *testing.T) {
	closes := []float64{100, 102, 101, 103, 105, 104, 106, 105, 107, 108,
		107, 109, 110, 108, 111, 112, 110, 113, 114, 112, 115}

	res := Bollinger(closes, 20, 2.0)
	sma := SMA(closes, 20)
	assert.Equal(t, sma, res.Middle)
}
