package indicators

import "math"

// Чистые функции над серией цен закрытия. Все серии выровнены по входу:
// значения с индексом меньше периода не определены и равны нулю,
// вызывающий обязан сам проверить достаточность данных.

type MACDResult struct {
	MACDLine   []float64
	SignalLine []float64
	Histogram  []float64
}

type BollingerResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// SMA — простое скользящее среднее, валидно с индекса period-1.
func SMA(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if period <= 0 || len(closes) < period {
		return out
	}

	var sum float64
	for i, v := range closes {
		sum += v
		if i >= period {
			sum -= closes[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA — экспоненциальное среднее, k = 2/(period+1), сидируется первым значением.
func EMA(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if period <= 0 || len(closes) == 0 {
		return out
	}

	k := 2.0 / float64(period+1)
	out[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = out[i-1] + k*(closes[i]-out[i-1])
	}
	return out
}

// RSI считает средний прирост / среднюю просадку скользящим окном period.
// Нулевая средняя просадка даёт RSI=100, деления на ноль не бывает.
// Валидно с индекса period.
func RSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if period <= 0 || len(closes) <= period {
		return out
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	var gainSum, lossSum float64
	for i := 1; i < len(closes); i++ {
		gainSum += gains[i]
		lossSum += losses[i]
		if i > period {
			gainSum -= gains[i-period]
			lossSum -= losses[i-period]
		}
		if i < period {
			continue
		}

		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)
		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// MACD — разность быстрой и медленной EMA плюс сигнальная EMA и гистограмма.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	macdLine := make([]float64, len(closes))
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)
	for i := range closes {
		macdLine[i] = emaFast[i] - emaSlow[i]
	}

	signalLine := EMA(macdLine, signal)
	histogram := make([]float64, len(closes))
	for i := range closes {
		histogram[i] = macdLine[i] - signalLine[i]
	}

	return MACDResult{
		MACDLine:   macdLine,
		SignalLine: signalLine,
		Histogram:  histogram,
	}
}

// Bollinger — SMA ± k*sigma скользящим окном, sigma выборочная (ddof=1).
// Валидно с индекса period-1.
func Bollinger(closes []float64, period int, stdDev float64) BollingerResult {
	n := len(closes)
	res := BollingerResult{
		Upper:  make([]float64, n),
		Middle: SMA(closes, period),
		Lower:  make([]float64, n),
	}
	if period < 2 || n < period {
		return res
	}

	for i := period - 1; i < n; i++ {
		mean := res.Middle[i]
		var variance float64
		for j := i - period + 1; j <= i; j++ {
			d := closes[j] - mean
			variance += d * d
		}
		sigma := math.Sqrt(variance / float64(period-1))
		res.Upper[i] = mean + stdDev*sigma
		res.Lower[i] = mean - stdDev*sigma
	}
	return res
}
