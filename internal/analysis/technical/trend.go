package technical

import (
	"math"

	"github.com/Alias1177/Predictor/internal/model"
)

// Closes extracts closing prices in order
func Closes(candles []model.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// SMA returns the simple moving average of the last period values.
// With fewer values than period it averages what is available.
func SMA(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if period <= 0 || len(values) < period {
		period = len(values)
	}
	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// EMA returns the exponential moving average seeded with the SMA of the first period values
func EMA(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if period <= 0 || len(values) < period {
		return SMA(values, len(values))
	}
	series := EMASeries(values, period)
	return series[len(series)-1]
}

// EMASeries computes the EMA for every index from period-1 onward.
// Element 0 of the result corresponds to values[period-1].
func EMASeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	multiplier := 2.0 / float64(period+1)
	out := make([]float64, 0, len(values)-period+1)

	ema := SMA(values[:period], period)
	out = append(out, ema)
	for _, v := range values[period:] {
		ema = (v-ema)*multiplier + ema
		out = append(out, ema)
	}
	return out
}

// MACD returns the MACD line, its signal line and the histogram.
// Returns zeros until there are enough values for the slow average.
func MACD(values []float64, fast, slow, signal int) (float64, float64, float64) {
	if len(values) < slow || fast >= slow {
		return 0, 0, 0
	}

	fastSeries := EMASeries(values, fast)
	slowSeries := EMASeries(values, slow)

	// align both series on the index of the first slow value
	offset := slow - fast
	line := make([]float64, len(slowSeries))
	for i := range slowSeries {
		line[i] = fastSeries[i+offset] - slowSeries[i]
	}

	macd := line[len(line)-1]
	signalLine := EMA(line, signal)
	return macd, signalLine, macd - signalLine
}

// DefaultMACD uses the conventional 12/26/9 periods
func DefaultMACD(values []float64) (float64, float64, float64) {
	return MACD(values, 12, 26, 9)
}

// ADX calculates the Average Directional Index with Wilder smoothing.
// Returns adx, +DI and -DI, all zero when there are fewer than 2*period candles.
func ADX(candles []model.Candle, period int) (float64, float64, float64) {
	if period <= 0 || len(candles) < period*2 {
		return 0, 0, 0
	}

	plusDM, minusDM, trueRange := directionalMovement(candles)

	var smoothedPlusDM, smoothedMinusDM, smoothedTR float64
	for i := 0; i < period; i++ {
		smoothedPlusDM += plusDM[i]
		smoothedMinusDM += minusDM[i]
		smoothedTR += trueRange[i]
	}

	plusDI, minusDI, dx := diIndex(smoothedPlusDM, smoothedMinusDM, smoothedTR)
	adx := dx

	for i := period; i < len(trueRange); i++ {
		smoothedPlusDM = smoothedPlusDM - (smoothedPlusDM / float64(period)) + plusDM[i]
		smoothedMinusDM = smoothedMinusDM - (smoothedMinusDM / float64(period)) + minusDM[i]
		smoothedTR = smoothedTR - (smoothedTR / float64(period)) + trueRange[i]

		var newDX float64
		plusDI, minusDI, newDX = diIndex(smoothedPlusDM, smoothedMinusDM, smoothedTR)

		// ADX is smoothed DX
		adx = ((float64(period-1) * adx) + newDX) / float64(period)
	}

	return adx, plusDI, minusDI
}

// DirectionalIndex is the DX computed from EMA-smoothed directional movement
// and true range. The regime detector uses it as its trend-strength reading.
func DirectionalIndex(candles []model.Candle, period int) float64 {
	if len(candles) < 2 {
		return 0
	}
	plusDM, minusDM, trueRange := directionalMovement(candles)
	if len(trueRange) < period {
		return 0
	}

	tr := EMA(trueRange, period)
	if tr == 0 {
		return 0
	}
	_, _, dx := diIndex(EMA(plusDM, period), EMA(minusDM, period), tr)
	return dx
}

func directionalMovement(candles []model.Candle) (plusDM, minusDM, trueRange []float64) {
	n := len(candles) - 1
	plusDM = make([]float64, 0, n)
	minusDM = make([]float64, 0, n)
	trueRange = make([]float64, 0, n)

	for i := 1; i < len(candles); i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low

		pDM := 0.0
		if upMove > downMove && upMove > 0 {
			pDM = upMove
		}
		mDM := 0.0
		if downMove > upMove && downMove > 0 {
			mDM = downMove
		}

		plusDM = append(plusDM, pDM)
		minusDM = append(minusDM, mDM)
		trueRange = append(trueRange, TrueRange(candles[i], candles[i-1]))
	}
	return plusDM, minusDM, trueRange
}

func diIndex(plusDM, minusDM, tr float64) (plusDI, minusDI, dx float64) {
	if tr == 0 {
		return 0, 0, 0
	}
	plusDI = plusDM / tr * 100
	minusDI = minusDM / tr * 100
	sum := plusDI + minusDI
	if sum == 0 {
		return plusDI, minusDI, 0
	}
	return plusDI, minusDI, math.Abs(plusDI-minusDI) / sum * 100
}
