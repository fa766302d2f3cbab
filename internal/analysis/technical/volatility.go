package technical

import (
	"math"

	"github.com/Alias1177/Predictor/internal/model"
)

// BollingerBands returns upper, middle and lower bands over the last period values
func BollingerBands(values []float64, period int, stdDev float64) (float64, float64, float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	if period <= 0 || len(values) < period {
		period = len(values)
	}

	window := values[len(values)-period:]
	middle := SMA(window, period)

	var variance float64
	for _, v := range window {
		variance += math.Pow(v-middle, 2)
	}
	sd := math.Sqrt(variance / float64(period))

	return middle + sd*stdDev, middle, middle - sd*stdDev
}

// TrueRange is the greatest of high-low and the gaps to the previous close
func TrueRange(current, previous model.Candle) float64 {
	highLow := current.High - current.Low
	highPrevClose := math.Abs(current.High - previous.Close)
	lowPrevClose := math.Abs(current.Low - previous.Close)
	return math.Max(highLow, math.Max(highPrevClose, lowPrevClose))
}

// TrueRanges computes the true range for every candle after the first
func TrueRanges(candles []model.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		out = append(out, TrueRange(candles[i], candles[i-1]))
	}
	return out
}

// ATR calculates the Average True Range as an EMA of true ranges.
// Returns 0 when there are fewer than period true ranges.
func ATR(candles []model.Candle, period int) float64 {
	trs := TrueRanges(candles)
	if period <= 0 || len(trs) < period {
		return 0
	}
	return EMA(trs, period)
}

// SimpleATR averages the last period true ranges, using what is available when short
func SimpleATR(candles []model.Candle, period int) float64 {
	trs := TrueRanges(candles)
	if len(trs) == 0 || period <= 0 {
		return 0
	}
	return SMA(trs, period)
}

// VolatilityRatio compares short-term to long-term volatility
func VolatilityRatio(candles []model.Candle, shortPeriod, longPeriod int) float64 {
	if len(candles) < longPeriod+1 {
		return 1.0
	}

	atrShort := SimpleATR(candles, shortPeriod)
	atrLong := SimpleATR(candles, longPeriod)

	if atrLong == 0 {
		return 1.0
	}

	return atrShort / atrLong
}
