package technical

import "github.com/Alias1177/Predictor/internal/model"

// HasVolume reports whether every candle in the slice carries volume data
func HasVolume(candles []model.Candle) bool {
	if len(candles) == 0 {
		return false
	}
	for _, c := range candles {
		if c.Volume == 0 {
			return false
		}
	}
	return true
}

// AverageVolume calculates the average volume of the given candles.
// Returns 0 when any candle lacks volume data.
func AverageVolume(candles []model.Candle) float64 {
	if !HasVolume(candles) {
		return 0
	}

	var totalVolume int64
	for _, c := range candles {
		totalVolume += c.Volume
	}

	return float64(totalVolume) / float64(len(candles))
}
