// Package signal holds the directional opinion producers fed into the decision pipeline.
package signal

import "github.com/Alias1177/Predictor/internal/model"

// Source turns a price window into a directional opinion.
// Analyze never fails: insufficient data yields a zero-confidence output.
type Source interface {
	Name() string
	Analyze(candles []model.Candle) model.SignalOutput
}

// Filter second-guesses a technical signal and either passes or zeroes it
type Filter interface {
	Filter(technical model.SignalOutput) model.SignalOutput
}

// AnalyzeAll runs every source over the same window, preserving order
func AnalyzeAll(candles []model.Candle, sources ...Source) []model.SignalOutput {
	outputs := make([]model.SignalOutput, 0, len(sources))
	for _, s := range sources {
		outputs = append(outputs, s.Analyze(candles))
	}
	return outputs
}
