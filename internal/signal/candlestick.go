package signal

import (
	"fmt"

	"github.com/Alias1177/Predictor/internal/analysis/pattern"
	"github.com/Alias1177/Predictor/internal/model"
)

// Candlestick votes with the price action formations completed by the last bar
type Candlestick struct {
	window int
}

// NewCandlestick looks at the last window bars, at least pattern.MinBars
func NewCandlestick(window int) *Candlestick {
	if window < pattern.MinBars {
		window = pattern.MinBars
	}
	return &Candlestick{window: window}
}

func (c *Candlestick) Name() string { return "candlestick" }

func (c *Candlestick) Analyze(candles []model.Candle) model.SignalOutput {
	if len(candles) < pattern.MinBars {
		return model.Neutral(model.SourceCustom, fmt.Sprintf("Insufficient data: %d < %d bars", len(candles), pattern.MinBars))
	}
	if len(candles) > c.window {
		candles = candles[len(candles)-c.window:]
	}

	matches := pattern.Detect(candles)
	if len(matches) == 0 {
		return model.Neutral(model.SourceCustom, "No candlestick pattern")
	}

	direction, confidence := pattern.Score(matches)
	out := model.NewSignalOutput(model.SourceCustom, direction, confidence)
	out.Name = c.Name()
	out.Price = candles[len(candles)-1].Close

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, string(m.Pattern))
		out.Reasons = append(out.Reasons, fmt.Sprintf("%s (strength %.2f)", m.Pattern, m.Strength))
	}
	out.Metadata["patterns"] = names
	return out
}
