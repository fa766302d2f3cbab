package signal

import (
	"fmt"
	"math"

	"github.com/Alias1177/Predictor/internal/analysis/technical"
	"github.com/Alias1177/Predictor/internal/model"
	"github.com/Alias1177/Predictor/internal/platform/validate"
	"github.com/Alias1177/Predictor/internal/trading/risk"
)

// TechnicalConfig tunes the indicator vote
type TechnicalConfig struct {
	MinBars         int     `yaml:"min_bars" validate:"gte=2"`
	FastMA          int     `yaml:"fast_ma" validate:"gte=2"`
	SlowMA          int     `yaml:"slow_ma" validate:"gtfield=FastMA"`
	RSIPeriod       int     `yaml:"rsi_period" validate:"gte=2"`
	BBPeriod        int     `yaml:"bb_period" validate:"gte=2"`
	BBStdDev        float64 `yaml:"bb_std_dev" validate:"gt=0"`
	ATRPeriod       int     `yaml:"atr_period" validate:"gte=1"`
	StopATRMultiple float64 `yaml:"stop_atr_multiple" validate:"gt=0"`
	TakeATRMultiple float64 `yaml:"take_atr_multiple" validate:"gt=0"`
}

// DefaultTechnicalConfig uses SMA 20/50, RSI 14, BB 20/2 and ATR 14 with 1.5/2.5 ATR exits
func DefaultTechnicalConfig() TechnicalConfig {
	return TechnicalConfig{
		MinBars:         30,
		FastMA:          20,
		SlowMA:          50,
		RSIPeriod:       14,
		BBPeriod:        20,
		BBStdDev:        2.0,
		ATRPeriod:       14,
		StopATRMultiple: 1.5,
		TakeATRMultiple: 2.5,
	}
}

// Technical votes with five indicator components and reports how much they agree
type Technical struct {
	cfg TechnicalConfig
}

// NewTechnical validates the periods and creates the indicator-vote source
func NewTechnical(cfg TechnicalConfig) (*Technical, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("technical source: %w", err)
	}
	return &Technical{cfg: cfg}, nil
}

func (t *Technical) Name() string { return "technical" }

type component struct {
	signal float64
	weight float64
}

// Analyze scores price vs fast MA, fast vs slow MA, RSI zone, MACD histogram and
// Bollinger position, then combines them as a weighted mean.
func (t *Technical) Analyze(candles []model.Candle) model.SignalOutput {
	if len(candles) < t.cfg.MinBars {
		return model.Neutral(model.SourceTechnical, fmt.Sprintf("Insufficient data: %d < %d bars", len(candles), t.cfg.MinBars))
	}

	closes := technical.Closes(candles)
	price := closes[len(closes)-1]
	fast := technical.SMA(closes, t.cfg.FastMA)
	slow := technical.SMA(closes, t.cfg.SlowMA)
	rsi := technical.RSI(closes, t.cfg.RSIPeriod)
	_, _, hist := technical.DefaultMACD(closes)
	upper, middle, lower := technical.BollingerBands(closes, t.cfg.BBPeriod, t.cfg.BBStdDev)

	var components []component
	var reasons []string

	// Price vs fast MA
	if price > fast {
		components = append(components, component{0.5, 0.2})
		reasons = append(reasons, fmt.Sprintf("Price above SMA%d", t.cfg.FastMA))
	} else {
		components = append(components, component{-0.5, 0.2})
		reasons = append(reasons, fmt.Sprintf("Price below SMA%d", t.cfg.FastMA))
	}

	// MA alignment
	switch {
	case fast > slow:
		components = append(components, component{0.7, 0.25})
		reasons = append(reasons, fmt.Sprintf("Uptrend (SMA%d > SMA%d)", t.cfg.FastMA, t.cfg.SlowMA))
	case fast < slow:
		components = append(components, component{-0.7, 0.25})
		reasons = append(reasons, fmt.Sprintf("Downtrend (SMA%d < SMA%d)", t.cfg.FastMA, t.cfg.SlowMA))
	default:
		components = append(components, component{0, 0.25})
	}

	// RSI zones
	switch {
	case rsi < 30:
		components = append(components, component{0.8, 0.25})
		reasons = append(reasons, fmt.Sprintf("RSI oversold (%.1f)", rsi))
	case rsi > 70:
		components = append(components, component{-0.8, 0.25})
		reasons = append(reasons, fmt.Sprintf("RSI overbought (%.1f)", rsi))
	default:
		components = append(components, component{(rsi - 50) / 50, 0.15})
	}

	// MACD histogram
	if hist > 0 {
		components = append(components, component{0.6, 0.2})
		reasons = append(reasons, fmt.Sprintf("MACD bullish (hist=%.4f)", hist))
	} else {
		components = append(components, component{-0.6, 0.2})
		reasons = append(reasons, fmt.Sprintf("MACD bearish (hist=%.4f)", hist))
	}

	// Bollinger position
	switch {
	case price < lower:
		components = append(components, component{0.7, 0.1})
		reasons = append(reasons, "Price below lower Bollinger band")
	case price > upper:
		components = append(components, component{-0.7, 0.1})
		reasons = append(reasons, "Price above upper Bollinger band")
	default:
		position := 0.5
		if upper > lower {
			position = (price - lower) / (upper - lower)
		}
		components = append(components, component{-(position - 0.5) * 2, 0.1})
	}

	var weighted, totalWeight float64
	for _, c := range components {
		weighted += c.signal * c.weight
		totalWeight += c.weight
	}
	direction := weighted / totalWeight

	var disagreement float64
	for _, c := range components {
		disagreement += math.Abs(c.signal - direction)
	}
	confidence := model.Clamp(1-disagreement/(2*float64(len(components))), 0.3, 0.95)

	out := model.NewSignalOutput(model.SourceTechnical, direction, confidence)
	out.Name = t.Name()
	out.Price = price
	out.Reasons = reasons

	atr := technical.ATR(candles, t.cfg.ATRPeriod)
	if atr <= 0 {
		atr = price * 0.01
	}
	side := model.Long
	if out.Direction < 0 {
		side = model.Short
	}
	out.StopLoss = risk.DetermineStopLoss(price, atr, t.cfg.StopATRMultiple, side)
	out.TakeProfit = risk.DetermineTakeProfit(price, out.StopLoss, t.cfg.TakeATRMultiple/t.cfg.StopATRMultiple)

	out.Metadata["rsi"] = rsi
	out.Metadata["sma_fast"] = fast
	out.Metadata["sma_slow"] = slow
	out.Metadata["macd_hist"] = hist
	out.Metadata["bb_middle"] = middle
	out.Metadata["atr"] = atr
	out.Metadata["volatility_ratio"] = technical.VolatilityRatio(candles, 5, 20)
	out.Metadata["risk_reward_ratio"] = t.cfg.TakeATRMultiple / t.cfg.StopATRMultiple

	return out
}
