package market

import (
	"fmt"
	"math"

	"github.com/Alias1177/Predictor/internal/analysis/technical"
	"github.com/Alias1177/Predictor/internal/model"
	"github.com/Alias1177/Predictor/internal/platform/validate"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DetectorConfig holds the regime classification thresholds
type DetectorConfig struct {
	ADXPeriod               int     `yaml:"adx_period" validate:"gt=0"`
	ATRPeriod               int     `yaml:"atr_period" validate:"gt=0"`
	TrendingThreshold       float64 `yaml:"trending_threshold" validate:"gt=0"`
	StrongTrendingThreshold float64 `yaml:"strong_trending_threshold" validate:"gtfield=TrendingThreshold"`
	HighVolatilityThreshold float64 `yaml:"high_volatility_threshold" validate:"gt=0"`
	FullConfidenceADX       float64 `yaml:"full_confidence_adx" validate:"gtfield=StrongTrendingThreshold"`
}

// DefaultDetectorConfig returns ADX 25/40 trend thresholds and a 2% volatility ceiling
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		ADXPeriod:               14,
		ATRPeriod:               14,
		TrendingThreshold:       25,
		StrongTrendingThreshold: 40,
		HighVolatilityThreshold: 2.0,
		FullConfidenceADX:       60,
	}
}

// Detector classifies a lookback window into a market regime
type Detector struct {
	cfg    DetectorConfig
	logger zerolog.Logger
}

// NewDetector validates the thresholds and builds a detector
func NewDetector(cfg DetectorConfig) (*Detector, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("regime detector: %w", err)
	}
	return &Detector{
		cfg:    cfg,
		logger: log.With().Str("component", "regime_detector").Logger(),
	}, nil
}

// MinWindow is the smallest window Detect will classify
func (d *Detector) MinWindow() int {
	if w := d.cfg.ADXPeriod * 2; w > 50 {
		return w
	}
	return 50
}

// Detect classifies the window. Short windows degrade to ranging with 0.5 confidence.
func (d *Detector) Detect(candles []model.Candle) model.RegimeAnalysis {
	if len(candles) < d.MinWindow() {
		return model.RegimeAnalysis{
			Regime:     model.RegimeRanging,
			Confidence: 0.5,
		}
	}

	closes := technical.Closes(candles)
	adx := technical.DirectionalIndex(candles, d.cfg.ADXPeriod)
	atr := technical.ATR(candles, d.cfg.ATRPeriod)

	sma20 := technical.SMA(closes, 20)
	sma50 := technical.SMA(closes, 50)

	// ATR as % of the recent mean price
	volatility := 0.0
	if sma20 > 0 {
		volatility = atr / sma20 * 100
	}

	regime, confidence := d.Classify(adx, volatility, sma20 > sma50)

	analysis := model.RegimeAnalysis{
		Regime:        regime,
		Confidence:    confidence,
		ADX:           adx,
		VolatilityPct: volatility,
		TrendStrength: math.Min(adx/100, 1.0),
	}

	d.logger.Debug().
		Str("regime", string(regime)).
		Float64("confidence", confidence).
		Float64("adx", adx).
		Float64("volatility_pct", volatility).
		Msg("Regime detected")

	return analysis
}

// Classify applies the priority rules: volatility first, then strong trend,
// then moderate trend, otherwise ranging.
func (d *Detector) Classify(adx, volatilityPct float64, uptrend bool) (model.Regime, float64) {
	trendRegime := model.RegimeTrendingDown
	if uptrend {
		trendRegime = model.RegimeTrendingUp
	}

	switch {
	case volatilityPct > d.cfg.HighVolatilityThreshold:
		// 0.5 at the threshold, 1.0 at twice the threshold
		excess := (volatilityPct - d.cfg.HighVolatilityThreshold) / d.cfg.HighVolatilityThreshold
		return model.RegimeVolatile, 0.5 + 0.5*model.Clamp(excess, 0, 1)

	case adx > d.cfg.StrongTrendingThreshold:
		return trendRegime, model.Clamp(adx/d.cfg.FullConfidenceADX, 0, 1)

	case adx > d.cfg.TrendingThreshold:
		span := d.cfg.StrongTrendingThreshold - d.cfg.TrendingThreshold
		return trendRegime, model.Clamp((adx-d.cfg.TrendingThreshold)/span, 0, 1)

	default:
		// Higher confidence the further ADX sits below the trending threshold
		return model.RegimeRanging, model.Clamp(1-adx/d.cfg.TrendingThreshold, 0, 1)
	}
}
