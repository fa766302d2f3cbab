package signal

import (
	"fmt"
	"math"

	"github.com/Alias1177/Predictor/internal/analysis/technical"
	"github.com/Alias1177/Predictor/internal/model"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Probabilities is a next-move forecast from a probability model.
// TrendStrength and Volatility are normalized to [0, 1].
type Probabilities struct {
	Up            float64 `json:"prob_up"`
	Down          float64 `json:"prob_down"`
	TrendStrength float64 `json:"trend_strength"`
	Volatility    float64 `json:"volatility"`
}

// Momentum is (Up - Down) scaled by trend strength, clamped to [-1, 1]
func (p Probabilities) Momentum() float64 {
	return model.Clamp((p.Up-p.Down)*p.TrendStrength, -1, 1)
}

// ProbabilityModel predicts the probability of the next move going up or down.
// Trained models live outside this module and plug in through this interface.
type ProbabilityModel interface {
	Predict(candles []model.Candle) (Probabilities, error)
}

// ML adapts a ProbabilityModel into a signal source
type ML struct {
	model   ProbabilityModel
	minBars int
	logger  zerolog.Logger
}

// NewML wraps a probability model. Windows shorter than minBars produce neutral output.
func NewML(m ProbabilityModel, minBars int) *ML {
	return &ML{
		model:   m,
		minBars: minBars,
		logger:  log.With().Str("component", "ml_source").Logger(),
	}
}

func (s *ML) Name() string { return "ml" }

// Analyze emits direction = momentum and confidence = |Up - Down|
func (s *ML) Analyze(candles []model.Candle) model.SignalOutput {
	if len(candles) < s.minBars {
		return model.Neutral(model.SourceML, fmt.Sprintf("Insufficient data: %d < %d bars", len(candles), s.minBars))
	}

	probs, err := s.model.Predict(candles)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Probability model failed")
		return model.Neutral(model.SourceML, fmt.Sprintf("Model error: %v", err))
	}

	out := model.NewSignalOutput(model.SourceML, probs.Momentum(), math.Abs(probs.Up-probs.Down))
	out.Name = s.Name()
	out.Price = candles[len(candles)-1].Close
	out.Metadata["prob_up"] = probs.Up
	out.Metadata["prob_down"] = probs.Down
	out.Metadata["trend_strength"] = probs.TrendStrength
	out.Metadata["volatility"] = probs.Volatility
	return out
}

// MomentumModel derives probabilities from recent returns without a trained model.
// The up probability is a logistic of the rate of change measured in units of
// bar-to-bar return volatility.
type MomentumModel struct {
	RocPeriod int
	ADXPeriod int
	ATRPeriod int
}

// NewMomentumModel uses a 10 bar rate of change and 14 bar ADX/ATR
func NewMomentumModel() *MomentumModel {
	return &MomentumModel{RocPeriod: 10, ADXPeriod: 14, ATRPeriod: 14}
}

func (m *MomentumModel) Predict(candles []model.Candle) (Probabilities, error) {
	need := m.ADXPeriod * 2
	if m.RocPeriod+1 > need {
		need = m.RocPeriod + 1
	}
	if len(candles) < need {
		return Probabilities{}, fmt.Errorf("momentum model needs %d candles, got %d", need, len(candles))
	}

	closes := technical.Closes(candles)
	price := closes[len(closes)-1]
	if price <= 0 {
		return Probabilities{}, fmt.Errorf("invalid last close %.4f", price)
	}

	window := closes[len(closes)-m.RocPeriod-1:]
	returns := make([]float64, 0, m.RocPeriod)
	for i := 1; i < len(window); i++ {
		if window[i-1] != 0 {
			returns = append(returns, (window[i]-window[i-1])/window[i-1]*100)
		}
	}

	var mean, variance float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	sd := math.Sqrt(variance / float64(len(returns)))

	var score float64
	roc := technical.RateOfChange(closes, m.RocPeriod)
	if sd > 0 {
		score = roc / (sd * math.Sqrt(float64(m.RocPeriod)))
	} else if roc != 0 {
		score = math.Copysign(3, roc)
	}
	up := 1 / (1 + math.Exp(-score))

	adx, _, _ := technical.ADX(candles, m.ADXPeriod)
	atr := technical.ATR(candles, m.ATRPeriod)

	return Probabilities{
		Up:            up,
		Down:          1 - up,
		TrendStrength: math.Min(adx/100, 1),
		Volatility:    math.Min(atr/price*10, 1),
	}, nil
}
