package decision

import (
	"fmt"
	"math"
	"strings"

	"github.com/Alias1177/Predictor/internal/model"
	"github.com/Alias1177/Predictor/internal/platform/validate"
)

// Thresholds gate the confidence required for each label
type Thresholds struct {
	Strong float64 `yaml:"strong" validate:"gte=0,lte=1"`
	Medium float64 `yaml:"medium" validate:"gte=0,lte=1"`
}

// DefaultThresholds returns strong 0.7 and medium 0.5
func DefaultThresholds() Thresholds {
	return Thresholds{Strong: 0.7, Medium: 0.5}
}

// WeightedAggregator votes by confidence-weighted mean with no veto stages
type WeightedAggregator struct {
	thresholds Thresholds
}

// NewWeightedAggregator validates the thresholds
func NewWeightedAggregator(t Thresholds) (*WeightedAggregator, error) {
	if err := validate.Struct(t); err != nil {
		return nil, fmt.Errorf("weighted aggregator: %w", err)
	}
	return &WeightedAggregator{thresholds: t}, nil
}

// SetThresholds updates the thresholds, clamping each into [0, 1]
func (a *WeightedAggregator) SetThresholds(strong, medium float64) {
	a.thresholds = Thresholds{
		Strong: model.Clamp(strong, 0, 1),
		Medium: model.Clamp(medium, 0, 1),
	}
}

// Thresholds returns the current thresholds
func (a *WeightedAggregator) Thresholds() Thresholds {
	return a.thresholds
}

// Aggregate ignores outputs with no confidence and clamps the rest into range.
// Nothing usable yields HOLD at zero confidence.
func (a *WeightedAggregator) Aggregate(outputs []model.SignalOutput) model.Decision {
	valid := make([]model.SignalOutput, 0, len(outputs))
	for _, o := range outputs {
		if !o.IsValid() {
			continue
		}
		o.Direction = model.Clamp(o.Direction, -1, 1)
		o.Confidence = model.Clamp(o.Confidence, 0, 1)
		valid = append(valid, o)
	}
	if len(valid) == 0 {
		return model.Decision{
			Label:     model.Hold,
			Reasoning: "Decision: HOLD. No valid signal sources.",
		}
	}

	var weighted, totalWeight, confSum float64
	for _, o := range valid {
		weighted += o.Direction * o.Confidence
		totalWeight += o.Confidence
		confSum += o.Confidence
	}
	signal := model.Clamp(weighted/totalWeight, -1, 1)

	var variance float64
	for _, o := range valid {
		variance += (o.Direction - signal) * (o.Direction - signal)
	}
	variance /= float64(len(valid))
	confidence := model.Clamp(confSum/float64(len(valid))*math.Max(0.5, 1-variance), 0, 1)

	label := a.label(signal, confidence)
	return model.Decision{
		Label:      label,
		Signal:     signal,
		Confidence: confidence,
		Sources:    len(valid),
		Reasoning:  reasoning(valid, signal, confidence, label),
	}
}

func (a *WeightedAggregator) label(signal, confidence float64) model.DecisionLabel {
	if confidence >= a.thresholds.Strong {
		if signal >= 0.5 {
			return model.StrongBuy
		}
		if signal <= -0.5 {
			return model.StrongSell
		}
	}
	if confidence >= a.thresholds.Medium {
		if signal >= 0.2 {
			return model.Buy
		}
		if signal <= -0.2 {
			return model.Sell
		}
	}
	return model.Hold
}

func reasoning(outputs []model.SignalOutput, signal, confidence float64, label model.DecisionLabel) string {
	parts := []string{fmt.Sprintf("Decision: %s based on analysis of %d source(s).", label, len(outputs))}

	strength := "weak"
	if math.Abs(signal) > 0.6 {
		strength = "strong"
	} else if math.Abs(signal) > 0.3 {
		strength = "moderate"
	}
	direction := "neutral"
	if signal > 0 {
		direction = "bullish"
	} else if signal < 0 {
		direction = "bearish"
	}
	parts = append(parts, fmt.Sprintf("Overall signal is %s %s (%.2f).", strength, direction, signal))

	level := "low"
	if confidence > 0.7 {
		level = "high"
	} else if confidence > 0.5 {
		level = "medium"
	}
	parts = append(parts, fmt.Sprintf("Confidence level is %s (%.2f).", level, confidence))

	for _, o := range outputs {
		suggestion := "neutral"
		if o.Direction > 0.2 {
			suggestion = "buy"
		} else if o.Direction < -0.2 {
			suggestion = "sell"
		}
		parts = append(parts, fmt.Sprintf("- %s source suggests %s (signal=%.2f, confidence=%.2f)",
			sourceLabel(o), suggestion, o.Direction, o.Confidence))
	}

	return strings.Join(parts, " ")
}

func sourceLabel(o model.SignalOutput) string {
	name := o.Name
	if name == "" {
		name = string(o.Source)
	}
	if name == "" {
		return "Unknown"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
