package model

import "math"

// SourceKind identifies which kind of producer emitted a signal
type SourceKind string

const (
	SourceTechnical SourceKind = "technical"
	SourceML        SourceKind = "ml"
	SourceFilter    SourceKind = "filter"
	SourceRisk      SourceKind = "risk"
	SourceCustom    SourceKind = "custom"
)

// SignalOutput is a directional opinion produced by one signal source.
// Direction is in [-1, 1], Confidence in [0, 1]. Price, StopLoss and TakeProfit
// are the suggested entry levels, zero when the source has none. Metadata is diagnostic only.
type SignalOutput struct {
	Source     SourceKind             `json:"source"`
	Name       string                 `json:"name,omitempty"`
	Direction  float64                `json:"direction"`
	Confidence float64                `json:"confidence"`
	Price      float64                `json:"price,omitempty"`
	StopLoss   float64                `json:"stop_loss,omitempty"`
	TakeProfit float64                `json:"take_profit,omitempty"`
	Reasons    []string               `json:"reasons,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// NewSignalOutput builds an output with direction and confidence clamped to their ranges.
func NewSignalOutput(source SourceKind, direction, confidence float64) SignalOutput {
	return SignalOutput{
		Source:     source,
		Direction:  Clamp(direction, -1, 1),
		Confidence: Clamp(confidence, 0, 1),
		Metadata:   make(map[string]interface{}),
	}
}

// Neutral returns a zero-confidence output, used when a source cannot form an opinion.
func Neutral(source SourceKind, reason string) SignalOutput {
	out := NewSignalOutput(source, 0, 0)
	if reason != "" {
		out.Reasons = []string{reason}
	}
	return out
}

// IsValid reports whether the output carries a usable opinion.
func (s SignalOutput) IsValid() bool {
	if math.IsNaN(s.Direction) || math.IsNaN(s.Confidence) {
		return false
	}
	return s.Confidence > 0
}

// Float reads a numeric metadata value.
func (s SignalOutput) Float(key string) (float64, bool) {
	if s.Metadata == nil {
		return 0, false
	}
	switch v := s.Metadata[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Clamp limits v to [lo, hi]. NaN collapses to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
