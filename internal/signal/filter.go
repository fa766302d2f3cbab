package signal

import (
	"fmt"
	"strings"

	"github.com/Alias1177/Predictor/internal/model"
)

// Filter decisions recorded in output metadata under "decision"
const (
	Approve = "APPROVE"
	Reject  = "REJECT"
)

// HeuristicFilter approves strong technical signals, rejects weak ones and
// scores the middle band on reason count, reward/risk, trend and RSI extremes.
type HeuristicFilter struct {
	StrongConfidence float64
	WeakConfidence   float64
}

// NewHeuristicFilter approves at confidence 0.7 and rejects below 0.4
func NewHeuristicFilter() *HeuristicFilter {
	return &HeuristicFilter{StrongConfidence: 0.7, WeakConfidence: 0.4}
}

// Filter passes the technical direction through on approval and zeroes it on rejection
func (f *HeuristicFilter) Filter(tech model.SignalOutput) model.SignalOutput {
	decision, confidence, reason := f.judge(tech)

	direction := tech.Direction
	if decision == Reject {
		direction = 0
	}

	out := model.NewSignalOutput(model.SourceFilter, direction, confidence)
	out.Name = "heuristic_filter"
	out.Price = tech.Price
	out.StopLoss = tech.StopLoss
	out.TakeProfit = tech.TakeProfit
	out.Reasons = []string{reason}
	out.Metadata["decision"] = decision
	out.Metadata["reason"] = reason
	return out
}

func (f *HeuristicFilter) judge(tech model.SignalOutput) (string, float64, string) {
	if tech.Confidence >= f.StrongConfidence {
		return Approve, 0.9, "Strong technical signal - approved"
	}
	if tech.Confidence < f.WeakConfidence {
		return Reject, 0.8, "Weak technical signal - rejected"
	}

	score := 0.5

	switch {
	case len(tech.Reasons) >= 3:
		score += 0.15
	case len(tech.Reasons) >= 2:
		score += 0.1
	}

	rr, ok := tech.Float("risk_reward_ratio")
	if !ok {
		rr = 1.0
	}
	switch {
	case rr >= 2.0:
		score += 0.15
	case rr >= 1.5:
		score += 0.1
	}

	for _, r := range tech.Reasons {
		if strings.Contains(r, "Uptrend") || strings.Contains(r, "Downtrend") {
			score += 0.1
			break
		}
	}

	rsi, ok := tech.Float("rsi")
	if !ok {
		rsi = 50
	}
	if rsi < 30 || rsi > 70 {
		score += 0.1
	}

	score = model.Clamp(score, 0, 1)
	if score > 0.5 {
		return Approve, score, fmt.Sprintf("Medium signal approved (score=%.2f)", score)
	}
	return Reject, 1 - score, fmt.Sprintf("Medium signal rejected (score=%.2f)", score)
}

// IsRejected reports whether a filter output carries a REJECT decision
func IsRejected(out model.SignalOutput) bool {
	d, _ := out.Metadata["decision"].(string)
	return d == Reject
}

// FilterReason returns the filter's explanation, if any
func FilterReason(out model.SignalOutput) string {
	if r, ok := out.Metadata["reason"].(string); ok {
		return r
	}
	if len(out.Reasons) > 0 {
		return out.Reasons[0]
	}
	return ""
}
