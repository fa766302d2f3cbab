// Package decision folds signal outputs into a single trade decision.
package decision

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Alias1177/Predictor/internal/model"
	"github.com/Alias1177/Predictor/internal/platform/validate"
	"github.com/Alias1177/Predictor/internal/signal"
	"github.com/Alias1177/Predictor/internal/trading/risk"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RiskEvaluator sizes or rejects a candidate entry. *risk.Manager satisfies it.
type RiskEvaluator interface {
	Evaluate(account model.AccountState, order risk.Order) model.RiskAssessment
}

// MetaConfig tunes the veto cascade and the final blend
type MetaConfig struct {
	MinTechnicalConfidence float64 `yaml:"min_technical_confidence" validate:"gte=0,lte=1"`
	MinTechnicalSignal     float64 `yaml:"min_technical_signal" validate:"gte=0,lte=1"`
	TechnicalWeight        float64 `yaml:"technical_weight" validate:"gte=0,lte=1"`
	FilterWeight           float64 `yaml:"filter_weight" validate:"gte=0,lte=1"`
	RiskWeight             float64 `yaml:"risk_weight" validate:"gte=0,lte=1"`
	ActionThreshold        float64 `yaml:"action_threshold" validate:"gt=0,lte=1"`
	ActiveSignalFloor      float64 `yaml:"active_signal_floor" validate:"gte=0,lte=1"`
	DisagreementStdDev     float64 `yaml:"disagreement_std_dev" validate:"gt=0"`
	DisagreementPenalty    float64 `yaml:"disagreement_penalty" validate:"gt=0,lte=1"`
}

// DefaultMetaConfig blends technical, filter and risk at 0.5/0.2/0.3 and acts beyond ±0.3
func DefaultMetaConfig() MetaConfig {
	return MetaConfig{
		MinTechnicalConfidence: 0.5,
		MinTechnicalSignal:     0.1,
		TechnicalWeight:        0.5,
		FilterWeight:           0.2,
		RiskWeight:             0.3,
		ActionThreshold:        0.3,
		ActiveSignalFloor:      0.1,
		DisagreementStdDev:     0.5,
		DisagreementPenalty:    0.8,
	}
}

// Evaluation is the state threaded through the checks.
// Stages fill in their result before later stages read it.
type Evaluation struct {
	Account   model.AccountState
	At        time.Time
	Outputs   []model.SignalOutput
	Technical model.SignalOutput

	Filtered   model.SignalOutput
	Assessment model.RiskAssessment

	Chain    []string
	Warnings []string
}

// Verdict is the outcome of one check
type Verdict struct {
	Vetoed  bool
	Reasons []string
}

// Pass lets the evaluation continue
func Pass() Verdict { return Verdict{} }

// Veto stops the cascade with the given reasons
func Veto(reasons ...string) Verdict { return Verdict{Vetoed: true, Reasons: reasons} }

// Check is one named stage of the cascade
type Check struct {
	Name string
	Run  func(ev *Evaluation) Verdict
}

// MetaAggregator runs the ordered veto checks and blends the surviving stages
type MetaAggregator struct {
	cfg    MetaConfig
	filter signal.Filter
	risk   RiskEvaluator
	checks []Check
	logger zerolog.Logger
}

// NewMetaAggregator validates the config. A nil filter falls back to the heuristic filter.
func NewMetaAggregator(cfg MetaConfig, filter signal.Filter, riskEval RiskEvaluator) (*MetaAggregator, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("meta aggregator: %w", err)
	}
	if riskEval == nil {
		return nil, fmt.Errorf("meta aggregator: %w: risk evaluator is required", validate.ErrInvalidConfig)
	}
	if filter == nil {
		filter = signal.NewHeuristicFilter()
	}

	m := &MetaAggregator{
		cfg:    cfg,
		filter: filter,
		risk:   riskEval,
		logger: log.With().Str("component", "meta_decision").Logger(),
	}
	m.checks = m.DefaultChecks()
	return m, nil
}

// WithChecks replaces the cascade. Checks run in the given order.
func (m *MetaAggregator) WithChecks(checks ...Check) *MetaAggregator {
	m.checks = checks
	return m
}

// DefaultChecks is the standard order: technical confidence, technical signal
// floor, filter, risk.
func (m *MetaAggregator) DefaultChecks() []Check {
	return []Check{
		{Name: "technical_confidence", Run: m.checkTechnicalConfidence},
		{Name: "technical_signal", Run: m.checkTechnicalSignal},
		{Name: "filter", Run: m.checkFilter},
		{Name: "risk", Run: m.checkRisk},
	}
}

func (m *MetaAggregator) checkTechnicalConfidence(ev *Evaluation) Verdict {
	if ev.Technical.Confidence < m.cfg.MinTechnicalConfidence {
		return Veto(fmt.Sprintf("Technical confidence too low: %.2f < %.2f", ev.Technical.Confidence, m.cfg.MinTechnicalConfidence))
	}
	return Pass()
}

func (m *MetaAggregator) checkTechnicalSignal(ev *Evaluation) Verdict {
	if math.Abs(ev.Technical.Direction) < m.cfg.MinTechnicalSignal {
		return Veto("No clear technical signal")
	}
	return Pass()
}

func (m *MetaAggregator) checkFilter(ev *Evaluation) Verdict {
	filtered, ok := findSource(ev.Outputs, model.SourceFilter)
	if !ok {
		filtered = m.filter.Filter(ev.Technical)
	}
	ev.Filtered = filtered

	decision := signal.Approve
	if signal.IsRejected(filtered) {
		decision = signal.Reject
	}
	reason := signal.FilterReason(filtered)
	ev.Chain = append(ev.Chain, fmt.Sprintf("ML Filter: %s (confidence=%.2f) - %s", decision, filtered.Confidence, reason))

	if decision == signal.Reject {
		return Veto(fmt.Sprintf("ML Filter rejected: %s", reason))
	}
	return Pass()
}

func (m *MetaAggregator) checkRisk(ev *Evaluation) Verdict {
	order := risk.Order{
		Signal:     ev.Filtered,
		EntryPrice: ev.Technical.Price,
		StopLoss:   ev.Technical.StopLoss,
		TakeProfit: ev.Technical.TakeProfit,
		Time:       ev.At,
	}
	if ratio, ok := ev.Technical.Float("volatility_ratio"); ok {
		order.VolatilityRatio = ratio
	}

	assessment := m.risk.Evaluate(ev.Account, order)
	ev.Assessment = assessment

	status := "APPROVED"
	if !assessment.Approved {
		status = "REJECTED"
	}
	ev.Chain = append(ev.Chain, fmt.Sprintf("Risk: %s, Position Size=%.4f, R/R=%.2f",
		status, assessment.PositionSize, assessment.RiskRewardRatio))
	ev.Warnings = append(ev.Warnings, assessment.Warnings...)

	if !assessment.Approved {
		return Veto(assessment.RejectionReasons...)
	}
	return Pass()
}

// Decide runs the cascade over the outputs for the given account and bar time.
// The primary signal is the first technical output, or the first output when
// no technical source is present.
func (m *MetaAggregator) Decide(account model.AccountState, outputs []model.SignalOutput, at time.Time) model.MetaDecision {
	if len(outputs) == 0 {
		return hold([]string{"No signals available"}, nil, []string{"No signal outputs to evaluate"})
	}

	primary, ok := findSource(outputs, model.SourceTechnical)
	if !ok {
		primary = outputs[0]
	}

	ev := &Evaluation{
		Account:   account,
		At:        at,
		Outputs:   outputs,
		Technical: primary,
	}
	ev.Chain = append(ev.Chain, fmt.Sprintf("Technical: Signal=%.2f, Confidence=%.2f, Reasons=%s",
		primary.Direction, primary.Confidence, strings.Join(primary.Reasons, ", ")))

	for _, check := range m.checks {
		verdict := check.Run(ev)
		if verdict.Vetoed {
			m.logger.Debug().Str("check", check.Name).Strs("reasons", verdict.Reasons).Msg("Decision vetoed")
			return hold(ev.Chain, ev.Warnings, verdict.Reasons)
		}
	}

	return m.blend(ev)
}

func (m *MetaAggregator) blend(ev *Evaluation) model.MetaDecision {
	techSignal, filterSignal, riskSignal := ev.Technical.Direction, ev.Filtered.Direction, ev.Assessment.Signal

	finalSignal := model.Clamp(
		m.cfg.TechnicalWeight*techSignal+m.cfg.FilterWeight*filterSignal+m.cfg.RiskWeight*riskSignal, -1, 1)
	finalConfidence := m.cfg.TechnicalWeight*ev.Technical.Confidence +
		m.cfg.FilterWeight*ev.Filtered.Confidence +
		m.cfg.RiskWeight*ev.Assessment.Confidence

	if sd, ok := activeStdDev(m.cfg.ActiveSignalFloor, techSignal, filterSignal, riskSignal); ok && sd > m.cfg.DisagreementStdDev {
		finalConfidence *= m.cfg.DisagreementPenalty
		ev.Warnings = append(ev.Warnings, fmt.Sprintf("Stages disagree (std=%.2f)", sd))
	}
	finalConfidence = model.Clamp(finalConfidence, 0, 1)

	ev.Chain = append(ev.Chain, fmt.Sprintf("Final: Signal=%.2f, Confidence=%.2f", finalSignal, finalConfidence))

	decision := model.MetaDecision{
		FinalSignal:     finalSignal,
		FinalConfidence: finalConfidence,
		ReasoningChain:  ev.Chain,
		Warnings:        ev.Warnings,
	}

	switch {
	case finalSignal > m.cfg.ActionThreshold:
		decision.Action = model.ActionBuy
	case finalSignal < -m.cfg.ActionThreshold:
		decision.Action = model.ActionSell
	default:
		decision.Action = model.ActionHold
		decision.VetoReasons = []string{fmt.Sprintf("Weak final signal: %.2f", finalSignal)}
		m.logger.Debug().Float64("signal", finalSignal).Msg("Final signal below action threshold")
		return decision
	}

	decision.PositionSize = ev.Assessment.PositionSize
	decision.StopLoss = ev.Assessment.StopLossPrice
	decision.TakeProfit = ev.Assessment.TakeProfitPrice

	m.logger.Debug().
		Str("action", string(decision.Action)).
		Float64("signal", finalSignal).
		Float64("confidence", finalConfidence).
		Float64("position_size", decision.PositionSize).
		Msg("Trade decision")

	return decision
}

func hold(chain, warnings, reasons []string) model.MetaDecision {
	return model.MetaDecision{
		Action:         model.ActionHold,
		ReasoningChain: chain,
		VetoReasons:    reasons,
		Warnings:       warnings,
	}
}

func findSource(outputs []model.SignalOutput, kind model.SourceKind) (model.SignalOutput, bool) {
	for _, o := range outputs {
		if o.Source == kind {
			return o, true
		}
	}
	return model.SignalOutput{}, false
}

// activeStdDev is the population standard deviation of signals whose magnitude exceeds floor.
// It reports false when no signal qualifies.
func activeStdDev(floor float64, signals ...float64) (float64, bool) {
	var active []float64
	for _, s := range signals {
		if math.Abs(s) > floor {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return 0, false
	}

	var mean float64
	for _, s := range active {
		mean += s
	}
	mean /= float64(len(active))

	var variance float64
	for _, s := range active {
		variance += (s - mean) * (s - mean)
	}
	return math.Sqrt(variance / float64(len(active))), true
}
