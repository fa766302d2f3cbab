package backtest

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Alias1177/Predictor/internal/analysis/market"
	"github.com/Alias1177/Predictor/internal/model"
	"github.com/Alias1177/Predictor/internal/platform/validate"
	"github.com/Alias1177/Predictor/internal/strategy"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrNotEnoughData is returned when the series is shorter than the regime lookback
var ErrNotEnoughData = errors.New("not enough data for regime detection")

// AdaptiveConfig controls regime sampling and strategy selection
type AdaptiveConfig struct {
	Lookback       int     `yaml:"lookback" validate:"gt=0"`
	Checkpoints    int     `yaml:"checkpoints" validate:"gt=0"`
	MinConfidence  float64 `yaml:"min_confidence" validate:"gte=0,lte=1"`
	InitialCapital float64 `yaml:"initial_capital" validate:"gt=0"`
	Commission     float64 `yaml:"commission" validate:"gte=0"`
}

// DefaultAdaptiveConfig samples 10 checkpoints over 100-bar windows
func DefaultAdaptiveConfig() AdaptiveConfig {
	return AdaptiveConfig{
		Lookback:       100,
		Checkpoints:    10,
		MinConfidence:  0.6,
		InitialCapital: 10000,
		Commission:     2.0,
	}
}

// RegimeCheckpoint is one sampled regime classification
type RegimeCheckpoint struct {
	Index    int                  `json:"index"`
	Analysis model.RegimeAnalysis `json:"analysis"`
}

// StrategyRun is one candidate's result and its regime fit
type StrategyRun struct {
	Result     *model.BacktestResult `json:"result"`
	Compatible bool                  `json:"compatible"`
	Reason     string                `json:"reason"`
}

// AdaptiveResult is the outcome of an adaptive run
type AdaptiveResult struct {
	Best           *model.BacktestResult `json:"best"`
	DominantRegime model.Regime          `json:"dominant_regime"`
	Checkpoints    []RegimeCheckpoint    `json:"checkpoints"`
	Runs           []StrategyRun         `json:"runs"`
	UsedFallback   bool                  `json:"used_fallback"`
}

// AdaptiveStats accumulates over every Run of an AdaptiveEngine
type AdaptiveStats struct {
	RegimeDistribution map[model.Regime]int `json:"regime_distribution"`
	StrategyUsage      map[string]int       `json:"strategy_usage"`
}

// AdaptiveEngine backtests a set of candidate strategies and picks the best
// one suited to the dominant market regime. Strategies must be distinct
// instances; each is driven by its own goroutine.
type AdaptiveEngine struct {
	cfg        AdaptiveConfig
	strategies []strategy.Strategy
	detector   *market.Detector
	filter     market.RegimeFilter
	engineOpts []Option
	logger     zerolog.Logger

	mu    sync.Mutex
	stats AdaptiveStats
}

// NewAdaptiveEngine validates the config and builds the engine. Extra options
// are applied to every per-strategy Engine after capital and commission.
func NewAdaptiveEngine(cfg AdaptiveConfig, detector *market.Detector, strategies []strategy.Strategy, opts ...Option) (*AdaptiveEngine, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("adaptive engine: %w", err)
	}
	if detector == nil {
		return nil, errors.New("adaptive engine: regime detector is required")
	}
	if len(strategies) == 0 {
		return nil, errors.New("adaptive engine: at least one strategy is required")
	}

	stats := AdaptiveStats{
		RegimeDistribution: make(map[model.Regime]int, len(model.Regimes)),
		StrategyUsage:      make(map[string]int, len(strategies)),
	}
	for _, r := range model.Regimes {
		stats.RegimeDistribution[r] = 0
	}
	for _, s := range strategies {
		stats.StrategyUsage[s.Name()] = 0
	}

	return &AdaptiveEngine{
		cfg:        cfg,
		strategies: strategies,
		detector:   detector,
		filter:     market.RegimeFilter{MinConfidence: cfg.MinConfidence},
		engineOpts: opts,
		logger:     log.With().Str("component", "adaptive_engine").Logger(),
		stats:      stats,
	}, nil
}

// Run samples the regime, backtests every candidate over the full series in
// parallel and returns the compatible candidate with the highest return.
// With no compatible candidate every candidate is eligible.
func (a *AdaptiveEngine) Run(ctx context.Context, series model.Series) (*AdaptiveResult, error) {
	if series.Len() < a.cfg.Lookback {
		return nil, fmt.Errorf("%w: need at least %d candles, got %d", ErrNotEnoughData, a.cfg.Lookback, series.Len())
	}

	checkpoints := a.sampleRegimes(series.Candles)
	dominant := dominantRegime(checkpoints)
	latest := checkpoints[len(checkpoints)-1].Analysis

	a.logger.Info().
		Str("symbol", series.Symbol).
		Int("candles", series.Len()).
		Int("checkpoints", len(checkpoints)).
		Str("dominant_regime", string(dominant)).
		Float64("confidence", latest.Confidence).
		Msg("Regime analysis complete")

	results := make([]*model.BacktestResult, len(a.strategies))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, s := range a.strategies {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			opts := append([]Option{
				WithInitialCapital(a.cfg.InitialCapital),
				WithCommission(a.cfg.Commission),
			}, a.engineOpts...)
			results[i] = NewEngine(s, opts...).Run(series)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("adaptive run: %w", err)
	}

	out := &AdaptiveResult{
		DominantRegime: dominant,
		Checkpoints:    checkpoints,
		Runs:           make([]StrategyRun, len(results)),
	}
	gate := model.RegimeAnalysis{Regime: dominant, Confidence: latest.Confidence}
	for i, res := range results {
		ok, reason := a.filter.ShouldTrade(res.StrategyName, gate)
		out.Runs[i] = StrategyRun{Result: res, Compatible: ok, Reason: reason}

		a.logger.Info().
			Str("strategy", res.StrategyName).
			Bool("compatible", ok).
			Float64("return_pct", res.TotalReturnPct).
			Float64("win_rate", res.WinRate).
			Int("trades", res.TotalTrades).
			Msg(reason)
	}

	out.Best, out.UsedFallback = selectBest(out.Runs)
	if out.UsedFallback {
		a.logger.Warn().Str("regime", string(dominant)).Msg("No compatible strategies, using all strategies")
	}

	a.record(checkpoints)

	a.logger.Info().
		Str("best_strategy", out.Best.StrategyName).
		Float64("return_pct", out.Best.TotalReturnPct).
		Msg("Adaptive selection complete")

	return out, nil
}

// sampleRegimes classifies lookback windows at evenly spaced bars. A series
// too short for any step is classified once on its last window.
func (a *AdaptiveEngine) sampleRegimes(candles []model.Candle) []RegimeCheckpoint {
	n := len(candles)
	interval := n / a.cfg.Checkpoints
	if interval < 1 {
		interval = 1
	}

	var checkpoints []RegimeCheckpoint
	for i := a.cfg.Lookback; i < n; i += interval {
		analysis := a.detector.Detect(candles[i-a.cfg.Lookback : i])
		checkpoints = append(checkpoints, RegimeCheckpoint{Index: i, Analysis: analysis})

		a.logger.Debug().
			Int("candle", i).
			Str("regime", string(analysis.Regime)).
			Float64("confidence", analysis.Confidence).
			Float64("adx", analysis.ADX).
			Float64("volatility_pct", analysis.VolatilityPct).
			Msg("Regime checkpoint")
	}
	if len(checkpoints) == 0 {
		checkpoints = append(checkpoints, RegimeCheckpoint{
			Index:    n,
			Analysis: a.detector.Detect(candles[n-a.cfg.Lookback:]),
		})
	}
	return checkpoints
}

func (a *AdaptiveEngine) record(checkpoints []RegimeCheckpoint) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range checkpoints {
		a.stats.RegimeDistribution[c.Analysis.Regime]++
	}
	for _, s := range a.strategies {
		a.stats.StrategyUsage[s.Name()]++
	}
}

// Stats returns a copy of the regime distribution and strategy usage counters
func (a *AdaptiveEngine) Stats() AdaptiveStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := AdaptiveStats{
		RegimeDistribution: make(map[model.Regime]int, len(a.stats.RegimeDistribution)),
		StrategyUsage:      make(map[string]int, len(a.stats.StrategyUsage)),
	}
	for k, v := range a.stats.RegimeDistribution {
		out.RegimeDistribution[k] = v
	}
	for k, v := range a.stats.StrategyUsage {
		out.StrategyUsage[k] = v
	}
	return out
}

// dominantRegime is the most frequent regime; ties go to the earlier entry of model.Regimes
func dominantRegime(checkpoints []RegimeCheckpoint) model.Regime {
	counts := make(map[model.Regime]int, len(model.Regimes))
	for _, c := range checkpoints {
		counts[c.Analysis.Regime]++
	}
	best := model.Regimes[0]
	for _, r := range model.Regimes[1:] {
		if counts[r] > counts[best] {
			best = r
		}
	}
	return best
}

// selectBest picks the highest-return compatible run, falling back to all runs
func selectBest(runs []StrategyRun) (*model.BacktestResult, bool) {
	var best *model.BacktestResult
	for _, r := range runs {
		if r.Compatible && (best == nil || r.Result.TotalReturnPct > best.TotalReturnPct) {
			best = r.Result
		}
	}
	if best != nil {
		return best, false
	}
	for _, r := range runs {
		if best == nil || r.Result.TotalReturnPct > best.TotalReturnPct {
			best = r.Result
		}
	}
	return best, true
}
