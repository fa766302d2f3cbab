package main

import (
	"context"
	"fmt"

	"github.com/Alias1177/Predictor/internal/analysis/market"
	"github.com/Alias1177/Predictor/internal/api/twelvedata"
	"github.com/Alias1177/Predictor/internal/config"
	"github.com/Alias1177/Predictor/internal/database"
	"github.com/Alias1177/Predictor/internal/decision"
	"github.com/Alias1177/Predictor/internal/model"
	"github.com/Alias1177/Predictor/internal/notify"
	"github.com/Alias1177/Predictor/internal/signal"
	"github.com/Alias1177/Predictor/internal/strategy"
	"github.com/Alias1177/Predictor/internal/trading/backtest"
	"github.com/Alias1177/Predictor/internal/trading/risk"
	"github.com/rs/zerolog/log"
)

const (
	pipelineKey    = "pipeline"
	pipelineWindow = 100
	mlMinBars      = 30
	patternWindow  = 20
)

type appDependency struct {
	cfg      *config.Config
	profile  config.RiskProfile
	client   *twelvedata.Client
	risk     *risk.Manager
	meta     *decision.MetaAggregator
	weighted *decision.WeightedAggregator
	detector *market.Detector
	sources  []signal.Source
	registry *strategy.Registry
	store    *database.Store
	notifier *notify.Telegram
}

func newAppDependency(ctx context.Context, cfg *config.Config) (*appDependency, error) {
	profile, err := config.LoadRiskProfile(cfg.RiskProfilePath)
	if err != nil {
		return nil, err
	}

	riskManager, err := risk.NewManager(profile.Risk)
	if err != nil {
		return nil, err
	}
	meta, err := decision.NewMetaAggregator(profile.Meta, signal.NewHeuristicFilter(), riskManager)
	if err != nil {
		return nil, err
	}
	weighted, err := decision.NewWeightedAggregator(profile.Thresholds)
	if err != nil {
		return nil, err
	}
	detector, err := market.NewDetector(profile.Regime)
	if err != nil {
		return nil, err
	}
	technical, err := signal.NewTechnical(profile.Technical)
	if err != nil {
		return nil, err
	}

	dep := &appDependency{
		cfg:      cfg,
		profile:  profile,
		risk:     riskManager,
		meta:     meta,
		weighted: weighted,
		detector: detector,
		sources: []signal.Source{
			technical,
			signal.NewML(signal.NewMomentumModel(), mlMinBars),
			signal.NewCandlestick(patternWindow),
		},
		client: twelvedata.NewClient(twelvedata.ClientOptions{
			APIKey:         cfg.TwelveAPIKey,
			RequestTimeout: cfg.RequestTimeout,
			RequestsPerSec: cfg.RequestsPerSec,
			CacheTTL:       cfg.CacheTTL,
		}),
	}

	dep.registry = strategy.DefaultRegistry()
	dep.registry.Register(pipelineKey, func() strategy.Strategy { return dep.newPipeline() })

	if cfg.DatabaseURL != "" {
		store, err := database.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		dep.store = store
	}

	if cfg.TelegramBotToken != "" {
		notifier, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			dep.Close()
			return nil, err
		}
		dep.notifier = notifier
	}

	return dep, nil
}

func (d *appDependency) Close() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}
}

func (d *appDependency) newPipeline() *strategy.Pipeline {
	return strategy.NewPipeline("Meta Pipeline", d.meta, pipelineWindow, d.sources...)
}

func (d *appDependency) fetchSeries(ctx context.Context) (model.Series, error) {
	if d.cfg.TwelveAPIKey == "" {
		return model.Series{}, fmt.Errorf("TWELVE_API_KEY is not set")
	}
	series, err := d.client.GetSeries(ctx, d.cfg.Symbol, d.cfg.Interval, d.cfg.CandleCount)
	if err != nil {
		return model.Series{}, fmt.Errorf("fetching %s %s candles: %w", d.cfg.Symbol, d.cfg.Interval, err)
	}
	log.Info().
		Str("symbol", series.Symbol).
		Str("interval", series.Interval).
		Int("candles", series.Len()).
		Msg("Market data loaded")
	return series, nil
}

func (d *appDependency) engineOptions() []backtest.Option {
	opts := []backtest.Option{
		backtest.WithInitialCapital(d.cfg.InitialCapital),
		backtest.WithCommission(d.cfg.Commission),
	}
	if d.cfg.RiskGated {
		opts = append(opts, backtest.WithRiskManager(d.risk))
	}
	return opts
}

// deliver persists the result and sends the report when a store or notifier is configured
func (d *appDependency) deliver(ctx context.Context, result *model.BacktestResult, report string) {
	if d.store != nil && result != nil {
		if _, err := d.store.SaveResult(ctx, result); err != nil {
			log.Error().Err(err).Msg("Failed to save backtest result")
		}
	}
	if d.notifier != nil {
		if err := d.notifier.SendReport(ctx, report); err != nil {
			log.Error().Err(err).Msg("Failed to send report")
		}
	}
}
