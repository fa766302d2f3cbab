package main

import (
	"fmt"
	"strings"

	"github.com/Alias1177/Predictor/internal/analysis/market"
	"github.com/Alias1177/Predictor/internal/database"
	"github.com/Alias1177/Predictor/internal/model"
	"github.com/Alias1177/Predictor/internal/signal"
	"github.com/Alias1177/Predictor/internal/strategy"
	"github.com/Alias1177/Predictor/internal/trading/backtest"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	strategyFlag        string
	historyStrategyFlag []string
	historyLimitFlag    int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Backtest a single strategy",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dep, err := newAppDependency(ctx, cfg)
		if err != nil {
			return err
		}
		defer dep.Close()

		s, err := dep.registry.New(strategyFlag)
		if err != nil {
			return err
		}
		series, err := dep.fetchSeries(ctx)
		if err != nil {
			return err
		}

		result := backtest.NewEngine(s, dep.engineOptions()...).Run(series)
		report := backtest.FormatResults(result)
		fmt.Println(report)

		dep.deliver(ctx, result, report)
		return nil
	},
}

var adaptiveCmd = &cobra.Command{
	Use:   "adaptive",
	Short: "Backtest every strategy and pick the best one for the dominant regime",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dep, err := newAppDependency(ctx, cfg)
		if err != nil {
			return err
		}
		defer dep.Close()

		engine, err := backtest.NewAdaptiveEngine(cfg.Adaptive(dep.profile), dep.detector, dep.registry.All(), riskOption(dep)...)
		if err != nil {
			return err
		}
		series, err := dep.fetchSeries(ctx)
		if err != nil {
			return err
		}

		result, err := engine.Run(ctx, series)
		if err != nil {
			return err
		}
		report := backtest.FormatAdaptive(result)
		fmt.Println(report)

		stats := engine.Stats()
		log.Debug().Interface("regimes", stats.RegimeDistribution).Interface("usage", stats.StrategyUsage).Msg("Adaptive stats")

		dep.deliver(ctx, result.Best, report)
		return nil
	},
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Run the meta decision pipeline on the latest window",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dep, err := newAppDependency(ctx, cfg)
		if err != nil {
			return err
		}
		defer dep.Close()

		series, err := dep.fetchSeries(ctx)
		if err != nil {
			return err
		}
		if series.Len() == 0 {
			return fmt.Errorf("no candles for %s", cfg.Symbol)
		}

		pipeline := dep.newPipeline()
		pipeline.SetAccount(model.NewAccountState(cfg.InitialCapital))
		last := series.Len() - 1
		meta := pipeline.Decide(series.Candles, last)

		window := series.Candles
		if len(window) > pipelineWindow {
			window = window[len(window)-pipelineWindow:]
		}
		outputs := signal.AnalyzeAll(window, dep.sources...)
		vote := dep.weighted.Aggregate(outputs)
		regime := dep.detector.Detect(window)

		report := formatDecision(series, meta, vote, regime)
		fmt.Println(report)

		if dep.store != nil {
			if err := dep.store.SaveDecision(ctx, series.Symbol, series.Last().Datetime, meta); err != nil {
				log.Error().Err(err).Msg("Failed to save decision")
			}
		}
		dep.deliver(ctx, nil, report)
		return nil
	},
}

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List registered strategies and the regimes they suit",
	RunE: func(cmd *cobra.Command, args []string) error {
		dep, err := newAppDependency(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer dep.Close()

		for _, key := range dep.registry.Keys() {
			s, err := dep.registry.New(key)
			if err != nil {
				return err
			}
			fmt.Printf("%-16s %-28s %s\n", key, s.Name(), strings.Join(suitedRegimes(s), ", "))
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored backtest results",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is not set")
		}
		dep, err := newAppDependency(ctx, cfg)
		if err != nil {
			return err
		}
		defer dep.Close()

		results, err := dep.store.ListResults(ctx, database.ResultFilter{
			Strategies: historyStrategyFlag,
			Symbol:     cfg.Symbol,
			Limit:      historyLimitFlag,
		})
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No stored results")
			return nil
		}
		for _, r := range results {
			rec := r.Record
			fmt.Printf("#%d %s %-28s %s return %+.2f%% trades %d sharpe %s\n",
				r.ID, r.CreatedAt.Format("2006-01-02 15:04"), rec.Strategy, rec.Period,
				rec.TotalReturnPct, rec.TotalTrades, rec.SharpeRatio)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&strategyFlag, "strategy", "s", "ma_crossover", "strategy key, see the strategies command")
	historyCmd.Flags().StringSliceVar(&historyStrategyFlag, "strategy", nil, "only show these strategy names")
	historyCmd.Flags().IntVar(&historyLimitFlag, "limit", 20, "maximum number of results")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(adaptiveCmd)
	rootCmd.AddCommand(decideCmd)
	rootCmd.AddCommand(strategiesCmd)
	rootCmd.AddCommand(historyCmd)
}

// riskOption gates adaptive candidates through the risk manager when RISK_GATED is set.
// Capital and commission come from the adaptive config.
func riskOption(dep *appDependency) []backtest.Option {
	if !cfg.RiskGated {
		return nil
	}
	return []backtest.Option{backtest.WithRiskManager(dep.risk)}
}

func suitedRegimes(s strategy.Strategy) []string {
	var out []string
	for _, regime := range model.Regimes {
		if market.Compatible(s.Name(), regime) {
			out = append(out, string(regime))
		}
	}
	if len(out) == 0 {
		out = append(out, "-")
	}
	return out
}

func formatDecision(series model.Series, meta model.MetaDecision, vote model.Decision, regime model.RegimeAnalysis) string {
	output := "\n===== META DECISION =====\n"
	output += fmt.Sprintf("Symbol: %s (%s)\n", series.Symbol, series.Interval)
	output += fmt.Sprintf("Bar: %s close %.5f\n", series.Last().Datetime.Format("2006-01-02 15:04"), series.Last().Close)
	output += fmt.Sprintf("Regime: %s (confidence %.2f, ADX %.1f)\n", regime.Regime, regime.Confidence, regime.ADX)

	output += fmt.Sprintf("\nAction: %s\n", meta.Action)
	output += fmt.Sprintf("Signal: %+.3f  Confidence: %.2f\n", meta.FinalSignal, meta.FinalConfidence)
	if !meta.Vetoed() {
		output += fmt.Sprintf("Size: %.4f  Stop: %.5f  Target: %.5f\n", meta.PositionSize, meta.StopLoss, meta.TakeProfit)
	}
	for _, r := range meta.VetoReasons {
		output += fmt.Sprintf("Veto: %s\n", r)
	}
	for _, w := range meta.Warnings {
		output += fmt.Sprintf("Warning: %s\n", w)
	}
	for _, step := range meta.ReasoningChain {
		output += fmt.Sprintf("- %s\n", step)
	}

	output += fmt.Sprintf("\nWeighted vote: %s (signal %+.3f, confidence %.2f, %d sources)\n",
		vote.Label, vote.Signal, vote.Confidence, vote.Sources)
	output += vote.Reasoning + "\n"
	return output
}
