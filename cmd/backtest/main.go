package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alias1177/Predictor/internal/config"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config

	symbolFlag   string
	intervalFlag string
	countFlag    int
)

var rootCmd = &cobra.Command{
	Use:           "backtest",
	Short:         "Backtest trading strategies and the meta decision pipeline",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("symbol") {
			loaded.Symbol = symbolFlag
		}
		if cmd.Flags().Changed("interval") {
			loaded.Interval = intervalFlag
		}
		if cmd.Flags().Changed("count") {
			loaded.CandleCount = countFlag
		}

		setupLogging(loaded.LogLevel, loaded.LogFormat)
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&symbolFlag, "symbol", "", "instrument symbol, overrides SYMBOL")
	rootCmd.PersistentFlags().StringVar(&intervalFlag, "interval", "", "candle interval, overrides INTERVAL")
	rootCmd.PersistentFlags().IntVar(&countFlag, "count", 0, "number of candles to fetch, overrides CANDLE_COUNT")
}

// setupLogging configures the global logger
func setupLogging(logLevel, format string) {
	if format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
