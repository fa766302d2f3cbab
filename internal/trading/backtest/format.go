package backtest

import (
	"fmt"

	"github.com/Alias1177/Predictor/internal/model"
)

// FormatResults creates a human-readable summary of backtest results
func FormatResults(result *model.BacktestResult) string {
	if result == nil {
		return "No backtest results available"
	}

	output := "\n===== BACKTEST RESULTS =====\n"
	output += fmt.Sprintf("Strategy: %s\n", result.StrategyName)
	output += fmt.Sprintf("Symbol: %s\n", result.Symbol)
	output += fmt.Sprintf("Period: %s\n", result.Period())
	output += fmt.Sprintf("Initial capital: $%.2f\n", result.InitialCapital)
	output += fmt.Sprintf("Final capital: $%.2f\n", result.FinalCapital)
	output += fmt.Sprintf("Total return: $%.2f (%+.2f%%)\n", result.TotalReturn, result.TotalReturnPct)

	output += fmt.Sprintf("\nTotal trades: %d\n", result.TotalTrades)
	output += fmt.Sprintf("Winning trades: %d (%.2f%%)\n", result.WinningTrades, result.WinRate)
	output += fmt.Sprintf("Losing trades: %d\n", result.LosingTrades)
	output += fmt.Sprintf("Average profit: $%.2f\n", result.AvgProfit)
	output += fmt.Sprintf("Average loss: $%.2f\n", result.AvgLoss)
	output += fmt.Sprintf("Profit factor: %.2f\n", result.ProfitFactor)
	output += fmt.Sprintf("Max consecutive wins: %d\n", result.MaxConsecutive.Wins)
	output += fmt.Sprintf("Max consecutive losses: %d\n", result.MaxConsecutive.Losses)
	output += fmt.Sprintf("Average holding time: %.1f hours\n", result.AvgHoldingHours)

	output += fmt.Sprintf("\nMaximum drawdown: $%.2f (%.2f%%)\n", result.MaxDrawdown, result.MaxDrawdownPct)
	output += fmt.Sprintf("Sharpe ratio: %s\n", ratioString(result.SharpeRatio))
	output += fmt.Sprintf("Sortino ratio: %s\n", ratioString(result.SortinoRatio))

	return output
}

// FormatAdaptive summarizes the regime sampling and every candidate's result
func FormatAdaptive(result *AdaptiveResult) string {
	if result == nil || result.Best == nil {
		return "No adaptive results available"
	}

	output := "\n===== ADAPTIVE SELECTION =====\n"
	output += fmt.Sprintf("Dominant regime: %s\n", result.DominantRegime)

	counts := make(map[model.Regime]int)
	for _, c := range result.Checkpoints {
		counts[c.Analysis.Regime]++
	}
	for _, regime := range model.Regimes {
		pct := float64(counts[regime]) / float64(len(result.Checkpoints)) * 100
		output += fmt.Sprintf("- %s: %d (%.1f%%)\n", regime, counts[regime], pct)
	}

	output += "\nCandidates:\n"
	for _, run := range result.Runs {
		status := "[SKIP]"
		if run.Compatible {
			status = "[OK]"
		}
		output += fmt.Sprintf("%s %s: Return %+.2f%%, Win rate %.1f%%, Trades %d - %s\n",
			status, run.Result.StrategyName, run.Result.TotalReturnPct, run.Result.WinRate,
			run.Result.TotalTrades, run.Reason)
	}
	if result.UsedFallback {
		output += fmt.Sprintf("\nNo compatible strategies for %s, selected from all candidates\n", result.DominantRegime)
	}

	output += fmt.Sprintf("\nBest strategy: %s\n", result.Best.StrategyName)
	output += FormatResults(result.Best)

	return output
}

func ratioString(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}
