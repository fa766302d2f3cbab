package backtest

import (
	"math"

	"github.com/Alias1177/Predictor/internal/model"
)

const (
	tradingDaysPerYear = 252
	riskFreeRate       = 0.0
	sortinoTarget      = 0.0
)

// CalculatePerformanceMetrics derives every summary field of result from its
// trades, equity curve and capital figures. Calling it again yields the same values.
func CalculatePerformanceMetrics(result *model.BacktestResult) {
	if result == nil {
		return
	}

	closed := make([]model.Trade, 0, len(result.Trades))
	for _, t := range result.Trades {
		if t.Status == model.TradeClosed {
			closed = append(closed, t)
		}
	}
	result.Trades = closed

	result.TotalReturn = result.FinalCapital - result.InitialCapital
	result.TotalReturnPct = 0
	if result.InitialCapital > 0 {
		result.TotalReturnPct = result.TotalReturn / result.InitialCapital * 100
	}

	calculateTradeStats(result)
	result.MaxDrawdown, result.MaxDrawdownPct = maxDrawdown(result.EquityCurve, result.InitialCapital)

	returns := make([]float64, len(closed))
	for i, t := range closed {
		returns[i] = t.ProfitLossPct()
	}
	result.SharpeRatio = sharpeRatio(returns)
	result.SortinoRatio = sortinoRatio(returns)
}

func calculateTradeStats(result *model.BacktestResult) {
	var profits, losses, holding []float64
	var totalProfit, totalLoss float64
	consecutiveWins, consecutiveLosses := 0, 0

	result.WinningTrades, result.LosingTrades = 0, 0
	result.MaxConsecutive.Wins, result.MaxConsecutive.Losses = 0, 0

	for _, t := range result.Trades {
		pnl := t.ProfitLoss()
		holding = append(holding, t.Duration().Hours())

		switch {
		case pnl > 0:
			result.WinningTrades++
			profits = append(profits, pnl)
			totalProfit += pnl
			consecutiveWins++
			consecutiveLosses = 0
		case pnl < 0:
			result.LosingTrades++
			losses = append(losses, -pnl)
			totalLoss += -pnl
			consecutiveLosses++
			consecutiveWins = 0
		default:
			consecutiveWins, consecutiveLosses = 0, 0
		}

		if consecutiveWins > result.MaxConsecutive.Wins {
			result.MaxConsecutive.Wins = consecutiveWins
		}
		if consecutiveLosses > result.MaxConsecutive.Losses {
			result.MaxConsecutive.Losses = consecutiveLosses
		}
	}

	result.TotalTrades = len(result.Trades)
	result.WinRate = 0
	if result.TotalTrades > 0 {
		result.WinRate = float64(result.WinningTrades) / float64(result.TotalTrades) * 100
	}
	result.AvgProfit = calculateMean(profits)
	result.AvgLoss = calculateMean(losses)
	result.AvgHoldingHours = calculateMean(holding)

	result.ProfitFactor = 0
	if totalLoss > 0 {
		result.ProfitFactor = totalProfit / totalLoss
	}
}

// maxDrawdown is the largest fall from a running peak of the equity curve,
// in currency and as a percentage of initial capital
func maxDrawdown(equity []float64, initial float64) (float64, float64) {
	if len(equity) == 0 {
		return 0, 0
	}

	peak := equity[0]
	var maxDD float64
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if dd := peak - v; dd > maxDD {
			maxDD = dd
		}
	}

	if initial <= 0 {
		return maxDD, 0
	}
	return maxDD, maxDD / initial * 100
}

// sharpeRatio annualizes per-trade percentage returns. Nil with fewer than two
// trades or zero variance.
func sharpeRatio(returns []float64) *float64 {
	if len(returns) < 2 {
		return nil
	}
	mean := calculateMean(returns)
	sd := calculateStdDev(returns, mean)
	if sd == 0 {
		return nil
	}
	sharpe := (mean - riskFreeRate) / sd * math.Sqrt(tradingDaysPerYear)
	return &sharpe
}

// sortinoRatio is the Sharpe numerator over the deviation of returns below target.
// A single losing return uses its distance from target as the deviation.
// Nil when no return falls below target.
func sortinoRatio(returns []float64) *float64 {
	if len(returns) < 2 {
		return nil
	}
	var downside []float64
	for _, r := range returns {
		if r < sortinoTarget {
			downside = append(downside, r)
		}
	}

	var sd float64
	switch len(downside) {
	case 0:
		return nil
	case 1:
		sd = sortinoTarget - downside[0]
	default:
		sd = calculateStdDev(downside, calculateMean(downside))
	}
	if sd == 0 {
		return nil
	}
	sortino := (calculateMean(returns) - sortinoTarget) / sd * math.Sqrt(tradingDaysPerYear)
	return &sortino
}

func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// calculateStdDev is the sample standard deviation
func calculateStdDev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}

	var sumSquaredDiff float64
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}

	return math.Sqrt(sumSquaredDiff / float64(len(values)-1))
}
