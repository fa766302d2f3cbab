package model

import (
	"fmt"
	"time"
)

// BacktestResult stores the outcome of one backtest run
type BacktestResult struct {
	StrategyName   string    `json:"strategy_name"`
	Symbol         string    `json:"symbol"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	InitialCapital float64   `json:"initial_capital"`
	FinalCapital   float64   `json:"final_capital"`
	Trades         []Trade   `json:"trades"`
	EquityCurve    []float64 `json:"equity_curve,omitempty"`

	TotalReturn    float64 `json:"total_return"`
	TotalReturnPct float64 `json:"total_return_pct"`

	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	WinRate        float64 `json:"win_rate"`
	AvgProfit      float64 `json:"avg_profit"`
	AvgLoss        float64 `json:"avg_loss"`
	ProfitFactor   float64 `json:"profit_factor"`
	MaxConsecutive struct {
		Wins   int `json:"wins"`
		Losses int `json:"losses"`
	} `json:"max_consecutive"`
	AvgHoldingHours float64 `json:"avg_holding_hours"`

	MaxDrawdown    float64  `json:"max_drawdown"`
	MaxDrawdownPct float64  `json:"max_drawdown_pct"`
	SharpeRatio    *float64 `json:"sharpe_ratio"`
	SortinoRatio   *float64 `json:"sortino_ratio"`
}

// Period renders the covered date range.
func (r *BacktestResult) Period() string {
	return fmt.Sprintf("%s to %s", r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"))
}

// ResultRecord is the flat export form of a BacktestResult
type ResultRecord struct {
	Strategy       string  `json:"strategy"`
	Symbol         string  `json:"symbol"`
	Period         string  `json:"period"`
	InitialCapital float64 `json:"initial_capital"`
	FinalCapital   float64 `json:"final_capital"`
	TotalReturn    float64 `json:"total_return"`
	TotalReturnPct float64 `json:"total_return_pct"`
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	WinRate        float64 `json:"win_rate"`
	AvgProfit      float64 `json:"avg_profit"`
	AvgLoss        float64 `json:"avg_loss"`
	ProfitFactor   float64 `json:"profit_factor"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	SharpeRatio    string  `json:"sharpe_ratio"`
	SortinoRatio   string  `json:"sortino_ratio"`
}

// TradeRecord is the flat export form of a Trade
type TradeRecord struct {
	ID            int     `json:"id"`
	Direction     string  `json:"direction"`
	EntryTime     string  `json:"entry_time"`
	EntryPrice    float64 `json:"entry_price"`
	ExitTime      string  `json:"exit_time"`
	ExitPrice     float64 `json:"exit_price"`
	Size          float64 `json:"size"`
	StopLoss      float64 `json:"stop_loss"`
	TakeProfit    float64 `json:"take_profit"`
	Commission    float64 `json:"commission"`
	ProfitLoss    float64 `json:"profit_loss"`
	ProfitLossPct float64 `json:"profit_loss_pct"`
	DurationHours float64 `json:"duration_hours"`
	ExitReason    string  `json:"exit_reason,omitempty"`
}

// Record flattens the result for export. Undefined ratios render as "N/A".
func (r *BacktestResult) Record() ResultRecord {
	return ResultRecord{
		Strategy:       r.StrategyName,
		Symbol:         r.Symbol,
		Period:         r.Period(),
		InitialCapital: r.InitialCapital,
		FinalCapital:   r.FinalCapital,
		TotalReturn:    r.TotalReturn,
		TotalReturnPct: r.TotalReturnPct,
		TotalTrades:    r.TotalTrades,
		WinningTrades:  r.WinningTrades,
		LosingTrades:   r.LosingTrades,
		WinRate:        r.WinRate,
		AvgProfit:      r.AvgProfit,
		AvgLoss:        r.AvgLoss,
		ProfitFactor:   r.ProfitFactor,
		MaxDrawdown:    r.MaxDrawdown,
		MaxDrawdownPct: r.MaxDrawdownPct,
		SharpeRatio:    formatRatio(r.SharpeRatio),
		SortinoRatio:   formatRatio(r.SortinoRatio),
	}
}

// TradeRecords flattens the trade list, preserving order.
func (r *BacktestResult) TradeRecords() []TradeRecord {
	records := make([]TradeRecord, 0, len(r.Trades))
	for _, t := range r.Trades {
		rec := TradeRecord{
			ID:            t.ID,
			Direction:     string(t.Direction),
			EntryTime:     t.EntryTime.Format(time.RFC3339),
			EntryPrice:    t.EntryPrice,
			Size:          t.Size,
			Commission:    t.Commission,
			ProfitLoss:    t.ProfitLoss(),
			ProfitLossPct: t.ProfitLossPct(),
			DurationHours: t.Duration().Hours(),
			ExitReason:    t.ExitReason,
		}
		if t.ExitTime != nil {
			rec.ExitTime = t.ExitTime.Format(time.RFC3339)
		}
		if t.ExitPrice != nil {
			rec.ExitPrice = *t.ExitPrice
		}
		if t.StopLoss != nil {
			rec.StopLoss = *t.StopLoss
		}
		if t.TakeProfit != nil {
			rec.TakeProfit = *t.TakeProfit
		}
		records = append(records, rec)
	}
	return records
}

func formatRatio(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}
