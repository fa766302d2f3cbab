package model

import "time"

// Direction of a position
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Sign returns +1 for long and -1 for short.
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// TradeStatus tracks the trade lifecycle
type TradeStatus string

const (
	TradeOpen   TradeStatus = "OPEN"
	TradeClosed TradeStatus = "CLOSED"
)

// Trade is a single simulated position. Profit figures are derived on demand.
type Trade struct {
	ID         int         `json:"id"`
	EntryTime  time.Time   `json:"entry_time"`
	EntryPrice float64     `json:"entry_price"`
	Direction  Direction   `json:"direction"`
	Size       float64     `json:"size"`
	StopLoss   *float64    `json:"stop_loss,omitempty"`
	TakeProfit *float64    `json:"take_profit,omitempty"`
	Status     TradeStatus `json:"status"`
	ExitTime   *time.Time  `json:"exit_time,omitempty"`
	ExitPrice  *float64    `json:"exit_price,omitempty"`
	Commission float64     `json:"commission"`
	ExitReason string      `json:"exit_reason,omitempty"`
}

// Close marks the trade closed at the given time and price.
func (t *Trade) Close(at time.Time, price float64, reason string) {
	t.ExitTime = &at
	t.ExitPrice = &price
	t.Status = TradeClosed
	t.ExitReason = reason
}

// IsOpen reports whether the trade still holds a position.
func (t Trade) IsOpen() bool {
	return t.Status == TradeOpen
}

// ProfitLoss is the realized P&L net of commission. Open trades report 0.
func (t Trade) ProfitLoss() float64 {
	if t.Status != TradeClosed || t.ExitPrice == nil {
		return 0
	}
	gross := (*t.ExitPrice - t.EntryPrice) * t.Size * t.Direction.Sign()
	return gross - t.Commission
}

// ProfitLossPct is P&L relative to the entry notional, in percent.
func (t Trade) ProfitLossPct() float64 {
	notional := t.EntryPrice * t.Size
	if notional == 0 {
		return 0
	}
	return t.ProfitLoss() / notional * 100
}

// FloatingPnL marks an open trade to the given price without commission.
func (t Trade) FloatingPnL(price float64) float64 {
	if t.Status != TradeOpen {
		return 0
	}
	return (price - t.EntryPrice) * t.Size * t.Direction.Sign()
}

// Duration is the holding time of a closed trade.
func (t Trade) Duration() time.Duration {
	if t.ExitTime == nil {
		return 0
	}
	return t.ExitTime.Sub(t.EntryTime)
}

// StopLossHit reports whether price crossed the stop in the adverse direction.
func (t Trade) StopLossHit(price float64) bool {
	if t.StopLoss == nil {
		return false
	}
	if t.Direction == Long {
		return price <= *t.StopLoss
	}
	return price >= *t.StopLoss
}

// TakeProfitHit reports whether price reached the target.
func (t Trade) TakeProfitHit(price float64) bool {
	if t.TakeProfit == nil {
		return false
	}
	if t.Direction == Long {
		return price >= *t.TakeProfit
	}
	return price <= *t.TakeProfit
}
