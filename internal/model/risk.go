package model

import "time"

// DayKey formats the calendar day used for daily risk counters.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// RiskAssessment is the outcome of evaluating one candidate entry
type RiskAssessment struct {
	Approved         bool     `json:"approved"`
	Signal           float64  `json:"signal"`
	Confidence       float64  `json:"confidence"`
	PositionSize     float64  `json:"position_size"`
	RiskAmount       float64  `json:"risk_amount"`
	StopLossPrice    float64  `json:"stop_loss_price"`
	TakeProfitPrice  float64  `json:"take_profit_price"`
	RiskRewardRatio  float64  `json:"risk_reward_ratio"`
	RejectionReasons []string `json:"rejection_reasons,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

// AccountState is the capital and exposure bookkeeping of one run.
// It is a value: risk operations return an updated copy.
type AccountState struct {
	CurrentBalance  float64             `json:"current_balance"`
	PeakBalance     float64             `json:"peak_balance"`
	OpenPositions   map[string]struct{} `json:"open_positions"`
	DailyTradeCount map[string]int      `json:"daily_trade_count"`
	DailyPnL        map[string]float64  `json:"daily_pnl"`
}

// NewAccountState starts an account at the given balance.
func NewAccountState(balance float64) AccountState {
	return AccountState{
		CurrentBalance:  balance,
		PeakBalance:     balance,
		OpenPositions:   make(map[string]struct{}),
		DailyTradeCount: make(map[string]int),
		DailyPnL:        make(map[string]float64),
	}
}

// Clone deep-copies the maps so the returned state shares nothing with s.
func (s AccountState) Clone() AccountState {
	c := AccountState{
		CurrentBalance:  s.CurrentBalance,
		PeakBalance:     s.PeakBalance,
		OpenPositions:   make(map[string]struct{}, len(s.OpenPositions)),
		DailyTradeCount: make(map[string]int, len(s.DailyTradeCount)),
		DailyPnL:        make(map[string]float64, len(s.DailyPnL)),
	}
	for k := range s.OpenPositions {
		c.OpenPositions[k] = struct{}{}
	}
	for k, v := range s.DailyTradeCount {
		c.DailyTradeCount[k] = v
	}
	for k, v := range s.DailyPnL {
		c.DailyPnL[k] = v
	}
	return c
}

// DrawdownPct is the decline from peak balance, in percent.
func (s AccountState) DrawdownPct() float64 {
	if s.PeakBalance <= 0 {
		return 0
	}
	dd := (s.PeakBalance - s.CurrentBalance) / s.PeakBalance * 100
	if dd < 0 {
		return 0
	}
	return dd
}

// TradesOn returns the number of trades recorded on the day of t.
func (s AccountState) TradesOn(t time.Time) int {
	return s.DailyTradeCount[DayKey(t)]
}

// PnLOn returns realized P&L recorded on the day of t.
func (s AccountState) PnLOn(t time.Time) float64 {
	return s.DailyPnL[DayKey(t)]
}

// Record books realized P&L on the day of at and returns the updated copy.
// Peak balance never decreases.
func (s AccountState) Record(pnl float64, at time.Time) AccountState {
	next := s.Clone()
	day := DayKey(at)
	next.DailyTradeCount[day]++
	next.DailyPnL[day] += pnl
	next.CurrentBalance += pnl
	if next.CurrentBalance > next.PeakBalance {
		next.PeakBalance = next.CurrentBalance
	}
	return next
}

// WithPosition returns a copy with id in the open set.
func (s AccountState) WithPosition(id string) AccountState {
	next := s.Clone()
	next.OpenPositions[id] = struct{}{}
	return next
}

// WithoutPosition returns a copy with id removed from the open set.
func (s AccountState) WithoutPosition(id string) AccountState {
	next := s.Clone()
	delete(next.OpenPositions, id)
	return next
}
