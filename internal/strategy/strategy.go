// Package strategy defines the entry/exit rules driven by the backtest engine.
package strategy

import "github.com/Alias1177/Predictor/internal/model"

// Signal is an entry request
type Signal string

const (
	None Signal = ""
	Buy  Signal = "BUY"
	Sell Signal = "SELL"
)

// Direction maps an entry request to the position it opens
func (s Signal) Direction() (model.Direction, bool) {
	switch s {
	case Buy:
		return model.Long, true
	case Sell:
		return model.Short, true
	}
	return "", false
}

// Strategy decides entries and exits bar by bar. Implementations only look at
// candles[:i+1].
type Strategy interface {
	Name() string
	ShouldEnter(candles []model.Candle, i int) Signal
	ShouldExit(candles []model.Candle, i int, entryPrice float64, direction model.Direction) bool
	// StopLoss and TakeProfit report false when the strategy sets no level
	StopLoss(entryPrice float64, direction model.Direction) (float64, bool)
	TakeProfit(entryPrice float64, direction model.Direction) (float64, bool)
}

// Resetter is implemented by strategies holding per-run state
type Resetter interface {
	Reset()
}

// PositionObserver is told when the engine opens or closes the strategy's position
type PositionObserver interface {
	PositionOpened(direction model.Direction)
	PositionClosed()
}

// AccountAware strategies receive the run's account before every entry decision
type AccountAware interface {
	SetAccount(account model.AccountState)
}

// Sizer strategies choose their own position size for the entry they just signalled
type Sizer interface {
	PositionSize() (float64, bool)
}

// percentLevels is the fixed-percentage stop/target shared by the rule strategies
type percentLevels struct {
	stopPct   float64
	targetPct float64
}

func (p percentLevels) StopLoss(entry float64, direction model.Direction) (float64, bool) {
	if p.stopPct <= 0 {
		return 0, false
	}
	return entry * (1 - direction.Sign()*p.stopPct/100), true
}

func (p percentLevels) TakeProfit(entry float64, direction model.Direction) (float64, bool) {
	if p.targetPct <= 0 {
		return 0, false
	}
	return entry * (1 + direction.Sign()*p.targetPct/100), true
}

// profitPct is the unrealized gain of a position at price, in percent
func profitPct(entry, price float64, direction model.Direction) float64 {
	if entry == 0 {
		return 0
	}
	return (price - entry) / entry * 100 * direction.Sign()
}

// crossedUp and crossedDown detect a crossing of a over b between two bars
func crossedUp(prevA, prevB, a, b float64) bool   { return prevA < prevB && a > b }
func crossedDown(prevA, prevB, a, b float64) bool { return prevA > prevB && a < b }
