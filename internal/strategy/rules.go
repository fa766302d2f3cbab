package strategy

import (
	"fmt"

	"github.com/Alias1177/Predictor/internal/analysis/technical"
	"github.com/Alias1177/Predictor/internal/model"
)

// MACrossover trades golden and death crosses of two simple moving averages
// and exits on the opposite cross. It sets no stop or target.
type MACrossover struct {
	percentLevels
	Short int
	Long  int
}

func NewMACrossover(short, long int) *MACrossover {
	return &MACrossover{Short: short, Long: long}
}

func (s *MACrossover) Name() string { return fmt.Sprintf("MA Crossover (%d/%d)", s.Short, s.Long) }

func (s *MACrossover) averages(candles []model.Candle, i int) (prevShort, prevLong, short, long float64) {
	closes := technical.Closes(candles[:i+1])
	prev := closes[:len(closes)-1]
	return technical.SMA(prev, s.Short), technical.SMA(prev, s.Long),
		technical.SMA(closes, s.Short), technical.SMA(closes, s.Long)
}

func (s *MACrossover) ShouldEnter(candles []model.Candle, i int) Signal {
	if i < s.Long+1 {
		return None
	}
	ps, pl, cs, cl := s.averages(candles, i)
	if crossedUp(ps, pl, cs, cl) {
		return Buy
	}
	if crossedDown(ps, pl, cs, cl) {
		return Sell
	}
	return None
}

func (s *MACrossover) ShouldExit(candles []model.Candle, i int, _ float64, direction model.Direction) bool {
	if i < s.Long+1 {
		return false
	}
	ps, pl, cs, cl := s.averages(candles, i)
	if direction == model.Long {
		return crossedDown(ps, pl, cs, cl)
	}
	return crossedUp(ps, pl, cs, cl)
}

// RSIReversal buys oversold and sells overbought, exiting once RSI crosses back through 50
type RSIReversal struct {
	percentLevels
	Period     int
	Oversold   float64
	Overbought float64
}

func NewRSIReversal(period int, oversold, overbought float64) *RSIReversal {
	return &RSIReversal{
		percentLevels: percentLevels{stopPct: 2, targetPct: 4},
		Period:        period,
		Oversold:      oversold,
		Overbought:    overbought,
	}
}

func (s *RSIReversal) Name() string {
	return fmt.Sprintf("RSI Strategy (%.0f/%.0f)", s.Oversold, s.Overbought)
}

func (s *RSIReversal) ShouldEnter(candles []model.Candle, i int) Signal {
	if i < s.Period+1 {
		return None
	}
	rsi := technical.RSI(technical.Closes(candles[:i+1]), s.Period)
	switch {
	case rsi < s.Oversold:
		return Buy
	case rsi > s.Overbought:
		return Sell
	}
	return None
}

func (s *RSIReversal) ShouldExit(candles []model.Candle, i int, _ float64, direction model.Direction) bool {
	if i < s.Period+1 {
		return false
	}
	rsi := technical.RSI(technical.Closes(candles[:i+1]), s.Period)
	if direction == model.Long {
		return rsi > 50
	}
	return rsi < 50
}

// Scalping takes EMA crosses with tight levels and banks any 0.2% gain
type Scalping struct {
	percentLevels
	Fast int
	Slow int
}

func NewScalping(fast, slow int) *Scalping {
	return &Scalping{
		percentLevels: percentLevels{stopPct: 0.15, targetPct: 0.3},
		Fast:          fast,
		Slow:          slow,
	}
}

func (s *Scalping) Name() string { return fmt.Sprintf("Scalping (EMA %d/%d)", s.Fast, s.Slow) }

func (s *Scalping) ShouldEnter(candles []model.Candle, i int) Signal {
	if i < s.Slow {
		return None
	}
	closes := technical.Closes(candles[:i+1])
	prev := closes[:len(closes)-1]
	pf, ps := technical.EMA(prev, s.Fast), technical.EMA(prev, s.Slow)
	cf, cs := technical.EMA(closes, s.Fast), technical.EMA(closes, s.Slow)
	if crossedUp(pf, ps, cf, cs) {
		return Buy
	}
	if crossedDown(pf, ps, cf, cs) {
		return Sell
	}
	return None
}

func (s *Scalping) ShouldExit(candles []model.Candle, i int, entryPrice float64, direction model.Direction) bool {
	return profitPct(entryPrice, candles[i].Close, direction) >= 0.2
}
