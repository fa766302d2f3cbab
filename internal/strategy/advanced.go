package strategy

import (
	"fmt"

	"github.com/Alias1177/Predictor/internal/analysis/technical"
	"github.com/Alias1177/Predictor/internal/model"
)

// macdCross returns the MACD and signal lines on the previous and current bar
func macdCross(candles []model.Candle, i int) (prevMACD, prevSignal, macd, signal float64) {
	closes := technical.Closes(candles[:i+1])
	prevMACD, prevSignal, _ = technical.DefaultMACD(closes[:len(closes)-1])
	macd, signal, _ = technical.DefaultMACD(closes)
	return
}

// TrendFollowing trades MACD crosses in the direction of the SMA trend while
// RSI sits in a neutral band.
type TrendFollowing struct {
	percentLevels
	FastMA int
	SlowMA int
	RSI    int
	RSIMin float64
	RSIMax float64
}

func NewTrendFollowing(fast, slow int) *TrendFollowing {
	return &TrendFollowing{
		percentLevels: percentLevels{stopPct: 2.5, targetPct: 5},
		FastMA:        fast,
		SlowMA:        slow,
		RSI:           14,
		RSIMin:        40,
		RSIMax:        60,
	}
}

func (s *TrendFollowing) Name() string {
	return fmt.Sprintf("Trend Following (%d/%d)", s.FastMA, s.SlowMA)
}

func (s *TrendFollowing) ShouldEnter(candles []model.Candle, i int) Signal {
	if i < s.SlowMA+1 {
		return None
	}
	closes := technical.Closes(candles[:i+1])
	uptrend := technical.SMA(closes, s.FastMA) > technical.SMA(closes, s.SlowMA)

	rsi := technical.RSI(closes, s.RSI)
	if rsi < s.RSIMin || rsi > s.RSIMax {
		return None
	}

	pm, ps, m, sig := macdCross(candles, i)
	if uptrend && crossedUp(pm, ps, m, sig) {
		return Buy
	}
	if !uptrend && crossedDown(pm, ps, m, sig) {
		return Sell
	}
	return None
}

func (s *TrendFollowing) ShouldExit(candles []model.Candle, i int, _ float64, direction model.Direction) bool {
	if i < s.SlowMA+1 {
		return false
	}
	pm, ps, m, sig := macdCross(candles, i)
	if direction == model.Long {
		return crossedDown(pm, ps, m, sig)
	}
	return crossedUp(pm, ps, m, sig)
}

// MeanReversion fades Bollinger band touches confirmed by RSI extremes and
// exits at the middle band once at least MinProfitPct is banked.
type MeanReversion struct {
	percentLevels
	BBPeriod     int
	BBStdDev     float64
	RSI          int
	Oversold     float64
	Overbought   float64
	MinProfitPct float64
}

func NewMeanReversion(bbPeriod int, bbStdDev float64, rsiPeriod int) *MeanReversion {
	return &MeanReversion{
		percentLevels: percentLevels{stopPct: 2, targetPct: 3},
		BBPeriod:      bbPeriod,
		BBStdDev:      bbStdDev,
		RSI:           rsiPeriod,
		Oversold:      30,
		Overbought:    70,
		MinProfitPct:  0.5,
	}
}

func (s *MeanReversion) Name() string {
	return fmt.Sprintf("Mean Reversion (BB%d, RSI%d)", s.BBPeriod, s.RSI)
}

func (s *MeanReversion) ShouldEnter(candles []model.Candle, i int) Signal {
	if i < s.BBPeriod || i < s.RSI {
		return None
	}
	closes := technical.Closes(candles[:i+1])
	price := closes[len(closes)-1]
	upper, _, lower := technical.BollingerBands(closes, s.BBPeriod, s.BBStdDev)
	rsi := technical.RSI(closes, s.RSI)

	if price <= lower && rsi < s.Oversold {
		return Buy
	}
	if price >= upper && rsi > s.Overbought {
		return Sell
	}
	return None
}

func (s *MeanReversion) ShouldExit(candles []model.Candle, i int, entryPrice float64, direction model.Direction) bool {
	if i < s.BBPeriod {
		return false
	}
	closes := technical.Closes(candles[:i+1])
	price := closes[len(closes)-1]
	_, middle, _ := technical.BollingerBands(closes, s.BBPeriod, s.BBStdDev)

	reachedMiddle := price >= middle
	if direction == model.Short {
		reachedMiddle = price <= middle
	}
	return reachedMiddle && profitPct(entryPrice, price, direction) > s.MinProfitPct
}

// Breakout enters when price closes beyond the lookback range on expanded volume.
// Series without volume never trigger.
type Breakout struct {
	percentLevels
	Lookback         int
	VolumeMultiplier float64
	RSI              int
	ExitProfitPct    float64
}

func NewBreakout(lookback int) *Breakout {
	return &Breakout{
		percentLevels:    percentLevels{stopPct: 1.5, targetPct: 4},
		Lookback:         lookback,
		VolumeMultiplier: 1.5,
		RSI:              14,
		ExitProfitPct:    2,
	}
}

func (s *Breakout) Name() string { return fmt.Sprintf("Breakout (%d bars)", s.Lookback) }

func (s *Breakout) ShouldEnter(candles []model.Candle, i int) Signal {
	if i < s.Lookback+s.RSI {
		return None
	}
	window := candles[i-s.Lookback : i]
	current := candles[i]

	avgVolume := technical.AverageVolume(window)
	if avgVolume == 0 || current.Volume == 0 {
		return None
	}
	if float64(current.Volume) <= avgVolume*s.VolumeMultiplier {
		return None
	}

	highest, lowest := window[0].High, window[0].Low
	for _, c := range window[1:] {
		if c.High > highest {
			highest = c.High
		}
		if c.Low < lowest {
			lowest = c.Low
		}
	}

	rsi := technical.RSI(technical.Closes(candles[:i+1]), s.RSI)
	if current.Close > highest && rsi > 50 {
		return Buy
	}
	if current.Close < lowest && rsi < 50 {
		return Sell
	}
	return None
}

func (s *Breakout) ShouldExit(candles []model.Candle, i int, entryPrice float64, direction model.Direction) bool {
	if i < 5 {
		return false
	}
	return profitPct(entryPrice, candles[i].Close, direction) > s.ExitProfitPct
}
