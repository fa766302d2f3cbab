package strategy

import (
	"testing"
	"time"

	"github.com/Alias1177/Predictor/internal/decision"
	"github.com/Alias1177/Predictor/internal/model"
	"github.com/Alias1177/Predictor/internal/trading/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateTestCandles(n int, generator func(int) model.Candle) []model.Candle {
	candles := make([]model.Candle, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		candles[i] = generator(i)
		candles[i].Datetime = start.Add(time.Duration(i) * time.Hour)
	}
	return candles
}

func closesOf(closes ...float64) []model.Candle {
	return generateTestCandles(len(closes), func(i int) model.Candle {
		c := closes[i]
		return model.Candle{Open: c, High: c + 0.5, Low: c - 0.5, Close: c, Volume: 1000}
	})
}

func firstSignal(s Strategy, candles []model.Candle) (Signal, int) {
	for i := range candles {
		if sig := s.ShouldEnter(candles, i); sig != None {
			return sig, i
		}
	}
	return None, -1
}

func vShape(n int, step float64) []float64 {
	closes := make([]float64, 0, 2*n)
	for i := 0; i < n; i++ {
		closes = append(closes, 200-float64(i)*step)
	}
	bottom := closes[len(closes)-1]
	for i := 1; i <= n; i++ {
		closes = append(closes, bottom+float64(i)*step*2)
	}
	return closes
}

func TestSignalDirection(t *testing.T) {
	d, ok := Buy.Direction()
	assert.True(t, ok)
	assert.Equal(t, model.Long, d)
	d, ok = Sell.Direction()
	assert.True(t, ok)
	assert.Equal(t, model.Short, d)
	_, ok = None.Direction()
	assert.False(t, ok)
}

func TestMACrossover(t *testing.T) {
	s := NewMACrossover(3, 5)
	assert.Equal(t, "MA Crossover (3/5)", s.Name())

	candles := closesOf(vShape(15, 1)...)
	sig, i := firstSignal(s, candles)
	require.Equal(t, Buy, sig)
	assert.Greater(t, i, 15)

	// a rally then a drop produces a death cross
	inverted := vShape(15, 1)
	for k := range inverted {
		inverted[k] = 400 - inverted[k]
	}
	sig, i = firstSignal(s, closesOf(inverted...))
	require.Equal(t, Sell, sig)
	assert.True(t, s.ShouldExit(closesOf(inverted...), i, 0, model.Long))

	_, ok := s.StopLoss(100, model.Long)
	assert.False(t, ok)
}

func TestRSIReversal(t *testing.T) {
	s := NewRSIReversal(14, 30, 70)
	assert.Equal(t, "RSI Strategy (30/70)", s.Name())

	falling := generateTestCandles(30, func(i int) model.Candle {
		c := 200 - float64(i)
		return model.Candle{Open: c, High: c, Low: c, Close: c}
	})
	assert.Equal(t, None, s.ShouldEnter(falling, 10))
	assert.Equal(t, Buy, s.ShouldEnter(falling, 20))
	assert.True(t, s.ShouldExit(falling, 20, 180, model.Short))
	assert.False(t, s.ShouldExit(falling, 20, 180, model.Long))

	rising := generateTestCandles(30, func(i int) model.Candle {
		c := 100 + float64(i)
		return model.Candle{Open: c, High: c, Low: c, Close: c}
	})
	assert.Equal(t, Sell, s.ShouldEnter(rising, 20))
	assert.True(t, s.ShouldExit(rising, 20, 110, model.Long))

	sl, ok := s.StopLoss(100, model.Long)
	require.True(t, ok)
	assert.InDelta(t, 98, sl, 1e-9)
	tp, _ := s.TakeProfit(100, model.Long)
	assert.InDelta(t, 104, tp, 1e-9)
	sl, _ = s.StopLoss(100, model.Short)
	assert.InDelta(t, 102, sl, 1e-9)
	tp, _ = s.TakeProfit(100, model.Short)
	assert.InDelta(t, 96, tp, 1e-9)
}

func TestScalping(t *testing.T) {
	s := NewScalping(5, 10)
	assert.Equal(t, "Scalping (EMA 5/10)", s.Name())

	sig, _ := firstSignal(s, closesOf(vShape(20, 1)...))
	assert.Equal(t, Buy, sig)

	tests := []struct {
		name      string
		close     float64
		direction model.Direction
		expected  bool
	}{
		{"long banks 0.2%", 100.2, model.Long, true},
		{"long below target", 100.1, model.Long, false},
		{"short banks 0.2%", 99.8, model.Short, true},
		{"short losing", 100.5, model.Short, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candles := closesOf(tt.close)
			assert.Equal(t, tt.expected, s.ShouldExit(candles, 0, 100, tt.direction))
		})
	}

	sl, _ := s.StopLoss(100, model.Long)
	assert.InDelta(t, 99.85, sl, 1e-9)
	tp, _ := s.TakeProfit(100, model.Short)
	assert.InDelta(t, 99.7, tp, 1e-9)
}

func TestMeanReversionExit(t *testing.T) {
	s := NewMeanReversion(20, 2, 14)
	assert.Equal(t, "Mean Reversion (BB20, RSI14)", s.Name())

	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	closes[29] = 101
	candles := closesOf(closes...)

	assert.True(t, s.ShouldExit(candles, 29, 100, model.Long))
	assert.False(t, s.ShouldExit(candles, 29, 100.8, model.Long))
	assert.False(t, s.ShouldExit(candles, 29, 102, model.Short))
}

func TestMeanReversionEntry(t *testing.T) {
	s := NewMeanReversion(20, 2, 14)

	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i%2)*0.2
	}
	for i := 34; i < 40; i++ {
		closes[i] = closes[i-1] - 1.5
	}
	assert.Equal(t, Buy, s.ShouldEnter(closesOf(closes...), 39))
}

func TestBreakout(t *testing.T) {
	s := NewBreakout(20)
	assert.Equal(t, "Breakout (20 bars)", s.Name())

	build := func(lastClose float64, lastVolume int64) []model.Candle {
		return generateTestCandles(40, func(i int) model.Candle {
			if i == 39 {
				return model.Candle{Open: 100, High: lastClose + 0.5, Low: 99.5, Close: lastClose, Volume: lastVolume}
			}
			return model.Candle{Open: 100, High: 100.5, Low: 99.5, Close: 100, Volume: 1000}
		})
	}

	tests := []struct {
		name     string
		candles  []model.Candle
		expected Signal
	}{
		{"upside breakout", build(102, 2000), Buy},
		{"thin volume", build(102, 1400), None},
		{"no volume", build(102, 0), None},
		{"inside range", build(100.2, 5000), None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.ShouldEnter(tt.candles, 39))
		})
	}

	assert.True(t, s.ShouldExit(closesOf(100, 100, 100, 100, 100, 103), 5, 100, model.Long))
	assert.False(t, s.ShouldExit(closesOf(100, 100, 100, 100, 100, 101), 5, 100, model.Long))
}

func TestTrendFollowingNeedsHistory(t *testing.T) {
	s := NewTrendFollowing(50, 200)
	assert.Equal(t, "Trend Following (50/200)", s.Name())

	candles := closesOf(vShape(50, 1)...)
	for i := range candles {
		assert.Equal(t, None, s.ShouldEnter(candles, i))
	}

	sl, _ := s.StopLoss(100, model.Long)
	assert.InDelta(t, 97.5, sl, 1e-9)
	tp, _ := s.TakeProfit(100, model.Short)
	assert.InDelta(t, 95, tp, 1e-9)
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{"breakout", "ma_crossover", "mean_reversion", "rsi", "scalping", "trend_following"}, r.Keys())

	s, err := r.New("rsi")
	require.NoError(t, err)
	assert.Equal(t, "RSI Strategy (30/70)", s.Name())

	_, err = r.New("martingale")
	assert.Error(t, err)

	all := r.All()
	assert.Len(t, all, 6)

	// each call builds a fresh instance
	a, _ := r.New("breakout")
	b, _ := r.New("breakout")
	assert.NotSame(t, a, b)
}

type fixedSource struct {
	out model.SignalOutput
}

func (f fixedSource) Name() string { return "fixed" }

func (f fixedSource) Analyze([]model.Candle) model.SignalOutput { return f.out }

func TestPipeline(t *testing.T) {
	rm, err := risk.NewManager(risk.DefaultConfig())
	require.NoError(t, err)
	meta, err := decision.NewMetaAggregator(decision.DefaultMetaConfig(), nil, rm)
	require.NoError(t, err)

	out := model.NewSignalOutput(model.SourceTechnical, 0.8, 0.8)
	out.Price = 2000
	out.StopLoss = 1980
	out.TakeProfit = 2040

	p := NewPipeline("Pipeline", meta, 50, fixedSource{out: out})
	p.SetAccount(model.NewAccountState(10000))

	candles := closesOf(vShape(10, 1)...)
	require.Equal(t, Buy, p.ShouldEnter(candles, len(candles)-1))

	sl, ok := p.StopLoss(2000, model.Long)
	require.True(t, ok)
	assert.Equal(t, 1980.0, sl)
	tp, ok := p.TakeProfit(2000, model.Long)
	require.True(t, ok)
	assert.Equal(t, 2040.0, tp)
	size, ok := p.PositionSize()
	require.True(t, ok)
	assert.InDelta(t, 0.5, size, 1e-9)

	assert.False(t, p.ShouldExit(candles, len(candles)-1, 2000, model.Long))
	assert.True(t, p.ShouldExit(candles, len(candles)-1, 2000, model.Short))

	p.Reset()
	_, ok = p.StopLoss(2000, model.Long)
	assert.False(t, ok)
	_, has := p.LastDecision()
	assert.False(t, has)
}

func TestPipelineHoldsOnWeakSignal(t *testing.T) {
	rm, err := risk.NewManager(risk.DefaultConfig())
	require.NoError(t, err)
	meta, err := decision.NewMetaAggregator(decision.DefaultMetaConfig(), nil, rm)
	require.NoError(t, err)

	p := NewPipeline("Pipeline", meta, 0, fixedSource{out: model.NewSignalOutput(model.SourceTechnical, 0.8, 0.2)})
	candles := closesOf(100, 101, 102)
	assert.Equal(t, None, p.ShouldEnter(candles, 2))

	d, has := p.LastDecision()
	require.True(t, has)
	assert.Equal(t, model.ActionHold, d.Action)
	_, ok := p.PositionSize()
	assert.False(t, ok)
}
