package risk

import (
	"strings"
	"testing"
	"time"

	"github.com/Alias1177/Predictor/internal/model"
	"github.com/Alias1177/Predictor/internal/platform/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, mutate func(*Config)) *Manager {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := NewManager(cfg)
	require.NoError(t, err)
	return m
}

func longOrder(signal float64) Order {
	return Order{
		Signal:     model.NewSignalOutput(model.SourceFilter, signal, 0.8),
		EntryPrice: 2000,
		StopLoss:   1980,
		TakeProfit: 2040,
		Time:       testDay,
	}
}

func TestEvaluateSizesByRisk(t *testing.T) {
	m := newTestManager(t, func(c *Config) { c.MaxPositionPct = 100 })

	assessment := m.Evaluate(model.NewAccountState(10000), longOrder(0.6))

	require.True(t, assessment.Approved, assessment.RejectionReasons)
	assert.InDelta(t, 100, assessment.RiskAmount, 1e-9)
	assert.InDelta(t, 5, assessment.PositionSize, 1e-9)
	assert.InDelta(t, 2.0, assessment.RiskRewardRatio, 1e-9)
	assert.Equal(t, 0.6, assessment.Signal)
	assert.InDelta(t, 0.8, assessment.Confidence, 1e-9)
	assert.Empty(t, assessment.Warnings)
}

func TestEvaluateCapsNotional(t *testing.T) {
	m := newTestManager(t, nil)

	assessment := m.Evaluate(model.NewAccountState(10000), longOrder(0.6))

	require.True(t, assessment.Approved)
	// 10% of 10000 at 2000 per unit
	assert.InDelta(t, 0.5, assessment.PositionSize, 1e-9)
	assert.InDelta(t, 100, assessment.RiskAmount, 1e-9)
	require.Len(t, assessment.Warnings, 1)
	assert.Contains(t, assessment.Warnings[0], "Position size limited to 10% of balance")
	assert.InDelta(t, 0.8*0.9, assessment.Confidence, 1e-9)
}

func TestEvaluateShort(t *testing.T) {
	m := newTestManager(t, func(c *Config) { c.MaxPositionPct = 100 })

	order := Order{
		Signal:     model.NewSignalOutput(model.SourceFilter, -0.7, 0.7),
		EntryPrice: 2000,
		StopLoss:   2020,
		TakeProfit: 1970,
		Time:       testDay,
	}
	assessment := m.Evaluate(model.NewAccountState(10000), order)

	require.True(t, assessment.Approved)
	assert.InDelta(t, 5, assessment.PositionSize, 1e-9)
	assert.InDelta(t, 1.5, assessment.RiskRewardRatio, 1e-9)
	// R/R under 2 shaves confidence
	assert.InDelta(t, 0.7*0.95, assessment.Confidence, 1e-9)
}

func TestEvaluateVolatilitySizing(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		ratio   float64
		size    float64
	}{
		{"off in calm market", false, 0.5, 5},
		{"off in hot market", false, 2.0, 5},
		{"on never grows past risk", true, 0.5, 5},
		{"on shrinks in hot market", true, 2.0, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, func(c *Config) { c.VolatilitySizing = tt.enabled })
			order := Order{
				Signal:          model.NewSignalOutput(model.SourceFilter, 0.6, 0.8),
				EntryPrice:      100,
				StopLoss:        80,
				TakeProfit:      140,
				Time:            testDay,
				VolatilityRatio: tt.ratio,
			}

			assessment := m.Evaluate(model.NewAccountState(10000), order)

			require.True(t, assessment.Approved, assessment.RejectionReasons)
			assert.InDelta(t, tt.size, assessment.PositionSize, 1e-9)
			assert.LessOrEqual(t, assessment.PositionSize*(order.EntryPrice-order.StopLoss), assessment.RiskAmount+1e-9)
			assert.InDelta(t, 0.8, assessment.Confidence, 1e-9)
			assert.Empty(t, assessment.Warnings)
		})
	}
}

func TestEvaluateRejections(t *testing.T) {
	m := newTestManager(t, nil)

	tests := []struct {
		name    string
		account func() model.AccountState
		order   func() Order
		reason  string
	}{
		{
			name:    "neutral signal",
			account: func() model.AccountState { return model.NewAccountState(10000) },
			order:   func() Order { return longOrder(0.05) },
			reason:  "No signal - neutral",
		},
		{
			name: "drawdown",
			account: func() model.AccountState {
				a := model.NewAccountState(10000)
				a.CurrentBalance = 9100
				return a
			},
			order:  func() Order { return longOrder(0.6) },
			reason: "Max drawdown exceeded",
		},
		{
			name: "concurrent trades",
			account: func() model.AccountState {
				return m.OpenPosition(model.NewAccountState(10000), "1")
			},
			order:  func() Order { return longOrder(0.6) },
			reason: "Max concurrent trades reached: 1",
		},
		{
			name: "daily trade count",
			account: func() model.AccountState {
				a := model.NewAccountState(10000)
				for i := 0; i < 3; i++ {
					a = m.RecordTrade(a, 10, testDay)
				}
				return a
			},
			order:  func() Order { return longOrder(0.6) },
			reason: "Daily trade limit reached: 3/3",
		},
		{
			name: "daily loss",
			account: func() model.AccountState {
				return m.RecordTrade(model.NewAccountState(10000), -350, testDay)
			},
			order:  func() Order { return longOrder(0.6) },
			reason: "Daily loss limit hit",
		},
		{
			name:    "stop on wrong side",
			account: func() model.AccountState { return model.NewAccountState(10000) },
			order: func() Order {
				o := longOrder(0.6)
				o.StopLoss = 2010
				return o
			},
			reason: "Invalid stop loss",
		},
		{
			name:    "target on wrong side",
			account: func() model.AccountState { return model.NewAccountState(10000) },
			order: func() Order {
				o := longOrder(0.6)
				o.TakeProfit = 1990
				return o
			},
			reason: "Invalid take profit",
		},
		{
			name:    "poor reward",
			account: func() model.AccountState { return model.NewAccountState(10000) },
			order: func() Order {
				o := longOrder(0.6)
				o.TakeProfit = 2020
				return o
			},
			reason: "Poor R/R ratio 1.00 < 1.50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assessment := m.Evaluate(tt.account(), tt.order())
			assert.False(t, assessment.Approved)
			assert.Zero(t, assessment.Signal)
			assert.Zero(t, assessment.PositionSize)
			assert.Equal(t, 0.9, assessment.Confidence)
			require.NotEmpty(t, assessment.RejectionReasons)
			assert.Contains(t, strings.Join(assessment.RejectionReasons, "; "), tt.reason)
		})
	}
}

func TestEvaluateCollectsAllConstraintReasons(t *testing.T) {
	m := newTestManager(t, nil)

	account := model.NewAccountState(10000)
	account = m.OpenPosition(account, "7")
	for i := 0; i < 3; i++ {
		account = m.RecordTrade(account, -200, testDay)
	}

	assessment := m.Evaluate(account, longOrder(0.9))
	assert.False(t, assessment.Approved)
	assert.Len(t, assessment.RejectionReasons, 3)
}

func TestEvaluateDrawdownWarning(t *testing.T) {
	m := newTestManager(t, func(c *Config) { c.MaxPositionPct = 100 })

	account := model.NewAccountState(10000)
	account.CurrentBalance = 9300

	assessment := m.Evaluate(account, longOrder(0.6))
	require.True(t, assessment.Approved)
	require.NotEmpty(t, assessment.Warnings)
	assert.Contains(t, assessment.Warnings[0], "High drawdown: 7.0%")
}

func TestEvaluateDoesNotMutateAccount(t *testing.T) {
	m := newTestManager(t, nil)
	account := model.NewAccountState(10000)

	_ = m.Evaluate(account, longOrder(0.6))

	assert.Empty(t, account.OpenPositions)
	assert.Empty(t, account.DailyTradeCount)
	assert.Equal(t, 10000.0, account.CurrentBalance)
}

func TestRecordTrade(t *testing.T) {
	m := newTestManager(t, nil)
	start := model.NewAccountState(10000)

	after := m.RecordTrade(start, 250, testDay)
	assert.Equal(t, 10250.0, after.CurrentBalance)
	assert.Equal(t, 10250.0, after.PeakBalance)
	assert.Equal(t, 1, after.TradesOn(testDay))
	assert.Equal(t, 250.0, after.PnLOn(testDay))

	after = m.RecordTrade(after, -500, testDay.Add(time.Hour))
	assert.Equal(t, 9750.0, after.CurrentBalance)
	assert.Equal(t, 10250.0, after.PeakBalance)
	assert.Equal(t, 2, after.TradesOn(testDay))
	assert.InDelta(t, 500.0/10250*100, after.DrawdownPct(), 1e-9)

	nextDay := testDay.Add(24 * time.Hour)
	assert.Zero(t, after.TradesOn(nextDay))

	// the input is untouched
	assert.Equal(t, 10000.0, start.CurrentBalance)
	assert.Empty(t, start.DailyTradeCount)
}

func TestOpenClosePosition(t *testing.T) {
	m := newTestManager(t, nil)
	account := m.OpenPosition(model.NewAccountState(1000), "1")
	assert.Len(t, account.OpenPositions, 1)
	account = m.ClosePosition(account, "1")
	assert.Empty(t, account.OpenPositions)
}

func TestNewManagerValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RiskPerTradePct = 0
	_, err := NewManager(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, validate.ErrInvalidConfig)
}

func TestPositionSizingHelpers(t *testing.T) {
	sl := DetermineStopLoss(100, 2, 1.5, model.Long)
	assert.InDelta(t, 97, sl, 1e-9)
	assert.InDelta(t, 106, DetermineTakeProfit(100, sl, 2), 1e-9)

	sl = DetermineStopLoss(100, 2, 1.5, model.Short)
	assert.InDelta(t, 103, sl, 1e-9)
	assert.InDelta(t, 94, DetermineTakeProfit(100, sl, 2), 1e-9)

	result := CalculatePositionSize(100, 97, 106, 10000, 0.01)
	assert.InDelta(t, 100.0/3, result.PositionSize, 1e-9)
	assert.InDelta(t, 2, result.RiskRewardRatio, 1e-9)

	zero := CalculatePositionSize(100, 100, 106, 10000, 0.01)
	assert.Zero(t, zero.PositionSize)

	assert.InDelta(t, 5, AdjustPositionSizeForVolatility(10, 2), 1e-9)
	assert.InDelta(t, 12, AdjustPositionSizeForVolatility(10, 0.5), 1e-9)
	assert.InDelta(t, 10, AdjustPositionSizeForVolatility(10, 1), 1e-9)
}
