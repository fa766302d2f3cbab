package database

import (
	"database/sql"
	"database/sql/driver"
	"strings"
	"testing"
	"time"

	"github.com/Alias1177/Predictor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestResultArgs(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &model.BacktestResult{
		StrategyName:   "RSI_Reversal",
		Symbol:         "XAU/USD",
		StartDate:      start,
		EndDate:        start.Add(48 * time.Hour),
		InitialCapital: 10000,
		FinalCapital:   10250,
		TotalReturn:    250,
		TotalReturnPct: 2.5,
		TotalTrades:    4,
		SharpeRatio:    floatPtr(1.25),
	}

	args := resultArgs(r)
	require.Len(t, args, strings.Count(insertResult, "$"))
	assert.Equal(t, "RSI_Reversal", args[0])
	assert.Equal(t, start, args[2])
	assert.Equal(t, sql.NullFloat64{Float64: 1.25, Valid: true}, args[17])
	assert.Equal(t, sql.NullFloat64{}, args[18])
}

func TestTradeArgs(t *testing.T) {
	entry := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("closed trade", func(t *testing.T) {
		trade := model.Trade{
			ID: 3, EntryTime: entry, EntryPrice: 100, Direction: model.Long, Size: 2,
			StopLoss: floatPtr(98), Status: model.TradeOpen, Commission: 1,
		}
		trade.Close(entry.Add(time.Hour), 105, "take_profit")

		args := tradeArgs(7, trade)
		require.Len(t, args, strings.Count(insertTrade, "$"))
		assert.Equal(t, int64(7), args[0])
		assert.Equal(t, 3, args[1])
		assert.Equal(t, "LONG", args[2])
		assert.Equal(t, sql.NullTime{Time: entry.Add(time.Hour), Valid: true}, args[5])
		assert.Equal(t, sql.NullFloat64{Float64: 105, Valid: true}, args[6])
		assert.Equal(t, sql.NullFloat64{Float64: 98, Valid: true}, args[8])
		assert.Equal(t, sql.NullFloat64{}, args[9])
		assert.InDelta(t, 9.0, args[11], 1e-9)
		assert.Equal(t, sql.NullString{String: "take_profit", Valid: true}, args[12])
	})

	t.Run("open trade", func(t *testing.T) {
		trade := model.Trade{ID: 1, EntryTime: entry, EntryPrice: 100, Direction: model.Short, Size: 1, Status: model.TradeOpen}
		args := tradeArgs(1, trade)
		assert.Equal(t, sql.NullTime{}, args[5])
		assert.Equal(t, sql.NullFloat64{}, args[6])
		assert.Equal(t, 0.0, args[11])
		assert.Equal(t, sql.NullString{}, args[12])
	})
}

func TestDecisionArgs(t *testing.T) {
	at := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	d := model.MetaDecision{
		Action:      model.ActionHold,
		VetoReasons: []string{"technical confidence 0.20 below 0.50"},
	}

	args := decisionArgs("XAU/USD", at, d)
	require.Len(t, args, 10)
	assert.Equal(t, "HOLD", args[2])

	vetoes, err := args[8].(driver.Valuer).Value()
	require.NoError(t, err)
	assert.Equal(t, `{"technical confidence 0.20 below 0.50"}`, vetoes)

	chain, err := args[9].(driver.Valuer).Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", chain)
}

func TestListQuery(t *testing.T) {
	tests := []struct {
		name     string
		filter   ResultFilter
		contains []string
		absent   []string
		args     int
		limit    int
	}{
		{
			name:   "no filter uses default limit",
			filter: ResultFilter{},
			absent: []string{"WHERE"},
			args:   1,
			limit:  defaultListLimit,
		},
		{
			name:     "strategies only",
			filter:   ResultFilter{Strategies: []string{"MA_Crossover", "Breakout"}, Limit: 5},
			contains: []string{"strategy_name = ANY($1)", "LIMIT $2"},
			args:     2,
			limit:    5,
		},
		{
			name:     "strategies and symbol",
			filter:   ResultFilter{Strategies: []string{"Scalping"}, Symbol: "EUR/USD", Limit: 3},
			contains: []string{"strategy_name = ANY($1) AND symbol = $2", "LIMIT $3"},
			args:     3,
			limit:    3,
		},
		{
			name:     "symbol only",
			filter:   ResultFilter{Symbol: "EUR/USD"},
			contains: []string{"WHERE symbol = $1", "LIMIT $2"},
			args:     2,
			limit:    defaultListLimit,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := listQuery(tt.filter)
			for _, s := range tt.contains {
				assert.Contains(t, query, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, query, s)
			}
			require.Len(t, args, tt.args)
			assert.Equal(t, tt.limit, args[len(args)-1])
		})
	}
}

func TestRatioRoundTrip(t *testing.T) {
	assert.Nil(t, ratioFromNull(nullableFloat(nil)))
	got := ratioFromNull(nullableFloat(floatPtr(-0.4)))
	require.NotNil(t, got)
	assert.Equal(t, -0.4, *got)
}
