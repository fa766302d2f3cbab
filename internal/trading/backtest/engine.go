package backtest

import (
	"strconv"
	"time"

	"github.com/Alias1177/Predictor/internal/analysis/technical"
	"github.com/Alias1177/Predictor/internal/model"
	"github.com/Alias1177/Predictor/internal/strategy"
	"github.com/Alias1177/Predictor/internal/trading/risk"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Exit reasons recorded on closed trades
const (
	ExitStopLoss   = "stop_loss"
	ExitTakeProfit = "take_profit"
	ExitStrategy   = "strategy_exit"
	ExitEndOfData  = "end_of_data"
)

const (
	fallbackATRPeriod      = 14
	fallbackStopATR        = 1.5
	fallbackRewardMultiple = 2.0
)

// Option configures an Engine
type Option func(*Engine)

// WithInitialCapital sets the starting balance (default 10,000)
func WithInitialCapital(capital float64) Option {
	return func(e *Engine) { e.initialCapital = capital }
}

// WithCommission sets the flat commission charged per trade at close
func WithCommission(commission float64) Option {
	return func(e *Engine) { e.commission = commission }
}

// WithPositionSize sets the size used when neither the strategy nor a risk manager sizes the trade
func WithPositionSize(size float64) Option {
	return func(e *Engine) { e.positionSize = size }
}

// WithRiskManager gates and sizes every entry through the manager
func WithRiskManager(m *risk.Manager) Option {
	return func(e *Engine) { e.riskManager = m }
}

// Engine replays a candle series through a strategy, one position at a time
type Engine struct {
	strategy       strategy.Strategy
	initialCapital float64
	commission     float64
	positionSize   float64
	riskManager    *risk.Manager
	logger         zerolog.Logger
}

// NewEngine creates a new backtesting engine
func NewEngine(s strategy.Strategy, opts ...Option) *Engine {
	e := &Engine{
		strategy:       s,
		initialCapital: 10000.0, // Default initial account value
		positionSize:   1.0,
		logger:         log.With().Str("component", "backtest_engine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Strategy returns the strategy the engine drives
func (e *Engine) Strategy() strategy.Strategy {
	return e.strategy
}

// runState is everything one Run owns
type runState struct {
	capital float64
	trades  []model.Trade
	equity  []float64
	current *model.Trade
	account model.AccountState
}

// Run executes the backtest over the series. A started run always yields a result.
func (e *Engine) Run(series model.Series) *model.BacktestResult {
	if r, ok := e.strategy.(strategy.Resetter); ok {
		r.Reset()
	}

	st := &runState{
		capital: e.initialCapital,
		equity:  make([]float64, 0, series.Len()+1),
		account: model.NewAccountState(e.initialCapital),
	}
	st.equity = append(st.equity, e.initialCapital)

	e.logger.Info().
		Str("strategy", e.strategy.Name()).
		Str("symbol", series.Symbol).
		Int("bars", series.Len()).
		Bool("risk_gated", e.riskManager != nil).
		Msg("Starting backtest")

	candles := series.Candles
	for i, bar := range candles {
		closedThisBar := false
		if st.current != nil {
			if reason, exit := e.exitReason(candles, i, st.current); exit {
				e.closeTrade(st, bar.Datetime, bar.Close, reason)
				closedThisBar = true
			}
		}

		if st.current == nil && !closedThisBar {
			e.tryEnter(st, candles, i)
		}

		equity := st.capital
		if st.current != nil {
			equity += st.current.FloatingPnL(bar.Close)
		}
		st.equity = append(st.equity, equity)
	}

	if st.current != nil {
		last := series.Last()
		e.closeTrade(st, last.Datetime, last.Close, ExitEndOfData)
	}

	result := &model.BacktestResult{
		StrategyName:   e.strategy.Name(),
		Symbol:         series.Symbol,
		InitialCapital: e.initialCapital,
		FinalCapital:   st.capital,
		Trades:         st.trades,
		EquityCurve:    st.equity,
	}
	if series.Len() > 0 {
		result.StartDate = candles[0].Datetime
		result.EndDate = series.Last().Datetime
	}
	CalculatePerformanceMetrics(result)

	e.logger.Info().
		Str("strategy", result.StrategyName).
		Int("trades", result.TotalTrades).
		Float64("return", result.TotalReturn).
		Float64("return_pct", result.TotalReturnPct).
		Msg("Backtest completed")

	return result
}

func (e *Engine) exitReason(candles []model.Candle, i int, trade *model.Trade) (string, bool) {
	price := candles[i].Close
	switch {
	case trade.StopLossHit(price):
		return ExitStopLoss, true
	case trade.TakeProfitHit(price):
		return ExitTakeProfit, true
	case e.strategy.ShouldExit(candles, i, trade.EntryPrice, trade.Direction):
		return ExitStrategy, true
	}
	return "", false
}

func (e *Engine) tryEnter(st *runState, candles []model.Candle, i int) {
	if aware, ok := e.strategy.(strategy.AccountAware); ok {
		aware.SetAccount(st.account)
	}

	direction, ok := e.strategy.ShouldEnter(candles, i).Direction()
	if !ok {
		return
	}

	bar := candles[i]
	trade := model.Trade{
		ID:         len(st.trades) + 1,
		EntryTime:  bar.Datetime,
		EntryPrice: bar.Close,
		Direction:  direction,
		Size:       e.positionSize,
		Status:     model.TradeOpen,
		Commission: e.commission,
	}
	if sl, ok := e.strategy.StopLoss(bar.Close, direction); ok {
		trade.StopLoss = &sl
	}
	if tp, ok := e.strategy.TakeProfit(bar.Close, direction); ok {
		trade.TakeProfit = &tp
	}
	if sizer, ok := e.strategy.(strategy.Sizer); ok {
		if size, ok := sizer.PositionSize(); ok {
			trade.Size = size
		}
	}

	if e.riskManager != nil {
		assessment := e.riskManager.Evaluate(st.account, e.order(candles, i, trade))
		if !assessment.Approved {
			e.logger.Debug().
				Time("time", bar.Datetime).
				Strs("reasons", assessment.RejectionReasons).
				Msg("Entry rejected by risk manager")
			return
		}
		sl, tp := assessment.StopLossPrice, assessment.TakeProfitPrice
		trade.Size = assessment.PositionSize
		trade.StopLoss, trade.TakeProfit = &sl, &tp
	}

	if trade.Size <= 0 {
		e.logger.Debug().Time("time", bar.Datetime).Msg("Entry skipped, zero size")
		return
	}

	st.current = &trade
	st.account = e.openPosition(st.account, positionID(trade.ID))
	if obs, ok := e.strategy.(strategy.PositionObserver); ok {
		obs.PositionOpened(direction)
	}

	e.logger.Debug().
		Int("id", trade.ID).
		Str("direction", string(direction)).
		Float64("price", trade.EntryPrice).
		Float64("size", trade.Size).
		Msg("Opened trade")
}

// order builds the risk order for a candidate trade. Strategies without levels
// get an ATR stop and a 2R target.
func (e *Engine) order(candles []model.Candle, i int, trade model.Trade) risk.Order {
	window := candles[:i+1]
	price := trade.EntryPrice

	var stopLoss, takeProfit float64
	if trade.StopLoss != nil {
		stopLoss = *trade.StopLoss
	} else {
		atr := technical.ATR(window, fallbackATRPeriod)
		if atr <= 0 {
			atr = price * 0.01
		}
		stopLoss = risk.DetermineStopLoss(price, atr, fallbackStopATR, trade.Direction)
	}
	if trade.TakeProfit != nil {
		takeProfit = *trade.TakeProfit
	} else {
		takeProfit = risk.DetermineTakeProfit(price, stopLoss, fallbackRewardMultiple)
	}

	return risk.Order{
		Signal:          model.NewSignalOutput(model.SourceCustom, trade.Direction.Sign(), 1),
		EntryPrice:      price,
		StopLoss:        stopLoss,
		TakeProfit:      takeProfit,
		Time:            candles[i].Datetime,
		VolatilityRatio: technical.VolatilityRatio(window, 5, 20),
	}
}

func (e *Engine) closeTrade(st *runState, at time.Time, price float64, reason string) {
	trade := st.current
	trade.Close(at, price, reason)
	pnl := trade.ProfitLoss()

	st.capital += pnl
	st.trades = append(st.trades, *trade)
	st.current = nil
	st.account = e.recordTrade(e.closePosition(st.account, positionID(trade.ID)), pnl, at)

	if obs, ok := e.strategy.(strategy.PositionObserver); ok {
		obs.PositionClosed()
	}

	e.logger.Debug().
		Int("id", trade.ID).
		Str("reason", reason).
		Float64("pnl", pnl).
		Float64("pnl_pct", trade.ProfitLossPct()).
		Msg("Closed trade")
}

func (e *Engine) openPosition(account model.AccountState, id string) model.AccountState {
	if e.riskManager != nil {
		return e.riskManager.OpenPosition(account, id)
	}
	return account.WithPosition(id)
}

func (e *Engine) closePosition(account model.AccountState, id string) model.AccountState {
	if e.riskManager != nil {
		return e.riskManager.ClosePosition(account, id)
	}
	return account.WithoutPosition(id)
}

func (e *Engine) recordTrade(account model.AccountState, pnl float64, at time.Time) model.AccountState {
	if e.riskManager != nil {
		return e.riskManager.RecordTrade(account, pnl, at)
	}
	return account.Record(pnl, at)
}

func positionID(tradeID int) string {
	return "trade-" + strconv.Itoa(tradeID)
}
