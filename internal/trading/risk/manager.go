package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/Alias1177/Predictor/internal/model"
	"github.com/Alias1177/Predictor/internal/platform/validate"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds account-level risk limits. Percentages are in percent (1 = 1%).
type Config struct {
	RiskPerTradePct      float64 `yaml:"risk_per_trade_pct" validate:"gt=0,lte=100"`
	MaxDrawdownPct       float64 `yaml:"max_drawdown_pct" validate:"gt=0,lte=100"`
	DrawdownWarningRatio float64 `yaml:"drawdown_warning_ratio" validate:"gt=0,lte=1"`
	MaxConcurrentTrades  int     `yaml:"max_concurrent_trades" validate:"gte=1"`
	MaxDailyTrades       int     `yaml:"max_daily_trades" validate:"gte=1"`
	DailyLossLimitPct    float64 `yaml:"daily_loss_limit_pct" validate:"gt=0,lte=100"`
	MinRiskReward        float64 `yaml:"min_risk_reward" validate:"gte=0"`
	MinSignal            float64 `yaml:"min_signal" validate:"gte=0,lte=1"`
	MaxPositionPct       float64 `yaml:"max_position_pct" validate:"gt=0,lte=100"`
	MinPositionSize      float64 `yaml:"min_position_size" validate:"gte=0"`
	// VolatilitySizing shrinks positions when short-term ATR runs hot.
	// It never grows a position past the risk amount.
	VolatilitySizing bool `yaml:"volatility_sizing"`
}

// DefaultConfig returns 1% risk per trade, 8% max drawdown, one open position,
// three trades a day, a 3% daily loss breaker and a 1.5 minimum reward/risk.
func DefaultConfig() Config {
	return Config{
		RiskPerTradePct:      1.0,
		MaxDrawdownPct:       8.0,
		DrawdownWarningRatio: 0.8,
		MaxConcurrentTrades:  1,
		MaxDailyTrades:       3,
		DailyLossLimitPct:    3.0,
		MinRiskReward:        1.5,
		MinSignal:            0.1,
		MaxPositionPct:       10.0,
		MinPositionSize:      0.01,
	}
}

// Order is a candidate entry submitted for evaluation
type Order struct {
	Signal     model.SignalOutput
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Time       time.Time
	// VolatilityRatio of short to long ATR, used only with Config.VolatilitySizing
	VolatilityRatio float64
}

// Manager turns directional signals into sized, approved or rejected trades.
// It holds no account state; callers own the AccountState.
type Manager struct {
	cfg    Config
	logger zerolog.Logger
}

// NewManager validates the limits and builds a manager
func NewManager(cfg Config) (*Manager, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("risk manager: %w", err)
	}
	return &Manager{
		cfg:    cfg,
		logger: log.With().Str("component", "risk_manager").Logger(),
	}, nil
}

// Config returns the limits the manager enforces
func (m *Manager) Config() Config {
	return m.cfg
}

// Evaluate checks the order against the account limits and sizes it.
// It never mutates the account.
func (m *Manager) Evaluate(account model.AccountState, order Order) model.RiskAssessment {
	if math.Abs(order.Signal.Direction) < m.cfg.MinSignal {
		return m.reject(order, []string{"No signal - neutral"}, nil, nil)
	}

	reasons, warnings := m.checkConstraints(account, order.Time)
	if len(reasons) > 0 {
		return m.reject(order, reasons, warnings, nil)
	}

	direction := model.Long
	if order.Signal.Direction < 0 {
		direction = model.Short
	}

	sizing, sizingReasons, sizingWarnings := m.size(account, order, direction)
	warnings = append(warnings, sizingWarnings...)
	if len(sizingReasons) > 0 {
		return m.reject(order, sizingReasons, warnings, sizing)
	}

	confidence := order.Signal.Confidence
	if len(warnings) > 0 {
		confidence *= 0.9
	}
	if sizing.RiskRewardRatio < 2.0 {
		confidence *= 0.95
	}

	m.logger.Debug().
		Str("direction", string(direction)).
		Float64("position_size", sizing.PositionSize).
		Float64("risk_reward", sizing.RiskRewardRatio).
		Int("warnings", len(warnings)).
		Msg("Trade approved")

	return model.RiskAssessment{
		Approved:        true,
		Signal:          order.Signal.Direction,
		Confidence:      model.Clamp(confidence, 0, 1),
		PositionSize:    sizing.PositionSize,
		RiskAmount:      sizing.RiskAmount,
		StopLossPrice:   order.StopLoss,
		TakeProfitPrice: order.TakeProfit,
		RiskRewardRatio: sizing.RiskRewardRatio,
		Warnings:        warnings,
	}
}

// checkConstraints gathers every account-level violation rather than stopping at the first
func (m *Manager) checkConstraints(account model.AccountState, at time.Time) ([]string, []string) {
	var reasons, warnings []string

	drawdown := account.DrawdownPct()
	if drawdown >= m.cfg.MaxDrawdownPct {
		reasons = append(reasons, fmt.Sprintf("Max drawdown exceeded: %.1f%% >= %.1f%%", drawdown, m.cfg.MaxDrawdownPct))
	} else if drawdown >= m.cfg.MaxDrawdownPct*m.cfg.DrawdownWarningRatio {
		warnings = append(warnings, fmt.Sprintf("High drawdown: %.1f%%", drawdown))
	}

	if open := len(account.OpenPositions); open >= m.cfg.MaxConcurrentTrades {
		reasons = append(reasons, fmt.Sprintf("Max concurrent trades reached: %d", open))
	}

	if count := account.TradesOn(at); count >= m.cfg.MaxDailyTrades {
		reasons = append(reasons, fmt.Sprintf("Daily trade limit reached: %d/%d", count, m.cfg.MaxDailyTrades))
	}

	if loss := -account.PnLOn(at); loss > 0 && account.CurrentBalance > 0 {
		lossPct := loss / account.CurrentBalance * 100
		if lossPct >= m.cfg.DailyLossLimitPct {
			reasons = append(reasons, fmt.Sprintf("Daily loss limit hit: %.1f%% >= %.1f%%", lossPct, m.cfg.DailyLossLimitPct))
		}
	}

	return reasons, warnings
}

func (m *Manager) size(account model.AccountState, order Order, direction model.Direction) (*PositionSizingResult, []string, []string) {
	var reasons, warnings []string

	slDistance := (order.EntryPrice - order.StopLoss) * direction.Sign()
	tpDistance := (order.TakeProfit - order.EntryPrice) * direction.Sign()

	if order.StopLoss <= 0 || slDistance <= 0 {
		if direction == model.Long {
			reasons = append(reasons, "Invalid stop loss - must be below entry for LONG")
		} else {
			reasons = append(reasons, "Invalid stop loss - must be above entry for SHORT")
		}
	}
	if order.TakeProfit <= 0 || tpDistance <= 0 {
		if direction == model.Long {
			reasons = append(reasons, "Invalid take profit - must be above entry for LONG")
		} else {
			reasons = append(reasons, "Invalid take profit - must be below entry for SHORT")
		}
	}
	if len(reasons) > 0 {
		return nil, reasons, warnings
	}

	sizing := CalculatePositionSize(order.EntryPrice, order.StopLoss, order.TakeProfit,
		account.CurrentBalance, m.cfg.RiskPerTradePct/100)

	if sizing.RiskRewardRatio < m.cfg.MinRiskReward {
		reasons = append(reasons, fmt.Sprintf("Poor R/R ratio %.2f < %.2f", sizing.RiskRewardRatio, m.cfg.MinRiskReward))
		return sizing, reasons, warnings
	}

	if m.cfg.VolatilitySizing && order.VolatilityRatio > 0 {
		adjusted := math.Min(AdjustPositionSizeForVolatility(sizing.PositionSize, order.VolatilityRatio), sizing.PositionSize)
		if adjusted != sizing.PositionSize {
			m.logger.Debug().
				Float64("volatility_ratio", order.VolatilityRatio).
				Float64("from", sizing.PositionSize).
				Float64("to", adjusted).
				Msg("Position size reduced for volatility")
			sizing.PositionSize = adjusted
		}
	}

	if sizing.PositionSize < m.cfg.MinPositionSize {
		warnings = append(warnings, fmt.Sprintf("Very small position size: %.4f", sizing.PositionSize))
	}

	maxNotional := account.CurrentBalance * m.cfg.MaxPositionPct / 100
	if sizing.PositionSize*order.EntryPrice > maxNotional {
		capped := maxNotional / order.EntryPrice
		warnings = append(warnings, fmt.Sprintf("Position size limited to %.0f%% of balance: %.4f -> %.4f",
			m.cfg.MaxPositionPct, sizing.PositionSize, capped))
		sizing.PositionSize = capped
	}

	return sizing, reasons, warnings
}

func (m *Manager) reject(order Order, reasons, warnings []string, sizing *PositionSizingResult) model.RiskAssessment {
	m.logger.Debug().Strs("reasons", reasons).Msg("Trade rejected")

	assessment := model.RiskAssessment{
		Approved:         false,
		Signal:           0,
		Confidence:       0.9,
		StopLossPrice:    order.StopLoss,
		TakeProfitPrice:  order.TakeProfit,
		RejectionReasons: reasons,
		Warnings:         warnings,
	}
	if sizing != nil {
		assessment.RiskRewardRatio = sizing.RiskRewardRatio
	}
	return assessment
}

// RecordTrade books realized P&L for a closed trade and returns the updated account
func (m *Manager) RecordTrade(account model.AccountState, pnl float64, at time.Time) model.AccountState {
	next := account.Record(pnl, at)

	m.logger.Debug().
		Float64("pnl", pnl).
		Float64("balance", next.CurrentBalance).
		Float64("drawdown_pct", next.DrawdownPct()).
		Msg("Trade recorded")

	return next
}

// OpenPosition marks a position as open on the account
func (m *Manager) OpenPosition(account model.AccountState, id string) model.AccountState {
	return account.WithPosition(id)
}

// ClosePosition removes a position from the account's open set
func (m *Manager) ClosePosition(account model.AccountState, id string) model.AccountState {
	return account.WithoutPosition(id)
}
