package risk

import (
	"math"

	"github.com/Alias1177/Predictor/internal/model"
)

// PositionSizingResult holds position sizing calculation results
type PositionSizingResult struct {
	PositionSize    float64 `json:"position_size"`
	RiskAmount      float64 `json:"risk_amount"`
	StopLoss        float64 `json:"stop_loss"`
	TakeProfit      float64 `json:"take_profit"`
	RiskRewardRatio float64 `json:"risk_reward_ratio"`
	AccountRisk     float64 `json:"account_risk"`
}

// DetermineStopLoss places the stop atrMultiplier ATRs away from price, against the position
func DetermineStopLoss(price, atr, atrMultiplier float64, direction model.Direction) float64 {
	if direction == model.Short {
		return price + atr*atrMultiplier
	}
	return price - atr*atrMultiplier
}

// DetermineTakeProfit places the target rewardMultiple stop distances away from price.
// The side is inferred from where the stop sits.
func DetermineTakeProfit(price, stopLoss, rewardMultiple float64) float64 {
	if price > stopLoss {
		// Long position
		return price + (price-stopLoss)*rewardMultiple
	}
	// Short position
	return price - (stopLoss-price)*rewardMultiple
}

// CalculatePositionSize sizes a position so that hitting the stop loses riskPerTrade of the account.
// riskPerTrade is a fraction (0.01 = 1%).
func CalculatePositionSize(currentPrice, stopLoss, takeProfit, accountSize, riskPerTrade float64) *PositionSizingResult {
	stopDistance := math.Abs(currentPrice - stopLoss)
	riskAmount := accountSize * riskPerTrade

	result := &PositionSizingResult{
		RiskAmount:  riskAmount,
		StopLoss:    stopLoss,
		TakeProfit:  takeProfit,
		AccountRisk: riskPerTrade,
	}
	if stopDistance == 0 {
		return result
	}

	result.PositionSize = riskAmount / stopDistance
	result.RiskRewardRatio = math.Abs(takeProfit-currentPrice) / stopDistance
	return result
}

// AdjustPositionSizeForVolatility modifies position size based on market volatility
func AdjustPositionSizeForVolatility(baseSize float64, volatilityRatio float64) float64 {
	// Reduce position size in high-volatility markets
	if volatilityRatio > 1.5 {
		return baseSize * (1 / volatilityRatio)
	}

	// Increase position size slightly in low-volatility markets
	if volatilityRatio > 0 && volatilityRatio < 0.7 {
		return baseSize * 1.2
	}

	return baseSize
}
