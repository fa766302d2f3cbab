package market

import (
	"fmt"
	"strings"

	"github.com/Alias1177/Predictor/internal/model"
)

// strategyFamilies lists which strategy families suit each regime.
// Strategy names are matched case-insensitively by substring.
var strategyFamilies = map[model.Regime][]string{
	model.RegimeTrendingUp:   {"TrendFollowing", "Trend Following", "Breakout", "AdaptiveRSI", "MA Crossover"},
	model.RegimeTrendingDown: {"TrendFollowing", "Trend Following", "AdaptiveRSI", "MA Crossover"},
	model.RegimeRanging:      {"MeanReversion", "Mean Reversion", "SafeRSI", "RSI"},
	model.RegimeVolatile:     {"Scalping", "MeanReversion", "Mean Reversion"},
}

// Families returns the strategy families considered compatible with a regime
func Families(regime model.Regime) []string {
	families := strategyFamilies[regime]
	out := make([]string, len(families))
	copy(out, families)
	return out
}

// Compatible reports whether the named strategy belongs to a family suited to the regime
func Compatible(strategyName string, regime model.Regime) bool {
	name := strings.ToLower(strategyName)
	for _, family := range strategyFamilies[regime] {
		if strings.Contains(name, strings.ToLower(family)) {
			return true
		}
	}
	return false
}

// RegimeFilter gates strategies on regime fit and detector confidence
type RegimeFilter struct {
	MinConfidence float64
}

// ShouldTrade reports whether the strategy may trade in the analysed regime, with a reason
func (f RegimeFilter) ShouldTrade(strategyName string, analysis model.RegimeAnalysis) (bool, string) {
	if analysis.Confidence < f.MinConfidence {
		return false, fmt.Sprintf("Low confidence (%.1f%%)", analysis.Confidence*100)
	}
	if !Compatible(strategyName, analysis.Regime) {
		return false, fmt.Sprintf("Strategy not suitable for %s market", analysis.Regime)
	}
	return true, fmt.Sprintf("Good match for %s market", analysis.Regime)
}
