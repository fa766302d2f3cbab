package model

// Regime classifies recent price action
type Regime string

const (
	RegimeTrendingUp   Regime = "trending_up"
	RegimeTrendingDown Regime = "trending_down"
	RegimeRanging      Regime = "ranging"
	RegimeVolatile     Regime = "volatile"
)

// Regimes lists every regime in a stable order.
var Regimes = []Regime{RegimeTrendingUp, RegimeTrendingDown, RegimeRanging, RegimeVolatile}

// RegimeAnalysis represents the current market conditions
type RegimeAnalysis struct {
	Regime        Regime  `json:"regime"`
	Confidence    float64 `json:"confidence"`     // 0-1
	ADX           float64 `json:"adx"`            // 0-100
	VolatilityPct float64 `json:"volatility_pct"` // ATR as % of mean price
	TrendStrength float64 `json:"trend_strength"` // 0-1
}
