package model

// Action is the outcome of the staged meta decision
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// MetaDecision is the result of the veto cascade.
// A decision vetoed by a check carries zero numeric fields. A HOLD from a weak
// blended signal keeps the signal and confidence but no size or levels.
// Every HOLD has at least one veto reason.
type MetaDecision struct {
	Action          Action   `json:"action"`
	FinalSignal     float64  `json:"final_signal"`
	FinalConfidence float64  `json:"final_confidence"`
	PositionSize    float64  `json:"position_size"`
	StopLoss        float64  `json:"stop_loss"`
	TakeProfit      float64  `json:"take_profit"`
	ReasoningChain  []string `json:"reasoning_chain"`
	VetoReasons     []string `json:"veto_reasons,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
}

// Vetoed reports whether any stage blocked the trade.
func (d MetaDecision) Vetoed() bool {
	return d.Action == ActionHold
}

// DecisionLabel is the output of the weighted aggregator
type DecisionLabel string

const (
	StrongBuy  DecisionLabel = "STRONG_BUY"
	Buy        DecisionLabel = "BUY"
	Hold       DecisionLabel = "HOLD"
	Sell       DecisionLabel = "SELL"
	StrongSell DecisionLabel = "STRONG_SELL"
)

// Decision is produced by confidence-weighted voting over independent sources
type Decision struct {
	Label      DecisionLabel `json:"decision"`
	Signal     float64       `json:"signal"`
	Confidence float64       `json:"confidence"`
	Sources    int           `json:"sources"`
	Reasoning  string        `json:"reasoning"`
}
