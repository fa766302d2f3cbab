package strategy

import (
	"github.com/Alias1177/Predictor/internal/decision"
	"github.com/Alias1177/Predictor/internal/model"
	"github.com/Alias1177/Predictor/internal/signal"
)

// Pipeline enters on meta decisions over the configured signal sources.
// It takes its stop, target and size from the last approved decision and
// exits when the primary source turns against the position.
type Pipeline struct {
	name    string
	sources []signal.Source
	meta    *decision.MetaAggregator
	window  int
	account model.AccountState
	last    model.MetaDecision
	hasLast bool
}

// NewPipeline builds a pipeline strategy. window caps how many bars each source sees.
func NewPipeline(name string, meta *decision.MetaAggregator, window int, sources ...signal.Source) *Pipeline {
	return &Pipeline{
		name:    name,
		sources: sources,
		meta:    meta,
		window:  window,
		account: model.NewAccountState(0),
	}
}

func (p *Pipeline) Name() string { return p.name }

func (p *Pipeline) Reset() {
	p.last = model.MetaDecision{}
	p.hasLast = false
}

func (p *Pipeline) SetAccount(account model.AccountState) {
	p.account = account
}

func (p *Pipeline) slice(candles []model.Candle, i int) []model.Candle {
	start := 0
	if p.window > 0 && i+1 > p.window {
		start = i + 1 - p.window
	}
	return candles[start : i+1]
}

// Decide runs the sources and the meta aggregator on the window ending at bar i
func (p *Pipeline) Decide(candles []model.Candle, i int) model.MetaDecision {
	window := p.slice(candles, i)
	outputs := signal.AnalyzeAll(window, p.sources...)
	return p.meta.Decide(p.account, outputs, candles[i].Datetime)
}

func (p *Pipeline) ShouldEnter(candles []model.Candle, i int) Signal {
	d := p.Decide(candles, i)
	p.last, p.hasLast = d, true

	switch d.Action {
	case model.ActionBuy:
		return Buy
	case model.ActionSell:
		return Sell
	}
	return None
}

func (p *Pipeline) ShouldExit(candles []model.Candle, i int, _ float64, direction model.Direction) bool {
	if len(p.sources) == 0 {
		return false
	}
	primary := p.sources[0].Analyze(p.slice(candles, i))
	if !primary.IsValid() {
		return false
	}
	if direction == model.Long {
		return primary.Direction < 0
	}
	return primary.Direction > 0
}

func (p *Pipeline) StopLoss(float64, model.Direction) (float64, bool) {
	if !p.hasLast || p.last.StopLoss <= 0 {
		return 0, false
	}
	return p.last.StopLoss, true
}

func (p *Pipeline) TakeProfit(float64, model.Direction) (float64, bool) {
	if !p.hasLast || p.last.TakeProfit <= 0 {
		return 0, false
	}
	return p.last.TakeProfit, true
}

func (p *Pipeline) PositionSize() (float64, bool) {
	if !p.hasLast || p.last.PositionSize <= 0 {
		return 0, false
	}
	return p.last.PositionSize, true
}

// LastDecision returns the decision behind the most recent entry check
func (p *Pipeline) LastDecision() (model.MetaDecision, bool) {
	return p.last, p.hasLast
}
