package strategy

import (
	"fmt"
	"sort"
)

// Factory builds a fresh strategy instance
type Factory func() Strategy

// Registry maps short keys to strategy constructors
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry holds the rule strategies with their standard parameters
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("ma_crossover", func() Strategy { return NewMACrossover(20, 50) })
	r.Register("rsi", func() Strategy { return NewRSIReversal(14, 30, 70) })
	r.Register("scalping", func() Strategy { return NewScalping(5, 10) })
	r.Register("trend_following", func() Strategy { return NewTrendFollowing(50, 200) })
	r.Register("mean_reversion", func() Strategy { return NewMeanReversion(20, 2.0, 14) })
	r.Register("breakout", func() Strategy { return NewBreakout(20) })
	return r
}

// Register adds or replaces a factory
func (r *Registry) Register(key string, f Factory) {
	r.factories[key] = f
}

// New builds the strategy registered under key
func (r *Registry) New(key string) (Strategy, error) {
	f, ok := r.factories[key]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (available: %v)", key, r.Keys())
	}
	return f(), nil
}

// Keys lists registered keys in sorted order
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// All builds one instance of every registered strategy, ordered by key
func (r *Registry) All() []Strategy {
	keys := r.Keys()
	out := make([]Strategy, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.factories[k]())
	}
	return out
}
