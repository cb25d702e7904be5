// Package strategy implements the signal producers and the signal manager
// from spec §4.6: pure functions over a strategy's own rolling buffer plus
// the current tick, collected and scored by a manager that tracks
// per-strategy performance and auto-disables losers.
//
// Grounded on original_source/backend/strategies/signal_manager.py for the
// manager, and mvp_tier1/backend/strategies/momentum_strategy.py /
// production_tier1/backend/strategies/market_making_strategy.py for the two
// reference strategies that carry over cleanly into Go's rolling-buffer
// style (see ringbuffer.go; spec §9 calls for fixed-capacity ring buffers,
// no per-tick allocation in steady state, where the Python originals use
// collections.deque).
package strategy

import (
	"hftcore/internal/market"
	"hftcore/internal/reason"
)

// Signal is a strategy's trade proposal, per spec §4.6.
type Signal struct {
	StrategyID   string
	Side         market.OrderSide
	EntryPrice   float64
	TakeProfit   float64 // expressed as take_profit_pct against EntryPrice
	StopLoss     float64 // expressed as stop_loss_pct against EntryPrice
	Size         float64
	Confidence   float64 // in [0,1]
	ReasonCode   reason.Code
	ReasonDetail string
	Metadata     map[string]interface{}
}

// Strategy is the contract every signal producer implements. OnTick is pure
// with respect to anything but the strategy's own rolling buffers — it may
// not mutate shared engine state.
type Strategy interface {
	ID() string
	OnTick(t market.Tick) *Signal
}
