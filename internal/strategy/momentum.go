package strategy

import (
	"fmt"
	"math"

	"hftcore/internal/market"
	"hftcore/internal/reason"
)

// MomentumConfig configures Momentum, grounded on
// mvp_tier1/backend/strategies/momentum_strategy.py's default params plus
// the RSI overbought/oversold filter spec.md §4.6 calls for and the Python
// original lacks.
type MomentumConfig struct {
	ID          string
	Lookback    int     // periods for momentum calculation; default 20
	Threshold   float64 // momentum magnitude required for a signal; default 0.001
	MinStrength float64 // minimum normalized strength to act on; default 0.3
	RSIPeriod   int     // default 14
	Overbought  float64 // default 70
	Oversold    float64 // default 30
	TakeProfitPct float64
	StopLossPct   float64
	Size          float64
}

// DefaultMomentumConfig returns the Python original's defaults plus the
// spec's RSI filter thresholds.
func DefaultMomentumConfig(id string) MomentumConfig {
	return MomentumConfig{
		ID:            id,
		Lookback:      20,
		Threshold:     0.001,
		MinStrength:   0.3,
		RSIPeriod:     14,
		Overbought:    70,
		Oversold:      30,
		TakeProfitPct: 0.01,
		StopLossPct:   0.01,
		Size:          0.01,
	}
}

// Momentum is a momentum strategy with an RSI overbought/oversold filter:
// positive momentum is only actionable when RSI is not already overbought,
// negative momentum only when RSI is not already oversold — avoiding chasing
// a move that is already exhausted.
type Momentum struct {
	cfg    MomentumConfig
	prices *RingBuffer
	rsi    *RSI
}

// NewMomentum constructs a Momentum strategy with an empty rolling buffer.
func NewMomentum(cfg MomentumConfig) *Momentum {
	return &Momentum{
		cfg:    cfg,
		prices: NewRingBuffer(cfg.Lookback),
		rsi:    NewRSI(cfg.RSIPeriod),
	}
}

// ID returns the strategy's identifier.
func (m *Momentum) ID() string { return m.cfg.ID }

// OnTick implements Strategy. It produces its first signal only once both
// the price buffer and the RSI tracker have filled, per spec §4.6.
func (m *Momentum) OnTick(t market.Tick) *Signal {
	price := t.Last
	if price == 0 {
		price = t.Mid()
	}
	m.prices.Push(price)
	rsiValue, rsiReady := m.rsi.Update(price)

	if !m.prices.Full() || !rsiReady {
		return nil
	}

	first := m.prices.First()
	if first == 0 {
		return nil
	}
	momentum := (m.prices.Last() - first) / first

	strength := math.Min(math.Abs(momentum)/m.cfg.Threshold, 1.0)
	if strength < m.cfg.MinStrength {
		return nil
	}

	switch {
	case momentum > m.cfg.Threshold:
		if rsiValue > m.cfg.Overbought {
			return nil
		}
		return m.signal(market.Buy, price, strength, momentum, rsiValue)
	case momentum < -m.cfg.Threshold:
		if rsiValue < m.cfg.Oversold {
			return nil
		}
		return m.signal(market.Sell, price, strength, momentum, rsiValue)
	default:
		return nil
	}
}

func (m *Momentum) signal(side market.OrderSide, price, strength, momentum, rsiValue float64) *Signal {
	return &Signal{
		StrategyID:   m.cfg.ID,
		Side:         side,
		EntryPrice:   price,
		TakeProfit:   m.cfg.TakeProfitPct,
		StopLoss:     m.cfg.StopLossPct,
		Size:         m.cfg.Size,
		Confidence:   strength,
		ReasonCode:   reason.SignalMomentum,
		ReasonDetail: fmt.Sprintf("momentum=%.5f rsi=%.1f", momentum, rsiValue),
		Metadata: map[string]interface{}{
			"momentum": momentum,
			"rsi":      rsiValue,
		},
	}
}
