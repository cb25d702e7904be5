package strategy

import (
	"fmt"
	"math"

	"hftcore/internal/market"
	"hftcore/internal/reason"
)

// MarketMakerConfig configures MarketMaker, grounded on
// production_tier1/backend/strategies/market_making_strategy.py's default
// params.
type MarketMakerConfig struct {
	ID               string
	BaseSpread       float64 // fraction, default 0.0003 (3bps)
	OrderSize        float64 // default 0.01
	MaxPosition      float64 // default 0.1
	InventoryTarget  float64 // default 0
	VolatilityWindow int     // default 60
	TrendWindow      int     // default 30
	MinSpread        float64 // default 0.0001
	MaxSpread        float64 // default 0.002
}

// DefaultMarketMakerConfig returns the Python original's default parameters.
func DefaultMarketMakerConfig(id string) MarketMakerConfig {
	return MarketMakerConfig{
		ID:               id,
		BaseSpread:       0.0003,
		OrderSize:        0.01,
		MaxPosition:      0.1,
		InventoryTarget:  0,
		VolatilityWindow: 60,
		TrendWindow:      30,
		MinSpread:        0.0001,
		MaxSpread:        0.002,
	}
}

// MarketMaker quotes around a dynamic mid with inventory skew and a
// volatility/trend-scaled spread, per spec §4.6.
type MarketMaker struct {
	cfg              MarketMakerConfig
	prices           *RingBuffer
	currentPosition  float64 // signed inventory, updated by the engine via SetInventory
}

// NewMarketMaker constructs a MarketMaker strategy with an empty rolling
// price buffer.
func NewMarketMaker(cfg MarketMakerConfig) *MarketMaker {
	return &MarketMaker{
		cfg:    cfg,
		prices: NewRingBuffer(cfg.VolatilityWindow),
	}
}

// ID returns the strategy's identifier.
func (mm *MarketMaker) ID() string { return mm.cfg.ID }

// SetInventory updates the strategy's view of its own current signed
// position, used to compute inventory skew. The engine calls this after
// every open/close, since the strategy does not own the position book.
func (mm *MarketMaker) SetInventory(position float64) {
	mm.currentPosition = position
}

// OnTick implements Strategy. It produces its first signal only once the
// price buffer has filled to the trend window, per spec §4.6.
func (mm *MarketMaker) OnTick(t market.Tick) *Signal {
	mid := t.Mid()
	if mid <= 0 {
		return nil
	}
	mm.prices.Push(mid)

	if mm.prices.Len() < mm.cfg.TrendWindow {
		return nil
	}

	volatility := mm.volatility()
	trend := mm.trend()
	momentum := mm.momentum()

	if math.Abs(trend) > 0.7 || volatility > 0.5 {
		return nil
	}

	skew := mm.inventorySkew()
	side, ok := mm.direction(skew, momentum)
	if !ok {
		return nil
	}

	spread := mm.dynamicSpread(volatility, trend)
	var entryPrice, tpPct, slPct float64
	if side == market.Buy {
		entryPrice = mid * (1 - spread/2 - skew)
		tpPct = spread
		slPct = spread * 2
	} else {
		entryPrice = mid * (1 + spread/2 + skew)
		tpPct = spread
		slPct = spread * 2
	}

	confidence := mm.confidence(volatility, trend, skew)
	size := mm.cfg.OrderSize * (0.5 + confidence*0.5)

	return &Signal{
		StrategyID:   mm.cfg.ID,
		Side:         side,
		EntryPrice:   entryPrice,
		TakeProfit:   tpPct,
		StopLoss:     slPct,
		Size:         size,
		Confidence:   confidence,
		ReasonCode:   reason.SignalMarketMaking,
		ReasonDetail: fmt.Sprintf("spread=%.5f skew=%.5f vol=%.4f trend=%+.2f", spread, skew, volatility, trend),
		Metadata: map[string]interface{}{
			"spread":     spread,
			"skew":       skew,
			"volatility": volatility,
			"trend":      trend,
		},
	}
}

// volatility is the standard deviation of simple returns over the buffered
// window, unannualized — the engine operates on tick data, not fixed
// 1-minute bars, so the Python original's sqrt(525600) annualization factor
// does not apply here.
func (mm *MarketMaker) volatility() float64 {
	values := mm.prices.Values()
	if len(values) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		returns = append(returns, (values[i]-values[i-1])/values[i-1])
	}
	if len(returns) == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}

func (mm *MarketMaker) trend() float64 {
	n := mm.cfg.TrendWindow
	if n > mm.prices.Len() {
		n = mm.prices.Len()
	}
	if n < 2 {
		return 0
	}
	values := mm.prices.Values()
	window := values[len(values)-n:]
	if window[0] == 0 {
		return 0
	}
	trend := (window[len(window)-1] - window[0]) / window[0] * 100
	return math.Max(-1, math.Min(1, trend))
}

func (mm *MarketMaker) momentum() float64 {
	n := mm.prices.Len()
	if n < 5 {
		return 0
	}
	shortMA := mm.prices.Mean(5)
	longN := 20
	if longN > n {
		longN = n
	}
	longMA := mm.prices.Mean(longN)
	if longMA == 0 {
		return 0
	}
	return (shortMA - longMA) / longMA
}

func (mm *MarketMaker) inventorySkew() float64 {
	if mm.cfg.MaxPosition <= 0 {
		return 0
	}
	deviation := (mm.currentPosition - mm.cfg.InventoryTarget) / mm.cfg.MaxPosition
	return deviation * 0.001
}

func (mm *MarketMaker) direction(skew, momentum float64) (market.OrderSide, bool) {
	if mm.currentPosition > mm.cfg.MaxPosition*0.8 {
		return market.Sell, true
	}
	if mm.currentPosition < -mm.cfg.MaxPosition*0.8 {
		return market.Buy, true
	}
	switch {
	case skew > 0.0005:
		return market.Sell, true
	case skew < -0.0005:
		return market.Buy, true
	case momentum > 0.001:
		return market.Buy, true
	case momentum < -0.001:
		return market.Sell, true
	default:
		return market.Buy, true
	}
}

func (mm *MarketMaker) dynamicSpread(volatility, trend float64) float64 {
	volMultiplier := 1 + math.Min(volatility, 1.0)
	trendMultiplier := 1 + math.Abs(trend)*0.5
	spread := mm.cfg.BaseSpread * volMultiplier * trendMultiplier
	if spread < mm.cfg.MinSpread {
		spread = mm.cfg.MinSpread
	}
	if spread > mm.cfg.MaxSpread {
		spread = mm.cfg.MaxSpread
	}
	return spread
}

func (mm *MarketMaker) confidence(volatility, trend, skew float64) float64 {
	confidence := 0.5
	confidence -= math.Min(volatility*0.3, 0.2)
	confidence -= math.Abs(trend) * 0.2
	if math.Abs(skew) < 0.0002 {
		confidence += 0.1
	}
	return math.Max(0.2, math.Min(1.0, confidence))
}
