package strategy

import (
	"errors"
	"fmt"

	"hftcore/internal/market"
	"hftcore/internal/reason"
)

// ErrUnsupported is returned by a LiquidationSource that has no live data
// feed wired up, per spec §9's callout that the Python original's cluster
// detector fabricates levels from a random distribution and is therefore a
// placeholder, not a behavior to carry forward.
var ErrUnsupported = errors.New("strategy: live liquidation data not supported")

// LiquidationCluster is a price level where a meaningful amount of leveraged
// position size is expected to liquidate, grounded on
// backend/strategies/liquidation_hunter.py's LiquidationCluster dataclass.
type LiquidationCluster struct {
	Price  float64
	Volume float64
	Side   market.PositionSide // Long clusters sit below mid, Short above
}

// LiquidationSource produces the liquidation clusters a LiquidationHunter
// reacts to. liquidation_hunter.py's LiquidationDataProvider draws cluster
// volume from np.random.uniform(50, 200) keyed on leverage_levels =
// [10, 20, 50, 100] — not a real data feed, just a random placeholder. Rather
// than carry random draws into a deterministic, replayable engine, Levels is
// implemented once here as a fixed, deterministic stub (DeterministicLevels)
// and left open for a live implementation (LiveLevels) that errors until a
// real liquidation-data integration exists.
type LiquidationSource interface {
	Levels(symbol string, mid float64) ([]LiquidationCluster, error)
}

// leverageTiers mirrors the Python original's common leverage levels.
var leverageTiers = []float64{10, 20, 50, 100}

// DeterministicLevels is the backtest-safe LiquidationSource: clusters sit at
// the exact liquidation prices for each canonical leverage tier (entry at
// mid, liq_price = mid*(1 -/+ 1/leverage)), and volume is a deterministic
// function of tier and mid rather than a random draw — same mid always
// produces the same clusters, preserving the engine's determinism invariant
// (spec §8 testable property 1).
type DeterministicLevels struct {
	// BaseVolume scales cluster volume; defaults to 100 if zero.
	BaseVolume float64
}

// Levels implements LiquidationSource.
func (d DeterministicLevels) Levels(symbol string, mid float64) ([]LiquidationCluster, error) {
	if mid <= 0 {
		return nil, nil
	}
	base := d.BaseVolume
	if base <= 0 {
		base = 100
	}
	clusters := make([]LiquidationCluster, 0, len(leverageTiers)*2)
	for _, leverage := range leverageTiers {
		volume := (leverage / 10) * base
		clusters = append(clusters, LiquidationCluster{
			Price:  mid * (1 - 1/leverage),
			Volume: volume,
			Side:   market.Long,
		})
		clusters = append(clusters, LiquidationCluster{
			Price:  mid * (1 + 1/leverage),
			Volume: volume,
			Side:   market.Short,
		})
	}
	return clusters, nil
}

// LiveLevels is the unimplemented live-data LiquidationSource: no exchange
// open-interest/funding-rate feed is wired up in this engine, so Levels
// always fails rather than silently fabricating data.
type LiveLevels struct{}

// Levels implements LiquidationSource.
func (LiveLevels) Levels(symbol string, mid float64) ([]LiquidationCluster, error) {
	return nil, ErrUnsupported
}

// LiquidationHunterConfig configures LiquidationHunter, grounded on
// liquidation_hunter.py's constructor defaults.
type LiquidationHunterConfig struct {
	ID                string
	MinClusterVolume  float64 // default 100
	EntryDistancePct  float64 // default 0.015
	TakeProfitPct     float64 // default 0.012
	StopLossPct       float64 // default 0.012
	Size              float64 // default 0.01
}

// DefaultLiquidationHunterConfig returns the Python original's defaults.
func DefaultLiquidationHunterConfig(id string) LiquidationHunterConfig {
	return LiquidationHunterConfig{
		ID:               id,
		MinClusterVolume: 100,
		EntryDistancePct: 0.015,
		TakeProfitPct:    0.012,
		StopLossPct:      0.012,
		Size:             0.01,
	}
}

// LiquidationHunter fades into the cascade: it shorts into long-liquidation
// clusters below price (which trigger on a drop) and buys into
// short-liquidation clusters above price (which trigger on a rise), entering
// only once price is within EntryDistancePct of the nearest significant
// cluster.
type LiquidationHunter struct {
	cfg    LiquidationHunterConfig
	source LiquidationSource
}

// NewLiquidationHunter constructs a LiquidationHunter over the given cluster
// source (DeterministicLevels for backtests, LiveLevels — currently
// unsupported — for live trading).
func NewLiquidationHunter(cfg LiquidationHunterConfig, source LiquidationSource) *LiquidationHunter {
	return &LiquidationHunter{cfg: cfg, source: source}
}

// ID returns the strategy's identifier.
func (h *LiquidationHunter) ID() string { return h.cfg.ID }

// OnTick implements Strategy. A source error (e.g. LiveLevels.Levels always
// returning ErrUnsupported) simply yields no signal rather than panicking —
// a strategy with no usable data source just never fires.
func (h *LiquidationHunter) OnTick(t market.Tick) *Signal {
	mid := t.Mid()
	if mid <= 0 {
		return nil
	}
	clusters, err := h.source.Levels(t.Symbol, mid)
	if err != nil || len(clusters) == 0 {
		return nil
	}

	var closest *LiquidationCluster
	var closestDist float64
	for i := range clusters {
		c := clusters[i]
		if c.Volume < h.cfg.MinClusterVolume {
			continue
		}
		dist := absFloat(c.Price-mid) / mid
		if closest == nil || dist < closestDist {
			closest = &clusters[i]
			closestDist = dist
		}
	}
	if closest == nil || closestDist > h.cfg.EntryDistancePct {
		return nil
	}

	return h.signal(*closest, mid, closestDist)
}

func (h *LiquidationHunter) signal(cluster LiquidationCluster, mid, distance float64) *Signal {
	var side market.OrderSide
	var entry, tp, sl float64

	if cluster.Side == market.Long {
		// Long liquidations trigger on a price drop: fade the cascade short.
		side = market.Sell
		entry = mid * 0.9995
		tp = h.cfg.TakeProfitPct
		sl = h.cfg.StopLossPct
	} else {
		// Short liquidations trigger on a price rise: fade the cascade long.
		side = market.Buy
		entry = mid * 1.0005
		tp = h.cfg.TakeProfitPct
		sl = h.cfg.StopLossPct
	}

	confidence := 1.0 - distance/h.cfg.EntryDistancePct
	if confidence < 0 {
		confidence = 0
	}

	return &Signal{
		StrategyID:   h.cfg.ID,
		Side:         side,
		EntryPrice:   entry,
		TakeProfit:   tp,
		StopLoss:     sl,
		Size:         h.cfg.Size,
		Confidence:   confidence,
		ReasonCode:   reason.SignalLiquidation,
		ReasonDetail: fmt.Sprintf("cluster side=%s price=%.2f volume=%.1f dist=%.4f", cluster.Side, cluster.Price, cluster.Volume, distance),
		Metadata: map[string]interface{}{
			"cluster_price":  cluster.Price,
			"cluster_volume": cluster.Volume,
			"cluster_side":   cluster.Side,
			"distance":       distance,
		},
	}
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
