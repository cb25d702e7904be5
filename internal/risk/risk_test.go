package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hftcore/internal/market"
	"hftcore/internal/reason"
)

func testLimits() Limits {
	return Limits{
		InitialCapital:     10000,
		MaxPositionLossPct: 5,  // $500
		MaxTotalLossPct:    10, // $1000
		MaxDrawdownPct:     15, // $1500
		MaxConcentration:   0.5,
		WarnThresholdPct:   80,
	}
}

func TestCheckCleanAllowsCarryRiskLimitOK(t *testing.T) {
	g := New(testLimits())
	r := g.Check()
	assert.Equal(t, Allow, r.Action)
	assert.Equal(t, reason.RiskLimitOK, r.Reason, "a clean allow must still carry a closed reason code")
}

func TestCheckPositionLossExceededClosesPosition(t *testing.T) {
	g := New(testLimits())
	g.UpdatePosition(market.Position{Symbol: "BTC-USD", Side: market.Long, Size: 1, EntryPrice: 1000, CurrentPrice: 400})

	r := g.Check()
	assert.Equal(t, Close, r.Action)
	assert.Equal(t, reason.RiskLimitExceeded, r.Reason)
}

func TestCheckPositionLossWarnBeforeExceeded(t *testing.T) {
	g := New(testLimits())
	// loss = 420, limit = 500, utilization = 84% > 80% warn threshold.
	g.UpdatePosition(market.Position{Symbol: "BTC-USD", Side: market.Long, Size: 1, EntryPrice: 1000, CurrentPrice: 580})

	r := g.Check()
	assert.Equal(t, Warn, r.Action)
	assert.Equal(t, reason.RiskLimitWarn, r.Reason)
}

func TestCheckPositionLossCloseAmongSeveralPositions(t *testing.T) {
	g := New(testLimits())
	g.UpdatePosition(market.Position{Symbol: "A", Side: market.Long, Size: 1, EntryPrice: 1000, CurrentPrice: 900})
	g.UpdatePosition(market.Position{Symbol: "B", Side: market.Long, Size: 1, EntryPrice: 1000, CurrentPrice: 900})
	// unrealized loss = 100 each, 200 total; under both per-position (500) and total (1000) limits,
	// but each position is 900/1800 = 0.5 of exposure, 100% of the 0.5 concentration limit and
	// over the 80% warn threshold, so warn.
	r := g.Check()
	assert.Equal(t, Warn, r.Action)

	g.UpdatePosition(market.Position{Symbol: "C", Side: market.Long, Size: 1, EntryPrice: 1000, CurrentPrice: 300})
	// C alone loses 700, which exceeds the per-position limit first.
	r = g.Check()
	assert.Equal(t, Close, r.Action)
}

func TestCheckOrderPositionBeforeTotalBeforeDrawdown(t *testing.T) {
	g := New(testLimits())
	// Craft a position loss within per-position limit but that pushes total
	// loss over its limit, to prove total-loss is checked after position-loss
	// and still fires when position-loss doesn't.
	g.UpdatePosition(market.Position{Symbol: "A", Side: market.Long, Size: 1, EntryPrice: 1000, CurrentPrice: 650}) // -350, under 500 limit
	g.UpdatePosition(market.Position{Symbol: "B", Side: market.Long, Size: 1, EntryPrice: 1000, CurrentPrice: 650}) // -350, under 500 limit
	g.UpdatePosition(market.Position{Symbol: "C", Side: market.Long, Size: 1, EntryPrice: 1000, CurrentPrice: 650}) // -350, under 500 limit
	// total loss = 1050 > 1000 limit
	r := g.Check()
	assert.Equal(t, Freeze, r.Action)
	assert.Equal(t, reason.RiskTotalLossExceeded, r.Reason, "portfolio-loss freeze must carry its own code, distinct from drawdown")
}

func TestCheckConcentrationReduce(t *testing.T) {
	g := New(testLimits())
	g.UpdatePosition(market.Position{Symbol: "BTC-USD", Side: market.Long, Size: 10, EntryPrice: 100, CurrentPrice: 100})
	g.UpdatePosition(market.Position{Symbol: "ETH-USD", Side: market.Long, Size: 1, EntryPrice: 10, CurrentPrice: 10})
	// BTC-USD concentration = 1000/1010 ~ 0.99 > 0.5 limit.
	r := g.Check()
	assert.Equal(t, Reduce, r.Action)
	assert.Equal(t, reason.RiskConcentration, r.Reason)
}

func TestCheckHypotheticalRollsBackState(t *testing.T) {
	g := New(testLimits())
	g.UpdatePosition(market.Position{Symbol: "BTC-USD", Side: market.Long, Size: 1, EntryPrice: 1000, CurrentPrice: 1000})

	hyp := market.Position{Symbol: "BTC-USD", Side: market.Long, Size: 1, EntryPrice: 1000, CurrentPrice: 400}
	r := g.CheckHypothetical(hyp)
	assert.Equal(t, Close, r.Action, "hypothetical loss should be evaluated")

	// Original position must be restored afterward.
	pos := g.positions["BTC-USD"]
	assert.Equal(t, 1000.0, pos.CurrentPrice)
}

func TestCheckHypotheticalRemovesNewSymbolAfterward(t *testing.T) {
	g := New(testLimits())
	hyp := market.Position{Symbol: "NEW-USD", Side: market.Long, Size: 1, EntryPrice: 100, CurrentPrice: 100}
	g.CheckHypothetical(hyp)

	_, ok := g.positions["NEW-USD"]
	assert.False(t, ok, "a hypothetical position for a symbol with no prior state must not leak")
}

func TestRemovePositionFoldsRealizedPnL(t *testing.T) {
	g := New(testLimits())
	g.UpdatePosition(market.Position{Symbol: "BTC-USD", Side: market.Long, Size: 1, EntryPrice: 100, CurrentPrice: 110})
	g.RemovePosition("BTC-USD", 25)

	summary := g.Summary()
	assert.Equal(t, 25.0, summary.RealizedPnL)
	assert.Equal(t, 0, summary.NumPositions)
}

func TestSummaryTracksCounts(t *testing.T) {
	g := New(testLimits())
	g.Check()
	g.Check()
	g.UpdatePosition(market.Position{Symbol: "BTC-USD", Side: market.Long, Size: 1, EntryPrice: 1000, CurrentPrice: 400})
	g.Check()

	summary := g.Summary()
	assert.Equal(t, int64(3), summary.TotalChecks)
	assert.Equal(t, int64(1), summary.Violations)
}

func TestWarnThresholdDefaultsTo80(t *testing.T) {
	limits := testLimits()
	limits.WarnThresholdPct = 0
	g := New(limits)
	assert.Equal(t, 80.0, g.limits.WarnThresholdPct)
}
