package engine

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"hftcore/internal/feemodel"
	"hftcore/internal/market"
	"hftcore/internal/reason"
	"hftcore/internal/strategy"
	"hftcore/internal/tca"
	"hftcore/internal/wal"
)

// fixedStrategy returns sig on every OnTick call and counts how many times
// it was invoked, letting tests assert the engine never drives strategies
// while not Running.
type fixedStrategy struct {
	id    string
	sig   *strategy.Signal
	calls int
}

func (s *fixedStrategy) ID() string { return s.id }
func (s *fixedStrategy) OnTick(t market.Tick) *strategy.Signal {
	s.calls++
	return s.sig
}

func baseEngineConfig() Config {
	return Config{
		Symbol:               "BTC-USD",
		InitialCapital:       10000,
		Exchange:             feemodel.Binance,
		MaxLatencyMs:         0,
		MaxDataAgeSec:        math.Inf(1),
		MaxSpreadBps:         0,
		TickSize:             0,
		MaxPositionLossPct:   5,
		MaxTotalLossPct:      10,
		MaxDrawdownPct:       15,
		MaxConcentration:     1.0,
		WarnThresholdPct:     80,
		TimeStopSec:          0,
		PaperTrading:         true,
		MaxConsecutiveErrors: 5,
	}
}

func TestStartResumeStopStateMachine(t *testing.T) {
	e := New(baseEngineConfig(), nil, nil, nil, nil)
	assert.Equal(t, Idle, e.State())

	assert.NoError(t, e.Start(0))
	assert.Equal(t, Running, e.State())
	assert.Error(t, e.Start(0), "cannot start twice")

	assert.Error(t, e.Resume(0), "cannot resume from running")

	assert.NoError(t, e.Stop(0))
	assert.Equal(t, Stopped, e.State())
	assert.Error(t, e.Stop(0), "cannot stop twice")
}

func TestProcessTickIgnoredWhenNotRunning(t *testing.T) {
	stub := &fixedStrategy{id: "stub"}
	mgr := strategy.NewManager(0)
	mgr.Register("stub", stub, 0.33)

	e := New(baseEngineConfig(), nil, nil, mgr, nil)
	e.ProcessTick(market.Tick{Symbol: "BTC-USD", Bid: 99.9, Ask: 100.1}, 0)

	assert.Equal(t, 0, stub.calls, "a non-Running engine must never drive strategies")
}

func TestProcessTickFreezesOnStaleTick(t *testing.T) {
	cfg := baseEngineConfig()
	cfg.MaxDataAgeSec = 1
	e := New(cfg, nil, nil, strategy.NewManager(0), nil)
	assert.NoError(t, e.Start(0))

	e.ProcessTick(market.Tick{Symbol: "BTC-USD", Bid: 99.9, Ask: 100.1, LocalTimestamp: 0}, 1000)
	assert.Equal(t, Frozen, e.State())
}

func TestProcessTickRejectsCrossedQuoteWithoutFreezing(t *testing.T) {
	e := New(baseEngineConfig(), nil, nil, strategy.NewManager(0), nil)
	assert.NoError(t, e.Start(0))

	e.ProcessTick(market.Tick{Symbol: "BTC-USD", Bid: 100, Ask: 99}, 0)
	assert.Equal(t, Running, e.State(), "a rejected tick must not freeze the engine")
}

func TestProcessTickOpensAndClosesOnTakeProfit(t *testing.T) {
	sig := &strategy.Signal{
		StrategyID: "stub", Side: market.Buy, EntryPrice: 100,
		TakeProfit: 0.01, StopLoss: 0.02, Size: 0.01, Confidence: 0.7,
		ReasonCode: reason.SignalMomentum,
	}
	stub := &fixedStrategy{id: "stub", sig: sig}
	mgr := strategy.NewManager(0)
	mgr.Register("stub", stub, 0.33)

	e := New(baseEngineConfig(), nil, nil, mgr, nil)
	assert.NoError(t, e.Start(0))

	// Opening tick: mid 100, strategy proposes a buy at 100 with a 1% target.
	e.ProcessTick(market.Tick{Symbol: "BTC-USD", Bid: 99.9, Ask: 100.1}, 0)
	assert.Equal(t, Running, e.State())
	assert.Equal(t, 1, stub.calls)

	// Second tick clears the take-profit threshold (ret = 2% >= 1%).
	e.ProcessTick(market.Tick{Symbol: "BTC-USD", Bid: 101.9, Ask: 102.1}, 1)

	dash := e.Dashboard()
	assert.Len(t, dash.Strategies, 1)
	assert.Equal(t, 1, dash.Strategies[0].TradesExecuted, "the position must have closed and recorded an outcome")
	assert.Greater(t, dash.Strategies[0].RevenueGenerated, 0.0, "a take-profit exit should realize a positive PnL")

	outcome := e.Tracker().Outcome(reason.SignalMomentum)
	assert.Equal(t, 1, outcome.Count)

	// The position is gone, so a third tick must look for a fresh open signal
	// instead of checking an exit — proven by the strategy being polled again.
	e.ProcessTick(market.Tick{Symbol: "BTC-USD", Bid: 99.9, Ask: 100.1}, 2)
	assert.Equal(t, 2, stub.calls)
}

func TestProcessTickDuplicateOpenIsIgnored(t *testing.T) {
	sig := &strategy.Signal{
		StrategyID: "stub", Side: market.Buy, EntryPrice: 100,
		TakeProfit: 0.5, StopLoss: 0.5, Size: 0.01, Confidence: 0.7,
		ReasonCode: reason.SignalMomentum,
	}
	stub := &fixedStrategy{id: "stub", sig: sig}
	mgr := strategy.NewManager(0)
	mgr.Register("stub", stub, 0.33)

	e := New(baseEngineConfig(), nil, nil, mgr, nil)
	assert.NoError(t, e.Start(0))

	e.ProcessTick(market.Tick{Symbol: "BTC-USD", Bid: 99.9, Ask: 100.1}, 0)
	dash := e.Dashboard()
	assert.Equal(t, 0, dash.Strategies[0].TradesExecuted, "position is open, not yet closed")

	// With a wide 50% take-profit/stop-loss the position never exits on its
	// own, so a following tick at the same symbol must go through the
	// mark-to-market/CheckExit branch rather than attempting to re-open.
	e.ProcessTick(market.Tick{Symbol: "BTC-USD", Bid: 99.9, Ask: 100.1}, 1)
	assert.Equal(t, 1, stub.calls, "once a position is open, OnTick is no longer polled for that symbol")
}

func TestProcessTickClosesOnPositionLossLimitBreach(t *testing.T) {
	sig := &strategy.Signal{
		StrategyID: "stub", Side: market.Buy, EntryPrice: 100,
		TakeProfit: 0.9, StopLoss: 0.9, Size: 10, Confidence: 0.7,
		ReasonCode: reason.SignalMomentum,
	}
	stub := &fixedStrategy{id: "stub", sig: sig}
	mgr := strategy.NewManager(0)
	mgr.Register("stub", stub, 0.33)

	e := New(baseEngineConfig(), nil, nil, mgr, nil)
	assert.NoError(t, e.Start(0))

	e.ProcessTick(market.Tick{Symbol: "BTC-USD", Bid: 99.9, Ask: 100.1}, 0)
	assert.Equal(t, Running, e.State())

	// Price craters to 40: loss = (40-100)*10 = -600, exceeding the $500
	// max_position_loss_pct limit (5% of the $10000 initial capital) while
	// staying well inside the wide 90% stop-loss, so the DRB guard's own
	// close must fire ahead of (and instead of) the book's stop-loss check.
	e.ProcessTick(market.Tick{Symbol: "BTC-USD", Bid: 39.9, Ask: 40.1}, 1)

	dash := e.Dashboard()
	assert.Equal(t, 1, dash.Strategies[0].TradesExecuted, "a DRB close must still record a strategy outcome")
	assert.Less(t, dash.Strategies[0].RevenueGenerated, 0.0)

	outcome := e.Tracker().Outcome(reason.RiskLimitExceeded)
	assert.Equal(t, 1, outcome.Count, "the close must be attributed to the position-loss risk code, not a stop-loss")

	rs := e.RiskSummary()
	assert.Equal(t, 0, rs.NumPositions, "the position must be removed from book and guard after a risk-driven close")
}

func TestRecoverReconstructsClosedTradeIntoRealizedPnL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.jsonl")
	w1, err := wal.Open(path, wal.Options{})
	assert.NoError(t, err)

	sig := &strategy.Signal{
		StrategyID: "stub", Side: market.Buy, EntryPrice: 100,
		TakeProfit: 0.01, StopLoss: 0.02, Size: 0.01, Confidence: 0.7,
		ReasonCode: reason.SignalMomentum,
	}
	stub := &fixedStrategy{id: "stub", sig: sig}
	mgr := strategy.NewManager(0)
	mgr.Register("stub", stub, 0.33)

	e1 := New(baseEngineConfig(), w1, nil, mgr, nil)
	assert.NoError(t, e1.Start(0))
	e1.ProcessTick(market.Tick{Symbol: "BTC-USD", Bid: 99.9, Ask: 100.1}, 0)
	// Clears the 1% take-profit threshold, writing a matching "close"
	// execution entry for the "open" one.
	e1.ProcessTick(market.Tick{Symbol: "BTC-USD", Bid: 101.9, Ask: 102.1}, 1)
	assert.NoError(t, w1.Close())

	w2, err := wal.Open(path, wal.Options{})
	assert.NoError(t, err)
	e2 := New(baseEngineConfig(), w2, nil, nil, nil)

	report, err := e2.Recover()
	assert.NoError(t, err)
	assert.Greater(t, report.EntriesReplayed, 0)
	assert.Equal(t, 0, report.OpenPositions, "the position already closed before the restart")
	assert.Greater(t, report.RealizedPnL, 0.0, "a take-profit close must reconstruct a positive realized pnl")

	rs := e2.RiskSummary()
	assert.Equal(t, 0, rs.NumPositions)
	assert.InDelta(t, report.RealizedPnL, rs.RealizedPnL, 1e-9)
}

func TestRecoverReconstructsOpenPositionWithNoMatchingClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.jsonl")
	w1, err := wal.Open(path, wal.Options{})
	assert.NoError(t, err)

	sig := &strategy.Signal{
		StrategyID: "stub", Side: market.Buy, EntryPrice: 100,
		TakeProfit: 0.5, StopLoss: 0.5, Size: 0.01, Confidence: 0.7,
		ReasonCode: reason.SignalMomentum,
	}
	stub := &fixedStrategy{id: "stub", sig: sig}
	mgr := strategy.NewManager(0)
	mgr.Register("stub", stub, 0.33)

	e1 := New(baseEngineConfig(), w1, nil, mgr, nil)
	assert.NoError(t, e1.Start(0))
	e1.ProcessTick(market.Tick{Symbol: "BTC-USD", Bid: 99.9, Ask: 100.1}, 0)
	// Crash: the engine is torn down with the position still open — no
	// "close" execution entry is ever written.
	assert.NoError(t, w1.Close())

	w2, err := wal.Open(path, wal.Options{})
	assert.NoError(t, err)
	e2 := New(baseEngineConfig(), w2, nil, nil, nil)

	report, err := e2.Recover()
	assert.NoError(t, err)
	assert.Equal(t, 1, report.OpenPositions)
	assert.Equal(t, 0.0, report.RealizedPnL, "nothing has closed yet")

	rs := e2.RiskSummary()
	assert.Equal(t, 1, rs.NumPositions, "the open position must be reattached to the risk guard on recovery")
}

func TestRiskSummaryAndTCASummaryReflectState(t *testing.T) {
	e := New(baseEngineConfig(), nil, nil, strategy.NewManager(0), nil)
	rs := e.RiskSummary()
	assert.Equal(t, 10000.0, rs.InitialCapital)

	ts := e.TCASummary()
	assert.Equal(t, tca.Summary{}, ts, "a fresh engine has no TCA reports yet")
}
