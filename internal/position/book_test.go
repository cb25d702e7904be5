package position

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hftcore/internal/market"
	"hftcore/internal/reason"
)

func TestOpenRejectsDuplicate(t *testing.T) {
	b := NewBook(0)
	pos := market.Position{Symbol: "BTC-USD", Side: market.Long, Size: 1, EntryPrice: 100}

	assert.NoError(t, b.Open(pos))

	err := b.Open(pos)
	assert.Error(t, err)

	var dupErr *DuplicateError
	assert.ErrorAs(t, err, &dupErr)
	assert.Equal(t, reason.SignalDuplicate, dupErr.Code())
}

func TestMarkToMarketUpdatesPrice(t *testing.T) {
	b := NewBook(0)
	b.Open(market.Position{Symbol: "BTC-USD", Side: market.Long, Size: 1, EntryPrice: 100, CurrentPrice: 100})
	b.MarkToMarket("BTC-USD", 105)

	p, ok := b.Get("BTC-USD")
	assert.True(t, ok)
	assert.Equal(t, 105.0, p.CurrentPrice)
}

func TestMarkToMarketNoOpWhenNothingOpen(t *testing.T) {
	b := NewBook(0)
	b.MarkToMarket("BTC-USD", 105) // must not panic
	_, ok := b.Get("BTC-USD")
	assert.False(t, ok)
}

func TestCheckExitTakeProfit(t *testing.T) {
	b := NewBook(0)
	b.Open(market.Position{Symbol: "BTC-USD", Side: market.Long, EntryPrice: 100, TakeProfitPct: 0.05})

	res := b.CheckExit("BTC-USD", 106, 0)
	assert.True(t, res.ShouldExit)
	assert.Equal(t, TakeProfit, res.Reason)
}

func TestCheckExitStopLoss(t *testing.T) {
	b := NewBook(0)
	b.Open(market.Position{Symbol: "BTC-USD", Side: market.Long, EntryPrice: 100, StopLossPct: 0.05})

	res := b.CheckExit("BTC-USD", 94, 0)
	assert.True(t, res.ShouldExit)
	assert.Equal(t, StopLoss, res.Reason)
}

func TestCheckExitTimeStop(t *testing.T) {
	b := NewBook(60)
	b.Open(market.Position{Symbol: "BTC-USD", Side: market.Long, EntryPrice: 100, OpenedAtTick: 1000})

	res := b.CheckExit("BTC-USD", 100, 1061)
	assert.True(t, res.ShouldExit)
	assert.Equal(t, TimeStop, res.Reason)
}

func TestCheckExitNoneWhenWithinBounds(t *testing.T) {
	b := NewBook(60)
	b.Open(market.Position{Symbol: "BTC-USD", Side: market.Long, EntryPrice: 100, TakeProfitPct: 0.05, StopLossPct: 0.05, OpenedAtTick: 1000})

	res := b.CheckExit("BTC-USD", 102, 1010)
	assert.False(t, res.ShouldExit)
}

func TestCheckExitNothingOpenIsNoExit(t *testing.T) {
	b := NewBook(0)
	res := b.CheckExit("BTC-USD", 100, 0)
	assert.False(t, res.ShouldExit)
}

func TestCloseComputesRealizedPnLAndRemoves(t *testing.T) {
	b := NewBook(0)
	b.Open(market.Position{Symbol: "BTC-USD", Side: market.Long, Size: 2, EntryPrice: 100})

	pnl, err := b.Close("BTC-USD", 110)
	assert.NoError(t, err)
	assert.Equal(t, 20.0, pnl)

	_, ok := b.Get("BTC-USD")
	assert.False(t, ok)
	assert.Equal(t, 0, b.Len())
}

func TestCloseIgnoresInterimMarkToMarket(t *testing.T) {
	b := NewBook(0)
	b.Open(market.Position{Symbol: "BTC-USD", Side: market.Long, Size: 1, EntryPrice: 100})
	b.MarkToMarket("BTC-USD", 500) // interim mark should not affect realized P&L

	pnl, err := b.Close("BTC-USD", 110)
	assert.NoError(t, err)
	assert.Equal(t, 10.0, pnl)
}

func TestCloseErrorsWhenNothingOpen(t *testing.T) {
	b := NewBook(0)
	_, err := b.Close("BTC-USD", 100)
	assert.Error(t, err)
}

func TestSymbolsAndLen(t *testing.T) {
	b := NewBook(0)
	b.Open(market.Position{Symbol: "BTC-USD", Side: market.Long, EntryPrice: 100})
	b.Open(market.Position{Symbol: "ETH-USD", Side: market.Short, EntryPrice: 10})

	assert.Equal(t, 2, b.Len())
	assert.ElementsMatch(t, []string{"BTC-USD", "ETH-USD"}, b.Symbols())
}
