package feemodel

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"hftcore/internal/market"
)

func TestSimulateFillMarketBuyIsTaker(t *testing.T) {
	m := New(Binance)
	req := OrderRequest{
		Symbol: "BTC-USD", Side: market.Buy, Type: market.Market,
		Price: decimal.NewFromFloat(100), Size: decimal.NewFromFloat(1),
	}
	book := &BookQuote{Bid: 99.9, Ask: 100.1}

	fill := m.SimulateFill(req, book, 5, 1000)

	assert.False(t, fill.IsMaker)
	assert.True(t, fill.FillPrice.Equal(decimal.NewFromFloat(100.1)))
	assert.Equal(t, Tables[Binance].TakerRate, fill.FeeRate)
}

func TestSimulateFillLimitRestsAsMakerWhenNotCrossing(t *testing.T) {
	m := New(Binance)
	req := OrderRequest{
		Symbol: "BTC-USD", Side: market.Buy, Type: market.Limit,
		Price: decimal.NewFromFloat(99.5), Size: decimal.NewFromFloat(1),
	}
	book := &BookQuote{Bid: 99.9, Ask: 100.1}

	fill := m.SimulateFill(req, book, 0, 0)

	assert.True(t, fill.IsMaker)
	assert.True(t, fill.FillPrice.Equal(decimal.NewFromFloat(99.5)))
	assert.Equal(t, Tables[Binance].MakerRate, fill.FeeRate)
}

func TestSimulateFillLimitCrossesBecomesTaker(t *testing.T) {
	m := New(Binance)
	req := OrderRequest{
		Symbol: "BTC-USD", Side: market.Buy, Type: market.Limit,
		Price: decimal.NewFromFloat(100.5), Size: decimal.NewFromFloat(1),
	}
	book := &BookQuote{Bid: 99.9, Ask: 100.1}

	fill := m.SimulateFill(req, book, 0, 0)

	assert.False(t, fill.IsMaker, "a buy limit at or above the ask must cross immediately")
	assert.True(t, fill.FillPrice.Equal(decimal.NewFromFloat(100.1)))
}

func TestSimulateFillSellLimitCrossesAtBid(t *testing.T) {
	m := New(Binance)
	req := OrderRequest{
		Symbol: "BTC-USD", Side: market.Sell, Type: market.Limit,
		Price: decimal.NewFromFloat(99.5), Size: decimal.NewFromFloat(1),
	}
	book := &BookQuote{Bid: 99.9, Ask: 100.1}

	fill := m.SimulateFill(req, book, 0, 0)

	assert.False(t, fill.IsMaker)
	assert.True(t, fill.FillPrice.Equal(decimal.NewFromFloat(99.9)))
}

func TestSimulateFillMarketOrderNoBookUsesDefaultSpread(t *testing.T) {
	m := New(Binance)
	req := OrderRequest{
		Symbol: "BTC-USD", Side: market.Buy, Type: market.Market,
		Price: decimal.NewFromFloat(100), Size: decimal.NewFromFloat(1),
	}

	fill := m.SimulateFill(req, nil, 0, 0)

	expected := 100 * (1 + DefaultCrossingSpreadBps/10000)
	got, _ := fill.FillPrice.Float64()
	assert.InDelta(t, expected, got, 1e-9)
}

func TestSimulateFillIsDeterministic(t *testing.T) {
	m := New(Kraken)
	req := OrderRequest{
		Symbol: "ETH-USD", Side: market.Sell, Type: market.Market,
		Price: decimal.NewFromFloat(2000), Size: decimal.NewFromFloat(3),
	}
	book := &BookQuote{Bid: 1999, Ask: 2001}

	a := m.SimulateFill(req, book, 10, 500)
	b := m.SimulateFill(req, book, 10, 500)

	assert.Equal(t, a, b, "identical inputs must produce a bit-identical fill")
}

func TestSimulateFillMinFeeApplied(t *testing.T) {
	table := Tables[Binance]
	table.MinFee = decimal.NewFromFloat(5)
	Tables[Binance] = table
	defer func() {
		table.MinFee = decimal.Zero
		Tables[Binance] = table
	}()

	m := New(Binance)
	req := OrderRequest{
		Symbol: "BTC-USD", Side: market.Buy, Type: market.Market,
		Price: decimal.NewFromFloat(1), Size: decimal.NewFromFloat(0.001),
	}
	fill := m.SimulateFill(req, nil, 0, 0)

	assert.True(t, fill.FeeCash.Equal(decimal.NewFromFloat(5)), "fee below the table minimum must be floored to MinFee")
}

func TestCompareExchangesCoversAllTables(t *testing.T) {
	req := OrderRequest{
		Symbol: "BTC-USD", Side: market.Buy, Type: market.Market,
		Price: decimal.NewFromFloat(100), Size: decimal.NewFromFloat(1),
	}
	results := CompareExchanges(req, &BookQuote{Bid: 99.9, Ask: 100.1}, 0, 0)

	assert.Len(t, results, len(Tables))
	for ex := range Tables {
		_, ok := results[ex]
		assert.True(t, ok, "missing result for exchange %s", ex)
	}
}

func TestNewUnknownExchangePanics(t *testing.T) {
	assert.Panics(t, func() { New(Exchange("nope")) })
}
