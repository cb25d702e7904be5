package adapter

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"hftcore/internal/feemodel"
	"hftcore/internal/market"
)

func TestConnectIsNoOp(t *testing.T) {
	p := NewPaperAdapter()
	assert.NoError(t, p.Connect(context.Background()))
}

func TestSubscribeReturnsClosedChannel(t *testing.T) {
	p := NewPaperAdapter()
	ch, err := p.Subscribe(context.Background(), "BTC-USD")
	assert.NoError(t, err)

	_, open := <-ch
	assert.False(t, open, "a PaperAdapter has no feed of its own")
}

func TestPlaceOrderWithoutPriceErrors(t *testing.T) {
	p := NewPaperAdapter()
	req := feemodel.OrderRequest{
		Symbol: "BTC-USD", Side: market.Buy, Type: market.Market,
		Price: decimal.NewFromFloat(100), Size: decimal.NewFromFloat(1),
	}
	_, err := p.PlaceOrder(context.Background(), req)
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestPlaceOrderFillsAtLastRecordedPrice(t *testing.T) {
	p := NewPaperAdapter()
	p.SetPrice("BTC-USD", 50000)

	req := feemodel.OrderRequest{
		Symbol: "BTC-USD", Side: market.Buy, Type: market.Market,
		Price: decimal.NewFromFloat(50000), Size: decimal.NewFromFloat(1),
	}
	fill, err := p.PlaceOrder(context.Background(), req)
	assert.NoError(t, err)
	assert.True(t, fill.FillPrice.Equal(decimal.NewFromFloat(50000)))
	assert.NotEmpty(t, fill.ClientID, "PlaceOrder stamps a fresh client ID onto every fill")
}

func TestPlaceOrderIgnoresNonPositivePrice(t *testing.T) {
	p := NewPaperAdapter()
	p.SetPrice("BTC-USD", 0)

	req := feemodel.OrderRequest{
		Symbol: "BTC-USD", Side: market.Buy, Type: market.Market,
		Price: decimal.NewFromFloat(100), Size: decimal.NewFromFloat(1),
	}
	_, err := p.PlaceOrder(context.Background(), req)
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestCancelIsUnsupported(t *testing.T) {
	p := NewPaperAdapter()
	err := p.Cancel(context.Background(), "some-order-id")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestBalanceAlwaysZero(t *testing.T) {
	p := NewPaperAdapter()
	bal, err := p.Balance(context.Background(), "USD")
	assert.NoError(t, err)
	assert.Equal(t, 0.0, bal)
}
