package adapter

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"hftcore/internal/feemodel"
	"hftcore/internal/market"
)

// ErrNoPrice is returned by PaperAdapter.PlaceOrder when no price has been
// recorded yet for the requested symbol.
var ErrNoPrice = errors.New("adapter: no price recorded for symbol")

// ErrUnsupported is returned by PaperAdapter operations a real exchange
// would support but an in-process paper fill has no use for.
var ErrUnsupported = errors.New("adapter: unsupported on paper adapter")

// PaperAdapter is the in-process stand-in for a real exchange client,
// grounded on the teacher's broker_paper.go PaperBroker: it fills every
// order at the last price it was told about and never touches the network.
// cmd/live wires this in place of a real adapter until one exists — network
// I/O and exchange-specific wire formats remain out of scope for this core
// (spec §1).
type PaperAdapter struct {
	mu        sync.Mutex
	lastPrice map[string]float64
}

// NewPaperAdapter returns an empty PaperAdapter.
func NewPaperAdapter() *PaperAdapter {
	return &PaperAdapter{lastPrice: make(map[string]float64)}
}

// SetPrice updates the last-known price for symbol, the same role
// broker_paper.go's price field plays for PlaceMarketQuote.
func (p *PaperAdapter) SetPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastPrice[symbol] = price
}

// Connect is a no-op; a PaperAdapter has no session to establish.
func (p *PaperAdapter) Connect(ctx context.Context) error { return nil }

// Subscribe returns a channel that is closed immediately: a PaperAdapter has
// no market-data feed of its own, matching broker_paper.go's
// GetRecentCandles, which refuses the request rather than fabricating data.
// cmd/live reads its ticks from this channel, so with a PaperAdapter its
// tick loop ends as soon as it starts.
func (p *PaperAdapter) Subscribe(ctx context.Context, symbol string) (<-chan market.Tick, error) {
	ch := make(chan market.Tick)
	close(ch)
	return ch, nil
}

// PlaceOrder fills req at the last price recorded for req.Symbol via
// SetPrice, running feemodel's SimulateFill with the Binance fee table
// against a zero-width book at that price. The engine's own simulation uses
// the configured exchange and the tick's bid/ask, so the two fill prices
// and fees can differ.
func (p *PaperAdapter) PlaceOrder(ctx context.Context, req feemodel.OrderRequest) (feemodel.FillResult, error) {
	p.mu.Lock()
	price, ok := p.lastPrice[req.Symbol]
	p.mu.Unlock()
	if !ok || price <= 0 {
		return feemodel.FillResult{}, ErrNoPrice
	}

	book := &feemodel.BookQuote{Bid: price, Ask: price}
	model := feemodel.New(feemodel.Binance)
	fill := model.SimulateFill(req, book, 0, 0)
	fill.ClientID = uuid.New().String()
	return fill, nil
}

// Cancel is unsupported: a filled-on-receipt paper adapter has nothing
// resting to cancel, mirroring broker_paper.go's CancelOrder stub.
func (p *PaperAdapter) Cancel(ctx context.Context, orderID string) error {
	return ErrUnsupported
}

// Balance always reports zero; a PaperAdapter carries no balances of its
// own distinct from the engine's own position book and risk guard.
func (p *PaperAdapter) Balance(ctx context.Context, asset string) (float64, error) {
	return 0, nil
}
