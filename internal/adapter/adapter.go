// Package adapter defines the exchange-adapter boundary from spec §6: the
// engine core never imports a concrete exchange client, it is injected.
// Network I/O, WebSocket framing, and CCXT-equivalent wrapping are
// explicitly out of scope for this core (spec §1) — this package only
// names the contract a live driver's concrete adapter must satisfy.
//
// Grounded on the teacher's broker.go Broker interface (context.Context on
// every blocking call, a normalized result type with explicit fields
// instead of the exchange's raw JSON shape), reshaped to the spec's
// connect/subscribe/place_order/cancel/balance surface rather than the
// teacher's bot-specific price/candle/post-only-limit methods.
package adapter

import (
	"context"

	"hftcore/internal/feemodel"
	"hftcore/internal/market"
)

// Adapter is the live-trading collaborator the core calls into at its
// boundary (spec §6). cmd/live constructs a concrete implementation and
// injects it into the engine; internal/engine and everything below it
// never imports this package's concrete implementations, only this
// interface, and only when cfg.PaperTrading is false.
type Adapter interface {
	// Connect establishes the adapter's session (auth, handshake). Called
	// once before the first Subscribe.
	Connect(ctx context.Context) error

	// Subscribe returns a channel of ticks for symbol. The channel is
	// closed when the underlying feed ends or ctx is cancelled; the core
	// drains it on its own schedule and never blocks the adapter's
	// producer goroutine (spec §9's message-passing boundary).
	Subscribe(ctx context.Context, symbol string) (<-chan market.Tick, error)

	// PlaceOrder submits req to the exchange and returns the resulting
	// fill. Unlike feemodel.Model.SimulateFill, this may fail (rejection,
	// disconnect) — callers treat a non-nil error as an external
	// collaborator failure per spec §7, not an internal invariant failure.
	PlaceOrder(ctx context.Context, req feemodel.OrderRequest) (feemodel.FillResult, error)

	// Cancel requests cancellation of a previously placed order.
	Cancel(ctx context.Context, orderID string) error

	// Balance returns the available amount of asset.
	Balance(ctx context.Context, asset string) (float64, error)
}
