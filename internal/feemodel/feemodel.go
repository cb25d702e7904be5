// Package feemodel implements the deterministic fee and fill simulator from
// spec §4.2: a pure function of its inputs, no RNG anywhere, so identical
// orders and books produce bit-identical fills.
//
// Grounded on original_source/backend/core/deterministic_fee_model.py for
// the fee-table values and overall shape; the maker/taker classification for
// limit orders follows spec.md §4.2 rather than the Python original, which
// always treats a limit order as maker — the spec instead crosses a limit
// order against a supplied top-of-book when it would execute immediately.
//
// Money fields use shopspring/decimal (SPEC_FULL.md DOMAIN STACK); rates and
// basis points stay float64 since they are not currency amounts.
package feemodel

import (
	"fmt"

	"github.com/shopspring/decimal"

	"hftcore/internal/market"
)

// Exchange selects which fee table simulate_fill uses.
type Exchange string

const (
	Binance Exchange = "binance"
	Kraken  Exchange = "kraken"
	OKX     Exchange = "okx"
)

// FeeTable is a single exchange's maker/taker rates and minimum fee.
type FeeTable struct {
	Exchange  Exchange
	MakerRate float64
	TakerRate float64
	MinFee    decimal.Decimal
}

// Tables holds the three reference exchanges from spec §4.2.
var Tables = map[Exchange]FeeTable{
	Binance: {Exchange: Binance, MakerRate: 0.0010, TakerRate: 0.0010, MinFee: decimal.Zero},
	Kraken:  {Exchange: Kraken, MakerRate: 0.0016, TakerRate: 0.0026, MinFee: decimal.Zero},
	OKX:     {Exchange: OKX, MakerRate: 0.0008, TakerRate: 0.0010, MinFee: decimal.Zero},
}

// DefaultCrossingSpreadBps is added to (buys) or subtracted from (sells) the
// reference price for a market order with no top-of-book supplied.
const DefaultCrossingSpreadBps = 5.0

// BookQuote is the top-of-book the fill model crosses limit/market orders
// against. Both fields are market data, so they stay float64 like Tick.
type BookQuote struct {
	Bid float64
	Ask float64
}

// OrderRequest is the input to simulate_fill, per spec §3. Price is the
// limit price for a limit order, or the reference price for a market order.
type OrderRequest struct {
	ClientID string
	Symbol   string
	Side     market.OrderSide
	Type     market.OrderType
	Price    decimal.Decimal
	Size     decimal.Decimal
}

// FillResult is the deterministic output of simulate_fill, per spec §3.
type FillResult struct {
	ClientID      string
	Symbol        string
	Side          market.OrderSide
	Type          market.OrderType
	OrderPrice    decimal.Decimal
	FillPrice     decimal.Decimal
	Size          decimal.Decimal
	IsMaker       bool
	SlippageBps   float64
	SlippageCash  decimal.Decimal
	FeeRate       float64
	FeeCash       decimal.Decimal
	TotalCostCash decimal.Decimal
	ExecutionMs   float64
	Timestamp     float64
}

// Model simulates fills against one exchange's fee table.
type Model struct {
	table FeeTable
}

// New returns a Model for exchange. Panics if exchange is not one of the
// three reference tables — callers should validate configuration up front.
func New(exchange Exchange) *Model {
	t, ok := Tables[exchange]
	if !ok {
		panic(fmt.Sprintf("feemodel: unknown exchange %q", exchange))
	}
	return &Model{table: t}
}

// SimulateFill is the pure function from spec §4.2. executionMs and
// timestamp are supplied by the caller (the engine's own tick-domain clock,
// per SPEC_FULL.md Open Questions #2) rather than read from a wall clock
// here, so repeated calls with identical arguments are bit-identical.
func (m *Model) SimulateFill(req OrderRequest, book *BookQuote, executionMs, timestamp float64) FillResult {
	isMaker, fillPrice := m.fillPrice(req, book)

	slippageBps, slippageCash := slippage(req.Price, fillPrice, req.Size, req.Side)

	feeRate := m.table.MakerRate
	if !isMaker {
		feeRate = m.table.TakerRate
	}
	orderValue := fillPrice.Mul(req.Size)
	feeCash := orderValue.Mul(decimal.NewFromFloat(feeRate))
	if feeCash.LessThan(m.table.MinFee) {
		feeCash = m.table.MinFee
	}

	var totalCost decimal.Decimal
	if req.Side == market.Buy {
		totalCost = slippageCash.Add(feeCash)
	} else {
		totalCost = feeCash.Sub(slippageCash)
	}

	return FillResult{
		ClientID:      req.ClientID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		OrderPrice:    req.Price,
		FillPrice:     fillPrice,
		Size:          req.Size,
		IsMaker:       isMaker,
		SlippageBps:   slippageBps,
		SlippageCash:  slippageCash,
		FeeRate:       feeRate,
		FeeCash:       feeCash,
		TotalCostCash: totalCost,
		ExecutionMs:   executionMs,
		Timestamp:     timestamp,
	}
}

// fillPrice determines maker/taker classification and fill price, per
// spec §4.2: market orders are always taker; a limit order crosses
// (taker, at the crossing side) when a top-of-book is supplied and the
// limit would execute immediately, otherwise it rests as maker at its
// own price.
func (m *Model) fillPrice(req OrderRequest, book *BookQuote) (isMaker bool, fillPrice decimal.Decimal) {
	refPrice, _ := req.Price.Float64()

	if req.Type == market.Market {
		if book != nil {
			if req.Side == market.Buy {
				return false, decimal.NewFromFloat(book.Ask)
			}
			return false, decimal.NewFromFloat(book.Bid)
		}
		sign := 1.0
		if req.Side == market.Sell {
			sign = -1.0
		}
		return false, decimal.NewFromFloat(refPrice * (1 + sign*DefaultCrossingSpreadBps/10000))
	}

	// Limit order.
	if book != nil {
		if req.Side == market.Buy && refPrice >= book.Ask {
			return false, decimal.NewFromFloat(book.Ask)
		}
		if req.Side == market.Sell && refPrice <= book.Bid {
			return false, decimal.NewFromFloat(book.Bid)
		}
	}
	return true, req.Price
}

// slippage computes the signed bps deviation (positive = adverse) and the
// absolute cash deviation of fillPrice from orderPrice.
func slippage(orderPrice, fillPrice decimal.Decimal, size decimal.Decimal, side market.OrderSide) (bps float64, cash decimal.Decimal) {
	op, _ := orderPrice.Float64()
	fp, _ := fillPrice.Float64()
	if op == 0 {
		return 0, decimal.Zero
	}
	if side == market.Buy {
		bps = (fp - op) / op * 10000
	} else {
		bps = (op - fp) / op * 10000
	}
	cash = fillPrice.Sub(orderPrice).Abs().Mul(size)
	return bps, cash
}

// CompareExchanges runs SimulateFill for req across all three reference
// exchanges, for offline cost comparison (original_source's
// compare_exchanges, SPEC_FULL.md Supplemented Features).
func CompareExchanges(req OrderRequest, book *BookQuote, executionMs, timestamp float64) map[Exchange]FillResult {
	out := make(map[Exchange]FillResult, len(Tables))
	for ex := range Tables {
		out[ex] = New(ex).SimulateFill(req, book, executionMs, timestamp)
	}
	return out
}
