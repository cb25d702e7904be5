// Package position implements the per-engine position book from spec §4.5:
// at most one open position per symbol, marked to market on every tick, with
// take-profit/stop-loss/time-stop exit checks driven off the position's own
// signed return.
//
// Grounded on the teacher's lot-tracking in trader.go (OpenPrice/Take/Stop
// fields, ExitRecord, the realized-P&L-net-of-fees accounting in closeLot),
// adapted from a multi-lot trailing-stop book to the spec's simpler
// at-most-one-position invariant.
package position

import (
	"fmt"

	"hftcore/internal/market"
	"hftcore/internal/reason"
)

// ExitReason is why check_exit recommends closing a position.
type ExitReason string

const (
	TakeProfit ExitReason = "take_profit"
	StopLoss   ExitReason = "stop_loss"
	TimeStop   ExitReason = "time_stop"
	RiskClose  ExitReason = "risk_limit"
)

// ExitCheck is check_exit's contract output.
type ExitCheck struct {
	ShouldExit bool
	Reason     ExitReason
}

// Book is a single engine's position book: at most one Position per symbol.
type Book struct {
	positions    map[string]market.Position
	timeStopSec  float64 // 0 disables the time-stop check
}

// NewBook constructs an empty Book. timeStopSec of 0 disables the time-stop
// exit check entirely.
func NewBook(timeStopSec float64) *Book {
	return &Book{
		positions:   make(map[string]market.Position),
		timeStopSec: timeStopSec,
	}
}

// Open inserts a new position for symbol. Returns an error carrying
// reason.SignalDuplicate if a position is already open for that symbol —
// the book enforces at-most-one-open invariant from spec §4.5.
func (b *Book) Open(pos market.Position) error {
	if _, ok := b.positions[pos.Symbol]; ok {
		return &DuplicateError{Symbol: pos.Symbol}
	}
	b.positions[pos.Symbol] = pos
	return nil
}

// DuplicateError is returned by Open when a position is already open for
// the symbol; it carries reason.SignalDuplicate, per spec §4.5.
type DuplicateError struct{ Symbol string }

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("position: %s already has an open position", e.Symbol)
}

// Code returns the reason code associated with this error.
func (e *DuplicateError) Code() reason.Code { return reason.SignalDuplicate }

// Get returns the open position for symbol, if any.
func (b *Book) Get(symbol string) (market.Position, bool) {
	p, ok := b.positions[symbol]
	return p, ok
}

// MarkToMarket updates symbol's CurrentPrice. No-op if nothing is open.
func (b *Book) MarkToMarket(symbol string, price float64) {
	if p, ok := b.positions[symbol]; ok {
		b.positions[symbol] = p.MarkToMarket(price)
	}
}

// CheckExit evaluates symbol's open position (if any) against its stored
// take_profit_pct/stop_loss_pct and, if configured, a time-stop — measured
// against now, the tick's own LocalTimestamp, never wall-clock.
func (b *Book) CheckExit(symbol string, price, now float64) ExitCheck {
	pos, ok := b.positions[symbol]
	if !ok {
		return ExitCheck{}
	}

	ret := pos.SignedReturn(price)
	if pos.TakeProfitPct > 0 && ret >= pos.TakeProfitPct {
		return ExitCheck{ShouldExit: true, Reason: TakeProfit}
	}
	if pos.StopLossPct > 0 && ret <= -pos.StopLossPct {
		return ExitCheck{ShouldExit: true, Reason: StopLoss}
	}
	if b.timeStopSec > 0 && (now-pos.OpenedAtTick) >= b.timeStopSec {
		return ExitCheck{ShouldExit: true, Reason: TimeStop}
	}
	return ExitCheck{}
}

// Close removes symbol's position and returns its realized P&L at the given
// exit price: (exitPrice - entry)*size*side-sign, independent of any interim
// mark-to-market calls (spec §8 testable property 6).
func (b *Book) Close(symbol string, exitPrice float64) (realizedPnL float64, err error) {
	pos, ok := b.positions[symbol]
	if !ok {
		return 0, fmt.Errorf("position: no open position for %s", symbol)
	}
	realizedPnL = pos.Side.Sign() * (exitPrice - pos.EntryPrice) * pos.Size
	delete(b.positions, symbol)
	return realizedPnL, nil
}

// Len reports the number of currently open positions, used by tests
// asserting the at-most-one-per-symbol invariant across the whole book.
func (b *Book) Len() int {
	return len(b.positions)
}

// Symbols returns every symbol with a currently open position.
func (b *Book) Symbols() []string {
	out := make([]string, 0, len(b.positions))
	for s := range b.positions {
		out = append(out, s)
	}
	return out
}
