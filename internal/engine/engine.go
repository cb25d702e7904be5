// Package engine orchestrates one symbol's tick-to-fill pipeline: sanitizer,
// strategies, signal manager, risk guard, fee model, TCA, position book, WAL,
// and event bus, wired together per spec §4.9. Each engine instance owns its
// own sanitizer, position book, risk guard, fee model, TCA store, and signal
// manager; the WAL and event bus may be shared process-wide surfaces.
//
// Grounded on the teacher's step.go/trader.go tick-loop idiom (mutex-guarded
// state, explicit log.Printf breadcrumbs, fail-fast on inconsistent state),
// generalized from a single-strategy multi-lot bot into the spec's
// single-open-position-per-symbol state machine.
package engine

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"hftcore/internal/adapter"
	"hftcore/internal/eventbus"
	"hftcore/internal/feemodel"
	"hftcore/internal/market"
	"hftcore/internal/metrics"
	"hftcore/internal/position"
	"hftcore/internal/reason"
	"hftcore/internal/risk"
	"hftcore/internal/sanitizer"
	"hftcore/internal/strategy"
	"hftcore/internal/tca"
	"hftcore/internal/wal"
)

// State is the engine's lifecycle state, per spec §4.9.
type State string

const (
	Idle    State = "idle"
	Running State = "running"
	Frozen  State = "frozen"
	Stopped State = "stopped"
)

// Config is the single struct of enumerated options from spec §6.
type Config struct {
	Symbol         string
	InitialCapital float64
	Exchange       feemodel.Exchange

	MaxLatencyMs  float64
	MaxDataAgeSec float64
	MaxSpreadBps  float64
	TickSize      float64

	MaxPositionLossPct float64
	MaxTotalLossPct    float64
	MaxDrawdownPct     float64
	MaxConcentration   float64
	WarnThresholdPct   float64

	TimeStopSec float64

	WALPath        string
	WALMaxFileMB   int
	TCAMaxHistory  int

	// PaperTrading, when false, routes fills to a live adapter instead of
	// feemodel simulation (cmd/live sets it from its -live flag and injects
	// the adapter via SetAdapter).
	PaperTrading bool

	// MaxConsecutiveErrors bounds repeated internal-invariant failures before
	// the engine transitions to Stopped, per spec §7's default of 5.
	MaxConsecutiveErrors int
}

// DefaultConfig returns spec.md's stated defaults with Binance as the
// exchange, plus the WAL/TCA defaults used elsewhere in the module.
func DefaultConfig(symbol string) Config {
	return Config{
		Symbol:               symbol,
		InitialCapital:       10000,
		Exchange:             feemodel.Binance,
		MaxLatencyMs:         250,
		MaxDataAgeSec:        5,
		MaxSpreadBps:         100,
		MaxPositionLossPct:   5,
		MaxTotalLossPct:      10,
		MaxDrawdownPct:       15,
		MaxConcentration:     0.5,
		WarnThresholdPct:     80,
		TimeStopSec:          1800,
		WALMaxFileMB:         64,
		TCAMaxHistory:        10000,
		PaperTrading:         true,
		MaxConsecutiveErrors: 5,
	}
}

// Engine is a single symbol's run-to-completion tick pipeline. It owns the
// position book, risk guard, signal manager, sanitizer, fee model, TCA store,
// and WAL handle for its symbol, per spec §3's Ownership paragraph.
type Engine struct {
	mu sync.Mutex

	cfg   Config
	state State

	wal       *wal.Logger
	bus       *eventbus.Bus
	sanitizer *sanitizer.Sanitizer
	feeModel  *feemodel.Model
	tcaStore  *tca.Analyzer
	guard     *risk.Guard
	book      *position.Book
	manager   *strategy.Manager
	tracker   *reason.Tracker

	liveAdapter adapter.Adapter // used only when cfg.PaperTrading is false

	consecutiveErrors int
	orderSeq          uint64
	openStrategyID    string      // strategy that opened the current position, if any
	openReasonCode    reason.Code // reason code the current position was opened under
}

// SetAdapter injects the live-trading collaborator used in place of
// feemodel simulation once cfg.PaperTrading is false, per spec §6. Paper
// backtests never call this; cmd/live calls it once before Start.
func (e *Engine) SetAdapter(a adapter.Adapter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.liveAdapter = a
}

// New constructs an Engine in Idle state. checksum is the sanitizer's
// integrity-tag recomputation function (see package sanitizer); pass nil if
// the feed never supplies integrity tags.
func New(cfg Config, w *wal.Logger, bus *eventbus.Bus, mgr *strategy.Manager, checksum sanitizer.ChecksumFunc) *Engine {
	return &Engine{
		cfg:   cfg,
		state: Idle,
		wal:   w,
		bus:   bus,
		sanitizer: sanitizer.New(sanitizer.Config{
			MaxLatencyMs:  cfg.MaxLatencyMs,
			MaxSpreadBps:  cfg.MaxSpreadBps,
			MaxDataAgeSec: cfg.MaxDataAgeSec,
			TickSize:      cfg.TickSize,
		}, checksum),
		feeModel: feemodel.New(cfg.Exchange),
		tcaStore: tca.New(cfg.Exchange, cfg.TCAMaxHistory),
		guard: risk.New(risk.Limits{
			InitialCapital:     cfg.InitialCapital,
			MaxPositionLossPct: cfg.MaxPositionLossPct,
			MaxTotalLossPct:    cfg.MaxTotalLossPct,
			MaxDrawdownPct:     cfg.MaxDrawdownPct,
			MaxConcentration:   cfg.MaxConcentration,
			WarnThresholdPct:   cfg.WarnThresholdPct,
		}),
		book:    position.NewBook(cfg.TimeStopSec),
		manager: mgr,
		tracker: reason.NewTracker(),
	}
}

// RecoveryReport summarizes what Recover reconstructed from the WAL, for the
// caller's startup log line.
type RecoveryReport struct {
	EntriesReplayed int
	RealizedPnL     float64
	PeakEquity      float64
	OpenPositions   int
}

// openFill is the state Recover carries forward from an "open" execution
// entry until it either finds the matching "close" entry or runs out of
// entries, in which case the position is still open.
type openFill struct {
	side       market.OrderSide
	fillPrice  float64
	size       float64
	feeCash    float64
	openedAt   float64
	takeProfit float64
	stopLoss   float64
	strategyID string
	reasonCode reason.Code
}

// Recover implements spec §7's restart recovery: it replays the WAL for
// this engine's symbol, folding every open/close execution pair into
// realized P&L and peak equity, and reconstructing any position left open
// by an "open" execution entry with no matching "close" — the case of a
// crash between execution and the next close. It must run before Start, on
// an Idle engine with an empty book and a freshly constructed guard.
//
// Grounded on the teacher's trader.go loadState (restore books/equity on
// startup) and handikong-little_cex's Shard.RecoverFromWAL (replay entries
// back into domain state rather than restoring a separate snapshot format).
func (e *Engine) Recover() (RecoveryReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.wal == nil {
		return RecoveryReport{}, nil
	}

	entries, err := e.wal.Replay(nil)
	if err != nil {
		return RecoveryReport{}, fmt.Errorf("engine: replay wal: %w", err)
	}

	pending := make(map[string]openFill)
	realized := 0.0
	peak := e.cfg.InitialCapital

	for _, entry := range entries {
		if entry.EventType != wal.EventExecution {
			continue
		}
		symbol, _ := entry.Data["symbol"].(string)
		if symbol != e.cfg.Symbol {
			continue
		}

		switch stringField(entry.Data["result"]) {
		case "open":
			pending[symbol] = openFill{
				side:       parseOrderSide(stringField(entry.Data["side"])),
				fillPrice:  parseFloatField(entry.Data["fill_price"]),
				size:       parseFloatField(entry.Data["size"]),
				feeCash:    parseFloatField(entry.Data["fee_cash"]),
				openedAt:   entry.Timestamp,
				takeProfit: numberField(entry.Data["take_profit"]),
				stopLoss:   numberField(entry.Data["stop_loss"]),
				strategyID: stringField(entry.Data["strategy_id"]),
				reasonCode: reason.Code(stringField(entry.Data["reason_code"])),
			}
		case "close":
			open, ok := pending[symbol]
			if !ok {
				continue
			}
			closePrice := parseFloatField(entry.Data["fill_price"])
			closeFee := parseFloatField(entry.Data["fee_cash"])
			sign := open.side.ToPositionSide().Sign()
			realized += (closePrice-open.fillPrice)*open.size*sign - open.feeCash - closeFee
			if equity := e.cfg.InitialCapital + realized; equity > peak {
				peak = equity
			}
			delete(pending, symbol)
		}
	}

	e.guard.Restore(realized, peak)

	for symbol, open := range pending {
		pos := market.Position{
			Symbol:        symbol,
			Side:          open.side.ToPositionSide(),
			Size:          open.size,
			EntryPrice:    open.fillPrice,
			CurrentPrice:  open.fillPrice,
			OpenedAtTick:  open.openedAt,
			TakeProfitPct: open.takeProfit,
			StopLossPct:   open.stopLoss,
		}
		if err := e.book.Open(pos); err != nil {
			continue
		}
		e.guard.UpdatePosition(pos)
		e.openStrategyID = open.strategyID
		e.openReasonCode = open.reasonCode
	}

	log.Printf("[INFO] engine %s: recovered from wal: %d entries, realized_pnl=%.2f peak_equity=%.2f open_positions=%d",
		e.cfg.Symbol, len(entries), realized, peak, len(pending))

	return RecoveryReport{
		EntriesReplayed: len(entries),
		RealizedPnL:     realized,
		PeakEquity:      peak,
		OpenPositions:   len(pending),
	}, nil
}

func stringField(v interface{}) string {
	s, _ := v.(string)
	return s
}

// numberField reads a float64 written directly into the WAL's
// map[string]interface{} payload (as opposed to a decimal.Decimal's
// .String() form, which parseFloatField handles) — json.Unmarshal decodes
// every bare JSON number as float64.
func numberField(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}

func parseFloatField(v interface{}) float64 {
	f, err := strconv.ParseFloat(stringField(v), 64)
	if err != nil {
		return 0
	}
	return f
}

func parseOrderSide(s string) market.OrderSide {
	if s == "sell" {
		return market.Sell
	}
	return market.Buy
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start transitions Idle → Running, per spec §4.9's state diagram.
func (e *Engine) Start(now float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Idle {
		return fmt.Errorf("engine: cannot start from state %s", e.state)
	}
	return e.transitionLocked(Running, now, reason.SystemStartup, "engine start")
}

// Resume transitions Frozen → Running (operator action).
func (e *Engine) Resume(now float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Frozen {
		return fmt.Errorf("engine: cannot resume from state %s", e.state)
	}
	e.consecutiveErrors = 0
	return e.transitionLocked(Running, now, reason.SystemResume, "operator resume")
}

// Stop transitions Running or Frozen → Stopped.
func (e *Engine) Stop(now float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Running && e.state != Frozen {
		return fmt.Errorf("engine: cannot stop from state %s", e.state)
	}
	return e.transitionLocked(Stopped, now, reason.SystemStop, "engine stop")
}

// freezeLocked transitions into Frozen and writes the state_change WAL
// entry, per spec §4.9 step 2 and §7 (freeze is sticky).
func (e *Engine) freezeLocked(now float64, detail string) {
	if e.state == Frozen {
		return
	}
	_ = e.transitionLocked(Frozen, now, reason.SystemFreeze, detail)
}

func (e *Engine) transitionLocked(to State, now float64, code reason.Code, detail string) error {
	from := e.state
	e.state = to
	if e.wal != nil {
		eventID := e.wal.NextEventID()
		_ = e.wal.LogStateChange(now, eventID, string(from), string(to), fmt.Sprintf("%s: %s", code, detail))
		metrics.IncWALEntry(wal.EventStateChange)
	}
	if e.bus != nil {
		e.bus.Publish(eventbus.Event{
			Topic:     eventbus.TopicStateChange,
			EventID:   fmt.Sprintf("state-%d", e.orderSeq),
			Data:      map[string]interface{}{"from": string(from), "to": string(to)},
			Timestamp: now,
			Source:    e.cfg.Symbol,
		})
	}
	log.Printf("[INFO] engine %s: %s -> %s (%s)", e.cfg.Symbol, from, to, detail)
	return nil
}

// ProcessTick runs the full per-tick algorithm from spec §4.9. now is the
// clock the caller wants the sanitizer's staleness check measured against —
// the tick's own LocalTimestamp in backtests, wall-clock in live mode. It is
// never read from time.Now() inside the pipeline itself.
func (e *Engine) ProcessTick(t market.Tick, now float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Running {
		return
	}

	if e.bus != nil {
		e.bus.Publish(eventbus.Event{
			Topic:     eventbus.TopicMarketData,
			EventID:   e.nextEventID(),
			Data:      map[string]interface{}{"symbol": t.Symbol, "mid": t.Mid()},
			Timestamp: now,
			Source:    t.Symbol,
		})
	}

	result := e.sanitizer.Validate(t, now)
	switch result.Action {
	case sanitizer.Freeze:
		e.freezeLocked(now, result.Detail)
		return
	case sanitizer.Reject, sanitizer.Skip:
		return
	}

	if pos, ok := e.book.Get(t.Symbol); ok {
		mid := t.Mid()
		e.book.MarkToMarket(t.Symbol, mid)
		pos, _ = e.book.Get(t.Symbol)
		e.guard.UpdatePosition(pos)

		if riskResult := e.guard.Check(); riskResult.Action == risk.Close {
			e.tracker.Record(riskResult.Reason, 0)
			e.runClosePath(t, mid, now, position.RiskClose)
			return
		}

		check := e.book.CheckExit(t.Symbol, mid, now)
		if check.ShouldExit {
			e.runClosePath(t, mid, now, check.Reason)
		}
		return
	}

	if e.manager == nil {
		return
	}

	signals := e.manager.Collect(t, now)
	best, ok := e.manager.SelectBest(signals)
	if !ok {
		return
	}

	if e.bus != nil {
		e.bus.Publish(eventbus.Event{
			Topic:     eventbus.TopicSignal,
			EventID:   e.nextEventID(),
			Data:      map[string]interface{}{"strategy_id": best.StrategyID, "side": best.Side.String()},
			Timestamp: now,
			Source:    t.Symbol,
		})
	}

	e.runOpenPath(t, best, now)
}

// nextEventID derives a monotonic event ID from the WAL logger when present,
// falling back to an engine-local sequence so the bus still gets a stable
// ID even with no WAL attached (e.g. in unit tests exercising only the bus).
func (e *Engine) nextEventID() string {
	if e.wal != nil {
		return e.wal.NextEventID()
	}
	e.orderSeq++
	return fmt.Sprintf("local-%d", e.orderSeq)
}

// runClosePath implements spec §4.9 step 3's close branch: fee model, WAL
// execution, position removal, risk guard update, TCA measure, fill/position
// events.
func (e *Engine) runClosePath(t market.Tick, exitPrice float64, now float64, exitReason position.ExitReason) {
	pos, ok := e.book.Get(t.Symbol)
	if !ok {
		return
	}

	closeSide := market.Sell
	if pos.Side == market.Short {
		closeSide = market.Buy
	}

	orderID := e.nextOrderID()
	req := feemodel.OrderRequest{
		ClientID: orderID,
		Symbol:   t.Symbol,
		Side:     closeSide,
		Type:     market.Market,
		Price:    decimal.NewFromFloat(exitPrice),
		Size:     decimal.NewFromFloat(pos.Size),
	}
	var book *feemodel.BookQuote
	if t.Bid > 0 && t.Ask > 0 {
		book = &feemodel.BookQuote{Bid: t.Bid, Ask: t.Ask}
	}
	fill, err := e.executeOrder(req, book, now)
	if err != nil {
		e.handleInvariantFailure(now, fmt.Errorf("close order execution: %w", err))
		return
	}

	if e.wal != nil {
		eventID := e.wal.NextEventID()
		_ = e.wal.LogExecution(now, eventID, "close", map[string]interface{}{
			"order_id":   orderID,
			"symbol":     t.Symbol,
			"side":       closeSide.String(),
			"fill_price": fill.FillPrice.String(),
			"size":       fill.Size.String(),
			"fee_cash":   fill.FeeCash.String(),
			"exit":       string(exitReason),
		})
		metrics.IncWALEntry(wal.EventExecution)
	}

	fillPriceF, _ := fill.FillPrice.Float64()
	realizedPnL, err := e.book.Close(t.Symbol, fillPriceF)
	if err != nil {
		e.handleInvariantFailure(now, err)
		return
	}
	feeCash, _ := fill.FeeCash.Float64()
	realizedPnL -= feeCash

	e.guard.RemovePosition(t.Symbol, realizedPnL)

	if _, err := e.tcaStore.Measure(orderID, fill.FillPrice, fill.Size, fill.FeeCash, 0, now); err != nil {
		log.Printf("[WARN] engine %s: tca measure on close: %v", t.Symbol, err)
	}

	if e.manager != nil && e.openStrategyID != "" {
		e.manager.RecordOutcome(e.openStrategyID, realizedPnL, realizedPnL >= 0)
		if mm, ok := e.manager.MarketMaker(e.openStrategyID); ok {
			mm.SetInventory(0)
		}
	}
	if e.openReasonCode != "" {
		e.tracker.Record(e.openReasonCode, realizedPnL)
	}
	e.openStrategyID = ""
	e.openReasonCode = ""

	if e.bus != nil {
		e.bus.Publish(eventbus.Event{Topic: eventbus.TopicFill, EventID: orderID, Data: map[string]interface{}{"symbol": t.Symbol, "pnl": realizedPnL}, Timestamp: now, Source: t.Symbol})
		e.bus.Publish(eventbus.Event{Topic: eventbus.TopicPosition, EventID: orderID, Data: map[string]interface{}{"symbol": t.Symbol, "open": false}, Timestamp: now, Source: t.Symbol})
	}
}

// runOpenPath implements spec §4.9 steps 6-7: hypothetical risk admission,
// WAL decision, fee model simulate_fill, WAL execution, TCA estimate/measure,
// position book open, risk guard update, fill/position events.
func (e *Engine) runOpenPath(t market.Tick, sig strategy.TradingSignal, now float64) {
	side := sig.Side
	hyp := market.Position{
		Symbol:        t.Symbol,
		Side:          side.ToPositionSide(),
		Size:          sig.Size,
		EntryPrice:    sig.EntryPrice,
		CurrentPrice:  sig.EntryPrice,
		OpenedAtTick:  now,
		TakeProfitPct: sig.TakeProfit,
		StopLossPct:   sig.StopLoss,
	}

	riskResult := e.guard.CheckHypothetical(hyp)

	if e.wal != nil {
		eventID := e.wal.NextEventID()
		_ = e.wal.LogRiskCheck(now, eventID, string(riskResult.Action), riskResult.Reason, riskResult.Detail, map[string]interface{}{
			"symbol":          t.Symbol,
			"utilization_pct": riskResult.UtilizationPct,
		})
		metrics.IncWALEntry(wal.EventRiskCheck)
		metrics.IncRiskAction(string(riskResult.Action))
	}

	if riskResult.Action != risk.Allow && riskResult.Action != risk.Warn {
		e.tracker.Record(riskResult.Reason, 0)
		if riskResult.Action == risk.Freeze {
			e.freezeLocked(now, riskResult.Detail)
		}
		return
	}

	orderID := e.nextOrderID()
	estimate := e.tcaStore.Estimate(orderID, t.Symbol, side, market.Limit, decimal.NewFromFloat(sig.Size), sig.EntryPrice, now)

	if e.wal != nil {
		eventID := e.wal.NextEventID()
		_ = e.wal.LogDecision(now, eventID, "open", string(sig.ReasonCode), sig.ReasonDetail, map[string]interface{}{
			"symbol":             t.Symbol,
			"strategy_id":        sig.StrategyID,
			"side":                side.String(),
			"entry_price":        sig.EntryPrice,
			"estimated_slip_bps": estimate.EstimatedSlipBps,
		})
		metrics.IncWALEntry(wal.EventDecision)
		metrics.IncDecision(sig.ReasonCode)
	}

	req := feemodel.OrderRequest{
		ClientID: orderID,
		Symbol:   t.Symbol,
		Side:     side,
		Type:     market.Limit,
		Price:    decimal.NewFromFloat(sig.EntryPrice),
		Size:     decimal.NewFromFloat(sig.Size),
	}
	var bookQuote *feemodel.BookQuote
	if t.Bid > 0 && t.Ask > 0 {
		bookQuote = &feemodel.BookQuote{Bid: t.Bid, Ask: t.Ask}
	}
	fill, err := e.executeOrder(req, bookQuote, now)
	if err != nil {
		e.handleInvariantFailure(now, fmt.Errorf("open order execution: %w", err))
		return
	}

	if e.wal != nil {
		eventID := e.wal.NextEventID()
		_ = e.wal.LogExecution(now, eventID, "open", map[string]interface{}{
			"order_id":      orderID,
			"symbol":        t.Symbol,
			"side":          side.String(),
			"fill_price":    fill.FillPrice.String(),
			"size":          fill.Size.String(),
			"fee_cash":      fill.FeeCash.String(),
			"is_maker":      fill.IsMaker,
			"strategy_id":   sig.StrategyID,
			"reason_code":   sig.ReasonCode,
			"reason_detail": sig.ReasonDetail,
			"take_profit":   sig.TakeProfit,
			"stop_loss":     sig.StopLoss,
		})
		metrics.IncWALEntry(wal.EventExecution)
	}

	if _, err := e.tcaStore.Measure(orderID, fill.FillPrice, fill.Size, fill.FeeCash, 0, now); err != nil {
		log.Printf("[WARN] engine %s: tca measure on open: %v", t.Symbol, err)
	}

	fillPriceF, _ := fill.FillPrice.Float64()
	newPos := market.Position{
		Symbol:        t.Symbol,
		Side:          side.ToPositionSide(),
		Size:          sig.Size,
		EntryPrice:    fillPriceF,
		CurrentPrice:  fillPriceF,
		OpenedAtTick:  now,
		TakeProfitPct: sig.TakeProfit,
		StopLossPct:   sig.StopLoss,
	}
	if err := e.book.Open(newPos); err != nil {
		e.tracker.Record(reason.SignalDuplicate, 0)
		return
	}
	e.guard.UpdatePosition(newPos)
	e.openStrategyID = sig.StrategyID
	e.openReasonCode = reason.Code(sig.ReasonCode)

	if mm, ok := e.manager.MarketMaker(sig.StrategyID); ok {
		mm.SetInventory(newPos.Side.Sign() * newPos.Size)
	}

	if e.bus != nil {
		e.bus.Publish(eventbus.Event{Topic: eventbus.TopicFill, EventID: orderID, Data: map[string]interface{}{"symbol": t.Symbol, "side": side.String()}, Timestamp: now, Source: t.Symbol})
		e.bus.Publish(eventbus.Event{Topic: eventbus.TopicPosition, EventID: orderID, Data: map[string]interface{}{"symbol": t.Symbol, "open": true}, Timestamp: now, Source: t.Symbol})
	}
}

// handleInvariantFailure implements spec §7's internal-invariant-failure
// path: WAL error with ERROR_UNKNOWN, transition to Stopped.
func (e *Engine) handleInvariantFailure(now float64, cause error) {
	if e.wal != nil {
		eventID := e.wal.NextEventID()
		_ = e.wal.LogError(now, eventID, "invariant_failure", reason.ErrorUnknown, cause.Error(), map[string]interface{}{"cause": cause.Error()})
		metrics.IncWALEntry(wal.EventError)
	}
	e.consecutiveErrors++
	log.Printf("[ERROR] engine %s: invariant failure: %v", e.cfg.Symbol, cause)
	if e.consecutiveErrors >= e.cfg.MaxConsecutiveErrors {
		_ = e.transitionLocked(Stopped, now, reason.ErrorUnknown, "too many consecutive errors")
	}
}

// executeOrder fills req through the live adapter when one is wired and
// cfg.PaperTrading is false, otherwise through the deterministic fee
// model. This is the only point where the tick pipeline may leave pure
// simulation, per spec §6's paper_trading flag and DefaultConfig's
// PaperTrading default of true.
func (e *Engine) executeOrder(req feemodel.OrderRequest, book *feemodel.BookQuote, now float64) (feemodel.FillResult, error) {
	if !e.cfg.PaperTrading && e.liveAdapter != nil {
		return e.liveAdapter.PlaceOrder(context.Background(), req)
	}
	return e.feeModel.SimulateFill(req, book, 0, now), nil
}

func (e *Engine) nextOrderID() string {
	e.orderSeq++
	return fmt.Sprintf("%s-%d", e.cfg.Symbol, e.orderSeq)
}

// Tracker exposes the engine's reason-code outcome tracker for reporting.
func (e *Engine) Tracker() *reason.Tracker { return e.tracker }

// RiskSummary exposes the risk guard's summary for reporting.
func (e *Engine) RiskSummary() risk.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.guard.Summary()
}

// TCASummary exposes the TCA analyzer's summary for reporting.
func (e *Engine) TCASummary() tca.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tcaStore.Summary()
}

// Dashboard exposes the strategy manager's performance dashboard for
// reporting. Returns the zero Dashboard if no manager was wired.
func (e *Engine) Dashboard() strategy.Dashboard {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.manager == nil {
		return strategy.Dashboard{}
	}
	return e.manager.Dashboard()
}
