// Package sanitizer implements the Layer-0 tick validator: the first gate
// every Tick passes through before it reaches the strategy layer.
//
// Grounded on original_source/backend/core/l0_sanitizer.py for the general
// shape (fixed check order, short-circuit, sticky freeze), with the exact
// check ordering taken from spec.md §4.1 where it differs from the Python
// original (the original folds quote-validity into its spread check; this
// package follows the spec's literal six-step order: latency, quote validity, spread, tick-size,
// integrity, staleness).
package sanitizer

import (
	"math"

	"hftcore/internal/market"
	"hftcore/internal/reason"
)

// Action is the sanitizer's verdict for a single tick.
type Action string

const (
	Allow  Action = "allow"
	Skip   Action = "skip"
	Reject Action = "reject"
	Freeze Action = "freeze"
)

// Result is the sanitizer's full contract output, per spec §4.1.
type Result struct {
	Action     Action
	Reason     reason.Code
	Detail     string
	LatencyMs  float64
	SpreadBps  float64
}

// Config is the set of thresholds the sanitizer checks against. A symbol
// with TickSize == 0 skips the tick-size check entirely (unregistered).
type Config struct {
	MaxLatencyMs  float64 // 0 disables the latency check (backtest: clock simulated)
	MaxSpreadBps  float64
	MaxDataAgeSec float64 // +Inf disables the staleness check
	TickSize      float64 // 0 means "not registered for this symbol"
}

// ChecksumFunc recomputes a tick's expected integrity tag. Validate compares
// it against Tick.IntegrityTag when the tick carries one.
type ChecksumFunc func(market.Tick) string

// Sanitizer validates ticks for a single symbol against a fixed Config.
type Sanitizer struct {
	cfg      Config
	checksum ChecksumFunc

	rejectCount     int64
	skipCount       int64
	spreadWideCount int64
}

// New constructs a Sanitizer. checksum may be nil, in which case the
// integrity-tag check is skipped even when a tick carries a tag.
func New(cfg Config, checksum ChecksumFunc) *Sanitizer {
	return &Sanitizer{cfg: cfg, checksum: checksum}
}

// Validate runs the six fixed-order checks against t. now is the reference
// time for the latency and staleness checks — the tick's own LocalTimestamp
// in backtest mode (where both checks are disabled via Config), or the
// live driver's wall-clock reading in live mode. The engine itself never
// calls time.Now(); that call, if any, belongs to the caller of Validate.
func (s *Sanitizer) Validate(t market.Tick, now float64) Result {
	spreadBps := t.SpreadBps()

	// 1. Latency.
	latencyMs := (t.LocalTimestamp - t.ExchangeTimestamp) * 1000
	if s.cfg.MaxLatencyMs > 0 && latencyMs > s.cfg.MaxLatencyMs {
		return s.freeze(reason.ErrorLatencyHigh, "latency exceeds max_latency_ms", latencyMs, spreadBps)
	}

	// 2. Quote validity.
	if t.Bid <= 0 || t.Ask <= 0 || t.Ask < t.Bid {
		s.rejectCount++
		return Result{Action: Reject, Reason: reason.ErrorDataInvalid, Detail: "non-positive or crossed quote", LatencyMs: latencyMs, SpreadBps: spreadBps}
	}

	// 3. Spread.
	if s.cfg.MaxSpreadBps > 0 && spreadBps > s.cfg.MaxSpreadBps {
		s.skipCount++
		s.spreadWideCount++
		return Result{Action: Skip, Reason: reason.MarketSpreadWide, Detail: "spread exceeds max_spread_bps", LatencyMs: latencyMs, SpreadBps: spreadBps}
	}

	// 4. Tick-size.
	if s.cfg.TickSize > 0 {
		eps := s.cfg.TickSize * 1e-3
		if modExceeds(t.Bid, s.cfg.TickSize, eps) || modExceeds(t.Ask, s.cfg.TickSize, eps) {
			s.rejectCount++
			return Result{Action: Reject, Reason: reason.ErrorDataInvalid, Detail: "quote not aligned to tick size", LatencyMs: latencyMs, SpreadBps: spreadBps}
		}
	}

	// 5. Integrity tag.
	if t.IntegrityTag != "" && s.checksum != nil {
		if s.checksum(t) != t.IntegrityTag {
			return s.freeze(reason.ErrorDataInvalid, "integrity tag mismatch", latencyMs, spreadBps)
		}
	}

	// 6. Staleness.
	if !math.IsInf(s.cfg.MaxDataAgeSec, 1) {
		age := now - t.LocalTimestamp
		if age > s.cfg.MaxDataAgeSec {
			return s.freeze(reason.ErrorDataStale, "tick age exceeds max_data_age_sec", latencyMs, spreadBps)
		}
	}

	return Result{Action: Allow, Reason: "", LatencyMs: latencyMs, SpreadBps: spreadBps}
}

func (s *Sanitizer) freeze(code reason.Code, detail string, latencyMs, spreadBps float64) Result {
	return Result{Action: Freeze, Reason: code, Detail: detail, LatencyMs: latencyMs, SpreadBps: spreadBps}
}

// modExceeds reports whether price isn't aligned to step within eps.
func modExceeds(price, step, eps float64) bool {
	if step == 0 {
		return false
	}
	r := math.Mod(price, step)
	// math.Mod can return a value close to step for negative-adjacent
	// rounding; fold the "near step" case back to "near zero".
	if step-r < r {
		r = step - r
	}
	return r > eps
}

// Counts returns the running reject/skip/spread-wide counters.
func (s *Sanitizer) Counts() (rejects, skips, spreadWide int64) {
	return s.rejectCount, s.skipCount, s.spreadWideCount
}
