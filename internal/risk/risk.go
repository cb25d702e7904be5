// Package risk implements the dynamic risk-budget (DRB) guard from spec
// §4.4: per-position loss, portfolio loss, drawdown, and concentration
// checks run in a fixed order, the first non-allow verdict wins.
//
// Grounded on original_source/backend/core/drb_guard.py, whose check order
// (position loss → total loss → drawdown → concentration) spec.md §4.4
// preserves exactly.
package risk

import (
	"fmt"

	"hftcore/internal/market"
	"hftcore/internal/reason"
)

// Action is the guard's verdict.
type Action string

const (
	Allow  Action = "allow"
	Warn   Action = "warn"
	Reduce Action = "reduce"
	Close  Action = "close"
	Freeze Action = "freeze"
)

// Result is the guard's check() contract output, per spec §4.4.
type Result struct {
	Action          Action
	Reason          reason.Code
	Detail          string
	CurrentRisk     float64
	Limit           float64
	UtilizationPct  float64
}

func allowResult(limit float64) Result {
	return Result{Action: Allow, Reason: reason.RiskLimitOK, Limit: limit}
}

// Limits is the immutable risk configuration, per spec §3.
type Limits struct {
	InitialCapital     float64
	MaxPositionLossPct float64
	MaxTotalLossPct    float64
	MaxDrawdownPct     float64
	MaxConcentration   float64 // fraction, e.g. 0.3 for 30%
	WarnThresholdPct   float64 // default 80
}

// Guard is the per-engine risk state and checker.
type Guard struct {
	limits     Limits
	positions  map[string]market.Position
	realizedPnL float64
	peakEquity  float64

	totalChecks int64
	warnings    int64
	violations  int64
}

// New constructs a Guard. WarnThresholdPct defaults to 80 if unset.
func New(limits Limits) *Guard {
	if limits.WarnThresholdPct == 0 {
		limits.WarnThresholdPct = 80
	}
	return &Guard{
		limits:     limits,
		positions:  make(map[string]market.Position),
		peakEquity: limits.InitialCapital,
	}
}

// UpdatePosition upserts pos's mark-to-market snapshot.
func (g *Guard) UpdatePosition(pos market.Position) {
	g.positions[pos.Symbol] = pos
}

// RemovePosition closes out symbol and folds realizedPnL into the running
// total.
func (g *Guard) RemovePosition(symbol string, realizedPnL float64) {
	if _, ok := g.positions[symbol]; ok {
		delete(g.positions, symbol)
		g.realizedPnL += realizedPnL
	}
}

// Restore seeds a freshly constructed Guard's realized P&L and peak equity
// from a WAL replay (spec §7 recovery), before any live position is
// reattached via UpdatePosition.
func (g *Guard) Restore(realizedPnL, peakEquity float64) {
	g.realizedPnL = realizedPnL
	if peakEquity > g.peakEquity {
		g.peakEquity = peakEquity
	}
}

func (g *Guard) maxPositionLossUSD() float64 {
	return g.limits.InitialCapital * g.limits.MaxPositionLossPct / 100
}

func (g *Guard) maxTotalLossUSD() float64 {
	return g.limits.InitialCapital * g.limits.MaxTotalLossPct / 100
}

func (g *Guard) maxDrawdownUSD() float64 {
	return g.limits.InitialCapital * g.limits.MaxDrawdownPct / 100
}

// Check runs the four fixed-order checks against the guard's current state.
func (g *Guard) Check() Result {
	g.totalChecks++

	if r := g.checkPositionLoss(); r.Action != Allow {
		g.violations++
		return r
	}
	if r := g.checkTotalLoss(); r.Action != Allow {
		g.violations++
		return r
	}
	if r := g.checkDrawdown(); r.Action != Allow {
		g.violations++
		return r
	}
	if r := g.checkConcentration(); r.Action != Allow {
		g.warnings++
		return r
	}
	return allowResult(0)
}

// CheckHypothetical upserts hyp, runs Check(), then restores whatever was
// at hyp.Symbol beforehand (present or absent) so callers never need to
// remember to roll back themselves. This is the pre-trade admission path
// from spec §4.4.
func (g *Guard) CheckHypothetical(hyp market.Position) Result {
	prior, had := g.positions[hyp.Symbol]
	g.positions[hyp.Symbol] = hyp

	result := g.Check()

	if had {
		g.positions[hyp.Symbol] = prior
	} else {
		delete(g.positions, hyp.Symbol)
	}
	return result
}

func (g *Guard) totalUnrealizedPnL() float64 {
	total := 0.0
	for _, p := range g.positions {
		total += p.UnrealizedPnL()
	}
	return total
}

func (g *Guard) checkPositionLoss() Result {
	limit := g.maxPositionLossUSD()
	for symbol, pos := range g.positions {
		loss := absNeg(pos.UnrealizedPnL())
		utilization := safeDiv(loss, limit) * 100

		if loss > limit {
			return Result{Action: Close, Reason: reason.RiskLimitExceeded, Detail: fmt.Sprintf("position loss exceeded: %s", symbol), CurrentRisk: loss, Limit: limit, UtilizationPct: utilization}
		}
		if utilization > g.limits.WarnThresholdPct {
			return Result{Action: Warn, Reason: reason.RiskLimitWarn, Detail: fmt.Sprintf("position loss approaching limit: %s", symbol), CurrentRisk: loss, Limit: limit, UtilizationPct: utilization}
		}
	}
	return allowResult(limit)
}

func (g *Guard) checkTotalLoss() Result {
	limit := g.maxTotalLossUSD()
	loss := absNeg(g.totalUnrealizedPnL())
	utilization := safeDiv(loss, limit) * 100

	if loss > limit {
		return Result{Action: Freeze, Reason: reason.RiskTotalLossExceeded, Detail: "total portfolio loss exceeded", CurrentRisk: loss, Limit: limit, UtilizationPct: utilization}
	}
	if utilization > g.limits.WarnThresholdPct {
		return Result{Action: Reduce, Reason: reason.RiskReduce, Detail: "total loss approaching limit", CurrentRisk: loss, Limit: limit, UtilizationPct: utilization}
	}
	return Result{Action: Allow, Reason: reason.RiskLimitOK, CurrentRisk: loss, Limit: limit, UtilizationPct: utilization}
}

func (g *Guard) checkDrawdown() Result {
	limit := g.maxDrawdownUSD()
	equity := g.currentEquity()
	if equity > g.peakEquity {
		g.peakEquity = equity
	}
	drawdown := g.peakEquity - equity
	utilization := safeDiv(drawdown, limit) * 100

	if drawdown > limit {
		return Result{Action: Freeze, Reason: reason.RiskDrawdownExceeded, Detail: "drawdown exceeded", CurrentRisk: drawdown, Limit: limit, UtilizationPct: utilization}
	}
	if utilization > g.limits.WarnThresholdPct {
		return Result{Action: Reduce, Reason: reason.RiskReduce, Detail: "drawdown approaching limit", CurrentRisk: drawdown, Limit: limit, UtilizationPct: utilization}
	}
	return Result{Action: Allow, Reason: reason.RiskLimitOK, CurrentRisk: drawdown, Limit: limit, UtilizationPct: utilization}
}

func (g *Guard) checkConcentration() Result {
	if len(g.positions) == 0 {
		return allowResult(g.limits.MaxConcentration)
	}
	totalExposure := 0.0
	for _, p := range g.positions {
		totalExposure += p.CurrentValue()
	}
	if totalExposure == 0 {
		return allowResult(g.limits.MaxConcentration)
	}

	for symbol, p := range g.positions {
		concentration := p.CurrentValue() / totalExposure
		utilization := safeDiv(concentration, g.limits.MaxConcentration) * 100

		if concentration > g.limits.MaxConcentration {
			return Result{Action: Reduce, Reason: reason.RiskConcentration, Detail: fmt.Sprintf("concentration too high: %s", symbol), CurrentRisk: concentration, Limit: g.limits.MaxConcentration, UtilizationPct: utilization}
		}
		if utilization > g.limits.WarnThresholdPct {
			return Result{Action: Warn, Reason: reason.RiskLimitWarn, Detail: fmt.Sprintf("concentration approaching limit: %s", symbol), CurrentRisk: concentration, Limit: g.limits.MaxConcentration, UtilizationPct: utilization}
		}
	}
	return allowResult(g.limits.MaxConcentration)
}

func (g *Guard) currentEquity() float64 {
	return g.limits.InitialCapital + g.realizedPnL + g.totalUnrealizedPnL()
}

// Summary is the portfolio-level view from drb_guard.py's
// get_portfolio_summary (SPEC_FULL.md Supplemented Features).
type Summary struct {
	InitialCapital float64
	RealizedPnL    float64
	UnrealizedPnL  float64
	TotalPnL       float64
	CurrentEquity  float64
	PeakEquity     float64
	Drawdown       float64
	DrawdownPct    float64
	NumPositions   int
	TotalChecks    int64
	Warnings       int64
	Violations     int64
}

// Summary returns the guard's current portfolio-level snapshot.
func (g *Guard) Summary() Summary {
	unrealized := g.totalUnrealizedPnL()
	equity := g.currentEquity()
	drawdown := g.peakEquity - equity
	drawdownPct := 0.0
	if g.peakEquity > 0 {
		drawdownPct = drawdown / g.peakEquity * 100
	}
	return Summary{
		InitialCapital: g.limits.InitialCapital,
		RealizedPnL:    g.realizedPnL,
		UnrealizedPnL:  unrealized,
		TotalPnL:       g.realizedPnL + unrealized,
		CurrentEquity:  equity,
		PeakEquity:     g.peakEquity,
		Drawdown:       drawdown,
		DrawdownPct:    drawdownPct,
		NumPositions:   len(g.positions),
		TotalChecks:    g.totalChecks,
		Warnings:       g.warnings,
		Violations:     g.violations,
	}
}

func absNeg(x float64) float64 {
	if x < 0 {
		return -x
	}
	return 0
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
