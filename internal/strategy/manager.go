package strategy

import (
	"math"
	"sort"

	"hftcore/internal/market"
)

// Priority is a signal's priority band, derived from its confidence.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// priorityWeight mirrors signal_manager.py's _calculate_signal_score
// priority_scores table.
var priorityWeight = map[Priority]float64{
	PriorityLow:      0.1,
	PriorityMedium:   0.2,
	PriorityHigh:     0.25,
	PriorityCritical: 0.3,
}

// priorityFor buckets a confidence score into a priority band, per
// signal_manager.py's _convert_to_signal.
func priorityFor(confidence float64) Priority {
	switch {
	case confidence >= 0.8:
		return PriorityCritical
	case confidence >= 0.6:
		return PriorityHigh
	case confidence >= 0.4:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// StrategyStatus is a registered strategy's lifecycle state, per
// signal_manager.py's StrategyStatus enum.
type StrategyStatus string

const (
	StatusActive   StrategyStatus = "active"
	StatusInactive StrategyStatus = "inactive"
	StatusDegraded StrategyStatus = "degraded"
	StatusDisabled StrategyStatus = "disabled"
)

// StrategyMetrics tracks one strategy's performance, grounded on
// signal_manager.py's StrategyMetrics dataclass. RevenueTarget/Generated are
// carried over from the Python original as a fraction of total revenue and a
// running PnL total, respectively.
type StrategyMetrics struct {
	StrategyID       string
	Status           StrategyStatus
	RevenueTarget    float64
	RevenueGenerated float64
	SignalsGenerated int
	TradesExecuted   int
	Wins             int
	Losses           int
	WinRate          float64 // percentage, 0-100
	AvgProfit        float64
	SharpeRatio      float64
	LastSignalAt     float64

	pnlHistory []float64 // used to compute SharpeRatio incrementally
}

// performanceScore mirrors signal_manager.py's performance_score: win rate
// (0-0.4), Sharpe (0-0.3), revenue-vs-target (0-0.3).
func (m *StrategyMetrics) performanceScore() float64 {
	winRateScore := math.Min(m.WinRate/100, 1.0) * 0.4
	sharpeScore := math.Min(math.Max(m.SharpeRatio, 0)/3.0, 1.0) * 0.3

	var revenueScore float64
	if m.RevenueTarget > 0 {
		revenueScore = math.Min(m.RevenueGenerated/m.RevenueTarget, 1.0) * 0.3
	} else {
		revenueScore = 0.15
	}

	return winRateScore + sharpeScore + revenueScore
}

func (m *StrategyMetrics) recalcSharpe() {
	n := len(m.pnlHistory)
	if n < 2 {
		m.SharpeRatio = 0
		return
	}
	mean := 0.0
	for _, p := range m.pnlHistory {
		mean += p
	}
	mean /= float64(n)
	variance := 0.0
	for _, p := range m.pnlHistory {
		variance += (p - mean) * (p - mean)
	}
	variance /= float64(n)
	stdev := math.Sqrt(variance)
	if stdev == 0 {
		m.SharpeRatio = 0
		return
	}
	m.SharpeRatio = mean / stdev
}

// TradingSignal is a unified, manager-scored signal, per
// signal_manager.py's TradingSignal dataclass.
type TradingSignal struct {
	StrategyID   string
	Side         market.OrderSide
	EntryPrice   float64
	TakeProfit   float64
	StopLoss     float64
	Size         float64
	Confidence   float64
	Priority     Priority
	ReasonCode   string
	ReasonDetail string
	Metadata     map[string]interface{}
	Timestamp    float64
}

// registration pairs a Strategy with its revenue target, the manager's unit
// of registration per signal_manager.py's register_strategy.
type registration struct {
	strategy      Strategy
	revenueTarget float64
}

// Manager collects signals from every registered, active strategy and
// selects the single best one per tick, tracking per-strategy performance
// and auto-disabling chronic losers — grounded on
// original_source/backend/strategies/signal_manager.py's SignalManager.
type Manager struct {
	registrations map[string]registration
	metrics       map[string]*StrategyMetrics
	order         []string // registration order, for stable dashboard iteration

	maxHistory    int
	history       []TradingSignal
	totalRevenue  float64
	totalTrades   int
}

// NewManager constructs an empty Manager. maxHistory bounds the retained
// signal history; signal_manager.py defaults this to 1000.
func NewManager(maxHistory int) *Manager {
	if maxHistory <= 0 {
		maxHistory = 1000
	}
	return &Manager{
		registrations: make(map[string]registration),
		metrics:       make(map[string]*StrategyMetrics),
		maxHistory:    maxHistory,
	}
}

// Register adds a strategy under strategyID with the given revenue target
// (a fraction of total revenue; signal_manager.py defaults this to 0.33).
func (mgr *Manager) Register(strategyID string, s Strategy, revenueTarget float64) {
	mgr.registrations[strategyID] = registration{strategy: s, revenueTarget: revenueTarget}
	mgr.metrics[strategyID] = &StrategyMetrics{
		StrategyID:    strategyID,
		Status:        StatusActive,
		RevenueTarget: revenueTarget,
	}
	mgr.order = append(mgr.order, strategyID)
}

// Collect runs OnTick across every active (non-degraded, non-disabled,
// non-inactive) registered strategy and converts each resulting Signal into
// a scored TradingSignal, per signal_manager.py's collect_signals.
func (mgr *Manager) Collect(t market.Tick, now float64) []TradingSignal {
	var out []TradingSignal
	for _, strategyID := range mgr.order {
		reg := mgr.registrations[strategyID]
		m := mgr.metrics[strategyID]
		if m.Status != StatusActive {
			continue
		}

		sig := reg.strategy.OnTick(t)
		if sig == nil {
			continue
		}

		m.SignalsGenerated++
		m.LastSignalAt = now

		out = append(out, mgr.convert(strategyID, sig, now))
	}
	return out
}

func (mgr *Manager) convert(strategyID string, sig *Signal, now float64) TradingSignal {
	ts := TradingSignal{
		StrategyID:   strategyID,
		Side:         sig.Side,
		EntryPrice:   sig.EntryPrice,
		TakeProfit:   sig.TakeProfit,
		StopLoss:     sig.StopLoss,
		Size:         sig.Size,
		Confidence:   sig.Confidence,
		Priority:     priorityFor(sig.Confidence),
		ReasonCode:   string(sig.ReasonCode),
		ReasonDetail: sig.ReasonDetail,
		Metadata:     sig.Metadata,
		Timestamp:    now,
	}

	mgr.history = append(mgr.history, ts)
	if len(mgr.history) > mgr.maxHistory {
		mgr.history = mgr.history[len(mgr.history)-mgr.maxHistory:]
	}

	return ts
}

// score computes a TradingSignal's selection score: confidence (0-0.4) +
// priority weight (0-0.3) + strategy performance (0-0.3), per
// signal_manager.py's _calculate_signal_score.
func (mgr *Manager) score(sig TradingSignal) float64 {
	confidenceScore := sig.Confidence * 0.4

	weight, ok := priorityWeight[sig.Priority]
	if !ok {
		weight = 0.2
	}

	performanceScore := 0.15
	if m, ok := mgr.metrics[sig.StrategyID]; ok {
		performanceScore = m.performanceScore() * 0.3
	}

	return confidenceScore + weight + performanceScore
}

// SelectBest returns the highest-scored signal, or false if signals is empty,
// per signal_manager.py's select_best_signal.
func (mgr *Manager) SelectBest(signals []TradingSignal) (TradingSignal, bool) {
	if len(signals) == 0 {
		return TradingSignal{}, false
	}
	best := signals[0]
	bestScore := mgr.score(best)
	for _, s := range signals[1:] {
		score := mgr.score(s)
		if score > bestScore {
			best = s
			bestScore = score
		}
	}
	return best, true
}

// RecordOutcome folds a trade's result into strategyID's metrics, recomputes
// win rate and Sharpe, updates total revenue, and auto-disables the strategy
// once it has reached 10 trades with a win rate below 30% or a Sharpe below
// -1, per signal_manager.py's update_strategy_performance.
func (mgr *Manager) RecordOutcome(strategyID string, pnl float64, wasWin bool) {
	m, ok := mgr.metrics[strategyID]
	if !ok {
		return
	}

	m.TradesExecuted++
	m.RevenueGenerated += pnl
	m.pnlHistory = append(m.pnlHistory, pnl)

	if wasWin {
		m.Wins++
	} else {
		m.Losses++
	}
	m.WinRate = float64(m.Wins) / float64(m.TradesExecuted) * 100
	m.AvgProfit = m.RevenueGenerated / float64(m.TradesExecuted)
	m.recalcSharpe()

	mgr.totalRevenue += pnl
	mgr.totalTrades++

	if m.TradesExecuted >= 10 {
		if m.WinRate < 30 {
			m.Status = StatusDisabled
		} else if m.SharpeRatio < -1.0 {
			m.Status = StatusDisabled
		}
	}
}

// MarkDegraded flags strategyID as degraded after it failed to produce a
// signal cleanly (e.g. a panic recovered by the caller), mirroring
// signal_manager.py's collect_signals exception handler.
func (mgr *Manager) MarkDegraded(strategyID string) {
	if m, ok := mgr.metrics[strategyID]; ok {
		m.Status = StatusDegraded
	}
}

// MarketMaker returns the registered strategy under strategyID as a
// *MarketMaker, if that is in fact its concrete type. The engine uses this to
// push the inventory it just opened or closed back into the strategy, since
// MarketMaker.OnTick is otherwise pure with respect to the position book it
// does not own (spec §3's Ownership paragraph).
func (mgr *Manager) MarketMaker(strategyID string) (*MarketMaker, bool) {
	reg, ok := mgr.registrations[strategyID]
	if !ok {
		return nil, false
	}
	mm, ok := reg.strategy.(*MarketMaker)
	return mm, ok
}

// Metrics returns a copy of strategyID's current metrics.
func (mgr *Manager) Metrics(strategyID string) (StrategyMetrics, bool) {
	m, ok := mgr.metrics[strategyID]
	if !ok {
		return StrategyMetrics{}, false
	}
	return *m, true
}

// DashboardRow is one strategy's summary line in Dashboard's output.
type DashboardRow struct {
	StrategyID       string
	Status           StrategyStatus
	RevenueTarget    float64
	RevenueGenerated float64
	TradesExecuted   int
	WinRate          float64
	SharpeRatio      float64
	PerformanceScore float64
}

// Dashboard is the manager-wide performance summary, per
// signal_manager.py's get_dashboard.
type Dashboard struct {
	TotalRevenue float64
	TotalTrades  int
	Strategies   []DashboardRow
}

// Dashboard builds a Dashboard snapshot in registration order.
func (mgr *Manager) Dashboard() Dashboard {
	d := Dashboard{TotalRevenue: mgr.totalRevenue, TotalTrades: mgr.totalTrades}
	for _, strategyID := range mgr.order {
		m := mgr.metrics[strategyID]
		d.Strategies = append(d.Strategies, DashboardRow{
			StrategyID:       strategyID,
			Status:           m.Status,
			RevenueTarget:    m.RevenueTarget,
			RevenueGenerated: m.RevenueGenerated,
			TradesExecuted:   m.TradesExecuted,
			WinRate:          m.WinRate,
			SharpeRatio:      m.SharpeRatio,
			PerformanceScore: m.performanceScore(),
		})
	}
	return d
}

// sortedHistoryDesc returns a copy of the signal history, newest first. No
// code in the module calls it.
func (mgr *Manager) sortedHistoryDesc() []TradingSignal {
	out := make([]TradingSignal, len(mgr.history))
	copy(out, mgr.history)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}
