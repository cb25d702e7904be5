// Package metrics exposes the engine's Prometheus surface, generalized
// from the teacher's bot-specific metrics.go (which counted orders,
// decisions, and exits for a single strategy) into the reason-code/event-
// bus/risk observability the engine core now produces. Registered in
// init() and served on /metrics by the same promhttp.Handler() wiring as
// the teacher's main.go, from cmd/backtest and cmd/live.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// DecisionsTotal counts every decision WAL entry by its reason code.
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_decisions_total",
			Help: "Trading decisions logged, by reason code.",
		},
		[]string{"reason_code"},
	)

	// WALEntriesTotal counts every WAL entry written, by event type.
	WALEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_wal_entries_total",
			Help: "WAL entries written, by event type.",
		},
		[]string{"event_type"},
	)

	// EventBusLatencyMs observes sampled event-bus latency, by topic.
	EventBusLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "engine_event_bus_latency_ms",
			Help:    "Event bus publish-to-return latency in milliseconds, by topic.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)

	// RiskActionTotal counts every risk_check verdict, by action.
	RiskActionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_risk_action_total",
			Help: "Risk guard verdicts, by action (allow/warn/reduce/close/freeze).",
		},
		[]string{"action"},
	)

	// EquityUSD is the engine's current equity snapshot.
	EquityUSD = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_equity_usd",
			Help: "Current portfolio equity in USD.",
		},
	)

	// DrawdownPct is the engine's current drawdown from peak equity.
	DrawdownPct = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_drawdown_pct",
			Help: "Current drawdown from peak equity, as a percentage.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		DecisionsTotal,
		WALEntriesTotal,
		EventBusLatencyMs,
		RiskActionTotal,
		EquityUSD,
		DrawdownPct,
	)
}

// ObserveRiskSummary pushes a risk.Summary snapshot (see internal/risk)
// into the equity/drawdown gauges. Callers pass the plain fields rather
// than the struct itself to avoid this package importing internal/risk
// only for two floats.
func ObserveRiskSummary(equity, drawdownPct float64) {
	EquityUSD.Set(equity)
	DrawdownPct.Set(drawdownPct)
}

// IncDecision records one decision WAL entry under reasonCode.
func IncDecision(reasonCode string) { DecisionsTotal.WithLabelValues(reasonCode).Inc() }

// IncWALEntry records one WAL entry of eventType.
func IncWALEntry(eventType string) { WALEntriesTotal.WithLabelValues(eventType).Inc() }

// IncRiskAction records one risk_check verdict of action.
func IncRiskAction(action string) { RiskActionTotal.WithLabelValues(action).Inc() }

// ObserveEventBusLatency records one latency sample in milliseconds under
// topic (cmd/backtest feeds it each topic's average publish latency).
func ObserveEventBusLatency(topic string, ms float64) {
	EventBusLatencyMs.WithLabelValues(topic).Observe(ms)
}
