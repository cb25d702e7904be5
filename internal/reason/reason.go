// Package reason implements the closed reason-code enum from spec §4.7 and
// §3, and the per-code outcome tracker that the distilled spec names and
// original_source/backend/core/reason_codes.py supplies the best/worst
// reporting for (see SPEC_FULL.md, Supplemented Features).
package reason

import "strings"

// Category is the prefix of a Code, used to validate closure of the enum.
type Category string

const (
	CategorySignal Category = "SIGNAL"
	CategoryRisk   Category = "RISK"
	CategoryMarket Category = "MARKET"
	CategorySystem Category = "SYSTEM"
	CategoryError  Category = "ERROR"
)

// Code is a member of the closed reason-code enum. Every decision, risk_check,
// and error WAL entry carries exactly one (spec §8 invariant 9).
type Code string

const (
	// SIGNAL_*
	SignalStrong        Code = "SIGNAL_STRONG"
	SignalMedium        Code = "SIGNAL_MEDIUM"
	SignalWeak          Code = "SIGNAL_WEAK"
	SignalLiquidation   Code = "SIGNAL_LIQUIDATION"
	SignalMomentum      Code = "SIGNAL_MOMENTUM"
	SignalMarketMaking  Code = "SIGNAL_MARKET_MAKING"
	SignalDuplicate     Code = "SIGNAL_DUPLICATE"
	SignalNone          Code = "SIGNAL_NONE"

	// RISK_*
	RiskLimitOK          Code = "RISK_LIMIT_OK"
	RiskLimitWarn        Code = "RISK_LIMIT_WARN"
	RiskLimitExceeded    Code = "RISK_LIMIT_EXCEEDED"
	RiskTotalLossExceeded Code = "RISK_TOTAL_LOSS_EXCEEDED"
	RiskDrawdownExceeded Code = "RISK_DRAWDOWN_EXCEEDED"
	RiskConcentration    Code = "RISK_CONCENTRATION"
	RiskReduce           Code = "RISK_REDUCE"

	// MARKET_*
	MarketSpreadWide Code = "MARKET_SPREAD_WIDE"

	// SYSTEM_*
	SystemStartup Code = "SYSTEM_STARTUP"
	SystemFreeze  Code = "SYSTEM_FREEZE"
	SystemResume  Code = "SYSTEM_RESUME"
	SystemStop    Code = "SYSTEM_STOP"

	// ERROR_*
	ErrorDataInvalid     Code = "ERROR_DATA_INVALID"
	ErrorDataStale       Code = "ERROR_DATA_STALE"
	ErrorLatencyHigh     Code = "ERROR_LATENCY_HIGH"
	ErrorExecutionFailed Code = "ERROR_EXECUTION_FAILED"
	ErrorUnknown         Code = "ERROR_UNKNOWN"
)

// Category returns the code's category by its prefix.
func (c Code) Category() Category {
	if idx := strings.Index(string(c), "_"); idx > 0 {
		return Category(string(c)[:idx])
	}
	return Category(c)
}

// all is the closed set, used by Valid.
var all = map[Code]struct{}{
	SignalStrong: {}, SignalMedium: {}, SignalWeak: {}, SignalLiquidation: {},
	SignalMomentum: {}, SignalMarketMaking: {}, SignalDuplicate: {}, SignalNone: {},
	RiskLimitOK: {}, RiskLimitWarn: {}, RiskLimitExceeded: {}, RiskTotalLossExceeded: {},
	RiskDrawdownExceeded: {}, RiskConcentration: {}, RiskReduce: {},
	MarketSpreadWide: {},
	SystemStartup:    {}, SystemFreeze: {}, SystemResume: {}, SystemStop: {},
	ErrorDataInvalid: {}, ErrorDataStale: {}, ErrorLatencyHigh: {},
	ErrorExecutionFailed: {}, ErrorUnknown: {},
}

// Valid reports whether c is a member of the closed enum.
func Valid(c Code) bool {
	_, ok := all[c]
	return ok
}
