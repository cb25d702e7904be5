// Package tca implements the two-phase transaction-cost analyzer from spec
// §4.3: a pre-trade estimate, reconciled against a post-trade measurement,
// yielding a surprise and an execution-quality score in [0,1].
//
// Grounded on original_source/backend/core/tca_analyzer.py. Per spec §4.3,
// the estimate phase is driven by the fee model's simulate_fill rather than
// the Python original's separate ad hoc slippage formula — the analyzer asks
// "what would the deterministic fee model say, if this traded right now at
// the reference price with no book", which keeps estimate and measurement
// consistent with the same cost model.
package tca

import (
	"fmt"

	"github.com/shopspring/decimal"

	"hftcore/internal/feemodel"
	"hftcore/internal/market"
)

// PreTradeEstimate is the cost the analyzer expects before an order is sent.
type PreTradeEstimate struct {
	OrderID           string
	Symbol            string
	Side              market.OrderSide
	Size              decimal.Decimal
	ReferencePrice    float64
	EstimatedFill     decimal.Decimal
	EstimatedSlipBps  float64
	EstimatedFee      decimal.Decimal
	EstimatedTotal    decimal.Decimal
	Timestamp         float64
}

// PostTradeMeasurement is what actually happened.
type PostTradeMeasurement struct {
	OrderID        string
	Symbol         string
	Side           market.OrderSide
	Size           decimal.Decimal
	ReferencePrice float64
	FillPrice      decimal.Decimal
	RealizedSlipBps float64
	RealizedFee    decimal.Decimal
	RealizedTotal  decimal.Decimal
	ExecutionMs    float64
	Timestamp      float64
}

// Report reconciles an estimate with its measurement.
type Report struct {
	OrderID           string
	Symbol            string
	Side              market.OrderSide
	EstimatedSlipBps  float64
	EstimatedFee      decimal.Decimal
	EstimatedTotal    decimal.Decimal
	RealizedSlipBps   float64
	RealizedFee       decimal.Decimal
	RealizedTotal     decimal.Decimal
	SlipSurpriseBps   float64
	FeeSurprise       decimal.Decimal
	CostSurprise      decimal.Decimal
	ExecutionMs       float64
	ExecutionQuality  float64
}

// Analyzer keeps a bounded history of reports and the in-flight estimates
// awaiting measurement.
type Analyzer struct {
	model        *feemodel.Model
	maxHistory   int
	estimates    map[string]PreTradeEstimate
	reports      []Report
	totalTrades  int
	totalEstCost decimal.Decimal
	totalRelCost decimal.Decimal
}

// New constructs an Analyzer over exchange's fee table. maxHistory <= 0
// defaults to 10 000, per spec §4.3.
func New(exchange feemodel.Exchange, maxHistory int) *Analyzer {
	if maxHistory <= 0 {
		maxHistory = 10000
	}
	return &Analyzer{
		model:      feemodel.New(exchange),
		maxHistory: maxHistory,
		estimates:  make(map[string]PreTradeEstimate),
	}
}

// Estimate computes a PreTradeEstimate for orderID by running the fee model
// against referencePrice with no book (the decision-time view).
func (a *Analyzer) Estimate(orderID, symbol string, side market.OrderSide, orderType market.OrderType, size decimal.Decimal, referencePrice float64, timestamp float64) PreTradeEstimate {
	req := feemodel.OrderRequest{
		ClientID: orderID,
		Symbol:   symbol,
		Side:     side,
		Type:     orderType,
		Price:    decimal.NewFromFloat(referencePrice),
		Size:     size,
	}
	fill := a.model.SimulateFill(req, nil, 0, timestamp)

	est := PreTradeEstimate{
		OrderID:          orderID,
		Symbol:           symbol,
		Side:             side,
		Size:             size,
		ReferencePrice:   referencePrice,
		EstimatedFill:    fill.FillPrice,
		EstimatedSlipBps: fill.SlippageBps,
		EstimatedFee:     fill.FeeCash,
		EstimatedTotal:   fill.TotalCostCash,
		Timestamp:        timestamp,
	}
	a.estimates[orderID] = est
	a.totalEstCost = a.totalEstCost.Add(est.EstimatedTotal)
	return est
}

// Measure reconciles orderID's fill against its prior estimate and appends a
// Report. Returns an error if no matching Estimate was ever recorded —
// spec §8 invariant 2 (WAL-before-effect) guarantees the engine always calls
// Estimate before Measure, so this indicates an internal invariant failure.
func (a *Analyzer) Measure(orderID string, fillPrice, size decimal.Decimal, feeCash decimal.Decimal, executionMs, timestamp float64) (PostTradeMeasurement, error) {
	est, ok := a.estimates[orderID]
	if !ok {
		return PostTradeMeasurement{}, fmt.Errorf("tca: no pre-trade estimate for order %q", orderID)
	}

	fp, _ := fillPrice.Float64()
	realizedSlipBps := slippageBps(est.ReferencePrice, fp, est.Side)

	slipCash := fillPrice.Sub(decimal.NewFromFloat(est.ReferencePrice)).Abs().Mul(size)
	var realizedTotal decimal.Decimal
	if est.Side == market.Buy {
		realizedTotal = slipCash.Add(feeCash)
	} else {
		realizedTotal = feeCash.Sub(slipCash)
	}

	meas := PostTradeMeasurement{
		OrderID:         orderID,
		Symbol:          est.Symbol,
		Side:            est.Side,
		Size:            size,
		ReferencePrice:  est.ReferencePrice,
		FillPrice:       fillPrice,
		RealizedSlipBps: realizedSlipBps,
		RealizedFee:     feeCash,
		RealizedTotal:   realizedTotal,
		ExecutionMs:     executionMs,
		Timestamp:       timestamp,
	}

	a.totalTrades++
	a.totalRelCost = a.totalRelCost.Add(realizedTotal)

	report := a.buildReport(est, meas)
	a.reports = append(a.reports, report)
	if len(a.reports) > a.maxHistory {
		a.reports = a.reports[len(a.reports)-a.maxHistory:]
	}

	return meas, nil
}

func (a *Analyzer) buildReport(est PreTradeEstimate, meas PostTradeMeasurement) Report {
	slipSurprise := meas.RealizedSlipBps - est.EstimatedSlipBps
	feeSurprise := meas.RealizedFee.Sub(est.EstimatedFee)
	costSurprise := meas.RealizedTotal.Sub(est.EstimatedTotal)

	quality := 1.0
	if costSurprise.IsPositive() && !est.EstimatedTotal.IsZero() {
		surprisePct, _ := costSurprise.Div(est.EstimatedTotal).Abs().Float64()
		quality = 1.0 - surprisePct
		if quality < 0 {
			quality = 0
		}
	}

	return Report{
		OrderID:          est.OrderID,
		Symbol:           est.Symbol,
		Side:             est.Side,
		EstimatedSlipBps: est.EstimatedSlipBps,
		EstimatedFee:     est.EstimatedFee,
		EstimatedTotal:   est.EstimatedTotal,
		RealizedSlipBps:  meas.RealizedSlipBps,
		RealizedFee:      meas.RealizedFee,
		RealizedTotal:    meas.RealizedTotal,
		SlipSurpriseBps:  slipSurprise,
		FeeSurprise:      feeSurprise,
		CostSurprise:     costSurprise,
		ExecutionMs:      meas.ExecutionMs,
		ExecutionQuality: quality,
	}
}

func slippageBps(referencePrice, fillPrice float64, side market.OrderSide) float64 {
	if referencePrice == 0 {
		return 0
	}
	if side == market.Buy {
		return (fillPrice - referencePrice) / referencePrice * 10000
	}
	return (referencePrice - fillPrice) / referencePrice * 10000
}

// Summary is the aggregate view over every report recorded so far, per
// tca_analyzer.py's get_summary.
type Summary struct {
	TotalTrades      int
	AvgQuality       float64
	AvgCostSurprise  decimal.Decimal
	TotalEstimated   decimal.Decimal
	TotalRealized    decimal.Decimal
	CostOverrunPct   float64
}

// Summary computes aggregate statistics over the bounded report history.
func (a *Analyzer) Summary() Summary {
	if len(a.reports) == 0 {
		return Summary{}
	}
	qualitySum := 0.0
	surpriseSum := decimal.Zero
	for _, r := range a.reports {
		qualitySum += r.ExecutionQuality
		surpriseSum = surpriseSum.Add(r.CostSurprise)
	}
	n := float64(len(a.reports))

	overrun := 0.0
	if !a.totalEstCost.IsZero() {
		ratio, _ := a.totalRelCost.Div(a.totalEstCost).Float64()
		overrun = (ratio - 1) * 100
	}

	return Summary{
		TotalTrades:     a.totalTrades,
		AvgQuality:      qualitySum / n,
		AvgCostSurprise: surpriseSum.Div(decimal.NewFromFloat(n)),
		TotalEstimated:  a.totalEstCost,
		TotalRealized:   a.totalRelCost,
		CostOverrunPct:  overrun,
	}
}
