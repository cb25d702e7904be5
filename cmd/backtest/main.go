// Command backtest replays a CSV candle file through the engine and prints
// an ASCII report, per spec §6's CLI surface.
//
// Grounded on the teacher's backtest.go/main.go boot sequence (loadCSV,
// flag parsing, Prometheus /metrics server), generalized from the teacher's
// single train/test walk-forward over its own AI micro-model into a
// straight tick-by-tick replay through internal/engine, since the spec's
// decision pipeline has no training phase.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"hftcore/internal/config"
	"hftcore/internal/engine"
	"hftcore/internal/eventbus"
	"hftcore/internal/feemodel"
	"hftcore/internal/market"
	"hftcore/internal/metrics"
	"hftcore/internal/risk"
	"hftcore/internal/strategy"
	"hftcore/internal/wal"
)

const (
	exitSuccess    = 0
	exitConfigErr  = 2
	exitDataErr    = 3
	exitHaltFreeze = 4
)

// candle is one CSV row: timestamp, open, high, low, close, volume.
type candle struct {
	timestamp float64
	open      float64
	high      float64
	low       float64
	close     float64
	volume    float64
}

// loadCandles reads the CSV at path, tolerating RFC3339 or UNIX-seconds
// timestamps and case-insensitive, reorderable headers, per spec §6's "CSV
// with columns timestamp, open, high, low, close, volume".
func loadCandles(path string) ([]candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var headers []string
	var out []candle
	row := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", row, err)
		}
		if row == 0 {
			headers = rec
			row++
			continue
		}
		fields := make(map[string]string, len(headers))
		for j, h := range headers {
			if j < len(rec) {
				fields[strings.ToLower(strings.TrimSpace(h))] = strings.TrimSpace(rec[j])
			}
		}
		ts, err := parseTimestamp(first(fields, "timestamp", "time"))
		if err != nil {
			row++
			continue
		}
		c := candle{
			timestamp: ts,
			open:      parseFloatOr(fields["open"], 0),
			high:      parseFloatOr(fields["high"], 0),
			low:       parseFloatOr(fields["low"], 0),
			close:     parseFloatOr(fields["close"], 0),
			volume:    parseFloatOr(fields["volume"], 0),
		}
		if c.close <= 0 {
			row++
			continue
		}
		out = append(out, c)
		row++
	}
	sort.Slice(out, func(i, j int) bool { return out[i].timestamp < out[j].timestamp })
	return out, nil
}

func parseTimestamp(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return float64(t.Unix()), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	return 0, fmt.Errorf("bad timestamp: %s", s)
}

func parseFloatOr(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func first(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

// spreadBps is a fixed synthetic spread used to derive bid/ask from a
// candle's close, per spec §6 ("bid = close*(1-spread/2), ask =
// close*(1+spread/2) rounded to tick size").
const spreadBps = 5.0

func toTick(symbol string, c candle, tickSize float64) market.Tick {
	spread := c.close * spreadBps / 10000
	bid := roundToTick(c.close-spread/2, tickSize)
	ask := roundToTick(c.close+spread/2, tickSize)
	return market.Tick{
		Symbol:            symbol,
		ExchangeTimestamp: c.timestamp,
		LocalTimestamp:    c.timestamp,
		Bid:               bid,
		Ask:               ask,
		Last:              c.close,
		Volume:            c.volume,
	}
}

func roundToTick(price, tickSize float64) float64 {
	if tickSize <= 0 {
		return price
	}
	return float64(int64(price/tickSize+0.5)) * tickSize
}

// buildManager registers the three reference strategies from the pack's
// original_source strategy set, each under its default configuration, per
// SPEC_FULL.md's supplemented-features decision to ship all three rather
// than leave the engine with no strategies wired at all.
func buildManager() *strategy.Manager {
	mgr := strategy.NewManager(1000)
	mgr.Register("momentum", strategy.NewMomentum(strategy.MomentumConfig{
		ID: "momentum", Lookback: 20, Threshold: 0.001, MinStrength: 0.3,
		RSIPeriod: 14, Overbought: 70, Oversold: 30,
	}), 0.34)
	mgr.Register("market_maker", strategy.NewMarketMaker(strategy.MarketMakerConfig{
		ID: "market_maker", BaseSpread: 0.0003, OrderSize: 0.01, MaxPosition: 0.1,
		VolatilityWindow: 60, TrendWindow: 30, MinSpread: 0.0001,
	}), 0.33)
	mgr.Register("liquidation_hunter", strategy.NewLiquidationHunter(strategy.LiquidationHunterConfig{
		ID: "liquidation_hunter", MinClusterVolume: 100, EntryDistancePct: 0.015,
		TakeProfitPct: 0.012, StopLossPct: 0.012, Size: 0.01,
	}, strategy.DeterministicLevels{}), 0.33)
	return mgr
}

func main() {
	dataPath := flag.String("data", "", "Path to CSV (timestamp,open,high,low,close,volume)")
	symbol := flag.String("symbol", "BTC-USD", "Symbol to replay the CSV as")
	maxTicks := flag.Int("max-ticks", 0, "Stop after this many ticks (0 = no limit)")
	configPath := flag.String("config", "", "Optional YAML/JSON config file (see internal/config.FromFile)")
	metricsAddr := flag.String("metrics-addr", ":9109", "Prometheus /metrics listen address")
	strict := flag.Bool("strict", false, "Exit 4 if the engine ends the run Frozen")
	resume := flag.Bool("resume", false, "Replay the configured WAL path on startup to resume a prior run's state (spec §7)")
	flag.Parse()

	if *dataPath == "" {
		log.Println("backtest: -data is required")
		os.Exit(exitConfigErr)
	}

	config.LoadDotEnv()
	var cfg engine.Config
	var err error
	if *configPath != "" {
		cfg, err = config.FromFile(*configPath, *symbol)
	} else {
		cfg = config.FromEnv(*symbol)
	}
	if err != nil {
		log.Printf("backtest: config: %v", err)
		os.Exit(exitConfigErr)
	}
	if cfg.WALPath == "" {
		cfg.WALPath = fmt.Sprintf("wal/%s_backtest.jsonl", cfg.Symbol)
	}
	cfg.PaperTrading = true // a backtest never routes to a live adapter

	candles, err := loadCandles(*dataPath)
	if err != nil {
		log.Printf("backtest: %v", err)
		os.Exit(exitDataErr)
	}
	if len(candles) == 0 {
		log.Println("backtest: no usable rows in CSV")
		os.Exit(exitDataErr)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("backtest: metrics server: %v", err)
		}
	}()

	w, err := wal.Open(cfg.WALPath, wal.Options{MaxFileSizeMB: cfg.WALMaxFileMB})
	if err != nil {
		log.Printf("backtest: wal: %v", err)
		os.Exit(exitDataErr)
	}
	defer w.Close()

	bus := eventbus.New(eventbus.Options{})
	mgr := buildManager()
	eng := engine.New(cfg, w, bus, mgr, nil)

	if *resume {
		report, err := eng.Recover()
		if err != nil {
			log.Printf("backtest: recover: %v", err)
			os.Exit(exitDataErr)
		}
		log.Printf("backtest: resumed from wal: entries=%d realized_pnl=%.2f peak_equity=%.2f open_positions=%d",
			report.EntriesReplayed, report.RealizedPnL, report.PeakEquity, report.OpenPositions)
	}

	if err := eng.Start(candles[0].timestamp); err != nil {
		log.Printf("backtest: start: %v", err)
		os.Exit(exitConfigErr)
	}

	n := len(candles)
	if *maxTicks > 0 && *maxTicks < n {
		n = *maxTicks
	}
	for i := 0; i < n; i++ {
		t := toTick(cfg.Symbol, candles[i], cfg.TickSize)
		eng.ProcessTick(t, t.LocalTimestamp)

		if i%500 == 0 {
			rs := eng.RiskSummary()
			metrics.ObserveRiskSummary(rs.CurrentEquity, rs.DrawdownPct)
		}
		for _, topic := range []eventbus.Topic{eventbus.TopicDecision, eventbus.TopicRiskCheck, eventbus.TopicFill} {
			m := bus.Metrics(topic)
			metrics.ObserveEventBusLatency(string(topic), m.AvgLatencyMs)
		}
	}

	rs := eng.RiskSummary()
	metrics.ObserveRiskSummary(rs.CurrentEquity, rs.DrawdownPct)

	printReport(cfg, eng, n, rs)

	if *strict && eng.State() == engine.Frozen {
		os.Exit(exitHaltFreeze)
	}
	os.Exit(exitSuccess)
}

// printReport prints the ASCII report spec §6 requires of the backtest
// driver: portfolio summary, TCA quality, per-strategy dashboard, and the
// reason codes with the best and worst realized P&L.
func printReport(cfg engine.Config, eng *engine.Engine, ticks int, rs risk.Summary) {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("BACKTEST REPORT  symbol=%s  ticks=%d  state=%s\n", cfg.Symbol, ticks, eng.State())
	fmt.Println(strings.Repeat("=", 60))

	fmt.Println("\nPortfolio")
	fmt.Printf("  initial capital   %10.2f\n", rs.InitialCapital)
	fmt.Printf("  realized pnl      %10.2f\n", rs.RealizedPnL)
	fmt.Printf("  unrealized pnl    %10.2f\n", rs.UnrealizedPnL)
	fmt.Printf("  equity            %10.2f\n", rs.CurrentEquity)
	fmt.Printf("  peak equity       %10.2f\n", rs.PeakEquity)
	fmt.Printf("  drawdown          %10.2f (%.2f%%)\n", rs.Drawdown, rs.DrawdownPct)
	fmt.Printf("  risk checks       %10d  (warnings=%d violations=%d)\n", rs.TotalChecks, rs.Warnings, rs.Violations)

	ts := eng.TCASummary()
	fmt.Println("\nTransaction Cost Analysis")
	fmt.Printf("  trades measured   %10d\n", ts.TotalTrades)
	fmt.Printf("  avg quality       %10.4f\n", ts.AvgQuality)
	fmt.Printf("  cost overrun      %10.2f%%\n", ts.CostOverrunPct)

	fmt.Println("\nStrategy Dashboard")
	dash := eng.Dashboard()
	fmt.Printf("  total revenue     %10.2f  total trades %d\n", dash.TotalRevenue, dash.TotalTrades)
	for _, row := range dash.Strategies {
		fmt.Printf("  %-20s status=%-10s trades=%-5d winrate=%.2f sharpe=%.2f score=%.2f\n",
			row.StrategyID, row.Status, row.TradesExecuted, row.WinRate, row.SharpeRatio, row.PerformanceScore)
	}

	fmt.Println("\nReason Codes (best / worst realized P&L)")
	tracker := eng.Tracker()
	for _, o := range tracker.Best(5) {
		fmt.Printf("  best  %-28s count=%-4d winrate=%.2f total_pnl=%.2f\n", o.Code, o.Count, o.WinRate(), o.TotalPnL)
	}
	for _, o := range tracker.Worst(5) {
		fmt.Printf("  worst %-28s count=%-4d winrate=%.2f total_pnl=%.2f\n", o.Code, o.Count, o.WinRate(), o.TotalPnL)
	}

	fmt.Println("\nExchange Fee Comparison (indicative 1-unit market order)")
	sample := feemodel.OrderRequest{
		ClientID: "report-sample",
		Symbol:   cfg.Symbol,
		Side:     market.Buy,
		Type:     market.Market,
		Price:    decimal.NewFromFloat(1),
		Size:     decimal.NewFromFloat(1),
	}
	for ex, fill := range feemodel.CompareExchanges(sample, nil, 0, 0) {
		fmt.Printf("  %-10s fee=%s maker=%v\n", ex, fill.FeeCash.String(), fill.IsMaker)
	}
	fmt.Println(strings.Repeat("=", 60))
}
