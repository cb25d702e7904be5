// Command live runs the engine against a real-time tick stream, per spec
// §6's "A live tool takes the same engine configuration plus an adapter
// descriptor."
//
// Grounded on the teacher's main.go boot sequence (env/config load, broker
// wiring switch, Prometheus /metrics server, signal.NotifyContext graceful
// shutdown) and broker_paper.go's in-process broker idiom, generalized to
// inject an internal/adapter.Adapter instead of a concrete Broker. No
// concrete network exchange adapter ships with this module (spec §1 places
// "the exchange adapter (network I/O, WebSocket framing)" out of scope) —
// this driver wires internal/adapter.PaperAdapter by default and exits with
// a config error if asked for an adapter kind it doesn't have.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hftcore/internal/adapter"
	"hftcore/internal/config"
	"hftcore/internal/engine"
	"hftcore/internal/eventbus"
	"hftcore/internal/strategy"
	"hftcore/internal/wal"
)

const (
	exitSuccess    = 0
	exitConfigErr  = 2
	exitHaltFreeze = 4
)

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

func buildAdapter(kind string) (adapter.Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "paper":
		return adapter.NewPaperAdapter(), nil
	default:
		return nil, fmt.Errorf("live: unknown adapter kind %q (only \"paper\" is wired in this module)", kind)
	}
}

func main() {
	symbol := flag.String("symbol", "BTC-USD", "Symbol to trade")
	adapterKind := flag.String("adapter", "paper", "Adapter descriptor: paper (default)")
	configPath := flag.String("config", "", "Optional YAML/JSON config file (see internal/config.FromFile)")
	metricsAddr := flag.String("metrics-addr", ":9110", "Prometheus /metrics listen address")
	live := flag.Bool("live", false, "Route fills through the adapter instead of fee-model simulation")
	strict := flag.Bool("strict", false, "Exit 4 if the engine ends the run Frozen")
	flag.Parse()

	config.LoadDotEnv()
	var cfg engine.Config
	var err error
	if *configPath != "" {
		cfg, err = config.FromFile(*configPath, *symbol)
	} else {
		cfg = config.FromEnv(*symbol)
	}
	if err != nil {
		log.Printf("live: config: %v", err)
		os.Exit(exitConfigErr)
	}
	if cfg.WALPath == "" {
		cfg.WALPath = fmt.Sprintf("wal/%s_live.jsonl", cfg.Symbol)
	}
	cfg.PaperTrading = !*live

	a, err := buildAdapter(*adapterKind)
	if err != nil {
		log.Printf("live: %v", err)
		os.Exit(exitConfigErr)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		log.Printf("live: serving metrics on %s/metrics", *metricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("live: metrics server: %v", err)
		}
	}()

	w, err := wal.Open(cfg.WALPath, wal.Options{MaxFileSizeMB: cfg.WALMaxFileMB})
	if err != nil {
		log.Printf("live: wal: %v", err)
		os.Exit(exitConfigErr)
	}
	defer w.Close()

	bus := eventbus.New(eventbus.Options{})
	mgr := buildManager()
	eng := engine.New(cfg, w, bus, mgr, nil)
	eng.SetAdapter(a)

	report, err := eng.Recover()
	if err != nil {
		log.Printf("live: recover: %v", err)
		os.Exit(exitConfigErr)
	}
	if report.EntriesReplayed > 0 {
		log.Printf("live: recovered from wal: entries=%d realized_pnl=%.2f peak_equity=%.2f open_positions=%d",
			report.EntriesReplayed, report.RealizedPnL, report.PeakEquity, report.OpenPositions)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Connect(ctx); err != nil {
		log.Printf("live: adapter connect: %v", err)
		os.Exit(exitConfigErr)
	}
	ticks, err := a.Subscribe(ctx, cfg.Symbol)
	if err != nil {
		log.Printf("live: adapter subscribe: %v", err)
		os.Exit(exitConfigErr)
	}

	if err := eng.Start(float64(time.Now().Unix())); err != nil {
		log.Printf("live: start: %v", err)
		os.Exit(exitConfigErr)
	}

	log.Printf("live: running symbol=%s adapter=%s paper_trading=%v", cfg.Symbol, *adapterKind, cfg.PaperTrading)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case t, ok := <-ticks:
			if !ok {
				log.Println("live: tick stream closed")
				break loop
			}
			eng.ProcessTick(t, float64(time.Now().UnixNano())/1e9)
		}
	}

	halt := *strict && eng.State() == engine.Frozen
	if eng.State() == engine.Running || eng.State() == engine.Frozen {
		_ = eng.Stop(float64(time.Now().Unix()))
	}

	shutdownCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
	defer c()
	_ = srv.Shutdown(shutdownCtx)

	if halt {
		os.Exit(exitHaltFreeze)
	}
	os.Exit(exitSuccess)
}
