// Package config loads an engine.Config two ways, both grounded in the
// teacher's own configuration idiom: a lightweight env-var reader
// (FromEnv, generalized from config.go/env.go's getEnv*/loadBotEnv) for
// quick overrides, and a structured file loader (FromFile, via
// spf13/viper) for the full set of options enumerated in spec §6.
//
// .env discovery itself is handed to github.com/joho/godotenv rather than
// the teacher's hand-rolled scanner, but still filtered through the
// teacher's own "only load the keys we need" allowlist so unrelated
// secrets in a shared .env never reach the process environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"hftcore/internal/engine"
	"hftcore/internal/feemodel"
)

// neededEnvKeys is the allowlist of keys this process actually reads from a
// shared .env file, mirroring env.go's loadBotEnv.
var neededEnvKeys = map[string]struct{}{
	"HFTCORE_SYMBOL": {}, "HFTCORE_EXCHANGE": {}, "HFTCORE_INITIAL_CAPITAL": {},
	"HFTCORE_MAX_LATENCY_MS": {}, "HFTCORE_MAX_DATA_AGE_SEC": {}, "HFTCORE_MAX_SPREAD_BPS": {},
	"HFTCORE_TICK_SIZE": {}, "HFTCORE_MAX_POSITION_LOSS_PCT": {}, "HFTCORE_MAX_TOTAL_LOSS_PCT": {},
	"HFTCORE_MAX_DRAWDOWN_PCT": {}, "HFTCORE_MAX_CONCENTRATION": {}, "HFTCORE_WARN_THRESHOLD_PCT": {},
	"HFTCORE_TIME_STOP_SEC": {}, "HFTCORE_WAL_PATH": {}, "HFTCORE_WAL_MAX_FILE_MB": {},
	"HFTCORE_TCA_MAX_HISTORY": {}, "HFTCORE_PAPER_TRADING": {}, "HFTCORE_MAX_CONSECUTIVE_ERRORS": {},
}

// LoadDotEnv reads .env from "." and ".." via godotenv, then exports into
// the process environment only the keys this package understands —
// anything else present in a shared .env (API secrets for unrelated
// processes, PEM blocks, etc.) is left alone.
func LoadDotEnv() {
	for _, base := range []string{".", ".."} {
		path := filepath.Join(base, ".env")
		vals, err := godotenv.Read(path)
		if err != nil {
			continue
		}
		for k, v := range vals {
			if _, ok := neededEnvKeys[k]; !ok {
				continue
			}
			if os.Getenv(k) == "" {
				_ = os.Setenv(k, v)
			}
		}
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "y", "yes":
		return true
	case "0", "false", "n", "no":
		return false
	default:
		return def
	}
}

func parseExchange(s string) feemodel.Exchange {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kraken":
		return feemodel.Kraken
	case "okx":
		return feemodel.OKX
	default:
		return feemodel.Binance
	}
}

// FromEnv builds an engine.Config from process environment variables
// (HFTCORE_* keys), overlaying engine.DefaultConfig(symbol). Call
// LoadDotEnv first if values should also come from a .env file.
func FromEnv(symbol string) engine.Config {
	cfg := engine.DefaultConfig(symbol)
	cfg.Symbol = getEnv("HFTCORE_SYMBOL", cfg.Symbol)
	cfg.Exchange = parseExchange(getEnv("HFTCORE_EXCHANGE", string(cfg.Exchange)))
	cfg.InitialCapital = getEnvFloat("HFTCORE_INITIAL_CAPITAL", cfg.InitialCapital)
	cfg.MaxLatencyMs = getEnvFloat("HFTCORE_MAX_LATENCY_MS", cfg.MaxLatencyMs)
	cfg.MaxDataAgeSec = getEnvFloat("HFTCORE_MAX_DATA_AGE_SEC", cfg.MaxDataAgeSec)
	cfg.MaxSpreadBps = getEnvFloat("HFTCORE_MAX_SPREAD_BPS", cfg.MaxSpreadBps)
	cfg.TickSize = getEnvFloat("HFTCORE_TICK_SIZE", cfg.TickSize)
	cfg.MaxPositionLossPct = getEnvFloat("HFTCORE_MAX_POSITION_LOSS_PCT", cfg.MaxPositionLossPct)
	cfg.MaxTotalLossPct = getEnvFloat("HFTCORE_MAX_TOTAL_LOSS_PCT", cfg.MaxTotalLossPct)
	cfg.MaxDrawdownPct = getEnvFloat("HFTCORE_MAX_DRAWDOWN_PCT", cfg.MaxDrawdownPct)
	cfg.MaxConcentration = getEnvFloat("HFTCORE_MAX_CONCENTRATION", cfg.MaxConcentration)
	cfg.WarnThresholdPct = getEnvFloat("HFTCORE_WARN_THRESHOLD_PCT", cfg.WarnThresholdPct)
	cfg.TimeStopSec = getEnvFloat("HFTCORE_TIME_STOP_SEC", cfg.TimeStopSec)
	cfg.WALPath = getEnv("HFTCORE_WAL_PATH", cfg.WALPath)
	cfg.WALMaxFileMB = getEnvInt("HFTCORE_WAL_MAX_FILE_MB", cfg.WALMaxFileMB)
	cfg.TCAMaxHistory = getEnvInt("HFTCORE_TCA_MAX_HISTORY", cfg.TCAMaxHistory)
	cfg.PaperTrading = getEnvBool("HFTCORE_PAPER_TRADING", cfg.PaperTrading)
	cfg.MaxConsecutiveErrors = getEnvInt("HFTCORE_MAX_CONSECUTIVE_ERRORS", cfg.MaxConsecutiveErrors)
	return cfg
}

// FromFile loads an engine.Config from a YAML or JSON file at path via
// viper, seeded with engine.DefaultConfig(symbol)'s values as defaults and
// overlaid by any HFTCORE_* environment variable (viper.AutomaticEnv), so
// a single key can still be tweaked without editing the file.
func FromFile(path, symbol string) (engine.Config, error) {
	def := engine.DefaultConfig(symbol)

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("HFTCORE")
	v.AutomaticEnv()

	v.SetDefault("symbol", def.Symbol)
	v.SetDefault("exchange", string(def.Exchange))
	v.SetDefault("initial_capital", def.InitialCapital)
	v.SetDefault("max_latency_ms", def.MaxLatencyMs)
	v.SetDefault("max_data_age_sec", def.MaxDataAgeSec)
	v.SetDefault("max_spread_bps", def.MaxSpreadBps)
	v.SetDefault("tick_size", def.TickSize)
	v.SetDefault("max_position_loss_pct", def.MaxPositionLossPct)
	v.SetDefault("max_total_loss_pct", def.MaxTotalLossPct)
	v.SetDefault("max_drawdown_pct", def.MaxDrawdownPct)
	v.SetDefault("max_concentration", def.MaxConcentration)
	v.SetDefault("warn_threshold_pct", def.WarnThresholdPct)
	v.SetDefault("time_stop_sec", def.TimeStopSec)
	v.SetDefault("wal_log_path", def.WALPath)
	v.SetDefault("wal_max_file_size_mb", def.WALMaxFileMB)
	v.SetDefault("tca_max_history", def.TCAMaxHistory)
	v.SetDefault("paper_trading", def.PaperTrading)
	v.SetDefault("max_consecutive_errors", def.MaxConsecutiveErrors)

	if err := v.ReadInConfig(); err != nil {
		return engine.Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := engine.Config{
		Symbol:               v.GetString("symbol"),
		Exchange:             parseExchange(v.GetString("exchange")),
		InitialCapital:       v.GetFloat64("initial_capital"),
		MaxLatencyMs:         v.GetFloat64("max_latency_ms"),
		MaxDataAgeSec:        v.GetFloat64("max_data_age_sec"),
		MaxSpreadBps:         v.GetFloat64("max_spread_bps"),
		TickSize:             v.GetFloat64("tick_size"),
		MaxPositionLossPct:   v.GetFloat64("max_position_loss_pct"),
		MaxTotalLossPct:      v.GetFloat64("max_total_loss_pct"),
		MaxDrawdownPct:       v.GetFloat64("max_drawdown_pct"),
		MaxConcentration:     v.GetFloat64("max_concentration"),
		WarnThresholdPct:     v.GetFloat64("warn_threshold_pct"),
		TimeStopSec:          v.GetFloat64("time_stop_sec"),
		WALPath:              v.GetString("wal_log_path"),
		WALMaxFileMB:         v.GetInt("wal_max_file_size_mb"),
		TCAMaxHistory:        v.GetInt("tca_max_history"),
		PaperTrading:         v.GetBool("paper_trading"),
		MaxConsecutiveErrors: v.GetInt("max_consecutive_errors"),
	}
	return cfg, nil
}
