package sanitizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"hftcore/internal/market"
	"hftcore/internal/reason"
)

func baseConfig() Config {
	return Config{
		MaxLatencyMs:  500,
		MaxSpreadBps:  50,
		MaxDataAgeSec: 5,
		TickSize:      0.01,
	}
}

func TestValidateAllowsCleanTick(t *testing.T) {
	s := New(baseConfig(), nil)
	tk := market.Tick{Symbol: "BTC-USD", ExchangeTimestamp: 100, LocalTimestamp: 100.1, Bid: 100.00, Ask: 100.02}
	res := s.Validate(tk, 100.2)
	assert.Equal(t, Allow, res.Action)
	assert.Equal(t, reason.Code(""), res.Reason)
}

func TestValidateLatencyFreeze(t *testing.T) {
	s := New(baseConfig(), nil)
	tk := market.Tick{ExchangeTimestamp: 100, LocalTimestamp: 101, Bid: 100, Ask: 100.02}
	res := s.Validate(tk, 101)
	assert.Equal(t, Freeze, res.Action)
	assert.Equal(t, reason.ErrorLatencyHigh, res.Reason)
}

func TestValidateQuoteInvalidReject(t *testing.T) {
	s := New(baseConfig(), nil)
	tk := market.Tick{ExchangeTimestamp: 100, LocalTimestamp: 100, Bid: 100, Ask: 99}
	res := s.Validate(tk, 100)
	assert.Equal(t, Reject, res.Action)
	assert.Equal(t, reason.ErrorDataInvalid, res.Reason)

	rejects, _, _ := s.Counts()
	assert.Equal(t, int64(1), rejects)
}

func TestValidateSpreadWideSkip(t *testing.T) {
	s := New(baseConfig(), nil)
	tk := market.Tick{ExchangeTimestamp: 100, LocalTimestamp: 100, Bid: 100, Ask: 102}
	res := s.Validate(tk, 100)
	assert.Equal(t, Skip, res.Action)
	assert.Equal(t, reason.MarketSpreadWide, res.Reason)

	_, skips, spreadWide := s.Counts()
	assert.Equal(t, int64(1), skips)
	assert.Equal(t, int64(1), spreadWide)
}

func TestValidateTickSizeMisalignedReject(t *testing.T) {
	s := New(baseConfig(), nil)
	tk := market.Tick{ExchangeTimestamp: 100, LocalTimestamp: 100, Bid: 100.003, Ask: 100.013}
	res := s.Validate(tk, 100)
	assert.Equal(t, Reject, res.Action)
	assert.Equal(t, reason.ErrorDataInvalid, res.Reason)
}

func TestValidateTickSizeDisabledWhenZero(t *testing.T) {
	cfg := baseConfig()
	cfg.TickSize = 0
	s := New(cfg, nil)
	tk := market.Tick{ExchangeTimestamp: 100, LocalTimestamp: 100, Bid: 100.00317, Ask: 100.01317}
	res := s.Validate(tk, 100)
	assert.Equal(t, Allow, res.Action)
}

func TestValidateIntegrityTagMismatchFreeze(t *testing.T) {
	checksum := func(t market.Tick) string { return "expected" }
	s := New(baseConfig(), checksum)
	tk := market.Tick{ExchangeTimestamp: 100, LocalTimestamp: 100, Bid: 100, Ask: 100.02, IntegrityTag: "bogus"}
	res := s.Validate(tk, 100)
	assert.Equal(t, Freeze, res.Action)
	assert.Equal(t, reason.ErrorDataInvalid, res.Reason)
}

func TestValidateIntegrityTagMatchAllows(t *testing.T) {
	checksum := func(t market.Tick) string { return "good" }
	s := New(baseConfig(), checksum)
	tk := market.Tick{ExchangeTimestamp: 100, LocalTimestamp: 100, Bid: 100, Ask: 100.02, IntegrityTag: "good"}
	res := s.Validate(tk, 100)
	assert.Equal(t, Allow, res.Action)
}

func TestValidateStalenessFreeze(t *testing.T) {
	s := New(baseConfig(), nil)
	tk := market.Tick{ExchangeTimestamp: 100, LocalTimestamp: 100, Bid: 100, Ask: 100.02}
	res := s.Validate(tk, 110)
	assert.Equal(t, Freeze, res.Action)
	assert.Equal(t, reason.ErrorDataStale, res.Reason)
}

func TestValidateStalenessDisabledWhenInf(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxDataAgeSec = math.Inf(1)
	s := New(cfg, nil)
	tk := market.Tick{ExchangeTimestamp: 100, LocalTimestamp: 100, Bid: 100, Ask: 100.02}
	res := s.Validate(tk, 10000)
	assert.Equal(t, Allow, res.Action)
}

func TestValidateCheckOrderLatencyBeforeQuote(t *testing.T) {
	// A tick that fails both the latency and quote-validity checks must
	// report the latency freeze first, per the fixed check order.
	s := New(baseConfig(), nil)
	tk := market.Tick{ExchangeTimestamp: 100, LocalTimestamp: 101, Bid: 100, Ask: 99}
	res := s.Validate(tk, 101)
	assert.Equal(t, Freeze, res.Action)
	assert.Equal(t, reason.ErrorLatencyHigh, res.Reason)
}
