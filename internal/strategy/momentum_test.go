package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hftcore/internal/market"
	"hftcore/internal/reason"
)

func tick(price float64) market.Tick {
	return market.Tick{Symbol: "BTC-USD", Last: price}
}

func TestMomentumNoSignalUntilBuffersFull(t *testing.T) {
	m := NewMomentum(MomentumConfig{
		ID: "momentum", Lookback: 5, Threshold: 0.001, MinStrength: 0.3,
		RSIPeriod: 4, Overbought: 70, Oversold: 30,
	})
	for _, p := range []float64{100, 101, 102} {
		assert.Nil(t, m.OnTick(tick(p)))
	}
}

func TestMomentumFiresBuyWhenRSIFilterDisabled(t *testing.T) {
	m := NewMomentum(MomentumConfig{
		ID: "momentum", Lookback: 5, Threshold: 0.001, MinStrength: 0.3,
		RSIPeriod: 4, Overbought: 100, Oversold: 0,
		TakeProfitPct: 0.01, StopLossPct: 0.01, Size: 1,
	})
	var sig *Signal
	for _, p := range []float64{100, 101, 102, 103, 104} {
		sig = m.OnTick(tick(p))
	}
	assert.NotNil(t, sig)
	assert.Equal(t, market.Buy, sig.Side)
	assert.Equal(t, reason.SignalMomentum, sig.ReasonCode)
}

func TestMomentumSuppressedWhenOverbought(t *testing.T) {
	m := NewMomentum(MomentumConfig{
		ID: "momentum", Lookback: 5, Threshold: 0.001, MinStrength: 0.3,
		RSIPeriod: 4, Overbought: 70, Oversold: 30,
	})
	var sig *Signal
	for _, p := range []float64{100, 101, 102, 103, 104} {
		sig = m.OnTick(tick(p))
	}
	assert.Nil(t, sig, "an all-gains run drives RSI to 100, which must suppress a buy signal")
}

func TestMomentumBelowMinStrengthYieldsNoSignal(t *testing.T) {
	m := NewMomentum(MomentumConfig{
		ID: "momentum", Lookback: 5, Threshold: 0.01, MinStrength: 0.3,
		RSIPeriod: 4, Overbought: 100, Oversold: 0,
	})
	var sig *Signal
	for _, p := range []float64{100, 100.01, 100.02, 100.03, 100.04} {
		sig = m.OnTick(tick(p))
	}
	assert.Nil(t, sig)
}

func TestMomentumID(t *testing.T) {
	m := NewMomentum(MomentumConfig{ID: "momentum"})
	assert.Equal(t, "momentum", m.ID())
}
