package reason

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeCategory(t *testing.T) {
	assert.Equal(t, CategorySignal, SignalStrong.Category())
	assert.Equal(t, CategorySignal, SignalMarketMaking.Category())
	assert.Equal(t, CategoryRisk, RiskLimitOK.Category())
	assert.Equal(t, CategoryMarket, MarketSpreadWide.Category())
	assert.Equal(t, CategorySystem, SystemFreeze.Category())
	assert.Equal(t, CategoryError, ErrorExecutionFailed.Category())
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(RiskLimitOK))
	assert.True(t, Valid(SignalLiquidation))
	assert.True(t, Valid(RiskTotalLossExceeded))
	assert.False(t, Valid(Code("NOT_A_REAL_CODE")))
	assert.False(t, Valid(Code("")))
}
