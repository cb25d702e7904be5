package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingBufferEvictsOldestPastCapacity(t *testing.T) {
	rb := NewRingBuffer(3)
	rb.Push(1)
	rb.Push(2)
	rb.Push(3)
	assert.True(t, rb.Full())
	assert.Equal(t, []float64{1, 2, 3}, rb.Values())

	rb.Push(4)
	assert.Equal(t, []float64{2, 3, 4}, rb.Values())
	assert.Equal(t, 2.0, rb.First())
	assert.Equal(t, 4.0, rb.Last())
}

func TestRingBufferNotFullUntilCapacityReached(t *testing.T) {
	rb := NewRingBuffer(5)
	rb.Push(1)
	rb.Push(2)
	assert.False(t, rb.Full())
	assert.Equal(t, 2, rb.Len())
}

func TestRingBufferMean(t *testing.T) {
	rb := NewRingBuffer(5)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		rb.Push(v)
	}
	assert.Equal(t, 3.0, rb.Mean(5))
	assert.Equal(t, 4.0, rb.Mean(2))
	assert.Equal(t, 3.0, rb.Mean(0), "n<=0 must clamp to the full buffer")
}

func TestRingBufferEmptyDefaults(t *testing.T) {
	rb := NewRingBuffer(3)
	assert.Equal(t, 0.0, rb.First())
	assert.Equal(t, 0.0, rb.Last())
	assert.Equal(t, 0.0, rb.Mean(1))
	assert.False(t, rb.Full())
}

func TestRSINotReadyBeforePeriodElapses(t *testing.T) {
	r := NewRSI(3)
	_, ready := r.Update(100)
	assert.False(t, ready)
	_, ready = r.Update(101)
	assert.False(t, ready)
	_, ready = r.Update(102)
	assert.False(t, ready)
	_, ready = r.Update(103)
	assert.True(t, ready, "RSI should become ready after period+1 closes")
}

func TestRSIAllGainsIsHundred(t *testing.T) {
	r := NewRSI(3)
	closes := []float64{100, 101, 102, 103, 104, 105}
	var value float64
	var ready bool
	for _, c := range closes {
		value, ready = r.Update(c)
	}
	assert.True(t, ready)
	assert.Equal(t, 100.0, value)
}

func TestRSIBoundedBetweenZeroAndHundred(t *testing.T) {
	r := NewRSI(5)
	closes := []float64{100, 99, 102, 98, 105, 95, 110, 90}
	var value float64
	for _, c := range closes {
		value, _ = r.Update(c)
	}
	assert.GreaterOrEqual(t, value, 0.0)
	assert.LessOrEqual(t, value, 100.0)
}
