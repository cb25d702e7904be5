package strategy

// RingBuffer is a fixed-capacity float64 ring buffer: pushing past capacity
// silently evicts the oldest value. This is the Go-idiomatic stand-in for
// the Python originals' collections.deque(maxlen=...), per spec §9's note
// that strategy rolling buffers must be fixed-capacity with no per-tick
// allocation in the steady state.
type RingBuffer struct {
	data  []float64
	head  int
	count int
}

// NewRingBuffer constructs a RingBuffer with the given capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{data: make([]float64, capacity)}
}

// Push appends x, evicting the oldest value once the buffer is full.
func (r *RingBuffer) Push(x float64) {
	if len(r.data) == 0 {
		return
	}
	idx := (r.head + r.count) % len(r.data)
	r.data[idx] = x
	if r.count < len(r.data) {
		r.count++
	} else {
		r.head = (r.head + 1) % len(r.data)
	}
}

// Len returns the number of values currently buffered.
func (r *RingBuffer) Len() int { return r.count }

// Full reports whether the buffer has reached its configured capacity.
func (r *RingBuffer) Full() bool { return r.count == len(r.data) && len(r.data) > 0 }

// First returns the oldest buffered value.
func (r *RingBuffer) First() float64 {
	if r.count == 0 {
		return 0
	}
	return r.data[r.head]
}

// Last returns the most recently pushed value.
func (r *RingBuffer) Last() float64 {
	if r.count == 0 {
		return 0
	}
	idx := (r.head + r.count - 1) % len(r.data)
	return r.data[idx]
}

// Values returns every buffered value, oldest first.
func (r *RingBuffer) Values() []float64 {
	out := make([]float64, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.data[(r.head+i)%len(r.data)]
	}
	return out
}

// Mean returns the arithmetic mean of the last n buffered values (n clamped
// to Len()). Returns 0 if the buffer is empty.
func (r *RingBuffer) Mean(n int) float64 {
	if r.count == 0 {
		return 0
	}
	if n <= 0 || n > r.count {
		n = r.count
	}
	sum := 0.0
	for i := r.count - n; i < r.count; i++ {
		sum += r.data[(r.head+i)%len(r.data)]
	}
	return sum / float64(n)
}

// RSI is Wilder's Relative Strength Index computed incrementally, one close
// at a time, so a strategy never needs to re-walk its whole price history.
type RSI struct {
	period    int
	avgGain   float64
	avgLoss   float64
	prevClose float64
	seen      int
	ready     bool
}

// NewRSI constructs an RSI tracker over the given period.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

// Update folds in the next close price and returns the current RSI value
// plus whether the tracker has seen enough closes (period+1) to be
// meaningful yet.
func (r *RSI) Update(close float64) (value float64, ready bool) {
	r.seen++
	if r.seen == 1 {
		r.prevClose = close
		return 0, false
	}
	delta := close - r.prevClose
	r.prevClose = close

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	if r.seen <= r.period+1 {
		r.avgGain += gain
		r.avgLoss += loss
		if r.seen == r.period+1 {
			r.avgGain /= float64(r.period)
			r.avgLoss /= float64(r.period)
			r.ready = true
		}
	} else {
		r.avgGain = (r.avgGain*float64(r.period-1) + gain) / float64(r.period)
		r.avgLoss = (r.avgLoss*float64(r.period-1) + loss) / float64(r.period)
	}

	if !r.ready {
		return 0, false
	}
	if r.avgLoss == 0 {
		return 100, true
	}
	rs := r.avgGain / r.avgLoss
	return 100 - (100 / (1 + rs)), true
}
