package reason

import "sort"

// Outcome accumulates the realized results attributed to a single Code,
// mirroring original_source/backend/core/reason_codes.py's per-reason
// bookkeeping (count, win_count, total_pnl, best/worst trade).
type Outcome struct {
	Code      Code
	Count     int
	Wins      int
	TotalPnL  float64
	BestPnL   float64
	WorstPnL  float64
	hasTrade  bool
}

// WinRate is Wins/Count, or 0 if Count is 0.
func (o Outcome) WinRate() float64 {
	if o.Count == 0 {
		return 0
	}
	return float64(o.Wins) / float64(o.Count)
}

// AvgPnL is TotalPnL/Count, or 0 if Count is 0.
func (o Outcome) AvgPnL() float64 {
	if o.Count == 0 {
		return 0
	}
	return o.TotalPnL / float64(o.Count)
}

// Tracker accumulates per-code Outcomes as trades close and exposes the
// best/worst-performing reason codes, per reason_codes.py's
// get_best_reasons/get_worst_reasons.
type Tracker struct {
	outcomes map[Code]*Outcome
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{outcomes: make(map[Code]*Outcome)}
}

// Record attributes a closed trade's realized P&L to code.
func (t *Tracker) Record(code Code, pnl float64) {
	o, ok := t.outcomes[code]
	if !ok {
		o = &Outcome{Code: code}
		t.outcomes[code] = o
	}
	o.Count++
	if pnl > 0 {
		o.Wins++
	}
	o.TotalPnL += pnl
	if !o.hasTrade || pnl > o.BestPnL {
		o.BestPnL = pnl
	}
	if !o.hasTrade || pnl < o.WorstPnL {
		o.WorstPnL = pnl
	}
	o.hasTrade = true
}

// Outcome returns the accumulated Outcome for code, or the zero value if
// nothing has been recorded for it yet.
func (t *Tracker) Outcome(code Code) Outcome {
	if o, ok := t.outcomes[code]; ok {
		return *o
	}
	return Outcome{Code: code}
}

func (t *Tracker) sorted(desc bool) []Outcome {
	out := make([]Outcome, 0, len(t.outcomes))
	for _, o := range t.outcomes {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].TotalPnL > out[j].TotalPnL
		}
		return out[i].TotalPnL < out[j].TotalPnL
	})
	return out
}

// Best returns up to n codes ranked by total realized P&L, descending.
func (t *Tracker) Best(n int) []Outcome {
	s := t.sorted(true)
	if n < len(s) {
		s = s[:n]
	}
	return s
}

// Worst returns up to n codes ranked by total realized P&L, ascending.
func (t *Tracker) Worst(n int) []Outcome {
	s := t.sorted(false)
	if n < len(s) {
		s = s[:n]
	}
	return s
}
