// Package history keeps a bounded FIFO window of per-event ignition outcomes
// and derives rolling features from it.
package history

import "math"

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 64

// Row is one processed event's outcome.
type Row struct {
	T           int64
	Ignited     bool
	DeltaG      float64 // free-energy drop from broadcast
	Temperature float64
	Strength    float64
	Pressure    float64
}

// Features summarizes the current window. Computed on demand.
type Features struct {
	T               int64
	WindowLen       int
	IgniteRate      float64
	MeanDeltaG      float64
	MeanTemperature float64
	MeanStrength    float64
	MeanPressure    float64
}

// Stats is the read-only view the fallback policy needs.
type Stats interface {
	IgniteRate() float64
	MeanDeltaG() float64
}

// History is a bounded window of rows. Not safe for concurrent use; it is
// owned by a single session.
type History struct {
	capacity int
	rows     []Row
}

// New creates an empty history holding at most capacity rows.
func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{capacity: capacity, rows: make([]Row, 0, capacity)}
}

// Push appends a row, evicting the oldest excess rows in one batch.
func (h *History) Push(r Row) {
	h.rows = append(h.rows, r)
	if over := len(h.rows) - h.capacity; over > 0 {
		kept := make([]Row, h.capacity)
		copy(kept, h.rows[over:])
		h.rows = kept
	}
}

func (h *History) Len() int      { return len(h.rows) }
func (h *History) Capacity() int { return h.capacity }

// Rows returns a copy of the window, oldest first.
func (h *History) Rows() []Row {
	return append([]Row(nil), h.rows...)
}

// IgniteRate is the fraction of retained rows that ignited.
func (h *History) IgniteRate() float64 {
	var n float64
	for _, r := range h.rows {
		if r.Ignited {
			n++
		}
	}
	return n / h.denom()
}

// MeanDeltaG is the mean broadcast free-energy drop over the window.
func (h *History) MeanDeltaG() float64 {
	return h.mean(func(r Row) float64 { return r.DeltaG })
}

// Features snapshots the window statistics, stamped with timestep t.
func (h *History) Features(t int64) Features {
	return Features{
		T:               t,
		WindowLen:       len(h.rows),
		IgniteRate:      h.IgniteRate(),
		MeanDeltaG:      h.MeanDeltaG(),
		MeanTemperature: h.mean(func(r Row) float64 { return r.Temperature }),
		MeanStrength:    h.mean(func(r Row) float64 { return r.Strength }),
		MeanPressure:    h.mean(func(r Row) float64 { return r.Pressure }),
	}
}

// DecayHint shrinks toward zero as the window fills: 1/(1+len/16).
func (h *History) DecayHint() float64 {
	return 1 / (1 + math.Max(float64(len(h.rows))/16, 1e-9))
}

func (h *History) mean(field func(Row) float64) float64 {
	var s float64
	for _, r := range h.rows {
		s += field(r)
	}
	return s / h.denom()
}

func (h *History) denom() float64 {
	return math.Max(float64(len(h.rows)), 1)
}
