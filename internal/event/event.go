// Package event defines the per-event input record and its line-delimited
// JSON reader.
package event

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/ignition/internal/sensory"
)

var (
	// ErrShapeMismatch means the tensor shape is empty or its first
	// dimension differs from the prior length.
	ErrShapeMismatch = errors.New("tensor shape mismatch")
	// ErrLikelihoodLength means the likelihood column length differs from the prior length.
	ErrLikelihoodLength = errors.New("likelihood column length mismatch")
	// ErrObservationIndex means the observation multi-index does not fit the tensor shape.
	ErrObservationIndex = errors.New("observation index out of range")
)

// Event is one input record.
type Event struct {
	T             int64     `json:"t"`
	O             []int     `json:"o"`
	Shape         []int     `json:"A_shape"`
	Likelihood    []float64 `json:"A_flat_col"`
	Prior         []float64 `json:"p_prior"`
	Task          []float64 `json:"task_vec"`
	InitialBelief []float64 `json:"q0,omitempty"`
	Strength      *float64  `json:"sniff_strength,omitempty"`
	Pressure      *float64  `json:"touch_pressure,omitempty"`
}

// Validate checks the event's dimensions against its prior length.
func (e Event) Validate() error {
	n := len(e.Prior)
	if len(e.Shape) == 0 || e.Shape[0] != n {
		return fmt.Errorf("event t=%d: %w: expected first dim %d, got %v", e.T, ErrShapeMismatch, n, e.Shape)
	}
	if len(e.Likelihood) != n {
		return fmt.Errorf("event t=%d: %w: expected %d, got %d", e.T, ErrLikelihoodLength, n, len(e.Likelihood))
	}
	dims := e.Shape[1:]
	if len(e.O) != len(dims) {
		return fmt.Errorf("event t=%d: %w: %d indices for %d dims", e.T, ErrObservationIndex, len(e.O), len(dims))
	}
	for i, o := range e.O {
		if o < 0 || o >= dims[i] {
			return fmt.Errorf("event t=%d: %w: o[%d]=%d not in [0,%d)", e.T, ErrObservationIndex, i, o, dims[i])
		}
	}
	return nil
}

// ObservationIndex is the row-major flat index of O over Shape[1:].
func (e Event) ObservationIndex() int {
	if len(e.Shape) == 0 {
		return 0
	}
	dims := e.Shape[1:]
	idx, stride := 0, 1
	for i := len(dims) - 1; i >= 0; i-- {
		j := len(e.O) - len(dims) + i
		if j < 0 {
			break
		}
		idx += e.O[j] * stride
		stride *= dims[i]
	}
	return idx
}

// Action returns the exploration inputs carried by the event. ok is false
// unless both strength and pressure are present.
func (e Event) Action() (a sensory.Action, ok bool) {
	if e.Strength == nil || e.Pressure == nil {
		return sensory.Action{}, false
	}
	return sensory.Action{Strength: *e.Strength, Pressure: *e.Pressure}, true
}

// Demo is the built-in demonstration event used by single-shot runs.
func Demo() Event {
	strength, pressure := 1.2, 0.0
	return Event{
		T:             0,
		O:             []int{1, 2},
		Shape:         []int{4, 3, 5},
		Likelihood:    []float64{0.2, 0.6, 0.1, 0.1},
		Prior:         []float64{0.4, 0.2, 0.2, 0.2},
		Task:          []float64{0, 1, 0, 0},
		InitialBelief: []float64{0.35, 0.22, 0.25, 0.18},
		Strength:      &strength,
		Pressure:      &pressure,
	}
}
