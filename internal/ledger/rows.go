// Package ledger turns processed events into Trace and Replay records and
// writes them to append-only sinks.
package ledger

import (
	"github.com/danielpatrickdp/ignition/internal/session"
)

// TraceRow is the compact per-event record.
type TraceRow struct {
	T               int64     `json:"t"`
	ObsIndex        int       `json:"o_idx"`
	Uncertainty     float64   `json:"u_t"`
	GBefore         float64   `json:"g_before"`
	GAfterLocal     float64   `json:"g_after_local"`
	GAfterBroadcast float64   `json:"g_after_broadcast"`
	DGLocal         float64   `json:"d_g_local"`
	DGBroadcast     float64   `json:"d_g_broadcast"`
	Ignited         bool      `json:"ignited"`
	IgniteReason    string    `json:"ignite_reason"`
	Theta           float64   `json:"theta"`
	SurvivorsN      int       `json:"survivors_n"`
	Coherence       float64   `json:"coherence"`
	SurvivorLevels  []int     `json:"survivor_levels"`
	QAfter          []float64 `json:"q_after"`
	Broadcast       []float64 `json:"broadcast"`
	Dx              []float64 `json:"dx"`
	E               float64   `json:"e"`
	P               float64   `json:"p"`
	K               float64   `json:"k"`
	Eta             float64   `json:"eta"`
}

// ReplayRow carries everything needed to audit or re-derive an event.
type ReplayRow struct {
	T            int64   `json:"t"`
	ObsIndex     int     `json:"o_idx"`
	Strength     float64 `json:"sniff_strength"`
	Pressure     float64 `json:"touch_pressure"`
	ActionSource string  `json:"action_source"`
	Temperature  float64 `json:"temperature"`

	QBefore    []float64 `json:"q_before"`
	QAfter     []float64 `json:"q_after"`
	QBroadcast []float64 `json:"q_broadcast"`
	QNext      []float64 `json:"q_next"`

	SurvivorsN     int       `json:"survivors_n"`
	SurvivorLevels []int     `json:"survivor_levels"`
	Broadcast      []float64 `json:"broadcast"`
	BExpanded      []float64 `json:"b_expanded"`

	Ignited      bool   `json:"ignited"`
	IgniteReason string `json:"ignite_reason"`

	GBefore         float64 `json:"g_before"`
	GAfterLocal     float64 `json:"g_after_local"`
	GAfterBroadcast float64 `json:"g_after_broadcast"`
	DGLocal         float64 `json:"d_g_local"`
	DGBroadcast     float64 `json:"d_g_broadcast"`

	Uncertainty float64   `json:"u_t"`
	Theta       float64   `json:"theta"`
	Coherence   float64   `json:"coherence"`
	Dx          []float64 `json:"dx"`
	E           float64   `json:"e"`
	P           float64   `json:"p"`
	K           float64   `json:"k"`
	Eta         float64   `json:"eta"`

	MemWindowLen       int     `json:"mem_window_len"`
	MemIgniteRate      float64 `json:"mem_ignite_rate"`
	MemMeanDGBroadcast float64 `json:"mem_mean_d_g_broadcast"`
}

type firstSurvivor struct {
	dx           []float64
	e, p, k, eta float64
}

func first(out session.Outcome) firstSurvivor {
	s, ok := out.Result.FirstSurvivor()
	if !ok {
		return firstSurvivor{dx: []float64{}}
	}
	return firstSurvivor{dx: vec(s.Delta), e: s.Energy, p: s.PrecisionGain, k: s.Complexity, eta: s.Efficiency}
}

// NewTraceRow flattens an outcome into a trace record.
func NewTraceRow(out session.Outcome) TraceRow {
	r := out.Result
	fs := first(out)
	return TraceRow{
		T:               out.Event.T,
		ObsIndex:        out.ObservationIndex,
		Uncertainty:     r.Uncertainty,
		GBefore:         r.G.Before,
		GAfterLocal:     r.G.AfterLocal,
		GAfterBroadcast: r.G.AfterBroadcast,
		DGLocal:         r.G.DeltaLocal,
		DGBroadcast:     r.G.DeltaBroadcast,
		Ignited:         r.Decision.Ignited,
		IgniteReason:    string(r.Decision.Reason),
		Theta:           r.Filter.Theta,
		SurvivorsN:      len(r.Filter.Survivors),
		Coherence:       r.Coherence,
		SurvivorLevels:  r.Filter.Levels(),
		QAfter:          vec(r.After),
		Broadcast:       vec(r.Coarse),
		Dx:              fs.dx,
		E:               fs.e,
		P:               fs.p,
		K:               fs.k,
		Eta:             fs.eta,
	}
}

// NewReplayRow flattens an outcome into a replay record. History features
// are the ones observed after this event's row was pushed.
func NewReplayRow(out session.Outcome) ReplayRow {
	r := out.Result
	fs := first(out)
	return ReplayRow{
		T:                  out.Event.T,
		ObsIndex:           out.ObservationIndex,
		Strength:           out.Action.Strength,
		Pressure:           out.Action.Pressure,
		ActionSource:       string(out.ActionSource),
		Temperature:        r.Sensory.Temperature,
		QBefore:            vec(r.Before),
		QAfter:             vec(r.After),
		QBroadcast:         vec(r.Broadcast),
		QNext:              vec(r.Next),
		SurvivorsN:         len(r.Filter.Survivors),
		SurvivorLevels:     r.Filter.Levels(),
		Broadcast:          vec(r.Coarse),
		BExpanded:          vec(r.Expanded),
		Ignited:            r.Decision.Ignited,
		IgniteReason:       string(r.Decision.Reason),
		GBefore:            r.G.Before,
		GAfterLocal:        r.G.AfterLocal,
		GAfterBroadcast:    r.G.AfterBroadcast,
		DGLocal:            r.G.DeltaLocal,
		DGBroadcast:        r.G.DeltaBroadcast,
		Uncertainty:        r.Uncertainty,
		Theta:              r.Filter.Theta,
		Coherence:          r.Coherence,
		Dx:                 fs.dx,
		E:                  fs.e,
		P:                  fs.p,
		K:                  fs.k,
		Eta:                fs.eta,
		MemWindowLen:       out.Post.WindowLen,
		MemIgniteRate:      out.Post.IgniteRate,
		MemMeanDGBroadcast: out.Post.MeanDeltaG,
	}
}

// vec copies v, mapping nil to an empty slice so it encodes as [].
func vec(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
