// Package tempo holds the tempo model and the drift decision engine.
//
// The engine is a pure function: given the previously applied model and
// a new sample it decides whether the rendering engine needs a tempo
// update, and by how much the local phase prediction has drifted. All
// mutation of the live model happens in the caller, and only after a
// candidate was accepted by the renderer.
package tempo

import "math"

// cpsEpsilon is the frequency comparison tolerance. Two cps values
// closer than this are the same tempo.
const cpsEpsilon = 1e-9

// DefaultPhaseTolerance is the drift, in cycles, tolerated before a
// phase realignment is forced.
const DefaultPhaseTolerance = 1.0 / 64

// Model is the last tempo state accepted by the rendering engine.
// Frequency is cycles per second; CycleCount is the cycle position that
// was true at AnchorTimeSec (POSIX fractional seconds). The model is
// replaced wholesale on every accepted update, never field-by-field.
type Model struct {
	Frequency     float64
	AnchorTimeSec float64
	CycleCount    float64
}

// PredictCycle extrapolates the model's cycle position to atSec.
func (m Model) PredictCycle(atSec float64) float64 {
	return m.CycleCount + (atSec-m.AnchorTimeSec)*m.Frequency
}

// Sample is one tempo observation extracted from a /dirt/play event.
type Sample struct {
	CPS      float64
	Cycle    float64
	HasCycle bool

	// TimeSec is when the sample was true: the bundle timetag when one
	// was usable, otherwise local receive time.
	TimeSec float64
}

// Settings is the immutable configuration snapshot for one evaluation.
type Settings struct {
	PhaseSync      bool
	PhaseTolerance float64
	LeadCycles     float64
}

// Decision is the outcome of evaluating one sample.
type Decision struct {
	ShouldUpdate bool
	HasCycle     bool

	// PhaseDrift is predicted minus reported cycle position, wrapped
	// into [-0.5, 0.5). Zero when phase sync is off or no cycle came
	// with the sample.
	PhaseDrift float64
}

// Evaluate decides whether a sample warrants pushing a new tempo.
// An update is warranted when the frequency changed, or when phase sync
// is on and either no anchored model exists yet (first observation
// always anchors) or the wrapped drift exceeds the tolerance.
func Evaluate(prev *Model, s Sample, cfg Settings) Decision {
	d := Decision{HasCycle: s.HasCycle}

	cpsChanged := prev == nil || math.Abs(s.CPS-prev.Frequency) >= cpsEpsilon

	needRealign := false
	if cfg.PhaseSync && s.HasCycle {
		if prev == nil {
			needRealign = true
		} else {
			d.PhaseDrift = WrapPhase(prev.PredictCycle(s.TimeSec) - s.Cycle)
			needRealign = math.Abs(d.PhaseDrift) > cfg.PhaseTolerance
		}
	}

	d.ShouldUpdate = cpsChanged || needRealign
	return d
}

// WrapPhase folds a cycle offset into [-0.5, 0.5). The result is
// congruent to d modulo 1.
func WrapPhase(d float64) float64 {
	w := math.Mod(math.Mod(d, 1)+1, 1)
	if w >= 0.5 {
		w -= 1
	}
	return w
}

// LeadCompensate shifts a reported cycle by the configured lead,
// itself wrapped into [-0.5, 0.5). The lead absorbs constant scheduling
// latency between the rhythm engine and local rendering and applies on
// every cycle-bearing sample, whatever triggered the update.
func LeadCompensate(cycle, leadCycles float64) float64 {
	return cycle + WrapPhase(leadCycles)
}

// Next returns the model that an accepted candidate establishes.
// With a cycle present the sample re-anchors phase outright; without
// one the previous cycle count survives (zero when there was no
// previous model) so that frequency-only updates keep phase continuity.
func Next(prev *Model, s Sample, effectiveCycle float64) Model {
	if s.HasCycle {
		return Model{Frequency: s.CPS, AnchorTimeSec: s.TimeSec, CycleCount: effectiveCycle}
	}
	carried := 0.0
	if prev != nil {
		carried = prev.CycleCount
	}
	return Model{Frequency: s.CPS, AnchorTimeSec: s.TimeSec, CycleCount: carried}
}
