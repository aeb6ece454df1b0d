package tempo

import (
	"fmt"
	"math"
)

// Fixed-point scales for the precise candidate. Frequency is exact to
// thousandths, cycle position to millionths.
const (
	FrequencyScale = 1_000
	CycleScale     = 1_000_000
)

// Kind tags a candidate variant.
type Kind int

const (
	// KindPrecise carries rational frequency and cycle count plus a
	// phase anchor.
	KindPrecise Kind = iota
	// KindSimple carries a bare float frequency and nothing else.
	KindSimple
)

func (k Kind) String() string {
	switch k {
	case KindPrecise:
		return "precise"
	case KindSimple:
		return "simple"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Rational is a fixed-denominator rational sized for tempo precision.
// It replaces arbitrary-precision arithmetic: the scales above keep the
// numerators far inside int64 for any playable tempo.
type Rational struct {
	Num int64
	Den int64
}

// RationalFromFloat rounds v to the nearest 1/scale.
func RationalFromFloat(v float64, scale int64) Rational {
	return Rational{Num: int64(math.Round(v * float64(scale))), Den: scale}
}

// Float converts the rational back to a float64.
func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// IsZero reports whether the rational is exactly zero.
func (r Rational) IsZero() bool {
	return r.Num == 0
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Candidate is one encoding of a desired tempo, offered to the
// rendering engine in order of decreasing precision.
type Candidate struct {
	Kind Kind

	// Precise fields.
	Frequency     Rational
	CycleCount    Rational
	AnchorTimeSec float64

	// Simple field.
	CPS float64
}

func (c Candidate) String() string {
	if c.Kind == KindPrecise {
		return fmt.Sprintf("precise{freq %s, cycle %s, anchor %.6f}", c.Frequency, c.CycleCount, c.AnchorTimeSec)
	}
	return fmt.Sprintf("simple{cps %g}", c.CPS)
}

// BuildCandidates produces the fallback chain for one accepted-to-be
// tempo: the precise rational encoding first, the bare frequency last.
// When no cycle is available the precise candidate carries the rational
// zero for its cycle count.
func BuildCandidates(cps, effectiveCycle float64, hasCycle bool, anchorTimeSec float64) []Candidate {
	cycle := Rational{Num: 0, Den: CycleScale}
	if hasCycle {
		cycle = RationalFromFloat(effectiveCycle, CycleScale)
	}

	return []Candidate{
		{
			Kind:          KindPrecise,
			Frequency:     RationalFromFloat(cps, FrequencyScale),
			CycleCount:    cycle,
			AnchorTimeSec: anchorTimeSec,
		},
		{
			Kind: KindSimple,
			CPS:  cps,
		},
	}
}
