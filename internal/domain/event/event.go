// Package event normalizes the flat key/value argument lists carried by
// /dirt/play messages into typed records.
//
// The rhythm engine sends arguments as alternating keys and values:
// [k0, v0, k1, v1, ...]. Only cps (required) and cycle (optional) drive
// tempo decisions; every other pair is retained opaquely so generic
// logging can see it.
package event

import (
	"fmt"
	"math"
)

// Well-known keys in a /dirt/play argument list.
const (
	keyCPS   = "cps"
	keyCycle = "cycle"
)

// DirtPlay is one normalized /dirt/play event. It lives for a single
// dispatch: built from a datagram, consumed by the decision engine,
// discarded.
type DirtPlay struct {
	// CPS is the reported tempo in cycles per second. Always > 0 for
	// an event returned without error.
	CPS float64

	// Cycle is the reported cycle position. Valid only when HasCycle
	// is set; its presence is what enables phase correction.
	Cycle    float64
	HasCycle bool

	// Params holds every decoded key/value pair, including cps and
	// cycle, for diagnostics. Later duplicates overwrite earlier ones.
	Params map[string]any
}

// FromArgs pairs up a flat OSC argument list into a DirtPlay. A
// trailing key with no value is dropped. Keys are coerced to strings;
// values pass through as decoded by the wire codec.
func FromArgs(args []any) (DirtPlay, error) {
	params := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		params[coerceKey(args[i])] = args[i+1]
	}

	ev := DirtPlay{Params: params}

	cps, ok := asFloat(params[keyCPS])
	if !ok {
		return ev, fmt.Errorf("%w: no usable cps in %d args", ErrNoTempo, len(args))
	}
	if cps <= 0 || math.IsNaN(cps) || math.IsInf(cps, 0) {
		return ev, fmt.Errorf("%w: cps %v", ErrNoTempo, cps)
	}
	ev.CPS = cps

	if cycle, ok := asFloat(params[keyCycle]); ok && !math.IsNaN(cycle) && !math.IsInf(cycle, 0) {
		ev.Cycle = cycle
		ev.HasCycle = true
	}
	return ev, nil
}

// coerceKey renders any OSC argument as a map key.
func coerceKey(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// asFloat widens the numeric types the wire codec can produce.
func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
