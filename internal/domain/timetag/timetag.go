// Package timetag converts OSC/NTP time representations to POSIX
// fractional seconds and back.
//
// OSC time tags use the NTP epoch (1900-01-01); POSIX time starts
// 2208988800 seconds later. Conversion never fails loudly: a value
// that cannot be read as a time yields (0, false) and callers fall back
// to the local clock.
package timetag

import (
	"math"
	"strconv"
	"time"
)

// Seconds between the NTP epoch (1900-01-01) and the Unix epoch (1970-01-01).
const epochOffset = 2208988800

// fracScale is 2^32, the denominator of the fractional half of an NTP word.
const fracScale = 1 << 32

// NTP is a raw NTP timestamp split into its two 32-bit halves.
type NTP struct {
	Seconds   uint32
	Fractions uint32
}

// FromNTP converts an NTP (seconds, fractions) pair to POSIX fractional
// seconds.
func FromNTP(sec, frac uint32) float64 {
	return float64(sec) + float64(frac)/fracScale - epochOffset
}

// FromWord converts a packed 64-bit NTP word (seconds in the high half,
// fractions in the low half) to POSIX fractional seconds.
func FromWord(w uint64) float64 {
	return FromNTP(uint32(w>>32), uint32(w))
}

// ToNTP converts POSIX fractional seconds back to an NTP pair. Times
// before the NTP epoch or past the 32-bit rollover are clamped.
func ToNTP(posix float64) (sec, frac uint32) {
	ntp := posix + epochOffset
	if ntp <= 0 || math.IsNaN(ntp) {
		return 0, 0
	}
	whole := math.Floor(ntp)
	if whole >= math.MaxUint32 {
		return math.MaxUint32, math.MaxUint32
	}
	return uint32(whole), uint32((ntp - whole) * fracScale)
}

// ToWord converts POSIX fractional seconds to a packed 64-bit NTP word.
func ToWord(posix float64) uint64 {
	sec, frac := ToNTP(posix)
	return uint64(sec)<<32 | uint64(frac)
}

// Decode extracts POSIX fractional seconds from whatever time-shaped
// value an OSC argument list may carry. Supported inputs:
//
//   - float64 / float32: already POSIX, passed through
//   - int32 / int64: whole POSIX seconds
//   - string: parsed as a POSIX float
//   - uint64: packed NTP word
//   - [2]uint32 or NTP: raw (seconds, fractions) pair
//
// Anything else, and any NaN/Inf result, returns (0, false).
func Decode(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return finite(t)
	case float32:
		return finite(float64(t))
	case int32:
		return float64(t), true
	case int64:
		return finite(float64(t))
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return finite(f)
	case uint64:
		return FromWord(t), true
	case [2]uint32:
		return FromNTP(t[0], t[1]), true
	case NTP:
		return FromNTP(t.Seconds, t.Fractions), true
	default:
		return 0, false
	}
}

// Now returns the current POSIX time in fractional seconds. Go's clock
// carries a monotonic reading on every supported platform, so there is
// no coarse wall-clock fallback path.
func Now() float64 {
	now := time.Now()
	return float64(now.Unix()) + float64(now.Nanosecond())/1e9
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
