package osc

import (
	"time"

	"github.com/cadencelab/tempolink/internal/domain/timetag"
)

// Timetag is a 64-bit NTP fixed-point timestamp: seconds since
// 1900-01-01 in the high 32 bits, binary fractions of a second in the
// low 32 bits.
type Timetag uint64

// Immediately is the reserved tag (63 zero bits then a one) meaning
// "process now".
const Immediately Timetag = 1

// TimetagFromTime converts a wall-clock time to an OSC time tag.
func TimetagFromTime(t time.Time) Timetag {
	posix := float64(t.Unix()) + float64(t.Nanosecond())/1e9
	return TimetagFromPosix(posix)
}

// TimetagFromPosix converts POSIX fractional seconds to an OSC time tag.
func TimetagFromPosix(posix float64) Timetag {
	return Timetag(timetag.ToWord(posix))
}

// Posix converts the tag to POSIX fractional seconds.
func (t Timetag) Posix() float64 {
	return timetag.FromWord(uint64(t))
}

// Seconds returns the NTP seconds half of the tag.
func (t Timetag) Seconds() uint32 {
	return uint32(t >> 32)
}

// Fractions returns the NTP fractional half of the tag.
func (t Timetag) Fractions() uint32 {
	return uint32(t)
}

// IsImmediate reports whether the tag is the reserved "now" value.
func (t Timetag) IsImmediate() bool {
	return t <= Immediately
}
