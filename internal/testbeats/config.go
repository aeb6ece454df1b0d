// Package testbeats generates synthetic /dirt/play traffic for testing
// a running tempolink daemon.
package testbeats

import "time"

// Config controls a generator run.
type Config struct {
	// Host and Port address the daemon's OSC socket.
	Host string
	Port int

	// CPS is the tempo reported by the synthetic stream.
	CPS float64

	// Count is the number of events to send; 0 means run until the
	// context is canceled.
	Count int

	// Interval is the spacing between events.
	Interval time.Duration

	// DriftCycles is added to the reported cycle each event, on top of
	// the natural advance, to exercise drift correction.
	DriftCycles float64

	// JumpEvery injects a cps change every n events; 0 disables.
	JumpEvery int

	// Bundle wraps each message in a timetagged OSC bundle.
	Bundle bool

	// MalformedEvery sends a non-OSC datagram every n events to
	// exercise the malformed-traffic path; 0 disables.
	MalformedEvery int
}

// Defaults for the generator CLI.
func DefaultConfig() Config {
	return Config{
		Host:     "127.0.0.1",
		Port:     57121,
		CPS:      0.5625, // 135 bpm at 4 beats per cycle
		Count:    64,
		Interval: 250 * time.Millisecond,
	}
}
