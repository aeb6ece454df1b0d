package event

import "errors"

// Sentinel kinds for normalization errors.
var (
	// ErrNoTempo marks an event whose arguments carry no actionable
	// cps value. The event is logged and skipped; later events are
	// unaffected.
	ErrNoTempo = errors.New("event carries no usable cps")
)
