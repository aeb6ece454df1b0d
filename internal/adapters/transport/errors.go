package transport

import "errors"

// Sentinel kinds for transport errors.
var (
	// ErrBind marks a failed socket bind. The transport stays unbound
	// and the caller may retry via Start or Restart.
	ErrBind = errors.New("udp bind failed")
)
