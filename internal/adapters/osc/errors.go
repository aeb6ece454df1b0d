package osc

import "errors"

// Sentinel kinds for codec errors.
var (
	// ErrInvalidPacket marks a datagram that fails OSC header
	// validation outright (not '/' or '#bundle'). The transport
	// rate-limits its logging because misconfigured senders tend to
	// produce it in bursts.
	ErrInvalidPacket = errors.New("not an OSC packet")

	// ErrTruncated marks a packet that opened correctly but ran out
	// of bytes mid-field.
	ErrTruncated = errors.New("truncated OSC packet")

	// ErrBadTypeTag marks an unsupported or malformed type tag string.
	ErrBadTypeTag = errors.New("bad OSC type tag")
)
