// Package osc implements the subset of Open Sound Control 1.0 that
// tempolink speaks on the wire: messages, bundles (recursively), time
// tags, and the i/h/f/d/s/b/t/T/F/N argument types.
//
// Decoding is defensive: every length and padding boundary is checked
// and every failure is an error, because the UDP socket receives
// whatever anyone sends it.
package osc

import (
	"encoding"
	"fmt"
)

// MaxPacketSize is the largest datagram the codec will produce or
// accept. 64k covers anything a UDP payload can legally carry.
const MaxPacketSize = 65536

// bundleTag is the OSC-string that opens every bundle.
const bundleTag = "#bundle"

const (
	word       = 4 // 32-bit alignment unit
	doubleWord = 8
)

// Packet is either a *Message or a *Bundle.
type Packet interface {
	encoding.BinaryMarshaler
}

// Message is a single OSC message: an address pattern plus zero or more
// typed arguments.
type Message struct {
	Address   string
	Arguments []any
}

var _ Packet = (*Message)(nil)

// Bundle is a time-tagged container of messages and nested bundles.
type Bundle struct {
	Timetag  Timetag
	Elements []Packet
}

var _ Packet = (*Bundle)(nil)

// NewMessage returns a Message for the given address and arguments.
func NewMessage(addr string, args ...any) *Message {
	return &Message{Address: addr, Arguments: args}
}

// Append adds arguments to the message.
func (m *Message) Append(args ...any) {
	m.Arguments = append(m.Arguments, args...)
}

// ParsePacket decodes a raw datagram into a Message or Bundle. The
// first byte decides the flavor: '/' opens a message address, '#' a
// bundle. Anything else fails header validation with ErrInvalidPacket.
func ParsePacket(data []byte) (Packet, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty datagram", ErrInvalidPacket)
	}
	switch data[0] {
	case '/':
		m := &Message{}
		if err := m.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return m, nil
	case '#':
		b := &Bundle{}
		if err := b.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: leading byte %#x", ErrInvalidPacket, data[0])
	}
}
