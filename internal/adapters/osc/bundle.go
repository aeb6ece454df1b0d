package osc

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// minBundleLen is "#bundle\0" plus the 64-bit time tag.
const minBundleLen = 8 + doubleWord

// NewBundle returns a bundle carrying the given packets, tagged
// Immediately.
func NewBundle(elements ...Packet) *Bundle {
	return &Bundle{Timetag: Immediately, Elements: elements}
}

// Append adds a message or nested bundle to the bundle.
func (b *Bundle) Append(p Packet) error {
	switch p.(type) {
	case *Message, *Bundle:
		b.Elements = append(b.Elements, p)
		return nil
	default:
		return fmt.Errorf("unsupported packet type %T", p)
	}
}

// MarshalBinary serializes the bundle: the "#bundle" tag, the time tag,
// then each element preceded by its 32-bit length.
func (b *Bundle) MarshalBinary() ([]byte, error) {
	buf := &bytes.Buffer{}
	writePaddedString(buf, bundleTag)
	if err := binary.Write(buf, binary.BigEndian, uint64(b.Timetag)); err != nil {
		return nil, err
	}

	for _, el := range b.Elements {
		body, err := el.MarshalBinary()
		if err != nil {
			return nil, err
		}
		if err := binary.Write(buf, binary.BigEndian, int32(len(body))); err != nil {
			return nil, err
		}
		buf.Write(body)
	}

	if buf.Len() > MaxPacketSize {
		return nil, fmt.Errorf("bundle too large: %d bytes", buf.Len())
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a bundle datagram, recursing into nested
// bundles.
func (b *Bundle) UnmarshalBinary(data []byte) error {
	if len(data)%word != 0 {
		return fmt.Errorf("%w: length %d not 32-bit aligned", ErrInvalidPacket, len(data))
	}
	if len(data) < minBundleLen {
		return fmt.Errorf("%w: bundle of %d bytes", ErrTruncated, len(data))
	}

	tag, n, err := readPaddedString(data)
	if err != nil {
		return fmt.Errorf("bundle tag: %w", err)
	}
	if tag != bundleTag {
		return fmt.Errorf("%w: bundle tag %q", ErrInvalidPacket, tag)
	}
	data = data[n:]

	if len(data) < doubleWord {
		return fmt.Errorf("%w: bundle timetag", ErrTruncated)
	}
	b.Timetag = Timetag(binary.BigEndian.Uint64(data))
	data = data[doubleWord:]

	for len(data) > 0 {
		if len(data) < word {
			return fmt.Errorf("%w: element length", ErrTruncated)
		}
		size := int(int32(binary.BigEndian.Uint32(data)))
		data = data[word:]
		if size <= 0 || size > len(data) {
			return fmt.Errorf("%w: element of %d bytes", ErrTruncated, size)
		}

		el, err := ParsePacket(data[:size])
		if err != nil {
			return fmt.Errorf("bundle element: %w", err)
		}
		data = data[size:]
		if err := b.Append(el); err != nil {
			return err
		}
	}
	return nil
}
