package osc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// MarshalBinary serializes the message: padded address, padded type tag
// string, then the arguments back to back.
func (m *Message) MarshalBinary() ([]byte, error) {
	tags, payload, err := m.marshalArguments()
	if err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	writePaddedString(buf, m.Address)
	writePaddedString(buf, tags)
	buf.Write(payload)

	if buf.Len() > MaxPacketSize {
		return nil, fmt.Errorf("message too large: %d bytes", buf.Len())
	}
	return buf.Bytes(), nil
}

// marshalArguments builds the type tag string and the argument payload.
func (m *Message) marshalArguments() (string, []byte, error) {
	tags := make([]byte, 0, len(m.Arguments)+1)
	tags = append(tags, ',')
	payload := &bytes.Buffer{}

	for _, arg := range m.Arguments {
		switch v := arg.(type) {
		case int32:
			tags = append(tags, 'i')
			if err := binary.Write(payload, binary.BigEndian, v); err != nil {
				return "", nil, err
			}
		case int64:
			tags = append(tags, 'h')
			if err := binary.Write(payload, binary.BigEndian, v); err != nil {
				return "", nil, err
			}
		case float32:
			tags = append(tags, 'f')
			if err := binary.Write(payload, binary.BigEndian, v); err != nil {
				return "", nil, err
			}
		case float64:
			tags = append(tags, 'd')
			if err := binary.Write(payload, binary.BigEndian, v); err != nil {
				return "", nil, err
			}
		case string:
			tags = append(tags, 's')
			writePaddedString(payload, v)
		case []byte:
			tags = append(tags, 'b')
			writeBlob(payload, v)
		case Timetag:
			tags = append(tags, 't')
			if err := binary.Write(payload, binary.BigEndian, uint64(v)); err != nil {
				return "", nil, err
			}
		case bool:
			if v {
				tags = append(tags, 'T')
			} else {
				tags = append(tags, 'F')
			}
		case nil:
			tags = append(tags, 'N')
		default:
			return "", nil, fmt.Errorf("%w: unsupported argument type %T", ErrBadTypeTag, arg)
		}
	}
	return string(tags), payload.Bytes(), nil
}

// UnmarshalBinary decodes a message datagram.
func (m *Message) UnmarshalBinary(data []byte) error {
	if len(data) == 0 || data[0] != '/' {
		return fmt.Errorf("%w: missing address", ErrInvalidPacket)
	}
	if len(data)%word != 0 {
		return fmt.Errorf("%w: length %d not 32-bit aligned", ErrInvalidPacket, len(data))
	}

	addr, n, err := readPaddedString(data)
	if err != nil {
		return fmt.Errorf("message address: %w", err)
	}
	m.Address = addr
	data = data[n:]

	// A message may legally end after its address.
	if len(data) == 0 {
		m.Arguments = nil
		return nil
	}

	tags, n, err := readPaddedString(data)
	if err != nil {
		return fmt.Errorf("message type tags: %w", err)
	}
	data = data[n:]

	if len(tags) == 0 {
		m.Arguments = nil
		return nil
	}
	if tags[0] != ',' {
		return fmt.Errorf("%w: %q", ErrBadTypeTag, tags)
	}

	return m.readArguments(tags[1:], data)
}

func (m *Message) readArguments(tags string, data []byte) error {
	m.Arguments = make([]any, 0, len(tags))

	for _, tag := range tags {
		switch tag {
		case 'i':
			if len(data) < word {
				return fmt.Errorf("%w: int32 argument", ErrTruncated)
			}
			m.Arguments = append(m.Arguments, int32(binary.BigEndian.Uint32(data)))
			data = data[word:]
		case 'h':
			if len(data) < doubleWord {
				return fmt.Errorf("%w: int64 argument", ErrTruncated)
			}
			m.Arguments = append(m.Arguments, int64(binary.BigEndian.Uint64(data)))
			data = data[doubleWord:]
		case 'f':
			if len(data) < word {
				return fmt.Errorf("%w: float32 argument", ErrTruncated)
			}
			m.Arguments = append(m.Arguments, math.Float32frombits(binary.BigEndian.Uint32(data)))
			data = data[word:]
		case 'd':
			if len(data) < doubleWord {
				return fmt.Errorf("%w: float64 argument", ErrTruncated)
			}
			m.Arguments = append(m.Arguments, math.Float64frombits(binary.BigEndian.Uint64(data)))
			data = data[doubleWord:]
		case 's':
			s, n, err := readPaddedString(data)
			if err != nil {
				return fmt.Errorf("string argument: %w", err)
			}
			m.Arguments = append(m.Arguments, s)
			data = data[n:]
		case 'b':
			b, n, err := readBlob(data)
			if err != nil {
				return fmt.Errorf("blob argument: %w", err)
			}
			m.Arguments = append(m.Arguments, b)
			data = data[n:]
		case 't':
			if len(data) < doubleWord {
				return fmt.Errorf("%w: timetag argument", ErrTruncated)
			}
			m.Arguments = append(m.Arguments, Timetag(binary.BigEndian.Uint64(data)))
			data = data[doubleWord:]
		case 'T':
			m.Arguments = append(m.Arguments, true)
		case 'F':
			m.Arguments = append(m.Arguments, false)
		case 'N':
			m.Arguments = append(m.Arguments, nil)
		default:
			return fmt.Errorf("%w: %q", ErrBadTypeTag, tag)
		}
	}
	return nil
}

// String renders the message for debug logging.
func (m *Message) String() string {
	if m == nil {
		return ""
	}
	return fmt.Sprintf("%s %v", m.Address, m.Arguments)
}
