package osc

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// readPaddedString consumes a NUL-terminated, 4-byte padded OSC string
// and returns it along with the number of bytes consumed.
func readPaddedString(data []byte) (string, int, error) {
	end := bytes.IndexByte(data, 0)
	if end < 0 {
		return "", 0, fmt.Errorf("%w: unterminated string", ErrTruncated)
	}
	n := end + 1
	n += pad(n)
	if n > len(data) {
		return "", 0, fmt.Errorf("%w: string padding", ErrTruncated)
	}
	return string(data[:end]), n, nil
}

// writePaddedString appends s as an OSC string: NUL-terminated and
// padded to a 4-byte boundary.
func writePaddedString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte(0)
	for i := 0; i < pad(len(s)+1); i++ {
		buf.WriteByte(0)
	}
}

// readBlob consumes a length-prefixed, padded OSC blob.
func readBlob(data []byte) ([]byte, int, error) {
	if len(data) < word {
		return nil, 0, fmt.Errorf("%w: blob length", ErrTruncated)
	}
	size := int(int32(binary.BigEndian.Uint32(data)))
	if size < 0 || word+size > len(data) {
		return nil, 0, fmt.Errorf("%w: blob of %d bytes", ErrTruncated, size)
	}
	n := word + size
	n += pad(n)
	if n > len(data) {
		return nil, 0, fmt.Errorf("%w: blob padding", ErrTruncated)
	}
	blob := make([]byte, size)
	copy(blob, data[word:word+size])
	return blob, n, nil
}

// writeBlob appends b as an OSC blob: 32-bit length, data, padding.
func writeBlob(buf *bytes.Buffer, b []byte) {
	var size [word]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(b)))
	buf.Write(size[:])
	buf.Write(b)
	for i := 0; i < pad(word+len(b)); i++ {
		buf.WriteByte(0)
	}
}

// pad returns the number of zero bytes needed to reach the next 4-byte
// boundary after n bytes.
func pad(n int) int {
	return (word - n%word) % word
}
