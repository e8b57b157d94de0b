// Package packet decodes the few raw game packets the watcher needs to look
// at directly. Payloads come from clients and are treated as hostile: every
// read is bounds-checked and a short buffer is an error, never a panic.
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// ErrTruncated is returned when a payload ends before a field is complete.
var ErrTruncated = errors.New("packet truncated")

// maxStringLen caps length-prefixed strings so a forged prefix cannot make
// the reader allocate an arbitrary amount of memory.
const maxStringLen = 1 << 12

// Reader is a little-endian cursor over a packet body.
type Reader struct {
	buf []byte
	off int
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Remaining reports how many unread bytes are left.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, fmt.Errorf("need %d bytes at offset %d: %w", n, r.off, ErrTruncated)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadInt16() (int16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(b)), nil
}

// ReadString reads a string prefixed with its byte length encoded as a
// 7-bit variable-length integer. Invalid UTF-8 sequences are replaced with
// U+FFFD, as the game server does.
func (r *Reader) ReadString() (string, error) {
	n, size := binary.Uvarint(r.buf[r.off:])
	switch {
	case size == 0:
		return "", fmt.Errorf("string length at offset %d: %w", r.off, ErrTruncated)
	case size < 0 || n > maxStringLen:
		return "", fmt.Errorf("string length at offset %d out of range", r.off)
	}
	r.off += size
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(b), "\uFFFD"), nil
}
