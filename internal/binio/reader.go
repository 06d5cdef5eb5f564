// Package binio provides the little-endian byte cursor shared by every
// record decoder and encoder of the papyrus section.
package binio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"fortio.org/safecast"
)

// ErrTruncated reports that a read ran past the end of the buffer.
var ErrTruncated = errors.New("unexpected end of data")

// Reader is a forward cursor over a fully materialised byte slice.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps data; the reader never copies it.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Pos returns the current offset from the start of the buffer.
func (r *Reader) Pos() int { return r.pos }

// Len returns the total buffer length.
func (r *Reader) Len() int { return len(r.data) }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

func (r *Reader) truncated(n int, what string) error {
	return fmt.Errorf("%s at offset %d: need %d bytes, have %d: %w", what, r.pos, n, r.Remaining(), ErrTruncated)
}

// Skip moves the cursor by delta bytes relative to the current position.
func (r *Reader) Skip(delta int) error {
	next := r.pos + delta
	if next < 0 {
		return fmt.Errorf("seek to %d before start of data", next)
	}
	if next > len(r.data) {
		return r.truncated(delta, "skip")
	}
	r.pos = next
	return nil
}

// Peek returns the next n bytes without advancing.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, r.truncated(n, "peek")
	}
	return r.data[r.pos : r.pos+n], nil
}

// U8 reads one byte.
func (r *Reader) U8() (uint8, error) {
	if r.pos >= len(r.data) {
		return 0, r.truncated(1, "u8")
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, r.truncated(2, "u16")
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, r.truncated(4, "u32")
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// U64 reads a little-endian uint64.
func (r *Reader) U64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, r.truncated(8, "u64")
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// Count16 reads a uint16 element count.
func (r *Reader) Count16() (int, error) {
	v, err := r.U16()
	return int(v), err
}

// Count32 reads a uint32 element count as an int.
func (r *Reader) Count32() (int, error) {
	v, err := r.U32()
	if err != nil {
		return 0, err
	}
	n, err := safecast.Conv[int](v)
	if err != nil {
		return 0, fmt.Errorf("count %d at offset %d: %w", v, r.pos-4, err)
	}
	return n, nil
}

// I32 reads a little-endian int32.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err //nolint:gosec // two's complement reinterpretation
}

// F32 reads a little-endian IEEE-754 float32.
func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// Bytes reads n bytes and returns a copy.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative length %d at offset %d", n, r.pos)
	}
	if r.pos+n > len(r.data) {
		return nil, r.truncated(n, "bytes")
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

// Rest consumes and returns a copy of everything left in the buffer.
func (r *Reader) Rest() []byte {
	out := make([]byte, r.Remaining())
	copy(out, r.data[r.pos:])
	r.pos = len(r.data)
	return out
}

// IsTruncated reports whether err was caused by running out of data.
func IsTruncated(err error) bool {
	return errors.Is(err, ErrTruncated)
}

// FormatError reports structurally invalid data: a bad tag, index, count or
// version. It is always fatal for the record being decoded.
type FormatError struct {
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error at offset %d: %s", e.Offset, e.Msg)
}

// Errorf builds a FormatError positioned at the reader's current offset.
func (r *Reader) Errorf(format string, args ...any) *FormatError {
	return &FormatError{Offset: r.pos, Msg: fmt.Sprintf(format, args...)}
}
