package binio

import (
	"encoding/binary"
	"fmt"
	"math"

	"fortio.org/safecast"
)

// Writer appends little-endian values to a growing buffer.
type Writer struct {
	buf []byte
}

// NewWriter creates a writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	if capacity < 0 {
		capacity = 0
	}
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Pos returns the number of bytes written so far.
func (w *Writer) Pos() int { return len(w.buf) }

// Bytes returns the written bytes. The slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// PutU8 appends one byte.
func (w *Writer) PutU8(v uint8) { w.buf = append(w.buf, v) }

// PutU16 appends a little-endian uint16.
func (w *Writer) PutU16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }

// PutU32 appends a little-endian uint32.
func (w *Writer) PutU32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

// PutU64 appends a little-endian uint64.
func (w *Writer) PutU64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

// PutI32 appends a little-endian int32.
func (w *Writer) PutI32(v int32) { w.PutU32(uint32(v)) } //nolint:gosec // two's complement reinterpretation

// PutF32 appends a little-endian IEEE-754 float32.
func (w *Writer) PutF32(v float32) { w.PutU32(math.Float32bits(v)) }

// PutBytes appends raw bytes.
func (w *Writer) PutBytes(b []byte) { w.buf = append(w.buf, b...) }

// PutLen16 appends n as a uint16 count, failing when it does not fit.
func (w *Writer) PutLen16(n int) error {
	v, err := safecast.Conv[uint16](n)
	if err != nil {
		return fmt.Errorf("count %d overflows u16: %w", n, err)
	}
	w.PutU16(v)
	return nil
}

// PutLen32 appends n as a uint32 count, failing when it does not fit.
func (w *Writer) PutLen32(n int) error {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return fmt.Errorf("count %d overflows u32: %w", n, err)
	}
	w.PutU32(v)
	return nil
}
