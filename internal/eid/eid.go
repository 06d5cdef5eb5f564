// Package eid implements the papyrus element identifier: a 4- or 8-byte
// handle interned once per document so that pointer equality implies
// value equality.
package eid

import (
	"cmp"
	"fmt"

	"papyrus/internal/binio"
)

// EID is an immutable element identifier. Obtain instances from a Table.
type EID struct {
	value uint64
	width uint8
}

// Value returns the raw numeric identifier.
func (id *EID) Value() uint64 {
	if id == nil {
		return 0
	}
	return id.value
}

// Width returns the encoded width in bytes.
func (id *EID) Width() int {
	if id == nil {
		return 0
	}
	return int(id.width)
}

// IsZero reports whether the id is the reserved "no reference" sentinel.
func (id *EID) IsZero() bool { return id == nil || id.value == 0 }

// Write emits the id in its table's width.
func (id *EID) Write(w *binio.Writer) {
	if id.width == 8 {
		w.PutU64(id.value)
		return
	}
	w.PutU32(uint32(id.value)) //nolint:gosec // 4-byte ids were read from 4 bytes
}

func (id *EID) String() string {
	if id == nil {
		return "<nil>"
	}
	if id.width == 8 {
		return fmt.Sprintf("%016x", id.value)
	}
	return fmt.Sprintf("%08x", id.value)
}

// Compare orders ids by unsigned numeric value; nil sorts as zero.
func Compare(a, b *EID) int {
	return cmp.Compare(a.Value(), b.Value())
}

// Table interns ids for one document.
// Not safe for concurrent use; build it single-threaded before any fan-out.
type Table struct {
	width uint8
	byVal map[uint64]*EID
	zero  *EID
}

// NewTable creates an intern table for ids of the given width (4 or 8).
func NewTable(width int) (*Table, error) {
	if width != 4 && width != 8 {
		return nil, fmt.Errorf("invalid identifier width %d", width)
	}
	t := &Table{
		width: uint8(width),
		byVal: make(map[uint64]*EID, 1024),
	}
	t.zero = t.Intern(0)
	return t, nil
}

// Width returns the id width in bytes.
func (t *Table) Width() int { return int(t.width) }

// Zero returns the canonical zero id.
func (t *Table) Zero() *EID { return t.zero }

// Intern returns the canonical id for v.
func (t *Table) Intern(v uint64) *EID {
	if t.width == 4 {
		v &= 0xFFFFFFFF
	}
	if id, ok := t.byVal[v]; ok {
		return id
	}
	id := &EID{value: v, width: t.width}
	t.byVal[v] = id
	return id
}

// Read decodes and interns an id from r.
func (t *Table) Read(r *binio.Reader) (*EID, error) {
	if t.width == 8 {
		v, err := r.U64()
		if err != nil {
			return nil, err
		}
		return t.Intern(v), nil
	}
	v, err := r.U32()
	if err != nil {
		return nil, err
	}
	return t.Intern(uint64(v)), nil
}

// Len returns the number of distinct ids seen, including zero.
func (t *Table) Len() int { return len(t.byVal) }
