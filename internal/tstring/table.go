package tstring

import (
	"errors"
	"fmt"

	"papyrus/internal/binio"
	"papyrus/internal/game"
)

// STBThreshold is the declared count below which a Skyrim LE table is
// assumed to have overflowed its 16-bit count.
const STBThreshold = 20000

const escape16 = 0xFFFF

var (
	// ErrStringTableBug reports that the table was read in corrected mode and
	// cannot be written back.
	ErrStringTableBug = errors.New("string table was read with the count-overflow correction; writing is disabled")

	errFreeString = errors.New("cannot write a string that is not in a table")
)

// Mode is the encoding of the table count and of every string index.
type Mode uint8

const (
	// Mode16 uses a u16 count and u16 indices.
	Mode16 Mode = iota
	// ModeEscaped uses the 0xFFFF escape followed by a u32 count, and u32 indices.
	ModeEscaped
	// Mode32 always uses a u32 count and u32 indices.
	Mode32
)

func (m Mode) String() string {
	switch m {
	case Mode16:
		return "16"
	case ModeEscaped:
		return "16+escape"
	case Mode32:
		return "32"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// Table is the per-document string table.
type Table struct {
	mode      Mode
	strs      []*TString
	declared  int
	corrected bool
}

// NewTable creates an empty table for the given variant.
func NewTable(v game.Variant) *Table {
	t := &Table{mode: Mode16}
	if v.Str32 {
		t.mode = Mode32
	}
	return t
}

// Read decodes a string table. On truncation the strings read so far are
// kept, IsTruncated reports true and the truncation error is returned.
func Read(r *binio.Reader, v game.Variant) (*Table, error) {
	t := NewTable(v)
	count, err := t.readCount(r)
	if err != nil {
		return t, err
	}
	t.declared = count

	if v.DetectsStringTableBug() && t.mode == Mode16 && count < STBThreshold {
		start := r.Pos()
		if err := t.readEntries(r, count+0x10000); err == nil {
			t.corrected = true
			return t, nil
		}
		// Not enough data for the overflowed count: the declared count is genuine.
		t.strs = t.strs[:0]
		if err := r.Skip(start - r.Pos()); err != nil {
			return t, err
		}
	}

	return t, t.readEntries(r, count)
}

func (t *Table) readCount(r *binio.Reader) (int, error) {
	if t.mode == Mode32 {
		return r.Count32()
	}
	n, err := r.Count16()
	if err != nil {
		return 0, err
	}
	if n != escape16 {
		return n, nil
	}
	t.mode = ModeEscaped
	return r.Count32()
}

func (t *Table) readEntries(r *binio.Reader, count int) error {
	for i := range count {
		n, err := r.Count16()
		if err != nil {
			return fmt.Errorf("string %d of %d: %w", i, count, err)
		}
		raw, err := r.Bytes(n)
		if err != nil {
			return fmt.Errorf("string %d of %d: %w", i, count, err)
		}
		t.append(string(raw))
	}
	return nil
}

func (t *Table) append(raw string) *TString {
	s := &TString{table: t, index: len(t.strs), raw: raw, fold: foldKey(raw)}
	t.strs = append(t.strs, s)
	return s
}

// ReadRef decodes a string reference and resolves it against the table.
func (t *Table) ReadRef(r *binio.Reader) (*TString, error) {
	var idx int
	if t.IndexWidth() == 4 {
		n, err := r.Count32()
		if err != nil {
			return nil, err
		}
		idx = n
	} else {
		n, err := r.Count16()
		if err != nil {
			return nil, err
		}
		idx = n
	}
	if idx < 0 || idx >= len(t.strs) {
		return nil, &binio.FormatError{
			Offset: r.Pos() - t.IndexWidth(),
			Msg:    fmt.Sprintf("string index %d out of range (table has %d)", idx, len(t.strs)),
		}
	}
	return t.strs[idx], nil
}

// Add returns the entry equal to value, appending it when absent.
// The search is a linear case-insensitive scan.
func (t *Table) Add(value string) *TString {
	key := foldKey(value)
	for _, s := range t.strs {
		if s.fold == key {
			return s
		}
	}
	s := t.append(value)
	if t.mode == Mode16 && len(t.strs) >= escape16 {
		t.mode = ModeEscaped
	}
	return s
}

// Find returns the entry equal to value without adding it.
func (t *Table) Find(value string) (*TString, bool) {
	key := foldKey(value)
	for _, s := range t.strs {
		if s.fold == key {
			return s, true
		}
	}
	return nil, false
}

// Lookup returns the string at index i.
func (t *Table) Lookup(i int) (*TString, bool) {
	if i < 0 || i >= len(t.strs) {
		return nil, false
	}
	return t.strs[i], true
}

// Len returns the number of strings actually present.
func (t *Table) Len() int { return len(t.strs) }

// Declared returns the count announced by the table prefix.
func (t *Table) Declared() int { return t.declared }

// IsTruncated reports whether fewer strings were read than declared.
func (t *Table) IsTruncated() bool { return !t.corrected && len(t.strs) < t.declared }

// MissingCount returns how many declared strings were not read.
func (t *Table) MissingCount() int {
	if !t.IsTruncated() {
		return 0
	}
	return t.declared - len(t.strs)
}

// Corrected reports whether the count-overflow correction was applied.
func (t *Table) Corrected() bool { return t.corrected }

// Mode returns the count/index encoding.
func (t *Table) Mode() Mode { return t.mode }

// IndexWidth returns the size of a string reference in bytes.
func (t *Table) IndexWidth() int {
	if t.mode == Mode16 {
		return 2
	}
	return 4
}

// Size returns the encoded size of the table.
func (t *Table) Size() int {
	size := 2
	switch t.mode {
	case ModeEscaped:
		size = 6
	case Mode32:
		size = 4
	}
	for _, s := range t.strs {
		size += 2 + len(s.raw)
	}
	return size
}

// Write encodes the table.
func (t *Table) Write(w *binio.Writer) error {
	if t.corrected {
		return ErrStringTableBug
	}
	var err error
	switch t.mode {
	case Mode32:
		err = w.PutLen32(len(t.strs))
	case ModeEscaped:
		w.PutU16(escape16)
		err = w.PutLen32(len(t.strs))
	default:
		err = w.PutLen16(len(t.strs))
	}
	if err != nil {
		return err
	}
	for i, s := range t.strs {
		if err := w.PutLen16(len(s.raw)); err != nil {
			return fmt.Errorf("string %d: %w", i, err)
		}
		w.PutBytes([]byte(s.raw))
	}
	return nil
}

// Snapshot returns a copy of the entries in index order.
func (t *Table) Snapshot() []*TString {
	out := make([]*TString, len(t.strs))
	copy(out, t.strs)
	return out
}
