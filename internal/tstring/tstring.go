// Package tstring implements the papyrus string table: an indexed list of
// Windows-1252 strings that every other record refers to by index only.
package tstring

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/charmap"

	"papyrus/internal/binio"
)

// TString is a string interned in a Table, or a free-standing value used
// only for comparisons.
type TString struct {
	table *Table
	index int
	raw   string
	fold  string
}

// Free returns a comparison value that was never entered into a table.
func Free(s string) *TString {
	return &TString{index: -1, raw: s, fold: foldKey(s)}
}

// Index returns the table index, or -1 for free-standing values.
func (s *TString) Index() int {
	if s == nil {
		return -1
	}
	return s.index
}

// Raw returns the undecoded bytes as stored in the save.
func (s *TString) Raw() string {
	if s == nil {
		return ""
	}
	return s.raw
}

// String returns the text decoded from Windows-1252.
func (s *TString) String() string {
	if s == nil {
		return ""
	}
	return decode(s.raw)
}

// IsEmpty reports whether the string has no content.
func (s *TString) IsEmpty() bool { return s == nil || s.raw == "" }

// Equal compares by index when both strings are indexed in the same table,
// and by case-insensitive content otherwise.
func (s *TString) Equal(other *TString) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.index >= 0 && other.index >= 0 && s.table == other.table {
		return s.index == other.index
	}
	return s.fold == other.fold
}

// EqualString compares content case-insensitively with a Go string.
func (s *TString) EqualString(v string) bool {
	if s == nil {
		return v == ""
	}
	return s.fold == foldKey(v)
}

// Key returns the case-folded content, suitable as a map key.
func (s *TString) Key() string {
	if s == nil {
		return ""
	}
	return s.fold
}

// RefSize returns the encoded size of a reference to this string.
func (s *TString) RefSize() int {
	if s == nil || s.table == nil {
		return 0
	}
	return s.table.IndexWidth()
}

// Write emits a reference (the index) to this string.
func (s *TString) Write(w *binio.Writer) error {
	if s == nil || s.table == nil || s.index < 0 {
		return errFreeString
	}
	if s.table.IndexWidth() == 4 {
		return w.PutLen32(s.index)
	}
	return w.PutLen16(s.index)
}

func decode(raw string) string {
	out, err := charmap.Windows1252.NewDecoder().String(raw)
	if err != nil {
		return raw
	}
	return out
}

func foldKey(raw string) string {
	return cases.Fold().String(decode(raw))
}
