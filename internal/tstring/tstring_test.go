package tstring

import (
	"bytes"
	"errors"
	"testing"

	"papyrus/internal/binio"
	"papyrus/internal/game"
)

func encodeTable16(strs ...string) []byte {
	w := binio.NewWriter(0)
	w.PutU16(uint16(len(strs)))
	for _, s := range strs {
		w.PutU16(uint16(len(s)))
		w.PutBytes([]byte(s))
	}
	return w.Bytes()
}

func TestReadWriteRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		variant game.Variant
		data    func() []byte
		mode    Mode
	}{
		{
			name:    "16-bit",
			variant: game.SkyrimSE,
			data:    func() []byte { return encodeTable16("Actor", "OnInit", "") },
			mode:    Mode16,
		},
		{
			name:    "32-bit",
			variant: game.Variant{Family: game.FamilySkyrimSE, IDWidth: 4, Str32: true},
			data: func() []byte {
				w := binio.NewWriter(0)
				w.PutU32(2)
				for _, s := range []string{"a", "bc"} {
					w.PutU16(uint16(len(s)))
					w.PutBytes([]byte(s))
				}
				return w.Bytes()
			},
			mode: Mode32,
		},
		{
			name:    "escaped",
			variant: game.SkyrimSE,
			data: func() []byte {
				w := binio.NewWriter(0)
				w.PutU16(0xFFFF)
				w.PutU32(1)
				w.PutU16(1)
				w.PutBytes([]byte("x"))
				return w.Bytes()
			},
			mode: ModeEscaped,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data()
			r := binio.NewReader(data)
			tab, err := Read(r, tt.variant)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if tab.Mode() != tt.mode {
				t.Fatalf("mode = %v, want %v", tab.Mode(), tt.mode)
			}
			if r.Remaining() != 0 {
				t.Fatalf("%d bytes left unread", r.Remaining())
			}
			if tab.Size() != len(data) {
				t.Fatalf("Size = %d, want %d", tab.Size(), len(data))
			}
			w := binio.NewWriter(len(data))
			if err := tab.Write(w); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if !bytes.Equal(w.Bytes(), data) {
				t.Fatalf("round trip mismatch:\n got %x\nwant %x", w.Bytes(), data)
			}
		})
	}
}

func TestReadRefRange(t *testing.T) {
	tab, err := Read(binio.NewReader(encodeTable16("a", "b")), game.SkyrimSE)
	if err != nil {
		t.Fatal(err)
	}
	s, err := tab.ReadRef(binio.NewReader([]byte{1, 0}))
	if err != nil || s.Raw() != "b" {
		t.Fatalf("ReadRef(1) = %v, %v", s, err)
	}
	_, err = tab.ReadRef(binio.NewReader([]byte{2, 0}))
	var fe *binio.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("ReadRef(2) err = %v, want FormatError", err)
	}
	_, err = tab.ReadRef(binio.NewReader([]byte{1}))
	if !binio.IsTruncated(err) {
		t.Fatalf("short ref err = %v, want truncation", err)
	}
}

func TestEqualityIsCaseInsensitive(t *testing.T) {
	tab := NewTable(game.SkyrimSE)
	a := tab.Add("WorkshopParentScript")
	b := tab.Add("workshopparentscript")
	if a != b {
		t.Fatalf("Add returned distinct entries for case variants")
	}
	if tab.Len() != 1 {
		t.Fatalf("Len = %d, want 1", tab.Len())
	}
	if !a.Equal(Free("WORKSHOPPARENTSCRIPT")) {
		t.Fatalf("indexed string not equal to free value")
	}
	if !a.EqualString("WorkShopParentScript") {
		t.Fatalf("EqualString failed")
	}
	c := tab.Add("Other")
	if a.Equal(c) {
		t.Fatalf("distinct indices compared equal")
	}
}

func TestWindows1252Decoding(t *testing.T) {
	tab := NewTable(game.SkyrimSE)
	s := tab.Add("caf\xe9")
	if s.String() != "café" {
		t.Fatalf("String = %q, want café", s.String())
	}
	if s.Raw() != "caf\xe9" {
		t.Fatalf("Raw changed: %q", s.Raw())
	}
}

func TestFreeStringCannotBeWritten(t *testing.T) {
	if err := Free("x").Write(binio.NewWriter(0)); err == nil {
		t.Fatalf("expected error writing a free string")
	}
}

func TestTruncatedTable(t *testing.T) {
	data := encodeTable16("alpha", "beta", "gamma")
	data = data[:len(data)-3]
	tab, err := Read(binio.NewReader(data), game.SkyrimSE)
	if !binio.IsTruncated(err) {
		t.Fatalf("err = %v, want truncation", err)
	}
	if !tab.IsTruncated() || tab.Len() != 2 || tab.MissingCount() != 1 {
		t.Fatalf("truncated table: len=%d missing=%d", tab.Len(), tab.MissingCount())
	}
}

func TestStringTableBugCorrection(t *testing.T) {
	const actual = 0x10002
	w := binio.NewWriter(actual * 3)
	w.PutU16(uint16(actual & 0xFFFF))
	for range actual {
		w.PutU16(1)
		w.PutU8('s')
	}
	w.PutU32(0xCAFEBABE)

	r := binio.NewReader(w.Bytes())
	tab, err := Read(r, game.SkyrimLE)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !tab.Corrected() || tab.Len() != actual {
		t.Fatalf("corrected=%v len=%d, want true %d", tab.Corrected(), tab.Len(), actual)
	}
	if v, err := r.U32(); err != nil || v != 0xCAFEBABE {
		t.Fatalf("following data misaligned: %#x, %v", v, err)
	}
	if err := tab.Write(binio.NewWriter(0)); !errors.Is(err, ErrStringTableBug) {
		t.Fatalf("Write err = %v, want ErrStringTableBug", err)
	}
}

func TestStringTableBugFallsBackToDeclaredCount(t *testing.T) {
	data := encodeTable16("a", "b")
	data = append(data, 1, 2, 3, 4)
	r := binio.NewReader(data)
	tab, err := Read(r, game.SkyrimLE)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if tab.Corrected() || tab.Len() != 2 {
		t.Fatalf("corrected=%v len=%d", tab.Corrected(), tab.Len())
	}
	if r.Remaining() != 4 {
		t.Fatalf("remaining = %d, want 4", r.Remaining())
	}
}

func TestAddSwitchesToEscapedMode(t *testing.T) {
	tab := NewTable(game.SkyrimSE)
	for i := range 0xFFFF {
		tab.append(string(rune('a'+i%26)) + string(rune(i)))
	}
	tab.Add("one more")
	if tab.Mode() != ModeEscaped {
		t.Fatalf("mode = %v, want escaped", tab.Mode())
	}
	if tab.IndexWidth() != 4 {
		t.Fatalf("IndexWidth = %d, want 4", tab.IndexWidth())
	}
}
