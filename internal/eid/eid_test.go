package eid

import (
	"testing"

	"papyrus/internal/binio"
)

func TestInternIdentity(t *testing.T) {
	table, err := NewTable(4)
	if err != nil {
		t.Fatal(err)
	}
	a := table.Intern(0x1234)
	b := table.Intern(0x1234)
	if a != b {
		t.Fatal("interning the same value twice returned different pointers")
	}
	if table.Intern(0x1235) == a {
		t.Fatal("different values share a pointer")
	}
	if !table.Zero().IsZero() || table.Intern(0) != table.Zero() {
		t.Fatal("zero id is not canonical")
	}
}

func TestReadInternsAcrossReads(t *testing.T) {
	for _, width := range []int{4, 8} {
		table, err := NewTable(width)
		if err != nil {
			t.Fatal(err)
		}
		w := binio.NewWriter(0)
		id := table.Intern(0xCAFE)
		id.Write(w)
		id.Write(w)
		if w.Pos() != 2*width {
			t.Fatalf("width %d: wrote %d bytes", width, w.Pos())
		}

		r := binio.NewReader(w.Bytes())
		first, err := table.Read(r)
		if err != nil {
			t.Fatal(err)
		}
		second, err := table.Read(r)
		if err != nil {
			t.Fatal(err)
		}
		if first != second || first != id {
			t.Fatalf("width %d: reads are not reference-identical", width)
		}
	}
}

func TestCompareUnsigned(t *testing.T) {
	table, err := NewTable(8)
	if err != nil {
		t.Fatal(err)
	}
	hi := table.Intern(0xFFFFFFFFFFFFFFFF)
	lo := table.Intern(1)
	if Compare(hi, lo) <= 0 {
		t.Fatal("high-bit ids must sort above small ids")
	}
	if Compare(nil, table.Zero()) != 0 {
		t.Fatal("nil compares equal to zero")
	}
}

func TestInvalidWidth(t *testing.T) {
	if _, err := NewTable(2); err == nil {
		t.Fatal("NewTable(2) succeeded")
	}
}

func TestReadTruncated(t *testing.T) {
	table, err := NewTable(8)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := table.Read(binio.NewReader([]byte{1, 2, 3, 4})); !binio.IsTruncated(err) {
		t.Fatalf("err = %v, want truncation", err)
	}
}
