package diag

import "testing"

func TestFormatShort(t *testing.T) {
	diags := []Diagnostic{
		{
			Severity: SevWarning,
			Code:     GraphMemberMismatch,
			Message:  "another",
			Section:  "script instance data",
			Offset:   0x40,
		},
		{
			Severity: SevError,
			Code:     LoadTruncated,
			Message:  "first line\nsecond",
			Section:  "arrays",
			Offset:   0x10,
			Notes:    []Note{{Offset: 0x12, Msg: "note line"}},
		},
		{
			Severity: SevInfo,
			Code:     LoadStringTableBug,
			Message:  "corrected",
			Offset:   NoOffset,
		},
	}

	expected := "info PAP2004 - corrected\n" +
		"error PAP2001 arrays@0x10 first line second\n" +
		"note PAP2001 @0x12 note line\n" +
		"warning PAP3004 script instance data@0x40 another"

	if got := FormatShort(diags, true); got != expected {
		t.Fatalf("unexpected diagnostics:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
}

func TestBagLimitAndErrors(t *testing.T) {
	b := NewBag(2)
	r := BagReporter{Bag: b}
	ReportWarning(r, GraphUnattached, 1, "a").Emit()
	ReportError(r, LoadFormat, 2, "b").Emit()
	ReportError(r, LoadFormat, 3, "c").Emit()
	if b.Len() != 2 {
		t.Fatalf("Len = %d, want 2", b.Len())
	}
	if !b.HasErrors() || b.Count(LoadFormat) != 1 {
		t.Fatalf("HasErrors=%v Count=%d", b.HasErrors(), b.Count(LoadFormat))
	}
}

func TestDedupReporter(t *testing.T) {
	b := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: b})
	for range 3 {
		ReportWarning(r, GraphParentCycle, 5, "cycle").Emit()
	}
	if b.Len() != 1 {
		t.Fatalf("Len = %d, want 1", b.Len())
	}
}

func TestCodeID(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{LoadTruncated, "PAP2001"},
		{GraphParentCycle, "PAP3001"},
		{ObsTimings, "OBS6001"},
		{UnknownCode, "E0000"},
	}
	for _, tt := range tests {
		if got := tt.code.ID(); got != tt.want {
			t.Errorf("%d.ID() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestSeverityText(t *testing.T) {
	for _, sev := range []Severity{SevInfo, SevWarning, SevError} {
		text, err := sev.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Severity
		if err := back.UnmarshalText(text); err != nil || back != sev {
			t.Fatalf("%v: round trip gave %v, %v", sev, back, err)
		}
	}
	if _, err := ParseSeverity("fatal"); err == nil {
		t.Fatal("unknown severity accepted")
	}
	if got := Severity(9).String(); got != "severity(9)" {
		t.Fatalf("String = %q", got)
	}
}

func TestFilter(t *testing.T) {
	diags := []Diagnostic{
		{Severity: SevInfo, Code: LoadStringTableBug},
		{Severity: SevError, Code: LoadTruncated},
		{Severity: SevWarning, Code: GraphUnattached},
	}
	got := Filter(diags, SevWarning)
	if len(got) != 2 || got[0].Code != LoadTruncated || got[1].Code != GraphUnattached {
		t.Fatalf("Filter = %+v", got)
	}
	if len(Filter(diags, SevInfo)) != 3 {
		t.Fatal("info filter dropped findings")
	}
}
