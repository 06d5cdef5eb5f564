package game

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Variant
	}{
		{"skyrim-le", SkyrimLE},
		{"SSE", SkyrimSE},
		{" fo4 ", Fallout4},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
	if _, err := Parse("oblivion"); err == nil {
		t.Fatal("Parse accepted an unknown game")
	}
}

func TestVariantFlags(t *testing.T) {
	if !Fallout4.HasAttachment() || SkyrimSE.HasAttachment() {
		t.Error("attachment id belongs to fallout4 only")
	}
	if !Fallout4.HasSaveVersion() || SkyrimLE.HasSaveVersion() {
		t.Error("save version belongs to fallout4 only")
	}
	if !SkyrimLE.DetectsStringTableBug() {
		t.Error("skyrim-le should detect the string table bug")
	}
	if SkyrimLE.IDWidth != 4 || SkyrimSE.IDWidth != 8 || Fallout4.IDWidth != 8 {
		t.Error("only skyrim-le uses 4-byte identifiers")
	}
	le32 := SkyrimLE
	le32.Str32 = true
	if le32.DetectsStringTableBug() {
		t.Error("32-bit string tables cannot overflow the count")
	}
}

func TestValidate(t *testing.T) {
	for _, v := range []Variant{SkyrimLE, SkyrimSE, Fallout4} {
		if err := v.Validate(); err != nil {
			t.Errorf("%s: %v", v, err)
		}
	}
	bad := Variant{Family: FamilySkyrimSE, IDWidth: 6}
	if err := bad.Validate(); err == nil {
		t.Error("Validate accepted width 6")
	}
}
