package papyrus

import (
	"bytes"
	"errors"
	"testing"

	"papyrus/internal/binio"
	"papyrus/internal/eid"
	"papyrus/internal/game"
	"papyrus/internal/tstring"
)

func newTestContext(t *testing.T, v game.Variant) *Context {
	t.Helper()
	ids, err := eid.NewTable(v.IDWidth)
	if err != nil {
		t.Fatal(err)
	}
	return &Context{Variant: v, IDs: ids, Strings: tstring.NewTable(v)}
}

type fakeGraph struct {
	nodes map[*eid.EID]Node
}

func (g fakeGraph) FindReferent(id *eid.EID) Node          { return g.nodes[id] }
func (g fakeGraph) FindScript(*tstring.TString) *Script    { return nil }
func (g fakeGraph) FindStruct(*tstring.TString) *StructDef { return nil }

func TestVariableRoundTrip(t *testing.T) {
	ctx := newTestContext(t, game.Fallout4)
	typ := ctx.Strings.Add("Actor")
	id := ctx.IDs.Intern(0xFF000014)

	tests := []struct {
		name string
		v    *Variable
		size int
	}{
		{"null", NewNull(), 5},
		{"int", NewInt(-7), 5},
		{"float", NewFloat(0.25), 5},
		{"bool", NewBool(true), 5},
		{"string", NewString(typ), 3},
		{"ref", NewRef(typ, id, nil), 1 + 2 + 8},
		{"variant", &Variable{typ: VarVariant, inner: NewInt(3)}, 6},
		{"struct", &Variable{typ: VarStruct, str: typ, id: id}, 1 + 2 + 8},
		{"int array", &Variable{typ: VarIntArray, id: id}, 1 + 8},
		{"ref array", &Variable{typ: VarRefArray, str: typ, id: id}, 1 + 2 + 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.v.Size() != tt.size {
				t.Fatalf("Size = %d, want %d", tt.v.Size(), tt.size)
			}
			w := binio.NewWriter(0)
			if err := tt.v.Write(w); err != nil {
				t.Fatal(err)
			}
			if w.Pos() != tt.size {
				t.Fatalf("wrote %d bytes, want %d", w.Pos(), tt.size)
			}
			got, err := ReadVariable(binio.NewReader(w.Bytes()), ctx)
			if err != nil {
				t.Fatalf("ReadVariable: %v", err)
			}
			if got.Type() != tt.v.Type() || got.String() != tt.v.String() {
				t.Fatalf("read %v, want %v", got, tt.v)
			}
			if got.RefID() != tt.v.RefID() {
				t.Fatal("identifier not interned on read")
			}
		})
	}
}

func TestVariableAccessors(t *testing.T) {
	if NewInt(-7).Int() != -7 || NewFloat(0.25).Float() != 0.25 {
		t.Fatal("numeric payloads do not survive")
	}
	b := &Variable{typ: VarBool, raw: 0x100}
	if !b.Bool() || b.Raw() != 0x100 {
		t.Fatal("non-zero bool raw value lost")
	}
	if NewInt(1).HasRef() || NewInt(1).Referent() != nil {
		t.Fatal("primitive reports a reference")
	}
	if VarStructArray.ElementType() != VarStruct || VarIntArray.ElementType() != VarInt {
		t.Fatal("array element types wrong")
	}
}

func TestVariableRelinkThroughVariant(t *testing.T) {
	ctx := newTestContext(t, game.SkyrimSE)
	id := ctx.IDs.Intern(0x42)
	arr := &Array{id: id, elemType: VarInt}
	v := &Variable{typ: VarVariant, inner: &Variable{typ: VarIntArray, id: id}}

	if v.Referent() != nil {
		t.Fatal("resolved before relink")
	}
	v.Relink(fakeGraph{nodes: map[*eid.EID]Node{id: arr}})
	if !v.HasRef() || v.RefID() != id || v.Referent() != Node(arr) {
		t.Fatalf("variant did not delegate: %v -> %v", v, v.Referent())
	}
	v.Relink(fakeGraph{})
	if v.Referent() != nil {
		t.Fatal("stale referent kept after relink")
	}
}

func TestReadVariableRejectsReservedTags(t *testing.T) {
	ctx := newTestContext(t, game.SkyrimSE)
	for _, tag := range []byte{8, 9, 10, 18, 255} {
		_, err := ReadVariable(binio.NewReader([]byte{tag, 0, 0, 0, 0}), ctx)
		var fe *FormatError
		if !errors.As(err, &fe) || fe.Offset != 0 {
			t.Fatalf("tag %d: err = %v", tag, err)
		}
	}
}

func TestReadVariableRejectsNestedVariant(t *testing.T) {
	ctx := newTestContext(t, game.SkyrimSE)
	data := bytes.Repeat([]byte{byte(VarVariant)}, 1<<20)
	_, err := ReadVariable(binio.NewReader(data), ctx)
	var fe *FormatError
	if !errors.As(err, &fe) || fe.Offset != 1 {
		t.Fatalf("err = %v, want a format error at offset 1", err)
	}

	v, err := ReadVariable(binio.NewReader([]byte{byte(VarVariant), byte(VarInt), 3, 0, 0, 0}), ctx)
	if err != nil || v.Type() != VarVariant || v.Inner().Int() != 3 {
		t.Fatalf("single variant: %v, %v", v, err)
	}
}

func TestOpcodeRoundTrip(t *testing.T) {
	ctx := newTestContext(t, game.SkyrimSE)
	self := ctx.Strings.Add("self")
	fn := ctx.Strings.Add("GetActorBase")

	w := binio.NewWriter(0)
	w.PutU8(uint8(OpCallMethod))
	for _, s := range []*tstring.TString{fn, self, self} {
		w.PutU8(uint8(ParamIdent))
		_ = s.Write(w)
	}
	w.PutU8(uint8(ParamInt))
	w.PutU32(2)
	w.PutU8(uint8(ParamFloat))
	w.PutU32(0x3F800000)
	w.PutU8(uint8(ParamNull))
	data := w.Bytes()

	op, err := ReadOpcode(binio.NewReader(data), ctx)
	if err != nil {
		t.Fatalf("ReadOpcode: %v", err)
	}
	if len(op.Params) != 6 || op.Params[4].Float() != 1 {
		t.Fatalf("params = %v", op.Params)
	}
	if op.Size() != len(data) {
		t.Fatalf("Size = %d, want %d", op.Size(), len(data))
	}
	out := binio.NewWriter(0)
	if err := op.Write(out); err != nil {
		t.Fatal(err)
	}
	if string(out.Bytes()) != string(data) {
		t.Fatal("opcode does not round trip")
	}
	if op.String() != "CALLMETHOD GetActorBase, self, self, 2, 1, none" {
		t.Fatalf("String = %q", op.String())
	}
}

func TestOpcodeErrors(t *testing.T) {
	ctx := newTestContext(t, game.SkyrimSE)
	tests := []struct {
		name string
		data []byte
	}{
		{"unknown opcode", []byte{byte(opCount)}},
		{"bad parameter type", []byte{byte(OpJmp), 6}},
		{"negative extra count", []byte{byte(OpCallStatic), 0, 0, 0, 3, 0xFF, 0xFF, 0xFF, 0xFF}},
		{"non-int extra count", []byte{byte(OpCallParent), 0, 0, 5, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadOpcode(binio.NewReader(tt.data), ctx)
			if !IsFormatError(err) {
				t.Fatalf("err = %v, want a format error", err)
			}
		})
	}
	if _, err := ReadOpcode(binio.NewReader([]byte{byte(OpIAdd), 3}), ctx); !binio.IsTruncated(err) {
		t.Fatalf("short opcode: err = %v, want truncation", err)
	}
}

func newScript(tab *tstring.Table, name, parent string, members ...string) *Script {
	s := &Script{name: tab.Add(name), parentName: tab.Add(parent)}
	for _, m := range members {
		s.members = append(s.members, Member{Name: tab.Add(m), Type: tab.Add("Int")})
	}
	return s
}

func TestResolveParents(t *testing.T) {
	tab := tstring.NewTable(game.SkyrimSE)
	a := newScript(tab, "A", "", "a1", "a2")
	b := newScript(tab, "B", "a", "b1")
	c := newScript(tab, "C", "B", "c1")
	lost := newScript(tab, "Lost", "Nowhere")
	child := newScript(tab, "Child", "Lost")

	problems := ResolveParents([]*Script{c, b, a, lost, child})
	if len(problems) != 1 || problems[0].Script != lost || problems[0].Cycle {
		t.Fatalf("problems = %+v", problems)
	}
	if c.Parent() != b || b.Parent() != a || a.Parent() != nil {
		t.Fatal("parent chain not linked by case-insensitive name")
	}
	var names []string
	for _, m := range c.ExtendedMembers() {
		names = append(names, m.Name.String())
	}
	if got := len(names); got != 4 || names[0] != "a1" || names[3] != "c1" {
		t.Fatalf("extended = %v", names)
	}
	if !lost.IsUndefined() || !child.IsUndefined() || c.IsUndefined() {
		t.Fatal("undefined propagation wrong")
	}
}

func TestResolveParentsBreaksCycles(t *testing.T) {
	tab := tstring.NewTable(game.SkyrimSE)
	x := newScript(tab, "X", "Y")
	y := newScript(tab, "Y", "Z")
	z := newScript(tab, "Z", "X", "z1")
	self := newScript(tab, "Self", "self")

	problems := ResolveParents([]*Script{x, y, z, self})
	cycles := 0
	for _, p := range problems {
		if p.Cycle {
			cycles++
		}
	}
	if cycles != 2 {
		t.Fatalf("problems = %+v, want two broken cycles", problems)
	}
	if !z.InCycle() || z.Parent() != nil || x.Parent() != y || y.Parent() != z {
		t.Fatal("the link closing the cycle should be the one dropped")
	}
	if !self.InCycle() || !self.IsUndefined() {
		t.Fatal("self-parented script not broken")
	}
	// ExtendedMembers must terminate once the cycle is broken.
	if got := len(x.ExtendedMembers()); got != 1 {
		t.Fatalf("extended members of X = %d, want 1", got)
	}
}

func TestScriptSizeAndWrite(t *testing.T) {
	tab := tstring.NewTable(game.SkyrimSE)
	s := newScript(tab, "A", "", "m1", "m2")
	checkSize(t, "script", s)
	if s.Size() != 2+2+4+2*4 {
		t.Fatalf("Size = %d", s.Size())
	}
}

func TestFragmentTaskSizes(t *testing.T) {
	tests := []FragmentTask{
		{Type: FragQuestStage, Form: 1, Stage: 2, Flags: 3},
		{Type: FragScenePhaseResults, Form: 1, Sub: 2},
		{Type: FragSceneActionResults, Form: 1, Sub: 2},
		{Type: FragSceneResults, Form: 1},
		{Type: FragTopicInfo, Form: 1, Value: NewInt(4)},
		{Type: FragTerminalRunResults, Form: 1, Flags: 9},
	}
	ctx := newTestContext(t, game.Fallout4)
	for _, ft := range tests {
		t.Run(ft.Type.String(), func(t *testing.T) {
			checkSize(t, ft.Type.String(), &ft)
			w := binio.NewWriter(0)
			_ = ft.Write(w)
			got, err := readFragmentTask(binio.NewReader(w.Bytes()), ctx)
			if err != nil {
				t.Fatal(err)
			}
			if got.Size() != ft.Size() || got.Form != ft.Form {
				t.Fatalf("read %+v, want %+v", got, ft)
			}
		})
	}
}

func TestTerminalFragmentHasNoAttachment(t *testing.T) {
	d := &ActiveScriptData{Fragment: &FragmentTask{Type: FragTerminalRunResults}}
	if d.expectsAttachment(game.Fallout4) {
		t.Fatal("terminal fragment expects an attachment")
	}
	d.Fragment.Type = FragTopicInfo
	if !d.expectsAttachment(game.Fallout4) || d.expectsAttachment(game.SkyrimSE) {
		t.Fatal("attachment condition wrong")
	}
}
