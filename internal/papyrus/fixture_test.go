package papyrus

import (
	"math"

	"papyrus/internal/binio"
	"papyrus/internal/game"
)

// builder assembles a papyrus section by hand. Strings are interned on first
// use; the table is emitted in front of the body by bytes.
type builder struct {
	v      game.Variant
	header uint16
	strs   []string
	index  map[string]int
	body   *binio.Writer
	marks  map[string]int
	prefix int
	// bugged writes the string count modulo 0x10000, as the engine does when
	// the count overflows.
	bugged bool
}

func newBuilder(v game.Variant) *builder {
	return &builder{
		v:      v,
		header: 3,
		index:  make(map[string]int),
		body:   binio.NewWriter(256),
		marks:  make(map[string]int),
	}
}

func (b *builder) intern(s string) int {
	if i, ok := b.index[s]; ok {
		return i
	}
	b.index[s] = len(b.strs)
	b.strs = append(b.strs, s)
	return len(b.strs) - 1
}

func (b *builder) str(s string) *builder {
	i := b.intern(s)
	if b.v.Str32 {
		b.body.PutU32(uint32(i))
	} else {
		b.body.PutU16(uint16(i))
	}
	return b
}

func (b *builder) id(v uint64) *builder {
	if b.v.IDWidth == 8 {
		b.body.PutU64(v)
	} else {
		b.body.PutU32(uint32(v))
	}
	return b
}

func (b *builder) u8(v uint8) *builder   { b.body.PutU8(v); return b }
func (b *builder) u16(v uint16) *builder { b.body.PutU16(v); return b }
func (b *builder) u32(v uint32) *builder { b.body.PutU32(v); return b }

// mark remembers the current body offset under name.
func (b *builder) mark(name string) *builder {
	b.marks[name] = b.body.Pos()
	return b
}

// offset returns the absolute offset of a mark. Valid after bytes.
func (b *builder) offset(name string) int { return b.prefix + b.marks[name] }

func (b *builder) member(name, typ string) *builder { return b.str(name).str(typ) }

func (b *builder) nullVar() *builder        { return b.u8(uint8(VarNull)).u32(0) }
func (b *builder) intVar(v int32) *builder  { return b.u8(uint8(VarInt)).u32(uint32(v)) }
func (b *builder) strVar(s string) *builder { return b.u8(uint8(VarString)).str(s) }

func (b *builder) floatVar(v float32) *builder {
	return b.u8(uint8(VarFloat)).u32(math.Float32bits(v))
}

func (b *builder) refVar(typ string, id uint64) *builder {
	return b.u8(uint8(VarRef)).str(typ).id(id)
}

func (b *builder) arrayVar(t VarType, id uint64) *builder {
	return b.u8(uint8(t)).id(id)
}

func (b *builder) bytes() []byte {
	w := binio.NewWriter(b.body.Pos() + 16*len(b.strs))
	w.PutU16(b.header)
	switch {
	case b.v.Str32:
		w.PutU32(uint32(len(b.strs)))
	case b.bugged:
		w.PutU16(uint16(len(b.strs) - 0x10000))
	default:
		w.PutU16(uint16(len(b.strs)))
	}
	for _, s := range b.strs {
		w.PutU16(uint16(len(s)))
		w.PutBytes([]byte(s))
	}
	b.prefix = w.Pos()
	w.PutBytes(b.body.Bytes())
	return w.Bytes()
}

// sampleDoc builds a section exercising every table:
//
//	scripts A, B extends A, Orphan extends Missing; struct Point (structs only)
//	script instances 0x10 (B), 0x11 (A, unattached), 0x12 (Orphan)
//	reference 0x20 (A), struct instance 0x30 (Point)
//	arrays 0x40 (Int x2), 0x41 (Ref A x1)
//	threads 0x50 (running B with a quest fragment), 0x51 (terminated,
//	top frame all NOP), 0x52 (no frames, suspended)
func sampleDoc(v game.Variant) *builder {
	b := newBuilder(v)

	b.u32(3)
	if v.Structs {
		b.u32(1)
	}
	b.mark("scripts")
	b.str("A").str("").u32(1).member("count", "Int")
	b.str("B").str("A").u32(1).member("target", "A")
	b.str("Orphan").str("Missing").u32(0)
	if v.Structs {
		b.str("Point").u32(2).member("x", "Float").member("y", "Float")
	}

	b.mark("script instances")
	b.u32(3)
	b.id(0x10).str("B").u16(0).u16(0).u32(0x14).u8(0)
	b.id(0x11).str("A").u16(1).u16(0).u32(0).u8(0)
	b.id(0x12).str("Orphan").u16(0).u16(0).u32(0x15).u8(0)

	b.u32(1)
	b.id(0x20).str("A")

	if v.Structs {
		b.u32(1)
		b.id(0x30).str("Point")
	}

	b.u32(2)
	b.id(0x40).u8(uint8(VarInt)).u32(2)
	b.id(0x41).u8(uint8(VarRef)).str("A").u32(1)

	b.u32(0x1234)

	b.u32(3)
	b.id(0x50).u8(0)
	b.id(0x51).u8(0)
	b.id(0x52).u8(1)

	// Script instance data in a different order than the identities.
	b.mark("script instance data")
	b.id(0x11).u8(0).str("A").u32(0).u32(1).mark("first variable").intVar(1)
	b.id(0x10).u8(flagUnknown2).str("B").u32(7).u32(9).u32(2).intVar(5).refVar("A", 0x11)
	b.id(0x12).u8(0).str("Orphan").u32(0).u32(0)

	b.id(0x20).u8(0).str("A").u32(0).u32(1)
	b.u8(uint8(VarVariant)).refVar("A", 0x10)

	if v.Structs {
		b.id(0x30).u8(0).u32(2).floatVar(1.5).floatVar(-2)
	}

	b.id(0x40).intVar(1).intVar(2)
	b.id(0x41).refVar("A", 0x11)

	// Thread 0x50: fragment, a call instruction with one extra argument.
	b.id(0x50).mark("thread version").u8(2).u8(1).nullVar()
	b.u8(0x03).u8(0).u32(0xDEAD).u8(2)
	b.u8(uint8(FragQuestStage)).u32(0xABC).u16(10).u8(1)
	if v.HasAttachment() {
		b.id(0x10)
	}
	b.u32(1)
	b.u32(1).u8(0).u8(uint8(FuncNull)).str("B").str("A").str("OnInit").str("")
	b.u8(3).u8(2).str("None").str("").u32(0).u8(0)
	b.u16(1).member("akArg", "Int")
	b.u16(1).member("::temp0", "Int[]")
	b.u16(3)
	b.mark("first opcode").u8(uint8(OpIAdd))
	b.u8(uint8(ParamIdent)).str("::temp0").u8(uint8(ParamInt)).u32(1).u8(uint8(ParamInt)).u32(2)
	b.u8(uint8(OpCallMethod))
	b.u8(uint8(ParamIdent)).str("Foo").u8(uint8(ParamIdent)).str("self").u8(uint8(ParamIdent)).str("::NoneVar")
	b.u8(uint8(ParamInt)).u32(1).u8(uint8(ParamBool)).u8(1)
	b.u8(uint8(OpReturn)).u8(uint8(ParamNull))
	b.u32(1).refVar("B", 0x10)
	b.arrayVar(VarIntArray, 0x40)

	// Thread 0x51: a non-native top frame of NOPs over a live caller.
	b.id(0x51).u8(1).u8(0).nullVar().u8(0).u8(0)
	if v.HasAttachment() {
		b.id(0)
	}
	b.u32(2)
	b.u32(0).u8(1).u8(uint8(FuncNull)).str("A").str("A").str("OnUpdate")
	b.u8(3).u8(2).str("None").str("").u32(0).u8(0)
	b.u16(0).u16(0)
	b.u16(2).u8(uint8(OpNop)).u8(uint8(OpNop))
	b.u32(0).refVar("A", 0x11)
	b.u32(0).u8(1).u8(uint8(FuncNull)).str("A").str("A").str("OnCall")
	b.u8(3).u8(2).str("None").str("").u32(0).u8(0)
	b.u16(0).u16(0)
	b.u16(1).u8(uint8(OpReturn)).u8(uint8(ParamNull))
	b.u32(0).refVar("A", 0x11)

	// Thread 0x52: no frames.
	b.id(0x52).u8(2).u8(0).nullVar().u8(0).u8(0)
	if v.HasAttachment() {
		b.id(0x20)
	}
	b.u32(0)

	b.u32(2)
	b.u8(1).id(0x50).u8(1).u8(0).str("B").str("OnTimer").nullVar().u32(1).intVar(4)
	b.u8(3).u8(0)

	b.u32(1)
	b.id(0x52).u8(1).u8(0).str("Orphan").str("OnLoad").nullVar().u32(0)
	b.u32(1)
	b.id(0x99).u8(0)

	b.u32(0x77).u32(2).id(0x10).id(0x99)
	b.u32(1).id(0x11).u32(0x14)

	if v.HasSaveVersion() {
		b.u16(0x0102)
	}
	b.body.PutBytes([]byte("TAIL"))
	return b
}

// emptyDoc builds a section whose tables are all empty.
func emptyDoc(b *builder) *builder {
	b.u32(0)
	if b.v.Structs {
		b.u32(0)
	}
	b.u32(0).u32(0)
	if b.v.Structs {
		b.u32(0)
	}
	b.u32(0).u32(0).u32(0)
	b.u32(0).u32(0).u32(0)
	b.u32(0).u32(0).u32(0)
	if b.v.HasSaveVersion() {
		b.u16(1)
	}
	return b
}

var sampleVariants = []struct {
	name string
	v    game.Variant
}{
	{"skyrim-le", game.SkyrimLE},
	{"skyrim-se", game.SkyrimSE},
	{"fallout4", game.Fallout4},
}
