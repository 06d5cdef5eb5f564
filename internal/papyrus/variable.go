package papyrus

import (
	"fmt"
	"math"

	"papyrus/internal/binio"
	"papyrus/internal/eid"
	"papyrus/internal/tstring"
)

// VarType is the one-byte tag that precedes every variable.
type VarType uint8

const (
	VarNull         VarType = 0
	VarRef          VarType = 1
	VarString       VarType = 2
	VarInt          VarType = 3
	VarFloat        VarType = 4
	VarBool         VarType = 5
	VarVariant      VarType = 6
	VarStruct       VarType = 7
	VarRefArray     VarType = 11
	VarStringArray  VarType = 12
	VarIntArray     VarType = 13
	VarFloatArray   VarType = 14
	VarBoolArray    VarType = 15
	VarVariantArray VarType = 16
	VarStructArray  VarType = 17
)

var varTypeNames = [...]string{
	VarNull:         "Null",
	VarRef:          "Ref",
	VarString:       "String",
	VarInt:          "Int",
	VarFloat:        "Float",
	VarBool:         "Bool",
	VarVariant:      "Variant",
	VarStruct:       "Struct",
	VarRefArray:     "Ref[]",
	VarStringArray:  "String[]",
	VarIntArray:     "Int[]",
	VarFloatArray:   "Float[]",
	VarBoolArray:    "Bool[]",
	VarVariantArray: "Variant[]",
	VarStructArray:  "Struct[]",
}

func (t VarType) String() string {
	if t.IsValid() {
		return varTypeNames[t]
	}
	return fmt.Sprintf("VarType(%d)", uint8(t))
}

// IsValid reports whether t is a defined tag; 8..10 are reserved.
func (t VarType) IsValid() bool {
	return t <= VarStruct || (t >= VarRefArray && t <= VarStructArray)
}

// IsArray reports whether t refers to an array record.
func (t VarType) IsArray() bool { return t >= VarRefArray && t <= VarStructArray }

// hasTypeName reports whether the payload starts with a type name.
func (t VarType) hasTypeName() bool {
	return t == VarRef || t == VarStruct || t == VarRefArray || t == VarStructArray
}

// hasID reports whether the payload carries an identifier.
func (t VarType) hasID() bool {
	return t == VarRef || t == VarStruct || t.IsArray()
}

// ElementType returns the tag of an array's elements.
func (t VarType) ElementType() VarType {
	if !t.IsArray() {
		return t
	}
	return t - VarRefArray + VarRef
}

// Variable is the tagged union stored in every member, local and array slot.
type Variable struct {
	typ      VarType
	raw      uint32
	str      *tstring.TString
	id       *eid.EID
	inner    *Variable
	referent Node
}

// NewInt builds an Int variable.
func NewInt(v int32) *Variable { return &Variable{typ: VarInt, raw: uint32(v)} } //nolint:gosec // bit reinterpretation

// NewFloat builds a Float variable.
func NewFloat(v float32) *Variable { return &Variable{typ: VarFloat, raw: math.Float32bits(v)} }

// NewBool builds a Bool variable.
func NewBool(v bool) *Variable {
	if v {
		return &Variable{typ: VarBool, raw: 1}
	}
	return &Variable{typ: VarBool}
}

// NewNull builds a Null variable.
func NewNull() *Variable { return &Variable{typ: VarNull} }

// NewString builds a String variable from a table entry.
func NewString(s *tstring.TString) *Variable { return &Variable{typ: VarString, str: s} }

// NewRef builds a Ref variable and resolves it immediately.
func NewRef(typeName *tstring.TString, id *eid.EID, res Resolver) *Variable {
	v := &Variable{typ: VarRef, str: typeName, id: id}
	v.Relink(res)
	return v
}

// ReadVariable decodes one variable, resolving identifiers eagerly.
// A Variant holds exactly one non-Variant value.
func ReadVariable(r *binio.Reader, ctx *Context) (*Variable, error) {
	return readVariable(r, ctx, false)
}

func readVariable(r *binio.Reader, ctx *Context, inVariant bool) (*Variable, error) {
	tag, err := r.U8()
	if err != nil {
		return nil, err
	}
	v := &Variable{typ: VarType(tag)}
	if !v.typ.IsValid() {
		return v, &FormatError{Offset: r.Pos() - 1, Msg: fmt.Sprintf("invalid variable type %d", tag)}
	}
	if inVariant && v.typ == VarVariant {
		return v, &FormatError{Offset: r.Pos() - 1, Msg: "variant nested in a variant"}
	}

	switch {
	case v.typ == VarString:
		v.str, err = ctx.readString(r)
	case v.typ == VarVariant:
		v.inner, err = readVariable(r, ctx, true)
	case v.typ.hasID():
		if v.typ.hasTypeName() {
			if v.str, err = ctx.readString(r); err != nil {
				return v, err
			}
		}
		if v.id, err = ctx.readID(r); err != nil {
			return v, err
		}
		v.referent = ctx.findReferent(v.id)
	default:
		v.raw, err = r.U32()
	}
	return v, err
}

func readVariables(r *binio.Reader, ctx *Context, what string, count int) ([]*Variable, error) {
	return readList(r, what, count, func() (*Variable, error) { return ReadVariable(r, ctx) })
}

// Type returns the tag.
func (v *Variable) Type() VarType { return v.typ }

// Int returns the Int payload.
func (v *Variable) Int() int32 { return int32(v.raw) } //nolint:gosec // bit reinterpretation

// Float returns the Float payload.
func (v *Variable) Float() float32 { return math.Float32frombits(v.raw) }

// Bool returns the Bool payload; any non-zero raw value is true.
func (v *Variable) Bool() bool { return v.raw != 0 }

// Raw returns the four payload bytes of Null, Int, Float and Bool variables.
func (v *Variable) Raw() uint32 { return v.raw }

// Str returns the String payload.
func (v *Variable) Str() *tstring.TString {
	if v.typ != VarString {
		return nil
	}
	return v.str
}

// TypeName returns the declared type of Ref, Struct and typed array variables.
func (v *Variable) TypeName() *tstring.TString {
	if !v.typ.hasTypeName() {
		return nil
	}
	return v.str
}

// Inner returns the wrapped value of a Variant.
func (v *Variable) Inner() *Variable { return v.inner }

// HasRef reports whether the variable carries an identifier.
func (v *Variable) HasRef() bool {
	if v.typ == VarVariant && v.inner != nil {
		return v.inner.HasRef()
	}
	return v.typ.hasID()
}

// RefID returns the carried identifier, or nil.
func (v *Variable) RefID() *eid.EID {
	if v.typ == VarVariant && v.inner != nil {
		return v.inner.RefID()
	}
	return v.id
}

// Referent returns the node the identifier resolved to, or nil.
func (v *Variable) Referent() Node {
	if v.typ == VarVariant && v.inner != nil {
		return v.inner.Referent()
	}
	return v.referent
}

// Relink resolves the identifier again against res.
func (v *Variable) Relink(res Resolver) {
	switch {
	case v.typ == VarVariant && v.inner != nil:
		v.inner.Relink(res)
	case v.typ.hasID():
		v.referent = nil
		if res != nil && !v.id.IsZero() {
			v.referent = res.FindReferent(v.id)
		}
	}
}

func (v *Variable) Size() int {
	size := 1
	switch {
	case v.typ == VarString:
		size += v.str.RefSize()
	case v.typ == VarVariant:
		size += v.inner.Size()
	case v.typ.hasID():
		if v.typ.hasTypeName() {
			size += v.str.RefSize()
		}
		size += v.id.Width()
	default:
		size += 4
	}
	return size
}

func (v *Variable) Write(w *binio.Writer) error {
	w.PutU8(uint8(v.typ))
	switch {
	case v.typ == VarString:
		return v.str.Write(w)
	case v.typ == VarVariant:
		return v.inner.Write(w)
	case v.typ.hasID():
		if v.typ.hasTypeName() {
			if err := v.str.Write(w); err != nil {
				return err
			}
		}
		v.id.Write(w)
	default:
		w.PutU32(v.raw)
	}
	return nil
}

func (v *Variable) String() string {
	switch {
	case v.typ == VarNull:
		return "None"
	case v.typ == VarString:
		return fmt.Sprintf("%q", v.str.String())
	case v.typ == VarInt:
		return fmt.Sprintf("%d", v.Int())
	case v.typ == VarFloat:
		return fmt.Sprintf("%g", v.Float())
	case v.typ == VarBool:
		return fmt.Sprintf("%t", v.Bool())
	case v.typ == VarVariant:
		return "Variant(" + v.inner.String() + ")"
	case v.typ.hasTypeName():
		return fmt.Sprintf("%s<%s>:%s", v.typ, v.str, v.id)
	default:
		return fmt.Sprintf("%s:%s", v.typ, v.id)
	}
}

func variablesSize(vs []*Variable) int {
	size := 0
	for _, v := range vs {
		size += v.Size()
	}
	return size
}

func writeVariables(w *binio.Writer, vs []*Variable) error {
	for _, v := range vs {
		if err := v.Write(w); err != nil {
			return err
		}
	}
	return nil
}

func relinkAll(vs []*Variable, res Resolver) {
	for _, v := range vs {
		v.Relink(res)
	}
}
