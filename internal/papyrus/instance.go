package papyrus

import (
	"fmt"

	"papyrus/internal/binio"
	"papyrus/internal/eid"
	"papyrus/internal/tstring"
)

const flagUnknown2 = 0x04

// InstanceData is the second-pass record of a script instance or reference.
type InstanceData struct {
	Flag      uint8
	Type      *tstring.TString
	Unknown1  uint32
	Unknown2  uint32
	Variables []*Variable
}

func readInstanceData(r *binio.Reader, ctx *Context) (*InstanceData, error) {
	d := &InstanceData{}
	var err error
	if d.Flag, err = r.U8(); err != nil {
		return d, err
	}
	if d.Type, err = ctx.readString(r); err != nil {
		return d, err
	}
	if d.Unknown1, err = r.U32(); err != nil {
		return d, err
	}
	if d.HasUnknown2() {
		if d.Unknown2, err = r.U32(); err != nil {
			return d, err
		}
	}
	count, err := r.Count32()
	if err != nil {
		return d, err
	}
	d.Variables, err = readVariables(r, ctx, "variable", count)
	return d, err
}

// HasUnknown2 reports whether the optional second unknown field is present.
func (d *InstanceData) HasUnknown2() bool { return d.Flag&flagUnknown2 != 0 }

func (d *InstanceData) Size() int {
	size := 1 + d.Type.RefSize() + 4 + 4 + variablesSize(d.Variables)
	if d.HasUnknown2() {
		size += 4
	}
	return size
}

func (d *InstanceData) Write(w *binio.Writer) error {
	w.PutU8(d.Flag)
	if err := d.Type.Write(w); err != nil {
		return err
	}
	w.PutU32(d.Unknown1)
	if d.HasUnknown2() {
		w.PutU32(d.Unknown2)
	}
	if err := w.PutLen32(len(d.Variables)); err != nil {
		return err
	}
	return writeVariables(w, d.Variables)
}

// ScriptInstance binds an identifier to a script and, after the data pass,
// to that script's member values.
type ScriptInstance struct {
	id           *eid.EID
	scriptName   *tstring.TString
	Unknown2Bits uint16
	Unknown      uint16
	RefID        uint32
	UnknownByte  uint8

	script *Script
	data   *InstanceData
}

// ReadScriptInstance decodes the identity record of a script instance.
func ReadScriptInstance(r *binio.Reader, ctx *Context) (*ScriptInstance, error) {
	si := &ScriptInstance{}
	var err error
	if si.id, err = ctx.readID(r); err != nil {
		return si, err
	}
	if si.scriptName, err = ctx.readString(r); err != nil {
		return si, err
	}
	if si.Unknown2Bits, err = r.U16(); err != nil {
		return si, err
	}
	if si.Unknown, err = r.U16(); err != nil {
		return si, err
	}
	if si.RefID, err = r.U32(); err != nil {
		return si, err
	}
	if si.UnknownByte, err = r.U8(); err != nil {
		return si, err
	}
	si.bind(ctx.findScript(si.scriptName))
	return si, nil
}

func (si *ScriptInstance) bind(s *Script) {
	si.script = s
	if s != nil {
		s.instances++
	}
}

func (si *ScriptInstance) unbind() {
	if si.script != nil {
		si.script.instances--
	}
}

func (si *ScriptInstance) Kind() Kind                       { return KindScriptInstance }
func (si *ScriptInstance) ID() *eid.EID                     { return si.id }
func (si *ScriptInstance) DefinitionName() *tstring.TString { return si.scriptName }
func (si *ScriptInstance) Script() *Script                  { return si.script }
func (si *ScriptInstance) Data() *InstanceData              { return si.data }

// Definition returns the bound script, or nil when it is missing.
func (si *ScriptInstance) Definition() Definition {
	if si.script == nil {
		return nil
	}
	return si.script
}

// IsUnattached reports whether the instance is bound to no reference.
func (si *ScriptInstance) IsUnattached() bool { return si.RefID == 0 }

// IsUndefined reports whether the script is missing or itself undefined.
func (si *ScriptInstance) IsUndefined() bool { return si.script == nil || si.script.IsUndefined() }

// MemberMismatch reports a data record whose variable count differs from the
// script's extended member list.
func (si *ScriptInstance) MemberMismatch() bool {
	return si.script != nil && si.data != nil && len(si.data.Variables) != len(si.script.ExtendedMembers())
}

func (si *ScriptInstance) Size() int {
	return si.id.Width() + si.scriptName.RefSize() + 2 + 2 + 4 + 1
}

func (si *ScriptInstance) Write(w *binio.Writer) error {
	si.id.Write(w)
	if err := si.scriptName.Write(w); err != nil {
		return err
	}
	w.PutU16(si.Unknown2Bits)
	w.PutU16(si.Unknown)
	w.PutU32(si.RefID)
	w.PutU8(si.UnknownByte)
	return nil
}

func (si *ScriptInstance) String() string {
	return fmt.Sprintf("%s [%s] ref=%08x", si.scriptName, si.id, si.RefID)
}

// Reference is a script-typed handle to a game form.
type Reference struct {
	id       *eid.EID
	typeName *tstring.TString

	script *Script
	data   *InstanceData
}

// ReadReference decodes the identity record of a reference.
func ReadReference(r *binio.Reader, ctx *Context) (*Reference, error) {
	ref := &Reference{}
	var err error
	if ref.id, err = ctx.readID(r); err != nil {
		return ref, err
	}
	if ref.typeName, err = ctx.readString(r); err != nil {
		return ref, err
	}
	ref.bind(ctx.findScript(ref.typeName))
	return ref, nil
}

func (ref *Reference) bind(s *Script) {
	ref.script = s
	if s != nil {
		s.instances++
	}
}

func (ref *Reference) unbind() {
	if ref.script != nil {
		ref.script.instances--
	}
}

func (ref *Reference) Kind() Kind                       { return KindReference }
func (ref *Reference) ID() *eid.EID                     { return ref.id }
func (ref *Reference) DefinitionName() *tstring.TString { return ref.typeName }
func (ref *Reference) Script() *Script                  { return ref.script }
func (ref *Reference) Data() *InstanceData              { return ref.data }

// Definition returns the bound script, or nil when it is missing.
func (ref *Reference) Definition() Definition {
	if ref.script == nil {
		return nil
	}
	return ref.script
}

func (ref *Reference) IsUndefined() bool { return ref.script == nil || ref.script.IsUndefined() }

func (ref *Reference) MemberMismatch() bool {
	return ref.script != nil && ref.data != nil && len(ref.data.Variables) != len(ref.script.ExtendedMembers())
}

func (ref *Reference) Size() int { return ref.id.Width() + ref.typeName.RefSize() }

func (ref *Reference) Write(w *binio.Writer) error {
	ref.id.Write(w)
	return ref.typeName.Write(w)
}

func (ref *Reference) String() string {
	return fmt.Sprintf("%s [%s]", ref.typeName, ref.id)
}

// StructData is the second-pass record of a struct instance.
type StructData struct {
	Flag      uint8
	Variables []*Variable
}

func readStructData(r *binio.Reader, ctx *Context) (*StructData, error) {
	d := &StructData{}
	var err error
	if d.Flag, err = r.U8(); err != nil {
		return d, err
	}
	count, err := r.Count32()
	if err != nil {
		return d, err
	}
	d.Variables, err = readVariables(r, ctx, "variable", count)
	return d, err
}

func (d *StructData) Size() int { return 1 + 4 + variablesSize(d.Variables) }

func (d *StructData) Write(w *binio.Writer) error {
	w.PutU8(d.Flag)
	if err := w.PutLen32(len(d.Variables)); err != nil {
		return err
	}
	return writeVariables(w, d.Variables)
}

// StructInstance binds an identifier to a struct definition.
type StructInstance struct {
	id         *eid.EID
	structName *tstring.TString

	def  *StructDef
	data *StructData
}

// ReadStructInstance decodes the identity record of a struct instance.
func ReadStructInstance(r *binio.Reader, ctx *Context) (*StructInstance, error) {
	si := &StructInstance{}
	var err error
	if si.id, err = ctx.readID(r); err != nil {
		return si, err
	}
	if si.structName, err = ctx.readString(r); err != nil {
		return si, err
	}
	if ctx.Graph != nil {
		si.bind(ctx.Graph.FindStruct(si.structName))
	}
	return si, nil
}

func (si *StructInstance) bind(d *StructDef) {
	si.def = d
	if d != nil {
		d.instances++
	}
}

func (si *StructInstance) unbind() {
	if si.def != nil {
		si.def.instances--
	}
}

func (si *StructInstance) Kind() Kind                       { return KindStructInstance }
func (si *StructInstance) ID() *eid.EID                     { return si.id }
func (si *StructInstance) DefinitionName() *tstring.TString { return si.structName }
func (si *StructInstance) Struct() *StructDef               { return si.def }
func (si *StructInstance) Data() *StructData                { return si.data }

// Definition returns the bound struct, or nil when it is missing.
func (si *StructInstance) Definition() Definition {
	if si.def == nil {
		return nil
	}
	return si.def
}

func (si *StructInstance) IsUndefined() bool { return si.def == nil }

func (si *StructInstance) MemberMismatch() bool {
	return si.def != nil && si.data != nil && len(si.data.Variables) != len(si.def.members)
}

func (si *StructInstance) Size() int { return si.id.Width() + si.structName.RefSize() }

func (si *StructInstance) Write(w *binio.Writer) error {
	si.id.Write(w)
	return si.structName.Write(w)
}

func (si *StructInstance) String() string {
	return fmt.Sprintf("struct %s [%s]", si.structName, si.id)
}

// GameElement is an instance bound to a definition.
type GameElement interface {
	Node
	DefinitionName() *tstring.TString
	Definition() Definition
	IsUndefined() bool
	MemberMismatch() bool
	unbind()
}

var (
	_ GameElement = (*ScriptInstance)(nil)
	_ GameElement = (*Reference)(nil)
	_ GameElement = (*StructInstance)(nil)
)
