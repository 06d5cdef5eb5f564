package papyrus

import (
	"fmt"

	"papyrus/internal/binio"
	"papyrus/internal/eid"
	"papyrus/internal/tstring"
)

// FunctionKind distinguishes plain functions from property accessors.
type FunctionKind uint8

const (
	FuncNull FunctionKind = iota
	FuncGetter
	FuncSetter
)

func (k FunctionKind) String() string {
	switch k {
	case FuncNull:
		return "function"
	case FuncGetter:
		return "getter"
	case FuncSetter:
		return "setter"
	default:
		return fmt.Sprintf("FunctionKind(%d)", uint8(k))
	}
}

const (
	fnFlagGlobal = 0x01
	fnFlagNative = 0x02
)

// StackFrame is one entry of a thread's call stack.
type StackFrame struct {
	thread *eid.EID
	graph  Graph

	Flag       uint8
	FnKind     FunctionKind
	ScriptName *tstring.TString
	BaseName   *tstring.TString
	Event      *tstring.TString
	// Status is present only when the first flag bit is clear on a plain function.
	Status     *tstring.TString
	OpMajor    uint8
	OpMinor    uint8
	ReturnType *tstring.TString
	DocString  *tstring.TString
	UserFlags  uint32
	FnFlags    uint8
	Params     []Member
	Locals     []Member
	Opcodes    []*Opcode
	IP         uint32
	Owner      *Variable
	Variables  []*Variable
}

// ReadStackFrame decodes one frame of the thread identified by thread.
func ReadStackFrame(r *binio.Reader, ctx *Context, thread *eid.EID) (*StackFrame, error) {
	f := &StackFrame{thread: thread, graph: ctx.Graph}
	varCount, err := r.Count32()
	if err != nil {
		return f, err
	}
	if f.Flag, err = r.U8(); err != nil {
		return f, err
	}
	kind, err := r.U8()
	if err != nil {
		return f, err
	}
	f.FnKind = FunctionKind(kind)
	if f.FnKind > FuncSetter {
		return f, &FormatError{Offset: r.Pos() - 1, Msg: fmt.Sprintf("invalid function kind %d", kind)}
	}
	if f.ScriptName, err = ctx.readString(r); err != nil {
		return f, err
	}
	if f.BaseName, err = ctx.readString(r); err != nil {
		return f, err
	}
	if f.Event, err = ctx.readString(r); err != nil {
		return f, err
	}
	if f.hasStatus() {
		if f.Status, err = ctx.readString(r); err != nil {
			return f, err
		}
	}
	if f.OpMajor, err = r.U8(); err != nil {
		return f, err
	}
	if f.OpMinor, err = r.U8(); err != nil {
		return f, err
	}
	if f.ReturnType, err = ctx.readString(r); err != nil {
		return f, err
	}
	if f.DocString, err = ctx.readString(r); err != nil {
		return f, err
	}
	if f.UserFlags, err = r.U32(); err != nil {
		return f, err
	}
	if f.FnFlags, err = r.U8(); err != nil {
		return f, err
	}

	n, err := r.Count16()
	if err != nil {
		return f, err
	}
	if f.Params, err = readMembers(r, ctx, "parameter", n); err != nil {
		return f, err
	}
	if n, err = r.Count16(); err != nil {
		return f, err
	}
	if f.Locals, err = readMembers(r, ctx, "local", n); err != nil {
		return f, err
	}
	if n, err = r.Count16(); err != nil {
		return f, err
	}
	if f.Opcodes, err = readList(r, "opcode", n, func() (*Opcode, error) { return ReadOpcode(r, ctx) }); err != nil {
		return f, err
	}

	if f.IP, err = r.U32(); err != nil {
		return f, err
	}
	if f.Owner, err = ReadVariable(r, ctx); err != nil {
		return f, err
	}
	f.Variables, err = readVariables(r, ctx, "variable", varCount)
	return f, err
}

func (f *StackFrame) hasStatus() bool { return f.Flag&0x01 == 0 && f.FnKind == FuncNull }

// ThreadID returns the id of the active script owning the frame.
func (f *StackFrame) ThreadID() *eid.EID { return f.thread }

// Script resolves the frame's script by name; nil means undefined.
func (f *StackFrame) Script() *Script {
	if f.graph == nil || f.ScriptName.IsEmpty() {
		return nil
	}
	return f.graph.FindScript(f.ScriptName)
}

// IsUndefined reports whether the frame's script is missing or undefined.
func (f *StackFrame) IsUndefined() bool {
	s := f.Script()
	return s == nil || s.IsUndefined()
}

func (f *StackFrame) IsNative() bool { return f.FnFlags&fnFlagNative != 0 }
func (f *StackFrame) IsGlobal() bool { return f.FnFlags&fnFlagGlobal != 0 }

// Zero replaces every instruction with NOP. The instruction count and every
// other field stay as they are.
func (f *StackFrame) Zero() {
	for i := range f.Opcodes {
		f.Opcodes[i] = NOP
	}
}

// IsZeroed reports whether every instruction is a NOP.
func (f *StackFrame) IsZeroed() bool {
	for _, op := range f.Opcodes {
		if !op.IsNop() {
			return false
		}
	}
	return true
}

func (f *StackFrame) relink(res Resolver) {
	f.Owner.Relink(res)
	relinkAll(f.Variables, res)
}

func (f *StackFrame) Size() int {
	size := 4 + 1 + 1
	size += f.ScriptName.RefSize() + f.BaseName.RefSize() + f.Event.RefSize()
	if f.hasStatus() {
		size += f.Status.RefSize()
	}
	size += 1 + 1 + f.ReturnType.RefSize() + f.DocString.RefSize()
	size += 4 + 1
	size += 2 + membersSize(f.Params)
	size += 2 + membersSize(f.Locals)
	size += 2
	for _, op := range f.Opcodes {
		size += op.Size()
	}
	size += 4 + f.Owner.Size() + variablesSize(f.Variables)
	return size
}

func (f *StackFrame) Write(w *binio.Writer) error {
	if err := w.PutLen32(len(f.Variables)); err != nil {
		return err
	}
	w.PutU8(f.Flag)
	w.PutU8(uint8(f.FnKind))
	names := []*tstring.TString{f.ScriptName, f.BaseName, f.Event}
	if f.hasStatus() {
		names = append(names, f.Status)
	}
	for _, s := range names {
		if err := s.Write(w); err != nil {
			return err
		}
	}
	w.PutU8(f.OpMajor)
	w.PutU8(f.OpMinor)
	if err := f.ReturnType.Write(w); err != nil {
		return err
	}
	if err := f.DocString.Write(w); err != nil {
		return err
	}
	w.PutU32(f.UserFlags)
	w.PutU8(f.FnFlags)

	if err := w.PutLen16(len(f.Params)); err != nil {
		return err
	}
	if err := writeMembers(w, f.Params); err != nil {
		return err
	}
	if err := w.PutLen16(len(f.Locals)); err != nil {
		return err
	}
	if err := writeMembers(w, f.Locals); err != nil {
		return err
	}
	if err := w.PutLen16(len(f.Opcodes)); err != nil {
		return err
	}
	for _, op := range f.Opcodes {
		if err := op.Write(w); err != nil {
			return err
		}
	}

	w.PutU32(f.IP)
	if err := f.Owner.Write(w); err != nil {
		return err
	}
	return writeVariables(w, f.Variables)
}

func (f *StackFrame) String() string {
	native := ""
	if f.IsNative() {
		native = " native"
	}
	return fmt.Sprintf("%s.%s%s (%d ops, ip=%d)", f.ScriptName, f.Event, native, len(f.Opcodes), f.IP)
}
