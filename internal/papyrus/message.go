package papyrus

import (
	"fmt"

	"papyrus/internal/binio"
	"papyrus/internal/eid"
	"papyrus/internal/tstring"
)

// FunctionMessageData is a pending or parked call: the script and event to
// invoke and the arguments to pass.
type FunctionMessageData struct {
	graph Graph

	Unknown    uint8
	ScriptName *tstring.TString
	Event      *tstring.TString
	UnknownVar *Variable
	Variables  []*Variable
}

func readFunctionMessageData(r *binio.Reader, ctx *Context) (*FunctionMessageData, error) {
	d := &FunctionMessageData{graph: ctx.Graph}
	var err error
	if d.Unknown, err = r.U8(); err != nil {
		return d, err
	}
	if d.ScriptName, err = ctx.readString(r); err != nil {
		return d, err
	}
	if d.Event, err = ctx.readString(r); err != nil {
		return d, err
	}
	if d.UnknownVar, err = ReadVariable(r, ctx); err != nil {
		return d, err
	}
	count, err := r.Count32()
	if err != nil {
		return d, err
	}
	d.Variables, err = readVariables(r, ctx, "variable", count)
	return d, err
}

// Script resolves the target script by name; nil means undefined.
func (d *FunctionMessageData) Script() *Script {
	if d.graph == nil || d.ScriptName.IsEmpty() {
		return nil
	}
	return d.graph.FindScript(d.ScriptName)
}

func (d *FunctionMessageData) relink(res Resolver) {
	d.UnknownVar.Relink(res)
	relinkAll(d.Variables, res)
}

func (d *FunctionMessageData) Size() int {
	return 1 + d.ScriptName.RefSize() + d.Event.RefSize() + d.UnknownVar.Size() + 4 + variablesSize(d.Variables)
}

func (d *FunctionMessageData) Write(w *binio.Writer) error {
	w.PutU8(d.Unknown)
	if err := d.ScriptName.Write(w); err != nil {
		return err
	}
	if err := d.Event.Write(w); err != nil {
		return err
	}
	if err := d.UnknownVar.Write(w); err != nil {
		return err
	}
	if err := w.PutLen32(len(d.Variables)); err != nil {
		return err
	}
	return writeVariables(w, d.Variables)
}

func (d *FunctionMessageData) String() string {
	return fmt.Sprintf("%s.%s(%d args)", d.ScriptName, d.Event, len(d.Variables))
}

// FunctionMessage is a queued call.
type FunctionMessage struct {
	Unknown uint8
	id      *eid.EID
	Flag    uint8
	message *FunctionMessageData
}

// ReadFunctionMessage decodes a queued call.
func ReadFunctionMessage(r *binio.Reader, ctx *Context) (*FunctionMessage, error) {
	m := &FunctionMessage{}
	var err error
	if m.Unknown, err = r.U8(); err != nil {
		return m, err
	}
	if m.hasID() {
		if m.id, err = ctx.readID(r); err != nil {
			return m, err
		}
	}
	if m.Flag, err = r.U8(); err != nil {
		return m, err
	}
	if m.Flag != 0 {
		m.message, err = readFunctionMessageData(r, ctx)
	}
	return m, err
}

func (m *FunctionMessage) hasID() bool { return m.Unknown <= 2 }

func (m *FunctionMessage) Kind() Kind { return KindFunctionMessage }

// ID returns the thread id, or nil when the record carries none.
func (m *FunctionMessage) ID() *eid.EID { return m.id }

// Message returns the payload, or nil for an empty placeholder.
func (m *FunctionMessage) Message() *FunctionMessageData { return m.message }

// IsUndefined reports whether the payload targets a missing or undefined script.
func (m *FunctionMessage) IsUndefined() bool {
	if m.message == nil {
		return false
	}
	s := m.message.Script()
	return s == nil || s.IsUndefined()
}

func (m *FunctionMessage) Size() int {
	size := 1 + 1
	if m.hasID() {
		size += m.id.Width()
	}
	if m.message != nil {
		size += m.message.Size()
	}
	return size
}

func (m *FunctionMessage) Write(w *binio.Writer) error {
	w.PutU8(m.Unknown)
	if m.hasID() {
		m.id.Write(w)
	}
	w.PutU8(m.Flag)
	if m.message != nil {
		return m.message.Write(w)
	}
	return nil
}

func (m *FunctionMessage) String() string {
	if m.message == nil {
		return fmt.Sprintf("message [%s] (empty)", m.id)
	}
	return fmt.Sprintf("message [%s] %s", m.id, m.message)
}

// SuspendedStack is a parked call belonging to the thread with the same id.
type SuspendedStack struct {
	id      *eid.EID
	Flag    uint8
	message *FunctionMessageData
}

// ReadSuspendedStack decodes a parked call.
func ReadSuspendedStack(r *binio.Reader, ctx *Context) (*SuspendedStack, error) {
	s := &SuspendedStack{}
	var err error
	if s.id, err = ctx.readID(r); err != nil {
		return s, err
	}
	if s.Flag, err = r.U8(); err != nil {
		return s, err
	}
	if s.Flag != 0 {
		s.message, err = readFunctionMessageData(r, ctx)
	}
	return s, err
}

func (s *SuspendedStack) Kind() Kind                    { return KindSuspendedStack }
func (s *SuspendedStack) ID() *eid.EID                  { return s.id }
func (s *SuspendedStack) Message() *FunctionMessageData { return s.message }

func (s *SuspendedStack) Size() int {
	size := s.id.Width() + 1
	if s.message != nil {
		size += s.message.Size()
	}
	return size
}

func (s *SuspendedStack) Write(w *binio.Writer) error {
	s.id.Write(w)
	w.PutU8(s.Flag)
	if s.message != nil {
		return s.message.Write(w)
	}
	return nil
}

func (s *SuspendedStack) String() string {
	if s.message == nil {
		return fmt.Sprintf("suspended [%s] (empty)", s.id)
	}
	return fmt.Sprintf("suspended [%s] %s", s.id, s.message)
}
