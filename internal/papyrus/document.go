// Package papyrus decodes, inspects, prunes and re-encodes the papyrus VM
// section of a game save.
//
// Load reads the section in two passes: identity records first, so that every
// id has a placeholder, then the data records that refer to them. The result
// is a Document whose records refer to each other by id and name through the
// Document itself. Mutation (RemoveElements and friends) works on the loaded
// graph; Write re-encodes it.
package papyrus

import (
	"papyrus/internal/eid"
	"papyrus/internal/game"
	"papyrus/internal/trace"
	"papyrus/internal/tstring"
)

// Document is one decoded papyrus section. It is not safe for concurrent use.
type Document struct {
	variant game.Variant
	ids     *eid.Table
	strings *tstring.Table

	Header    uint16
	RuntimeID uint32

	scripts      []*Script
	scriptByName map[string]*Script
	structs      []*StructDef
	structByName map[string]*StructDef

	scriptInstances *Table[*ScriptInstance]
	references      *Table[*Reference]
	structInstances *Table[*StructInstance]
	arrays          *Table[*Array]
	activeScripts   *Table[*ActiveScript]

	functionMessages []*FunctionMessage
	suspended1       []*SuspendedStack
	suspended2       []*SuspendedStack

	unknownFields *UnknownFields
	unbinds       *UnbindMap
	saveVersion   uint16
	remaining     []byte

	truncated  bool
	truncCause error

	tracer trace.Tracer
}

func newDocument(v game.Variant, ids *eid.Table) *Document {
	return &Document{
		variant:         v,
		ids:             ids,
		strings:         tstring.NewTable(v),
		scriptByName:    make(map[string]*Script),
		structByName:    make(map[string]*StructDef),
		scriptInstances: newTable[*ScriptInstance]("script instance"),
		references:      newTable[*Reference]("reference"),
		structInstances: newTable[*StructInstance]("struct instance"),
		arrays:          newTable[*Array]("array"),
		activeScripts:   newTable[*ActiveScript]("active script"),
		unknownFields:   &UnknownFields{},
		unbinds:         &UnbindMap{},
		tracer:          trace.Nop,
	}
}

func (d *Document) Variant() game.Variant         { return d.variant }
func (d *Document) IDs() *eid.Table               { return d.ids }
func (d *Document) Strings() *tstring.Table       { return d.strings }
func (d *Document) Scripts() []*Script            { return d.scripts }
func (d *Document) Structs() []*StructDef         { return d.structs }
func (d *Document) SaveVersion() uint16           { return d.saveVersion }
func (d *Document) Remaining() []byte             { return d.remaining }
func (d *Document) UnknownFields() *UnknownFields { return d.unknownFields }
func (d *Document) UnbindMap() *UnbindMap         { return d.unbinds }

func (d *Document) ScriptInstances() *Table[*ScriptInstance] { return d.scriptInstances }
func (d *Document) References() *Table[*Reference]           { return d.references }
func (d *Document) StructInstances() *Table[*StructInstance] { return d.structInstances }
func (d *Document) Arrays() *Table[*Array]                   { return d.arrays }
func (d *Document) ActiveScripts() *Table[*ActiveScript]     { return d.activeScripts }

func (d *Document) FunctionMessages() []*FunctionMessage { return d.functionMessages }

// SuspendedStacks returns both suspended stack tables.
func (d *Document) SuspendedStacks() (first, second []*SuspendedStack) {
	return d.suspended1, d.suspended2
}

// IsTruncated reports whether the input ended early or failed byte accounting.
// A truncated document cannot be written.
func (d *Document) IsTruncated() bool { return d.truncated }

// TruncationCause returns the error that made the document truncated.
func (d *Document) TruncationCause() error { return d.truncCause }

// StringTableCorrected reports whether the string table count overflow was
// corrected on read. Such a document cannot be written.
func (d *Document) StringTableCorrected() bool { return d.strings.Corrected() }

// Writable reports whether Write can succeed.
func (d *Document) Writable() bool { return !d.truncated && !d.strings.Corrected() }

// FindReferent resolves an id against script instances, references, struct
// instances, arrays and active scripts, in that order. The zero id never
// resolves.
func (d *Document) FindReferent(id *eid.EID) Node {
	if id.IsZero() {
		return nil
	}
	if v, ok := d.scriptInstances.Get(id); ok {
		return v
	}
	if v, ok := d.references.Get(id); ok {
		return v
	}
	if v, ok := d.structInstances.Get(id); ok {
		return v
	}
	if v, ok := d.arrays.Get(id); ok {
		return v
	}
	if v, ok := d.activeScripts.Get(id); ok {
		return v
	}
	return nil
}

// FindScript looks a script up by case-insensitive name.
func (d *Document) FindScript(name *tstring.TString) *Script {
	if name == nil {
		return nil
	}
	return d.scriptByName[name.Key()]
}

// FindStruct looks a struct definition up by case-insensitive name.
func (d *Document) FindStruct(name *tstring.TString) *StructDef {
	if name == nil {
		return nil
	}
	return d.structByName[name.Key()]
}

// FindDefinition looks a script, then a struct, up by name.
func (d *Document) FindDefinition(name string) Definition {
	key := tstring.Free(name)
	if s := d.FindScript(key); s != nil {
		return s
	}
	if s := d.FindStruct(key); s != nil {
		return s
	}
	return nil
}

func (d *Document) context() *Context {
	return &Context{Variant: d.variant, IDs: d.ids, Strings: d.strings, Graph: d}
}

func (d *Document) indexDefinitions() {
	clear(d.scriptByName)
	for _, s := range d.scripts {
		if _, dup := d.scriptByName[s.name.Key()]; !dup {
			d.scriptByName[s.name.Key()] = s
		}
	}
	clear(d.structByName)
	for _, s := range d.structs {
		if _, dup := d.structByName[s.name.Key()]; !dup {
			d.structByName[s.name.Key()] = s
		}
	}
}

// link re-resolves every variable and thread association after the tables
// they point into have changed.
func (d *Document) link() {
	for _, si := range d.scriptInstances.All() {
		if si.data != nil {
			relinkAll(si.data.Variables, d)
		}
	}
	for _, ref := range d.references.All() {
		if ref.data != nil {
			relinkAll(ref.data.Variables, d)
		}
	}
	for _, si := range d.structInstances.All() {
		if si.data != nil {
			relinkAll(si.data.Variables, d)
		}
	}
	for _, a := range d.arrays.All() {
		relinkAll(a.data, d)
	}
	for _, a := range d.activeScripts.All() {
		if a.data != nil {
			a.data.relink(d)
		}
	}
	for _, m := range d.functionMessages {
		if m.message != nil {
			m.message.relink(d)
		}
	}
	suspended := make(map[*eid.EID]*SuspendedStack, len(d.suspended1)+len(d.suspended2))
	for _, list := range [][]*SuspendedStack{d.suspended1, d.suspended2} {
		for _, s := range list {
			if s.message != nil {
				s.message.relink(d)
			}
			if _, dup := suspended[s.id]; !dup {
				suspended[s.id] = s
			}
		}
	}
	for _, a := range d.activeScripts.All() {
		a.link(suspended)
	}
}

var (
	_ Graph = (*Document)(nil)
)
