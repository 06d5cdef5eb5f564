package papyrus

import (
	"errors"
	"fmt"

	"papyrus/internal/binio"
	"papyrus/internal/diag"
	"papyrus/internal/eid"
	"papyrus/internal/game"
	"papyrus/internal/observ"
	"papyrus/internal/trace"
	"papyrus/internal/tstring"
)

// Option configures Load.
type Option func(*options)

type options struct {
	tracer   trace.Tracer
	timer    *observ.Timer
	reporter diag.Reporter
	parent   uint64
}

// WithTracer logs every section as a trace span.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithParentSpan nests the document span under an existing span.
func WithParentSpan(id uint64) Option {
	return func(o *options) { o.parent = id }
}

// WithTimer records per-section durations and byte counts.
func WithTimer(t *observ.Timer) Option {
	return func(o *options) { o.timer = t }
}

// WithReporter receives structural findings made during and after load.
func WithReporter(r diag.Reporter) Option {
	return func(o *options) {
		if r != nil {
			o.reporter = r
		}
	}
}

type loader struct {
	doc  *Document
	r    *binio.Reader
	ctx  *Context
	opts options
	span *trace.Span
	// sum is the running byte counter; it must equal the cursor after every section.
	sum int
	// records counts what the current section decoded, for its trace span.
	records int

	scriptCount int
	structCount int
}

// Load decodes a papyrus section.
//
// Running out of data is not an error: the partial document is returned with
// IsTruncated set and a nil error. A FormatError is fatal and is returned as a
// *LoadError together with the partial document.
func Load(data []byte, v game.Variant, opts ...Option) (*Document, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	ids, err := eid.NewTable(v.IDWidth)
	if err != nil {
		return nil, err
	}
	o := options{tracer: trace.Nop, reporter: diag.NopReporter{}}
	for _, opt := range opts {
		opt(&o)
	}

	doc := newDocument(v, ids)
	doc.tracer = o.tracer
	l := &loader{doc: doc, r: binio.NewReader(data), ctx: doc.context(), opts: o}
	l.span = trace.Begin(o.tracer, trace.ScopeDocument, "load", o.parent).At(0)
	l.span.WithExtra("game", v.String())

	err = l.run()
	err = l.finish(err)
	l.span.Consumed(l.r.Pos(), len(l.doc.scripts)+l.doc.scriptInstances.Len()+l.doc.activeScripts.Len())
	switch {
	case err != nil:
		l.span.Fail(err)
	case doc.truncated:
		l.span.End("truncated")
	default:
		l.span.End("")
	}
	return doc, err
}

func (l *loader) run() error {
	steps := []struct {
		name string
		fn   func() (int, error)
		on   bool
	}{
		{"header", l.readHeader, true},
		{"strings", l.readStrings, true},
		{"definition counts", l.readCounts, true},
		{"scripts", l.readScripts, true},
		{"structs", l.readStructs, l.doc.variant.Structs},
		{"script instances", l.readScriptInstances, true},
		{"references", l.readReferences, true},
		{"struct instances", l.readStructInstances, l.doc.variant.Structs},
		{"arrays", l.readArrays, true},
		{"runtime id", l.readRuntimeID, true},
		{"active scripts", l.readActiveScripts, true},
		{"script instance data", l.readScriptInstanceData, true},
		{"reference data", l.readReferenceData, true},
		{"struct instance data", l.readStructInstanceData, l.doc.variant.Structs},
		{"array data", l.readArrayData, true},
		{"active script data", l.readActiveScriptData, true},
		{"function messages", l.readFunctionMessages, true},
		{"suspended stacks 1", func() (int, error) { return l.readSuspended(&l.doc.suspended1) }, true},
		{"suspended stacks 2", func() (int, error) { return l.readSuspended(&l.doc.suspended2) }, true},
		{"unknown fields", l.readUnknownFields, true},
		{"unbind map", l.readUnbindMap, true},
		{"save version", l.readSaveVersion, l.doc.variant.HasSaveVersion()},
		{"remaining", l.readRemaining, true},
	}
	for _, step := range steps {
		if !step.on {
			continue
		}
		if step.name == "unknown fields" {
			l.doc.link()
		}
		if err := l.section(step.name, step.fn); err != nil {
			return err
		}
	}
	return nil
}

// section runs one table decoder inside a span and checks byte accounting.
func (l *loader) section(name string, fn func() (int, error)) error {
	start := l.r.Pos()
	span := trace.Begin(l.opts.tracer, trace.ScopeSection, name, l.span.ID()).At(start)
	idx := l.opts.timer.Begin(name)

	l.records = 0
	size, err := fn()
	consumed := l.r.Pos() - start
	span.Consumed(consumed, l.records)
	l.opts.timer.EndBytes(idx, consumed, "")
	if err != nil {
		span.Fail(err)
		return &LoadError{Section: name, Err: err}
	}

	l.sum += size
	if l.sum != l.r.Pos() {
		err := fmt.Errorf("%w: counted %d bytes, cursor at %d", errAccounting, l.sum, l.r.Pos())
		span.Fail(err)
		return &LoadError{Section: name, Err: err}
	}
	span.End("")
	return nil
}

// finish turns truncation and accounting drift into document state.
func (l *loader) finish(err error) error {
	if err == nil {
		l.audit()
		return nil
	}
	if binio.IsTruncated(err) || errors.Is(err, errAccounting) {
		l.doc.link()
		l.markTruncated(err)
		l.audit()
		return nil
	}
	l.report(diag.SevError, diag.LoadFormat, sectionOf(err), formatOffset(err), err.Error())
	return err
}

func (l *loader) markTruncated(err error) {
	l.doc.truncated = true
	l.doc.truncCause = err
	code := diag.LoadTruncated
	if errors.Is(err, errAccounting) {
		code = diag.LoadSizeMismatch
	}
	l.report(diag.SevError, code, sectionOf(err), l.r.Pos(), err.Error())
}

func (l *loader) report(sev diag.Severity, code diag.Code, section string, offset int, msg string) {
	diag.NewReportBuilder(l.opts.reporter, sev, code, offset, msg).InSection(section).Emit()
	trace.PointAt(l.opts.tracer, trace.ScopeRecord, code.ID(), msg, l.span.ID(), offset)
}

func sectionOf(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Section
	}
	return ""
}

func formatOffset(err error) int {
	var fe *FormatError
	if errors.As(err, &fe) {
		return fe.Offset
	}
	return diag.NoOffset
}

func (l *loader) readHeader() (int, error) {
	h, err := l.r.U16()
	l.doc.Header = h
	return 2, err
}

func (l *loader) readStrings() (int, error) {
	t, err := tstring.Read(l.r, l.doc.variant)
	l.doc.strings = t
	l.ctx.Strings = t
	if t.Corrected() {
		l.report(diag.SevWarning, diag.LoadStringTableBug, "strings", 0,
			fmt.Sprintf("declared %d strings, read %d; the document cannot be written", t.Declared(), t.Len()))
	}
	if t.IsTruncated() {
		l.report(diag.SevError, diag.LoadStringTableTruncated, "strings", l.r.Pos(),
			fmt.Sprintf("%d of %d strings missing", t.MissingCount(), t.Declared()))
	}
	l.records = t.Len()
	if l.opts.tracer.Level().ShouldEmit(trace.ScopeSection) {
		trace.Point(l.opts.tracer, trace.ScopeSection, "string table", "mode "+t.Mode().String(), l.span.ID())
	}
	return t.Size(), err
}

func (l *loader) readCounts() (int, error) {
	var err error
	if l.scriptCount, err = l.r.Count32(); err != nil {
		return 4, err
	}
	if !l.doc.variant.Structs {
		return 4, nil
	}
	l.structCount, err = l.r.Count32()
	return 8, err
}

func (l *loader) readScripts() (int, error) {
	scripts, err := readList(l.r, "script", l.scriptCount, func() (*Script, error) { return ReadScript(l.r, l.ctx) })
	l.doc.scripts = scripts
	l.records = len(scripts)
	l.doc.indexDefinitions()
	for _, p := range ResolveParents(l.doc.scripts) {
		if p.Cycle {
			l.report(diag.SevWarning, diag.GraphParentCycle, "scripts", diag.NoOffset,
				fmt.Sprintf("script %s: parent link to %s closes a cycle and was dropped", p.Script.name, p.Script.parentName))
			continue
		}
		l.report(diag.SevWarning, diag.GraphUnresolvedParent, "scripts", diag.NoOffset,
			fmt.Sprintf("script %s: parent %s is not defined", p.Script.name, p.Script.parentName))
	}
	size := 0
	for _, s := range scripts {
		size += s.Size()
	}
	return size, err
}

func (l *loader) readStructs() (int, error) {
	structs, err := readList(l.r, "struct", l.structCount, func() (*StructDef, error) { return ReadStructDef(l.r, l.ctx) })
	l.doc.structs = structs
	l.records = len(structs)
	l.doc.indexDefinitions()
	size := 0
	for _, s := range structs {
		size += s.Size()
	}
	return size, err
}

// readIdentities decodes a u32-counted identity table into t.
func readIdentities[T Node](l *loader, t *Table[T], read func(*binio.Reader, *Context) (T, error)) (int, error) {
	count, err := l.r.Count32()
	if err != nil {
		return 4, err
	}
	size := 4
	_, err = readList(l.r, t.what, count, func() (T, error) {
		item, err := read(l.r, l.ctx)
		if err != nil {
			return item, err
		}
		if err := t.add(item); err != nil {
			return item, &FormatError{Offset: l.r.Pos() - item.Size(), Msg: err.Error()}
		}
		size += item.Size()
		l.records++
		return item, nil
	})
	return size, err
}

func (l *loader) readScriptInstances() (int, error) {
	return readIdentities(l, l.doc.scriptInstances, ReadScriptInstance)
}

func (l *loader) readReferences() (int, error) {
	return readIdentities(l, l.doc.references, ReadReference)
}

func (l *loader) readStructInstances() (int, error) {
	return readIdentities(l, l.doc.structInstances, ReadStructInstance)
}

func (l *loader) readArrays() (int, error) {
	return readIdentities(l, l.doc.arrays, ReadArray)
}

func (l *loader) readRuntimeID() (int, error) {
	v, err := l.r.U32()
	l.doc.RuntimeID = v
	return 4, err
}

func (l *loader) readActiveScripts() (int, error) {
	return readIdentities(l, l.doc.activeScripts, ReadActiveScript)
}

// record is a decoded data record.
type record interface{ Size() int }

// readData decodes one data record per identity, each introduced by its id.
// An id that has no identity record, or that was already filled, is fatal.
// read attaches the record to its node only once it decoded completely; a
// record cut short is left in ListError.Partial.
func readData[T Node](l *loader, t *Table[T], what string, read func(T) (record, error)) (int, error) {
	count := t.Len()
	size := 0
	_, err := readList(l.r, what, count, func() (record, error) {
		start := l.r.Pos()
		id, err := l.ctx.readID(l.r)
		if err != nil {
			return nil, err
		}
		item, ok := t.Get(id)
		if !ok {
			return nil, &FormatError{Offset: start, Msg: fmt.Sprintf("no %s with id %s", t.what, id)}
		}
		rec, err := read(item)
		if err != nil {
			return rec, err
		}
		t.markData(item)
		size += id.Width() + rec.Size()
		l.records++
		return rec, nil
	})
	return size, err
}

func (l *loader) readScriptInstanceData() (int, error) {
	return readData(l, l.doc.scriptInstances, "script instance data", func(si *ScriptInstance) (record, error) {
		if si.data != nil {
			return nil, l.r.Errorf("script instance %s has two data records", si.id)
		}
		d, err := readInstanceData(l.r, l.ctx)
		if err != nil {
			return d, err
		}
		si.data = d
		return d, nil
	})
}

func (l *loader) readReferenceData() (int, error) {
	return readData(l, l.doc.references, "reference data", func(ref *Reference) (record, error) {
		if ref.data != nil {
			return nil, l.r.Errorf("reference %s has two data records", ref.id)
		}
		d, err := readInstanceData(l.r, l.ctx)
		if err != nil {
			return d, err
		}
		ref.data = d
		return d, nil
	})
}

func (l *loader) readStructInstanceData() (int, error) {
	return readData(l, l.doc.structInstances, "struct instance data", func(si *StructInstance) (record, error) {
		if si.data != nil {
			return nil, l.r.Errorf("struct instance %s has two data records", si.id)
		}
		d, err := readStructData(l.r, l.ctx)
		if err != nil {
			return d, err
		}
		si.data = d
		return d, nil
	})
}

func (l *loader) readArrayData() (int, error) {
	seen := make(map[*eid.EID]bool, l.doc.arrays.Len())
	return readData(l, l.doc.arrays, "array data", func(a *Array) (record, error) {
		if seen[a.id] {
			return nil, l.r.Errorf("array %s has two data records", a.id)
		}
		seen[a.id] = true
		elems, err := readVariables(l.r, l.ctx, "element", a.length)
		if err != nil {
			return arrayElements(elems), err
		}
		a.data = elems
		return arrayElements(elems), nil
	})
}

func (l *loader) readActiveScriptData() (int, error) {
	return readData(l, l.doc.activeScripts, "active script data", func(a *ActiveScript) (record, error) {
		if a.data != nil {
			return nil, l.r.Errorf("active script %s has two data records", a.id)
		}
		d, err := readActiveScriptData(l.r, l.ctx, a.id)
		if err != nil {
			return d, err
		}
		a.data = d
		return d, nil
	})
}

func (l *loader) readFunctionMessages() (int, error) {
	count, err := l.r.Count32()
	if err != nil {
		return 4, err
	}
	msgs, err := readList(l.r, "function message", count, func() (*FunctionMessage, error) {
		return ReadFunctionMessage(l.r, l.ctx)
	})
	l.doc.functionMessages = msgs
	l.records = len(msgs)
	size := 4
	for _, m := range msgs {
		size += m.Size()
	}
	return size, err
}

func (l *loader) readSuspended(dst *[]*SuspendedStack) (int, error) {
	count, err := l.r.Count32()
	if err != nil {
		return 4, err
	}
	stacks, err := readList(l.r, "suspended stack", count, func() (*SuspendedStack, error) {
		return ReadSuspendedStack(l.r, l.ctx)
	})
	*dst = stacks
	l.records = len(stacks)
	size := 4
	for _, s := range stacks {
		size += s.Size()
	}
	return size, err
}

func (l *loader) readUnknownFields() (int, error) {
	u, err := readUnknownFields(l.r, l.ctx)
	l.doc.unknownFields = u
	return u.Size(), err
}

func (l *loader) readUnbindMap() (int, error) {
	m, err := readUnbindMap(l.r, l.ctx)
	l.doc.unbinds = m
	return m.Size(), err
}

func (l *loader) readSaveVersion() (int, error) {
	v, err := l.r.U16()
	l.doc.saveVersion = v
	return 2, err
}

func (l *loader) readRemaining() (int, error) {
	l.doc.remaining = l.r.Rest()
	return len(l.doc.remaining), nil
}

// audit reports graph-level findings once everything that could be read is linked.
func (l *loader) audit() {
	d := l.doc
	for _, si := range d.scriptInstances.All() {
		switch {
		case si.script == nil:
			l.report(diag.SevWarning, diag.GraphUndefinedInstance, "script instances", diag.NoOffset,
				fmt.Sprintf("script instance %s: script %s is not defined", si.id, si.scriptName))
		case si.MemberMismatch():
			l.report(diag.SevWarning, diag.GraphMemberMismatch, "script instance data", diag.NoOffset,
				fmt.Sprintf("script instance %s: %d variables, %s declares %d", si.id, len(si.data.Variables), si.scriptName, len(si.script.ExtendedMembers())))
		}
		if si.data == nil && !d.truncated {
			l.report(diag.SevError, diag.LoadMissingData, "script instance data", diag.NoOffset,
				fmt.Sprintf("script instance %s has no data record", si.id))
		}
	}
	for _, ref := range d.references.All() {
		switch {
		case ref.script == nil:
			l.report(diag.SevWarning, diag.GraphUndefinedInstance, "references", diag.NoOffset,
				fmt.Sprintf("reference %s: script %s is not defined", ref.id, ref.typeName))
		case ref.MemberMismatch():
			l.report(diag.SevWarning, diag.GraphMemberMismatch, "reference data", diag.NoOffset,
				fmt.Sprintf("reference %s: %d variables, %s declares %d", ref.id, len(ref.data.Variables), ref.typeName, len(ref.script.ExtendedMembers())))
		}
	}
	for _, si := range d.structInstances.All() {
		switch {
		case si.def == nil:
			l.report(diag.SevWarning, diag.GraphUndefinedInstance, "struct instances", diag.NoOffset,
				fmt.Sprintf("struct instance %s: struct %s is not defined", si.id, si.structName))
		case si.MemberMismatch():
			l.report(diag.SevWarning, diag.GraphMemberMismatch, "struct instance data", diag.NoOffset,
				fmt.Sprintf("struct instance %s: %d variables, %s declares %d", si.id, len(si.data.Variables), si.structName, len(si.def.members)))
		}
	}
	for _, a := range d.activeScripts.All() {
		switch {
		case a.IsTerminated():
			l.report(diag.SevInfo, diag.GraphTerminatedThread, "active scripts", diag.NoOffset, a.String())
		case a.IsUndefined():
			l.report(diag.SevWarning, diag.GraphUndefinedThread, "active scripts", diag.NoOffset, a.String())
		}
	}
}
