package papyrus

import (
	"fmt"

	"papyrus/internal/binio"
	"papyrus/internal/trace"
)

// Size returns the number of bytes Write emits.
func (d *Document) Size() int {
	size := 2 + d.strings.Size() + 4
	if d.variant.Structs {
		size += 4
	}
	for _, s := range d.scripts {
		size += s.Size()
	}
	for _, s := range d.structs {
		size += s.Size()
	}
	size += identitiesSize(d.scriptInstances) + identitiesSize(d.references)
	if d.variant.Structs {
		size += identitiesSize(d.structInstances)
	}
	size += identitiesSize(d.arrays)
	size += 4
	size += identitiesSize(d.activeScripts)

	for _, si := range d.scriptInstances.dataOrder() {
		size += si.id.Width() + si.data.Size()
	}
	for _, ref := range d.references.dataOrder() {
		size += ref.id.Width() + ref.data.Size()
	}
	if d.variant.Structs {
		for _, si := range d.structInstances.dataOrder() {
			size += si.id.Width() + si.data.Size()
		}
	}
	for _, a := range d.arrays.dataOrder() {
		size += a.id.Width() + a.dataSize()
	}
	for _, a := range d.activeScripts.dataOrder() {
		size += a.id.Width() + a.data.Size()
	}

	size += 4
	for _, m := range d.functionMessages {
		size += m.Size()
	}
	for _, list := range [][]*SuspendedStack{d.suspended1, d.suspended2} {
		size += 4
		for _, s := range list {
			size += s.Size()
		}
	}
	size += d.unknownFields.Size() + d.unbinds.Size()
	if d.variant.HasSaveVersion() {
		size += 2
	}
	return size + len(d.remaining)
}

func identitiesSize[T Node](t *Table[T]) int {
	size := 4
	for _, item := range t.All() {
		size += item.Size()
	}
	return size
}

// Bytes encodes the document into a new buffer.
func (d *Document) Bytes() ([]byte, error) {
	if err := d.CheckWritable(); err != nil {
		return nil, err
	}
	size := d.Size()
	w := binio.NewWriter(size)
	if err := d.Write(w); err != nil {
		return nil, err
	}
	if w.Pos() != size {
		return nil, fmt.Errorf("papyrus: wrote %d bytes, expected %d", w.Pos(), size)
	}
	return w.Bytes(), nil
}

// CheckWritable reports why the document cannot be encoded, or nil.
func (d *Document) CheckWritable() error {
	if d.truncated {
		return ErrTruncatedDocument
	}
	if d.strings.Corrected() {
		return ErrStringTableBug
	}
	return nil
}

// Write encodes the document. It refuses truncated documents and documents
// whose string table was corrected.
func (d *Document) Write(w *binio.Writer) (err error) {
	if err := d.CheckWritable(); err != nil {
		return err
	}
	start := w.Pos()
	span := trace.Begin(d.tracer, trace.ScopeDocument, "write", 0).At(start)
	defer func() {
		span.Consumed(w.Pos()-start, 0)
		if err != nil {
			span.Fail(err)
			return
		}
		span.End("")
	}()

	steps := []struct {
		name string
		fn   func(*binio.Writer) error
		on   bool
	}{
		{"header", func(w *binio.Writer) error { w.PutU16(d.Header); return nil }, true},
		{"strings", d.strings.Write, true},
		{"definition counts", d.writeCounts, true},
		{"scripts", func(w *binio.Writer) error { return writeAll(w, d.scripts) }, true},
		{"structs", func(w *binio.Writer) error { return writeAll(w, d.structs) }, d.variant.Structs},
		{"script instances", func(w *binio.Writer) error { return writeIdentities(w, d.scriptInstances) }, true},
		{"references", func(w *binio.Writer) error { return writeIdentities(w, d.references) }, true},
		{"struct instances", func(w *binio.Writer) error { return writeIdentities(w, d.structInstances) }, d.variant.Structs},
		{"arrays", func(w *binio.Writer) error { return writeIdentities(w, d.arrays) }, true},
		{"runtime id", func(w *binio.Writer) error { w.PutU32(d.RuntimeID); return nil }, true},
		{"active scripts", func(w *binio.Writer) error { return writeIdentities(w, d.activeScripts) }, true},
		{"script instance data", d.writeScriptInstanceData, true},
		{"reference data", d.writeReferenceData, true},
		{"struct instance data", d.writeStructInstanceData, d.variant.Structs},
		{"array data", d.writeArrayData, true},
		{"active script data", d.writeActiveScriptData, true},
		{"function messages", d.writeFunctionMessages, true},
		{"suspended stacks 1", func(w *binio.Writer) error { return writeCounted(w, d.suspended1) }, true},
		{"suspended stacks 2", func(w *binio.Writer) error { return writeCounted(w, d.suspended2) }, true},
		{"unknown fields", d.unknownFields.Write, true},
		{"unbind map", d.unbinds.Write, true},
		{"save version", func(w *binio.Writer) error { w.PutU16(d.saveVersion); return nil }, d.variant.HasSaveVersion()},
		{"remaining", func(w *binio.Writer) error { w.PutBytes(d.remaining); return nil }, true},
	}
	for _, step := range steps {
		if !step.on {
			continue
		}
		if err := step.fn(w); err != nil {
			return fmt.Errorf("papyrus: write %s: %w", step.name, err)
		}
	}
	return nil
}

func (d *Document) writeCounts(w *binio.Writer) error {
	if err := w.PutLen32(len(d.scripts)); err != nil {
		return err
	}
	if d.variant.Structs {
		return w.PutLen32(len(d.structs))
	}
	return nil
}

func writeAll[T Element](w *binio.Writer, items []T) error {
	for i, item := range items {
		if err := item.Write(w); err != nil {
			return fmt.Errorf("%s %d: %w", item.Kind(), i, err)
		}
	}
	return nil
}

func writeCounted[T Element](w *binio.Writer, items []T) error {
	if err := w.PutLen32(len(items)); err != nil {
		return err
	}
	return writeAll(w, items)
}

func writeIdentities[T Node](w *binio.Writer, t *Table[T]) error {
	return writeCounted(w, t.All())
}

// checkData refuses to write a table whose data records do not cover every identity.
func checkData[T Node](t *Table[T]) error {
	if len(t.dataOrder()) != t.Len() {
		return fmt.Errorf("%d of %d %s records have data", len(t.dataOrder()), t.Len(), t.what)
	}
	return nil
}

func (d *Document) writeScriptInstanceData(w *binio.Writer) error {
	if err := checkData(d.scriptInstances); err != nil {
		return err
	}
	for _, si := range d.scriptInstances.dataOrder() {
		si.id.Write(w)
		if err := si.data.Write(w); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) writeReferenceData(w *binio.Writer) error {
	if err := checkData(d.references); err != nil {
		return err
	}
	for _, ref := range d.references.dataOrder() {
		ref.id.Write(w)
		if err := ref.data.Write(w); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) writeStructInstanceData(w *binio.Writer) error {
	if err := checkData(d.structInstances); err != nil {
		return err
	}
	for _, si := range d.structInstances.dataOrder() {
		si.id.Write(w)
		if err := si.data.Write(w); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) writeArrayData(w *binio.Writer) error {
	if err := checkData(d.arrays); err != nil {
		return err
	}
	for _, a := range d.arrays.dataOrder() {
		a.id.Write(w)
		if err := a.writeData(w); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) writeActiveScriptData(w *binio.Writer) error {
	if err := checkData(d.activeScripts); err != nil {
		return err
	}
	for _, a := range d.activeScripts.dataOrder() {
		a.id.Write(w)
		if err := a.data.Write(w); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) writeFunctionMessages(w *binio.Writer) error {
	return writeCounted(w, d.functionMessages)
}
