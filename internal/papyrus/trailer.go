package papyrus

import (
	"papyrus/internal/binio"
	"papyrus/internal/eid"
)

// UnknownFields is the list of ids the engine keeps after the call stacks.
type UnknownFields struct {
	Unknown uint32
	IDs     []*eid.EID
}

func readUnknownFields(r *binio.Reader, ctx *Context) (*UnknownFields, error) {
	u := &UnknownFields{}
	var err error
	if u.Unknown, err = r.U32(); err != nil {
		return u, err
	}
	count, err := r.Count32()
	if err != nil {
		return u, err
	}
	u.IDs, err = readList(r, "id", count, func() (*eid.EID, error) { return ctx.readID(r) })
	return u, err
}

func (u *UnknownFields) Size() int {
	size := 4 + 4
	for _, id := range u.IDs {
		size += id.Width()
	}
	return size
}

func (u *UnknownFields) Write(w *binio.Writer) error {
	w.PutU32(u.Unknown)
	if err := w.PutLen32(len(u.IDs)); err != nil {
		return err
	}
	for _, id := range u.IDs {
		id.Write(w)
	}
	return nil
}

// Unbind is a queued unbind of a script instance from a reference.
type Unbind struct {
	ID    *eid.EID
	RefID uint32
}

// UnbindMap is the queue of pending unbinds.
type UnbindMap struct {
	Entries []Unbind
}

func readUnbindMap(r *binio.Reader, ctx *Context) (*UnbindMap, error) {
	m := &UnbindMap{}
	count, err := r.Count32()
	if err != nil {
		return m, err
	}
	m.Entries, err = readList(r, "unbind", count, func() (Unbind, error) {
		id, err := ctx.readID(r)
		if err != nil {
			return Unbind{}, err
		}
		ref, err := r.U32()
		return Unbind{ID: id, RefID: ref}, err
	})
	return m, err
}

func (m *UnbindMap) Size() int {
	size := 4
	for _, e := range m.Entries {
		size += e.ID.Width() + 4
	}
	return size
}

func (m *UnbindMap) Write(w *binio.Writer) error {
	if err := w.PutLen32(len(m.Entries)); err != nil {
		return err
	}
	for _, e := range m.Entries {
		e.ID.Write(w)
		w.PutU32(e.RefID)
	}
	return nil
}
