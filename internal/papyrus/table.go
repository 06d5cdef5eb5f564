package papyrus

import (
	"fmt"

	"papyrus/internal/eid"
)

// Table is an id-keyed table that keeps the order of its identity records and,
// separately, the order in which their data records were read.
type Table[T Node] struct {
	what  string
	items []T
	byID  map[*eid.EID]T
	data  []T
}

func newTable[T Node](what string) *Table[T] {
	return &Table[T]{what: what, byID: make(map[*eid.EID]T)}
}

// Len returns the number of records.
func (t *Table[T]) Len() int { return len(t.items) }

// All returns the records in stream order. Do not modify the slice.
func (t *Table[T]) All() []T { return t.items }

// Get looks a record up by id.
func (t *Table[T]) Get(id *eid.EID) (T, bool) {
	v, ok := t.byID[id]
	return v, ok
}

func (t *Table[T]) add(item T) error {
	id := item.ID()
	if _, dup := t.byID[id]; dup {
		return fmt.Errorf("duplicate %s id %s", t.what, id)
	}
	t.byID[id] = item
	t.items = append(t.items, item)
	return nil
}

func (t *Table[T]) markData(item T) {
	t.data = append(t.data, item)
}

// dataOrder returns the records in the order their data was read.
func (t *Table[T]) dataOrder() []T { return t.data }

// remove drops every record whose id is in ids and returns the removed ones.
func (t *Table[T]) remove(ids map[*eid.EID]struct{}) []T {
	if len(ids) == 0 {
		return nil
	}
	var removed []T
	kept := t.items[:0]
	for _, item := range t.items {
		if _, ok := ids[item.ID()]; ok {
			removed = append(removed, item)
			delete(t.byID, item.ID())
			continue
		}
		kept = append(kept, item)
	}
	clear(t.items[len(kept):])
	t.items = kept

	data := t.data[:0]
	for _, item := range t.data {
		if _, ok := ids[item.ID()]; !ok {
			data = append(data, item)
		}
	}
	clear(t.data[len(data):])
	t.data = data
	return removed
}
