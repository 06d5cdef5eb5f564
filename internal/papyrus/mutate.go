package papyrus

import (
	"papyrus/internal/eid"
)

// RemoveElements removes the seed elements and everything that depends on
// them, breadth first: removing a definition first enqueues every instance
// bound to it. Each element is removed from the one table that owns it;
// elements that are not present are ignored. The removed elements are
// returned in the order they were dequeued.
func (d *Document) RemoveElements(seed []Element) []Element {
	queue := append([]Element(nil), seed...)
	seen := make(map[Element]bool, len(seed))
	var removed []Element

	var (
		scripts  = make(map[*Script]struct{})
		structs  = make(map[*StructDef]struct{})
		sis      = make(map[*eid.EID]struct{})
		refs     = make(map[*eid.EID]struct{})
		structIs = make(map[*eid.EID]struct{})
		arrays   = make(map[*eid.EID]struct{})
		threads  = make(map[*eid.EID]struct{})
	)

	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		if e == nil || seen[e] {
			continue
		}
		seen[e] = true

		switch x := e.(type) {
		case *Script:
			if !containsScript(d.scripts, x) {
				continue
			}
			for _, si := range d.scriptInstances.All() {
				if si.script == x {
					queue = append(queue, si)
				}
			}
			for _, ref := range d.references.All() {
				if ref.script == x {
					queue = append(queue, ref)
				}
			}
			scripts[x] = struct{}{}
		case *StructDef:
			if !containsStruct(d.structs, x) {
				continue
			}
			for _, si := range d.structInstances.All() {
				if si.def == x {
					queue = append(queue, si)
				}
			}
			structs[x] = struct{}{}
		case *ScriptInstance:
			if !present(d.scriptInstances, x) {
				continue
			}
			sis[x.id] = struct{}{}
		case *Reference:
			if !present(d.references, x) {
				continue
			}
			refs[x.id] = struct{}{}
		case *StructInstance:
			if !present(d.structInstances, x) {
				continue
			}
			structIs[x.id] = struct{}{}
		case *Array:
			if !present(d.arrays, x) {
				continue
			}
			arrays[x.id] = struct{}{}
		case *ActiveScript:
			if !present(d.activeScripts, x) {
				continue
			}
			threads[x.id] = struct{}{}
		default:
			continue
		}
		removed = append(removed, e)
	}

	if len(removed) == 0 {
		return nil
	}

	for _, si := range d.scriptInstances.remove(sis) {
		si.unbind()
	}
	for _, ref := range d.references.remove(refs) {
		ref.unbind()
	}
	for _, si := range d.structInstances.remove(structIs) {
		si.unbind()
	}
	d.arrays.remove(arrays)
	d.activeScripts.remove(threads)

	if len(scripts) > 0 {
		d.scripts = filter(d.scripts, func(s *Script) bool { _, gone := scripts[s]; return !gone })
		ResolveParents(d.scripts)
	}
	if len(structs) > 0 {
		d.structs = filter(d.structs, func(s *StructDef) bool { _, gone := structs[s]; return !gone })
	}
	if len(scripts) > 0 || len(structs) > 0 {
		d.indexDefinitions()
	}

	d.link()
	return removed
}

func present[T Node](t *Table[T], item T) bool {
	got, ok := t.Get(item.ID())
	return ok && Node(got) == Node(item)
}

func containsScript(list []*Script, s *Script) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func containsStruct(list []*StructDef, s *StructDef) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func filter[T any](list []T, keep func(T) bool) []T {
	out := list[:0]
	for _, v := range list {
		if keep(v) {
			out = append(out, v)
		}
	}
	clear(list[len(out):])
	return out
}

// RemoveUnattachedInstances removes every script instance bound to no reference.
func (d *Document) RemoveUnattachedInstances() []Element {
	var seed []Element
	for _, si := range d.scriptInstances.All() {
		if si.IsUnattached() {
			seed = append(seed, si)
		}
	}
	return d.RemoveElements(seed)
}

// RemoveUndefinedElements removes undefined scripts with their instances and
// instances whose definition is missing. Threads whose top frame runs an
// undefined script are zeroed rather than removed, since other records may
// still name them.
func (d *Document) RemoveUndefinedElements() (removed []Element, zeroed []*ActiveScript) {
	var seed []Element
	for _, s := range d.scripts {
		if s.IsUndefined() {
			seed = append(seed, s)
		}
	}
	for _, si := range d.scriptInstances.All() {
		if si.script == nil {
			seed = append(seed, si)
		}
	}
	for _, ref := range d.references.All() {
		if ref.script == nil {
			seed = append(seed, ref)
		}
	}
	for _, si := range d.structInstances.All() {
		if si.def == nil {
			seed = append(seed, si)
		}
	}

	// Decide which threads to zero before the removal makes more scripts vanish.
	var undefinedThreads []*ActiveScript
	for _, a := range d.activeScripts.All() {
		if frames := a.Frames(); len(frames) > 0 && frames[0].IsUndefined() && !a.IsZeroed() {
			undefinedThreads = append(undefinedThreads, a)
		}
	}

	removed = d.RemoveElements(seed)
	for _, a := range undefinedThreads {
		a.Zero()
		zeroed = append(zeroed, a)
	}
	return removed, zeroed
}

// ZeroTerminated zeroes every terminated thread that still has live
// instructions below its top frame.
func (d *Document) ZeroTerminated() []*ActiveScript {
	var zeroed []*ActiveScript
	for _, a := range d.activeScripts.All() {
		if a.IsTerminated() && !a.IsZeroed() {
			a.Zero()
			zeroed = append(zeroed, a)
		}
	}
	return zeroed
}

// UndefinedCounts groups the number of undefined elements per table.
type UndefinedCounts struct {
	Scripts         int `json:"scripts" msgpack:"scripts"`
	ScriptInstances int `json:"script_instances" msgpack:"script_instances"`
	References      int `json:"references" msgpack:"references"`
	StructInstances int `json:"struct_instances" msgpack:"struct_instances"`
	Threads         int `json:"threads" msgpack:"threads"`
	Messages        int `json:"messages" msgpack:"messages"`
}

// Total returns the sum of all counts.
func (c UndefinedCounts) Total() int {
	return c.Scripts + c.ScriptInstances + c.References + c.StructInstances + c.Threads + c.Messages
}

// CountUndefinedElements counts undefined elements without changing anything.
func (d *Document) CountUndefinedElements() UndefinedCounts {
	var c UndefinedCounts
	for _, s := range d.scripts {
		if s.IsUndefined() {
			c.Scripts++
		}
	}
	for _, si := range d.scriptInstances.All() {
		if si.IsUndefined() {
			c.ScriptInstances++
		}
	}
	for _, ref := range d.references.All() {
		if ref.IsUndefined() {
			c.References++
		}
	}
	for _, si := range d.structInstances.All() {
		if si.IsUndefined() {
			c.StructInstances++
		}
	}
	for _, a := range d.activeScripts.All() {
		if a.IsUndefined() {
			c.Threads++
		}
	}
	for _, m := range d.functionMessages {
		if m.IsUndefined() {
			c.Messages++
		}
	}
	return c
}

// CountUnattachedInstances counts script instances bound to no reference.
func (d *Document) CountUnattachedInstances() int {
	n := 0
	for _, si := range d.scriptInstances.All() {
		if si.IsUnattached() {
			n++
		}
	}
	return n
}
