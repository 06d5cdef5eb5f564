package papyrus

import (
	"fmt"

	"papyrus/internal/binio"
	"papyrus/internal/tstring"
)

// Member is one (name, type) pair of a definition, parameter list or local list.
type Member struct {
	Name *tstring.TString
	Type *tstring.TString
}

func (m Member) String() string {
	return m.Type.String() + " " + m.Name.String()
}

func readMember(r *binio.Reader, ctx *Context) (Member, error) {
	name, err := ctx.readString(r)
	if err != nil {
		return Member{}, err
	}
	typ, err := ctx.readString(r)
	if err != nil {
		return Member{Name: name}, err
	}
	return Member{Name: name, Type: typ}, nil
}

func readMembers(r *binio.Reader, ctx *Context, what string, count int) ([]Member, error) {
	return readList(r, what, count, func() (Member, error) { return readMember(r, ctx) })
}

func membersSize(ms []Member) int {
	size := 0
	for _, m := range ms {
		size += m.Name.RefSize() + m.Type.RefSize()
	}
	return size
}

func writeMembers(w *binio.Writer, ms []Member) error {
	for _, m := range ms {
		if err := m.Name.Write(w); err != nil {
			return err
		}
		if err := m.Type.Write(w); err != nil {
			return err
		}
	}
	return nil
}

// Definition is a script or struct descriptor.
type Definition interface {
	Element
	Name() *tstring.TString
	Members() []Member
	ExtendedMembers() []Member
	InstanceCount() int
	IsUndefined() bool
}

// Script is a script definition. Parent links are resolved by name after
// every script has been read; see ResolveParents.
type Script struct {
	name       *tstring.TString
	parentName *tstring.TString
	members    []Member

	parent   *Script
	cycle    bool
	extended []Member
	cached   bool

	instances int
}

// ReadScript decodes a script definition.
func ReadScript(r *binio.Reader, ctx *Context) (*Script, error) {
	s := &Script{}
	var err error
	if s.name, err = ctx.readString(r); err != nil {
		return s, err
	}
	if s.parentName, err = ctx.readString(r); err != nil {
		return s, err
	}
	count, err := r.Count32()
	if err != nil {
		return s, err
	}
	s.members, err = readMembers(r, ctx, "member", count)
	return s, err
}

func (s *Script) Kind() Kind                   { return KindScript }
func (s *Script) Name() *tstring.TString       { return s.name }
func (s *Script) ParentName() *tstring.TString { return s.parentName }
func (s *Script) Members() []Member            { return s.members }
func (s *Script) InstanceCount() int           { return s.instances }

// Parent returns the resolved parent, or nil.
func (s *Script) Parent() *Script { return s.parent }

// HasParent reports whether the script names a parent.
func (s *Script) HasParent() bool { return !s.parentName.IsEmpty() }

// InCycle reports whether the parent link was dropped to break a cycle.
func (s *Script) InCycle() bool { return s.cycle }

// IsUndefined reports whether the script names a parent that could not be
// resolved, directly or through its ancestors.
func (s *Script) IsUndefined() bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.HasParent() && cur.parent == nil {
			return true
		}
	}
	return false
}

// ExtendedMembers returns the inherited members followed by the script's own.
func (s *Script) ExtendedMembers() []Member {
	if s.cached {
		return s.extended
	}
	var chain []*Script
	for cur := s; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	var out []Member
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i].members...)
	}
	s.extended, s.cached = out, true
	return out
}

func (s *Script) Size() int {
	return s.name.RefSize() + s.parentName.RefSize() + 4 + membersSize(s.members)
}

func (s *Script) Write(w *binio.Writer) error {
	if err := s.name.Write(w); err != nil {
		return err
	}
	if err := s.parentName.Write(w); err != nil {
		return err
	}
	if err := w.PutLen32(len(s.members)); err != nil {
		return err
	}
	return writeMembers(w, s.members)
}

func (s *Script) String() string {
	if s.HasParent() {
		return fmt.Sprintf("%s extends %s", s.name, s.parentName)
	}
	return s.name.String()
}

// ParentProblem describes a script whose parent link is missing after resolution.
type ParentProblem struct {
	Script *Script
	Cycle  bool
}

// ResolveParents links every script to its parent by name and breaks cycles
// by dropping the link that closes one. Scripts whose parent names resolve to
// nothing, or whose link was dropped, are returned.
func ResolveParents(scripts []*Script) []ParentProblem {
	byName := make(map[string]*Script, len(scripts))
	for _, s := range scripts {
		if _, dup := byName[s.name.Key()]; !dup {
			byName[s.name.Key()] = s
		}
	}

	var problems []ParentProblem
	for _, s := range scripts {
		s.parent, s.cycle = nil, false
		s.extended, s.cached = nil, false
		if !s.HasParent() {
			continue
		}
		if p, ok := byName[s.parentName.Key()]; ok {
			s.parent = p
		} else {
			problems = append(problems, ParentProblem{Script: s})
		}
	}

	const (
		unvisited = iota
		onPath
		done
	)
	state := make(map[*Script]int, len(scripts))
	for _, s := range scripts {
		var path []*Script
		cur := s
		for cur != nil && state[cur] == unvisited {
			state[cur] = onPath
			path = append(path, cur)
			cur = cur.parent
		}
		if cur != nil && state[cur] == onPath {
			last := path[len(path)-1]
			last.parent, last.cycle = nil, true
			problems = append(problems, ParentProblem{Script: last, Cycle: true})
		}
		for _, p := range path {
			state[p] = done
		}
	}
	return problems
}

// StructDef is a struct definition.
type StructDef struct {
	name      *tstring.TString
	members   []Member
	instances int
}

// ReadStructDef decodes a struct definition.
func ReadStructDef(r *binio.Reader, ctx *Context) (*StructDef, error) {
	d := &StructDef{}
	var err error
	if d.name, err = ctx.readString(r); err != nil {
		return d, err
	}
	count, err := r.Count32()
	if err != nil {
		return d, err
	}
	d.members, err = readMembers(r, ctx, "member", count)
	return d, err
}

func (d *StructDef) Kind() Kind                { return KindStruct }
func (d *StructDef) Name() *tstring.TString    { return d.name }
func (d *StructDef) Members() []Member         { return d.members }
func (d *StructDef) ExtendedMembers() []Member { return d.members }
func (d *StructDef) InstanceCount() int        { return d.instances }
func (d *StructDef) IsUndefined() bool         { return false }

func (d *StructDef) Size() int {
	return d.name.RefSize() + 4 + membersSize(d.members)
}

func (d *StructDef) Write(w *binio.Writer) error {
	if err := d.name.Write(w); err != nil {
		return err
	}
	if err := w.PutLen32(len(d.members)); err != nil {
		return err
	}
	return writeMembers(w, d.members)
}

func (d *StructDef) String() string { return "struct " + d.name.String() }
