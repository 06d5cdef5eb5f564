package papyrus

import (
	"fmt"

	"papyrus/internal/binio"
	"papyrus/internal/eid"
	"papyrus/internal/game"
	"papyrus/internal/tstring"
)

// Kind identifies the concrete type of an Element.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindScript
	KindStruct
	KindScriptInstance
	KindReference
	KindStructInstance
	KindArray
	KindActiveScript
	KindFunctionMessage
	KindSuspendedStack
)

func (k Kind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindStruct:
		return "struct"
	case KindScriptInstance:
		return "script instance"
	case KindReference:
		return "reference"
	case KindStructInstance:
		return "struct instance"
	case KindArray:
		return "array"
	case KindActiveScript:
		return "active script"
	case KindFunctionMessage:
		return "function message"
	case KindSuspendedStack:
		return "suspended stack"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Element is any record of the section.
type Element interface {
	Kind() Kind
	Size() int
	Write(w *binio.Writer) error
	String() string
}

// Node is an element addressable by identifier.
type Node interface {
	Element
	ID() *eid.EID
}

// Resolver finds the node an identifier refers to.
type Resolver interface {
	FindReferent(id *eid.EID) Node
}

// Graph is the lookup surface records use to reach each other by id or name.
// Records keep ids and names, never owning pointers, and ask the Graph.
type Graph interface {
	Resolver
	FindScript(name *tstring.TString) *Script
	FindStruct(name *tstring.TString) *StructDef
}

// Context carries the per-document tables every record decoder needs.
type Context struct {
	Variant game.Variant
	IDs     *eid.Table
	Strings *tstring.Table
	Graph   Graph
}

func (c *Context) readID(r *binio.Reader) (*eid.EID, error) {
	return c.IDs.Read(r)
}

func (c *Context) readString(r *binio.Reader) (*tstring.TString, error) {
	return c.Strings.ReadRef(r)
}

func (c *Context) findReferent(id *eid.EID) Node {
	if c.Graph == nil || id.IsZero() {
		return nil
	}
	return c.Graph.FindReferent(id)
}

func (c *Context) findScript(name *tstring.TString) *Script {
	if c.Graph == nil || name.IsEmpty() {
		return nil
	}
	return c.Graph.FindScript(name)
}

// readList decodes count records, wrapping the first failure in a ListError.
// The records read before the failure are returned alongside the error.
func readList[T any](r *binio.Reader, what string, count int, read func() (T, error)) ([]T, error) {
	items := make([]T, 0, min(count, r.Remaining()))
	for i := range count {
		item, err := read()
		if err != nil {
			return items, &ListError{What: what, Index: i, Count: count, Partial: item, Err: err}
		}
		items = append(items, item)
	}
	return items, nil
}
