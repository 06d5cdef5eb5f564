package papyrus

import (
	"fmt"

	"papyrus/internal/binio"
	"papyrus/internal/eid"
	"papyrus/internal/tstring"
)

// Array is a homogeneous list of variables referenced by array-typed variables.
type Array struct {
	id       *eid.EID
	elemType VarType
	refType  *tstring.TString
	length   int

	data []*Variable
}

// ReadArray decodes the identity record of an array.
func ReadArray(r *binio.Reader, ctx *Context) (*Array, error) {
	a := &Array{}
	var err error
	if a.id, err = ctx.readID(r); err != nil {
		return a, err
	}
	tag, err := r.U8()
	if err != nil {
		return a, err
	}
	a.elemType = VarType(tag)
	if a.elemType > VarStruct {
		return a, &FormatError{Offset: r.Pos() - 1, Msg: fmt.Sprintf("invalid array element type %d", tag)}
	}
	if a.hasRefType() {
		if a.refType, err = ctx.readString(r); err != nil {
			return a, err
		}
	}
	a.length, err = r.Count32()
	return a, err
}

func (a *Array) hasRefType() bool { return a.elemType == VarRef || a.elemType == VarStruct }

// arrayElements is the data record of an array.
type arrayElements []*Variable

func (e arrayElements) Size() int { return variablesSize(e) }

func (a *Array) Kind() Kind                { return KindArray }
func (a *Array) ID() *eid.EID              { return a.id }
func (a *Array) ElementType() VarType      { return a.elemType }
func (a *Array) RefType() *tstring.TString { return a.refType }
func (a *Array) Len() int                  { return a.length }

// Data returns the elements, or nil before the data pass.
func (a *Array) Data() []*Variable { return a.data }

func (a *Array) Size() int {
	size := a.id.Width() + 1 + 4
	if a.hasRefType() {
		size += a.refType.RefSize()
	}
	return size
}

func (a *Array) Write(w *binio.Writer) error {
	a.id.Write(w)
	w.PutU8(uint8(a.elemType))
	if a.hasRefType() {
		if err := a.refType.Write(w); err != nil {
			return err
		}
	}
	return w.PutLen32(a.length)
}

func (a *Array) dataSize() int { return variablesSize(a.data) }

func (a *Array) writeData(w *binio.Writer) error {
	if len(a.data) != a.length {
		return fmt.Errorf("array %s: have %d elements, header says %d", a.id, len(a.data), a.length)
	}
	return writeVariables(w, a.data)
}

func (a *Array) String() string {
	if a.hasRefType() {
		return fmt.Sprintf("%s<%s>[%d] [%s]", a.elemType, a.refType, a.length, a.id)
	}
	return fmt.Sprintf("%s[%d] [%s]", a.elemType, a.length, a.id)
}
