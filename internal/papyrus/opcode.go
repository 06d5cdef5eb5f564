package papyrus

import (
	"fmt"
	"math"

	"papyrus/internal/binio"
	"papyrus/internal/tstring"
)

// OpCode is a papyrus bytecode instruction number. Instructions are kept as
// opaque records: they are decoded only far enough to be re-encoded.
type OpCode uint8

const (
	OpNop OpCode = iota
	OpIAdd
	OpFAdd
	OpISub
	OpFSub
	OpIMul
	OpFMul
	OpIDiv
	OpFDiv
	OpIMod
	OpNot
	OpINeg
	OpFNeg
	OpAssign
	OpCast
	OpCmpEq
	OpCmpLt
	OpCmpLte
	OpCmpGt
	OpCmpGte
	OpJmp
	OpJmpT
	OpJmpF
	OpCallMethod
	OpCallParent
	OpCallStatic
	OpReturn
	OpStrCat
	OpPropGet
	OpPropSet
	OpArrayCreate
	OpArrayLength
	OpArrayGetElement
	OpArraySetElement
	OpArrayFindElement
	OpArrayRFindElement
	OpIs
	OpStructCreate
	OpStructGet
	OpStructSet
	OpArrayFindStruct
	OpArrayRFindStruct
	OpArrayAdd
	OpArrayInsert
	OpArrayRemoveLast
	OpArrayRemove
	OpArrayClear

	opCount
)

var opInfo = [opCount]struct {
	name    string
	args    int
	varArgs bool
}{
	OpNop:               {"NOP", 0, false},
	OpIAdd:              {"IADD", 3, false},
	OpFAdd:              {"FADD", 3, false},
	OpISub:              {"ISUB", 3, false},
	OpFSub:              {"FSUB", 3, false},
	OpIMul:              {"IMUL", 3, false},
	OpFMul:              {"FMUL", 3, false},
	OpIDiv:              {"IDIV", 3, false},
	OpFDiv:              {"FDIV", 3, false},
	OpIMod:              {"IMOD", 3, false},
	OpNot:               {"NOT", 2, false},
	OpINeg:              {"INEG", 2, false},
	OpFNeg:              {"FNEG", 2, false},
	OpAssign:            {"ASSIGN", 2, false},
	OpCast:              {"CAST", 2, false},
	OpCmpEq:             {"CMP_EQ", 3, false},
	OpCmpLt:             {"CMP_LT", 3, false},
	OpCmpLte:            {"CMP_LTE", 3, false},
	OpCmpGt:             {"CMP_GT", 3, false},
	OpCmpGte:            {"CMP_GTE", 3, false},
	OpJmp:               {"JMP", 1, false},
	OpJmpT:              {"JMPT", 2, false},
	OpJmpF:              {"JMPF", 2, false},
	OpCallMethod:        {"CALLMETHOD", 3, true},
	OpCallParent:        {"CALLPARENT", 2, true},
	OpCallStatic:        {"CALLSTATIC", 3, true},
	OpReturn:            {"RETURN", 1, false},
	OpStrCat:            {"STRCAT", 3, false},
	OpPropGet:           {"PROPGET", 3, false},
	OpPropSet:           {"PROPSET", 3, false},
	OpArrayCreate:       {"ARRAY_CREATE", 2, false},
	OpArrayLength:       {"ARRAY_LENGTH", 2, false},
	OpArrayGetElement:   {"ARRAY_GETELEMENT", 3, false},
	OpArraySetElement:   {"ARRAY_SETELEMENT", 3, false},
	OpArrayFindElement:  {"ARRAY_FINDELEMENT", 4, false},
	OpArrayRFindElement: {"ARRAY_RFINDELEMENT", 4, false},
	OpIs:                {"IS", 3, false},
	OpStructCreate:      {"STRUCT_CREATE", 1, false},
	OpStructGet:         {"STRUCT_GET", 3, false},
	OpStructSet:         {"STRUCT_SET", 3, false},
	OpArrayFindStruct:   {"ARRAY_FINDSTRUCT", 5, false},
	OpArrayRFindStruct:  {"ARRAY_RFINDSTRUCT", 5, false},
	OpArrayAdd:          {"ARRAY_ADD", 3, false},
	OpArrayInsert:       {"ARRAY_INSERT", 3, false},
	OpArrayRemoveLast:   {"ARRAY_REMOVELAST", 1, false},
	OpArrayRemove:       {"ARRAY_REMOVE", 3, false},
	OpArrayClear:        {"ARRAY_CLEAR", 1, false},
}

func (c OpCode) String() string {
	if c < opCount {
		return opInfo[c].name
	}
	return fmt.Sprintf("OpCode(%d)", uint8(c))
}

// Args returns the fixed argument count; call instructions take more.
func (c OpCode) Args() int {
	if c < opCount {
		return opInfo[c].args
	}
	return 0
}

// ParamType is the tag of an instruction argument.
type ParamType uint8

const (
	ParamNull    ParamType = 0
	ParamIdent   ParamType = 1
	ParamString  ParamType = 2
	ParamInt     ParamType = 3
	ParamFloat   ParamType = 4
	ParamBool    ParamType = 5
	ParamUnknown ParamType = 8
)

func (t ParamType) String() string {
	switch t {
	case ParamNull:
		return "null"
	case ParamIdent:
		return "ident"
	case ParamString:
		return "string"
	case ParamInt:
		return "int"
	case ParamFloat:
		return "float"
	case ParamBool:
		return "bool"
	case ParamUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("ParamType(%d)", uint8(t))
	}
}

// Parameter is one instruction argument.
type Parameter struct {
	Type ParamType
	Str  *tstring.TString
	raw  uint32
}

// IntParam builds an int argument.
func IntParam(v int32) Parameter { return Parameter{Type: ParamInt, raw: uint32(v)} } //nolint:gosec // bit reinterpretation

func (p Parameter) Int() int32     { return int32(p.raw) } //nolint:gosec // bit reinterpretation
func (p Parameter) Float() float32 { return math.Float32frombits(p.raw) }
func (p Parameter) Bool() bool     { return p.raw != 0 }

func readParameter(r *binio.Reader, ctx *Context) (Parameter, error) {
	tag, err := r.U8()
	if err != nil {
		return Parameter{}, err
	}
	p := Parameter{Type: ParamType(tag)}
	switch p.Type {
	case ParamNull:
	case ParamIdent, ParamString, ParamUnknown:
		p.Str, err = ctx.readString(r)
	case ParamInt, ParamFloat:
		p.raw, err = r.U32()
	case ParamBool:
		var b uint8
		b, err = r.U8()
		p.raw = uint32(b)
	default:
		return p, &FormatError{Offset: r.Pos() - 1, Msg: fmt.Sprintf("invalid parameter type %d", tag)}
	}
	return p, err
}

func (p Parameter) Size() int {
	switch p.Type {
	case ParamIdent, ParamString, ParamUnknown:
		return 1 + p.Str.RefSize()
	case ParamInt, ParamFloat:
		return 5
	case ParamBool:
		return 2
	default:
		return 1
	}
}

func (p Parameter) Write(w *binio.Writer) error {
	w.PutU8(uint8(p.Type))
	switch p.Type {
	case ParamIdent, ParamString, ParamUnknown:
		return p.Str.Write(w)
	case ParamInt, ParamFloat:
		w.PutU32(p.raw)
	case ParamBool:
		w.PutU8(uint8(p.raw)) //nolint:gosec // read from one byte
	}
	return nil
}

func (p Parameter) String() string {
	switch p.Type {
	case ParamNull:
		return "none"
	case ParamIdent:
		return p.Str.String()
	case ParamString:
		return fmt.Sprintf("%q", p.Str.String())
	case ParamInt:
		return fmt.Sprintf("%d", p.Int())
	case ParamFloat:
		return fmt.Sprintf("%g", p.Float())
	case ParamBool:
		return fmt.Sprintf("%t", p.Bool())
	default:
		return "?" + p.Str.String()
	}
}

// Opcode is one instruction with its arguments. For call instructions Params
// holds the fixed arguments, the extra-argument count and the extra arguments.
type Opcode struct {
	Code   OpCode
	Params []Parameter
}

// NOP is the shared instruction every zeroed slot points at.
var NOP = &Opcode{Code: OpNop}

// ReadOpcode decodes one instruction.
func ReadOpcode(r *binio.Reader, ctx *Context) (*Opcode, error) {
	code, err := r.U8()
	if err != nil {
		return nil, err
	}
	op := &Opcode{Code: OpCode(code)}
	if op.Code >= opCount {
		return op, &FormatError{Offset: r.Pos() - 1, Msg: fmt.Sprintf("invalid opcode %d", code)}
	}
	info := opInfo[op.Code]
	op.Params = make([]Parameter, 0, info.args)
	for range info.args {
		p, err := readParameter(r, ctx)
		if err != nil {
			return op, err
		}
		op.Params = append(op.Params, p)
	}
	if !info.varArgs {
		return op, nil
	}

	n, err := readParameter(r, ctx)
	if err != nil {
		return op, err
	}
	if n.Type != ParamInt || n.Int() < 0 {
		return op, r.Errorf("%s: extra argument count must be a non-negative int, got %s", op.Code, n.Type)
	}
	op.Params = append(op.Params, n)
	for range int(n.Int()) {
		p, err := readParameter(r, ctx)
		if err != nil {
			return op, err
		}
		op.Params = append(op.Params, p)
	}
	return op, nil
}

// IsNop reports whether the instruction does nothing.
func (op *Opcode) IsNop() bool { return op.Code == OpNop }

func (op *Opcode) Size() int {
	size := 1
	for _, p := range op.Params {
		size += p.Size()
	}
	return size
}

func (op *Opcode) Write(w *binio.Writer) error {
	w.PutU8(uint8(op.Code))
	for _, p := range op.Params {
		if err := p.Write(w); err != nil {
			return err
		}
	}
	return nil
}

func (op *Opcode) String() string {
	s := op.Code.String()
	for i, p := range op.Params {
		if i == 0 {
			s += " "
		} else {
			s += ", "
		}
		s += p.String()
	}
	return s
}
