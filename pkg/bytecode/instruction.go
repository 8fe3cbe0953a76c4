package bytecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Label names a position in an instruction stream. Labels are local to a
// method body.
type Label string

// ConstKind identifies the kind of a loadable constant.
type ConstKind uint8

const (
	ConstInt ConstKind = iota + 1
	ConstLong
	ConstFloat
	ConstDouble
	ConstString
	ConstType
)

// Constant is a value loadable with ldc, or an annotation value.
type Constant struct {
	Kind  ConstKind `cbor:"1,keyasint"`
	Int   int64     `cbor:"2,keyasint,omitempty"`
	Float float64   `cbor:"3,keyasint,omitempty"`
	Str   string    `cbor:"4,keyasint,omitempty"` // string value or type descriptor
}

// IntConst returns an int constant.
func IntConst(v int32) Constant { return Constant{Kind: ConstInt, Int: int64(v)} }

// LongConst returns a long constant.
func LongConst(v int64) Constant { return Constant{Kind: ConstLong, Int: v} }

// FloatConst returns a float constant.
func FloatConst(v float32) Constant { return Constant{Kind: ConstFloat, Float: float64(v)} }

// DoubleConst returns a double constant.
func DoubleConst(v float64) Constant { return Constant{Kind: ConstDouble, Float: v} }

// StringConst returns a string constant.
func StringConst(s string) Constant { return Constant{Kind: ConstString, Str: s} }

// TypeConst returns a class literal constant.
func TypeConst(t Type) Constant { return Constant{Kind: ConstType, Str: string(t)} }

// String renders the constant in assembler syntax.
func (c Constant) String() string {
	switch c.Kind {
	case ConstInt:
		return strconv.FormatInt(c.Int, 10)
	case ConstLong:
		return strconv.FormatInt(c.Int, 10) + "L"
	case ConstFloat:
		return strconv.FormatFloat(c.Float, 'g', -1, 32) + "F"
	case ConstDouble:
		return strconv.FormatFloat(c.Float, 'g', -1, 64) + "D"
	case ConstString:
		return strconv.Quote(c.Str)
	case ConstType:
		return c.Str
	default:
		return fmt.Sprintf("<const kind %d>", c.Kind)
	}
}

// ParseConstant parses the assembler form produced by Constant.String.
func ParseConstant(tok string) (Constant, error) {
	if tok == "" {
		return Constant{}, fmt.Errorf("empty constant")
	}
	switch tok[0] {
	case '"':
		s, err := strconv.Unquote(tok)
		if err != nil {
			return Constant{}, fmt.Errorf("invalid string constant %s: %w", tok, err)
		}
		return StringConst(s), nil
	case 'L', '[':
		t, err := ParseType(tok)
		if err != nil {
			return Constant{}, err
		}
		return TypeConst(t), nil
	}

	body, suffix := tok, byte(0)
	switch last := tok[len(tok)-1]; last {
	case 'L', 'F', 'D':
		body, suffix = tok[:len(tok)-1], last
	}
	switch suffix {
	case 'L':
		v, err := strconv.ParseInt(body, 10, 64)
		if err != nil {
			return Constant{}, fmt.Errorf("invalid long constant %s: %w", tok, err)
		}
		return LongConst(v), nil
	case 'F':
		v, err := strconv.ParseFloat(body, 32)
		if err != nil {
			return Constant{}, fmt.Errorf("invalid float constant %s: %w", tok, err)
		}
		return FloatConst(float32(v)), nil
	case 'D':
		v, err := strconv.ParseFloat(body, 64)
		if err != nil {
			return Constant{}, fmt.Errorf("invalid double constant %s: %w", tok, err)
		}
		return DoubleConst(v), nil
	}
	v, err := strconv.ParseInt(body, 10, 32)
	if err != nil {
		return Constant{}, fmt.Errorf("invalid int constant %s: %w", tok, err)
	}
	return IntConst(int32(v)), nil
}

// Instruction is one element of a method body. Which fields are meaningful
// depends on Op.Shape():
//
//	ShapeInsn      -
//	ShapeInt       Operand (value)
//	ShapeVar       Operand (slot)
//	ShapeIinc      Operand (slot), Delta
//	ShapeType      Desc (internal name)
//	ShapeField     Owner, Name, Desc
//	ShapeMethod    Owner, Name, Desc, Interface
//	ShapeLdc       Const
//	ShapeJump      Label (target)
//	ShapeLabel     Label
//	ShapeLine      Operand (line), Label (start)
//	ShapeTryCatch  Label (start), End, Handler, Desc (exception type, "" = any)
//	ShapeLocalVar  Operand (slot), Name, Desc, Label (start), End
type Instruction struct {
	Op        Opcode    `cbor:"1,keyasint"`
	Operand   int       `cbor:"2,keyasint,omitempty"`
	Delta     int       `cbor:"3,keyasint,omitempty"`
	Owner     string    `cbor:"4,keyasint,omitempty"`
	Name      string    `cbor:"5,keyasint,omitempty"`
	Desc      string    `cbor:"6,keyasint,omitempty"`
	Const     *Constant `cbor:"7,keyasint,omitempty"`
	Label     Label     `cbor:"8,keyasint,omitempty"`
	End       Label     `cbor:"9,keyasint,omitempty"`
	Handler   Label     `cbor:"10,keyasint,omitempty"`
	Interface bool      `cbor:"11,keyasint,omitempty"`
}

// Insn returns a zero-operand instruction.
func Insn(op Opcode) Instruction { return Instruction{Op: op} }

// IntInsn returns a bipush/sipush instruction.
func IntInsn(op Opcode, v int) Instruction { return Instruction{Op: op, Operand: v} }

// VarInsn returns a local load or store.
func VarInsn(op Opcode, slot int) Instruction { return Instruction{Op: op, Operand: slot} }

// IincInsn returns an iinc instruction.
func IincInsn(slot, delta int) Instruction {
	return Instruction{Op: OpIinc, Operand: slot, Delta: delta}
}

// TypeInsn returns new/anewarray/checkcast/instanceof on an internal name.
func TypeInsn(op Opcode, internalName string) Instruction {
	return Instruction{Op: op, Desc: internalName}
}

// FieldInsn returns a field access.
func FieldInsn(op Opcode, owner, name, desc string) Instruction {
	return Instruction{Op: op, Owner: owner, Name: name, Desc: desc}
}

// MethodInsn returns a call. Interface is set for invokeinterface.
func MethodInsn(op Opcode, owner, name, desc string) Instruction {
	return Instruction{Op: op, Owner: owner, Name: name, Desc: desc, Interface: op == OpInvokeinterface}
}

// LdcInsn returns an ldc of c.
func LdcInsn(c Constant) Instruction { return Instruction{Op: OpLdc, Const: &c} }

// JumpInsn returns a branch to l.
func JumpInsn(op Opcode, l Label) Instruction { return Instruction{Op: op, Label: l} }

// LabelInsn marks the position of l.
func LabelInsn(l Label) Instruction { return Instruction{Op: OpLabel, Label: l} }

// LineInsn returns a line number entry starting at l.
func LineInsn(line int, l Label) Instruction {
	return Instruction{Op: OpLine, Operand: line, Label: l}
}

// TryCatchInsn returns an exception table entry. An empty exceptionType
// catches everything.
func TryCatchInsn(start, end, handler Label, exceptionType string) Instruction {
	return Instruction{Op: OpTryCatch, Label: start, End: end, Handler: handler, Desc: exceptionType}
}

// LocalVarInsn returns a local variable debug entry.
func LocalVarInsn(name, desc string, slot int, start, end Label) Instruction {
	return Instruction{Op: OpLocalVar, Name: name, Desc: desc, Operand: slot, Label: start, End: end}
}

// Shape returns the operand layout of the instruction.
func (in Instruction) Shape() Shape {
	return in.Op.Shape()
}

// IntValue returns the pushed value if the instruction pushes a constant
// int (iconst_*, bipush, sipush or ldc of an int).
func (in Instruction) IntValue() (int, bool) {
	switch {
	case in.Op >= OpIconstM1 && in.Op <= OpIconst5:
		return int(in.Op) - int(OpIconst0), true
	case in.Op == OpBipush || in.Op == OpSipush:
		return in.Operand, true
	case in.Op == OpLdc && in.Const != nil && in.Const.Kind == ConstInt:
		return int(in.Const.Int), true
	}
	return 0, false
}

// String renders the instruction in assembler syntax.
func (in Instruction) String() string {
	name := in.Op.String()
	switch in.Shape() {
	case ShapeInsn:
		return name
	case ShapeInt, ShapeVar:
		return fmt.Sprintf("%s %d", name, in.Operand)
	case ShapeIinc:
		return fmt.Sprintf("%s %d %d", name, in.Operand, in.Delta)
	case ShapeType:
		return fmt.Sprintf("%s %s", name, in.Desc)
	case ShapeField:
		return fmt.Sprintf("%s %s.%s %s", name, in.Owner, in.Name, in.Desc)
	case ShapeMethod:
		return fmt.Sprintf("%s %s.%s%s", name, in.Owner, in.Name, in.Desc)
	case ShapeLdc:
		if in.Const == nil {
			return name + " <nil>"
		}
		return fmt.Sprintf("%s %s", name, in.Const.String())
	case ShapeJump:
		return fmt.Sprintf("%s %s", name, in.Label)
	case ShapeLabel:
		return string(in.Label) + ":"
	case ShapeLine:
		if in.Label == "" {
			return fmt.Sprintf("%s %d", name, in.Operand)
		}
		return fmt.Sprintf("%s %d %s", name, in.Operand, in.Label)
	case ShapeTryCatch:
		typ := in.Desc
		if typ == "" {
			typ = "any"
		}
		return fmt.Sprintf("%s %s %s %s %s", name, typ, in.Label, in.End, in.Handler)
	case ShapeLocalVar:
		return fmt.Sprintf("%s %d %s %s %s %s", name, in.Operand, in.Name, in.Desc, in.Label, in.End)
	}
	return name
}

// ConstInsn returns the shortest instruction that pushes the int v.
func ConstInsn(v int) Instruction {
	switch {
	case v >= -1 && v <= 5:
		return Insn(Opcode(int(OpIconst0) + v))
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return IntInsn(OpBipush, v)
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return IntInsn(OpSipush, v)
	default:
		return LdcInsn(IntConst(int32(v)))
	}
}

// FormatInstructions renders a body one instruction per line.
func FormatInstructions(code []Instruction) string {
	var sb strings.Builder
	for _, in := range code {
		if in.Op != OpLabel {
			sb.WriteString("  ")
		}
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
