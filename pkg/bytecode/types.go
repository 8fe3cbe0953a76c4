package bytecode

import (
	"fmt"
	"strings"
)

// Type is a field descriptor such as "I", "J", "Ljava/lang/String;" or "[I".
type Type string

// Primitive and well-known reference types.
const (
	Void    Type = "V"
	Boolean Type = "Z"
	Byte    Type = "B"
	Char    Type = "C"
	Short   Type = "S"
	Int     Type = "I"
	Long    Type = "J"
	Float   Type = "F"
	Double  Type = "D"

	ObjectType Type = "Ljava/lang/Object;"
	StringType Type = "Ljava/lang/String;"
	ClassType  Type = "Ljava/lang/Class;"
)

// Well-known internal names.
const (
	ObjectClass = "java/lang/Object"
	StringClass = "java/lang/String"
	ClassClass  = "java/lang/Class"
)

// ReferenceType returns the descriptor for an internal class name.
func ReferenceType(internalName string) Type {
	if strings.HasPrefix(internalName, "[") {
		return Type(internalName)
	}
	return Type("L" + internalName + ";")
}

// Sort returns the leading descriptor character ('L' for classes, '[' for arrays).
func (t Type) Sort() byte {
	if t == "" {
		return 0
	}
	return t[0]
}

// IsPrimitive reports whether t is a primitive (non-void) type.
func (t Type) IsPrimitive() bool {
	switch t {
	case Boolean, Byte, Char, Short, Int, Long, Float, Double:
		return true
	}
	return false
}

// IsReference reports whether t is a class or array type.
func (t Type) IsReference() bool {
	s := t.Sort()
	return s == 'L' || s == '['
}

// IsWide reports whether a value of t occupies two local slots.
func (t Type) IsWide() bool {
	return t == Long || t == Double
}

// Size returns the number of local slots a value of t occupies.
func (t Type) Size() int {
	switch {
	case t == Void:
		return 0
	case t.IsWide():
		return 2
	default:
		return 1
	}
}

// InternalName returns the class name for 'L' types and the descriptor
// itself for arrays, which is how the class file refers to array classes.
func (t Type) InternalName() string {
	if t.Sort() == 'L' {
		return string(t[1 : len(t)-1])
	}
	return string(t)
}

// ClassName returns the dotted source-level name of the type.
func (t Type) ClassName() string {
	switch t {
	case Void:
		return "void"
	case Boolean:
		return "boolean"
	case Byte:
		return "byte"
	case Char:
		return "char"
	case Short:
		return "short"
	case Int:
		return "int"
	case Long:
		return "long"
	case Float:
		return "float"
	case Double:
		return "double"
	}
	return strings.ReplaceAll(t.InternalName(), "/", ".")
}

// LoadOp returns the local load opcode for t.
func (t Type) LoadOp() Opcode {
	switch t {
	case Boolean, Byte, Char, Short, Int:
		return OpIload
	case Long:
		return OpLload
	case Float:
		return OpFload
	case Double:
		return OpDload
	}
	return OpAload
}

// StoreOp returns the local store opcode for t.
func (t Type) StoreOp() Opcode {
	switch t {
	case Boolean, Byte, Char, Short, Int:
		return OpIstore
	case Long:
		return OpLstore
	case Float:
		return OpFstore
	case Double:
		return OpDstore
	}
	return OpAstore
}

// ReturnOp returns the return opcode for t.
func (t Type) ReturnOp() Opcode {
	switch t {
	case Void:
		return OpReturn
	case Boolean, Byte, Char, Short, Int:
		return OpIreturn
	case Long:
		return OpLreturn
	case Float:
		return OpFreturn
	case Double:
		return OpDreturn
	}
	return OpAreturn
}

// ParseType parses a single field descriptor.
func ParseType(desc string) (Type, error) {
	t, n, err := scanType(desc, 0, false)
	if err != nil {
		return "", err
	}
	if n != len(desc) {
		return "", fmt.Errorf("invalid type descriptor %q: trailing characters", desc)
	}
	return t, nil
}

// ParseMethodType splits a method descriptor into its parameter and return types.
func ParseMethodType(desc string) ([]Type, Type, error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", fmt.Errorf("invalid method descriptor %q: missing '('", desc)
	}
	var params []Type
	pos := 1
	for {
		if pos >= len(desc) {
			return nil, "", fmt.Errorf("invalid method descriptor %q: missing ')'", desc)
		}
		if desc[pos] == ')' {
			pos++
			break
		}
		t, next, err := scanType(desc, pos, false)
		if err != nil {
			return nil, "", fmt.Errorf("invalid method descriptor %q: %w", desc, err)
		}
		params = append(params, t)
		pos = next
	}
	ret, next, err := scanType(desc, pos, true)
	if err != nil {
		return nil, "", fmt.Errorf("invalid method descriptor %q: %w", desc, err)
	}
	if next != len(desc) {
		return nil, "", fmt.Errorf("invalid method descriptor %q: trailing characters", desc)
	}
	return params, ret, nil
}

// MethodDesc builds a method descriptor from its parts.
func MethodDesc(params []Type, ret Type) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range params {
		sb.WriteString(string(p))
	}
	sb.WriteByte(')')
	sb.WriteString(string(ret))
	return sb.String()
}

// ArgumentSlots returns the total slot width of the parameters of desc.
func ArgumentSlots(desc string) (int, error) {
	params, _, err := ParseMethodType(desc)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range params {
		n += p.Size()
	}
	return n, nil
}

func scanType(desc string, pos int, allowVoid bool) (Type, int, error) {
	if pos >= len(desc) {
		return "", pos, fmt.Errorf("unexpected end of descriptor at %d", pos)
	}
	switch c := desc[pos]; c {
	case 'V':
		if !allowVoid {
			return "", pos, fmt.Errorf("void not allowed at %d", pos)
		}
		return Void, pos + 1, nil
	case 'Z', 'B', 'C', 'S', 'I', 'J', 'F', 'D':
		return Type(desc[pos : pos+1]), pos + 1, nil
	case 'L':
		end := strings.IndexByte(desc[pos:], ';')
		if end <= 1 {
			return "", pos, fmt.Errorf("unterminated class type at %d", pos)
		}
		return Type(desc[pos : pos+end+1]), pos + end + 1, nil
	case '[':
		start := pos
		for pos < len(desc) && desc[pos] == '[' {
			pos++
		}
		_, next, err := scanType(desc, pos, false)
		if err != nil {
			return "", pos, err
		}
		return Type(desc[start:next]), next, nil
	default:
		return "", pos, fmt.Errorf("unexpected %q at %d", c, pos)
	}
}
