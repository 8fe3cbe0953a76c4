package bytecode

import (
	"strings"
)

// AccessFlags is the access and property bitset of a class, field or method.
type AccessFlags uint16

const (
	AccPublic       AccessFlags = 0x0001
	AccPrivate      AccessFlags = 0x0002
	AccProtected    AccessFlags = 0x0004
	AccStatic       AccessFlags = 0x0008
	AccFinal        AccessFlags = 0x0010
	AccSynchronized AccessFlags = 0x0020
	AccBridge       AccessFlags = 0x0040
	AccVarargs      AccessFlags = 0x0080
	AccNative       AccessFlags = 0x0100
	AccAbstract     AccessFlags = 0x0400
	AccSynthetic    AccessFlags = 0x1000
)

// accessNames lists flags in the order the assembler prints them.
var accessNames = []struct {
	flag AccessFlags
	name string
}{
	{AccPublic, "public"},
	{AccPrivate, "private"},
	{AccProtected, "protected"},
	{AccStatic, "static"},
	{AccFinal, "final"},
	{AccSynchronized, "synchronized"},
	{AccBridge, "bridge"},
	{AccVarargs, "varargs"},
	{AccNative, "native"},
	{AccAbstract, "abstract"},
	{AccSynthetic, "synthetic"},
}

func (f AccessFlags) IsPublic() bool    { return f&AccPublic != 0 }
func (f AccessFlags) IsPrivate() bool   { return f&AccPrivate != 0 }
func (f AccessFlags) IsProtected() bool { return f&AccProtected != 0 }
func (f AccessFlags) IsStatic() bool    { return f&AccStatic != 0 }
func (f AccessFlags) IsFinal() bool     { return f&AccFinal != 0 }
func (f AccessFlags) IsNative() bool    { return f&AccNative != 0 }
func (f AccessFlags) IsAbstract() bool  { return f&AccAbstract != 0 }

// String returns the space-separated flag keywords.
func (f AccessFlags) String() string {
	var parts []string
	for _, a := range accessNames {
		if f&a.flag != 0 {
			parts = append(parts, a.name)
		}
	}
	return strings.Join(parts, " ")
}

// lookupAccess returns the flag for an assembler keyword.
func lookupAccess(word string) (AccessFlags, bool) {
	for _, a := range accessNames {
		if a.name == word {
			return a.flag, true
		}
	}
	return 0, false
}

// AnnotationValue is one element-value pair of an annotation.
type AnnotationValue struct {
	Name  string   `cbor:"1,keyasint"`
	Value Constant `cbor:"2,keyasint"`
}

// Annotation is a runtime-visible or invisible annotation.
type Annotation struct {
	Desc    string            `cbor:"1,keyasint"`
	Visible bool              `cbor:"2,keyasint,omitempty"`
	Values  []AnnotationValue `cbor:"3,keyasint,omitempty"`
}

// ParamAnnotation is an annotation on one method parameter (0-based).
type ParamAnnotation struct {
	Param      int        `cbor:"1,keyasint"`
	Annotation Annotation `cbor:"2,keyasint"`
}

// Method is a method definition together with its body.
type Method struct {
	Access            AccessFlags       `cbor:"1,keyasint"`
	Name              string            `cbor:"2,keyasint"`
	Desc              string            `cbor:"3,keyasint"`
	Signature         string            `cbor:"4,keyasint,omitempty"`
	Exceptions        []string          `cbor:"5,keyasint,omitempty"`
	Annotations       []Annotation      `cbor:"6,keyasint,omitempty"`
	AnnotationDefault *Constant         `cbor:"7,keyasint,omitempty"`
	ParamAnnotations  []ParamAnnotation `cbor:"8,keyasint,omitempty"`
	MaxLocals         int               `cbor:"9,keyasint,omitempty"`
	Code              []Instruction     `cbor:"10,keyasint,omitempty"`
}

// Key identifies a method within its class.
func (m *Method) Key() string {
	return m.Name + m.Desc
}

// Clone returns a deep copy of m.
func (m *Method) Clone() *Method {
	c := *m
	c.Exceptions = append([]string(nil), m.Exceptions...)
	c.Annotations = cloneAnnotations(m.Annotations)
	if m.AnnotationDefault != nil {
		d := *m.AnnotationDefault
		c.AnnotationDefault = &d
	}
	if m.ParamAnnotations != nil {
		c.ParamAnnotations = make([]ParamAnnotation, len(m.ParamAnnotations))
		for i, pa := range m.ParamAnnotations {
			c.ParamAnnotations[i] = ParamAnnotation{Param: pa.Param, Annotation: cloneAnnotation(pa.Annotation)}
		}
	}
	c.Code = CloneCode(m.Code)
	return &c
}

// MaxLocalSlot returns the highest local slot index the body touches,
// counting the second half of long/double values. The receiver slot of an
// instance method and the parameter slots always count as touched.
// Returns -1 for a static method with no parameters and no locals.
func (m *Method) MaxLocalSlot() int {
	max := -1
	if !m.Access.IsStatic() {
		max = 0
	}
	if n, err := ArgumentSlots(m.Desc); err == nil {
		base := 1
		if m.Access.IsStatic() {
			base = 0
		}
		if top := base + n - 1; top > max {
			max = top
		}
	}
	for _, in := range m.Code {
		top := -1
		switch in.Shape() {
		case ShapeVar:
			top = in.Operand
			if in.Op.IsWideLocal() {
				top++
			}
		case ShapeIinc:
			top = in.Operand
		case ShapeLocalVar:
			top = in.Operand + Type(in.Desc).Size() - 1
		}
		if top > max {
			max = top
		}
	}
	return max
}

// CloneCode returns a deep copy of an instruction slice.
func CloneCode(code []Instruction) []Instruction {
	if code == nil {
		return nil
	}
	out := make([]Instruction, len(code))
	for i, in := range code {
		if in.Const != nil {
			c := *in.Const
			in.Const = &c
		}
		out[i] = in
	}
	return out
}

func cloneAnnotations(as []Annotation) []Annotation {
	if as == nil {
		return nil
	}
	out := make([]Annotation, len(as))
	for i, a := range as {
		out[i] = cloneAnnotation(a)
	}
	return out
}

func cloneAnnotation(a Annotation) Annotation {
	a.Values = append([]AnnotationValue(nil), a.Values...)
	return a
}

// Field is a field definition.
type Field struct {
	Access AccessFlags `cbor:"1,keyasint"`
	Name   string      `cbor:"2,keyasint"`
	Desc   string      `cbor:"3,keyasint"`
	Value  *Constant   `cbor:"4,keyasint,omitempty"`
}
