package bytecode

import (
	"fmt"
	"strconv"
	"sync/atomic"
)

// Value is a runtime value in the VM:
//
//	nil                     null reference
//	int32                   int, boolean, byte, char, short
//	int64                   long
//	float32                 float
//	float64                 double
//	string                  java/lang/String instance
//	*Object                 any other object, including boxed primitives
//	*Array                  reference array
//	*ClassRef               java/lang/Class token
type Value interface{}

var objectIDs uint64

// Object is a heap object. Fields not yet written read as the zero value of
// their descriptor.
type Object struct {
	Class  string
	Fields map[string]Value
	id     uint64
}

// NewObject allocates an object of the given class without running a
// constructor.
func NewObject(class string) *Object {
	return &Object{
		Class:  class,
		Fields: make(map[string]Value),
		id:     atomic.AddUint64(&objectIDs, 1),
	}
}

// Array is a reference array.
type Array struct {
	Elem Type
	Data []Value
}

// ClassRef is a runtime type token.
type ClassRef struct {
	Type Type
}

// Name returns the dotted name as Class.getName reports it.
func (c *ClassRef) Name() string {
	if c.Type.Sort() == '[' {
		return string(c.Type)
	}
	return c.Type.ClassName()
}

// ThrowError carries a thrown object out of the VM when no handler in the
// call chain catches it.
type ThrowError struct {
	Exception *Object
}

func (e *ThrowError) Error() string {
	if msg, ok := e.Exception.Fields["message"].(string); ok {
		return fmt.Sprintf("uncaught %s: %s", e.Exception.Class, msg)
	}
	return fmt.Sprintf("uncaught %s", e.Exception.Class)
}

// IsThrow reports whether err is an uncaught VM exception and returns its class.
func IsThrow(err error) (string, bool) {
	if te, ok := err.(*ThrowError); ok {
		return te.Exception.Class, true
	}
	return "", false
}

// wrapper describes the box class of a primitive type.
type wrapper struct {
	class  string
	unbox  string
	prim   Type
	boxed  Type
	parent string
}

var wrappers = map[Type]wrapper{
	Boolean: {"java/lang/Boolean", "booleanValue", Boolean, "Ljava/lang/Boolean;", ObjectClass},
	Byte:    {"java/lang/Byte", "byteValue", Byte, "Ljava/lang/Byte;", "java/lang/Number"},
	Char:    {"java/lang/Character", "charValue", Char, "Ljava/lang/Character;", ObjectClass},
	Short:   {"java/lang/Short", "shortValue", Short, "Ljava/lang/Short;", "java/lang/Number"},
	Int:     {"java/lang/Integer", "intValue", Int, "Ljava/lang/Integer;", "java/lang/Number"},
	Long:    {"java/lang/Long", "longValue", Long, "Ljava/lang/Long;", "java/lang/Number"},
	Float:   {"java/lang/Float", "floatValue", Float, "Ljava/lang/Float;", "java/lang/Number"},
	Double:  {"java/lang/Double", "doubleValue", Double, "Ljava/lang/Double;", "java/lang/Number"},
}

// BoxClass returns the wrapper class internal name for a primitive type
// and the name of its unboxing method.
func BoxClass(t Type) (class, unbox string, ok bool) {
	w, ok := wrappers[t]
	return w.class, w.unbox, ok
}

// zeroValue returns the default value of a field or array element.
func zeroValue(t Type) Value {
	switch t {
	case Boolean, Byte, Char, Short, Int:
		return int32(0)
	case Long:
		return int64(0)
	case Float:
		return float32(0)
	case Double:
		return float64(0)
	}
	return nil
}

// isWideValue reports whether v is a category 2 value on the operand stack.
func isWideValue(v Value) bool {
	switch v.(type) {
	case int64, float64:
		return true
	}
	return false
}

// Box converts a Go value to the VM representation of a boxed primitive.
func Box(t Type, v Value) *Object {
	w, ok := wrappers[t]
	if !ok {
		return nil
	}
	o := NewObject(w.class)
	o.Fields["value"] = v
	return o
}

// ToString renders a value the way String.valueOf would.
func ToString(v Value) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case *ClassRef:
		if x.Type.IsPrimitive() || x.Type == Void {
			return x.Name()
		}
		return "class " + x.Name()
	case *Array:
		return fmt.Sprintf("[%s@%p", x.Elem, x)
	case *Object:
		switch x.Class {
		case "java/lang/Boolean":
			if b, _ := x.Fields["value"].(int32); b != 0 {
				return "true"
			}
			return "false"
		case "java/lang/Character":
			c, _ := x.Fields["value"].(int32)
			return string(rune(c))
		case "java/lang/StringBuilder":
			s, _ := x.Fields["value"].(string)
			return s
		}
		if _, ok := x.Fields["value"]; ok && isWrapperClass(x.Class) {
			return ToString(x.Fields["value"])
		}
		return fmt.Sprintf("%s@%x", Type("L"+x.Class+";").ClassName(), x.id)
	}
	return fmt.Sprintf("%v", v)
}

func isWrapperClass(class string) bool {
	for _, w := range wrappers {
		if w.class == class {
			return true
		}
	}
	return false
}
