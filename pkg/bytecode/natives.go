package bytecode

import (
	"fmt"
	"strings"
)

// builtinSupers is the superclass table for classes the VM provides
// natively.
var builtinSupers = map[string]string{
	ObjectClass:                                "",
	StringClass:                                ObjectClass,
	ClassClass:                                 ObjectClass,
	"java/lang/Number":                         ObjectClass,
	"java/lang/StringBuilder":                  ObjectClass,
	"java/io/PrintStream":                      ObjectClass,
	"java/lang/Throwable":                      ObjectClass,
	"java/lang/Exception":                      "java/lang/Throwable",
	"java/lang/Error":                          "java/lang/Throwable",
	"java/lang/RuntimeException":               "java/lang/Exception",
	"java/lang/IllegalArgumentException":       "java/lang/RuntimeException",
	"java/lang/IllegalStateException":          "java/lang/RuntimeException",
	"java/lang/NullPointerException":           "java/lang/RuntimeException",
	"java/lang/ArithmeticException":            "java/lang/RuntimeException",
	"java/lang/ClassCastException":             "java/lang/RuntimeException",
	"java/lang/NegativeArraySizeException":     "java/lang/RuntimeException",
	"java/lang/ArrayIndexOutOfBoundsException": "java/lang/RuntimeException",
	"java/lang/UnsupportedOperationException":  "java/lang/RuntimeException",
	"java/lang/NoSuchMethodError":              "java/lang/Error",
	"java/lang/StackOverflowError":             "java/lang/Error",
}

var throwableClasses = []string{
	"java/lang/Throwable",
	"java/lang/Exception",
	"java/lang/Error",
	"java/lang/RuntimeException",
	"java/lang/IllegalArgumentException",
	"java/lang/IllegalStateException",
	"java/lang/NullPointerException",
	"java/lang/ArithmeticException",
	"java/lang/ClassCastException",
	"java/lang/UnsupportedOperationException",
}

func init() {
	for _, w := range wrappers {
		builtinSupers[w.class] = w.parent
	}
}

func registerBuiltins(vm *VM) {
	vm.RegisterNative(ObjectClass, "<init>", "()V", func(vm *VM, args []Value) (Value, error) {
		return nil, nil
	})
	vm.RegisterNative(ObjectClass, "toString", "()Ljava/lang/String;", func(vm *VM, args []Value) (Value, error) {
		return ToString(args[0]), nil
	})
	vm.RegisterNative(ObjectClass, "equals", "(Ljava/lang/Object;)Z", func(vm *VM, args []Value) (Value, error) {
		return boolValue(valuesEqual(args[0], args[1])), nil
	})
	vm.RegisterNative(ObjectClass, "getClass", "()Ljava/lang/Class;", func(vm *VM, args []Value) (Value, error) {
		if s, ok := args[0].(*Array); ok {
			return &ClassRef{Type: "[" + s.Elem}, nil
		}
		return &ClassRef{Type: ReferenceType(vm.runtimeClass(args[0]))}, nil
	})

	registerWrappers(vm)
	registerStrings(vm)
	registerThrowables(vm)

	vm.RegisterNative(ClassClass, "getName", "()Ljava/lang/String;", func(vm *VM, args []Value) (Value, error) {
		return args[0].(*ClassRef).Name(), nil
	})
	vm.RegisterNative(ClassClass, "isPrimitive", "()Z", func(vm *VM, args []Value) (Value, error) {
		t := args[0].(*ClassRef).Type
		return boolValue(t.IsPrimitive() || t == Void), nil
	})

	out := NewObject("java/io/PrintStream")
	vm.statics["java/lang/System.out"] = out
	for _, desc := range []string{"(Ljava/lang/String;)V", "(Ljava/lang/Object;)V", "(I)V", "(J)V", "(Z)V"} {
		desc := desc
		vm.RegisterNative("java/io/PrintStream", "println", desc, func(vm *VM, args []Value) (Value, error) {
			v := args[1]
			if desc == "(Z)V" {
				v = boolString(v)
			}
			_, err := fmt.Fprintln(vm.Stdout, ToString(v))
			return nil, err
		})
	}
}

func registerWrappers(vm *VM) {
	for prim, w := range wrappers {
		w := w
		vm.statics[w.class+".TYPE"] = &ClassRef{Type: prim}
		vm.RegisterNative(w.class, "valueOf", "("+string(prim)+")"+string(w.boxed), func(vm *VM, args []Value) (Value, error) {
			return Box(w.prim, args[0]), nil
		})
		vm.RegisterNative(w.class, "<init>", "("+string(prim)+")V", func(vm *VM, args []Value) (Value, error) {
			args[0].(*Object).Fields["value"] = args[1]
			return nil, nil
		})
		vm.RegisterNative(w.class, w.unbox, "()"+string(prim), func(vm *VM, args []Value) (Value, error) {
			v, ok := args[0].(*Object).Fields["value"]
			if !ok {
				return zeroValue(w.prim), nil
			}
			return v, nil
		})
		vm.RegisterNative(w.class, "equals", "(Ljava/lang/Object;)Z", func(vm *VM, args []Value) (Value, error) {
			return boolValue(valuesEqual(args[0], args[1])), nil
		})
	}
	vm.statics["java/lang/Void.TYPE"] = &ClassRef{Type: Void}
}

func registerStrings(vm *VM) {
	str := func(name, desc string, fn func(s string, args []Value) Value) {
		vm.RegisterNative(StringClass, name, desc, func(vm *VM, args []Value) (Value, error) {
			return fn(args[0].(string), args[1:]), nil
		})
	}
	str("toUpperCase", "()Ljava/lang/String;", func(s string, _ []Value) Value { return strings.ToUpper(s) })
	str("toLowerCase", "()Ljava/lang/String;", func(s string, _ []Value) Value { return strings.ToLower(s) })
	str("trim", "()Ljava/lang/String;", func(s string, _ []Value) Value { return strings.TrimSpace(s) })
	str("length", "()I", func(s string, _ []Value) Value { return int32(len([]rune(s))) })
	str("isEmpty", "()Z", func(s string, _ []Value) Value { return boolValue(s == "") })
	str("toString", "()Ljava/lang/String;", func(s string, _ []Value) Value { return s })
	str("concat", "(Ljava/lang/String;)Ljava/lang/String;", func(s string, a []Value) Value {
		return s + ToString(a[0])
	})
	str("equals", "(Ljava/lang/Object;)Z", func(s string, a []Value) Value {
		o, ok := a[0].(string)
		return boolValue(ok && o == s)
	})
	vm.RegisterNative(StringClass, "valueOf", "(Ljava/lang/Object;)Ljava/lang/String;", func(vm *VM, args []Value) (Value, error) {
		return ToString(args[0]), nil
	})
	vm.RegisterNative(StringClass, "valueOf", "(I)Ljava/lang/String;", func(vm *VM, args []Value) (Value, error) {
		return ToString(args[0]), nil
	})

	const sb = "java/lang/StringBuilder"
	vm.RegisterNative(sb, "<init>", "()V", func(vm *VM, args []Value) (Value, error) {
		args[0].(*Object).Fields["value"] = ""
		return nil, nil
	})
	for _, desc := range []string{"(Ljava/lang/String;)", "(Ljava/lang/Object;)", "(I)", "(J)"} {
		vm.RegisterNative(sb, "append", desc+"Ljava/lang/StringBuilder;", func(vm *VM, args []Value) (Value, error) {
			o := args[0].(*Object)
			cur, _ := o.Fields["value"].(string)
			o.Fields["value"] = cur + ToString(args[1])
			return o, nil
		})
	}
	vm.RegisterNative(sb, "toString", "()Ljava/lang/String;", func(vm *VM, args []Value) (Value, error) {
		s, _ := args[0].(*Object).Fields["value"].(string)
		return s, nil
	})
}

func registerThrowables(vm *VM) {
	for _, class := range throwableClasses {
		vm.RegisterNative(class, "<init>", "()V", func(vm *VM, args []Value) (Value, error) {
			return nil, nil
		})
		vm.RegisterNative(class, "<init>", "(Ljava/lang/String;)V", func(vm *VM, args []Value) (Value, error) {
			args[0].(*Object).Fields["message"] = args[1]
			return nil, nil
		})
	}
	vm.RegisterNative("java/lang/Throwable", "getMessage", "()Ljava/lang/String;", func(vm *VM, args []Value) (Value, error) {
		return args[0].(*Object).Fields["message"], nil
	})
}

func boolValue(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func boolString(v Value) string {
	if b, _ := v.(int32); b != 0 {
		return "true"
	}
	return "false"
}

// valuesEqual compares values the way the wrapper and String equals
// methods do; other objects compare by identity.
func valuesEqual(a, b Value) bool {
	ao, aok := a.(*Object)
	bo, bok := b.(*Object)
	if aok && bok && ao != nil && bo != nil && ao.Class == bo.Class && isWrapperClass(ao.Class) {
		return ao.Fields["value"] == bo.Fields["value"]
	}
	return a == b
}
