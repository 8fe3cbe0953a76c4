package weave

import (
	bc "github.com/chazu/aspectweave/pkg/bytecode"
)

const (
	voidClass   = "java/lang/Void"
	objectArray = "[Ljava/lang/Object;"
)

// loadArguments pushes every target argument in slot order.
func loadArguments(code *bc.Code, d *MethodDescriptor) {
	slot := 1
	for _, p := range d.params {
		code.EmitLoad(p, slot)
		slot += p.Size()
	}
}

// loadSpecialArguments pushes the receiver and every argument, ready for an
// invokespecial with the target's descriptor.
func loadSpecialArguments(code *bc.Code, d *MethodDescriptor) {
	code.EmitLoad(bc.ObjectType, 0)
	loadArguments(code, d)
}

// loadArgumentBoxed pushes argument i as an object reference.
func loadArgumentBoxed(code *bc.Code, d *MethodDescriptor, i int) {
	t := d.ArgumentType(i)
	code.EmitLoad(t, d.ArgumentSlot(i))
	if class, _, ok := bc.BoxClass(t); ok {
		code.EmitInvoke(bc.OpInvokestatic, class, "valueOf", bc.MethodDesc([]bc.Type{t}, bc.ReferenceType(class)))
	}
}

// storeArgument stores the object reference on top of the stack into
// argument i, unboxing or casting it first.
func storeArgument(code *bc.Code, d *MethodDescriptor, i int) {
	t := d.ArgumentType(i)
	castOrUnbox(code, t)
	code.EmitStore(t, d.ArgumentSlot(i))
}

// castOrUnbox converts the object reference on top of the stack to t.
func castOrUnbox(code *bc.Code, t bc.Type) {
	if class, unbox, ok := bc.BoxClass(t); ok {
		code.EmitType(bc.OpCheckcast, class)
		code.EmitInvoke(bc.OpInvokevirtual, class, unbox, "()"+string(t))
		return
	}
	if t != bc.ObjectType {
		code.EmitType(bc.OpCheckcast, t.InternalName())
	}
}

// loadTypeToken pushes the runtime type token of t.
func loadTypeToken(code *bc.Code, t bc.Type) {
	if t == bc.Void {
		code.EmitField(bc.OpGetstatic, voidClass, "TYPE", string(bc.ClassType))
		return
	}
	if class, _, ok := bc.BoxClass(t); ok {
		code.EmitField(bc.OpGetstatic, class, "TYPE", string(bc.ClassType))
		return
	}
	code.EmitLdc(bc.TypeConst(t))
}

// loadArgumentsArray pushes a new Object[] holding every argument boxed.
func loadArgumentsArray(code *bc.Code, d *MethodDescriptor) {
	code.EmitInt(d.ArgumentsCount())
	code.EmitType(bc.OpAnewarray, bc.ObjectClass)
	for i := 1; i <= d.ArgumentsCount(); i++ {
		code.EmitOp(bc.OpDup)
		code.EmitInt(i - 1)
		loadArgumentBoxed(code, d, i)
		code.EmitOp(bc.OpAastore)
	}
}

// loadArgumentTypesArray pushes a new Class[] holding every parameter type.
func loadArgumentTypesArray(code *bc.Code, d *MethodDescriptor) {
	code.EmitInt(d.ArgumentsCount())
	code.EmitType(bc.OpAnewarray, bc.ClassClass)
	for i := 1; i <= d.ArgumentsCount(); i++ {
		code.EmitOp(bc.OpDup)
		code.EmitInt(i - 1)
		loadTypeToken(code, d.ArgumentType(i))
		code.EmitOp(bc.OpAastore)
	}
}

// discardResult drops a raw value of type t from the stack.
func discardResult(code *bc.Code, t bc.Type) {
	switch t.Size() {
	case 1:
		code.EmitOp(bc.OpPop)
	case 2:
		code.EmitOp(bc.OpPop2)
	}
}

// materializeResult turns a raw value of type t on the stack into an
// object reference. Primitives are boxed through scratch.
func materializeResult(code *bc.Code, t bc.Type, scratch int) {
	if t == bc.Void {
		code.EmitOp(bc.OpAconstNull)
		return
	}
	class, _, ok := bc.BoxClass(t)
	if !ok {
		return
	}
	code.EmitStore(t, scratch)
	code.EmitType(bc.OpNew, class)
	code.EmitOp(bc.OpDup)
	code.EmitLoad(t, scratch)
	code.EmitInvoke(bc.OpInvokespecial, class, "<init>", bc.MethodDesc([]bc.Type{t}, bc.Void))
}

// returnObjectAs returns the object reference on top of the stack from a
// method whose return type is t.
func returnObjectAs(code *bc.Code, t bc.Type) {
	if t == bc.Void {
		code.EmitOp(bc.OpPop)
		code.EmitOp(bc.OpReturn)
		return
	}
	castOrUnbox(code, t)
	code.EmitOp(t.ReturnOp())
}
