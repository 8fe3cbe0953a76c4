package bytecode

import (
	"fmt"
)

// Code accumulates an instruction stream. It is the emitter used by code
// generators; the zero value is ready to use.
type Code struct {
	insns  []Instruction
	labels int
}

// NewCode creates an empty instruction buffer.
func NewCode() *Code {
	return &Code{insns: make([]Instruction, 0, 32)}
}

// Emit appends instructions and returns the offset of the first one.
func (c *Code) Emit(ins ...Instruction) int {
	offset := len(c.insns)
	c.insns = append(c.insns, ins...)
	return offset
}

// EmitOp appends a zero-operand instruction.
func (c *Code) EmitOp(op Opcode) int {
	return c.Emit(Insn(op))
}

// EmitInt emits the shortest push of an int constant.
func (c *Code) EmitInt(v int) int {
	return c.Emit(ConstInsn(v))
}

// EmitLoad emits a typed local load.
func (c *Code) EmitLoad(t Type, slot int) int {
	return c.Emit(VarInsn(t.LoadOp(), slot))
}

// EmitStore emits a typed local store.
func (c *Code) EmitStore(t Type, slot int) int {
	return c.Emit(VarInsn(t.StoreOp(), slot))
}

// EmitInvoke emits a method call.
func (c *Code) EmitInvoke(op Opcode, owner, name, desc string) int {
	return c.Emit(MethodInsn(op, owner, name, desc))
}

// EmitField emits a field access.
func (c *Code) EmitField(op Opcode, owner, name, desc string) int {
	return c.Emit(FieldInsn(op, owner, name, desc))
}

// EmitType emits a type instruction on an internal name.
func (c *Code) EmitType(op Opcode, internalName string) int {
	return c.Emit(TypeInsn(op, internalName))
}

// EmitLdc emits an ldc of a constant.
func (c *Code) EmitLdc(k Constant) int {
	return c.Emit(LdcInsn(k))
}

// NewLabel returns a fresh label with the given prefix. Labels are unique
// within this buffer only.
func (c *Code) NewLabel(prefix string) Label {
	c.labels++
	return Label(fmt.Sprintf("%s%d", prefix, c.labels))
}

// Mark places a label at the current position.
func (c *Code) Mark(l Label) int {
	return c.Emit(LabelInsn(l))
}

// CurrentOffset returns the index the next instruction will get.
func (c *Code) CurrentOffset() int {
	return len(c.insns)
}

// Len returns the number of instructions emitted so far.
func (c *Code) Len() int {
	return len(c.insns)
}

// Instructions returns the emitted stream. The buffer keeps ownership; use
// CloneCode for an independent copy.
func (c *Code) Instructions() []Instruction {
	return c.insns
}

// Reset empties the buffer, keeping its capacity.
func (c *Code) Reset() {
	c.insns = c.insns[:0]
	c.labels = 0
}
