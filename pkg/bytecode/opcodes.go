package bytecode

import "fmt"

// Opcode represents a JVM-style instruction opcode.
// Real opcodes keep their class-file values; pseudo opcodes (labels and debug
// entries) live in the unused 0xF0 range so an instruction stream can carry
// them inline.
type Opcode byte

const (
	// ========================================================================
	// Constants (0x00-0x14)
	// ========================================================================

	OpNop        Opcode = 0x00
	OpAconstNull Opcode = 0x01
	OpIconstM1   Opcode = 0x02
	OpIconst0    Opcode = 0x03
	OpIconst1    Opcode = 0x04
	OpIconst2    Opcode = 0x05
	OpIconst3    Opcode = 0x06
	OpIconst4    Opcode = 0x07
	OpIconst5    Opcode = 0x08
	OpLconst0    Opcode = 0x09
	OpLconst1    Opcode = 0x0A
	OpFconst0    Opcode = 0x0B
	OpFconst1    Opcode = 0x0C
	OpFconst2    Opcode = 0x0D
	OpDconst0    Opcode = 0x0E
	OpDconst1    Opcode = 0x0F
	OpBipush     Opcode = 0x10 // bipush <value:i8>
	OpSipush     Opcode = 0x11 // sipush <value:i16>
	OpLdc        Opcode = 0x12 // ldc <constant>

	// ========================================================================
	// Local variables (0x15-0x3A)
	// ========================================================================

	OpIload  Opcode = 0x15
	OpLload  Opcode = 0x16
	OpFload  Opcode = 0x17
	OpDload  Opcode = 0x18
	OpAload  Opcode = 0x19
	OpIstore Opcode = 0x36
	OpLstore Opcode = 0x37
	OpFstore Opcode = 0x38
	OpDstore Opcode = 0x39
	OpAstore Opcode = 0x3A

	// ========================================================================
	// Arrays
	// ========================================================================

	OpIaload      Opcode = 0x2E
	OpAaload      Opcode = 0x32
	OpIastore     Opcode = 0x4F
	OpAastore     Opcode = 0x53
	OpArraylength Opcode = 0xBE

	// ========================================================================
	// Stack manipulation (0x57-0x5F)
	// ========================================================================

	OpPop   Opcode = 0x57
	OpPop2  Opcode = 0x58
	OpDup   Opcode = 0x59
	OpDupX1 Opcode = 0x5A
	OpDupX2 Opcode = 0x5B
	OpDup2  Opcode = 0x5C
	OpSwap  Opcode = 0x5F

	// ========================================================================
	// Arithmetic and conversion (0x60-0x94)
	// ========================================================================

	OpIadd Opcode = 0x60
	OpLadd Opcode = 0x61
	OpIsub Opcode = 0x64
	OpLsub Opcode = 0x65
	OpImul Opcode = 0x68
	OpLmul Opcode = 0x69
	OpIdiv Opcode = 0x6C
	OpLdiv Opcode = 0x6D
	OpIrem Opcode = 0x70
	OpLrem Opcode = 0x71
	OpIneg Opcode = 0x74
	OpLneg Opcode = 0x75
	OpIinc Opcode = 0x84 // iinc <slot> <delta>
	OpI2l  Opcode = 0x85
	OpL2i  Opcode = 0x88
	OpLcmp Opcode = 0x94

	// ========================================================================
	// Control flow (0x99-0xA7, 0xC6-0xC7)
	// ========================================================================

	OpIfeq      Opcode = 0x99
	OpIfne      Opcode = 0x9A
	OpIflt      Opcode = 0x9B
	OpIfge      Opcode = 0x9C
	OpIfgt      Opcode = 0x9D
	OpIfle      Opcode = 0x9E
	OpIfIcmpeq  Opcode = 0x9F
	OpIfIcmpne  Opcode = 0xA0
	OpIfIcmplt  Opcode = 0xA1
	OpIfIcmpge  Opcode = 0xA2
	OpIfIcmpgt  Opcode = 0xA3
	OpIfIcmple  Opcode = 0xA4
	OpIfAcmpeq  Opcode = 0xA5
	OpIfAcmpne  Opcode = 0xA6
	OpGoto      Opcode = 0xA7
	OpIfnull    Opcode = 0xC6
	OpIfnonnull Opcode = 0xC7

	// ========================================================================
	// Returns (0xAC-0xB1)
	// ========================================================================

	OpIreturn Opcode = 0xAC
	OpLreturn Opcode = 0xAD
	OpFreturn Opcode = 0xAE
	OpDreturn Opcode = 0xAF
	OpAreturn Opcode = 0xB0
	OpReturn  Opcode = 0xB1

	// ========================================================================
	// Fields and calls (0xB2-0xB9)
	// ========================================================================

	OpGetstatic       Opcode = 0xB2
	OpPutstatic       Opcode = 0xB3
	OpGetfield        Opcode = 0xB4
	OpPutfield        Opcode = 0xB5
	OpInvokevirtual   Opcode = 0xB6
	OpInvokespecial   Opcode = 0xB7
	OpInvokestatic    Opcode = 0xB8
	OpInvokeinterface Opcode = 0xB9

	// ========================================================================
	// Objects (0xBB-0xC1)
	// ========================================================================

	OpNew        Opcode = 0xBB
	OpAnewarray  Opcode = 0xBD
	OpAthrow     Opcode = 0xBF
	OpCheckcast  Opcode = 0xC0
	OpInstanceof Opcode = 0xC1

	// ========================================================================
	// Pseudo instructions (0xF0-0xF3)
	// ========================================================================

	OpLabel    Opcode = 0xF0 // label definition
	OpLine     Opcode = 0xF1 // line number entry
	OpTryCatch Opcode = 0xF2 // exception table entry
	OpLocalVar Opcode = 0xF3 // local variable debug entry
)

// Shape classifies an instruction by the operands it carries. The set is
// closed: every opcode maps to exactly one shape, and rewriting passes
// switch on it.
type Shape uint8

const (
	ShapeInsn     Shape = iota // no operands
	ShapeInt                   // immediate int (bipush, sipush)
	ShapeVar                   // local slot
	ShapeIinc                  // local slot + delta
	ShapeType                  // type operand
	ShapeField                 // owner, name, descriptor
	ShapeMethod                // owner, name, descriptor
	ShapeLdc                   // constant pool value
	ShapeJump                  // branch target label
	ShapeLabel                 // label definition
	ShapeLine                  // line number
	ShapeTryCatch              // exception range
	ShapeLocalVar              // local variable debug entry
)

var shapeNames = [...]string{
	ShapeInsn:     "insn",
	ShapeInt:      "int",
	ShapeVar:      "var",
	ShapeIinc:     "iinc",
	ShapeType:     "type",
	ShapeField:    "field",
	ShapeMethod:   "method",
	ShapeLdc:      "ldc",
	ShapeJump:     "jump",
	ShapeLabel:    "label",
	ShapeLine:     "line",
	ShapeTryCatch: "trycatch",
	ShapeLocalVar: "localvar",
}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return fmt.Sprintf("Shape(%d)", s)
}

// OpcodeInfo provides metadata about each opcode.
type OpcodeInfo struct {
	Name  string // mnemonic as written by the assembler
	Shape Shape  // operand layout
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Constants
	OpNop:        {"nop", ShapeInsn},
	OpAconstNull: {"aconst_null", ShapeInsn},
	OpIconstM1:   {"iconst_m1", ShapeInsn},
	OpIconst0:    {"iconst_0", ShapeInsn},
	OpIconst1:    {"iconst_1", ShapeInsn},
	OpIconst2:    {"iconst_2", ShapeInsn},
	OpIconst3:    {"iconst_3", ShapeInsn},
	OpIconst4:    {"iconst_4", ShapeInsn},
	OpIconst5:    {"iconst_5", ShapeInsn},
	OpLconst0:    {"lconst_0", ShapeInsn},
	OpLconst1:    {"lconst_1", ShapeInsn},
	OpFconst0:    {"fconst_0", ShapeInsn},
	OpFconst1:    {"fconst_1", ShapeInsn},
	OpFconst2:    {"fconst_2", ShapeInsn},
	OpDconst0:    {"dconst_0", ShapeInsn},
	OpDconst1:    {"dconst_1", ShapeInsn},
	OpBipush:     {"bipush", ShapeInt},
	OpSipush:     {"sipush", ShapeInt},
	OpLdc:        {"ldc", ShapeLdc},

	// Locals
	OpIload:  {"iload", ShapeVar},
	OpLload:  {"lload", ShapeVar},
	OpFload:  {"fload", ShapeVar},
	OpDload:  {"dload", ShapeVar},
	OpAload:  {"aload", ShapeVar},
	OpIstore: {"istore", ShapeVar},
	OpLstore: {"lstore", ShapeVar},
	OpFstore: {"fstore", ShapeVar},
	OpDstore: {"dstore", ShapeVar},
	OpAstore: {"astore", ShapeVar},
	OpIinc:   {"iinc", ShapeIinc},

	// Arrays
	OpIaload:      {"iaload", ShapeInsn},
	OpAaload:      {"aaload", ShapeInsn},
	OpIastore:     {"iastore", ShapeInsn},
	OpAastore:     {"aastore", ShapeInsn},
	OpArraylength: {"arraylength", ShapeInsn},

	// Stack
	OpPop:   {"pop", ShapeInsn},
	OpPop2:  {"pop2", ShapeInsn},
	OpDup:   {"dup", ShapeInsn},
	OpDupX1: {"dup_x1", ShapeInsn},
	OpDupX2: {"dup_x2", ShapeInsn},
	OpDup2:  {"dup2", ShapeInsn},
	OpSwap:  {"swap", ShapeInsn},

	// Arithmetic
	OpIadd: {"iadd", ShapeInsn},
	OpLadd: {"ladd", ShapeInsn},
	OpIsub: {"isub", ShapeInsn},
	OpLsub: {"lsub", ShapeInsn},
	OpImul: {"imul", ShapeInsn},
	OpLmul: {"lmul", ShapeInsn},
	OpIdiv: {"idiv", ShapeInsn},
	OpLdiv: {"ldiv", ShapeInsn},
	OpIrem: {"irem", ShapeInsn},
	OpLrem: {"lrem", ShapeInsn},
	OpIneg: {"ineg", ShapeInsn},
	OpLneg: {"lneg", ShapeInsn},
	OpI2l:  {"i2l", ShapeInsn},
	OpL2i:  {"l2i", ShapeInsn},
	OpLcmp: {"lcmp", ShapeInsn},

	// Control flow
	OpIfeq:      {"ifeq", ShapeJump},
	OpIfne:      {"ifne", ShapeJump},
	OpIflt:      {"iflt", ShapeJump},
	OpIfge:      {"ifge", ShapeJump},
	OpIfgt:      {"ifgt", ShapeJump},
	OpIfle:      {"ifle", ShapeJump},
	OpIfIcmpeq:  {"if_icmpeq", ShapeJump},
	OpIfIcmpne:  {"if_icmpne", ShapeJump},
	OpIfIcmplt:  {"if_icmplt", ShapeJump},
	OpIfIcmpge:  {"if_icmpge", ShapeJump},
	OpIfIcmpgt:  {"if_icmpgt", ShapeJump},
	OpIfIcmple:  {"if_icmple", ShapeJump},
	OpIfAcmpeq:  {"if_acmpeq", ShapeJump},
	OpIfAcmpne:  {"if_acmpne", ShapeJump},
	OpGoto:      {"goto", ShapeJump},
	OpIfnull:    {"ifnull", ShapeJump},
	OpIfnonnull: {"ifnonnull", ShapeJump},

	// Returns
	OpIreturn: {"ireturn", ShapeInsn},
	OpLreturn: {"lreturn", ShapeInsn},
	OpFreturn: {"freturn", ShapeInsn},
	OpDreturn: {"dreturn", ShapeInsn},
	OpAreturn: {"areturn", ShapeInsn},
	OpReturn:  {"return", ShapeInsn},

	// Fields and calls
	OpGetstatic:       {"getstatic", ShapeField},
	OpPutstatic:       {"putstatic", ShapeField},
	OpGetfield:        {"getfield", ShapeField},
	OpPutfield:        {"putfield", ShapeField},
	OpInvokevirtual:   {"invokevirtual", ShapeMethod},
	OpInvokespecial:   {"invokespecial", ShapeMethod},
	OpInvokestatic:    {"invokestatic", ShapeMethod},
	OpInvokeinterface: {"invokeinterface", ShapeMethod},

	// Objects
	OpNew:        {"new", ShapeType},
	OpAnewarray:  {"anewarray", ShapeType},
	OpAthrow:     {"athrow", ShapeInsn},
	OpCheckcast:  {"checkcast", ShapeType},
	OpInstanceof: {"instanceof", ShapeType},

	// Pseudo
	OpLabel:    {"label", ShapeLabel},
	OpLine:     {".line", ShapeLine},
	OpTryCatch: {".catch", ShapeTryCatch},
	OpLocalVar: {".var", ShapeLocalVar},
}

// opcodeByName is the reverse index used by the assembler.
var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeInfoTable))
	for op, info := range opcodeInfoTable {
		m[info.Name] = op
	}
	return m
}()

// GetOpcodeInfo returns metadata for an opcode.
// Returns an OpcodeInfo named "UNKNOWN(..)" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op)), Shape: ShapeInsn}
}

// LookupOpcode returns the opcode for a mnemonic.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Shape returns the operand layout of an opcode.
func (op Opcode) Shape() Shape {
	return GetOpcodeInfo(op).Shape
}

// Known reports whether the opcode has metadata.
func (op Opcode) Known() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// IsReturn returns true if this opcode returns from the method.
func (op Opcode) IsReturn() bool {
	return op >= OpIreturn && op <= OpReturn
}

// IsInvoke returns true if this opcode is a method call.
func (op Opcode) IsInvoke() bool {
	return op >= OpInvokevirtual && op <= OpInvokeinterface
}

// IsLoad returns true for the typed local load opcodes.
func (op Opcode) IsLoad() bool {
	return op >= OpIload && op <= OpAload
}

// IsStore returns true for the typed local store opcodes.
func (op Opcode) IsStore() bool {
	return op >= OpIstore && op <= OpAstore
}

// IsWideLocal reports whether a load/store moves a two-slot value.
func (op Opcode) IsWideLocal() bool {
	switch op {
	case OpLload, OpDload, OpLstore, OpDstore:
		return true
	}
	return false
}

// IsPseudo returns true for labels and debug entries.
func (op Opcode) IsPseudo() bool {
	return op >= OpLabel && op <= OpLocalVar
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
