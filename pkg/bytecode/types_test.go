package bytecode

import (
	"testing"
)

func TestParseMethodType(t *testing.T) {
	tests := []struct {
		desc   string
		params []Type
		ret    Type
	}{
		{"()V", nil, Void},
		{"(I)I", []Type{Int}, Int},
		{"(Ljava/lang/String;)Ljava/lang/String;", []Type{StringType}, StringType},
		{"(JLjava/lang/Object;[[ID)[Ljava/lang/String;", []Type{Long, ObjectType, "[[I", Double}, "[Ljava/lang/String;"},
		{"(ZBCS)F", []Type{Boolean, Byte, Char, Short}, Float},
	}

	for _, tt := range tests {
		params, ret, err := ParseMethodType(tt.desc)
		if err != nil {
			t.Errorf("ParseMethodType(%q) error: %v", tt.desc, err)
			continue
		}
		if len(params) != len(tt.params) {
			t.Errorf("ParseMethodType(%q) params = %v, want %v", tt.desc, params, tt.params)
			continue
		}
		for i := range params {
			if params[i] != tt.params[i] {
				t.Errorf("ParseMethodType(%q) param %d = %s, want %s", tt.desc, i, params[i], tt.params[i])
			}
		}
		if ret != tt.ret {
			t.Errorf("ParseMethodType(%q) ret = %s, want %s", tt.desc, ret, tt.ret)
		}
		if got := MethodDesc(params, ret); got != tt.desc {
			t.Errorf("MethodDesc round trip = %q, want %q", got, tt.desc)
		}
	}
}

func TestParseMethodTypeErrors(t *testing.T) {
	bad := []string{
		"",
		"I",
		"(I",
		"(V)V",
		"(Ljava/lang/String)V",
		"(I)",
		"(I)VV",
		"(Q)V",
		"([)V",
	}
	for _, desc := range bad {
		if _, _, err := ParseMethodType(desc); err == nil {
			t.Errorf("ParseMethodType(%q) succeeded, want error", desc)
		}
	}
}

func TestTypeSlots(t *testing.T) {
	tests := []struct {
		desc string
		want int
	}{
		{"()V", 0},
		{"(I)V", 1},
		{"(J)V", 2},
		{"(DI)V", 3},
		{"(Ljava/lang/String;J[J)V", 4},
	}
	for _, tt := range tests {
		got, err := ArgumentSlots(tt.desc)
		if err != nil {
			t.Fatalf("ArgumentSlots(%q): %v", tt.desc, err)
		}
		if got != tt.want {
			t.Errorf("ArgumentSlots(%q) = %d, want %d", tt.desc, got, tt.want)
		}
	}
}

func TestTypeOps(t *testing.T) {
	tests := []struct {
		typ   Type
		load  Opcode
		store Opcode
		ret   Opcode
	}{
		{Boolean, OpIload, OpIstore, OpIreturn},
		{Int, OpIload, OpIstore, OpIreturn},
		{Long, OpLload, OpLstore, OpLreturn},
		{Float, OpFload, OpFstore, OpFreturn},
		{Double, OpDload, OpDstore, OpDreturn},
		{StringType, OpAload, OpAstore, OpAreturn},
		{"[I", OpAload, OpAstore, OpAreturn},
	}
	for _, tt := range tests {
		if got := tt.typ.LoadOp(); got != tt.load {
			t.Errorf("%s.LoadOp() = %s, want %s", tt.typ, got, tt.load)
		}
		if got := tt.typ.StoreOp(); got != tt.store {
			t.Errorf("%s.StoreOp() = %s, want %s", tt.typ, got, tt.store)
		}
		if got := tt.typ.ReturnOp(); got != tt.ret {
			t.Errorf("%s.ReturnOp() = %s, want %s", tt.typ, got, tt.ret)
		}
	}
	if Void.ReturnOp() != OpReturn {
		t.Error("Void.ReturnOp() != return")
	}
}

func TestTypeNames(t *testing.T) {
	if got := StringType.InternalName(); got != StringClass {
		t.Errorf("InternalName = %q", got)
	}
	if got := Type("[Ljava/lang/String;").InternalName(); got != "[Ljava/lang/String;" {
		t.Errorf("array InternalName = %q", got)
	}
	if got := StringType.ClassName(); got != "java.lang.String" {
		t.Errorf("ClassName = %q", got)
	}
	if got := Int.ClassName(); got != "int" {
		t.Errorf("Int.ClassName = %q", got)
	}
	if got := ReferenceType("demo/Greeter"); got != "Ldemo/Greeter;" {
		t.Errorf("ReferenceType = %q", got)
	}
	if !Long.IsWide() || Int.IsWide() || !Int.IsPrimitive() || Void.IsPrimitive() || !ObjectType.IsReference() {
		t.Error("type predicates wrong")
	}
}

func TestConstInsn(t *testing.T) {
	tests := []struct {
		v  int
		op Opcode
	}{
		{-1, OpIconstM1},
		{0, OpIconst0},
		{5, OpIconst5},
		{6, OpBipush},
		{-128, OpBipush},
		{200, OpSipush},
		{-32768, OpSipush},
		{70000, OpLdc},
	}
	for _, tt := range tests {
		in := ConstInsn(tt.v)
		if in.Op != tt.op {
			t.Errorf("ConstInsn(%d).Op = %s, want %s", tt.v, in.Op, tt.op)
		}
		got, ok := in.IntValue()
		if !ok || got != tt.v {
			t.Errorf("ConstInsn(%d).IntValue() = %d, %v", tt.v, got, ok)
		}
	}
	if _, ok := Insn(OpAconstNull).IntValue(); ok {
		t.Error("aconst_null reported an int value")
	}
}

func TestParseConstant(t *testing.T) {
	tests := []Constant{
		IntConst(42),
		IntConst(-7),
		LongConst(1 << 40),
		FloatConst(1.5),
		DoubleConst(-2.25),
		StringConst("hello \"world\"\n"),
		TypeConst(StringType),
		TypeConst("[I"),
	}
	for _, want := range tests {
		got, err := ParseConstant(want.String())
		if err != nil {
			t.Errorf("ParseConstant(%s): %v", want.String(), err)
			continue
		}
		if got != want {
			t.Errorf("ParseConstant(%s) = %#v, want %#v", want.String(), got, want)
		}
	}
	for _, bad := range []string{"", "abc", "\"open", "12X", "Lfoo"} {
		if _, err := ParseConstant(bad); err == nil {
			t.Errorf("ParseConstant(%q) succeeded", bad)
		}
	}
}

func TestMethodMaxLocalSlot(t *testing.T) {
	tests := []struct {
		name string
		m    *Method
		want int
	}{
		{"static no args", &Method{Access: AccStatic, Desc: "()V"}, -1},
		{"instance no args", &Method{Desc: "()V"}, 0},
		{"instance long arg", &Method{Desc: "(J)V"}, 2},
		{"body store", &Method{Desc: "(I)V", Code: []Instruction{ConstInsn(1), VarInsn(OpIstore, 4)}}, 4},
		{"wide store", &Method{Desc: "()V", Code: []Instruction{VarInsn(OpDstore, 3)}}, 4},
		{"iinc", &Method{Desc: "()V", Code: []Instruction{IincInsn(7, 1)}}, 7},
		{"debug var", &Method{Desc: "()V", Code: []Instruction{LocalVarInsn("x", "J", 5, "a", "b")}}, 6},
	}
	for _, tt := range tests {
		if got := tt.m.MaxLocalSlot(); got != tt.want {
			t.Errorf("%s: MaxLocalSlot() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestMethodCloneIsDeep(t *testing.T) {
	k := StringConst("x")
	m := &Method{
		Name:        "m",
		Desc:        "()V",
		Annotations: []Annotation{{Desc: "Lx/A;", Values: []AnnotationValue{{Name: "v", Value: IntConst(1)}}}},
		Code:        []Instruction{LdcInsn(k), Insn(OpPop), Insn(OpReturn)},
	}
	c := m.Clone()
	c.Code[0].Const.Str = "changed"
	c.Annotations[0].Values[0].Name = "w"
	if m.Code[0].Const.Str != "x" {
		t.Error("Clone shares constants")
	}
	if m.Annotations[0].Values[0].Name != "v" {
		t.Error("Clone shares annotation values")
	}
}

func TestAccessFlagsString(t *testing.T) {
	f := AccPublic | AccStatic | AccFinal
	if got := f.String(); got != "public static final" {
		t.Errorf("String() = %q", got)
	}
	if !f.IsFinal() || !f.IsStatic() || f.IsPrivate() {
		t.Error("predicates wrong")
	}
	if AccessFlags(0).String() != "" {
		t.Error("zero flags should print empty")
	}
}

func TestClassAddMethodsAtomic(t *testing.T) {
	c := NewClass(AccPublic, "demo/A", "")
	if c.Super != ObjectClass {
		t.Fatalf("Super = %q, want %q", c.Super, ObjectClass)
	}
	if err := c.AddMethods(&Method{Name: "a", Desc: "()V"}); err != nil {
		t.Fatalf("AddMethods: %v", err)
	}

	err := c.AddMethods(&Method{Name: "b", Desc: "()V"}, &Method{Name: "a", Desc: "()V"})
	if err == nil {
		t.Fatal("expected duplicate error")
	}
	if len(c.Methods) != 1 {
		t.Errorf("failed batch left %d methods, want 1", len(c.Methods))
	}

	err = c.AddMethods(&Method{Name: "b", Desc: "()V"}, &Method{Name: "b", Desc: "()V"})
	if err == nil {
		t.Fatal("expected duplicate within batch to fail")
	}
	if err := c.AddMethods(&Method{Name: "a", Desc: "(I)V"}); err != nil {
		t.Errorf("overload rejected: %v", err)
	}
	if got := len(c.MethodsNamed("a")); got != 2 {
		t.Errorf("MethodsNamed(a) = %d, want 2", got)
	}
}

func TestClassAddMembersAtomic(t *testing.T) {
	c := NewClass(AccPublic, "demo/A", "")
	if err := c.AddMembers([]*Field{{Name: "n", Desc: "I"}}, &Method{Name: "a", Desc: "()V"}); err != nil {
		t.Fatalf("AddMembers: %v", err)
	}

	tests := []struct {
		name    string
		fields  []*Field
		methods []*Method
	}{
		{"existing field", []*Field{{Name: "m", Desc: "I"}, {Name: "n", Desc: "J"}}, []*Method{{Name: "b", Desc: "()V"}}},
		{"field twice in batch", []*Field{{Name: "m", Desc: "I"}, {Name: "m", Desc: "I"}}, nil},
		{"existing method", []*Field{{Name: "m", Desc: "I"}}, []*Method{{Name: "a", Desc: "()V"}}},
	}
	for _, tt := range tests {
		if err := c.AddMembers(tt.fields, tt.methods...); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
		if len(c.Fields) != 1 || len(c.Methods) != 1 {
			t.Errorf("%s: failed batch left %d fields, %d methods", tt.name, len(c.Fields), len(c.Methods))
		}
	}
}
