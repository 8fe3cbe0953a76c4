package bytecode

import (
	"bytes"
	"testing"
)

func sampleMethod() *Method {
	def := IntConst(7)
	return &Method{
		Access:            AccPublic,
		Name:              "sum",
		Desc:              "(IJ)J",
		Annotations:       []Annotation{{Desc: "Ldemo/Traced;", Visible: true, Values: []AnnotationValue{{Name: "v", Value: StringConst("x")}}}},
		AnnotationDefault: &def,
		MaxLocals:         4,
		Code: []Instruction{
			LabelInsn("a"),
			VarInsn(OpIload, 1),
			Insn(OpI2l),
			VarInsn(OpLload, 2),
			Insn(OpLadd),
			LdcInsn(DoubleConst(0.5)),
			Insn(OpPop2),
			Insn(OpLreturn),
			LabelInsn("b"),
			TryCatchInsn("a", "b", "b", ""),
		},
	}
}

func TestMarshalMethodRoundTrip(t *testing.T) {
	m := sampleMethod()
	data, err := MarshalMethod(m)
	if err != nil {
		t.Fatalf("MarshalMethod: %v", err)
	}
	got, err := UnmarshalMethod(data)
	if err != nil {
		t.Fatalf("UnmarshalMethod: %v", err)
	}
	if got.Disassemble() != m.Disassemble() {
		t.Errorf("round trip mismatch:\n%s\n---\n%s", m.Disassemble(), got.Disassemble())
	}

	again, err := MarshalMethod(got)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, again) {
		t.Error("re-encoding is not byte-identical")
	}
}

func TestMarshalDeterministic(t *testing.T) {
	a, err := MarshalMethods([]*Method{sampleMethod(), sampleMethod()})
	if err != nil {
		t.Fatal(err)
	}
	b, err := MarshalMethods([]*Method{sampleMethod(), sampleMethod()})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("equal method sets encoded differently")
	}

	da, _ := MethodsDigest([]*Method{sampleMethod()})
	m := sampleMethod()
	m.Name = "other"
	db, _ := MethodsDigest([]*Method{m})
	if da == db {
		t.Error("different methods share a digest")
	}
}

func TestMarshalClassRoundTrip(t *testing.T) {
	c := NewClass(AccPublic, "demo/A", "")
	c.Fields = append(c.Fields, &Field{Access: AccPrivate, Name: "n", Desc: "I"})
	if err := c.AddMethods(sampleMethod()); err != nil {
		t.Fatal(err)
	}
	data, err := MarshalClasses([]*Class{c})
	if err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalClasses(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Disassemble() != c.Disassemble() {
		t.Errorf("class round trip mismatch")
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	if _, err := UnmarshalMethod([]byte{0xff, 0x00}); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestDigestString(t *testing.T) {
	d, err := MethodDigest(sampleMethod())
	if err != nil {
		t.Fatal(err)
	}
	s := d.String()
	if len(s) != 64 {
		t.Fatalf("hex digest length = %d", len(s))
	}
	back, err := ParseDigest(s)
	if err != nil || back != d {
		t.Errorf("ParseDigest(%s) = %v, %v", s, back, err)
	}
	if _, err := ParseDigest("abcd"); err == nil {
		t.Error("short digest accepted")
	}
}
