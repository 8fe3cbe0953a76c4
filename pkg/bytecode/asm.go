package bytecode

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// AsmError reports a syntax or semantic error in assembler source.
type AsmError struct {
	File string
	Line int
	Msg  string
}

func (e *AsmError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// Assemble parses .jasm source into classes.
//
// The format is line oriented:
//
//	.class public demo/Greeter
//	.super java/lang/Object
//	.field private count I
//	.method public greet (Ljava/lang/String;)Ljava/lang/String;
//	  .annotation visible Ldemo/Traced; level=3
//	  aload 1
//	  invokevirtual java/lang/String.trim()Ljava/lang/String;
//	  areturn
//	.end method
//
// A ';' at the start of a token starts a comment. Labels are written as
// "name:" on a line of their own.
func Assemble(file, src string) ([]*Class, error) {
	a := &assembler{file: file}
	sc := bufio.NewScanner(strings.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		a.line++
		fields, err := splitFields(sc.Text())
		if err != nil {
			return nil, a.errorf("%v", err)
		}
		if len(fields) == 0 {
			continue
		}
		if err := a.directive(fields); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("assemble %s: %w", file, err)
	}
	if a.method != nil {
		return nil, a.errorf("missing .end method for %s", a.method.Name)
	}
	return a.classes, nil
}

// AssembleMethod parses a bare instruction listing (no directives) into a
// method body. It is convenient for advice snippets and tests.
func AssembleMethod(src string) ([]Instruction, error) {
	a := &assembler{method: &Method{}}
	sc := bufio.NewScanner(strings.NewReader(src))
	for sc.Scan() {
		a.line++
		fields, err := splitFields(sc.Text())
		if err != nil {
			return nil, a.errorf("%v", err)
		}
		if len(fields) == 0 {
			continue
		}
		if err := a.instruction(fields); err != nil {
			return nil, err
		}
	}
	return a.method.Code, sc.Err()
}

type assembler struct {
	file    string
	line    int
	classes []*Class
	class   *Class
	method  *Method
}

func (a *assembler) errorf(format string, args ...interface{}) error {
	return &AsmError{File: a.file, Line: a.line, Msg: fmt.Sprintf(format, args...)}
}

func (a *assembler) directive(f []string) error {
	switch f[0] {
	case ".class":
		if a.method != nil {
			return a.errorf(".class inside method %s", a.method.Name)
		}
		if len(f) < 2 {
			return a.errorf(".class requires a name")
		}
		access, err := a.parseAccess(f[1 : len(f)-1])
		if err != nil {
			return err
		}
		a.class = NewClass(access, f[len(f)-1], "")
		a.classes = append(a.classes, a.class)
		return nil
	case ".super":
		if a.class == nil {
			return a.errorf(".super outside class")
		}
		if len(f) != 2 {
			return a.errorf(".super requires exactly one name")
		}
		a.class.Super = f[1]
		return nil
	case ".field":
		return a.field(f[1:])
	case ".method":
		return a.beginMethod(f[1:])
	case ".end":
		if len(f) != 2 || f[1] != "method" {
			return a.errorf("expected .end method")
		}
		if a.method == nil {
			return a.errorf(".end method without .method")
		}
		if err := a.class.AddMethods(a.method); err != nil {
			return a.errorf("%v", err)
		}
		a.method = nil
		return nil
	}
	if a.method == nil {
		return a.errorf("unexpected %q outside method", f[0])
	}
	return a.methodDirective(f)
}

func (a *assembler) parseAccess(words []string) (AccessFlags, error) {
	var access AccessFlags
	for _, w := range words {
		flag, ok := lookupAccess(w)
		if !ok {
			return 0, a.errorf("unknown access flag %q", w)
		}
		access |= flag
	}
	return access, nil
}

func (a *assembler) field(f []string) error {
	if a.class == nil {
		return a.errorf(".field outside class")
	}
	var value *Constant
	if n := len(f); n >= 2 && f[n-2] == "=" {
		k, err := ParseConstant(f[n-1])
		if err != nil {
			return a.errorf("%v", err)
		}
		value = &k
		f = f[:n-2]
	}
	if len(f) < 2 {
		return a.errorf(".field requires a name and descriptor")
	}
	access, err := a.parseAccess(f[:len(f)-2])
	if err != nil {
		return err
	}
	desc := f[len(f)-1]
	if _, err := ParseType(desc); err != nil {
		return a.errorf("%v", err)
	}
	if err := a.class.AddField(&Field{Access: access, Name: f[len(f)-2], Desc: desc, Value: value}); err != nil {
		return a.errorf("%v", err)
	}
	return nil
}

func (a *assembler) beginMethod(f []string) error {
	if a.class == nil {
		return a.errorf(".method outside class")
	}
	if a.method != nil {
		return a.errorf("nested .method (missing .end method for %s)", a.method.Name)
	}
	if len(f) < 2 {
		return a.errorf(".method requires a name and descriptor")
	}
	access, err := a.parseAccess(f[:len(f)-2])
	if err != nil {
		return err
	}
	desc := f[len(f)-1]
	if _, _, err := ParseMethodType(desc); err != nil {
		return a.errorf("%v", err)
	}
	a.method = &Method{Access: access, Name: f[len(f)-2], Desc: desc}
	return nil
}

func (a *assembler) methodDirective(f []string) error {
	m := a.method
	switch f[0] {
	case ".signature":
		if len(f) != 2 {
			return a.errorf(".signature requires one argument")
		}
		m.Signature = f[1]
	case ".throws":
		if len(f) != 2 {
			return a.errorf(".throws requires one class name")
		}
		m.Exceptions = append(m.Exceptions, f[1])
	case ".limit":
		if len(f) != 3 || f[1] != "locals" {
			return a.errorf("expected .limit locals <n>")
		}
		n, err := strconv.Atoi(f[2])
		if err != nil || n < 0 {
			return a.errorf("invalid locals limit %q", f[2])
		}
		m.MaxLocals = n
	case ".default":
		if len(f) != 2 {
			return a.errorf(".default requires one constant")
		}
		k, err := ParseConstant(f[1])
		if err != nil {
			return a.errorf("%v", err)
		}
		m.AnnotationDefault = &k
	case ".annotation":
		ann, err := a.annotation(f[1:])
		if err != nil {
			return err
		}
		m.Annotations = append(m.Annotations, ann)
	case ".paramannotation":
		if len(f) < 2 {
			return a.errorf(".paramannotation requires a parameter index")
		}
		p, err := strconv.Atoi(f[1])
		if err != nil || p < 0 {
			return a.errorf("invalid parameter index %q", f[1])
		}
		ann, err := a.annotation(f[2:])
		if err != nil {
			return err
		}
		m.ParamAnnotations = append(m.ParamAnnotations, ParamAnnotation{Param: p, Annotation: ann})
	default:
		return a.instruction(f)
	}
	return nil
}

// annotation parses "visible|invisible Ldesc; [name=value ...]".
func (a *assembler) annotation(f []string) (Annotation, error) {
	if len(f) < 2 {
		return Annotation{}, a.errorf("annotation requires visibility and descriptor")
	}
	var ann Annotation
	switch f[0] {
	case "visible":
		ann.Visible = true
	case "invisible":
	default:
		return Annotation{}, a.errorf("annotation visibility must be visible or invisible, got %q", f[0])
	}
	if t, err := ParseType(f[1]); err != nil || t.Sort() != 'L' {
		return Annotation{}, a.errorf("invalid annotation descriptor %q", f[1])
	}
	ann.Desc = f[1]
	for _, kv := range f[2:] {
		eq := strings.IndexByte(kv, '=')
		if eq <= 0 {
			return Annotation{}, a.errorf("annotation value %q: expected name=value", kv)
		}
		k, err := ParseConstant(kv[eq+1:])
		if err != nil {
			return Annotation{}, a.errorf("annotation value %q: %v", kv, err)
		}
		ann.Values = append(ann.Values, AnnotationValue{Name: kv[:eq], Value: k})
	}
	return ann, nil
}

func (a *assembler) instruction(f []string) error {
	if len(f) == 1 && strings.HasSuffix(f[0], ":") {
		name := strings.TrimSuffix(f[0], ":")
		if name == "" {
			return a.errorf("empty label")
		}
		a.method.Code = append(a.method.Code, LabelInsn(Label(name)))
		return nil
	}
	op, ok := LookupOpcode(f[0])
	if !ok || op == OpLabel {
		return a.errorf("unknown instruction %q", f[0])
	}
	in, err := a.operands(op, f[1:])
	if err != nil {
		return err
	}
	a.method.Code = append(a.method.Code, in)
	return nil
}

func (a *assembler) operands(op Opcode, args []string) (Instruction, error) {
	want := map[Shape]int{
		ShapeInsn: 0, ShapeInt: 1, ShapeVar: 1, ShapeIinc: 2, ShapeType: 1,
		ShapeField: 2, ShapeMethod: 1, ShapeLdc: 1, ShapeJump: 1,
		ShapeTryCatch: 4, ShapeLocalVar: 5,
	}
	shape := op.Shape()
	if shape == ShapeLine {
		if len(args) != 1 && len(args) != 2 {
			return Instruction{}, a.errorf("%s expects 1 or 2 operands, got %d", op, len(args))
		}
	} else if n := want[shape]; len(args) != n {
		return Instruction{}, a.errorf("%s expects %d operand(s), got %d", op, n, len(args))
	}

	atoi := func(s string) (int, error) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, a.errorf("%s: invalid integer %q", op, s)
		}
		return v, nil
	}

	switch shape {
	case ShapeInsn:
		return Insn(op), nil
	case ShapeInt:
		v, err := atoi(args[0])
		if err != nil {
			return Instruction{}, err
		}
		return IntInsn(op, v), nil
	case ShapeVar:
		slot, err := atoi(args[0])
		if err != nil {
			return Instruction{}, err
		}
		if slot < 0 {
			return Instruction{}, a.errorf("%s: negative slot %d", op, slot)
		}
		return VarInsn(op, slot), nil
	case ShapeIinc:
		slot, err := atoi(args[0])
		if err != nil {
			return Instruction{}, err
		}
		delta, err := atoi(args[1])
		if err != nil {
			return Instruction{}, err
		}
		return IincInsn(slot, delta), nil
	case ShapeType:
		return TypeInsn(op, args[0]), nil
	case ShapeField:
		dot := strings.LastIndexByte(args[0], '.')
		if dot <= 0 || dot == len(args[0])-1 {
			return Instruction{}, a.errorf("%s: expected owner.name, got %q", op, args[0])
		}
		if _, err := ParseType(args[1]); err != nil {
			return Instruction{}, a.errorf("%s: %v", op, err)
		}
		return FieldInsn(op, args[0][:dot], args[0][dot+1:], args[1]), nil
	case ShapeMethod:
		paren := strings.IndexByte(args[0], '(')
		if paren < 0 {
			return Instruction{}, a.errorf("%s: expected owner.name(desc)ret, got %q", op, args[0])
		}
		ref, desc := args[0][:paren], args[0][paren:]
		dot := strings.LastIndexByte(ref, '.')
		if dot <= 0 || dot == len(ref)-1 {
			return Instruction{}, a.errorf("%s: expected owner.name, got %q", op, ref)
		}
		if _, _, err := ParseMethodType(desc); err != nil {
			return Instruction{}, a.errorf("%s: %v", op, err)
		}
		return MethodInsn(op, ref[:dot], ref[dot+1:], desc), nil
	case ShapeLdc:
		k, err := ParseConstant(args[0])
		if err != nil {
			return Instruction{}, a.errorf("ldc: %v", err)
		}
		return LdcInsn(k), nil
	case ShapeJump:
		return JumpInsn(op, Label(args[0])), nil
	case ShapeLine:
		line, err := atoi(args[0])
		if err != nil {
			return Instruction{}, err
		}
		var l Label
		if len(args) == 2 {
			l = Label(args[1])
		}
		return LineInsn(line, l), nil
	case ShapeTryCatch:
		typ := args[0]
		if typ == "any" {
			typ = ""
		}
		return TryCatchInsn(Label(args[1]), Label(args[2]), Label(args[3]), typ), nil
	case ShapeLocalVar:
		slot, err := atoi(args[0])
		if err != nil {
			return Instruction{}, err
		}
		if _, err := ParseType(args[2]); err != nil {
			return Instruction{}, a.errorf(".var: %v", err)
		}
		return LocalVarInsn(args[1], args[2], slot, Label(args[3]), Label(args[4])), nil
	}
	return Instruction{}, a.errorf("unsupported instruction %s", op)
}

// splitFields splits a line on whitespace. Double-quoted strings (with Go
// escapes) stay inside one field; a field starting with ';' ends the line.
func splitFields(line string) ([]string, error) {
	var (
		fields []string
		cur    strings.Builder
		inTok  bool
		inStr  bool
		escape bool
	)
	flush := func() {
		if inTok {
			fields = append(fields, cur.String())
			cur.Reset()
			inTok = false
		}
	}
	for i := 0; i < len(line); i++ {
		c := line[i]
		if inStr {
			cur.WriteByte(c)
			switch {
			case escape:
				escape = false
			case c == '\\':
				escape = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			flush()
		case c == ';' && !inTok:
			flush()
			return fields, nil
		default:
			if c == '"' {
				inStr = true
			}
			inTok = true
			cur.WriteByte(c)
		}
	}
	if inStr {
		return nil, fmt.Errorf("unterminated string")
	}
	flush()
	return fields, nil
}
