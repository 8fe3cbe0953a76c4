package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns the class in assembler syntax. The output assembles
// back to an equal class.
func (c *Class) Disassemble() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("; === %s ===\n", c.Name))
	sb.WriteString(".class ")
	writeAccess(&sb, c.Access)
	sb.WriteString(c.Name)
	sb.WriteString("\n")
	if c.Super != "" {
		sb.WriteString(fmt.Sprintf(".super %s\n", c.Super))
	}

	if len(c.Fields) > 0 {
		sb.WriteString("\n")
		for _, f := range c.Fields {
			sb.WriteString(".field ")
			writeAccess(&sb, f.Access)
			sb.WriteString(fmt.Sprintf("%s %s", f.Name, f.Desc))
			if f.Value != nil {
				sb.WriteString(" = " + f.Value.String())
			}
			sb.WriteString("\n")
		}
	}

	for _, m := range c.Methods {
		sb.WriteString("\n")
		sb.WriteString(m.Disassemble())
	}
	return sb.String()
}

// Disassemble returns the method in assembler syntax, from .method to
// .end method.
func (m *Method) Disassemble() string {
	var sb strings.Builder

	sb.WriteString(".method ")
	writeAccess(&sb, m.Access)
	sb.WriteString(fmt.Sprintf("%s %s\n", m.Name, m.Desc))

	if m.Signature != "" {
		sb.WriteString(fmt.Sprintf("  .signature %s\n", m.Signature))
	}
	for _, e := range m.Exceptions {
		sb.WriteString(fmt.Sprintf("  .throws %s\n", e))
	}
	for _, a := range m.Annotations {
		sb.WriteString("  .annotation ")
		writeAnnotation(&sb, a)
	}
	for _, pa := range m.ParamAnnotations {
		sb.WriteString(fmt.Sprintf("  .paramannotation %d ", pa.Param))
		writeAnnotation(&sb, pa.Annotation)
	}
	if m.AnnotationDefault != nil {
		sb.WriteString(fmt.Sprintf("  .default %s\n", m.AnnotationDefault.String()))
	}
	if m.MaxLocals > 0 {
		sb.WriteString(fmt.Sprintf("  .limit locals %d\n", m.MaxLocals))
	}

	sb.WriteString(FormatInstructions(m.Code))
	sb.WriteString(".end method\n")
	return sb.String()
}

func writeAccess(sb *strings.Builder, access AccessFlags) {
	if s := access.String(); s != "" {
		sb.WriteString(s)
		sb.WriteString(" ")
	}
}

func writeAnnotation(sb *strings.Builder, a Annotation) {
	if a.Visible {
		sb.WriteString("visible ")
	} else {
		sb.WriteString("invisible ")
	}
	sb.WriteString(a.Desc)
	for _, v := range a.Values {
		sb.WriteString(fmt.Sprintf(" %s=%s", v.Name, v.Value.String()))
	}
	sb.WriteString("\n")
}
