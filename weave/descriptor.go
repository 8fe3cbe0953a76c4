package weave

import (
	"fmt"

	"github.com/chazu/aspectweave/pkg/bytecode"
)

// MethodDescriptor describes a target method. It is immutable once built;
// slice getters return copies.
type MethodDescriptor struct {
	name      string
	access    bytecode.AccessFlags
	desc      string
	params    []bytecode.Type
	ret       bytecode.Type
	slotWidth int

	signature         string
	exceptions        []string
	annotations       []bytecode.Annotation
	annotationDefault *bytecode.Constant
	paramAnnotations  []bytecode.ParamAnnotation
}

// NewMethodDescriptor parses desc and derives the argument layout.
func NewMethodDescriptor(name string, access bytecode.AccessFlags, desc string) (*MethodDescriptor, error) {
	if name == "" {
		return nil, fmt.Errorf("weave: empty method name")
	}
	params, ret, err := bytecode.ParseMethodType(desc)
	if err != nil {
		return nil, fmt.Errorf("weave: describe %s: %w", name, err)
	}
	d := &MethodDescriptor{name: name, access: access, desc: desc, params: params, ret: ret}
	for _, p := range params {
		d.slotWidth += p.Size()
	}
	return d, nil
}

// DescribeMethod builds a descriptor from a method definition, including the
// signature, declared exceptions and annotations the delegate inherits.
func DescribeMethod(m *bytecode.Method) (*MethodDescriptor, error) {
	d, err := NewMethodDescriptor(m.Name, m.Access, m.Desc)
	if err != nil {
		return nil, err
	}
	c := m.Clone()
	d.signature = c.Signature
	d.exceptions = c.Exceptions
	d.annotations = c.Annotations
	d.annotationDefault = c.AnnotationDefault
	d.paramAnnotations = c.ParamAnnotations
	return d, nil
}

func (d *MethodDescriptor) Name() string                 { return d.name }
func (d *MethodDescriptor) Access() bytecode.AccessFlags { return d.access }
func (d *MethodDescriptor) Desc() string                 { return d.desc }
func (d *MethodDescriptor) Signature() string            { return d.signature }
func (d *MethodDescriptor) Return() bytecode.Type        { return d.ret }

// Key returns name+descriptor.
func (d *MethodDescriptor) Key() string {
	return d.name + d.desc
}

// Params returns the parameter types in declaration order.
func (d *MethodDescriptor) Params() []bytecode.Type {
	return append([]bytecode.Type(nil), d.params...)
}

// ArgumentsCount returns the number of declared parameters.
func (d *MethodDescriptor) ArgumentsCount() int {
	return len(d.params)
}

// ArgumentSlotWidth returns the number of local slots the parameters
// occupy; long and double count twice.
func (d *MethodDescriptor) ArgumentSlotWidth() int {
	return d.slotWidth
}

// ArgumentType returns the type of the 1-based argument i.
func (d *MethodDescriptor) ArgumentType(i int) bytecode.Type {
	return d.params[i-1]
}

// ArgumentSlot returns the local slot of the 1-based argument i. The
// receiver occupies slot 0.
func (d *MethodDescriptor) ArgumentSlot(i int) int {
	slot := 1
	for _, p := range d.params[:i-1] {
		slot += p.Size()
	}
	return slot
}

// InRange reports whether i is a valid 1-based argument index.
func (d *MethodDescriptor) InRange(i int) bool {
	return i >= 1 && i <= len(d.params)
}

// Exceptions returns the declared exception classes.
func (d *MethodDescriptor) Exceptions() []string {
	return append([]string(nil), d.exceptions...)
}

// Annotations returns copies of the method-level annotations.
func (d *MethodDescriptor) Annotations() []bytecode.Annotation {
	return (&bytecode.Method{Annotations: d.annotations}).Clone().Annotations
}

// ParamAnnotations returns copies of the parameter annotations.
func (d *MethodDescriptor) ParamAnnotations() []bytecode.ParamAnnotation {
	return (&bytecode.Method{ParamAnnotations: d.paramAnnotations}).Clone().ParamAnnotations
}

// AnnotationDefault returns a copy of the annotation default value, or nil.
func (d *MethodDescriptor) AnnotationDefault() *bytecode.Constant {
	if d.annotationDefault == nil {
		return nil
	}
	c := *d.annotationDefault
	return &c
}

func (d *MethodDescriptor) String() string {
	return d.name + d.desc
}
