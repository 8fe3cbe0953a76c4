package bytecode

import (
	"fmt"
)

// Class is an in-memory class definition. It doubles as the reader model
// handed to the weaver and as the destination the weaver appends generated
// methods to.
type Class struct {
	Access  AccessFlags `cbor:"1,keyasint"`
	Name    string      `cbor:"2,keyasint"`
	Super   string      `cbor:"3,keyasint,omitempty"`
	Fields  []*Field    `cbor:"4,keyasint,omitempty"`
	Methods []*Method   `cbor:"5,keyasint,omitempty"`
}

// NewClass creates an empty class. An empty super defaults to java/lang/Object.
func NewClass(access AccessFlags, name, super string) *Class {
	if super == "" && name != ObjectClass {
		super = ObjectClass
	}
	return &Class{Access: access, Name: name, Super: super}
}

// Method returns the method with the given name and descriptor, or nil.
func (c *Class) Method(name, desc string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Desc == desc {
			return m
		}
	}
	return nil
}

// MethodsNamed returns all overloads of name in declaration order.
func (c *Class) MethodsNamed(name string) []*Method {
	var out []*Method
	for _, m := range c.Methods {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// Field returns the field with the given name, or nil.
func (c *Class) Field(name string) *Field {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// ThisReference returns the internal name generated code uses to call
// methods on the class itself.
func (c *Class) ThisReference() string {
	return c.Name
}

// SuperReference returns the internal name under which the original
// implementation of an overridden method stays reachable.
func (c *Class) SuperReference() string {
	return c.Super
}

// AddMethods appends methods in order. Either all methods are added or none:
// a duplicate name+descriptor, against existing methods or within the batch,
// rejects the whole batch.
func (c *Class) AddMethods(methods ...*Method) error {
	seen := make(map[string]bool, len(c.Methods)+len(methods))
	for _, m := range c.Methods {
		seen[m.Key()] = true
	}
	for _, m := range methods {
		if m == nil {
			return fmt.Errorf("class %s: nil method", c.Name)
		}
		if seen[m.Key()] {
			return fmt.Errorf("class %s: duplicate method %s%s", c.Name, m.Name, m.Desc)
		}
		seen[m.Key()] = true
	}
	c.Methods = append(c.Methods, methods...)
	return nil
}

// AddMembers appends fields and methods with the same all-or-nothing rule
// as AddMethods, applied to field names as well.
func (c *Class) AddMembers(fields []*Field, methods ...*Method) error {
	seen := make(map[string]bool, len(c.Fields)+len(fields))
	for _, f := range c.Fields {
		seen[f.Name] = true
	}
	for _, f := range fields {
		if f == nil {
			return fmt.Errorf("class %s: nil field", c.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("class %s: duplicate field %s", c.Name, f.Name)
		}
		seen[f.Name] = true
	}
	if err := c.AddMethods(methods...); err != nil {
		return err
	}
	c.Fields = append(c.Fields, fields...)
	return nil
}

// Members is a batch of fields and methods bound for one class.
type Members struct {
	Fields  []*Field  `cbor:"1,keyasint,omitempty"`
	Methods []*Method `cbor:"2,keyasint,omitempty"`
}

// Len returns the number of members. A nil batch is empty.
func (m *Members) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Fields) + len(m.Methods)
}

// AddField appends a field, rejecting duplicates.
func (c *Class) AddField(f *Field) error {
	if c.Field(f.Name) != nil {
		return fmt.Errorf("class %s: duplicate field %s", c.Name, f.Name)
	}
	c.Fields = append(c.Fields, f)
	return nil
}

// Clone returns a deep copy of c.
func (c *Class) Clone() *Class {
	out := &Class{Access: c.Access, Name: c.Name, Super: c.Super}
	for _, f := range c.Fields {
		fc := *f
		if f.Value != nil {
			v := *f.Value
			fc.Value = &v
		}
		out.Fields = append(out.Fields, &fc)
	}
	for _, m := range c.Methods {
		out.Methods = append(out.Methods, m.Clone())
	}
	return out
}
