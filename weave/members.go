package weave

import (
	"fmt"

	bc "github.com/chazu/aspectweave/pkg/bytecode"
)

// MemberDestination is a Destination that can also receive the fields and
// helper methods of advice classes.
type MemberDestination interface {
	Destination
	Field(name string) *bc.Field
	Method(name, desc string) *bc.Method
	// AddMembers appends all fields and methods or none.
	AddMembers(fields []*bc.Field, methods ...*bc.Method) error
}

// Members copies the fields and helper methods of aspects for host. Names
// become <name>$<index> and references to the advice class are redirected
// onto host, as in proxy bodies. Members repeated across aspects must be
// identical; a different definition under the same name is an error.
func (b *Builder) Members(aspects []*AspectDescriptor, host string) (*bc.Members, error) {
	out := &bc.Members{}
	for _, a := range aspects {
		for _, f := range a.Fields {
			fc := *f
			fc.Name = b.naming.MemberName(f.Name, a.Index)
			if err := addField(out, host, &fc); err != nil {
				return nil, err
			}
		}
		for _, m := range a.Helpers {
			h, err := rewriteHelper(a, m, host, b.naming)
			if err != nil {
				return nil, err
			}
			if err := addMethod(out, host, h); err != nil {
				return nil, err
			}
		}
	}
	if out.Len() == 0 {
		return nil, nil
	}
	return out, nil
}

// rewriteHelper renames m into its host form and redirects references to
// its own class. Helpers are plain methods: their slots stay put and the
// marker vocabulary is not available to them.
func rewriteHelper(a *AspectDescriptor, m *bc.Method, host string, naming Naming) (*bc.Method, error) {
	h := m.Clone()
	h.Name = naming.MemberName(m.Name, a.Index)
	for i := range h.Code {
		in := &h.Code[i]
		switch in.Shape() {
		case bc.ShapeField, bc.ShapeMethod:
			if naming.IsMarker(in.Owner) {
				return nil, &MalformedAdviceError{
					Aspect: a.String(),
					Offset: i,
					Reason: fmt.Sprintf("helper %s%s uses %s.%s", m.Name, m.Desc, in.Owner, in.Name),
				}
			}
			if in.Owner == a.SelfReference && in.Name != "<init>" {
				in.Owner = host
				in.Name = naming.MemberName(in.Name, a.Index)
			}
		case bc.ShapeLocalVar:
			if in.Operand == 0 && in.Desc == string(bc.ReferenceType(a.SelfReference)) {
				in.Desc = string(bc.ReferenceType(host))
			}
		}
	}
	return h, nil
}

func addField(ms *bc.Members, host string, f *bc.Field) error {
	for _, have := range ms.Fields {
		if have.Name != f.Name {
			continue
		}
		if !sameField(have, f) {
			return &MemberConflictError{Host: host, Member: f.Name}
		}
		return nil
	}
	ms.Fields = append(ms.Fields, f)
	return nil
}

func addMethod(ms *bc.Members, host string, m *bc.Method) error {
	for _, have := range ms.Methods {
		if have.Key() != m.Key() {
			continue
		}
		same, err := sameMethod(have, m)
		if err != nil {
			return err
		}
		if !same {
			return &MemberConflictError{Host: host, Member: m.Key()}
		}
		return nil
	}
	ms.Methods = append(ms.Methods, m)
	return nil
}

func sameField(a, b *bc.Field) bool {
	if a.Access != b.Access || a.Desc != b.Desc {
		return false
	}
	if a.Value == nil || b.Value == nil {
		return a.Value == b.Value
	}
	return *a.Value == *b.Value
}

func sameMethod(a, b *bc.Method) (bool, error) {
	da, err := bc.MethodDigest(a)
	if err != nil {
		return false, err
	}
	db, err := bc.MethodDigest(b)
	if err != nil {
		return false, err
	}
	return da == db, nil
}

// Commit adds methods and members to dest in one step, so either all of
// them land or none do. Members dest already holds with an identical
// definition are skipped, which lets several chains share one aspect's
// members. A member batch needs a MemberDestination.
func Commit(dest Destination, methods []*bc.Method, members *bc.Members) error {
	if members.Len() == 0 {
		return dest.AddMethods(methods...)
	}
	md, ok := dest.(MemberDestination)
	if !ok {
		return fmt.Errorf("%s cannot receive advice members", dest.ThisReference())
	}

	var fields []*bc.Field
	for _, f := range members.Fields {
		if have := md.Field(f.Name); have != nil {
			if !sameField(have, f) {
				return &MemberConflictError{Host: dest.ThisReference(), Member: f.Name}
			}
			continue
		}
		fields = append(fields, f)
	}
	all := append([]*bc.Method(nil), methods...)
	for _, m := range members.Methods {
		if have := md.Method(m.Name, m.Desc); have != nil {
			same, err := sameMethod(have, m)
			if err != nil {
				return err
			}
			if !same {
				return &MemberConflictError{Host: dest.ThisReference(), Member: m.Key()}
			}
			continue
		}
		all = append(all, m)
	}
	return md.AddMembers(fields, all...)
}
