package weave

import (
	"fmt"
	"strconv"
	"strings"
)

// Naming holds the naming conventions of generated code. It is a value
// type; DefaultNaming is never mutated.
type Naming struct {
	// ProxySuffix joins the target name and the proxy position: name$p0.
	ProxySuffix string
	// MemberSeparator joins advice member names and the aspect index: count$1.
	MemberSeparator string
	// Marker is the type whose static methods form the meta-call vocabulary.
	// A simple name matches any package; a name containing '/' must match
	// exactly.
	Marker string
}

var defaultNaming = Naming{
	ProxySuffix:     "$p",
	MemberSeparator: "$",
	Marker:          "ProxyTarget",
}

// DefaultNaming returns the standard naming conventions.
func DefaultNaming() Naming {
	return defaultNaming
}

// Validate checks that every field is set.
func (n Naming) Validate() error {
	switch {
	case n.ProxySuffix == "":
		return fmt.Errorf("weave: naming: empty proxy suffix")
	case n.MemberSeparator == "":
		return fmt.Errorf("weave: naming: empty member separator")
	case n.Marker == "":
		return fmt.Errorf("weave: naming: empty marker type")
	}
	return nil
}

// ProxyName returns the name of the proxy method at position i.
func (n Naming) ProxyName(target string, i int) string {
	return target + n.ProxySuffix + strconv.Itoa(i)
}

// MemberName returns the aspect-scoped name of an advice field or method.
func (n Naming) MemberName(name string, aspectIndex int) string {
	return name + n.MemberSeparator + strconv.Itoa(aspectIndex)
}

// IsMarker reports whether owner is the meta-call marker type.
func (n Naming) IsMarker(owner string) bool {
	if strings.Contains(n.Marker, "/") {
		return owner == n.Marker
	}
	return owner == n.Marker || strings.HasSuffix(owner, "/"+n.Marker)
}
