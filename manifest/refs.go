package manifest

import (
	"fmt"
	"strings"
)

// MemberRef names a method by internal class name, method name and an
// optional descriptor.
type MemberRef struct {
	Owner string
	Name  string
	Desc  string
}

// ParseMemberRef parses "pkg/Class.name" or "pkg/Class.name(desc)ret".
// Dotted class names ("pkg.Class") are not accepted: the last dot always
// separates the member name.
func ParseMemberRef(s string) (MemberRef, error) {
	ref, desc := s, ""
	if paren := strings.IndexByte(s, '('); paren >= 0 {
		ref, desc = s[:paren], s[paren:]
	}
	dot := strings.LastIndexByte(ref, '.')
	if dot <= 0 || dot == len(ref)-1 {
		return MemberRef{}, fmt.Errorf("invalid member reference %q: want owner.name", s)
	}
	if desc != "" && !strings.Contains(desc, ")") {
		return MemberRef{}, fmt.Errorf("invalid member reference %q: unterminated descriptor", s)
	}
	return MemberRef{Owner: ref[:dot], Name: ref[dot+1:], Desc: desc}, nil
}

func (r MemberRef) String() string {
	return r.Owner + "." + r.Name + r.Desc
}

// reservedPackages lists package prefixes whose classes must not be used
// as weave hosts or targets.
var reservedPackages = []string{
	"java/",
	"javax/",
	"jdk/",
	"sun/",
}

// IsReservedPackage reports whether the internal class name belongs to a
// platform package.
func IsReservedPackage(class string) bool {
	for _, p := range reservedPackages {
		if strings.HasPrefix(class, p) {
			return true
		}
	}
	return false
}
