package manifest

import (
	"fmt"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("aspectweave.manifest")

// DefaultAdviceDesc is assumed for aspect references without a descriptor.
const DefaultAdviceDesc = "()Ljava/lang/Object;"

// ResolvedBinding is a [[weave]] entry with every reference parsed and
// the host filled in.
type ResolvedBinding struct {
	Target  MemberRef
	Host    string
	Aspects []MemberRef
}

// HostGroup collects the bindings woven into one host class.
type HostGroup struct {
	Host     string
	Super    string
	Bindings []ResolvedBinding
}

// Resolver turns manifest bindings into host groups.
type Resolver struct {
	manifest *Manifest
}

// NewResolver creates a resolver for m.
func NewResolver(m *Manifest) *Resolver {
	return &Resolver{manifest: m}
}

// Resolve parses every binding and groups them by host in first-seen
// order. Bindings keep their manifest order within a group.
func (r *Resolver) Resolve() ([]HostGroup, error) {
	var groups []HostGroup
	index := make(map[string]int)
	seen := make(map[string]bool)

	for i, b := range r.manifest.Weave {
		rb, err := r.resolveOne(b)
		if err != nil {
			return nil, fmt.Errorf("weave entry %d: %w", i+1, err)
		}

		key := rb.Host + " " + rb.Target.String()
		if seen[key] {
			return nil, fmt.Errorf("weave entry %d: %s bound twice into %s", i+1, rb.Target, rb.Host)
		}
		seen[key] = true

		gi, ok := index[rb.Host]
		if !ok {
			gi = len(groups)
			index[rb.Host] = gi
			groups = append(groups, HostGroup{Host: rb.Host, Super: rb.Target.Owner})
		}
		if groups[gi].Super != rb.Target.Owner {
			return nil, fmt.Errorf("weave entry %d: host %s already extends %s, not %s",
				i+1, rb.Host, groups[gi].Super, rb.Target.Owner)
		}
		groups[gi].Bindings = append(groups[gi].Bindings, rb)
		log.Debugf("binding %s -> %s with %d aspect(s)", rb.Target, rb.Host, len(rb.Aspects))
	}
	return groups, nil
}

func (r *Resolver) resolveOne(b Binding) (ResolvedBinding, error) {
	target, err := ParseMemberRef(b.Target)
	if err != nil {
		return ResolvedBinding{}, err
	}
	if IsReservedPackage(target.Owner) {
		return ResolvedBinding{}, fmt.Errorf("target %s is in a platform package", target)
	}

	host := b.Host
	if host == "" {
		host = target.Owner + r.manifest.Naming.HostSuffix
	}
	if IsReservedPackage(host) {
		return ResolvedBinding{}, fmt.Errorf("host %s is in a platform package", host)
	}
	if host == target.Owner {
		return ResolvedBinding{}, fmt.Errorf("host %s is the target class itself", host)
	}

	rb := ResolvedBinding{Target: target, Host: host}
	for _, a := range b.Aspects {
		ref, err := ParseMemberRef(a)
		if err != nil {
			return ResolvedBinding{}, fmt.Errorf("aspect: %w", err)
		}
		if ref.Desc == "" {
			ref.Desc = DefaultAdviceDesc
		}
		rb.Aspects = append(rb.Aspects, ref)
	}
	return rb, nil
}
