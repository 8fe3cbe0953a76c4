package weave

import (
	"fmt"
)

// ChainPlan is the naming and linkage plan of one proxy chain. N aspects
// yield a delegate plus proxies p0..p(N-1); proxy i calls proxy i+1, and the
// last proxy calls the original implementation.
type ChainPlan struct {
	target  *MethodDescriptor
	aspects []*AspectDescriptor
	naming  Naming
}

// NewChainPlan validates the target and the aspect list. A final target
// fails with *FinalMethodError and a static one with *StaticMethodError.
// Aspect i must carry Index i.
func NewChainPlan(target *MethodDescriptor, aspects []*AspectDescriptor, naming Naming) (*ChainPlan, error) {
	if target == nil {
		return nil, fmt.Errorf("weave: nil target")
	}
	if err := naming.Validate(); err != nil {
		return nil, err
	}
	if target.Access().IsFinal() {
		return nil, &FinalMethodError{Method: target.Key()}
	}
	if target.Access().IsStatic() {
		return nil, &StaticMethodError{Method: target.Key()}
	}
	for i, a := range aspects {
		switch {
		case a == nil:
			return nil, fmt.Errorf("weave: %s: aspect %d is nil", target, i)
		case a.Source == nil:
			return nil, fmt.Errorf("weave: %s: aspect %s has no instruction source", target, a)
		case a.Index != i:
			return nil, fmt.Errorf("weave: %s: aspect %s at position %d has index %d", target, a, i, a.Index)
		}
	}
	return &ChainPlan{
		target:  target,
		aspects: append([]*AspectDescriptor(nil), aspects...),
		naming:  naming,
	}, nil
}

// Target returns the target method descriptor.
func (p *ChainPlan) Target() *MethodDescriptor { return p.target }

// Naming returns the naming conventions of the plan.
func (p *ChainPlan) Naming() Naming { return p.naming }

// Len returns the number of aspects, which is also the number of proxies.
func (p *ChainPlan) Len() int { return len(p.aspects) }

// Aspect returns the aspect at position i.
func (p *ChainPlan) Aspect(i int) *AspectDescriptor { return p.aspects[i] }

// MethodNameFor returns the name of proxy i.
func (p *ChainPlan) MethodNameFor(i int) string {
	return p.naming.ProxyName(p.target.Name(), i)
}

// IsLast reports whether proxy i is terminal.
func (p *ChainPlan) IsLast(i int) bool {
	return i == len(p.aspects)-1
}

// FirstMethodName returns the name the delegate calls.
func (p *ChainPlan) FirstMethodName() string {
	return p.MethodNameFor(0)
}

// NextMethodName returns the proxy that proxy i calls, or "" when i is
// terminal.
func (p *ChainPlan) NextMethodName(i int) string {
	if p.IsLast(i) {
		return ""
	}
	return p.MethodNameFor(i + 1)
}
