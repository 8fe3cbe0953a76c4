package weave

import (
	"fmt"

	"github.com/tliron/commonlog"

	bc "github.com/chazu/aspectweave/pkg/bytecode"
)

var log = commonlog.GetLogger("aspectweave.weave")

// Destination is the class receiving generated methods.
type Destination interface {
	// ThisReference is the internal name of the destination class.
	ThisReference() string
	// SuperReference is the internal name through which the original
	// implementation stays reachable with invokespecial.
	SuperReference() string
	// AddMethods appends all methods or none.
	AddMethods(methods ...*bc.Method) error
}

// Kind distinguishes the two sorts of generated methods.
type Kind int

const (
	DelegateMethod Kind = iota
	ProxyMethod
)

func (k Kind) String() string {
	if k == ProxyMethod {
		return "proxy"
	}
	return "delegate"
}

// GeneratedMethod is one method produced by a weave.
type GeneratedMethod struct {
	*bc.Method
	Kind Kind
	// Position is the proxy index, or -1 for the delegate.
	Position int
	// Terminal is set on the proxy that calls the original implementation.
	Terminal bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithNaming overrides the naming conventions.
func WithNaming(n Naming) Option {
	return func(b *Builder) { b.naming = n }
}

// Builder weaves proxy chains. It holds only read-only configuration and is
// safe for concurrent use.
type Builder struct {
	naming Naming
}

// NewBuilder creates a Builder using the default naming unless overridden.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{naming: DefaultNaming()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Naming returns the naming conventions of the builder.
func (b *Builder) Naming() Naming { return b.naming }

// Plan validates target and aspects into a chain plan.
func (b *Builder) Plan(target *MethodDescriptor, aspects []*AspectDescriptor) (*ChainPlan, error) {
	return NewChainPlan(target, aspects, b.naming)
}

// Build generates the delegate and proxies for target without touching
// dest beyond reading its references. It returns nil when aspects is empty.
func (b *Builder) Build(dest Destination, target *MethodDescriptor, aspects []*AspectDescriptor) ([]*GeneratedMethod, error) {
	plan, err := b.Plan(target, aspects)
	if err != nil {
		return nil, err
	}
	if plan.Len() == 0 {
		return nil, nil
	}
	return b.BuildPlan(plan, dest.ThisReference(), dest.SuperReference())
}

// BuildPlan generates the methods of plan for the given host and super
// references.
func (b *Builder) BuildPlan(plan *ChainPlan, host, super string) ([]*GeneratedMethod, error) {
	if plan.Len() == 0 {
		return nil, nil
	}
	out := make([]*GeneratedMethod, 0, plan.Len()+1)
	out = append(out, buildDelegate(plan, host))

	for i := 0; i < plan.Len(); i++ {
		m, err := buildProxy(plan, i, host, super)
		if err != nil {
			return nil, fmt.Errorf("weave %s: %w", plan.Target(), err)
		}
		out = append(out, m)
	}
	return out, nil
}

// Weave builds the chain for target and commits it to dest in one step:
// delegate first, then proxies in order, then the advice members. On error
// dest is unchanged.
func (b *Builder) Weave(dest Destination, target *MethodDescriptor, aspects []*AspectDescriptor) ([]*GeneratedMethod, error) {
	gen, err := b.Build(dest, target, aspects)
	if err != nil {
		return nil, err
	}
	if len(gen) == 0 {
		log.Debugf("%s: no aspects, nothing to weave", target)
		return nil, nil
	}
	members, err := b.Members(aspects, dest.ThisReference())
	if err != nil {
		return nil, fmt.Errorf("weave %s: %w", target, err)
	}
	if err := Commit(dest, Methods(gen), members); err != nil {
		return nil, fmt.Errorf("weave %s: %w", target, err)
	}
	log.Infof("wove %s into %s with %d aspect(s)", target, dest.ThisReference(), len(aspects))
	return gen, nil
}

// Methods unwraps generated methods in order.
func Methods(gen []*GeneratedMethod) []*bc.Method {
	out := make([]*bc.Method, len(gen))
	for i, g := range gen {
		out[i] = g.Method
	}
	return out
}

// buildDelegate mirrors the target: same name, descriptor and visibility,
// forwarding every argument to the first proxy.
func buildDelegate(plan *ChainPlan, host string) *GeneratedMethod {
	target := plan.Target()
	code := bc.NewCode()
	loadSpecialArguments(code, target)
	code.EmitInvoke(bc.OpInvokespecial, host, plan.FirstMethodName(), target.Desc())
	code.EmitOp(target.Return().ReturnOp())

	m := &bc.Method{
		Access:            target.Access() &^ (bc.AccNative | bc.AccAbstract),
		Name:              target.Name(),
		Desc:              target.Desc(),
		Signature:         target.Signature(),
		Exceptions:        target.Exceptions(),
		Annotations:       target.Annotations(),
		AnnotationDefault: target.AnnotationDefault(),
		ParamAnnotations:  target.ParamAnnotations(),
		Code:              code.Instructions(),
	}
	m.MaxLocals = m.MaxLocalSlot() + 1
	log.Debugf("delegate %s -> %s.%s", target, host, plan.FirstMethodName())
	return &GeneratedMethod{Method: m, Kind: DelegateMethod, Position: -1}
}

// proxyAccess derives the access flags of a proxy from the target's.
func proxyAccess(target bc.AccessFlags) bc.AccessFlags {
	return target&^(bc.AccPublic|bc.AccProtected|bc.AccNative|bc.AccAbstract) | bc.AccPrivate | bc.AccFinal
}

func buildProxy(plan *ChainPlan, i int, host, super string) (*GeneratedMethod, error) {
	aspect := plan.Aspect(i)
	advice, err := aspect.Source.Instructions()
	if err != nil {
		return nil, fmt.Errorf("aspect %s: %w", aspect, err)
	}

	ctx := NewAspectContext(plan, i, host, super)
	code, err := ctx.RewriteAdvice(advice)
	if err != nil {
		return nil, err
	}

	target := plan.Target()
	m := &bc.Method{
		Access:     proxyAccess(target.Access()),
		Name:       plan.MethodNameFor(i),
		Desc:       target.Desc(),
		Exceptions: target.Exceptions(),
		Code:       code,
	}
	m.MaxLocals = m.MaxLocalSlot() + 1
	log.Debugf("proxy %s from %s (%d -> %d instructions)", m.Name, aspect, len(advice), len(code))
	return &GeneratedMethod{Method: m, Kind: ProxyMethod, Position: i, Terminal: plan.IsLast(i)}, nil
}

// weaveInput is the canonical form of everything a weave depends on.
type weaveInput struct {
	Host    string        `cbor:"1,keyasint"`
	Super   string        `cbor:"2,keyasint"`
	Naming  Naming        `cbor:"3,keyasint"`
	Target  *bc.Method    `cbor:"4,keyasint"`
	Aspects []aspectInput `cbor:"5,keyasint,omitempty"`
}

type aspectInput struct {
	Self         string           `cbor:"1,keyasint"`
	MaxLocalSlot int              `cbor:"2,keyasint"`
	Index        int              `cbor:"3,keyasint"`
	Code         []bc.Instruction `cbor:"4,keyasint,omitempty"`
	Fields       []*bc.Field      `cbor:"5,keyasint,omitempty"`
	Helpers      []*bc.Method     `cbor:"6,keyasint,omitempty"`
}

// InputDigest hashes the inputs of a weave. Equal digests produce equal
// output. It reads every aspect source, so it suits re-readable sources
// such as SliceSource.
func InputDigest(target *MethodDescriptor, aspects []*AspectDescriptor, host, super string, naming Naming) (bc.Digest, error) {
	in := weaveInput{
		Host:   host,
		Super:  super,
		Naming: naming,
		Target: &bc.Method{
			Access:            target.Access(),
			Name:              target.Name(),
			Desc:              target.Desc(),
			Signature:         target.Signature(),
			Exceptions:        target.Exceptions(),
			Annotations:       target.Annotations(),
			AnnotationDefault: target.AnnotationDefault(),
			ParamAnnotations:  target.ParamAnnotations(),
		},
	}
	for _, a := range aspects {
		code, err := a.Source.Instructions()
		if err != nil {
			return bc.Digest{}, fmt.Errorf("digest aspect %s: %w", a, err)
		}
		in.Aspects = append(in.Aspects, aspectInput{
			Self:         a.SelfReference,
			MaxLocalSlot: a.MaxLocalSlot,
			Index:        a.Index,
			Code:         code,
			Fields:       a.Fields,
			Helpers:      a.Helpers,
		})
	}
	return bc.DigestOf(&in)
}
