package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/chazu/aspectweave/manifest"
	bc "github.com/chazu/aspectweave/pkg/bytecode"
	"github.com/chazu/aspectweave/store"
	"github.com/chazu/aspectweave/weave"
)

// project is an assembled source tree plus the host classes woven into it.
type project struct {
	manifest *manifest.Manifest
	builder  *weave.Builder
	classes  []*bc.Class
	byName   map[string]*bc.Class
	hosts    []*bc.Class
}

// weaveReport summarizes one weave run.
type weaveReport struct {
	targets int
	cached  int
	lock    *manifest.LockFile
}

// loadProject assembles every source file of m.
func loadProject(m *manifest.Manifest) (*project, error) {
	naming := weave.DefaultNaming()
	if m.Naming.ProxySuffix != "" {
		naming.ProxySuffix = m.Naming.ProxySuffix
	}
	if m.Naming.MemberSeparator != "" {
		naming.MemberSeparator = m.Naming.MemberSeparator
	}
	if m.Naming.Marker != "" {
		naming.Marker = m.Naming.Marker
	}
	if err := naming.Validate(); err != nil {
		return nil, err
	}

	p := &project{
		manifest: m,
		builder:  weave.NewBuilder(weave.WithNaming(naming)),
		byName:   make(map[string]*bc.Class),
	}

	files, err := m.SourceFiles()
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(m.Dir, file)
		if err != nil {
			rel = file
		}
		classes, err := bc.Assemble(rel, string(data))
		if err != nil {
			return nil, fmt.Errorf("assemble %s: %w", rel, err)
		}
		for _, c := range classes {
			if err := p.add(c); err != nil {
				return nil, fmt.Errorf("%s: %w", rel, err)
			}
		}
		log.Debugf("assembled %s: %d class(es)", rel, len(classes))
	}
	return p, nil
}

func (p *project) add(c *bc.Class) error {
	if _, dup := p.byName[c.Name]; dup {
		return fmt.Errorf("class %s defined twice", c.Name)
	}
	p.byName[c.Name] = c
	p.classes = append(p.classes, c)
	return nil
}

// host returns the host class of g, creating a subclass of the target
// class with a no-argument constructor when the sources do not define one.
func (p *project) host(g manifest.HostGroup) (*bc.Class, error) {
	if _, ok := p.byName[g.Super]; !ok {
		return nil, fmt.Errorf("target class %s not found", g.Super)
	}
	if c, ok := p.byName[g.Host]; ok {
		if c.Super != g.Super {
			return nil, fmt.Errorf("host %s extends %s, not %s", g.Host, c.Super, g.Super)
		}
		return c, nil
	}

	c := bc.NewClass(bc.AccPublic, g.Host, g.Super)
	code := bc.NewCode()
	code.EmitLoad(bc.ReferenceType(g.Host), 0)
	code.EmitInvoke(bc.OpInvokespecial, g.Super, "<init>", "()V")
	code.EmitOp(bc.OpReturn)
	ctor := &bc.Method{
		Access:    bc.AccPublic,
		Name:      "<init>",
		Desc:      "()V",
		MaxLocals: 1,
		Code:      code.Instructions(),
	}
	if err := c.AddMethods(ctor); err != nil {
		return nil, err
	}
	if err := p.add(c); err != nil {
		return nil, err
	}
	log.Debugf("created host %s extends %s", g.Host, g.Super)
	return c, nil
}

// findMethod looks up ref in its owner class. Without a descriptor the
// name must be unambiguous.
func (p *project) findMethod(ref manifest.MemberRef) (*bc.Method, error) {
	c, ok := p.byName[ref.Owner]
	if !ok {
		return nil, fmt.Errorf("class %s not found", ref.Owner)
	}
	if ref.Desc != "" {
		if m := c.Method(ref.Name, ref.Desc); m != nil {
			return m, nil
		}
		return nil, fmt.Errorf("method %s not found", ref)
	}
	ms := c.MethodsNamed(ref.Name)
	switch len(ms) {
	case 0:
		return nil, fmt.Errorf("method %s not found", ref)
	case 1:
		return ms[0], nil
	}
	return nil, fmt.Errorf("method %s is overloaded; add a descriptor", ref)
}

// binding turns a resolved manifest binding into weaver input.
func (p *project) binding(rb manifest.ResolvedBinding) (weave.Binding, error) {
	tm, err := p.findMethod(rb.Target)
	if err != nil {
		return weave.Binding{}, err
	}
	target, err := weave.DescribeMethod(tm)
	if err != nil {
		return weave.Binding{}, err
	}
	b := weave.Binding{Target: target}
	for i, ref := range rb.Aspects {
		am, err := p.findMethod(ref)
		if err != nil {
			return weave.Binding{}, fmt.Errorf("aspect: %w", err)
		}
		b.Aspects = append(b.Aspects, weave.NewClassAspect(p.byName[ref.Owner], am, i))
	}
	return b, nil
}

// pending is one binding on its way into a host.
type pending struct {
	ref     manifest.ResolvedBinding
	input   bc.Digest
	methods []*bc.Method
	members *bc.Members
	cached  bool
}

// weave resolves the manifest bindings and weaves every host group.
// Bindings whose input digest is in cache reuse the stored methods and
// members; the rest are woven and stored. Both are committed to each host
// in manifest order either way.
func (p *project) weave(ctx context.Context, cache *store.Store) (*weaveReport, error) {
	groups, err := manifest.NewResolver(p.manifest).Resolve()
	if err != nil {
		return nil, err
	}

	report := &weaveReport{lock: &manifest.LockFile{}}
	naming := p.builder.Naming()
	for _, g := range groups {
		host, err := p.host(g)
		if err != nil {
			return nil, err
		}
		p.hosts = append(p.hosts, host)

		items := make([]*pending, len(g.Bindings))
		var todo []weave.Binding
		var todoItems []*pending
		for i, rb := range g.Bindings {
			b, err := p.binding(rb)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", rb.Target, err)
			}
			input, err := weave.InputDigest(b.Target, b.Aspects, host.ThisReference(), host.SuperReference(), naming)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", rb.Target, err)
			}
			it := &pending{ref: rb, input: input}
			items[i] = it

			if cache != nil {
				e, err := cache.Get(input)
				switch {
				case err == nil:
					it.methods, it.members, it.cached = e.Methods, e.Members, true
					log.Infof("%s: cached", rb.Target)
					continue
				case !errors.Is(err, store.ErrNotFound):
					return nil, err
				}
			}
			todo = append(todo, b)
			todoItems = append(todoItems, it)
		}

		// Weave against a scratch copy; the real host receives every
		// binding's methods below, in order.
		results, err := p.builder.WeaveClass(ctx, host.Clone(), todo)
		if err != nil {
			return nil, err
		}
		for i, r := range results {
			todoItems[i].methods = weave.Methods(r.Methods)
			todoItems[i].members = r.Members
		}

		for _, it := range items {
			if err := weave.Commit(host, it.methods, it.members); err != nil {
				return nil, fmt.Errorf("%s: %w", it.ref.Target, err)
			}
			out, err := bc.MethodsDigest(it.methods)
			if err != nil {
				return nil, err
			}
			if cache != nil && !it.cached {
				if _, err := cache.Put(it.input, it.methods, it.members); err != nil {
					return nil, err
				}
			}
			if it.cached {
				report.cached++
			}
			report.targets++
			report.lock.Set(manifest.LockedTarget{
				Target: it.ref.Target.String(),
				Host:   host.Name,
				Input:  it.input.String(),
				Output: out.String(),
			})
		}
	}
	return report, nil
}

// writeOutput writes every class, sources first then generated hosts, as
// one CBOR class set.
func (p *project) writeOutput(path string) error {
	data, err := bc.MarshalClasses(p.classes)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// runEntry instantiates the owner of entry and invokes the method with
// args converted to its parameter types. Static methods are invoked
// without an instance.
func (p *project) runEntry(entry string, args []string, stdout io.Writer) (bc.Value, error) {
	ref, err := manifest.ParseMemberRef(entry)
	if err != nil {
		return nil, err
	}
	m, err := p.lookupVirtual(ref)
	if err != nil {
		return nil, err
	}
	params, _, err := bc.ParseMethodType(m.Desc)
	if err != nil {
		return nil, err
	}
	if len(params) != len(args) {
		return nil, fmt.Errorf("%s%s takes %d argument(s), got %d", ref.Name, m.Desc, len(params), len(args))
	}
	values := make([]bc.Value, len(args))
	for i, a := range args {
		if values[i], err = parseArg(params[i], a); err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
	}

	vm, err := bc.NewVM(p.classes...)
	if err != nil {
		return nil, err
	}
	vm.Stdout = stdout
	if m.Access.IsStatic() {
		return vm.InvokeStatic(ref.Owner, ref.Name, m.Desc, values...)
	}
	obj, err := vm.New(ref.Owner)
	if err != nil {
		return nil, err
	}
	return vm.Invoke(obj, ref.Name, m.Desc, values...)
}

// lookupVirtual finds ref in its owner or the nearest superclass that
// declares it.
func (p *project) lookupVirtual(ref manifest.MemberRef) (*bc.Method, error) {
	for owner := ref.Owner; owner != ""; {
		c, ok := p.byName[owner]
		if !ok {
			break
		}
		if ref.Desc != "" {
			if m := c.Method(ref.Name, ref.Desc); m != nil {
				return m, nil
			}
		} else if len(c.MethodsNamed(ref.Name)) > 0 {
			r := ref
			r.Owner = owner
			return p.findMethod(r)
		}
		owner = c.Super
	}
	return nil, fmt.Errorf("method %s not found", ref)
}

func parseArg(t bc.Type, s string) (bc.Value, error) {
	switch t {
	case bc.StringType, bc.ObjectType:
		return s, nil
	case bc.Int, bc.Short, bc.Byte, bc.Char:
		n, err := strconv.ParseInt(s, 10, 32)
		return int32(n), err
	case bc.Boolean:
		b, err := strconv.ParseBool(s)
		if b {
			return int32(1), err
		}
		return int32(0), err
	case bc.Long:
		return strconv.ParseInt(s, 10, 64)
	case bc.Double:
		return strconv.ParseFloat(s, 64)
	case bc.Float:
		f, err := strconv.ParseFloat(s, 32)
		return float32(f), err
	}
	return nil, fmt.Errorf("cannot pass %q as %s", s, t)
}
