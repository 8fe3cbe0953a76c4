package weave

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	bc "github.com/chazu/aspectweave/pkg/bytecode"
)

// Binding pairs one target method with its matched aspects, outermost
// first.
type Binding struct {
	Target  *MethodDescriptor
	Aspects []*AspectDescriptor
}

// Result is the outcome of one binding in WeaveClass.
type Result struct {
	Binding Binding
	Methods []*GeneratedMethod
	// Members are the advice fields and helpers the chain needs on dest.
	Members *bc.Members
	Err     error
}

// WeaveClass weaves every binding into dest. Chains are built concurrently
// and committed in binding order from the calling goroutine. A failing
// binding leaves no methods or members in dest and does not stop the
// others; all failures are joined into the returned error. Context
// cancellation stops pending builds.
func (b *Builder) WeaveClass(ctx context.Context, dest Destination, bindings []Binding) ([]Result, error) {
	host, super := dest.ThisReference(), dest.SuperReference()
	results := make([]Result, len(bindings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range bindings {
		i := i
		results[i].Binding = bindings[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			bd := bindings[i]
			plan, err := b.Plan(bd.Target, bd.Aspects)
			if err != nil {
				results[i].Err = err
				return nil
			}
			gen, err := b.BuildPlan(plan, host, super)
			if err != nil {
				results[i].Err = err
				return nil
			}
			if len(gen) > 0 {
				results[i].Members, err = b.Members(bd.Aspects, host)
				if err != nil {
					results[i].Err = fmt.Errorf("weave %s: %w", bd.Target, err)
					return nil
				}
			}
			results[i].Methods = gen
			return nil
		})
	}
	// Builds report through results; the group itself never fails.
	_ = g.Wait()

	var errs []error
	for i := range results {
		r := &results[i]
		if r.Err == nil && len(r.Methods) > 0 {
			if err := Commit(dest, Methods(r.Methods), r.Members); err != nil {
				r.Err = fmt.Errorf("weave %s: %w", r.Binding.Target, err)
			} else {
				log.Infof("wove %s into %s with %d aspect(s)", r.Binding.Target, host, len(r.Binding.Aspects))
			}
		}
		if r.Err != nil {
			r.Methods, r.Members = nil, nil
			log.Errorf("%s", r.Err)
			errs = append(errs, r.Err)
		}
	}
	return results, errors.Join(errs...)
}
