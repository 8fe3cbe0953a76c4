package weave

import (
	"fmt"
	"sync"

	"github.com/chazu/aspectweave/pkg/bytecode"
)

// InstructionSource produces an advice body.
type InstructionSource interface {
	Instructions() ([]bytecode.Instruction, error)
}

// SliceSource is a re-readable source backed by a fixed instruction slice.
// Every read returns an independent copy.
type SliceSource []bytecode.Instruction

func (s SliceSource) Instructions() ([]bytecode.Instruction, error) {
	return bytecode.CloneCode(s), nil
}

// OnceSource hands out its instructions exactly once. Later reads fail
// with ErrSourceConsumed.
type OnceSource struct {
	mu   sync.Mutex
	code []bytecode.Instruction
	used bool
}

// NewOnceSource wraps code in a read-once source.
func NewOnceSource(code []bytecode.Instruction) *OnceSource {
	return &OnceSource{code: code}
}

func (s *OnceSource) Instructions() ([]bytecode.Instruction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.used {
		return nil, ErrSourceConsumed
	}
	s.used = true
	code := s.code
	s.code = nil
	return code, nil
}

// AspectDescriptor is one matched aspect for one target method.
type AspectDescriptor struct {
	// Name identifies the aspect in errors and logs.
	Name string
	// SelfReference is the internal name of the advice's own class. Field
	// and method references to it are redirected onto the host.
	SelfReference string
	// Source yields the advice body.
	Source InstructionSource
	// MaxLocalSlot is the highest local slot the advice body uses.
	MaxLocalSlot int
	// Index is the aspect's 0-based position among the matched aspects.
	Index int
	// Fields and Helpers are the advice class's own members. They are
	// copied onto the host as <name>$<Index>.
	Fields  []*bytecode.Field
	Helpers []*bytecode.Method
}

// NewAspect describes the advice method advice declared in class self,
// matched at position index. The body is captured in a SliceSource.
func NewAspect(self string, advice *bytecode.Method, index int) *AspectDescriptor {
	return &AspectDescriptor{
		Name:          self + "." + advice.Name,
		SelfReference: self,
		Source:        SliceSource(bytecode.CloneCode(advice.Code)),
		MaxLocalSlot:  advice.MaxLocalSlot(),
		Index:         index,
	}
}

// NewClassAspect is NewAspect plus the fields and methods of class that
// the advice may reference: every method other than the advice itself and
// the initializers.
func NewClassAspect(class *bytecode.Class, advice *bytecode.Method, index int) *AspectDescriptor {
	a := NewAspect(class.Name, advice, index)
	for _, f := range class.Fields {
		fc := *f
		if f.Value != nil {
			v := *f.Value
			fc.Value = &v
		}
		a.Fields = append(a.Fields, &fc)
	}
	for _, m := range class.Methods {
		if m.Key() == advice.Key() || m.Name == "<init>" || m.Name == "<clinit>" {
			continue
		}
		a.Helpers = append(a.Helpers, m.Clone())
	}
	return a
}

func (a *AspectDescriptor) String() string {
	if a.Name != "" {
		return a.Name
	}
	return fmt.Sprintf("%s#%d", a.SelfReference, a.Index)
}
