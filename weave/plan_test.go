package weave

import (
	"errors"
	"testing"

	bc "github.com/chazu/aspectweave/pkg/bytecode"
)

func TestNaming(t *testing.T) {
	n := DefaultNaming()
	if got := n.ProxyName("greet", 0); got != "greet$p0" {
		t.Errorf("ProxyName = %s", got)
	}
	if got := n.ProxyName("greet", 12); got != "greet$p12" {
		t.Errorf("ProxyName = %s", got)
	}
	if got := n.MemberName("count", 3); got != "count$3" {
		t.Errorf("MemberName = %s", got)
	}

	markers := []struct {
		marker, owner string
		want          bool
	}{
		{"ProxyTarget", "ProxyTarget", true},
		{"ProxyTarget", "com/acme/ProxyTarget", true},
		{"ProxyTarget", "com/acme/NotProxyTarget", false},
		{"ProxyTarget", "ProxyTargetX", false},
		{"com/acme/ProxyTarget", "com/acme/ProxyTarget", true},
		{"com/acme/ProxyTarget", "org/ProxyTarget", false},
	}
	for _, tt := range markers {
		n := Naming{ProxySuffix: "$p", MemberSeparator: "$", Marker: tt.marker}
		if got := n.IsMarker(tt.owner); got != tt.want {
			t.Errorf("IsMarker(%s) with marker %s = %v, want %v", tt.owner, tt.marker, got, tt.want)
		}
	}
}

func TestNamingValidate(t *testing.T) {
	if err := DefaultNaming().Validate(); err != nil {
		t.Fatalf("default naming invalid: %v", err)
	}
	for _, n := range []Naming{
		{MemberSeparator: "$", Marker: "M"},
		{ProxySuffix: "$p", Marker: "M"},
		{ProxySuffix: "$p", MemberSeparator: "$"},
	} {
		if err := n.Validate(); err == nil {
			t.Errorf("Validate(%+v) succeeded", n)
		}
	}
}

func TestSlotMap(t *testing.T) {
	for _, width := range []int{0, 1, 2, 5} {
		m := NewSlotMap(width)
		if m.Map(0) != 0 {
			t.Errorf("width %d: slot 0 moved to %d", width, m.Map(0))
		}
		seen := make(map[int]int)
		prev := -1
		for s := 0; s < 64; s++ {
			got := m.Map(s)
			if other, dup := seen[got]; dup {
				t.Fatalf("width %d: slots %d and %d both map to %d", width, other, s, got)
			}
			seen[got] = s
			if got <= prev {
				t.Errorf("width %d: Map(%d) = %d not above %d", width, s, got, prev)
			}
			prev = got
			if s > 0 && got >= 1 && got <= width {
				t.Errorf("width %d: Map(%d) = %d lands on an argument slot", width, s, got)
			}
		}
	}
}

func TestMethodDescriptor(t *testing.T) {
	d, err := NewMethodDescriptor("mix", bc.AccPublic, "(IJLjava/lang/String;D[I)V")
	if err != nil {
		t.Fatal(err)
	}
	if d.ArgumentsCount() != 5 || d.ArgumentSlotWidth() != 7 {
		t.Errorf("count %d width %d", d.ArgumentsCount(), d.ArgumentSlotWidth())
	}
	wantSlots := []int{1, 2, 4, 5, 7}
	for i, want := range wantSlots {
		if got := d.ArgumentSlot(i + 1); got != want {
			t.Errorf("ArgumentSlot(%d) = %d, want %d", i+1, got, want)
		}
	}
	if d.ArgumentType(3) != bc.StringType || d.Return() != bc.Void {
		t.Errorf("types: %s, %s", d.ArgumentType(3), d.Return())
	}
	if d.InRange(0) || !d.InRange(5) || d.InRange(6) {
		t.Error("InRange bounds wrong")
	}

	params := d.Params()
	params[0] = bc.Double
	if d.ArgumentType(1) != bc.Int {
		t.Error("Params exposes internal state")
	}

	if _, err := NewMethodDescriptor("bad", 0, "(Q)V"); err == nil {
		t.Error("expected descriptor error")
	}
	if _, err := NewMethodDescriptor("", 0, "()V"); err == nil {
		t.Error("expected empty name error")
	}
}

func TestChainPlan(t *testing.T) {
	target, _ := NewMethodDescriptor("greet", bc.AccPublic, "()V")
	aspects := []*AspectDescriptor{
		{SelfReference: "demo/A", Source: SliceSource(nil), Index: 0},
		{SelfReference: "demo/B", Source: SliceSource(nil), Index: 1},
		{SelfReference: "demo/C", Source: SliceSource(nil), Index: 2},
	}
	p, err := NewChainPlan(target, aspects, DefaultNaming())
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 3 || p.FirstMethodName() != "greet$p0" {
		t.Errorf("Len %d first %s", p.Len(), p.FirstMethodName())
	}
	for i, want := range []string{"greet$p1", "greet$p2", ""} {
		if got := p.NextMethodName(i); got != want {
			t.Errorf("NextMethodName(%d) = %q, want %q", i, got, want)
		}
		if p.IsLast(i) != (i == 2) {
			t.Errorf("IsLast(%d) = %v", i, p.IsLast(i))
		}
	}

	aspects[0] = nil
	if p.Aspect(0) == nil {
		t.Error("plan shares the caller's aspect slice")
	}
}

func TestChainPlanErrors(t *testing.T) {
	final, _ := NewMethodDescriptor("f", bc.AccPublic|bc.AccFinal, "()V")
	static, _ := NewMethodDescriptor("s", bc.AccStatic, "()V")
	plain, _ := NewMethodDescriptor("p", bc.AccPublic, "()V")
	ok := &AspectDescriptor{SelfReference: "demo/A", Source: SliceSource(nil)}

	if _, err := NewChainPlan(final, nil, DefaultNaming()); !errors.As(err, new(*FinalMethodError)) {
		t.Errorf("final: %v", err)
	}
	if _, err := NewChainPlan(static, nil, DefaultNaming()); !errors.As(err, new(*StaticMethodError)) {
		t.Errorf("static: %v", err)
	}
	bad := []struct {
		name    string
		target  *MethodDescriptor
		aspects []*AspectDescriptor
		naming  Naming
	}{
		{"nil target", nil, nil, DefaultNaming()},
		{"bad naming", plain, nil, Naming{}},
		{"nil aspect", plain, []*AspectDescriptor{nil}, DefaultNaming()},
		{"no source", plain, []*AspectDescriptor{{SelfReference: "demo/A"}}, DefaultNaming()},
		{"index mismatch", plain, []*AspectDescriptor{ok, ok}, DefaultNaming()},
	}
	for _, tt := range bad {
		if _, err := NewChainPlan(tt.target, tt.aspects, tt.naming); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestSources(t *testing.T) {
	code := []bc.Instruction{bc.LdcInsn(bc.StringConst("a"))}
	s := SliceSource(code)
	first, _ := s.Instructions()
	first[0].Const.Str = "changed"
	second, _ := s.Instructions()
	if second[0].Const.Str != "a" {
		t.Error("SliceSource reads share state")
	}

	once := NewOnceSource(code)
	if got, err := once.Instructions(); err != nil || len(got) != 1 {
		t.Fatalf("first read = %v, %v", got, err)
	}
	if _, err := once.Instructions(); !errors.Is(err, ErrSourceConsumed) {
		t.Errorf("second read err = %v", err)
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&FinalMethodError{Method: "f()V"}, "weave: f()V is final and cannot be proxied"},
		{&ArgumentIndexError{Aspect: "a", Call: "argument", Index: 3, Count: 1},
			"weave: aspect a: argument(3) out of range, target has 1 argument(s)"},
		{&MalformedAdviceError{Aspect: "a", Offset: 4, Reason: "bad"}, "weave: aspect a: malformed advice at 4: bad"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
