package weave

import (
	"errors"
	"strings"
	"testing"

	bc "github.com/chazu/aspectweave/pkg/bytecode"
)

func TestRunAdviceHelper(t *testing.T) {
	f := newFixture(t)
	f.weave(t, "greet", "demo/Helped")
	host := f.host()
	if host.Method("decorate$0", "(Ljava/lang/String;)Ljava/lang/String;") == nil {
		t.Fatal("helper decorate$0 not copied to the host")
	}
	if host.Field("calls$0") == nil {
		t.Fatal("field calls$0 not copied to the host")
	}

	vm, obj := f.vm(t, nil)
	for _, arg := range []string{"sam", "ann"} {
		got, err := vm.Invoke(obj, "greet", "(Ljava/lang/String;)Ljava/lang/String;", arg)
		if err != nil {
			t.Fatal(err)
		}
		if got != arg+"!" {
			t.Errorf("greet(%s) = %v, want %s!", arg, got, arg)
		}
	}
	if got := obj.Fields["calls$0"]; got != int32(2) {
		t.Errorf("calls$0 = %v, want 2", got)
	}
}

func TestHelperRedirected(t *testing.T) {
	f := newFixture(t)
	f.weave(t, "greet", "demo/Passthrough", "demo/Helped")
	h := f.host().Method("decorate$1", "(Ljava/lang/String;)Ljava/lang/String;")
	if h == nil {
		t.Fatal("helper decorate$1 not copied to the host")
	}
	want := `aload 0
dup
getfield demo/Service$$Proxy.calls$1 I
iconst_1
iadd
putfield demo/Service$$Proxy.calls$1 I
aload 1
ldc "!"
invokevirtual java/lang/String.concat(Ljava/lang/String;)Ljava/lang/String;
areturn`
	assertListing(t, h.Code, want)
	if !h.Access.IsPrivate() {
		t.Errorf("helper access = %s, want private kept", h.Access)
	}
	proxy := listing(f.host().Method("greet$p1", "(Ljava/lang/String;)Ljava/lang/String;").Code)
	if !strings.Contains(proxy, "invokevirtual demo/Service$$Proxy.decorate$1(Ljava/lang/String;)Ljava/lang/String;") {
		t.Errorf("proxy does not call the copied helper:\n%s", proxy)
	}
}

func TestMembersSharedAcrossTargets(t *testing.T) {
	f := newFixture(t)
	f.weave(t, "greet", "demo/Helped")
	f.weave(t, "handle", "demo/Helped")
	host := f.host()
	if n := len(host.MethodsNamed("decorate$0")); n != 1 {
		t.Errorf("host has %d copies of decorate$0, want 1", n)
	}
	if len(host.Fields) != 1 {
		t.Errorf("host has %d fields, want 1", len(host.Fields))
	}

	vm, obj := f.vm(t, nil)
	got, err := vm.Invoke(obj, "handle", "(Ljava/lang/String;I)Ljava/lang/String;", "x", int32(1))
	if err != nil || got != "x1!" {
		t.Errorf("handle = %v, %v; want x1!", got, err)
	}
	got, err = vm.Invoke(obj, "greet", "(Ljava/lang/String;)Ljava/lang/String;", "y")
	if err != nil || got != "y!" {
		t.Errorf("greet = %v, %v; want y!", got, err)
	}
	if got := obj.Fields["calls$0"]; got != int32(2) {
		t.Errorf("calls$0 = %v, want 2", got)
	}
}

func TestMembersConflict(t *testing.T) {
	tests := []struct {
		name   string
		change func(a *AspectDescriptor)
	}{
		{"field type", func(a *AspectDescriptor) { a.Fields[0].Desc = "J" }},
		{"helper body", func(a *AspectDescriptor) {
			h := a.Helpers[0]
			h.Code[len(h.Code)-2].Owner = "java/lang/Object"
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.weave(t, "greet", "demo/Helped")
			host := f.host()
			methods, fields := len(host.Methods), len(host.Fields)

			aspects := f.aspects(t, "demo/Helped")
			tc.change(aspects[0])
			_, err := NewBuilder().Weave(host, f.target(t, "handle"), aspects)
			var ce *MemberConflictError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want *MemberConflictError", err)
			}
			if ce.Host != hostClass {
				t.Errorf("conflict host = %s", ce.Host)
			}
			if len(host.Methods) != methods || len(host.Fields) != fields {
				t.Errorf("failed weave changed the host: %d methods, %d fields", len(host.Methods), len(host.Fields))
			}
		})
	}
}

// methodsOnly is a destination without field support.
type methodsOnly struct{ c *bc.Class }

func (d methodsOnly) ThisReference() string  { return d.c.ThisReference() }
func (d methodsOnly) SuperReference() string { return d.c.SuperReference() }

func (d methodsOnly) AddMethods(methods ...*bc.Method) error {
	return d.c.AddMethods(methods...)
}

func TestCommitNeedsMemberDestination(t *testing.T) {
	f := newFixture(t)
	dest := methodsOnly{f.host()}
	before := len(f.host().Methods)

	_, err := NewBuilder().Weave(dest, f.target(t, "greet"), f.aspects(t, "demo/Helped"))
	if err == nil || !strings.Contains(err.Error(), "cannot receive advice members") {
		t.Fatalf("err = %v", err)
	}
	if len(f.host().Methods) != before {
		t.Error("failed weave added methods")
	}

	if _, err := NewBuilder().Weave(dest, f.target(t, "greet"), f.aspects(t, "demo/Upper")); err != nil {
		t.Errorf("weave without members: %v", err)
	}
}

func TestHelperMarkerCall(t *testing.T) {
	classes, err := bc.Assemble("helper.jasm", `
.class public demo/Leaky
.method public around ()Ljava/lang/Object;
  aload 0
  invokevirtual demo/Leaky.peek()Ljava/lang/Object;
  areturn
.end method
.method private peek ()Ljava/lang/Object;
  invokestatic aop/ProxyTarget.invoke()Ljava/lang/Object;
  areturn
.end method
`)
	if err != nil {
		t.Fatal(err)
	}
	c := classes[0]
	a := NewClassAspect(c, c.Method("around", "()Ljava/lang/Object;"), 0)
	if len(a.Helpers) != 1 {
		t.Fatalf("aspect has %d helpers, want 1", len(a.Helpers))
	}

	f := newFixture(t)
	_, err = NewBuilder().Weave(f.host(), f.target(t, "greet"), []*AspectDescriptor{a})
	var me *MalformedAdviceError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v, want *MalformedAdviceError", err)
	}
	if me.Offset != 0 || !strings.Contains(me.Reason, "peek") {
		t.Errorf("error = %+v", me)
	}
}

func TestNewClassAspectSkipsInitializers(t *testing.T) {
	classes, err := bc.Assemble("init.jasm", `
.class public demo/WithInit
.field private static seen I
.method public <init> ()V
  aload 0
  invokespecial java/lang/Object.<init>()V
  return
.end method
.method static <clinit> ()V
  return
.end method
.method public around ()Ljava/lang/Object;
  invokestatic aop/ProxyTarget.invoke()Ljava/lang/Object;
  areturn
.end method
.method public static util ()V
  return
.end method
`)
	if err != nil {
		t.Fatal(err)
	}
	c := classes[0]
	a := NewClassAspect(c, c.Method("around", "()Ljava/lang/Object;"), 2)
	if len(a.Helpers) != 1 || a.Helpers[0].Name != "util" {
		t.Errorf("helpers = %v", a.Helpers)
	}
	if len(a.Fields) != 1 {
		t.Fatalf("fields = %v", a.Fields)
	}
	a.Fields[0].Name = "changed"
	if c.Field("seen") == nil {
		t.Error("aspect fields alias the class")
	}

	ms, err := NewBuilder().Members([]*AspectDescriptor{a}, hostClass)
	if err != nil {
		t.Fatal(err)
	}
	if ms.Len() != 2 || ms.Fields[0].Name != "changed$2" || ms.Methods[0].Name != "util$2" {
		t.Errorf("members = %+v", ms)
	}
}

func TestInputDigestCoversMembers(t *testing.T) {
	f := newFixture(t)
	target := f.target(t, "greet")
	digest := func(aspects []*AspectDescriptor) bc.Digest {
		t.Helper()
		d, err := InputDigest(target, aspects, hostClass, serviceClass, DefaultNaming())
		if err != nil {
			t.Fatal(err)
		}
		return d
	}

	base := digest(f.aspects(t, "demo/Helped"))
	if again := digest(f.aspects(t, "demo/Helped")); again != base {
		t.Error("digest is not stable")
	}
	changed := f.aspects(t, "demo/Helped")
	changed[0].Helpers[0].Code[len(changed[0].Helpers[0].Code)-2].Owner = "java/lang/Object"
	if digest(changed) == base {
		t.Error("helper change kept the digest")
	}
	changed = f.aspects(t, "demo/Helped")
	changed[0].Fields[0].Desc = "J"
	if digest(changed) == base {
		t.Error("field change kept the digest")
	}
}
