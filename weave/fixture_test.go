package weave

import (
	"strings"
	"testing"

	bc "github.com/chazu/aspectweave/pkg/bytecode"
)

// fixtureSource holds targets, a host subclass and a set of advice classes.
const fixtureSource = `
.class public demo/Service
.method public <init> ()V
  aload 0
  invokespecial java/lang/Object.<init>()V
  return
.end method

.method public greet (Ljava/lang/String;)Ljava/lang/String;
  aload 1
  areturn
.end method

.method public handle (Ljava/lang/String;I)Ljava/lang/String;
  .annotation visible Ldemo/Traced; level=2
  .paramannotation 0 invisible Ldemo/NotNull;
  .throws java/lang/IllegalStateException
  new java/lang/StringBuilder
  dup
  invokespecial java/lang/StringBuilder.<init>()V
  aload 1
  invokevirtual java/lang/StringBuilder.append(Ljava/lang/String;)Ljava/lang/StringBuilder;
  iload 2
  invokevirtual java/lang/StringBuilder.append(I)Ljava/lang/StringBuilder;
  invokevirtual java/lang/StringBuilder.toString()Ljava/lang/String;
  areturn
.end method

.method public add (IJ)J
  iload 1
  i2l
  lload 2
  ladd
  lreturn
.end method

.method public touch (Ljava/lang/String;)V
  return
.end method

.method public final locked ()V
  return
.end method

.method public static util ()V
  return
.end method

.class public demo/Service$$Proxy
.super demo/Service
.method public <init> ()V
  aload 0
  invokespecial demo/Service.<init>()V
  return
.end method

.class public demo/Upper
.method public around ()Ljava/lang/Object;
  invokestatic aop/ProxyTarget.invoke()Ljava/lang/Object;
  checkcast java/lang/String
  invokevirtual java/lang/String.toUpperCase()Ljava/lang/String;
  areturn
.end method

.class public demo/Passthrough
.method public around ()Ljava/lang/Object;
  invokestatic aop/ProxyTarget.invoke()Ljava/lang/Object;
  areturn
.end method

.class public demo/CountArgs
.method public around ()Ljava/lang/Object;
  getstatic java/lang/System.out Ljava/io/PrintStream;
  invokestatic aop/ProxyTarget.argumentsCount()I
  invokevirtual java/io/PrintStream.println(I)V
  invokestatic aop/ProxyTarget.invoke()Ljava/lang/Object;
  areturn
.end method

.class public demo/FixFirst
.method public around ()Ljava/lang/Object;
  ldc "fixed"
  iconst_1
  invokestatic aop/ProxyTarget.setArgument(Ljava/lang/Object;I)V
  invokestatic aop/ProxyTarget.invoke()Ljava/lang/Object;
  areturn
.end method

.class public demo/DoubleSecond
.method public around ()Ljava/lang/Object;
  iconst_2
  invokestatic aop/ProxyTarget.argument(I)Ljava/lang/Object;
  checkcast java/lang/Integer
  invokevirtual java/lang/Integer.intValue()I
  iconst_2
  imul
  istore 1
  iload 1
  invokestatic java/lang/Integer.valueOf(I)Ljava/lang/Integer;
  iconst_2
  invokestatic aop/ProxyTarget.setArgument(Ljava/lang/Object;I)V
  invokestatic aop/ProxyTarget.invoke()Ljava/lang/Object;
  areturn
.end method

.class public demo/Describe
.method public around ()Ljava/lang/Object;
  getstatic java/lang/System.out Ljava/io/PrintStream;
  invokestatic aop/ProxyTarget.targetMethodName()Ljava/lang/String;
  invokevirtual java/io/PrintStream.println(Ljava/lang/String;)V
  getstatic java/lang/System.out Ljava/io/PrintStream;
  invokestatic aop/ProxyTarget.returnType()Ljava/lang/Class;
  invokevirtual java/io/PrintStream.println(Ljava/lang/Object;)V
  getstatic java/lang/System.out Ljava/io/PrintStream;
  iconst_2
  invokestatic aop/ProxyTarget.argumentType(I)Ljava/lang/Class;
  invokevirtual java/io/PrintStream.println(Ljava/lang/Object;)V
  getstatic java/lang/System.out Ljava/io/PrintStream;
  invokestatic aop/ProxyTarget.targetClass()Ljava/lang/Class;
  invokevirtual java/io/PrintStream.println(Ljava/lang/Object;)V
  getstatic java/lang/System.out Ljava/io/PrintStream;
  invokestatic aop/ProxyTarget.arguments()[Ljava/lang/Object;
  arraylength
  invokevirtual java/io/PrintStream.println(I)V
  getstatic java/lang/System.out Ljava/io/PrintStream;
  invokestatic aop/ProxyTarget.argumentsClass()[Ljava/lang/Class;
  iconst_0
  aaload
  invokevirtual java/io/PrintStream.println(Ljava/lang/Object;)V
  invokestatic aop/ProxyTarget.invoke()Ljava/lang/Object;
  areturn
.end method

.class public demo/Counting
.field private calls I
.method public around ()Ljava/lang/Object;
  aload 0
  dup
  getfield demo/Counting.calls I
  iconst_1
  iadd
  putfield demo/Counting.calls I
  invokestatic aop/ProxyTarget.invoke()Ljava/lang/Object;
  areturn
.end method

.class public demo/Helped
.field private calls I
.method public around ()Ljava/lang/Object;
  aload 0
  invokestatic aop/ProxyTarget.invoke()Ljava/lang/Object;
  checkcast java/lang/String
  invokevirtual demo/Helped.decorate(Ljava/lang/String;)Ljava/lang/String;
  areturn
.end method

.method private decorate (Ljava/lang/String;)Ljava/lang/String;
  aload 0
  dup
  getfield demo/Helped.calls I
  iconst_1
  iadd
  putfield demo/Helped.calls I
  aload 1
  ldc "!"
  invokevirtual java/lang/String.concat(Ljava/lang/String;)Ljava/lang/String;
  areturn
.end method

.class public demo/Silence
.method public around ()Ljava/lang/Object;
  invokestatic aop/ProxyTarget.invoke()Ljava/lang/Object;
  pop
  aconst_null
  areturn
.end method
`

const (
	serviceClass = "demo/Service"
	hostClass    = "demo/Service$$Proxy"
)

// fixture is a freshly assembled copy of fixtureSource.
type fixture struct {
	classes map[string]*bc.Class
	list    []*bc.Class
}

func newFixture(t testing.TB) *fixture {
	t.Helper()
	list, err := bc.Assemble("fixture.jasm", fixtureSource)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	f := &fixture{classes: make(map[string]*bc.Class), list: list}
	for _, c := range list {
		f.classes[c.Name] = c
	}
	return f
}

func (f *fixture) host() *bc.Class { return f.classes[hostClass] }

// target describes a method of demo/Service identified by name.
func (f *fixture) target(t testing.TB, name string) *MethodDescriptor {
	t.Helper()
	ms := f.classes[serviceClass].MethodsNamed(name)
	if len(ms) != 1 {
		t.Fatalf("fixture has %d methods named %s", len(ms), name)
	}
	d, err := DescribeMethod(ms[0])
	if err != nil {
		t.Fatalf("DescribeMethod: %v", err)
	}
	return d
}

// aspects describes the around methods of the named advice classes in
// order.
func (f *fixture) aspects(t testing.TB, classes ...string) []*AspectDescriptor {
	t.Helper()
	out := make([]*AspectDescriptor, len(classes))
	for i, name := range classes {
		c, ok := f.classes[name]
		if !ok {
			t.Fatalf("fixture has no class %s", name)
		}
		m := c.Method("around", "()Ljava/lang/Object;")
		if m == nil {
			t.Fatalf("%s has no around method", name)
		}
		out[i] = NewClassAspect(c, m, i)
	}
	return out
}

// weave weaves target with the named aspects into the host class.
func (f *fixture) weave(t testing.TB, target string, aspects ...string) []*GeneratedMethod {
	t.Helper()
	gen, err := NewBuilder().Weave(f.host(), f.target(t, target), f.aspects(t, aspects...))
	if err != nil {
		t.Fatalf("Weave %s: %v", target, err)
	}
	return gen
}

// vm loads every fixture class and returns a VM plus a host instance.
func (f *fixture) vm(t testing.TB, out *strings.Builder) (*bc.VM, *bc.Object) {
	t.Helper()
	vm, err := bc.NewVM(f.list...)
	if err != nil {
		t.Fatalf("NewVM: %v", err)
	}
	if out != nil {
		vm.Stdout = out
	}
	obj, err := vm.New(hostClass)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return vm, obj
}

// asm assembles a bare instruction listing.
func asm(t testing.TB, src string) []bc.Instruction {
	t.Helper()
	code, err := bc.AssembleMethod(src)
	if err != nil {
		t.Fatalf("AssembleMethod: %v", err)
	}
	return code
}

// listing renders instructions one per line, trimmed.
func listing(code []bc.Instruction) string {
	return strings.TrimSpace(bc.FormatInstructions(code))
}
