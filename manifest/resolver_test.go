package manifest

import (
	"strings"
	"testing"
)

func TestParseMemberRef(t *testing.T) {
	tests := []struct {
		in      string
		want    MemberRef
		wantErr bool
	}{
		{in: "demo/Service.greet", want: MemberRef{Owner: "demo/Service", Name: "greet"}},
		{in: "demo/Service.greet(Ljava/lang/String;)V", want: MemberRef{Owner: "demo/Service", Name: "greet", Desc: "(Ljava/lang/String;)V"}},
		{in: "Top.run()V", want: MemberRef{Owner: "Top", Name: "run", Desc: "()V"}},
		{in: "demo/Outer$Inner.go", want: MemberRef{Owner: "demo/Outer$Inner", Name: "go"}},
		{in: "greet", wantErr: true},
		{in: ".greet", wantErr: true},
		{in: "demo/Service.", wantErr: true},
		{in: "demo/Service.greet(I", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseMemberRef(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseMemberRef(%q) = %+v, want error", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMemberRef(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseMemberRef(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
		if got.String() != tc.in {
			t.Errorf("String() = %q, want %q", got.String(), tc.in)
		}
	}
}

func TestIsReservedPackage(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"java/lang/String", true},
		{"javax/swing/JFrame", true},
		{"jdk/internal/Misc", true},
		{"sun/misc/Unsafe", true},
		{"demo/Service", false},
		{"javalike/Thing", false},
		{"Top", false},
	}

	for _, tc := range tests {
		got := IsReservedPackage(tc.name)
		if got != tc.want {
			t.Errorf("IsReservedPackage(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestResolve(t *testing.T) {
	m, err := Parse([]byte(`
[[weave]]
target = "demo/Service.greet"
aspects = ["demo/Upper.around", "demo/Trace.before(I)Ljava/lang/Object;"]

[[weave]]
target = "demo/Repo.load"
aspects = ["demo/Trace.around"]

[[weave]]
target = "demo/Service.handle"
aspects = ["demo/Trace.around"]
`))
	if err != nil {
		t.Fatal(err)
	}

	groups, err := NewResolver(m).Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}

	g := groups[0]
	if g.Host != "demo/Service$$Proxy" || g.Super != "demo/Service" || len(g.Bindings) != 2 {
		t.Fatalf("group 0 = %+v", g)
	}
	if g.Bindings[0].Target.Name != "greet" || g.Bindings[1].Target.Name != "handle" {
		t.Errorf("binding order = %s, %s", g.Bindings[0].Target, g.Bindings[1].Target)
	}
	aspects := g.Bindings[0].Aspects
	if aspects[0].Desc != DefaultAdviceDesc || aspects[1].Desc != "(I)Ljava/lang/Object;" {
		t.Errorf("aspect descriptors = %s, %s", aspects[0].Desc, aspects[1].Desc)
	}
	if groups[1].Host != "demo/Repo$$Proxy" {
		t.Errorf("group 1 host = %s", groups[1].Host)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "bad target",
			src:  "[[weave]]\ntarget = \"greet\"",
			want: "invalid member reference",
		},
		{
			name: "platform target",
			src:  "[[weave]]\ntarget = \"java/lang/Object.toString\"",
			want: "platform package",
		},
		{
			name: "platform host",
			src:  "[[weave]]\ntarget = \"demo/A.run\"\nhost = \"java/lang/Thing\"",
			want: "platform package",
		},
		{
			name: "host is target",
			src:  "[[weave]]\ntarget = \"demo/A.run\"\nhost = \"demo/A\"",
			want: "target class itself",
		},
		{
			name: "bound twice",
			src:  "[[weave]]\ntarget = \"demo/A.run\"\n[[weave]]\ntarget = \"demo/A.run\"",
			want: "bound twice",
		},
		{
			name: "host with two supers",
			src:  "[[weave]]\ntarget = \"demo/A.run\"\nhost = \"demo/H\"\n[[weave]]\ntarget = \"demo/B.run\"\nhost = \"demo/H\"",
			want: "already extends",
		},
		{
			name: "bad aspect",
			src:  "[[weave]]\ntarget = \"demo/A.run\"\naspects = [\"nodot\"]",
			want: "aspect",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := Parse([]byte(tc.src))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			_, err = NewResolver(m).Resolve()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want %q", err, tc.want)
			}
		})
	}
}
