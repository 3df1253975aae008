package runtime

import (
	"strings"
	"testing"

	"enoki/interpreter-go/pkg/ast"
)

func TestRenderInline(t *testing.T) {
	reg := newSeqRegistry(t)
	empty := mustConstruct(t, ctorOf(t, reg, "Empty"))
	seq := mustConstruct(t, ctorOf(t, reg, "Cons"), intVal(1),
		mustConstruct(t, ctorOf(t, reg, "Cons"), intVal(2), empty))

	cases := []struct {
		value Value
		want  string
	}{
		{intVal(42), "42"},
		{StringValue{Val: "spore"}, `"spore"`},
		{BoolValue{Val: true}, "true"},
		{UnitValue{}, "()"},
		{empty, "Empty"},
		{seq, "Cons(1, Cons(2, Empty))"},
		{NativeFunctionValue{Name: "print", Arity: 1}, "native print/1"},
	}
	for _, tc := range cases {
		if got := Render(tc.value); got != tc.want {
			t.Fatalf("Render(%#v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestRenderFunctionValues(t *testing.T) {
	named := &FunctionValue{Declaration: ast.Fn("length", []*ast.FunctionParameter{ast.Param("xs", nil)}, nil, ast.Int(0))}
	if got := Render(named); got != "fn length/1" {
		t.Fatalf("named function rendered as %q", got)
	}
	lambda := &FunctionValue{Declaration: ast.Lam1("x", ast.ID("x"))}
	if got := Render(lambda); got != "fn/1" {
		t.Fatalf("lambda rendered as %q", got)
	}
}

func TestRenderNestedOptionsStayNested(t *testing.T) {
	reg := newSeqRegistry(t)
	some := ctorOf(t, reg, "Some")
	none := mustConstruct(t, ctorOf(t, reg, "None"))

	if got := Render(mustConstruct(t, some, none)); got != "Some(None)" {
		t.Fatalf("Some(None) rendered as %q", got)
	}
	nested := mustConstruct(t, some, mustConstruct(t, some, intVal(3)))
	if got := Render(nested); got != "Some(Some(3))" {
		t.Fatalf("Some(Some(3)) rendered as %q", got)
	}
}

func TestRenderTree(t *testing.T) {
	reg := newSeqRegistry(t)
	empty := mustConstruct(t, ctorOf(t, reg, "Empty"))
	seq := mustConstruct(t, ctorOf(t, reg, "Cons"), intVal(1),
		mustConstruct(t, ctorOf(t, reg, "Cons"), intVal(2), empty))

	out := RenderTree(seq)
	if !strings.HasPrefix(out, "Cons") {
		t.Fatalf("tree must be rooted at the outer tag:\n%s", out)
	}
	for _, want := range []string{"├── 1", "└── Cons", "├── 2", "└── Empty"} {
		if !strings.Contains(out, want) {
			t.Fatalf("tree output missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "\n") != 4 {
		t.Fatalf("expected a five-line tree:\n%s", out)
	}

	if got := RenderTree(intVal(5)); got != "5" {
		t.Fatalf("non-variant tree rendering = %q", got)
	}
}
