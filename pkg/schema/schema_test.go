package schema

import (
	"errors"
	"testing"

	"enoki/interpreter-go/pkg/ast"
)

func TestRegisterTypeAndLookup(t *testing.T) {
	reg := NewRegistry()
	typ, err := reg.Register(ast.TypeDef("Seq",
		ast.Ctor("Empty"),
		ast.Ctor("Cons", ast.Ty("Any"), ast.Ty("Seq")),
	))
	if err != nil {
		t.Fatalf("register Seq failed: %v", err)
	}
	if typ.Name != "Seq" {
		t.Fatalf("expected type name Seq, got %q", typ.Name)
	}
	got := typ.ConstructorNames()
	if len(got) != 2 || got[0] != "Empty" || got[1] != "Cons" {
		t.Fatalf("unexpected constructor names: %v", got)
	}

	cons, ok := reg.Constructor("Cons")
	if !ok {
		t.Fatalf("expected global lookup of Cons to succeed")
	}
	if cons.Type != typ || cons.Arity() != 2 {
		t.Fatalf("unexpected Cons constructor: %#v", cons)
	}
	if !cons.Params[0].IsAny() {
		t.Fatalf("expected Cons argument 0 to admit Any, got %s", cons.Params[0])
	}
	if !cons.Params[1].IsVariant() || cons.Params[1].Name() != "Seq" {
		t.Fatalf("expected Cons argument 1 to reference Seq, got %s", cons.Params[1])
	}

	empty, ok := typ.Constructor("Empty")
	if !ok || empty.Arity() != 0 {
		t.Fatalf("expected nullary Empty constructor, got %#v", empty)
	}
}

func TestRegisterDuplicateConstructorWithinDefinition(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Register(ast.TypeDef("Signal", ast.Ctor("Stop"), ast.Ctor("Stop")))
	var dup *DuplicateConstructorError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateConstructorError, got %v", err)
	}
	if dup.TypeName != "Signal" || dup.Constructor != "Stop" || dup.ExistingType != "Signal" {
		t.Fatalf("unexpected error fields: %#v", dup)
	}
	if reg.Len() != 0 {
		t.Fatalf("failed registration must not commit, registry has %d types", reg.Len())
	}
	if _, ok := reg.Constructor("Stop"); ok {
		t.Fatalf("failed registration must not leak constructors")
	}
}

func TestRegisterDuplicateConstructorAcrossTypes(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Register(ast.TypeDef("Option", ast.Ctor("None"), ast.Ctor("Some", ast.Ty("Any")))); err != nil {
		t.Fatalf("register Option failed: %v", err)
	}
	_, err := reg.Register(ast.TypeDef("Maybe", ast.Ctor("None")))
	var dup *DuplicateConstructorError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateConstructorError, got %v", err)
	}
	if dup.TypeName != "Maybe" || dup.Constructor != "None" || dup.ExistingType != "Option" {
		t.Fatalf("unexpected error fields: %#v", dup)
	}
	if _, ok := reg.Type("Maybe"); ok {
		t.Fatalf("Maybe must not be registered after the collision")
	}
	ctor, ok := reg.Constructor("None")
	if !ok || ctor.Type.Name != "Option" {
		t.Fatalf("None must still belong to Option, got %#v", ctor)
	}
}

func TestRegisterUnknownKindReference(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Register(ast.TypeDef("Tree",
		ast.Ctor("Leaf"),
		ast.Ctor("Node", ast.Ty("Branch"), ast.Ty("Branch")),
	))
	var unknown *UnknownKindReferenceError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownKindReferenceError, got %v", err)
	}
	if unknown.TypeName != "Tree" || unknown.Constructor != "Node" || unknown.Position != 0 || unknown.Reference != "Branch" {
		t.Fatalf("unexpected error fields: %#v", unknown)
	}
	if reg.Len() != 0 {
		t.Fatalf("failed registration must not commit")
	}
	if _, ok := reg.Constructor("Leaf"); ok {
		t.Fatalf("constructors of a failed definition must not resolve")
	}
}

func TestRegisterSelfReferenceAndCrossReference(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Register(ast.TypeDef("Seq", ast.Ctor("Empty"), ast.Ctor("Cons", ast.Ty("Any"), ast.Ty("Seq")))); err != nil {
		t.Fatalf("self-referential registration failed: %v", err)
	}
	typ, err := reg.Register(ast.TypeDef("SeqBox", ast.Ctor("Box", ast.Ty("Seq"))))
	if err != nil {
		t.Fatalf("cross-referential registration failed: %v", err)
	}
	box, _ := typ.Constructor("Box")
	if !box.Params[0].IsVariant() || box.Params[0].Name() != "Seq" {
		t.Fatalf("expected Box argument to reference Seq, got %s", box.Params[0])
	}
}

func TestRegisterRejectsReservedName(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Register(ast.TypeDef("Int", ast.Ctor("Wrapped"))); err == nil {
		t.Fatalf("expected reserved type name to be rejected")
	}
	if _, err := reg.Register(ast.TypeDef("Nameless")); err == nil {
		t.Fatalf("expected empty constructor set to be rejected")
	}
}

func TestTypeNamesSorted(t *testing.T) {
	reg := NewRegistry()
	for _, def := range []*ast.TypeDefinition{
		ast.TypeDef("Pair", ast.Ctor("Pair", ast.Ty("Any"), ast.Ty("Any"))),
		ast.TypeDef("Either", ast.Ctor("Left", ast.Ty("Any")), ast.Ctor("Right", ast.Ty("Any"))),
	} {
		if _, err := reg.Register(def); err != nil {
			t.Fatalf("register %s failed: %v", def.ID.Name, err)
		}
	}
	names := reg.TypeNames()
	if len(names) != 2 || names[0] != "Either" || names[1] != "Pair" {
		t.Fatalf("expected sorted type names, got %v", names)
	}
}
