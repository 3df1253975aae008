// Package schema holds the variant-type registry: the closed constructor
// sets Enoki programs register before values of those types can exist.
package schema

import (
	"fmt"
	"sort"

	"enoki/interpreter-go/pkg/ast"
)

//-----------------------------------------------------------------------------
// Kinds
//-----------------------------------------------------------------------------

// Kind names what a constructor argument position admits: a primitive kind,
// the unconstrained Any, or values of a named variant type.
type Kind struct {
	name string
}

var (
	Any    = Kind{name: "Any"}
	Int    = Kind{name: "Int"}
	String = Kind{name: "String"}
	Bool   = Kind{name: "Bool"}
)

// VariantKind references values of the named variant type.
func VariantKind(typeName string) Kind {
	return Kind{name: typeName}
}

func (k Kind) Name() string   { return k.name }
func (k Kind) String() string { return k.name }

func (k Kind) IsAny() bool { return k == Any }

// IsVariant reports whether the kind references a variant type rather than a
// primitive.
func (k Kind) IsVariant() bool {
	return k.name != "" && !isBuiltinKindName(k.name)
}

func isBuiltinKindName(name string) bool {
	switch name {
	case "Any", "Int", "String", "Bool":
		return true
	}
	return false
}

//-----------------------------------------------------------------------------
// Types and constructors
//-----------------------------------------------------------------------------

// Type is a registered variant type. Its constructor set is fixed at
// registration; every value of the type carries exactly one of these tags.
type Type struct {
	Name         string
	Constructors []*Constructor
}

// Constructor is one tag of a variant type with its argument kinds.
type Constructor struct {
	Name   string
	Type   *Type
	Params []Kind
}

func (c *Constructor) Arity() int { return len(c.Params) }

// Constructor returns the named constructor of this type.
func (t *Type) Constructor(name string) (*Constructor, bool) {
	for _, ctor := range t.Constructors {
		if ctor.Name == name {
			return ctor, true
		}
	}
	return nil, false
}

// ConstructorNames returns the tag names in declaration order.
func (t *Type) ConstructorNames() []string {
	names := make([]string, len(t.Constructors))
	for i, ctor := range t.Constructors {
		names[i] = ctor.Name
	}
	return names
}

//-----------------------------------------------------------------------------
// Registry
//-----------------------------------------------------------------------------

// Registry maps type names and constructor names to their definitions.
// Constructor names are global: construction sites and patterns refer to a
// bare tag, so one name may belong to at most one registered type.
type Registry struct {
	types        map[string]*Type
	constructors map[string]*Constructor
	order        []string
}

func NewRegistry() *Registry {
	return &Registry{
		types:        make(map[string]*Type),
		constructors: make(map[string]*Constructor),
	}
}

// Register validates a type definition and commits it. On any failure the
// registry is left exactly as it was.
func (r *Registry) Register(def *ast.TypeDefinition) (*Type, error) {
	if def == nil || def.ID == nil || def.ID.Name == "" {
		return nil, fmt.Errorf("schema: type definition has no name")
	}
	typeName := def.ID.Name
	if isBuiltinKindName(typeName) {
		return nil, fmt.Errorf("schema: type name %s is reserved", typeName)
	}
	if _, exists := r.types[typeName]; exists {
		return nil, fmt.Errorf("schema: type %s is already registered", typeName)
	}
	if len(def.Constructors) == 0 {
		return nil, fmt.Errorf("schema: type %s declares no constructors", typeName)
	}

	typ := &Type{Name: typeName}
	declared := make(map[string]bool, len(def.Constructors))
	for _, ctorDef := range def.Constructors {
		if ctorDef == nil || ctorDef.ID == nil || ctorDef.ID.Name == "" {
			return nil, fmt.Errorf("schema: type %s declares an unnamed constructor", typeName)
		}
		name := ctorDef.ID.Name
		if existing, taken := r.constructors[name]; taken {
			return nil, &DuplicateConstructorError{TypeName: typeName, Constructor: name, ExistingType: existing.Type.Name}
		}
		if declared[name] {
			return nil, &DuplicateConstructorError{TypeName: typeName, Constructor: name, ExistingType: typeName}
		}
		declared[name] = true

		params := make([]Kind, len(ctorDef.Params))
		for i, paramExpr := range ctorDef.Params {
			kind, err := r.resolveKind(typeName, name, i, paramExpr)
			if err != nil {
				return nil, err
			}
			params[i] = kind
		}
		typ.Constructors = append(typ.Constructors, &Constructor{Name: name, Type: typ, Params: params})
	}

	r.types[typeName] = typ
	r.order = append(r.order, typeName)
	for _, ctor := range typ.Constructors {
		r.constructors[ctor.Name] = ctor
	}
	return typ, nil
}

// resolveKind maps a kind annotation to a Kind. Self-reference to the type
// being registered is allowed; anything else must already be registered.
func (r *Registry) resolveKind(typeName, ctorName string, position int, expr ast.TypeExpression) (Kind, error) {
	simple, ok := expr.(*ast.SimpleTypeExpression)
	if !ok || simple.Name == nil || simple.Name.Name == "" {
		return Kind{}, fmt.Errorf("schema: type %s constructor %s argument %d has an unsupported kind annotation", typeName, ctorName, position)
	}
	name := simple.Name.Name
	if isBuiltinKindName(name) {
		return Kind{name: name}, nil
	}
	if name == typeName {
		return VariantKind(name), nil
	}
	if _, exists := r.types[name]; exists {
		return VariantKind(name), nil
	}
	return Kind{}, &UnknownKindReferenceError{TypeName: typeName, Constructor: ctorName, Position: position, Reference: name}
}

// Type returns the registered type with the given name.
func (r *Registry) Type(name string) (*Type, bool) {
	typ, ok := r.types[name]
	return typ, ok
}

// Constructor resolves a bare tag name to its constructor.
func (r *Registry) Constructor(name string) (*Constructor, bool) {
	ctor, ok := r.constructors[name]
	return ctor, ok
}

// TypeNames returns all registered type names, sorted.
func (r *Registry) TypeNames() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports how many types are registered.
func (r *Registry) Len() int { return len(r.types) }

//-----------------------------------------------------------------------------
// Registration errors
//-----------------------------------------------------------------------------

// DuplicateConstructorError reports a constructor name collision, either
// inside one definition or against a previously registered type.
type DuplicateConstructorError struct {
	TypeName     string
	Constructor  string
	ExistingType string
}

func (e *DuplicateConstructorError) Error() string {
	if e.ExistingType != "" && e.ExistingType != e.TypeName {
		return fmt.Sprintf("registering type %s: constructor %s is already declared by type %s", e.TypeName, e.Constructor, e.ExistingType)
	}
	return fmt.Sprintf("registering type %s: constructor %s is declared twice", e.TypeName, e.Constructor)
}

// UnknownKindReferenceError reports an argument kind that names a type the
// registry has never seen.
type UnknownKindReferenceError struct {
	TypeName    string
	Constructor string
	Position    int
	Reference   string
}

func (e *UnknownKindReferenceError) Error() string {
	return fmt.Sprintf("registering type %s: constructor %s argument %d references unknown kind %s", e.TypeName, e.Constructor, e.Position, e.Reference)
}
