package runtime

import (
	"fmt"
	"io"
	"math/big"

	"enoki/interpreter-go/pkg/ast"
	"enoki/interpreter-go/pkg/schema"
)

// Kind identifies the runtime value category.
type Kind int

const (
	KindInteger Kind = iota
	KindString
	KindBool
	KindUnit
	KindVariant
	KindFunction
	KindNativeFunction
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindUnit:
		return "unit"
	case KindVariant:
		return "variant"
	case KindFunction:
		return "function"
	case KindNativeFunction:
		return "native_function"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Value is the shared behaviour for all runtime values.
type Value interface {
	Kind() Kind
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

type IntegerValue struct {
	Val *big.Int
}

func (v IntegerValue) Kind() Kind { return KindInteger }

type StringValue struct {
	Val string
}

func (v StringValue) Kind() Kind { return KindString }

type BoolValue struct {
	Val bool
}

func (v BoolValue) Kind() Kind { return KindBool }

// UnitValue is what definitions and empty blocks evaluate to.
type UnitValue struct{}

func (UnitValue) Kind() Kind { return KindUnit }

//-----------------------------------------------------------------------------
// Variants
//-----------------------------------------------------------------------------

// VariantValue is an immutable tagged value of a registered variant type.
// Tag and arguments never change after construction; derived values share
// unchanged sub-structure by reference.
type VariantValue struct {
	Constructor *schema.Constructor
	Args        []Value
}

func (v *VariantValue) Kind() Kind { return KindVariant }

// Tag returns the constructor name.
func (v *VariantValue) Tag() string { return v.Constructor.Name }

// TypeName returns the name of the variant type the value belongs to.
func (v *VariantValue) TypeName() string { return v.Constructor.Type.Name }

//-----------------------------------------------------------------------------
// Functions & closures
//-----------------------------------------------------------------------------

type FunctionValue struct {
	Declaration ast.Node // LambdaExpression or FunctionDefinition
	Closure     *Environment
}

func (v *FunctionValue) Kind() Kind { return KindFunction }

// Name returns the declared function name, "" for lambdas.
func (v *FunctionValue) Name() string {
	if def, ok := v.Declaration.(*ast.FunctionDefinition); ok && def.ID != nil {
		return def.ID.Name
	}
	return ""
}

// Params returns the declared parameters.
func (v *FunctionValue) Params() []*ast.FunctionParameter {
	switch decl := v.Declaration.(type) {
	case *ast.FunctionDefinition:
		return decl.Params
	case *ast.LambdaExpression:
		return decl.Params
	default:
		return nil
	}
}

// Body returns the expression evaluated when the function is applied.
func (v *FunctionValue) Body() ast.Expression {
	switch decl := v.Declaration.(type) {
	case *ast.FunctionDefinition:
		return decl.Body
	case *ast.LambdaExpression:
		return decl.Body
	default:
		return nil
	}
}

// NativeCallContext provides hooks for native functions.
type NativeCallContext struct {
	Env *Environment
	Out io.Writer
}

type NativeFunc func(*NativeCallContext, []Value) (Value, error)

type NativeFunctionValue struct {
	Name  string
	Arity int
	Impl  NativeFunc
}

func (v NativeFunctionValue) Kind() Kind { return KindNativeFunction }

//-----------------------------------------------------------------------------
// Utility helpers
//-----------------------------------------------------------------------------

// CloneBigInt copies the provided big.Int pointer, tolerating nil.
func CloneBigInt(src *big.Int) *big.Int {
	if src == nil {
		return nil
	}
	return new(big.Int).Set(src)
}
