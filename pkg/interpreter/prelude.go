package interpreter

import (
	"fmt"

	"enoki/interpreter-go/pkg/ast"
	"enoki/interpreter-go/pkg/runtime"
)

// loadPrelude installs the built-in variant types, the derived sequence
// operations, and the native printing helpers. The prelude is compiled in,
// so any failure here is a programming error and panics.
func (i *Interpreter) loadPrelude() {
	for _, def := range preludeTypes() {
		if err := i.RegisterType(def); err != nil {
			panic(fmt.Sprintf("interpreter: prelude type %s: %v", def.ID.Name, err))
		}
	}
	i.defineNatives()
	for _, def := range preludeFunctions() {
		if _, err := i.evaluateStatement(def, i.global); err != nil {
			panic(fmt.Sprintf("interpreter: prelude function %s: %v", def.ID.Name, err))
		}
	}
}

// preludeTypes declares:
//
//	type Seq = Empty | Cons(Any, Seq)
//	type Option = None | Some(Any)
//	type Pair = MkPair(Any, Any)
//	type Either = Left(Any) | Right(Any)
func preludeTypes() []*ast.TypeDefinition {
	return []*ast.TypeDefinition{
		ast.TypeDef("Seq",
			ast.Ctor("Empty"),
			ast.Ctor("Cons", ast.Ty("Any"), ast.Ty("Seq")),
		),
		ast.TypeDef("Option",
			ast.Ctor("None"),
			ast.Ctor("Some", ast.Ty("Any")),
		),
		ast.TypeDef("Pair",
			ast.Ctor("MkPair", ast.Ty("Any"), ast.Ty("Any")),
		),
		ast.TypeDef("Either",
			ast.Ctor("Left", ast.Ty("Any")),
			ast.Ctor("Right", ast.Ty("Any")),
		),
	}
}

// preludeFunctions builds the derived sequence operations. Each body is the
// same recursive match a user would write in source form.
func preludeFunctions() []*ast.FunctionDefinition {
	return []*ast.FunctionDefinition{
		ast.Fn("length",
			[]*ast.FunctionParameter{ast.Param("xs", ast.Ty("Seq"))},
			ast.Ty("Int"),
			ast.Match(ast.ID("xs"),
				ast.Mc(ast.CtorP("Cons", "_", "tail"),
					ast.Bin("+", ast.Int(1), ast.Call("length", ast.ID("tail")))),
				ast.Mc("Empty", ast.Int(0)),
			),
		),
		ast.Fn("map",
			[]*ast.FunctionParameter{ast.Param("f", nil), ast.Param("xs", ast.Ty("Seq"))},
			ast.Ty("Seq"),
			ast.Match(ast.ID("xs"),
				ast.Mc(ast.CtorP("Cons", "head", "tail"),
					ast.Call("Cons",
						ast.Call("f", ast.ID("head")),
						ast.Call("map", ast.ID("f"), ast.ID("tail")))),
				ast.Mc("Empty", ast.ID("Empty")),
			),
		),
		ast.Fn("filter",
			[]*ast.FunctionParameter{ast.Param("pred", nil), ast.Param("xs", ast.Ty("Seq"))},
			ast.Ty("Seq"),
			ast.Match(ast.ID("xs"),
				ast.Mc(ast.CtorP("Cons", "head", "tail"),
					ast.IfExpr(ast.Call("pred", ast.ID("head")),
						ast.Block(ast.Call("Cons",
							ast.ID("head"),
							ast.Call("filter", ast.ID("pred"), ast.ID("tail")))),
						ast.Else(ast.Call("filter", ast.ID("pred"), ast.ID("tail"))))),
				ast.Mc("Empty", ast.ID("Empty")),
			),
		),
		ast.Fn("zip",
			[]*ast.FunctionParameter{ast.Param("xs", ast.Ty("Seq")), ast.Param("ys", ast.Ty("Seq"))},
			ast.Ty("Seq"),
			ast.Match(ast.ID("xs"),
				ast.Mc(ast.CtorP("Cons", "xh", "xt"),
					ast.Match(ast.ID("ys"),
						ast.Mc(ast.CtorP("Cons", "yh", "yt"),
							ast.Call("Cons",
								ast.Call("MkPair", ast.ID("xh"), ast.ID("yh")),
								ast.Call("zip", ast.ID("xt"), ast.ID("yt")))),
						ast.Mc("Empty", ast.ID("Empty")))),
				ast.Mc("Empty", ast.ID("Empty")),
			),
		),
		ast.Fn("take",
			[]*ast.FunctionParameter{ast.Param("n", ast.Ty("Int")), ast.Param("xs", ast.Ty("Seq"))},
			ast.Ty("Seq"),
			ast.IfExpr(ast.Bin("<=", ast.ID("n"), ast.Int(0)),
				ast.Block(ast.ID("Empty")),
				ast.Else(ast.Match(ast.ID("xs"),
					ast.Mc(ast.CtorP("Cons", "head", "tail"),
						ast.Call("Cons",
							ast.ID("head"),
							ast.Call("take", ast.Bin("-", ast.ID("n"), ast.Int(1)), ast.ID("tail")))),
					ast.Mc("Empty", ast.ID("Empty"))))),
		),
		ast.Fn("find_first",
			[]*ast.FunctionParameter{ast.Param("pred", nil), ast.Param("xs", ast.Ty("Seq"))},
			ast.Ty("Option"),
			ast.Match(ast.ID("xs"),
				ast.Mc(ast.CtorP("Cons", "head", "tail"),
					ast.IfExpr(ast.Call("pred", ast.ID("head")),
						ast.Block(ast.Call("Some", ast.ID("head"))),
						ast.Else(ast.Call("find_first", ast.ID("pred"), ast.ID("tail"))))),
				ast.Mc("Empty", ast.ID("None")),
			),
		),
		ast.Fn("last_entry",
			[]*ast.FunctionParameter{ast.Param("xs", ast.Ty("Seq"))},
			ast.Ty("Option"),
			ast.Match(ast.ID("xs"),
				ast.Mc(ast.CtorP("Cons", "head", "tail"),
					ast.Match(ast.ID("tail"),
						ast.Mc(ast.CtorP("Cons", "_", "_"), ast.Call("last_entry", ast.ID("tail"))),
						ast.Mc("Empty", ast.Call("Some", ast.ID("head"))))),
				ast.Mc("Empty", ast.ID("None")),
			),
		),
	}
}

func (i *Interpreter) defineNatives() {
	natives := []runtime.NativeFunctionValue{
		{
			Name:  "print",
			Arity: 1,
			Impl: func(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
				fmt.Fprintln(ctx.Out, runtime.Render(args[0]))
				return runtime.UnitValue{}, nil
			},
		},
		{
			Name:  "show",
			Arity: 1,
			Impl: func(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
				return runtime.StringValue{Val: runtime.Render(args[0])}, nil
			},
		},
		{
			Name:  "inspect",
			Arity: 1,
			Impl: func(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
				fmt.Fprintln(ctx.Out, runtime.RenderTree(args[0]))
				return runtime.UnitValue{}, nil
			},
		},
	}
	for _, native := range natives {
		i.global.Define(native.Name, native)
	}
}
