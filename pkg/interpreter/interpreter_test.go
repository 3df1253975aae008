package interpreter

import (
	"bytes"
	"errors"
	"math/big"
	"strings"
	"testing"

	"enoki/interpreter-go/pkg/ast"
	"enoki/interpreter-go/pkg/runtime"
	"enoki/interpreter-go/pkg/schema"
)

func testInterpreter(t *testing.T, opts ...Option) (*Interpreter, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	i := New(append([]Option{WithOutput(&out)}, opts...)...)
	return i, &out
}

func mustEval(t *testing.T, i *Interpreter, expr ast.Statement) runtime.Value {
	t.Helper()
	val, err := i.EvaluateStatement(expr, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	return val
}

func mustDefine(t *testing.T, i *Interpreter, stmt ast.Statement) {
	t.Helper()
	if _, err := i.EvaluateStatement(stmt, nil); err != nil {
		t.Fatalf("define: %v", err)
	}
}

// seqLiteral builds Cons(values[0], Cons(values[1], ... Empty)).
func seqLiteral(values ...int64) ast.Expression {
	var expr ast.Expression = ast.ID("Empty")
	for idx := len(values) - 1; idx >= 0; idx-- {
		expr = ast.Call("Cons", ast.Int(values[idx]), expr)
	}
	return expr
}

func renderOf(t *testing.T, i *Interpreter, expr ast.Expression) string {
	t.Helper()
	return runtime.Render(mustEval(t, i, expr))
}

func intResult(t *testing.T, val runtime.Value) int64 {
	t.Helper()
	iv, ok := val.(runtime.IntegerValue)
	if !ok {
		t.Fatalf("expected integer value, got %#v", val)
	}
	return iv.Val.Int64()
}

func TestEvaluateLiterals(t *testing.T) {
	i, _ := testInterpreter(t)

	if got := intResult(t, mustEval(t, i, ast.Int(42))); got != 42 {
		t.Fatalf("integer literal evaluated to %d", got)
	}
	if got := mustEval(t, i, ast.Str("spore")); got.(runtime.StringValue).Val != "spore" {
		t.Fatalf("string literal evaluated to %#v", got)
	}
	if got := mustEval(t, i, ast.Bool(true)); !got.(runtime.BoolValue).Val {
		t.Fatalf("boolean literal evaluated to %#v", got)
	}
}

func TestArithmetic(t *testing.T) {
	i, _ := testInterpreter(t)

	val := mustEval(t, i, ast.Bin("+", ast.Int(1), ast.Bin("*", ast.Int(2), ast.Int(3))))
	if got := intResult(t, val); got != 7 {
		t.Fatalf("1 + 2 * 3 evaluated to %d", got)
	}

	val = mustEval(t, i, ast.Bin("/", ast.Int(-7), ast.Int(2)))
	if got := intResult(t, val); got != -3 {
		t.Fatalf("-7 / 2 evaluated to %d, want truncation toward zero", got)
	}

	_, err := i.EvaluateStatement(ast.Bin("/", ast.Int(1), ast.Int(0)), nil)
	if err == nil || !strings.Contains(err.Error(), "division by zero") {
		t.Fatalf("dividing by zero returned %v", err)
	}
}

func TestArithmeticDoesNotOverflow(t *testing.T) {
	i, _ := testInterpreter(t)

	big40 := int64(1) << 40
	val := mustEval(t, i, ast.Bin("*", ast.Int(big40), ast.Int(big40)))
	want := new(big.Int).Lsh(big.NewInt(1), 80)
	if iv := val.(runtime.IntegerValue); iv.Val.Cmp(want) != 0 {
		t.Fatalf("2^40 * 2^40 evaluated to %s, want %s", iv.Val, want)
	}
}

func TestStringConcatAndComparison(t *testing.T) {
	i, _ := testInterpreter(t)

	val := mustEval(t, i, ast.Bin("+", ast.Str("eno"), ast.Str("ki")))
	if got := val.(runtime.StringValue).Val; got != "enoki" {
		t.Fatalf("string concatenation evaluated to %q", got)
	}

	val = mustEval(t, i, ast.Bin("<", ast.Str("apple"), ast.Str("banana")))
	if !val.(runtime.BoolValue).Val {
		t.Fatalf(`"apple" < "banana" evaluated to false`)
	}

	_, err := i.EvaluateStatement(ast.Bin("-", ast.Str("a"), ast.Str("b")), nil)
	if err == nil {
		t.Fatal("subtracting strings succeeded")
	}
}

func TestLogicalShortCircuit(t *testing.T) {
	i, _ := testInterpreter(t)

	// The right operand divides by zero; short-circuit must skip it.
	boom := ast.Bin("==", ast.Bin("/", ast.Int(1), ast.Int(0)), ast.Int(0))

	val := mustEval(t, i, ast.Bin("&&", ast.Bool(false), boom))
	if val.(runtime.BoolValue).Val {
		t.Fatalf("false && _ evaluated to true")
	}
	val = mustEval(t, i, ast.Bin("||", ast.Bool(true), boom))
	if !val.(runtime.BoolValue).Val {
		t.Fatalf("true || _ evaluated to false")
	}

	_, err := i.EvaluateStatement(ast.Bin("&&", ast.Bool(true), boom), nil)
	if err == nil {
		t.Fatal("true && (1/0 == 0) succeeded")
	}

	_, err = i.EvaluateStatement(ast.Bin("&&", ast.Int(1), ast.Bool(true)), nil)
	if err == nil || !strings.Contains(err.Error(), "must be Bool") {
		t.Fatalf("non-Bool left operand returned %v", err)
	}
}

func TestUnaryOperators(t *testing.T) {
	i, _ := testInterpreter(t)

	if got := intResult(t, mustEval(t, i, ast.Un(ast.UnaryNegate, ast.Int(5)))); got != -5 {
		t.Fatalf("-5 evaluated to %d", got)
	}
	if val := mustEval(t, i, ast.Un(ast.UnaryNot, ast.Bool(false))); !val.(runtime.BoolValue).Val {
		t.Fatalf("!false evaluated to false")
	}
	if _, err := i.EvaluateStatement(ast.Un(ast.UnaryNot, ast.Int(1)), nil); err == nil {
		t.Fatal("!1 succeeded")
	}
}

func TestIfConditionMustBeBool(t *testing.T) {
	i, _ := testInterpreter(t)

	val := mustEval(t, i, ast.IfExpr(ast.Bin("<", ast.Int(1), ast.Int(2)),
		ast.Block(ast.Str("yes")),
		ast.Else(ast.Str("no"))))
	if got := val.(runtime.StringValue).Val; got != "yes" {
		t.Fatalf("if evaluated to %q", got)
	}

	_, err := i.EvaluateStatement(ast.IfExpr(ast.Int(1), ast.Block(ast.Int(0)), ast.Else(ast.Int(1))), nil)
	if err == nil || !strings.Contains(err.Error(), "condition must be Bool") {
		t.Fatalf("integer condition returned %v", err)
	}
}

func TestLetBindingDoesNotEscape(t *testing.T) {
	i, _ := testInterpreter(t)

	val := mustEval(t, i, ast.Let("x", ast.Int(2), ast.Bin("+", ast.ID("x"), ast.Int(3))))
	if got := intResult(t, val); got != 5 {
		t.Fatalf("let x = 2 in x + 3 evaluated to %d", got)
	}

	if _, err := i.EvaluateStatement(ast.ID("x"), nil); err == nil {
		t.Fatal("let binding leaked into the enclosing scope")
	}
}

func TestLetShadowing(t *testing.T) {
	i, _ := testInterpreter(t)

	inner := ast.Let("x", ast.Int(10), ast.ID("x"))
	val := mustEval(t, i, ast.Let("x", ast.Int(1), ast.Bin("+", inner, ast.ID("x"))))
	if got := intResult(t, val); got != 11 {
		t.Fatalf("shadowed let evaluated to %d", got)
	}
}

func TestFunctionDefinitionAndCall(t *testing.T) {
	i, _ := testInterpreter(t)

	mustDefine(t, i, ast.Fn("double",
		[]*ast.FunctionParameter{ast.Param("n", ast.Ty("Int"))},
		ast.Ty("Int"),
		ast.Bin("*", ast.ID("n"), ast.Int(2))))

	if got := intResult(t, mustEval(t, i, ast.Call("double", ast.Int(4)))); got != 8 {
		t.Fatalf("double(4) evaluated to %d", got)
	}

	_, err := i.EvaluateStatement(ast.Call("double", ast.Int(1), ast.Int(2)), nil)
	if err == nil || !strings.Contains(err.Error(), "expects 1 arguments, got 2") {
		t.Fatalf("double(1, 2) returned %v", err)
	}

	_, err = i.EvaluateStatement(ast.Call("double", ast.Str("x")), nil)
	if err == nil || !strings.Contains(err.Error(), "must be Int, got String") {
		t.Fatalf("double(\"x\") returned %v", err)
	}
}

func TestLambdaAndClosure(t *testing.T) {
	i, _ := testInterpreter(t)

	val := mustEval(t, i, ast.CallExpr(ast.Lam1("x", ast.Bin("+", ast.ID("x"), ast.Int(1))), ast.Int(41)))
	if got := intResult(t, val); got != 42 {
		t.Fatalf("immediate lambda call evaluated to %d", got)
	}

	mustDefine(t, i, ast.Fn("make_adder",
		[]*ast.FunctionParameter{ast.Param("n", ast.Ty("Int"))},
		ast.Ty("Any"),
		ast.Lam1("x", ast.Bin("+", ast.ID("x"), ast.ID("n")))))

	val = mustEval(t, i, ast.CallExpr(ast.Call("make_adder", ast.Int(5)), ast.Int(3)))
	if got := intResult(t, val); got != 8 {
		t.Fatalf("make_adder(5)(3) evaluated to %d", got)
	}
}

func TestCallingNonFunction(t *testing.T) {
	i, _ := testInterpreter(t)

	_, err := i.EvaluateStatement(ast.CallExpr(ast.Int(3), ast.Int(1)), nil)
	if err == nil || !strings.Contains(err.Error(), "calling non-function value of kind integer") {
		t.Fatalf("calling an integer returned %v", err)
	}
}

func TestIdentifierResolutionPrefersEnvironment(t *testing.T) {
	i, _ := testInterpreter(t)

	// A parameter named after a constructor shadows the registry.
	mustDefine(t, i, ast.Fn("probe",
		[]*ast.FunctionParameter{ast.Param("None", nil)},
		ast.Ty("Any"),
		ast.ID("None")))

	val := mustEval(t, i, ast.Call("probe", ast.Int(7)))
	if got := intResult(t, val); got != 7 {
		t.Fatalf("shadowed constructor name resolved to %#v", val)
	}

	// Outside the shadow the registry applies again.
	val = mustEval(t, i, ast.ID("None"))
	if variant, ok := val.(*runtime.VariantValue); !ok || variant.Tag() != "None" {
		t.Fatalf("None evaluated to %#v", val)
	}
}

func TestConstructorApplication(t *testing.T) {
	i, _ := testInterpreter(t)

	val := mustEval(t, i, ast.Call("Cons", ast.Int(1), ast.ID("Empty")))
	variant, ok := val.(*runtime.VariantValue)
	if !ok || variant.Tag() != "Cons" || variant.TypeName() != "Seq" {
		t.Fatalf("Cons(1, Empty) evaluated to %#v", val)
	}

	var arity *runtime.ArityMismatchError
	_, err := i.EvaluateStatement(ast.Call("Cons", ast.Int(1)), nil)
	if !errors.As(err, &arity) {
		t.Fatalf("Cons(1) returned %v, want ArityMismatchError", err)
	}
	if arity.Want != 2 || arity.Got != 1 {
		t.Fatalf("arity error carried want=%d got=%d", arity.Want, arity.Got)
	}

	// A bare non-nullary constructor fails the same way.
	_, err = i.EvaluateStatement(ast.ID("Cons"), nil)
	if !errors.As(err, &arity) || arity.Got != 0 {
		t.Fatalf("bare Cons returned %v", err)
	}

	var kind *runtime.KindMismatchError
	_, err = i.EvaluateStatement(ast.Call("Cons", ast.Int(1), ast.Int(2)), nil)
	if !errors.As(err, &kind) {
		t.Fatalf("Cons(1, 2) returned %v, want KindMismatchError", err)
	}
	if kind.Position != 1 || kind.Declared != "Seq" || kind.Actual != "Int" {
		t.Fatalf("kind error carried %#v", kind)
	}
}

func TestRegisterTypeThroughStatement(t *testing.T) {
	i, _ := testInterpreter(t)

	val := mustEval(t, i, ast.TypeDef("Shape",
		ast.Ctor("Circle", ast.Ty("Int")),
		ast.Ctor("Square", ast.Ty("Int"))))
	if _, ok := val.(runtime.UnitValue); !ok {
		t.Fatalf("type definition evaluated to %#v", val)
	}

	if got := renderOf(t, i, ast.Call("Circle", ast.Int(3))); got != "Circle(3)" {
		t.Fatalf("Circle(3) rendered as %q", got)
	}

	var dup *schema.DuplicateConstructorError
	_, err := i.EvaluateStatement(ast.TypeDef("Maybe", ast.Ctor("Some", ast.Ty("Any"))), nil)
	if !errors.As(err, &dup) {
		t.Fatalf("clashing type definition returned %v", err)
	}
	if dup.ExistingType != "Option" {
		t.Fatalf("duplicate error blamed %q, want Option", dup.ExistingType)
	}
}

func TestStackExhaustedAndRecovery(t *testing.T) {
	i, _ := testInterpreter(t, WithMaxDepth(64))

	mustDefine(t, i, ast.Fn("spin",
		[]*ast.FunctionParameter{ast.Param("n", ast.Ty("Int"))},
		ast.Ty("Int"),
		ast.Call("spin", ast.Bin("+", ast.ID("n"), ast.Int(1)))))

	var exhausted *StackExhaustedError
	_, err := i.EvaluateStatement(ast.Call("spin", ast.Int(0)), nil)
	if !errors.As(err, &exhausted) {
		t.Fatalf("unbounded recursion returned %v, want StackExhaustedError", err)
	}
	if exhausted.Limit != 64 {
		t.Fatalf("exhausted limit = %d, want 64", exhausted.Limit)
	}

	// The depth counter unwinds with the error; the interpreter stays usable.
	if got := intResult(t, mustEval(t, i, ast.Bin("+", ast.Int(1), ast.Int(1)))); got != 2 {
		t.Fatalf("post-exhaustion arithmetic evaluated to %d", got)
	}
	val := mustEval(t, i, ast.Call("length", seqLiteral(1, 2, 3)))
	if got := intResult(t, val); got != 3 {
		t.Fatalf("post-exhaustion length evaluated to %d", got)
	}
}

func TestDeepRecursionWithinLimit(t *testing.T) {
	i, _ := testInterpreter(t)

	mustDefine(t, i, ast.Fn("count_down",
		[]*ast.FunctionParameter{ast.Param("n", ast.Ty("Int"))},
		ast.Ty("Int"),
		ast.IfExpr(ast.Bin("<=", ast.ID("n"), ast.Int(0)),
			ast.Block(ast.Int(0)),
			ast.Else(ast.Call("count_down", ast.Bin("-", ast.ID("n"), ast.Int(1)))))))

	if got := intResult(t, mustEval(t, i, ast.Call("count_down", ast.Int(4000)))); got != 0 {
		t.Fatalf("count_down(4000) evaluated to %d", got)
	}
}

func TestEvaluateModule(t *testing.T) {
	i, _ := testInterpreter(t)

	module := ast.Mod(
		ast.TypeDef("Color", ast.Ctor("Red"), ast.Ctor("Green"), ast.Ctor("Blue")),
		ast.Fn("favorite", nil, ast.Ty("Color"), ast.ID("Green")),
		ast.Call("favorite"),
	)
	val, env, err := i.EvaluateModule(module)
	if err != nil {
		t.Fatalf("EvaluateModule: %v", err)
	}
	if variant, ok := val.(*runtime.VariantValue); !ok || variant.Tag() != "Green" {
		t.Fatalf("module evaluated to %#v", val)
	}
	if env != i.GlobalEnvironment() {
		t.Fatal("module did not evaluate against the global environment")
	}

	// Definitions persist for later modules.
	val, _, err = i.EvaluateModule(ast.Mod(ast.Call("favorite")))
	if err != nil {
		t.Fatalf("second module: %v", err)
	}
	if variant := val.(*runtime.VariantValue); variant.Tag() != "Green" {
		t.Fatalf("second module evaluated to %#v", val)
	}
}

func TestEmptyModuleAndBlock(t *testing.T) {
	i, _ := testInterpreter(t)

	val, _, err := i.EvaluateModule(ast.Mod())
	if err != nil {
		t.Fatalf("empty module: %v", err)
	}
	if _, ok := val.(runtime.UnitValue); !ok {
		t.Fatalf("empty module evaluated to %#v", val)
	}

	val = mustEval(t, i, ast.Block())
	if _, ok := val.(runtime.UnitValue); !ok {
		t.Fatalf("empty block evaluated to %#v", val)
	}
}

func TestBlockScopesDefinitions(t *testing.T) {
	i, _ := testInterpreter(t)

	block := ast.Block(
		ast.Fn("helper", nil, ast.Ty("Int"), ast.Int(9)),
		ast.Call("helper"),
	)
	if got := intResult(t, mustEval(t, i, block)); got != 9 {
		t.Fatalf("block with local function evaluated to %d", got)
	}

	if _, err := i.EvaluateStatement(ast.Call("helper"), nil); err == nil {
		t.Fatal("block-local definition leaked into the global scope")
	}
}
