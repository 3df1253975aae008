package interpreter

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"enoki/interpreter-go/pkg/ast"
	"enoki/interpreter-go/pkg/runtime"
	"enoki/interpreter-go/pkg/schema"
)

// DefaultMaxDepth bounds recursive application before evaluation gives up
// with StackExhaustedError.
const DefaultMaxDepth = 4096

// Interpreter drives evaluation of Enoki AST nodes. Evaluation is strict,
// single-threaded, and deterministic; the only I/O is the print native
// writing to the configured output.
type Interpreter struct {
	global   *runtime.Environment
	registry *schema.Registry
	out      io.Writer
	maxDepth int
	depth    int
	plans    map[*ast.MatchExpression]*matchPlan
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithOutput directs print output (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(i *Interpreter) { i.out = w }
}

// WithMaxDepth overrides the recursion bound.
func WithMaxDepth(depth int) Option {
	return func(i *Interpreter) {
		if depth > 0 {
			i.maxDepth = depth
		}
	}
}

// New returns an interpreter with the prelude registered in its global
// environment.
func New(opts ...Option) *Interpreter {
	i := &Interpreter{
		global:   runtime.NewEnvironment(nil),
		registry: schema.NewRegistry(),
		out:      os.Stdout,
		maxDepth: DefaultMaxDepth,
		plans:    make(map[*ast.MatchExpression]*matchPlan),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.loadPrelude()
	return i
}

// GlobalEnvironment returns the interpreter's global environment.
func (i *Interpreter) GlobalEnvironment() *runtime.Environment {
	return i.global
}

// Registry returns the variant-type registry.
func (i *Interpreter) Registry() *schema.Registry {
	return i.registry
}

// RegisterType registers a variant type. On success its constructors resolve
// at construction sites and in match patterns; on failure the registry is
// unchanged.
func (i *Interpreter) RegisterType(def *ast.TypeDefinition) error {
	_, err := i.registry.Register(def)
	return err
}

// EvaluateModule executes a module's statements in order against the global
// environment and returns the last evaluated value.
func (i *Interpreter) EvaluateModule(module *ast.Module) (runtime.Value, *runtime.Environment, error) {
	moduleEnv := i.global
	var last runtime.Value = runtime.UnitValue{}
	for _, stmt := range module.Body {
		val, err := i.evaluateStatement(stmt, moduleEnv)
		if err != nil {
			return nil, nil, err
		}
		last = val
	}
	return last, moduleEnv, nil
}

// EvaluateStatement evaluates a single statement in the given environment
// (the global environment when env is nil). The REPL uses this to keep one
// environment across inputs.
func (i *Interpreter) EvaluateStatement(stmt ast.Statement, env *runtime.Environment) (runtime.Value, error) {
	if env == nil {
		env = i.global
	}
	return i.evaluateStatement(stmt, env)
}

// CallFunction applies a function value to already evaluated arguments. The
// CLI uses this to invoke a bundle's main after its modules are evaluated.
func (i *Interpreter) CallFunction(callee runtime.Value, args []runtime.Value) (runtime.Value, error) {
	switch fn := callee.(type) {
	case *runtime.FunctionValue:
		return i.invokeFunction(fn, args)
	case runtime.NativeFunctionValue:
		if fn.Arity >= 0 && len(args) != fn.Arity {
			return nil, fmt.Errorf("native '%s' expects %d arguments, got %d", fn.Name, fn.Arity, len(args))
		}
		ctx := &runtime.NativeCallContext{Env: i.global, Out: i.out}
		return fn.Impl(ctx, args)
	default:
		return nil, fmt.Errorf("calling non-function value of kind %s", callee.Kind())
	}
}

func (i *Interpreter) evaluateStatement(node ast.Statement, env *runtime.Environment) (runtime.Value, error) {
	switch n := node.(type) {
	case ast.Expression:
		return i.evaluateExpression(n, env)
	case *ast.TypeDefinition:
		if err := i.RegisterType(n); err != nil {
			return nil, err
		}
		return runtime.UnitValue{}, nil
	case *ast.FunctionDefinition:
		return i.evaluateFunctionDefinition(n, env)
	default:
		return nil, fmt.Errorf("unsupported statement type: %s", n.NodeType())
	}
}

// evaluateFunctionDefinition binds the function after planning every match
// inside its body; a non-exhaustive match fails the definition and leaves
// the environment untouched.
func (i *Interpreter) evaluateFunctionDefinition(def *ast.FunctionDefinition, env *runtime.Environment) (runtime.Value, error) {
	if def.ID == nil || def.ID.Name == "" {
		return nil, fmt.Errorf("function definition requires a name")
	}
	if def.Body == nil {
		return nil, fmt.Errorf("function '%s' has no body", def.ID.Name)
	}
	if err := i.planMatches(def.Body); err != nil {
		return nil, err
	}
	env.Define(def.ID.Name, &runtime.FunctionValue{Declaration: def, Closure: env})
	return runtime.UnitValue{}, nil
}

func (i *Interpreter) evaluateExpression(node ast.Expression, env *runtime.Environment) (runtime.Value, error) {
	switch n := node.(type) {
	case *ast.StringLiteral:
		return runtime.StringValue{Val: n.Value}, nil
	case *ast.BooleanLiteral:
		return runtime.BoolValue{Val: n.Value}, nil
	case *ast.IntegerLiteral:
		return runtime.IntegerValue{Val: runtime.CloneBigInt(n.Value)}, nil
	case *ast.Identifier:
		return i.evaluateIdentifier(n, env)
	case *ast.FunctionCall:
		return i.evaluateFunctionCall(n, env)
	case *ast.UnaryExpression:
		return i.evaluateUnaryExpression(n, env)
	case *ast.BinaryExpression:
		return i.evaluateBinaryExpression(n, env)
	case *ast.BlockExpression:
		return i.evaluateBlock(n, env)
	case *ast.IfExpression:
		return i.evaluateIfExpression(n, env)
	case *ast.LetExpression:
		return i.evaluateLetExpression(n, env)
	case *ast.LambdaExpression:
		return &runtime.FunctionValue{Declaration: n, Closure: env}, nil
	case *ast.MatchExpression:
		return i.evaluateMatchExpression(n, env)
	default:
		return nil, fmt.Errorf("unsupported expression type: %s", n.NodeType())
	}
}

// evaluateIdentifier resolves the environment first, then the registry: a
// bare constructor name is a nullary construction (a non-nullary one fails
// with its arity).
func (i *Interpreter) evaluateIdentifier(ident *ast.Identifier, env *runtime.Environment) (runtime.Value, error) {
	if val, err := env.Get(ident.Name); err == nil {
		return val, nil
	}
	if ctor, ok := i.registry.Constructor(ident.Name); ok {
		return runtime.Construct(ctor, nil)
	}
	return nil, fmt.Errorf("Undefined variable '%s'", ident.Name)
}

func (i *Interpreter) evaluateBlock(block *ast.BlockExpression, env *runtime.Environment) (runtime.Value, error) {
	scope := runtime.NewEnvironment(env)
	var result runtime.Value = runtime.UnitValue{}
	for _, stmt := range block.Body {
		val, err := i.evaluateStatement(stmt, scope)
		if err != nil {
			return nil, err
		}
		result = val
	}
	return result, nil
}

func (i *Interpreter) evaluateIfExpression(expr *ast.IfExpression, env *runtime.Environment) (runtime.Value, error) {
	cond, err := i.evaluateCondition(expr.IfCondition, env)
	if err != nil {
		return nil, err
	}
	if cond {
		return i.evaluateBlock(expr.IfBody, env)
	}
	for _, clause := range expr.ElseClauses {
		if clause.Condition != nil {
			clauseCond, err := i.evaluateCondition(clause.Condition, env)
			if err != nil {
				return nil, err
			}
			if !clauseCond {
				continue
			}
		}
		return i.evaluateBlock(clause.Body, env)
	}
	return runtime.UnitValue{}, nil
}

func (i *Interpreter) evaluateCondition(expr ast.Expression, env *runtime.Environment) (bool, error) {
	val, err := i.evaluateExpression(expr, env)
	if err != nil {
		return false, err
	}
	b, ok := val.(runtime.BoolValue)
	if !ok {
		return false, fmt.Errorf("condition must be Bool, got %s", runtime.KindNameOf(val))
	}
	return b.Val, nil
}

func (i *Interpreter) evaluateLetExpression(expr *ast.LetExpression, env *runtime.Environment) (runtime.Value, error) {
	if expr.Name == nil || expr.Name.Name == "" {
		return nil, fmt.Errorf("let binding requires a name")
	}
	value, err := i.evaluateExpression(expr.Value, env)
	if err != nil {
		return nil, err
	}
	letEnv := runtime.NewEnvironment(env)
	letEnv.Define(expr.Name.Name, value)
	return i.evaluateExpression(expr.Body, letEnv)
}

func (i *Interpreter) evaluateFunctionCall(call *ast.FunctionCall, env *runtime.Environment) (runtime.Value, error) {
	// Constructor application: an identifier callee that is not a binding
	// but is a registered tag builds a variant value.
	if ident, ok := call.Function.(*ast.Identifier); ok && !env.Has(ident.Name) {
		if ctor, found := i.registry.Constructor(ident.Name); found {
			args, err := i.evaluateArguments(call.Arguments, env)
			if err != nil {
				return nil, err
			}
			return runtime.Construct(ctor, args)
		}
	}

	calleeVal, err := i.evaluateExpression(call.Function, env)
	if err != nil {
		return nil, err
	}
	switch fn := calleeVal.(type) {
	case runtime.NativeFunctionValue:
		args, err := i.evaluateArguments(call.Arguments, env)
		if err != nil {
			return nil, err
		}
		if fn.Arity >= 0 && len(args) != fn.Arity {
			return nil, fmt.Errorf("native '%s' expects %d arguments, got %d", fn.Name, fn.Arity, len(args))
		}
		ctx := &runtime.NativeCallContext{Env: env, Out: i.out}
		return fn.Impl(ctx, args)
	case *runtime.FunctionValue:
		args, err := i.evaluateArguments(call.Arguments, env)
		if err != nil {
			return nil, err
		}
		return i.invokeFunction(fn, args)
	default:
		return nil, fmt.Errorf("calling non-function value of kind %s", calleeVal.Kind())
	}
}

func (i *Interpreter) evaluateArguments(exprs []ast.Expression, env *runtime.Environment) ([]runtime.Value, error) {
	args := make([]runtime.Value, 0, len(exprs))
	for _, argExpr := range exprs {
		val, err := i.evaluateExpression(argExpr, env)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}
	return args, nil
}

// invokeFunction applies a function value to fully evaluated arguments. The
// depth counter guards unbounded recursion; its defer keeps the interpreter
// reusable after StackExhaustedError unwinds.
func (i *Interpreter) invokeFunction(fn *runtime.FunctionValue, args []runtime.Value) (runtime.Value, error) {
	if i.depth >= i.maxDepth {
		return nil, &StackExhaustedError{Limit: i.maxDepth}
	}
	i.depth++
	defer func() { i.depth-- }()

	body := fn.Body()
	if body == nil {
		return nil, fmt.Errorf("calling unsupported function declaration %T", fn.Declaration)
	}
	params := fn.Params()
	if len(args) != len(params) {
		return nil, fmt.Errorf("function '%s' expects %d arguments, got %d", callableName(fn), len(params), len(args))
	}
	localEnv := runtime.NewEnvironment(fn.Closure)
	for idx, param := range params {
		if param == nil || param.Name == nil || param.Name.Name == "" {
			return nil, fmt.Errorf("function parameter %d is unnamed", idx)
		}
		if param.ParamType != nil {
			if err := i.checkParamKind(fn, idx, param.ParamType, args[idx]); err != nil {
				return nil, err
			}
		}
		localEnv.Define(param.Name.Name, args[idx])
	}
	return i.evaluateExpression(body, localEnv)
}

// checkParamKind enforces a parameter annotation against a fully evaluated
// argument. Any admits every value.
func (i *Interpreter) checkParamKind(fn *runtime.FunctionValue, idx int, annotation ast.TypeExpression, arg runtime.Value) error {
	simple, ok := annotation.(*ast.SimpleTypeExpression)
	if !ok || simple.Name == nil || simple.Name.Name == "" {
		return fmt.Errorf("function '%s' argument %d has an unsupported kind annotation", callableName(fn), idx)
	}
	declared := simple.Name.Name
	if declared == schema.Any.Name() {
		return nil
	}
	if actual := runtime.KindNameOf(arg); actual != declared {
		return fmt.Errorf("function '%s' argument %d must be %s, got %s", callableName(fn), idx, declared, actual)
	}
	return nil
}

func callableName(fn *runtime.FunctionValue) string {
	if name := fn.Name(); name != "" {
		return name
	}
	return "<lambda>"
}

func (i *Interpreter) evaluateUnaryExpression(expr *ast.UnaryExpression, env *runtime.Environment) (runtime.Value, error) {
	operand, err := i.evaluateExpression(expr.Operand, env)
	if err != nil {
		return nil, err
	}
	switch expr.Operator {
	case ast.UnaryNegate:
		if v, ok := operand.(runtime.IntegerValue); ok {
			return runtime.IntegerValue{Val: new(big.Int).Neg(v.Val)}, nil
		}
		return nil, fmt.Errorf("unary '-' expects Int, got %s", runtime.KindNameOf(operand))
	case ast.UnaryNot:
		if v, ok := operand.(runtime.BoolValue); ok {
			return runtime.BoolValue{Val: !v.Val}, nil
		}
		return nil, fmt.Errorf("unary '!' expects Bool, got %s", runtime.KindNameOf(operand))
	default:
		return nil, fmt.Errorf("unsupported unary operator %s", expr.Operator)
	}
}

func (i *Interpreter) evaluateBinaryExpression(expr *ast.BinaryExpression, env *runtime.Environment) (runtime.Value, error) {
	if expr.Operator == "&&" || expr.Operator == "||" {
		return i.evaluateLogical(expr, env)
	}
	leftVal, err := i.evaluateExpression(expr.Left, env)
	if err != nil {
		return nil, err
	}
	rightVal, err := i.evaluateExpression(expr.Right, env)
	if err != nil {
		return nil, err
	}
	switch expr.Operator {
	case "+", "-", "*", "/":
		return evaluateArithmetic(expr.Operator, leftVal, rightVal)
	case "<", "<=", ">", ">=":
		return evaluateComparison(expr.Operator, leftVal, rightVal)
	case "==", "!=":
		eq := runtime.Equal(leftVal, rightVal)
		if expr.Operator == "!=" {
			eq = !eq
		}
		return runtime.BoolValue{Val: eq}, nil
	default:
		return nil, fmt.Errorf("unsupported binary operator %s", expr.Operator)
	}
}

// evaluateLogical short-circuits: the right operand is untouched when the
// left already decides the result.
func (i *Interpreter) evaluateLogical(expr *ast.BinaryExpression, env *runtime.Environment) (runtime.Value, error) {
	leftVal, err := i.evaluateExpression(expr.Left, env)
	if err != nil {
		return nil, err
	}
	lb, ok := leftVal.(runtime.BoolValue)
	if !ok {
		return nil, fmt.Errorf("left operand of %s must be Bool, got %s", expr.Operator, runtime.KindNameOf(leftVal))
	}
	if expr.Operator == "&&" && !lb.Val {
		return runtime.BoolValue{Val: false}, nil
	}
	if expr.Operator == "||" && lb.Val {
		return runtime.BoolValue{Val: true}, nil
	}
	rightVal, err := i.evaluateExpression(expr.Right, env)
	if err != nil {
		return nil, err
	}
	rb, ok := rightVal.(runtime.BoolValue)
	if !ok {
		return nil, fmt.Errorf("right operand of %s must be Bool, got %s", expr.Operator, runtime.KindNameOf(rightVal))
	}
	return runtime.BoolValue{Val: rb.Val}, nil
}

func evaluateArithmetic(op string, left, right runtime.Value) (runtime.Value, error) {
	switch lv := left.(type) {
	case runtime.IntegerValue:
		rv, ok := right.(runtime.IntegerValue)
		if !ok {
			return nil, fmt.Errorf("operator %s expects Int operands, got %s", op, runtime.KindNameOf(right))
		}
		result := new(big.Int)
		switch op {
		case "+":
			result.Add(lv.Val, rv.Val)
		case "-":
			result.Sub(lv.Val, rv.Val)
		case "*":
			result.Mul(lv.Val, rv.Val)
		case "/":
			if rv.Val.Sign() == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			result.Quo(lv.Val, rv.Val)
		default:
			return nil, fmt.Errorf("unsupported arithmetic operator %s", op)
		}
		return runtime.IntegerValue{Val: result}, nil
	case runtime.StringValue:
		if op == "+" {
			rv, ok := right.(runtime.StringValue)
			if !ok {
				return nil, fmt.Errorf("string concatenation requires both operands to be strings")
			}
			return runtime.StringValue{Val: lv.Val + rv.Val}, nil
		}
		return nil, fmt.Errorf("operator %s not supported for strings", op)
	default:
		return nil, fmt.Errorf("unsupported operand kind %s for %s", runtime.KindNameOf(left), op)
	}
}

func evaluateComparison(op string, left, right runtime.Value) (runtime.Value, error) {
	switch lv := left.(type) {
	case runtime.IntegerValue:
		rv, ok := right.(runtime.IntegerValue)
		if !ok {
			return nil, fmt.Errorf("comparison %s expects Int operands, got %s", op, runtime.KindNameOf(right))
		}
		return runtime.BoolValue{Val: comparisonOp(op, lv.Val.Cmp(rv.Val))}, nil
	case runtime.StringValue:
		rv, ok := right.(runtime.StringValue)
		if !ok {
			return nil, fmt.Errorf("comparison %s expects String operands, got %s", op, runtime.KindNameOf(right))
		}
		return runtime.BoolValue{Val: comparisonOp(op, strings.Compare(lv.Val, rv.Val))}, nil
	default:
		return nil, fmt.Errorf("unsupported operand kind %s for comparison %s", runtime.KindNameOf(left), op)
	}
}

func comparisonOp(op string, cmp int) bool {
	switch op {
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	default:
		return false
	}
}
