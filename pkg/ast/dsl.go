package ast

import "math/big"

// Identifier and literal helpers.

func ID(name string) *Identifier {
	return NewIdentifier(name)
}

func Str(value string) *StringLiteral {
	return NewStringLiteral(value)
}

func Int(value int64) *IntegerLiteral {
	return NewIntegerLiteral(big.NewInt(value))
}

func IntBig(value *big.Int) *IntegerLiteral {
	return NewIntegerLiteral(new(big.Int).Set(value))
}

func Bool(value bool) *BooleanLiteral {
	return NewBooleanLiteral(value)
}

// Type expression helpers.

func Ty(name string) *SimpleTypeExpression {
	return NewSimpleTypeExpression(ID(name))
}

func TyID(id *Identifier) *SimpleTypeExpression {
	return NewSimpleTypeExpression(id)
}

// Pattern helpers.

func Wc() *WildcardPattern {
	return NewWildcardPattern()
}

// CtorP builds a constructor pattern; elements may be strings (binder names,
// "_" for an ignored position), *Identifier, or Pattern.
func CtorP(name string, elements ...interface{}) *ConstructorPattern {
	patterns := make([]Pattern, len(elements))
	for i, element := range elements {
		patterns[i] = PatternFrom(element)
	}
	return NewConstructorPattern(ID(name), patterns)
}

func PatternFrom(value interface{}) Pattern {
	switch v := value.(type) {
	case string:
		if v == "_" {
			return Wc()
		}
		return ID(v)
	case *Identifier:
		return v
	case Pattern:
		return v
	default:
		panic("ast: unsupported pattern value")
	}
}

// Expression helpers.

func Un(operator UnaryOperator, operand Expression) *UnaryExpression {
	return NewUnaryExpression(operator, operand)
}

func Bin(operator string, left, right Expression) *BinaryExpression {
	return NewBinaryExpression(operator, left, right)
}

func CallExpr(callee Expression, args ...Expression) *FunctionCall {
	return NewFunctionCall(callee, args)
}

func Call(name string, args ...Expression) *FunctionCall {
	return CallExpr(ID(name), args...)
}

func Block(statements ...Statement) *BlockExpression {
	return NewBlockExpression(statements)
}

func Lam(params []*FunctionParameter, body Expression) *LambdaExpression {
	return NewLambdaExpression(params, body)
}

// Lam1 is the common one-parameter lambda: fn(x) { body }.
func Lam1(param string, body Expression) *LambdaExpression {
	return Lam([]*FunctionParameter{Param(param, nil)}, body)
}

func Let(name string, value Expression, body Expression) *LetExpression {
	return NewLetExpression(ID(name), value, body)
}

func ElseIf(body *BlockExpression, condition Expression) *ElseClause {
	return NewElseClause(body, condition)
}

func Else(statements ...Statement) *ElseClause {
	return NewElseClause(Block(statements...), nil)
}

func IfExpr(condition Expression, body *BlockExpression, elseClauses ...*ElseClause) *IfExpression {
	return NewIfExpression(condition, body, elseClauses)
}

func Mc(pattern interface{}, body Expression) *MatchClause {
	return NewMatchClause(PatternFrom(pattern), body)
}

func Match(subject Expression, clauses ...*MatchClause) *MatchExpression {
	return NewMatchExpression(subject, clauses)
}

// Definition helpers.

func Ctor(name string, params ...TypeExpression) *ConstructorDefinition {
	return NewConstructorDefinition(ID(name), params)
}

func TypeDef(name string, constructors ...*ConstructorDefinition) *TypeDefinition {
	return NewTypeDefinition(ID(name), constructors)
}

func Param(name interface{}, paramType TypeExpression) *FunctionParameter {
	return NewFunctionParameter(identifierPtr(name), paramType)
}

func Fn(name interface{}, params []*FunctionParameter, returnType TypeExpression, body ...Statement) *FunctionDefinition {
	return NewFunctionDefinition(identifierPtr(name), params, Block(body...), returnType)
}

func Mod(body ...Statement) *Module {
	return NewModule(body)
}

// Internal helper utilities.

func identifierPtr(value interface{}) *Identifier {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case string:
		return ID(v)
	case *Identifier:
		return v
	default:
		panic("ast: expected string or *Identifier")
	}
}
