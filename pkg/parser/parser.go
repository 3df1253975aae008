// Package parser turns Enoki source text into the AST the interpreter
// evaluates.
package parser

import (
	"errors"
	"fmt"
	"math/big"

	"enoki/interpreter-go/pkg/ast"
)

//-----------------------------------------------------------------------------
// Errors
//-----------------------------------------------------------------------------

// Error reports where scanning or parsing failed. Incomplete marks failures
// caused by running out of input, which lets interactive callers ask for
// another line instead of rejecting the buffer.
type Error struct {
	Line       int
	Col        int
	Msg        string
	Incomplete bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// IsIncomplete reports whether err means the source ended mid-form.
func IsIncomplete(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Incomplete
}

//-----------------------------------------------------------------------------
// Entry point
//-----------------------------------------------------------------------------

// Parse scans and parses src as a module.
func Parse(src string) (*ast.Module, error) {
	toks, err := newLexer(src).scan()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.parseModule()
}

//-----------------------------------------------------------------------------
// Parser state
//-----------------------------------------------------------------------------

type parser struct {
	toks []Token
	i    int
}

func (p *parser) peek() Token { return p.toks[p.i] }

func (p *parser) atEnd() bool { return p.peek().Type == EOF }

func (p *parser) check(tt TokenType) bool { return p.peek().Type == tt }

func (p *parser) checkNext(tt TokenType) bool {
	if p.i+1 >= len(p.toks) {
		return false
	}
	return p.toks[p.i+1].Type == tt
}

func (p *parser) advance() Token {
	tok := p.toks[p.i]
	if tok.Type != EOF {
		p.i++
	}
	return tok
}

func (p *parser) match(tts ...TokenType) bool {
	for _, tt := range tts {
		if p.check(tt) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *parser) errAt(tok Token, msg string) *Error {
	return &Error{Line: tok.Line, Col: tok.Col, Msg: msg, Incomplete: tok.Type == EOF}
}

// need consumes a token of the given type or fails with msg. Failing at end
// of input marks the error incomplete.
func (p *parser) need(tt TokenType, msg string) (Token, error) {
	if p.check(tt) {
		return p.advance(), nil
	}
	return Token{}, p.errAt(p.peek(), msg)
}

// parseName consumes an identifier used as a name. "_" is a pattern, never a
// name.
func (p *parser) parseName(msg string) (*ast.Identifier, error) {
	tok, err := p.need(IDENT, msg)
	if err != nil {
		return nil, err
	}
	if tok.Text == "_" {
		return nil, p.errAt(tok, "'_' is only valid in patterns")
	}
	return ast.NewIdentifier(tok.Text), nil
}

//-----------------------------------------------------------------------------
// Statements
//-----------------------------------------------------------------------------

func (p *parser) parseModule() (*ast.Module, error) {
	var body []ast.Statement
	for !p.atEnd() {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
	}
	return ast.NewModule(body), nil
}

func (p *parser) parseStatement() (ast.Statement, error) {
	switch {
	case p.check(TYPE):
		return p.parseTypeDefinition()
	case p.check(FN) && p.checkNext(IDENT):
		// "fn" followed by a name is a definition; "fn(" starts a lambda
		// and parses as an expression.
		return p.parseFunctionDefinition()
	default:
		return p.parseExpression()
	}
}

func (p *parser) parseTypeDefinition() (ast.Statement, error) {
	p.advance()
	name, err := p.parseName("expected type name after 'type'")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(EQUALS, "expected '=' after type name"); err != nil {
		return nil, err
	}
	var ctors []*ast.ConstructorDefinition
	for {
		ctor, err := p.parseConstructorDefinition()
		if err != nil {
			return nil, err
		}
		ctors = append(ctors, ctor)
		if !p.match(PIPE) {
			break
		}
	}
	return ast.NewTypeDefinition(name, ctors), nil
}

func (p *parser) parseConstructorDefinition() (*ast.ConstructorDefinition, error) {
	name, err := p.parseName("expected constructor name")
	if err != nil {
		return nil, err
	}
	var params []ast.TypeExpression
	if p.match(LPAREN) {
		for {
			kind, err := p.parseKind()
			if err != nil {
				return nil, err
			}
			params = append(params, kind)
			if !p.match(COMMA) {
				break
			}
		}
		if _, err := p.need(RPAREN, "expected ')' after constructor arguments"); err != nil {
			return nil, err
		}
	}
	return ast.NewConstructorDefinition(name, params), nil
}

func (p *parser) parseKind() (ast.TypeExpression, error) {
	name, err := p.parseName("expected kind name")
	if err != nil {
		return nil, err
	}
	return ast.NewSimpleTypeExpression(name), nil
}

func (p *parser) parseFunctionDefinition() (ast.Statement, error) {
	p.advance()
	name, err := p.parseName("expected function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(LPAREN, "expected '(' after function name"); err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	if _, err := p.need(RPAREN, "expected ')' after parameters"); err != nil {
		return nil, err
	}
	var returnType ast.TypeExpression
	if p.match(ARROW) {
		returnType, err = p.parseKind()
		if err != nil {
			return nil, err
		}
	}
	body, err := p.parseBlock("expected '{' to start function body")
	if err != nil {
		return nil, err
	}
	return ast.NewFunctionDefinition(name, params, body, returnType), nil
}

func (p *parser) parseParams() ([]*ast.FunctionParameter, error) {
	if p.check(RPAREN) {
		return nil, nil
	}
	var params []*ast.FunctionParameter
	for {
		name, err := p.parseName("expected parameter name")
		if err != nil {
			return nil, err
		}
		var paramType ast.TypeExpression
		if p.match(COLON) {
			paramType, err = p.parseKind()
			if err != nil {
				return nil, err
			}
		}
		params = append(params, ast.NewFunctionParameter(name, paramType))
		if !p.match(COMMA) {
			break
		}
	}
	return params, nil
}

func (p *parser) parseBlock(openMsg string) (*ast.BlockExpression, error) {
	if _, err := p.need(LBRACE, openMsg); err != nil {
		return nil, err
	}
	return p.parseBlockRest()
}

func (p *parser) parseBlockRest() (*ast.BlockExpression, error) {
	var body []ast.Statement
	for !p.check(RBRACE) && !p.atEnd() {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
	}
	if _, err := p.need(RBRACE, "expected '}' to close block"); err != nil {
		return nil, err
	}
	return ast.NewBlockExpression(body), nil
}

//-----------------------------------------------------------------------------
// Expressions
//-----------------------------------------------------------------------------

func (p *parser) parseExpression() (ast.Expression, error) {
	if p.match(LET) {
		return p.parseLetExpression()
	}
	return p.parseBinary(1)
}

func (p *parser) parseLetExpression() (ast.Expression, error) {
	name, err := p.parseName("expected name after 'let'")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(EQUALS, "expected '=' in let binding"); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.need(IN, "expected 'in' after let value"); err != nil {
		return nil, err
	}
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return ast.NewLetExpression(name, value, body), nil
}

// binaryPrec gives the binding power of an infix operator, zero for tokens
// that are not infix operators. Higher binds tighter.
func binaryPrec(tt TokenType) int {
	switch tt {
	case OR_OR:
		return 1
	case AND_AND:
		return 2
	case EQ, NEQ:
		return 3
	case LESS, LESS_EQ, GREATER, GREATER_EQ:
		return 4
	case PLUS, MINUS:
		return 5
	case STAR, SLASH:
		return 6
	default:
		return 0
	}
}

// parseBinary climbs operator precedence; every level is left associative.
func (p *parser) parseBinary(minPrec int) (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		prec := binaryPrec(p.peek().Type)
		if prec < minPrec {
			return left, nil
		}
		op := p.advance()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpression(op.Text, left, right)
	}
}

func (p *parser) parseUnary() (ast.Expression, error) {
	if p.match(MINUS) {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpression(ast.UnaryNegate, operand), nil
	}
	if p.match(BANG) {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpression(ast.UnaryNot, operand), nil
	}
	return p.parsePostfix()
}

// parsePostfix wraps a primary in call expressions for as long as argument
// lists follow it, so f(1)(2) and fn(x) { x }(3) both work.
func (p *parser) parsePostfix() (ast.Expression, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.match(LPAREN) {
		var args []ast.Expression
		if !p.check(RPAREN) {
			for {
				arg, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if !p.match(COMMA) {
					break
				}
			}
		}
		if _, err := p.need(RPAREN, "expected ')' after arguments"); err != nil {
			return nil, err
		}
		expr = ast.NewFunctionCall(expr, args)
	}
	return expr, nil
}

func (p *parser) parsePrimary() (ast.Expression, error) {
	tok := p.advance()
	switch tok.Type {
	case INT:
		value, ok := new(big.Int).SetString(tok.Text, 10)
		if !ok {
			return nil, p.errAt(tok, "invalid integer literal")
		}
		return ast.NewIntegerLiteral(value), nil
	case STRING:
		return ast.NewStringLiteral(tok.Text), nil
	case TRUE:
		return ast.NewBooleanLiteral(true), nil
	case FALSE:
		return ast.NewBooleanLiteral(false), nil
	case IDENT:
		if tok.Text == "_" {
			return nil, p.errAt(tok, "'_' is only valid in patterns")
		}
		return ast.NewIdentifier(tok.Text), nil
	case LPAREN:
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.need(RPAREN, "expected ')'"); err != nil {
			return nil, err
		}
		return expr, nil
	case LBRACE:
		return p.parseBlockRest()
	case IF:
		return p.parseIfExpression()
	case MATCH:
		return p.parseMatchExpression()
	case FN:
		return p.parseLambda()
	case EOF:
		return nil, p.errAt(tok, "expected expression")
	default:
		return nil, p.errAt(tok, fmt.Sprintf("unexpected token %s", tok.describe()))
	}
}

func (p *parser) parseLambda() (ast.Expression, error) {
	if _, err := p.need(LPAREN, "expected '(' after 'fn'"); err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	if _, err := p.need(RPAREN, "expected ')' after parameters"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock("expected '{' to start function body")
	if err != nil {
		return nil, err
	}
	return ast.NewLambdaExpression(params, body), nil
}

// parseIfExpression parses the arms after an already consumed "if". The
// final "else" is mandatory; "else if" arms chain into further clauses.
func (p *parser) parseIfExpression() (ast.Expression, error) {
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	ifBody, err := p.parseBlock("expected '{' after if condition")
	if err != nil {
		return nil, err
	}
	var clauses []*ast.ElseClause
	for {
		if _, err := p.need(ELSE, "expected 'else' after if body"); err != nil {
			return nil, err
		}
		if p.match(IF) {
			armCond, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			armBody, err := p.parseBlock("expected '{' after if condition")
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, ast.NewElseClause(armBody, armCond))
			continue
		}
		finalBody, err := p.parseBlock("expected '{' after 'else'")
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, ast.NewElseClause(finalBody, nil))
		return ast.NewIfExpression(cond, ifBody, clauses), nil
	}
}

func (p *parser) parseMatchExpression() (ast.Expression, error) {
	subject, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.need(LBRACE, "expected '{' after match subject"); err != nil {
		return nil, err
	}
	var clauses []*ast.MatchClause
	for !p.check(RBRACE) && !p.atEnd() {
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		if _, err := p.need(FATARROW, "expected '=>' after pattern"); err != nil {
			return nil, err
		}
		body, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, ast.NewMatchClause(pat, body))
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.need(RBRACE, "expected '}' to close match"); err != nil {
		return nil, err
	}
	return ast.NewMatchExpression(subject, clauses), nil
}

//-----------------------------------------------------------------------------
// Patterns
//-----------------------------------------------------------------------------

// parsePattern accepts the flat pattern forms: "_", a bare constructor name,
// or a constructor with positional binders where each element is a name or
// "_". Nested patterns are not part of the language; the element loop only
// admits plain identifiers, so nesting fails on the inner '('.
func (p *parser) parsePattern() (ast.Pattern, error) {
	tok, err := p.need(IDENT, "expected pattern")
	if err != nil {
		return nil, err
	}
	if tok.Text == "_" {
		return ast.NewWildcardPattern(), nil
	}
	name := ast.NewIdentifier(tok.Text)
	if !p.match(LPAREN) {
		return name, nil
	}
	var elements []ast.Pattern
	if !p.check(RPAREN) {
		for {
			el, err := p.need(IDENT, "expected binder or '_' in pattern")
			if err != nil {
				return nil, err
			}
			if el.Text == "_" {
				elements = append(elements, ast.NewWildcardPattern())
			} else {
				elements = append(elements, ast.NewIdentifier(el.Text))
			}
			if !p.match(COMMA) {
				break
			}
		}
	}
	if _, err := p.need(RPAREN, "expected ')' after pattern elements"); err != nil {
		return nil, err
	}
	return ast.NewConstructorPattern(name, elements), nil
}
