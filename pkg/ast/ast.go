package ast

import "math/big"

type NodeType string

const (
	NodeIdentifier            NodeType = "Identifier"
	NodeIntegerLiteral        NodeType = "IntegerLiteral"
	NodeStringLiteral         NodeType = "StringLiteral"
	NodeBooleanLiteral        NodeType = "BooleanLiteral"
	NodeSimpleTypeExpression  NodeType = "SimpleTypeExpression"
	NodeWildcardPattern       NodeType = "WildcardPattern"
	NodeConstructorPattern    NodeType = "ConstructorPattern"
	NodeUnaryExpression       NodeType = "UnaryExpression"
	NodeBinaryExpression      NodeType = "BinaryExpression"
	NodeFunctionCall          NodeType = "FunctionCall"
	NodeBlockExpression       NodeType = "BlockExpression"
	NodeLambdaExpression      NodeType = "LambdaExpression"
	NodeLetExpression         NodeType = "LetExpression"
	NodeElseClause            NodeType = "ElseClause"
	NodeIfExpression          NodeType = "IfExpression"
	NodeMatchClause           NodeType = "MatchClause"
	NodeMatchExpression       NodeType = "MatchExpression"
	NodeConstructorDefinition NodeType = "ConstructorDefinition"
	NodeTypeDefinition        NodeType = "TypeDefinition"
	NodeFunctionParameter     NodeType = "FunctionParameter"
	NodeFunctionDefinition    NodeType = "FunctionDefinition"
	NodeModule                NodeType = "Module"
)

type Node interface {
	NodeType() NodeType
	isNode()
}

type nodeImpl struct {
	Type NodeType `json:"type"`
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (nodeImpl) isNode()              {}

// Marker interfaces.

type Expression interface {
	Node
	expressionNode()
	statementNode()
}

type expressionMarker struct{}

func (expressionMarker) expressionNode() {}

type Statement interface {
	Node
	statementNode()
}

type statementMarker struct{}

func (statementMarker) statementNode() {}

type Pattern interface {
	Node
	patternNode()
}

type patternMarker struct{}

func (patternMarker) patternNode() {}

type TypeExpression interface {
	Node
	typeExpressionNode()
}

type typeExpressionMarker struct{}

func (typeExpressionMarker) typeExpressionNode() {}

// Identifier

type Identifier struct {
	nodeImpl
	expressionMarker
	statementMarker
	patternMarker

	Name string `json:"name"`
}

func NewIdentifier(name string) *Identifier {
	return &Identifier{nodeImpl: newNodeImpl(NodeIdentifier), Name: name}
}

// Literals

type IntegerLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker

	Value *big.Int `json:"value"`
}

func NewIntegerLiteral(value *big.Int) *IntegerLiteral {
	return &IntegerLiteral{nodeImpl: newNodeImpl(NodeIntegerLiteral), Value: value}
}

type StringLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker

	Value string `json:"value"`
}

func NewStringLiteral(value string) *StringLiteral {
	return &StringLiteral{nodeImpl: newNodeImpl(NodeStringLiteral), Value: value}
}

type BooleanLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker

	Value bool `json:"value"`
}

func NewBooleanLiteral(value bool) *BooleanLiteral {
	return &BooleanLiteral{nodeImpl: newNodeImpl(NodeBooleanLiteral), Value: value}
}

// Type expressions

type SimpleTypeExpression struct {
	nodeImpl
	typeExpressionMarker

	Name *Identifier `json:"name"`
}

func NewSimpleTypeExpression(name *Identifier) *SimpleTypeExpression {
	return &SimpleTypeExpression{nodeImpl: newNodeImpl(NodeSimpleTypeExpression), Name: name}
}

// Patterns

type WildcardPattern struct {
	nodeImpl
	patternMarker
}

func NewWildcardPattern() *WildcardPattern {
	return &WildcardPattern{nodeImpl: newNodeImpl(NodeWildcardPattern)}
}

// ConstructorPattern matches one constructor of a variant type and binds its
// arguments positionally. Each element is an *Identifier binder or a
// *WildcardPattern; a bare constructor name parses with no elements.
type ConstructorPattern struct {
	nodeImpl
	patternMarker

	Constructor *Identifier `json:"constructor"`
	Elements    []Pattern   `json:"elements"`
}

func NewConstructorPattern(constructor *Identifier, elements []Pattern) *ConstructorPattern {
	return &ConstructorPattern{nodeImpl: newNodeImpl(NodeConstructorPattern), Constructor: constructor, Elements: elements}
}

// Expressions

type UnaryOperator string

const (
	UnaryNegate UnaryOperator = "-"
	UnaryNot    UnaryOperator = "!"
)

type UnaryExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator UnaryOperator `json:"operator"`
	Operand  Expression    `json:"operand"`
}

func NewUnaryExpression(operator UnaryOperator, operand Expression) *UnaryExpression {
	return &UnaryExpression{nodeImpl: newNodeImpl(NodeUnaryExpression), Operator: operator, Operand: operand}
}

type BinaryExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator string     `json:"operator"`
	Left     Expression `json:"left"`
	Right    Expression `json:"right"`
}

func NewBinaryExpression(operator string, left, right Expression) *BinaryExpression {
	return &BinaryExpression{nodeImpl: newNodeImpl(NodeBinaryExpression), Operator: operator, Left: left, Right: right}
}

// FunctionCall covers both function application and constructor application;
// which one it is resolves at evaluation from the callee.
type FunctionCall struct {
	nodeImpl
	expressionMarker
	statementMarker

	Function  Expression   `json:"function"`
	Arguments []Expression `json:"arguments"`
}

func NewFunctionCall(function Expression, arguments []Expression) *FunctionCall {
	return &FunctionCall{nodeImpl: newNodeImpl(NodeFunctionCall), Function: function, Arguments: arguments}
}

type BlockExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Body []Statement `json:"body"`
}

func NewBlockExpression(body []Statement) *BlockExpression {
	return &BlockExpression{nodeImpl: newNodeImpl(NodeBlockExpression), Body: body}
}

type LambdaExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Params []*FunctionParameter `json:"params"`
	Body   Expression           `json:"body"`
}

func NewLambdaExpression(params []*FunctionParameter, body Expression) *LambdaExpression {
	return &LambdaExpression{nodeImpl: newNodeImpl(NodeLambdaExpression), Params: params, Body: body}
}

// LetExpression binds Name to Value inside Body only; the binding does not
// escape.
type LetExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Name  *Identifier `json:"name"`
	Value Expression  `json:"value"`
	Body  Expression  `json:"body"`
}

func NewLetExpression(name *Identifier, value Expression, body Expression) *LetExpression {
	return &LetExpression{nodeImpl: newNodeImpl(NodeLetExpression), Name: name, Value: value, Body: body}
}

// ElseClause is an `else if` arm when Condition is set, the final `else`
// otherwise.
type ElseClause struct {
	nodeImpl

	Condition Expression       `json:"condition,omitempty"`
	Body      *BlockExpression `json:"body"`
}

func NewElseClause(body *BlockExpression, condition Expression) *ElseClause {
	return &ElseClause{nodeImpl: newNodeImpl(NodeElseClause), Condition: condition, Body: body}
}

type IfExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	IfCondition Expression       `json:"ifCondition"`
	IfBody      *BlockExpression `json:"ifBody"`
	ElseClauses []*ElseClause    `json:"elseClauses"`
}

func NewIfExpression(ifCondition Expression, ifBody *BlockExpression, elseClauses []*ElseClause) *IfExpression {
	return &IfExpression{nodeImpl: newNodeImpl(NodeIfExpression), IfCondition: ifCondition, IfBody: ifBody, ElseClauses: elseClauses}
}

type MatchClause struct {
	nodeImpl

	Pattern Pattern    `json:"pattern"`
	Body    Expression `json:"body"`
}

func NewMatchClause(pattern Pattern, body Expression) *MatchClause {
	return &MatchClause{nodeImpl: newNodeImpl(NodeMatchClause), Pattern: pattern, Body: body}
}

type MatchExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Subject Expression     `json:"subject"`
	Clauses []*MatchClause `json:"clauses"`
}

func NewMatchExpression(subject Expression, clauses []*MatchClause) *MatchExpression {
	return &MatchExpression{nodeImpl: newNodeImpl(NodeMatchExpression), Subject: subject, Clauses: clauses}
}

// Definitions

// ConstructorDefinition declares one constructor of a variant type together
// with the kinds its argument positions admit.
type ConstructorDefinition struct {
	nodeImpl

	ID     *Identifier      `json:"id"`
	Params []TypeExpression `json:"params"`
}

func NewConstructorDefinition(id *Identifier, params []TypeExpression) *ConstructorDefinition {
	return &ConstructorDefinition{nodeImpl: newNodeImpl(NodeConstructorDefinition), ID: id, Params: params}
}

// TypeDefinition declares a variant type as a closed set of constructors.
type TypeDefinition struct {
	nodeImpl
	statementMarker

	ID           *Identifier              `json:"id"`
	Constructors []*ConstructorDefinition `json:"constructors"`
}

func NewTypeDefinition(id *Identifier, constructors []*ConstructorDefinition) *TypeDefinition {
	return &TypeDefinition{nodeImpl: newNodeImpl(NodeTypeDefinition), ID: id, Constructors: constructors}
}

type FunctionParameter struct {
	nodeImpl

	Name      *Identifier    `json:"name"`
	ParamType TypeExpression `json:"paramType,omitempty"`
}

func NewFunctionParameter(name *Identifier, paramType TypeExpression) *FunctionParameter {
	return &FunctionParameter{nodeImpl: newNodeImpl(NodeFunctionParameter), Name: name, ParamType: paramType}
}

type FunctionDefinition struct {
	nodeImpl
	statementMarker

	ID         *Identifier          `json:"id"`
	Params     []*FunctionParameter `json:"params"`
	ReturnType TypeExpression       `json:"returnType,omitempty"`
	Body       *BlockExpression     `json:"body"`
}

func NewFunctionDefinition(id *Identifier, params []*FunctionParameter, body *BlockExpression, returnType TypeExpression) *FunctionDefinition {
	return &FunctionDefinition{nodeImpl: newNodeImpl(NodeFunctionDefinition), ID: id, Params: params, ReturnType: returnType, Body: body}
}

// Module root

type Module struct {
	nodeImpl

	Body []Statement `json:"body"`
}

func NewModule(body []Statement) *Module {
	return &Module{nodeImpl: newNodeImpl(NodeModule), Body: body}
}
