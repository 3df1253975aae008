package interpreter

import (
	"fmt"

	"enoki/interpreter-go/pkg/ast"
	"enoki/interpreter-go/pkg/runtime"
	"enoki/interpreter-go/pkg/schema"
)

// matchPlan is the dispatch table for one match expression: clause lookup by
// constructor identity plus an optional wildcard arm. A plan is built once
// and cached on the interpreter; dispatch never scans clauses.
type matchPlan struct {
	typ      *schema.Type
	byCtor   map[*schema.Constructor]*planClause
	wildcard *planClause
}

// planClause is one compiled arm: the names its binders introduce ("" for an
// ignored position) and the body to evaluate.
type planClause struct {
	binders []string
	body    ast.Expression
}

func (i *Interpreter) planFor(expr *ast.MatchExpression) (*matchPlan, error) {
	if plan, ok := i.plans[expr]; ok {
		return plan, nil
	}
	plan, err := i.buildMatchPlan(expr)
	if err != nil {
		return nil, err
	}
	i.plans[expr] = plan
	return plan, nil
}

// buildMatchPlan validates the clause set and compiles the table. All
// constructor clauses must belong to one type; duplicates keep the first
// clause; an exact tag beats the wildcard whatever the clause order. Missing
// constructors with no wildcard fail with NonExhaustiveMatchError.
func (i *Interpreter) buildMatchPlan(expr *ast.MatchExpression) (*matchPlan, error) {
	if len(expr.Clauses) == 0 {
		return nil, fmt.Errorf("match requires at least one clause")
	}
	plan := &matchPlan{byCtor: make(map[*schema.Constructor]*planClause)}
	for _, clause := range expr.Clauses {
		if clause == nil || clause.Pattern == nil || clause.Body == nil {
			return nil, fmt.Errorf("match clause is incomplete")
		}
		var ctorRef *ast.Identifier
		var elements []ast.Pattern
		switch pat := clause.Pattern.(type) {
		case *ast.WildcardPattern:
			if plan.wildcard == nil {
				plan.wildcard = &planClause{body: clause.Body}
			}
			continue
		case *ast.Identifier:
			// Bare name in pattern position, the nullary constructor form.
			ctorRef = pat
		case *ast.ConstructorPattern:
			ctorRef = pat.Constructor
			elements = pat.Elements
		default:
			return nil, fmt.Errorf("unsupported match pattern %s", clause.Pattern.NodeType())
		}
		if ctorRef == nil || ctorRef.Name == "" {
			return nil, fmt.Errorf("constructor pattern requires a name")
		}
		ctor, ok := i.registry.Constructor(ctorRef.Name)
		if !ok {
			return nil, fmt.Errorf("match pattern references unknown constructor %s", ctorRef.Name)
		}
		if plan.typ == nil {
			plan.typ = ctor.Type
		} else if ctor.Type != plan.typ {
			return nil, fmt.Errorf("match clauses mix constructors of %s and %s", plan.typ.Name, ctor.Type.Name)
		}
		if len(elements) != ctor.Arity() {
			return nil, fmt.Errorf("match clause for %s binds %d arguments, want %d", ctor.Name, len(elements), ctor.Arity())
		}
		if _, dup := plan.byCtor[ctor]; dup {
			continue
		}
		binders := make([]string, len(elements))
		for idx, element := range elements {
			switch binder := element.(type) {
			case *ast.Identifier:
				binders[idx] = binder.Name
			case *ast.WildcardPattern:
				binders[idx] = ""
			default:
				return nil, fmt.Errorf("constructor pattern %s element %d must be a binder or wildcard", ctor.Name, idx)
			}
		}
		plan.byCtor[ctor] = &planClause{binders: binders, body: clause.Body}
	}
	if plan.wildcard == nil && plan.typ != nil {
		var missing []string
		for _, ctor := range plan.typ.Constructors {
			if _, covered := plan.byCtor[ctor]; !covered {
				missing = append(missing, ctor.Name)
			}
		}
		if len(missing) > 0 {
			return nil, &NonExhaustiveMatchError{TypeName: plan.typ.Name, Missing: missing}
		}
	}
	return plan, nil
}

func (i *Interpreter) evaluateMatchExpression(expr *ast.MatchExpression, env *runtime.Environment) (runtime.Value, error) {
	plan, err := i.planFor(expr)
	if err != nil {
		return nil, err
	}
	subject, err := i.evaluateExpression(expr.Subject, env)
	if err != nil {
		return nil, err
	}
	variant, ok := subject.(*runtime.VariantValue)
	if !ok {
		return nil, fmt.Errorf("match subject must be a variant value, got %s", runtime.KindNameOf(subject))
	}
	if plan.typ != nil && variant.Constructor.Type != plan.typ {
		return nil, fmt.Errorf("match covers constructors of %s, subject is %s", plan.typ.Name, variant.TypeName())
	}
	clause := plan.byCtor[variant.Constructor]
	if clause == nil {
		clause = plan.wildcard
	}
	if clause == nil {
		return nil, fmt.Errorf("no match clause for constructor %s", variant.Tag())
	}
	clauseEnv := runtime.NewEnvironment(env)
	for idx, binder := range clause.binders {
		if binder == "" {
			continue
		}
		clauseEnv.Define(binder, variant.Args[idx])
	}
	return i.evaluateExpression(clause.body, clauseEnv)
}

// planMatches eagerly builds dispatch tables for every match expression
// under the node, so a function definition fails at definition time instead
// of at first call.
func (i *Interpreter) planMatches(node ast.Node) error {
	return walkMatches(node, func(expr *ast.MatchExpression) error {
		_, err := i.planFor(expr)
		return err
	})
}

func walkMatches(node ast.Node, visit func(*ast.MatchExpression) error) error {
	switch n := node.(type) {
	case nil:
		return nil
	case *ast.MatchExpression:
		if err := visit(n); err != nil {
			return err
		}
		if err := walkMatches(n.Subject, visit); err != nil {
			return err
		}
		for _, clause := range n.Clauses {
			if clause == nil {
				continue
			}
			if err := walkMatches(clause.Body, visit); err != nil {
				return err
			}
		}
		return nil
	case *ast.BlockExpression:
		for _, stmt := range n.Body {
			if err := walkMatches(stmt, visit); err != nil {
				return err
			}
		}
		return nil
	case *ast.IfExpression:
		if err := walkMatches(n.IfCondition, visit); err != nil {
			return err
		}
		if err := walkMatches(n.IfBody, visit); err != nil {
			return err
		}
		for _, clause := range n.ElseClauses {
			if clause == nil {
				continue
			}
			if clause.Condition != nil {
				if err := walkMatches(clause.Condition, visit); err != nil {
					return err
				}
			}
			if err := walkMatches(clause.Body, visit); err != nil {
				return err
			}
		}
		return nil
	case *ast.LetExpression:
		if err := walkMatches(n.Value, visit); err != nil {
			return err
		}
		return walkMatches(n.Body, visit)
	case *ast.LambdaExpression:
		return walkMatches(n.Body, visit)
	case *ast.FunctionDefinition:
		return walkMatches(n.Body, visit)
	case *ast.FunctionCall:
		if err := walkMatches(n.Function, visit); err != nil {
			return err
		}
		for _, arg := range n.Arguments {
			if err := walkMatches(arg, visit); err != nil {
				return err
			}
		}
		return nil
	case *ast.UnaryExpression:
		return walkMatches(n.Operand, visit)
	case *ast.BinaryExpression:
		if err := walkMatches(n.Left, visit); err != nil {
			return err
		}
		return walkMatches(n.Right, visit)
	default:
		return nil
	}
}
