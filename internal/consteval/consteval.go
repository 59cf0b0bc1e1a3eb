// Package consteval evaluates boolean constant expressions for
// requires-clauses. It knows nothing about template parameters: the caller
// supplies a Scope that resolves names to concrete types and values.
package consteval

import (
	"fmt"
	"strconv"
	"strings"

	"carbide/internal/ast"
	"carbide/internal/symbols"
	"carbide/internal/types"
)

// Scope resolves names mentioned in a constraint to concrete entities.
type Scope interface {
	ResolveType(name string) (types.TypeID, bool)
	ResolveValue(name string) (int64, bool)
}

// Result is the outcome of one evaluation. OK=false means the expression
// could not be evaluated (unknown name, bad operand); Detail says why.
type Result struct {
	OK     bool
	Value  bool
	Detail string
}

// Evaluator evaluates constraint expressions against a type table.
type Evaluator struct {
	table *symbols.Table
}

// New creates an evaluator over the shared type table.
func New(table *symbols.Table) *Evaluator {
	return &Evaluator{table: table}
}

// EvaluateBoolean evaluates expr to a boolean under scope.
func (e *Evaluator) EvaluateBoolean(expr *ast.Expr, scope Scope) Result {
	v, err := e.eval(expr, scope)
	if err != nil {
		return Result{Detail: err.Error()}
	}
	return Result{OK: true, Value: v != 0}
}

func (e *Evaluator) eval(expr *ast.Expr, scope Scope) (int64, error) {
	if expr == nil {
		return 0, fmt.Errorf("empty constraint expression")
	}
	switch expr.Kind {
	case ast.ExprBoolLit:
		if expr.Text == "true" {
			return 1, nil
		}
		return 0, nil

	case ast.ExprIntLit:
		text := strings.ReplaceAll(expr.Text, "'", "")
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bad integer literal %q", expr.Text)
		}
		return v, nil

	case ast.ExprIdent:
		if v, ok := scope.ResolveValue(expr.Text); ok {
			return v, nil
		}
		return 0, fmt.Errorf("unknown name %q in constraint", expr.Text)

	case ast.ExprSizeof:
		id, ok := scope.ResolveType(expr.Text)
		if !ok {
			return 0, fmt.Errorf("sizeof: unknown type %q", expr.Text)
		}
		size, _ := e.table.Sizeof(id)
		return int64(size), nil

	case ast.ExprUnary:
		v, err := e.eval(expr.Args[0], scope)
		if err != nil {
			return 0, err
		}
		switch expr.Text {
		case "!":
			if v == 0 {
				return 1, nil
			}
			return 0, nil
		case "-":
			return -v, nil
		case "~":
			return ^v, nil
		}
		return 0, fmt.Errorf("unsupported unary operator %q", expr.Text)

	case ast.ExprBinary:
		return e.evalBinary(expr, scope)

	case ast.ExprCall:
		return e.evalIntrinsic(expr, scope)

	default:
		return 0, fmt.Errorf("expression kind %d not allowed in a constraint", expr.Kind)
	}
}

func (e *Evaluator) evalBinary(expr *ast.Expr, scope Scope) (int64, error) {
	lhs, err := e.eval(expr.Args[0], scope)
	if err != nil {
		return 0, err
	}
	// short-circuit before touching the right operand
	switch expr.Text {
	case "&&":
		if lhs == 0 {
			return 0, nil
		}
	case "||":
		if lhs != 0 {
			return 1, nil
		}
	}
	rhs, err := e.eval(expr.Args[1], scope)
	if err != nil {
		return 0, err
	}
	b2i := func(b bool) int64 {
		if b {
			return 1
		}
		return 0
	}
	switch expr.Text {
	case "&&", "||":
		return b2i(rhs != 0), nil
	case "==":
		return b2i(lhs == rhs), nil
	case "!=":
		return b2i(lhs != rhs), nil
	case "<":
		return b2i(lhs < rhs), nil
	case "<=":
		return b2i(lhs <= rhs), nil
	case ">":
		return b2i(lhs > rhs), nil
	case ">=":
		return b2i(lhs >= rhs), nil
	case "+":
		return lhs + rhs, nil
	case "-":
		return lhs - rhs, nil
	case "*":
		return lhs * rhs, nil
	case "/":
		if rhs == 0 {
			return 0, fmt.Errorf("division by zero in constraint")
		}
		return lhs / rhs, nil
	case "%":
		if rhs == 0 {
			return 0, fmt.Errorf("modulo by zero in constraint")
		}
		return lhs % rhs, nil
	}
	return 0, fmt.Errorf("unsupported binary operator %q", expr.Text)
}

// type-predicate intrinsics usable in requires-clauses
func (e *Evaluator) evalIntrinsic(expr *ast.Expr, scope Scope) (int64, error) {
	argType := func(i int) (types.Type, error) {
		if i >= len(expr.Args) {
			return types.Type{}, fmt.Errorf("%s: missing argument %d", expr.Text, i)
		}
		arg := expr.Args[i]
		if arg.Kind != ast.ExprIdent {
			return types.Type{}, fmt.Errorf("%s: argument must be a type name", expr.Text)
		}
		id, ok := scope.ResolveType(arg.Text)
		if !ok {
			return types.Type{}, fmt.Errorf("%s: unknown type %q", expr.Text, arg.Text)
		}
		return e.table.Interner().MustLookup(id), nil
	}
	b2i := func(b bool) int64 {
		if b {
			return 1
		}
		return 0
	}

	switch expr.Text {
	case "is_integral":
		tt, err := argType(0)
		if err != nil {
			return 0, err
		}
		integral := tt.PtrDepth == 0 && tt.Ref == types.RefNone &&
			(tt.Kind == types.KindInt || tt.Kind == types.KindUint ||
				tt.Kind == types.KindLong || tt.Kind == types.KindChar || tt.Kind == types.KindBool)
		return b2i(integral), nil

	case "is_floating":
		tt, err := argType(0)
		if err != nil {
			return 0, err
		}
		floating := tt.PtrDepth == 0 && tt.Ref == types.RefNone &&
			(tt.Kind == types.KindFloat || tt.Kind == types.KindDouble)
		return b2i(floating), nil

	case "is_pointer":
		tt, err := argType(0)
		if err != nil {
			return 0, err
		}
		return b2i(tt.PtrDepth > 0 && tt.Ref == types.RefNone), nil

	case "is_reference":
		tt, err := argType(0)
		if err != nil {
			return 0, err
		}
		return b2i(tt.Ref != types.RefNone), nil

	case "is_lvalue_reference":
		tt, err := argType(0)
		if err != nil {
			return 0, err
		}
		return b2i(tt.Ref == types.RefLValue), nil

	case "is_rvalue_reference":
		tt, err := argType(0)
		if err != nil {
			return 0, err
		}
		return b2i(tt.Ref == types.RefRValue), nil

	case "is_const":
		tt, err := argType(0)
		if err != nil {
			return 0, err
		}
		return b2i(tt.CV&types.CVConst != 0), nil

	case "is_class":
		tt, err := argType(0)
		if err != nil {
			return 0, err
		}
		return b2i(tt.Kind == types.KindNamed && tt.PtrDepth == 0 && tt.Ref == types.RefNone), nil

	case "is_same":
		a, err := argType(0)
		if err != nil {
			return 0, err
		}
		b, err := argType(1)
		if err != nil {
			return 0, err
		}
		return b2i(a == b), nil

	default:
		return 0, fmt.Errorf("unknown predicate %q in constraint", expr.Text)
	}
}
