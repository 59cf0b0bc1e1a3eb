package generics

import (
	"carbide/internal/ast"
	"carbide/internal/consteval"
	"carbide/internal/types"
)

// checkConstraint evaluates a requires-clause under the binding. Both a
// false result and an evaluation error reject the candidate softly: a
// constraint that cannot be evaluated is a constraint that does not hold.
func checkConstraint(ev *consteval.Evaluator, sub *Substituter, b *Binding, expr *ast.Expr) *Failure {
	if expr == nil {
		return nil
	}
	scope := b.Scope(func(spelling string) (types.TypeID, bool) {
		id, f := sub.substSpellingType(b, spelling)
		if f != nil {
			return types.NoTypeID, false
		}
		return id, true
	})
	res := ev.EvaluateBoolean(expr, scope)
	if !res.OK {
		return &Failure{
			Kind:       FailConstraint,
			Msg:        res.Detail,
			Suggestion: "the requires-clause could not be evaluated for these arguments",
			Span:       expr.Span,
		}
	}
	if !res.Value {
		return &Failure{
			Kind:       FailConstraint,
			Msg:        "requires-clause evaluated to false",
			Suggestion: "check the constraint against the deduced arguments",
			Span:       expr.Span,
		}
	}
	return nil
}
