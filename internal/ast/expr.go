package ast

import (
	"carbide/internal/source"
)

// ExprKind tags expression nodes. The set is closed: every consumer must
// switch over all kinds.
type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprIdent
	ExprIntLit
	ExprBoolLit
	ExprStringLit
	ExprUnary      // Text = operator, Args[0] = operand
	ExprBinary     // Text = operator, Args[0,1] = operands
	ExprCall       // Text = callee name, Args = arguments
	ExprMember     // Text = member name, Args[0] = receiver
	ExprSizeof     // Text = type spelling
	ExprPackExpand // Args[0] = pattern expression mentioning the pack name
	ExprReturn     // Args[0] = value (optional)
	ExprBlock      // Args = statements
	ExprIf         // Args[0] = cond, Args[1] = then, Args[2] = else (optional)
	ExprVarDecl    // Text = name, Args[0] = type spelling (ExprIdent), Args[1] = init (optional)
)

// Expr is one expression or statement node. Nodes are immutable once built:
// substitution clones, never mutates.
type Expr struct {
	Kind ExprKind
	Span source.Span
	Text string
	Args []*Expr
}

// Clone deep-copies the node.
func (e *Expr) Clone() *Expr {
	if e == nil {
		return nil
	}
	out := &Expr{Kind: e.Kind, Span: e.Span, Text: e.Text}
	if len(e.Args) > 0 {
		out.Args = make([]*Expr, len(e.Args))
		for i, a := range e.Args {
			out.Args[i] = a.Clone()
		}
	}
	return out
}

// Walk visits the node and all children in depth-first order. fn returning
// false prunes the subtree.
func (e *Expr) Walk(fn func(*Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, a := range e.Args {
		a.Walk(fn)
	}
}
