package parser

import (
	"carbide/internal/ast"
	"carbide/internal/lexer"
	"carbide/internal/source"
)

// ItemKind tags top-level items the parser can produce.
type ItemKind uint8

const (
	ItemInvalid ItemKind = iota
	ItemTemplateFunc
	ItemTemplateClass
	ItemAliasTemplate
	ItemDeductionGuide
	ItemSpecialization
)

// TemplateParamKind tags the three template parameter forms.
type TemplateParamKind uint8

const (
	TypeParam TemplateParamKind = iota
	NonTypeParam
	TemplateTemplateParam
)

// TemplateParam is one declared template parameter.
type TemplateParam struct {
	Kind    TemplateParamKind
	Name    string
	Pack    bool
	Default *ast.TypeExpr // optional default type argument
	Span    source.Span
}

// Item is one parsed top-level item, ready for registration.
type Item struct {
	Kind     ItemKind
	Params   []TemplateParam
	Requires *ast.Expr
	Span     source.Span

	// function / specialization form
	Fn       *ast.FuncDecl
	SpecName string         // specialized primary name, e.g. max in max<int>
	SpecArgs []ast.TypeExpr // explicit argument pattern of the specialization

	// class form
	Class *ast.ClassDecl

	// alias form: using Name = Target under the template parameters
	AliasName   string
	AliasTarget ast.TypeExpr

	// deduction guide form: Name(guide params) -> Name<target args>
	GuideName   string
	GuideParams []ast.TypeExpr
	GuideArgs   []ast.TypeExpr

	// body handling: a recorded cursor for deferred re-parsing, and an
	// optional eagerly parsed tree when Options.EagerBodies is set
	BodyCursor lexer.Cursor
	HasBody    bool
	EagerBody  *ast.Expr
}
