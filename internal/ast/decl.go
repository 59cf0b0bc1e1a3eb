package ast

import (
	"carbide/internal/source"
	"carbide/internal/types"
)

// Param is one formal function parameter.
type Param struct {
	Name    string
	Type    TypeExpr
	Default *Expr // optional default argument, substituted when no positional argument binds
}

// FuncDecl is a function signature skeleton. In a generic declaration the
// types reference generic parameters by name; after substitution a fresh
// skeleton holds only concrete spellings.
type FuncDecl struct {
	Name   string
	Ret    TypeExpr
	Params []Param
	Span   source.Span
}

// Field is one data member of a class skeleton.
type Field struct {
	Name string
	Type TypeExpr
}

// AliasMember is a "using name = type;" member of a class skeleton.
type AliasMember struct {
	Name   string
	Target TypeExpr
}

// ClassDecl is a class/struct skeleton.
type ClassDecl struct {
	Name    string
	Fields  []Field
	Aliases []AliasMember
	Span    source.Span
}

// ConcreteParam is a fully typed parameter or field of an instantiation.
type ConcreteParam struct {
	Name string
	Type types.TypeID
}

// ConcreteDecl is a finalized, fully concrete declaration: the output of
// instantiation, ready for code generation. Referenced by handle, never by
// address, because the backing store grows.
type ConcreteDecl struct {
	Name    string
	Mangled string
	IsClass bool

	// function form
	Ret    types.TypeID
	Params []ConcreteParam
	Body   *Expr // nil for body-less instantiations

	// class form
	Type   types.TypeID // the named instantiated type, e.g. Box<int>
	Fields []ConcreteParam
}
