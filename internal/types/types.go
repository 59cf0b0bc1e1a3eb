package types

import (
	"fmt"

	"carbide/internal/source"
)

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates the base kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindBool
	KindChar
	KindInt
	KindUint
	KindLong
	KindFloat
	KindDouble
	// KindNamed covers user-defined types: classes, class-generic
	// instantiations, and temporary parameter bindings. Identity is the
	// interned name.
	KindNamed
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindInt:
		return "int"
	case KindUint:
		return "unsigned"
	case KindLong:
		return "long"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindNamed:
		return "named"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// CV is a bitmask of cv-qualifiers.
type CV uint8

const (
	CVConst CV = 1 << iota
	CVVolatile
)

func (cv CV) String() string {
	switch {
	case cv&CVConst != 0 && cv&CVVolatile != 0:
		return "const volatile"
	case cv&CVConst != 0:
		return "const"
	case cv&CVVolatile != 0:
		return "volatile"
	default:
		return ""
	}
}

// Ref is the reference qualifier of a type. It participates in type identity:
// T, T& and T&& are three different types, and forwarding-reference deduction
// depends on the distinction surviving every transformation.
type Ref uint8

const (
	RefNone Ref = iota
	RefLValue
	RefRValue
)

func (r Ref) String() string {
	switch r {
	case RefLValue:
		return "&"
	case RefRValue:
		return "&&"
	default:
		return ""
	}
}

// Collapse applies the reference-collapsing rules when outer is stacked on
// top of inner: & + & = &, & + && = &, && + & = &, && + && = &&.
func Collapse(inner, outer Ref) Ref {
	if outer == RefNone {
		return inner
	}
	if inner == RefNone {
		return outer
	}
	if inner == RefLValue || outer == RefLValue {
		return RefLValue
	}
	return RefRValue
}

// Type is a compact descriptor: base kind plus declarator layers.
type Type struct {
	Kind     Kind
	Name     source.StringID // for KindNamed
	PtrDepth uint8
	CV       CV
	Ref      Ref
}

// MakeNamed describes a user-defined type by interned name.
func MakeNamed(name source.StringID) Type {
	return Type{Kind: KindNamed, Name: name}
}

// WithRef returns a copy with the reference qualifier replaced.
func (t Type) WithRef(r Ref) Type {
	t.Ref = r
	return t
}

// WithCV returns a copy with extra cv-qualifiers added.
func (t Type) WithCV(cv CV) Type {
	t.CV |= cv
	return t
}

// WithPtr returns a copy with extra pointer levels added.
func (t Type) WithPtr(depth uint8) Type {
	t.PtrDepth += depth
	return t
}

// Value reports whether the type is a non-reference value type.
func (t Type) Value() bool { return t.Ref == RefNone }
