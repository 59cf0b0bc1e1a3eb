package ast

import (
	"strings"

	"carbide/internal/source"
	"carbide/internal/types"
)

// TypeExpr is a formal type as written in a declaration skeleton. The base
// spelling may name a generic parameter ("T"), a concrete type ("int"), a
// generic application ("Box<T>") or a dependent member ("T::value_type");
// declarator layers stack on top of whatever the base resolves to.
type TypeExpr struct {
	Name     string
	PtrDepth uint8
	CV       types.CV
	Ref      types.Ref
	Pack     bool // written with a trailing "..." (pack expansion)
	Span     source.Span
}

// String renders the formal type roughly as written.
func (t TypeExpr) String() string {
	var b strings.Builder
	if t.CV&types.CVConst != 0 {
		b.WriteString("const ")
	}
	if t.CV&types.CVVolatile != 0 {
		b.WriteString("volatile ")
	}
	b.WriteString(t.Name)
	for i := uint8(0); i < t.PtrDepth; i++ {
		b.WriteByte('*')
	}
	b.WriteString(t.Ref.String())
	if t.Pack {
		b.WriteString("...")
	}
	return b.String()
}

// IsForwardingRef reports whether the formal is the T&& forwarding form:
// an rvalue reference directly on a bare (unqualified, non-pointer) name.
func (t TypeExpr) IsForwardingRef() bool {
	return t.Ref == types.RefRValue && t.PtrDepth == 0 && t.CV == 0 && !t.Pack
}

// DependentBase splits a "Base::member" spelling. ok is false for plain names.
func (t TypeExpr) DependentBase() (base, member string, ok bool) {
	idx := strings.Index(t.Name, "::")
	if idx < 0 {
		return "", "", false
	}
	return t.Name[:idx], t.Name[idx+2:], true
}

// GenericApplication splits a "Name<arg, arg>" spelling into the base name
// and raw argument spellings. ok is false for plain names.
func (t TypeExpr) GenericApplication() (base string, args []string, ok bool) {
	open := strings.Index(t.Name, "<")
	if open < 0 || !strings.HasSuffix(t.Name, ">") {
		return "", nil, false
	}
	base = strings.TrimSpace(t.Name[:open])
	if base == "" {
		return "", nil, false
	}
	args = SplitTopLevel(t.Name[open+1 : len(t.Name)-1])
	if len(args) == 0 {
		return "", nil, false
	}
	return base, args, true
}

// SplitTopLevel splits a comma-separated list, ignoring commas nested inside
// angle brackets or parentheses.
func SplitTopLevel(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(':
			depth++
		case '>', ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	tail := strings.TrimSpace(s[start:])
	if tail != "" {
		out = append(out, tail)
	}
	return out
}
