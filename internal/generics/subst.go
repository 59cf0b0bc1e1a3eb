package generics

import (
	"fmt"
	"strconv"
	"strings"

	"carbide/internal/ast"
	"carbide/internal/symbols"
	"carbide/internal/types"
)

// resolveClassFunc instantiates a class generic application encountered
// during substitution. Wired to the engine; nil disables nested
// instantiation.
type resolveClassFunc func(base string, args []Argument) (types.TypeID, *Failure)

// Substituter rewrites formal types and expression trees under a binding.
// Substitution is pure with respect to the binding and the table: it reads
// both, writes neither. Nested class instantiations triggered through
// resolveClass are the one deliberate exception, mirroring how a compiler
// materializes Box<int> the first time any signature mentions it.
type Substituter struct {
	in           *types.Interner
	table        *symbols.Table
	reg          *Registry
	resolveClass resolveClassFunc
}

// ConcreteSignature is a substituted function signature: the output of
// applying a binding to a FuncDecl skeleton.
type ConcreteSignature struct {
	Ret    types.TypeID
	Params []ast.ConcreteParam
	// Packs maps each expanded value-parameter pack name to its length,
	// for pack expansion inside the body.
	Packs map[string]int
}

// SubstituteType resolves a formal type to a concrete TypeID under b.
// Reference collapsing applies when the formal stacks a reference on a
// parameter already bound to a reference type.
func (s *Substituter) SubstituteType(b *Binding, te ast.TypeExpr) (types.TypeID, *Failure) {
	baseID, f := s.substituteBase(b, te)
	if f != nil {
		return types.NoTypeID, f
	}
	base, ok := s.in.Lookup(baseID)
	if !ok {
		return types.NoTypeID, failf(FailDependent, "cannot resolve %s", te.String())
	}
	out := base
	out.PtrDepth += te.PtrDepth
	out.CV |= te.CV
	out.Ref = types.Collapse(base.Ref, te.Ref)
	return s.in.Intern(out), nil
}

func (s *Substituter) substituteBase(b *Binding, te ast.TypeExpr) (types.TypeID, *Failure) {
	if base, member, ok := te.DependentBase(); ok {
		ownerID, f := s.substSpellingType(b, base)
		if f != nil {
			return types.NoTypeID, f
		}
		target, ok := s.table.LookupMemberAlias(ownerID, member)
		if !ok {
			return types.NoTypeID, failf(FailDependent,
				"%s has no member type %s", s.in.String(ownerID), member)
		}
		return target, nil
	}

	if base, rawArgs, ok := te.GenericApplication(); ok {
		args := make([]Argument, len(rawArgs))
		for i, raw := range rawArgs {
			arg, f := s.substSpelling(b, raw)
			if f != nil {
				return types.NoTypeID, f
			}
			args[i] = arg
		}
		if alias, ok := s.reg.LookupAliasGeneric(base); ok {
			return s.expandAlias(alias, args)
		}
		if s.resolveClass == nil {
			return types.NoTypeID, failf(FailDependent, "cannot instantiate %s here", base)
		}
		return s.resolveClass(base, args)
	}

	if b != nil {
		if arg, ok := b.Get(te.Name); ok {
			if arg.Kind != ArgType {
				return types.NoTypeID, failf(FailTypeMismatch,
					"parameter %s is not a type argument", te.Name)
			}
			return arg.Type, nil
		}
		if p := b.Param(te.Name); p != nil {
			return types.NoTypeID, failf(FailUnbound, "parameter %s is unbound", te.Name)
		}
	}
	if id, ok := s.table.LookupTypeByName(te.Name); ok {
		return id, nil
	}
	return types.NoTypeID, failf(FailDependent, "unknown type %q", te.Name)
}

// expandAlias substitutes an alias generic's target under its own fresh
// parameter binding.
func (s *Substituter) expandAlias(alias AliasGeneric, args []Argument) (types.TypeID, *Failure) {
	if len(args) != len(alias.Params) {
		return types.NoTypeID, failf(FailArity,
			"alias %s expects %d argument(s), got %d", alias.Name, len(alias.Params), len(args))
	}
	shim := &GenericDecl{Name: alias.Name, Params: alias.Params}
	ab := NewBinding(shim)
	for i, p := range alias.Params {
		if f := checkArgKind(p, args[i]); f != nil {
			return types.NoTypeID, f
		}
		if f := ab.Set(p.Name, args[i]); f != nil {
			return types.NoTypeID, f
		}
	}
	return s.SubstituteType(ab, alias.Target)
}

// substSpelling resolves a raw argument spelling under the binding: a bound
// parameter name, an integer literal, or a type spelling with declarators.
func (s *Substituter) substSpelling(b *Binding, raw string) (Argument, *Failure) {
	if b != nil {
		if arg, ok := b.Get(raw); ok {
			return arg, nil
		}
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ValueArg(v, s.in.Builtins().Int), nil
	}
	id, f := s.substSpellingType(b, raw)
	if f != nil {
		return Argument{}, f
	}
	return TypeArg(id), nil
}

// substSpellingType resolves a spelling that must denote a type.
func (s *Substituter) substSpellingType(b *Binding, raw string) (types.TypeID, *Failure) {
	te := parseSpelling(raw)
	return s.SubstituteType(b, te)
}

// SubstituteSignature applies the binding to a function skeleton: return
// type, fixed parameters, and pack expansion. The i-th element of a pack
// named args becomes a parameter named args_i.
func (s *Substituter) SubstituteSignature(b *Binding, fn *ast.FuncDecl) (ConcreteSignature, *Failure) {
	var sig ConcreteSignature
	ret, f := s.SubstituteType(b, fn.Ret)
	if f != nil {
		return sig, f
	}
	sig.Ret = ret
	sig.Packs = make(map[string]int)

	for _, p := range fn.Params {
		if !p.Type.Pack {
			id, f := s.SubstituteType(b, p.Type)
			if f != nil {
				return sig, f
			}
			sig.Params = append(sig.Params, ast.ConcreteParam{Name: p.Name, Type: id})
			continue
		}
		pattern := p.Type
		pattern.Pack = false
		elems := b.Pack(pattern.Name)
		for i, elem := range elems {
			if elem.Kind != ArgType {
				return sig, failf(FailTypeMismatch, "pack %s holds a non-type element", pattern.Name)
			}
			et := s.in.MustLookup(elem.Type)
			et.PtrDepth += pattern.PtrDepth
			et.CV |= pattern.CV
			et.Ref = types.Collapse(et.Ref, pattern.Ref)
			sig.Params = append(sig.Params, ast.ConcreteParam{
				Name: fmt.Sprintf("%s_%d", p.Name, i),
				Type: s.in.Intern(et),
			})
		}
		sig.Packs[p.Name] = len(elems)
	}
	return sig, nil
}

// SubstituteExpressionTree rewrites an eagerly parsed body under the
// binding: bound parameter names become concrete spellings, value
// parameters become literals, and pack expansions multiply out. The input
// tree is never mutated.
func (s *Substituter) SubstituteExpressionTree(b *Binding, sig ConcreteSignature, e *ast.Expr) (*ast.Expr, *Failure) {
	if e == nil {
		return nil, nil
	}
	out := &ast.Expr{Kind: e.Kind, Span: e.Span, Text: e.Text}

	switch e.Kind {
	case ast.ExprIdent:
		if arg, ok := b.Get(e.Text); ok {
			switch arg.Kind {
			case ArgType:
				out.Text = s.in.String(arg.Type)
			case ArgValue:
				out.Kind = ast.ExprIntLit
				out.Text = strconv.FormatInt(arg.Value, 10)
			}
		}
		return out, nil

	case ast.ExprSizeof:
		id, f := s.substSpellingType(b, e.Text)
		if f != nil {
			return nil, f
		}
		out.Text = s.in.String(id)
		return out, nil

	case ast.ExprVarDecl:
		id, f := s.substSpellingType(b, e.Args[0].Text)
		if f != nil {
			return nil, f
		}
		out.Args = append(out.Args, &ast.Expr{
			Kind: ast.ExprIdent, Span: e.Args[0].Span, Text: s.in.String(id),
		})
		for _, a := range e.Args[1:] {
			sub, f := s.SubstituteExpressionTree(b, sig, a)
			if f != nil {
				return nil, f
			}
			out.Args = append(out.Args, sub)
		}
		return out, nil
	}

	for _, a := range e.Args {
		if a != nil && a.Kind == ast.ExprPackExpand {
			expanded, f := s.expandPack(b, sig, a)
			if f != nil {
				return nil, f
			}
			out.Args = append(out.Args, expanded...)
			continue
		}
		sub, f := s.SubstituteExpressionTree(b, sig, a)
		if f != nil {
			return nil, f
		}
		out.Args = append(out.Args, sub)
	}
	return out, nil
}

// expandPack multiplies a pack expansion pattern into one clone per pack
// element, renaming the pack identifier to its indexed form. A zero-length
// pack expands to nothing.
func (s *Substituter) expandPack(b *Binding, sig ConcreteSignature, e *ast.Expr) ([]*ast.Expr, *Failure) {
	pattern := e.Args[0]
	name, n, ok := s.packIn(pattern, sig)
	if !ok {
		return nil, failf(FailDependent, "pack expansion mentions no pack parameter")
	}
	out := make([]*ast.Expr, 0, n)
	for i := 0; i < n; i++ {
		clone := pattern.Clone()
		indexed := fmt.Sprintf("%s_%d", name, i)
		clone.Walk(func(x *ast.Expr) bool {
			if x.Kind == ast.ExprIdent && x.Text == name {
				x.Text = indexed
			}
			return true
		})
		sub, f := s.SubstituteExpressionTree(b, sig, clone)
		if f != nil {
			return nil, f
		}
		out = append(out, sub)
	}
	return out, nil
}

// packIn finds the expanded pack a pattern refers to.
func (s *Substituter) packIn(pattern *ast.Expr, sig ConcreteSignature) (string, int, bool) {
	var name string
	n := -1
	pattern.Walk(func(x *ast.Expr) bool {
		if n >= 0 {
			return false
		}
		if x.Kind == ast.ExprIdent {
			if count, ok := sig.Packs[x.Text]; ok {
				name, n = x.Text, count
				return false
			}
		}
		return true
	})
	return name, n, n >= 0
}

// parseSpelling splits a textual type spelling into base name and
// declarator layers. The inverse of TypeExpr.String for the spellings this
// front end produces.
func parseSpelling(s string) ast.TypeExpr {
	var te ast.TypeExpr
	s = strings.TrimSpace(s)
	for {
		switch {
		case strings.HasPrefix(s, "const "):
			te.CV |= types.CVConst
			s = strings.TrimSpace(s[len("const "):])
			continue
		case strings.HasPrefix(s, "volatile "):
			te.CV |= types.CVVolatile
			s = strings.TrimSpace(s[len("volatile "):])
			continue
		}
		break
	}
	if strings.HasSuffix(s, "...") {
		te.Pack = true
		s = strings.TrimSpace(s[:len(s)-3])
	}
	switch {
	case strings.HasSuffix(s, "&&"):
		te.Ref = types.RefRValue
		s = strings.TrimSpace(s[:len(s)-2])
	case strings.HasSuffix(s, "&"):
		te.Ref = types.RefLValue
		s = strings.TrimSpace(s[:len(s)-1])
	}
	for strings.HasSuffix(s, "*") {
		te.PtrDepth++
		s = strings.TrimSpace(s[:len(s)-1])
	}
	te.Name = s
	return te
}
