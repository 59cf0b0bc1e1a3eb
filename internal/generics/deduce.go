package generics

import (
	"carbide/internal/ast"
	"carbide/internal/symbols"
	"carbide/internal/types"
)

// deducer unifies formal parameter types against concrete call arguments.
// Deduction is read-only: it builds a Binding and nothing else, so a failing
// candidate can be abandoned without cleanup.
type deducer struct {
	in    *types.Interner
	table *symbols.Table
}

// FromCallArguments deduces a binding for decl from call-site argument
// types. Argument TypeIDs carry the value category in their Ref qualifier:
// lvalue arguments arrive as U&, everything else as a plain value type.
func (d deducer) FromCallArguments(decl *GenericDecl, b *Binding, callArgs []types.TypeID) *Failure {
	fn := decl.Fn
	if fn == nil {
		return failf(FailHard, "%s is not a function generic", decl.Name)
	}
	fixed := fn.Params
	var packParam *ast.Param
	if n := len(fixed); n > 0 && fixed[n-1].Type.Pack {
		packParam = &fixed[n-1]
		fixed = fixed[:n-1]
	}

	required := 0
	for _, p := range fixed {
		if p.Default == nil {
			required++
		}
	}
	if len(callArgs) < required {
		return failf(FailArity, "%s expects at least %d argument(s), got %d",
			decl.Name, required, len(callArgs))
	}
	if packParam == nil && len(callArgs) > len(fixed) {
		return failf(FailArity, "%s expects at most %d argument(s), got %d",
			decl.Name, len(fixed), len(callArgs))
	}

	for i, p := range fixed {
		if i >= len(callArgs) {
			break // trailing defaulted parameters
		}
		if f := d.unify(b, p.Type, callArgs[i]); f != nil {
			return f
		}
	}
	if packParam != nil {
		pattern := packParam.Type
		pattern.Pack = false
		for _, arg := range callArgs[len(fixed):] {
			if f := d.unifyPackElement(b, pattern, arg); f != nil {
				return f
			}
		}
		// an empty remainder still binds the pack, to length zero
		if pp := decl.PackParam(); pp != nil {
			if _, ok := b.packs[pp.Name]; !ok {
				b.packs[pp.Name] = []Argument{}
			}
		}
	}
	return nil
}

// unify matches one formal against one actual argument type.
func (d deducer) unify(b *Binding, formal ast.TypeExpr, actual types.TypeID) *Failure {
	at, ok := d.in.Lookup(actual)
	if !ok {
		return failf(FailTypeMismatch, "invalid argument type")
	}

	if _, _, dependent := formal.DependentBase(); dependent {
		// non-deduced context: contributes nothing, checked at substitution
		return nil
	}
	if base, args, app := formal.GenericApplication(); app {
		return d.unifyApplication(b, formal, base, args, at)
	}

	param := b.Param(formal.Name)
	if param == nil || param.Kind != GenericTypeParam {
		return d.matchConcrete(formal, at)
	}

	// forwarding reference: T&& on a bare type parameter
	if formal.IsForwardingRef() {
		if at.Ref == types.RefLValue {
			// lvalue: T = U&, the parameter collapses to U&
			bound := at
			return b.Set(formal.Name, TypeArg(d.in.Intern(bound)))
		}
		bound := at
		bound.Ref = types.RefNone
		return b.Set(formal.Name, TypeArg(d.in.Intern(bound)))
	}

	switch formal.Ref {
	case types.RefNone:
		// by value: the argument decays, then formal declarator layers peel off
		at.Ref = types.RefNone
		if formal.PtrDepth == 0 {
			at.CV = 0
		}
	case types.RefLValue:
		if at.Ref != types.RefLValue && formal.CV&types.CVConst == 0 {
			return failf(FailTypeMismatch,
				"cannot bind %s to an rvalue of type %s", formal.String(), d.in.String(actual))
		}
		at.Ref = types.RefNone
	case types.RefRValue:
		if at.Ref == types.RefLValue {
			return failf(FailTypeMismatch,
				"cannot bind %s to an lvalue of type %s", formal.String(), d.in.String(actual))
		}
		at.Ref = types.RefNone
	}

	if at.PtrDepth < formal.PtrDepth {
		return failf(FailTypeMismatch,
			"argument %s has too few pointer levels for %s", d.in.String(actual), formal.String())
	}
	at.PtrDepth -= formal.PtrDepth
	if formal.CV&^at.CV != 0 && formal.PtrDepth > 0 {
		return failf(FailTypeMismatch,
			"argument %s lacks qualifiers required by %s", d.in.String(actual), formal.String())
	}
	at.CV &^= formal.CV
	return b.Set(formal.Name, TypeArg(d.in.Intern(at)))
}

// unifyPackElement deduces one pack element. Elements append instead of
// conflict-checking: every call argument grows the pack by one.
func (d deducer) unifyPackElement(b *Binding, pattern ast.TypeExpr, actual types.TypeID) *Failure {
	pp := b.Param(pattern.Name)
	if pp == nil || !pp.Pack {
		return failf(FailTypeMismatch, "pack pattern %s does not name a pack parameter", pattern.String())
	}
	at, ok := d.in.Lookup(actual)
	if !ok {
		return failf(FailTypeMismatch, "invalid argument type")
	}
	if pattern.IsForwardingRef() {
		if at.Ref != types.RefLValue {
			at.Ref = types.RefNone
		}
		b.AppendPack(pattern.Name, TypeArg(d.in.Intern(at)))
		return nil
	}
	at.Ref = types.RefNone
	if pattern.PtrDepth == 0 {
		at.CV = 0
	}
	if at.PtrDepth < pattern.PtrDepth {
		return failf(FailTypeMismatch,
			"argument %s has too few pointer levels for %s", d.in.String(actual), pattern.String())
	}
	at.PtrDepth -= pattern.PtrDepth
	at.CV &^= pattern.CV
	b.AppendPack(pattern.Name, TypeArg(d.in.Intern(at)))
	return nil
}

// unifyApplication matches a "Box<T>" formal against an argument whose type
// must be an instantiation of the same class generic.
func (d deducer) unifyApplication(b *Binding, formal ast.TypeExpr, base string, formalArgs []string, at types.Type) *Failure {
	at.Ref = types.RefNone
	if at.PtrDepth < formal.PtrDepth {
		return failf(FailTypeMismatch, "argument has too few pointer levels for %s", formal.String())
	}
	at.PtrDepth -= formal.PtrDepth
	at.CV &^= formal.CV
	if at.Kind != types.KindNamed || at.PtrDepth != 0 {
		return failf(FailTypeMismatch, "argument is not an instantiation of %s", base)
	}
	spelling, _ := d.in.Strings().Lookup(at.Name)
	actualTE := ast.TypeExpr{Name: spelling}
	actualBase, actualArgs, ok := actualTE.GenericApplication()
	if !ok || actualBase != base {
		return failf(FailTypeMismatch, "argument %s is not an instantiation of %s", spelling, base)
	}
	if len(actualArgs) != len(formalArgs) {
		return failf(FailTypeMismatch, "%s and %s have different argument counts", spelling, formal.Name)
	}
	for i, fa := range formalArgs {
		fte := parseSpelling(fa)
		aid, ok := d.resolveConcreteSpelling(actualArgs[i])
		if !ok {
			return failf(FailDependent, "cannot resolve %q inside %s", actualArgs[i], spelling)
		}
		if f := d.unify(b, fte, aid); f != nil {
			return f
		}
	}
	return nil
}

// matchConcrete checks a non-parameter formal against the actual type by
// resolved identity, after by-value decay.
func (d deducer) matchConcrete(formal ast.TypeExpr, at types.Type) *Failure {
	wantID, ok := d.table.LookupTypeByName(formal.Name)
	if !ok {
		return failf(FailDependent, "unknown type %q in parameter list", formal.Name)
	}
	want := d.in.MustLookup(wantID)
	want.PtrDepth += formal.PtrDepth
	want.CV |= formal.CV
	want.Ref = types.Collapse(want.Ref, formal.Ref)

	if formal.Ref == types.RefNone {
		at.Ref = types.RefNone
		if formal.PtrDepth == 0 {
			at.CV = 0
			want.CV = 0
		}
	} else {
		if want.Ref == types.RefLValue && at.Ref != types.RefLValue && formal.CV&types.CVConst == 0 {
			return failf(FailTypeMismatch, "cannot bind %s to an rvalue", formal.String())
		}
		at.Ref = want.Ref
	}
	if d.in.Intern(at) != d.in.Intern(want) {
		return failf(FailTypeMismatch, "expected %s", formal.String())
	}
	return nil
}

// FromExplicitArguments binds explicitly spelled arguments positionally. A
// trailing pack parameter absorbs every remaining argument.
func (d deducer) FromExplicitArguments(decl *GenericDecl, b *Binding, explicit []Argument) *Failure {
	params := decl.Params
	var pack *GenericParam
	if n := len(params); n > 0 && params[n-1].Pack {
		pack = &params[n-1]
		params = params[:n-1]
	}
	if pack == nil && len(explicit) > len(params) {
		return failf(FailArity, "%s takes at most %d argument(s), got %d",
			decl.Name, len(params), len(explicit))
	}
	for i, p := range params {
		if i >= len(explicit) {
			break // the rest comes from deduction or defaults
		}
		if f := checkArgKind(p, explicit[i]); f != nil {
			return f
		}
		if f := b.Set(p.Name, explicit[i]); f != nil {
			return f
		}
	}
	if pack != nil && len(explicit) > len(params) {
		for _, arg := range explicit[len(params):] {
			if f := checkArgKind(*pack, arg); f != nil {
				return f
			}
			b.AppendPack(pack.Name, arg)
		}
	}
	return nil
}

func checkArgKind(p GenericParam, arg Argument) *Failure {
	switch p.Kind {
	case GenericTypeParam:
		if arg.Kind != ArgType {
			return failf(FailTypeMismatch, "parameter %s expects a type argument", p.Name)
		}
	case GenericValueParam:
		if arg.Kind != ArgValue {
			return failf(FailTypeMismatch, "parameter %s expects a constant argument", p.Name)
		}
	case GenericTemplateParam:
		if arg.Kind != ArgGeneric {
			return failf(FailTypeMismatch, "parameter %s expects a generic argument", p.Name)
		}
	}
	return nil
}

// resolveConcreteSpelling resolves a fully concrete spelling like
// "const int*" or "Box<int>" against the table.
func (d deducer) resolveConcreteSpelling(s string) (types.TypeID, bool) {
	te := parseSpelling(s)
	baseID, ok := d.table.LookupTypeByName(te.Name)
	if !ok {
		return types.NoTypeID, false
	}
	base := d.in.MustLookup(baseID)
	base.PtrDepth += te.PtrDepth
	base.CV |= te.CV
	base.Ref = types.Collapse(base.Ref, te.Ref)
	return d.in.Intern(base), true
}
