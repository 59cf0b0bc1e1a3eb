// Package generics is the instantiation engine: it deduces arguments for
// registered generic declarations, substitutes them into declaration
// skeletons, evaluates constraints, and materializes cached concrete
// declarations. Candidate rejection is soft everywhere a substitution
// failure occurs; only registry corruption and cache inconsistency are
// hard.
package generics

import (
	"fmt"
	"strconv"

	"carbide/internal/ast"
	"carbide/internal/consteval"
	"carbide/internal/diag"
	"carbide/internal/mangle"
	"carbide/internal/source"
	"carbide/internal/symbols"
	"carbide/internal/types"
)

// DefaultMaxDepth bounds nested instantiation. Deep enough for any sane
// recursive generic, shallow enough to fail fast on runaway recursion.
const DefaultMaxDepth = 128

// Options configures one Engine.
type Options struct {
	Reporter diag.Reporter
	Reparser Reparser
	MaxDepth int
}

// Record is one finished instantiation, kept for the cache dump and the
// final report.
type Record struct {
	Name    string
	Args    string
	Mangled string
	Class   bool
	Depth   int
}

// Engine ties the registry, the cache and the substitution machinery
// together. One engine serves one compilation; it is not safe for
// concurrent use.
type Engine struct {
	table    *symbols.Table
	in       *types.Interner
	reg      *Registry
	cache    *Cache
	mangler  *mangle.Mangler
	eval     *consteval.Evaluator
	sub      *Substituter
	reporter diag.Reporter
	reparser Reparser
	maxDepth int
	depth    int
	records  []Record
}

// NewEngine creates an engine over the shared table and registry.
func NewEngine(table *symbols.Table, reg *Registry, opts Options) *Engine {
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	in := table.Interner()
	e := &Engine{
		table:    table,
		in:       in,
		reg:      reg,
		cache:    NewCache(),
		mangler:  mangle.New(in),
		eval:     consteval.New(table),
		reporter: opts.Reporter,
		reparser: opts.Reparser,
		maxDepth: opts.MaxDepth,
	}
	e.sub = &Substituter{
		in:    in,
		table: table,
		reg:   reg,
		resolveClass: func(base string, args []Argument) (types.TypeID, *Failure) {
			return e.instantiateClass(base, args, source.Span{})
		},
	}
	return e
}

// Cache exposes the instantiation cache for inspection and dumping.
func (e *Engine) Cache() *Cache { return e.cache }

// Registry exposes the declaration registry.
func (e *Engine) Registry() *Registry { return e.reg }

// Records returns every finished instantiation in completion order.
func (e *Engine) Records() []Record { return e.records }

// ResolveClassType adapts the engine to the parser's nested-instantiation
// callback: a spelled application like Box<int> inside a body resolves by
// instantiating the class on the spot.
func (e *Engine) ResolveClassType(base string, args []types.TypeID) (types.TypeID, bool) {
	wrapped := make([]Argument, len(args))
	for i, a := range args {
		wrapped[i] = TypeArg(a)
	}
	id, f := e.instantiateClass(base, wrapped, source.Span{})
	if f != nil {
		return types.NoTypeID, false
	}
	return id, true
}

// InstantiateFunction resolves a call f(args...) against every registered
// overload of f, in registration order, first viable candidate wins.
func (e *Engine) InstantiateFunction(name string, callArgs []types.TypeID, span source.Span) (InstID, bool) {
	return e.instantiateFunction(name, nil, callArgs, true, span)
}

// InstantiateFunctionExplicit resolves f<explicit...>(args...). Explicit
// arguments bind positionally before deduction fills the rest.
func (e *Engine) InstantiateFunctionExplicit(name string, explicit []Argument, callArgs []types.TypeID, hasCall bool, span source.Span) (InstID, bool) {
	return e.instantiateFunction(name, explicit, callArgs, hasCall, span)
}

func (e *Engine) instantiateFunction(name string, explicit []Argument, callArgs []types.TypeID, hasCall bool, span source.Span) (InstID, bool) {
	cands := e.reg.LookupAll(name)
	var fails []candidateFailure
	found := false
	for _, cand := range cands {
		if cand.Fn == nil {
			continue
		}
		found = true
		inst, f := e.tryFunctionCandidate(cand, explicit, callArgs, hasCall)
		if f == nil {
			return inst, true
		}
		if !f.Soft() {
			diag.ReportError(e.reporter, diag.RegInternal, span, f.Msg).Emit()
			return NoInstID, false
		}
		fails = append(fails, candidateFailure{Decl: cand, Failure: f})
	}
	if !found {
		diag.ReportError(e.reporter, diag.RegUnknownName, span,
			fmt.Sprintf("no generic function named %q", name)).Emit()
		return NoInstID, false
	}
	e.reportNoViable(name, fails, span)
	return NoInstID, false
}

// reportNoViable emits the aggregate rejection: one error, one note per
// candidate saying why it was rejected.
func (e *Engine) reportNoViable(name string, fails []candidateFailure, span source.Span) {
	rb := diag.ReportError(e.reporter, diag.TmplNoViableCandidate, span,
		fmt.Sprintf("no viable candidate for %q", name))
	for _, cf := range fails {
		rb.WithNote(cf.Decl.Span, fmt.Sprintf("candidate rejected: %s", cf.Failure))
		if cf.Failure.Suggestion != "" {
			rb.WithSuggestion(cf.Failure.Suggestion)
		}
	}
	rb.Emit()
}

// tryFunctionCandidate runs the full pipeline for one candidate. Every
// step before the final cache write is free of observable side effects, so
// a rejection at any point leaves the world untouched.
func (e *Engine) tryFunctionCandidate(cand *GenericDecl, explicit []Argument, callArgs []types.TypeID, hasCall bool) (InstID, *Failure) {
	d := deducer{in: e.in, table: e.table}
	b := NewBinding(cand)

	if f := d.FromExplicitArguments(cand, b, explicit); f != nil {
		return NoInstID, f
	}
	if hasCall {
		if f := d.FromCallArguments(cand, b, callArgs); f != nil {
			return NoInstID, f
		}
	}
	if f := e.fillDefaults(cand, b); f != nil {
		return NoInstID, f
	}
	ordered, f := b.OrderedArgs()
	if f != nil {
		return NoInstID, f
	}
	key := Key{Generic: cand.ID, Args: argsKey(e.in, ordered)}
	if id, ok := e.cache.Get(key); ok {
		return id, nil
	}
	if e.depth >= e.maxDepth {
		diag.ReportWarning(e.reporter, diag.TmplRecursionLimit, cand.Span,
			fmt.Sprintf("instantiation depth limit (%d) reached at %s<%s>",
				e.maxDepth, cand.Name, renderArgs(e.in, ordered))).Emit()
		return NoInstID, failf(FailRecursionLimit, "depth limit reached")
	}

	// a matching explicit specialization swaps in its declaration; the
	// cache key keeps the primary's identity
	decl := cand
	if spec := e.reg.LookupSpecialization(e.in, e.table, cand.Name, ordered); spec != nil && spec.Fn != nil {
		decl = spec
	}

	sig, f := e.sub.SubstituteSignature(b, decl.Fn)
	if f != nil {
		return NoInstID, f
	}
	if f := checkConstraint(e.eval, e.sub, b, cand.Constraint); f != nil {
		return NoInstID, f
	}
	mangled := e.mangler.Mangle(nil, cand.Name, e.mangleArgs(ordered))

	if !e.cache.Begin(key) {
		return NoInstID, failf(FailInProgress, "%s<%s> is already being instantiated",
			cand.Name, renderArgs(e.in, ordered))
	}
	defer e.cache.End(key)

	body, f := e.resolveBody(decl, b, sig)
	if f != nil {
		return NoInstID, f
	}

	id := e.cache.Put(key, ast.ConcreteDecl{
		Name:    cand.Name,
		Mangled: mangled,
		Ret:     sig.Ret,
		Params:  sig.Params,
		Body:    body,
	})
	e.record(cand.Name, key.Args, mangled, false)
	return id, nil
}

// resolveBody produces the concrete body: substitution of the eager tree
// when one exists, deferred re-parse under trial bindings otherwise. A
// declaration with neither stays body-less.
func (e *Engine) resolveBody(decl *GenericDecl, b *Binding, sig ConcreteSignature) (*ast.Expr, *Failure) {
	switch {
	case decl.EagerBody != nil:
		return e.sub.SubstituteExpressionTree(b, sig, decl.EagerBody)
	case decl.HasBody && e.reparser != nil:
		e.depth++
		defer func() { e.depth-- }()
		return reparseBody(e.table, e.reparser, decl.BodyCursor, bindingTypes(b))
	default:
		return nil, nil
	}
}

// fillDefaults substitutes default arguments for still-unbound parameters.
// Defaults are substituted under the partial binding, never deduced, so a
// default may reference earlier parameters.
func (e *Engine) fillDefaults(decl *GenericDecl, b *Binding) *Failure {
	for _, p := range decl.Params {
		if p.Pack || p.Default == nil {
			continue
		}
		if _, ok := b.Get(p.Name); ok {
			continue
		}
		id, f := e.sub.SubstituteType(b, *p.Default)
		if f != nil {
			return f
		}
		if f := b.Set(p.Name, TypeArg(id)); f != nil {
			return f
		}
	}
	return nil
}

// mangleArgs maps arguments to the TypeIDs the mangler consumes. Value and
// generic arguments mangle through their canonical spelling.
func (e *Engine) mangleArgs(args []Argument) []types.TypeID {
	out := make([]types.TypeID, len(args))
	for i, a := range args {
		switch a.Kind {
		case ArgType:
			out[i] = a.Type
		case ArgValue:
			out[i] = e.in.InternNamed(strconv.FormatInt(a.Value, 10))
		case ArgGeneric:
			out[i] = e.in.InternNamed(a.Generic)
		}
	}
	return out
}

// InstantiateClass materializes Name<args...>: defines the named type,
// substitutes fields and member aliases, computes the layout, and caches
// the result. Class arguments are always explicit, so failures here are
// reported as errors rather than swallowed as rejections.
func (e *Engine) InstantiateClass(name string, args []Argument, span source.Span) (types.TypeID, bool) {
	id, f := e.instantiateClass(name, args, span)
	if f != nil {
		code := diag.TmplDependentUnresolved
		switch f.Kind {
		case FailConstraint:
			code = diag.TmplConstraintFailed
		case FailHard:
			code = diag.RegInternal
		}
		rb := diag.ReportError(e.reporter, code, span,
			fmt.Sprintf("cannot instantiate %s<%s>: %s", name, renderArgs(e.in, args), f.Msg))
		if f.Suggestion != "" {
			rb.WithSuggestion(f.Suggestion)
		}
		rb.Emit()
		return types.NoTypeID, false
	}
	return id, true
}

func (e *Engine) instantiateClass(name string, args []Argument, span source.Span) (types.TypeID, *Failure) {
	cand := e.classDecl(name)
	if cand == nil {
		// a nested application may name an alias generic instead
		if alias, ok := e.reg.LookupAliasGeneric(name); ok {
			return e.sub.expandAlias(alias, args)
		}
		return types.NoTypeID, failf(FailDependent, "no class generic named %q", name)
	}

	b := NewBinding(cand)
	d := deducer{in: e.in, table: e.table}
	if f := d.FromExplicitArguments(cand, b, args); f != nil {
		return types.NoTypeID, f
	}
	if f := e.fillDefaults(cand, b); f != nil {
		return types.NoTypeID, f
	}
	ordered, f := b.OrderedArgs()
	if f != nil {
		return types.NoTypeID, f
	}
	key := Key{Generic: cand.ID, Args: argsKey(e.in, ordered)}
	display := fmt.Sprintf("%s<%s>", name, renderArgs(e.in, ordered))

	if instID, ok := e.cache.Get(key); ok {
		return e.cache.Decl(instID).Type, nil
	}
	// re-entrant reference inside this class's own fields: the name is
	// already defined, serve it without recursing
	if e.cache.InProgress(key) {
		if id, ok := e.table.LookupTypeByName(display); ok {
			return id, nil
		}
		return types.NoTypeID, failf(FailInProgress, "%s is already being instantiated", display)
	}
	if e.depth >= e.maxDepth {
		diag.ReportWarning(e.reporter, diag.TmplRecursionLimit, cand.Span,
			fmt.Sprintf("instantiation depth limit (%d) reached at %s", e.maxDepth, display)).Emit()
		return types.NoTypeID, failf(FailRecursionLimit, "depth limit reached at %s", display)
	}

	if f := checkConstraint(e.eval, e.sub, b, cand.Constraint); f != nil {
		return types.NoTypeID, f
	}

	decl := cand
	if spec := e.reg.LookupSpecialization(e.in, e.table, name, ordered); spec != nil && spec.Class != nil {
		decl = spec
		// a partial specialization rebinds its own parameters from the
		// concrete arguments via its pattern
		if len(decl.Params) > 0 {
			sb, f := e.bindSpecialization(decl, name, ordered)
			if f != nil {
				return types.NoTypeID, f
			}
			b = sb
		}
	}

	if !e.cache.Begin(key) {
		return types.NoTypeID, failf(FailInProgress, "%s is already being instantiated", display)
	}
	defer e.cache.End(key)
	e.depth++
	defer func() { e.depth-- }()

	// the name is visible while the members substitute so self-referential
	// fields (Node<T>* next) resolve; the binding stays provisional until
	// every member succeeds
	typeID := e.in.InternNamed(display)
	nameH := e.table.RegisterTemporaryType(display, typeID)
	var aliasNames []string
	committed := false
	defer func() {
		if committed {
			return
		}
		for _, a := range aliasNames {
			e.table.RemoveMemberAlias(typeID, a)
		}
		e.table.RemoveTemporaryType(nameH)
	}()

	for _, alias := range decl.Class.Aliases {
		target, f := e.sub.SubstituteType(b, alias.Target)
		if f != nil {
			return types.NoTypeID, f
		}
		e.table.DefineMemberAlias(typeID, alias.Name, target)
		aliasNames = append(aliasNames, alias.Name)
	}

	fields := make([]ast.ConcreteParam, 0, len(decl.Class.Fields))
	for _, fld := range decl.Class.Fields {
		ft, f := e.sub.SubstituteType(b, fld.Type)
		if f != nil {
			return types.NoTypeID, f
		}
		fields = append(fields, ast.ConcreteParam{Name: fld.Name, Type: ft})
	}

	e.table.RemoveTemporaryType(nameH)
	if err := e.table.Define(display, typeID); err != nil {
		return types.NoTypeID, failf(FailHard, "%s", err)
	}
	committed = true

	names := make([]string, len(fields))
	fieldTypes := make([]types.TypeID, len(fields))
	for i, fld := range fields {
		names[i] = fld.Name
		fieldTypes[i] = fld.Type
	}
	e.table.ComputeLayout(typeID, names, fieldTypes)

	mangled := e.mangler.Mangle(nil, name, e.mangleArgs(ordered))
	e.cache.Put(key, ast.ConcreteDecl{
		Name:    display,
		Mangled: mangled,
		IsClass: true,
		Type:    typeID,
		Fields:  fields,
	})
	e.record(name, key.Args, mangled, true)
	return typeID, nil
}

// bindSpecialization re-runs the pattern match of a partial specialization
// to recover its own parameter bindings from the concrete arguments.
func (e *Engine) bindSpecialization(decl *GenericDecl, name string, ordered []Argument) (*Binding, *Failure) {
	b := NewBinding(decl)
	for _, spec := range e.reg.specs[name] {
		if spec.Decl != decl.ID {
			continue
		}
		for i, pat := range spec.Pattern {
			if b.Param(pat.Name) == nil {
				continue // concrete pattern element, binds nothing
			}
			arg := ordered[i]
			if arg.Kind != ArgType {
				if f := b.Set(pat.Name, arg); f != nil {
					return nil, f
				}
				continue
			}
			tt := e.in.MustLookup(arg.Type)
			tt.PtrDepth -= pat.PtrDepth
			tt.CV &^= pat.CV
			if pat.Ref != types.RefNone {
				tt.Ref = types.RefNone
			}
			if f := b.Set(pat.Name, TypeArg(e.in.Intern(tt))); f != nil {
				return nil, f
			}
		}
		return b, nil
	}
	return nil, failf(FailHard, "specialization of %s lost its pattern", name)
}

// classDecl finds the class generic registered under name.
func (e *Engine) classDecl(name string) *GenericDecl {
	for _, cand := range e.reg.LookupAll(name) {
		if cand.Class != nil {
			return cand
		}
	}
	return nil
}

// TryApplyDeductionGuides resolves Name(args...) without explicit class
// arguments: guides run in registration order, the first whose parameter
// shapes unify with the call arguments picks the class arguments.
func (e *Engine) TryApplyDeductionGuides(name string, callArgs []types.TypeID, span source.Span) (types.TypeID, bool) {
	guides := e.reg.LookupDeductionGuides(name)
	if len(guides) == 0 {
		diag.ReportError(e.reporter, diag.TmplGuideMismatch, span,
			fmt.Sprintf("no deduction guide for %q", name)).Emit()
		return types.NoTypeID, false
	}
	d := deducer{in: e.in, table: e.table}
	var fails []string
	for _, g := range guides {
		args, f := e.tryGuide(d, g, callArgs)
		if f == nil {
			return e.InstantiateClass(name, args, span)
		}
		fails = append(fails, f.String())
	}
	rb := diag.ReportError(e.reporter, diag.TmplGuideMismatch, span,
		fmt.Sprintf("no deduction guide for %q matches these arguments", name))
	for _, msg := range fails {
		rb.WithNote(span, "guide rejected: "+msg)
	}
	rb.Emit()
	return types.NoTypeID, false
}

// tryGuide unifies one guide against the call arguments and substitutes
// its target argument list.
func (e *Engine) tryGuide(d deducer, g DeductionGuide, callArgs []types.TypeID) ([]Argument, *Failure) {
	if len(g.GuideArgs) != len(callArgs) {
		return nil, failf(FailArity, "guide expects %d argument(s), got %d",
			len(g.GuideArgs), len(callArgs))
	}
	shim := &GenericDecl{Name: g.ClassName, Params: g.Params}
	b := NewBinding(shim)
	for i, pat := range g.GuideArgs {
		if f := d.unify(b, pat, callArgs[i]); f != nil {
			return nil, f
		}
	}
	out := make([]Argument, len(g.TargetArgs))
	for i, target := range g.TargetArgs {
		if arg, ok := b.Get(target.Name); ok && target.PtrDepth == 0 && target.CV == 0 && target.Ref == types.RefNone {
			out[i] = arg
			continue
		}
		id, f := e.sub.SubstituteType(b, target)
		if f != nil {
			return nil, f
		}
		out[i] = TypeArg(id)
	}
	return out, nil
}

func (e *Engine) record(name, args, mangled string, class bool) {
	e.records = append(e.records, Record{
		Name:    name,
		Args:    args,
		Mangled: mangled,
		Class:   class,
		Depth:   e.depth,
	})
}
