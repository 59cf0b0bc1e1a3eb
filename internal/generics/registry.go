package generics

import (
	"fmt"

	"fortio.org/safecast"

	"carbide/internal/ast"
	"carbide/internal/lexer"
	"carbide/internal/source"
	"carbide/internal/types"
)

// GenericID identifies a registered generic declaration. IDs index an
// append-only arena; 0 is the invalid sentinel.
type GenericID uint32

// NoGenericID marks the absence of a declaration.
const NoGenericID GenericID = 0

// IsValid reports whether the ID points at a stored declaration.
func (id GenericID) IsValid() bool { return id != NoGenericID }

// GenericParamKind tags the three parameter forms.
type GenericParamKind uint8

const (
	GenericTypeParam GenericParamKind = iota
	GenericValueParam
	GenericTemplateParam
)

// GenericParam is one declared parameter of a generic.
type GenericParam struct {
	Kind    GenericParamKind
	Name    string
	Pack    bool
	Default *ast.TypeExpr
}

// GenericDecl is a registered generic declaration: parameter list, optional
// constraint, and the underlying skeleton. Owned by the Registry for the
// process lifetime; never mutated after registration.
type GenericDecl struct {
	ID         GenericID
	Name       string
	Params     []GenericParam
	Constraint *ast.Expr
	Span       source.Span

	// exactly one of Fn / Class is set
	Fn    *ast.FuncDecl
	Class *ast.ClassDecl

	// body handling
	HasBody    bool
	BodyCursor lexer.Cursor
	EagerBody  *ast.Expr
}

// NonPackCount reports the number of leading non-pack parameters.
func (d *GenericDecl) NonPackCount() int {
	n := 0
	for _, p := range d.Params {
		if !p.Pack {
			n++
		}
	}
	return n
}

// PackParam returns the trailing pack parameter, if any.
func (d *GenericDecl) PackParam() *GenericParam {
	if len(d.Params) == 0 {
		return nil
	}
	last := &d.Params[len(d.Params)-1]
	if last.Pack {
		return last
	}
	return nil
}

// paramNames returns the set of parameter names for binding lookups.
func (d *GenericDecl) paramNames() map[string]*GenericParam {
	m := make(map[string]*GenericParam, len(d.Params))
	for i := range d.Params {
		m[d.Params[i].Name] = &d.Params[i]
	}
	return m
}

// Specialization is an explicit full or partial specialization: an argument
// pattern plus the declaration selected when concrete arguments match it.
type Specialization struct {
	Params  []GenericParam // parameters of a partial specialization; empty for full
	Pattern []ast.TypeExpr
	Decl    GenericID
}

// AliasGeneric is a "using Alias<T> = Target" declaration, resolved by
// recursive substitution before general lookup.
type AliasGeneric struct {
	Name   string
	Params []GenericParam
	Target ast.TypeExpr
}

// DeductionGuide pattern-matches constructor-style call arguments and maps
// them to class arguments expressed in terms of the guide's own parameters.
type DeductionGuide struct {
	ClassName  string
	Params     []GenericParam // parameters the guide deduces
	GuideArgs  []ast.TypeExpr // shapes matched against constructor arguments
	TargetArgs []ast.TypeExpr // class arguments, in terms of Params
}

// Registry stores every generic declaration of the compilation, keyed by
// name with ordered overload lists. Append-only, process lifetime.
type Registry struct {
	decls   []GenericDecl // arena, index 0 reserved
	byName  map[string][]GenericID
	specs   map[string][]Specialization
	aliases map[string]AliasGeneric
	guides  map[string][]DeductionGuide
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		decls:   make([]GenericDecl, 1),
		byName:  make(map[string][]GenericID),
		specs:   make(map[string][]Specialization),
		aliases: make(map[string]AliasGeneric),
		guides:  make(map[string][]DeductionGuide),
	}
}

func (r *Registry) alloc(decl GenericDecl) GenericID {
	value, err := safecast.Conv[uint32](len(r.decls))
	if err != nil {
		panic(fmt.Errorf("generic arena overflow: %w", err))
	}
	id := GenericID(value)
	decl.ID = id
	r.decls = append(r.decls, decl)
	return id
}

// Get returns the declaration for an ID or nil.
func (r *Registry) Get(id GenericID) *GenericDecl {
	if !id.IsValid() || int(id) >= len(r.decls) {
		return nil
	}
	return &r.decls[id]
}

// Register appends decl to the overload list for its name. Function
// generics may overload freely; a second class generic under the same name
// is a hard redefinition error.
func (r *Registry) Register(decl GenericDecl) (GenericID, error) {
	if decl.Class != nil {
		for _, existing := range r.byName[decl.Name] {
			if r.decls[existing].Class != nil {
				return NoGenericID, fmt.Errorf("class generic %q already defined", decl.Name)
			}
		}
	}
	id := r.alloc(decl)
	r.byName[decl.Name] = append(r.byName[decl.Name], id)
	return id, nil
}

// LookupAll returns the ordered overload set for a name, or nil.
func (r *Registry) LookupAll(name string) []*GenericDecl {
	ids := r.byName[name]
	if len(ids) == 0 {
		return nil
	}
	out := make([]*GenericDecl, len(ids))
	for i, id := range ids {
		out[i] = &r.decls[id]
	}
	return out
}

// RegisterSpecialization stores an explicit specialization for name.
func (r *Registry) RegisterSpecialization(name string, spec Specialization, decl GenericDecl) GenericID {
	id := r.alloc(decl)
	spec.Decl = id
	r.specs[name] = append(r.specs[name], spec)
	return id
}

// LookupSpecialization finds the first registered specialization whose
// pattern matches the concrete arguments. Consulted before primary-template
// deduction. Full specializations (no parameters of their own) match by
// exact canonical identity; partial ones treat their own parameter names as
// wildcards.
func (r *Registry) LookupSpecialization(in *types.Interner, table typeResolver, name string, args []Argument) *GenericDecl {
	for _, spec := range r.specs[name] {
		if r.specializationMatches(in, table, spec, args) {
			return &r.decls[spec.Decl]
		}
	}
	return nil
}

// typeResolver is the slice of the symbol table the matcher needs.
type typeResolver interface {
	LookupTypeByName(name string) (types.TypeID, bool)
}

func (r *Registry) specializationMatches(in *types.Interner, table typeResolver, spec Specialization, args []Argument) bool {
	if len(spec.Pattern) != len(args) {
		return false
	}
	wildcards := make(map[string]Argument, len(spec.Params))
	wildcardNames := make(map[string]bool, len(spec.Params))
	for _, p := range spec.Params {
		wildcardNames[p.Name] = true
	}
	for i, pat := range spec.Pattern {
		arg := args[i]
		if wildcardNames[pat.Name] && pat.PtrDepth == 0 && pat.CV == 0 && pat.Ref == types.RefNone {
			// bare wildcard: binds anything, consistently
			if prev, ok := wildcards[pat.Name]; ok {
				if !prev.Equal(arg) {
					return false
				}
			} else {
				wildcards[pat.Name] = arg
			}
			continue
		}
		if arg.Kind != ArgType {
			return false
		}
		// layered wildcard (T*, T&) or concrete pattern
		tt, ok := in.Lookup(arg.Type)
		if !ok {
			return false
		}
		if wildcardNames[pat.Name] {
			if tt.PtrDepth < pat.PtrDepth || pat.CV&^tt.CV != 0 {
				return false
			}
			if pat.Ref != types.RefNone && pat.Ref != tt.Ref {
				return false
			}
			inner := tt
			inner.PtrDepth -= pat.PtrDepth
			inner.CV &^= pat.CV
			inner.Ref = types.RefNone
			innerArg := TypeArg(in.Intern(inner))
			if prev, ok := wildcards[pat.Name]; ok {
				if !prev.Equal(innerArg) {
					return false
				}
			} else {
				wildcards[pat.Name] = innerArg
			}
			continue
		}
		// concrete pattern: resolve its spelling and compare identity
		want, ok := table.LookupTypeByName(pat.Name)
		if !ok {
			return false
		}
		wt, ok := in.Lookup(want)
		if !ok {
			return false
		}
		wt.PtrDepth += pat.PtrDepth
		wt.CV |= pat.CV
		wt.Ref = types.Collapse(wt.Ref, pat.Ref)
		if in.Intern(wt) != arg.Type {
			return false
		}
	}
	return true
}

// RegisterAliasGeneric stores a "using Alias<T> = Target" declaration.
// Redefinition is a hard error.
func (r *Registry) RegisterAliasGeneric(alias AliasGeneric) error {
	if _, exists := r.aliases[alias.Name]; exists {
		return fmt.Errorf("alias generic %q already defined", alias.Name)
	}
	r.aliases[alias.Name] = alias
	return nil
}

// LookupAliasGeneric resolves an alias generic by name.
func (r *Registry) LookupAliasGeneric(name string) (AliasGeneric, bool) {
	a, ok := r.aliases[name]
	return a, ok
}

// RegisterDeductionGuide appends a guide for its class name.
func (r *Registry) RegisterDeductionGuide(guide DeductionGuide) {
	r.guides[guide.ClassName] = append(r.guides[guide.ClassName], guide)
}

// LookupDeductionGuides returns the registered guides for a class, in
// registration order.
func (r *Registry) LookupDeductionGuides(name string) []DeductionGuide {
	return r.guides[name]
}

// InferGuideParams recovers the parameter list of a guide written without a
// template header, like "Box(T) -> Box<T>;". Every base name in the guide
// that does not resolve as a known type is a type parameter, in order of
// first appearance.
func InferGuideParams(table typeResolver, patterns, targets []ast.TypeExpr) []GenericParam {
	var params []GenericParam
	seen := make(map[string]bool)
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		if _, ok := table.LookupTypeByName(name); ok {
			return
		}
		params = append(params, GenericParam{Kind: GenericTypeParam, Name: name})
	}
	var visit func(te ast.TypeExpr)
	visit = func(te ast.TypeExpr) {
		if base, _, ok := te.DependentBase(); ok {
			add(parseSpelling(base).Name)
			return
		}
		if _, args, ok := te.GenericApplication(); ok {
			for _, arg := range args {
				visit(parseSpelling(arg))
			}
			return
		}
		add(te.Name)
	}
	for _, te := range patterns {
		visit(te)
	}
	for _, te := range targets {
		visit(te)
	}
	return params
}

// Len reports the number of stored declarations excluding the sentinel.
func (r *Registry) Len() int { return len(r.decls) - 1 }
