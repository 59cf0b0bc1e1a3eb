package generics

import (
	"carbide/internal/consteval"
	"carbide/internal/types"
)

// Binding is the pure-functional map from generic parameter names to
// concrete arguments built up during deduction. It never touches the type
// table: a failed deduction leaves no trace anywhere.
type Binding struct {
	decl   *GenericDecl
	params map[string]*GenericParam
	byName map[string]Argument
	packs  map[string][]Argument
}

// NewBinding creates an empty binding for decl's parameters.
func NewBinding(decl *GenericDecl) *Binding {
	return &Binding{
		decl:   decl,
		params: decl.paramNames(),
		byName: make(map[string]Argument, len(decl.Params)),
		packs:  make(map[string][]Argument),
	}
}

// Param returns the declared parameter for a name, or nil when the name is
// not a parameter of this generic.
func (b *Binding) Param(name string) *GenericParam {
	return b.params[name]
}

// Set binds name to arg. Binding the same name twice with a different
// argument is a deduction conflict.
func (b *Binding) Set(name string, arg Argument) *Failure {
	if prev, ok := b.byName[name]; ok {
		if !prev.Equal(arg) {
			return failf(FailDeduceConflict, "parameter %s deduced twice with different arguments", name)
		}
		return nil
	}
	b.byName[name] = arg
	return nil
}

// Get returns the argument bound to name.
func (b *Binding) Get(name string) (Argument, bool) {
	arg, ok := b.byName[name]
	return arg, ok
}

// AppendPack appends one element to the pack bound to name.
func (b *Binding) AppendPack(name string, arg Argument) {
	b.packs[name] = append(b.packs[name], arg)
}

// Pack returns the elements bound to a pack parameter. An empty pack is a
// valid binding.
func (b *Binding) Pack(name string) []Argument {
	return b.packs[name]
}

// OrderedArgs flattens the binding into declaration order, pack elements
// inline at the pack's position. Every non-pack parameter must be bound.
func (b *Binding) OrderedArgs() ([]Argument, *Failure) {
	out := make([]Argument, 0, len(b.decl.Params))
	for _, p := range b.decl.Params {
		if p.Pack {
			out = append(out, b.packs[p.Name]...)
			continue
		}
		arg, ok := b.byName[p.Name]
		if !ok {
			return nil, failf(FailUnbound, "parameter %s could not be deduced", p.Name)
		}
		out = append(out, arg)
	}
	return out, nil
}

// constraintScope adapts a binding to the constraint evaluator. Names
// resolve through the binding first, then through the supplied fallback, so
// evaluation needs no temporary table entries.
type constraintScope struct {
	b       *Binding
	resolve func(spelling string) (types.TypeID, bool)
}

var _ consteval.Scope = constraintScope{}

// Scope builds a consteval.Scope over the binding. resolve handles type
// spellings the binding itself does not cover (concrete names, declarator
// layers on parameters).
func (b *Binding) Scope(resolve func(spelling string) (types.TypeID, bool)) consteval.Scope {
	return constraintScope{b: b, resolve: resolve}
}

func (s constraintScope) ResolveType(name string) (types.TypeID, bool) {
	if arg, ok := s.b.byName[name]; ok && arg.Kind == ArgType {
		return arg.Type, true
	}
	if s.resolve != nil {
		return s.resolve(name)
	}
	return types.NoTypeID, false
}

func (s constraintScope) ResolveValue(name string) (int64, bool) {
	if arg, ok := s.b.byName[name]; ok && arg.Kind == ArgValue {
		return arg.Value, true
	}
	return 0, false
}
