package mangle

import (
	"testing"

	"carbide/internal/types"
)

func TestMangleDistinguishesReferenceCategory(t *testing.T) {
	in := types.NewInterner(nil)
	m := New(in)
	base := in.MustLookup(in.Builtins().Int)
	val := in.Intern(base.WithRef(types.RefNone))
	lref := in.Intern(base.WithRef(types.RefLValue))
	rref := in.Intern(base.WithRef(types.RefRValue))

	a := m.Mangle(nil, "identity", []types.TypeID{val})
	b := m.Mangle(nil, "identity", []types.TypeID{lref})
	c := m.Mangle(nil, "identity", []types.TypeID{rref})
	if a == b || b == c || a == c {
		t.Fatalf("identity<int>/<int&>/<int&&> must mangle distinctly: %q %q %q", a, b, c)
	}
}

func TestMangleDeterministic(t *testing.T) {
	in := types.NewInterner(nil)
	m := New(in)
	args := []types.TypeID{in.Builtins().Int, in.Builtins().Double}
	if m.Mangle(nil, "max", args) != m.Mangle(nil, "max", args) {
		t.Fatalf("mangling must be deterministic")
	}
}

func TestMangleNamespacePath(t *testing.T) {
	in := types.NewInterner(nil)
	m := New(in)
	got := m.Mangle([]string{"std"}, "swap", []types.TypeID{in.Builtins().Int})
	want := "_CN3std4swapIiE"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestMangleNamedType(t *testing.T) {
	in := types.NewInterner(nil)
	m := New(in)
	box := in.InternNamed("Box<int>")
	got := m.Mangle(nil, "unwrap", []types.TypeID{box})
	if got != "_C6unwrapI8BoxIintEE" {
		t.Fatalf("named mangle: %q", got)
	}
}
