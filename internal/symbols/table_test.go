package symbols

import (
	"testing"

	"carbide/internal/types"
)

func newTable() *Table {
	return NewTable(types.NewInterner(nil))
}

func TestBuiltinLookup(t *testing.T) {
	tab := newTable()
	id, ok := tab.LookupTypeByName("int")
	if !ok || id != tab.Interner().Builtins().Int {
		t.Fatalf("int lookup failed")
	}
}

func TestTemporaryBindingShadowsAndRestores(t *testing.T) {
	tab := newTable()
	intID := tab.Interner().Builtins().Int
	boolID := tab.Interner().Builtins().Bool

	if err := tab.Define("T", boolID); err != nil {
		t.Fatalf("define: %v", err)
	}
	h := tab.RegisterTemporaryType("T", intID)
	if got, _ := tab.LookupTypeByName("T"); got != intID {
		t.Fatalf("temporary binding not visible")
	}
	tab.RemoveTemporaryType(h)
	if got, _ := tab.LookupTypeByName("T"); got != boolID {
		t.Fatalf("shadowed binding not restored")
	}
	if tab.ActiveTemporaries() != 0 {
		t.Fatalf("leaked temporary bindings: %d", tab.ActiveTemporaries())
	}
}

func TestTemporaryBindingRemoveTwice(t *testing.T) {
	tab := newTable()
	h := tab.RegisterTemporaryType("T", tab.Interner().Builtins().Int)
	tab.RemoveTemporaryType(h)
	tab.RemoveTemporaryType(h) // must be a no-op
	if _, ok := tab.LookupTypeByName("T"); ok {
		t.Fatalf("T must be gone after removal")
	}
}

func TestNestedTemporariesRestoreInOrder(t *testing.T) {
	tab := newTable()
	intID := tab.Interner().Builtins().Int
	boolID := tab.Interner().Builtins().Bool
	h1 := tab.RegisterTemporaryType("T", intID)
	h2 := tab.RegisterTemporaryType("T", boolID)
	tab.RemoveTemporaryType(h2)
	if got, _ := tab.LookupTypeByName("T"); got != intID {
		t.Fatalf("inner removal must restore outer binding")
	}
	tab.RemoveTemporaryType(h1)
	if _, ok := tab.LookupTypeByName("T"); ok {
		t.Fatalf("outer removal must clear the name")
	}
}

func TestDefineDuplicate(t *testing.T) {
	tab := newTable()
	id := tab.Interner().InternNamed("Box<int>")
	if err := tab.Define("BoxInt", id); err != nil {
		t.Fatalf("first define: %v", err)
	}
	if err := tab.Define("BoxInt", id); err != nil {
		t.Fatalf("identical redefinition must be a no-op: %v", err)
	}
	if err := tab.Define("BoxInt", tab.Interner().Builtins().Int); err == nil {
		t.Fatalf("conflicting redefinition must fail")
	}
}

func TestComputeLayout(t *testing.T) {
	tab := newTable()
	in := tab.Interner()
	id := in.InternNamed("Pair<char,int>")
	layout := tab.ComputeLayout(id,
		[]string{"first", "second"},
		[]types.TypeID{in.Builtins().Char, in.Builtins().Int})
	if layout.Size != 8 || layout.Align != 4 {
		t.Fatalf("layout size/align = %d/%d", layout.Size, layout.Align)
	}
	if layout.Fields[1].Offset != 4 {
		t.Fatalf("second field must be padded to offset 4, got %d", layout.Fields[1].Offset)
	}
	if got, ok := tab.LookupStructLayout(id); !ok || got.Size != 8 {
		t.Fatalf("layout not registered")
	}
}

func TestMemberAlias(t *testing.T) {
	tab := newTable()
	in := tab.Interner()
	owner := in.InternNamed("Box<int>")
	tab.DefineMemberAlias(owner, "value_type", in.Builtins().Int)
	got, ok := tab.LookupMemberAlias(owner, "value_type")
	if !ok || got != in.Builtins().Int {
		t.Fatalf("member alias lookup failed")
	}
}
