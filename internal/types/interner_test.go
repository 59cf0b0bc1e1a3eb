package types

import "testing"

func TestInternerBuiltins(t *testing.T) {
	in := NewInterner(nil)
	b := in.Builtins()
	if b.Int == NoTypeID || b.Bool == NoTypeID {
		t.Fatalf("builtins not initialized")
	}
	tt, _ := in.Lookup(b.Int)
	if tt.Kind != KindInt {
		t.Fatalf("expected int kind, got %v", tt.Kind)
	}
}

func TestReferenceQualifierAffectsIdentity(t *testing.T) {
	in := NewInterner(nil)
	base := in.MustLookup(in.Builtins().Int)
	val := in.Intern(base.WithRef(RefNone))
	lref := in.Intern(base.WithRef(RefLValue))
	rref := in.Intern(base.WithRef(RefRValue))
	if val == lref || val == rref || lref == rref {
		t.Fatalf("int, int& and int&& must be three distinct types")
	}
}

func TestInternerDeduplicates(t *testing.T) {
	in := NewInterner(nil)
	a := in.InternNamed("Box<int>")
	b := in.InternNamed("Box<int>")
	if a != b {
		t.Fatalf("same named type must intern once")
	}
}

func TestCollapseRules(t *testing.T) {
	cases := []struct {
		inner, outer, want Ref
	}{
		{RefLValue, RefLValue, RefLValue},
		{RefLValue, RefRValue, RefLValue},
		{RefRValue, RefLValue, RefLValue},
		{RefRValue, RefRValue, RefRValue},
		{RefNone, RefRValue, RefRValue},
		{RefLValue, RefNone, RefLValue},
	}
	for _, c := range cases {
		if got := Collapse(c.inner, c.outer); got != c.want {
			t.Fatalf("collapse(%v,%v) = %v, want %v", c.inner, c.outer, got, c.want)
		}
	}
}

func TestTypeString(t *testing.T) {
	in := NewInterner(nil)
	base := in.MustLookup(in.Builtins().Int)
	id := in.Intern(base.WithCV(CVConst).WithPtr(1).WithRef(RefLValue))
	if got := in.String(id); got != "const int*&" {
		t.Fatalf("render mismatch: %q", got)
	}
}
