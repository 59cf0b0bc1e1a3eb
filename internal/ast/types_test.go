package ast

import (
	"testing"

	"carbide/internal/types"
)

func TestSplitTopLevel(t *testing.T) {
	got := SplitTopLevel("int, Box<long, char>, T")
	want := []string{"int", "Box<long, char>", "T"}
	if len(got) != len(want) {
		t.Fatalf("split count: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("part %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestGenericApplication(t *testing.T) {
	te := TypeExpr{Name: "Pair<T, U>"}
	base, args, ok := te.GenericApplication()
	if !ok || base != "Pair" || len(args) != 2 || args[1] != "U" {
		t.Fatalf("application parse: %q %v %v", base, args, ok)
	}
	if _, _, ok := (TypeExpr{Name: "int"}).GenericApplication(); ok {
		t.Fatalf("plain name is not an application")
	}
}

func TestDependentBase(t *testing.T) {
	base, member, ok := (TypeExpr{Name: "T::value_type"}).DependentBase()
	if !ok || base != "T" || member != "value_type" {
		t.Fatalf("dependent parse: %q %q %v", base, member, ok)
	}
}

func TestIsForwardingRef(t *testing.T) {
	fwd := TypeExpr{Name: "T", Ref: types.RefRValue}
	if !fwd.IsForwardingRef() {
		t.Fatalf("T&& is a forwarding reference")
	}
	notFwd := TypeExpr{Name: "T", Ref: types.RefRValue, CV: types.CVConst}
	if notFwd.IsForwardingRef() {
		t.Fatalf("const T&& is not a forwarding reference")
	}
}

func TestExprCloneIsDeep(t *testing.T) {
	orig := &Expr{Kind: ExprCall, Text: "f", Args: []*Expr{
		{Kind: ExprIdent, Text: "x"},
	}}
	cp := orig.Clone()
	cp.Args[0].Text = "y"
	if orig.Args[0].Text != "x" {
		t.Fatalf("clone must not share children")
	}
}
