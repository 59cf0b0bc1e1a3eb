package consteval

import (
	"testing"

	"carbide/internal/ast"
	"carbide/internal/symbols"
	"carbide/internal/types"
)

type mapScope struct {
	typesByName map[string]types.TypeID
	values      map[string]int64
}

func (s mapScope) ResolveType(name string) (types.TypeID, bool) {
	id, ok := s.typesByName[name]
	return id, ok
}

func (s mapScope) ResolveValue(name string) (int64, bool) {
	v, ok := s.values[name]
	return v, ok
}

func ident(name string) *ast.Expr { return &ast.Expr{Kind: ast.ExprIdent, Text: name} }

func call(name string, args ...*ast.Expr) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprCall, Text: name, Args: args}
}

func TestIsIntegral(t *testing.T) {
	table := symbols.NewTable(types.NewInterner(nil))
	ev := New(table)
	scope := mapScope{typesByName: map[string]types.TypeID{
		"T": table.Interner().Builtins().Int,
		"F": table.Interner().Builtins().Float,
	}}

	res := ev.EvaluateBoolean(call("is_integral", ident("T")), scope)
	if !res.OK || !res.Value {
		t.Fatalf("is_integral(int) = %+v", res)
	}
	res = ev.EvaluateBoolean(call("is_integral", ident("F")), scope)
	if !res.OK || res.Value {
		t.Fatalf("is_integral(float) = %+v", res)
	}
}

func TestReferencePredicates(t *testing.T) {
	table := symbols.NewTable(types.NewInterner(nil))
	in := table.Interner()
	base := in.MustLookup(in.Builtins().Int)
	scope := mapScope{typesByName: map[string]types.TypeID{
		"L": in.Intern(base.WithRef(types.RefLValue)),
		"R": in.Intern(base.WithRef(types.RefRValue)),
	}}
	ev := New(table)

	if res := ev.EvaluateBoolean(call("is_lvalue_reference", ident("L")), scope); !res.Value {
		t.Fatalf("int& must be an lvalue reference: %+v", res)
	}
	if res := ev.EvaluateBoolean(call("is_rvalue_reference", ident("R")), scope); !res.Value {
		t.Fatalf("int&& must be an rvalue reference: %+v", res)
	}
	if res := ev.EvaluateBoolean(call("is_reference", ident("L")), scope); !res.Value {
		t.Fatalf("is_reference(int&) = %+v", res)
	}
}

func TestSizeofComparison(t *testing.T) {
	table := symbols.NewTable(types.NewInterner(nil))
	ev := New(table)
	// sizeof(int) > 2
	expr := &ast.Expr{Kind: ast.ExprBinary, Text: ">", Args: []*ast.Expr{
		{Kind: ast.ExprSizeof, Text: "int"},
		{Kind: ast.ExprIntLit, Text: "2"},
	}}
	scope := mapScope{typesByName: map[string]types.TypeID{
		"int": table.Interner().Builtins().Int,
	}}
	res := ev.EvaluateBoolean(expr, scope)
	if !res.OK || !res.Value {
		t.Fatalf("sizeof(int) > 2 = %+v", res)
	}
}

func TestShortCircuit(t *testing.T) {
	table := symbols.NewTable(types.NewInterner(nil))
	ev := New(table)
	// false && unknown_name(T) must evaluate without touching the rhs
	expr := &ast.Expr{Kind: ast.ExprBinary, Text: "&&", Args: []*ast.Expr{
		{Kind: ast.ExprBoolLit, Text: "false"},
		call("mystery", ident("T")),
	}}
	res := ev.EvaluateBoolean(expr, mapScope{})
	if !res.OK || res.Value {
		t.Fatalf("short circuit failed: %+v", res)
	}
}

func TestUnknownNameFails(t *testing.T) {
	table := symbols.NewTable(types.NewInterner(nil))
	ev := New(table)
	res := ev.EvaluateBoolean(call("is_integral", ident("Nope")), mapScope{})
	if res.OK {
		t.Fatalf("unknown type must fail evaluation")
	}
	if res.Detail == "" {
		t.Fatalf("failure must carry a detail message")
	}
}

func TestIsSame(t *testing.T) {
	table := symbols.NewTable(types.NewInterner(nil))
	in := table.Interner()
	scope := mapScope{typesByName: map[string]types.TypeID{
		"A": in.Builtins().Int,
		"B": in.Builtins().Int,
		"C": in.Builtins().Float,
	}}
	ev := New(table)
	if res := ev.EvaluateBoolean(call("is_same", ident("A"), ident("B")), scope); !res.Value {
		t.Fatalf("is_same(int,int) = %+v", res)
	}
	if res := ev.EvaluateBoolean(call("is_same", ident("A"), ident("C")), scope); res.Value {
		t.Fatalf("is_same(int,float) = %+v", res)
	}
}
