package generics

import (
	"testing"

	"carbide/internal/ast"
	"carbide/internal/symbols"
	"carbide/internal/types"
)

func newDeduceEnv() (deducer, *types.Interner) {
	in := types.NewInterner(nil)
	table := symbols.NewTable(in)
	return deducer{in: in, table: table}, in
}

func typeParamDecl(name string, params ...string) *GenericDecl {
	d := &GenericDecl{Name: name}
	for _, p := range params {
		d.Params = append(d.Params, GenericParam{Kind: GenericTypeParam, Name: p})
	}
	return d
}

func fnOf(decl *GenericDecl, params ...ast.Param) *GenericDecl {
	decl.Fn = &ast.FuncDecl{Name: decl.Name, Ret: ast.TypeExpr{Name: "void"}, Params: params}
	return decl
}

func TestDeduceByValueDecays(t *testing.T) {
	d, in := newDeduceEnv()
	decl := fnOf(typeParamDecl("f", "T"), ast.Param{Name: "x", Type: ast.TypeExpr{Name: "T"}})

	intT := in.MustLookup(in.Builtins().Int)
	constIntRef := in.Intern(intT.WithCV(types.CVConst).WithRef(types.RefLValue))

	b := NewBinding(decl)
	if f := d.FromCallArguments(decl, b, []types.TypeID{constIntRef}); f != nil {
		t.Fatal(f)
	}
	arg, _ := b.Get("T")
	if arg.Type != in.Builtins().Int {
		t.Fatalf("by-value deduction must decay const int& to int, got %s", in.String(arg.Type))
	}
}

func TestDeduceLValueRefRejectsRValue(t *testing.T) {
	d, in := newDeduceEnv()
	decl := fnOf(typeParamDecl("f", "T"),
		ast.Param{Name: "x", Type: ast.TypeExpr{Name: "T", Ref: types.RefLValue}})

	b := NewBinding(decl)
	f := d.FromCallArguments(decl, b, []types.TypeID{in.Builtins().Int})
	if f == nil || f.Kind != FailTypeMismatch {
		t.Fatalf("T& must reject an rvalue, got %v", f)
	}
	if !f.Soft() {
		t.Fatal("a binding mismatch is a soft rejection")
	}

	intT := in.MustLookup(in.Builtins().Int)
	lval := in.Intern(intT.WithRef(types.RefLValue))
	b = NewBinding(decl)
	if f := d.FromCallArguments(decl, b, []types.TypeID{lval}); f != nil {
		t.Fatal(f)
	}
	arg, _ := b.Get("T")
	if arg.Type != in.Builtins().Int {
		t.Fatalf("T& against int& must deduce T=int, got %s", in.String(arg.Type))
	}
}

func TestDeduceConstRefBindsRValue(t *testing.T) {
	d, in := newDeduceEnv()
	decl := fnOf(typeParamDecl("f", "T"),
		ast.Param{Name: "x", Type: ast.TypeExpr{Name: "T", CV: types.CVConst, Ref: types.RefLValue}})

	b := NewBinding(decl)
	if f := d.FromCallArguments(decl, b, []types.TypeID{in.Builtins().Int}); f != nil {
		t.Fatalf("const T& must bind an rvalue: %v", f)
	}
	arg, _ := b.Get("T")
	if arg.Type != in.Builtins().Int {
		t.Fatalf("got %s", in.String(arg.Type))
	}
}

func TestDeduceForwardingReference(t *testing.T) {
	d, in := newDeduceEnv()
	decl := fnOf(typeParamDecl("fwd", "T"),
		ast.Param{Name: "x", Type: ast.TypeExpr{Name: "T", Ref: types.RefRValue}})

	intT := in.MustLookup(in.Builtins().Int)
	lval := in.Intern(intT.WithRef(types.RefLValue))

	b := NewBinding(decl)
	if f := d.FromCallArguments(decl, b, []types.TypeID{lval}); f != nil {
		t.Fatal(f)
	}
	arg, _ := b.Get("T")
	if arg.Type != lval {
		t.Fatalf("lvalue argument must deduce T=int&, got %s", in.String(arg.Type))
	}

	b = NewBinding(decl)
	if f := d.FromCallArguments(decl, b, []types.TypeID{in.Builtins().Int}); f != nil {
		t.Fatal(f)
	}
	arg, _ = b.Get("T")
	if arg.Type != in.Builtins().Int {
		t.Fatalf("rvalue argument must deduce T=int, got %s", in.String(arg.Type))
	}
}

func TestDeduceConflict(t *testing.T) {
	d, in := newDeduceEnv()
	decl := fnOf(typeParamDecl("f", "T"),
		ast.Param{Name: "a", Type: ast.TypeExpr{Name: "T"}},
		ast.Param{Name: "b", Type: ast.TypeExpr{Name: "T"}})

	b := NewBinding(decl)
	f := d.FromCallArguments(decl, b, []types.TypeID{in.Builtins().Int, in.Builtins().Double})
	if f == nil || f.Kind != FailDeduceConflict {
		t.Fatalf("expected a deduction conflict, got %v", f)
	}
}

func TestDeducePointerPeeling(t *testing.T) {
	d, in := newDeduceEnv()
	decl := fnOf(typeParamDecl("f", "T"),
		ast.Param{Name: "p", Type: ast.TypeExpr{Name: "T", PtrDepth: 1}})

	intT := in.MustLookup(in.Builtins().Int)
	intPtrPtr := in.Intern(intT.WithPtr(2))

	b := NewBinding(decl)
	if f := d.FromCallArguments(decl, b, []types.TypeID{intPtrPtr}); f != nil {
		t.Fatal(f)
	}
	arg, _ := b.Get("T")
	if got := in.String(arg.Type); got != "int*" {
		t.Fatalf("T* against int** must deduce T=int*, got %s", got)
	}

	b = NewBinding(decl)
	if f := d.FromCallArguments(decl, b, []types.TypeID{in.Builtins().Int}); f == nil {
		t.Fatal("T* must reject a non-pointer argument")
	}
}

func TestDeducePackLengths(t *testing.T) {
	d, in := newDeduceEnv()
	for _, n := range []int{0, 1, 4} {
		decl := &GenericDecl{
			Name:   "sum",
			Params: []GenericParam{{Kind: GenericTypeParam, Name: "Ts", Pack: true}},
		}
		fnOf(decl, ast.Param{Name: "args", Type: ast.TypeExpr{Name: "Ts", Pack: true}})

		callArgs := make([]types.TypeID, n)
		for i := range callArgs {
			callArgs[i] = in.Builtins().Int
		}
		b := NewBinding(decl)
		if f := d.FromCallArguments(decl, b, callArgs); f != nil {
			t.Fatalf("n=%d: %v", n, f)
		}
		if got := len(b.Pack("Ts")); got != n {
			t.Fatalf("n=%d: pack length %d", n, got)
		}
		if _, f := b.OrderedArgs(); f != nil {
			t.Fatalf("n=%d: an empty pack is still a complete binding: %v", n, f)
		}
	}
}

func TestDeduceArity(t *testing.T) {
	d, in := newDeduceEnv()
	decl := fnOf(typeParamDecl("f", "T"),
		ast.Param{Name: "a", Type: ast.TypeExpr{Name: "T"}})

	b := NewBinding(decl)
	if f := d.FromCallArguments(decl, b, nil); f == nil || f.Kind != FailArity {
		t.Fatalf("missing argument must fail arity, got %v", f)
	}
	b = NewBinding(decl)
	two := []types.TypeID{in.Builtins().Int, in.Builtins().Int}
	if f := d.FromCallArguments(decl, b, two); f == nil || f.Kind != FailArity {
		t.Fatalf("extra argument must fail arity, got %v", f)
	}
}

func TestExplicitArgumentKindChecked(t *testing.T) {
	d, in := newDeduceEnv()
	decl := &GenericDecl{
		Name: "fill",
		Params: []GenericParam{
			{Kind: GenericTypeParam, Name: "T"},
			{Kind: GenericValueParam, Name: "N"},
		},
		Fn: &ast.FuncDecl{Name: "fill"},
	}
	b := NewBinding(decl)
	good := []Argument{TypeArg(in.Builtins().Int), ValueArg(8, in.Builtins().Int)}
	if f := d.FromExplicitArguments(decl, b, good); f != nil {
		t.Fatal(f)
	}
	b = NewBinding(decl)
	bad := []Argument{ValueArg(8, in.Builtins().Int), TypeArg(in.Builtins().Int)}
	if f := d.FromExplicitArguments(decl, b, bad); f == nil {
		t.Fatal("a value argument must not bind a type parameter")
	}
}

func TestDeduceGenericApplication(t *testing.T) {
	d, in := newDeduceEnv()
	// the concrete instantiation exists already; deduction only unpacks it
	boxInt := in.InternNamed("Box<int>")
	if err := d.table.Define("Box<int>", boxInt); err != nil {
		t.Fatal(err)
	}
	decl := fnOf(typeParamDecl("unwrap", "T"),
		ast.Param{Name: "b", Type: ast.TypeExpr{Name: "Box<T>"}})

	b := NewBinding(decl)
	if f := d.FromCallArguments(decl, b, []types.TypeID{boxInt}); f != nil {
		t.Fatal(f)
	}
	arg, _ := b.Get("T")
	if arg.Type != in.Builtins().Int {
		t.Fatalf("Box<T> against Box<int> must deduce T=int, got %s", in.String(arg.Type))
	}

	b = NewBinding(decl)
	if f := d.FromCallArguments(decl, b, []types.TypeID{in.Builtins().Int}); f == nil {
		t.Fatal("a plain int is not an instantiation of Box")
	}
}
