package generics

import (
	"testing"

	"carbide/internal/ast"
	"carbide/internal/diag"
	"carbide/internal/lexer"
	"carbide/internal/parser"
	"carbide/internal/source"
	"carbide/internal/symbols"
	"carbide/internal/types"
)

type testEnv struct {
	engine *Engine
	table  *symbols.Table
	in     *types.Interner
	reg    *Registry
	bag    *diag.Bag
}

func newTestEnv(opts Options) *testEnv {
	in := types.NewInterner(nil)
	table := symbols.NewTable(in)
	reg := NewRegistry()
	bag := diag.NewBag(64)
	if opts.Reporter == nil {
		opts.Reporter = diag.BagReporter{Bag: bag}
	}
	return &testEnv{
		engine: NewEngine(table, reg, opts),
		table:  table,
		in:     in,
		reg:    reg,
		bag:    bag,
	}
}

func (env *testEnv) mustRegister(t *testing.T, decl GenericDecl) GenericID {
	t.Helper()
	id, err := env.reg.Register(decl)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func maxDecl() GenericDecl {
	return GenericDecl{
		Name:   "max",
		Params: []GenericParam{{Kind: GenericTypeParam, Name: "T"}},
		Fn: &ast.FuncDecl{
			Name: "max",
			Ret:  ast.TypeExpr{Name: "T"},
			Params: []ast.Param{
				{Name: "a", Type: ast.TypeExpr{Name: "T"}},
				{Name: "b", Type: ast.TypeExpr{Name: "T"}},
			},
		},
	}
}

func TestInstantiationIdentity(t *testing.T) {
	env := newTestEnv(Options{})
	env.mustRegister(t, maxDecl())

	args := []types.TypeID{env.in.Builtins().Int, env.in.Builtins().Int}
	first, ok := env.engine.InstantiateFunction("max", args, source.Span{})
	if !ok {
		t.Fatal("max(int,int) must instantiate")
	}
	second, ok := env.engine.InstantiateFunction("max", args, source.Span{})
	if !ok || second != first {
		t.Fatalf("repeated instantiation must dedupe: %v vs %v", first, second)
	}
	if env.engine.Cache().Len() != 1 {
		t.Fatalf("cache must hold exactly one entry, got %d", env.engine.Cache().Len())
	}
	if decl := env.engine.Cache().Decl(first); decl.Ret != env.in.Builtins().Int {
		t.Fatalf("max<int> must return int, got %s", env.in.String(decl.Ret))
	}
}

func TestReferenceCategoryProducesDistinctInstantiations(t *testing.T) {
	env := newTestEnv(Options{})
	env.mustRegister(t, GenericDecl{
		Name:   "fwd",
		Params: []GenericParam{{Kind: GenericTypeParam, Name: "T"}},
		Fn: &ast.FuncDecl{
			Name:   "fwd",
			Ret:    ast.TypeExpr{Name: "T", Ref: types.RefRValue},
			Params: []ast.Param{{Name: "x", Type: ast.TypeExpr{Name: "T", Ref: types.RefRValue}}},
		},
	})

	intT := env.in.MustLookup(env.in.Builtins().Int)
	lval := env.in.Intern(intT.WithRef(types.RefLValue))

	a, ok := env.engine.InstantiateFunction("fwd", []types.TypeID{lval}, source.Span{})
	if !ok {
		t.Fatal("fwd(lvalue) must instantiate")
	}
	b, ok := env.engine.InstantiateFunction("fwd", []types.TypeID{env.in.Builtins().Int}, source.Span{})
	if !ok {
		t.Fatal("fwd(rvalue) must instantiate")
	}
	if a == b {
		t.Fatal("fwd<int&> and fwd<int> must be distinct instantiations")
	}
	// T=int& collapses T&& to int&
	da := env.engine.Cache().Decl(a)
	if got := env.in.String(da.Params[0].Type); got != "int&" {
		t.Fatalf("forwarded lvalue parameter must collapse to int&, got %s", got)
	}
	db := env.engine.Cache().Decl(b)
	if got := env.in.String(db.Params[0].Type); got != "int&&" {
		t.Fatalf("forwarded rvalue parameter must stay int&&, got %s", got)
	}
	if da.Mangled == db.Mangled {
		t.Fatal("distinct instantiations must not share a linkage name")
	}
}

func TestFirstViableCandidateWins(t *testing.T) {
	env := newTestEnv(Options{})
	constrained := maxDecl()
	constrained.Name = "pick"
	constrained.Fn.Name = "pick"
	constrained.Constraint = &ast.Expr{
		Kind: ast.ExprCall, Text: "is_integral",
		Args: []*ast.Expr{{Kind: ast.ExprIdent, Text: "T"}},
	}
	env.mustRegister(t, constrained)

	fallback := GenericDecl{
		Name:   "pick",
		Params: []GenericParam{{Kind: GenericTypeParam, Name: "T"}},
		Fn: &ast.FuncDecl{
			Name: "pick",
			Ret:  ast.TypeExpr{Name: "bool"},
			Params: []ast.Param{
				{Name: "a", Type: ast.TypeExpr{Name: "T"}},
				{Name: "b", Type: ast.TypeExpr{Name: "T"}},
			},
		},
	}
	env.mustRegister(t, fallback)

	intArgs := []types.TypeID{env.in.Builtins().Int, env.in.Builtins().Int}
	id, ok := env.engine.InstantiateFunction("pick", intArgs, source.Span{})
	if !ok {
		t.Fatal("pick(int,int) must instantiate")
	}
	if env.engine.Cache().Decl(id).Ret != env.in.Builtins().Int {
		t.Fatal("int arguments must select the constrained candidate first")
	}

	dblArgs := []types.TypeID{env.in.Builtins().Double, env.in.Builtins().Double}
	id, ok = env.engine.InstantiateFunction("pick", dblArgs, source.Span{})
	if !ok {
		t.Fatal("pick(double,double) must fall through to the unconstrained candidate")
	}
	if env.engine.Cache().Decl(id).Ret != env.in.Builtins().Bool {
		t.Fatal("double arguments must skip the integral-constrained candidate")
	}
}

func TestNoViableCandidateDiagnostic(t *testing.T) {
	env := newTestEnv(Options{})
	decl := maxDecl()
	decl.Constraint = &ast.Expr{Kind: ast.ExprBoolLit, Text: "false"}
	env.mustRegister(t, decl)

	_, ok := env.engine.InstantiateFunction("max",
		[]types.TypeID{env.in.Builtins().Int, env.in.Builtins().Int}, source.Span{})
	if ok {
		t.Fatal("a false constraint must reject the only candidate")
	}
	var found bool
	for _, d := range env.bag.Items() {
		if d.Code == diag.TmplNoViableCandidate {
			found = true
			if len(d.Notes) != 1 {
				t.Fatalf("expected one per-candidate note, got %d", len(d.Notes))
			}
		}
	}
	if !found {
		t.Fatal("expected a no-viable-candidate diagnostic")
	}
}

func TestRejectionLeavesNoTrace(t *testing.T) {
	env := newTestEnv(Options{})
	decl := maxDecl()
	decl.Constraint = &ast.Expr{Kind: ast.ExprBoolLit, Text: "false"}
	env.mustRegister(t, decl)

	typesBefore := env.in.Len()
	env.engine.InstantiateFunction("max",
		[]types.TypeID{env.in.Builtins().Int, env.in.Builtins().Int}, source.Span{})
	if env.engine.Cache().Len() != 0 {
		t.Fatal("a rejected candidate must not populate the cache")
	}
	if env.table.ActiveTemporaries() != 0 {
		t.Fatal("a rejected candidate must not leak temporary bindings")
	}
	_ = typesBefore // interning during deduction is fine; the cache and table must stay clean
}

func TestExplicitArgumentsWithDefault(t *testing.T) {
	env := newTestEnv(Options{})
	def := ast.TypeExpr{Name: "T"}
	env.mustRegister(t, GenericDecl{
		Name: "conv",
		Params: []GenericParam{
			{Kind: GenericTypeParam, Name: "T"},
			{Kind: GenericTypeParam, Name: "U", Default: &def},
		},
		Fn: &ast.FuncDecl{
			Name:   "conv",
			Ret:    ast.TypeExpr{Name: "U"},
			Params: []ast.Param{{Name: "x", Type: ast.TypeExpr{Name: "T"}}},
		},
	})

	id, ok := env.engine.InstantiateFunctionExplicit("conv",
		[]Argument{TypeArg(env.in.Builtins().Double)}, nil, false, source.Span{})
	if !ok {
		t.Fatal("conv<double> must instantiate with U defaulted to T")
	}
	if got := env.engine.Cache().Decl(id).Ret; got != env.in.Builtins().Double {
		t.Fatalf("default U=T must yield double, got %s", env.in.String(got))
	}
}

func TestClassInstantiation(t *testing.T) {
	env := newTestEnv(Options{})
	env.mustRegister(t, GenericDecl{
		Name:   "Box",
		Params: []GenericParam{{Kind: GenericTypeParam, Name: "T"}},
		Class: &ast.ClassDecl{
			Name:    "Box",
			Fields:  []ast.Field{{Name: "value", Type: ast.TypeExpr{Name: "T"}}},
			Aliases: []ast.AliasMember{{Name: "value_type", Target: ast.TypeExpr{Name: "T"}}},
		},
	})

	id, ok := env.engine.InstantiateClass("Box", []Argument{TypeArg(env.in.Builtins().Int)}, source.Span{})
	if !ok {
		t.Fatal("Box<int> must instantiate")
	}
	if got := env.in.String(id); got != "Box<int>" {
		t.Fatalf("instantiated type must spell Box<int>, got %s", got)
	}
	if named, ok := env.table.LookupTypeByName("Box<int>"); !ok || named != id {
		t.Fatal("the instantiated name must be defined in the table")
	}
	if member, ok := env.table.LookupMemberAlias(id, "value_type"); !ok || member != env.in.Builtins().Int {
		t.Fatal("Box<int>::value_type must resolve to int")
	}
	layout, ok := env.table.LookupStructLayout(id)
	if !ok || layout.Size != 4 {
		t.Fatalf("Box<int> layout must be 4 bytes, got %+v", layout)
	}

	// repeated instantiation returns the identical TypeID
	again, ok := env.engine.InstantiateClass("Box", []Argument{TypeArg(env.in.Builtins().Int)}, source.Span{})
	if !ok || again != id {
		t.Fatal("class instantiation must dedupe")
	}
}

func TestSelfReferentialClassTerminates(t *testing.T) {
	env := newTestEnv(Options{})
	env.mustRegister(t, GenericDecl{
		Name:   "Node",
		Params: []GenericParam{{Kind: GenericTypeParam, Name: "T"}},
		Class: &ast.ClassDecl{
			Name: "Node",
			Fields: []ast.Field{
				{Name: "value", Type: ast.TypeExpr{Name: "T"}},
				{Name: "next", Type: ast.TypeExpr{Name: "Node<T>", PtrDepth: 1}},
			},
		},
	})

	id, ok := env.engine.InstantiateClass("Node", []Argument{TypeArg(env.in.Builtins().Int)}, source.Span{})
	if !ok {
		t.Fatal("a self-referential class must instantiate")
	}
	decl := env.engine.Cache().Decl(env.mustCachedClass(t, "Node<int>"))
	next := decl.Fields[1].Type
	if got := env.in.String(next); got != "Node<int>*" {
		t.Fatalf("next must be Node<int>*, got %s", got)
	}
	base := env.in.MustLookup(next)
	base.PtrDepth = 0
	if env.in.Intern(base) != id {
		t.Fatal("the pointee must be the instantiation itself")
	}
}

// mustCachedClass finds the cached instantiation with the given display name.
func (env *testEnv) mustCachedClass(t *testing.T, display string) InstID {
	t.Helper()
	c := env.engine.Cache()
	for i := 1; i <= c.Len(); i++ {
		if c.Decl(InstID(i)).Name == display {
			return InstID(i)
		}
	}
	t.Fatalf("no cached instantiation named %s", display)
	return NoInstID
}

func TestFailedClassLeavesNoDefinition(t *testing.T) {
	env := newTestEnv(Options{})
	env.mustRegister(t, GenericDecl{
		Name:   "Bad",
		Params: []GenericParam{{Kind: GenericTypeParam, Name: "T"}},
		Class: &ast.ClassDecl{
			Name:    "Bad",
			Fields:  []ast.Field{{Name: "value", Type: ast.TypeExpr{Name: "Mystery"}}},
			Aliases: []ast.AliasMember{{Name: "value_type", Target: ast.TypeExpr{Name: "T"}}},
		},
	})

	_, ok := env.engine.InstantiateClass("Bad", []Argument{TypeArg(env.in.Builtins().Int)}, source.Span{})
	if ok {
		t.Fatal("an unresolvable field type must reject the instantiation")
	}
	if _, defined := env.table.LookupTypeByName("Bad<int>"); defined {
		t.Fatal("a failed class must not leave its name defined")
	}
	id := env.in.InternNamed("Bad<int>")
	if _, leaked := env.table.LookupMemberAlias(id, "value_type"); leaked {
		t.Fatal("a failed class must not leave member aliases behind")
	}
	if env.table.ActiveTemporaries() != 0 {
		t.Fatal("the provisional name binding must be removed")
	}
}

func TestHardClassFailureUsesInternalCode(t *testing.T) {
	env := newTestEnv(Options{})
	env.mustRegister(t, GenericDecl{
		Name:   "Box",
		Params: []GenericParam{{Kind: GenericTypeParam, Name: "T"}},
		Class: &ast.ClassDecl{
			Name:   "Box",
			Fields: []ast.Field{{Name: "value", Type: ast.TypeExpr{Name: "T"}}},
		},
	})
	// the display name is already taken by an unrelated type
	if err := env.table.Define("Box<int>", env.in.Builtins().Double); err != nil {
		t.Fatal(err)
	}

	_, ok := env.engine.InstantiateClass("Box", []Argument{TypeArg(env.in.Builtins().Int)}, source.Span{})
	if ok {
		t.Fatal("a name collision must fail the instantiation")
	}
	var found bool
	for _, d := range env.bag.Items() {
		if d.Code == diag.RegInternal {
			found = true
		}
	}
	if !found {
		t.Fatal("a hard failure must report under the internal-invariant code")
	}
	if id, _ := env.table.LookupTypeByName("Box<int>"); id != env.in.Builtins().Double {
		t.Fatal("the pre-existing definition must survive the failed attempt")
	}
}

func TestDeductionGuide(t *testing.T) {
	env := newTestEnv(Options{})
	env.mustRegister(t, GenericDecl{
		Name:   "Box",
		Params: []GenericParam{{Kind: GenericTypeParam, Name: "T"}},
		Class: &ast.ClassDecl{
			Name:   "Box",
			Fields: []ast.Field{{Name: "value", Type: ast.TypeExpr{Name: "T"}}},
		},
	})
	env.reg.RegisterDeductionGuide(DeductionGuide{
		ClassName:  "Box",
		Params:     []GenericParam{{Kind: GenericTypeParam, Name: "T"}},
		GuideArgs:  []ast.TypeExpr{{Name: "T"}},
		TargetArgs: []ast.TypeExpr{{Name: "T"}},
	})

	id, ok := env.engine.TryApplyDeductionGuides("Box", []types.TypeID{env.in.Builtins().Int}, source.Span{})
	if !ok {
		t.Fatal("Box(42) must deduce Box<int>")
	}
	if got := env.in.String(id); got != "Box<int>" {
		t.Fatalf("got %s", got)
	}

	_, ok = env.engine.TryApplyDeductionGuides("Box", nil, source.Span{})
	if ok {
		t.Fatal("a zero-argument call matches no guide")
	}
	var found bool
	for _, d := range env.bag.Items() {
		if d.Code == diag.TmplGuideMismatch {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a guide-mismatch diagnostic")
	}
}

func TestRecursionLimitTerminates(t *testing.T) {
	env := newTestEnv(Options{MaxDepth: 8})
	// each instantiation of Grow<T> demands Grow<T*>
	env.mustRegister(t, GenericDecl{
		Name:   "Grow",
		Params: []GenericParam{{Kind: GenericTypeParam, Name: "T"}},
		Class: &ast.ClassDecl{
			Name:   "Grow",
			Fields: []ast.Field{{Name: "deeper", Type: ast.TypeExpr{Name: "Grow<T*>"}}},
		},
	})

	_, ok := env.engine.InstantiateClass("Grow", []Argument{TypeArg(env.in.Builtins().Int)}, source.Span{})
	if ok {
		t.Fatal("unbounded recursion must not succeed")
	}
	var warned bool
	for _, d := range env.bag.Items() {
		if d.Code == diag.TmplRecursionLimit {
			warned = true
		}
	}
	if !warned {
		t.Fatal("expected a recursion-limit warning")
	}
	if env.table.ActiveTemporaries() != 0 {
		t.Fatal("the failed cascade must not leak temporary bindings")
	}
}

func TestCachePutIdempotentAndGuarded(t *testing.T) {
	c := NewCache()
	k := Key{Generic: 1, Args: "int"}
	a := c.Put(k, ast.ConcreteDecl{Name: "f", Mangled: "_C1fIiE"})
	b := c.Put(k, ast.ConcreteDecl{Name: "f", Mangled: "_C1fIiE"})
	if a != b {
		t.Fatal("idempotent Put must return the existing handle")
	}
	defer func() {
		if recover() == nil {
			t.Fatal("a conflicting mangled name for one key must panic")
		}
	}()
	c.Put(k, ast.ConcreteDecl{Name: "f", Mangled: "_C1fIdE"})
}

// end-to-end: parse real source, register, instantiate with a deferred body
func parseSource(t *testing.T, env *testEnv, src string) (*parser.Parser, []parser.Item) {
	t.Helper()
	file := source.File{Content: []byte(src)}
	toks := lexer.New(&file, nil).ScanAll()
	p := parser.New(lexer.NewStream(toks), env.table, parser.Options{
		Reporter:       diag.NopReporter{},
		ResolveGeneric: env.engine.ResolveClassType,
	})
	items := p.ParseFile()
	if p.ErrorCount() != 0 {
		t.Fatalf("parse errors in test source:\n%s", src)
	}
	return p, items
}

func registerFuncItem(t *testing.T, env *testEnv, item parser.Item) {
	t.Helper()
	decl := GenericDecl{
		Name:       item.Fn.Name,
		Constraint: item.Requires,
		Span:       item.Span,
		Fn:         item.Fn,
		HasBody:    item.HasBody,
		BodyCursor: item.BodyCursor,
		EagerBody:  item.EagerBody,
	}
	for _, p := range item.Params {
		kind := GenericTypeParam
		switch p.Kind {
		case parser.NonTypeParam:
			kind = GenericValueParam
		case parser.TemplateTemplateParam:
			kind = GenericTemplateParam
		}
		decl.Params = append(decl.Params, GenericParam{
			Kind: kind, Name: p.Name, Pack: p.Pack, Default: p.Default,
		})
	}
	env.mustRegister(t, decl)
}

func TestDeferredBodyReparse(t *testing.T) {
	env := newTestEnv(Options{})
	src := `template<typename T> T twice(T x) { T y = x + x; return y; }`
	p, items := parseSource(t, env, src)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	env.engine.reparser = p
	registerFuncItem(t, env, items[0])

	posBefore := p.Stream().Pos()
	id, ok := env.engine.InstantiateFunction("twice", []types.TypeID{env.in.Builtins().Int}, source.Span{})
	if !ok {
		t.Fatal("twice(int) must instantiate")
	}
	decl := env.engine.Cache().Decl(id)
	if decl.Body == nil {
		t.Fatal("the deferred body must be materialized")
	}
	if decl.Body.Kind != ast.ExprBlock || len(decl.Body.Args) != 2 {
		t.Fatalf("body shape: %v with %d statements", decl.Body.Kind, len(decl.Body.Args))
	}
	if p.Stream().Pos() != posBefore {
		t.Fatal("the stream position must be restored after re-parsing")
	}
	if env.table.ActiveTemporaries() != 0 {
		t.Fatal("trial bindings must be removed after the body resolves")
	}
	if _, shadow := env.table.LookupTypeByName("T"); shadow {
		t.Fatal("the temporary T binding leaked into the table")
	}
}

func TestBodyReparseFailureIsSoft(t *testing.T) {
	env := newTestEnv(Options{})
	// U is never bound, so the body cannot resolve for any argument
	src := `template<typename T> T broken(T x) { U y = x; return y; }
template<typename T> T broken(T x) { return x; }`
	p, items := parseSource(t, env, src)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	env.engine.reparser = p
	registerFuncItem(t, env, items[0])
	registerFuncItem(t, env, items[1])

	id, ok := env.engine.InstantiateFunction("broken", []types.TypeID{env.in.Builtins().Int}, source.Span{})
	if !ok {
		t.Fatal("the second overload must be selected after the first body fails")
	}
	if env.engine.Cache().Decl(id).Body == nil {
		t.Fatal("the viable overload's body must be materialized")
	}
	if env.table.ActiveTemporaries() != 0 {
		t.Fatal("the failed candidate must not leak temporary bindings")
	}
}
