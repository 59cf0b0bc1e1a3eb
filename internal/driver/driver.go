// Package driver wires the front end together: load a file, scan it, parse
// the top-level items, populate the generic registry, and serve
// instantiation requests against the engine.
package driver

import (
	"fmt"
	"strconv"

	"carbide/internal/ast"
	"carbide/internal/diag"
	"carbide/internal/generics"
	"carbide/internal/lexer"
	"carbide/internal/parser"
	"carbide/internal/source"
	"carbide/internal/symbols"
	"carbide/internal/token"
	"carbide/internal/types"
)

// Options configures one compilation.
type Options struct {
	MaxDiagnostics int
	MaxDepth       int
	EagerBodies    bool
}

func (o Options) withDefaults() Options {
	if o.MaxDiagnostics <= 0 {
		o.MaxDiagnostics = 100
	}
	return o
}

// Result is the state of one compilation, alive for follow-up
// instantiation requests.
type Result struct {
	FileSet *source.FileSet
	FileID  source.FileID
	Bag     *diag.Bag
	Tokens  []token.Token
	Items   []parser.Item
	Parser  *parser.Parser
	Table   *symbols.Table
	Engine  *generics.Engine
}

// Tokenize scans a file and stops there.
func Tokenize(path string, maxDiagnostics int) (*Result, error) {
	res, err := load(path, Options{MaxDiagnostics: maxDiagnostics})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Compile runs the whole pipeline: scan, parse, register, ready to
// instantiate.
func Compile(path string, opts Options) (*Result, error) {
	res, err := load(path, opts)
	if err != nil {
		return nil, err
	}
	res.buildFrontEnd(opts.withDefaults())
	return res, nil
}

// CompileSource compiles an in-memory buffer under a display name.
func CompileSource(name string, src []byte, opts Options) (*Result, error) {
	res := newResult(opts.withDefaults())
	res.FileID = res.FileSet.AddVirtual(name, src)
	res.scan()
	res.buildFrontEnd(opts.withDefaults())
	return res, nil
}

func newResult(opts Options) *Result {
	return &Result{
		FileSet: source.NewFileSet(),
		Bag:     diag.NewBag(opts.MaxDiagnostics),
	}
}

func load(path string, opts Options) (*Result, error) {
	res := newResult(opts.withDefaults())
	id, err := res.FileSet.Load(path)
	if err != nil {
		return nil, fmt.Errorf("cannot load %s: %w", path, err)
	}
	res.FileID = id
	res.scan()
	return res, nil
}

func (res *Result) scan() {
	file := res.FileSet.Get(res.FileID)
	res.Tokens = lexer.New(file, diag.BagReporter{Bag: res.Bag}).ScanAll()
}

// buildFrontEnd parses the token stream and registers every item. The
// parser and the engine reference each other: the parser asks the engine to
// instantiate spelled applications like Box<int>, the engine re-enters the
// parser for deferred bodies. The cycle is tied with a late-bound closure.
func (res *Result) buildFrontEnd(opts Options) {
	in := types.NewInterner(nil)
	res.Table = symbols.NewTable(in)
	reg := generics.NewRegistry()
	reporter := diag.BagReporter{Bag: res.Bag}

	stream := lexer.NewStream(res.Tokens)
	res.Parser = parser.New(stream, res.Table, parser.Options{
		MaxErrors:   uint(opts.MaxDiagnostics),
		EagerBodies: opts.EagerBodies,
		Reporter:    reporter,
		ResolveGeneric: func(base string, args []types.TypeID) (types.TypeID, bool) {
			if res.Engine == nil {
				return types.NoTypeID, false
			}
			return res.Engine.ResolveClassType(base, args)
		},
	})
	res.Items = res.Parser.ParseFile()
	res.Engine = generics.NewEngine(res.Table, reg, generics.Options{
		Reporter: reporter,
		Reparser: res.Parser,
		MaxDepth: opts.MaxDepth,
	})
	RegisterItems(reg, res.Items, res.Table, reporter)
}

// RegisterItems converts parsed items into registry entries. Registration
// failures (duplicate class generics, alias redefinitions) are reported and
// skipped; the rest of the file still registers.
func RegisterItems(reg *generics.Registry, items []parser.Item, table *symbols.Table, reporter diag.Reporter) {
	for i := range items {
		item := &items[i]
		switch item.Kind {
		case parser.ItemTemplateFunc:
			decl := itemToDecl(item)
			decl.Fn = item.Fn
			if _, err := reg.Register(decl); err != nil {
				reportRegErr(reporter, item.Span, err)
			}
		case parser.ItemTemplateClass:
			decl := itemToDecl(item)
			decl.Class = item.Class
			if _, err := reg.Register(decl); err != nil {
				reportRegErr(reporter, item.Span, err)
			}
		case parser.ItemAliasTemplate:
			err := reg.RegisterAliasGeneric(generics.AliasGeneric{
				Name:   item.AliasName,
				Params: convertParams(item.Params),
				Target: item.AliasTarget,
			})
			if err != nil {
				reportRegErr(reporter, item.Span, err)
			}
		case parser.ItemDeductionGuide:
			params := convertParams(item.Params)
			if len(params) == 0 {
				// a guide without a template header declares its
				// parameters implicitly through the names it uses
				params = generics.InferGuideParams(table, item.GuideParams, item.GuideArgs)
			}
			reg.RegisterDeductionGuide(generics.DeductionGuide{
				ClassName:  item.GuideName,
				Params:     params,
				GuideArgs:  item.GuideParams,
				TargetArgs: item.GuideArgs,
			})
		case parser.ItemSpecialization:
			decl := itemToDecl(item)
			decl.Fn = item.Fn
			decl.Class = item.Class
			decl.Name = item.SpecName
			reg.RegisterSpecialization(item.SpecName, generics.Specialization{
				Params:  convertParams(item.Params),
				Pattern: item.SpecArgs,
			}, decl)
		}
	}
}

func itemToDecl(item *parser.Item) generics.GenericDecl {
	decl := generics.GenericDecl{
		Params:     convertParams(item.Params),
		Constraint: item.Requires,
		Span:       item.Span,
		HasBody:    item.HasBody,
		BodyCursor: item.BodyCursor,
		EagerBody:  item.EagerBody,
	}
	if item.Fn != nil {
		decl.Name = item.Fn.Name
	} else if item.Class != nil {
		decl.Name = item.Class.Name
	}
	return decl
}

func convertParams(params []parser.TemplateParam) []generics.GenericParam {
	out := make([]generics.GenericParam, len(params))
	for i, p := range params {
		kind := generics.GenericTypeParam
		switch p.Kind {
		case parser.NonTypeParam:
			kind = generics.GenericValueParam
		case parser.TemplateTemplateParam:
			kind = generics.GenericTemplateParam
		}
		out[i] = generics.GenericParam{
			Kind:    kind,
			Name:    p.Name,
			Pack:    p.Pack,
			Default: p.Default,
		}
	}
	return out
}

func reportRegErr(reporter diag.Reporter, span source.Span, err error) {
	diag.ReportError(reporter, diag.RegDuplicate, span, err.Error()).Emit()
}

// Instantiate serves one request of the form "name<arg, arg>". A class
// generic instantiates to its named type; anything else is treated as a
// fully explicit function instantiation.
func (res *Result) Instantiate(request string) (string, error) {
	te := ast.TypeExpr{Name: request}
	base, rawArgs, ok := te.GenericApplication()
	if !ok {
		return "", fmt.Errorf("bad instantiation request %q, expected name<args>", request)
	}
	args := make([]generics.Argument, len(rawArgs))
	for i, raw := range rawArgs {
		arg, err := res.resolveArgument(raw)
		if err != nil {
			return "", err
		}
		args[i] = arg
	}
	span := source.Span{File: res.FileID}

	in := res.Table.Interner()
	if res.hasClassGeneric(base) {
		id, ok := res.Engine.InstantiateClass(base, args, span)
		if !ok {
			return "", fmt.Errorf("instantiation of %s failed", request)
		}
		return in.String(id), nil
	}
	instID, ok := res.Engine.InstantiateFunctionExplicit(base, args, nil, false, span)
	if !ok {
		return "", fmt.Errorf("instantiation of %s failed", request)
	}
	return res.Engine.Cache().Decl(instID).Mangled, nil
}

func (res *Result) hasClassGeneric(name string) bool {
	for _, d := range res.Engine.Registry().LookupAll(name) {
		if d.Class != nil {
			return true
		}
	}
	return false
}

// resolveArgument turns one request argument spelling into a concrete
// Argument: an integer literal or a resolvable type spelling.
func (res *Result) resolveArgument(raw string) (generics.Argument, error) {
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return generics.ValueArg(v, res.Table.Interner().Builtins().Int), nil
	}
	file := source.File{Content: []byte(raw)}
	toks := lexer.New(&file, nil).ScanAll()
	sub := parser.New(lexer.NewStream(toks), res.Table, parser.Options{
		Reporter:       diag.NopReporter{},
		ResolveGeneric: res.Engine.ResolveClassType,
	})
	te, ok := sub.ParseTypeExpr()
	if !ok {
		return generics.Argument{}, fmt.Errorf("bad type spelling %q", raw)
	}
	id, ok := sub.ResolveTypeExpr(te)
	if !ok {
		return generics.Argument{}, fmt.Errorf("cannot resolve type %q", raw)
	}
	return generics.TypeArg(id), nil
}
