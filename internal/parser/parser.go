package parser

import (
	"carbide/internal/ast"
	"carbide/internal/diag"
	"carbide/internal/lexer"
	"carbide/internal/symbols"
	"carbide/internal/token"
	"carbide/internal/types"
)

// ResolveGenericFunc instantiates a class generic for a spelled application
// like Box<int> encountered while resolving a type. Wired by the driver to
// the instantiation engine; nil disables nested instantiation.
type ResolveGenericFunc func(base string, args []types.TypeID) (types.TypeID, bool)

// Options configures one Parser.
type Options struct {
	MaxErrors      uint
	EagerBodies    bool // also build expression trees for template bodies
	Reporter       diag.Reporter
	ResolveGeneric ResolveGenericFunc
}

// Parser is the recursive-descent parser over one token stream. The same
// parser instance is re-entered at saved cursors during deferred-body
// resolution, so it keeps no per-item state beyond the stream position.
type Parser struct {
	s     *lexer.Stream
	table *symbols.Table
	opts  Options
	errs  uint
	quiet uint
}

// New constructs a parser over an already-scanned stream.
func New(s *lexer.Stream, table *symbols.Table, opts Options) *Parser {
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	return &Parser{s: s, table: table, opts: opts}
}

// Stream exposes the underlying token stream for cursor save/restore.
func (p *Parser) Stream() *lexer.Stream { return p.s }

// Table exposes the type lookup table the parser resolves against.
func (p *Parser) Table() *symbols.Table { return p.table }

func (p *Parser) at(k token.Kind) bool { return p.s.Peek().Kind == k }

func (p *Parser) eat(k token.Kind) (token.Token, bool) {
	if p.at(k) {
		return p.s.Next(), true
	}
	return token.Token{}, false
}

func (p *Parser) expect(k token.Kind, code diag.Code, msg string) (token.Token, bool) {
	if t, ok := p.eat(k); ok {
		return t, true
	}
	p.errorHere(code, msg)
	return token.Token{}, false
}

func (p *Parser) errorHere(code diag.Code, msg string) {
	if p.quiet > 0 {
		return
	}
	p.errs++
	if p.opts.MaxErrors != 0 && p.errs > p.opts.MaxErrors {
		return
	}
	diag.ReportError(p.opts.Reporter, code, p.s.Span(), msg).Emit()
}

// ErrorCount reports how many syntax errors have been raised so far.
func (p *Parser) ErrorCount() uint { return p.errs }

// BeginQuiet suppresses diagnostics and error counting until the matching
// EndQuiet. Calls nest. A trial re-parse under substituted bindings runs
// quiet: its failures reject a candidate, they never reach the user.
func (p *Parser) BeginQuiet() { p.quiet++ }

// EndQuiet undoes one BeginQuiet.
func (p *Parser) EndQuiet() {
	if p.quiet > 0 {
		p.quiet--
	}
}

// ParseFile parses every top-level item until EOF.
func (p *Parser) ParseFile() []Item {
	var items []Item
	for !p.s.EOF() {
		before := p.s.Pos()
		item, ok := p.parseItem()
		if ok {
			items = append(items, item)
		}
		if p.s.Pos() == before {
			// no progress: skip one token to avoid spinning
			p.s.Next()
		}
	}
	return items
}

func (p *Parser) parseItem() (Item, bool) {
	switch {
	case p.at(token.KwTemplate):
		return p.parseTemplateItem()
	case p.at(token.Ident) && p.looksLikeDeductionGuide():
		return p.parseDeductionGuide()
	default:
		p.errorHere(diag.SynUnexpectedTopLevel,
			"expected a template declaration or deduction guide")
		p.skipToSemicolon()
		return Item{}, false
	}
}

// looksLikeDeductionGuide checks for "Ident ( ... ) ->" ahead without
// consuming anything.
func (p *Parser) looksLikeDeductionGuide() bool {
	if p.s.PeekAt(1).Kind != token.LParen {
		return false
	}
	depth := 0
	for i := uint32(1); ; i++ {
		t := p.s.PeekAt(i)
		switch t.Kind {
		case token.LParen:
			depth++
		case token.RParen:
			depth--
			if depth == 0 {
				return p.s.PeekAt(i+1).Kind == token.Arrow
			}
		case token.EOF, token.Semicolon, token.LBrace:
			return false
		}
	}
}

func (p *Parser) parseTemplateItem() (Item, bool) {
	start := p.s.Span()
	p.s.Next() // template
	params, ok := p.parseTemplateParams()
	if !ok {
		p.skipToSemicolon()
		return Item{}, false
	}

	item := Item{Params: params, Span: start}

	if p.at(token.KwRequires) {
		p.s.Next()
		req, ok := p.ParseExpr()
		if !ok {
			p.skipToSemicolon()
			return Item{}, false
		}
		item.Requires = req
	}

	switch {
	case p.at(token.KwUsing):
		return p.parseAliasTemplate(item)
	case p.at(token.KwStruct) || p.at(token.KwClass):
		return p.parseClassTemplate(item)
	default:
		return p.parseFunctionTemplate(item)
	}
}

// parseTemplateParams parses "< param, param >". An empty "<>" list marks an
// explicit specialization header.
func (p *Parser) parseTemplateParams() ([]TemplateParam, bool) {
	if _, ok := p.expect(token.Lt, diag.SynBadTemplateHeader, "expected '<' after template"); !ok {
		return nil, false
	}
	params := []TemplateParam{}
	if p.at(token.Gt) {
		p.s.Next()
		return params, true
	}
	for {
		param, ok := p.parseTemplateParam()
		if !ok {
			return nil, false
		}
		params = append(params, param)
		if _, ok := p.eat(token.Comma); ok {
			continue
		}
		break
	}
	if _, ok := p.expect(token.Gt, diag.SynBadTemplateHeader, "expected '>' closing template parameters"); !ok {
		return nil, false
	}
	// only a trailing parameter may be a pack
	for i, param := range params {
		if param.Pack && i != len(params)-1 {
			p.errorHere(diag.SynPackNotLast, "parameter pack must be the last template parameter")
			return nil, false
		}
	}
	return params, true
}

func (p *Parser) parseTemplateParam() (TemplateParam, bool) {
	span := p.s.Span()
	switch {
	case p.at(token.KwTypename) || p.at(token.KwClass):
		p.s.Next()
		param := TemplateParam{Kind: TypeParam, Span: span}
		if _, ok := p.eat(token.Ellipsis); ok {
			param.Pack = true
		}
		name, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected template parameter name")
		if !ok {
			return TemplateParam{}, false
		}
		param.Name = name.Text
		if _, ok := p.eat(token.Assign); ok {
			def, ok := p.ParseTypeExpr()
			if !ok {
				return TemplateParam{}, false
			}
			param.Default = &def
		}
		return param, true

	case p.at(token.KwTemplate):
		// template<...> typename TT
		p.s.Next()
		if _, ok := p.expect(token.Lt, diag.SynBadTemplateHeader, "expected '<' in template template parameter"); !ok {
			return TemplateParam{}, false
		}
		if !p.skipBalancedAngles() {
			p.errorHere(diag.SynUnclosedDelimiter, "unclosed template template parameter list")
			return TemplateParam{}, false
		}
		if !p.at(token.KwTypename) && !p.at(token.KwClass) {
			p.errorHere(diag.SynBadTemplateHeader, "expected typename after template template parameter list")
			return TemplateParam{}, false
		}
		p.s.Next()
		name, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected template template parameter name")
		if !ok {
			return TemplateParam{}, false
		}
		return TemplateParam{Kind: TemplateTemplateParam, Name: name.Text, Span: span}, true

	case p.s.Peek().IsBuiltinType():
		// non-type parameter: int N
		p.s.Next()
		param := TemplateParam{Kind: NonTypeParam, Span: span}
		if _, ok := p.eat(token.Ellipsis); ok {
			param.Pack = true
		}
		name, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected non-type parameter name")
		if !ok {
			return TemplateParam{}, false
		}
		param.Name = name.Text
		return param, true

	default:
		p.errorHere(diag.SynBadTemplateHeader, "expected typename, class, or a non-type parameter")
		return TemplateParam{}, false
	}
}

// skipBalancedAngles consumes tokens until the matching '>' (the opening '<'
// already consumed). A '>>' token closes two levels.
func (p *Parser) skipBalancedAngles() bool {
	depth := 1
	for !p.s.EOF() {
		switch p.s.Next().Kind {
		case token.Lt:
			depth++
		case token.Gt:
			depth--
			if depth == 0 {
				return true
			}
		case token.Shr:
			depth -= 2
			if depth <= 0 {
				return depth == 0
			}
		}
	}
	return false
}

func (p *Parser) parseAliasTemplate(item Item) (Item, bool) {
	p.s.Next() // using
	name, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected alias name")
	if !ok {
		p.skipToSemicolon()
		return Item{}, false
	}
	if _, ok := p.expect(token.Assign, diag.SynUnexpectedToken, "expected '=' in alias template"); !ok {
		p.skipToSemicolon()
		return Item{}, false
	}
	target, ok := p.ParseTypeExpr()
	if !ok {
		p.skipToSemicolon()
		return Item{}, false
	}
	p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected ';' after alias template")
	item.Kind = ItemAliasTemplate
	item.AliasName = name.Text
	item.AliasTarget = target
	return item, true
}

func (p *Parser) parseClassTemplate(item Item) (Item, bool) {
	p.s.Next() // struct / class
	name, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected class name")
	if !ok {
		p.skipToSemicolon()
		return Item{}, false
	}

	// Name<args> after an empty or partial header is a class specialization.
	if p.at(token.Lt) {
		specArgs, ok := p.parseSpecializationArgs()
		if !ok {
			p.skipToSemicolon()
			return Item{}, false
		}
		item.SpecName = name.Text
		item.SpecArgs = specArgs
		item.Kind = ItemSpecialization
	} else {
		item.Kind = ItemTemplateClass
	}

	class := &ast.ClassDecl{Name: name.Text, Span: item.Span}
	if _, ok := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{' in class body"); !ok {
		p.skipToSemicolon()
		return Item{}, false
	}
	for !p.at(token.RBrace) && !p.s.EOF() {
		if p.at(token.KwUsing) {
			p.s.Next()
			aliasName, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected member alias name")
			if !ok {
				p.skipToSemicolon()
				continue
			}
			if _, ok := p.expect(token.Assign, diag.SynUnexpectedToken, "expected '=' in member alias"); !ok {
				p.skipToSemicolon()
				continue
			}
			target, ok := p.ParseTypeExpr()
			if !ok {
				p.skipToSemicolon()
				continue
			}
			p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected ';' after member alias")
			class.Aliases = append(class.Aliases, ast.AliasMember{Name: aliasName.Text, Target: target})
			continue
		}
		fieldType, ok := p.ParseTypeExpr()
		if !ok {
			p.skipToSemicolon()
			continue
		}
		fieldName, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected field name")
		if !ok {
			p.skipToSemicolon()
			continue
		}
		p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected ';' after field")
		class.Fields = append(class.Fields, ast.Field{Name: fieldName.Text, Type: fieldType})
	}
	p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}' closing class body")
	p.eat(token.Semicolon)

	item.Class = class
	if item.Kind == ItemSpecialization {
		item.Class.Name = item.SpecName
	}
	return item, true
}

func (p *Parser) parseFunctionTemplate(item Item) (Item, bool) {
	ret, ok := p.ParseTypeExpr()
	if !ok {
		p.skipToSemicolon()
		return Item{}, false
	}
	name, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected function name")
	if !ok {
		p.skipToSemicolon()
		return Item{}, false
	}

	// name<args> marks a function specialization
	if p.at(token.Lt) {
		specArgs, ok := p.parseSpecializationArgs()
		if !ok {
			p.skipToSemicolon()
			return Item{}, false
		}
		item.Kind = ItemSpecialization
		item.SpecName = name.Text
		item.SpecArgs = specArgs
	} else {
		item.Kind = ItemTemplateFunc
	}

	fn := &ast.FuncDecl{Name: name.Text, Ret: ret, Span: item.Span}
	if _, ok := p.expect(token.LParen, diag.SynUnexpectedToken, "expected '(' in function declaration"); !ok {
		p.skipToSemicolon()
		return Item{}, false
	}
	for !p.at(token.RParen) && !p.s.EOF() {
		paramType, ok := p.ParseTypeExpr()
		if !ok {
			p.skipToSemicolon()
			return Item{}, false
		}
		param := ast.Param{Type: paramType}
		if t, ok := p.eat(token.Ident); ok {
			param.Name = t.Text
		}
		if _, ok := p.eat(token.Assign); ok {
			def, ok := p.ParseExpr()
			if !ok {
				p.skipToSemicolon()
				return Item{}, false
			}
			param.Default = def
		}
		fn.Params = append(fn.Params, param)
		if _, ok := p.eat(token.Comma); !ok {
			break
		}
	}
	if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' closing parameters"); !ok {
		p.skipToSemicolon()
		return Item{}, false
	}

	// trailing requires-clause binds tighter than the leading one
	if p.at(token.KwRequires) {
		p.s.Next()
		req, ok := p.ParseExpr()
		if !ok {
			p.skipToSemicolon()
			return Item{}, false
		}
		item.Requires = req
	}

	item.Fn = fn
	if p.at(token.LBrace) {
		item.HasBody = true
		item.BodyCursor = p.s.Pos()
		if p.opts.EagerBodies {
			save := p.s.Pos()
			if body, ok := p.parseBlockTree(); ok {
				item.EagerBody = body
			}
			p.s.Seek(save)
		}
		if !p.skipBalancedBraces() {
			p.errorHere(diag.SynUnclosedDelimiter, "unclosed function body")
			return Item{}, false
		}
	} else {
		p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected ';' or function body")
	}
	return item, true
}

// parseSpecializationArgs parses "<type, type>" after a specialized name.
func (p *Parser) parseSpecializationArgs() ([]ast.TypeExpr, bool) {
	p.s.Next() // '<'
	var args []ast.TypeExpr
	for {
		arg, ok := p.ParseTypeExpr()
		if !ok {
			return nil, false
		}
		args = append(args, arg)
		if _, ok := p.eat(token.Comma); ok {
			continue
		}
		break
	}
	if _, ok := p.expect(token.Gt, diag.SynUnclosedDelimiter, "expected '>' closing specialization arguments"); !ok {
		return nil, false
	}
	return args, true
}

func (p *Parser) parseDeductionGuide() (Item, bool) {
	start := p.s.Span()
	name := p.s.Next() // class name
	p.s.Next()         // '('
	var guideParams []ast.TypeExpr
	for !p.at(token.RParen) && !p.s.EOF() {
		gp, ok := p.ParseTypeExpr()
		if !ok {
			p.skipToSemicolon()
			return Item{}, false
		}
		p.eat(token.Ident) // optional parameter name
		guideParams = append(guideParams, gp)
		if _, ok := p.eat(token.Comma); !ok {
			break
		}
	}
	if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' in deduction guide"); !ok {
		p.skipToSemicolon()
		return Item{}, false
	}
	if _, ok := p.expect(token.Arrow, diag.SynBadDeductionGuide, "expected '->' in deduction guide"); !ok {
		p.skipToSemicolon()
		return Item{}, false
	}
	target, ok := p.expect(token.Ident, diag.SynBadDeductionGuide, "expected class name after '->'")
	if !ok {
		p.skipToSemicolon()
		return Item{}, false
	}
	if target.Text != name.Text {
		p.errorHere(diag.SynBadDeductionGuide, "deduction guide target must match the class name")
		p.skipToSemicolon()
		return Item{}, false
	}
	if _, ok := p.expect(token.Lt, diag.SynBadDeductionGuide, "expected '<' after deduction guide target"); !ok {
		p.skipToSemicolon()
		return Item{}, false
	}
	var guideArgs []ast.TypeExpr
	for {
		arg, ok := p.ParseTypeExpr()
		if !ok {
			p.skipToSemicolon()
			return Item{}, false
		}
		guideArgs = append(guideArgs, arg)
		if _, ok := p.eat(token.Comma); ok {
			continue
		}
		break
	}
	if _, ok := p.expect(token.Gt, diag.SynUnclosedDelimiter, "expected '>' closing deduction guide arguments"); !ok {
		p.skipToSemicolon()
		return Item{}, false
	}
	p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected ';' after deduction guide")
	return Item{
		Kind:        ItemDeductionGuide,
		Span:        start.Cover(p.s.Span()),
		GuideName:   name.Text,
		GuideParams: guideParams,
		GuideArgs:   guideArgs,
	}, true
}

// skipBalancedBraces consumes a brace-balanced region starting at '{'.
func (p *Parser) skipBalancedBraces() bool {
	if !p.at(token.LBrace) {
		return false
	}
	depth := 0
	for !p.s.EOF() {
		switch p.s.Next().Kind {
		case token.LBrace:
			depth++
		case token.RBrace:
			depth--
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

func (p *Parser) skipToSemicolon() {
	for !p.s.EOF() {
		if p.s.Next().Kind == token.Semicolon {
			return
		}
	}
}
