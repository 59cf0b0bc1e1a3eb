package parser

import (
	"carbide/internal/ast"
	"carbide/internal/diag"
	"carbide/internal/lexer"
	"carbide/internal/source"
	"carbide/internal/token"
	"carbide/internal/types"
)

// Re-entrant entry points. The instantiation engine seeks the stream to a
// recorded body cursor, installs trial bindings in the type table, and calls
// back in here. Everything below resolves types against the live table, so a
// parameter name inside the body resolves to its concrete binding exactly as
// if the body had been written concretely.

// ReparseTypeSpecifier parses a type at the cursor and resolves it to a
// concrete type. A false result is a soft failure: the caller treats it as
// an SFINAE rejection, not a hard error.
func (p *Parser) ReparseTypeSpecifier() (types.TypeID, bool) {
	te, ok := p.ParseTypeExpr()
	if !ok {
		return types.NoTypeID, false
	}
	return p.ResolveTypeExpr(te)
}

// ReparseDeclarationOrBlock re-runs the block parser at the cursor with full
// type resolution. Used for deferred generic bodies.
func (p *Parser) ReparseDeclarationOrBlock() (*ast.Expr, bool) {
	return p.parseBlock(true)
}

// parseBlockTree parses a block without resolving types (eager bodies at
// primary-definition time, before any binding exists).
func (p *Parser) parseBlockTree() (*ast.Expr, bool) {
	return p.parseBlock(false)
}

func (p *Parser) parseBlock(resolve bool) (*ast.Expr, bool) {
	open, ok := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{'")
	if !ok {
		return nil, false
	}
	block := &ast.Expr{Kind: ast.ExprBlock, Span: open.Span}
	for !p.at(token.RBrace) && !p.s.EOF() {
		stmt, ok := p.parseStatement(resolve)
		if !ok {
			return nil, false
		}
		block.Args = append(block.Args, stmt)
	}
	end, ok := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}' closing block")
	if !ok {
		return nil, false
	}
	block.Span = block.Span.Cover(end.Span)
	return block, true
}

func (p *Parser) parseStatement(resolve bool) (*ast.Expr, bool) {
	switch {
	case p.at(token.KwReturn):
		ret := p.s.Next()
		node := &ast.Expr{Kind: ast.ExprReturn, Span: ret.Span}
		if !p.at(token.Semicolon) {
			val, ok := p.ParseExpr()
			if !ok {
				return nil, false
			}
			node.Args = append(node.Args, val)
			node.Span = node.Span.Cover(val.Span)
		}
		if _, ok := p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected ';' after return"); !ok {
			return nil, false
		}
		return node, true

	case p.at(token.KwIf):
		start := p.s.Next()
		if _, ok := p.expect(token.LParen, diag.SynUnexpectedToken, "expected '(' after if"); !ok {
			return nil, false
		}
		cond, ok := p.ParseExpr()
		if !ok {
			return nil, false
		}
		if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' after condition"); !ok {
			return nil, false
		}
		then, ok := p.parseBlock(resolve)
		if !ok {
			return nil, false
		}
		node := &ast.Expr{Kind: ast.ExprIf, Span: start.Span.Cover(then.Span), Args: []*ast.Expr{cond, then}}
		if _, ok := p.eat(token.KwElse); ok {
			els, ok := p.parseBlock(resolve)
			if !ok {
				return nil, false
			}
			node.Args = append(node.Args, els)
			node.Span = node.Span.Cover(els.Span)
		}
		return node, true

	case p.looksLikeDeclaration():
		return p.parseVarDecl(resolve)

	default:
		e, ok := p.ParseExpr()
		if !ok {
			return nil, false
		}
		if _, ok := p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected ';' after expression"); !ok {
			return nil, false
		}
		return e, true
	}
}

// looksLikeDeclaration decides between "T x = ..." and an expression
// statement without consuming tokens.
func (p *Parser) looksLikeDeclaration() bool {
	t := p.s.Peek()
	if t.IsBuiltinType() || t.Kind == token.KwConst || t.Kind == token.KwVolatile {
		return true
	}
	if t.Kind != token.Ident {
		return false
	}
	switch p.s.PeekAt(1).Kind {
	case token.Ident, token.ColonColon:
		return true
	case token.Star, token.Amp, token.AmpAmp:
		// "T* x" / "T& x": declaration when an identifier follows
		return p.s.PeekAt(2).Kind == token.Ident
	case token.Lt:
		// "Box<...> x" - scan past the closing angle
		depth := 0
		for i := uint32(1); ; i++ {
			switch p.s.PeekAt(i).Kind {
			case token.Lt:
				depth++
			case token.Shr:
				depth -= 2
				if depth <= 0 {
					return p.s.PeekAt(i+1).Kind == token.Ident
				}
			case token.Gt:
				depth--
				if depth == 0 {
					return p.s.PeekAt(i+1).Kind == token.Ident
				}
			case token.EOF, token.Semicolon, token.LBrace:
				return false
			}
		}
	default:
		return false
	}
}

func (p *Parser) parseVarDecl(resolve bool) (*ast.Expr, bool) {
	te, ok := p.ParseTypeExpr()
	if !ok {
		return nil, false
	}
	if resolve {
		if _, ok := p.ResolveTypeExpr(te); !ok {
			p.errorHere(diag.SynExpectType, "cannot resolve type "+te.String())
			return nil, false
		}
	}
	name, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected variable name")
	if !ok {
		return nil, false
	}
	node := &ast.Expr{
		Kind: ast.ExprVarDecl,
		Span: te.Span.Cover(name.Span),
		Text: name.Text,
		Args: []*ast.Expr{{Kind: ast.ExprIdent, Span: te.Span, Text: te.String()}},
	}
	if _, ok := p.eat(token.Assign); ok {
		init, ok := p.ParseExpr()
		if !ok {
			return nil, false
		}
		node.Args = append(node.Args, init)
		node.Span = node.Span.Cover(init.Span)
	}
	if _, ok := p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected ';' after declaration"); !ok {
		return nil, false
	}
	return node, true
}

// ResolveTypeExpr resolves a formal type against the live type table:
// dependent members via registered aliases, generic applications via the
// wired instantiation callback, plain names via lookup. Declarator layers
// are applied on top, with reference collapsing.
func (p *Parser) ResolveTypeExpr(te ast.TypeExpr) (types.TypeID, bool) {
	baseID, ok := p.resolveBaseName(te)
	if !ok {
		return types.NoTypeID, false
	}
	in := p.table.Interner()
	base, ok := in.Lookup(baseID)
	if !ok {
		return types.NoTypeID, false
	}
	out := base
	out.PtrDepth += te.PtrDepth
	out.CV |= te.CV
	out.Ref = types.Collapse(base.Ref, te.Ref)
	return in.Intern(out), true
}

func (p *Parser) resolveBaseName(te ast.TypeExpr) (types.TypeID, bool) {
	if base, member, ok := te.DependentBase(); ok {
		ownerID, resolved := p.resolveSpelling(base)
		if !resolved {
			return types.NoTypeID, false
		}
		return p.table.LookupMemberAlias(ownerID, member)
	}
	if base, args, ok := te.GenericApplication(); ok {
		if p.opts.ResolveGeneric == nil {
			return types.NoTypeID, false
		}
		concrete := make([]types.TypeID, len(args))
		for i, arg := range args {
			id, ok := p.resolveSpelling(arg)
			if !ok {
				return types.NoTypeID, false
			}
			concrete[i] = id
		}
		return p.opts.ResolveGeneric(base, concrete)
	}
	return p.table.LookupTypeByName(te.Name)
}

// resolveSpelling resolves a raw type spelling (possibly with declarators)
// by scanning and parsing it as a standalone type.
func (p *Parser) resolveSpelling(s string) (types.TypeID, bool) {
	if id, ok := p.table.LookupTypeByName(s); ok {
		return id, true
	}
	file := source.File{Content: []byte(s)}
	toks := lexer.New(&file, nil).ScanAll()
	sub := New(lexer.NewStream(toks), p.table, Options{
		Reporter:       diag.NopReporter{},
		ResolveGeneric: p.opts.ResolveGeneric,
	})
	te, ok := sub.ParseTypeExpr()
	if !ok || !sub.s.EOF() {
		return types.NoTypeID, false
	}
	return sub.ResolveTypeExpr(te)
}
