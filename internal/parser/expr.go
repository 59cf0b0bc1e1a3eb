package parser

import (
	"carbide/internal/ast"
	"carbide/internal/diag"
	"carbide/internal/token"
)

// binding powers, lowest first
var binaryPrec = map[token.Kind]int{
	token.PipePipe: 1,
	token.AmpAmp:   2,
	token.EqEq:     3,
	token.BangEq:   3,
	token.Lt:       4,
	token.LtEq:     4,
	token.Gt:       4,
	token.GtEq:     4,
	token.Plus:     5,
	token.Minus:    5,
	token.Star:     6,
	token.Slash:    6,
	token.Percent:  6,
}

// ParseExpr parses one expression with precedence climbing.
func (p *Parser) ParseExpr() (*ast.Expr, bool) {
	return p.parseBinary(1)
}

func (p *Parser) parseBinary(minPrec int) (*ast.Expr, bool) {
	lhs, ok := p.parseUnary()
	if !ok {
		return nil, false
	}
	for {
		prec, isOp := binaryPrec[p.s.Peek().Kind]
		if !isOp || prec < minPrec {
			return lhs, true
		}
		op := p.s.Next()
		rhs, ok := p.parseBinary(prec + 1)
		if !ok {
			return nil, false
		}
		lhs = &ast.Expr{
			Kind: ast.ExprBinary,
			Span: lhs.Span.Cover(rhs.Span),
			Text: op.Text,
			Args: []*ast.Expr{lhs, rhs},
		}
	}
}

func (p *Parser) parseUnary() (*ast.Expr, bool) {
	switch p.s.Peek().Kind {
	case token.Bang, token.Minus, token.Tilde:
		op := p.s.Next()
		operand, ok := p.parseUnary()
		if !ok {
			return nil, false
		}
		return &ast.Expr{
			Kind: ast.ExprUnary,
			Span: op.Span.Cover(operand.Span),
			Text: op.Text,
			Args: []*ast.Expr{operand},
		}, true
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() (*ast.Expr, bool) {
	e, ok := p.parsePrimary()
	if !ok {
		return nil, false
	}
	for {
		switch p.s.Peek().Kind {
		case token.Dot:
			p.s.Next()
			member, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected member name after '.'")
			if !ok {
				return nil, false
			}
			e = &ast.Expr{
				Kind: ast.ExprMember,
				Span: e.Span.Cover(member.Span),
				Text: member.Text,
				Args: []*ast.Expr{e},
			}
		case token.Ellipsis:
			ell := p.s.Next()
			e = &ast.Expr{
				Kind: ast.ExprPackExpand,
				Span: e.Span.Cover(ell.Span),
				Args: []*ast.Expr{e},
			}
		default:
			return e, true
		}
	}
}

func (p *Parser) parsePrimary() (*ast.Expr, bool) {
	t := p.s.Peek()
	switch t.Kind {
	case token.IntLit:
		p.s.Next()
		return &ast.Expr{Kind: ast.ExprIntLit, Span: t.Span, Text: t.Text}, true
	case token.KwTrue, token.KwFalse:
		p.s.Next()
		return &ast.Expr{Kind: ast.ExprBoolLit, Span: t.Span, Text: t.Text}, true
	case token.StringLit:
		p.s.Next()
		return &ast.Expr{Kind: ast.ExprStringLit, Span: t.Span, Text: t.Text}, true
	case token.KwSizeof:
		p.s.Next()
		if _, ok := p.expect(token.LParen, diag.SynUnexpectedToken, "expected '(' after sizeof"); !ok {
			return nil, false
		}
		te, ok := p.ParseTypeExpr()
		if !ok {
			return nil, false
		}
		end, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' after sizeof type")
		if !ok {
			return nil, false
		}
		return &ast.Expr{Kind: ast.ExprSizeof, Span: t.Span.Cover(end.Span), Text: te.String()}, true
	case token.LParen:
		p.s.Next()
		inner, ok := p.ParseExpr()
		if !ok {
			return nil, false
		}
		if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')'"); !ok {
			return nil, false
		}
		return inner, true
	case token.Ident:
		p.s.Next()
		if p.at(token.LParen) {
			return p.parseCallArgs(t)
		}
		return &ast.Expr{Kind: ast.ExprIdent, Span: t.Span, Text: t.Text}, true
	default:
		p.errorHere(diag.SynExpectExpression, "expected an expression")
		return nil, false
	}
}

func (p *Parser) parseCallArgs(callee token.Token) (*ast.Expr, bool) {
	p.s.Next() // '('
	call := &ast.Expr{Kind: ast.ExprCall, Span: callee.Span, Text: callee.Text}
	for !p.at(token.RParen) && !p.s.EOF() {
		arg, ok := p.ParseExpr()
		if !ok {
			return nil, false
		}
		call.Args = append(call.Args, arg)
		if _, ok := p.eat(token.Comma); !ok {
			break
		}
	}
	end, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' closing call")
	if !ok {
		return nil, false
	}
	call.Span = call.Span.Cover(end.Span)
	return call, true
}
