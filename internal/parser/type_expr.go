package parser

import (
	"strings"

	"carbide/internal/ast"
	"carbide/internal/diag"
	"carbide/internal/token"
	"carbide/internal/types"
)

// ParseTypeExpr parses one formal type specifier at the cursor:
//
//	cv* base ('*' cv*)* ('&' | '&&')? '...'?
//	base = builtin | Ident ['<' args '>'] ('::' Ident)*
//
// The base of a generic application is kept as its source spelling
// ("Box<T>"), which the substitution engine rewrites textually.
func (p *Parser) ParseTypeExpr() (ast.TypeExpr, bool) {
	te := ast.TypeExpr{Span: p.s.Span()}

	for {
		if _, ok := p.eat(token.KwConst); ok {
			te.CV |= types.CVConst
			continue
		}
		if _, ok := p.eat(token.KwVolatile); ok {
			te.CV |= types.CVVolatile
			continue
		}
		break
	}

	switch {
	case p.s.Peek().IsBuiltinType():
		te.Name = p.s.Next().Text
	case p.at(token.Ident):
		name := p.s.Next().Text
		if p.at(token.Lt) {
			raw, ok := p.captureAngles()
			if !ok {
				p.errorHere(diag.SynUnclosedDelimiter, "unclosed '<' in type")
				return ast.TypeExpr{}, false
			}
			name += "<" + raw + ">"
		}
		for p.at(token.ColonColon) {
			p.s.Next()
			member, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected member name after '::'")
			if !ok {
				return ast.TypeExpr{}, false
			}
			name += "::" + member.Text
		}
		te.Name = name
	default:
		p.errorHere(diag.SynExpectType, "expected a type")
		return ast.TypeExpr{}, false
	}

	for p.at(token.Star) {
		p.s.Next()
		te.PtrDepth++
		for {
			if _, ok := p.eat(token.KwConst); ok {
				te.CV |= types.CVConst
				continue
			}
			if _, ok := p.eat(token.KwVolatile); ok {
				te.CV |= types.CVVolatile
				continue
			}
			break
		}
	}

	if _, ok := p.eat(token.AmpAmp); ok {
		te.Ref = types.RefRValue
	} else if _, ok := p.eat(token.Amp); ok {
		te.Ref = types.RefLValue
	}

	if _, ok := p.eat(token.Ellipsis); ok {
		te.Pack = true
	}

	te.Span = te.Span.Cover(p.s.Span())
	return te, true
}

// captureAngles consumes a balanced '<...>' region (cursor on '<') and
// returns the source spelling between the brackets. A '>>' token closes two
// levels, leaving one '>' in the captured text when it splits the boundary.
func (p *Parser) captureAngles() (string, bool) {
	p.s.Next() // '<'
	depth := 1
	var b strings.Builder
	for !p.s.EOF() {
		t := p.s.Peek()
		switch t.Kind {
		case token.Lt:
			depth++
		case token.Gt:
			depth--
			if depth == 0 {
				p.s.Next()
				return b.String(), true
			}
		case token.Shr:
			if depth == 1 {
				// cannot split a token: treat as malformed
				return "", false
			}
			depth -= 2
			p.s.Next()
			if depth == 0 {
				return b.String() + ">", true
			}
			b.WriteString(">>")
			continue
		case token.Comma:
			p.s.Next()
			b.WriteString(", ")
			continue
		}
		p.s.Next()
		if b.Len() > 0 && endsWithWord(b.String()) && startsWithWord(t.Text) {
			b.WriteByte(' ')
		}
		b.WriteString(t.Text)
	}
	return "", false
}

func endsWithWord(s string) bool {
	if s == "" {
		return false
	}
	c := s[len(s)-1]
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func startsWithWord(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
