package lexer

import (
	"carbide/internal/diag"
	"carbide/internal/source"
	"carbide/internal/token"
)

// Lexer scans one source file into tokens.
type Lexer struct {
	file     *source.File
	off      uint32
	reporter diag.Reporter
}

// New creates a lexer over file. The reporter may be nil.
func New(file *source.File, reporter diag.Reporter) *Lexer {
	return &Lexer{file: file, reporter: reporter}
}

// ScanAll tokenizes the whole file, always ending with an EOF token.
func (lx *Lexer) ScanAll() []token.Token {
	var toks []token.Token
	for {
		t := lx.next()
		toks = append(toks, t)
		if t.Kind == token.EOF {
			return toks
		}
	}
}

func (lx *Lexer) next() token.Token {
	lx.skipTrivia()
	if lx.eof() {
		return token.Token{Kind: token.EOF, Span: lx.span(lx.off)}
	}
	ch := lx.peek()
	switch {
	case isIdentStart(ch):
		return lx.scanIdentOrKeyword()
	case isDigit(ch):
		return lx.scanNumber()
	case ch == '"':
		return lx.scanString()
	case ch == '\'':
		return lx.scanChar()
	default:
		return lx.scanOperator()
	}
}

func (lx *Lexer) eof() bool { return int(lx.off) >= len(lx.file.Content) }

func (lx *Lexer) peek() byte { return lx.file.Content[lx.off] }

func (lx *Lexer) peekAt(n uint32) byte {
	if int(lx.off+n) >= len(lx.file.Content) {
		return 0
	}
	return lx.file.Content[lx.off+n]
}

func (lx *Lexer) span(start uint32) source.Span {
	return source.Span{File: lx.file.ID, Start: start, End: lx.off}
}

func (lx *Lexer) text(start uint32) string {
	return string(lx.file.Content[start:lx.off])
}

func (lx *Lexer) skipTrivia() {
	for !lx.eof() {
		ch := lx.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			lx.off++
		case ch == '/' && lx.peekAt(1) == '/':
			for !lx.eof() && lx.peek() != '\n' {
				lx.off++
			}
		case ch == '/' && lx.peekAt(1) == '*':
			start := lx.off
			lx.off += 2
			closed := false
			for !lx.eof() {
				if lx.peek() == '*' && lx.peekAt(1) == '/' {
					lx.off += 2
					closed = true
					break
				}
				lx.off++
			}
			if !closed && lx.reporter != nil {
				diag.ReportError(lx.reporter, diag.LexUnterminatedComment, lx.span(start),
					"unterminated block comment").Emit()
			}
		default:
			return
		}
	}
}

func (lx *Lexer) scanIdentOrKeyword() token.Token {
	start := lx.off
	for !lx.eof() && isIdentContinue(lx.peek()) {
		lx.off++
	}
	text := lx.text(start)
	kind := token.Ident
	if kw, ok := token.LookupKeyword(text); ok {
		kind = kw
	}
	return token.Token{Kind: kind, Span: lx.span(start), Text: text}
}

func (lx *Lexer) scanNumber() token.Token {
	start := lx.off
	for !lx.eof() && (isDigit(lx.peek()) || lx.peek() == '\'') {
		lx.off++
	}
	return token.Token{Kind: token.IntLit, Span: lx.span(start), Text: lx.text(start)}
}

func (lx *Lexer) scanString() token.Token {
	start := lx.off
	lx.off++ // opening quote
	for !lx.eof() && lx.peek() != '"' && lx.peek() != '\n' {
		if lx.peek() == '\\' {
			lx.off++
		}
		lx.off++
	}
	if lx.eof() || lx.peek() != '"' {
		if lx.reporter != nil {
			diag.ReportError(lx.reporter, diag.LexUnterminatedString, lx.span(start),
				"unterminated string literal").Emit()
		}
		return token.Token{Kind: token.Invalid, Span: lx.span(start), Text: lx.text(start)}
	}
	lx.off++ // closing quote
	return token.Token{Kind: token.StringLit, Span: lx.span(start), Text: lx.text(start)}
}

func (lx *Lexer) scanChar() token.Token {
	start := lx.off
	lx.off++
	for !lx.eof() && lx.peek() != '\'' && lx.peek() != '\n' {
		if lx.peek() == '\\' {
			lx.off++
		}
		lx.off++
	}
	if !lx.eof() && lx.peek() == '\'' {
		lx.off++
	}
	return token.Token{Kind: token.CharLit, Span: lx.span(start), Text: lx.text(start)}
}

// twoByteOps maps two-character operators checked before single ones.
var twoByteOps = map[string]token.Kind{
	"<=": token.LtEq,
	">=": token.GtEq,
	"<<": token.Shl,
	">>": token.Shr,
	"&&": token.AmpAmp,
	"||": token.PipePipe,
	"==": token.EqEq,
	"!=": token.BangEq,
	"::": token.ColonColon,
	"->": token.Arrow,
}

var oneByteOps = map[byte]token.Kind{
	'(': token.LParen,
	')': token.RParen,
	'{': token.LBrace,
	'}': token.RBrace,
	'[': token.LBracket,
	']': token.RBracket,
	'<': token.Lt,
	'>': token.Gt,
	'&': token.Amp,
	'|': token.Pipe,
	'*': token.Star,
	'+': token.Plus,
	'-': token.Minus,
	'/': token.Slash,
	'%': token.Percent,
	'!': token.Bang,
	'~': token.Tilde,
	'=': token.Assign,
	',': token.Comma,
	';': token.Semicolon,
	':': token.Colon,
	'.': token.Dot,
	'?': token.Question,
}

func (lx *Lexer) scanOperator() token.Token {
	start := lx.off
	if lx.peek() == '.' && lx.peekAt(1) == '.' && lx.peekAt(2) == '.' {
		lx.off += 3
		return token.Token{Kind: token.Ellipsis, Span: lx.span(start), Text: "..."}
	}
	if int(lx.off)+1 < len(lx.file.Content) {
		two := string(lx.file.Content[lx.off : lx.off+2])
		if kind, ok := twoByteOps[two]; ok {
			lx.off += 2
			return token.Token{Kind: kind, Span: lx.span(start), Text: two}
		}
	}
	ch := lx.peek()
	lx.off++
	if kind, ok := oneByteOps[ch]; ok {
		return token.Token{Kind: kind, Span: lx.span(start), Text: string(ch)}
	}
	if lx.reporter != nil {
		diag.ReportError(lx.reporter, diag.LexUnknownChar, lx.span(start),
			"unknown character "+string(ch)).Emit()
	}
	return token.Token{Kind: token.Invalid, Span: lx.span(start), Text: string(ch)}
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentContinue(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }
