package lexer

import (
	"testing"

	"carbide/internal/source"
	"carbide/internal/token"
)

func scan(t *testing.T, src string) []token.Token {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.cb", []byte(src))
	return New(fs.Get(id), nil).ScanAll()
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestScanTemplateHeader(t *testing.T) {
	toks := scan(t, "template<typename T> T identity(T&& x);")
	want := []token.Kind{
		token.KwTemplate, token.Lt, token.KwTypename, token.Ident, token.Gt,
		token.Ident, token.Ident, token.LParen, token.Ident, token.AmpAmp,
		token.Ident, token.RParen, token.Semicolon, token.EOF,
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("token count: got %d want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestScanEllipsisAndScope(t *testing.T) {
	toks := scan(t, "Args... T::value_type")
	if toks[1].Kind != token.Ellipsis {
		t.Fatalf("expected ellipsis, got %v", toks[1].Kind)
	}
	if toks[3].Kind != token.ColonColon {
		t.Fatalf("expected ::, got %v", toks[3].Kind)
	}
}

func TestScanSkipsComments(t *testing.T) {
	toks := scan(t, "int /* block */ x // line\n;")
	want := []token.Kind{token.KwInt, token.Ident, token.Semicolon, token.EOF}
	got := kinds(toks)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestStreamSeekRestores(t *testing.T) {
	toks := scan(t, "a b c d")
	s := NewStream(toks)
	s.Next()
	mark := s.Pos()
	s.Next()
	s.Next()
	s.Seek(mark)
	if s.Peek().Text != "b" {
		t.Fatalf("seek did not restore position, at %q", s.Peek().Text)
	}
}

func TestStreamEOFSticky(t *testing.T) {
	s := NewStream(scan(t, "x"))
	for i := 0; i < 10; i++ {
		s.Next()
	}
	if !s.EOF() {
		t.Fatalf("stream must stick at EOF")
	}
}
