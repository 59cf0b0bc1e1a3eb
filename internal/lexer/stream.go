package lexer

import (
	"carbide/internal/source"
	"carbide/internal/token"
)

// Cursor is a position inside a token Stream. It is a plain index: cheap to
// copy, safe to hold across arbitrary stream movement, never invalidated.
type Cursor uint32

// Stream is the token sequence of one file with a movable cursor. Deferred
// generic bodies are re-entered by seeking back to a recorded Cursor, so the
// cursor must always be restored by whoever moved it.
type Stream struct {
	toks []token.Token
	pos  Cursor
}

// NewStream wraps an already-scanned token slice. The slice must end with EOF.
func NewStream(toks []token.Token) *Stream {
	if len(toks) == 0 || toks[len(toks)-1].Kind != token.EOF {
		toks = append(toks, token.Token{Kind: token.EOF})
	}
	return &Stream{toks: toks}
}

// Pos returns the current cursor.
func (s *Stream) Pos() Cursor { return s.pos }

// Seek moves the cursor. Out-of-range values clamp to EOF.
func (s *Stream) Seek(c Cursor) {
	if int(c) >= len(s.toks) {
		c = Cursor(len(s.toks) - 1)
	}
	s.pos = c
}

// Peek returns the current token without consuming it.
func (s *Stream) Peek() token.Token { return s.toks[s.pos] }

// PeekAt returns the token n positions ahead.
func (s *Stream) PeekAt(n uint32) token.Token {
	i := int(s.pos) + int(n)
	if i >= len(s.toks) {
		return s.toks[len(s.toks)-1]
	}
	return s.toks[i]
}

// Next consumes and returns the current token. EOF repeats forever.
func (s *Stream) Next() token.Token {
	t := s.toks[s.pos]
	if int(s.pos) < len(s.toks)-1 {
		s.pos++
	}
	return t
}

// EOF reports whether the cursor is at the end.
func (s *Stream) EOF() bool { return s.toks[s.pos].Kind == token.EOF }

// Span returns the span of the current token.
func (s *Stream) Span() source.Span { return s.toks[s.pos].Span }

// Len reports the total number of tokens including EOF.
func (s *Stream) Len() int { return len(s.toks) }
