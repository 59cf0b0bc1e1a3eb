package token

import (
	"carbide/internal/source"
)

// Token is a single scanned token with its location.
type Token struct {
	Kind Kind
	Span source.Span
	Text string
}

// IsKeyword reports whether the token is a language keyword.
func (t Token) IsKeyword() bool {
	return t.Kind >= KwTemplate && t.Kind <= KwSizeof
}

// IsBuiltinType reports whether the token starts a builtin type specifier.
func (t Token) IsBuiltinType() bool {
	switch t.Kind {
	case KwVoid, KwBool, KwChar, KwInt, KwUnsigned, KwLong, KwFloat, KwDouble:
		return true
	default:
		return false
	}
}

// IsLiteral reports whether the token is a literal.
func (t Token) IsLiteral() bool {
	switch t.Kind {
	case IntLit, CharLit, StringLit, KwTrue, KwFalse:
		return true
	default:
		return false
	}
}
