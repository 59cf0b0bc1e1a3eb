package token

// Kind enumerates every token the scanner can produce.
type Kind uint8

const (
	EOF Kind = iota
	Invalid

	Ident
	IntLit
	CharLit
	StringLit

	// keywords
	KwTemplate
	KwTypename
	KwClass
	KwStruct
	KwUsing
	KwRequires
	KwConst
	KwVolatile
	KwVoid
	KwBool
	KwChar
	KwInt
	KwUnsigned
	KwLong
	KwFloat
	KwDouble
	KwAuto
	KwReturn
	KwIf
	KwElse
	KwTrue
	KwFalse
	KwSizeof

	// punctuation and operators
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Lt
	Gt
	LtEq
	GtEq
	Shl
	Shr
	Amp
	AmpAmp
	Pipe
	PipePipe
	Star
	Plus
	Minus
	Slash
	Percent
	Bang
	Tilde
	Assign
	EqEq
	BangEq
	Comma
	Semicolon
	Colon
	ColonColon
	Dot
	Ellipsis
	Arrow
	Question
)

var kindNames = map[Kind]string{
	EOF:        "EOF",
	Invalid:    "invalid",
	Ident:      "identifier",
	IntLit:     "integer literal",
	CharLit:    "char literal",
	StringLit:  "string literal",
	KwTemplate: "template",
	KwTypename: "typename",
	KwClass:    "class",
	KwStruct:   "struct",
	KwUsing:    "using",
	KwRequires: "requires",
	KwConst:    "const",
	KwVolatile: "volatile",
	KwVoid:     "void",
	KwBool:     "bool",
	KwChar:     "char",
	KwInt:      "int",
	KwUnsigned: "unsigned",
	KwLong:     "long",
	KwFloat:    "float",
	KwDouble:   "double",
	KwAuto:     "auto",
	KwReturn:   "return",
	KwIf:       "if",
	KwElse:     "else",
	KwTrue:     "true",
	KwFalse:    "false",
	KwSizeof:   "sizeof",
	LParen:     "(",
	RParen:     ")",
	LBrace:     "{",
	RBrace:     "}",
	LBracket:   "[",
	RBracket:   "]",
	Lt:         "<",
	Gt:         ">",
	LtEq:       "<=",
	GtEq:       ">=",
	Shl:        "<<",
	Shr:        ">>",
	Amp:        "&",
	AmpAmp:     "&&",
	Pipe:       "|",
	PipePipe:   "||",
	Star:       "*",
	Plus:       "+",
	Minus:      "-",
	Slash:      "/",
	Percent:    "%",
	Bang:       "!",
	Tilde:      "~",
	Assign:     "=",
	EqEq:       "==",
	BangEq:     "!=",
	Comma:      ",",
	Semicolon:  ";",
	Colon:      ":",
	ColonColon: "::",
	Dot:        ".",
	Ellipsis:   "...",
	Arrow:      "->",
	Question:   "?",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}
