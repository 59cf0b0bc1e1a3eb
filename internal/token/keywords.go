package token

var keywords = map[string]Kind{
	"template": KwTemplate,
	"typename": KwTypename,
	"class":    KwClass,
	"struct":   KwStruct,
	"using":    KwUsing,
	"requires": KwRequires,
	"const":    KwConst,
	"volatile": KwVolatile,
	"void":     KwVoid,
	"bool":     KwBool,
	"char":     KwChar,
	"int":      KwInt,
	"unsigned": KwUnsigned,
	"long":     KwLong,
	"float":    KwFloat,
	"double":   KwDouble,
	"auto":     KwAuto,
	"return":   KwReturn,
	"if":       KwIf,
	"else":     KwElse,
	"true":     KwTrue,
	"false":    KwFalse,
	"sizeof":   KwSizeof,
}

// LookupKeyword maps an identifier spelling to its keyword kind.
func LookupKeyword(text string) (Kind, bool) {
	k, ok := keywords[text]
	return k, ok
}
