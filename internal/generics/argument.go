package generics

import (
	"strconv"
	"strings"

	"carbide/internal/types"
)

// ArgKind tags the three argument forms a generic parameter can bind to.
type ArgKind uint8

const (
	ArgType ArgKind = iota
	ArgValue
	ArgGeneric
)

// Argument is one concrete template argument.
type Argument struct {
	Kind ArgKind

	// ArgType
	Type types.TypeID

	// ArgValue: an integer plus its type
	Value     int64
	ValueType types.TypeID

	// ArgGeneric: the name of another registered generic
	Generic string
}

// TypeArg wraps a type as an Argument.
func TypeArg(id types.TypeID) Argument {
	return Argument{Kind: ArgType, Type: id}
}

// ValueArg wraps an integer constant as an Argument.
func ValueArg(v int64, ty types.TypeID) Argument {
	return Argument{Kind: ArgValue, Value: v, ValueType: ty}
}

// GenericArg wraps a generic name as an Argument.
func GenericArg(name string) Argument {
	return Argument{Kind: ArgGeneric, Generic: name}
}

// Equal compares argument identity. Type identity is the interned TypeID, so
// T, T& and T&& stay distinct.
func (a Argument) Equal(other Argument) bool {
	if a.Kind != other.Kind {
		return false
	}
	switch a.Kind {
	case ArgType:
		return a.Type == other.Type
	case ArgValue:
		return a.Value == other.Value && a.ValueType == other.ValueType
	case ArgGeneric:
		return a.Generic == other.Generic
	default:
		return false
	}
}

// render produces the canonical spelling used in instantiation keys and
// instantiated type names. The spelling includes every declarator layer of a
// type argument; it is the identity the cache deduplicates on.
func (a Argument) render(in *types.Interner) string {
	switch a.Kind {
	case ArgType:
		return in.String(a.Type)
	case ArgValue:
		return strconv.FormatInt(a.Value, 10)
	case ArgGeneric:
		return a.Generic
	default:
		return "<invalid>"
	}
}

// argsKey canonicalizes an ordered argument list into the cache key string.
// Go maps cannot use slices as keys, so the normalized arguments are joined
// with a separator that cannot appear inside a single rendering.
func argsKey(in *types.Interner, args []Argument) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	for i, arg := range args {
		if i > 0 {
			b.WriteByte('#')
		}
		b.WriteString(arg.render(in))
	}
	return b.String()
}

// renderArgs joins canonical spellings with commas, for diagnostics and
// instantiated type names like "Pair<int, double>".
func renderArgs(in *types.Interner, args []Argument) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.render(in)
	}
	return strings.Join(parts, ", ")
}
