// Package mangle produces stable linkage names for concrete declarations.
// The scheme is Itanium-flavored but deliberately simple: names only need to
// be deterministic and injective over (namespace, name, argument identity).
package mangle

import (
	"fmt"
	"strings"

	"carbide/internal/types"
)

// Mangler renders linkage names against the shared type interner.
type Mangler struct {
	interner *types.Interner
}

// New creates a mangler over the interner.
func New(in *types.Interner) *Mangler {
	return &Mangler{interner: in}
}

// Mangle builds the linkage name for a named entity instantiated with args.
// T, T& and T&& mangle differently: argument identity includes every
// declarator layer.
func (m *Mangler) Mangle(namespacePath []string, name string, args []types.TypeID) string {
	var b strings.Builder
	b.WriteString("_C")
	if len(namespacePath) > 0 {
		b.WriteByte('N')
		for _, ns := range namespacePath {
			fmt.Fprintf(&b, "%d%s", len(ns), ns)
		}
	}
	fmt.Fprintf(&b, "%d%s", len(name), name)
	if len(args) > 0 {
		b.WriteByte('I')
		for _, arg := range args {
			b.WriteString(m.mangleType(arg))
		}
		b.WriteByte('E')
	}
	return b.String()
}

func (m *Mangler) mangleType(id types.TypeID) string {
	tt, ok := m.interner.Lookup(id)
	if !ok {
		return "X"
	}
	var b strings.Builder
	switch tt.Ref {
	case types.RefLValue:
		b.WriteByte('R')
	case types.RefRValue:
		b.WriteByte('O')
	}
	for i := uint8(0); i < tt.PtrDepth; i++ {
		b.WriteByte('P')
	}
	if tt.CV&types.CVConst != 0 {
		b.WriteByte('K')
	}
	if tt.CV&types.CVVolatile != 0 {
		b.WriteByte('V')
	}
	switch tt.Kind {
	case types.KindVoid:
		b.WriteByte('v')
	case types.KindBool:
		b.WriteByte('b')
	case types.KindChar:
		b.WriteByte('c')
	case types.KindInt:
		b.WriteByte('i')
	case types.KindUint:
		b.WriteByte('j')
	case types.KindLong:
		b.WriteByte('l')
	case types.KindFloat:
		b.WriteByte('f')
	case types.KindDouble:
		b.WriteByte('d')
	case types.KindNamed:
		name, _ := m.interner.Strings().Lookup(tt.Name)
		sanitized := sanitize(name)
		fmt.Fprintf(&b, "%d%s", len(sanitized), sanitized)
	default:
		b.WriteByte('X')
	}
	return b.String()
}

// sanitize strips characters that cannot appear in a linkage name.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '<' || r == ',':
			b.WriteByte('I')
		case r == '>':
			b.WriteByte('E')
		case r == ':' || r == ' ' || r == '&' || r == '*':
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
