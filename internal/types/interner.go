package types

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"carbide/internal/source"
)

// Builtins stores TypeIDs for primitive types.
type Builtins struct {
	Invalid TypeID
	Void    TypeID
	Bool    TypeID
	Char    TypeID
	Int     TypeID
	Uint    TypeID
	Long    TypeID
	Float   TypeID
	Double  TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// IDs are indices into a growing slice; entry 0 is the invalid sentinel.
type Interner struct {
	types    []Type
	index    map[Type]TypeID
	builtins Builtins
	strings  *source.Interner
}

// NewInterner constructs an interner seeded with built-in primitives.
// The string interner is shared with the rest of the front end so named
// types compare by StringID.
func NewInterner(strs *source.Interner) *Interner {
	if strs == nil {
		strs = source.NewInterner()
	}
	in := &Interner{
		index:   make(map[Type]TypeID, 64),
		strings: strs,
	}
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Void = in.Intern(Type{Kind: KindVoid})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Char = in.Intern(Type{Kind: KindChar})
	in.builtins.Int = in.Intern(Type{Kind: KindInt})
	in.builtins.Uint = in.Intern(Type{Kind: KindUint})
	in.builtins.Long = in.Intern(Type{Kind: KindLong})
	in.builtins.Float = in.Intern(Type{Kind: KindFloat})
	in.builtins.Double = in.Intern(Type{Kind: KindDouble})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins { return in.builtins }

// Strings exposes the shared string interner.
func (in *Interner) Strings() *source.Interner { return in.strings }

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if id, ok := in.index[t]; ok {
		return id
	}
	return in.internRaw(t)
}

func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// InternNamed interns a user-defined type by name.
func (in *Interner) InternNamed(name string) TypeID {
	return in.Intern(MakeNamed(in.strings.Intern(name)))
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Derive interns a copy of base with the declarator layers transformed by fn.
func (in *Interner) Derive(base TypeID, fn func(Type) Type) TypeID {
	tt, ok := in.Lookup(base)
	if !ok {
		return NoTypeID
	}
	return in.Intern(fn(tt))
}

// String renders a type for diagnostics and canonical keys: base name,
// cv-qualifiers, pointer stars, reference suffix, in declaration order.
func (in *Interner) String(id TypeID) string {
	tt, ok := in.Lookup(id)
	if !ok {
		return "<invalid>"
	}
	var b strings.Builder
	if tt.CV&CVConst != 0 {
		b.WriteString("const ")
	}
	if tt.CV&CVVolatile != 0 {
		b.WriteString("volatile ")
	}
	if tt.Kind == KindNamed {
		name, _ := in.strings.Lookup(tt.Name)
		b.WriteString(name)
	} else {
		b.WriteString(tt.Kind.String())
	}
	for i := uint8(0); i < tt.PtrDepth; i++ {
		b.WriteByte('*')
	}
	b.WriteString(tt.Ref.String())
	return b.String()
}

// Len reports the number of interned types including the sentinel.
func (in *Interner) Len() int { return len(in.types) }
