package symbols

import (
	"carbide/internal/types"
)

// FieldLayout is one field of a computed struct layout.
type FieldLayout struct {
	Name   string
	Type   types.TypeID
	Offset uint32
	Size   uint32
	Align  uint32
}

// Layout is the size/alignment picture of one concrete struct type.
type Layout struct {
	Size   uint32
	Align  uint32
	Fields []FieldLayout
}

// Sizeof returns the size and alignment of a concrete type. References and
// pointers have pointer size; named types fall back to their registered
// layout.
func (t *Table) Sizeof(id types.TypeID) (size, align uint32) {
	tt, ok := t.interner.Lookup(id)
	if !ok {
		return 0, 1
	}
	if tt.Ref != types.RefNone || tt.PtrDepth > 0 {
		return 8, 8
	}
	switch tt.Kind {
	case types.KindBool, types.KindChar:
		return 1, 1
	case types.KindInt, types.KindUint, types.KindFloat:
		return 4, 4
	case types.KindLong, types.KindDouble:
		return 8, 8
	case types.KindNamed:
		if l, ok := t.layouts[id]; ok {
			return l.Size, l.Align
		}
		return 0, 1
	default:
		return 0, 1
	}
}

// ComputeLayout lays out the fields of a concrete struct in declaration
// order with natural alignment and registers the result under id.
func (t *Table) ComputeLayout(id types.TypeID, fieldNames []string, fieldTypes []types.TypeID) Layout {
	layout := Layout{Align: 1}
	offset := uint32(0)
	for i, ft := range fieldTypes {
		size, align := t.Sizeof(ft)
		if align > 1 && offset%align != 0 {
			offset += align - offset%align
		}
		name := ""
		if i < len(fieldNames) {
			name = fieldNames[i]
		}
		layout.Fields = append(layout.Fields, FieldLayout{
			Name:   name,
			Type:   ft,
			Offset: offset,
			Size:   size,
			Align:  align,
		})
		offset += size
		if align > layout.Align {
			layout.Align = align
		}
	}
	if layout.Align > 1 && offset%layout.Align != 0 {
		offset += layout.Align - offset%layout.Align
	}
	layout.Size = offset
	t.layouts[id] = layout
	return layout
}

// LookupStructLayout returns the registered layout for a concrete type.
func (t *Table) LookupStructLayout(id types.TypeID) (Layout, bool) {
	l, ok := t.layouts[id]
	return l, ok
}
