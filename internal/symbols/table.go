package symbols

import (
	"fmt"

	"fortio.org/safecast"

	"carbide/internal/types"
)

// BindingHandle identifies one temporary type binding. Handles are indices
// into an append-only log, so they stay valid while the log grows.
type BindingHandle uint32

// NoBindingHandle marks an absent binding.
const NoBindingHandle BindingHandle = 0

type tempEntry struct {
	name    string
	prev    types.TypeID // shadowed entry, NoTypeID if the name was free
	prevSet bool
	active  bool
}

// Table is the process-wide type lookup table. Permanent entries are
// appended for the lifetime of the compilation; temporary entries install
// trial parameter bindings during deferred-body resolution and must be
// removed on every exit path.
type Table struct {
	interner *types.Interner
	names    map[string]types.TypeID
	temp     []tempEntry // index+1 == BindingHandle
	aliases  map[types.TypeID]map[string]types.TypeID
	layouts  map[types.TypeID]Layout
}

// NewTable creates an empty table over the shared type interner.
func NewTable(in *types.Interner) *Table {
	t := &Table{
		interner: in,
		names:    make(map[string]types.TypeID, 64),
		temp:     make([]tempEntry, 1), // index 0 reserved for NoBindingHandle
		aliases:  make(map[types.TypeID]map[string]types.TypeID),
		layouts:  make(map[types.TypeID]Layout),
	}
	t.seedBuiltins()
	return t
}

func (t *Table) seedBuiltins() {
	b := t.interner.Builtins()
	t.names["void"] = b.Void
	t.names["bool"] = b.Bool
	t.names["char"] = b.Char
	t.names["int"] = b.Int
	t.names["unsigned"] = b.Uint
	t.names["long"] = b.Long
	t.names["float"] = b.Float
	t.names["double"] = b.Double
}

// Interner exposes the shared type interner.
func (t *Table) Interner() *types.Interner { return t.interner }

// Define registers a permanent named type. Redefining an existing name with
// a different type is an error; identical redefinition is a no-op.
func (t *Table) Define(name string, id types.TypeID) error {
	if existing, ok := t.names[name]; ok {
		if existing == id {
			return nil
		}
		return fmt.Errorf("type %q already defined", name)
	}
	t.names[name] = id
	return nil
}

// LookupTypeByName resolves a name to its current binding, temporary
// bindings included.
func (t *Table) LookupTypeByName(name string) (types.TypeID, bool) {
	id, ok := t.names[name]
	return id, ok
}

// RegisterTemporaryType installs a trial binding for name, shadowing any
// existing entry, and returns a handle for removal.
func (t *Table) RegisterTemporaryType(name string, id types.TypeID) BindingHandle {
	prev, prevSet := t.names[name]
	idx, err := safecast.Conv[uint32](len(t.temp))
	if err != nil {
		panic(fmt.Errorf("temp binding overflow: %w", err))
	}
	t.temp = append(t.temp, tempEntry{
		name:    name,
		prev:    prev,
		prevSet: prevSet,
		active:  true,
	})
	t.names[name] = id
	return BindingHandle(idx)
}

// RemoveTemporaryType undoes the binding behind the handle, restoring
// whatever the name resolved to before. Removing twice is a no-op.
func (t *Table) RemoveTemporaryType(h BindingHandle) {
	if h == NoBindingHandle || int(h) >= len(t.temp) {
		return
	}
	entry := &t.temp[h]
	if !entry.active {
		return
	}
	entry.active = false
	if entry.prevSet {
		t.names[entry.name] = entry.prev
	} else {
		delete(t.names, entry.name)
	}
}

// ActiveTemporaries reports how many temporary bindings are still installed.
// A nonzero value after an instantiation attempt means a leaked binding.
func (t *Table) ActiveTemporaries() int {
	n := 0
	for i := 1; i < len(t.temp); i++ {
		if t.temp[i].active {
			n++
		}
	}
	return n
}

// DefineMemberAlias registers owner::member = target, e.g. the value_type
// alias of an instantiated class.
func (t *Table) DefineMemberAlias(owner types.TypeID, member string, target types.TypeID) {
	m := t.aliases[owner]
	if m == nil {
		m = make(map[string]types.TypeID, 4)
		t.aliases[owner] = m
	}
	m[member] = target
}

// RemoveMemberAlias undoes a provisional owner::member registration.
// Removing an absent alias is a no-op.
func (t *Table) RemoveMemberAlias(owner types.TypeID, member string) {
	delete(t.aliases[owner], member)
}

// LookupMemberAlias resolves owner::member.
func (t *Table) LookupMemberAlias(owner types.TypeID, member string) (types.TypeID, bool) {
	id, ok := t.aliases[owner][member]
	return id, ok
}
