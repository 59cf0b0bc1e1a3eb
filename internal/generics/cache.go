package generics

import (
	"fmt"

	"fortio.org/safecast"

	"carbide/internal/ast"
)

// InstID is a handle into the instantiation arena. 0 is the invalid
// sentinel; handles stay valid for the process lifetime.
type InstID uint32

// NoInstID marks the absence of an instantiation.
const NoInstID InstID = 0

// IsValid reports whether the handle points at a stored instantiation.
func (id InstID) IsValid() bool { return id != NoInstID }

// Key identifies one instantiation: the primary declaration plus the
// canonical argument key. The key string is the normalized argument list;
// slices cannot key a Go map, so the identity lives in one joined string.
// Selecting a specialization never changes the key: identity belongs to the
// primary.
type Key struct {
	Generic GenericID
	Args    string
}

func (k Key) String() string {
	return fmt.Sprintf("g%d[%s]", k.Generic, k.Args)
}

// Cache deduplicates instantiations and guards against re-entrant cycles.
// Entries are permanent: an instantiation is computed once and served from
// the arena forever after.
type Cache struct {
	insts      []ast.ConcreteDecl // arena, index 0 reserved
	index      map[Key]InstID
	inProgress map[Key]bool
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		insts:      make([]ast.ConcreteDecl, 1),
		index:      make(map[Key]InstID, 64),
		inProgress: make(map[Key]bool),
	}
}

// Get returns the cached instantiation for a key.
func (c *Cache) Get(k Key) (InstID, bool) {
	id, ok := c.index[k]
	return id, ok
}

// Decl returns the stored declaration behind a handle, or nil.
func (c *Cache) Decl(id InstID) *ast.ConcreteDecl {
	if !id.IsValid() || int(id) >= len(c.insts) {
		return nil
	}
	return &c.insts[id]
}

// Put stores a finished instantiation. Storing the same key twice is
// idempotent as long as the linkage name matches; a mismatch means two
// different results were computed for one identity, which is a bug the
// process must not survive.
func (c *Cache) Put(k Key, decl ast.ConcreteDecl) InstID {
	if existing, ok := c.index[k]; ok {
		if c.insts[existing].Mangled != decl.Mangled {
			panic(fmt.Sprintf("instantiation cache violation: key %s maps to both %q and %q",
				k, c.insts[existing].Mangled, decl.Mangled))
		}
		return existing
	}
	idx, err := safecast.Conv[uint32](len(c.insts))
	if err != nil {
		panic(fmt.Errorf("instantiation arena overflow: %w", err))
	}
	id := InstID(idx)
	c.insts = append(c.insts, decl)
	c.index[k] = id
	return id
}

// Begin marks a key as in progress. A false return means the same
// instantiation is already being resolved further up the stack.
func (c *Cache) Begin(k Key) bool {
	if c.inProgress[k] {
		return false
	}
	c.inProgress[k] = true
	return true
}

// End clears the in-progress mark. Must run on every exit path of an
// instantiation attempt.
func (c *Cache) End(k Key) {
	delete(c.inProgress, k)
}

// InProgress reports whether a key is currently being resolved.
func (c *Cache) InProgress(k Key) bool { return c.inProgress[k] }

// Len reports the number of stored instantiations excluding the sentinel.
func (c *Cache) Len() int { return len(c.insts) - 1 }
