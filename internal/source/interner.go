package source

// StringID is a stable handle to an interned string.
type StringID uint32

// NoStringID maps to the empty string.
const NoStringID StringID = 0

// Interner deduplicates strings and hands out stable IDs.
type Interner struct {
	byID  []string
	index map[string]StringID
}

func NewInterner() *Interner {
	return &Interner{
		byID:  []string{""},
		index: map[string]StringID{"": 0},
	}
}

// Intern returns the ID for s, allocating one on first sight.
func (i *Interner) Intern(s string) StringID {
	if id, ok := i.index[s]; ok {
		return id
	}
	// Own copy so we do not pin the caller's backing buffer.
	cpy := string([]byte(s))
	id := StringID(len(i.byID))
	i.byID = append(i.byID, cpy)
	i.index[cpy] = id
	return id
}

// Lookup returns the string for an ID.
func (i *Interner) Lookup(id StringID) (string, bool) {
	if int(id) >= len(i.byID) {
		return "", false
	}
	return i.byID[id], true
}

// MustLookup panics on an invalid ID.
func (i *Interner) MustLookup(id StringID) string {
	s, ok := i.Lookup(id)
	if !ok {
		panic("source: invalid StringID")
	}
	return s
}

// Len reports the number of interned strings, counting NoStringID.
func (i *Interner) Len() int { return len(i.byID) }
