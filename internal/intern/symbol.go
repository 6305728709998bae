package intern

import "sync"

// WellKnownSymbol indexes the reserved low symbol ids populated at
// runtime construction (spec.md §3.B).
type WellKnownSymbol uint32

const (
	SymIterator WellKnownSymbol = iota
	SymAsyncIterator
	SymToPrimitive
	SymToStringTag
	SymHasInstance
	SymUnscopables
	SymSpecies
	symWellKnownCount
)

var wellKnownNames = [symWellKnownCount]string{
	SymIterator:      "Symbol.iterator",
	SymAsyncIterator: "Symbol.asyncIterator",
	SymToPrimitive:   "Symbol.toPrimitive",
	SymToStringTag:   "Symbol.toStringTag",
	SymHasInstance:   "Symbol.hasInstance",
	SymUnscopables:   "Symbol.unscopables",
	SymSpecies:       "Symbol.species",
}

// SymbolInterner assigns 32-bit ids to symbols: well-known symbols
// occupy ids 0..N at construction; user `Symbol(desc)` calls get
// subsequent ids.
type SymbolInterner struct {
	mu    sync.Mutex
	names []string // index == symbol id
}

// NewSymbolInterner creates a SymbolInterner with the well-known
// symbols pre-registered at their reserved ids.
func NewSymbolInterner() *SymbolInterner {
	si := &SymbolInterner{names: make([]string, symWellKnownCount)}
	copy(si.names, wellKnownNames[:])
	return si
}

// WellKnown returns the reserved id for a well-known symbol.
func (si *SymbolInterner) WellKnown(w WellKnownSymbol) uint32 { return uint32(w) }

// New allocates a fresh symbol id with the given description.
func (si *SymbolInterner) New(description string) uint32 {
	si.mu.Lock()
	defer si.mu.Unlock()
	id := uint32(len(si.names))
	si.names = append(si.names, description)
	return id
}

// Describe returns the description string registered for id.
func (si *SymbolInterner) Describe(id uint32) (string, bool) {
	si.mu.Lock()
	defer si.mu.Unlock()
	if int(id) >= len(si.names) {
		return "", false
	}
	return si.names[id], true
}
