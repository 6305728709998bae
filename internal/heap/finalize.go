package heap

import "github.com/velajs/vela/internal/value"

// RegistryID names one FinalizationRegistry instance (spec.md
// glossary: "Finalization registry").
type RegistryID uint32

type heldEntry struct {
	target    Ref         // weakly-held target object; NOT a GC root
	heldValue value.Value // kept alive (traced as a root) until the callback runs
}

// FinalizeRegistry maps a FinalizationRegistry instance to its
// registered callback object and the (target, heldValue) pairs it is
// watching, per spec.md's glossary entry and §4.F.4.
type FinalizeRegistry struct {
	callback map[RegistryID]Ref // the callback function object
	entries  map[RegistryID][]heldEntry
	nextID   uint32
}

// NewFinalizeRegistry creates an empty registry.
func NewFinalizeRegistry() *FinalizeRegistry {
	return &FinalizeRegistry{
		callback: make(map[RegistryID]Ref),
		entries:  make(map[RegistryID][]heldEntry),
	}
}

// Create registers a new FinalizationRegistry instance bound to a
// callback object (a Value tagged OBJECT whose wrapped value is
// callable).
func (fr *FinalizeRegistry) Create(callback Ref) RegistryID {
	id := RegistryID(fr.nextID)
	fr.nextID++
	fr.callback[id] = callback
	return id
}

// Register watches target for reclamation, delivering heldValue to
// the registry's callback once target is collected.
func (fr *FinalizeRegistry) Register(id RegistryID, target Ref, heldValue value.Value) {
	fr.entries[id] = append(fr.entries[id], heldEntry{target: target, heldValue: heldValue})
}

// Unregister drops every entry for id whose held value equals token
// (the WeakRef-style unregister token), per the FinalizationRegistry
// spec's unregister(token) operation.
func (fr *FinalizeRegistry) Unregister(id RegistryID, token value.Value) {
	entries := fr.entries[id]
	kept := entries[:0]
	for _, e := range entries {
		if e.heldValue != token {
			kept = append(kept, e)
		}
	}
	fr.entries[id] = kept
}

// traceHeld is called during GC mark (spec.md §4.F.1: "the
// finalization registry held values" is a root): the callback object
// and every live heldValue are roots. The weakly-held target is
// deliberately NOT traced here — that is what makes it collectible.
func (fr *FinalizeRegistry) traceHeld(push func(Ref)) {
	for _, cb := range fr.callback {
		push(cb)
	}
	for _, entries := range fr.entries {
		for _, e := range entries {
			if r, ok := refOfValue(e.heldValue); ok {
				push(r)
			}
		}
	}
}

func refOfValue(v value.Value) (Ref, bool) {
	if v.IsObject() {
		return Ref{Kind: KindObject, Handle: Handle(v.AsObject())}, true
	}
	if v.IsBigInt() {
		return Ref{Kind: KindBigInt, Handle: Handle(v.AsBigIntIndex())}, true
	}
	return Ref{}, false
}

// Due is one finalization callback the embedding runtime must invoke
// after a GC cycle (heap.GC never calls into JS itself).
type Due struct {
	Callback  Ref
	HeldValue value.Value
}

// prepare runs after mark, before sweep: any registered target whose
// flag is still NotUsed (mark did not reach it, and it was already
// stale from the prior cycle) is about to be freed by this cycle's
// sweep. Per spec.md §3 ("...getting Finalize before reclamation"),
// its flag is bumped to Finalize and the entry returned as Due; the
// entry is then removed from the registry (the callback fires at most
// once) and the cell's flag is set to Used rather than left at
// NotUsed/Finalize — this resurrects it for exactly one more full
// Used→Old→NotUsed→Garbage cycle instead of letting the very next
// line of code (sweep, still within this same Collect call) free it
// out from under the callback that just received its held value.
func (fr *FinalizeRegistry) prepare(spaces map[Kind]Space) []Due {
	var due []Due
	for id, entries := range fr.entries {
		kept := entries[:0]
		for _, e := range entries {
			space, ok := spaces[e.target.Kind]
			if !ok {
				kept = append(kept, e)
				continue
			}
			if space.PeekFlag(e.target.Handle) == NotUsed {
				space.SetFlagAt(e.target.Handle, Finalize)
				due = append(due, Due{Callback: fr.callback[id], HeldValue: e.heldValue})
				space.SetFlagAt(e.target.Handle, Used)
				continue
			}
			kept = append(kept, e)
		}
		fr.entries[id] = kept
	}
	return due
}
