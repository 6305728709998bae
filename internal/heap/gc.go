package heap

import (
	mapset "github.com/deckarep/golang-set"
)

// Space is the non-generic face a SlabAllocator[U, T] presents to the
// GC orchestrator, letting GC drive both the object slab and the
// bigint slab without itself being generic over cell type.
type Space interface {
	// MarkUsed sets h's cell flag to Used unconditionally and returns
	// the cell so the caller can walk TraceRefs. Per-cycle dedup (so a
	// cell shared by many references is only traced once) is the
	// caller's (GC.mark's) responsibility, not the Space's.
	MarkUsed(h Handle) Cell
	GarbageCollect() int
	PeekFlag(h Handle) GCFlag
	SetFlagAt(h Handle, f GCFlag)
}

// GC is the stop-the-world tri-colour mark-sweep collector described
// in spec.md §4.F, generalized here to drive an arbitrary number of
// typed Spaces (VELA registers a single one, for objects; KindBigInt
// has no Space).
type GC struct {
	spaces   map[Kind]Space
	registry *FinalizeRegistry
}

// NewGC creates a collector over the given kind→Space bindings.
func NewGC(spaces map[Kind]Space, registry *FinalizeRegistry) *GC {
	return &GC{spaces: spaces, registry: registry}
}

// RootScan is supplied by the owning runtime: it must invoke visit
// once for every GC root named in spec.md §4.F.1 (global object,
// VM register stack up to the high-water mark, template registry,
// finalization-registry held values, pending async queue, current-
// value scratch).
type RootScan func(visit func(Ref))

// Collect runs one full mark-sweep cycle and returns the number of
// cells freed plus any finalization callbacks now due. The caller
// (which owns the interpreter's Call machinery) is responsible for
// actually invoking each Due entry's callback — heap.GC only decides
// *that* a finalizer must run, never runs JS itself.
func (g *GC) Collect(roots RootScan) (freed int, due []Due) {
	g.mark(roots)
	if g.registry != nil {
		due = g.registry.prepare(g.spaces)
	}
	freed = g.sweep()
	return freed, due
}

// mark walks the root set and then a worklist of discovered
// references, advancing every reachable cell's flag to Used. The
// `visited` set (backed by golang-set) deduplicates entries for the
// whole mark phase — not just the pending worklist — since a freshly
// allocated cell already carries flag Used before any GC has run, so
// the flag alone cannot serve as the "seen this cycle" marker (see
// DESIGN.md / internal/heap test commentary).
func (g *GC) mark(roots RootScan) {
	var worklist []Ref
	visited := mapset.NewSet()

	push := func(r Ref) {
		if visited.Contains(r) {
			return
		}
		visited.Add(r)
		worklist = append(worklist, r)
	}

	roots(push)
	if g.registry != nil {
		g.registry.traceHeld(push)
	}

	for len(worklist) > 0 {
		r := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		space, ok := g.spaces[r.Kind]
		if !ok {
			continue
		}
		cell := space.MarkUsed(r.Handle)
		cell.TraceRefs(push)
	}
}

func (g *GC) sweep() (freed int) {
	for _, space := range g.spaces {
		freed += space.GarbageCollect()
	}
	return freed
}

