package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/velajs/vela/internal/value"
)

// testCell is a minimal Cell implementation used to exercise the
// slab allocator and GC without depending on package object.
type testCell struct {
	Header
	refs []Ref
}

func (c *testCell) ResetForGC() { c.refs = nil }
func (c *testCell) TraceRefs(visit func(Ref)) {
	for _, r := range c.refs {
		visit(r)
	}
}

func TestSlabAllocReuseAndPaging(t *testing.T) {
	s := NewSlabAllocator[testCell, *testCell](0, nil)
	var handles []Handle
	for i := 0; i < PageSize+5; i++ {
		h, cell := s.Alloc()
		require.Equal(t, Used, cell.Flag())
		handles = append(handles, h)
	}
	require.Equal(t, 2, len(s.Pages()), "allocating past one page's worth must add a second page")
}

func TestSlabThresholdCallback(t *testing.T) {
	fired := 0
	s := NewSlabAllocator[testCell, *testCell](3, func() { fired++ })
	for i := 0; i < 7; i++ {
		s.Alloc()
	}
	require.Equal(t, 2, fired)
}

func TestGCMarkSweepKeepsReachable(t *testing.T) {
	objs := NewSlabAllocator[testCell, *testCell](0, nil)
	spaces := map[Kind]Space{KindObject: objs}
	gc := NewGC(spaces, nil)

	rootH, _ := objs.Alloc()
	childH, childCell := objs.Alloc()
	_ = childCell
	// give the root a reference to the child
	rootCell := objs.Resolve(rootH)
	rootCell.refs = []Ref{{Kind: KindObject, Handle: childH}}

	danglingH, _ := objs.Alloc()

	roots := func(visit func(Ref)) {
		visit(Ref{Kind: KindObject, Handle: rootH})
	}

	// Cycle 1: root and child marked Used->Old after sweep; dangling
	// (unreached) goes Used(initial)->Old via the *previous* alloc
	// flag? Note: Alloc sets flag=Used already, so entering cycle 1 all
	// three cells are Used regardless of reachability. Mark only
	// affects cells reached from roots, but sweep's Used->Old applies
	// to every cell whose *current* flag is Used, reached or not. So
	// the first cycle alone cannot distinguish garbage; a second cycle
	// is required, matching spec.md's two-phase aging design.
	gc.Collect(roots)
	gc.Collect(roots)
	gc.Collect(roots)

	require.Contains(t, []GCFlag{Used, Old}, objs.PeekFlag(rootH))
	require.Contains(t, []GCFlag{Used, Old}, objs.PeekFlag(childH))
	require.Equal(t, Garbage, objs.PeekFlag(danglingH), "an object never re-rooted must eventually be swept to Garbage")
}

func TestFinalizeRegistryFiresOnReclaim(t *testing.T) {
	objs := NewSlabAllocator[testCell, *testCell](0, nil)
	spaces := map[Kind]Space{KindObject: objs}
	reg := NewFinalizeRegistry()
	gc := NewGC(spaces, reg)

	cbH, _ := objs.Alloc()
	targetH, _ := objs.Alloc()

	id := reg.Create(Ref{Kind: KindObject, Handle: cbH})
	// heldValue is a plain number, deliberately distinct from target:
	// heldValue is itself traced as a root (it's the value delivered to
	// the callback), so if it aliased target's own object value the
	// target would never go unreachable and the finalizer could never
	// fire.
	reg.Register(id, Ref{Kind: KindObject, Handle: targetH}, value.Int(7))

	roots := func(visit func(Ref)) {
		visit(Ref{Kind: KindObject, Handle: cbH}) // keep the callback alive; target is NOT rooted
	}

	var due []Due
	for i := 0; i < 4 && len(due) == 0; i++ {
		_, d := gc.Collect(roots)
		due = append(due, d...)
	}
	require.Len(t, due, 1)
	require.Equal(t, cbH, due[0].Callback.Handle)
}
