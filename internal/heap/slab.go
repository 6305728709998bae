// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package heap implements VELA's slab allocators and mark-sweep
// garbage collector (spec.md §4.E/§4.F). SlabAllocator is generic over
// its cell type; the runtime instantiates one, for object inner cells
// (internal/object.Store). No allocator for bigint boxes exists:
// KindBigInt has no registered Space, and the collector skips refs of
// that kind.
//
// The teacher (rusty-js's object_allocater.rs) threads its freelist
// through a union with the cell's first word via unchecked pointer
// casts. Per spec.md §9's design note, VELA instead picks the
// "arena + 32-bit index handle" approach: a Handle is a page/slot pair
// packed into a uint32, and the freelist is an explicit slice of free
// Handles rather than an intrusive pointer chain. This sidesteps
// `unsafe` entirely while preserving the same O(1) alloc/free and the
// same 128-cells-per-page layout spec.md names.
package heap

import "fmt"

// PageSize is the number of cells per slab page (spec.md §4.E).
const PageSize = 128

// GCFlag is the four-state flag spec.md §3 assigns to every cell.
type GCFlag uint8

const (
	// Used marks a cell visited during the current mark phase.
	Used GCFlag = iota
	// Old marks a cell that survived one full cycle.
	Old
	// NotUsed marks a cell unvisited since the last cycle; swept next time.
	NotUsed
	// Garbage marks a cell sitting on the freelist.
	Garbage
	// Finalize marks a cell reachable only from a FinalizationRegistry
	// held-value map, pending its callback before reclamation
	// (ported from rusty-js's finalize_registry.rs; see DESIGN.md).
	Finalize
)

func (f GCFlag) String() string {
	switch f {
	case Used:
		return "Used"
	case Old:
		return "Old"
	case NotUsed:
		return "NotUsed"
	case Garbage:
		return "Garbage"
	case Finalize:
		return "Finalize"
	default:
		return fmt.Sprintf("GCFlag(%d)", uint8(f))
	}
}

// Header is embedded by every cell type managed by a SlabAllocator;
// it carries the cell's GC flag.
type Header struct {
	flag GCFlag
}

// Flag returns the cell's current GC flag.
func (h *Header) Flag() GCFlag { return h.flag }

// SetFlag sets the cell's GC flag.
func (h *Header) SetFlag(f GCFlag) { h.flag = f }

// Kind distinguishes which SlabAllocator a Ref's Handle addresses,
// since a Handle is only unique within the allocator that issued it.
type Kind uint8

const (
	KindObject Kind = iota
	KindBigInt
)

// Ref is a typed outgoing reference discovered while tracing a cell:
// an object cell may point at other object cells (prototype, property
// values, captures, proxy target/handler, generator closure) or at a
// bigint box (a property value holding a BIGINT-tagged Value).
type Ref struct {
	Kind   Kind
	Handle Handle
}

// Cell is the contract a slab-managed type must satisfy. T is always
// used as the pointer type *U for some backing struct U, so methods
// mutate in place.
type Cell interface {
	Flag() GCFlag
	SetFlag(GCFlag)
	// ResetForGC clears every field that holds a reference (prototype,
	// property map, wrapped value, ...) so the cell can be handed back
	// out by Alloc with no stale state, matching spec.md §4.E's
	// "resets it (clears property map, unsets wrapped value, clears
	// __proto__)".
	ResetForGC()
	// TraceRefs invokes visit once per outgoing reference this cell
	// holds, used by the GC's mark worklist (spec.md §4.F.2).
	TraceRefs(visit func(Ref))
}

// Handle addresses a single cell within a SlabAllocator: a page index
// and an in-page slot, packed into a uint32 (page in the high 25
// bits, slot in the low 7 — PageSize is 128 = 2^7).
type Handle uint32

const slotBits = 7 // log2(PageSize)
const slotMask = (1 << slotBits) - 1

func makeHandle(page, slot int) Handle {
	return Handle(uint32(page)<<slotBits | uint32(slot&slotMask))
}

func (h Handle) page() int { return int(h) >> slotBits }
func (h Handle) slot() int { return int(h) & slotMask }

// SlabAllocator is a fixed-size-page pool for cells of type U,
// addressed through pointers T=*U satisfying Cell. alloc pops an
// explicit freelist of Handles; when empty, a new PageSize-cell page
// is appended. Every AllocTriggerCount allocations (default 5000 per
// spec.md §4.E), onThreshold fires so the owning Runtime can run a GC
// cycle.
type SlabAllocator[U any, T interface {
	*U
	Cell
}] struct {
	pages       [][]U
	free        []Handle
	allocCount  int
	threshold   int
	onThreshold func()
}

// NewSlabAllocator creates an empty allocator. threshold<=0 disables
// the automatic onThreshold callback (tests commonly do this to
// control GC timing explicitly).
func NewSlabAllocator[U any, T interface {
	*U
	Cell
}](threshold int, onThreshold func()) *SlabAllocator[U, T] {
	return &SlabAllocator[U, T]{threshold: threshold, onThreshold: onThreshold}
}

func (s *SlabAllocator[U, T]) addPage() {
	page := make([]U, PageSize)
	pageIdx := len(s.pages)
	s.pages = append(s.pages, page)
	for slot := range page {
		T(&page[slot]).SetFlag(Garbage)
		s.free = append(s.free, makeHandle(pageIdx, slot))
	}
}

// Alloc pops a free cell, resets it to its zero GC state (Used), and
// returns its handle and pointer. It triggers onThreshold every
// `threshold` allocations, mirroring spec.md §4.E's "every 5,000
// allocations a GC cycle is triggered".
func (s *SlabAllocator[U, T]) Alloc() (Handle, T) {
	if len(s.free) == 0 {
		s.addPage()
	}
	h := s.free[len(s.free)-1]
	s.free = s.free[:len(s.free)-1]

	cell := T(&s.pages[h.page()][h.slot()])
	cell.SetFlag(Used)

	s.allocCount++
	if s.threshold > 0 && s.allocCount >= s.threshold {
		s.allocCount = 0
		if s.onThreshold != nil {
			s.onThreshold()
		}
	}
	return h, cell
}

// Resolve returns the live pointer for a previously allocated handle.
func (s *SlabAllocator[U, T]) Resolve(h Handle) T {
	return T(&s.pages[h.page()][h.slot()])
}

// Pages exposes the backing pages for the GC sweep/mark walk.
func (s *SlabAllocator[U, T]) Pages() [][]U { return s.pages }

// GarbageCollect walks every page and, for each cell in state
// NotUsed, resets it and returns it to the freelist; Old cells become
// NotUsed and Used cells become Old — the generational bias spec.md
// §4.F.3 describes ("only cells aged past Old can be freed").
func (s *SlabAllocator[U, T]) GarbageCollect() (freed int) {
	for pageIdx := range s.pages {
		page := s.pages[pageIdx]
		for slot := range page {
			cell := T(&page[slot])
			switch cell.Flag() {
			case NotUsed:
				cell.ResetForGC()
				cell.SetFlag(Garbage)
				s.free = append(s.free, makeHandle(pageIdx, slot))
				freed++
			case Old:
				cell.SetFlag(NotUsed)
			case Used:
				cell.SetFlag(Old)
			// Garbage and Finalize cells are left for the finalization
			// pass / already on the freelist.
			}
		}
	}
	return freed
}

// Len reports the total number of cells across all pages (live + free).
func (s *SlabAllocator[U, T]) Len() int { return len(s.pages) * PageSize }

// FreeCount reports how many cells are currently on the freelist.
func (s *SlabAllocator[U, T]) FreeCount() int { return len(s.free) }

// PeekFlag reports h's current GC flag without mutating it, used by
// the FinalizationRegistry to decide whether a weakly-held target is
// about to be reclaimed this cycle.
func (s *SlabAllocator[U, T]) PeekFlag(h Handle) GCFlag {
	cell := T(&s.pages[h.page()][h.slot()])
	return cell.Flag()
}

// SetFlagAt force-sets h's GC flag, used by the FinalizationRegistry
// to install the Finalize flag ahead of a sweep.
func (s *SlabAllocator[U, T]) SetFlagAt(h Handle, f GCFlag) {
	cell := T(&s.pages[h.page()][h.slot()])
	cell.SetFlag(f)
}

// MarkUsed implements Space: see the Space interface doc.
func (s *SlabAllocator[U, T]) MarkUsed(h Handle) Cell {
	cell := T(&s.pages[h.page()][h.slot()])
	cell.SetFlag(Used)
	return cell
}
