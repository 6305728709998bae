// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package object

import (
	"github.com/velajs/vela/internal/heap"
)

// Store owns every object.Inner cell in one runtime: the slab
// allocator (spec.md §4.E) and the shared shape cache (spec.md §9's
// hidden-class memoization). It satisfies heap.Space directly, so a
// Runtime hands *Store to heap.NewGC keyed under heap.KindObject with
// no adapter type in between.
type Store struct {
	alloc  *heap.SlabAllocator[Inner, *Inner]
	Shapes *ShapeCache
}

// allocThreshold matches spec.md §4.E's "every 5,000 allocations a GC
// cycle is triggered".
const allocThreshold = 5000

// NewStore creates an object store. onThreshold is invoked every
// allocThreshold allocations so the owning Runtime can run a GC
// cycle; pass nil to disable automatic triggering (tests do this to
// control GC timing explicitly).
func NewStore(onThreshold func()) *Store {
	return &Store{
		alloc:  heap.NewSlabAllocator[Inner, *Inner](allocThreshold, onThreshold),
		Shapes: NewShapeCache(),
	}
}

// New allocates a fresh, prototype-less, extensible, empty object and
// returns its handle and live pointer (spec.md §3's Lifecycle:
// "initialised with __proto__=None, empty property map,
// extensible=true").
func (s *Store) New() (heap.Handle, *Inner) {
	h, in := s.alloc.Alloc()
	in.initFresh()
	return h, in
}

// Resolve returns the live *Inner for a previously allocated handle.
func (s *Store) Resolve(h heap.Handle) *Inner { return s.alloc.Resolve(h) }

// --- heap.Space -----------------------------------------------------------

func (s *Store) MarkUsed(h heap.Handle) heap.Cell      { return s.alloc.MarkUsed(h) }
func (s *Store) GarbageCollect() int                   { return s.alloc.GarbageCollect() }
func (s *Store) PeekFlag(h heap.Handle) heap.GCFlag     { return s.alloc.PeekFlag(h) }
func (s *Store) SetFlagAt(h heap.Handle, f heap.GCFlag) { s.alloc.SetFlagAt(h, f) }

// Len/FreeCount expose the underlying slab allocator's accounting,
// used by cmd/vela's heap-dump subcommand.
func (s *Store) Len() int       { return s.alloc.Len() }
func (s *Store) FreeCount() int { return s.alloc.FreeCount() }
