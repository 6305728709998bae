// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package baseline drives backend.Backend: it walks a stabilised
// bytecode body plus a type profile, emits the instruction sequence a
// Backend understands, and records the resulting entry point so
// internal/interp can call it instead of re-dispatching the bytecode
// one opcode at a time.
//
// Grounded on spec.md §4.I literally, plus
// _examples/original_source/rusty-js-core/src/runtime/profiler.rs's
// Profiler (an OR-accumulated per-slot type bitset, reset between
// compilations) — ported from a pair of raw allocations mutated
// through unsafe pointers to a pair of Go slices, since Go has no
// equivalent need for a hand-rolled allocator here.
package baseline

import (
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/velajs/vela/internal/bytecode"
	"github.com/velajs/vela/internal/value"
)

// Profiler accumulates, for one function, an observed TypeSet per
// register slot across interpreted calls. internal/interp samples
// into it (via Observe) each time it dispatches an opcode whose
// operands the baseline compiler might later specialize; Finish folds
// the running samples into a backend.TypeProfile.
//
// Mirrors profiler.rs's `current`/`results` pair: `current` there is
// refreshed every interpreted step and `finish()` ORs it into
// `results` once per call. VELA folds directly into `results` on
// every Observe instead, since Go slices need no separate
// alloc/dealloc dance to make that cheap.
type Profiler struct {
	results []value.TypeSet

	// cache fronts repeated profiling of the same function body
	// across many calls with an evictable type-feedback cache —
	// eviction only costs a missed specialization opportunity, never
	// correctness, since Compile always re-derives results from
	// whatever samples are still cached plus nothing.
	cache *fastcache.Cache
}

var (
	sharedCacheOnce sync.Once
	sharedCache     *fastcache.Cache
)

// NewProfiler creates a Profiler with numSlots register-indexed
// buckets. Every Profiler shares one process-wide evictable cache,
// sized by the cacheSizeBytes of the first NewProfiler call, so what
// one Profiler persists another can restore.
func NewProfiler(numSlots int, cacheSizeBytes int) *Profiler {
	sharedCacheOnce.Do(func() { sharedCache = fastcache.New(cacheSizeBytes) })
	return &Profiler{
		results: make([]value.TypeSet, numSlots),
		cache:   sharedCache,
	}
}

// Observe folds one sampled value into slot r's running TypeSet.
func (p *Profiler) Observe(r bytecode.Reg, v value.Value) {
	if int(r) >= len(p.results) {
		return
	}
	p.results[r] = p.results[r].Observe(v)
}

// cacheKey derives the fastcache key for a function+slot pair so
// repeated profiling runs across separately-compiled baseline units
// can still share feedback for slots that alias the same logical
// variable (e.g. a re-specialized loop body).
func cacheKey(fnName string, r bytecode.Reg) []byte {
	key := make([]byte, 0, len(fnName)+2)
	key = append(key, fnName...)
	key = append(key, byte(r), byte(r>>8))
	return key
}

// Persist snapshots the current results into the evictable cache,
// keyed by function name, so a later Profiler for the same function
// (e.g. after the function's frame was GC'd and recreated) can seed
// itself via Restore instead of re-profiling from zero.
func (p *Profiler) Persist(fnName string) {
	for r, ts := range p.results {
		if ts == 0 {
			continue
		}
		p.cache.Set(cacheKey(fnName, bytecode.Reg(r)), []byte{byte(ts), byte(ts >> 8)})
	}
}

// Restore seeds results from whatever feedback the cache still holds
// for fnName; a cache miss (evicted or never recorded) simply leaves
// that slot's TypeSet at zero, which Finish treats as "never
// specialize" — eviction only affects how soon a hot path gets
// specialized, never correctness.
func (p *Profiler) Restore(fnName string) {
	for r := range p.results {
		buf, ok := p.cache.HasGet(nil, cacheKey(fnName, bytecode.Reg(r)))
		if !ok || len(buf) < 2 {
			continue
		}
		p.results[r] = value.TypeSet(buf[0]) | value.TypeSet(buf[1])<<8
	}
}

// Finish returns the accumulated per-slot TypeSets as a
// backend.TypeProfile-ready slice.
func (p *Profiler) Finish() []value.TypeSet {
	out := make([]value.TypeSet, len(p.results))
	copy(out, p.results)
	return out
}

// Reset clears all accumulated samples, leaving the persisted cache
// entries untouched — spec.md §4.I's profile is rebuilt per
// compilation unit, not kept forever.
func (p *Profiler) Reset() {
	for i := range p.results {
		p.results[i] = 0
	}
}
