// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package object

import "github.com/holiman/bloomfilter/v2"

// bloomM/bloomK size a per-object bloom filter for a handful of own
// keys: cheap enough to carry on every object with at least one
// property, small enough that a has_property miss short-circuits
// before a map probe without measurable memory pressure.
const (
	bloomM = 256
	bloomK = 3
)

// keyBloom wraps holiman/bloomfilter/v2 for negative has_property
// lookups. Since a propkey.Key's id *is* its own identity hash
// (spec.md §3), it is fed to Add/Contains directly with no byte-slice
// marshalling.
type keyBloom struct {
	f *bloomfilter.Filter
}

func newKeyBloom() *keyBloom {
	f, err := bloomfilter.New(bloomM, bloomK)
	if err != nil {
		// bloomM/bloomK are fixed constants known to be valid; a
		// construction error here means the constants themselves are
		// wrong, not a runtime condition callers can recover from.
		panic(err)
	}
	return &keyBloom{f: f}
}

func (b *keyBloom) add(k uint32)             { b.f.Add(uint64(k)) }
func (b *keyBloom) mayContain(k uint32) bool { return b.f.Contains(uint64(k)) }

// ensureBloom lazily creates in.bloom on first property insertion so
// objects that never gain an own property (most prototypes at parse
// time, most primitives-as-object wrappers) never pay for one.
func (in *Inner) ensureBloom() *keyBloom {
	if in.bloom == nil {
		in.bloom = newKeyBloom()
	}
	return in.bloom
}
