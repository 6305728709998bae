// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package object

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/velajs/vela/internal/propkey"
)

// shapeCacheSize bounds how many distinct hidden-class layouts VELA
// memoizes at once; scripts that mint thousands of structurally
// distinct object literals simply evict the coldest shapes rather
// than growing the cache unbounded.
const shapeCacheSize = 4096

// Shape canonicalizes one ordered own-key layout: every object built
// through the same sequence of property additions (a JS "hidden
// class") converges on the same *Shape pointer, so callers can
// compare shapes by identity instead of by walking key slices.
type Shape struct {
	Keys []propkey.Key
	hash uint64
}

// ShapeCache memoizes Shape values keyed by their ordered key-id
// slice hash (DESIGN.md: "hidden-class/shape → property-layout
// memoization"), backed by hashicorp/golang-lru so a runaway number
// of one-off shapes (e.g. objects built with computed keys in a
// tight loop) can't pin unbounded memory.
type ShapeCache struct {
	cache *lru.Cache
}

// NewShapeCache creates a cache holding up to shapeCacheSize shapes.
func NewShapeCache() *ShapeCache {
	c, err := lru.New(shapeCacheSize)
	if err != nil {
		// size is a positive compile-time constant; lru.New only errors
		// on size<=0.
		panic(err)
	}
	return &ShapeCache{cache: c}
}

func hashKeys(keys []propkey.Key) uint64 {
	// FNV-1a over the key-id sequence: order-sensitive, which matches
	// "shape" meaning a specific property-addition order, not just a
	// property set.
	var h uint64 = 1469598103934665603
	for _, k := range keys {
		h ^= uint64(k)
		h *= 1099511628211
	}
	return h
}

// Lookup returns the canonical *Shape for keys, creating and caching
// one if this exact ordered key sequence has not been seen before.
// The returned Shape's Keys slice is owned by the cache; callers must
// not mutate it.
func (sc *ShapeCache) Lookup(keys []propkey.Key) *Shape {
	h := hashKeys(keys)
	if v, ok := sc.cache.Get(h); ok {
		if s := v.(*Shape); keysEqual(s.Keys, keys) {
			return s
		}
		// hash collision between two distinct key sequences: fall
		// through and mint a distinct Shape anyway, just without caching
		// it under the colliding slot so Lookup stays correct (just
		// loses a bit of memoization).
		s := &Shape{Keys: append([]propkey.Key(nil), keys...), hash: h}
		return s
	}
	s := &Shape{Keys: append([]propkey.Key(nil), keys...), hash: h}
	sc.cache.Add(h, s)
	return s
}

func keysEqual(a, b []propkey.Key) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Len reports how many distinct shapes are currently cached.
func (sc *ShapeCache) Len() int { return sc.cache.Len() }
