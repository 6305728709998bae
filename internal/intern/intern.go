// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package intern implements VELA's string, UTF-16 and symbol
// interners (spec.md §4.B). The string interner is the one piece of
// state shared across runtimes in the same process (spec.md §5,
// "Shared-resource policy"); everything else here is runtime-local.
package intern

import (
	"sync"
)

// StringInterner deduplicates byte-slice strings into stable,
// monotonically-assigned 32-bit ids. Ids are never reused, matching
// spec.md §3's invariant "Interned string ids are monotonically
// assigned and never reused". Reads of an already-known id take only
// the RWMutex's shared read lock, so concurrent readers do not block
// one another, per spec.md §5's shared-resource policy.
type StringInterner struct {
	mu      sync.RWMutex
	byValue map[string]uint32
	byID    []string
}

// NewStringInterner creates an empty interner.
func NewStringInterner() *StringInterner {
	return &StringInterner{
		byValue: make(map[string]uint32, 256),
	}
}

// Intern returns s's stable id, assigning a new one if s has not been
// seen before.
func (si *StringInterner) Intern(s string) uint32 {
	si.mu.RLock()
	if id, ok := si.byValue[s]; ok {
		si.mu.RUnlock()
		return id
	}
	si.mu.RUnlock()

	si.mu.Lock()
	defer si.mu.Unlock()
	// re-check under the write lock: another writer may have interned
	// the same string between the RUnlock above and this Lock.
	if id, ok := si.byValue[s]; ok {
		return id
	}
	id := uint32(len(si.byID))
	si.byID = append(si.byID, s)
	si.byValue[s] = id
	return id
}

// Resolve returns the string stored at id. ok is false for an id that
// was never assigned.
func (si *StringInterner) Resolve(id uint32) (string, bool) {
	si.mu.RLock()
	defer si.mu.RUnlock()
	if int(id) >= len(si.byID) {
		return "", false
	}
	return si.byID[id], true
}

// Len reports how many distinct strings have been interned.
func (si *StringInterner) Len() int {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return len(si.byID)
}
