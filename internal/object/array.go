// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package object

import (
	"github.com/velajs/vela/internal/jserr"
	"github.com/velajs/vela/internal/value"
)

// AsArray returns the ArrayData if in's wrapped value is an Array,
// else nil/false. Callers use this to decide whether an integer key
// should take the dense-vector fast path or fall through to the
// ordinary property map (spec.md §4.D: "When the wrapped value is
// Array, integer-keyed accesses go to a dense vector; other keys use
// the property map.").
func (in *Inner) AsArray() (*ArrayData, bool) {
	if in.wrappedKind != WrappedArray {
		return nil, false
	}
	return in.wrapped.(*ArrayData), true
}

// NewArray installs a fresh, empty ArrayData as in's wrapped value.
func (in *Inner) NewArray() *ArrayData {
	a := &ArrayData{}
	in.SetWrapped(a)
	return a
}

// Push appends v and returns the new length, spec.md §4.D's `push`.
func (a *ArrayData) Push(v value.Value) int {
	a.Dense = append(a.Dense, v)
	return len(a.Dense)
}

// Pop removes and returns the last element, or Undefined if empty,
// spec.md §4.D's `pop`.
func (a *ArrayData) Pop() value.Value {
	n := len(a.Dense)
	if n == 0 {
		return value.Undefined
	}
	v := a.Dense[n-1]
	a.Dense = a.Dense[:n-1]
	return v
}

// Length returns the array's current element count, spec.md §4.D's
// `length`.
func (a *ArrayData) Length() int { return len(a.Dense) }

// Get returns the element at idx, or Undefined if idx is out of
// range (a JS array read past the end yields undefined, not an
// error).
func (a *ArrayData) Get(idx int) value.Value {
	if idx < 0 || idx >= len(a.Dense) {
		return value.Undefined
	}
	return a.Dense[idx]
}

// Set writes v at idx, growing Dense with Undefined holes if idx is
// past the current length (a sparse-looking but still dense-backed
// write, matching the fast path's scope: spec.md's Non-goals exclude
// a true sparse-array representation).
func (a *ArrayData) Set(idx int, v value.Value) error {
	if idx < 0 {
		return &jserr.RangeError{Msg: "invalid array index"}
	}
	for idx >= len(a.Dense) {
		a.Dense = append(a.Dense, value.Undefined)
	}
	a.Dense[idx] = v
	return nil
}
