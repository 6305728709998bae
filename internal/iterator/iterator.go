// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package iterator implements spec.md §4.K's FastIterator: the three
// paths `for..of`, spread, destructuring, and Array.from all share —
// a dense-array index walk, a string code-point walk, and the general
// `@@iterator`/`next()` protocol fallback.
//
// Grounded on
// _examples/ProbeChain-go-probe/go-probe-master/probe-lang/lang/vm/opcodes.go's
// iteration opcode family (FOR_OF_INIT/FOR_OF_NEXT move the same
// three-way dispatch into the VM's own switch; VELA instead gives it
// a home as a standalone package so internal/interp's dispatch loop
// stays a thin per-opcode shim) and spec.md §4.D's Array dense-vector
// fast path.
package iterator

import (
	"context"
	"unicode/utf8"

	"github.com/velajs/vela/internal/heap"
	"github.com/velajs/vela/internal/intern"
	"github.com/velajs/vela/internal/jserr"
	"github.com/velajs/vela/internal/object"
	"github.com/velajs/vela/internal/propkey"
	"github.com/velajs/vela/internal/value"
)

// path names which of the three strategies a State was built with.
type path uint8

const (
	pathArray path = iota
	pathString
	pathGeneral
)

// State is the opaque per-iteration cursor installed as a
// WrappedCustomHost payload so it can live in an ordinary register
// (spec.md keeps every live value inside the tagged Value union; a
// bare Go struct cannot be held in a register directly).
type State struct {
	path path

	arr *object.ArrayData
	idx int

	str       string
	strOffset int

	iterObj value.Value // general path: the object whose next() is called each step
}

// Engine resolves the iterator-key lookup and drives next() calls; it
// needs the runtime's property-key table (to resolve the well-known
// Symbol.iterator key by its canonical name) and an invoker to call
// into JS for the general path, mirroring internal/object's dependency
// -inversion Invoker pattern.
type Engine struct {
	Objects *object.Store
	Keys    *propkey.Table
	Strings *intern.StringInterner
}

// New creates an Engine bound to one runtime's stores.
func New(objects *object.Store, keys *propkey.Table, strings *intern.StringInterner) *Engine {
	return &Engine{Objects: objects, Keys: keys, Strings: strings}
}

// symbolIteratorKey is the canonical property-key name a frontend
// compiles `obj[Symbol.iterator]` down to — spec.md §4.C's table maps
// arbitrary names to stable ids, so the well-known symbol's own
// description string doubles as its property-key name.
const symbolIteratorKey = "Symbol.iterator"

// Init implements spec.md §4.K's dispatch: dense array and string
// values get their fast path; everything else falls back to looking
// up and calling `@@iterator`.
func (e *Engine) Init(ctx context.Context, iterable value.Value, invoke object.Invoker) (*State, error) {
	if iterable.IsString() {
		s, ok := e.Strings.Resolve(iterable.AsStringID())
		if !ok {
			return nil, &jserr.InvalidIterator{Msg: "unresolvable string id"}
		}
		return &State{path: pathString, str: s}, nil
	}

	if iterable.IsObject() {
		h := heap.Handle(iterable.AsObject())
		in := e.Objects.Resolve(h)
		if arr, ok := in.AsArray(); ok {
			return &State{path: pathArray, arr: arr}, nil
		}

		key := e.Keys.Register(symbolIteratorKey)
		iterFn, err := e.Objects.GetProperty(ctx, h, key, iterable, invoke)
		if err != nil {
			return nil, err
		}
		if iterFn.IsUndefined() {
			return nil, &jserr.InvalidIterator{Msg: "value is not iterable"}
		}
		iterObj, err := invoke(ctx, iterFn, iterable, nil)
		if err != nil {
			return nil, err
		}
		if !iterObj.IsObject() {
			return nil, &jserr.InvalidIterator{Msg: "@@iterator did not return an object"}
		}
		return &State{path: pathGeneral, iterObj: iterObj}, nil
	}

	return nil, &jserr.InvalidIterator{Msg: "value is not iterable"}
}

// Next advances the cursor one step, returning the iterated value and
// whether iteration is complete.
func (e *Engine) Next(ctx context.Context, st *State, invoke object.Invoker) (v value.Value, done bool, err error) {
	switch st.path {
	case pathArray:
		if st.idx >= st.arr.Length() {
			return value.Undefined, true, nil
		}
		v = st.arr.Get(st.idx)
		st.idx++
		return v, false, nil

	case pathString:
		if st.strOffset >= len(st.str) {
			return value.Undefined, true, nil
		}
		r, size := utf8.DecodeRuneInString(st.str[st.strOffset:])
		st.strOffset += size
		id := e.Strings.Intern(string(r))
		return value.Str(id), false, nil

	case pathGeneral:
		return e.nextGeneral(ctx, st, invoke)

	default:
		return value.Undefined, true, &jserr.InvalidIterator{Msg: "invalid iterator state"}
	}
}

func (e *Engine) nextGeneral(ctx context.Context, st *State, invoke object.Invoker) (value.Value, bool, error) {
	h := heap.Handle(st.iterObj.AsObject())
	nextFn, err := e.Objects.GetProperty(ctx, h, propkey.Next, st.iterObj, invoke)
	if err != nil {
		return value.Undefined, true, err
	}
	result, err := invoke(ctx, nextFn, st.iterObj, nil)
	if err != nil {
		return value.Undefined, true, err
	}
	if !result.IsObject() {
		return value.Undefined, true, &jserr.InvalidIterator{Msg: "iterator result is not an object"}
	}
	resH := heap.Handle(result.AsObject())
	doneVal, err := e.Objects.GetProperty(ctx, resH, propkey.Done, result, invoke)
	if err != nil {
		return value.Undefined, true, err
	}
	if doneVal.ToBool(nil, nil) {
		return value.Undefined, true, nil
	}
	val, err := e.Objects.GetProperty(ctx, resH, propkey.Value, result, invoke)
	if err != nil {
		return value.Undefined, true, err
	}
	return val, false, nil
}
