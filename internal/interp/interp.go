// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package interp implements VELA's bytecode interpreter (spec.md
// §4.H): a single dispatch loop per function frame over the
// internal/bytecode instruction stream, driving internal/object's
// property operations and internal/heap's collector.
//
// Grounded on
// _examples/ProbeChain-go-probe/go-probe-master/probe-lang/lang/vm/vm.go's
// VM struct and Step/execute dispatch shape (fetch-decode-execute
// loop, a setReg/getReg pair, a gas/allocation-counter check that can
// halt or yield mid-run), generalized from PROBE's flat 256-register,
// gas-metered, non-GC'd machine to VELA's block-structured,
// exception-aware, GC-traced one. The Debugger hook is ported from
// _examples/original_source/rusty-js-core/src/debug/bridge.rs's
// `trait Debugger { fn on_code_run(&mut self, code: OpCode); }`.
package interp

import (
	"context"
	"fmt"

	"github.com/velajs/vela/internal/bytecode"
	"github.com/velajs/vela/internal/heap"
	"github.com/velajs/vela/internal/intern"
	"github.com/velajs/vela/internal/jserr"
	"github.com/velajs/vela/internal/object"
	"github.com/velajs/vela/internal/propkey"
	"github.com/velajs/vela/internal/value"
)

// Debugger observes every opcode the interpreter is about to execute,
// the Go-idiomatic replacement for rusty-js-core's Debugger trait
// (there is no borrow-checker forcing a single mutable observer, so a
// plain interface field on Interp suffices).
type Debugger interface {
	OnCodeRun(op bytecode.Op)
}

// NativeFunc is a host-implemented callable, installed as a
// FunctionData.Code payload alongside (or instead of) a compiled
// *bytecode.Function — spec.md §6's embedding API surface.
type NativeFunc func(ctx context.Context, this value.Value, args []value.Value) (value.Value, error)

// yieldEvery matches spec.md §4.E/§4.H's "checks the allocation
// counter periodically and voluntarily yields to the GC": every this
// many dispatched instructions, CollectIfDue runs one GC cycle.
const yieldEvery = 50000

// Interp runs compiled functions against one runtime's object store.
// It is not goroutine-safe; spec.md §5 pins one Interp (like the rest
// of the runtime context) per OS thread.
type Interp struct {
	Objects *object.Store
	Keys    *propkey.Table
	Strings *intern.StringInterner
	GC      *heap.GC
	Debugger Debugger

	// Program supplies the nested-function table OpCreateFunction
	// indexes into; set once per compiled unit before any call runs.
	Program *bytecode.Program

	// Coroutine, when non-nil, handles Yield/Await suspension for
	// generator/async function bodies (spec.md §4.J); internal/coroutine
	// installs this once its executors exist.
	Coroutine CoroutineHost

	frames []*Frame      // call stack, scanned as GC roots up to the high-water mark
	stack  []value.Value // shared value stack backing ReadFromStack/WriteToStack

	instrCount int
}

// New creates an interpreter over the given object store and
// per-runtime tables. gc may be nil (tests that never allocate past
// the slab threshold commonly do this).
func New(objects *object.Store, keys *propkey.Table, strings *intern.StringInterner, gc *heap.GC) *Interp {
	return &Interp{Objects: objects, Keys: keys, Strings: strings, GC: gc}
}

// TraceRoots implements the VM-register-stack portion of spec.md
// §4.F.1's root set: every live frame's register file, `this` binding,
// and in-flight capture array, plus the shared value stack up to its
// current high-water mark. The owning Runtime's RootScan composes this
// with the global object, template registry, and async table roots it
// alone knows about.
func (it *Interp) TraceRoots(visit func(heap.Ref)) {
	for _, f := range it.frames {
		for _, r := range f.registers {
			if ref, ok := refOf(r); ok {
				visit(ref)
			}
		}
		if ref, ok := refOf(f.this); ok {
			visit(ref)
		}
		for _, c := range f.captures {
			if ref, ok := refOf(c); ok {
				visit(ref)
			}
		}
	}
	for _, v := range it.stack {
		if ref, ok := refOf(v); ok {
			visit(ref)
		}
	}
}

func refOf(v value.Value) (heap.Ref, bool) {
	if v.IsObject() {
		return heap.Ref{Kind: heap.KindObject, Handle: heap.Handle(v.AsObject())}, true
	}
	if v.IsBigInt() {
		return heap.Ref{Kind: heap.KindBigInt, Handle: heap.Handle(v.AsBigIntIndex())}, true
	}
	return heap.Ref{}, false
}

// rootScan adapts TraceRoots to heap.RootScan.
func (it *Interp) rootScan(visit func(heap.Ref)) { it.TraceRoots(visit) }

// collectIfDue runs a GC cycle every yieldEvery dispatched
// instructions and invokes any now-due finalization callbacks — the
// interpreter is the only piece of the runtime allowed to call back
// into JS, so it (not heap.GC) owns running Due entries.
func (it *Interp) collectIfDue(ctx context.Context) error {
	if it.GC == nil || it.instrCount%yieldEvery != 0 {
		return nil
	}
	_, due := it.GC.Collect(it.rootScan)
	for _, d := range due {
		cb := value.Object(value.ObjectPayload(d.Callback.Handle))
		if _, err := it.Invoke(ctx, cb, value.Undefined, []value.Value{d.HeldValue}); err != nil {
			return err
		}
	}
	return nil
}

func (it *Interp) keyOf(v value.Value) (propkey.Key, error) {
	if !v.IsString() {
		return 0, &jserr.TypeError{Msg: "property key is not a string"}
	}
	name, ok := it.Strings.Resolve(v.AsStringID())
	if !ok {
		return 0, fmt.Errorf("interp: unresolvable string id %d", v.AsStringID())
	}
	return it.Keys.Register(name), nil
}

// toPropertyKey coerces a computed member expression's key value
// (`obj[key]`) to a property key the way ECMAScript's ToPropertyKey
// does for the two tags VELA's opcode surface can produce here:
// strings pass through, numbers format the same way Array indices and
// for-in enumeration expect ("1", not "1.0").
func (it *Interp) toPropertyKey(v value.Value) (propkey.Key, error) {
	if v.IsString() {
		return it.keyOf(v)
	}
	if v.IsNumber() {
		return it.Keys.Register(formatNumericKey(v.AsFloat64())), nil
	}
	return 0, &jserr.TypeError{Msg: "property key is not a string or number"}
}
