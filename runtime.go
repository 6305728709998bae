// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package vela is the runtime context spec.md §4.L describes: the
// object store, property-key table, string interner, collector,
// interpreter and coroutine executor one conforming ES2022 runtime
// needs, plus the embedding API (spec.md §6) a host program drives it
// through.
//
// Grounded on
// _examples/ProbeChain-go-probe/go-probe-master/probe-lang/lang/vm/vm.go's
// New/Run shape, generalized from one VM instance per contract call
// to one Runtime per embedding host, carrying everything the
// teacher's flat VM struct held (registers, gas, halted) plus the
// object graph, GC and
// coroutine machinery a register VM never needed.
package vela

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/velajs/vela/internal/bytecode"
	"github.com/velajs/vela/internal/coroutine"
	"github.com/velajs/vela/internal/frontend"
	"github.com/velajs/vela/internal/heap"
	"github.com/velajs/vela/internal/intern"
	"github.com/velajs/vela/internal/interp"
	"github.com/velajs/vela/internal/object"
	"github.com/velajs/vela/internal/propkey"
	"github.com/velajs/vela/internal/rtconfig"
	"github.com/velajs/vela/internal/value"
	"github.com/velajs/vela/internal/vlog"
)

// ImportResolver loads the compiled program a dynamic `import()`
// names (spec.md §1's in-scope module slice: assertion parsing plus
// import() itself, not full module linking). Runtime.Import collapses
// concurrent requests for the same specifier into one resolver call
// via singleflight, so a script that fires off ten `import("./x")`
// calls before any of them settle only resolves "./x" once.
type ImportResolver func(ctx context.Context, specifier string, assertions map[string]string) (*bytecode.Program, error)

// Runtime is one conforming ES2022 execution context: spec.md §5 pins
// exactly one of these per OS thread, sharing only the process-wide
// string interner with any sibling Runtime.
type Runtime struct {
	ID uuid.UUID

	Config  rtconfig.Config
	Strings *intern.StringInterner
	Keys    *propkey.Table
	Objects *object.Store
	GC      *heap.GC
	Interp  *interp.Interp

	Executor *coroutine.Executor
	Async    *coroutine.AsyncTable

	Globals heap.Handle

	ImportResolver ImportResolver
	importGroup    singleflight.Group

	Log *vlog.Logger

	mu        sync.Mutex
	templates map[string]*bytecode.Program
}

// New constructs a Runtime. cfg may be nil to use rtconfig.Default().
// strings may be nil to give the Runtime its own interner; pass a
// shared one to let multiple Runtimes agree on string ids (spec.md
// §5's shared-resource policy).
func New(cfg *rtconfig.Config, strings *intern.StringInterner) *Runtime {
	c := rtconfig.Default()
	if cfg != nil {
		c = *cfg
	}
	if strings == nil {
		strings = intern.NewStringInterner()
	}

	keys := propkey.NewTable()

	// objects' onThreshold callback needs to call back into gc/it,
	// neither of which exists yet (object.NewStore must run first to
	// build objects, which interp.New and heap.NewGC both need) — the
	// three are tied together through forward-declared closures rather
	// than restructured constructors, mirroring how the teacher's own
	// VM.New wires its resourceState fields before the first Step call
	// can reference them.
	var gc *heap.GC
	var it *interp.Interp
	objects := object.NewStore(func() {
		if gc == nil || it == nil {
			return
		}
		if _, due := gc.Collect(it.TraceRoots); len(due) > 0 {
			// Allocation-triggered collection runs outside any dispatch
			// loop, so there is no context.Context to invoke a due
			// finalizer callback with; it.collectIfDue's own periodic
			// check (every yieldEvery dispatched instructions) is what
			// actually drains FinalizeRegistry callbacks during a call.
			_ = due
		}
	})
	gc = heap.NewGC(map[heap.Kind]heap.Space{heap.KindObject: objects}, heap.NewFinalizeRegistry())
	it = interp.New(objects, keys, strings, gc)

	rt := &Runtime{
		ID:        uuid.New(),
		Config:    c,
		Strings:   strings,
		Keys:      keys,
		Objects:   objects,
		GC:        gc,
		Interp:    it,
		Executor:  coroutine.NewExecutor(c.MaxLiveCoroutines),
		Async:     coroutine.NewAsyncTable(),
		Log:       vlog.Default(),
		templates: make(map[string]*bytecode.Program),
	}
	rt.Globals = rt.setupGlobals()
	return rt
}

// RootScan composes the interpreter's own frame/register roots with
// the ones only the Runtime knows about: the global object and the
// template registry (spec.md §4.F.1's full root set; finalization-
// registry held values and the async queue are already reachable
// through Objects' own graph once registered).
func (rt *Runtime) RootScan(visit func(heap.Ref)) {
	rt.Interp.TraceRoots(visit)
	visit(heap.Ref{Kind: heap.KindObject, Handle: rt.Globals})
	// Registered templates hold no heap.Handles themselves — their
	// constants are value.Value, interned strings/numbers, not object
	// references — so the template registry needs no root-scan entry
	// of its own beyond what Globals already reaches.
}

// globalsValue returns the globals object as a callable/readable
// Value, the way every compiled entry function's capture slot 0 holds
// it.
func (rt *Runtime) globalsValue() value.Value {
	return value.Object(value.ObjectPayload(rt.Globals))
}

// RegisterTemplate compiles src under name and keeps the result for
// repeated Run calls without recompiling (spec.md §4.L's "template
// registry": precompiled, reusable program objects, analogous to a
// prepared statement).
func (rt *Runtime) RegisterTemplate(name, filename, src string) error {
	prog, err := frontend.Compile(rt.Strings, filename, src)
	if err != nil {
		return err
	}
	rt.mu.Lock()
	rt.templates[name] = prog
	rt.mu.Unlock()
	return nil
}

// RunTemplate executes a previously registered template.
func (rt *Runtime) RunTemplate(ctx context.Context, name string) (value.Value, error) {
	rt.mu.Lock()
	prog, ok := rt.templates[name]
	rt.mu.Unlock()
	if !ok {
		return value.Undefined, fmt.Errorf("vela: no template registered under %q", name)
	}
	return rt.runProgram(ctx, prog)
}

// Import resolves specifier through rt.ImportResolver, collapsing
// concurrent requests for the same specifier via singleflight —
// spec.md §1's dynamic import() slice, made concurrency-safe the way
// the teacher's go.mod dependency on golang.org/x/sync already
// intends (probe-lang's own VM is single-threaded and never needed
// this; a JS runtime's import() routinely does).
func (rt *Runtime) Import(ctx context.Context, specifier string, assertions map[string]string) (value.Value, error) {
	if rt.ImportResolver == nil {
		return value.Undefined, fmt.Errorf("vela: no ImportResolver configured")
	}
	v, err, _ := rt.importGroup.Do(specifier, func() (any, error) {
		prog, err := rt.ImportResolver(ctx, specifier, assertions)
		if err != nil {
			return nil, err
		}
		return rt.runProgram(ctx, prog)
	})
	if err != nil {
		return value.Undefined, err
	}
	return v.(value.Value), nil
}

// --- Current-runtime attachment ---------------------------------------
//
// spec.md §5 pins one Runtime per OS thread. Go has no portable
// thread-local storage, so Attach models that pin explicitly instead
// of faking one: Attach locks the calling goroutine to its OS thread
// and records rt in a process-wide attachment table; the returned
// Detacher reverses both. No Current accessor reads the table back
// (see the note below Attach). This is a deliberate simplification of true TLS —
// it only tracks one Runtime per locked goroutine, not an arbitrary
// OS thread an unlocked goroutine might later be rescheduled onto —
// but matches the common embedding pattern of one goroutine driving
// one Runtime for its lifetime.

var (
	attachedMu sync.Mutex
	attached   = map[int64]*Runtime{}
)

// Detacher undoes one Attach: it removes that Attach's entry from the
// attachment table and unlocks the OS thread. Go exposes no
// per-goroutine identity to key the table by, so Attach hands the
// caller this explicit closure instead of relying on any hidden
// identity.
type Detacher func()

// Attach locks the calling goroutine to its current OS thread and
// keeps rt in the attachment table until the returned Detacher runs.
func (rt *Runtime) Attach() Detacher {
	runtime.LockOSThread()
	attachedMu.Lock()
	token := int64(len(attached)) + 1
	for attached[token] != nil {
		token++
	}
	attached[token] = rt
	attachedMu.Unlock()
	return func() {
		attachedMu.Lock()
		delete(attached, token)
		attachedMu.Unlock()
		runtime.UnlockOSThread()
	}
}

// Current is unsupported without a real thread-local primitive; hosts
// needing ambient access to "the runtime that called me" should
// thread a *Runtime through context.Context instead (idiomatic Go,
// and what internal/interp's NativeFunc signature already takes a
// context.Context for). Attach/Detach above exist for the embedding
// API spec.md §6 asks for, but package vela never relies on Current
// internally — every internal call path threads *Runtime or *Interp
// explicitly.
