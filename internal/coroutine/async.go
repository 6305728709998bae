// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package coroutine

import (
	"context"
	"fmt"
	"sync"

	"github.com/velajs/vela/internal/heap"
	"github.com/velajs/vela/internal/interp"
	"github.com/velajs/vela/internal/jserr"
	"github.com/velajs/vela/internal/object"
	"github.com/velajs/vela/internal/value"
)

// AsyncId identifies a pending promise in a runtime's async table.
// VELA reuses the promise object's own heap handle rather than
// minting a separate counter: spec.md only requires "id identifies a
// pending entry in the runtime's async table", and a promise's handle
// is already a stable, unique key for that.
type AsyncId = heap.Handle

// AsyncTable tracks which in-flight async call (if any) is suspended
// awaiting each pending promise, so the host event loop's Resolve call
// knows who to wake once that promise settles.
type AsyncTable struct {
	mu      sync.Mutex
	waiters map[AsyncId]*asyncCall
}

// NewAsyncTable creates an empty table; one per runtime (spec.md
// §4.L names the async table as part of the runtime context).
func NewAsyncTable() *AsyncTable {
	return &AsyncTable{waiters: make(map[AsyncId]*asyncCall)}
}

func (t *AsyncTable) register(id AsyncId, call *asyncCall) {
	t.mu.Lock()
	t.waiters[id] = call
	t.mu.Unlock()
}

// Resolve wakes whichever async call is suspended awaiting id,
// delivering v as the resumed value (rejected=false) or as a thrown
// exception at the await point (rejected=true). A no-op if nothing is
// currently awaiting id — e.g. the promise settled before anyone
// awaited it, which the synchronous fast path in asyncCall.Await
// already handles without ever registering here.
func (t *AsyncTable) Resolve(ctx context.Context, id AsyncId, v value.Value, rejected bool) {
	t.mu.Lock()
	call, ok := t.waiters[id]
	if ok {
		delete(t.waiters, id)
	}
	t.mu.Unlock()
	if !ok {
		return
	}
	msg := resumeMsg{value: v}
	if rejected {
		msg.err = &jserr.ThrownValue{Value: v}
	}
	call.advance(ctx, msg)
}

// asyncCall drives one async function invocation. Calling an async
// function returns a Promise to its caller immediately — spec.md
// §4.J's "if pending, the current coroutine suspends" describes the
// *awaiter's* suspension, not the callee's; the callee keeps running
// on its own goroutine, settling its own Promise in place once the
// body either completes or blocks on an unresolved `await`.
type asyncCall struct {
	r       *runner
	it      *interp.Interp
	objects *object.Store
	table   *AsyncTable
	promise heap.Handle
	sem     releaser
}

// Await implements interp.CoroutineHost for the goroutine running this
// call's body.
func (a *asyncCall) Await(ctx context.Context, v value.Value) (value.Value, error) {
	if !v.IsObject() {
		return v, nil // non-promise values complete immediately
	}
	h := heap.Handle(v.AsObject())
	in := a.objects.Resolve(h)
	wrapped, kind := in.Wrapped()
	if kind != object.WrappedPromise {
		return v, nil
	}
	pd := wrapped.(*object.PromiseData)
	switch pd.State {
	case object.PromiseFulfilled:
		return pd.Result, nil
	case object.PromiseRejected:
		return value.Undefined, &jserr.ThrownValue{Value: pd.Result}
	}
	a.table.register(h, a)
	return a.r.suspend(ctx, sigAwaitPending, v)
}

// Yield implements interp.CoroutineHost; an async function body has no
// generator executor backing it.
func (a *asyncCall) Yield(ctx context.Context, v value.Value) (value.Value, error) {
	return value.Undefined, &jserr.HostError{Cause: fmt.Errorf("yield used inside a non-generator async function")}
}

func (a *asyncCall) advance(ctx context.Context, msg resumeMsg) {
	// it.Coroutine must name this call for the whole time its goroutine
	// might touch it — not just while this one resume is in flight — so
	// the swap brackets the blocking call exactly like Generator.advance
	// does, and is race-free for the same reason: runner's rendezvous
	// guarantees only one goroutine is ever actually running JS.
	prev := a.it.Coroutine
	a.it.Coroutine = a
	sig := a.r.resume(ctx, msg)
	a.it.Coroutine = prev

	if sig.kind == sigDone {
		a.settle(sig)
	}
	// sigAwaitPending: Await already re-registered this call against
	// its new AsyncId before suspending again; nothing more to do
	// until that promise's own Resolve call arrives.
}

func (a *asyncCall) settle(sig signal) {
	if a.sem != nil {
		a.sem.Release(1)
	}
	in := a.objects.Resolve(a.promise)
	wrapped, _ := in.Wrapped()
	pd := wrapped.(*object.PromiseData)
	if sig.err != nil {
		pd.State = object.PromiseRejected
		pd.Result = errorResultValue(a.objects, sig.err)
		return
	}
	pd.State = object.PromiseFulfilled
	pd.Result = sig.value
}

// errorResultValue converts a Go error into the value an async
// function's rejected promise carries: a *jserr.ThrownValue unwraps to
// its carried Value verbatim (round-tripping `throw v`); anything else
// becomes a fresh WrappedErrorBox, mirroring internal/interp's
// errorToValue since neither package may import the other's private
// helper.
func errorResultValue(objects *object.Store, err error) value.Value {
	if tv, ok := err.(*jserr.ThrownValue); ok {
		if v, ok := tv.Value.(value.Value); ok {
			return v
		}
	}
	h, in := objects.New()
	in.SetWrapped(&object.ErrorBoxData{Name: "Error", Message: err.Error()})
	return value.Object(value.ObjectPayload(h))
}

// RunAsync starts fn as an async function call: it allocates the
// pending Promise object, runs the body up to its first suspension or
// completion, and returns that Promise (settled already, if the body
// never hit a pending await).
func (e *Executor) RunAsync(ctx context.Context, it *interp.Interp, objects *object.Store, table *AsyncTable, fn, this value.Value, args []value.Value) (value.Value, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return value.Undefined, err
	}

	promH, promIn := objects.New()
	promIn.SetWrapped(&object.PromiseData{State: object.PromisePending})
	promVal := value.Object(value.ObjectPayload(promH))

	call := &asyncCall{r: newRunner(), it: it, objects: objects, table: table, promise: promH, sem: e.sem}

	prev := it.Coroutine
	it.Coroutine = call
	sig := call.r.start(ctx, func(ctx context.Context) (value.Value, error) {
		return it.Invoke(ctx, fn, this, args)
	})
	it.Coroutine = prev

	if sig.kind == sigDone {
		call.settle(sig)
	}
	return promVal, nil
}
