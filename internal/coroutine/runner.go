// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package coroutine implements spec.md §4.J's generator and async
// executors: stackful coroutines driving bytecode function bodies
// that can suspend mid-execution at `yield` or `await` and resume
// later with a value (or a thrown exception) injected at the
// suspension point.
//
// Grounded on
// _examples/original_source/rusty-js-core/src/bultins/generator.rs's
// Generator/GeneratorResult (ported from corosensei::Coroutine, a
// hand-rolled stackful-coroutine library, to a goroutine paired with
// two unbuffered channels — Go's idiomatic stackful coroutine, since a
// goroutine already owns a full OS-managed stack and needs no custom
// allocator) and
// _examples/original_source/rusty-js-core/src/bultins/promise.rs's
// Promise (Pending{id}/Fulfilled/Rejected, already represented as
// internal/object.PromiseData).
package coroutine

import (
	"context"

	"github.com/velajs/vela/internal/value"
)

// signalKind distinguishes why a coroutine handed control back to its
// driver.
type signalKind uint8

const (
	sigYield signalKind = iota
	sigAwaitPending
	sigDone
)

// signal is what the coroutine's goroutine sends its driver at every
// suspension or on completion.
type signal struct {
	kind  signalKind
	value value.Value
	err   error
}

// resumeMsg is what a driver sends back into a suspended coroutine: a
// resumption value, or (for `generator.throw(x)` and a rejected
// `await`) an error to raise at the suspension point.
type resumeMsg struct {
	value value.Value
	err   error
}

// runner is the shared stackful-coroutine primitive both Generator
// and the async-call executor build on: a goroutine paired with two
// unbuffered channels enforcing strict rendezvous — exactly one side
// is ever runnable at a time, which is what lets spec.md §5's
// single-threaded cooperative model hold even though suspension is
// implemented with real goroutines.
type runner struct {
	resumeCh chan resumeMsg
	outCh    chan signal
	started  bool
	done     bool
}

func newRunner() *runner {
	return &runner{resumeCh: make(chan resumeMsg), outCh: make(chan signal)}
}

// start launches body on a new goroutine and blocks until its first
// suspension or completion.
func (r *runner) start(ctx context.Context, body func(ctx context.Context) (value.Value, error)) signal {
	r.started = true
	go func() {
		v, err := body(ctx)
		r.outCh <- signal{kind: sigDone, value: v, err: err}
	}()
	return r.wait(ctx)
}

// resume delivers msg to the suspended goroutine and blocks until its
// next suspension or completion.
func (r *runner) resume(ctx context.Context, msg resumeMsg) signal {
	r.resumeCh <- msg
	return r.wait(ctx)
}

func (r *runner) wait(ctx context.Context) signal {
	select {
	case s := <-r.outCh:
		if s.kind == sigDone {
			r.done = true
		}
		return s
	case <-ctx.Done():
		r.done = true
		return signal{kind: sigDone, err: ctx.Err()}
	}
}

// suspend is called from inside body, on the goroutine start
// launched, every time the body wants to hand control back to its
// driver (a `yield` or a pending `await`). It blocks until resume
// delivers the next value or injected error.
func (r *runner) suspend(ctx context.Context, kind signalKind, v value.Value) (value.Value, error) {
	r.outCh <- signal{kind: kind, value: v}
	select {
	case msg := <-r.resumeCh:
		return msg.value, msg.err
	case <-ctx.Done():
		return value.Undefined, ctx.Err()
	}
}
