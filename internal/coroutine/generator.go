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

	"github.com/velajs/vela/internal/interp"
	"github.com/velajs/vela/internal/jserr"
	"github.com/velajs/vela/internal/value"
)

// GeneratorResultKind is the outcome of one `next`/`throw` step.
type GeneratorResultKind uint8

const (
	ResultYield GeneratorResultKind = iota
	ResultReturn
	ResultError
	ResultFinished
)

// GeneratorResult mirrors rusty-js-core's GeneratorResult enum.
type GeneratorResult struct {
	Kind  GeneratorResultKind
	Value value.Value
	Err   error
}

// releaser is the subset of *semaphore.Weighted a coroutine needs to
// give back its slot once it finishes — kept as an interface so tests
// can run generators without an Executor.
type releaser interface {
	Release(int64)
}

// Generator drives one generator function body on its own goroutine
// and implements interp.CoroutineHost for it: OpYield dispatches
// inside that body call Yield, which this type answers by suspending
// the goroutine and handing the yielded value to whoever called Next.
type Generator struct {
	r        *runner
	it       *interp.Interp
	fn, this value.Value
	args     []value.Value
	sem      releaser
}

func newGenerator(it *interp.Interp, fn, this value.Value, args []value.Value, sem releaser) *Generator {
	return &Generator{r: newRunner(), it: it, fn: fn, this: this, args: args, sem: sem}
}

// Yield implements interp.CoroutineHost.
func (g *Generator) Yield(ctx context.Context, v value.Value) (value.Value, error) {
	return g.r.suspend(ctx, sigYield, v)
}

// Await implements interp.CoroutineHost; a plain generator body has no
// async executor backing it, so `await` inside one is a host error
// (spec.md names generators and async functions as the two executors,
// never one body running under both).
func (g *Generator) Await(ctx context.Context, v value.Value) (value.Value, error) {
	return value.Undefined, &jserr.HostError{Cause: fmt.Errorf("await used inside a plain generator function")}
}

// Next implements `generator.next(input)`.
func (g *Generator) Next(ctx context.Context, input value.Value) GeneratorResult {
	return g.advance(ctx, resumeMsg{value: input})
}

// Throw implements `generator.throw(x)`: x is raised as the exception
// at the generator's current suspension point.
func (g *Generator) Throw(ctx context.Context, thrown value.Value) GeneratorResult {
	return g.advance(ctx, resumeMsg{err: &jserr.ThrownValue{Value: thrown}})
}

func (g *Generator) advance(ctx context.Context, msg resumeMsg) GeneratorResult {
	if g.r.done {
		return GeneratorResult{Kind: ResultFinished}
	}

	// Only one coroutine ever actually runs at a time (runner's strict
	// rendezvous), so swapping the shared Interp's Coroutine field
	// around the blocking call below is race-free: it is read only by
	// whichever goroutine currently holds the token.
	prev := g.it.Coroutine
	g.it.Coroutine = g
	defer func() { g.it.Coroutine = prev }()

	var sig signal
	if !g.r.started {
		if msg.err != nil {
			// .throw() before any .next(): the body never runs.
			g.r.done = true
			if g.sem != nil {
				g.sem.Release(1)
			}
			return GeneratorResult{Kind: ResultError, Err: msg.err}
		}
		sig = g.r.start(ctx, func(ctx context.Context) (value.Value, error) {
			return g.it.Invoke(ctx, g.fn, g.this, g.args)
		})
	} else {
		sig = g.r.resume(ctx, msg)
	}

	if sig.kind == sigYield {
		return GeneratorResult{Kind: ResultYield, Value: sig.value}
	}

	if g.sem != nil {
		g.sem.Release(1)
	}
	if sig.err != nil {
		return GeneratorResult{Kind: ResultError, Err: sig.err}
	}
	return GeneratorResult{Kind: ResultReturn, Value: sig.value}
}
