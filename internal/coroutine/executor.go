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

	"golang.org/x/sync/semaphore"

	"github.com/velajs/vela/internal/interp"
	"github.com/velajs/vela/internal/value"
)

// Executor caps the number of live stackful coroutines (generators
// plus in-flight async calls) one runtime may hold open at once.
// spec.md §9 flags "one reserved stack per live generator" as an
// implementation choice; a goroutine's stack is cheap but not free, so
// VELA still bounds concurrent live coroutines rather than letting an
// adversarial script spawn unboundedly many.
type Executor struct {
	sem *semaphore.Weighted
}

// NewExecutor creates an Executor allowing at most maxLiveCoroutines
// generators and async calls to be suspended at once.
func NewExecutor(maxLiveCoroutines int64) *Executor {
	return &Executor{sem: semaphore.NewWeighted(maxLiveCoroutines)}
}

// NewGenerator creates (but does not start) a generator bound to fn,
// acquiring one of the executor's coroutine slots; the slot is
// released once the generator runs to completion or errors.
func (e *Executor) NewGenerator(ctx context.Context, it *interp.Interp, fn, this value.Value, args []value.Value) (*Generator, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return newGenerator(it, fn, this, args, e.sem), nil
}
