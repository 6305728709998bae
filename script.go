// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vela

import (
	"context"

	"github.com/velajs/vela/internal/bytecode"
	"github.com/velajs/vela/internal/frontend"
	"github.com/velajs/vela/internal/object"
	"github.com/velajs/vela/internal/value"
)

// RunScript compiles and runs src as a top-level script, returning its
// completion value (the last expression statement's value, per
// spec.md's script-completion semantics — internal/frontend's entry
// function already returns undefined when the script ends on a
// non-expression statement).
func (rt *Runtime) RunScript(ctx context.Context, filename, src string) (value.Value, error) {
	prog, err := frontend.Compile(rt.Strings, filename, src)
	if err != nil {
		return value.Undefined, err
	}
	return rt.runProgram(ctx, prog)
}

// runProgram wraps a compiled program's entry function as a callable
// object closing over the globals register (capture slot 0, the
// contract internal/frontend's compiler and this wiring both agree
// on) and invokes it with no arguments.
func (rt *Runtime) runProgram(ctx context.Context, prog *bytecode.Program) (value.Value, error) {
	rt.Interp.Program = prog
	entryFn := prog.Functions[prog.Entry]

	h, in := rt.Objects.New()
	in.SetWrapped(&object.FunctionData{
		Code:     entryFn,
		Captures: []value.Value{rt.globalsValue()},
	})
	entryVal := value.Object(value.ObjectPayload(h))

	return rt.Interp.Invoke(ctx, entryVal, value.Undefined, nil)
}
