// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package backend declares the external collaborator contract spec.md
// §4.I leaves unspecified: "any engine that consumes a simple SSA IR
// and returns executable memory". internal/baseline is the only
// caller of Backend; internal/backend/mmapexec is VELA's own
// reference implementation of it.
//
// Grounded on
// _examples/ProbeChain-go-probe/go-probe-master/probe-lang/lang/codegen/codegen.go's
// Generator (IR walk → 4-byte encoded instruction stream with a
// label/patch table for forward branches) for the shape Compile's
// callers expect, generalized so the "instruction stream" a real
// machine-code backend would JIT from is swapped in behind the same
// interface VELA's own trivial backend also implements.
package backend

import (
	"github.com/velajs/vela/internal/bytecode"
	"github.com/velajs/vela/internal/value"
)

// TypeProfile is the per-operand-slot observed-type summary the
// baseline compiler hands a Backend so it can decide where unboxed
// specialization is legal (spec.md §4.I: "the profile only enables
// type-specialisation... the compiler MUST produce correct results
// without the profile"). Slot indices line up with Instruction.A/B/C
// register numbers within the function being compiled.
type TypeProfile struct {
	Slots []value.TypeSet
}

// Observed reports the TypeSet recorded for register slot r, or zero
// (no observations, meaning the backend must not specialize it) if r
// is out of range.
func (p *TypeProfile) Observed(r bytecode.Reg) value.TypeSet {
	if p == nil || int(r) >= len(p.Slots) {
		return 0
	}
	return p.Slots[r]
}

// ExecFunc is a baseline-compiled function's entry point, matching
// spec.md §4.I's function-pointer signature verbatim: `(this,
// &runtime, stack_ptr, argc, capture_stack) → (Value, is_error)`.
// Runtime is passed through opaquely — Backend implementations never
// look inside it, only the interpreter that supplies and consumes it
// does — so a Backend has no import-time dependency on internal/interp.
type ExecFunc func(this value.Value, runtime any, stackPtr, argc int, captures []value.Value) (result value.Value, isError bool)

// CompiledFunc is what a successful Compile produces: the callable
// entry point plus the backing executable memory, kept alive here so
// the caller can release it (e.g. unmap the page) once the function is
// no longer reachable.
type CompiledFunc struct {
	Entry ExecFunc
	Code  []byte // the underlying executable-memory-backed byte stream
}

// Backend compiles a stabilised bytecode body, plus whatever profile
// the baseline compiler has accumulated for it, into an executable
// CompiledFunc. Implementations decide for themselves what "SSA IR"
// means and how "executable memory" is produced; VELA's own
// mmapexec.Backend treats the instruction stream itself as the
// "native code" (see its package doc for why).
type Backend interface {
	Compile(ir []bytecode.Instruction, profile *TypeProfile) (CompiledFunc, error)
}
