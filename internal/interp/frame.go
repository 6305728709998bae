// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package interp

import (
	"github.com/velajs/vela/internal/bytecode"
	"github.com/velajs/vela/internal/value"
)

// Frame holds everything spec.md §4.H says a function activation
// needs: "a register file ..., a stack pointer into the VM value
// stack, a capture-stack pointer ..., a `this` register, and an
// instruction pointer expressed as (block_id, offset_in_block)".
//
// Registers are allocated fresh per call (fn.NumRegs wide) rather than
// sliced out of one VM-wide array as the teacher's 256-register
// machine does, since VELA functions are recursively nested (a Call
// is a Go-level recursive call into Interp.callBytecode, not a
// trampolined flat loop) and each needs its own live range for the GC
// to trace independently.
type Frame struct {
	fn        *bytecode.Function
	registers []value.Value

	this value.Value

	// captures is shared with the closure's FunctionData.Captures
	// backing array (not copied), so a WriteCapture in one invocation
	// is visible to every other invocation closing over the same
	// variable, matching JS closure-by-reference semantics.
	captures []value.Value

	// stackBase is this frame's "stack pointer into the VM value
	// stack": ReadFromStack/WriteToStack offsets are relative to it.
	stackBase int

	block  bytecode.BlockID
	offset int
}
