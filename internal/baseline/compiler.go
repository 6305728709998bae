// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package baseline

import (
	"fmt"
	"math"

	"github.com/velajs/vela/internal/backend"
	"github.com/velajs/vela/internal/bytecode"
	"github.com/velajs/vela/internal/value"
)

// specializable lists the opcodes backend.mmapexec's trivial encoder
// understands — the only instructions Compile will ever hand to a
// Backend. Anything else (property access, calls, try/catch, …)
// always runs through internal/interp's dispatch loop; spec.md §4.I
// only requires baseline compilation be an optimization, never the
// only path to a correct result.
func specializable(op bytecode.Op) bool {
	switch op {
	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpNeg,
		bytecode.OpEqEq, bytecode.OpNeqEq, bytecode.OpStrictEq, bytecode.OpStrictNeq,
		bytecode.OpLt, bytecode.OpLte, bytecode.OpGt, bytecode.OpGte,
		bytecode.OpMov, bytecode.OpLoadConst, bytecode.OpReturn:
		return true
	default:
		return false
	}
}

// Compiler drives a backend.Backend over stabilised bytecode bodies,
// deciding per-function whether the accumulated profile justifies
// asking the backend to compile it at all.
type Compiler struct {
	Backend backend.Backend
}

// NewCompiler binds a Compiler to one backend.Backend implementation.
func NewCompiler(be backend.Backend) *Compiler {
	return &Compiler{Backend: be}
}

// Compile attempts to baseline-compile every block of fn, in order,
// using the samples profiler has accumulated. It returns ok=false (not an
// error) whenever the function's body contains an opcode the
// profiler-driven specialization can't help with, or whose operands
// were never observed as monomorphic Number — spec.md §4.I: "The
// compiler MUST produce correct results without the profile; the
// profile only enables type-specialisation."
func (c *Compiler) Compile(fn *bytecode.Function, profiler *Profiler) (backend.CompiledFunc, bool, error) {
	if len(fn.Blocks) == 0 {
		return backend.CompiledFunc{}, false, nil
	}

	types := profiler.Finish()
	var ir []bytecode.Instruction
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Code {
			if !specializable(inst.Op) {
				return backend.CompiledFunc{}, false, nil
			}
			if !monomorphicNumberOperands(inst, types) {
				return backend.CompiledFunc{}, false, nil
			}
			if inst.Op == bytecode.OpLoadConst {
				resolved, ok := resolveIntConstant(fn, inst)
				if !ok {
					return backend.CompiledFunc{}, false, nil
				}
				inst = resolved
			}
			ir = append(ir, inst)
		}
	}

	profile := &backend.TypeProfile{Slots: types}
	compiled, err := c.Backend.Compile(ir, profile)
	if err != nil {
		return backend.CompiledFunc{}, false, fmt.Errorf("baseline: %w", err)
	}
	return compiled, true, nil
}

// resolveIntConstant rewrites a LoadConst instruction's Imm from a
// constant-pool index to the literal int32 value it names, which is
// the form backend.mmapexec's flat encoder expects (it has no access
// to fn.Constants). Only numeric constants with an exact int32 value
// specialize; a fractional or out-of-range Number, or any non-number
// constant, makes it report false.
func resolveIntConstant(fn *bytecode.Function, inst bytecode.Instruction) (bytecode.Instruction, bool) {
	if int(inst.Imm) >= len(fn.Constants) {
		return inst, false
	}
	c := fn.Constants[inst.Imm]
	if !c.IsNumber() && !c.IsInt() {
		return inst, false
	}
	f, ok := c.AsFloat64Checked()
	if !ok {
		return inst, false
	}
	if f < math.MinInt32 || f > math.MaxInt32 || f != math.Trunc(f) {
		return inst, false
	}
	inst.Imm = int32(f)
	return inst, true
}

// monomorphicNumberOperands reports whether every register an
// instruction reads has been observed as carrying only Number values
// — the condition under which unboxed-number arithmetic is safe to
// emit in its place.
func monomorphicNumberOperands(inst bytecode.Instruction, types []value.TypeSet) bool {
	for _, r := range inst.Reads() {
		if int(r) >= len(types) {
			return false
		}
		ts := types[r]
		if ts == 0 || !ts.Monomorphic() || ts&value.TypeNumber == 0 {
			return false
		}
	}
	return true
}
