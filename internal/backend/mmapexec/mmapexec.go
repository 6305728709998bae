// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package mmapexec is VELA's reference backend.Backend: it allocates
// a read/write-executable page via the host memory-mapping facility,
// the concrete mechanism spec.md §4.I calls out, and stores the
// compiled function's code there.
//
// No real machine-code backend is in scope (spec.md §1 only requires
// that *a* Backend contract exist, not a JIT); this Backend's "native
// code" is its input instruction stream re-encoded into a 4-byte
// [opcode|a|b|c] wire format (an 8-byte [opcode|a|0|0][imm32] form for
// LoadConst), the same fixed-width encode-then-store approach
// _examples/ProbeChain-go-probe/go-probe-master/probe-lang/lang/codegen/codegen.go's
// Generator uses for its own [opcode|a|b|c]/[opcode|a|imm16]
// instructions. The
// returned ExecFunc decodes that stream and dispatches it directly
// rather than jumping into it as machine code — it is exercised the
// same way a real JIT's output would be (through backend.ExecFunc),
// but the bytes it stores in the mmap'd page are never actually
// executed by the processor. Swapping this package for one that emits
// real machine code requires no change to internal/baseline.
package mmapexec

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/sys/unix"

	"github.com/velajs/vela/internal/backend"
	"github.com/velajs/vela/internal/bytecode"
	"github.com/velajs/vela/internal/value"
)

// pageSize rounds every allocation up to the host page size; mmap
// refuses any other granularity.
const pageSize = 4096

// Backend is the mmap-backed reference implementation of
// backend.Backend.
type Backend struct{}

// New creates a mmap-backed Backend.
func New() *Backend { return &Backend{} }

// Compile encodes ir into the wire format and stores it in a freshly
// mmap'd RWX page, then returns an ExecFunc that decodes and runs it.
func (b *Backend) Compile(ir []bytecode.Instruction, profile *backend.TypeProfile) (backend.CompiledFunc, error) {
	code, err := encode(ir)
	if err != nil {
		return backend.CompiledFunc{}, err
	}

	page, err := allocPage(len(code))
	if err != nil {
		return backend.CompiledFunc{}, fmt.Errorf("mmapexec: %w", err)
	}
	copy(page, code)

	entry := func(this value.Value, runtime any, stackPtr, argc int, captures []value.Value) (value.Value, bool) {
		return run(page[:len(code)], profile, this, argc, captures)
	}

	return backend.CompiledFunc{Entry: entry, Code: page[:len(code)]}, nil
}

// allocPage maps a page-aligned, read-write-executable region of at
// least n bytes — spec.md §4.I's "allocates a read/write-executable
// page via the host memory-mapping facility".
func allocPage(n int) ([]byte, error) {
	size := ((n + pageSize - 1) / pageSize) * pageSize
	if size == 0 {
		size = pageSize
	}
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}
	return mem, nil
}

// encode walks ir once, emitting each instruction's 4-byte-equivalent
// form (ported from codegen.Generator.generateInstruction's switch,
// minus the IR-to-register-allocation step VELA's bytecode already
// performs at build time). internal/baseline only ever hands this
// Backend a straight-line, profiled-monomorphic-Number instruction
// sequence (spec.md §4.I's specialization scope), so there is no
// control flow — and hence no forward-branch patch table — to encode.
func encode(ir []bytecode.Instruction) ([]byte, error) {
	var code []byte

	for _, inst := range ir {
		switch inst.Op {
		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod,
			bytecode.OpEqEq, bytecode.OpNeqEq, bytecode.OpStrictEq, bytecode.OpStrictNeq,
			bytecode.OpLt, bytecode.OpLte, bytecode.OpGt, bytecode.OpGte:
			code = append(code, byte(inst.Op), byte(inst.A), byte(inst.B), byte(inst.C))
		case bytecode.OpNeg, bytecode.OpMov:
			code = append(code, byte(inst.Op), byte(inst.A), byte(inst.B), 0)
		case bytecode.OpLoadConst:
			code = append(code, byte(inst.Op), byte(inst.A), 0, 0)
			code = binary.LittleEndian.AppendUint32(code, uint32(inst.Imm))
		case bytecode.OpReturn:
			code = append(code, byte(inst.Op), byte(inst.A), 0, 0)
		default:
			return nil, fmt.Errorf("mmapexec: opcode %d has no unboxed-arithmetic encoding", inst.Op)
		}
	}
	return code, nil
}

// run interprets the encoded stream. Only the arithmetic subset
// encode supports is handled — spec.md §4.I scopes baseline
// compilation to "unboxed-number arithmetic when every observed
// operand was Number", so anything else never reaches here because
// internal/baseline only offers encode() instructions it already
// profiled as monomorphic-Number.
func run(code []byte, profile *backend.TypeProfile, this value.Value, argc int, captures []value.Value) (value.Value, bool) {
	regs := make([]float64, 256)
	pc := 0
	for pc < len(code) {
		op := bytecode.Op(code[pc])
		a, b, c := code[pc+1], code[pc+2], code[pc+3]
		switch op {
		case bytecode.OpAdd:
			regs[a] = regs[b] + regs[c]
		case bytecode.OpSub:
			regs[a] = regs[b] - regs[c]
		case bytecode.OpMul:
			regs[a] = regs[b] * regs[c]
		case bytecode.OpDiv:
			regs[a] = regs[b] / regs[c]
		case bytecode.OpMod:
			regs[a] = math.Mod(regs[b], regs[c])
		case bytecode.OpNeg:
			regs[a] = -regs[b]
		case bytecode.OpMov:
			regs[a] = regs[b]
		case bytecode.OpLoadConst:
			bits := binary.LittleEndian.Uint32(code[pc+4 : pc+8])
			regs[a] = float64(int32(bits))
			pc += 4
		case bytecode.OpReturn:
			return value.Number(regs[a]), false
		default:
			return value.Undefined, true
		}
		pc += 4
	}
	return value.Undefined, false
}
