// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package bytecode

import "github.com/velajs/vela/internal/value"

// BlockID names a basic block within a Function (spec.md §4.G:
// "grouped into Blocks (16-bit ids)").
type BlockID uint16

// Instruction is one 4-byte-equivalent opcode with its operand
// fields. VELA keeps operands as a Go struct rather than PROBE's
// packed [opcode:8][a:8][b:8][c:8] byte encoding — the interpreter
// dispatch loop reads struct fields directly instead of unpacking
// bytes, which is both simpler and what a GC-traced, boxed-Value VM
// needs (PROBE's bytes never reference GC objects; the constant-pool
// entries VELA's Imm indexes often do).
type Instruction struct {
	Op   Op
	A, B, C Reg
	Imm  int32   // wide-immediate form: jump targets, constant pool indices
	Args []Reg   // Call/CallMethod/New argument register list
}

// Block is a sequence of instructions with (for all but the last
// function's exit block) a control-flow terminator as its final
// instruction.
type Block struct {
	ID   BlockID
	Code []Instruction
}

// TryRange marks [Start,End], an inclusive block range covered by a TryBegin,
// with the block to resume at on a thrown error (spec.md §4.H:
// "Exceptions unwind to the nearest TryBegin").
type TryRange struct {
	StartBlock BlockID
	EndBlock   BlockID
	CatchBlock BlockID
	CatchReg   Reg // register the caught value is written into, 0 if no binding
}

// Function is one compiled function body: a register-based,
// block-structured instruction sequence plus its constant pool and
// capture layout.
type Function struct {
	Name       string
	NumRegs    int // registers 0..NumRegs-1 are valid for this function
	Blocks     []*Block
	Constants  []value.Value
	Tries      []TryRange
	NumCaptures int
	IsGenerator bool
	IsAsync     bool
}

// Program is a complete compiled unit: every function produced from
// one parse, plus the entry function's index.
type Program struct {
	Functions []*Function
	Entry     int
}

func (f *Function) block(id BlockID) *Block {
	for _, b := range f.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}
