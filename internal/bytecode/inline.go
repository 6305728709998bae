// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package bytecode

// Inline implements spec.md §4.G's deterministic inlining rewrite:
// splices callee's body into caller at the block currently ending in
// a Call to callee, replacing that call with the callee's code
// in-place and renumbering its blocks/registers/constants so they
// cannot collide with the caller's.
//
//  1. Emits PrepareInlinedCall{baseOffset}, SetThis{this}, CreateBlock(exit).
//  2. Appends callee opcodes verbatim.
//  3. Scans the appended range and rewrites:
//     - Return{v} -> Mov{v->result}, Jump{exit}.
//     - ReadFromStack/WriteToStack{offset} += baseOffset.
//     - Every Block id referenced by Jump*/SwitchToBlock/CreateBlock += blockCount.
//  4. Appends LoadUndefined{result}, Jump{exit}, SwitchToBlock(exit) so a
//     callee that falls through without an explicit Return yields undefined.
//  5. Runs the optimizer pass group.
func Inline(caller *Function, callSiteBlock BlockID, this Reg, callee *Function) Reg {
	baseOffset := int32(caller.NumRegs)
	blockCount := BlockID(len(caller.Blocks))
	constBase := int32(len(caller.Constants))
	resultReg := Reg(baseOffset) + Reg(calleeMaxReg(callee)) + 1
	exitID := blockCount + BlockID(len(callee.Blocks))

	site := caller.block(callSiteBlock)
	site.Code = append(site.Code,
		Instruction{Op: OpPrepareInlinedCall, Imm: baseOffset},
		Instruction{Op: OpSetThis, A: this},
		Instruction{Op: OpCreateBlock, Imm: int32(exitID)},
	)

	caller.Constants = append(caller.Constants, callee.Constants...)

	for _, b := range callee.Blocks {
		nb := &Block{ID: b.ID + blockCount}
		for _, in := range b.Code {
			nb.Code = append(nb.Code, rewriteForInline(in, baseOffset, blockCount, constBase, resultReg, exitID)...)
		}
		caller.Blocks = append(caller.Blocks, nb)
	}

	caller.Blocks = append(caller.Blocks, &Block{
		ID: exitID,
		Code: []Instruction{
			{Op: OpLoadUndefined, A: resultReg},
			{Op: OpJump, Imm: int32(exitID)},
			{Op: OpSwitchToBlock, Imm: int32(exitID)},
		},
	})

	if int(resultReg)+1 > caller.NumRegs {
		caller.NumRegs = int(resultReg) + 1
	}

	Optimize(&Program{Functions: []*Function{caller}})
	return resultReg
}

func calleeMaxReg(callee *Function) int {
	max := 0
	bump := func(r Reg) {
		if int(r) > max {
			max = int(r)
		}
	}
	for _, b := range callee.Blocks {
		for _, in := range b.Code {
			bump(in.A)
			bump(in.B)
			bump(in.C)
			for _, r := range in.Args {
				bump(r)
			}
		}
	}
	return max
}

// rewriteForInline rewrites one callee instruction into the zero,
// one, or two caller-space instructions it expands to. Return is the
// only opcode that expands to two (Mov result, then Jump exit);
// everything else maps 1:1 with offset-shifted operands.
func rewriteForInline(in Instruction, baseOffset int32, blockCount BlockID, constBase int32, resultReg Reg, exitID BlockID) []Instruction {
	switch in.Op {
	case OpReturn:
		return []Instruction{
			{Op: OpMov, A: resultReg, B: in.A + Reg(baseOffset)},
			{Op: OpJump, Imm: int32(exitID)},
		}
	case OpReadFromStack, OpWriteToStack:
		out := in
		out.Imm += baseOffset
		out.A += Reg(baseOffset)
		out.B += Reg(baseOffset)
		out.C += Reg(baseOffset)
		return []Instruction{out}
	case OpJump, OpJumpIfTrue, OpJumpIfFalse, OpSwitchToBlock, OpCreateBlock:
		out := in
		out.Imm += int32(blockCount)
		out.A += Reg(baseOffset)
		return []Instruction{out}
	case OpLoadConst:
		out := in
		out.Imm += constBase
		out.A += Reg(baseOffset)
		return []Instruction{out}
	default:
		out := in
		out.A += Reg(baseOffset)
		out.B += Reg(baseOffset)
		out.C += Reg(baseOffset)
		if len(out.Args) > 0 {
			out.Args = append([]Reg(nil), out.Args...)
			for i := range out.Args {
				out.Args[i] += Reg(baseOffset)
			}
		}
		return []Instruction{out}
	}
}
