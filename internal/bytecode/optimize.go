// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package bytecode

import "github.com/velajs/vela/internal/value"

// Optimize runs the pass group over every function in prog, grounded
// on
// _examples/ProbeChain-go-probe/go-probe-master/probe-lang/lang/ir/optimize.go's
// Optimize driver (ConstantFold, DeadCodeEliminate,
// CommonSubexprEliminate run in that order, per function).
func Optimize(prog *Program) {
	for _, fn := range prog.Functions {
		ConstantFold(fn)
		DeadCodeEliminate(fn)
		CommonSubexprEliminate(fn)
	}
}

// constDefs maps a register to the constant-pool index it was loaded
// from via OpLoadConst, if that register is never reassigned
// elsewhere in the function (Mov, Yield and Await can write a register
// a LoadConst already defined, so every writer is counted).
func constDefs(fn *Function) map[Reg]int32 {
	defs := make(map[Reg]int32)
	writes := make(map[Reg]int)
	for _, b := range fn.Blocks {
		for _, in := range b.Code {
			if in.Op == OpLoadConst {
				defs[in.A] = in.Imm
			}
			if w, ok := in.Writes(); ok {
				writes[w]++
			}
		}
	}
	for r := range defs {
		if writes[r] > 1 {
			delete(defs, r)
		}
	}
	return defs
}

func asInt(v value.Value) (int32, bool) {
	if v.IsInt() {
		return v.AsInt(), true
	}
	return 0, false
}

// ConstantFold replaces an arithmetic/comparison instruction whose
// both operands trace to an OpLoadConst of a constant int by a direct
// OpLoadConst of the folded result, iterating to a fixed point since
// one fold can expose another (mirrors the teacher's changed-flag
// loop in ConstantFold).
func ConstantFold(fn *Function) {
	changed := true
	for changed {
		changed = false
		defs := constDefs(fn)
		for _, b := range fn.Blocks {
			for i, in := range b.Code {
				lIdx, lok := defs[in.B]
				rIdx, rok := defs[in.C]
				if !lok || !rok {
					continue
				}
				lv, lvok := asInt(fn.Constants[lIdx])
				rv, rvok := asInt(fn.Constants[rIdx])
				if !lvok || !rvok {
					continue
				}
				folded, ok := foldInts(in.Op, lv, rv)
				if !ok {
					continue
				}
				idx := int32(len(fn.Constants))
				fn.Constants = append(fn.Constants, value.Int(folded))
				b.Code[i] = Instruction{Op: OpLoadConst, A: in.A, Imm: idx}
				changed = true
			}
		}
	}
}

func foldInts(op Op, l, r int32) (int32, bool) {
	switch op {
	case OpAdd:
		return l + r, true
	case OpSub:
		return l - r, true
	case OpMul:
		return l * r, true
	case OpDiv:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case OpMod:
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case OpEqEq, OpStrictEq:
		return boolInt(l == r), true
	case OpNeqEq, OpStrictNeq:
		return boolInt(l != r), true
	case OpLt:
		return boolInt(l < r), true
	case OpLte:
		return boolInt(l <= r), true
	case OpGt:
		return boolInt(l > r), true
	case OpGte:
		return boolInt(l >= r), true
	default:
		return 0, false
	}
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// hasSideEffects reports whether an instruction must be kept even if
// its result register is never read — calls, control flow, property
// writes, and anything that can throw or observe the heap.
func hasSideEffects(op Op) bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpNeg, OpEqEq, OpNeqEq, OpStrictEq,
		OpStrictNeq, OpLt, OpLte, OpGt, OpGte, OpLoadUndefined, OpLoadNull,
		OpLoadConst, OpMov, OpReadFromStack, OpReadCapture, OpGetFieldOrUndefined:
		return false
	default:
		return true
	}
}

// DeadCodeEliminate removes instructions whose result register is
// never read anywhere in the function and which have no side effect,
// iterating to a fixed point since removing one dead instruction can
// make its own operand-producing instruction dead in turn (mirrors
// the teacher's use-count-map + changed-flag loop).
func DeadCodeEliminate(fn *Function) {
	changed := true
	for changed {
		changed = false
		uses := make(map[Reg]int)
		for _, b := range fn.Blocks {
			for _, in := range b.Code {
				for _, r := range in.Reads() {
					uses[r]++
				}
				for _, r := range in.Args {
					uses[r]++
				}
			}
		}
		for _, b := range fn.Blocks {
			kept := b.Code[:0]
			for _, in := range b.Code {
				dst, writes := in.Writes()
				if writes && uses[dst] == 0 && !hasSideEffects(in.Op) {
					changed = true
					continue
				}
				kept = append(kept, in)
			}
			b.Code = kept
		}
	}
}

// exprKey identifies a pure instruction's operation+operands so two
// equivalent computations can be recognized as redundant.
type exprKey struct {
	op   Op
	b, c Reg
	imm  int32
}

// CommonSubexprEliminate replaces a repeated pure computation (same
// opcode, same operand registers, same immediate) with a Mov of the
// first computation's result register, within each block — a local
// (not global) CSE pass, sufficient for the straight-line runs the
// builder emits before a block-ending branch.
func CommonSubexprEliminate(fn *Function) {
	for _, b := range fn.Blocks {
		seen := make(map[exprKey]Reg)
		for i, in := range b.Code {
			if hasSideEffects(in.Op) || in.Op == OpLoadUndefined || in.Op == OpLoadNull {
				continue
			}
			dst, writes := in.Writes()
			if !writes {
				continue
			}
			key := exprKey{op: in.Op, b: in.B, c: in.C, imm: in.Imm}
			if prior, ok := seen[key]; ok {
				b.Code[i] = Instruction{Op: OpMov, A: dst, B: prior}
				continue
			}
			seen[key] = dst
		}
	}
}
