// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package bytecode

import "github.com/velajs/vela/internal/value"

// Builder constructs a Function's Blocks incrementally, mirroring
// _examples/ProbeChain-go-probe/go-probe-master/probe-lang/lang/ir/builder.go's
// NewBlock/SetBlock/NewValue/Emit* shape. internal/frontend drives
// one Builder per compiled script, switching between nested function
// bodies with Suspend/Resume.
type Builder struct {
	program  *Program
	fn       *Function
	block    *Block
	nextReg  Reg
}

// NewBuilder creates an empty program builder.
func NewBuilder() *Builder {
	return &Builder{program: &Program{}}
}

// Program returns the program built so far.
func (b *Builder) Program() *Program { return b.program }

// StartFunction begins a new function and makes it current.
func (b *Builder) StartFunction(name string) *Function {
	f := &Function{Name: name}
	b.fn = f
	b.nextReg = 0
	b.program.Functions = append(b.program.Functions, f)
	return f
}

// NewBlock creates a new, empty block in the current function without
// making it current (callers call SetBlock to switch into it, mirroring
// spec.md §4.G's explicit CreateBlock/SwitchToBlock opcode pair).
func (b *Builder) NewBlock() *Block {
	id := BlockID(len(b.fn.Blocks))
	bb := &Block{ID: id}
	b.fn.Blocks = append(b.fn.Blocks, bb)
	return bb
}

// SetBlock makes bb the insertion point for subsequent Emit* calls.
func (b *Builder) SetBlock(bb *Block) { b.block = bb }

// NewValue allocates a fresh register name.
func (b *Builder) NewValue() Reg {
	r := b.nextReg
	b.nextReg++
	if int(b.nextReg) > b.fn.NumRegs {
		b.fn.NumRegs = int(b.nextReg)
	}
	return r
}

// AddConstant interns v in the function's constant pool and returns
// its index.
func (b *Builder) AddConstant(v value.Value) int32 {
	idx := int32(len(b.fn.Constants))
	b.fn.Constants = append(b.fn.Constants, v)
	return idx
}

func (b *Builder) emit(in Instruction) {
	b.block.Code = append(b.block.Code, in)
}

// EmitBinary emits a two-operand opcode (Add, Sub, EqEq, ...) writing
// into a fresh register.
func (b *Builder) EmitBinary(op Op, lhs, rhs Reg) Reg {
	dst := b.NewValue()
	b.emit(Instruction{Op: op, A: dst, B: lhs, C: rhs})
	return dst
}

// EmitUnary emits a one-operand opcode (Neg, ...).
func (b *Builder) EmitUnary(op Op, src Reg) Reg {
	dst := b.NewValue()
	b.emit(Instruction{Op: op, A: dst, B: src})
	return dst
}

// EmitLoadConst loads Constants[idx] into a fresh register.
func (b *Builder) EmitLoadConst(idx int32) Reg {
	dst := b.NewValue()
	b.emit(Instruction{Op: OpLoadConst, A: dst, Imm: idx})
	return dst
}

// EmitLoadUndefined/EmitLoadNull load the corresponding singleton.
func (b *Builder) EmitLoadUndefined() Reg {
	dst := b.NewValue()
	b.emit(Instruction{Op: OpLoadUndefined, A: dst})
	return dst
}

func (b *Builder) EmitLoadNull() Reg {
	dst := b.NewValue()
	b.emit(Instruction{Op: OpLoadNull, A: dst})
	return dst
}

// EmitMov copies src into a fresh register.
func (b *Builder) EmitMov(src Reg) Reg {
	dst := b.NewValue()
	b.emit(Instruction{Op: OpMov, A: dst, B: src})
	return dst
}

// EmitMovInto copies src into the already-allocated register dst in
// place, unlike EmitMov which always names a fresh one. internal/frontend
// uses this for variable assignment and control-flow joins, where the
// destination's register identity must stay the same across reads.
func (b *Builder) EmitMovInto(dst, src Reg) {
	b.emit(Instruction{Op: OpMov, A: dst, B: src})
}

// FuncState is an opaque snapshot of the builder's current function,
// block and register cursor. Suspend/Resume let a caller compile one
// function literal in the middle of building another — the nested
// closure case internal/frontend hits at every function expression —
// without StartFunction's reset of those fields losing the outer
// function's place.
type FuncState struct {
	fn      *Function
	block   *Block
	nextReg Reg
}

// Suspend snapshots the function currently being built.
func (b *Builder) Suspend() FuncState {
	return FuncState{fn: b.fn, block: b.block, nextReg: b.nextReg}
}

// Resume restores a function snapshotted by Suspend as the builder's
// current insertion point.
func (b *Builder) Resume(s FuncState) {
	b.fn = s.fn
	b.block = s.block
	b.nextReg = s.nextReg
}

// EmitGetField/EmitSetField/EmitDeleteField operate on a property
// whose key is a constant-pool string id (spec.md §4.G's property
// opcodes).
func (b *Builder) EmitGetField(obj Reg, keyConst int32) Reg {
	dst := b.NewValue()
	b.emit(Instruction{Op: OpGetField, A: dst, B: obj, Imm: keyConst})
	return dst
}

func (b *Builder) EmitGetFieldOrUndefined(obj Reg, keyConst int32) Reg {
	dst := b.NewValue()
	b.emit(Instruction{Op: OpGetFieldOrUndefined, A: dst, B: obj, Imm: keyConst})
	return dst
}

func (b *Builder) EmitSetField(obj Reg, keyConst int32, val Reg) {
	b.emit(Instruction{Op: OpSetField, B: obj, C: val, Imm: keyConst})
}

func (b *Builder) EmitDeleteField(obj Reg, keyConst int32) Reg {
	dst := b.NewValue()
	b.emit(Instruction{Op: OpDeleteField, A: dst, B: obj, Imm: keyConst})
	return dst
}

// EmitGetFieldComputed/EmitSetFieldComputed are EmitGetField/
// EmitSetField's counterparts for a dynamic `obj[key]` whose key isn't
// known at compile time — key is coerced to a property key (string or
// number) at dispatch time rather than resolved from the constant
// pool.
func (b *Builder) EmitGetFieldComputed(obj, key Reg) Reg {
	dst := b.NewValue()
	b.emit(Instruction{Op: OpGetFieldComputed, A: dst, B: obj, C: key})
	return dst
}

func (b *Builder) EmitSetFieldComputed(obj, key, val Reg) {
	b.emit(Instruction{Op: OpSetFieldComputed, B: obj, C: key, Args: []Reg{val}})
}

// EmitJump/EmitJumpIfTrue/EmitJumpIfFalse emit control-flow
// terminators targeting another block by id.
func (b *Builder) EmitJump(target BlockID) {
	b.emit(Instruction{Op: OpJump, Imm: int32(target)})
}

func (b *Builder) EmitJumpIfTrue(cond Reg, target BlockID) {
	b.emit(Instruction{Op: OpJumpIfTrue, A: cond, Imm: int32(target)})
}

func (b *Builder) EmitJumpIfFalse(cond Reg, target BlockID) {
	b.emit(Instruction{Op: OpJumpIfFalse, A: cond, Imm: int32(target)})
}

// EmitReturn emits the function's return terminator.
func (b *Builder) EmitReturn(v Reg) {
	b.emit(Instruction{Op: OpReturn, A: v})
}

// EmitGetThis loads the current frame's `this` binding into a fresh
// register.
func (b *Builder) EmitGetThis() Reg {
	dst := b.NewValue()
	b.emit(Instruction{Op: OpGetThis, A: dst})
	return dst
}

// EmitCall emits a Call opcode invoking callee with args, writing the
// result into a fresh register.
func (b *Builder) EmitCall(callee Reg, args []Reg) Reg {
	dst := b.NewValue()
	b.emit(Instruction{Op: OpCall, A: dst, B: callee, Args: args})
	return dst
}

// EmitCallMethod emits a method call: obj.key(args), key is a
// constant-pool string id.
func (b *Builder) EmitCallMethod(obj Reg, keyConst int32, args []Reg) Reg {
	dst := b.NewValue()
	b.emit(Instruction{Op: OpCallMethod, A: dst, B: obj, Imm: keyConst, Args: args})
	return dst
}

// EmitNew emits a New (construct) opcode.
func (b *Builder) EmitNew(ctor Reg, args []Reg) Reg {
	dst := b.NewValue()
	b.emit(Instruction{Op: OpNew, A: dst, B: ctor, Args: args})
	return dst
}

// EmitThrow emits a Throw terminator.
func (b *Builder) EmitThrow(v Reg) {
	b.emit(Instruction{Op: OpThrow, A: v})
}

// EmitTryBegin/EmitTryEnd register a try range covering the blocks
// built between the two calls.
func (b *Builder) EmitTryBegin(catch BlockID, catchReg Reg) {
	b.fn.Tries = append(b.fn.Tries, TryRange{StartBlock: b.block.ID, CatchBlock: catch, CatchReg: catchReg})
	b.emit(Instruction{Op: OpTryBegin, Imm: int32(catch)})
}

func (b *Builder) EmitTryEnd() {
	if n := len(b.fn.Tries); n > 0 {
		b.fn.Tries[n-1].EndBlock = b.block.ID
	}
	b.emit(Instruction{Op: OpTryEnd})
}

// EmitCreateFunction loads a nested Function (by its program index)
// into a fresh register, ready for EmitCaptureVar calls to close over
// outer locals.
func (b *Builder) EmitCreateFunction(funcIdx int32) Reg {
	dst := b.NewValue()
	b.emit(Instruction{Op: OpCreateFunction, A: dst, Imm: funcIdx})
	return dst
}

func (b *Builder) EmitCaptureVar(closure Reg, outerReg Reg) {
	b.emit(Instruction{Op: OpCaptureVar, A: closure, B: outerReg})
}

// EmitYield/EmitAwait suspend the current coroutine (spec.md §4.J).
// Both opcodes read and write the same register in place (the
// resumed/awaited value replaces the yielded/awaited one), so unlike
// EmitBinary/EmitUnary there is no fresh destination register to
// allocate — v itself names the result once execution resumes.
func (b *Builder) EmitYield(v Reg) Reg {
	b.emit(Instruction{Op: OpYield, A: v})
	return v
}

func (b *Builder) EmitAwait(v Reg) Reg {
	b.emit(Instruction{Op: OpAwait, A: v})
	return v
}

// EmitWriteToStack/EmitReadFromStack spill a register to, or fill one
// from, the interpreter's value stack at a frame-relative offset —
// used by the closure/capture lowering for locals that outlive the
// block they were declared in.
func (b *Builder) EmitWriteToStack(offset int32, src Reg) {
	b.emit(Instruction{Op: OpWriteToStack, A: src, Imm: offset})
}

func (b *Builder) EmitReadFromStack(offset int32) Reg {
	dst := b.NewValue()
	b.emit(Instruction{Op: OpReadFromStack, A: dst, Imm: offset})
	return dst
}

// EmitReadCapture/EmitWriteCapture read or write slot idx of the
// current frame's capture array (the outer-closure variables spec.md
// §4.H's frame carries a capture-stack pointer for).
func (b *Builder) EmitReadCapture(idx int32) Reg {
	dst := b.NewValue()
	b.emit(Instruction{Op: OpReadCapture, A: dst, Imm: idx})
	return dst
}

func (b *Builder) EmitWriteCapture(idx int32, src Reg) {
	b.emit(Instruction{Op: OpWriteCapture, B: src, Imm: idx})
}

// EmitForOfInit/EmitForOfNext drive the iterator protocol (spec.md
// §4.K), writing the per-step value into a fresh register and the
// done flag into a second fresh register.
func (b *Builder) EmitForOfInit(iterable Reg) Reg {
	dst := b.NewValue()
	b.emit(Instruction{Op: OpForOfInit, A: dst, B: iterable})
	return dst
}

func (b *Builder) EmitForOfNext(iterState Reg) (value, done Reg) {
	value = b.NewValue()
	done = b.NewValue()
	b.emit(Instruction{Op: OpForOfNext, A: iterState, B: value, C: done})
	return value, done
}
