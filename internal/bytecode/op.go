// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package bytecode implements VELA's register-based, SSA-like
// intermediate representation (spec.md §4.G): functions made of
// Blocks of fixed-width Op instructions operating on 16-bit logical
// registers (Reg).
//
// Grounded on
// _examples/ProbeChain-go-probe/go-probe-master/probe-lang/lang/vm/opcodes.go's
// 4-byte 3-address encoding ([opcode:8][a:8][b:8][c:8], with a
// wide-immediate form for jump targets and constant indices) and
// _examples/ProbeChain-go-probe/go-probe-master/probe-lang/lang/ir/builder.go's
// Builder pattern (NewBlock/SetBlock/NewValue/Emit*), generalized
// from PROBE's stack-machine-flavoured register ops to the
// ECMAScript opcode surface spec.md §4.G names.
package bytecode

// Op is an 8-bit instruction code.
type Op uint8

const (
	// ---- Arithmetic / comparison -------------------------------------
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpEqEq
	OpNeqEq
	OpStrictEq
	OpStrictNeq
	OpLt
	OpLte
	OpGt
	OpGte

	// ---- Memory --------------------------------------------------------
	OpLoadUndefined
	OpLoadNull
	OpLoadConst
	OpMov
	OpReadFromStack
	OpWriteToStack
	OpReadCapture
	OpWriteCapture

	// ---- Control flow ----------------------------------------------------
	OpCreateBlock
	OpSwitchToBlock
	OpJump
	OpJumpIfTrue
	OpJumpIfFalse
	OpReturn

	// ---- Call ------------------------------------------------------------
	OpCall
	OpCallMethod
	OpNew
	OpPrepareInlinedCall
	OpSetThis
	OpGetThis

	// ---- Property --------------------------------------------------------
	OpGetField
	OpSetField
	OpDeleteField
	OpGetFieldOrUndefined
	OpGetFieldComputed // key given by register, not the constant pool
	OpSetFieldComputed

	// ---- Iteration ---------------------------------------------------------
	OpForOfInit
	OpForOfNext

	// ---- Exception -----------------------------------------------------------
	OpThrow
	OpTryBegin
	OpTryEnd

	// ---- Closure -------------------------------------------------------------
	OpCreateFunction
	OpCaptureVar

	// ---- Generator / async ----------------------------------------------------
	OpYield
	OpAwait

	opCount
)

var opNames = [opCount]string{
	OpAdd: "Add", OpSub: "Sub", OpMul: "Mul", OpDiv: "Div", OpMod: "Mod", OpNeg: "Neg",
	OpEqEq: "EqEq", OpNeqEq: "NeqEq", OpStrictEq: "StrictEq", OpStrictNeq: "StrictNeq",
	OpLt: "Lt", OpLte: "Lte", OpGt: "Gt", OpGte: "Gte",
	OpLoadUndefined: "LoadUndefined", OpLoadNull: "LoadNull", OpLoadConst: "LoadConst",
	OpMov: "Mov", OpReadFromStack: "ReadFromStack", OpWriteToStack: "WriteToStack",
	OpReadCapture: "ReadCapture", OpWriteCapture: "WriteCapture",
	OpCreateBlock: "CreateBlock", OpSwitchToBlock: "SwitchToBlock", OpJump: "Jump",
	OpJumpIfTrue: "JumpIfTrue", OpJumpIfFalse: "JumpIfFalse", OpReturn: "Return",
	OpCall: "Call", OpCallMethod: "CallMethod", OpNew: "New",
	OpPrepareInlinedCall: "PrepareInlinedCall", OpSetThis: "SetThis", OpGetThis: "GetThis",
	OpGetField: "GetField", OpSetField: "SetField", OpDeleteField: "DeleteField",
	OpGetFieldOrUndefined: "GetFieldOrUndefined",
	OpGetFieldComputed:    "GetFieldComputed", OpSetFieldComputed: "SetFieldComputed",
	OpForOfInit: "ForOfInit", OpForOfNext: "ForOfNext",
	OpThrow: "Throw", OpTryBegin: "TryBegin", OpTryEnd: "TryEnd",
	OpCreateFunction: "CreateFunction", OpCaptureVar: "CaptureVar",
	OpYield: "Yield", OpAwait: "Await",
}

func (o Op) String() string {
	if int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return "Op(?)"
}

// Reg is a logical 16-bit register name assigned by the Builder; the
// baseline compiler later maps these to machine registers or stack
// slots (spec.md §4.G).
type Reg uint16

// Reads reports which registers o reads given its a/b/c/imm operand
// fields, and Writes reports the single register it writes (0 if
// none) — the Go-idiomatic replacement for the teacher's derive-macro
// enforced "every opcode declares which registers it reads and which
// single register it writes" (spec.md §4.G): a plain switch table
// instead of codegen, since Go has no derive macros.
func (in Instruction) Reads() []Reg {
	switch in.Op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpEqEq, OpNeqEq, OpStrictEq, OpStrictNeq,
		OpLt, OpLte, OpGt, OpGte, OpSetField, OpGetFieldComputed:
		return []Reg{in.B, in.C}
	case OpNeg, OpMov, OpWriteCapture, OpGetField, OpGetFieldOrUndefined, OpDeleteField,
		OpForOfInit:
		return []Reg{in.B}
	case OpCaptureVar:
		return []Reg{in.A, in.B}
	case OpWriteToStack, OpJumpIfTrue, OpJumpIfFalse,
		OpReturn, OpThrow, OpSetThis, OpForOfNext, OpYield, OpAwait:
		return []Reg{in.A}
	case OpSetFieldComputed:
		return append([]Reg{in.B, in.C}, in.Args...)
	case OpCall, OpCallMethod, OpNew:
		return append([]Reg{in.B}, in.Args...)
	default:
		return nil
	}
}

func (in Instruction) Writes() (Reg, bool) {
	switch in.Op {
	case OpJump, OpSwitchToBlock, OpCreateBlock, OpSetThis, OpWriteToStack,
		OpWriteCapture, OpTryBegin, OpTryEnd, OpReturn, OpThrow, OpSetField,
		OpDeleteField, OpJumpIfTrue, OpJumpIfFalse, OpPrepareInlinedCall,
		OpSetFieldComputed:
		return 0, false
	default:
		return in.A, true
	}
}
