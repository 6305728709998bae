// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package interp

import (
	"context"
	"fmt"

	"github.com/velajs/vela/internal/bytecode"
	"github.com/velajs/vela/internal/heap"
	"github.com/velajs/vela/internal/iterator"
	"github.com/velajs/vela/internal/jserr"
	"github.com/velajs/vela/internal/object"
	"github.com/velajs/vela/internal/value"
)

// CoroutineHost lets a generator/async executor intercept Yield/Await
// opcodes; nil until internal/coroutine installs one, in which case
// those opcodes fail closed with HostError (spec.md §4.J's suspension
// points are meaningless outside a coroutine).
type CoroutineHost interface {
	Yield(ctx context.Context, v value.Value) (resume value.Value, err error)
	Await(ctx context.Context, v value.Value) (value.Value, error)
}

// callBytecode is the dispatch loop proper: one iteration fetches the
// instruction at the frame's (block, offset) instruction pointer,
// executes it, and advances — mirroring the teacher's
// fetch/decode/execute Step shape, generalized to VELA's
// block-structured control flow and exception unwinding.
func (it *Interp) callBytecode(ctx context.Context, fn *bytecode.Function, this value.Value, args []value.Value, captures []value.Value) (value.Value, error) {
	if len(fn.Blocks) == 0 {
		return value.Undefined, fmt.Errorf("interp: function %q has no blocks", fn.Name)
	}

	f := &Frame{
		fn:        fn,
		registers: make([]value.Value, fn.NumRegs),
		this:      this,
		captures:  captures,
		stackBase: len(it.stack),
		block:     fn.Blocks[0].ID,
	}
	for i := range f.registers {
		f.registers[i] = value.Undefined
	}
	for i, a := range args {
		if i >= len(f.registers) {
			break
		}
		f.registers[i] = a
	}

	it.frames = append(it.frames, f)
	defer func() { it.frames = it.frames[:len(it.frames)-1] }()

	for {
		bb := fn.block(f.block)
		if bb == nil {
			return value.Undefined, fmt.Errorf("interp: function %q has no block %d", fn.Name, f.block)
		}
		if f.offset >= len(bb.Code) {
			// Fell off the end of a block with no terminator: only the
			// synthetic exit block Inline appends does this deliberately
			// (its own Jump/SwitchToBlock tail makes this unreachable in
			// practice), so treat it as an implicit `return undefined`.
			return value.Undefined, nil
		}

		in := bb.Code[f.offset]
		if it.Debugger != nil {
			it.Debugger.OnCodeRun(in.Op)
		}
		it.instrCount++
		if err := it.collectIfDue(ctx); err != nil {
			return value.Undefined, err
		}

		ret, retOK, jumped, err := it.execOne(ctx, f, in)
		if err != nil {
			if unwound := it.unwind(f, err); unwound {
				continue
			}
			return value.Undefined, err
		}
		if retOK {
			return ret, nil
		}
		if !jumped {
			f.offset++
		}
	}
}

// unwind searches fn.Tries for a range covering the block the error
// was raised in and, if found, redirects execution to its catch block
// (spec.md §4.H: "Exceptions unwind to the nearest TryBegin").
func (it *Interp) unwind(f *Frame, err error) bool {
	for i := len(f.fn.Tries) - 1; i >= 0; i-- {
		tr := f.fn.Tries[i]
		if f.block < tr.StartBlock || f.block > tr.EndBlock {
			continue
		}
		if tr.CatchReg != 0 {
			f.registers[tr.CatchReg] = it.errorToValue(err)
		}
		f.block = tr.CatchBlock
		f.offset = 0
		return true
	}
	return false
}

// execOne executes a single instruction. retOK reports that the
// function is returning with value ret; jumped reports that the
// instruction already repositioned (block, offset) itself, so the
// caller must not additionally bump offset.
func (it *Interp) execOne(ctx context.Context, f *Frame, in bytecode.Instruction) (ret value.Value, retOK bool, jumped bool, err error) {
	fn := f.fn
	regs := f.registers

	switch in.Op {
	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod,
		bytecode.OpEqEq, bytecode.OpNeqEq, bytecode.OpStrictEq, bytecode.OpStrictNeq,
		bytecode.OpLt, bytecode.OpLte, bytecode.OpGt, bytecode.OpGte:
		regs[in.A] = arith(in.Op, regs[in.B], regs[in.C])

	case bytecode.OpNeg:
		regs[in.A] = neg(regs[in.B])

	case bytecode.OpLoadUndefined:
		regs[in.A] = value.Undefined
	case bytecode.OpLoadNull:
		regs[in.A] = value.Null
	case bytecode.OpLoadConst:
		regs[in.A] = fn.Constants[in.Imm]
	case bytecode.OpMov:
		regs[in.A] = regs[in.B]

	case bytecode.OpReadFromStack:
		regs[in.A] = it.stack[f.stackBase+int(in.Imm)]
	case bytecode.OpWriteToStack:
		it.ensureStack(f.stackBase + int(in.Imm))
		it.stack[f.stackBase+int(in.Imm)] = regs[in.A]

	case bytecode.OpReadCapture:
		if int(in.Imm) < len(f.captures) {
			regs[in.A] = f.captures[in.Imm]
		} else {
			regs[in.A] = value.Undefined
		}
	case bytecode.OpWriteCapture:
		if int(in.Imm) < len(f.captures) {
			f.captures[in.Imm] = regs[in.B]
		}

	case bytecode.OpCreateBlock:
		// The target block already exists statically (Inline appended
		// it); nothing to do at dispatch time.
	case bytecode.OpSwitchToBlock:
		f.block = bytecode.BlockID(in.Imm)
		f.offset = 0
		jumped = true
	case bytecode.OpJump:
		f.block = bytecode.BlockID(in.Imm)
		f.offset = 0
		jumped = true
	case bytecode.OpJumpIfTrue:
		if truthy(regs[in.A]) {
			f.block = bytecode.BlockID(in.Imm)
			f.offset = 0
			jumped = true
		}
	case bytecode.OpJumpIfFalse:
		if !truthy(regs[in.A]) {
			f.block = bytecode.BlockID(in.Imm)
			f.offset = 0
			jumped = true
		}
	case bytecode.OpReturn:
		ret, retOK = regs[in.A], true

	case bytecode.OpCall:
		argVals := make([]value.Value, len(in.Args))
		for i, r := range in.Args {
			argVals[i] = regs[r]
		}
		v, callErr := it.Invoke(ctx, regs[in.B], value.Undefined, argVals)
		if callErr != nil {
			err = callErr
			return
		}
		regs[in.A] = v

	case bytecode.OpCallMethod:
		objVal := regs[in.B]
		if !objVal.IsObject() {
			err = &jserr.TypeError{Msg: "cannot call method on non-object"}
			return
		}
		key, kerr := it.keyOf(fn.Constants[in.Imm])
		if kerr != nil {
			err = kerr
			return
		}
		methodVal, gerr := it.Objects.GetProperty(ctx, heap.Handle(objVal.AsObject()), key, objVal, it.Invoke)
		if gerr != nil {
			err = gerr
			return
		}
		argVals := make([]value.Value, len(in.Args))
		for i, r := range in.Args {
			argVals[i] = regs[r]
		}
		v, callErr := it.Invoke(ctx, methodVal, objVal, argVals)
		if callErr != nil {
			err = callErr
			return
		}
		regs[in.A] = v

	case bytecode.OpNew:
		argVals := make([]value.Value, len(in.Args))
		for i, r := range in.Args {
			argVals[i] = regs[r]
		}
		v, cerr := it.Construct(ctx, regs[in.B], argVals)
		if cerr != nil {
			err = cerr
			return
		}
		regs[in.A] = v

	case bytecode.OpPrepareInlinedCall:
		// Registers were already offset-rewritten by bytecode.Inline;
		// nothing left to prepare at dispatch time.
	case bytecode.OpSetThis:
		f.this = regs[in.A]
	case bytecode.OpGetThis:
		regs[in.A] = f.this

	case bytecode.OpGetField:
		objVal := regs[in.B]
		if !objVal.IsObject() {
			err = &jserr.TypeError{Msg: "cannot read property of non-object"}
			return
		}
		key, kerr := it.keyOf(fn.Constants[in.Imm])
		if kerr != nil {
			err = kerr
			return
		}
		v, gerr := it.Objects.GetProperty(ctx, heap.Handle(objVal.AsObject()), key, objVal, it.Invoke)
		if gerr != nil {
			err = gerr
			return
		}
		regs[in.A] = v

	case bytecode.OpGetFieldOrUndefined:
		objVal := regs[in.B]
		if !objVal.IsObject() {
			regs[in.A] = value.Undefined
			return
		}
		key, kerr := it.keyOf(fn.Constants[in.Imm])
		if kerr != nil {
			err = kerr
			return
		}
		v, gerr := it.Objects.GetProperty(ctx, heap.Handle(objVal.AsObject()), key, objVal, it.Invoke)
		if gerr != nil {
			err = gerr
			return
		}
		regs[in.A] = v

	case bytecode.OpSetField:
		objVal := regs[in.B]
		if !objVal.IsObject() {
			err = &jserr.TypeError{Msg: "cannot set property of non-object"}
			return
		}
		key, kerr := it.keyOf(fn.Constants[in.Imm])
		if kerr != nil {
			err = kerr
			return
		}
		err = it.Objects.SetProperty(ctx, heap.Handle(objVal.AsObject()), key, regs[in.C], objVal, true, it.Invoke)

	case bytecode.OpDeleteField:
		objVal := regs[in.B]
		if !objVal.IsObject() {
			regs[in.A] = value.Bool(true)
			return
		}
		key, kerr := it.keyOf(fn.Constants[in.Imm])
		if kerr != nil {
			err = kerr
			return
		}
		ok := it.Objects.Resolve(heap.Handle(objVal.AsObject())).DeleteProperty(key)
		regs[in.A] = value.Bool(ok)

	case bytecode.OpGetFieldComputed:
		objVal := regs[in.B]
		if !objVal.IsObject() {
			err = &jserr.TypeError{Msg: "cannot read property of non-object"}
			return
		}
		key, kerr := it.toPropertyKey(regs[in.C])
		if kerr != nil {
			err = kerr
			return
		}
		v, gerr := it.Objects.GetProperty(ctx, heap.Handle(objVal.AsObject()), key, objVal, it.Invoke)
		if gerr != nil {
			err = gerr
			return
		}
		regs[in.A] = v

	case bytecode.OpSetFieldComputed:
		objVal := regs[in.B]
		if !objVal.IsObject() {
			err = &jserr.TypeError{Msg: "cannot set property of non-object"}
			return
		}
		key, kerr := it.toPropertyKey(regs[in.C])
		if kerr != nil {
			err = kerr
			return
		}
		err = it.Objects.SetProperty(ctx, heap.Handle(objVal.AsObject()), key, regs[in.Args[0]], objVal, true, it.Invoke)

	case bytecode.OpForOfInit:
		eng := iterator.New(it.Objects, it.Keys, it.Strings)
		st, ierr := eng.Init(ctx, regs[in.B], it.Invoke)
		if ierr != nil {
			err = ierr
			return
		}
		h, in2 := it.Objects.New()
		in2.SetWrapped(&object.CustomHostData{Host: st})
		regs[in.A] = value.Object(value.ObjectPayload(h))

	case bytecode.OpForOfNext:
		stateVal := regs[in.A]
		if !stateVal.IsObject() {
			err = &jserr.InvalidIterator{Msg: "invalid iterator state register"}
			return
		}
		wrapped, kind := it.Objects.Resolve(heap.Handle(stateVal.AsObject())).Wrapped()
		if kind != object.WrappedCustomHost {
			err = &jserr.InvalidIterator{Msg: "invalid iterator state object"}
			return
		}
		st, ok := wrapped.(*object.CustomHostData).Host.(*iterator.State)
		if !ok {
			err = &jserr.InvalidIterator{Msg: "invalid iterator state payload"}
			return
		}
		eng := iterator.New(it.Objects, it.Keys, it.Strings)
		v, done, nerr := eng.Next(ctx, st, it.Invoke)
		if nerr != nil {
			err = nerr
			return
		}
		regs[in.B] = v
		regs[in.C] = value.Bool(done)

	case bytecode.OpThrow:
		err = &jserr.ThrownValue{Value: regs[in.A]}

	case bytecode.OpTryBegin, bytecode.OpTryEnd:
		// Vestigial markers: fn.Tries already records the [Start,End]
		// range and catch target built at compile time.

	case bytecode.OpCreateFunction:
		if it.Program == nil || int(in.Imm) >= len(it.Program.Functions) {
			err = fmt.Errorf("interp: invalid function index %d", in.Imm)
			return
		}
		h, in2 := it.Objects.New()
		in2.SetWrapped(&object.FunctionData{Code: it.Program.Functions[in.Imm]})
		regs[in.A] = value.Object(value.ObjectPayload(h))

	case bytecode.OpCaptureVar:
		closureVal := regs[in.A]
		if !closureVal.IsObject() {
			err = &jserr.TypeError{Msg: "capture target is not a function object"}
			return
		}
		wrapped, kind := it.Objects.Resolve(heap.Handle(closureVal.AsObject())).Wrapped()
		if kind != object.WrappedFunction {
			err = &jserr.TypeError{Msg: "capture target is not a function object"}
			return
		}
		fd := wrapped.(*object.FunctionData)
		fd.Captures = append(fd.Captures, regs[in.B])

	case bytecode.OpYield:
		if it.Coroutine == nil {
			err = &jserr.HostError{Cause: fmt.Errorf("yield outside a generator coroutine")}
			return
		}
		v, yerr := it.Coroutine.Yield(ctx, regs[in.A])
		if yerr != nil {
			err = yerr
			return
		}
		regs[in.A] = v

	case bytecode.OpAwait:
		if it.Coroutine == nil {
			err = &jserr.HostError{Cause: fmt.Errorf("await outside an async coroutine")}
			return
		}
		v, aerr := it.Coroutine.Await(ctx, regs[in.A])
		if aerr != nil {
			err = aerr
			return
		}
		regs[in.A] = v

	default:
		err = fmt.Errorf("interp: unimplemented opcode %s", in.Op)
	}
	return
}

func (it *Interp) ensureStack(idx int) {
	for idx >= len(it.stack) {
		it.stack = append(it.stack, value.Undefined)
	}
}
