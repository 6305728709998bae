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

	"github.com/velajs/vela/internal/bytecode"
	"github.com/velajs/vela/internal/heap"
	"github.com/velajs/vela/internal/jserr"
	"github.com/velajs/vela/internal/object"
	"github.com/velajs/vela/internal/propkey"
	"github.com/velajs/vela/internal/value"
)

// Invoke implements object.Invoker: calling a value as a function,
// dispatching on the callee object's wrapped kind. It is the single
// entry point every other caller of JS code (getters, proxy traps,
// finalization callbacks, Array.prototype iteration, `new`) goes
// through.
func (it *Interp) Invoke(ctx context.Context, callee value.Value, this value.Value, args []value.Value) (value.Value, error) {
	if !callee.IsObject() {
		return value.Undefined, &jserr.CallOnNonFunction{Callee: "non-object value"}
	}
	h := heap.Handle(callee.AsObject())
	in := it.Objects.Resolve(h)
	wrapped, kind := in.Wrapped()

	switch kind {
	case object.WrappedFunction:
		fd := wrapped.(*object.FunctionData)
		switch code := fd.Code.(type) {
		case *bytecode.Function:
			return it.callBytecode(ctx, code, this, args, fd.Captures)
		case NativeFunc:
			return code(ctx, this, args)
		default:
			return value.Undefined, &jserr.CallOnNonFunction{Callee: "function with no code"}
		}
	case object.WrappedFunctionInstance:
		fid := wrapped.(*object.FunctionInstanceData)
		target := value.Object(value.ObjectPayload(fid.Target))
		merged := make([]value.Value, 0, len(fid.BoundArgs)+len(args))
		merged = append(merged, fid.BoundArgs...)
		merged = append(merged, args...)
		return it.Invoke(ctx, target, fid.BoundThis, merged)
	default:
		return value.Undefined, &jserr.CallOnNonFunction{Callee: "non-callable object"}
	}
}

// Construct implements the `new` operator: allocates a fresh object
// whose prototype is the constructor's own "prototype" property,
// invokes the constructor with `this` bound to it, and — per
// ECMAScript's [[Construct]] — returns the constructor's own return
// value in place of the new instance when that return value is itself
// an object.
func (it *Interp) Construct(ctx context.Context, ctor value.Value, args []value.Value) (value.Value, error) {
	if !ctor.IsObject() {
		return value.Undefined, &jserr.CallOnNonFunction{Callee: "non-object value"}
	}
	ctorHandle := heap.Handle(ctor.AsObject())

	protoVal, err := it.Objects.GetProperty(ctx, ctorHandle, propkey.Prototype, ctor, it.Invoke)
	if err != nil {
		return value.Undefined, err
	}

	instH, instIn := it.Objects.New()
	if protoVal.IsObject() {
		instIn.SetProto(heap.Handle(protoVal.AsObject()), true)
	}
	instVal := value.Object(value.ObjectPayload(instH))

	result, err := it.Invoke(ctx, ctor, instVal, args)
	if err != nil {
		return value.Undefined, err
	}
	if result.IsObject() {
		return result, nil
	}
	return instVal, nil
}

// errorToValue converts a Go error raised by a Throw opcode or by
// engine machinery into the value a catch block's register should
// receive: a *jserr.ThrownValue unwraps to its carried Value verbatim
// (round-tripping `throw v`); anything else becomes a fresh
// WrappedErrorBox object carrying the error's message, since a catch
// clause always binds a value, never a bare Go error.
func (it *Interp) errorToValue(err error) value.Value {
	if tv, ok := err.(*jserr.ThrownValue); ok {
		if v, ok := tv.Value.(value.Value); ok {
			return v
		}
	}
	h, in := it.Objects.New()
	in.SetWrapped(&object.ErrorBoxData{Name: "Error", Message: err.Error()})
	return value.Object(value.ObjectPayload(h))
}
