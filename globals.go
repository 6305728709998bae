// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vela

import (
	"context"
	"fmt"

	"github.com/velajs/vela/internal/heap"
	"github.com/velajs/vela/internal/interp"
	"github.com/velajs/vela/internal/object"
	"github.com/velajs/vela/internal/propkey"
	"github.com/velajs/vela/internal/value"
)

// setupGlobals allocates the globals object every compiled entry
// function captures as slot 0 (internal/frontend's "@@global" capture
// seed), and seeds it with the handful of constructors and host
// functions internal/frontend's literal lowering and an ordinary
// script body assume exist: Array, Object, and a console object for
// diagnostic output (not in spec.md's closed operation set, but
// present in every embedding of a JS engine a host program actually
// runs scripts against — the same ambient-convenience reasoning
// go-ethereum's own `jsre`/console bridge applies to its goja
// instances).
func (rt *Runtime) setupGlobals() heap.Handle {
	h, _ := rt.Objects.New()

	rt.RegisterFunction(h, "Array", func(ctx context.Context, this value.Value, args []value.Value) (value.Value, error) {
		if !this.IsObject() {
			return value.Undefined, nil
		}
		instIn := rt.Objects.Resolve(heap.Handle(this.AsObject()))
		arr := instIn.NewArray()
		for i, a := range args {
			_ = arr.Set(i, a)
		}
		rt.writeLengthProperty(ctx, heap.Handle(this.AsObject()), len(args))
		return value.Undefined, nil
	})

	rt.RegisterFunction(h, "Object", func(ctx context.Context, this value.Value, args []value.Value) (value.Value, error) {
		return value.Undefined, nil
	})

	rt.RegisterFunction(h, "Error", func(ctx context.Context, this value.Value, args []value.Value) (value.Value, error) {
		return rt.initErrorInstance(this, "Error", args)
	})
	rt.RegisterFunction(h, "TypeError", func(ctx context.Context, this value.Value, args []value.Value) (value.Value, error) {
		return rt.initErrorInstance(this, "TypeError", args)
	})
	rt.RegisterFunction(h, "RangeError", func(ctx context.Context, this value.Value, args []value.Value) (value.Value, error) {
		return rt.initErrorInstance(this, "RangeError", args)
	})

	rt.registerConsole(h)
	return h
}

// RegisterFunction installs fn as a native global property named
// name on the object at target (spec.md §6's embedding API: a host
// program extends a Runtime's global namespace with its own
// callables before running any script against it).
func (rt *Runtime) RegisterFunction(target heap.Handle, name string, fn interp.NativeFunc) {
	fh, fin := rt.Objects.New()
	fin.SetWrapped(&object.FunctionData{Code: fn})
	key := rt.Keys.Register(name)
	rt.Objects.Resolve(target).InsertPropertyBuiltin(key, value.Object(value.ObjectPayload(fh)), true, true)
}

func (rt *Runtime) writeLengthProperty(ctx context.Context, h heap.Handle, n int) {
	rt.Objects.Resolve(h).InsertPropertyBuiltin(propkey.Length, value.Number(float64(n)), true, true)
}

// initErrorInstance backs the Error/TypeError/RangeError globals:
// `new Error("msg")` lowers (via compileNew) to a plain Construct call
// against whichever of these NativeFuncs the identifier resolved to,
// same as any other constructor.
func (rt *Runtime) initErrorInstance(this value.Value, name string, args []value.Value) (value.Value, error) {
	if !this.IsObject() {
		return value.Undefined, nil
	}
	msg := ""
	if len(args) > 0 && args[0].IsString() {
		if s, ok := rt.Strings.Resolve(args[0].AsStringID()); ok {
			msg = s
		}
	}
	in := rt.Objects.Resolve(heap.Handle(this.AsObject()))
	in.SetWrapped(&object.ErrorBoxData{Name: name, Message: msg, Stack: ""})
	in.InsertPropertyBuiltin(propkey.Name, value.Str(rt.Strings.Intern(name)), true, true)
	in.InsertPropertyBuiltin(propkey.Message, value.Str(rt.Strings.Intern(msg)), true, true)
	return value.Undefined, nil
}

// registerConsole installs a minimal console.log/warn/error trio that
// formats each argument with TypeOf-aware fmt.Sprint and writes
// through the Runtime's own vlog.Logger, so a script's console.log
// calls land in the same structured, colourized stream as the host's
// own diagnostics.
func (rt *Runtime) registerConsole(globals heap.Handle) {
	ch, cin := rt.Objects.New()

	logFn := func(level string) interp.NativeFunc {
		return func(ctx context.Context, this value.Value, args []value.Value) (value.Value, error) {
			parts := make([]any, len(args))
			for i, a := range args {
				parts[i] = rt.formatValue(a)
			}
			msg := fmt.Sprint(parts...)
			switch level {
			case "error":
				rt.Log.Error(msg)
			case "warn":
				rt.Log.Warn(msg)
			default:
				rt.Log.Info(msg)
			}
			return value.Undefined, nil
		}
	}

	cin.InsertPropertyBuiltin(rt.Keys.Register("log"), rt.wrapNative(logFn("log")), true, true)
	cin.InsertPropertyBuiltin(rt.Keys.Register("warn"), rt.wrapNative(logFn("warn")), true, true)
	cin.InsertPropertyBuiltin(rt.Keys.Register("error"), rt.wrapNative(logFn("error")), true, true)

	rt.Objects.Resolve(globals).InsertPropertyBuiltin(rt.Keys.Register("console"), value.Object(value.ObjectPayload(ch)), true, true)
}

func (rt *Runtime) wrapNative(fn interp.NativeFunc) value.Value {
	h, in := rt.Objects.New()
	in.SetWrapped(&object.FunctionData{Code: fn})
	return value.Object(value.ObjectPayload(h))
}

// formatValue renders a Value for console output without invoking
// any user-defined toString (spec.md's closed operation set has no
// such hook yet): primitives print directly, objects print their
// constructor-less shape as "[object]".
func (rt *Runtime) formatValue(v value.Value) string {
	switch {
	case v.IsUndefined():
		return "undefined"
	case v.IsNull():
		return "null"
	case v.IsBoolean():
		return fmt.Sprint(v.IsTrue())
	case v.IsNumber():
		return fmt.Sprint(v.AsFloat64())
	case v.IsString():
		s, _ := rt.Strings.Resolve(v.AsStringID())
		return s
	case v.IsObject():
		return "[object]"
	default:
		return "<value>"
	}
}
