// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package object

import (
	"github.com/velajs/vela/internal/heap"
	"github.com/velajs/vela/internal/value"
)

// ArrayData backs a WrappedArray object: integer-keyed accesses go
// through Dense (spec.md §4.D's array sub-operations) while
// non-integer keys still fall through to the Inner's ordinary
// property map.
type ArrayData struct {
	Dense []value.Value
}

func (a *ArrayData) Kind() WrappedKind { return WrappedArray }
func (a *ArrayData) TraceRefs(visit func(heap.Ref)) {
	for _, v := range a.Dense {
		if r, ok := refOf(v); ok {
			visit(r)
		}
	}
}

// TypedArrayElem names one of the eleven element kinds spec.md §3
// enumerates for TypedArray.
type TypedArrayElem uint8

const (
	ElemInt8 TypedArrayElem = iota
	ElemUint8
	ElemUint8Clamped
	ElemInt16
	ElemUint16
	ElemInt32
	ElemUint32
	ElemFloat32
	ElemFloat64
	ElemBigInt64
	ElemBigUint64
)

// TypedArrayData backs a WrappedTypedArray object: a byte buffer
// interpreted as a homogeneous sequence of Elem-kind elements.
// Buffers never contain object references, so TraceRefs is a no-op.
type TypedArrayData struct {
	Elem   TypedArrayElem
	Buffer []byte
}

func (t *TypedArrayData) Kind() WrappedKind             { return WrappedTypedArray }
func (t *TypedArrayData) TraceRefs(func(heap.Ref))       {}

// FunctionData backs a WrappedFunction object: compiled code plus its
// lexical captures. Code is an opaque handle into internal/bytecode
// (object intentionally holds no bytecode-package dependency, keeping
// the dependency edge running interp/bytecode -> object, not back).
type FunctionData struct {
	Code     any
	Captures []value.Value
}

func (f *FunctionData) Kind() WrappedKind { return WrappedFunction }
func (f *FunctionData) TraceRefs(visit func(heap.Ref)) {
	for _, v := range f.Captures {
		if r, ok := refOf(v); ok {
			visit(r)
		}
	}
}

// FunctionInstanceData backs a bound/instantiated function value
// (spec.md §3's FunctionInstance) wrapping the underlying function
// object plus a bound `this`/partial argument list.
type FunctionInstanceData struct {
	Target    heap.Handle // the WrappedFunction object this instance closes over
	BoundThis value.Value
	BoundArgs []value.Value
}

func (f *FunctionInstanceData) Kind() WrappedKind { return WrappedFunctionInstance }
func (f *FunctionInstanceData) TraceRefs(visit func(heap.Ref)) {
	visit(heap.Ref{Kind: heap.KindObject, Handle: f.Target})
	if r, ok := refOf(f.BoundThis); ok {
		visit(r)
	}
	for _, v := range f.BoundArgs {
		if r, ok := refOf(v); ok {
			visit(r)
		}
	}
}

// ProxyData backs a WrappedProxy object (spec.md §4.D's Proxy
// semantics): both target and handler are strong references.
type ProxyData struct {
	Target  heap.Handle
	Handler heap.Handle
}

func (p *ProxyData) Kind() WrappedKind { return WrappedProxy }
func (p *ProxyData) TraceRefs(visit func(heap.Ref)) {
	visit(heap.Ref{Kind: heap.KindObject, Handle: p.Target})
	visit(heap.Ref{Kind: heap.KindObject, Handle: p.Handler})
}

// GeneratorData backs a WrappedGenerator object: the coroutine handle
// is opaque to package object (internal/coroutine owns its shape) and
// the closure is whatever locals/captures the suspended frame needs
// kept alive.
type GeneratorData struct {
	Coroutine any
	Closure   []value.Value
}

func (g *GeneratorData) Kind() WrappedKind { return WrappedGenerator }
func (g *GeneratorData) TraceRefs(visit func(heap.Ref)) {
	for _, v := range g.Closure {
		if r, ok := refOf(v); ok {
			visit(r)
		}
	}
}

// PromiseState is one of the three ECMAScript promise states.
type PromiseState uint8

const (
	PromisePending PromiseState = iota
	PromiseFulfilled
	PromiseRejected
)

// PromiseData backs a WrappedPromise object.
type PromiseData struct {
	State       PromiseState
	Result      value.Value   // fulfillment value or rejection reason once settled
	Reactions   []value.Value // queued then()/catch() callback objects
}

func (p *PromiseData) Kind() WrappedKind { return WrappedPromise }
func (p *PromiseData) TraceRefs(visit func(heap.Ref)) {
	if r, ok := refOf(p.Result); ok {
		visit(r)
	}
	for _, v := range p.Reactions {
		if r, ok := refOf(v); ok {
			visit(r)
		}
	}
}

// RegExpData backs a WrappedRegExp object.
type RegExpData struct {
	Source string
	Flags  string
}

func (r *RegExpData) Kind() WrappedKind       { return WrappedRegExp }
func (r *RegExpData) TraceRefs(func(heap.Ref)) {}

// BigIntBoxData backs a WrappedBigIntBox object: a BIGINT-tagged
// value wrapped in an ordinary object (the result of `Object(1n)`).
type BigIntBoxData struct {
	BigInt value.Value
}

func (b *BigIntBoxData) Kind() WrappedKind { return WrappedBigIntBox }
func (b *BigIntBoxData) TraceRefs(visit func(heap.Ref)) {
	if r, ok := refOf(b.BigInt); ok {
		visit(r)
	}
}

// ErrorBoxData backs a WrappedErrorBox object: the engine-internal
// representation behind every `Error`/`TypeError`/... instance.
type ErrorBoxData struct {
	Name    string
	Message string
	Stack   string
}

func (e *ErrorBoxData) Kind() WrappedKind       { return WrappedErrorBox }
func (e *ErrorBoxData) TraceRefs(func(heap.Ref)) {}

// CustomHostData backs a WrappedCustomHost object: an opaque
// embedding-supplied payload (spec.md §6's host object escape hatch).
// TraceHost lets the host register its own reference walker instead
// of package object needing to know the payload's shape.
type CustomHostData struct {
	Host       any
	TraceHost  func(any, func(heap.Ref))
}

func (c *CustomHostData) Kind() WrappedKind { return WrappedCustomHost }
func (c *CustomHostData) TraceRefs(visit func(heap.Ref)) {
	if c.TraceHost != nil {
		c.TraceHost(c.Host, visit)
	}
}
