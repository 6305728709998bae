// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package object implements VELA's object model: a stable pointer to
// an Inner cell carrying a GC flag, extensibility bit, optional
// __proto__, an ordered property map, and an optional wrapped-value
// subtype discriminator (spec.md §3/§4.D).
//
// Grounded on
// _examples/ProbeChain-go-probe/go-probe-master/core/state/state_object.go
// (go-probeum's stateObject): one inner struct holding an identity, a
// dirty/flag byte, and a discriminated union of sub-account kinds. VELA's
// wrappedKind/wrapped fields mirror the teacher's accountType byte
// plus regularAccount/pnsAccount/assetAccount/... fields.
package object

import (
	"github.com/velajs/vela/internal/heap"
	"github.com/velajs/vela/internal/propkey"
	"github.com/velajs/vela/internal/value"
)

// PropFlag packs the per-property attribute bits spec.md §3 names:
// enumerable, writable, configurable, and whether Value/Setter hold
// an accessor pair rather than a plain data value.
type PropFlag uint8

const (
	FlagEnumerable PropFlag = 1 << iota
	FlagWritable
	FlagConfigurable
	FlagAccessor
)

// DefaultDataFlags is what ordinary script property creation uses: a
// plain writable, enumerable, configurable data property.
// InsertPropertyBuiltin takes its flags from its own arguments and
// never sets FlagEnumerable.
const DefaultDataFlags = FlagEnumerable | FlagWritable | FlagConfigurable

// Property is one entry in an Inner's property map. For a data
// property Value holds the value and Setter is unused; for an
// accessor property Value holds the getter function (or Undefined)
// and Setter holds the setter function (or Undefined).
type Property struct {
	Flag   PropFlag
	Value  value.Value
	Setter value.Value
}

func (p *Property) IsAccessor() bool   { return p.Flag&FlagAccessor != 0 }
func (p *Property) IsEnumerable() bool { return p.Flag&FlagEnumerable != 0 }
func (p *Property) IsWritable() bool   { return p.Flag&FlagWritable != 0 }
func (p *Property) IsConfigurable() bool { return p.Flag&FlagConfigurable != 0 }

// WrappedKind discriminates which, if any, special subtype an Inner
// represents (spec.md §3's "optional wrapped value").
type WrappedKind uint8

const (
	WrappedNone WrappedKind = iota
	WrappedArray
	WrappedTypedArray
	WrappedFunction
	WrappedFunctionInstance
	WrappedProxy
	WrappedGenerator
	WrappedPromise
	WrappedRegExp
	WrappedBigIntBox
	WrappedErrorBox
	WrappedCustomHost
)

// Wrapped is implemented by every concrete wrapped-value payload
// (wrapped.go). TraceRefs lets the GC mark worklist walk into it
// without Inner needing a type switch for every kind at mark time.
type Wrapped interface {
	Kind() WrappedKind
	TraceRefs(visit func(heap.Ref))
}

// Inner is the GC-managed cell backing every object.Value. It
// satisfies heap.Cell so a *heap.SlabAllocator[Inner, *Inner] can own
// a pool of them directly (spec.md §4.E).
type Inner struct {
	heap.Header

	extensible bool
	sealed     bool
	frozen     bool

	hasProto bool
	proto    heap.Handle // valid only when hasProto; always KindObject

	keys  []propkey.Key // insertion order, for for-in / ownKeys
	props map[propkey.Key]*Property

	bloom *keyBloom // negative has_property lookups; nil until first property

	wrappedKind WrappedKind
	wrapped     Wrapped
}

// initFresh resets an Inner to its post-alloc initial state: no
// prototype, empty property map, extensible. Shared by both Alloc's
// implicit first use and ResetForGC's reuse-after-sweep path so they
// can never drift apart.
func (in *Inner) initFresh() {
	in.extensible = true
	in.sealed = false
	in.frozen = false
	in.hasProto = false
	in.proto = 0
	in.keys = nil
	in.props = nil
	in.bloom = nil
	in.wrappedKind = WrappedNone
	in.wrapped = nil
}

// ResetForGC implements heap.Cell: clears every field that holds a
// reference so the slab allocator can hand the cell back out with no
// stale state (spec.md §4.E: "resets it (clears property map, unsets
// wrapped value, clears __proto__)").
func (in *Inner) ResetForGC() { in.initFresh() }

// TraceRefs implements heap.Cell: visits the prototype, every
// property's value/setter when they hold an object or bigint
// reference, and whatever the wrapped payload itself references
// (spec.md §4.F.2).
func (in *Inner) TraceRefs(visit func(heap.Ref)) {
	if in.hasProto {
		visit(heap.Ref{Kind: heap.KindObject, Handle: in.proto})
	}
	for _, k := range in.keys {
		p := in.props[k]
		if p == nil {
			continue
		}
		if r, ok := refOf(p.Value); ok {
			visit(r)
		}
		if p.IsAccessor() {
			if r, ok := refOf(p.Setter); ok {
				visit(r)
			}
		}
	}
	if in.wrapped != nil {
		in.wrapped.TraceRefs(visit)
	}
}

func refOf(v value.Value) (heap.Ref, bool) {
	if v.IsObject() {
		return heap.Ref{Kind: heap.KindObject, Handle: heap.Handle(v.AsObject())}, true
	}
	if v.IsBigInt() {
		return heap.Ref{Kind: heap.KindBigInt, Handle: heap.Handle(v.AsBigIntIndex())}, true
	}
	return heap.Ref{}, false
}

// Extensible reports whether new own properties may still be added.
func (in *Inner) Extensible() bool { return in.extensible && !in.sealed && !in.frozen }

// Proto returns the prototype handle and whether one is set.
func (in *Inner) Proto() (heap.Handle, bool) { return in.proto, in.hasProto }

// SetProto sets or clears (hasProto=false) the prototype link.
func (in *Inner) SetProto(h heap.Handle, has bool) {
	in.hasProto = has
	if has {
		in.proto = h
	}
}

// PreventExtensions clears the extensible bit (Object.preventExtensions).
func (in *Inner) PreventExtensions() { in.extensible = false }

// Seal prevents new keys but leaves existing ones writable.
func (in *Inner) Seal() { in.sealed = true }

// Freeze prevents new keys and marks every own data property
// non-writable, non-configurable.
func (in *Inner) Freeze() {
	in.frozen = true
	for _, k := range in.keys {
		p := in.props[k]
		if p != nil && !p.IsAccessor() {
			p.Flag &^= FlagWritable | FlagConfigurable
		}
	}
}

func (in *Inner) IsSealed() bool { return in.sealed || in.frozen }
func (in *Inner) IsFrozen() bool { return in.frozen }

// OwnKeys returns the insertion-ordered own property key list,
// matching spec.md §3's "insertion-order is preserved for for..in via
// a parallel ordered key list".
func (in *Inner) OwnKeys() []propkey.Key { return in.keys }

// OwnProperty returns the Property cell stored for key, if any.
func (in *Inner) OwnProperty(key propkey.Key) (*Property, bool) {
	if in.props == nil {
		return nil, false
	}
	p, ok := in.props[key]
	return p, ok
}

// Wrapped returns the wrapped-value payload and its kind.
func (in *Inner) Wrapped() (Wrapped, WrappedKind) { return in.wrapped, in.wrappedKind }

// SetWrapped installs w as the wrapped-value payload, discriminated
// by w.Kind(). Passing a nil w clears it back to WrappedNone.
func (in *Inner) SetWrapped(w Wrapped) {
	in.wrapped = w
	if w == nil {
		in.wrappedKind = WrappedNone
		return
	}
	in.wrappedKind = w.Kind()
}
