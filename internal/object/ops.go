// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package object

import (
	"context"

	"github.com/velajs/vela/internal/heap"
	"github.com/velajs/vela/internal/jserr"
	"github.com/velajs/vela/internal/propkey"
	"github.com/velajs/vela/internal/value"
)

// Invoker calls a callable OBJECT value with a `this` binding and
// argument list. get_property/set_property take one in so they can
// invoke a getter/setter without package object depending on
// internal/interp (the dependency edge runs interp -> object, never
// back).
type Invoker func(ctx context.Context, fn value.Value, this value.Value, args []value.Value) (value.Value, error)

// GetProperty implements spec.md §4.D's get_property: walks the
// prototype chain, invokes a getter with this=receiver if found,
// returns Undefined when no property exists anywhere on the chain.
func (s *Store) GetProperty(ctx context.Context, start heap.Handle, key propkey.Key, receiver value.Value, invoke Invoker) (value.Value, error) {
	h := start
	for {
		in := s.Resolve(h)
		if p, ok := in.OwnProperty(key); ok {
			if p.IsAccessor() {
				if p.Value.IsUndefined() {
					return value.Undefined, nil
				}
				return invoke(ctx, p.Value, receiver, nil)
			}
			return p.Value, nil
		}
		next, has := in.Proto()
		if !has {
			return value.Undefined, nil
		}
		h = next
	}
}

// SetProperty implements spec.md §4.D's set_property. strict controls
// whether a rejected write (frozen/sealed/non-writable) throws
// TypeError or silently no-ops.
func (s *Store) SetProperty(ctx context.Context, start heap.Handle, key propkey.Key, v value.Value, receiver value.Value, strict bool, invoke Invoker) error {
	// First, walk the chain looking for an existing accessor or a
	// non-writable data property that should reject the write outright.
	h := start
	for {
		in := s.Resolve(h)
		if p, ok := in.OwnProperty(key); ok {
			if p.IsAccessor() {
				if p.Setter.IsUndefined() {
					return rejectWrite(strict, key)
				}
				_, err := invoke(ctx, p.Setter, receiver, []value.Value{v})
				return err
			}
			if h == start {
				if !p.IsWritable() {
					return rejectWrite(strict, key)
				}
				p.Value = v
				return nil
			}
			if !p.IsWritable() {
				return rejectWrite(strict, key)
			}
			// inherited data property: shadow it with an own property on
			// the receiver, unless the receiver itself can't be extended.
			break
		}
		next, has := in.Proto()
		if !has {
			break
		}
		h = next
	}

	recv := s.Resolve(start)
	if !recv.Extensible() {
		return rejectWrite(strict, key)
	}
	recv.setOwn(key, &Property{Flag: DefaultDataFlags, Value: v})
	return nil
}

func rejectWrite(strict bool, key propkey.Key) error {
	if !strict {
		return nil
	}
	return &jserr.TypeError{Msg: "cannot assign to read-only or non-extensible property"}
}

// HasProperty implements spec.md §4.D's has_property: traverses the
// prototype chain. The bloom filter lets each hop short-circuit a map
// probe when key was never added to that particular object.
func (s *Store) HasProperty(start heap.Handle, key propkey.Key) bool {
	h := start
	for {
		in := s.Resolve(h)
		if in.bloom == nil || in.bloom.mayContain(uint32(key)) {
			if _, ok := in.OwnProperty(key); ok {
				return true
			}
		}
		next, has := in.Proto()
		if !has {
			return false
		}
		h = next
	}
}

// DeleteProperty implements spec.md §4.D's delete_property: honours
// configurable. Returns false (no-op, not an error) when the own
// property exists but is non-configurable.
func (in *Inner) DeleteProperty(key propkey.Key) bool {
	p, ok := in.OwnProperty(key)
	if !ok {
		return true
	}
	if !p.IsConfigurable() {
		return false
	}
	delete(in.props, key)
	for i, k := range in.keys {
		if k == key {
			in.keys = append(in.keys[:i], in.keys[i+1:]...)
			break
		}
	}
	return true
}

// setOwn installs prop as key's own Property, appending to the
// insertion-order key list only on first insertion.
func (in *Inner) setOwn(key propkey.Key, prop *Property) {
	if in.props == nil {
		in.props = make(map[propkey.Key]*Property, 4)
	}
	if _, exists := in.props[key]; !exists {
		in.keys = append(in.keys, key)
	}
	in.props[key] = prop
	in.ensureBloom().add(uint32(key))
}

// DefineProperty implements the ECMAScript [[DefineOwnProperty]]
// internal method's data/accessor conversion and validity checks
// (spec.md §4.D's define_property), restricted to the common cases a
// conforming engine core needs: creating a new own property, and
// redefining an existing configurable one. Redefining a
// non-configurable property to anything but an identical descriptor
// is rejected.
func (in *Inner) DefineProperty(key propkey.Key, desc Property) error {
	if existing, ok := in.OwnProperty(key); ok && !existing.IsConfigurable() {
		if !descriptorsEquivalent(existing, &desc) {
			return &jserr.TypeError{Msg: "cannot redefine non-configurable property"}
		}
		return nil
	}
	if _, ok := in.OwnProperty(key); !ok && !in.Extensible() {
		return &jserr.TypeError{Msg: "cannot define property on non-extensible object"}
	}
	cp := desc
	in.setOwn(key, &cp)
	return nil
}

func descriptorsEquivalent(a, b *Property) bool {
	if a.Flag != b.Flag {
		return false
	}
	if a.IsAccessor() {
		return value.StrictEq(a.Value, b.Value) && value.StrictEq(a.Setter, b.Setter)
	}
	return value.StrictEq(a.Value, b.Value)
}

// InsertPropertyBuiltin implements spec.md §4.D's
// insert_property_builtin: a bypass for host/runtime init that writes
// an own data property with the given writable/configurable bits,
// always enumerable=false (matching how built-in methods and
// accessors install themselves on prototypes without polluting
// for..in).
func (in *Inner) InsertPropertyBuiltin(key propkey.Key, v value.Value, writable, configurable bool) {
	var flag PropFlag
	if writable {
		flag |= FlagWritable
	}
	if configurable {
		flag |= FlagConfigurable
	}
	in.setOwn(key, &Property{Flag: flag, Value: v})
}

// BindGetter implements spec.md §4.D's bind_getter: marks key as an
// accessor property and installs fn as its getter, preserving any
// existing setter (or Undefined if this is a fresh accessor).
func (in *Inner) BindGetter(key propkey.Key, fn value.Value) {
	setter := value.Undefined
	if p, ok := in.OwnProperty(key); ok && p.IsAccessor() {
		setter = p.Setter
	}
	in.setOwn(key, &Property{Flag: FlagAccessor | FlagEnumerable | FlagConfigurable, Value: fn, Setter: setter})
}

// BindSetter implements spec.md §4.D's bind_setter: the setter
// counterpart to BindGetter.
func (in *Inner) BindSetter(key propkey.Key, fn value.Value) {
	getter := value.Undefined
	if p, ok := in.OwnProperty(key); ok && p.IsAccessor() {
		getter = p.Value
	}
	in.setOwn(key, &Property{Flag: FlagAccessor | FlagEnumerable | FlagConfigurable, Value: getter, Setter: fn})
}
