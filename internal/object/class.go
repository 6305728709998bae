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
	"github.com/velajs/vela/internal/propkey"
	"github.com/velajs/vela/internal/value"
)

// AccessorPair is a getter/setter pair, either half possibly
// Undefined.
type AccessorPair struct {
	Get value.Value
	Set value.Value
}

// Class is an immutable descriptor of a constructor, its instance and
// static methods/accessors, and its ordered own-property list
// (spec.md §3's "Class descriptor"). Classes are shared; each `new`
// instantiates a fresh object whose prototype points to Prototype.
type Class struct {
	Name        string
	Constructor value.Value // a WrappedFunction object, or Undefined for the implicit default ctor

	InstanceMethods  map[propkey.Key]value.Value
	StaticMethods    map[propkey.Key]value.Value
	InstanceAccessors map[propkey.Key]AccessorPair
	StaticAccessors   map[propkey.Key]AccessorPair

	OwnPropertyOrder []propkey.Key // instance fields in declaration order

	Prototype heap.Handle // the shared prototype object every instance's __proto__ points to
	Statics   heap.Handle // the class object itself, carrying StaticMethods/StaticAccessors
}

// NewClass builds the shared prototype and static-side objects for a
// class and wires Prototype.constructor back to the class object
// (the standard `class.prototype.constructor === class` invariant).
func NewClass(store *Store, keys *propkey.Table, name string, ctor value.Value) *Class {
	protoH, proto := store.New()
	staticsH, _ := store.New()

	c := &Class{
		Name:              name,
		Constructor:       ctor,
		InstanceMethods:   make(map[propkey.Key]value.Value),
		StaticMethods:     make(map[propkey.Key]value.Value),
		InstanceAccessors: make(map[propkey.Key]AccessorPair),
		StaticAccessors:   make(map[propkey.Key]AccessorPair),
		Prototype:         protoH,
		Statics:           staticsH,
	}

	proto.InsertPropertyBuiltin(propkey.Constructor, value.Object(value.ObjectPayload(staticsH)), true, true)
	return c
}

// InstantiatePrototypeChain applies the class's method/accessor
// tables onto its Prototype and Statics objects. Called once after
// every method has been registered via AddInstanceMethod etc., since
// a class body is fully parsed before any instance or static method
// can actually run.
func (c *Class) InstantiatePrototypeChain(store *Store) {
	proto := store.Resolve(c.Prototype)
	for k, fn := range c.InstanceMethods {
		proto.InsertPropertyBuiltin(k, fn, true, true)
	}
	for k, pair := range c.InstanceAccessors {
		if !pair.Get.IsUndefined() {
			proto.BindGetter(k, pair.Get)
		}
		if !pair.Set.IsUndefined() {
			proto.BindSetter(k, pair.Set)
		}
	}

	statics := store.Resolve(c.Statics)
	for k, fn := range c.StaticMethods {
		statics.InsertPropertyBuiltin(k, fn, true, true)
	}
	for k, pair := range c.StaticAccessors {
		if !pair.Get.IsUndefined() {
			statics.BindGetter(k, pair.Get)
		}
		if !pair.Set.IsUndefined() {
			statics.BindSetter(k, pair.Set)
		}
	}
}

// NewInstance allocates a fresh object whose prototype is the class's
// shared Prototype object (spec.md §3: "each new instantiates a fresh
// object whose prototype points to the class's prototype object").
func (c *Class) NewInstance(store *Store) (heap.Handle, *Inner) {
	h, in := store.New()
	in.SetProto(c.Prototype, true)
	return h, in
}
