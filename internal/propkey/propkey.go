// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package propkey implements the per-runtime property-key table
// (spec.md §4.C): a single name → u32 id mapping used by every object
// lookup, with a frozen set of reserved builtin ids.
package propkey

// Key is a property-key id. The id IS its own identity hash (spec.md
// §3: "an identity-hash (the key id *is* its hash)").
type Key uint32

// Reserved builtin keys, populated and frozen at Table construction.
const (
	Prototype Key = iota
	Constructor
	Length
	Next
	Value
	Done
	Name
	Message
	Stack
	Configurable
	Enumerable
	Writable
	Get
	Set
	Target
	Handler
	reservedCount
)

var reservedNames = [reservedCount]string{
	Prototype:    "prototype",
	Constructor:  "constructor",
	Length:       "length",
	Next:         "next",
	Value:        "value",
	Done:         "done",
	Name:         "name",
	Message:      "message",
	Stack:        "stack",
	Configurable: "configurable",
	Enumerable:   "enumerable",
	Writable:     "writable",
	Get:          "get",
	Set:          "set",
	Target:       "target",
	Handler:      "handler",
}

// Table is the per-runtime name→id mapping. Unlike
// intern.StringInterner (which may be shared process-wide), a Table
// is always runtime-local (spec.md §5).
type Table struct {
	byName map[string]Key
	byID   []string
	frozen bool
}

// NewTable creates a Table with the reserved builtin keys registered,
// then freezes that initial segment: register will still accept new
// names (a Table is never fully frozen — new property names appear
// continuously during execution) but builtin ids are guaranteed
// stable from id 0.
func NewTable() *Table {
	t := &Table{byName: make(map[string]Key, 64)}
	for id, name := range reservedNames {
		t.byName[name] = Key(id)
		t.byID = append(t.byID, name)
	}
	t.frozen = true
	return t
}

// Register returns the stable id for name, assigning a new one if
// name has not been registered before.
func (t *Table) Register(name string) Key {
	if id, ok := t.byName[name]; ok {
		return id
	}
	id := Key(len(t.byID))
	t.byID = append(t.byID, name)
	t.byName[name] = id
	return id
}

// Name resolves a key back to its string name.
func (t *Table) Name(k Key) (string, bool) {
	if int(k) >= len(t.byID) {
		return "", false
	}
	return t.byID[k], true
}

// Len reports how many distinct keys have been registered, including
// the frozen builtin prefix.
func (t *Table) Len() int { return len(t.byID) }
