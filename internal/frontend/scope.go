// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package frontend

import (
	"github.com/velajs/vela/internal/bytecode"
	"github.com/velajs/vela/internal/jserr"
)

type refKind uint8

const (
	refLocal refKind = iota
	refCapture
)

// varRef is how a funcCtx reaches a variable: either directly, as one
// of its own registers, or indirectly, as a slot in its capture array
// populated by the enclosing function at OpCreateFunction time.
type varRef struct {
	kind refKind
	reg  bytecode.Reg
	idx  int32
}

// pendingCapture records, for a capture slot this function has
// assigned, how the *enclosing* function must read that same variable
// when it wires up EmitCaptureVar after this function's literal is
// created.
type pendingCapture struct {
	name string
	ref  varRef
}

// lexical block scope: a chain of name -> register maps, innermost
// first, mirroring JS's block scoping for let/const/function params
// without distinguishing var's function-wide hoisting (VELA treats
// var like a pre-hoisted let; spec.md's closed statement surface
// never exercises the difference between the two in an observable way
// within one function body).
type scope struct {
	vars   map[string]bytecode.Reg
	parent *scope
}

// ctrlTarget is one entry on the break/continue target stack, pushed
// by loops (which support both) and switch statements (break only).
type ctrlTarget struct {
	label         string
	breakBlock    bytecode.BlockID
	continueBlock bytecode.BlockID
	hasContinue   bool
}

// funcCtx holds everything the statement/expression compilers need
// while walking one function body: the shared Builder (already
// switched to this function), the lexical scope chain, and the
// capture bookkeeping that lets a reference to an outer function's
// variable turn into a chain of OpReadCapture/OpCaptureVar wiring.
type funcCtx struct {
	c      *compiler
	b      *bytecode.Builder
	fn     *bytecode.Function
	parent *funcCtx

	top        *scope
	captureIdx map[string]int32
	pending    []pendingCapture

	ctrl []ctrlTarget
}

func newFuncCtx(c *compiler, fn *bytecode.Function, parent *funcCtx) *funcCtx {
	return &funcCtx{
		c:          c,
		b:          c.b,
		fn:         fn,
		parent:     parent,
		captureIdx: make(map[string]int32),
	}
}

func (fc *funcCtx) pushScope() { fc.top = &scope{vars: make(map[string]bytecode.Reg), parent: fc.top} }
func (fc *funcCtx) popScope()  { fc.top = fc.top.parent }

// declare binds name to a fresh register in the innermost scope,
// shadowing any outer binding of the same name.
func (fc *funcCtx) declare(name string) bytecode.Reg {
	r := fc.b.NewValue()
	fc.top.vars[name] = r
	return r
}

func (fc *funcCtx) lookupLocal(name string) (bytecode.Reg, bool) {
	for s := fc.top; s != nil; s = s.parent {
		if r, ok := s.vars[name]; ok {
			return r, true
		}
	}
	return 0, false
}

// resolve finds how fc itself should access name: as one of its own
// registers, as a capture slot it already has, or — the first time
// some descendant function reaches for an ancestor's variable — a
// freshly assigned capture slot whose pendingCaptures entry records
// how the *immediate* parent reaches the same variable, so the caller
// compiling this function's literal can wire EmitCaptureVar correctly
// regardless of how many function boundaries lie between def and use.
func (fc *funcCtx) resolve(name string) (varRef, bool) {
	if r, ok := fc.lookupLocal(name); ok {
		return varRef{kind: refLocal, reg: r}, true
	}
	if idx, ok := fc.captureIdx[name]; ok {
		return varRef{kind: refCapture, idx: idx}, true
	}
	if fc.parent == nil {
		return varRef{}, false
	}
	parentRef, ok := fc.parent.resolve(name)
	if !ok {
		return varRef{}, false
	}
	idx := int32(fc.fn.NumCaptures)
	fc.fn.NumCaptures++
	fc.captureIdx[name] = idx
	fc.pending = append(fc.pending, pendingCapture{name: name, ref: parentRef})
	return varRef{kind: refCapture, idx: idx}, true
}

// materialize loads ref's value into a register usable by fc's
// current block: a local register as-is, a capture slot via a fresh
// OpReadCapture.
func (fc *funcCtx) materialize(ref varRef) bytecode.Reg {
	if ref.kind == refLocal {
		return ref.reg
	}
	return fc.b.EmitReadCapture(ref.idx)
}

// globalsReg returns a register holding the runtime's globals object,
// capturing it transitively from the entry function's slot 0 if fc
// isn't the entry function itself.
func (fc *funcCtx) globalsReg() bytecode.Reg {
	ref, _ := fc.resolve(globalSlot)
	return fc.materialize(ref)
}

// readIdentifier loads name's current value: a local register, a
// captured one, or — if name resolves nowhere lexically — a property
// read off the runtime's globals object (spec.md §4.L's global
// binding set lives there, not in any closure).
func (fc *funcCtx) readIdentifier(name string) bytecode.Reg {
	if ref, ok := fc.resolve(name); ok {
		return fc.materialize(ref)
	}
	g := fc.globalsReg()
	return fc.b.EmitGetFieldOrUndefined(g, fc.c.addStringConstant(name))
}

// writeIdentifier assigns src to name: in place for a local or
// captured binding, else as a property set on the globals object
// (an implicit global created by assignment to an undeclared name,
// matching non-strict ECMAScript's sloppy-mode behavior).
func (fc *funcCtx) writeIdentifier(name string, src bytecode.Reg) {
	if ref, ok := fc.resolve(name); ok {
		switch ref.kind {
		case refLocal:
			fc.b.EmitMovInto(ref.reg, src)
		case refCapture:
			fc.b.EmitWriteCapture(ref.idx, src)
		}
		return
	}
	g := fc.globalsReg()
	fc.b.EmitSetField(g, fc.c.addStringConstant(name), src)
}

func (fc *funcCtx) pushLoop(label string, breakBlock, continueBlock bytecode.BlockID) {
	fc.ctrl = append(fc.ctrl, ctrlTarget{label: label, breakBlock: breakBlock, continueBlock: continueBlock, hasContinue: true})
}

func (fc *funcCtx) pushSwitch(label string, breakBlock bytecode.BlockID) {
	fc.ctrl = append(fc.ctrl, ctrlTarget{label: label, breakBlock: breakBlock})
}

func (fc *funcCtx) popCtrl() { fc.ctrl = fc.ctrl[:len(fc.ctrl)-1] }

func (fc *funcCtx) breakTarget(label string) (bytecode.BlockID, error) {
	for i := len(fc.ctrl) - 1; i >= 0; i-- {
		t := fc.ctrl[i]
		if label == "" || t.label == label {
			return t.breakBlock, nil
		}
	}
	if label != "" {
		return 0, &jserr.LabelUndefined{Name: label}
	}
	return 0, &jserr.IllegalBreak{}
}

func (fc *funcCtx) continueTarget(label string) (bytecode.BlockID, error) {
	for i := len(fc.ctrl) - 1; i >= 0; i-- {
		t := fc.ctrl[i]
		if !t.hasContinue {
			if label != "" && t.label == label {
				return 0, &jserr.IllegalContinue{}
			}
			continue
		}
		if label == "" || t.label == label {
			return t.continueBlock, nil
		}
	}
	if label != "" {
		return 0, &jserr.LabelUndefined{Name: label}
	}
	return 0, &jserr.IllegalContinue{}
}
