// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package frontend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/velajs/vela/internal/bytecode"
	"github.com/velajs/vela/internal/intern"
)

func TestCompileArithmeticScriptProducesEntryFunction(t *testing.T) {
	strings := intern.NewStringInterner()
	prog, err := Compile(strings, "test.js", "var x = 1 + 2; x;")
	require.NoError(t, err)
	require.NotEmpty(t, prog.Functions)
	entry := prog.Functions[prog.Entry]
	require.Equal(t, 1, entry.NumCaptures, "entry function must capture slot 0 for the globals object")
	require.NotEmpty(t, entry.Blocks)
}

func TestCompileRejectsUnsupportedSyntax(t *testing.T) {
	strings := intern.NewStringInterner()
	_, err := Compile(strings, "test.js", "var [a, b] = [1, 2];")
	require.Error(t, err)
}

// TestNestedClosureCapturesOuterLocal drives the funcCtx scope/capture
// machinery directly, independent of the goja AST surface, to pin down
// the behavior compileFunctionLiteral relies on: a variable declared
// in an outer function and referenced from a nested one gets exactly
// one fresh capture slot, and a second reference to the same name
// reuses that slot rather than minting another.
func TestNestedClosureCapturesOuterLocal(t *testing.T) {
	strings := intern.NewStringInterner()
	c := &compiler{b: bytecode.NewBuilder(), strings: strings}

	outerFn := c.b.StartFunction("outer")
	outer := newFuncCtx(c, outerFn, nil)
	outer.pushScope()
	outerReg := outer.declare("counter")

	saved := c.b.Suspend()
	innerFn := c.b.StartFunction("inner")
	inner := newFuncCtx(c, innerFn, outer)
	inner.pushScope()

	ref1, ok := inner.resolve("counter")
	require.True(t, ok)
	require.Equal(t, refCapture, ref1.kind)
	require.Equal(t, int32(0), ref1.idx)

	ref2, ok := inner.resolve("counter")
	require.True(t, ok)
	require.Equal(t, ref1.idx, ref2.idx, "a second reference must reuse the first capture slot")
	require.Equal(t, 1, innerFn.NumCaptures)

	require.Len(t, inner.pending, 1)
	require.Equal(t, "counter", inner.pending[0].name)
	require.Equal(t, refLocal, inner.pending[0].ref.kind)
	require.Equal(t, outerReg, inner.pending[0].ref.reg)

	c.b.Resume(saved)
}

// TestTransitiveCaptureChainsThroughTwoFunctionBoundaries checks that a
// doubly-nested function reaching for a grandparent's local produces a
// capture in BOTH the parent and grandchild, chained correctly.
func TestTransitiveCaptureChainsThroughTwoFunctionBoundaries(t *testing.T) {
	strings := intern.NewStringInterner()
	c := &compiler{b: bytecode.NewBuilder(), strings: strings}

	grandparentFn := c.b.StartFunction("gp")
	gp := newFuncCtx(c, grandparentFn, nil)
	gp.pushScope()
	gpReg := gp.declare("shared")

	parentFn := c.b.StartFunction("p")
	parent := newFuncCtx(c, parentFn, gp)
	parent.pushScope()

	childFn := c.b.StartFunction("c")
	child := newFuncCtx(c, childFn, parent)
	child.pushScope()

	ref, ok := child.resolve("shared")
	require.True(t, ok)
	require.Equal(t, refCapture, ref.kind)

	require.Len(t, parent.pending, 1, "resolving through parent must also register a capture on parent")
	require.Equal(t, refLocal, parent.pending[0].ref.kind)
	require.Equal(t, gpReg, parent.pending[0].ref.reg)

	require.Len(t, child.pending, 1)
	require.Equal(t, refCapture, child.pending[0].ref.kind)
	require.Equal(t, parent.captureIdx["shared"], child.pending[0].ref.idx)
}

func TestBreakOutsideLoopIsIllegal(t *testing.T) {
	strings := intern.NewStringInterner()
	c := &compiler{b: bytecode.NewBuilder(), strings: strings}
	fn := c.b.StartFunction("f")
	fc := newFuncCtx(c, fn, nil)
	fc.pushScope()

	_, err := fc.breakTarget("")
	require.Error(t, err)
}

func TestContinueTargetsNearestLoopNotSwitch(t *testing.T) {
	strings := intern.NewStringInterner()
	c := &compiler{b: bytecode.NewBuilder(), strings: strings}
	fn := c.b.StartFunction("f")
	fc := newFuncCtx(c, fn, nil)
	fc.pushScope()

	loopCont := c.b.NewBlock()
	loopBreak := c.b.NewBlock()
	fc.pushLoop("", loopBreak.ID, loopCont.ID)

	switchBreak := c.b.NewBlock()
	fc.pushSwitch("", switchBreak.ID)

	target, err := fc.continueTarget("")
	require.NoError(t, err)
	require.Equal(t, loopCont.ID, target)

	brTarget, err := fc.breakTarget("")
	require.NoError(t, err)
	require.Equal(t, switchBreak.ID, brTarget, "break without a label targets the nearest break target, the switch")
}
