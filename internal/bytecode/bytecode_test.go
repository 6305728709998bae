package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/velajs/vela/internal/value"
)

func buildAddFn(b *Builder) *Function {
	fn := b.StartFunction("add")
	entry := b.NewBlock()
	b.SetBlock(entry)
	c1 := b.AddConstant(value.Int(2))
	c2 := b.AddConstant(value.Int(3))
	r1 := b.EmitLoadConst(c1)
	r2 := b.EmitLoadConst(c2)
	sum := b.EmitBinary(OpAdd, r1, r2)
	b.EmitReturn(sum)
	return fn
}

func TestBuilderEmitsExpectedShape(t *testing.T) {
	b := NewBuilder()
	fn := buildAddFn(b)
	require.Len(t, fn.Blocks, 1)
	require.Len(t, fn.Constants, 2)
	require.Equal(t, OpReturn, fn.Blocks[0].Code[len(fn.Blocks[0].Code)-1].Op)
}

func TestConstantFoldsAdditionOfTwoConstants(t *testing.T) {
	b := NewBuilder()
	fn := buildAddFn(b)
	ConstantFold(fn)

	// the Add instruction should now be a LoadConst of the folded 5
	var found bool
	for _, in := range fn.Blocks[0].Code {
		if in.Op == OpLoadConst {
			if v := fn.Constants[in.Imm]; v.IsInt() && v.AsInt() == 5 {
				found = true
			}
		}
	}
	require.True(t, found, "constant fold must produce a LoadConst of 5")
}

func TestDeadCodeEliminateRemovesUnusedPureOp(t *testing.T) {
	b := NewBuilder()
	fn := b.StartFunction("f")
	entry := b.NewBlock()
	b.SetBlock(entry)
	c := b.AddConstant(value.Int(1))
	used := b.EmitLoadConst(c)
	dead := b.EmitUnary(OpNeg, used) // never read afterward
	_ = dead
	b.EmitReturn(used)

	before := len(fn.Blocks[0].Code)
	DeadCodeEliminate(fn)
	after := len(fn.Blocks[0].Code)
	require.Less(t, after, before)

	for _, in := range fn.Blocks[0].Code {
		require.NotEqual(t, OpNeg, in.Op, "dead Neg instruction must be eliminated")
	}
}

func TestDeadCodeEliminateKeepsSideEffectingCalls(t *testing.T) {
	b := NewBuilder()
	fn := b.StartFunction("f")
	entry := b.NewBlock()
	b.SetBlock(entry)
	c := b.AddConstant(value.Int(1))
	callee := b.EmitLoadConst(c)
	ret := b.EmitCall(callee, nil) // result never read, but Call has side effects
	_ = ret
	b.EmitReturn(callee)

	DeadCodeEliminate(fn)
	var sawCall bool
	for _, in := range fn.Blocks[0].Code {
		if in.Op == OpCall {
			sawCall = true
		}
	}
	require.True(t, sawCall, "a Call must survive DCE even if its result is unused")
}

func TestCommonSubexprEliminateReplacesRedundantComputation(t *testing.T) {
	b := NewBuilder()
	fn := b.StartFunction("f")
	entry := b.NewBlock()
	b.SetBlock(entry)
	c1 := b.AddConstant(value.Int(2))
	c2 := b.AddConstant(value.Int(3))
	x := b.EmitLoadConst(c1)
	y := b.EmitLoadConst(c2)
	sum1 := b.EmitBinary(OpAdd, x, y)
	sum2 := b.EmitBinary(OpAdd, x, y) // redundant
	b.EmitReturn(sum2)
	_ = sum1

	CommonSubexprEliminate(fn)

	var movCount int
	for _, in := range fn.Blocks[0].Code {
		if in.Op == OpMov {
			movCount++
		}
	}
	require.Equal(t, 1, movCount, "the second identical Add must become a Mov of the first")
}

func TestInlineSplicesCalleeAndRoutesReturnThroughExit(t *testing.T) {
	calleeBuilder := NewBuilder()
	callee := calleeBuilder.StartFunction("callee")
	cb := calleeBuilder.NewBlock()
	calleeBuilder.SetBlock(cb)
	cc := calleeBuilder.AddConstant(value.Int(9))
	r := calleeBuilder.EmitLoadConst(cc)
	calleeBuilder.EmitReturn(r)

	callerBuilder := NewBuilder()
	caller := callerBuilder.StartFunction("caller")
	site := callerBuilder.NewBlock()
	callerBuilder.SetBlock(site)
	thisReg := callerBuilder.NewValue()

	resultReg := Inline(caller, site.ID, thisReg, callee)
	_ = resultReg

	require.True(t, len(caller.Blocks) >= 2, "inlining must append at least the exit block")
	require.Equal(t, OpPrepareInlinedCall, site.Code[0].Op)
	require.Equal(t, OpSetThis, site.Code[1].Op)
	require.Equal(t, OpCreateBlock, site.Code[2].Op)

	// the callee's Return must have been rewritten into a Jump to the
	// exit block somewhere in the spliced body — a raw Return opcode
	// must never survive an inline (it would return from the wrong
	// function entirely).
	for _, b := range caller.Blocks {
		for _, in := range b.Code {
			require.NotEqual(t, OpReturn, in.Op, "inlined callee must not retain a bare Return")
		}
	}
}
