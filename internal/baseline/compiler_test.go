package baseline

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/velajs/vela/internal/backend/mmapexec"
	"github.com/velajs/vela/internal/bytecode"
	"github.com/velajs/vela/internal/value"
)

func buildAddFn(b *bytecode.Builder) *bytecode.Function {
	fn := b.StartFunction("add")
	entry := b.NewBlock()
	b.SetBlock(entry)
	c1 := b.AddConstant(value.Int(2))
	c2 := b.AddConstant(value.Int(3))
	r1 := b.EmitLoadConst(c1)
	r2 := b.EmitLoadConst(c2)
	sum := b.EmitBinary(bytecode.OpAdd, r1, r2)
	b.EmitReturn(sum)
	return fn
}

func TestCompileSkipsWithoutMonomorphicProfile(t *testing.T) {
	b := bytecode.NewBuilder()
	fn := buildAddFn(b)

	c := NewCompiler(mmapexec.New())
	profiler := NewProfiler(fn.NumRegs, 1<<20)

	_, ok, err := c.Compile(fn, profiler)
	require.NoError(t, err)
	require.False(t, ok, "an unprofiled function must not be specialized")
}

func TestCompileSucceedsOnceOperandsAreMonomorphicNumber(t *testing.T) {
	b := bytecode.NewBuilder()
	fn := buildAddFn(b)

	c := NewCompiler(mmapexec.New())
	profiler := NewProfiler(fn.NumRegs, 1<<20)
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Code {
			for _, r := range inst.Reads() {
				profiler.Observe(r, value.Int(1))
			}
			if w, ok := inst.Writes(); ok {
				profiler.Observe(w, value.Int(1))
			}
		}
	}

	compiled, ok, err := c.Compile(fn, profiler)
	require.NoError(t, err)
	require.True(t, ok)

	result, isErr := compiled.Entry(value.Undefined, nil, 0, 0, nil)
	require.False(t, isErr)
	require.True(t, result.IsNumber())
	f, ok := result.AsFloat64Checked()
	require.True(t, ok)
	require.Equal(t, 5.0, f)
}

func TestProfilerPersistRestoreRoundTrips(t *testing.T) {
	p := NewProfiler(4, 1<<20)
	p.Observe(2, value.Int(7))
	p.Persist("fn")

	q := NewProfiler(4, 1<<20)
	q.Restore("fn")
	require.Equal(t, p.Finish()[2], q.Finish()[2])
}
