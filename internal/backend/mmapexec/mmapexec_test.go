package mmapexec

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/velajs/vela/internal/backend"
	"github.com/velajs/vela/internal/bytecode"
	"github.com/velajs/vela/internal/value"
)

func TestCompileRunsStraightLineArithmetic(t *testing.T) {
	ir := []bytecode.Instruction{
		{Op: bytecode.OpLoadConst, A: 0, Imm: 2},
		{Op: bytecode.OpLoadConst, A: 1, Imm: 3},
		{Op: bytecode.OpAdd, A: 2, B: 0, C: 1},
		{Op: bytecode.OpReturn, A: 2},
	}

	be := New()
	compiled, err := be.Compile(ir, &backend.TypeProfile{})
	require.NoError(t, err)

	result, isErr := compiled.Entry(value.Undefined, nil, 0, 0, nil)
	require.False(t, isErr)
	require.True(t, result.IsNumber())
	f, ok := result.AsFloat64Checked()
	require.True(t, ok)
	require.Equal(t, 5.0, f)
}

func TestCompileRejectsUnsupportedOpcode(t *testing.T) {
	ir := []bytecode.Instruction{
		{Op: bytecode.OpCall, A: 0},
	}
	be := New()
	_, err := be.Compile(ir, &backend.TypeProfile{})
	require.Error(t, err)
}
