package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumberRoundTrip(t *testing.T) {
	cases := []float64{0, -0, 1, -1, 3.14159, math.MaxFloat64, -math.MaxFloat64, math.SmallestNonzeroFloat64}
	for _, f := range cases {
		v := Number(f)
		require.True(t, v.IsNumber())
		got, ok := v.AsFloat64Checked()
		require.True(t, ok)
		require.Equal(t, f, got)
	}
}

func TestNaNIsCanonical(t *testing.T) {
	v := Number(math.NaN())
	require.Equal(t, NaN, v)
	require.True(t, v.IsNumber())
	require.True(t, math.IsNaN(v.AsFloat64()))
}

func TestIntBoxing(t *testing.T) {
	v := Int(-42)
	require.True(t, v.IsInt())
	require.True(t, v.IsNumber())
	require.Equal(t, int32(-42), v.AsInt())
}

func TestSingletons(t *testing.T) {
	require.True(t, Undefined.IsUndefined())
	require.True(t, Null.IsNull())
	require.True(t, Bool(true).IsTrue())
	require.True(t, Bool(false).IsFalse())
	require.False(t, Undefined.IsNull())
}

func TestObjectStringSymbolBigintPayloads(t *testing.T) {
	o := Object(0xABCDEF)
	require.True(t, o.IsObject())
	require.Equal(t, ObjectPayload(0xABCDEF), o.AsObject())

	s := Str(7)
	require.True(t, s.IsString())
	require.Equal(t, uint32(7), s.AsStringID())

	sym := Sym(3)
	require.True(t, sym.IsSymbol())
	require.Equal(t, uint32(3), sym.AsSymbolID())

	b := BigIntBox(99)
	require.True(t, b.IsBigInt())
	require.Equal(t, ObjectPayload(99), b.AsBigIntIndex())
}

func TestSameValue(t *testing.T) {
	require.True(t, SameValue(Number(math.NaN()), Number(math.NaN())))
	require.False(t, SameValue(Number(0), Number(math.Copysign(0, -1))))
	require.True(t, SameValue(Object(1), Object(1)))
	require.False(t, SameValue(Object(1), Object(2)))
}

func TestStrictEq(t *testing.T) {
	require.True(t, StrictEq(Number(1), Number(1)))
	require.False(t, StrictEq(Number(math.NaN()), Number(math.NaN())))
	require.True(t, StrictEq(Undefined, Undefined))
	require.False(t, StrictEq(Null, Undefined))
}

func TestTypeOf(t *testing.T) {
	require.Equal(t, "undefined", Undefined.TypeOf(nil))
	require.Equal(t, "object", Null.TypeOf(nil))
	require.Equal(t, "boolean", Bool(true).TypeOf(nil))
	require.Equal(t, "number", Number(1.5).TypeOf(nil))
	require.Equal(t, "number", Int(1).TypeOf(nil))
	require.Equal(t, "string", Str(0).TypeOf(nil))
	require.Equal(t, "symbol", Sym(0).TypeOf(nil))
	require.Equal(t, "bigint", BigIntBox(0).TypeOf(nil))
	require.Equal(t, "object", Object(0).TypeOf(func(ObjectPayload) bool { return false }))
	require.Equal(t, "function", Object(0).TypeOf(func(ObjectPayload) bool { return true }))
}

func TestTypeSetObserveMonomorphic(t *testing.T) {
	var s TypeSet
	s = s.Observe(Number(1))
	require.True(t, s.Monomorphic())
	s = s.Observe(Int(2))
	require.True(t, s.Monomorphic(), "INT folds into the NUMBER bucket per the open-question decision")
	s2 := s.Observe(Str(0))
	require.False(t, s2.Monomorphic())
}
