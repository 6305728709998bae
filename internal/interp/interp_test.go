package interp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/velajs/vela/internal/bytecode"
	"github.com/velajs/vela/internal/heap"
	"github.com/velajs/vela/internal/intern"
	"github.com/velajs/vela/internal/object"
	"github.com/velajs/vela/internal/propkey"
	"github.com/velajs/vela/internal/value"
)

func newTestInterp() (*Interp, *propkey.Table, *intern.StringInterner) {
	objects := object.NewStore(nil)
	keys := propkey.NewTable()
	strings := intern.NewStringInterner()
	return New(objects, keys, strings, nil), keys, strings
}

func functionValue(it *Interp, fn *bytecode.Function) value.Value {
	h, in := it.Objects.New()
	in.SetWrapped(&object.FunctionData{Code: fn})
	return value.Object(value.ObjectPayload(h))
}

func TestCallBytecodeAddsTwoConstants(t *testing.T) {
	it, _, _ := newTestInterp()

	b := bytecode.NewBuilder()
	fn := b.StartFunction("add")
	entry := b.NewBlock()
	b.SetBlock(entry)
	c1 := b.AddConstant(value.Int(2))
	c2 := b.AddConstant(value.Int(3))
	r1 := b.EmitLoadConst(c1)
	r2 := b.EmitLoadConst(c2)
	sum := b.EmitBinary(bytecode.OpAdd, r1, r2)
	b.EmitReturn(sum)

	fv := functionValue(it, fn)
	result, err := it.Invoke(context.Background(), fv, value.Undefined, nil)
	require.NoError(t, err)
	require.True(t, result.IsNumber())
	f, ok := result.AsFloat64Checked()
	require.True(t, ok)
	require.Equal(t, 5.0, f)
}

func TestCallBytecodeReadsArgumentRegisters(t *testing.T) {
	it, _, _ := newTestInterp()

	b := bytecode.NewBuilder()
	fn := b.StartFunction("identity")
	entry := b.NewBlock()
	b.SetBlock(entry)
	arg0 := b.NewValue()
	b.EmitReturn(arg0)

	fv := functionValue(it, fn)
	result, err := it.Invoke(context.Background(), fv, value.Undefined, []value.Value{value.Int(42)})
	require.NoError(t, err)
	require.True(t, result.IsInt())
	require.Equal(t, int32(42), result.AsInt())
}

func TestGetSetFieldRoundTrips(t *testing.T) {
	it, _, strings := newTestInterp()

	h, _ := it.Objects.New()
	objVal := value.Object(value.ObjectPayload(h))

	nameID := strings.Intern("x")

	b := bytecode.NewBuilder()
	fn := b.StartFunction("setget")
	entry := b.NewBlock()
	b.SetBlock(entry)
	objReg := b.NewValue() // argument 0: the target object
	keyConst := b.AddConstant(value.Str(nameID))
	valConst := b.AddConstant(value.Int(7))
	valReg := b.EmitLoadConst(valConst)
	b.EmitSetField(objReg, keyConst, valReg)
	got := b.EmitGetField(objReg, keyConst)
	b.EmitReturn(got)

	fv := functionValue(it, fn)
	result, err := it.Invoke(context.Background(), fv, value.Undefined, []value.Value{objVal})
	require.NoError(t, err)
	require.True(t, result.IsInt())
	require.Equal(t, int32(7), result.AsInt())
}

func TestThrowUnwindsToCatchBlock(t *testing.T) {
	it, _, _ := newTestInterp()

	b := bytecode.NewBuilder()
	fn := b.StartFunction("tryCatch")
	entry := b.NewBlock()
	catch := b.NewBlock()
	b.SetBlock(entry)

	thrown := b.AddConstant(value.Int(99))
	thrownReg := b.EmitLoadConst(thrown)
	caughtReg := b.NewValue() // allocated before EmitTryBegin so the catch block can reuse it
	b.EmitTryBegin(catch.ID, caughtReg)
	b.EmitThrow(thrownReg)
	b.EmitTryEnd()

	b.SetBlock(catch)
	b.EmitReturn(caughtReg)

	fv := functionValue(it, fn)
	result, err := it.Invoke(context.Background(), fv, value.Undefined, nil)
	require.NoError(t, err)
	require.True(t, result.IsInt())
	require.Equal(t, int32(99), result.AsInt())
}

func TestConstructBindsPrototypeAndThis(t *testing.T) {
	it, keys, _ := newTestInterp()

	protoH, proto := it.Objects.New()
	proto.InsertPropertyBuiltin(keys.Register("hello"), value.Int(1), true, true)

	b := bytecode.NewBuilder()
	ctorFn := b.StartFunction("Ctor")
	entry := b.NewBlock()
	b.SetBlock(entry)
	// `this` isn't directly reachable as a register in this minimal
	// dispatch model without an explicit opcode reading it, so the
	// constructor body here just returns undefined and the test
	// inspects the instance's prototype link instead.
	b.EmitReturn(b.EmitLoadUndefined())

	ctorH, ctorIn := it.Objects.New()
	ctorIn.SetWrapped(&object.FunctionData{Code: ctorFn})
	ctorIn.InsertPropertyBuiltin(keys.Register("prototype"), value.Object(value.ObjectPayload(protoH)), false, false)
	ctorVal := value.Object(value.ObjectPayload(ctorH))

	instVal, err := it.Construct(context.Background(), ctorVal, nil)
	require.NoError(t, err)
	require.True(t, instVal.IsObject())

	instIn := it.Objects.Resolve(heap.Handle(instVal.AsObject()))
	protoHandle, has := instIn.Proto()
	require.True(t, has)
	require.Equal(t, protoH, protoHandle)
}
