package coroutine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/velajs/vela/internal/bytecode"
	"github.com/velajs/vela/internal/heap"
	"github.com/velajs/vela/internal/intern"
	"github.com/velajs/vela/internal/interp"
	"github.com/velajs/vela/internal/object"
	"github.com/velajs/vela/internal/propkey"
	"github.com/velajs/vela/internal/value"
)

func newTestInterp() *interp.Interp {
	objects := object.NewStore(nil)
	keys := propkey.NewTable()
	strings := intern.NewStringInterner()
	return interp.New(objects, keys, strings, nil)
}

func functionValue(it *interp.Interp, fn *bytecode.Function) value.Value {
	h, in := it.Objects.New()
	in.SetWrapped(&object.FunctionData{Code: fn})
	return value.Object(value.ObjectPayload(h))
}

// buildYieldTwiceFn compiles a generator body that yields 1, then
// yields the value it was resumed with plus 1, then returns 99.
func buildYieldTwiceFn(b *bytecode.Builder) *bytecode.Function {
	fn := b.StartFunction("gen")
	fn.IsGenerator = true
	entry := b.NewBlock()
	b.SetBlock(entry)

	c1 := b.AddConstant(value.Int(1))
	one := b.EmitLoadConst(c1)
	resumed := b.EmitYield(one)

	cOne := b.AddConstant(value.Int(1))
	plusOne := b.EmitLoadConst(cOne)
	sum := b.EmitBinary(bytecode.OpAdd, resumed, plusOne)
	b.EmitYield(sum)

	c99 := b.AddConstant(value.Int(99))
	ret := b.EmitLoadConst(c99)
	b.EmitReturn(ret)
	return fn
}

func TestGeneratorYieldsThenReturns(t *testing.T) {
	it := newTestInterp()
	exec := NewExecutor(4)

	b := bytecode.NewBuilder()
	fn := buildYieldTwiceFn(b)
	fv := functionValue(it, fn)

	g, err := exec.NewGenerator(context.Background(), it, fv, value.Undefined, nil)
	require.NoError(t, err)

	r1 := g.Next(context.Background(), value.Undefined)
	require.Equal(t, ResultYield, r1.Kind)
	require.Equal(t, int32(1), r1.Value.AsInt())

	r2 := g.Next(context.Background(), value.Int(41))
	require.Equal(t, ResultYield, r2.Kind)
	require.Equal(t, float64(42), r2.Value.AsFloat64())

	r3 := g.Next(context.Background(), value.Undefined)
	require.Equal(t, ResultReturn, r3.Kind)
	require.Equal(t, int32(99), r3.Value.AsInt())

	r4 := g.Next(context.Background(), value.Undefined)
	require.Equal(t, ResultFinished, r4.Kind)
}

func TestGeneratorThrowBeforeStartNeverRunsBody(t *testing.T) {
	it := newTestInterp()
	exec := NewExecutor(4)

	b := bytecode.NewBuilder()
	fn := buildYieldTwiceFn(b)
	fv := functionValue(it, fn)

	g, err := exec.NewGenerator(context.Background(), it, fv, value.Undefined, nil)
	require.NoError(t, err)

	r := g.Throw(context.Background(), value.Int(7))
	require.Equal(t, ResultError, r.Kind)
	require.Error(t, r.Err)
}

// buildAwaitFn compiles an async body that awaits its sole argument
// register and returns its awaited value plus one.
func buildAwaitFn(b *bytecode.Builder) *bytecode.Function {
	fn := b.StartFunction("asyncFn")
	fn.IsAsync = true
	entry := b.NewBlock()
	b.SetBlock(entry)

	arg0 := b.NewValue()
	awaited := b.EmitAwait(arg0)
	c1 := b.AddConstant(value.Int(1))
	one := b.EmitLoadConst(c1)
	sum := b.EmitBinary(bytecode.OpAdd, awaited, one)
	b.EmitReturn(sum)
	return fn
}

func TestRunAsyncSettlesSynchronouslyOnFulfilledAwait(t *testing.T) {
	it := newTestInterp()
	exec := NewExecutor(4)
	table := NewAsyncTable()

	promH, promIn := it.Objects.New()
	promIn.SetWrapped(&object.PromiseData{State: object.PromiseFulfilled, Result: value.Int(9)})
	promVal := value.Object(value.ObjectPayload(promH))

	b := bytecode.NewBuilder()
	fn := buildAwaitFn(b)
	fv := functionValue(it, fn)

	resultProm, err := exec.RunAsync(context.Background(), it, it.Objects, table, fv, value.Undefined, []value.Value{promVal})
	require.NoError(t, err)

	resultH := heap.Handle(resultProm.AsObject())
	pd, _ := it.Objects.Resolve(resultH).Wrapped()
	data := pd.(*object.PromiseData)
	require.Equal(t, object.PromiseFulfilled, data.State)
	require.Equal(t, float64(10), data.Result.AsFloat64())
}

func TestRunAsyncSuspendsOnPendingThenResolves(t *testing.T) {
	it := newTestInterp()
	exec := NewExecutor(4)
	table := NewAsyncTable()

	pendingH, pendingIn := it.Objects.New()
	pendingIn.SetWrapped(&object.PromiseData{State: object.PromisePending})
	pendingVal := value.Object(value.ObjectPayload(pendingH))

	b := bytecode.NewBuilder()
	fn := buildAwaitFn(b)
	fv := functionValue(it, fn)

	resultProm, err := exec.RunAsync(context.Background(), it, it.Objects, table, fv, value.Undefined, []value.Value{pendingVal})
	require.NoError(t, err)

	resultH := heap.Handle(resultProm.AsObject())
	pd, _ := it.Objects.Resolve(resultH).Wrapped()
	require.Equal(t, object.PromisePending, pd.(*object.PromiseData).State)

	table.Resolve(context.Background(), pendingH, value.Int(4), false)

	pd2, _ := it.Objects.Resolve(resultH).Wrapped()
	data := pd2.(*object.PromiseData)
	require.Equal(t, object.PromiseFulfilled, data.State)
	require.Equal(t, float64(5), data.Result.AsFloat64())
}
