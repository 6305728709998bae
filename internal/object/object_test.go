package object

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/velajs/vela/internal/propkey"
	"github.com/velajs/vela/internal/value"
)

func noopInvoke(ctx context.Context, fn value.Value, this value.Value, args []value.Value) (value.Value, error) {
	return value.Undefined, nil
}

func TestGetSetOwnProperty(t *testing.T) {
	s := NewStore(nil)
	keys := propkey.NewTable()
	h, in := s.New()

	k := keys.Register("x")
	in.InsertPropertyBuiltin(k, value.Int(42), true, true)

	v, err := s.GetProperty(context.Background(), h, k, value.Object(value.ObjectPayload(h)), noopInvoke)
	require.NoError(t, err)
	require.Equal(t, int32(42), v.AsInt())

	err = s.SetProperty(context.Background(), h, k, value.Int(7), value.Object(value.ObjectPayload(h)), false, noopInvoke)
	require.NoError(t, err)
	v, _ = s.GetProperty(context.Background(), h, k, value.Object(value.ObjectPayload(h)), noopInvoke)
	require.Equal(t, int32(7), v.AsInt())
}

func TestPrototypeChainWalk(t *testing.T) {
	s := NewStore(nil)
	keys := propkey.NewTable()

	protoH, proto := s.New()
	k := keys.Register("greet")
	proto.InsertPropertyBuiltin(k, value.Int(1), true, true)

	childH, child := s.New()
	child.SetProto(protoH, true)

	v, err := s.GetProperty(context.Background(), childH, k, value.Object(value.ObjectPayload(childH)), noopInvoke)
	require.NoError(t, err)
	require.Equal(t, int32(1), v.AsInt())

	require.True(t, s.HasProperty(childH, k))
}

func TestSetOnInheritedDataPropertyShadows(t *testing.T) {
	s := NewStore(nil)
	keys := propkey.NewTable()
	protoH, proto := s.New()
	k := keys.Register("n")
	proto.InsertPropertyBuiltin(k, value.Int(1), true, true)

	childH, child := s.New()
	child.SetProto(protoH, true)

	err := s.SetProperty(context.Background(), childH, k, value.Int(99), value.Object(value.ObjectPayload(childH)), false, noopInvoke)
	require.NoError(t, err)

	p, ok := child.OwnProperty(k)
	require.True(t, ok)
	require.Equal(t, int32(99), p.Value.AsInt())

	// prototype's own value must be untouched
	pp, _ := proto.OwnProperty(k)
	require.Equal(t, int32(1), pp.Value.AsInt())
}

func TestFrozenRejectsWriteInStrictMode(t *testing.T) {
	s := NewStore(nil)
	keys := propkey.NewTable()
	h, in := s.New()
	k := keys.Register("n")
	in.InsertPropertyBuiltin(k, value.Int(1), true, true)
	in.Freeze()

	err := s.SetProperty(context.Background(), h, k, value.Int(2), value.Object(value.ObjectPayload(h)), true, noopInvoke)
	require.Error(t, err)

	err = s.SetProperty(context.Background(), h, k, value.Int(2), value.Object(value.ObjectPayload(h)), false, noopInvoke)
	require.NoError(t, err)

	p, _ := in.OwnProperty(k)
	require.Equal(t, int32(1), p.Value.AsInt(), "non-strict rejected write must silently no-op, not apply")
}

func TestDeletePropertyHonoursConfigurable(t *testing.T) {
	s := NewStore(nil)
	keys := propkey.NewTable()
	_, in := s.New()
	k := keys.Register("perm")
	in.InsertPropertyBuiltin(k, value.Int(1), true, false)

	ok := in.DeleteProperty(k)
	require.False(t, ok)
	_, stillThere := in.OwnProperty(k)
	require.True(t, stillThere)

	k2 := keys.Register("temp")
	in.InsertPropertyBuiltin(k2, value.Int(1), true, true)
	require.True(t, in.DeleteProperty(k2))
	_, gone := in.OwnProperty(k2)
	require.False(t, gone)
}

func TestArrayDenseFastPath(t *testing.T) {
	s := NewStore(nil)
	_, in := s.New()
	arr := in.NewArray()
	arr.Push(value.Int(1))
	arr.Push(value.Int(2))
	require.Equal(t, 2, arr.Length())
	require.Equal(t, int32(2), arr.Pop().AsInt())
	require.Equal(t, 1, arr.Length())

	require.NoError(t, arr.Set(5, value.Int(9)))
	require.Equal(t, 6, arr.Length())
	require.Equal(t, int32(9), arr.Get(5).AsInt())
	require.True(t, arr.Get(0).IsInt())
}

func TestProxyForwardsMissingTrapToTarget(t *testing.T) {
	s := NewStore(nil)
	keys := propkey.NewTable()

	targetH, target := s.New()
	k := keys.Register("v")
	target.InsertPropertyBuiltin(k, value.Int(5), true, true)

	handlerH, _ := s.New() // no "get" trap installed on the handler

	_, proxyIn := s.New()
	p := proxyIn.NewProxy(targetH, handlerH)

	_, forwards := s.ResolveTrap(p, TrapGet, keys)
	require.True(t, forwards, "a handler with no get trap must forward to the target")
}

func TestProxyUsesHandlerTrapWhenPresent(t *testing.T) {
	s := NewStore(nil)
	keys := propkey.NewTable()

	targetH, _ := s.New()
	handlerH, handler := s.New()
	getKey := keys.Register("get")
	trapFn := value.Int(77) // stand-in for a callable function value
	handler.InsertPropertyBuiltin(getKey, trapFn, true, true)

	_, proxyIn := s.New()
	p := proxyIn.NewProxy(targetH, handlerH)

	fn, forwards := s.ResolveTrap(p, TrapGet, keys)
	require.False(t, forwards)
	require.Equal(t, int32(77), fn.AsInt())
}

func TestAccessorGetterInvoked(t *testing.T) {
	s := NewStore(nil)
	keys := propkey.NewTable()
	h, in := s.New()
	k := keys.Register("computed")

	called := false
	var invoke Invoker = func(ctx context.Context, fn value.Value, this value.Value, args []value.Value) (value.Value, error) {
		called = true
		return value.Int(123), nil
	}
	in.BindGetter(k, value.Int(1) /* stand-in for a function value */)

	v, err := s.GetProperty(context.Background(), h, k, value.Object(value.ObjectPayload(h)), invoke)
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, int32(123), v.AsInt())
}

func TestShapeCacheCanonicalizesIdenticalKeySequences(t *testing.T) {
	sc := NewShapeCache()
	keys := propkey.NewTable()
	a := keys.Register("a")
	b := keys.Register("b")

	s1 := sc.Lookup([]propkey.Key{a, b})
	s2 := sc.Lookup([]propkey.Key{a, b})
	require.Same(t, s1, s2)

	s3 := sc.Lookup([]propkey.Key{b, a})
	require.NotSame(t, s1, s3, "order matters: a,b is a different shape from b,a")
}
