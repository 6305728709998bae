package propkey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReservedKeysStable(t *testing.T) {
	tb := NewTable()
	name, ok := tb.Name(Prototype)
	require.True(t, ok)
	require.Equal(t, "prototype", name)
	require.Equal(t, Prototype, tb.Register("prototype"))
}

func TestRegisterNewNames(t *testing.T) {
	tb := NewTable()
	base := tb.Len()
	k1 := tb.Register("foo")
	k2 := tb.Register("bar")
	k3 := tb.Register("foo")
	require.Equal(t, k1, k3)
	require.NotEqual(t, k1, k2)
	require.Equal(t, base+2, tb.Len())
}
