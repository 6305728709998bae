package intern

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringInternerRoundTrip(t *testing.T) {
	si := NewStringInterner()
	names := []string{"length", "prototype", "constructor", "length"}
	ids := make([]uint32, len(names))
	for i, n := range names {
		ids[i] = si.Intern(n)
	}
	require.Equal(t, ids[0], ids[3], "interning the same string twice returns the same id")

	for i, n := range names {
		got, ok := si.Resolve(ids[i])
		require.True(t, ok)
		require.Equal(t, n, got)
	}
}

func TestStringInternerIdsNeverReused(t *testing.T) {
	si := NewStringInterner()
	a := si.Intern("a")
	b := si.Intern("b")
	require.NotEqual(t, a, b)
	require.Equal(t, a, si.Intern("a"))
	// ids are assigned monotonically
	require.Less(t, a, b)
}

func TestStringInternerConcurrent(t *testing.T) {
	si := NewStringInterner()
	var wg sync.WaitGroup
	ids := make([]uint32, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = si.Intern("shared")
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		require.Equal(t, ids[0], id)
	}
}

func TestU16InternerRoundTrip(t *testing.T) {
	u := NewU16Interner()
	id, err := u.InternUTF8("hi \U0001F600") // includes a surrogate pair
	require.NoError(t, err)
	units, ok := u.Resolve(id)
	require.True(t, ok)
	require.Equal(t, 5, len(units)) // 'h' 'i' ' ' + surrogate pair

	back, err := FromUTF16(units)
	require.NoError(t, err)
	require.Equal(t, "hi \U0001F600", back)
}

func TestSymbolInternerWellKnown(t *testing.T) {
	si := NewSymbolInterner()
	id := si.WellKnown(SymIterator)
	desc, ok := si.Describe(id)
	require.True(t, ok)
	require.Equal(t, "Symbol.iterator", desc)

	newID := si.New("mySymbol")
	require.Greater(t, newID, si.WellKnown(SymSpecies))
	desc2, ok := si.Describe(newID)
	require.True(t, ok)
	require.Equal(t, "mySymbol", desc2)
}
