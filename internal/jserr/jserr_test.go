package jserr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorKindsDiscriminate(t *testing.T) {
	var err error = &CallOnNonFunction{Callee: "x.y"}
	require.Contains(t, err.Error(), "TypeError")

	var target *CallOnNonFunction
	require.True(t, errors.As(err, &target))
	require.Equal(t, "x.y", target.Callee)

	var notIt *RangeError
	require.False(t, errors.As(err, &notIt))
}

func TestHostErrorUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := &HostError{Cause: cause}
	require.ErrorIs(t, wrapped, cause)
}

func TestThrownValueCarriesPayload(t *testing.T) {
	tv := &ThrownValue{Value: 42}
	require.Equal(t, 42, tv.Value)
	require.Equal(t, "uncaught JS exception", tv.Error())
}
