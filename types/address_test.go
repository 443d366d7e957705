package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressValid(t *testing.T) {
	require.True(t, Address("ak_abc123").Valid())
	require.True(t, Address("ct_xyz").Valid())
	require.False(t, Address("bad_prefix").Valid())
	require.False(t, Address("ak_").Valid())
}

func TestAddressHasPrefix(t *testing.T) {
	a := Address("ct_deadbeef")
	require.True(t, a.HasPrefix(PrefixContract))
	require.False(t, a.HasPrefix(PrefixAccount))
}

func TestNewAddressCarriesPrefixAndIsValid(t *testing.T) {
	a := NewAddress(PrefixContract, []byte{1, 2, 3, 4})
	require.True(t, a.HasPrefix(PrefixContract))
	require.True(t, a.Valid())
}

func TestCheck(t *testing.T) {
	require.NoError(t, Check(Address("ak_abc")))
	require.Error(t, Check(Address("nope")))
}
