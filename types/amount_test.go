package types

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAmountMarshalJSON(t *testing.T) {
	a := AmountFromUint64(12345)
	b, err := json.Marshal(a)
	require.NoError(t, err)
	require.Equal(t, `"12345"`, string(b))
}

func TestAmountUnmarshalJSONString(t *testing.T) {
	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`"987654321098765432109876543210"`), &a))
	require.Equal(t, "987654321098765432109876543210", a.String())
}

func TestAmountUnmarshalJSONNumber(t *testing.T) {
	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`42`), &a))
	require.Equal(t, "42", a.String())
}

func TestAmountUnmarshalInvalid(t *testing.T) {
	var a Amount
	require.Error(t, json.Unmarshal([]byte(`"not-a-number"`), &a))
}

func TestAmountSign(t *testing.T) {
	require.Equal(t, 0, AmountFromUint64(0).Sign())
	require.Equal(t, 1, AmountFromUint64(1).Sign())
	require.Equal(t, -1, NewAmount(big.NewInt(-5)).Sign())
}

func TestParseAmount(t *testing.T) {
	a, err := ParseAmount("100")
	require.NoError(t, err)
	require.Equal(t, "100", a.String())

	_, err = ParseAmount("abc")
	require.Error(t, err)
}

func TestNilAmountIsZero(t *testing.T) {
	var a *Amount
	require.Equal(t, 0, a.Sign())
	require.Equal(t, "0", a.String())
}
