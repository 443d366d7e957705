package types

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// Amount is an arbitrary-precision integer quantity of aettos. The type
// itself also holds negative values (see Sign); the channel action
// surface rejects them. Every amount that crosses the wire (channel balances, update
// amounts, gas price/limit, fees) is serialized as a decimal string, per
// §4.5 of the channel client specification, never as a JSON number —
// aeternity amounts routinely exceed the safe range of a float64.
type Amount struct {
	v *big.Int
}

// NewAmount wraps n as an Amount. n is not copied; callers should not
// mutate it afterwards.
func NewAmount(n *big.Int) *Amount {
	return &Amount{v: n}
}

// AmountFromUint64 builds an Amount from a plain integer; convenient for
// literal amounts in tests and CLI flags.
func AmountFromUint64(n uint64) *Amount {
	return &Amount{v: new(big.Int).SetUint64(n)}
}

// ParseAmount parses a decimal string into an Amount.
func ParseAmount(s string) (*Amount, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q: not a decimal integer", s)
	}
	return &Amount{v: n}, nil
}

// Int returns the underlying big.Int. The caller must not mutate it.
func (a *Amount) Int() *big.Int {
	if a == nil || a.v == nil {
		return big.NewInt(0)
	}
	return a.v
}

// Sign returns -1, 0, or 1 depending on whether the amount is negative,
// zero, or positive.
func (a *Amount) Sign() int {
	return a.Int().Sign()
}

// String renders the amount as a plain decimal string.
func (a *Amount) String() string {
	return a.Int().String()
}

// MarshalJSON implements json.Marshaler, always emitting a decimal
// string.
func (a *Amount) MarshalJSON() ([]byte, error) {
	if a == nil || a.v == nil {
		return json.Marshal("0")
	}
	return json.Marshal(a.v.String())
}

// UnmarshalJSON implements json.Unmarshaler, accepting either a decimal
// string (the wire format) or a bare JSON number (for leniency with
// hand-written test fixtures).
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return fmt.Errorf("invalid amount %q: not a decimal integer", s)
		}
		a.v = n
		return nil
	}

	var n big.Int
	if err := n.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	a.v = &n
	return nil
}
