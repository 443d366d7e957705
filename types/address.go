package types

import (
	"encoding/base64"
	"fmt"
)

// Address is an opaque, prefixed account or entity identifier as used on
// the æternity chain (e.g. "ak_...", "ct_...", "ok_...", "oq_..."). The
// client never decodes the payload itself; it only validates the prefix
// and treats the remainder as opaque.
type Address string

// Known address prefixes. The channel FSM uses these to sanity check
// caller-supplied addresses before they're sent to the node.
const (
	PrefixAccount  = "ak_"
	PrefixContract = "ct_"
	PrefixOracle   = "ok_"
	PrefixQuery    = "oq_"
	PrefixChannel  = "ch_"
)

// Valid reports whether addr carries one of the known prefixes and a
// non-empty payload.
func (a Address) Valid() bool {
	s := string(a)
	for _, p := range []string{PrefixAccount, PrefixContract, PrefixOracle, PrefixQuery, PrefixChannel} {
		if len(s) > len(p) && s[:len(p)] == p {
			return true
		}
	}
	return false
}

func (a Address) String() string {
	return string(a)
}

// HasPrefix reports whether addr carries the given known prefix.
func (a Address) HasPrefix(prefix string) bool {
	s := string(a)
	return len(s) > len(prefix) && s[:len(prefix)] == prefix
}

// NewAddress builds an Address from a prefix and an opaque payload. The
// payload is encoded with unpadded base64url so the result stays a
// plain ASCII token; it is NOT the chain's real base58check encoding,
// which lives in the transaction codec this client treats as an
// external collaborator (external.TxCodec).
func NewAddress(prefix string, payload []byte) Address {
	return Address(prefix + base64.RawURLEncoding.EncodeToString(payload))
}

// errInvalidAddress is returned by validation helpers that need a
// concrete error rather than a bool.
func errInvalidAddress(a Address) error {
	return fmt.Errorf("invalid address %q: missing or unknown prefix", string(a))
}

// Check validates addr, returning errInvalidAddress if it doesn't carry
// a known prefix.
func Check(a Address) error {
	if !a.Valid() {
		return errInvalidAddress(a)
	}
	return nil
}
