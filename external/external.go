// Package external declares the boundaries to the collaborators
// spec.md places out of scope for this client: the transaction
// builder/codec, the Merkle Patricia proof-of-inclusion decoder, and
// the HTTP node client used to post on-chain transactions. This
// package never implements them — only the interfaces the channel FSM
// needs to hold a reference to one.
package external

import "context"

// UpdateRecord is the decoded form of an off-chain update transaction:
// the ordered list of sub-operations it carries. The channel FSM never
// builds one of these itself; it asks a TxCodec to unpack the opaque
// blob the node sent it.
type UpdateRecord struct {
	// Kind names the sub-operation encoded (e.g. "transfer", "deposit",
	// "withdrawal", "new_contract", "call_contract", "meta"), so a
	// caller inspecting a decoded record doesn't need a type switch
	// over an external type.
	Kind string

	// Fields holds the sub-operation's fields, keyed by name, exactly as
	// the caller submitted them. This is intentionally untyped: the real
	// codec's decoded representation belongs to the transaction builder
	// library, not to this client.
	Fields map[string]interface{}
}

// TxCodec unpacks the length-prefixed binary transaction blobs
// referenced by the channel protocol. A real implementation wraps the
// æternity transaction builder/codec; no test in this module configures
// one.
type TxCodec interface {
	// DecodeUpdate unpacks a co-signed off-chain transaction blob into
	// the ordered list of sub-operations it carries.
	DecodeUpdate(tx []byte) ([]UpdateRecord, error)
}

// POI is an opaque Merkle Patricia proof of inclusion, committing to
// participants' balances and (optionally) contract state. This client
// never decodes it (§9 Open Question (c)); it is handed to the caller
// verbatim.
type POI []byte

// POIDecoder decodes a POI payload. Nothing in this module calls one and
// no Channel option accepts one: a caller that needs decoded balances
// passes the bytes returned by Channel.POI to a decoder of its own.
type POIDecoder interface {
	Decode(poi POI) (map[string]interface{}, error)
}

// TxSubmitter posts an on-chain transaction blob to a node's HTTP API.
// It is optional: a channel with none configured still hands the caller
// every on-chain transaction it observes, via an on-chain callback, an
// action outcome, or — for a node-unilateral solo-close/slash/settle
// payload observed during dispute handling (§1) — events.Dispute. With
// one configured, the channel also submits that unilateral payload on
// the caller's behalf.
type TxSubmitter interface {
	SubmitTx(ctx context.Context, tx []byte) error
}

// Signer-abstraction note: the untagged/tagged signer interfaces
// themselves live in package signer, not here, because the Sign Broker
// (§4.3) is in-scope machinery that wraps them, not a pass-through
// boundary.
