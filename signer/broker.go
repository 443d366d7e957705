// Package signer implements the Sign Broker (§4.3): the adapter that
// normalizes a caller-supplied signing callback's dynamically-typed
// return value into a concrete Result, and refuses (with ErrReentrant)
// any invocation made while a prior request is still outstanding, so the
// channel FSM never re-enters the signer — the same guarantee peer.go
// gives its outgoing-message queue.
package signer

import (
	"fmt"
	"sync"
)

// Tag identifies why the node is asking the caller to sign something.
// The untagged surface (Sign) is used only when the caller deliberately
// initiated the action; every node-initiated request carries one of
// these tags so the caller's signer can tell the requests apart.
type Tag string

// Known tags, per §4.3 and §6.
const (
	TagInitiatorSign   Tag = "initiator_sign"
	TagResponderSign   Tag = "responder_sign"
	TagUpdateAck       Tag = "update_ack"
	TagDepositAck      Tag = "deposit_ack"
	TagWithdrawAck     Tag = "withdraw_ack"
	TagShutdownSignAck Tag = "shutdown_sign_ack"
	TagDepositCreated  Tag = "deposit_created"
	TagWithdrawCreated Tag = "withdraw_created"

	// Dispute-path tags (§1 "dispute coordination"): the node asks the
	// caller to co-sign a solo-close, slash, or settle transaction it
	// prepared unilaterally rather than in response to a caller action.
	TagSoloCloseSign Tag = "solo_close_sign"
	TagSlashSign     Tag = "slash_sign"
	TagSettleSign    Tag = "settle_sign"
)

// RawResponse is whatever the caller's signing callback returns. The
// broker accepts, per §4.3: a string or []byte (a signed transaction), an
// int (a user-defined abort code), or nil (a generic rejection).
type RawResponse interface{}

// Signer is the interface a caller supplies when opening a channel. It
// exposes the two signing surfaces described in §4.3.
type Signer interface {
	// Sign is the untagged surface: used when the caller deliberately
	// initiated the action (update, deposit, withdraw, createContract,
	// callContract, forceProgress, shutdown) and is expected to sign
	// whatever the node asks for.
	Sign(tx []byte, meta map[string]interface{}) (RawResponse, error)

	// SignTagged is the tagged surface: used for every node-initiated
	// signing request, so the caller knows why they're being asked.
	SignTagged(tag Tag, tx []byte, meta map[string]interface{}) (RawResponse, error)
}

// Result is the broker's normalized view of a RawResponse.
type Result struct {
	// SignedTx is set when the caller produced a signed transaction.
	SignedTx []byte

	// AbortCode is set when the caller returned a user-defined integer
	// abort code.
	AbortCode *int

	// Rejected is set when the caller returned nil: a generic rejection
	// with no code attached.
	Rejected bool
}

// Accepted reports whether the signer actually produced a signed
// transaction, as opposed to aborting or rejecting.
func (r Result) Accepted() bool {
	return r.SignedTx != nil
}

// ErrReentrant is returned when the FSM attempts to invoke the signer
// while a previous invocation on the same broker hasn't resolved yet.
// This should never happen given the FSM's own serialization (§5), but
// the broker enforces it independently per the design note in §9.
var ErrReentrant = fmt.Errorf("signer: re-entrant invocation")

// Broker wraps a caller's Signer, allowing one invocation at a time (a
// concurrent one fails with ErrReentrant instead of waiting) and
// normalizing their return shape.
type Broker struct {
	signer Signer

	mu      sync.Mutex
	inFlight bool
}

// NewBroker wraps signer.
func NewBroker(signer Signer) *Broker {
	return &Broker{signer: signer}
}

// Sign invokes the untagged signing surface.
func (b *Broker) Sign(tx []byte, meta map[string]interface{}) (Result, error) {
	if err := b.enter(); err != nil {
		return Result{}, err
	}
	defer b.leave()

	raw, err := b.signer.Sign(tx, meta)
	if err != nil {
		return Result{}, err
	}
	return normalize(raw)
}

// SignTagged invokes the tagged signing surface with tag.
func (b *Broker) SignTagged(tag Tag, tx []byte, meta map[string]interface{}) (Result, error) {
	if err := b.enter(); err != nil {
		return Result{}, err
	}
	defer b.leave()

	raw, err := b.signer.SignTagged(tag, tx, meta)
	if err != nil {
		return Result{}, err
	}
	return normalize(raw)
}

func (b *Broker) enter() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFlight {
		return ErrReentrant
	}
	b.inFlight = true
	return nil
}

func (b *Broker) leave() {
	b.mu.Lock()
	b.inFlight = false
	b.mu.Unlock()
}

// normalize classifies a RawResponse per §4.3's rules.
func normalize(raw RawResponse) (Result, error) {
	switch v := raw.(type) {
	case nil:
		return Result{Rejected: true}, nil

	case string:
		return Result{SignedTx: []byte(v)}, nil

	case []byte:
		return Result{SignedTx: v}, nil

	case int:
		code := v
		return Result{AbortCode: &code}, nil

	case int32:
		code := int(v)
		return Result{AbortCode: &code}, nil

	case int64:
		code := int(v)
		return Result{AbortCode: &code}, nil

	default:
		return Result{}, fmt.Errorf("signer: unrecognized response type %T", raw)
	}
}
