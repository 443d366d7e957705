package channel

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"

	"github.com/aeternity/aepp-statechannels-go/types"
)

// deriveContractAddress reproduces the node's rule that a contract's
// address is a deterministic function of its owner account and the
// round at which it was created (§4.4 createContract). The exact
// on-chain encoding (RLP-ish owner/nonce hashing, base58check with a
// "ct_" prefix) lives in the transaction codec this client treats as an
// external collaborator (§1); here we reproduce the *shape* of the rule
// — deterministic in (owner, round), nothing else — with a local,
// stdlib-only encoding. A caller that needs the real on-chain address
// should decode lastSignedTx with external.TxCodec instead of relying on
// this value for anything beyond local bookkeeping and tests.
func deriveContractAddress(owner types.Address, round uint64) types.Address {
	h := sha256.New()
	h.Write([]byte(owner))

	var roundBytes [8]byte
	binary.BigEndian.PutUint64(roundBytes[:], round)
	h.Write(roundBytes[:])

	return types.NewAddress(types.PrefixContract, h.Sum(nil))
}

// forceProgressResult is the decoded response to channels.force_progress
// (§4.4 forceProgress): a serialized, not-yet-submitted on-chain
// transaction and its hash. The caller is responsible for posting it
// via an external.TxSubmitter (§1 "Out of scope").
type forceProgressResult struct {
	Tx     string `json:"tx"`
	TxHash string `json:"tx_hash"`
}

func (c *Channel) completeForceProgress(raw json.RawMessage) {
	var res forceProgressResult
	if err := c.decode(raw, &res); err != nil {
		c.current.fail(newIncomingMessageError(raw, err))
		c.current = nil
		return
	}

	c.current.resolve(Outcome{
		Accepted: true,
		Tx:       []byte(res.Tx),
		TxHash:   res.TxHash,
	})
	c.current = nil
}

// leaveResult is the decoded response to channels.leave (§4.4 leave):
// {channelId, signedTx} where signedTx is the last off-chain payload,
// which may be used to reestablish later.
type leaveResult struct {
	ChannelID string `json:"channel_id"`
	SignedTx  string `json:"signed_tx"`
}

func (c *Channel) completeLeave(raw json.RawMessage) {
	var res leaveResult
	if err := c.decode(raw, &res); err != nil {
		c.current.fail(newIncomingMessageError(raw, err))
		c.current = nil
		return
	}

	c.stateMu.Lock()
	if res.ChannelID != "" {
		c.channelID = res.ChannelID
	}
	c.stateMu.Unlock()

	c.current.resolve(Outcome{
		Accepted: true,
		SignedTx: []byte(res.SignedTx),
	})
	c.current = nil
	c.setState(stateDisconnected)
}
