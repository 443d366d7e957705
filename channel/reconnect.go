package channel

import "context"

// reestablishResult is the decoded response to channels.reestablish.
// Per §9 Open Question (a), the node sometimes omits fields here. Round
// and SignedTx are each optional: when Round is omitted the channel's
// round is left unchanged rather than guessed at, and when SignedTx is
// omitted lastSignedTx is likewise left unchanged.
type reestablishResult struct {
	ChannelID string  `json:"channel_id"`
	FsmID     string  `json:"fsm_id"`
	Round     *uint64 `json:"round,omitempty"`
	SignedTx  string  `json:"signed_tx,omitempty"`
}

// sendReestablish resumes a previously opened FSM session using
// existingChannelId/existingFsmId and the optional last off-chain
// transaction payload (§4.7). Called once, from the FSM's own event
// loop, before it enters its main select loop, so the reestablish
// response is processed with the same single-threaded guarantee as
// every other FSM transition.
//
// Neither signer surface is invoked during reestablish (§4.4).
func (c *Channel) sendReestablish(ctx context.Context) {
	params := map[string]interface{}{
		"existing_channel_id": c.params.ExistingChannelID,
		"existing_fsm_id":     c.params.ExistingFsmID,
	}
	if len(c.params.OffchainTx) > 0 {
		params["offchain_tx"] = string(c.params.OffchainTx)
	}

	raw, err := c.correlator.Call(ctx, "channels.reestablish", params)
	if err != nil {
		c.emitError(newUnknownChannelStateError(
			"node reports no such FSM for the supplied existingFsmId: " + err.Error(),
		))
		c.setState(stateDied)
		return
	}

	var res reestablishResult
	if err := c.decode(raw, &res); err != nil {
		c.emitError(newIncomingMessageError(raw, err))
		return
	}

	c.stateMu.Lock()
	if res.FsmID != "" {
		c.fsmID = res.FsmID
	}
	if res.ChannelID != "" {
		c.channelID = res.ChannelID
	}
	if res.Round != nil {
		c.round = *res.Round
	}
	if res.SignedTx != "" {
		c.lastSignedTx = []byte(res.SignedTx)
	}
	c.stateMu.Unlock()

	c.setState(stateOpen)
}
