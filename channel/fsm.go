package channel

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aeternity/aepp-statechannels-go/events"
	"github.com/aeternity/aepp-statechannels-go/signer"
)

// Wire notification method names observed from the node (§6).
const (
	methodInfo       = "channels.info"
	methodSignPrefix = "channels.sign."
	methodUpdate     = "channels.update"
	methodOnChainTx  = "channels.on_chain_tx"
	methodLeave      = "channels.leave"
	methodError      = "channels.error"
	methodMessage    = "channels.message"
)

// taggedSuffixes is the set of channels.sign.<suffix> tags that are
// routed through the Sign Broker's tagged surface, because the node
// is asking the *other* party (or asking for an ack) rather than
// asking the party that itself initiated the action (§4.3).
var taggedSuffixes = map[string]signer.Tag{
	"initiator_sign":    signer.TagInitiatorSign,
	"responder_sign":    signer.TagResponderSign,
	"update_ack":        signer.TagUpdateAck,
	"deposit_ack":       signer.TagDepositAck,
	"withdraw_ack":      signer.TagWithdrawAck,
	"shutdown_sign_ack": signer.TagShutdownSignAck,
	"deposit_created":   signer.TagDepositCreated,
	"withdraw_created":  signer.TagWithdrawCreated,
	"solo_close_sign":   signer.TagSoloCloseSign,
	"slash_sign":        signer.TagSlashSign,
	"settle_sign":       signer.TagSettleSign,
}

// infoNotification is the decoded form of a channels.info message.
type infoNotification struct {
	Event string `json:"event"`
}

// signNotification is the decoded form of a channels.sign.<tag> message.
type signNotification struct {
	Tx   string                 `json:"tx"`
	Meta map[string]interface{} `json:"meta"`
}

// updateNotification is the decoded form of a channels.update message:
// the outcome of a co-signed advance, carrying everything needed to
// settle whichever pendingAction is currently in flight.
type updateNotification struct {
	Accepted     bool   `json:"accepted"`
	SignedTx     string `json:"signed_tx,omitempty"`
	ErrorCode    *int   `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// onChainTxNotification is the decoded form of a channels.on_chain_tx
// message.
type onChainTxNotification struct {
	Tx string `json:"tx"`
}

// DisputeEvent is the events.Dispute payload: an on-chain transaction
// the node reported outside of any caller-driven action (§1 "dispute
// coordination"). Unlike OnChainCallbacks.OnOnChainTx, nothing queued it
// — the node prepared it unilaterally, most likely in response to the
// counterparty's own close-solo or slash.
type DisputeEvent struct {
	// Tx is the prepared (and, if a tagged sign request preceded it,
	// already co-signed) on-chain transaction blob.
	Tx []byte
}

// leaveNotification is the decoded form of a channels.leave message.
type leaveNotification struct {
	ChannelID string `json:"channel_id"`
	State     string `json:"state"`
}

// errorNotification is the decoded form of an inbound channels.error
// message (the node reporting a protocol error to us, as distinct from
// the channels.error we send to propagate OUR signer aborts).
type errorNotification struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// messageNotification is the decoded form of a channels.message.
type messageNotification struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message"`
}

// run is the channel's serial event loop: the single logical worker
// (§5) that owns every FSM state transition. All correlator/signer
// round-trips issued from here block only this goroutine; the
// correlator's own read loop keeps draining the transport concurrently,
// so notifications queue rather than stall.
func (c *Channel) run() {
	defer c.wg.Done()
	defer close(c.done)

	if c.params.isReestablish() {
		c.sendReestablish(context.Background())
	}

	for {
		select {
		case n, ok := <-c.correlator.Notifications():
			if !ok {
				c.handleConnectionLost()
				return
			}
			c.handleNotification(n.Method, n.Params)

		case a := <-c.actionCh:
			c.enqueueAction(a)

		case <-c.quit:
			c.teardown()
			return
		}

		c.maybeStartNext()

		if c.getState().terminal() {
			return
		}
	}
}

func (c *Channel) handleConnectionLost() {
	log.Warnf("%s: connection lost", c.subsystem())
	c.setState(stateDisconnected)
	c.failCurrentAndQueued(connectionError("connection lost", nil))
}

func (c *Channel) teardown() {
	c.transport.Close()
	c.failCurrentAndQueued(connectionError("channel disconnected by caller", nil))
}

func (c *Channel) failCurrentAndQueued(err error) {
	if c.current != nil {
		c.current.fail(err)
		c.current = nil
	}
	for _, a := range c.queue {
		a.fail(err)
	}
	c.queue = nil
}

// enqueueAction appends a to the FIFO queue (§4.4 Back-pressure).
func (c *Channel) enqueueAction(a *pendingAction) {
	c.queue = append(c.queue, a)
	if c.metrics != nil {
		c.metrics.pendingActions.Set(float64(len(c.queue)))
	}
}

// maybeStartNext dispatches the next queued action if none is currently
// in flight (§3: "At most one caller-driven action may be in flight").
func (c *Channel) maybeStartNext() {
	if c.current != nil || len(c.queue) == 0 {
		return
	}
	if !c.getState().terminal() && c.getState() != stateDisconnected {
		next := c.queue[0]
		c.queue = c.queue[1:]
		if c.metrics != nil {
			c.metrics.pendingActions.Set(float64(len(c.queue)))
		}
		c.current = next
		c.dispatchAction(next)
	}
}

// dispatchAction sends the outbound request that kicks off a's co-sign
// round (or shutdown/leave/force-progress flow).
func (c *Channel) dispatchAction(a *pendingAction) {
	ctx := context.Background()

	var method string
	switch a.kind {
	case actionTransfer:
		method = "channels.update.new"
		c.setState(stateAwaitingUpdate)
	case actionDeposit:
		method = "channels.deposit"
		c.setState(stateAwaitingDeposit)
	case actionWithdraw:
		method = "channels.withdraw"
		c.setState(stateAwaitingWithdraw)
	case actionNewContract:
		method = "channels.update.new_contract"
		c.setState(stateAwaitingUpdate)
	case actionCallContract:
		method = "channels.update.call_contract"
		c.setState(stateAwaitingUpdate)
	case actionForceProgress:
		method = "channels.force_progress"
	case actionShutdown:
		method = "channels.shutdown"
		c.setState(stateAwaitingShutdownAck)
	case actionLeave:
		method = "channels.leave"
		c.setState(stateAwaitingLeaveAck)
	default:
		c.current.fail(fmt.Errorf("channel: unhandled action kind %v", a.kind))
		c.current = nil
		return
	}

	result, err := c.correlator.Call(ctx, method, a.params)
	if err != nil {
		c.current.fail(connectionError(fmt.Sprintf("%s request failed", method), err))
		c.current = nil
		return
	}

	// forceProgress and leave resolve directly from their response
	// rather than from a later channels.update/channels.leave
	// notification, since they don't participate in the co-sign
	// protocol the same way.
	switch a.kind {
	case actionForceProgress:
		c.completeForceProgress(result)
	case actionLeave:
		c.completeLeave(result)
	}
}

// handleNotification routes an id-less inbound frame by method name
// (§4.2).
func (c *Channel) handleNotification(method string, params json.RawMessage) {
	switch {
	case method == methodInfo:
		c.handleInfo(params)

	case len(method) > len(methodSignPrefix) && method[:len(methodSignPrefix)] == methodSignPrefix:
		c.handleSignRequest(method[len(methodSignPrefix):], params)

	case method == methodUpdate:
		c.handleUpdate(params)

	case method == methodOnChainTx:
		c.handleOnChainTx(params)

	case method == methodLeave:
		c.handleLeaveNotification(params)

	case method == methodError:
		c.handleErrorNotification(params)

	case method == methodMessage:
		c.handleMessage(params)

	default:
		err := newUnknownChannelStateError(fmt.Sprintf("unrecognized notification method %q", method))
		c.emitError(err)
	}
}

func (c *Channel) decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func (c *Channel) handleInfo(raw json.RawMessage) {
	var n infoNotification
	if err := c.decode(raw, &n); err != nil {
		c.emitError(newIncomingMessageError(raw, err))
		return
	}

	switch n.Event {
	case "channel_open":
		c.setState(stateHalfSigned)

	case "funding_created", "funding_signed":
		c.setState(stateSigned)

	case "own_funding_locked":
		c.ownFundingLocked = true
		c.maybeCompleteOpen()

	case "funding_locked":
		c.peerFundingLocked = true
		c.maybeCompleteOpen()

	case "own_deposit_locked", "own_withdraw_locked", "deposit_locked", "withdraw_locked":
		c.handleLockEvent(n.Event)

	case "channel_reestablished":
		c.setState(stateOpen)

	case "died":
		c.setState(stateDied)

	default:
		c.emitError(newUnknownChannelStateError(fmt.Sprintf("unrecognized info event %q", n.Event)))
	}
}

// maybeCompleteOpen transitions to open once both sides have signaled
// their funding is locked (§4.4 Open handshake).
func (c *Channel) maybeCompleteOpen() {
	if c.ownFundingLocked && c.peerFundingLocked {
		c.stateMu.Lock()
		c.round = 1
		c.stateMu.Unlock()
		c.setState(stateOpen)
	}
}

// handleLockEvent fires the on-chain lock callback of the action
// currently in flight (deposit/withdraw) that matches event, as soon as
// that event arrives: own_deposit_locked fires OnOwnDepositLocked,
// deposit_locked fires OnDepositLocked, and likewise for withdraw (§4.4
// "On-chain co-signed advance"). No state is kept between events.
func (c *Channel) handleLockEvent(event string) {
	if c.current == nil {
		return
	}
	cb := c.current.callbacks

	switch event {
	case "own_deposit_locked":
		if cb.OnOwnDepositLocked != nil {
			cb.OnOwnDepositLocked()
		}
	case "deposit_locked":
		if cb.OnDepositLocked != nil {
			cb.OnDepositLocked()
		}
	case "own_withdraw_locked":
		if cb.OnOwnWithdrawLocked != nil {
			cb.OnOwnWithdrawLocked()
		}
	case "withdraw_locked":
		if cb.OnWithdrawLocked != nil {
			cb.OnWithdrawLocked()
		}
	}
}

// handleSignRequest dispatches an inbound sign request to the broker's
// untagged or tagged surface depending on suffix, then reports the
// result back to the node.
func (c *Channel) handleSignRequest(suffix string, raw json.RawMessage) {
	var n signNotification
	if err := c.decode(raw, &n); err != nil {
		c.emitError(newIncomingMessageError(raw, err))
		return
	}

	tx := []byte(n.Tx)

	var (
		result signer.Result
		err    error
	)
	if tag, isTagged := taggedSuffixes[suffix]; isTagged {
		result, err = c.broker.SignTagged(tag, tx, n.Meta)
	} else {
		result, err = c.broker.Sign(tx, n.Meta)
	}

	if err != nil {
		c.emitError(fmt.Errorf("channel: signer invocation for %q failed: %w", suffix, err))
		return
	}

	c.reportSignResult(suffix, result)
}

// reportSignResult sends the broker's normalized verdict back to the
// node: a signed transaction, or a channels.error carrying the abort
// code the caller's signer returned (§4.3).
func (c *Channel) reportSignResult(suffix string, result signer.Result) {
	switch {
	case result.Accepted():
		if err := c.correlator.Notify("channels.sign_response", map[string]interface{}{
			"tag": suffix,
			"tx":  string(result.SignedTx),
		}); err != nil {
			c.emitError(connectionError("failed to report signed transaction", err))
		}

	case result.AbortCode != nil:
		if err := c.correlator.Notify(methodError, map[string]interface{}{
			"tag":  suffix,
			"code": *result.AbortCode,
		}); err != nil {
			c.emitError(connectionError("failed to report signer abort", err))
		}

	default: // generic rejection, no code
		if err := c.correlator.Notify(methodError, map[string]interface{}{
			"tag": suffix,
		}); err != nil {
			c.emitError(connectionError("failed to report signer rejection", err))
		}
	}
}

// handleUpdate processes the outcome of a co-signed advance (§4.4 steps
// 5-6, §8 invariants).
func (c *Channel) handleUpdate(raw json.RawMessage) {
	var n updateNotification
	if err := c.decode(raw, &n); err != nil {
		c.emitError(newIncomingMessageError(raw, err))
		return
	}

	if !n.Accepted {
		c.completeCurrentUpdate(rejectedOutcome(n))
		return
	}

	signedTx := []byte(n.SignedTx)

	c.stateMu.Lock()
	roundAfter := c.round + 1
	c.round = roundAfter
	c.lastSignedTx = signedTx
	c.stateMu.Unlock()

	if c.metrics != nil {
		c.metrics.round.Set(float64(roundAfter))
	}

	outcome := Outcome{Accepted: true, SignedTx: signedTx}
	if c.current != nil && c.current.kind == actionNewContract {
		if p, ok := c.current.params.(NewContractParams); ok {
			outcome.Address = deriveContractAddress(p.Owner, roundAfter)
		}
	}

	c.completeCurrentUpdate(outcome)
}

func rejectedOutcome(n updateNotification) Outcome {
	if n.ErrorCode != nil {
		return abortedWithCode(*n.ErrorCode)
	}
	return rejected()
}

// completeCurrentUpdate resolves the in-flight update-family action (if
// any) and settles the FSM's post-resolution state. A shutdown that was
// accepted closes the channel for good; everything else returns to open.
// This decision is made here, on the FSM's own goroutine, rather than
// left to the caller that receives the Outcome, so there's no race
// between this transition and whatever the caller does with its result.
func (c *Channel) completeCurrentUpdate(outcome Outcome) {
	wasShutdown := c.current != nil && c.current.kind == actionShutdown

	if c.current != nil {
		c.current.resolve(outcome)
		c.current = nil
	}

	if c.getState().terminal() {
		return
	}
	if wasShutdown && outcome.Accepted {
		c.setState(stateClosed)
		return
	}
	c.setState(stateOpen)
}

func (c *Channel) handleOnChainTx(raw json.RawMessage) {
	var n onChainTxNotification
	if err := c.decode(raw, &n); err != nil {
		c.emitError(newIncomingMessageError(raw, err))
		return
	}

	c.setState(stateAwaitingOnChainConfirmation)

	tx := []byte(n.Tx)

	if c.current != nil {
		if c.current.callbacks.OnOnChainTx != nil {
			c.current.callbacks.OnOnChainTx(tx)
		}
		return
	}

	// No action queued this tx: the node prepared it unilaterally, the
	// dispute-coordination path (§1). Hand it to the caller via the
	// bus, and submit it directly if a TxSubmitter was configured.
	c.handleDispute(tx)
}

// handleDispute surfaces a node-unilateral on-chain transaction (solo
// close, slash, or settle) observed with no caller action in flight.
func (c *Channel) handleDispute(tx []byte) {
	c.bus.Emit(events.Dispute, DisputeEvent{Tx: tx})

	if c.txSubmitter == nil {
		return
	}

	// Submitted off the FSM goroutine: posting to the node's HTTP API
	// is a blocking I/O call this single-threaded loop must not wait on.
	go func() {
		if err := c.txSubmitter.SubmitTx(context.Background(), tx); err != nil {
			c.emitError(fmt.Errorf("channel: dispute tx submission failed: %w", err))
		}
	}()
}

func (c *Channel) handleLeaveNotification(raw json.RawMessage) {
	var n leaveNotification
	if err := c.decode(raw, &n); err != nil {
		c.emitError(newIncomingMessageError(raw, err))
		return
	}

	c.stateMu.Lock()
	c.channelID = n.ChannelID
	if n.State != "" {
		c.lastSignedTx = []byte(n.State)
	}
	c.stateMu.Unlock()
}

func (c *Channel) handleErrorNotification(raw json.RawMessage) {
	var n errorNotification
	if err := c.decode(raw, &n); err != nil {
		c.emitError(newIncomingMessageError(raw, err))
		return
	}

	handlerErr := fmt.Errorf("node error %d: %s", n.Code, n.Message)
	incoming := newIncomingMessageError(raw, handlerErr)

	if c.current != nil {
		c.current.fail(incoming)
		c.current = nil
		if !c.getState().terminal() {
			c.setState(stateOpen)
		}
		return
	}

	// "A node error received with no pending action is emitted only on
	// the bus" (§7).
	c.emitError(incoming)
}

func (c *Channel) handleMessage(raw json.RawMessage) {
	var n messageNotification
	if err := c.decode(raw, &n); err != nil {
		c.emitError(newIncomingMessageError(raw, err))
		return
	}
	c.bus.Emit(events.Message, n)
}
