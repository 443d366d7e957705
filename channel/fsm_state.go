package channel

// fsmState is the channel FSM's internal state (§4.4), finer-grained
// than the public Status: several fsmStates map to the same Status
// because a caller only needs to know "I'm waiting for an update", not
// which wire round-trip of the update protocol is in flight.
//
// Modeled as a plain enum (the `channelState uint8` idiom from
// lnwallet/channel.go) rather than the sealed-interface sum type
// rbf_coop_states.go uses: that package needs per-state payload fields
// (pending signatures, fee rates) carried alongside the state, which
// this FSM instead keeps on the Channel struct itself, so a flat enum,
// with each transition made by a setState call in the handlers in
// fsm.go, is the simpler fit.
type fsmState uint8

const (
	stateConnecting fsmState = iota
	stateAwaitingReestablish
	stateHalfSigned
	stateSigned
	stateAwaitingOnChainTx
	stateAwaitingOnChainConfirmation
	stateOpen
	stateAwaitingUpdate
	stateAwaitingDeposit
	stateAwaitingWithdraw
	stateAwaitingLeaveAck
	stateAwaitingShutdownAck
	stateClosing
	stateDisconnected
	stateClosed
	stateDied
)

func (s fsmState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateAwaitingReestablish:
		return "awaitingReestablish"
	case stateHalfSigned:
		return "halfSigned"
	case stateSigned:
		return "signed"
	case stateAwaitingOnChainTx:
		return "awaitingOnChainTx"
	case stateAwaitingOnChainConfirmation:
		return "awaitingOnChainConfirmation"
	case stateOpen:
		return "open"
	case stateAwaitingUpdate:
		return "awaitingUpdate"
	case stateAwaitingDeposit:
		return "awaitingDeposit"
	case stateAwaitingWithdraw:
		return "awaitingWithdraw"
	case stateAwaitingLeaveAck:
		return "awaitingLeaveAck"
	case stateAwaitingShutdownAck:
		return "awaitingShutdownAck"
	case stateClosing:
		return "closing"
	case stateDisconnected:
		return "disconnected"
	case stateClosed:
		return "closed"
	case stateDied:
		return "died"
	default:
		return "unknown"
	}
}

// terminal reports whether state is one of the FSM's terminal states:
// died (unrecoverable) or closed (normal shutdown).
func (s fsmState) terminal() bool {
	return s == stateDied || s == stateClosed
}

// status projects the internal fsmState down to the public Status.
func (s fsmState) status() Status {
	switch s {
	case stateConnecting:
		return StatusConnecting
	case stateAwaitingReestablish:
		return StatusAwaitingReestablish
	case stateHalfSigned, stateSigned:
		return StatusConnected
	case stateAwaitingOnChainTx:
		return StatusAwaitingOnChainTx
	case stateAwaitingOnChainConfirmation:
		return StatusAwaitingOnChainConfirmation
	case stateOpen:
		return StatusOpen
	case stateAwaitingUpdate:
		return StatusAwaitingUpdate
	case stateAwaitingDeposit:
		return StatusAwaitingDeposit
	case stateAwaitingWithdraw:
		return StatusAwaitingWithdraw
	case stateAwaitingLeaveAck, stateAwaitingShutdownAck, stateClosing:
		return StatusClosing
	case stateDisconnected:
		return StatusDisconnected
	case stateClosed:
		return StatusClosed
	case stateDied:
		return StatusDied
	default:
		return StatusDied
	}
}
