package channel

import (
	"encoding/json"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// IllegalArgumentError is returned synchronously from an action surface
// entry when the caller supplied an invalid parameter, e.g. a negative
// amount (§7).
type IllegalArgumentError struct {
	Msg string
}

func (e *IllegalArgumentError) Error() string {
	return fmt.Sprintf("illegal argument: %s", e.Msg)
}

func illegalArgument(format string, args ...interface{}) error {
	return &IllegalArgumentError{Msg: fmt.Sprintf(format, args...)}
}

// ChannelConnectionError wraps a transport failure: the node refused
// the connection, or an established session was dropped.
type ChannelConnectionError struct {
	Msg   string
	Cause error
}

func (e *ChannelConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("channel connection error: %s: %v", e.Msg, e.Cause)
	}
	return fmt.Sprintf("channel connection error: %s", e.Msg)
}

func (e *ChannelConnectionError) Unwrap() error {
	return e.Cause
}

func connectionError(msg string, cause error) error {
	return &ChannelConnectionError{Msg: msg, Cause: cause}
}

// ChannelIncomingMessageError is raised whenever the node replies with
// an error frame while the FSM is handling a notification. It carries
// both the raw inbound message and a classified handler error, and
// retains a stack trace (via go-errors) so an operator can tell where
// in the FSM the error surfaced, the same diagnostic aid
// htlcswitch/switch.go and peer.go lean on go-errors for.
type ChannelIncomingMessageError struct {
	// Stack is the go-errors wrapper holding the stack trace.
	Stack *goerrors.Error

	// RawMessage is the inbound frame's raw params/result, preserved
	// verbatim for logging.
	RawMessage json.RawMessage

	// Handler is the classified error the FSM produced while trying to
	// make sense of RawMessage.
	Handler error
}

func newIncomingMessageError(raw json.RawMessage, handler error) *ChannelIncomingMessageError {
	return &ChannelIncomingMessageError{
		Stack:      goerrors.Wrap(handler, 1),
		RawMessage: raw,
		Handler:    handler,
	}
}

func (e *ChannelIncomingMessageError) Error() string {
	return fmt.Sprintf("channel incoming message error: %v", e.Handler)
}

// UnknownChannelStateError is raised when the FSM receives a message it
// cannot map to a legal transition. For an unrecognized notification or
// info event it is non-fatal: it is emitted on the error bus and the FSM
// state is left as it was. A failed reestablish request also emits it,
// and that path then moves the FSM to died (see sendReestablish).
type UnknownChannelStateError struct {
	// Stack is the go-errors wrapper holding the stack trace.
	Stack *goerrors.Error

	Detail string
}

func newUnknownChannelStateError(detail string) *UnknownChannelStateError {
	return &UnknownChannelStateError{
		Stack:  goerrors.Wrap(fmt.Errorf("State Channels FSM entered unknown state"), 1),
		Detail: detail,
	}
}

func (e *UnknownChannelStateError) Error() string {
	if e.Detail == "" {
		return "State Channels FSM entered unknown state"
	}
	return fmt.Sprintf("State Channels FSM entered unknown state: %s", e.Detail)
}
