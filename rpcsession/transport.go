package rpcsession

import (
	"context"
	"errors"
	"net/url"
)

// ErrConnect is returned by Transport.Connect when the initial dial to
// the node fails. Per §4.1 this is fatal for the session: the caller
// must construct a fresh Channel to retry.
var ErrConnect = errors.New("rpcsession: unable to connect to node")

// ErrConnectionLost is delivered (wrapped) to every outstanding waiter
// and surfaced as a ChannelConnectionError when the remote end closes
// the connection out from under us.
var ErrConnectionLost = errors.New("rpcsession: connection lost")

// ErrClosed is returned by Send when the transport has already been
// closed, either by the caller or by a remote disconnect.
var ErrClosed = errors.New("rpcsession: transport closed")

// Transport is a persistent, full-duplex, text-framed session to a
// node. Implementations: a real websocket session (NewWSTransport) and,
// for tests, an in-memory pair (NewMockPair).
type Transport interface {
	// Connect establishes the session. It must be called exactly once,
	// before Send or Inbound are used.
	Connect(ctx context.Context) error

	// Send writes a single outbound frame. It may be called
	// concurrently with Inbound consumption but concurrent calls to
	// Send itself are not guaranteed to preserve frame ordering; the
	// correlator calls Send directly from whichever goroutine issues a
	// Call or Notify.
	Send(f Frame) error

	// Inbound returns the channel of frames read from the remote peer.
	// The implementations in this package never close it; Done reports
	// that the session has stopped.
	Inbound() <-chan Frame

	// Done is closed exactly once, when the transport has permanently
	// stopped (remote close, local Close, or fatal read/write error).
	Done() <-chan struct{}

	// Close tears down the session. Safe to call more than once.
	Close() error
}

// ParamSetter is implemented by transports that fold connect-time
// negotiation parameters (channel role, ids, amounts, lock period,
// state password, reestablish ids) into the session handshake itself,
// the way the real æternity node's channel websocket endpoint reads
// them from the dial URL's query string. Call SetConnectParams before
// Connect; transports that don't need out-of-band negotiation (such as
// MockTransport in tests) simply don't implement it.
type ParamSetter interface {
	SetConnectParams(values url.Values)
}
