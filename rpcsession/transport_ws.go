package rpcsession

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/davecgh/go-spew/spew"
	"github.com/gorilla/websocket"
)

// log is this package's subsystem logger. It defaults to disabled, the
// same convention every lnd subsystem follows; the CLI entrypoint wires
// a real backend in with UseLogger.
var log = btclog.Disabled

// UseLogger sets the subsystem logger used by the rpcsession package.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// outgoingQueueLen mirrors peer.go's buffer size for the write pump: deep
// enough to absorb a burst of outbound requests without blocking the
// correlator, shallow enough that a dead socket is noticed quickly.
const outgoingQueueLen = 50

// outgoingFrame pairs a frame with the channel the writer signals once
// the write attempt has completed, so Send can report failures
// synchronously to its caller.
type outgoingFrame struct {
	frame Frame
	done  chan error
}

// WSTransport is the real Transport implementation: a websocket session
// to a channel-FSM node, read and written from two dedicated pump
// goroutines exactly like peer.go's readHandler/queueHandler split.
type WSTransport struct {
	url   string
	query url.Values
	debug bool

	conn *websocket.Conn

	inbound  chan Frame
	outgoing chan outgoingFrame
	done     chan struct{}
	closeOnce sync.Once

	wg sync.WaitGroup
}

// NewWSTransport builds a WSTransport that will dial host:port (or url,
// if non-empty) when Connect is called.
func NewWSTransport(nodeURL string, host string, port int) *WSTransport {
	u := nodeURL
	if u == "" {
		u = (&url.URL{Scheme: "ws", Host: fmt.Sprintf("%s:%d", host, port)}).String()
	}
	return &WSTransport{
		url:      u,
		inbound:  make(chan Frame, 256),
		outgoing: make(chan outgoingFrame, outgoingQueueLen),
		done:     make(chan struct{}),
	}
}

// SetConnectParams folds the channel negotiation parameters into the
// dial URL's query string, merged in at Connect time. The real node's
// channel websocket endpoint reads the role, party ids, amounts, lock
// period, and state password this way, since the JSON-RPC wire
// protocol itself (§6) carries no "open channel" request for them.
func (t *WSTransport) SetConnectParams(values url.Values) {
	t.query = values
}

// SetDebug enables go-spew dumping of every inbound/outbound frame to
// the subsystem logger at debug level (InitParams.Debug).
func (t *WSTransport) SetDebug(debug bool) {
	t.debug = debug
}

// Connect dials the node and starts the read/write pumps.
func (t *WSTransport) Connect(ctx context.Context) error {
	dialURL, err := t.dialURL()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 30 * time.Second}
	conn, _, err := dialer.DialContext(ctx, dialURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}
	t.conn = conn

	t.wg.Add(2)
	go t.readPump()
	go t.writePump()

	return nil
}

// dialURL merges any negotiation parameters set via SetConnectParams
// into t.url's query string.
func (t *WSTransport) dialURL() (string, error) {
	if len(t.query) == 0 {
		return t.url, nil
	}

	u, err := url.Parse(t.url)
	if err != nil {
		return "", err
	}

	q := u.Query()
	for k, vs := range t.query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (t *WSTransport) readPump() {
	defer t.wg.Done()
	defer t.shutdown()

	for {
		_, payload, err := t.conn.ReadMessage()
		if err != nil {
			log.Debugf("rpcsession: read pump exiting: %v", err)
			return
		}

		var f Frame
		if err := json.Unmarshal(payload, &f); err != nil {
			log.Warnf("rpcsession: dropping malformed frame: %v", err)
			continue
		}

		if t.debug {
			log.Debugf("rpcsession: <- %s", spew.Sdump(f))
		}

		select {
		case t.inbound <- f:
		case <-t.done:
			return
		}
	}
}

func (t *WSTransport) writePump() {
	defer t.wg.Done()

	for {
		select {
		case out := <-t.outgoing:
			if t.debug {
				log.Debugf("rpcsession: -> %s", spew.Sdump(out.frame))
			}

			payload, err := json.Marshal(out.frame)
			if err != nil {
				out.done <- err
				continue
			}
			err = t.conn.WriteMessage(websocket.TextMessage, payload)
			out.done <- err
			if err != nil {
				t.shutdown()
				return
			}

		case <-t.done:
			return
		}
	}
}

// Send queues f for delivery and waits for the write attempt to
// complete.
func (t *WSTransport) Send(f Frame) error {
	out := outgoingFrame{frame: f, done: make(chan error, 1)}

	select {
	case t.outgoing <- out:
	case <-t.done:
		return ErrClosed
	}

	select {
	case err := <-out.done:
		return err
	case <-t.done:
		return ErrClosed
	}
}

// Inbound returns the channel of frames read from the node.
func (t *WSTransport) Inbound() <-chan Frame {
	return t.inbound
}

// Done is closed once the session has permanently stopped.
func (t *WSTransport) Done() <-chan struct{} {
	return t.done
}

func (t *WSTransport) shutdown() {
	t.closeOnce.Do(func() {
		close(t.done)
		if t.conn != nil {
			t.conn.Close()
		}
	})
}

// Close tears down the websocket session.
func (t *WSTransport) Close() error {
	t.shutdown()
	t.wg.Wait()
	return nil
}
