package rpcsession

import (
	"context"
	"sync"
)

// MockTransport is an in-process Transport implementation used by tests
// in this module to stand in for a live node connection, the same role
// htlcswitch/mock.go's fake links play for the htlc switch: a
// deterministic peer that never needs an actual socket.
type MockTransport struct {
	peerInbound  chan Frame
	peerOutbound chan Frame

	inbound chan Frame

	done      chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	closed bool
}

// NewMockPair builds two connected MockTransports: frames sent on one
// side arrive on the other's Inbound channel.
func NewMockPair() (client *MockTransport, node *MockTransport) {
	aToB := make(chan Frame, 256)
	bToA := make(chan Frame, 256)

	client = &MockTransport{peerOutbound: aToB, peerInbound: bToA, inbound: bToA, done: make(chan struct{})}
	node = &MockTransport{peerOutbound: bToA, peerInbound: aToB, inbound: aToB, done: make(chan struct{})}
	return client, node
}

// Connect is a no-op for the mock; the pair is already wired up by
// NewMockPair.
func (m *MockTransport) Connect(ctx context.Context) error {
	return nil
}

// Send delivers f to the peer side of the pair.
func (m *MockTransport) Send(f Frame) error {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return ErrClosed
	}

	select {
	case m.peerOutbound <- f:
		return nil
	case <-m.done:
		return ErrClosed
	}
}

// Inbound returns the channel of frames sent by the peer.
func (m *MockTransport) Inbound() <-chan Frame {
	return m.inbound
}

// Done is closed once Close has been called on this side of the pair.
func (m *MockTransport) Done() <-chan struct{} {
	return m.done
}

// Close marks the transport closed. It does not close the peer's side;
// call Close on both ends to simulate a mutual disconnect.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.closeOnce.Do(func() { close(m.done) })
	return nil
}
