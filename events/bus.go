// Package events implements the multi-subscriber notifier described in
// §4.6: listeners register per event name and are invoked in
// registration order whenever that event fires.
package events

import "sync"

// Name identifies one of the channel's public event streams.
type Name string

// Event names emitted by the channel FSM.
const (
	// StatusChanged fires exactly once per status transition (§4.6).
	StatusChanged Name = "statusChanged"

	// StateChanged fires on every internal FSM state transition,
	// finer-grained than StatusChanged.
	StateChanged Name = "stateChanged"

	// Message fires for every deserialized chat message received from
	// the counterparty.
	Message Name = "message"

	// Error fires for typed error objects, carrying the offending
	// inbound frame where one exists.
	Error Name = "error"

	// Dispute fires when the node reports an on-chain transaction that
	// was not spawned by any caller-driven action: a solo-close, slash,
	// or settle payload prepared unilaterally during dispute handling
	// (§1 "dispute coordination"). Payload is a DisputeEvent.
	Dispute Name = "dispute"
)

// Listener receives an event's payload. A listener that returns remains
// subscribed; there is no way to unsubscribe by return value, matching
// §4.6 ("a listener returning nothing continues subscription").
type Listener func(payload interface{})

// Bus is a simple, goroutine-safe pub/sub notifier. One Bus is owned by
// one Channel.
type Bus struct {
	mu        sync.RWMutex
	listeners map[Name][]Listener
}

// New builds an empty Bus.
func New() *Bus {
	return &Bus{listeners: make(map[Name][]Listener)}
}

// On registers l for events named name.
func (b *Bus) On(name Name, l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[name] = append(b.listeners[name], l)
}

// Emit invokes every listener registered for name, in registration
// order, synchronously on the calling goroutine. The channel FSM calls
// Emit from its own serial event loop, so listeners observe those events
// in the exact order the FSM produced them; the one exception is the
// error a failed dispute TxSubmitter reports, which is emitted from the
// submission goroutine.
func (b *Bus) Emit(name Name, payload interface{}) {
	b.mu.RLock()
	ls := make([]Listener, len(b.listeners[name]))
	copy(ls, b.listeners[name])
	b.mu.RUnlock()

	for _, l := range ls {
		l(payload)
	}
}
